package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mosaicboard/mosaic/internal/app/domain/tenant"
	"github.com/mosaicboard/mosaic/internal/app/domain/userwidget"
	"github.com/mosaicboard/mosaic/internal/app/domain/widget"
)

// Memory is a thread-safe in-memory persistence layer implementing the
// storage interfaces in this package. It is intended for tests and local
// development and deliberately keeps the implementation simple.
type Memory struct {
	mu          sync.RWMutex
	nextSeq     int64
	lastAt      time.Time
	tenants     map[string]tenant.Tenant
	byToken     map[string]string
	widgets     map[string]widget.Record
	userWidgets map[string]userwidget.Widget
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		nextSeq:     1,
		tenants:     make(map[string]tenant.Tenant),
		byToken:     make(map[string]string),
		widgets:     make(map[string]widget.Record),
		userWidgets: make(map[string]userwidget.Widget),
	}
}

// TenantStore implementation -------------------------------------------------

func (m *Memory) CreateTenant(_ context.Context, t tenant.Tenant) (tenant.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byToken[t.IntegrationToken]; exists {
		return tenant.Tenant{}, ErrDuplicateToken
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	now := time.Now().UTC()
	// Wall clocks can repeat or step backwards; never let RegisteredAt
	// regress so (RegisteredAt, Seq) stays strictly increasing.
	if now.Before(m.lastAt) {
		now = m.lastAt
	}
	m.lastAt = now

	t.RegisteredAt = now
	t.Seq = m.nextSeq
	m.nextSeq++

	m.tenants[t.ID] = t
	m.byToken[t.IntegrationToken] = t.ID
	return t, nil
}

func (m *Memory) GetTenant(_ context.Context, id string) (tenant.Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tenants[id]
	if !ok {
		return tenant.Tenant{}, ErrNotFound
	}
	return t, nil
}

func (m *Memory) GetTenantByToken(_ context.Context, token string) (tenant.Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byToken[token]
	if !ok {
		return tenant.Tenant{}, ErrNotFound
	}
	return m.tenants[id], nil
}

func (m *Memory) ListTenants(_ context.Context) ([]tenant.Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]tenant.Tenant, 0, len(m.tenants))
	for _, t := range m.tenants {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].RegisteredAt.Equal(result[j].RegisteredAt) {
			return result[i].RegisteredAt.Before(result[j].RegisteredAt)
		}
		return result[i].Seq < result[j].Seq
	})
	return result, nil
}

func (m *Memory) DeleteTenant(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tenants[id]
	if !ok {
		return ErrNotFound
	}
	delete(m.tenants, id)
	delete(m.byToken, t.IntegrationToken)
	return nil
}

// WidgetStore implementation -------------------------------------------------

func (m *Memory) UpsertWidget(_ context.Context, rec widget.Record) (widget.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec.RawData = append([]byte(nil), rec.RawData...)
	m.widgets[rec.TenantID] = rec
	return rec, nil
}

func (m *Memory) GetWidget(_ context.Context, tenantID string) (widget.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.widgets[tenantID]
	if !ok {
		return widget.Record{}, ErrNotFound
	}
	rec.RawData = append([]byte(nil), rec.RawData...)
	return rec, nil
}

func (m *Memory) DeleteWidget(_ context.Context, tenantID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.widgets[tenantID]; !ok {
		return ErrNotFound
	}
	delete(m.widgets, tenantID)
	return nil
}

// UserWidgetStore implementation ---------------------------------------------

func (m *Memory) CreateUserWidget(_ context.Context, w userwidget.Widget) (userwidget.Widget, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if now.Before(m.lastAt) {
		now = m.lastAt
	}
	m.lastAt = now

	w.CreatedAt = now
	w.UpdatedAt = now
	w.Seq = m.nextSeq
	m.nextSeq++

	m.userWidgets[w.ID] = w
	return w, nil
}

func (m *Memory) GetUserWidget(_ context.Context, id string) (userwidget.Widget, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	w, ok := m.userWidgets[id]
	if !ok {
		return userwidget.Widget{}, ErrNotFound
	}
	return w, nil
}

func (m *Memory) UpdateUserWidget(_ context.Context, w userwidget.Widget) (userwidget.Widget, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.userWidgets[w.ID]
	if !ok {
		return userwidget.Widget{}, ErrNotFound
	}
	// Creation identity is immutable; updates replace content only.
	w.CreatedAt = existing.CreatedAt
	w.Seq = existing.Seq
	w.UpdatedAt = time.Now().UTC()
	m.userWidgets[w.ID] = w
	return w, nil
}

func (m *Memory) ListUserWidgets(_ context.Context) ([]userwidget.Widget, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]userwidget.Widget, 0, len(m.userWidgets))
	for _, w := range m.userWidgets {
		result = append(result, w)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].Seq < result[j].Seq
	})
	return result, nil
}

func (m *Memory) DeleteUserWidget(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.userWidgets[id]; !ok {
		return ErrNotFound
	}
	delete(m.userWidgets, id)
	return nil
}

// Ping always succeeds for the in-memory store.
func (m *Memory) Ping(context.Context) error { return nil }

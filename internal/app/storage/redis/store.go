// Package redis implements the storage interfaces on a Redis document layout:
// one JSON document per tenant and per widget record, a token index for
// integration-token lookup and a sorted set for registration ordering.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mosaicboard/mosaic/internal/app/domain/tenant"
	"github.com/mosaicboard/mosaic/internal/app/domain/userwidget"
	"github.com/mosaicboard/mosaic/internal/app/domain/widget"
	"github.com/mosaicboard/mosaic/internal/app/storage"
)

const (
	tenantKeyPrefix     = "mosaic:tenant:"
	tokenKeyPrefix      = "mosaic:token:"
	widgetKeyPrefix     = "mosaic:widget:"
	orderKey            = "mosaic:tenants:order"
	seqKey              = "mosaic:tenants:seq"
	userWidgetKeyPrefix = "mosaic:uwidget:"
	userOrderKey        = "mosaic:uwidgets:order"
	userSeqKey          = "mosaic:uwidgets:seq"
)

// Store implements the storage interfaces backed by Redis.
type Store struct {
	client *redis.Client
}

var _ storage.TenantStore = (*Store)(nil)
var _ storage.WidgetStore = (*Store)(nil)
var _ storage.UserWidgetStore = (*Store)(nil)
var _ storage.Pinger = (*Store)(nil)

// New creates a Store using the provided Redis client.
func New(client *redis.Client) *Store {
	return &Store{client: client}
}

type tenantDoc struct {
	ID               string    `json:"id"`
	DisplayName      string    `json:"display_name"`
	IntegrationToken string    `json:"integration_token"`
	RegisteredAt     time.Time `json:"registered_at"`
	Seq              int64     `json:"seq"`
}

type widgetDoc struct {
	TenantID     string          `json:"tenant_id"`
	RawData      json.RawMessage `json:"raw_data"`
	RenderPrompt string          `json:"render_prompt"`
	CachedMarkup string          `json:"cached_markup"`
	GeneratedAt  time.Time       `json:"generated_at"`
}

type userWidgetDoc struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Prompt    string    `json:"prompt"`
	Markup    string    `json:"cached_markup"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Seq       int64     `json:"seq"`
}

// --- TenantStore ------------------------------------------------------------

func (s *Store) CreateTenant(ctx context.Context, t tenant.Tenant) (tenant.Tenant, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	// The token index is the uniqueness guard; SETNX loses exactly once per
	// duplicate token.
	ok, err := s.client.SetNX(ctx, tokenKeyPrefix+t.IntegrationToken, t.ID, 0).Result()
	if err != nil {
		return tenant.Tenant{}, err
	}
	if !ok {
		return tenant.Tenant{}, storage.ErrDuplicateToken
	}

	seq, err := s.client.Incr(ctx, seqKey).Result()
	if err != nil {
		return tenant.Tenant{}, err
	}
	t.Seq = seq
	t.RegisteredAt = time.Now().UTC()

	doc, err := json.Marshal(tenantDoc(t))
	if err != nil {
		return tenant.Tenant{}, err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, tenantKeyPrefix+t.ID, doc, 0)
	// Score by creation sequence: strictly monotonic, never clock-dependent.
	pipe.ZAdd(ctx, orderKey, redis.Z{Score: float64(seq), Member: t.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return tenant.Tenant{}, err
	}
	return t, nil
}

func (s *Store) GetTenant(ctx context.Context, id string) (tenant.Tenant, error) {
	raw, err := s.client.Get(ctx, tenantKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return tenant.Tenant{}, storage.ErrNotFound
	}
	if err != nil {
		return tenant.Tenant{}, err
	}
	var doc tenantDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return tenant.Tenant{}, err
	}
	return tenant.Tenant(doc), nil
}

func (s *Store) GetTenantByToken(ctx context.Context, token string) (tenant.Tenant, error) {
	id, err := s.client.Get(ctx, tokenKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return tenant.Tenant{}, storage.ErrNotFound
	}
	if err != nil {
		return tenant.Tenant{}, err
	}
	return s.GetTenant(ctx, id)
}

func (s *Store) ListTenants(ctx context.Context) ([]tenant.Tenant, error) {
	ids, err := s.client.ZRange(ctx, orderKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	result := make([]tenant.Tenant, 0, len(ids))
	for _, id := range ids {
		t, err := s.GetTenant(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			// Tenant deleted between ZRANGE and GET; skip.
			continue
		}
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, nil
}

func (s *Store) DeleteTenant(ctx context.Context, id string) error {
	t, err := s.GetTenant(ctx, id)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, tenantKeyPrefix+id)
	pipe.Del(ctx, tokenKeyPrefix+t.IntegrationToken)
	pipe.ZRem(ctx, orderKey, id)
	_, err = pipe.Exec(ctx)
	return err
}

// --- WidgetStore ------------------------------------------------------------

func (s *Store) UpsertWidget(ctx context.Context, rec widget.Record) (widget.Record, error) {
	doc, err := json.Marshal(widgetDoc(rec))
	if err != nil {
		return widget.Record{}, err
	}
	if err := s.client.Set(ctx, widgetKeyPrefix+rec.TenantID, doc, 0).Err(); err != nil {
		return widget.Record{}, err
	}
	return rec, nil
}

func (s *Store) GetWidget(ctx context.Context, tenantID string) (widget.Record, error) {
	raw, err := s.client.Get(ctx, widgetKeyPrefix+tenantID).Bytes()
	if errors.Is(err, redis.Nil) {
		return widget.Record{}, storage.ErrNotFound
	}
	if err != nil {
		return widget.Record{}, err
	}
	var doc widgetDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return widget.Record{}, err
	}
	return widget.Record(doc), nil
}

func (s *Store) DeleteWidget(ctx context.Context, tenantID string) error {
	deleted, err := s.client.Del(ctx, widgetKeyPrefix+tenantID).Result()
	if err != nil {
		return err
	}
	if deleted == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// --- UserWidgetStore ---------------------------------------------------------

func (s *Store) CreateUserWidget(ctx context.Context, w userwidget.Widget) (userwidget.Widget, error) {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	seq, err := s.client.Incr(ctx, userSeqKey).Result()
	if err != nil {
		return userwidget.Widget{}, err
	}
	w.Seq = seq
	now := time.Now().UTC()
	w.CreatedAt = now
	w.UpdatedAt = now

	doc, err := json.Marshal(userWidgetDoc(w))
	if err != nil {
		return userwidget.Widget{}, err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, userWidgetKeyPrefix+w.ID, doc, 0)
	pipe.ZAdd(ctx, userOrderKey, redis.Z{Score: float64(seq), Member: w.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return userwidget.Widget{}, err
	}
	return w, nil
}

func (s *Store) GetUserWidget(ctx context.Context, id string) (userwidget.Widget, error) {
	raw, err := s.client.Get(ctx, userWidgetKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return userwidget.Widget{}, storage.ErrNotFound
	}
	if err != nil {
		return userwidget.Widget{}, err
	}
	var doc userWidgetDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return userwidget.Widget{}, err
	}
	return userwidget.Widget(doc), nil
}

func (s *Store) UpdateUserWidget(ctx context.Context, w userwidget.Widget) (userwidget.Widget, error) {
	existing, err := s.GetUserWidget(ctx, w.ID)
	if err != nil {
		return userwidget.Widget{}, err
	}
	w.CreatedAt = existing.CreatedAt
	w.Seq = existing.Seq
	w.UpdatedAt = time.Now().UTC()

	doc, err := json.Marshal(userWidgetDoc(w))
	if err != nil {
		return userwidget.Widget{}, err
	}
	if err := s.client.Set(ctx, userWidgetKeyPrefix+w.ID, doc, 0).Err(); err != nil {
		return userwidget.Widget{}, err
	}
	return w, nil
}

func (s *Store) ListUserWidgets(ctx context.Context) ([]userwidget.Widget, error) {
	ids, err := s.client.ZRange(ctx, userOrderKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	result := make([]userwidget.Widget, 0, len(ids))
	for _, id := range ids {
		w, err := s.GetUserWidget(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		result = append(result, w)
	}
	return result, nil
}

func (s *Store) DeleteUserWidget(ctx context.Context, id string) error {
	if _, err := s.GetUserWidget(ctx, id); err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, userWidgetKeyPrefix+id)
	pipe.ZRem(ctx, userOrderKey, id)
	_, err := pipe.Exec(ctx)
	return err
}

// Ping verifies Redis connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Package postgres implements the storage interfaces backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/mosaicboard/mosaic/internal/app/domain/tenant"
	"github.com/mosaicboard/mosaic/internal/app/domain/userwidget"
	"github.com/mosaicboard/mosaic/internal/app/domain/widget"
	"github.com/mosaicboard/mosaic/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ storage.TenantStore = (*Store)(nil)
var _ storage.WidgetStore = (*Store)(nil)
var _ storage.UserWidgetStore = (*Store)(nil)
var _ storage.Pinger = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Bootstrap creates the schema when it does not exist yet. The statements are
// idempotent; there is no migration history to manage for two tables.
func (s *Store) Bootstrap(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS tenants (
			id                UUID PRIMARY KEY,
			display_name      TEXT NOT NULL,
			integration_token TEXT NOT NULL UNIQUE,
			registered_at     TIMESTAMPTZ NOT NULL,
			seq               BIGSERIAL
		);
		CREATE TABLE IF NOT EXISTS widgets (
			tenant_id     UUID PRIMARY KEY REFERENCES tenants(id) ON DELETE CASCADE,
			raw_data      JSONB NOT NULL,
			render_prompt TEXT NOT NULL,
			cached_markup TEXT NOT NULL,
			generated_at  TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS user_widgets (
			id            UUID PRIMARY KEY,
			title         TEXT NOT NULL,
			prompt        TEXT NOT NULL,
			cached_markup TEXT NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL,
			updated_at    TIMESTAMPTZ NOT NULL,
			seq           BIGSERIAL
		);
	`)
	return err
}

// --- TenantStore ------------------------------------------------------------

func (s *Store) CreateTenant(ctx context.Context, t tenant.Tenant) (tenant.Tenant, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.RegisteredAt = time.Now().UTC()

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO tenants (id, display_name, integration_token, registered_at)
		VALUES ($1, $2, $3, $4)
		RETURNING seq
	`, t.ID, t.DisplayName, t.IntegrationToken, t.RegisteredAt).Scan(&t.Seq)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return tenant.Tenant{}, storage.ErrDuplicateToken
		}
		return tenant.Tenant{}, err
	}
	return t, nil
}

func (s *Store) GetTenant(ctx context.Context, id string) (tenant.Tenant, error) {
	return s.scanTenant(s.db.QueryRowContext(ctx, `
		SELECT id, display_name, integration_token, registered_at, seq
		FROM tenants WHERE id = $1
	`, id))
}

func (s *Store) GetTenantByToken(ctx context.Context, token string) (tenant.Tenant, error) {
	return s.scanTenant(s.db.QueryRowContext(ctx, `
		SELECT id, display_name, integration_token, registered_at, seq
		FROM tenants WHERE integration_token = $1
	`, token))
}

// ListTenants orders by the creation serial alone; registered_at is a wall
// clock and may step backwards, seq cannot.
func (s *Store) ListTenants(ctx context.Context) ([]tenant.Tenant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, display_name, integration_token, registered_at, seq
		FROM tenants ORDER BY seq ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []tenant.Tenant
	for rows.Next() {
		var t tenant.Tenant
		if err := rows.Scan(&t.ID, &t.DisplayName, &t.IntegrationToken, &t.RegisteredAt, &t.Seq); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func (s *Store) DeleteTenant(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) scanTenant(row *sql.Row) (tenant.Tenant, error) {
	var t tenant.Tenant
	err := row.Scan(&t.ID, &t.DisplayName, &t.IntegrationToken, &t.RegisteredAt, &t.Seq)
	if errors.Is(err, sql.ErrNoRows) {
		return tenant.Tenant{}, storage.ErrNotFound
	}
	if err != nil {
		return tenant.Tenant{}, err
	}
	return t, nil
}

// --- WidgetStore ------------------------------------------------------------

func (s *Store) UpsertWidget(ctx context.Context, rec widget.Record) (widget.Record, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO widgets (tenant_id, raw_data, render_prompt, cached_markup, generated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tenant_id) DO UPDATE
		SET raw_data = EXCLUDED.raw_data,
		    render_prompt = EXCLUDED.render_prompt,
		    cached_markup = EXCLUDED.cached_markup,
		    generated_at = EXCLUDED.generated_at
	`, rec.TenantID, []byte(rec.RawData), rec.RenderPrompt, rec.CachedMarkup, rec.GeneratedAt)
	if err != nil {
		return widget.Record{}, err
	}
	return rec, nil
}

func (s *Store) GetWidget(ctx context.Context, tenantID string) (widget.Record, error) {
	var rec widget.Record
	var raw []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT tenant_id, raw_data, render_prompt, cached_markup, generated_at
		FROM widgets WHERE tenant_id = $1
	`, tenantID).Scan(&rec.TenantID, &raw, &rec.RenderPrompt, &rec.CachedMarkup, &rec.GeneratedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return widget.Record{}, storage.ErrNotFound
	}
	if err != nil {
		return widget.Record{}, err
	}
	rec.RawData = raw
	return rec, nil
}

func (s *Store) DeleteWidget(ctx context.Context, tenantID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM widgets WHERE tenant_id = $1`, tenantID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// --- UserWidgetStore ---------------------------------------------------------

func (s *Store) CreateUserWidget(ctx context.Context, w userwidget.Widget) (userwidget.Widget, error) {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	w.CreatedAt = now
	w.UpdatedAt = now

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO user_widgets (id, title, prompt, cached_markup, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING seq
	`, w.ID, w.Title, w.Prompt, w.Markup, w.CreatedAt, w.UpdatedAt).Scan(&w.Seq)
	if err != nil {
		return userwidget.Widget{}, err
	}
	return w, nil
}

func (s *Store) GetUserWidget(ctx context.Context, id string) (userwidget.Widget, error) {
	var w userwidget.Widget
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, prompt, cached_markup, created_at, updated_at, seq
		FROM user_widgets WHERE id = $1
	`, id).Scan(&w.ID, &w.Title, &w.Prompt, &w.Markup, &w.CreatedAt, &w.UpdatedAt, &w.Seq)
	if errors.Is(err, sql.ErrNoRows) {
		return userwidget.Widget{}, storage.ErrNotFound
	}
	if err != nil {
		return userwidget.Widget{}, err
	}
	return w, nil
}

func (s *Store) UpdateUserWidget(ctx context.Context, w userwidget.Widget) (userwidget.Widget, error) {
	w.UpdatedAt = time.Now().UTC()
	err := s.db.QueryRowContext(ctx, `
		UPDATE user_widgets
		SET title = $2, prompt = $3, cached_markup = $4, updated_at = $5
		WHERE id = $1
		RETURNING created_at, seq
	`, w.ID, w.Title, w.Prompt, w.Markup, w.UpdatedAt).Scan(&w.CreatedAt, &w.Seq)
	if errors.Is(err, sql.ErrNoRows) {
		return userwidget.Widget{}, storage.ErrNotFound
	}
	if err != nil {
		return userwidget.Widget{}, err
	}
	return w, nil
}

func (s *Store) ListUserWidgets(ctx context.Context) ([]userwidget.Widget, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, prompt, cached_markup, created_at, updated_at, seq
		FROM user_widgets ORDER BY seq ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []userwidget.Widget
	for rows.Next() {
		var w userwidget.Widget
		if err := rows.Scan(&w.ID, &w.Title, &w.Prompt, &w.Markup, &w.CreatedAt, &w.UpdatedAt, &w.Seq); err != nil {
			return nil, err
		}
		result = append(result, w)
	}
	return result, rows.Err()
}

func (s *Store) DeleteUserWidget(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM user_widgets WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

package storage

import (
	"context"
	"errors"

	"github.com/mosaicboard/mosaic/internal/app/domain/tenant"
	"github.com/mosaicboard/mosaic/internal/app/domain/userwidget"
	"github.com/mosaicboard/mosaic/internal/app/domain/widget"
)

// ErrNotFound is returned when a tenant or widget record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateToken is returned when an integration token collides with an
// existing tenant. Callers must treat this as fatal rather than retry; a
// collision would allow tenant impersonation.
var ErrDuplicateToken = errors.New("integration token already exists")

// TenantStore persists tenant registrations.
//
// CreateTenant assigns the ID when empty and always assigns RegisteredAt and
// Seq so that (RegisteredAt, Seq) is strictly increasing across creations.
// ListTenants returns tenants in that order.
type TenantStore interface {
	CreateTenant(ctx context.Context, t tenant.Tenant) (tenant.Tenant, error)
	GetTenant(ctx context.Context, id string) (tenant.Tenant, error)
	GetTenantByToken(ctx context.Context, token string) (tenant.Tenant, error)
	ListTenants(ctx context.Context) ([]tenant.Tenant, error)
	DeleteTenant(ctx context.Context, id string) error
}

// WidgetStore persists widget records keyed by tenant ID. Upsert replaces the
// whole record atomically per tenant.
type WidgetStore interface {
	UpsertWidget(ctx context.Context, rec widget.Record) (widget.Record, error)
	GetWidget(ctx context.Context, tenantID string) (widget.Record, error)
	DeleteWidget(ctx context.Context, tenantID string) error
}

// UserWidgetStore persists prompt-only widgets.
//
// CreateUserWidget assigns the ID when empty and always assigns CreatedAt and
// Seq so that (CreatedAt, Seq) is strictly increasing across creations.
// ListUserWidgets returns widgets in that order. UpdateUserWidget replaces
// the stored record by ID and fails with ErrNotFound when it does not exist.
type UserWidgetStore interface {
	CreateUserWidget(ctx context.Context, w userwidget.Widget) (userwidget.Widget, error)
	GetUserWidget(ctx context.Context, id string) (userwidget.Widget, error)
	UpdateUserWidget(ctx context.Context, w userwidget.Widget) (userwidget.Widget, error)
	ListUserWidgets(ctx context.Context) ([]userwidget.Widget, error)
	DeleteUserWidget(ctx context.Context, id string) error
}

// Pinger is implemented by stores that can report backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}

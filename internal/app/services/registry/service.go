// Package registry manages tenant (app) records.
package registry

import (
	"context"
	"errors"
	"strings"

	"github.com/mosaicboard/mosaic/internal/app/domain/tenant"
	"github.com/mosaicboard/mosaic/internal/app/services/auth"
	"github.com/mosaicboard/mosaic/internal/app/storage"
	svcerrors "github.com/mosaicboard/mosaic/internal/errors"
	"github.com/mosaicboard/mosaic/pkg/logger"
)

// Service creates and looks up tenant records.
type Service struct {
	tenants storage.TenantStore
	widgets storage.WidgetStore
	log     *logger.Logger
}

// New constructs a tenant registry.
func New(tenants storage.TenantStore, widgets storage.WidgetStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("registry")
	}
	return &Service{tenants: tenants, widgets: widgets, log: log}
}

// Register allocates a new tenant with a fresh integration token. Display
// names are not identity; duplicates are permitted.
func (s *Service) Register(ctx context.Context, displayName string) (tenant.Tenant, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return tenant.Tenant{}, svcerrors.InvalidPayload("app_name is required")
	}

	token, err := auth.NewIntegrationToken()
	if err != nil {
		return tenant.Tenant{}, svcerrors.Internal("token generation failed", err)
	}

	created, err := s.tenants.CreateTenant(ctx, tenant.Tenant{
		DisplayName:      displayName,
		IntegrationToken: token,
	})
	if errors.Is(err, storage.ErrDuplicateToken) {
		// A 256-bit collision means something is deeply wrong (broken
		// entropy source or a compromised store). Do not retry.
		return tenant.Tenant{}, svcerrors.Internal("integration token collision", err)
	}
	if err != nil {
		return tenant.Tenant{}, svcerrors.Internal("tenant creation failed", err)
	}

	s.log.WithField("tenant_id", created.ID).
		WithField("app_name", created.DisplayName).
		Info("tenant registered")
	return created, nil
}

// Resolve returns the tenant with the given ID.
func (s *Service) Resolve(ctx context.Context, tenantID string) (tenant.Tenant, error) {
	t, err := s.tenants.GetTenant(ctx, tenantID)
	if errors.Is(err, storage.ErrNotFound) {
		return tenant.Tenant{}, svcerrors.NotFound("tenant " + tenantID + " not found")
	}
	if err != nil {
		return tenant.Tenant{}, svcerrors.Internal("tenant lookup failed", err)
	}
	return t, nil
}

// List returns all tenants ordered by registration.
func (s *Service) List(ctx context.Context) ([]tenant.Tenant, error) {
	tenants, err := s.tenants.ListTenants(ctx)
	if err != nil {
		return nil, svcerrors.Internal("tenant listing failed", err)
	}
	return tenants, nil
}

// Delete unregisters a tenant and drops its widget record.
func (s *Service) Delete(ctx context.Context, tenantID string) error {
	if _, err := s.Resolve(ctx, tenantID); err != nil {
		return err
	}
	if err := s.widgets.DeleteWidget(ctx, tenantID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return svcerrors.Internal("widget deletion failed", err)
	}
	if err := s.tenants.DeleteTenant(ctx, tenantID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return svcerrors.Internal("tenant deletion failed", err)
	}
	s.log.WithField("tenant_id", tenantID).Info("tenant unregistered")
	return nil
}

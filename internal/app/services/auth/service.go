// Package auth issues and validates the two bearer token tiers that gate
// onboarding and data submission.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/mosaicboard/mosaic/internal/app/domain/tenant"
	"github.com/mosaicboard/mosaic/internal/app/storage"
	svcerrors "github.com/mosaicboard/mosaic/internal/errors"
	"github.com/mosaicboard/mosaic/pkg/logger"
)

// tokenBytes gives 256 bits of entropy, matching the original deployment's
// urlsafe 32-byte tokens.
const tokenBytes = 32

// Service validates registration and integration tokens. Registration uses a
// single process-wide shared secret; integration tokens are per-tenant secrets
// resolved through the tenant store on every request.
type Service struct {
	credential []byte
	tenants    storage.TenantStore
	log        *logger.Logger
}

// New constructs the token authority. The registration credential is injected
// at process start and never mutated.
func New(registrationCredential string, tenants storage.TenantStore, log *logger.Logger) (*Service, error) {
	if registrationCredential == "" {
		return nil, fmt.Errorf("registration credential is required")
	}
	if log == nil {
		log = logger.NewDefault("auth")
	}
	return &Service{
		credential: []byte(registrationCredential),
		tenants:    tenants,
		log:        log,
	}, nil
}

// ValidateRegistration checks the shared registration secret. The comparison
// is constant-time so the credential cannot be probed byte by byte.
func (s *Service) ValidateRegistration(token string) error {
	if subtle.ConstantTimeCompare([]byte(token), s.credential) != 1 {
		return svcerrors.Unauthorized("invalid registration token")
	}
	return nil
}

// ValidateIntegration resolves the tenant owning the given integration token.
// Tokens are the sole identity carrier; there is no session state.
func (s *Service) ValidateIntegration(ctx context.Context, token string) (tenant.Tenant, error) {
	if token == "" {
		return tenant.Tenant{}, svcerrors.Unauthorized("missing integration token")
	}
	t, err := s.tenants.GetTenantByToken(ctx, token)
	if errors.Is(err, storage.ErrNotFound) {
		return tenant.Tenant{}, svcerrors.Unauthorized("invalid integration token")
	}
	if err != nil {
		return tenant.Tenant{}, svcerrors.Internal("integration token lookup failed", err)
	}
	return t, nil
}

// NewIntegrationToken generates a fresh integration token. Collisions are
// detected at insert time by the store's unique index and treated as fatal.
func NewIntegrationToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate integration token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

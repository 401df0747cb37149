// Package app wires the mosaic core services together.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/mosaicboard/mosaic/internal/app/compose"
	"github.com/mosaicboard/mosaic/internal/app/services/auth"
	"github.com/mosaicboard/mosaic/internal/app/services/registry"
	"github.com/mosaicboard/mosaic/internal/app/services/widgets"
	"github.com/mosaicboard/mosaic/internal/app/storage"
	"github.com/mosaicboard/mosaic/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Tenants     storage.TenantStore
	Widgets     storage.WidgetStore
	UserWidgets storage.UserWidgetStore
	Health      storage.Pinger
}

// Options carries the injected runtime knobs.
type Options struct {
	// RegistrationToken is the process-wide shared secret gating onboarding.
	RegistrationToken string
	// Renderer synthesizes widget markup; defaults to the static renderer.
	Renderer widgets.Renderer
	// RenderTimeout bounds each rendering-service invocation.
	RenderTimeout time.Duration
	// RefreshInterval is handed to the dashboard page for client polling.
	RefreshInterval time.Duration
}

// Application ties the core services together.
type Application struct {
	log    *logger.Logger
	health storage.Pinger

	Auth        *auth.Service
	Registry    *registry.Service
	Widgets     *widgets.Service
	UserWidgets *widgets.UserService
	Composer    *compose.Composer
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := storage.NewMemory()
	if stores.Tenants == nil {
		stores.Tenants = mem
	}
	if stores.Widgets == nil {
		stores.Widgets = mem
	}
	if stores.UserWidgets == nil {
		stores.UserWidgets = mem
	}
	if stores.Health == nil {
		if pinger, ok := stores.Tenants.(storage.Pinger); ok {
			stores.Health = pinger
		} else {
			stores.Health = mem
		}
	}

	renderer := opts.Renderer
	if renderer == nil {
		renderer = widgets.StaticRenderer{}
	}

	authSvc, err := auth.New(opts.RegistrationToken, stores.Tenants, log.WithField("component", "auth"))
	if err != nil {
		return nil, fmt.Errorf("configure auth: %w", err)
	}

	registrySvc := registry.New(stores.Tenants, stores.Widgets, log.WithField("component", "registry"))

	widgetOpts := []widgets.Option{}
	if opts.RenderTimeout > 0 {
		widgetOpts = append(widgetOpts, widgets.WithRenderTimeout(opts.RenderTimeout))
	}
	widgetSvc := widgets.New(stores.Widgets, renderer, log.WithField("component", "widgets"), widgetOpts...)

	userOpts := []widgets.UserOption{}
	if opts.RenderTimeout > 0 {
		userOpts = append(userOpts, widgets.WithUserRenderTimeout(opts.RenderTimeout))
	}
	userWidgetSvc := widgets.NewUserService(stores.UserWidgets, renderer, log.WithField("component", "user-widgets"), userOpts...)

	composer := compose.New(registrySvc, widgetSvc, userWidgetSvc, opts.RefreshInterval, log.WithField("component", "compose"))

	return &Application{
		log:         log,
		health:      stores.Health,
		Auth:        authSvc,
		Registry:    registrySvc,
		Widgets:     widgetSvc,
		UserWidgets: userWidgetSvc,
		Composer:    composer,
	}, nil
}

// Healthy reports backing-store health.
func (a *Application) Healthy(ctx context.Context) error {
	return a.health.Ping(ctx)
}

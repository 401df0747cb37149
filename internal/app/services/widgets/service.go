// Package widgets implements the render/cache pipeline: it accepts data
// submissions, decides whether to invoke the rendering service, sanitizes and
// persists the resulting artifact, and serves cached artifacts on refresh.
package widgets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mosaicboard/mosaic/internal/app/domain/tenant"
	"github.com/mosaicboard/mosaic/internal/app/domain/widget"
	"github.com/mosaicboard/mosaic/internal/app/metrics"
	"github.com/mosaicboard/mosaic/internal/app/storage"
	svcerrors "github.com/mosaicboard/mosaic/internal/errors"
	"github.com/mosaicboard/mosaic/pkg/logger"
)

// Bounds are load-bearing for availability: an unbounded payload or render
// call can take the whole dashboard down with it.
const (
	DefaultRenderTimeout = 45 * time.Second
	MaxPayloadBytes      = 256 << 10
	MaxPromptBytes       = 8 << 10
	MaxArtifactBytes     = 1 << 20
)

// synthesizer is the shared render pipeline: bounded renderer invocation,
// metrics, sanitization. Both widget services embed it.
type synthesizer struct {
	renderer  Renderer
	sanitizer *Sanitizer
	timeout   time.Duration
	log       *logger.Logger
}

// Service is the render cache controller.
type Service struct {
	synthesizer
	store  storage.WidgetStore
	policy RegeneratePolicy

	// Per-tenant write exclusion. Renders may run concurrently for the
	// same tenant; the record write may not.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Option configures the service.
type Option func(*Service)

// WithPolicy overrides the staleness policy.
func WithPolicy(policy RegeneratePolicy) Option {
	return func(s *Service) { s.policy = policy }
}

// WithRenderTimeout bounds each rendering-service invocation.
func WithRenderTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// New constructs the controller.
func New(store storage.WidgetStore, renderer Renderer, log *logger.Logger, opts ...Option) *Service {
	if log == nil {
		log = logger.NewDefault("widgets")
	}
	s := &Service{
		synthesizer: synthesizer{
			renderer:  renderer,
			sanitizer: NewSanitizer(),
			timeout:   DefaultRenderTimeout,
			log:       log,
		},
		store:  store,
		policy: AlwaysRegenerate{},
		locks:  make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) lockFor(tenantID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[tenantID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[tenantID] = l
	}
	return l
}

// Submit validates a submission, synthesizes a new artifact and replaces the
// tenant's widget record. On any rendering failure the previous artifact is
// left untouched; a widget, once rendered, is never erased by a later failure.
func (s *Service) Submit(ctx context.Context, tn tenant.Tenant, data any, renderPrompt string) error {
	payload, err := s.validate(data, renderPrompt)
	if err != nil {
		return err
	}

	prev, err := s.store.GetWidget(ctx, tn.ID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return svcerrors.Internal("widget lookup failed", err)
	}

	if !s.policy.ShouldRegenerate(prev, payload, renderPrompt) {
		s.log.WithField("tenant_id", tn.ID).Debug("cache policy kept existing artifact")
		return nil
	}

	markup, err := s.render(ctx, tn.ID, payload, renderPrompt, prev.CachedMarkup)
	if err != nil {
		return err
	}

	rec := widget.Record{
		TenantID:     tn.ID,
		RawData:      payload,
		RenderPrompt: renderPrompt,
		CachedMarkup: markup,
		GeneratedAt:  time.Now().UTC(),
	}
	return s.write(ctx, rec)
}

// GetCached returns the tenant's cached artifact without ever triggering
// synthesis. ok is false when no record exists yet.
func (s *Service) GetCached(ctx context.Context, tenantID string) (widget.Record, bool, error) {
	rec, err := s.store.GetWidget(ctx, tenantID)
	if errors.Is(err, storage.ErrNotFound) {
		return widget.Record{}, false, nil
	}
	if err != nil {
		return widget.Record{}, false, svcerrors.Internal("widget lookup failed", err)
	}
	return rec, true, nil
}

// Refresh regenerates the artifact from the stored data and prompt while
// asking the renderer to keep the current visual style.
func (s *Service) Refresh(ctx context.Context, tenantID string) (string, error) {
	return s.regenerate(ctx, tenantID, true)
}

// FullRefresh regenerates from scratch: same stored data and prompt, but no
// style carry-over, so the renderer is free to produce a new design.
func (s *Service) FullRefresh(ctx context.Context, tenantID string) (string, error) {
	return s.regenerate(ctx, tenantID, false)
}

func (s *Service) regenerate(ctx context.Context, tenantID string, preserveStyle bool) (string, error) {
	prev, err := s.store.GetWidget(ctx, tenantID)
	if errors.Is(err, storage.ErrNotFound) {
		return "", svcerrors.NotFound("no widget for tenant " + tenantID)
	}
	if err != nil {
		return "", svcerrors.Internal("widget lookup failed", err)
	}

	prompt := prev.RenderPrompt
	previousMarkup := ""
	if preserveStyle {
		prompt = stylePreservationPrompt(prev.RenderPrompt, prev.CachedMarkup)
		previousMarkup = prev.CachedMarkup
	}

	markup, err := s.render(ctx, tenantID, prev.RawData, prompt, previousMarkup)
	if err != nil {
		return "", err
	}

	rec := prev
	rec.CachedMarkup = markup
	rec.GeneratedAt = time.Now().UTC()
	if err := s.write(ctx, rec); err != nil {
		return "", err
	}
	return markup, nil
}

func (s *synthesizer) render(ctx context.Context, subject string, data json.RawMessage, prompt, previousMarkup string) (string, error) {
	renderCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	raw, err := s.renderer.Render(renderCtx, data, prompt, previousMarkup)
	if err != nil {
		metrics.RecordRender("failed", time.Since(start))
		s.log.WithError(err).WithField("widget", subject).Warn("render failed")
		return "", svcerrors.RenderFailed("rendering service failed", err)
	}
	if len(raw) > MaxArtifactBytes {
		metrics.RecordRender("oversize", time.Since(start))
		return "", svcerrors.RenderFailed(fmt.Sprintf("artifact exceeds %d bytes", MaxArtifactBytes), nil)
	}

	markup := s.sanitizer.Sanitize(raw)
	if markup == "" {
		metrics.RecordRender("rejected", time.Since(start))
		return "", svcerrors.RenderFailed("no renderable content after sanitization", nil)
	}
	metrics.RecordRender("ok", time.Since(start))
	return markup, nil
}

// write replaces the widget record under the tenant's write lock. Writes are
// serialized per tenant, so the stored artifact always corresponds to one
// complete call's result in completion order.
func (s *Service) write(ctx context.Context, rec widget.Record) error {
	l := s.lockFor(rec.TenantID)
	l.Lock()
	defer l.Unlock()

	if _, err := s.store.UpsertWidget(ctx, rec); err != nil {
		return svcerrors.Internal("widget write failed", err)
	}
	s.log.WithField("tenant_id", rec.TenantID).Info("widget artifact updated")
	return nil
}

func (s *Service) validate(data any, renderPrompt string) (json.RawMessage, error) {
	if strings.TrimSpace(renderPrompt) == "" {
		return nil, svcerrors.InvalidPayload("render_prompt is required")
	}
	if len(renderPrompt) > MaxPromptBytes {
		return nil, svcerrors.InvalidPayload(fmt.Sprintf("render_prompt exceeds %d bytes", MaxPromptBytes))
	}

	// Marshal catches non-finite numbers and circular references.
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, svcerrors.InvalidPayload("data is not serializable: " + err.Error())
	}
	if len(payload) > MaxPayloadBytes {
		return nil, svcerrors.InvalidPayload(fmt.Sprintf("data exceeds %d bytes", MaxPayloadBytes))
	}
	return payload, nil
}

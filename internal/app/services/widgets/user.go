package widgets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mosaicboard/mosaic/internal/app/domain/userwidget"
	"github.com/mosaicboard/mosaic/internal/app/storage"
	svcerrors "github.com/mosaicboard/mosaic/internal/errors"
	"github.com/mosaicboard/mosaic/pkg/logger"
)

// MaxTitleBytes bounds user widget titles.
const MaxTitleBytes = 256

// defaultUserWidgetTitle names widgets created without a title.
const defaultUserWidgetTitle = "Widget"

// UserService manages prompt-only widgets: dashboard widgets a user creates
// from a rendering prompt alone, with no backing app. It shares the render
// pipeline with the app widget controller.
type UserService struct {
	synthesizer
	store storage.UserWidgetStore

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// UserOption configures the user widget service.
type UserOption func(*UserService)

// WithUserRenderTimeout bounds each rendering-service invocation.
func WithUserRenderTimeout(d time.Duration) UserOption {
	return func(s *UserService) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewUserService constructs the prompt-only widget service.
func NewUserService(store storage.UserWidgetStore, renderer Renderer, log *logger.Logger, opts ...UserOption) *UserService {
	if log == nil {
		log = logger.NewDefault("user-widgets")
	}
	s := &UserService{
		synthesizer: synthesizer{
			renderer:  renderer,
			sanitizer: NewSanitizer(),
			timeout:   DefaultRenderTimeout,
			log:       log,
		},
		store: store,
		locks: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *UserService) lockFor(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// Create renders a new widget from the prompt and stores it. Creation fails
// when synthesis does; there is no widget without an artifact.
func (s *UserService) Create(ctx context.Context, title, prompt string) (userwidget.Widget, error) {
	title, prompt, err := validateUserWidget(title, prompt)
	if err != nil {
		return userwidget.Widget{}, err
	}

	markup, err := s.render(ctx, "user:new", nil, prompt, "")
	if err != nil {
		return userwidget.Widget{}, err
	}

	created, err := s.store.CreateUserWidget(ctx, userwidget.Widget{
		Title:  title,
		Prompt: prompt,
		Markup: markup,
	})
	if err != nil {
		return userwidget.Widget{}, svcerrors.Internal("user widget creation failed", err)
	}
	s.log.WithField("widget_id", created.ID).Info("user widget created")
	return created, nil
}

// Update replaces the widget's title and prompt and regenerates the artifact
// from the new prompt. On render failure the stored widget is left untouched.
func (s *UserService) Update(ctx context.Context, id, title, prompt string) (userwidget.Widget, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return userwidget.Widget{}, err
	}
	title, prompt, err = validateUserWidget(title, prompt)
	if err != nil {
		return userwidget.Widget{}, err
	}

	markup, err := s.render(ctx, id, nil, prompt, "")
	if err != nil {
		return userwidget.Widget{}, err
	}

	next := existing
	next.Title = title
	next.Prompt = prompt
	next.Markup = markup
	return s.write(ctx, next)
}

// Get returns the widget with the given ID.
func (s *UserService) Get(ctx context.Context, id string) (userwidget.Widget, error) {
	w, err := s.store.GetUserWidget(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return userwidget.Widget{}, svcerrors.NotFound("user widget " + id + " not found")
	}
	if err != nil {
		return userwidget.Widget{}, svcerrors.Internal("user widget lookup failed", err)
	}
	return w, nil
}

// List returns all user widgets ordered by creation.
func (s *UserService) List(ctx context.Context) ([]userwidget.Widget, error) {
	widgets, err := s.store.ListUserWidgets(ctx)
	if err != nil {
		return nil, svcerrors.Internal("user widget listing failed", err)
	}
	return widgets, nil
}

// Delete removes the widget.
func (s *UserService) Delete(ctx context.Context, id string) error {
	err := s.store.DeleteUserWidget(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return svcerrors.NotFound("user widget " + id + " not found")
	}
	if err != nil {
		return svcerrors.Internal("user widget deletion failed", err)
	}
	s.log.WithField("widget_id", id).Info("user widget deleted")
	return nil
}

// Refresh regenerates the artifact from the stored prompt while asking the
// renderer to keep the current visual style.
func (s *UserService) Refresh(ctx context.Context, id string) (string, error) {
	return s.regenerate(ctx, id, true)
}

// FullRefresh regenerates from the stored prompt with no style carry-over.
func (s *UserService) FullRefresh(ctx context.Context, id string) (string, error) {
	return s.regenerate(ctx, id, false)
}

func (s *UserService) regenerate(ctx context.Context, id string, preserveStyle bool) (string, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}

	prompt := existing.Prompt
	previousMarkup := ""
	if preserveStyle {
		prompt = stylePreservationPrompt(existing.Prompt, existing.Markup)
		previousMarkup = existing.Markup
	}

	markup, err := s.render(ctx, id, nil, prompt, previousMarkup)
	if err != nil {
		return "", err
	}

	next := existing
	next.Markup = markup
	if _, err := s.write(ctx, next); err != nil {
		return "", err
	}
	return markup, nil
}

func (s *UserService) write(ctx context.Context, w userwidget.Widget) (userwidget.Widget, error) {
	l := s.lockFor(w.ID)
	l.Lock()
	defer l.Unlock()

	updated, err := s.store.UpdateUserWidget(ctx, w)
	if errors.Is(err, storage.ErrNotFound) {
		return userwidget.Widget{}, svcerrors.NotFound("user widget " + w.ID + " not found")
	}
	if err != nil {
		return userwidget.Widget{}, svcerrors.Internal("user widget write failed", err)
	}
	s.log.WithField("widget_id", w.ID).Info("user widget updated")
	return updated, nil
}

func validateUserWidget(title, prompt string) (string, string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", "", svcerrors.InvalidPayload("prompt is required")
	}
	if len(prompt) > MaxPromptBytes {
		return "", "", svcerrors.InvalidPayload(fmt.Sprintf("prompt exceeds %d bytes", MaxPromptBytes))
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = defaultUserWidgetTitle
	}
	if len(title) > MaxTitleBytes {
		return "", "", svcerrors.InvalidPayload(fmt.Sprintf("title exceeds %d bytes", MaxTitleBytes))
	}
	return title, prompt, nil
}

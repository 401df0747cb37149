// Package compose assembles the dashboard page from placement output and
// cached artifacts. It is purely read-side; nothing here ever triggers
// synthesis.
package compose

import (
	"context"
	"html/template"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mosaicboard/mosaic/internal/app/domain/tenant"
	"github.com/mosaicboard/mosaic/internal/app/domain/widget"
	"github.com/mosaicboard/mosaic/internal/app/layout"
	"github.com/mosaicboard/mosaic/internal/app/services/registry"
	"github.com/mosaicboard/mosaic/internal/app/services/widgets"
	"github.com/mosaicboard/mosaic/pkg/logger"
)

// readConcurrency bounds parallel artifact reads per page load.
const readConcurrency = 8

// PageWidget is one placed widget ready for template embedding. Markup is
// template.HTML because it was sanitized before storage; the sanitizer is the
// trust boundary, not the template. RefreshPath is the endpoint the browser
// polls for this cell's cached markup.
type PageWidget struct {
	ID          string
	DisplayName string
	Markup      template.HTML
	RefreshPath string
	Column      int
	Row         int
	Span        int
	GeneratedAt time.Time
}

// Page is the composed dashboard view.
type Page struct {
	Widgets         []PageWidget
	Columns         int
	RefreshInterval time.Duration
	GeneratedAt     time.Time
}

// Composer aggregates tenants, artifacts and placement into a Page.
type Composer struct {
	registry        *registry.Service
	widgets         *widgets.Service
	userWidgets     *widgets.UserService
	refreshInterval time.Duration
	log             *logger.Logger
}

// New constructs a composer. refreshInterval is handed to the page so the
// browser can poll the cheap refresh endpoint on a timer.
func New(reg *registry.Service, w *widgets.Service, uw *widgets.UserService, refreshInterval time.Duration, log *logger.Logger) *Composer {
	if log == nil {
		log = logger.NewDefault("compose")
	}
	if refreshInterval <= 0 {
		refreshInterval = 30 * time.Second
	}
	return &Composer{registry: reg, widgets: w, userWidgets: uw, refreshInterval: refreshInterval, log: log}
}

// Compose builds the dashboard page. Tenants without a cached artifact are
// omitted entirely; they get no grid slot.
func (c *Composer) Compose(ctx context.Context) (Page, error) {
	tenants, err := c.registry.List(ctx)
	if err != nil {
		return Page{}, err
	}

	type slot struct {
		tenant tenant.Tenant
		record widget.Record
		ok     bool
	}
	slots := make([]slot, len(tenants))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(readConcurrency)
	for i, t := range tenants {
		g.Go(func() error {
			rec, ok, err := c.widgets.GetCached(gctx, t.ID)
			if err != nil {
				return err
			}
			slots[i] = slot{tenant: t, record: rec, ok: ok}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Page{}, err
	}

	// App widgets come first (registration order), then user-created
	// widgets (creation order).
	var inputs []layout.Widget
	var cells []PageWidget
	for _, s := range slots {
		if !s.ok || !s.record.HasArtifact() {
			continue
		}
		inputs = append(inputs, layout.Widget{
			TenantID: s.tenant.ID,
			Span:     SpanFor(s.record.CachedMarkup),
		})
		cells = append(cells, PageWidget{
			ID:          s.tenant.ID,
			DisplayName: s.tenant.DisplayName,
			Markup:      template.HTML(s.record.CachedMarkup),
			RefreshPath: "/widget/" + s.tenant.ID + "/refresh",
			GeneratedAt: s.record.GeneratedAt,
		})
	}

	userWidgets, err := c.userWidgets.List(ctx)
	if err != nil {
		return Page{}, err
	}
	for _, w := range userWidgets {
		if w.Markup == "" {
			continue
		}
		inputs = append(inputs, layout.Widget{
			TenantID: w.ID,
			Span:     SpanFor(w.Markup),
		})
		cells = append(cells, PageWidget{
			ID:          w.ID,
			DisplayName: w.Title,
			Markup:      template.HTML(w.Markup),
			RefreshPath: "/api/widgets/" + w.ID,
			GeneratedAt: w.UpdatedAt,
		})
	}

	placements := layout.Compute(inputs)

	page := Page{
		Columns:         layout.Columns,
		RefreshInterval: c.refreshInterval,
		GeneratedAt:     time.Now().UTC(),
	}
	for i, p := range placements {
		cell := cells[i]
		cell.Column = p.Column
		cell.Row = p.Row
		cell.Span = p.Span
		page.Widgets = append(page.Widgets, cell)
	}
	return page, nil
}

// SpanFor derives a column span from artifact size. Buckets are coarse on
// purpose: the span must be stable across page loads for identical markup.
func SpanFor(markup string) int {
	switch n := len(markup); {
	case n < 1500:
		return 4
	case n < 4000:
		return 6
	case n < 10000:
		return 8
	default:
		return 12
	}
}

// Package httpapi exposes the mosaic core over HTTP. The transport stays a
// dumb dispatcher: decode, call into the application, map the error taxonomy
// to status codes.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	app "github.com/mosaicboard/mosaic/internal/app"
	"github.com/mosaicboard/mosaic/internal/app/domain/userwidget"
	"github.com/mosaicboard/mosaic/internal/app/metrics"
	"github.com/mosaicboard/mosaic/internal/app/services/widgets"
	svcerrors "github.com/mosaicboard/mosaic/internal/errors"
	"github.com/mosaicboard/mosaic/pkg/logger"
)

// maxBodyBytes caps request bodies before any decoding happens. Slightly above
// the payload and prompt caps so in-bound requests still reach the field-level
// validation and get its specific message.
const maxBodyBytes = widgets.MaxPayloadBytes + widgets.MaxPromptBytes + 8<<10

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app *app.Application
	log *logger.Logger
}

// NewHandler returns a mux exposing the dashboard API.
func NewHandler(application *app.Application) http.Handler {
	h := &handler{app: application, log: logger.NewDefault("httpapi")}
	mux := http.NewServeMux()
	mux.HandleFunc("/register", h.register)
	mux.HandleFunc("/share-data", h.shareData)
	mux.HandleFunc("/widget/", h.widgetRefresh)
	mux.HandleFunc("/api/app-widgets/", h.appWidgets)
	mux.HandleFunc("/api/widgets", h.userWidgetCollection)
	mux.HandleFunc("/api/widgets/", h.userWidgetItem)
	mux.HandleFunc("/healthz", h.healthz)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/", h.dashboard)
	return metrics.InstrumentHandler(mux)
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		RegistrationToken string `json:"registration_token"`
		AppName           string `json:"app_name"`
	}
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, svcerrors.InvalidPayload(err.Error()))
		return
	}
	if err := h.app.Auth.ValidateRegistration(payload.RegistrationToken); err != nil {
		writeError(w, err)
		return
	}
	created, err := h.app.Registry.Register(r.Context(), payload.AppName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"integration_token": created.IntegrationToken,
		"app_id":            created.ID,
	})
}

func (h *handler) shareData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		IntegrationToken string          `json:"integration_token"`
		Data             json.RawMessage `json:"data"`
		RenderPrompt     string          `json:"render_prompt"`
	}
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, svcerrors.InvalidPayload(err.Error()))
		return
	}
	tn, err := h.app.Auth.ValidateIntegration(r.Context(), payload.IntegrationToken)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.app.Widgets.Submit(r.Context(), tn, payload.Data, payload.RenderPrompt); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// widgetRefresh serves GET /widget/{app_id}/refresh: cached markup only,
// never a render invocation. The dashboard polls it on a timer, so it must
// stay cheap and side-effect-free.
func (h *handler) widgetRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/widget"), "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "refresh" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	appID := parts[0]

	if _, err := h.app.Registry.Resolve(r.Context(), appID); err != nil {
		writeError(w, err)
		return
	}
	rec, ok, err := h.app.Widgets.GetCached(r.Context(), appID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		writeError(w, svcerrors.NotFound("no widget artifact for app "+appID))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"html": rec.CachedMarkup})
}

func (h *handler) appWidgets(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/app-widgets"), "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	appID := parts[0]

	if len(parts) == 1 {
		if r.Method != http.MethodDelete {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if err := h.app.Registry.Delete(r.Context(), appID); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
		return
	}

	if len(parts) != 2 || r.Method != http.MethodPost {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if _, err := h.app.Registry.Resolve(r.Context(), appID); err != nil {
		writeError(w, err)
		return
	}

	var markup string
	var err error
	switch parts[1] {
	case "refresh":
		markup, err = h.app.Widgets.Refresh(r.Context(), appID)
	case "full-refresh":
		markup, err = h.app.Widgets.FullRefresh(r.Context(), appID)
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "html": markup})
}

type userWidgetResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Prompt    string `json:"prompt"`
	HTML      string `json:"html"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toUserWidgetResponse(w userwidget.Widget) userWidgetResponse {
	return userWidgetResponse{
		ID:        w.ID,
		Title:     w.Title,
		Prompt:    w.Prompt,
		HTML:      w.Markup,
		CreatedAt: w.CreatedAt.Format(time.RFC3339),
		UpdatedAt: w.UpdatedAt.Format(time.RFC3339),
	}
}

// userWidgetCollection serves /api/widgets: create from a prompt, list all.
func (h *handler) userWidgetCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var payload struct {
			Title  string `json:"title"`
			Prompt string `json:"prompt"`
		}
		if err := decodeJSON(w, r, &payload); err != nil {
			writeError(w, svcerrors.InvalidPayload(err.Error()))
			return
		}
		created, err := h.app.UserWidgets.Create(r.Context(), payload.Title, payload.Prompt)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toUserWidgetResponse(created))

	case http.MethodGet:
		widgets, err := h.app.UserWidgets.List(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]userWidgetResponse, 0, len(widgets))
		for _, uw := range widgets {
			out = append(out, toUserWidgetResponse(uw))
		}
		writeJSON(w, http.StatusOK, map[string]any{"widgets": out})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// userWidgetItem serves /api/widgets/{id} and its refresh actions. GET is
// cached-only, for the dashboard poll.
func (h *handler) userWidgetItem(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/widgets"), "/"), "/")
	if len(parts) == 0 || parts[0] == "" || len(parts) > 2 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	id := parts[0]

	if len(parts) == 2 {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var markup string
		var err error
		switch parts[1] {
		case "refresh":
			markup, err = h.app.UserWidgets.Refresh(r.Context(), id)
		case "full-refresh":
			markup, err = h.app.UserWidgets.FullRefresh(r.Context(), id)
		default:
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "html": markup})
		return
	}

	switch r.Method {
	case http.MethodGet:
		uw, err := h.app.UserWidgets.Get(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"html": uw.Markup})

	case http.MethodPut:
		var payload struct {
			Title  string `json:"title"`
			Prompt string `json:"prompt"`
		}
		if err := decodeJSON(w, r, &payload); err != nil {
			writeError(w, svcerrors.InvalidPayload(err.Error()))
			return
		}
		updated, err := h.app.UserWidgets.Update(r.Context(), id, payload.Title, payload.Prompt)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toUserWidgetResponse(updated))

	case http.MethodDelete:
		if err := h.app.UserWidgets.Delete(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Healthy(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *handler) dashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	page, err := h.app.Composer.Compose(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, page); err != nil {
		// Headers already sent; log and leave a marker in the response.
		h.log.WithError(err).Error("dashboard template render failed")
		fmt.Fprintf(w, "<!-- render error: %v -->", err)
	}
}

// decodeJSON decodes a bounded request body. The size cap runs before the
// decoder buffers anything, so oversized uploads are rejected without being
// read in full.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		}
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(svcerrors.StatusOf(err))
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": err.Error(),
		"code":  string(svcerrors.CodeOf(err)),
	})
}

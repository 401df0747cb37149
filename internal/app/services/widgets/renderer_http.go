package widgets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mosaicboard/mosaic/pkg/logger"
)

// HTTPRenderer delegates synthesis to an external render endpoint. The
// endpoint receives the data, instructions and optional previous markup and
// answers with the synthesized markup.
type HTTPRenderer struct {
	client   *http.Client
	endpoint *url.URL
	apiKey   string
	log      *logger.Logger
}

// NewHTTPRenderer constructs a renderer using the provided endpoint.
func NewHTTPRenderer(client *http.Client, endpoint, apiKey string, log *logger.Logger) (*HTTPRenderer, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("render endpoint required")
	}
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse render endpoint: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: DefaultRenderTimeout}
	}
	if log == nil {
		log = logger.NewDefault("http-renderer")
	}
	return &HTTPRenderer{
		client:   client,
		endpoint: parsed,
		apiKey:   strings.TrimSpace(apiKey),
		log:      log,
	}, nil
}

func (r *HTTPRenderer) Render(ctx context.Context, data json.RawMessage, prompt, previousMarkup string) (string, error) {
	body, err := json.Marshal(struct {
		Data           json.RawMessage `json:"data"`
		RenderPrompt   string          `json:"render_prompt"`
		PreviousMarkup string          `json:"previous_markup,omitempty"`
	}{Data: data, RenderPrompt: prompt, PreviousMarkup: previousMarkup})
	if err != nil {
		return "", fmt.Errorf("encode render request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build render request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	start := time.Now()
	resp, err := r.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("render request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("render endpoint status %d", resp.StatusCode)
	}

	var payload struct {
		Markup string `json:"markup"`
		Error  string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode render response: %w", err)
	}
	if payload.Error != "" {
		return "", fmt.Errorf("render endpoint error: %s", payload.Error)
	}
	if strings.TrimSpace(payload.Markup) == "" {
		return "", fmt.Errorf("render endpoint returned empty markup")
	}

	r.log.WithField("duration_ms", time.Since(start).Milliseconds()).Debug("render endpoint responded")
	return payload.Markup, nil
}

package widgets

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"sort"
)

// Renderer synthesizes widget markup from structured data and rendering
// instructions. previousMarkup, when non-empty, is the tenant's current
// artifact and lets the renderer preserve visual style across updates.
// Implementations may be slow (seconds); callers bound them with the context.
type Renderer interface {
	Render(ctx context.Context, data json.RawMessage, prompt, previousMarkup string) (string, error)
}

// StaticRenderer produces a deterministic local rendering of the submitted
// data. It backs development setups without a generative backend and keeps
// tests hermetic.
type StaticRenderer struct{}

func (StaticRenderer) Render(_ context.Context, data json.RawMessage, prompt, _ string) (string, error) {
	// Submissions carry any JSON value, not just objects; decode into the
	// generic form and render whatever shape arrives.
	var value any
	if len(data) > 0 {
		if err := json.Unmarshal(data, &value); err != nil {
			return "", fmt.Errorf("decode widget data: %w", err)
		}
	}

	out := `<style>.mosaic-static{font-family:system-ui;padding:16px;border-radius:8px;background:#1e293b;color:#e2e8f0}.mosaic-static dt{font-size:12px;opacity:.7}.mosaic-static dd{margin:0 0 8px;font-weight:600}.mosaic-static ol{margin:0;padding-left:20px}</style>`
	out += `<div class="mosaic-static">` + renderValue(value)
	out += `<p>` + html.EscapeString(prompt) + `</p></div>`
	return out, nil
}

func renderValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := "<dl>"
		for _, k := range keys {
			out += "<dt>" + html.EscapeString(k) + "</dt><dd>" + renderValue(val[k]) + "</dd>"
		}
		return out + "</dl>"
	case []any:
		out := "<ol>"
		for _, item := range val {
			out += "<li>" + renderValue(item) + "</li>"
		}
		return out + "</ol>"
	default:
		return html.EscapeString(fmt.Sprintf("%v", val))
	}
}

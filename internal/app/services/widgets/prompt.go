package widgets

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
)

// Instruction assembly for the rendering service. The widget must come back
// self-contained: scoped styles, no global selectors, no explanatory prose.

const renderRequirements = `
REQUIREMENTS:
- The widget should be visually appealing and match the rendering instructions
- Use modern CSS (flexbox/grid, responsive design)
- Ensure the widget is self-contained (all styles inline or in a <style> tag)
- Use semantic HTML and keep it accessible
- All CSS must be scoped to the widget content only; never style body, html or
  anything outside the widget
- Return ONLY the widget HTML, with no explanatory text before or after it`

const stylePreservationHeader = `
STYLE PRESERVATION:
The previous widget markup is included below. Keep the same colors, fonts,
spacing, layout structure and overall visual design; only the content should
reflect the new data.`

func buildInstruction(data json.RawMessage, prompt, previousMarkup string) string {
	var b strings.Builder
	b.WriteString("Generate a complete, production-ready dashboard widget.\n")

	if len(data) > 0 && string(data) != "null" {
		b.WriteString("\nDATA TO RENDER:\n")
		b.Write(indentJSON(data))
		b.WriteString("\n")
	}

	b.WriteString("\nRENDERING INSTRUCTIONS:\n")
	b.WriteString(prompt)
	b.WriteString("\n")
	b.WriteString(renderRequirements)

	if previousMarkup != "" {
		b.WriteString("\n")
		b.WriteString(stylePreservationHeader)
		b.WriteString("\n\nPREVIOUS WIDGET MARKUP:\n")
		b.WriteString(previousMarkup)
	}
	return b.String()
}

func indentJSON(raw json.RawMessage) []byte {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return raw
	}
	return buf.Bytes()
}

// stylePreservationPrompt builds the refresh instruction from a stored prompt
// and the current artifact's extracted <style> blocks.
func stylePreservationPrompt(originalPrompt, currentMarkup string) string {
	var b strings.Builder
	b.WriteString(originalPrompt)
	b.WriteString("\n\nPreserve the exact visual appearance of the current widget: same colors, fonts, spacing, borders and layout. Only regenerate the content.")
	if styles := styleBlockRe.FindAllStringSubmatch(currentMarkup, -1); len(styles) > 0 {
		b.WriteString("\n\nCURRENT WIDGET STYLES (reuse these):\n")
		for _, match := range styles {
			b.WriteString(strings.TrimSpace(match[1]))
			b.WriteString("\n")
		}
	}
	return b.String()
}

var (
	fencedHTMLRe = regexp.MustCompile("(?is)```(?:html)?\\s*(.*?)\\s*```")
	htmlTagRe    = regexp.MustCompile(`(?is)<html[^>]*>(.*?)</html>`)
	docChromeRe  = regexp.MustCompile(`(?i)<!DOCTYPE[^>]*>|</?html[^>]*>|</?head[^>]*>|</?body[^>]*>|<meta[^>]*>`)
	titleRe      = regexp.MustCompile(`(?is)<title[^>]*>.*?</title>`)
)

// extractMarkup pulls widget HTML out of a model response. Generative models
// wrap output in markdown fences or full documents more often than not; take
// the first fenced block, else the <html> body, else the raw text, and strip
// document chrome either way.
func extractMarkup(response string) string {
	candidate := strings.TrimSpace(response)
	if m := fencedHTMLRe.FindStringSubmatch(candidate); m != nil {
		candidate = m[1]
	} else if m := htmlTagRe.FindStringSubmatch(candidate); m != nil {
		candidate = m[1]
	}
	candidate = docChromeRe.ReplaceAllString(candidate, "")
	candidate = titleRe.ReplaceAllString(candidate, "")
	candidate = strings.TrimSpace(candidate)
	if !strings.Contains(candidate, "<") {
		return ""
	}
	return candidate
}

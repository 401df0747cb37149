package widgets

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer scrubs renderer output before it is persisted. The rendering
// service is an automated, non-deterministic process fed with third-party
// data; its output gets the same treatment as any untrusted user content.
type Sanitizer struct {
	policy *bluemonday.Policy
}

var (
	styleBlockRe = regexp.MustCompile(`(?is)<style[^>]*>(.*?)</style>`)

	// Constructs that make CSS execute or load remote content.
	cssDenyRe = regexp.MustCompile(`(?i)expression\s*\(|javascript\s*:|@import|behavior\s*:|-moz-binding`)
)

// cssProperties is the allow-list for inline style attributes. Layout and
// paint properties only; nothing that can execute or navigate.
var cssProperties = []string{
	"align-items", "align-self", "background", "background-color", "background-image",
	"border", "border-bottom", "border-color", "border-left", "border-radius",
	"border-right", "border-top", "box-shadow", "color", "display", "flex",
	"flex-direction", "flex-wrap", "font-family", "font-size", "font-style",
	"font-weight", "gap", "grid-column", "grid-row", "grid-template-columns",
	"grid-template-rows", "height", "justify-content", "letter-spacing",
	"line-height", "margin", "margin-bottom", "margin-left", "margin-right",
	"margin-top", "max-height", "max-width", "min-height", "min-width", "opacity",
	"overflow", "padding", "padding-bottom", "padding-left", "padding-right",
	"padding-top", "text-align", "text-decoration", "text-transform", "width",
}

// NewSanitizer builds the allow-list policy used for all renderer output.
func NewSanitizer() *Sanitizer {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class", "id").Globally()
	p.AllowStyles(cssProperties...).Globally()
	p.AllowElements("span", "section", "header", "footer", "figure", "figcaption")
	return &Sanitizer{policy: p}
}

// Sanitize strips active content from markup. Scoped <style> blocks are the
// widgets' styling vehicle, so they are carried through separately: a block
// survives only when it contains none of the denied CSS constructs, and the
// remaining HTML goes through the bluemonday allow-list.
func (s *Sanitizer) Sanitize(markup string) string {
	var styles []string
	for _, match := range styleBlockRe.FindAllStringSubmatch(markup, -1) {
		css := match[1]
		if cssDenyRe.MatchString(css) {
			continue
		}
		styles = append(styles, "<style>"+css+"</style>")
	}

	body := styleBlockRe.ReplaceAllString(markup, "")
	body = strings.TrimSpace(s.policy.Sanitize(body))
	if body == "" {
		return ""
	}
	return strings.Join(append(styles, body), "\n")
}

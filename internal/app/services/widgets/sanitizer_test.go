package widgets

import (
	"strings"
	"testing"
)

func TestSanitizeStripsActiveContent(t *testing.T) {
	s := NewSanitizer()

	cases := []struct {
		name    string
		in      string
		keep    []string
		dropped []string
	}{
		{
			name:    "script tag",
			in:      "<div>hello</div><script>alert(1)</script>",
			keep:    []string{"<div>hello</div>"},
			dropped: []string{"<script", "alert"},
		},
		{
			name:    "event handler",
			in:      `<button onclick="steal()">click</button>`,
			dropped: []string{"onclick", "steal"},
		},
		{
			name:    "javascript href",
			in:      `<a href="javascript:alert(1)">x</a>`,
			dropped: []string{"javascript:"},
		},
		{
			name:    "iframe",
			in:      `<div>ok</div><iframe src="https://evil.example"></iframe>`,
			keep:    []string{"<div>ok</div>"},
			dropped: []string{"<iframe"},
		},
		{
			name: "class and id survive",
			in:   `<div class="widget" id="w1">content</div>`,
			keep: []string{`class="widget"`, `id="w1"`},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := s.Sanitize(tc.in)
			for _, want := range tc.keep {
				if !strings.Contains(out, want) {
					t.Fatalf("expected %q in output, got %q", want, out)
				}
			}
			for _, bad := range tc.dropped {
				if strings.Contains(out, bad) {
					t.Fatalf("expected %q removed, got %q", bad, out)
				}
			}
		})
	}
}

func TestSanitizeKeepsScopedStyles(t *testing.T) {
	s := NewSanitizer()

	in := "<style>.weather { color: #247; padding: 8px; }</style><div class=\"weather\">72F</div>"
	out := s.Sanitize(in)
	if !strings.Contains(out, ".weather { color: #247; padding: 8px; }") {
		t.Fatalf("scoped style block must survive, got %q", out)
	}
	if !strings.Contains(out, `<div class="weather">72F</div>`) {
		t.Fatalf("body must survive, got %q", out)
	}
}

func TestSanitizeDropsMaliciousStyles(t *testing.T) {
	s := NewSanitizer()

	for _, css := range []string{
		".x { background: expression(alert(1)); }",
		".x { background: url(javascript:alert(1)); }",
		"@import url(https://evil.example/x.css);",
		".x { behavior: url(x.htc); }",
		".x { -moz-binding: url(x.xml); }",
	} {
		out := s.Sanitize("<style>" + css + "</style><div>body</div>")
		if strings.Contains(out, "<style>") {
			t.Fatalf("css %q: malicious style block must be dropped, got %q", css, out)
		}
		if !strings.Contains(out, "<div>body</div>") {
			t.Fatalf("css %q: body must still survive, got %q", css, out)
		}
	}
}

func TestSanitizeEmptyBody(t *testing.T) {
	s := NewSanitizer()

	if out := s.Sanitize("<script>alert(1)</script>"); out != "" {
		t.Fatalf("script-only input must sanitize to empty, got %q", out)
	}
	if out := s.Sanitize(""); out != "" {
		t.Fatalf("empty input must stay empty, got %q", out)
	}
}

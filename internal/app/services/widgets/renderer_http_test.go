package widgets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTTPRendererRender(t *testing.T) {
	var gotAuth string
	var gotBody struct {
		Data           json.RawMessage `json:"data"`
		RenderPrompt   string          `json:"render_prompt"`
		PreviousMarkup string          `json:"previous_markup"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"markup": "<div>rendered</div>"})
	}))
	defer srv.Close()

	r, err := NewHTTPRenderer(srv.Client(), srv.URL, "secret-key", nil)
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}

	markup, err := r.Render(context.Background(), json.RawMessage(`{"k":1}`), "make it", "<p>old</p>")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if markup != "<div>rendered</div>" {
		t.Fatalf("unexpected markup %q", markup)
	}
	if gotAuth != "Bearer secret-key" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if string(gotBody.Data) != `{"k":1}` || gotBody.RenderPrompt != "make it" || gotBody.PreviousMarkup != "<p>old</p>" {
		t.Fatalf("unexpected request body %+v", gotBody)
	}
}

func TestHTTPRendererErrors(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"endpoint error field", http.StatusOK, `{"error":"quota exceeded"}`, "quota exceeded"},
		{"empty markup", http.StatusOK, `{"markup":"  "}`, "empty markup"},
		{"non-200", http.StatusBadGateway, `upstream down`, "status 502"},
		{"malformed json", http.StatusOK, `{not json`, "decode"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			r, err := NewHTTPRenderer(srv.Client(), srv.URL, "", nil)
			if err != nil {
				t.Fatalf("new renderer: %v", err)
			}
			_, err = r.Render(context.Background(), json.RawMessage(`{}`), "p", "")
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestNewHTTPRendererValidation(t *testing.T) {
	if _, err := NewHTTPRenderer(nil, "", "", nil); err == nil {
		t.Fatal("expected error for empty endpoint")
	}
	if _, err := NewHTTPRenderer(nil, "   ", "", nil); err == nil {
		t.Fatal("expected error for blank endpoint")
	}
}

func TestStaticRendererNonObjectData(t *testing.T) {
	r := &StaticRenderer{}
	ctx := context.Background()

	cases := []struct {
		name string
		data string
		want []string
	}{
		{"array", `[1,2,3]`, []string{"<ol>", "<li>1</li>", "<li>3</li>"}},
		{"string", `"just text"`, []string{"just text"}},
		{"number", `42`, []string{"42"}},
		{"nested", `{"items":["a","b"],"title":"t"}`, []string{"<dt>items</dt>", "<li>a</li>", "<dt>title</dt>", "<dd>t</dd>"}},
		{"null", `null`, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := r.Render(ctx, json.RawMessage(tc.data), "p", "")
			if err != nil {
				t.Fatalf("render %s: %v", tc.data, err)
			}
			for _, want := range tc.want {
				if !strings.Contains(out, want) {
					t.Fatalf("data %s: expected %q in %q", tc.data, want, out)
				}
			}
		})
	}
}

func TestStaticRendererDeterministic(t *testing.T) {
	r := &StaticRenderer{}
	data := json.RawMessage(`{"b":2,"a":1}`)

	first, err := r.Render(context.Background(), data, "p", "")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	second, err := r.Render(context.Background(), data, "p", "")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if first != second {
		t.Fatal("static renderer must be deterministic")
	}
	if !strings.Contains(first, "a") || !strings.Contains(first, "b") {
		t.Fatalf("expected both keys in markup: %q", first)
	}
}

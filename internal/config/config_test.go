package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MOSAIC_REGISTRATION_TOKEN", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("default port: %d", cfg.Server.Port)
	}
	if cfg.Store.Driver != "memory" {
		t.Fatalf("default store driver: %q", cfg.Store.Driver)
	}
	if cfg.Renderer.Backend != "static" {
		t.Fatalf("default renderer: %q", cfg.Renderer.Backend)
	}
	if cfg.Renderer.Timeout != 45*time.Second {
		t.Fatalf("default render timeout: %v", cfg.Renderer.Timeout)
	}
	if cfg.Dashboard.RefreshInterval != 30*time.Second {
		t.Fatalf("default refresh interval: %v", cfg.Dashboard.RefreshInterval)
	}
}

func TestLoadRequiresRegistrationToken(t *testing.T) {
	t.Setenv("MOSAIC_REGISTRATION_TOKEN", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error without registration token")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown store driver", "MOSAIC_STORE_DRIVER", "mongo"},
		{"unknown renderer", "MOSAIC_RENDERER", "dalle"},
		{"timeout too short", "MOSAIC_RENDER_TIMEOUT", "10ms"},
		{"timeout too long", "MOSAIC_RENDER_TIMEOUT", "1h"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("MOSAIC_REGISTRATION_TOKEN", "secret")
			t.Setenv(tc.key, tc.value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", tc.key, tc.value)
			}
		})
	}
}

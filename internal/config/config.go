// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Config is the full process configuration. A .env file is honored for local
// development; real deployments set the environment directly.
type Config struct {
	Server struct {
		Host string `env:"MOSAIC_HOST,default=0.0.0.0"`
		Port int    `env:"MOSAIC_PORT,default=8080"`
	}

	// RegistrationToken is the shared secret gating app onboarding. No
	// default: an unset value must fail loudly, not fall back to something
	// guessable.
	RegistrationToken string `env:"MOSAIC_REGISTRATION_TOKEN"`

	Store struct {
		// Driver selects the persistence backend: memory, postgres or redis.
		Driver      string `env:"MOSAIC_STORE_DRIVER,default=memory"`
		PostgresDSN string `env:"MOSAIC_POSTGRES_DSN"`
		RedisAddr   string `env:"MOSAIC_REDIS_ADDR"`
	}

	Renderer struct {
		// Backend selects the rendering service: gemini, http or static.
		Backend      string        `env:"MOSAIC_RENDERER,default=static"`
		GeminiAPIKey string        `env:"MOSAIC_GEMINI_API_KEY"`
		GeminiModel  string        `env:"MOSAIC_GEMINI_MODEL"`
		Endpoint     string        `env:"MOSAIC_RENDER_ENDPOINT"`
		EndpointKey  string        `env:"MOSAIC_RENDER_ENDPOINT_KEY"`
		Timeout      time.Duration `env:"MOSAIC_RENDER_TIMEOUT,default=45s"`
	}

	Dashboard struct {
		RefreshInterval time.Duration `env:"MOSAIC_WIDGET_REFRESH_INTERVAL,default=30s"`
	}

	RateLimit struct {
		RequestsPerSecond int `env:"MOSAIC_RATE_LIMIT_RPS,default=20"`
		Burst             int `env:"MOSAIC_RATE_LIMIT_BURST,default=40"`
	}

	Logging struct {
		Level  string `env:"MOSAIC_LOG_LEVEL,default=info"`
		Format string `env:"MOSAIC_LOG_FORMAT,default=json"`
	}
}

// Load reads configuration from the environment, honoring a .env file when
// present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode environment: %w", err)
	}

	if cfg.RegistrationToken == "" {
		return nil, fmt.Errorf("MOSAIC_REGISTRATION_TOKEN is required")
	}
	if cfg.Renderer.Timeout < time.Second || cfg.Renderer.Timeout > 2*time.Minute {
		return nil, fmt.Errorf("MOSAIC_RENDER_TIMEOUT must be between 1s and 2m")
	}
	switch cfg.Store.Driver {
	case "memory", "postgres", "redis":
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	switch cfg.Renderer.Backend {
	case "static", "gemini", "http":
	default:
		return nil, fmt.Errorf("unknown renderer backend %q", cfg.Renderer.Backend)
	}
	return &cfg, nil
}

// Command server runs the mosaic dashboard: token-gated app onboarding, the
// render/cache pipeline and the composed widget grid.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	app "github.com/mosaicboard/mosaic/internal/app"
	"github.com/mosaicboard/mosaic/internal/app/httpapi"
	"github.com/mosaicboard/mosaic/internal/app/services/widgets"
	"github.com/mosaicboard/mosaic/internal/app/storage/postgres"
	redisstore "github.com/mosaicboard/mosaic/internal/app/storage/redis"
	"github.com/mosaicboard/mosaic/internal/config"
	"github.com/mosaicboard/mosaic/internal/middleware"
	"github.com/mosaicboard/mosaic/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.LoggingConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}).WithField("component", "server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, cleanup, err := buildStores(ctx, cfg)
	if err != nil {
		log.Fatalf("configure stores: %v", err)
	}
	defer cleanup()

	renderer, err := buildRenderer(ctx, cfg, log)
	if err != nil {
		log.Fatalf("configure renderer: %v", err)
	}

	application, err := app.New(stores, app.Options{
		RegistrationToken: cfg.RegistrationToken,
		Renderer:          renderer,
		RenderTimeout:     cfg.Renderer.Timeout,
		RefreshInterval:   cfg.Dashboard.RefreshInterval,
	}, log)
	if err != nil {
		log.Fatalf("configure application: %v", err)
	}

	handler := httpapi.NewHandler(application)
	handler = middleware.NewCORSMiddleware([]string{"*"}).Handler(handler)
	handler = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, log).Handler(handler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("listening on %s (store=%s renderer=%s)", addr, cfg.Store.Driver, cfg.Renderer.Backend)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		log.WithError(err).Error("server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("shutdown incomplete")
	}
}

func buildStores(ctx context.Context, cfg *config.Config) (app.Stores, func(), error) {
	switch cfg.Store.Driver {
	case "postgres":
		if cfg.Store.PostgresDSN == "" {
			return app.Stores{}, nil, fmt.Errorf("MOSAIC_POSTGRES_DSN is required for the postgres driver")
		}
		db, err := sql.Open("postgres", cfg.Store.PostgresDSN)
		if err != nil {
			return app.Stores{}, nil, err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			db.Close()
			return app.Stores{}, nil, err
		}
		store := postgres.New(db)
		if err := store.Bootstrap(ctx); err != nil {
			db.Close()
			return app.Stores{}, nil, fmt.Errorf("bootstrap schema: %w", err)
		}
		return app.Stores{Tenants: store, Widgets: store, UserWidgets: store, Health: store}, func() { db.Close() }, nil

	case "redis":
		if cfg.Store.RedisAddr == "" {
			return app.Stores{}, nil, fmt.Errorf("MOSAIC_REDIS_ADDR is required for the redis driver")
		}
		client := redis.NewClient(&redis.Options{Addr: cfg.Store.RedisAddr})
		store := redisstore.New(client)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			client.Close()
			return app.Stores{}, nil, err
		}
		return app.Stores{Tenants: store, Widgets: store, UserWidgets: store, Health: store}, func() { client.Close() }, nil

	default:
		return app.Stores{}, func() {}, nil
	}
}

func buildRenderer(ctx context.Context, cfg *config.Config, log *logger.Logger) (widgets.Renderer, error) {
	switch cfg.Renderer.Backend {
	case "gemini":
		return widgets.NewGeminiRenderer(ctx, cfg.Renderer.GeminiAPIKey, cfg.Renderer.GeminiModel, log.WithField("component", "renderer"))
	case "http":
		client := &http.Client{Timeout: cfg.Renderer.Timeout}
		return widgets.NewHTTPRenderer(client, cfg.Renderer.Endpoint, cfg.Renderer.EndpointKey, log.WithField("component", "renderer"))
	default:
		log.Warn("static renderer configured; widgets will not use a generative backend")
		return widgets.StaticRenderer{}, nil
	}
}

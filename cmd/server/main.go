// Package main is the entrypoint for the tarot reader API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/tarotlab/tarot-reader/internal/ai"
	"github.com/tarotlab/tarot-reader/internal/api"
	"github.com/tarotlab/tarot-reader/internal/api/handler"
	mw "github.com/tarotlab/tarot-reader/internal/api/middleware"
	"github.com/tarotlab/tarot-reader/internal/api/response"
	"github.com/tarotlab/tarot-reader/internal/cache"
	"github.com/tarotlab/tarot-reader/internal/config"
	"github.com/tarotlab/tarot-reader/internal/jobs"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.SetDefault(newLogger(cfg.Log))
	slog.Info("config loaded", "ai_provider", cfg.AI.Provider, "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Create the usage/rate-limit cache; without REDIS_URL the server runs
	// with both disabled
	var sideCache cache.Cache = cache.Noop{}
	if cfg.Redis.URL != "" {
		redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("create redis cache: %w", err)
		}
		defer redisCache.Close()

		if err := redisCache.Ping(ctx); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		slog.Info("redis connected")
		sideCache = redisCache
	}

	// 3. Create the interpretation provider
	provider, err := ai.NewProvider(cfg.AI)
	if err != nil {
		return fmt.Errorf("create AI provider: %w", err)
	}
	slog.Info("interpretation provider initialized", "provider", provider.Name())

	// 4. Create the job store and lifecycle service
	store := jobs.NewMemoryStore(cfg.Jobs.Retention, cfg.Jobs.SweepInterval)
	defer store.Close()

	svc := jobs.NewService(store, provider, sideCache, cfg.AI.RequestTimeout)

	// 5. Build router with dependencies
	deps := api.Dependencies{
		RateLimit: mw.NewRateLimit(sideCache, cfg.Server.RateLimitPerMin),

		HealthHandler:    healthHandler(sideCache),
		InterpretHandler: handler.NewInterpretHandler(svc),
		JobStatusHandler: handler.NewJobStatusHandler(svc),
	}

	router := api.NewRouter(deps)

	// 6. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// newLogger builds the default slog logger: JSON in deployments, tint console
// output for local development.
func newLogger(cfg config.LogConfig) *slog.Logger {
	level := parseLevel(cfg.Level)

	if cfg.Format == "console" {
		return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.TimeOnly,
		}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// healthHandler reports liveness and cache connectivity. It also serves as the
// keep-alive target that pings the service out of serverless cold sleep.
func healthHandler(c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"cache": "ok",
		}

		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}

		if checks["cache"] != "ok" {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}

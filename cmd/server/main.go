// Package main is the entrypoint for the Omnishop visualization server.
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

	"github.com/sahityapandiri3/omnishop/internal/api"
	"github.com/sahityapandiri3/omnishop/internal/api/handler"
	mw "github.com/sahityapandiri3/omnishop/internal/api/middleware"
	"github.com/sahityapandiri3/omnishop/internal/api/response"
	"github.com/sahityapandiri3/omnishop/internal/cache"
	"github.com/sahityapandiri3/omnishop/internal/catalog"
	"github.com/sahityapandiri3/omnishop/internal/config"
	"github.com/sahityapandiri3/omnishop/internal/imagegen"
	"github.com/sahityapandiri3/omnishop/internal/render"
	"github.com/sahityapandiri3/omnishop/internal/store"
	"github.com/sahityapandiri3/omnishop/internal/visualization"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

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
	slog.Info("config loaded", "image_provider", cfg.ImageGen.Provider, "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Create image provider
	provider, err := imagegen.NewProvider(cfg.ImageGen)
	if err != nil {
		return fmt.Errorf("create image provider: %w", err)
	}
	slog.Info("image provider initialized", "provider", provider.Name())

	// 6. Create store, catalog, render engine and visualization service
	pgStore := store.NewPostgresStore(pool)
	cat := catalog.New(pgStore)

	engine := render.NewEngine(pgStore, redisCache, provider, cfg.Render, slog.Default())
	engine.Start(ctx)
	slog.Info("render engine started",
		"max_retries", cfg.Render.MaxRetries,
		"max_concurrent", cfg.Render.MaxConcurrent,
		"job_retention", cfg.Render.JobRetention)

	sessions := visualization.NewService(pgStore, cat, engine, slog.Default())

	// 7. Build router with dependencies
	auth := mw.NewAuth(pgStore)
	rateLimit := mw.NewRateLimit(redisCache, cfg.Server.RequestsPerMin)

	deps := api.Dependencies{
		Auth:      auth,
		RateLimit: rateLimit,

		HealthHandler: healthHandler(pgStore, redisCache),

		CreateSessionHandler:    handler.NewCreateSessionHandler(sessions),
		GetSessionHandler:       handler.NewGetSessionHandler(sessions),
		RemoveFurnitureHandler:  handler.NewRemoveFurnitureHandler(sessions),
		AddProductHandler:       handler.NewAddProductHandler(sessions),
		TransformProductHandler: handler.NewTransformProductHandler(sessions),
		RemoveProductHandler:    handler.NewRemoveProductHandler(sessions),
		ReplaceProductHandler:   handler.NewReplaceProductHandler(sessions),
		UndoHandler:             handler.NewUndoHandler(sessions),
		RedoHandler:             handler.NewRedoHandler(sessions),

		PollJobHandler: handler.NewPollJobHandler(engine),

		ListProductsHandler: handler.NewListProductsHandler(cat),
		GetProductHandler:   handler.NewGetProductHandler(cat),

		CreateKeyHandler: handler.NewCreateKeyHandler(pgStore),
		ListKeysHandler:  handler.NewListKeysHandler(pgStore),
		RevokeKeyHandler: handler.NewRevokeKeyHandler(pgStore),
	}

	router := api.NewRouter(deps)

	// 8. Start HTTP server
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

// healthHandler checks database and cache connectivity.
func healthHandler(s store.Store, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}

		if err := s.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}

		if checks["database"] != "ok" || checks["cache"] != "ok" {
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

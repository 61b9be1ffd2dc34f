// Package main is the entrypoint for the jobstore API server.
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

	"github.com/jobcopilot/jobstore/internal/api"
	"github.com/jobcopilot/jobstore/internal/api/handler"
	"github.com/jobcopilot/jobstore/internal/api/response"
	"github.com/jobcopilot/jobstore/internal/backend/local"
	"github.com/jobcopilot/jobstore/internal/backend/remote"
	"github.com/jobcopilot/jobstore/internal/cache"
	"github.com/jobcopilot/jobstore/internal/config"
	"github.com/jobcopilot/jobstore/internal/store"
)

const (
	shutdownTimeout = 30 * time.Second
	remoteTimeout   = 15 * time.Second
)

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
	slog.Info("config loaded", "backend", cfg.Backend.Mode, "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Open the local store (always present: it is the fallback copy
	// even in remote mode)
	localStore, err := local.Open(cfg.Backend.DBPath)
	if err != nil {
		return fmt.Errorf("open local store: %w", err)
	}
	defer localStore.Close()
	slog.Info("local store opened", "path", cfg.Backend.DBPath)

	// 3. Remote client, only in remote mode
	var remoteStore *remote.Client
	if cfg.Backend.Mode == config.BackendRemote {
		remoteStore = remote.New(cfg.Backend.APIURL, remoteTimeout)
		slog.Info("remote store configured", "url", cfg.Backend.APIURL)
	}

	// 4. Cache per config
	recordCache, err := newCache(cfg.Cache)
	if err != nil {
		return fmt.Errorf("create cache: %w", err)
	}

	// 5. Facade: backend selection (including the remote health probe)
	// runs in the background; operations block until it completes.
	st := newStore(localStore, remoteStore, recordCache, cfg)
	defer st.Close()

	// 6. Router with dependencies
	deps := api.Dependencies{
		HealthHandler: healthHandler(st, recordCache),
		CreateRecord:  handler.NewCreateHandler(st),
		ListRecords:   handler.NewListHandler(st),
		GetRecord:     handler.NewGetHandler(st),
		UpdateRecord:  handler.NewUpdateHandler(st),
		DeleteRecord:  handler.NewDeleteHandler(st),
		BatchCreate:   handler.NewBatchCreateHandler(st),
		RecordStats:   handler.NewStatsHandler(st),
		ExportRecords: handler.NewExportHandler(st),
	}
	router := api.NewRouter(deps)

	// 7. Start HTTP server
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

func newStore(localStore *local.Store, remoteStore *remote.Client, c cache.Cache, cfg *config.Config) *store.Store {
	opts := store.Options{
		CacheTTL:      cfg.Cache.TTL,
		StatsCacheTTL: cfg.Cache.StatsTTL,
		HealthTimeout: cfg.Backend.HealthTimeout,
	}
	if remoteStore == nil {
		return store.New(localStore, nil, c, opts)
	}
	return store.New(localStore, remoteStore, c, opts)
}

func newCache(cfg config.CacheConfig) (cache.Cache, error) {
	if !cfg.Enabled {
		slog.Info("caching disabled")
		return cache.NewNoop(), nil
	}

	switch cfg.Driver {
	case config.CacheRedis:
		c, err := cache.NewRedis(cfg.RedisURL, cfg.TTL)
		if err != nil {
			return nil, err
		}
		slog.Info("redis cache configured")
		return c, nil
	default:
		slog.Info("in-memory cache configured", "default_ttl", cfg.TTL)
		return cache.NewMemory(cfg.TTL), nil
	}
}

// healthHandler reports the selected backend mode and cache connectivity.
func healthHandler(st *store.Store, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mode, err := st.Mode(r.Context())
		if err != nil {
			response.Error(w, http.StatusServiceUnavailable, "NOT_READY",
				"Backend selection has not completed", nil)
			return
		}

		cacheStatus := "ok"
		if err := c.Ping(r.Context()); err != nil {
			cacheStatus = "degraded"
		}

		response.JSON(w, map[string]any{
			"status":  "ok",
			"backend": mode,
			"cache":   cacheStatus,
		})
	}
}

// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starkell/halsa/internal/analysis"
	"github.com/starkell/halsa/internal/api"
	"github.com/starkell/halsa/internal/mcpserver"
	"github.com/starkell/halsa/internal/medium"
	"github.com/starkell/halsa/internal/sse"
	"github.com/starkell/halsa/internal/store"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Structured JSON logger. In MCP mode stdout carries the protocol, so
	// logs go to stderr.
	logOut := os.Stdout
	if app.mcp {
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("storage_backend", cfg.Storage.Backend),
		slog.String("storage_path", cfg.Storage.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Open the persistence medium.
	med, recordPath, err := openMedium(cfg)
	if err != nil {
		return fmt.Errorf("init medium: %w", err)
	}
	defer med.Close()

	st := store.New(med, logger)

	// Analysis provider. A missing key degrades to an unconfigured provider
	// so the journal itself stays usable.
	var provider analysis.Provider
	if cfg.Analysis.APIKey == "" {
		logger.Warn("analysis API key not configured; analysis requests will fail until one is set")
		provider = analysis.Unconfigured{}
	} else {
		provider, err = analysis.NewLLMProvider(cfg.Analysis.BaseURL, cfg.Analysis.Model, cfg.Analysis.APIKey)
		if err != nil {
			return fmt.Errorf("init analysis provider: %w", err)
		}
	}

	orch := analysis.New(st, provider, logger)

	// MCP stdio mode replaces the HTTP server entirely.
	if app.mcp {
		logger.Info("Starting MCP server on stdio")
		return mcpserver.New(st, orch).ServeStdio()
	}

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	// Build API router.
	apiRouter := api.NewRouter(st, orch, broker, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the journal document for external modification (file backend
	// only; the SQLite backend has no single document to observe).
	if recordPath != "" {
		g.Go(func() error {
			err := store.Watch(gCtx, recordPath, logger, func() {
				orch.Reload()
				broker.Publish(sse.Event{Type: "storage.changed", Data: map[string]string{}})
			})
			if err != nil {
				logger.Warn("watcher failed", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// openMedium builds the configured persistence medium. For the file backend
// it also returns the absolute path of the journal document so it can be
// watched.
func openMedium(cfg *Config) (medium.Medium, string, error) {
	switch cfg.Storage.Backend {
	case StorageBackendSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0o755); err != nil {
			return nil, "", fmt.Errorf("create storage dir: %w", err)
		}
		med, err := medium.OpenSQLite(cfg.Storage.Path)
		if err != nil {
			return nil, "", err
		}
		return med, "", nil
	default:
		if err := os.MkdirAll(cfg.Storage.Path, 0o755); err != nil {
			return nil, "", fmt.Errorf("create storage dir: %w", err)
		}
		med, err := medium.NewFile(cfg.Storage.Path)
		if err != nil {
			return nil, "", err
		}
		recordPath, err := med.Path(store.RecordKey)
		if err != nil {
			return nil, "", err
		}
		return med, recordPath, nil
	}
}

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
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/jera/internal/api"
	"github.com/starford/jera/internal/linker"
	"github.com/starford/jera/internal/mcpserver"
	"github.com/starford/jera/internal/sse"
	"github.com/starford/jera/internal/storage"
	"github.com/starford/jera/internal/watch"
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

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("daily_format", cfg.Daily.Format),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure vault directory exists.
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return fmt.Errorf("create vault dir: %w", err)
	}

	// Initialize storage.
	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	// Build the linker service.
	svc, err := linker.NewService(store, cfg.LinkerConfig(), logger)
	if err != nil {
		return fmt.Errorf("init linker: %w", err)
	}

	// SSE broker, fed by every persisted link change.
	broker := sse.NewBroker()
	defer broker.Close()
	svc.SetNotifier(broker.PublishLinkEvent)

	// Bring existing notes up to date before watching.
	if sum, err := svc.BackfillAll(ctx, false); err != nil {
		logger.Warn("initial backfill failed", slog.String("error", err.Error()))
	} else {
		broker.PublishRunCompleted(sum)
	}

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, http.HandlerFunc(broker.ServeHTTP))

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

	// Start file watcher.
	g.Go(func() error {
		debounce := time.Duration(cfg.Watch.DebounceMs) * time.Millisecond
		return watch.Watch(gCtx, svc, cfg.Vault.Path, debounce, logger)
	})

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

// Backfill runs a single full-vault pass and exits.
func Backfill(ctx context.Context, cfg *Config, verbose bool) error {
	logger := newLogger(cfg)

	svc, err := newService(cfg, logger)
	if err != nil {
		return err
	}
	_, err = svc.BackfillAll(ctx, verbose)
	return err
}

// Process links a single note and exits.
func Process(ctx context.Context, cfg *Config, notePath string) error {
	logger := newLogger(cfg)

	svc, err := newService(cfg, logger)
	if err != nil {
		return err
	}
	changed, err := svc.ProcessOne(ctx, notePath)
	if err != nil {
		return err
	}
	logger.Info("note processed",
		slog.String("path", notePath),
		slog.Bool("changed", changed))
	return nil
}

// ServeMCP runs the MCP server on stdin/stdout until EOF.
func ServeMCP(cfg *Config) error {
	// Logs go to stderr so stdout stays clean for the MCP transport.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))

	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	svc, err := linker.NewService(store, cfg.LinkerConfig(), logger)
	if err != nil {
		return fmt.Errorf("init linker: %w", err)
	}
	return mcpserver.New(svc, store).ServeStdio()
}

func newLogger(cfg *Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
}

func newService(cfg *Config, logger *slog.Logger) (*linker.Service, error) {
	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	svc, err := linker.NewService(store, cfg.LinkerConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("init linker: %w", err)
	}
	return svc, nil
}

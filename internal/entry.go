// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/suntyn/sitegen/internal/api"
	"github.com/suntyn/sitegen/internal/apperr"
	"github.com/suntyn/sitegen/internal/assetservice"
	"github.com/suntyn/sitegen/internal/catalog"
	"github.com/suntyn/sitegen/internal/history"
	"github.com/suntyn/sitegen/internal/mcpserver"
	"github.com/suntyn/sitegen/internal/metrics"
	"github.com/suntyn/sitegen/internal/publisher"
	"github.com/suntyn/sitegen/internal/scheduler"
	"github.com/suntyn/sitegen/internal/sitemap"
	"github.com/suntyn/sitegen/internal/sse"
	"github.com/suntyn/sitegen/internal/storage"
	"github.com/suntyn/sitegen/internal/watcher"
)

// components are the long-lived pieces shared by the HTTP and MCP modes.
type components struct {
	db      *history.DB
	store   storage.Provider
	pub     *publisher.Publisher
	svc     *assetservice.Service
	catalog *catalog.Catalog
}

func (c *components) Close() error {
	return c.db.Close()
}

func newApp(opts []Option) (*application, error) {
	app := &application{logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func newLogger(cfg *Config, w io.Writer) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// build opens storage and history and wires the publisher. notifier may be
// nil.
func build(cfg *Config, logger *slog.Logger, notifier publisher.Notifier) (*components, error) {
	routes := catalog.Default()
	if err := routes.Validate(); err != nil {
		return nil, fmt.Errorf("route catalog: %w", err)
	}

	store, err := storage.NewFS(cfg.Site.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := history.Open(cfg.History.Path)
	if err != nil {
		return nil, fmt.Errorf("init history: %w", err)
	}

	opts := []publisher.Option{
		publisher.WithRecorder(db),
		publisher.WithLogger(logger),
	}
	if notifier != nil {
		opts = append(opts, publisher.WithNotifier(notifier))
	}
	pub := publisher.New(sitemap.NewBuilder(cfg.Site.BaseURL, routes), store, opts...)

	return &components{
		db:      db,
		store:   store,
		pub:     pub,
		svc:     assetservice.NewService(pub, store, routes, db),
		catalog: routes,
	}, nil
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApp(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := newLogger(cfg, app.logOutput)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("base_url", cfg.Site.BaseURL),
		slog.String("output_dir", cfg.Site.OutputDir),
		slog.String("history_path", cfg.History.Path),
		slog.Bool("watcher", cfg.Watcher.Enabled),
		slog.Bool("refresh", cfg.Refresh.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker.
	broker := sse.NewBroker()
	defer broker.Close()

	c, err := build(cfg, logger, broker)
	if err != nil {
		return err
	}
	defer c.Close()

	metrics.Init(c.db)

	logger.Info("Route catalog loaded",
		slog.Int("static", len(c.catalog.Static())),
		slog.Int("tools", len(c.catalog.Tools())))

	// Run initial generation.
	if _, err := c.pub.PublishAll(ctx, publisher.TriggerStartup); err != nil {
		logger.Warn("initial generation failed", slog.String("error", err.Error()))
	}

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           newRootRouter(cfg, c, broker),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher.
	if cfg.Watcher.Enabled {
		g.Go(func() error {
			err := watcher.Watch(gCtx, watcher.Options{
				Dirs:       cfg.Watcher.Dirs,
				Extensions: cfg.Watcher.Extensions,
				Debounce:   cfg.Watcher.Debounce,
			}, logger, onSourceChange(c.pub, logger))
			if err != nil {
				// The rest of the server keeps running without the watcher.
				logger.Error("watcher failed", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start scheduled refresh.
	if cfg.Refresh.Enabled {
		g.Go(func() error {
			scheduler.NewRefresher(c.pub, cfg.Refresh.Interval, logger).Start(gCtx)
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
		defer signal.Stop(quit)

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

		// Stops the watcher and scheduler.
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// passRunner is the part of the publisher the watcher callback needs.
type passRunner interface {
	PublishAll(ctx context.Context, trigger publisher.Trigger) (*publisher.Result, error)
}

// onSourceChange regenerates after a debounced burst of source edits. A
// burst that lands while another pass runs is dropped.
func onSourceChange(pub passRunner, logger *slog.Logger) func(context.Context) {
	return func(ctx context.Context) {
		_, err := pub.PublishAll(ctx, publisher.TriggerWatch)
		if errors.Is(err, apperr.ErrBusy) {
			logger.Debug("watcher: change dropped, generation already running")
		}
	}
}

// errShutdown cancels the errgroup context once the HTTP server is down.
var errShutdown = errors.New("shutdown")

func newRootRouter(cfg *Config, c *components, broker *sse.Broker) http.Handler {
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
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := c.db.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", metrics.Handler())

	// Crawler files at the site root (always public).
	api.NewArtifactHandler(c.svc).Mount(r)

	// Mount API routes under /api.
	r.Mount("/api", api.NewRouter(c.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker))

	return r
}

// RunMCP serves the MCP tools on stdin/stdout until the client disconnects.
// Logs go to stderr so they never mix with the protocol stream.
func RunMCP(_ context.Context, opts ...Option) error {
	app, err := newApp(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	logger := newLogger(app.config, app.logOutput)

	c, err := build(app.config, logger, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	logger.Info("MCP server starting on stdio", slog.String("output_dir", app.config.Site.OutputDir))
	return mcpserver.New(c.svc).ServeStdio()
}

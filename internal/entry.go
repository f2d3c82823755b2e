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

	"github.com/starford/linkmark/internal/api"
	"github.com/starford/linkmark/internal/extractor"
	"github.com/starford/linkmark/internal/index"
	"github.com/starford/linkmark/internal/linkservice"
	"github.com/starford/linkmark/internal/logfields"
	"github.com/starford/linkmark/internal/mcpserver"
	"github.com/starford/linkmark/internal/metrics"
	"github.com/starford/linkmark/internal/sse"
	"github.com/starford/linkmark/internal/storage"
)

// NewLogger returns a JSON logger writing to w. Logs never go to stdout,
// which carries extraction output and the MCP protocol.
func NewLogger(level slog.Level, w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if app.logger == nil {
		app.logger = NewLogger(app.config.App.LogLevel, os.Stderr)
	}
	return app, nil
}

// components bundles what is shared by serve, index and mcp.
type components struct {
	store   *storage.FS
	db      *index.DB
	ext     *extractor.Service
	metrics *metrics.Recorder
	sources index.Sources
}

func (app *application) open() (*components, error) {
	cfg := app.config
	store, err := storage.NewFS(cfg.Input.Root)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}
	rec := metrics.New()
	ext := extractor.New(
		extractor.WithReader(store.Read),
		extractor.WithMetrics(rec),
		extractor.WithLogger(app.logger),
		extractor.WithWorkers(cfg.Input.Workers),
	)
	return &components{
		store:   store,
		db:      db,
		ext:     ext,
		metrics: rec,
		sources: index.Sources{Store: store, Includes: cfg.Input.Patterns, Excludes: cfg.Input.Excludes},
	}, nil
}

// RunExtract extracts files and writes the records to w using the configured
// output format. Paths are read as given, not relative to the input root.
func RunExtract(ctx context.Context, files []string, w io.Writer, opts ...Option) (extractor.Summary, error) {
	app, err := newApplication(opts)
	if err != nil {
		return extractor.Summary{}, err
	}
	f, err := app.config.Output.SerializeFormat()
	if err != nil {
		return extractor.Summary{}, err
	}
	extOpts := []extractor.Option{
		extractor.WithLogger(app.logger),
		extractor.WithWorkers(app.config.Input.Workers),
	}
	if app.progress != nil {
		extOpts = append(extOpts, extractor.WithProgress(app.progress))
	}
	return extractor.New(extOpts...).Run(ctx, files, w, f, app.config.Output.Deduplicate)
}

// RunIndex brings the link index in line with the input root.
func RunIndex(ctx context.Context, progress func(done, total int), opts ...Option) (index.Report, error) {
	app, err := newApplication(opts)
	if err != nil {
		return index.Report{}, err
	}
	rt, err := app.open()
	if err != nil {
		return index.Report{}, err
	}
	defer rt.db.Close()

	src := rt.sources
	src.Progress = progress
	return index.Sync(ctx, rt.db, src, rt.ext, app.logger)
}

// RunMCP syncs the index and serves MCP tools over stdio.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	rt, err := app.open()
	if err != nil {
		return err
	}
	defer rt.db.Close()

	if _, err := index.Sync(ctx, rt.db, rt.sources, rt.ext, app.logger); err != nil {
		app.logger.Warn("initial sync failed", logfields.Error(err))
	}

	svc := linkservice.NewService(rt.store, rt.db, rt.ext)
	return mcpserver.New(svc, rt.store, app.version).ServeStdio()
}

// Run starts the HTTP server, the file watcher and the SSE broker.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("input_root", cfg.Input.Root),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	rt, err := app.open()
	if err != nil {
		return err
	}
	defer rt.db.Close()

	if _, err := index.Sync(ctx, rt.db, rt.sources, rt.ext, logger); err != nil {
		logger.Warn("initial sync failed", logfields.Error(err))
	}

	broker := sse.NewBroker(2*time.Second,
		sse.WithStats(func() (any, error) { return rt.db.Stats() }),
		sse.WithKeepAlive(30*time.Second),
	)
	defer broker.Close()

	handler, err := newHTTPHandler(cfg, rt, broker, logger)
	if err != nil {
		return err
	}
	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return index.Watch(gCtx, rt.db, rt.sources, rt.ext, logger, broker.PublishDocumentEvent)
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", logfields.Addr(cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", logfields.Error(err))
		}
		return context.Canceled
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Application error", logfields.Error(err))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// newHTTPHandler builds the root router: health checks and metrics at the
// root, the API under /api.
func newHTTPHandler(cfg *Config, rt *components, broker *sse.Broker, logger *slog.Logger) (http.Handler, error) {
	format, err := cfg.Output.SerializeFormat()
	if err != nil {
		return nil, err
	}
	svc := linkservice.NewService(rt.store, rt.db, rt.ext)
	defaults := api.ExtractDefaults{Format: format, Deduplicate: cfg.Output.Deduplicate}

	var sseHandler http.Handler
	if broker != nil {
		sseHandler = broker
	}
	apiRouter := api.NewRouter(svc, defaults, cfg.Auth.AuthEnabled(), cfg.Auth.Token, sseHandler)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, "ok")
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := rt.db.Ping(r.Context()); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "unavailable")
			return
		}
		writeStatus(w, http.StatusOK, "ok")
	})
	r.Handle("/metrics", rt.metrics.Handler())

	r.Mount("/api", apiRouter)
	return r, nil
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = fmt.Fprintf(w, `{"status":%q}`, status)
}

// requestLogger logs one line per request at debug level, errors at warn.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			level := slog.LevelDebug
			if ww.Status() >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}
			logger.Log(r.Context(), level, "http: request",
				logfields.Method(r.Method),
				logfields.Path(r.URL.Path),
				logfields.Status(ww.Status()),
				slog.String("request_id", middleware.GetReqID(r.Context())),
				logfields.Since(start))
		})
	}
}

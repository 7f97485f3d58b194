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
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/bootplan/internal/api"
	"github.com/starford/bootplan/internal/appconfig"
	"github.com/starford/bootplan/internal/apperr"
	"github.com/starford/bootplan/internal/compiler"
	"github.com/starford/bootplan/internal/mcpserver"
	"github.com/starford/bootplan/internal/models"
	"github.com/starford/bootplan/internal/planservice"
	"github.com/starford/bootplan/internal/planstore"
	"github.com/starford/bootplan/internal/sse"
	"github.com/starford/bootplan/internal/storage"
	"github.com/starford/bootplan/internal/watch"
)

const historyThrottle = 2 * time.Second

func newApplication(opts []Option) (*application, *slog.Logger, error) {
	app := &application{logOutput: os.Stderr}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}

	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: app.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return app, logger, nil
}

// Compile compiles the configured layout once, without recording history.
func Compile(_ context.Context, opts ...Option) (*models.Plan, error) {
	app, logger, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	cfg := app.config

	fs := storage.NewOS()
	copts := cfg.Boot.CompilerOptions(fs, logger)
	src, err := appconfig.NewLoader(fs, cfg.Boot.Files.Names(), logger).
		Load(cfg.Boot.Root, compiler.ResolveEnv(cfg.Boot.Env))
	if err != nil {
		return nil, err
	}
	copts.AppConfig = src.App
	copts.DataSources = src.DataSources
	copts.ModelConfig = src.ModelConfig
	return compiler.Compile(copts)
}

// openService opens the plan history and builds the plan service on top of it.
func openService(cfg *Config, logger *slog.Logger, listener planservice.Listener) (*planservice.Service, *planstore.DB, error) {
	db, err := planstore.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init plan store: %w", err)
	}

	fs := storage.NewOS()
	svc := planservice.New(
		cfg.Boot.CompilerOptions(fs, logger),
		appconfig.NewLoader(fs, cfg.Boot.Files.Names(), logger),
		db,
		planservice.WithListener(listener),
		planservice.WithLogger(logger),
	)
	return svc, db, nil
}

// publishTo forwards compile outcomes to the SSE broker.
func publishTo(broker *sse.Broker) planservice.Listener {
	return func(ev planservice.Event) {
		switch ev.Kind {
		case planservice.KindCompiled:
			broker.PublishPlanEvent(sse.EventPlanCompiled, map[string]any{
				"record":  ev.Record,
				"changed": ev.Changed,
			})
		case planservice.KindFailed:
			broker.PublishPlanEvent(sse.EventPlanFailed, map[string]any{
				"error": ev.Err.Error(),
				"code":  apperr.Code(ev.Err),
			})
		}
	}
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, logger, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("root", cfg.Boot.Root),
		slog.String("env", compiler.ResolveEnv(cfg.Boot.Env)),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.Bool("watch", cfg.Boot.Watch.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	broker := sse.NewBroker(historyThrottle)
	defer broker.Close()

	svc, db, err := openService(cfg, logger, publishTo(broker))
	if err != nil {
		return err
	}
	defer db.Close()

	// Initial compile. A broken layout keeps the server up so it can be fixed.
	if _, err := svc.Compile(ctx); err != nil {
		logger.Warn("initial compile failed", slog.String("error", err.Error()))
	}

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, _, err := svc.Current(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"no plan"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Boot.Watch.Enabled {
		g.Go(func() error {
			err := watch.Watch(gCtx, cfg.Boot.Root, cfg.Boot.Watch.Debounce, logger, func(paths []string) {
				paths = withoutHistory(paths, cfg.SQLite.Path)
				if len(paths) == 0 {
					return
				}
				logger.Info("layout changed, recompiling", slog.Int("files", len(paths)))
				_, _ = svc.Compile(gCtx)
			})
			if err != nil {
				logger.Error("watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

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

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// withoutHistory drops the history database and its journal files from a
// change batch. They live inside the layout root when the root is the
// working directory.
func withoutHistory(paths []string, dbPath string) []string {
	db, err := filepath.Abs(dbPath)
	if err != nil {
		return paths
	}
	out := paths[:0:0]
	for _, p := range paths {
		if abs, err := filepath.Abs(p); err == nil && strings.HasPrefix(abs, db) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// errShutdown cancels the group context so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the plan tools over stdio until the client disconnects.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, logger, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	svc, db, err := openService(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := svc.Compile(ctx); err != nil {
		logger.Warn("initial compile failed", slog.String("error", err.Error()))
	}

	logger.Info("MCP server starting on stdio", slog.String("root", cfg.Boot.Root))
	return mcpserver.New(svc).ServeStdio()
}

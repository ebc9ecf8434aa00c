package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/p-n-ai/pai-learn/internal/lesson"
	"github.com/p-n-ai/pai-learn/internal/platform/config"
	"github.com/p-n-ai/pai-learn/internal/platform/database"
	"github.com/p-n-ai/pai-learn/internal/progress"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(cfg.Log.NewLogger(os.Stdout))

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	catalog, err := lesson.NewCatalog(cfg.LessonsPath, slog.Default())
	if err != nil {
		slog.Error("failed to load lessons", "path", cfg.LessonsPath, "error", err)
		os.Exit(1)
	}
	slog.Info("lessons loaded", "count", catalog.Len(), "path", cfg.LessonsPath)

	stores, err := openBackend(ctx, cfg)
	if err != nil {
		slog.Error("failed to open progress store", "backend", cfg.Progress.Backend, "error", err)
		os.Exit(1)
	}
	defer stores.close()

	tokens, _ := cfg.Auth.TokenMap()
	if len(tokens) == 0 {
		slog.Warn("no auth tokens configured, every progress request will be rejected")
	}

	handler := progress.NewHandler(progress.HandlerConfig{
		Store:   stores.store,
		Catalog: catalog,
		Auth:    progress.TokenAuth(tokens),
		Events:  stores.events,
		Hub:     progress.NewHub(),
		Logger:  slog.Default(),
	})
	mux := newMux(handler, stores.store)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr, "backend", cfg.Progress.Backend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

type backend struct {
	store  progress.Store
	events progress.EventLogger
	close  func()
}

func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	switch cfg.Progress.Backend {
	case config.BackendPostgres:
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return nil, err
		}
		store, err := progress.NewPostgresStore(db.Pool)
		if err != nil {
			db.Close()
			return nil, err
		}
		if cfg.Progress.Migrate {
			if err := store.Migrate(ctx); err != nil {
				db.Close()
				return nil, err
			}
		}
		return &backend{store: store, events: progress.NewPostgresEventLogger(db.Pool), close: db.Close}, nil

	case config.BackendSQLite:
		db, err := database.OpenSQLite(cfg.Progress.SQLitePath)
		if err != nil {
			return nil, err
		}
		store, err := progress.NewSQLiteStore(ctx, db)
		if err != nil {
			db.Close()
			return nil, err
		}
		return &backend{store: store, events: progress.NopEventLogger{}, close: func() { db.Close() }}, nil

	default:
		return &backend{store: progress.NewMemoryStore(), events: progress.NewMemoryEventLogger(), close: func() {}}, nil
	}
}

type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// newMux creates the HTTP router with health check endpoints and the
// Progress Service API.
func newMux(api *progress.Handler, ready healthChecker) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", handleReadyz(ready))
	api.Register(mux)
	return mux
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func handleReadyz(ready healthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := ready.HealthCheck(ctx); err != nil {
			slog.Warn("readiness check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}
}

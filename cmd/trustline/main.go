package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"

	otelsetup "trustline/internal/adapter/otel"
	riveradapter "trustline/internal/adapter/river"
	"trustline/internal/adapter/sqlite"
	"trustline/internal/app"

	"trustline/internal/adapter/fsm"
	handler "trustline/internal/adapter/http"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("trustline: %v", err)
	}
}

func run() error {
	port := envOrDefault("PORT", "8080")
	dbPath := envOrDefault("DATABASE_PATH", "trustline.db")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Observability ---
	providers, err := otelsetup.Setup(ctx, otelsetup.ConfigFromEnv())
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			slog.Error("otel shutdown", "error", err)
		}
	}()

	// --- Adapters (out) ---
	db, err := otelsetup.OpenDB(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	store, err := sqlite.NewFromDB(db)
	if err != nil {
		return err
	}
	repo := otelsetup.NewTracingRepository(store)

	engine := app.NewTrustEngine(repo, repo)

	// River shares the SQLite database and recomputes trust scores
	// after each accepted transition.
	queue, err := riveradapter.Setup(ctx, db, engine)
	if err != nil {
		return err
	}
	if err := queue.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := queue.Stop(stopCtx); err != nil {
			slog.Error("river shutdown", "error", err)
		}
	}()

	publisher := otelsetup.NewTracingPublisher(riveradapter.NewPublisher(queue))

	// --- Application ---
	svc := app.NewLifecycleService(repo, publisher, fsm.New())

	if os.Getenv("SEED_DEMO_DATA") == "true" {
		count, err := strconv.Atoi(envOrDefault("SEED_DEMO_COUNT", "5"))
		if err != nil {
			return err
		}
		if err := svc.SeedDemoData(ctx, count); err != nil {
			return err
		}
		slog.Info("seeded demo data", "count", count)
	}

	// --- Adapters (in) ---
	router := chi.NewMux()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)
	router.Use(otelchi.Middleware("trustline", otelchi.WithChiRoutes(router)))

	api := humachi.New(router, huma.DefaultConfig("trustline", "0.1.0"))
	handler.Register(api, svc, engine)

	// --- Server ---
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("trustline listening", "port", port, "docs", "http://localhost:"+port+"/docs")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	slog.Info("stopped")
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

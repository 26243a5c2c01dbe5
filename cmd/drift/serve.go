package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hyperengineering/drift/internal/api"
	"github.com/hyperengineering/drift/internal/config"
	"github.com/hyperengineering/drift/internal/store"
	"github.com/hyperengineering/drift/internal/worker"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the status API server and background workers",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	// Signal handling
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize logger
	logger := newLogger(cfg)
	slog.SetDefault(logger)
	slog.Info("logger initialized", "level", cfg.Log.Level)

	// Initialize store (migrations, WAL mode)
	dbPath := cfg.Database.Path
	if dbPathOverride != "" {
		dbPath = dbPathOverride
	}
	db, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return err
	}
	slog.Info("store initialized", "path", dbPath)

	// Build the sync target from the configured field names
	tgt := newTarget()

	// HTTP router
	handler := api.NewHandler(db, tgt, Version)
	router := api.NewRouter(handler)

	// Configure HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout),
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout),
	}

	// Background workers
	var wg sync.WaitGroup
	compactor := worker.NewCompactionCoordinator(db,
		time.Duration(cfg.Ledger.CompactionInterval),
		time.Duration(cfg.Ledger.Retention))
	startWorker(ctx, &wg, "ledger-compaction", compactor.Run)

	// Start HTTP server in goroutine
	go func() {
		slog.Info("server starting", "address", addr)
		// ErrServerClosed is the expected error when Shutdown() is called
		// gracefully. Anything else is a real failure.
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	// Block until signal received
	<-ctx.Done()
	slog.Info("shutdown initiated")

	// Graceful shutdown sequence
	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout))
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	wg.Wait()

	if err := db.Close(); err != nil {
		slog.Error("store close error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

// startWorker launches a background worker goroutine that respects context
// cancellation. Workers are tracked via WaitGroup for graceful shutdown.
func startWorker(ctx context.Context, wg *sync.WaitGroup, name string, fn func(ctx context.Context)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		slog.Info("worker started", "worker", name)
		fn(ctx)
		slog.Info("worker stopped", "worker", name)
	}()
}

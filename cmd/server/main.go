// Command server runs the JSON to CSV conversion web service.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/harmonizer/internal/config"
	"github.com/JonMunkholm/harmonizer/internal/convert"
	"github.com/JonMunkholm/harmonizer/internal/core"
	"github.com/JonMunkholm/harmonizer/internal/history"
	"github.com/JonMunkholm/harmonizer/internal/logging"
	"github.com/JonMunkholm/harmonizer/internal/web"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"null_policy", cfg.Convert.NullPolicy,
		"max_file_size", cfg.Convert.MaxFileSize,
		"convert_max_concurrent", cfg.Convert.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"history_database", cfg.Database.Enabled(),
	)

	store, err := openHistory(context.Background(), cfg)
	if err != nil {
		slog.Error("failed to open history store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	service := core.NewService(store, cfg)
	slog.Info("schema loaded", "columns", len(convert.Schema), "history_backend", store.Backend())

	server := web.NewServer(service, cfg)

	// Background jobs stop with the server
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go service.StartRetentionScheduler(jobCtx)

	// Graceful shutdown
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}

		// Conversions abandoned by timed-out requests may still hold slots
		status := service.Status().Limiter
		if status.Active > 0 {
			slog.Info("waiting for conversions to complete", "active", status.Active)
			if err := service.WaitForConversions(shutdownCtx); err != nil {
				slog.Warn("conversions did not complete in time", "error", err)
			} else {
				slog.Info("all conversions completed")
			}
		}
	}()

	if err := server.Start(); err != nil {
		slog.Error("server stopped", "error", err)
		cancelJobs()
		store.Close()
		os.Exit(1)
	}
	<-shutdownDone
	slog.Info("server stopped")
}

// openHistory connects to PostgreSQL when DATABASE_URL is set and falls back
// to an in-memory store otherwise.
func openHistory(ctx context.Context, cfg *config.Config) (history.Store, error) {
	if !cfg.Database.Enabled() {
		slog.Warn("DATABASE_URL not set, conversion history is kept in memory")
		return history.NewMemoryStore(cfg.History.Limit), nil
	}

	pool, err := history.OpenPool(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	if cfg.Database.MigrateOnStart {
		version, dirty, err := history.Migrate(pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		slog.Info("history schema migrated", "version", version, "dirty", dirty)
	}

	return history.NewPostgresStore(pool), nil
}

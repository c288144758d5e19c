package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/TalhaTeeTee/AmzBulk-IDs-extractor/internal/config"
	"github.com/TalhaTeeTee/AmzBulk-IDs-extractor/internal/history"
	"github.com/TalhaTeeTee/AmzBulk-IDs-extractor/internal/logging"
	"github.com/TalhaTeeTee/AmzBulk-IDs-extractor/internal/pipeline"
	"github.com/TalhaTeeTee/AmzBulk-IDs-extractor/internal/web"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"sheet", cfg.Extract.SheetName,
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"history_enabled", cfg.Database.Enabled(),
		"ui_enabled", !cfg.Security.DisableUI,
	)
	slog.Debug("effective configuration", "config", cfg.String())

	if err := run(cfg); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// run serves until SIGINT/SIGTERM and returns after running extractions have
// drained, so their history writes still see an open pool.
func run(cfg *config.Config) error {
	ctx := context.Background()

	var recorder history.Recorder = history.NopRecorder{}
	if cfg.Database.Enabled() {
		pool, err := history.Connect(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer pool.Close()

		pg := history.NewPostgresRecorder(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			return err
		}
		recorder = pg
		slog.Info("run history enabled")
	}

	service := pipeline.NewService(
		pipeline.NewLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime),
		recorder,
		pipeline.Options{
			DefaultSheet: cfg.Extract.SheetName,
			Timeout:      cfg.Upload.Timeout,
		},
	)

	server := web.NewServer(cfg, service)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Start()
	}()

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serveErr:
		return err
	case <-sigCtx.Done():
	}

	slog.Info("shutting down...", "active", service.Limiter().ActiveCount())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("extractions did not complete in time", "error", err)
	}
	return <-serveErr
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/sheetpatch/internal/config"
	"github.com/JonMunkholm/sheetpatch/internal/core"
	"github.com/JonMunkholm/sheetpatch/internal/history"
	"github.com/JonMunkholm/sheetpatch/internal/logging"
	"github.com/JonMunkholm/sheetpatch/internal/web"
)

func main() {
	// Overload lets .env win over variables already in the environment
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
		"history_driver", cfg.History.Driver,
		"strategy", cfg.Reconcile.Strategy,
		"max_concurrent", cfg.Upload.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	if err := run(cfg); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts, err := cfg.EngineOptions()
	if err != nil {
		return err
	}

	for _, dir := range []string{cfg.Storage.UploadDir, cfg.Storage.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	store, err := history.Open(ctx, cfg.History.Driver, cfg.History.DSN)
	if err != nil {
		return err
	}
	slog.Info("history store opened", "driver", cfg.History.Driver)

	service := core.NewService(core.ServiceConfig{
		Options:      opts,
		OutputDir:    cfg.Storage.OutputDir,
		OutputSuffix: cfg.Reconcile.OutputSuffix,
		RunTimeout:   cfg.Reconcile.RunTimeout,
		History:      store,
		Limiter:      core.NewRunLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime),
	})
	defer func() {
		if err := service.Close(); err != nil {
			slog.Error("close history store", "error", err)
		}
	}()

	server := web.NewServer(service, cfg)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		service.StartCleanupScheduler(gctx, cfg.CleanupConfig())
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if status := service.LimiterStatus(); status.Active > 0 {
			slog.Info("waiting for runs to complete", "active", status.Active)
			if err := service.WaitForRuns(shutdownCtx); err != nil {
				slog.Warn("runs did not complete in time", "error", err)
			} else {
				slog.Info("all runs completed")
			}
		}

		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

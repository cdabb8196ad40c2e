package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xavierca1/institut-pipeline/internal/app"
	"github.com/xavierca1/institut-pipeline/internal/config"
	"github.com/xavierca1/institut-pipeline/internal/infra/worker"
	"github.com/xavierca1/institut-pipeline/internal/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("api stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Logging)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	defer func() {
		if cerr := a.Close(); cerr != nil {
			log.Error("shutdown", "error", cerr)
		}
	}()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           newRouter(a),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server listening", "port", cfg.Server.Port, "storage", cfg.Storage.Driver,
			"notifications", cfg.Notifications.Mode, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if a.OnboardingWorker != nil {
		g.Go(func() error { return a.OnboardingWorker.Start(gctx) })
	}

	if cfg.Sweep.Enabled {
		sweeper := worker.NewConversionSweepWorker(a.Reconcile, cfg.Sweep.Interval, log)
		g.Go(func() error {
			sweeper.Start(gctx)
			return nil
		})
	}

	return g.Wait()
}

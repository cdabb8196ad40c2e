package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/xavierca1/institut-pipeline/internal/entity"
	"github.com/xavierca1/institut-pipeline/internal/infra/http/middleware"
)

// Sweeper lists stuck conversion intents and logs them.
type Sweeper interface {
	Sweep(ctx context.Context) ([]*entity.ConversionIntent, error)
}

// ConversionSweepWorker runs the reconciliation sweep on a ticker and
// exports the number of stuck intents as a gauge. It never repairs.
type ConversionSweepWorker struct {
	sweeper      Sweeper
	tickInterval time.Duration
	logger       *slog.Logger
}

func NewConversionSweepWorker(sweeper Sweeper, interval time.Duration, log *slog.Logger) *ConversionSweepWorker {
	if log == nil {
		log = slog.Default()
	}
	return &ConversionSweepWorker{sweeper: sweeper, tickInterval: interval, logger: log}
}

// Start sweeps once immediately, then on every tick until ctx is done.
func (w *ConversionSweepWorker) Start(ctx context.Context) {
	w.logger.Info("conversion sweep worker started", "interval", w.tickInterval.String())

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	w.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("conversion sweep worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *ConversionSweepWorker) sweep(ctx context.Context) {
	stuck, err := w.sweeper.Sweep(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Error("conversion sweep failed", "error", err)
		}
		return
	}
	middleware.SetStuckIntents(len(stuck))
	if len(stuck) > 0 {
		w.logger.Warn("stuck conversion intents", "count", len(stuck))
	}
}

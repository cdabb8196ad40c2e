package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/xavierca1/institut-pipeline/internal/entity"
	"github.com/xavierca1/institut-pipeline/internal/logger"
)

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (s *countingSweeper) Sweep(context.Context) ([]*entity.ConversionIntent, error) {
	s.calls.Add(1)
	return []*entity.ConversionIntent{{ID: "i1", State: entity.IntentProvisioned}}, s.err
}

func TestSweepWorkerRunsImmediatelyAndOnTick(t *testing.T) {
	s := &countingSweeper{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		NewConversionSweepWorker(s, 10*time.Millisecond, logger.Discard()).Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return s.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestSweepWorkerSurvivesErrors(t *testing.T) {
	s := &countingSweeper{err: errors.New("db down")}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go NewConversionSweepWorker(s, 5*time.Millisecond, logger.Discard()).Start(ctx)
	assert.Eventually(t, func() bool { return s.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
}

package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/grievance-service/internal/service"
)

type countingSweeper struct {
	calls atomic.Int32
}

func (s *countingSweeper) Sweep(context.Context) service.SweepReport {
	s.calls.Add(1)
	return service.SweepReport{}
}

func TestEscalationWorker_SweepsImmediatelyAndOnTick(t *testing.T) {
	sweeper := &countingSweeper{}
	worker := NewEscalationWorker(sweeper, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return sweeper.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}

func TestEscalationWorker_CancelledBeforeTick(t *testing.T) {
	sweeper := &countingSweeper{}
	worker := NewEscalationWorker(sweeper, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	worker.Run(ctx)

	assert.Equal(t, int32(1), sweeper.calls.Load())
}

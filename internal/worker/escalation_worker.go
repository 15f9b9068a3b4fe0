package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/service"
)

// Sweeper runs one escalation cycle.
type Sweeper interface {
	Sweep(ctx context.Context) service.SweepReport
}

// EscalationWorker drives the sweeper on a fixed interval.
type EscalationWorker struct {
	sweeper  Sweeper
	interval time.Duration
	logger   *zap.Logger
}

// NewEscalationWorker builds a worker. A non-positive interval defaults to 30 minutes.
func NewEscalationWorker(sweeper Sweeper, interval time.Duration, logger *zap.Logger) *EscalationWorker {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EscalationWorker{sweeper: sweeper, interval: interval, logger: logger}
}

// Run sweeps immediately and then on every tick until ctx is cancelled. A cycle that is in
// progress when ctx ends finishes its batch first.
func (w *EscalationWorker) Run(ctx context.Context) {
	if w == nil || w.sweeper == nil {
		return
	}
	w.logger.Info("escalation worker started", zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.sweeper.Sweep(context.WithoutCancel(ctx))
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("escalation worker stopped")
			return
		case <-ticker.C:
			w.sweeper.Sweep(context.WithoutCancel(ctx))
		}
	}
}

package consolidate

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultInterval is how often the scheduler triggers a consolidation run.
const DefaultInterval = time.Hour

// Scheduler runs the consolidation engine on an interval, decoupled from
// the request path. A failed run is logged and the next tick proceeds.
type Scheduler struct {
	engine   *Engine
	interval time.Duration
	logger   *zap.Logger
}

// NewScheduler wraps an engine with interval triggering. A non-positive
// interval falls back to DefaultInterval.
func NewScheduler(engine *Engine, interval time.Duration, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{engine: engine, interval: interval, logger: logger}
}

// Run blocks, consolidating every interval until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("consolidation scheduler stopped")
			return
		case <-ticker.C:
			if _, err := s.engine.Run(ctx); err != nil {
				s.logger.Warn("scheduled consolidation run failed", zap.Error(err))
			}
		}
	}
}

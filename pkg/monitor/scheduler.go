package monitor

import (
	"context"
	"log/slog"
	"time"
)

// TaskRunner defines background work to execute.
type TaskRunner interface {
	Run(ctx context.Context) error
}

// RunnerFunc adapts a function to TaskRunner.
type RunnerFunc func(ctx context.Context) error

func (f RunnerFunc) Run(ctx context.Context) error { return f(ctx) }

// Scheduler runs a task once at start and then on every interval tick.
// Ticks that arrive while a run is in progress are dropped by the ticker,
// so runs never overlap.
type Scheduler struct {
	interval time.Duration
	runner   TaskRunner
	logger   *slog.Logger
}

// NewScheduler creates a scheduler.
func NewScheduler(interval time.Duration, runner TaskRunner, logger *slog.Logger) *Scheduler {
	return &Scheduler{interval: interval, runner: runner, logger: logger}
}

// Start launches periodic execution until ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Error("invalid scheduler interval", "interval", s.interval.String())
		return
	}

	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if err := s.runner.Run(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("scheduled run error", "error", err)
	}
}

package supervisor

import (
	"context"
	"time"

	"github.com/RyanrealAF/Labcoat/internal/core/services"
	"github.com/RyanrealAF/Labcoat/internal/logging"
)

type CycleRunner interface {
	RunCycle(ctx context.Context) services.CycleReport
}

// SchedulerService runs one detection cycle per interval. Cycles never
// overlap: a slow cycle delays the next tick instead of stacking.
type SchedulerService struct {
	runner   CycleRunner
	interval time.Duration
}

func NewSchedulerService(runner CycleRunner, interval time.Duration) *SchedulerService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SchedulerService{runner: runner, interval: interval}
}

func (s *SchedulerService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logging.Info().Dur("interval", s.interval).Msg("sentinel scheduler started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runner.RunCycle(ctx)
		}
	}
}

func (s *SchedulerService) String() string {
	return "sentinel-scheduler"
}

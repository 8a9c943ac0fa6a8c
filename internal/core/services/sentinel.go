package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/RyanrealAF/Labcoat/internal/core/domain"
	"github.com/RyanrealAF/Labcoat/internal/logging"
	"github.com/RyanrealAF/Labcoat/internal/metrics"
)

const DefaultDispatchWorkers = 8

// Sentinel runs one scheduled cycle: scan, dispatch every signature on a
// bounded pool, and check systemic health.
type Sentinel struct {
	scanner    *Scanner
	dispatcher *Dispatcher
	health     *HealthMonitor
	workers    int
}

type CycleReport struct {
	ID         string
	Signatures int
	Recorded   int
	Bans       int
	NewBans    int
	Warnings   int
	Alerts     int
	Health     HealthReport
	Duration   time.Duration
}

func NewSentinel(scanner *Scanner, dispatcher *Dispatcher, health *HealthMonitor, workers int) *Sentinel {
	if workers <= 0 {
		workers = DefaultDispatchWorkers
	}
	return &Sentinel{scanner: scanner, dispatcher: dispatcher, health: health, workers: workers}
}

// RunCycle is not preemptible: cancelling ctx does not abort in-flight work,
// which stays bounded by the per-call timeouts. It returns once every task
// has finished.
func (s *Sentinel) RunCycle(ctx context.Context) CycleReport {
	start := time.Now()
	report := CycleReport{ID: logging.NewID()}
	ctx = logging.ContextWithCycleID(context.WithoutCancel(ctx), report.ID)
	log := logging.Ctx(ctx)
	log.Info().Msg("running sentinel anomaly detection")

	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	g.SetLimit(s.workers)

	g.Go(isolate(ctx, "health", func() {
		h := s.health.CheckHealth(ctx)
		mu.Lock()
		report.Health = h
		mu.Unlock()
	}))

	for sig := range s.scanner.Scan(ctx) {
		g.Go(isolate(ctx, sig.Origin, func() {
			out := s.dispatcher.Dispatch(ctx, sig)
			mu.Lock()
			defer mu.Unlock()
			report.add(out)
		}))
	}

	_ = g.Wait()

	report.Duration = time.Since(start)
	metrics.CycleDuration.Observe(report.Duration.Seconds())
	log.Info().
		Int("signatures", report.Signatures).
		Int("bans", report.Bans).
		Int("warnings", report.Warnings).
		Int64("total_requests", report.Health.Total).
		Bool("kill_switch_tripped", report.Health.Tripped).
		Dur("duration", report.Duration).
		Msg("sentinel cycle complete")
	return report
}

func (r *CycleReport) add(out Outcome) {
	r.Signatures++
	if out.Recorded {
		r.Recorded++
	}
	if out.Banned {
		r.Bans++
	}
	if out.NewlyBanned {
		r.NewBans++
	}
	if out.Tier == domain.TierWarn {
		r.Warnings++
	}
	if out.Alerted {
		r.Alerts++
	}
}

// isolate turns fn into an errgroup task that never fails, so one task can
// not cancel or crash its siblings.
func isolate(ctx context.Context, name string, fn func()) func() error {
	return func() error {
		defer func() {
			if r := recover(); r != nil {
				logging.Ctx(ctx).Error().Str("task", name).Str("panic", fmt.Sprint(r)).Msg("sentinel task panicked")
			}
		}()
		fn()
		return nil
	}
}

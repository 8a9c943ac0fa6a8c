package services

import (
	"context"
	"time"

	"github.com/RyanrealAF/Labcoat/internal/core/domain"
	"github.com/RyanrealAF/Labcoat/internal/core/ports"
	"github.com/RyanrealAF/Labcoat/internal/logging"
	"github.com/RyanrealAF/Labcoat/internal/metrics"
)

const DefaultCallTimeout = 5 * time.Second

type DispatcherConfig struct {
	// CallTimeout bounds every registry, history and alerter call.
	CallTimeout time.Duration
}

// Dispatcher maps a signature's confidence to a response tier and runs it.
type Dispatcher struct {
	bans    ports.BanRegistry
	history ports.ThreatHistory
	alerter ports.Alerter
	config  DispatcherConfig
}

// Outcome summarises what Dispatch managed to do; failures are already logged.
type Outcome struct {
	Tier        domain.Tier
	Recorded    bool
	NewlyBanned bool
	Banned      bool
	Alerted     bool
}

func NewDispatcher(bans ports.BanRegistry, history ports.ThreatHistory, alerter ports.Alerter, cfg DispatcherConfig) *Dispatcher {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	return &Dispatcher{bans: bans, history: history, alerter: alerter, config: cfg}
}

// Dispatch records the signature and executes its tier. Each side effect is
// isolated: a failed ban does not skip the alert and neither affects the
// history record.
func (d *Dispatcher) Dispatch(ctx context.Context, sig domain.ThreatSignature) Outcome {
	tier := domain.TierFor(sig.Confidence)
	out := Outcome{Tier: tier}
	log := logging.Ctx(ctx).With().
		Str("origin", sig.Origin).
		Str("pattern", string(sig.Pattern)).
		Float64("confidence", sig.Confidence).
		Str("tier", tier.String()).
		Logger()

	log.Info().Int64("frequency", sig.Frequency).Msg("threat detected")

	if err := d.call(ctx, func(ctx context.Context) error { return d.history.Record(ctx, sig) }); err != nil {
		log.Error().Err(err).Msg("failed to log threat")
		metrics.DispatchActions.WithLabelValues("history", "failure").Inc()
	} else {
		out.Recorded = true
		metrics.DispatchActions.WithLabelValues("history", "success").Inc()
	}

	switch tier {
	case domain.TierBan:
		err := d.call(ctx, func(ctx context.Context) error {
			inserted, err := d.bans.InsertIfAbsent(ctx, sig.Origin)
			out.NewlyBanned = inserted
			return err
		})
		if err != nil {
			log.Error().Err(err).Msg("failed to ban origin")
			metrics.DispatchActions.WithLabelValues("ban", "failure").Inc()
		} else {
			out.Banned = true
			log.Warn().Bool("newly_banned", out.NewlyBanned).Msg("origin banned")
			metrics.DispatchActions.WithLabelValues("ban", "success").Inc()
		}
		out.Alerted = d.alert(ctx, domain.BanAlert(sig))
	case domain.TierWarn:
		out.Alerted = d.alert(ctx, domain.SuspiciousAlert(sig))
	}

	return out
}

func (d *Dispatcher) alert(ctx context.Context, alert domain.Alert) bool {
	if err := d.call(ctx, func(ctx context.Context) error { return d.alerter.Send(ctx, alert) }); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("severity", string(alert.Severity)).Msg("failed to send alert")
		metrics.DispatchActions.WithLabelValues("alert", "failure").Inc()
		return false
	}
	metrics.DispatchActions.WithLabelValues("alert", "success").Inc()
	return true
}

func (d *Dispatcher) call(ctx context.Context, fn func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, d.config.CallTimeout)
	defer cancel()
	return fn(callCtx)
}

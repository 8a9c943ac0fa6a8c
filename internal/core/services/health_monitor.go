package services

import (
	"context"
	"time"

	"github.com/RyanrealAF/Labcoat/internal/core/domain"
	"github.com/RyanrealAF/Labcoat/internal/core/ports"
	"github.com/RyanrealAF/Labcoat/internal/logging"
	"github.com/RyanrealAF/Labcoat/internal/metrics"
)

const (
	DefaultHealthWindow      = 10 * time.Minute
	DefaultOverloadThreshold = 1000
)

type HealthMonitorConfig struct {
	Window            time.Duration
	OverloadThreshold int64
	CallTimeout       time.Duration
	Now               func() time.Time
}

// HealthMonitor trips the kill switch when aggregate traffic exceeds the
// overload threshold. Every call re-evaluates from scratch; there is no
// half-open state and no automatic recovery.
type HealthMonitor struct {
	ledger     ports.RequestLedger
	killSwitch *KillSwitch
	alerter    ports.Alerter
	config     HealthMonitorConfig
}

type HealthReport struct {
	Total      int64
	Overloaded bool
	Tripped    bool
	Alerted    bool
}

func NewHealthMonitor(ledger ports.RequestLedger, killSwitch *KillSwitch, alerter ports.Alerter, cfg HealthMonitorConfig) *HealthMonitor {
	if cfg.Window <= 0 {
		cfg.Window = DefaultHealthWindow
	}
	if cfg.OverloadThreshold <= 0 {
		cfg.OverloadThreshold = DefaultOverloadThreshold
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &HealthMonitor{ledger: ledger, killSwitch: killSwitch, alerter: alerter, config: cfg}
}

func (m *HealthMonitor) CheckHealth(ctx context.Context) HealthReport {
	var report HealthReport
	log := logging.Ctx(ctx)

	countCtx, cancel := context.WithTimeout(ctx, m.config.CallTimeout)
	total, err := m.ledger.CountAll(countCtx, m.config.Now().Add(-m.config.Window))
	cancel()
	if err != nil {
		log.Error().Err(err).Msg("failed systemic health check")
		return report
	}

	report.Total = total
	if total <= m.config.OverloadThreshold {
		log.Debug().Int64("total", total).Msg("systemic health ok")
		return report
	}
	report.Overloaded = true

	if err := m.killSwitch.Disable(ctx); err != nil {
		log.Error().Err(err).Int64("total", total).Msg("failed to disable api")
	} else {
		report.Tripped = true
		metrics.KillSwitchTrips.Inc()
		log.Warn().Int64("total", total).Int64("threshold", m.config.OverloadThreshold).Msg("emergency shutdown activated")
	}

	alertCtx, cancel := context.WithTimeout(ctx, m.config.CallTimeout)
	defer cancel()
	if err := m.alerter.Send(alertCtx, domain.ShutdownAlert()); err != nil {
		log.Warn().Err(err).Msg("failed to send shutdown alert")
		metrics.DispatchActions.WithLabelValues("alert", "failure").Inc()
		return report
	}
	metrics.DispatchActions.WithLabelValues("alert", "success").Inc()
	report.Alerted = true
	return report
}

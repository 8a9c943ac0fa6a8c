package app

import (
	"context"

	httpHandlers "github.com/RyanrealAF/Labcoat/internal/adapters/http/handlers"
	"github.com/RyanrealAF/Labcoat/internal/core/ports"
	"github.com/RyanrealAF/Labcoat/internal/logging"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type breakerReporter interface {
	BreakerState() string
}

// HealthChecks builds the live /health checks: counter cache reachability when
// the cache can be pinged, and the alerter circuit breaker state.
func HealthChecks(cache ports.CounterCache, alerter breakerReporter) map[string]httpHandlers.HealthCheck {
	checks := make(map[string]httpHandlers.HealthCheck)
	if p, ok := cache.(pinger); ok {
		checks["counter_cache"] = func(ctx context.Context) string {
			if err := p.Ping(ctx); err != nil {
				logging.Ctx(ctx).Warn().Err(err).Msg("health: counter cache unreachable")
				return "unreachable"
			}
			return "ok"
		}
	}
	if alerter != nil {
		checks["alerter_breaker"] = func(context.Context) string {
			return alerter.BreakerState()
		}
	}
	return checks
}

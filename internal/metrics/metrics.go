// Package metrics expõe os contadores Prometheus do sentinel.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RateLimitDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_rate_limit_decisions_total",
			Help: "Admission decisions taken by the fixed-window rate limiter",
		},
		[]string{"decision"}, // admitted, denied, degraded
	)

	ThreatsDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_threats_detected_total",
			Help: "Threat signatures emitted by the anomaly scanner",
		},
		[]string{"pattern"},
	)

	DispatchActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_dispatch_actions_total",
			Help: "Side effects executed by the response dispatcher",
		},
		[]string{"action", "result"}, // action: history, ban, alert
	)

	KillSwitchTrips = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentinel_kill_switch_trips_total",
			Help: "Times the systemic health monitor disabled the API",
		},
	)

	SchemaGateFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_schema_gate_failures_total",
			Help: "Requests refused by the schema gate",
		},
		[]string{"reason"}, // not_initialized, outdated, store_error
	)

	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sentinel_cycle_duration_seconds",
			Help:    "Duration of one scheduled scan, dispatch and health cycle",
			Buckets: prometheus.DefBuckets,
		},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_http_requests_total",
			Help: "HTTP responses by route pattern and status code",
		},
		[]string{"route", "status"},
	)

	AlerterBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentinel_alerter_breaker_state",
			Help: "Alerter circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)
)

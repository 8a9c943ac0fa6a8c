package app

import (
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpHandlers "github.com/RyanrealAF/Labcoat/internal/adapters/http/handlers"
	httpMiddleware "github.com/RyanrealAF/Labcoat/internal/adapters/http/middleware"
	"github.com/RyanrealAF/Labcoat/internal/core/ports"
)

type RouterDeps struct {
	Ledger        ports.RequestLedger
	Bans          ports.BanRegistry
	Searcher      ports.Searcher
	Limiter       ports.RateLimiter
	KillSwitch    httpMiddleware.SwitchChecker
	SchemaGate    httpMiddleware.SchemaChecker
	Health        map[string]httpHandlers.HealthCheck
	Bindings      map[string]bool
	AppendTimeout time.Duration
	// TrustedProxies lists the peers whose forwarding headers name the client.
	TrustedProxies []netip.Prefix
}

// NewRouter wires the /query gates in order: kill switch, schema gate, ban
// gate, rate limiter. /status stays readable during an emergency shutdown;
// /health and /metrics skip every gate.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(httpMiddleware.RequestID)
	r.Use(httpMiddleware.NewOriginMiddleware(deps.TrustedProxies))
	r.Use(httpMiddleware.Metrics)
	r.Use(httpMiddleware.CORS)

	r.NotFound(httpHandlers.NotFound)
	r.Get("/health", httpHandlers.HealthHandler(deps.Bindings, deps.Health))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(httpMiddleware.NewSchemaGateMiddleware(deps.SchemaGate))

		r.Get("/status", httpHandlers.StatusHandler(deps.Ledger, deps.Bans))
	})

	r.Group(func(r chi.Router) {
		r.Use(httpMiddleware.NewKillSwitchMiddleware(deps.KillSwitch))
		r.Use(httpMiddleware.NewSchemaGateMiddleware(deps.SchemaGate))
		r.Use(httpMiddleware.NewBanGateMiddleware(deps.Bans))
		r.Use(httpMiddleware.NewRateLimiterMiddleware(deps.Limiter))
		r.Method(http.MethodPost, "/query", httpHandlers.NewQueryHandler(deps.Ledger, deps.Searcher, deps.AppendTimeout))
	})

	return r
}

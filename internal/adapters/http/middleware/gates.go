package middleware

import (
	"context"
	"net/http"

	"github.com/RyanrealAF/Labcoat/internal/core/ports"
	"github.com/RyanrealAF/Labcoat/internal/core/services"
	"github.com/RyanrealAF/Labcoat/internal/logging"
)

const killSwitchMessage = "System under maintenance / Emergency Shutdown"

type SwitchChecker interface {
	Enabled(ctx context.Context) bool
}

type SchemaChecker interface {
	CheckSchema(ctx context.Context) error
}

// NewKillSwitchMiddleware refuses every request with 503 while api_enabled is off.
func NewKillSwitchMiddleware(ks SwitchChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ks != nil && !ks.Enabled(r.Context()) {
				writeError(w, http.StatusServiceUnavailable, errorBody{Error: killSwitchMessage})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NewSchemaGateMiddleware refuses to serve until the schema satisfies the
// required version. A store failure is reported as schema_unavailable.
func NewSchemaGateMiddleware(gate SchemaChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if gate == nil {
				next.ServeHTTP(w, r)
				return
			}
			if err := gate.CheckSchema(r.Context()); err != nil {
				logging.Ctx(r.Context()).Error().Err(err).Msg("schema gate refused request")
				writeError(w, http.StatusServiceUnavailable, errorBody{
					Error:  err.Error(),
					Reason: services.SchemaFailureReason(err),
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NewBanGateMiddleware refuses banned origins with 403. Registry failures
// fail open.
func NewBanGateMiddleware(bans ports.BanRegistry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if bans == nil {
				next.ServeHTTP(w, r)
				return
			}
			origin := OriginFromContext(r.Context())
			banned, err := bans.Contains(r.Context(), origin)
			if err != nil {
				logging.Ctx(r.Context()).Error().Err(err).Str("origin", origin).Msg("ban lookup failed, failing open")
			}
			if banned {
				writeError(w, http.StatusForbidden, errorBody{Error: "Forbidden"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

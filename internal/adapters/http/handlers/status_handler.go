package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/RyanrealAF/Labcoat/internal/core/ports"
	"github.com/RyanrealAF/Labcoat/internal/logging"
)

type StatusResponse struct {
	Status string      `json:"status"`
	Stats  StatusStats `json:"stats"`
	Bans   StatusBans  `json:"bans"`
}

type StatusStats struct {
	TotalQueries int64 `json:"total_queries"`
}

type StatusBans struct {
	TotalBans int64 `json:"total_bans"`
}

// StatusHandler reports ledger and ban registry totals.
func StatusHandler(ledger ports.RequestLedger, bans ports.BanRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		queries, err := ledger.CountTotal(ctx)
		if err != nil {
			logging.Ctx(ctx).Error().Err(err).Msg("status: ledger count failed")
			WriteError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		banned, err := bans.Count(ctx)
		if err != nil {
			logging.Ctx(ctx).Error().Err(err).Msg("status: ban count failed")
			WriteError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		WriteJSON(w, http.StatusOK, StatusResponse{
			Status: "Sentinel Active",
			Stats:  StatusStats{TotalQueries: queries},
			Bans:   StatusBans{TotalBans: banned},
		})
	}
}

const healthCheckTimeout = 2 * time.Second

// HealthCheck inspects one dependency and returns its state, such as "ok" or
// "unreachable".
type HealthCheck func(ctx context.Context) string

type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Bindings  map[string]bool   `json:"bindings"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthHandler reports which collaborators this process was wired with and
// the live state of each checked dependency.
func HealthHandler(bindings map[string]bool, checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status:    "operational",
			Timestamp: time.Now().UTC(),
			Bindings:  bindings,
		}
		if len(checks) > 0 {
			resp.Checks = make(map[string]string, len(checks))
			for name, check := range checks {
				ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
				resp.Checks[name] = check(ctx)
				cancel()
			}
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

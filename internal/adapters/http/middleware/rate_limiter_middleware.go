// Package middleware disponibiliza middlewares HTTP específicos da aplicação.
package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/RyanrealAF/Labcoat/internal/core/domain"
	"github.com/RyanrealAF/Labcoat/internal/core/ports"
	"github.com/RyanrealAF/Labcoat/internal/logging"
)

const rateLimitExceededMessage = "Too many requests"

func NewRateLimiterMiddleware(limiter ports.RateLimiter) func(http.Handler) http.Handler {
	return newRateLimiterMiddleware(limiter, time.Now)
}

func newRateLimiterMiddleware(limiter ports.RateLimiter, now func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			decision, err := limiter.Allow(r.Context(), OriginFromContext(r.Context()))
			if err != nil {
				if domain.IsRateLimitedError(err) {
					writeTooManyRequests(w, decision.RetryAfter(now()))
					return
				}

				logging.Ctx(r.Context()).Error().Err(err).Msg("rate limiter failed")
				writeError(w, http.StatusServiceUnavailable, errorBody{Error: http.StatusText(http.StatusServiceUnavailable)})
				return
			}

			if !decision.Allowed {
				writeTooManyRequests(w, decision.RetryAfter(now()))
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.AppliedRule.Requests))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(max(int64(decision.AppliedRule.Requests)-decision.CurrentCount, 0), 10))
			next.ServeHTTP(w, r)
		})
	}
}

func writeTooManyRequests(w http.ResponseWriter, retryAfter time.Duration) {
	seconds := int64((retryAfter + time.Second - 1) / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	w.Header().Set("Retry-After", strconv.FormatInt(seconds, 10))
	writeError(w, http.StatusTooManyRequests, errorBody{Error: rateLimitExceededMessage})
}

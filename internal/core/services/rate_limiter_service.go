package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/RyanrealAF/Labcoat/internal/core/domain"
	"github.com/RyanrealAF/Labcoat/internal/core/ports"
	"github.com/RyanrealAF/Labcoat/internal/logging"
	"github.com/RyanrealAF/Labcoat/internal/metrics"
)

const (
	DefaultRateLimitRequests = 100
	DefaultRateLimitWindow   = 60 * time.Second
)

// Config agrega os limites utilizados pelo serviço de rate limiting.
type Config struct {
	Rule domain.RateLimitRule
	// Fallback é consultado quando o cache principal falha. Sem fallback o
	// limiter nega a requisição.
	Fallback ports.CounterCache
	Now      func() time.Time
}

// RateLimiterService implementa a janela fixa por origem.
//
// Bursts that straddle a window boundary can reach up to twice the nominal
// limit; each bucket is counted independently.
type RateLimiterService struct {
	storage ports.CounterCache
	config  Config
}

var _ ports.RateLimiter = (*RateLimiterService)(nil)

// NewRateLimiterService cria uma nova instância do serviço.
func NewRateLimiterService(storage ports.CounterCache, cfg Config) (*RateLimiterService, error) {
	if storage == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if cfg.Rule.Requests <= 0 || cfg.Rule.Window <= 0 {
		return nil, fmt.Errorf("rate limit rule must have positive values")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &RateLimiterService{storage: storage, config: cfg}, nil
}

// Allow avalia se a origem ainda tem admissões disponíveis na janela atual.
func (s *RateLimiterService) Allow(ctx context.Context, origin string) (domain.Decision, error) {
	origin = strings.TrimSpace(origin)
	if origin == "" {
		return domain.Decision{}, fmt.Errorf("origin is required")
	}

	rule := s.config.Rule
	windowID := domain.WindowID(s.config.Now(), rule.Window)
	key := domain.CounterKey(origin, windowID)
	decision := domain.Decision{
		Origin:      origin,
		AppliedRule: rule,
		WindowID:    windowID,
		ResetAt:     domain.WindowEnd(windowID, rule.Window),
	}

	count, admitted, err := s.admit(ctx, s.storage, key)
	if err != nil {
		if s.config.Fallback == nil {
			logging.Ctx(ctx).Error().Err(err).Str("origin", origin).Msg("counter cache unavailable, denying request")
			metrics.RateLimitDecisions.WithLabelValues("degraded").Inc()
			return decision, fmt.Errorf("rate limit check: %w", err)
		}

		logging.Ctx(ctx).Warn().Err(err).Str("origin", origin).Msg("counter cache unavailable, using local fallback")
		decision.Degraded = true
		count, admitted, err = s.admit(ctx, s.config.Fallback, key)
		if err != nil {
			metrics.RateLimitDecisions.WithLabelValues("degraded").Inc()
			return decision, fmt.Errorf("rate limit fallback: %w", err)
		}
	}

	decision.CurrentCount = count
	decision.Allowed = admitted
	if !admitted {
		metrics.RateLimitDecisions.WithLabelValues("denied").Inc()
		return decision, domain.ErrRateLimited
	}

	metrics.RateLimitDecisions.WithLabelValues("admitted").Inc()
	return decision, nil
}

func (s *RateLimiterService) admit(ctx context.Context, cache ports.CounterCache, key string) (int64, bool, error) {
	limit := int64(s.config.Rule.Requests)

	current, _, err := cache.Get(ctx, key)
	if err != nil {
		return 0, false, err
	}
	if current >= limit {
		return current, false, nil
	}

	next, err := cache.Increment(ctx, key, s.config.Rule.Window)
	if err != nil {
		return 0, false, err
	}
	// Another request from the same origin won the last slot between Get and Increment.
	if next > limit {
		return next, false, nil
	}
	return next, true, nil
}

// Package alert entrega notificações do Sentinel a um webhook do Slack.
package alert

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/RyanrealAF/Labcoat/internal/core/domain"
	"github.com/RyanrealAF/Labcoat/internal/core/ports"
	"github.com/RyanrealAF/Labcoat/internal/logging"
	"github.com/RyanrealAF/Labcoat/internal/metrics"
)

const (
	DefaultTimeout          = 5 * time.Second
	DefaultRatePerSecond    = 1.0
	DefaultBurst            = 5
	DefaultFailureThreshold = 3
	DefaultOpenTimeout      = 30 * time.Second
)

type Config struct {
	WebhookURL       string
	Timeout          time.Duration
	RatePerSecond    float64
	Burst            int
	FailureThreshold uint32
	OpenTimeout      time.Duration
	// Client overrides the HTTP client; tests point it at httptest servers.
	Client *http.Client
}

// SlackAlerter posts alerts as {"text": ...}. Without a webhook it only logs.
type SlackAlerter struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[struct{}]
}

var _ ports.Alerter = (*SlackAlerter)(nil)

type slackPayload struct {
	Text string `json:"text"`
}

func NewSlackAlerter(cfg Config) *SlackAlerter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = DefaultRatePerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultBurst
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = DefaultFailureThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = DefaultOpenTimeout
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	threshold := cfg.FailureThreshold
	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "slack-alerter",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.AlerterBreakerState.Set(float64(to))
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("alerter circuit breaker state changed")
		},
	})

	return &SlackAlerter{
		url:     strings.TrimSpace(cfg.WebhookURL),
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		breaker: breaker,
	}
}

// Send delivers one alert. Only warnings wait on the throttle; critical alerts
// go straight to the breaker. Every failure wraps domain.ErrAlertDelivery.
func (a *SlackAlerter) Send(ctx context.Context, alert domain.Alert) error {
	log := logging.Ctx(ctx)
	if a.url == "" {
		log.Warn().Str("severity", string(alert.Severity)).Str("message", alert.Message).Msg("no alert webhook configured")
		return nil
	}

	if alert.Severity != domain.SeverityCritical {
		if err := a.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: rate limit wait: %v", domain.ErrAlertDelivery, err)
		}
	}

	_, err := a.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, a.post(ctx, alert)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrAlertDelivery, err)
	}
	log.Info().Str("severity", string(alert.Severity)).Msg("alert delivered")
	return nil
}

func (a *SlackAlerter) post(ctx context.Context, alert domain.Alert) error {
	body, err := json.Marshal(slackPayload{Text: alert.Message})
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// BreakerState reports the breaker state for /health.
func (a *SlackAlerter) BreakerState() string {
	return a.breaker.State().String()
}

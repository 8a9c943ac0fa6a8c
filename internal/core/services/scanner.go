package services

import (
	"context"
	"iter"
	"sort"
	"time"

	"github.com/RyanrealAF/Labcoat/internal/core/domain"
	"github.com/RyanrealAF/Labcoat/internal/core/ports"
	"github.com/RyanrealAF/Labcoat/internal/logging"
	"github.com/RyanrealAF/Labcoat/internal/metrics"
)

const (
	DefaultScanWindow         = 5 * time.Minute
	DefaultFrequencyThreshold = 50
)

type ScannerConfig struct {
	Window             time.Duration
	FrequencyThreshold int64
	// CallTimeout bounds the ledger aggregation.
	CallTimeout time.Duration
	Now         func() time.Time
}

// Scanner aggregates the request ledger and emits threat signatures.
type Scanner struct {
	ledger ports.RequestLedger
	config ScannerConfig
}

func NewScanner(ledger ports.RequestLedger, cfg ScannerConfig) *Scanner {
	if cfg.Window <= 0 {
		cfg.Window = DefaultScanWindow
	}
	if cfg.FrequencyThreshold <= 0 {
		cfg.FrequencyThreshold = DefaultFrequencyThreshold
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Scanner{ledger: ledger, config: cfg}
}

// Scan returns one signature per origin whose request count in the trailing
// window is strictly above the threshold. Aggregation failures are logged
// and yield an empty sequence.
func (s *Scanner) Scan(ctx context.Context) iter.Seq[domain.ThreatSignature] {
	now := s.config.Now()
	callCtx, cancel := context.WithTimeout(ctx, s.config.CallTimeout)
	counts, err := s.ledger.CountByOrigin(callCtx, now.Add(-s.config.Window))
	cancel()
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("failed to detect anomalies")
		return func(func(domain.ThreatSignature) bool) {}
	}

	origins := make([]string, 0, len(counts))
	for origin, count := range counts {
		if count > s.config.FrequencyThreshold {
			origins = append(origins, origin)
		}
	}
	sort.Strings(origins)

	return func(yield func(domain.ThreatSignature) bool) {
		for _, origin := range origins {
			count := counts[origin]
			pattern, confidence := domain.Score(count)
			metrics.ThreatsDetected.WithLabelValues(string(pattern)).Inc()
			sig := domain.ThreatSignature{
				Origin:     origin,
				Pattern:    pattern,
				Confidence: confidence,
				Frequency:  count,
				DetectedAt: now,
			}
			if !yield(sig) {
				return
			}
		}
	}
}

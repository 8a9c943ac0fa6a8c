package domain

import (
	"fmt"
	"time"
)

// Pattern classifies the abuse a signature matches.
type Pattern string

const (
	PatternScraping    Pattern = "scraping"
	PatternInjection   Pattern = "injection" // reserved, never produced by Score
	PatternEnumeration Pattern = "enumeration"
)

func (p Pattern) Valid() bool {
	switch p {
	case PatternScraping, PatternInjection, PatternEnumeration:
		return true
	}
	return false
}

const (
	// ScrapingFrequency is the count above which traffic is classified as scraping.
	ScrapingFrequency = 100
	// ConfidenceSaturation is the count at which confidence reaches 1.0.
	ConfidenceSaturation = 200.0

	BanConfidence  = 0.7
	WarnConfidence = 0.5
)

// ThreatSignature is produced fresh on each scan and never persisted as such.
type ThreatSignature struct {
	Origin     string    `json:"origin"`
	Pattern    Pattern   `json:"pattern"`
	Confidence float64   `json:"confidence"`
	Frequency  int64     `json:"frequency"`
	DetectedAt time.Time `json:"detected_at"`
}

// Score maps a request frequency to a pattern and a confidence in [0, 1].
func Score(count int64) (Pattern, float64) {
	pattern := PatternEnumeration
	if count > ScrapingFrequency {
		pattern = PatternScraping
	}
	if count <= 0 {
		return pattern, 0
	}
	return pattern, min(float64(count)/ConfidenceSaturation, 1.0)
}

// Tier is the response level selected for a signature.
type Tier int

const (
	TierLog Tier = iota
	TierWarn
	TierBan
)

func (t Tier) String() string {
	switch t {
	case TierBan:
		return "ban"
	case TierWarn:
		return "warn"
	default:
		return "log"
	}
}

// TierFor evaluates the tiers from high to low; they are mutually exclusive.
func TierFor(confidence float64) Tier {
	switch {
	case confidence > BanConfidence:
		return TierBan
	case confidence > WarnConfidence:
		return TierWarn
	default:
		return TierLog
	}
}

type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert is a best-effort notification handed to the Alerter.
type Alert struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Origin   string   `json:"origin,omitempty"`
}

func BanAlert(sig ThreatSignature) Alert {
	return Alert{
		Severity: SeverityCritical,
		Message:  fmt.Sprintf("🚨 INSTANT IP BAN: %s (%s)", sig.Origin, sig.Pattern),
		Origin:   sig.Origin,
	}
}

func SuspiciousAlert(sig ThreatSignature) Alert {
	return Alert{
		Severity: SeverityWarning,
		Message:  fmt.Sprintf("⚠️ SUSPICIOUS ACTIVITY: %s (%s)", sig.Origin, sig.Pattern),
		Origin:   sig.Origin,
	}
}

func ShutdownAlert() Alert {
	return Alert{
		Severity: SeverityCritical,
		Message:  "🚨 EMERGENCY SHUTDOWN ACTIVATED due to systemic traffic spike.",
	}
}

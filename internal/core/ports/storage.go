// Package ports define contratos que conectam o domínio a implementações externas.
package ports

import (
	"context"
	"time"

	"github.com/RyanrealAF/Labcoat/internal/core/domain"
)

// CounterCache is the TTL key/value store behind the rate limiter. Increment
// must be atomic per key: it creates the key with the given TTL on first use
// and returns the post-increment value.
type CounterCache interface {
	Get(ctx context.Context, key string) (int64, bool, error)
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// RequestLedger is the append-only record of inbound requests.
type RequestLedger interface {
	Append(ctx context.Context, origin, text string, at time.Time) error
	CountByOrigin(ctx context.Context, since time.Time) (map[string]int64, error)
	CountAll(ctx context.Context, since time.Time) (int64, error)
	CountTotal(ctx context.Context) (int64, error)
}

// BanRegistry holds the origins currently denied service.
type BanRegistry interface {
	// InsertIfAbsent returns true only when the origin was newly inserted.
	InsertIfAbsent(ctx context.Context, origin string) (bool, error)
	Contains(ctx context.Context, origin string) (bool, error)
	Count(ctx context.Context) (int64, error)
}

// ThreatHistory keeps every dispatched signature for offline retraining.
type ThreatHistory interface {
	Record(ctx context.Context, sig domain.ThreatSignature) error
}

type ConfigStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

type SchemaVersionStore interface {
	LatestVersion(ctx context.Context) (int, bool, error)
}

// Package ports define contratos que conectam o domínio a implementações externas.
package ports

import (
	"context"

	"github.com/RyanrealAF/Labcoat/internal/core/domain"
)

type RateLimiter interface {
	Allow(ctx context.Context, origin string) (domain.Decision, error)
}

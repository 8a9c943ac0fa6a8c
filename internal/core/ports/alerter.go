package ports

import (
	"context"

	"github.com/RyanrealAF/Labcoat/internal/core/domain"
)

// Alerter is a best-effort notification sink. Callers must never let a
// returned error change the outcome of a ban or history write.
type Alerter interface {
	Send(ctx context.Context, alert domain.Alert) error
}

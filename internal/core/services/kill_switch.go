package services

import (
	"context"
	"fmt"
	"time"

	"github.com/RyanrealAF/Labcoat/internal/core/domain"
	"github.com/RyanrealAF/Labcoat/internal/core/ports"
	"github.com/RyanrealAF/Labcoat/internal/logging"
)

// KillSwitch reads and writes the api_enabled flag. The flag is read from the
// Config Store on every call and never cached in process.
type KillSwitch struct {
	store   ports.ConfigStore
	timeout time.Duration
}

func NewKillSwitch(store ports.ConfigStore, timeout time.Duration) *KillSwitch {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &KillSwitch{store: store, timeout: timeout}
}

// Enabled fails open: an unreachable store leaves the API on, but an
// explicitly disabled value always wins when it can be read.
func (k *KillSwitch) Enabled(ctx context.Context) bool {
	enabled, err := k.State(ctx)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("config check failed, failing open")
		return true
	}
	return enabled
}

// State returns the stored flag without the fail-open policy applied.
func (k *KillSwitch) State(ctx context.Context) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()

	value, ok, err := k.store.Get(ctx, domain.APIEnabledKey)
	if err != nil {
		return true, fmt.Errorf("read %s: %w", domain.APIEnabledKey, err)
	}
	if !ok {
		return true, nil
	}
	return !domain.FlagDisablesAPI(value), nil
}

func (k *KillSwitch) Disable(ctx context.Context) error {
	return k.set(ctx, domain.FlagDisabled)
}

// Enable is the operator's re-enable path; nothing in the service calls it.
func (k *KillSwitch) Enable(ctx context.Context) error {
	return k.set(ctx, domain.FlagEnabled)
}

func (k *KillSwitch) set(ctx context.Context, value string) error {
	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()

	if err := k.store.Set(ctx, domain.APIEnabledKey, value); err != nil {
		return fmt.Errorf("write %s=%s: %w", domain.APIEnabledKey, value, err)
	}
	return nil
}

package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanrealAF/Labcoat/internal/core/domain"
)

func TestKillSwitch_Enabled(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
		err    error
		want   bool
	}{
		{name: "missing flag defaults to enabled", values: map[string]string{}, want: true},
		{name: "explicit 1", values: map[string]string{domain.APIEnabledKey: "1"}, want: true},
		{name: "explicit 0", values: map[string]string{domain.APIEnabledKey: "0"}, want: false},
		{name: "explicit false", values: map[string]string{domain.APIEnabledKey: "false"}, want: false},
		{name: "store unreachable fails open", err: errStoreDown, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeConfigStore()
			for k, v := range tt.values {
				store.values[k] = v
			}
			store.getErr = tt.err
			assert.Equal(t, tt.want, NewKillSwitch(store, 0).Enabled(context.Background()))
		})
	}
}

func TestKillSwitch_ReadsEveryCall(t *testing.T) {
	store := newFakeConfigStore()
	ks := NewKillSwitch(store, 0)

	assert.True(t, ks.Enabled(context.Background()))
	require.NoError(t, ks.Disable(context.Background()))
	assert.False(t, ks.Enabled(context.Background()))
	require.NoError(t, ks.Enable(context.Background()))
	assert.True(t, ks.Enabled(context.Background()))
	assert.Equal(t, 3, store.reads)
}

func TestKillSwitch_StateSurfacesErrors(t *testing.T) {
	store := newFakeConfigStore()
	store.getErr = errStoreDown

	_, err := NewKillSwitch(store, 0).State(context.Background())
	assert.ErrorIs(t, err, domain.ErrTransientStore)

	store.setErr = errStoreDown
	assert.Error(t, NewKillSwitch(store, 0).Disable(context.Background()))
}

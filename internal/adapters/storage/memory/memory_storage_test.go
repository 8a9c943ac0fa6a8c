package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorage_IncrementAndExpire(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	storage := NewWithClock(func() time.Time { return now })
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := storage.Increment(ctx, "k", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	now = now.Add(59 * time.Second)
	v, ok, err := storage.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(3), v)

	now = now.Add(time.Second)
	_, ok, _ = storage.Get(ctx, "k")
	assert.False(t, ok)
	assert.Zero(t, storage.Len())
}

func TestStorage_IndependentKeys(t *testing.T) {
	storage := New()
	ctx := context.Background()

	_, _ = storage.Increment(ctx, "a", time.Minute)
	_, _ = storage.Increment(ctx, "a", time.Minute)
	v, _ := storage.Increment(ctx, "b", time.Minute)

	assert.Equal(t, int64(1), v)
	assert.Equal(t, 2, storage.Len())
}

func TestStorage_ExpiredKeyDroppedOnLookup(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	storage := NewWithClock(func() time.Time { return now })
	ctx := context.Background()

	_, _ = storage.Increment(ctx, "stale", 10*time.Second)
	_, _ = storage.Increment(ctx, "other", 10*time.Second)

	now = now.Add(10 * time.Second)
	got, err := storage.Increment(ctx, "stale", 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got, "expired counter restarts")

	// Inside the sweep interval only the looked-up key was touched.
	storage.mu.Lock()
	_, otherKept := storage.items["other"]
	storage.mu.Unlock()
	assert.True(t, otherKept)
}

func TestStorage_SweepsAtMostOncePerInterval(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	storage := NewWithClock(func() time.Time { return now })
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c"} {
		_, _ = storage.Increment(ctx, k, time.Second)
	}

	now = now.Add(DefaultSweepInterval)
	_, _, _ = storage.Get(ctx, "fresh")

	storage.mu.Lock()
	defer storage.mu.Unlock()
	assert.Empty(t, storage.items)
	assert.True(t, storage.lastSweep.Equal(now))
}

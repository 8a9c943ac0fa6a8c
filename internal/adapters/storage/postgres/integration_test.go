//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/RyanrealAF/Labcoat/internal/core/domain"
	"github.com/RyanrealAF/Labcoat/internal/core/services"
)

// Run with: go test -tags=integration ./internal/adapters/storage/postgres/...
func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("sentinel"),
		tcpostgres.WithUsername("sentinel"),
		tcpostgres.WithPassword("sentinel"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestPostgres_EndToEnd(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()

	gate := services.NewSchemaGate(NewSchemaStore(pool))
	require.ErrorIs(t, gate.CheckSchema(ctx), domain.ErrSchemaNotInitialized)

	version, err := Migrate(ctx, pool)
	require.NoError(t, err)
	assert.Equal(t, services.RequiredSchemaVersion, version)
	require.NoError(t, gate.CheckSchema(ctx))

	// Re-running is a no-op.
	version, err = Migrate(ctx, pool)
	require.NoError(t, err)
	assert.Equal(t, services.RequiredSchemaVersion, version)

	t.Run("ledger", func(t *testing.T) {
		ledger := NewLedger(pool)
		now := time.Now()
		for i := 0; i < 3; i++ {
			require.NoError(t, ledger.Append(ctx, "10.0.0.1", "q", now.Add(-time.Minute)))
		}
		require.NoError(t, ledger.Append(ctx, "10.0.0.2", "q", now.Add(-time.Minute)))
		require.NoError(t, ledger.Append(ctx, "10.0.0.2", "old", now.Add(-time.Hour)))

		counts, err := ledger.CountByOrigin(ctx, now.Add(-5*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, map[string]int64{"10.0.0.1": 3, "10.0.0.2": 1}, counts)

		all, err := ledger.CountAll(ctx, now.Add(-5*time.Minute))
		require.NoError(t, err)
		assert.EqualValues(t, 4, all)

		total, err := ledger.CountTotal(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 5, total)
	})

	t.Run("bans", func(t *testing.T) {
		bans := NewBanRegistry(pool)
		inserted, err := bans.InsertIfAbsent(ctx, "10.0.0.9")
		require.NoError(t, err)
		assert.True(t, inserted)

		inserted, err = bans.InsertIfAbsent(ctx, "10.0.0.9")
		require.NoError(t, err)
		assert.False(t, inserted)

		ok, err := bans.Contains(ctx, "10.0.0.9")
		require.NoError(t, err)
		assert.True(t, ok)

		n, err := bans.Count(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)
	})

	t.Run("history", func(t *testing.T) {
		pattern, confidence := domain.Score(150)
		err := NewThreatHistory(pool).Record(ctx, domain.ThreatSignature{
			Origin: "10.0.0.9", Pattern: pattern, Confidence: confidence, Frequency: 150, DetectedAt: time.Now(),
		})
		require.NoError(t, err)

		var n int
		require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM threats WHERE origin = '10.0.0.9'`).Scan(&n))
		assert.Equal(t, 1, n)
	})

	t.Run("kill switch", func(t *testing.T) {
		ks := services.NewKillSwitch(NewConfigStore(pool), time.Second)
		assert.True(t, ks.Enabled(ctx))
		require.NoError(t, ks.Disable(ctx))
		assert.False(t, ks.Enabled(ctx))
		require.NoError(t, ks.Enable(ctx))
		assert.True(t, ks.Enabled(ctx))
	})
}

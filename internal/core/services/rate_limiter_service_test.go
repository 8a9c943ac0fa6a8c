package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/RyanrealAF/Labcoat/internal/core/domain"
)

func TestRateLimiter_AllowsWithinLimit(t *testing.T) {
	clock := newFakeClock(time.Unix(1_700_000_040, 0))
	service := newTestLimiter(t, newMockCounterCache(), Config{
		Rule: domain.RateLimitRule{Requests: 100, Window: time.Minute},
		Now:  clock.Now,
	})

	ctx := context.Background()

	for i := 0; i < 100; i++ {
		decision, err := service.Allow(ctx, "192.168.1.1")
		if err != nil {
			t.Fatalf("unexpected error at attempt %d: %v", i+1, err)
		}
		if !decision.Allowed {
			t.Fatalf("expected request %d to be allowed", i+1)
		}
		if decision.CurrentCount != int64(i+1) {
			t.Fatalf("expected count %d, got %d", i+1, decision.CurrentCount)
		}
	}
}

func TestRateLimiter_Denies101stAndResetsAfterRollover(t *testing.T) {
	clock := newFakeClock(time.Unix(1_700_000_040, 0))
	storage := newMockCounterCache()
	service := newTestLimiter(t, storage, Config{
		Rule: domain.RateLimitRule{Requests: 100, Window: time.Minute},
		Now:  clock.Now,
	})

	ctx := context.Background()

	for i := 0; i < 100; i++ {
		if _, err := service.Allow(ctx, "10.0.0.1"); err != nil {
			t.Fatalf("unexpected error on warmup %d: %v", i+1, err)
		}
	}

	decision, err := service.Allow(ctx, "10.0.0.1")
	if err == nil || !domain.IsRateLimitedError(err) {
		t.Fatalf("expected rate limited error, got decision=%+v err=%v", decision, err)
	}
	if decision.Allowed {
		t.Fatalf("expected decision.Allowed=false after exceeding limit")
	}
	if decision.CurrentCount != 100 {
		t.Fatalf("denied requests must not be counted, got %d", decision.CurrentCount)
	}
	if got := decision.RetryAfter(clock.Now()); got != time.Minute {
		t.Fatalf("expected retry after a full window, got %v", got)
	}

	// Other origins keep their own counters.
	if d, err := service.Allow(ctx, "10.0.0.2"); err != nil || !d.Allowed {
		t.Fatalf("expected independent origin to be admitted, decision=%+v err=%v", d, err)
	}

	clock.Advance(time.Minute)

	decision, err = service.Allow(ctx, "10.0.0.1")
	if err != nil || !decision.Allowed {
		t.Fatalf("expected admission after window rollover, decision=%+v err=%v", decision, err)
	}
	if decision.CurrentCount != 1 {
		t.Fatalf("expected fresh counter after rollover, got %d", decision.CurrentCount)
	}
	if ttl := storage.ttls[domain.CounterKey("10.0.0.1", decision.WindowID)]; ttl != time.Minute {
		t.Fatalf("expected TTL equal to the window, got %v", ttl)
	}
}

func TestRateLimiter_BoundaryBurstReachesTwiceTheLimit(t *testing.T) {
	// Fixed windows are bucketed independently; 2x at the boundary is accepted.
	clock := newFakeClock(time.Unix(1_700_000_040, 0).Add(59 * time.Second))
	service := newTestLimiter(t, newMockCounterCache(), Config{
		Rule: domain.RateLimitRule{Requests: 5, Window: time.Minute},
		Now:  clock.Now,
	})

	ctx := context.Background()
	admitted := 0
	for i := 0; i < 5; i++ {
		if d, _ := service.Allow(ctx, "burst"); d.Allowed {
			admitted++
		}
	}
	clock.Advance(2 * time.Second)
	for i := 0; i < 5; i++ {
		if d, _ := service.Allow(ctx, "burst"); d.Allowed {
			admitted++
		}
	}

	if admitted != 10 {
		t.Fatalf("expected 10 admissions across the boundary, got %d", admitted)
	}
}

func TestRateLimiter_UsesFallbackWhenCacheFails(t *testing.T) {
	primary := newMockCounterCache()
	primary.err = errors.New("connection refused")
	fallback := newMockCounterCache()

	service := newTestLimiter(t, primary, Config{
		Rule:     domain.RateLimitRule{Requests: 1, Window: time.Minute},
		Fallback: fallback,
	})

	ctx := context.Background()

	decision, err := service.Allow(ctx, "198.51.100.5")
	if err != nil || !decision.Allowed || !decision.Degraded {
		t.Fatalf("expected degraded admission, decision=%+v err=%v", decision, err)
	}

	// The fallback still enforces the limit.
	if _, err := service.Allow(ctx, "198.51.100.5"); !domain.IsRateLimitedError(err) {
		t.Fatalf("expected fallback to enforce the limit, got %v", err)
	}
}

func TestRateLimiter_FailsClosedWithoutFallback(t *testing.T) {
	primary := newMockCounterCache()
	primary.err = domain.NewStoreError("redis get", errors.New("timeout"))

	service := newTestLimiter(t, primary, Config{
		Rule: domain.RateLimitRule{Requests: 10, Window: time.Minute},
	})

	decision, err := service.Allow(context.Background(), "198.51.100.7")
	if err == nil || !domain.IsTransientStoreError(err) {
		t.Fatalf("expected transient store error, got %v", err)
	}
	if decision.Allowed {
		t.Fatalf("expected request to be denied when the cache is down")
	}
}

func TestRateLimiter_LostRaceIsDenied(t *testing.T) {
	storage := newMockCounterCache()
	storage.staleGet = true

	service := newTestLimiter(t, storage, Config{
		Rule: domain.RateLimitRule{Requests: 2, Window: time.Minute},
	})

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := service.Allow(ctx, "race"); err != nil {
			t.Fatalf("unexpected error on attempt %d: %v", i+1, err)
		}
	}

	decision, err := service.Allow(ctx, "race")
	if !domain.IsRateLimitedError(err) || decision.Allowed {
		t.Fatalf("expected increment past the limit to be denied, decision=%+v err=%v", decision, err)
	}
}

func TestRateLimiter_ConcurrentSameOrigin(t *testing.T) {
	service := newTestLimiter(t, newMockCounterCache(), Config{
		Rule: domain.RateLimitRule{Requests: 50, Window: time.Hour},
	})

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
	)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if d, err := service.Allow(context.Background(), "203.0.113.10"); err == nil && d.Allowed {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if admitted != 50 {
		t.Fatalf("expected exactly 50 admissions, got %d", admitted)
	}
}

func TestNewRateLimiterService_Validation(t *testing.T) {
	if _, err := NewRateLimiterService(nil, Config{Rule: domain.RateLimitRule{Requests: 1, Window: time.Second}}); err == nil {
		t.Fatal("expected error for nil storage")
	}
	if _, err := NewRateLimiterService(newMockCounterCache(), Config{}); err == nil {
		t.Fatal("expected error for empty rule")
	}
	service := newTestLimiter(t, newMockCounterCache(), Config{Rule: domain.RateLimitRule{Requests: 1, Window: time.Second}})
	if _, err := service.Allow(context.Background(), "  "); err == nil {
		t.Fatal("expected error for blank origin")
	}
}

// newTestLimiter is a helper that fails the test immediately if creation fails.
func newTestLimiter(t *testing.T, storage *mockCounterCache, cfg Config) *RateLimiterService {
	t.Helper()
	service, err := NewRateLimiterService(storage, cfg)
	if err != nil {
		t.Fatalf("failed to create rate limiter service: %v", err)
	}
	return service
}

type mockCounterCache struct {
	mu     sync.Mutex
	counts map[string]int64
	ttls   map[string]time.Duration
	err    error
	// staleGet makes Get report zero, simulating a concurrent writer.
	staleGet bool
}

func newMockCounterCache() *mockCounterCache {
	return &mockCounterCache{
		counts: make(map[string]int64),
		ttls:   make(map[string]time.Duration),
	}
}

func (m *mockCounterCache) Get(_ context.Context, key string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, false, m.err
	}
	if m.staleGet {
		return 0, false, nil
	}
	v, ok := m.counts[key]
	return v, ok, nil
}

func (m *mockCounterCache) Increment(_ context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	if _, ok := m.counts[key]; !ok {
		m.ttls[key] = ttl
	}
	m.counts[key]++
	return m.counts[key], nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

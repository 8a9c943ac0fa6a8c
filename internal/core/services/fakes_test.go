package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/RyanrealAF/Labcoat/internal/core/domain"
)

var errStoreDown = domain.NewStoreError("fake", errors.New("store down"))

type ledgerEntry struct {
	origin string
	text   string
	at     time.Time
}

type fakeLedger struct {
	mu      sync.Mutex
	entries []ledgerEntry
	err     error
}

func (l *fakeLedger) Append(_ context.Context, origin, text string, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.entries = append(l.entries, ledgerEntry{origin: origin, text: text, at: at})
	return nil
}

// fill appends n requests from origin spread evenly over the span ending at end.
func (l *fakeLedger) fill(origin string, n int, end time.Time, span time.Duration) {
	for i := 0; i < n; i++ {
		at := end.Add(-span + time.Duration(i+1)*span/time.Duration(n+1))
		l.entries = append(l.entries, ledgerEntry{origin: origin, text: "q", at: at})
	}
}

func (l *fakeLedger) CountByOrigin(_ context.Context, since time.Time) (map[string]int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	counts := make(map[string]int64)
	for _, e := range l.entries {
		if e.at.After(since) {
			counts[e.origin]++
		}
	}
	return counts, nil
}

func (l *fakeLedger) CountAll(_ context.Context, since time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return 0, l.err
	}
	var n int64
	for _, e := range l.entries {
		if e.at.After(since) {
			n++
		}
	}
	return n, nil
}

func (l *fakeLedger) CountTotal(_ context.Context) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return int64(len(l.entries)), l.err
}

type fakeBans struct {
	mu      sync.Mutex
	origins map[string]int
	fail    map[string]bool
}

func newFakeBans() *fakeBans {
	return &fakeBans{origins: map[string]int{}, fail: map[string]bool{}}
}

func (b *fakeBans) InsertIfAbsent(_ context.Context, origin string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail[origin] {
		return false, errStoreDown
	}
	if _, ok := b.origins[origin]; ok {
		return false, nil
	}
	b.origins[origin] = 1
	return true, nil
}

func (b *fakeBans) Contains(_ context.Context, origin string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.origins[origin]
	return ok, nil
}

func (b *fakeBans) Count(_ context.Context) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return int64(len(b.origins)), nil
}

type fakeHistory struct {
	mu      sync.Mutex
	records []domain.ThreatSignature
	err     error
}

func (h *fakeHistory) Record(_ context.Context, sig domain.ThreatSignature) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return h.err
	}
	h.records = append(h.records, sig)
	return nil
}

type fakeConfigStore struct {
	mu     sync.Mutex
	values map[string]string
	getErr error
	setErr error
	reads  int
}

func newFakeConfigStore() *fakeConfigStore {
	return &fakeConfigStore{values: map[string]string{}}
}

func (c *fakeConfigStore) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads++
	if c.getErr != nil {
		return "", false, c.getErr
	}
	v, ok := c.values[key]
	return v, ok, nil
}

func (c *fakeConfigStore) Set(_ context.Context, key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.values[key] = value
	return nil
}

type fakeAlerter struct {
	mu     sync.Mutex
	alerts []domain.Alert
	err    error
}

func (a *fakeAlerter) Send(_ context.Context, alert domain.Alert) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, alert)
	return a.err
}

func (a *fakeAlerter) bySeverity(s domain.Severity) []domain.Alert {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []domain.Alert
	for _, al := range a.alerts {
		if al.Severity == s {
			out = append(out, al)
		}
	}
	return out
}

type fakeSchemaStore struct {
	version int
	ok      bool
	err     error
}

func (s fakeSchemaStore) LatestVersion(context.Context) (int, bool, error) {
	return s.version, s.ok, s.err
}

// hangingLedger never answers until the caller's context ends.
type hangingLedger struct {
	fakeLedger
}

func (l *hangingLedger) CountByOrigin(ctx context.Context, _ time.Time) (map[string]int64, error) {
	<-ctx.Done()
	return nil, domain.NewStoreError("hanging ledger", ctx.Err())
}

func (l *hangingLedger) CountAll(ctx context.Context, _ time.Time) (int64, error) {
	<-ctx.Done()
	return 0, domain.NewStoreError("hanging ledger", ctx.Err())
}

// Package memory implementa um Counter Cache local, usado como fallback
// quando o Redis está indisponível e em ambientes de desenvolvimento.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/RyanrealAF/Labcoat/internal/core/ports"
)

// DefaultSweepInterval bounds how often expired keys are swept in bulk.
const DefaultSweepInterval = time.Minute

type Storage struct {
	mu        sync.Mutex
	now       func() time.Time
	items     map[string]entry
	every     time.Duration
	lastSweep time.Time
}

type entry struct {
	value     int64
	expiresAt time.Time
}

var _ ports.CounterCache = (*Storage)(nil)

func New() *Storage {
	return NewWithClock(time.Now)
}

func NewWithClock(now func() time.Time) *Storage {
	return &Storage{now: now, items: make(map[string]entry), every: DefaultSweepInterval, lastSweep: now()}
}

func (s *Storage) Get(_ context.Context, key string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.maybeSweepLocked(now)
	item, ok := s.liveLocked(key, now)
	if !ok {
		return 0, false, nil
	}
	return item.value, true, nil
}

func (s *Storage) Increment(_ context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.maybeSweepLocked(now)
	item, ok := s.liveLocked(key, now)
	if !ok {
		item = entry{expiresAt: now.Add(ttl)}
	}
	item.value++
	s.items[key] = item
	return item.value, nil
}

// Len reports live keys after a full sweep.
func (s *Storage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(s.now())
	return len(s.items)
}

// liveLocked drops key if it has expired.
func (s *Storage) liveLocked(key string, now time.Time) (entry, bool) {
	item, ok := s.items[key]
	if !ok {
		return entry{}, false
	}
	if !now.Before(item.expiresAt) {
		delete(s.items, key)
		return entry{}, false
	}
	return item, true
}

func (s *Storage) maybeSweepLocked(now time.Time) {
	if now.Sub(s.lastSweep) < s.every {
		return
	}
	s.sweepLocked(now)
}

func (s *Storage) sweepLocked(now time.Time) {
	s.lastSweep = now
	for k, v := range s.items {
		if !now.Before(v.expiresAt) {
			delete(s.items, k)
		}
	}
}

// Package domain concentra entidades e estruturas centrais do sentinel.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// RateLimitRule descreve a janela fixa aplicada por origem.
type RateLimitRule struct {
	Requests int
	Window   time.Duration
}

type Decision struct {
	Allowed      bool
	Origin       string
	AppliedRule  RateLimitRule
	CurrentCount int64
	WindowID     int64
	ResetAt      time.Time
	Degraded     bool
}

// RetryAfter is the time left until the window rolls over.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if d.ResetAt.IsZero() || !d.ResetAt.After(now) {
		return 0
	}
	return d.ResetAt.Sub(now)
}

// WindowID returns floor(t / window) for the fixed-window bucket containing t.
func WindowID(t time.Time, window time.Duration) int64 {
	if window <= 0 {
		return 0
	}
	return t.UnixNano() / int64(window)
}

// WindowEnd returns the instant the bucket with the given id closes.
func WindowEnd(id int64, window time.Duration) time.Time {
	return time.Unix(0, (id+1)*int64(window))
}

// CounterKey builds the Counter Cache key for an (origin, window) pair.
func CounterKey(origin string, windowID int64) string {
	origin = strings.ToLower(strings.TrimSpace(origin))
	return fmt.Sprintf("ratelimit:%s:%d", origin, windowID)
}

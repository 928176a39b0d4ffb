// Package ratelimit implements the sliding-window admission check run
// before every write. It never blocks: callers that are rejected must
// back off themselves.
package ratelimit

import (
	"sync"
	"time"

	"github.com/MadlinksCoding/routelog/internal/errs"
)

const (
	// DefaultLimit is the maximum writes admitted per window.
	DefaultLimit = 1000
	// DefaultWindow is the trailing admission window.
	DefaultWindow = time.Second
)

// Limiter tracks admission timestamps in a trailing window.
type Limiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	stamps []time.Time
	now    func() time.Time
}

// New builds a limiter. limit <= 0 or window <= 0 fall back to defaults;
// now may be nil for the wall clock.
func New(limit int, window time.Duration, now func() time.Time) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if now == nil {
		now = time.Now
	}
	return &Limiter{limit: limit, window: window, now: now}
}

// Allow prunes expired entries, then either admits the attempt (recording
// its timestamp) or returns a rate-limit error. Synchronous and
// non-blocking.
func (l *Limiter) Allow() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)
	keep := 0
	for ; keep < len(l.stamps); keep++ {
		if l.stamps[keep].After(cutoff) {
			break
		}
	}
	l.stamps = l.stamps[keep:]

	if len(l.stamps) >= l.limit {
		return errs.New(errs.RateLimit, "write rate limit of %d per %v exceeded", l.limit, l.window)
	}
	l.stamps = append(l.stamps, now)
	return nil
}

// InWindow returns the number of admissions currently inside the window.
func (l *Limiter) InWindow() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.stamps)
}

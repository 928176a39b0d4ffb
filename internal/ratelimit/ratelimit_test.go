package ratelimit

import (
	"testing"
	"time"

	"github.com/MadlinksCoding/routelog/internal/errs"
)

func TestLimiter_AdmitsUpToLimit(t *testing.T) {
	now := time.Unix(1000, 0)
	l := New(3, time.Second, func() time.Time { return now })
	for i := 0; i < 3; i++ {
		if err := l.Allow(); err != nil {
			t.Fatalf("attempt %d rejected: %v", i, err)
		}
	}
	err := l.Allow()
	if err == nil {
		t.Fatal("expected rejection at limit")
	}
	if !errs.Is(err, errs.RateLimit) {
		t.Fatalf("expected rate_limit class, got %v", err)
	}
}

func TestLimiter_WindowSlides(t *testing.T) {
	now := time.Unix(1000, 0)
	l := New(2, time.Second, func() time.Time { return now })
	if err := l.Allow(); err != nil {
		t.Fatalf("first: %v", err)
	}
	if err := l.Allow(); err != nil {
		t.Fatalf("second: %v", err)
	}
	if err := l.Allow(); err == nil {
		t.Fatal("expected rejection inside window")
	}
	// Advance past the window; old stamps must be pruned.
	now = now.Add(1100 * time.Millisecond)
	if err := l.Allow(); err != nil {
		t.Fatalf("expected admission after window slid: %v", err)
	}
	if l.InWindow() != 1 {
		t.Fatalf("expected 1 stamp after pruning, got %d", l.InWindow())
	}
}

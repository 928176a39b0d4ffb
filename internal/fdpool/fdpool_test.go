package fdpool

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPool_AcquireRelease(t *testing.T) {
	p := New(2)
	ctx := context.Background()
	if err := p.Acquire(ctx); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := p.Acquire(ctx); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if p.Active() != 2 {
		t.Fatalf("expected 2 active, got %d", p.Active())
	}
	p.Release()
	p.Release()
	if p.Active() != 0 {
		t.Fatalf("expected pool drained, got %d", p.Active())
	}
}

func TestPool_AcquireBlocksAtCapacity(t *testing.T) {
	p := New(1)
	ctx := context.Background()
	if err := p.Acquire(ctx); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	acquired := make(chan error, 1)
	go func() { acquired <- p.Acquire(ctx) }()

	select {
	case err := <-acquired:
		t.Fatalf("second acquire should block, returned %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	p.Release()
	select {
	case err := <-acquired:
		if err != nil {
			t.Fatalf("acquire after release: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("acquire did not proceed after release")
	}
	p.Release()
}

func TestPool_AcquireHonorsContext(t *testing.T) {
	p := New(1)
	if err := p.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := p.Acquire(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	p.Release()
}

func TestPool_ReleaseWithoutAcquirePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on unbalanced release")
		}
	}()
	New(1).Release()
}

// Package fdpool bounds the number of concurrent physical write
// operations. It is a counting semaphore: Acquire parks the caller
// cooperatively until a slot frees up, Release must run on every exit
// path.
package fdpool

import "context"

// DefaultCapacity bounds in-flight writes under bursty load.
const DefaultCapacity = 100

// Pool is a fixed-capacity admission gate for writes. Admission is FIFO
// to the extent the runtime's channel scheduling provides; no stronger
// fairness is guaranteed.
type Pool struct {
	sem chan struct{}
}

// New returns a pool with the given capacity. capacity <= 0 falls back
// to DefaultCapacity.
func New(capacity int) *Pool {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Pool{sem: make(chan struct{}, capacity)}
}

// Acquire blocks until a slot is free or ctx is done.
func (p *Pool) Acquire(ctx context.Context) error {
	select {
	case p.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot. Calling Release without a matching Acquire is a
// programming error and panics via the channel receive below.
func (p *Pool) Release() {
	select {
	case <-p.sem:
	default:
		panic("fdpool: release without acquire")
	}
}

// Active returns the number of slots currently held.
func (p *Pool) Active() int { return len(p.sem) }

// Capacity returns the pool's fixed capacity.
func (p *Pool) Capacity() int { return cap(p.sem) }

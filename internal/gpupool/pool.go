// Package gpupool provides a bounded-concurrency admission primitive for
// GPU-using detectors, built on golang.org/x/sync/semaphore so acquisition
// is FIFO, cancellable, and leak-proof across panics (spec §4.2).
package gpupool

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Pool bounds how many GPU-class detectors may run concurrently. Every
// detector whose ResourceClass is gpu_heavy or gpu_light holds exactly one
// permit; the pool does not reason about sub-permits — tuning is done by
// setting capacity.
type Pool struct {
	sem      *semaphore.Weighted
	capacity int64
}

// New returns a Pool admitting at most capacity concurrent GPU-class
// detectors. capacity must be positive.
func New(capacity int) *Pool {
	if capacity <= 0 {
		capacity = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(capacity)), capacity: int64(capacity)}
}

// Capacity returns the configured pool size.
func (p *Pool) Capacity() int64 { return p.capacity }

// Permit represents one held unit of GPU admission. Release must be called
// exactly once, typically via defer immediately after a successful Acquire.
type Permit struct {
	pool *Pool
}

// Release returns the permit to the pool. Safe to call from a deferred
// recover() path after a panic in the detector body.
func (p *Permit) Release() {
	if p == nil || p.pool == nil {
		return
	}
	p.pool.sem.Release(1)
}

// Acquire blocks (FIFO order, per x/sync/semaphore) until a permit is
// available or ctx is canceled. On cancellation no permit is held and the
// caller must not call Release.
func (p *Pool) Acquire(ctx context.Context) (*Permit, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return &Permit{pool: p}, nil
}

// TryAcquire attempts a non-blocking acquisition, returning (nil, false) if
// the pool is currently at capacity.
func (p *Pool) TryAcquire() (*Permit, bool) {
	if !p.sem.TryAcquire(1) {
		return nil, false
	}
	return &Permit{pool: p}, true
}

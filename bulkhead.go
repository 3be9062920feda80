package r9y

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------.

type bulkheadConfig struct {
	maxWait    time.Duration // 0 means reject immediately when full
	maxWaiting int           // 0 means unbounded wait queue (when maxWait > 0)
}

// BulkheadOption configures bulkhead admission behavior.
type BulkheadOption func(*bulkheadConfig)

// AdmissionTimeout lets a caller arriving at a full bulkhead wait up to d
// for a slot instead of being rejected immediately.
func AdmissionTimeout(d time.Duration) BulkheadOption {
	return func(cfg *bulkheadConfig) {
		cfg.maxWait = d
	}
}

// MaxWaiting bounds the admission wait queue to n callers; arrivals beyond
// that are rejected immediately even when a wait is configured.
func MaxWaiting(n int) BulkheadOption {
	return func(cfg *bulkheadConfig) {
		cfg.maxWaiting = n
	}
}

// Bulkhead caps concurrent in-flight invocations of one operation class so
// that exhaustion of one dependency cannot starve another. Distinct
// bulkheads may be configured per dependency; all callers to a dependency
// share one instance.
//
// Pattern: Bulkhead — weighted-semaphore concurrency limiter with an
// optional bounded wait queue. The semaphore owns the only shared mutable
// slot state; the waiting counter is a plain atomic.
type Bulkhead struct {
	sem      *semaphore.Weighted
	hooks    *Hooks
	cfg      bulkheadConfig
	capacity int64
	inFlight atomic.Int64
	waiting  atomic.Int64
}

// NewBulkhead creates a bulkhead that allows at most maxConcurrent
// simultaneous calls.
func NewBulkhead(maxConcurrent int, hooks *Hooks, opts ...BulkheadOption) *Bulkhead {
	var cfg bulkheadConfig
	for _, o := range opts {
		o(&cfg)
	}

	return &Bulkhead{
		sem:      semaphore.NewWeighted(int64(maxConcurrent)),
		hooks:    hooks,
		cfg:      cfg,
		capacity: int64(maxConcurrent),
	}
}

// Acquire leases one of the bulkhead's slots. When all slots are taken the
// caller either waits up to the configured admission timeout, or — if no
// wait is configured or the wait queue is itself at capacity — receives
// ErrBulkheadFull immediately. A caller whose context is cancelled while
// queued gets the context's error, not a rejection. No lock is held while
// waiting.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	if b.sem.TryAcquire(1) {
		b.inFlight.Add(1)
		b.hooks.emitBulkheadAcquired()

		return nil
	}

	if b.cfg.maxWait <= 0 {
		b.hooks.emitRejection(Rejection{Kind: KindBulkheadRejected, At: time.Now()})
		return ErrBulkheadFull
	}

	if b.cfg.maxWaiting > 0 && b.waiting.Add(1) > int64(b.cfg.maxWaiting) {
		b.waiting.Add(-1)
		b.hooks.emitRejection(Rejection{Kind: KindBulkheadRejected, At: time.Now()})

		return ErrBulkheadFull
	} else if b.cfg.maxWaiting <= 0 {
		b.waiting.Add(1)
	}

	defer b.waiting.Add(-1)

	waitCtx, cancel := context.WithTimeout(ctx, b.cfg.maxWait)
	defer cancel()

	if err := b.sem.Acquire(waitCtx, 1); err != nil {
		// Caller cancellation propagates as-is; only an expired admission
		// wait is a bulkhead rejection.
		if ctx.Err() != nil {
			return ctx.Err()
		}

		b.hooks.emitRejection(Rejection{Kind: KindBulkheadRejected, At: time.Now()})

		return ErrBulkheadFull
	}

	b.inFlight.Add(1)
	b.hooks.emitBulkheadAcquired()

	return nil
}

// Release returns a slot. Every successful Acquire must be paired with
// exactly one Release, on every exit path.
func (b *Bulkhead) Release() {
	b.inFlight.Add(-1)
	b.sem.Release(1)
	b.hooks.emitBulkheadReleased()
}

// Full reports whether all slots are in use.
func (b *Bulkhead) Full() bool {
	return b.inFlight.Load() >= b.capacity
}

// InFlight returns the number of currently leased slots.
func (b *Bulkhead) InFlight() int {
	return int(b.inFlight.Load())
}

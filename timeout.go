package r9y

import (
	"context"
	"time"
)

// Pattern: Timeout — wraps a call with a context deadline, returning
// ErrTimeout if the operation does not complete in time. Distinguishes
// between timeout-caused cancellation and parent context cancellation.

// DoTimeout executes fn with a deadline of d. If fn does not complete in
// time, its context is cancelled — delivery of that signal is guaranteed —
// and ErrTimeout is returned immediately without waiting for fn to unwind.
// An operation that ignores the cancellation keeps running in the
// background; any result it produces after the deadline is discarded, never
// returned to the caller.
func DoTimeout[T any](
	ctx context.Context,
	d time.Duration,
	fn func(context.Context) (T, error),
	hooks *Hooks,
) (T, error) {
	var zero T

	// If the parent context is already done, return its error immediately.
	if ctx.Err() != nil {
		return zero, ctx.Err()
	}

	// Create derived context with timeout. The deferred cancel is the
	// guaranteed delivery of the cancellation signal on every exit path.
	timeoutCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		val T
		err error
	}

	// Buffered so a late completion never blocks the abandoned goroutine.
	ch := make(chan result, 1)

	go func() {
		v, err := fn(timeoutCtx)
		ch <- result{val: v, err: err}
	}()

	select {
	case r := <-ch:
		return r.val, r.err
	case <-timeoutCtx.Done():
		// Distinguish between timeout and parent cancellation.
		// If the parent context is done, the parent was cancelled externally.
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		hooks.emitTimeout(TimeoutExceeded{Limit: d, At: time.Now()})

		return zero, ErrTimeout
	}
}

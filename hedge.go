package r9y

import (
	"context"
	"time"
)

// Pattern: Hedged Request — after a delay, fire a second concurrent attempt.
// The first response wins; the other is cancelled. This reduces tail latency
// by racing redundant requests.

// hedgeResult holds the outcome of a hedged call attempt.
type hedgeResult[T any] struct {
	err       error
	val       T
	isPrimary bool
}

// DoHedge executes fn and, if it hasn't completed after delay, fires a
// second concurrent attempt. The first success wins; the loser is
// cancelled. Both goroutines deliver into a buffered channel, so neither
// is ever abandoned blocked.
func DoHedge[T any](
	ctx context.Context,
	delay time.Duration,
	fn func(context.Context) (T, error),
	hooks *Hooks,
	clock Clock,
) (T, error) {
	var zero T

	// If the parent context is already done, return its error immediately.
	if ctx.Err() != nil {
		return zero, ctx.Err()
	}

	// Buffered channel of size 2 to receive results from both goroutines.
	results := make(chan hedgeResult[T], 2)

	primaryCtx, primaryCancel := context.WithCancel(ctx)
	defer primaryCancel()

	go func() {
		v, err := fn(primaryCtx)
		results <- hedgeResult[T]{val: v, err: err, isPrimary: true}
	}()

	timer := clock.NewTimer(delay)

	// Wait for primary completion, timer, or context cancellation.
	select {
	case result := <-results:
		// Primary completed before the hedge delay elapsed.
		timer.Stop()
		return result.val, result.err

	case <-timer.C():
		// Delay elapsed; primary is still running. Fire the hedge.
		hooks.emitHedgeTriggered()

		hedgeCtx, hedgeCancel := context.WithCancel(ctx)
		defer hedgeCancel()

		go func() {
			v, err := fn(hedgeCtx)
			results <- hedgeResult[T]{val: v, err: err, isPrimary: false}
		}()

		return waitForResults(ctx, results, primaryCancel, hedgeCancel, hooks)

	case <-ctx.Done():
		timer.Stop()
		return zero, ctx.Err()
	}
}

// waitForResults waits for results from both the primary and hedge
// goroutines after the hedge has been triggered. It returns the first
// successful result, or the first error received if both fail.
func waitForResults[T any](
	ctx context.Context,
	results chan hedgeResult[T],
	primaryCancel, hedgeCancel context.CancelFunc,
	hooks *Hooks,
) (T, error) {
	var zero T

	select {
	case result := <-results:
		if result.err == nil {
			// Success: cancel the loser.
			if result.isPrimary {
				hedgeCancel()
			} else {
				primaryCancel()
				hooks.emitHedgeWon()
			}

			return result.val, nil
		}

		// First result was an error. Wait for the second.
		select {
		case r2 := <-results:
			if r2.err == nil {
				if r2.isPrimary {
					hedgeCancel()
				} else {
					primaryCancel()
					hooks.emitHedgeWon()
				}

				return r2.val, nil
			}
			// Both failed. Return the first error received.
			return zero, result.err

		case <-ctx.Done():
			return zero, ctx.Err()
		}

	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

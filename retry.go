package r9y

import (
	"context"
	"fmt"
	"time"
)

// retryConfig holds the optional configuration for retry behavior.
type retryConfig struct {
	maxDelay       time.Duration    // 0 means no cap
	retryIf        func(error) bool // nil means classification alone decides
	exemptTimeouts bool             // timed-out attempts don't consume budget
}

// RetryOption configures retry behavior.
type RetryOption func(*retryConfig)

// MaxDelay caps the backoff delay to a maximum value.
func MaxDelay(d time.Duration) RetryOption {
	return func(cfg *retryConfig) {
		cfg.maxDelay = d
	}
}

// RetryIf sets a custom predicate consulted in addition to the [Kind]
// classification; returning false stops the retry loop.
func RetryIf(fn func(error) bool) RetryOption {
	return func(cfg *retryConfig) {
		cfg.retryIf = fn
	}
}

// ExemptTimeouts makes timed-out attempts free: they are retried without
// consuming the attempt budget. The loop stays bounded by the caller's
// context. By default timeouts consume budget exactly like transient
// failures.
func ExemptTimeouts() RetryOption {
	return func(cfg *retryConfig) {
		cfg.exemptTimeouts = true
	}
}

// Pattern: Retry with Backoff — masks transient failures with a configurable
// backoff strategy; respects error classification to stop early.

// DoRetry executes fn with retry logic. It retries transient and timed-out
// failures up to maxAttempts times using the given BackoffStrategy.
// Permanent errors, cancellations, and engine-generated rejections
// (circuit open, bulkhead full, rate limited) are never retried.
//
// The attempt counter and backoff state are per-invocation; nothing is
// shared across concurrent calls. Cancellation is honoured at the start of
// every attempt and during the inter-attempt sleep — an in-progress sleep
// unwinds promptly with the context's error instead of completing the
// delay.
func DoRetry[T any](
	ctx context.Context,
	maxAttempts int,
	strategy BackoffStrategy,
	fn func(context.Context) (T, error),
	hooks *Hooks,
	clock Clock,
	opts ...RetryOption,
) (T, error) {
	var cfg retryConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	// When maxAttempts is 0 or 1, execute exactly once.
	if maxAttempts <= 1 {
		maxAttempts = 1
	}

	var (
		zero    T
		lastErr error
	)

	consumed := 0 // attempts charged against the budget
	retries := 0  // backoff schedule position, grows on every retry

	for {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}

		lastErr = err
		kind := Classify(err)

		if !retryable(kind) {
			return zero, err
		}

		if cfg.retryIf != nil && !cfg.retryIf(err) {
			return zero, err
		}

		if kind != KindTimeout || !cfg.exemptTimeouts {
			consumed++
			if consumed >= maxAttempts {
				break
			}
		}

		// Compute backoff delay, capped by MaxDelay.
		delay := strategy.Delay(retries)
		retries++

		if cfg.maxDelay > 0 && delay > cfg.maxDelay {
			delay = cfg.maxDelay
		}

		hooks.emitRetry(RetryAttempt{Attempt: retries, Delay: delay, Err: err})

		// Sleep using Clock.NewTimer, respecting context cancellation.
		timer := clock.NewTimer(delay)
		select {
		case <-timer.C():
			// Timer fired, proceed to next attempt.
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		}
	}

	// All attempts exhausted: wrap last error with ErrRetriesExhausted.
	return zero, fmt.Errorf("%w: %w", ErrRetriesExhausted, lastErr)
}

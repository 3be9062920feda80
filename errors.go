package r9y

import (
	"context"
	"errors"
)

// ---------------------------------------------------------------------------
// Error classification
// ---------------------------------------------------------------------------.

// Kind classifies a call outcome for retry, circuit breaker, and fallback
// decisions. Classification happens at the engine boundary via [Classify];
// wrapped causes are preserved and can be inspected with errors.Is/As.
type Kind int

const (
	// KindNone is the classification of a nil error.
	KindNone Kind = iota
	// KindTransient marks a failure expected to be temporary; retryable and
	// counted against circuit health.
	KindTransient
	// KindPermanent marks a caller/input fault; never retried, never counted
	// against circuit health.
	KindPermanent
	// KindCancelled marks a caller-initiated cancellation; propagates
	// immediately through every layer.
	KindCancelled
	// KindTimeout marks a deadline expiry; treated like KindTransient for
	// retry and circuit purposes.
	KindTimeout
	// KindCircuitOpen marks a synthetic rejection by an open circuit breaker.
	// The operation was never invoked.
	KindCircuitOpen
	// KindBulkheadRejected marks a synthetic rejection for lack of bulkhead
	// capacity. The operation was never invoked.
	KindBulkheadRejected
	// KindRateLimited marks a synthetic rejection by a rate limiter.
	KindRateLimited
)

// String returns the kind as a snake_case label suitable for structured
// logging and metrics.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	case KindCancelled:
		return "cancelled"
	case KindTimeout:
		return "timeout"
	case KindCircuitOpen:
		return "circuit_open"
	case KindBulkheadRejected:
		return "bulkhead_rejected"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}

type (
	// ResilienceError identifies errors produced by the resilience layer
	// itself, as opposed to errors from the wrapped operation.
	ResilienceError interface {
		error
		// IsResilience reports whether this error originates from the
		// resilience layer.
		IsResilience() bool
	}

	// transientError marks a wrapped error as transient (retriable).
	transientError struct {
		err error
	}

	// permanentError marks a wrapped error as permanent (non-retriable).
	permanentError struct {
		err error
	}

	// resilienceError is the concrete type backing all sentinel errors.
	resilienceError string
)

// Sentinel resilience errors.
var (
	// ErrCircuitOpen is returned when the circuit breaker rejects a call
	// without invoking the operation.
	ErrCircuitOpen error = resilienceError("circuit breaker is open")
	// ErrBulkheadFull is returned when the bulkhead has no available capacity
	// and either no wait is configured or the admission wait expired.
	ErrBulkheadFull error = resilienceError("bulkhead full")
	// ErrRateLimited is returned when a call is rejected by a rate limiter.
	ErrRateLimited error = resilienceError("rate limited")
	// ErrTimeout is returned when an operation exceeds its per-attempt
	// deadline.
	ErrTimeout error = resilienceError("timeout")
	// ErrRetriesExhausted wraps the last failure when all retry attempts
	// have been used.
	ErrRetriesExhausted error = resilienceError("retries exhausted")
)

func (e *transientError) Error() string { return "transient: " + e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func (e *permanentError) Error() string { return "permanent: " + e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func (e resilienceError) Error() string { return string(e) }

// IsResilience reports whether the error is a resilience infrastructure error.
func (resilienceError) IsResilience() bool { return true }

// Transient wraps err to mark it as a transient (retriable) error.
// Returns nil if err is nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}

	return &transientError{err: err}
}

// Permanent wraps err to mark it as a permanent (non-retriable) error.
// Returns nil if err is nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}

	return &permanentError{err: err}
}

// Classify maps err to its [Kind]. Engine sentinels take precedence, then
// cancellation and deadline errors from the context package, then the
// Transient/Permanent wrappers. Unclassified errors are treated as
// transient: an unknown failure from a remote dependency is assumed
// worth retrying.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}

	switch {
	case errors.Is(err, ErrCircuitOpen):
		return KindCircuitOpen
	case errors.Is(err, ErrBulkheadFull):
		return KindBulkheadRejected
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, ErrTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCancelled
	}

	var pe *permanentError
	if errors.As(err, &pe) {
		return KindPermanent
	}

	return KindTransient
}

// IsTransient reports whether err is transient. Unclassified (unwrapped)
// errors are treated as transient. Returns false for nil.
func IsTransient(err error) bool {
	return Classify(err) == KindTransient
}

// IsPermanent reports whether err was explicitly marked as permanent.
// Returns false for nil and for unclassified errors.
func IsPermanent(err error) bool {
	return Classify(err) == KindPermanent
}

// IsCancelled reports whether err carries a caller-initiated cancellation.
func IsCancelled(err error) bool {
	return Classify(err) == KindCancelled
}

// IsTimeout reports whether err is a per-attempt or deadline timeout.
func IsTimeout(err error) bool {
	return Classify(err) == KindTimeout
}

// retryable reports whether a failure of kind k may be retried.
// Only transient failures and timeouts are; permanent errors,
// cancellations, and engine-generated rejections are not.
func retryable(k Kind) bool {
	return k == KindTransient || k == KindTimeout
}

// countsAsFailure reports whether a failure of kind k counts toward a
// circuit breaker's failure threshold. Permanent errors and cancellations
// indicate the caller's fault, not the dependency's health.
func countsAsFailure(k Kind) bool {
	return k == KindTransient || k == KindTimeout
}

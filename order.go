package r9y

import "sort"

// PatternEntry holds a middleware with its priority for auto-ordering.
type PatternEntry[T any] struct {
	MW       Middleware[T]
	Name     string
	Priority int
}

// Priority constants define the execution order for resilience patterns.
// Lower priority = outermost middleware (executed first).
//
// The nesting is deliberate: the fallback chain is the last line of defence
// and wraps everything; rate limiter and bulkhead gate admission before the
// circuit breaker's state is consulted, so capacity rejections never count
// as dependency failures; the breaker gates before retries, so one logical
// call against a known-bad dependency cannot burn its whole retry budget;
// and the timeout sits innermost so each retry (or hedge) attempt gets its
// own deadline.
const (
	priorityFallback       = 0 // outermost — last resort
	priorityRateLimiter    = 1
	priorityBulkhead       = 2 // admission before health gating
	priorityCircuitBreaker = 3
	priorityRetry          = 4
	priorityHedge          = 5
	priorityTimeout        = 6 // innermost — per-attempt deadline
)

// SortPatterns sorts pattern entries by priority (lowest first = outermost).
// Stable sort to preserve order of patterns with same priority.
func SortPatterns[T any](entries []PatternEntry[T]) []Middleware[T] {
	if len(entries) == 0 {
		return nil
	}

	// Copy to avoid mutating the caller's slice.
	sorted := make([]PatternEntry[T], 0, len(entries))
	sorted = append(sorted, entries...)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})

	mws := make([]Middleware[T], 0, len(sorted))
	for _, e := range sorted {
		mws = append(mws, e.MW)
	}

	return mws
}

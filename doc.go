// Package r9y is a resilience-policy engine for calls to unreliable
// dependencies.
//
// The central type is Policy[T], which wraps an operation — any
// func(context.Context) (T, error) — with composable fault-tolerance
// patterns: per-attempt timeout, retry with jittered exponential backoff,
// circuit breaking, bulkhead concurrency isolation, rate limiting, hedging,
// and an ordered fallback chain. Errors crossing the engine boundary are
// classified into kinds (transient, permanent, cancelled, timed out, plus
// the engine-generated circuit-open and bulkhead-rejected rejections), and
// that classification drives every retry, breaker, and fallback decision.
// Policies automatically report health status for readiness probes.
package r9y

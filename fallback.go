package r9y

import "context"

// Pattern: Fallback — on terminal failure of the primary path, try ordered
// alternative providers (secondary source, cache, static default). The
// first success short-circuits the chain; a cancelled call propagates
// immediately without trying alternates.

type (
	// FallbackProvider is one entry in a fallback chain: a named alternative
	// source for the same value.
	FallbackProvider[T any] struct {
		// Run produces the value. It receives the caller's context.
		Run func(context.Context) (T, error)
		// Name identifies the provider in events and results.
		Name string
	}

	// FallbackResult pairs a value with its provenance, so callers can
	// distinguish authoritative results from degraded ones.
	FallbackResult[T any] struct {
		// Provider is the name of the provider that produced the value.
		Provider string
		// Value is the successful result.
		Value T
		// Degraded is true when a non-primary provider served the value.
		Degraded bool
	}

	fallbackConfig struct {
		eligible func(error) bool
	}

	// FallbackOption configures fallback chain behavior.
	FallbackOption func(*fallbackConfig)
)

// FallbackIf sets the predicate deciding whether a failure is eligible for
// fallback. The default allows every kind except cancellation, which
// reflects caller intent and must propagate immediately.
func FallbackIf(fn func(error) bool) FallbackOption {
	return func(cfg *fallbackConfig) {
		cfg.eligible = fn
	}
}

// StaticProvider returns a provider that never fails, yielding val. Placed
// last it guarantees the chain always succeeds, at the cost of returning
// data marked degraded.
func StaticProvider[T any](name string, val T) FallbackProvider[T] {
	return FallbackProvider[T]{
		Name: name,
		Run: func(context.Context) (T, error) {
			return val, nil
		},
	}
}

// DoFallbackChain invokes providers strictly in order. The first success
// short-circuits the chain; its result is marked degraded unless the first
// provider produced it. A provider is attempted only after the previous one
// failed with an eligible error; an ineligible failure (by default, a
// cancellation) propagates immediately. When every provider fails, the
// last provider's failure is returned — the most specific signal of the
// final, most-degraded path attempted.
func DoFallbackChain[T any](
	ctx context.Context,
	providers []FallbackProvider[T],
	hooks *Hooks,
	opts ...FallbackOption,
) (FallbackResult[T], error) {
	cfg := fallbackConfig{
		eligible: func(err error) bool {
			return Classify(err) != KindCancelled
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	var (
		zero    FallbackResult[T]
		lastErr error
	)

	for i, p := range providers {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		val, err := p.Run(ctx)
		if err == nil {
			return FallbackResult[T]{
				Value:    val,
				Provider: p.Name,
				Degraded: i > 0,
			}, nil
		}

		lastErr = err

		if !cfg.eligible(err) {
			return zero, err
		}

		if i < len(providers)-1 {
			hooks.emitProviderSwitch(ProviderSwitch{
				From: p.Name,
				To:   providers[i+1].Name,
				Err:  err,
			})
		}
	}

	return zero, lastErr
}

// DoFallback executes fn. On an eligible failure, the static fallback value
// is returned instead; cancellations propagate unchanged.
func DoFallback[T any](
	ctx context.Context,
	fn func(context.Context) (T, error),
	fallbackVal T,
	hooks *Hooks,
) (T, error) {
	res, err := DoFallbackChain(ctx, []FallbackProvider[T]{
		{Name: "primary", Run: fn},
		StaticProvider("static", fallbackVal),
	}, hooks)

	return res.Value, err
}

// DoFallbackFunc executes fn. On an eligible failure, fallbackFn is called
// with the error and its result is returned; cancellations propagate
// unchanged.
func DoFallbackFunc[T any](
	ctx context.Context,
	fn func(context.Context) (T, error),
	fallbackFn func(error) (T, error),
	hooks *Hooks,
) (T, error) {
	result, err := fn(ctx)
	if err == nil {
		return result, nil
	}

	if Classify(err) == KindCancelled {
		var zero T
		return zero, err
	}

	hooks.emitProviderSwitch(ProviderSwitch{From: "primary", To: "fallback_func", Err: err})

	return fallbackFn(err)
}

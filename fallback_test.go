package r9y_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/byte4ever/r9y"
)

func failing[T any](name string, err error) r9y.FallbackProvider[T] {
	return r9y.FallbackProvider[T]{
		Name: name,
		Run: func(context.Context) (T, error) {
			var zero T
			return zero, err
		},
	}
}

func TestFallbackChainPrimarySucceeds(t *testing.T) {
	calls := 0
	providers := []r9y.FallbackProvider[string]{
		{Name: "primary", Run: func(context.Context) (string, error) {
			return "live", nil
		}},
		{Name: "cache", Run: func(context.Context) (string, error) {
			calls++
			return "stale", nil
		}},
	}

	res, err := r9y.DoFallbackChain(context.Background(), providers, &r9y.Hooks{})
	require.NoError(t, err)
	require.Equal(t, "live", res.Value)
	require.Equal(t, "primary", res.Provider)
	require.False(t, res.Degraded, "primary result must not be marked degraded")
	require.Zero(t, calls, "alternates must not run when the primary succeeds")
}

func TestFallbackChainSecondaryMarkedDegraded(t *testing.T) {
	providers := []r9y.FallbackProvider[string]{
		failing[string]("primary", r9y.Transient(errors.New("db down"))),
		{Name: "replica", Run: func(context.Context) (string, error) {
			return "from replica", nil
		}},
	}

	res, err := r9y.DoFallbackChain(context.Background(), providers, &r9y.Hooks{})
	require.NoError(t, err)
	require.Equal(t, "from replica", res.Value)
	require.Equal(t, "replica", res.Provider)
	require.True(t, res.Degraded)
}

func TestFallbackChainStrictOrder(t *testing.T) {
	var order []string
	mk := func(name string, err error) r9y.FallbackProvider[int] {
		return r9y.FallbackProvider[int]{
			Name: name,
			Run: func(context.Context) (int, error) {
				order = append(order, name)
				return 0, err
			},
		}
	}

	providers := []r9y.FallbackProvider[int]{
		mk("a", errors.New("a failed")),
		mk("b", errors.New("b failed")),
		mk("c", nil),
	}

	res, err := r9y.DoFallbackChain(context.Background(), providers, &r9y.Hooks{})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, order)
	require.Equal(t, "c", res.Provider)
}

func TestFallbackChainAllFailReturnsLastError(t *testing.T) {
	firstErr := errors.New("primary failed")
	lastErr := errors.New("static also failed")

	providers := []r9y.FallbackProvider[int]{
		failing[int]("primary", firstErr),
		failing[int]("last", lastErr),
	}

	_, err := r9y.DoFallbackChain(context.Background(), providers, &r9y.Hooks{})
	require.ErrorIs(t, err, lastErr)
	require.NotErrorIs(t, err, firstErr)
}

func TestFallbackChainCancellationPropagates(t *testing.T) {
	alternateCalls := 0
	providers := []r9y.FallbackProvider[int]{
		failing[int]("primary", context.Canceled),
		{Name: "cache", Run: func(context.Context) (int, error) {
			alternateCalls++
			return 1, nil
		}},
	}

	_, err := r9y.DoFallbackChain(context.Background(), providers, &r9y.Hooks{})
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, alternateCalls, "cancellation must not trigger fallback")
}

func TestFallbackChainContextCheckedBetweenProviders(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	secondCalls := 0
	providers := []r9y.FallbackProvider[int]{
		{Name: "primary", Run: func(context.Context) (int, error) {
			cancel() // caller gives up while the primary is failing
			return 0, errors.New("slow failure")
		}},
		{Name: "cache", Run: func(context.Context) (int, error) {
			secondCalls++
			return 1, nil
		}},
	}

	_, err := r9y.DoFallbackChain(ctx, providers, &r9y.Hooks{})
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, secondCalls)
}

func TestFallbackChainCustomEligibility(t *testing.T) {
	providers := []r9y.FallbackProvider[int]{
		failing[int]("primary", r9y.Permanent(errors.New("schema error"))),
		{Name: "cache", Run: func(context.Context) (int, error) {
			return 1, nil
		}},
	}

	// Only transient failures may fall back.
	_, err := r9y.DoFallbackChain(context.Background(), providers, &r9y.Hooks{},
		r9y.FallbackIf(r9y.IsTransient))
	require.Error(t, err)
	require.True(t, r9y.IsPermanent(err))
}

func TestFallbackChainEmitsProviderSwitchEvents(t *testing.T) {
	var switches []r9y.ProviderSwitch
	hooks := r9y.Hooks{OnProviderSwitch: func(ev r9y.ProviderSwitch) {
		switches = append(switches, ev)
	}}

	providers := []r9y.FallbackProvider[int]{
		failing[int]("primary", errors.New("one")),
		failing[int]("replica", errors.New("two")),
		r9y.StaticProvider("default", 42),
	}

	res, err := r9y.DoFallbackChain(context.Background(), providers, &hooks)
	require.NoError(t, err)
	require.Equal(t, 42, res.Value)
	require.True(t, res.Degraded)

	require.Len(t, switches, 2)
	require.Equal(t, "primary", switches[0].From)
	require.Equal(t, "replica", switches[0].To)
	require.Equal(t, "replica", switches[1].From)
	require.Equal(t, "default", switches[1].To)
	require.Error(t, switches[0].Err)
}

func TestStaticProviderNeverFails(t *testing.T) {
	p := r9y.StaticProvider("default", "fallback value")
	got, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, "fallback value", got)
	require.Equal(t, "default", p.Name)
}

func TestDoFallbackUsesStaticValue(t *testing.T) {
	got, err := r9y.DoFallback(context.Background(),
		func(context.Context) (string, error) {
			return "", r9y.Transient(errors.New("down"))
		}, "cached", &r9y.Hooks{})
	require.NoError(t, err)
	require.Equal(t, "cached", got)
}

func TestDoFallbackFuncReceivesCause(t *testing.T) {
	cause := errors.New("db down")

	got, err := r9y.DoFallbackFunc(context.Background(),
		func(context.Context) (int, error) {
			return 0, cause
		},
		func(err error) (int, error) {
			require.ErrorIs(t, err, cause)
			return 99, nil
		}, &r9y.Hooks{})
	require.NoError(t, err)
	require.Equal(t, 99, got)
}

func TestDoFallbackFuncCancellationPropagates(t *testing.T) {
	fallbackCalls := 0

	_, err := r9y.DoFallbackFunc(context.Background(),
		func(context.Context) (int, error) {
			return 0, context.Canceled
		},
		func(error) (int, error) {
			fallbackCalls++
			return 99, nil
		}, &r9y.Hooks{})
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, fallbackCalls)
}

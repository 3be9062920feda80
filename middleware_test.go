package r9y

import (
	"context"
	"testing"
)

// tagging middleware appends its tag on the way in, so the recorded order is
// outermost first.
func tagMW(tag string, trace *[]string) Middleware[int] {
	return func(next func(context.Context) (int, error)) func(context.Context) (int, error) {
		return func(ctx context.Context) (int, error) {
			*trace = append(*trace, tag)
			return next(ctx)
		}
	}
}

func TestChainOrdering(t *testing.T) {
	var trace []string

	chained := Chain(tagMW("a", &trace), tagMW("b", &trace), tagMW("c", &trace))
	fn := chained(func(_ context.Context) (int, error) {
		trace = append(trace, "core")
		return 7, nil
	})

	got, err := fn(context.Background())
	if err != nil {
		t.Fatalf("fn() error = %v, want nil", err)
	}
	if got != 7 {
		t.Fatalf("fn() = %d, want 7", got)
	}

	want := []string{"a", "b", "c", "core"}
	if len(trace) != len(want) {
		t.Fatalf("trace = %v, want %v", trace, want)
	}
	for i := range want {
		if trace[i] != want[i] {
			t.Fatalf("trace = %v, want %v", trace, want)
		}
	}
}

func TestChainEmptyIsIdentity(t *testing.T) {
	fn := Chain[int]()(func(_ context.Context) (int, error) {
		return 42, nil
	})

	got, err := fn(context.Background())
	if err != nil {
		t.Fatalf("fn() error = %v, want nil", err)
	}
	if got != 42 {
		t.Fatalf("fn() = %d, want 42", got)
	}
}

package r9y

import (
	"context"
	"testing"
)

func TestStandardHTTPClientPreset(t *testing.T) {
	opts := StandardHTTPClient()
	if len(opts) != 3 {
		t.Fatalf("StandardHTTPClient() yields %d options, want 3", len(opts))
	}

	opts = append(opts, WithRegistry(NewRegistry()))

	p := NewPolicy[string]("std", opts...)
	if p.cb == nil {
		t.Fatal("preset policy has no circuit breaker")
	}

	got, err := p.Do(context.Background(), func(_ context.Context) (string, error) {
		return "ok", nil
	})
	if err != nil || got != "ok" {
		t.Fatalf("Do() = %q, %v; want ok, nil", got, err)
	}
}

func TestAggressiveHTTPClientPreset(t *testing.T) {
	opts := AggressiveHTTPClient()
	if len(opts) != 4 {
		t.Fatalf("AggressiveHTTPClient() yields %d options, want 4", len(opts))
	}

	opts = append(opts, WithRegistry(NewRegistry()))

	p := NewPolicy[int]("agg", opts...)
	if p.cb == nil {
		t.Fatal("preset policy has no circuit breaker")
	}
	if p.bh == nil {
		t.Fatal("preset policy has no bulkhead")
	}

	got, err := p.Do(context.Background(), func(_ context.Context) (int, error) {
		return 1, nil
	})
	if err != nil || got != 1 {
		t.Fatalf("Do() = %d, %v; want 1, nil", got, err)
	}
}

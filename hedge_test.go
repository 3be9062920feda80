package r9y

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestDoHedgeFastPrimaryNeverTriggersHedge(t *testing.T) {
	var triggered atomic.Bool
	hooks := Hooks{OnHedgeTriggered: func() { triggered.Store(true) }}

	var calls atomic.Int32
	got, err := DoHedge(context.Background(), 100*time.Millisecond,
		func(_ context.Context) (string, error) {
			calls.Add(1)
			return "fast", nil
		}, &hooks, RealClock{})
	if err != nil {
		t.Fatalf("DoHedge() error = %v, want nil", err)
	}
	if got != "fast" {
		t.Fatalf("DoHedge() = %q, want %q", got, "fast")
	}
	if calls.Load() != 1 {
		t.Fatalf("fn called %d times, want 1", calls.Load())
	}
	if triggered.Load() {
		t.Fatal("hedge triggered despite primary completing in time")
	}
}

func TestDoHedgeSecondAttemptWins(t *testing.T) {
	var (
		triggered atomic.Bool
		won       atomic.Bool
	)
	hooks := Hooks{
		OnHedgeTriggered: func() { triggered.Store(true) },
		OnHedgeWon:       func() { won.Store(true) },
	}

	var calls atomic.Int32
	got, err := DoHedge(context.Background(), 10*time.Millisecond,
		func(ctx context.Context) (string, error) {
			if calls.Add(1) == 1 {
				// Primary: slow, cancelled once the hedge wins.
				select {
				case <-time.After(5 * time.Second):
					return "primary", nil
				case <-ctx.Done():
					return "", ctx.Err()
				}
			}
			return "hedge", nil
		}, &hooks, RealClock{})
	if err != nil {
		t.Fatalf("DoHedge() error = %v, want nil", err)
	}
	if got != "hedge" {
		t.Fatalf("DoHedge() = %q, want %q", got, "hedge")
	}
	if !triggered.Load() {
		t.Fatal("hedge was not triggered")
	}
	if !won.Load() {
		t.Fatal("hedge win was not reported")
	}
}

func TestDoHedgeSlowPrimaryStillWinsOverSlowerHedge(t *testing.T) {
	var calls atomic.Int32
	got, err := DoHedge(context.Background(), 10*time.Millisecond,
		func(ctx context.Context) (string, error) {
			if calls.Add(1) == 1 {
				time.Sleep(50 * time.Millisecond)
				return "primary", nil
			}
			select {
			case <-time.After(5 * time.Second):
				return "hedge", nil
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}, &Hooks{}, RealClock{})
	if err != nil {
		t.Fatalf("DoHedge() error = %v, want nil", err)
	}
	if got != "primary" {
		t.Fatalf("DoHedge() = %q, want %q", got, "primary")
	}
}

func TestDoHedgeBothFailReturnsFirstError(t *testing.T) {
	firstErr := errors.New("first failure")

	var calls atomic.Int32
	_, err := DoHedge(context.Background(), 5*time.Millisecond,
		func(_ context.Context) (string, error) {
			if calls.Add(1) == 1 {
				time.Sleep(20 * time.Millisecond)
				return "", firstErr
			}
			time.Sleep(40 * time.Millisecond)
			return "", errors.New("second failure")
		}, &Hooks{}, RealClock{})
	if !errors.Is(err, firstErr) {
		t.Fatalf("DoHedge() error = %v, want first received error %v", err, firstErr)
	}
}

func TestDoHedgeCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	_, err := DoHedge(ctx, time.Millisecond,
		func(_ context.Context) (string, error) {
			calls.Add(1)
			return "ok", nil
		}, &Hooks{}, RealClock{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("DoHedge() error = %v, want context.Canceled", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("fn called %d times, want 0", calls.Load())
	}
}

package r9y

import (
	"context"
	"log/slog"
	"time"
)

// ---------------------------------------------------------------------------
// Structured lifecycle events
// ---------------------------------------------------------------------------.

type (
	// StateChange describes a circuit breaker state transition.
	StateChange struct {
		// At is the instant the transition took effect.
		At time.Time
		// From is the state the breaker left.
		From CircuitState
		// To is the state the breaker entered.
		To CircuitState
	}

	// RetryAttempt describes a retry decision: attempt number (1-indexed),
	// the failure that triggered the retry, and the backoff delay chosen
	// before the next attempt.
	RetryAttempt struct {
		Err     error
		Delay   time.Duration
		Attempt int
	}

	// Rejection describes a call the engine refused without invoking the
	// operation: circuit open, bulkhead full, or rate limited.
	Rejection struct {
		At   time.Time
		Kind Kind
	}

	// TimeoutExceeded describes a per-attempt deadline expiry.
	TimeoutExceeded struct {
		At    time.Time
		Limit time.Duration
	}

	// ProviderSwitch describes a fallback chain moving from one provider to
	// the next after an eligible failure.
	ProviderSwitch struct {
		Err  error
		From string
		To   string
	}
)

// Hooks holds optional callback functions for resilience pattern lifecycle
// events. Events are structured payloads, not text, so observability
// collaborators (logging, metrics, alerting) can consume them without
// parsing. All fields are nil by default; callers set only the hooks they
// care about. Once constructed, a Hooks value must not be mutated — emit
// methods read the function fields without synchronisation, which is safe as
// long as the struct is read-only after initialisation.
//
// Pattern: Observer — decouples resilience event emission from consumers
// without patterns knowing about observers.
type Hooks struct {
	OnStateChange      func(StateChange)
	OnRetry            func(RetryAttempt)
	OnRejection        func(Rejection)
	OnTimeout          func(TimeoutExceeded)
	OnProviderSwitch   func(ProviderSwitch)
	OnBulkheadAcquired func()
	OnBulkheadReleased func()
	OnHedgeTriggered   func()
	OnHedgeWon         func()
}

func (h *Hooks) emitStateChange(ev StateChange) {
	if h.OnStateChange != nil {
		h.OnStateChange(ev)
	}
}

func (h *Hooks) emitRetry(ev RetryAttempt) {
	if h.OnRetry != nil {
		h.OnRetry(ev)
	}
}

func (h *Hooks) emitRejection(ev Rejection) {
	if h.OnRejection != nil {
		h.OnRejection(ev)
	}
}

func (h *Hooks) emitTimeout(ev TimeoutExceeded) {
	if h.OnTimeout != nil {
		h.OnTimeout(ev)
	}
}

func (h *Hooks) emitProviderSwitch(ev ProviderSwitch) {
	if h.OnProviderSwitch != nil {
		h.OnProviderSwitch(ev)
	}
}

func (h *Hooks) emitBulkheadAcquired() {
	if h.OnBulkheadAcquired != nil {
		h.OnBulkheadAcquired()
	}
}

func (h *Hooks) emitBulkheadReleased() {
	if h.OnBulkheadReleased != nil {
		h.OnBulkheadReleased()
	}
}

func (h *Hooks) emitHedgeTriggered() {
	if h.OnHedgeTriggered != nil {
		h.OnHedgeTriggered()
	}
}

func (h *Hooks) emitHedgeWon() {
	if h.OnHedgeWon != nil {
		h.OnHedgeWon()
	}
}

// ---------------------------------------------------------------------------
// slog bridge
// ---------------------------------------------------------------------------.

// LogHooks returns a [Hooks] value that forwards every lifecycle event to
// logger as a structured record. The name is attached to every record so
// events from multiple policies sharing one logger remain distinguishable.
func LogHooks(logger *slog.Logger, name string) *Hooks {
	logger = logger.With(slog.String("policy", name))

	return &Hooks{
		OnStateChange: func(ev StateChange) {
			logger.LogAttrs(context.Background(), slog.LevelWarn,
				"circuit state change",
				slog.String("from", ev.From.String()),
				slog.String("to", ev.To.String()),
				slog.Time("at", ev.At),
			)
		},
		OnRetry: func(ev RetryAttempt) {
			logger.LogAttrs(context.Background(), slog.LevelInfo,
				"retrying",
				slog.Int("attempt", ev.Attempt),
				slog.Duration("delay", ev.Delay),
				slog.Any("error", ev.Err),
			)
		},
		OnRejection: func(ev Rejection) {
			logger.LogAttrs(context.Background(), slog.LevelWarn,
				"call rejected",
				slog.String("kind", ev.Kind.String()),
				slog.Time("at", ev.At),
			)
		},
		OnTimeout: func(ev TimeoutExceeded) {
			logger.LogAttrs(context.Background(), slog.LevelWarn,
				"attempt timed out",
				slog.Duration("limit", ev.Limit),
				slog.Time("at", ev.At),
			)
		},
		OnProviderSwitch: func(ev ProviderSwitch) {
			logger.LogAttrs(context.Background(), slog.LevelWarn,
				"falling back",
				slog.String("from", ev.From),
				slog.String("to", ev.To),
				slog.Any("error", ev.Err),
			)
		},
	}
}

package r9y

import (
	"sync"
	"time"
)

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------.

type (
	circuitBreakerConfig struct {
		failureThreshold int
		recoveryTimeout  time.Duration
	}

	// CircuitBreakerOption configures a circuit breaker.
	CircuitBreakerOption func(*circuitBreakerConfig)

	// CircuitBreaker tracks the health of a dependency and fails fast when
	// it's down.
	//
	// Pattern: Circuit Breaker — fast-fails calls to an unhealthy downstream
	// and auto-recovers via a single half-open probe after the recovery
	// timeout. All state lives behind one mutex so every read-check-then-act
	// sequence (open? recovery elapsed? trial outstanding?) is atomic with
	// respect to concurrent callers. The lock is never held across a call to
	// the wrapped operation.
	CircuitBreaker struct {
		clock Clock
		hooks *Hooks
		cfg   circuitBreakerConfig

		mu            sync.Mutex
		state         CircuitState
		failures      int
		openedAt      time.Time
		trialInFlight bool
	}
)

// CircuitState is the current position of a breaker's state machine.
type CircuitState int

const (
	// StateClosed is the normal operating state; calls flow through.
	StateClosed CircuitState = iota
	// StateOpen is the tripped state; calls are rejected immediately.
	StateOpen
	// StateHalfOpen is the recovery-probe state; exactly one trial call is
	// in flight, all others are rejected until it resolves.
	StateHalfOpen
)

// String returns the state as a snake_case label.
func (s CircuitState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

func defaultCircuitBreakerConfig() circuitBreakerConfig {
	return circuitBreakerConfig{
		failureThreshold: 5,
		recoveryTimeout:  30 * time.Second,
	}
}

// FailureThreshold sets the number of consecutive counted failures before
// opening.
func FailureThreshold(n int) CircuitBreakerOption {
	return func(cfg *circuitBreakerConfig) {
		cfg.failureThreshold = n
	}
}

// RecoveryTimeout sets how long the breaker stays open before admitting a
// half-open trial.
func RecoveryTimeout(d time.Duration) CircuitBreakerOption {
	return func(cfg *circuitBreakerConfig) {
		cfg.recoveryTimeout = d
	}
}

// NewCircuitBreaker creates a circuit breaker with the given options.
// Exactly one breaker instance should govern a given logical dependency;
// all callers to that dependency share it.
func NewCircuitBreaker(
	clock Clock,
	hooks *Hooks,
	opts ...CircuitBreakerOption,
) *CircuitBreaker {
	cfg := defaultCircuitBreakerConfig()
	for _, o := range opts {
		o(&cfg)
	}

	return &CircuitBreaker{
		clock: clock,
		hooks: hooks,
		cfg:   cfg,
	}
}

// Allow checks whether a call may proceed. Returns nil when the breaker is
// closed, or when an open breaker has aged past its recovery timeout and
// this caller wins the single half-open trial permit. Returns
// ErrCircuitOpen otherwise — including for every caller arriving while a
// trial is outstanding. Rejections are cheap and synchronous; the wrapped
// operation is never invoked.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()

	switch cb.state {
	case StateClosed:
		cb.mu.Unlock()
		return nil

	case StateHalfOpen:
		// A trial is already in flight; reject until it resolves.
		cb.mu.Unlock()
		cb.hooks.emitRejection(Rejection{Kind: KindCircuitOpen, At: cb.clock.Now()})

		return ErrCircuitOpen

	default: // StateOpen
		if cb.clock.Since(cb.openedAt) < cb.cfg.recoveryTimeout {
			cb.mu.Unlock()
			cb.hooks.emitRejection(Rejection{Kind: KindCircuitOpen, At: cb.clock.Now()})

			return ErrCircuitOpen
		}

		// Recovery elapsed: this caller becomes the single trial.
		ev := cb.transitionLocked(StateHalfOpen)
		cb.trialInFlight = true
		cb.mu.Unlock()
		cb.hooks.emitStateChange(ev)

		return nil
	}
}

// RecordSuccess records a successful call. In the closed state it resets the
// consecutive-failure count; a successful half-open trial closes the
// breaker.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()

	switch cb.state {
	case StateClosed:
		cb.failures = 0
		cb.mu.Unlock()

	case StateHalfOpen:
		cb.failures = 0
		cb.trialInFlight = false
		ev := cb.transitionLocked(StateClosed)
		cb.mu.Unlock()
		cb.hooks.emitStateChange(ev)

	default:
		cb.mu.Unlock()
	}
}

// RecordFailure records a failed call. Only failures whose [Kind] counts
// toward dependency health (transient, timeout) move the state machine;
// permanent errors mean the dependency answered and a bad request was made,
// so a half-open trial failing permanently still closes the breaker, while a
// cancelled trial re-opens it without restarting the recovery timer (nothing
// was learned about the dependency).
func (cb *CircuitBreaker) RecordFailure(err error) {
	kind := Classify(err)

	cb.mu.Lock()

	switch cb.state {
	case StateClosed:
		if !countsAsFailure(kind) {
			cb.mu.Unlock()
			return
		}

		cb.failures++
		if cb.failures < cb.cfg.failureThreshold {
			cb.mu.Unlock()
			return
		}

		cb.openedAt = cb.clock.Now()
		ev := cb.transitionLocked(StateOpen)
		cb.mu.Unlock()
		cb.hooks.emitStateChange(ev)

	case StateHalfOpen:
		cb.trialInFlight = false

		switch {
		case countsAsFailure(kind):
			// Failed trial: back to open, restart the recovery timer.
			cb.openedAt = cb.clock.Now()
			ev := cb.transitionLocked(StateOpen)
			cb.mu.Unlock()
			cb.hooks.emitStateChange(ev)

		case kind == KindCancelled:
			// The trial was cancelled by its caller; keep openedAt so the
			// next caller may probe immediately.
			ev := cb.transitionLocked(StateOpen)
			cb.mu.Unlock()
			cb.hooks.emitStateChange(ev)

		default:
			// Permanent: the dependency is reachable and responding.
			cb.failures = 0
			ev := cb.transitionLocked(StateClosed)
			cb.mu.Unlock()
			cb.hooks.emitStateChange(ev)
		}

	default:
		cb.mu.Unlock()
	}
}

// State returns the breaker's current state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return cb.state
}

// transitionLocked moves the state machine to next and returns the event to
// emit after the lock is released. Callers must hold cb.mu.
func (cb *CircuitBreaker) transitionLocked(next CircuitState) StateChange {
	ev := StateChange{From: cb.state, To: next, At: cb.clock.Now()}
	cb.state = next

	return ev
}

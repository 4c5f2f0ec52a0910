// Package resilience wraps flaky downstream calls (model backends, the
// synthesis service, the knowledge store) in retry, circuit-breaker and
// failover primitives.
//
// [Retry] runs a call with bounded exponential backoff. [CircuitBreaker] trips
// after repeated failures so a dead backend stops eating latency budgets.
// [FallbackGroup] chains several providers of one type behind per-provider
// breakers and routes around whichever is currently broken.
//
// Everything in this package is safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by [CircuitBreaker.Execute] while the breaker is
// rejecting calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the operating mode of a [CircuitBreaker].
type State int

const (
	// StateClosed forwards every call.
	StateClosed State = iota

	// StateOpen rejects every call with [ErrCircuitOpen] until the reset
	// timeout has passed.
	StateOpen

	// StateHalfOpen lets a small number of probe calls through to decide
	// whether the backend has recovered.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig tunes a [CircuitBreaker]. Zero fields fall back to the
// defaults noted on each field.
type CircuitBreakerConfig struct {
	// Name labels the breaker in log output.
	Name string

	// MaxFailures is how many consecutive failures close→open takes.
	// Default 5.
	MaxFailures int

	// ResetTimeout is how long the breaker stays open before probing.
	// Default 30s.
	ResetTimeout time.Duration

	// HalfOpenMax is the probe budget in the half-open state. The breaker
	// closes once this many probes succeed. Default 3.
	HalfOpenMax int
}

// CircuitBreaker is a three-state breaker: closed → open after MaxFailures
// consecutive errors, open → half-open after ResetTimeout, and half-open back
// to closed (all probes pass) or open (any probe fails).
type CircuitBreaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration
	halfOpenMax  int

	mu         sync.Mutex
	state      State
	failures   int
	lastFail   time.Time
	probesUsed int
	probesGood int
}

// NewCircuitBreaker builds a breaker from cfg, filling in defaults for unset
// fields.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = 3
	}
	return &CircuitBreaker{
		name:         cfg.Name,
		maxFailures:  cfg.MaxFailures,
		resetTimeout: cfg.ResetTimeout,
		halfOpenMax:  cfg.HalfOpenMax,
	}
}

// Execute runs fn if the breaker admits the call, otherwise it returns
// [ErrCircuitOpen] without invoking fn. The error from fn is passed through.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	probing, ok := cb.admit()
	if !ok {
		return ErrCircuitOpen
	}

	err := fn()
	cb.settle(err, probing)
	return err
}

// admit decides whether a call may proceed and reports whether it counts as a
// half-open probe.
func (cb *CircuitBreaker) admit() (probing, ok bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if time.Since(cb.lastFail) < cb.resetTimeout {
			return false, false
		}
		cb.state = StateHalfOpen
		cb.probesUsed = 0
		cb.probesGood = 0
		slog.Info("circuit breaker probing backend", "name", cb.name)
	}

	if cb.state == StateHalfOpen {
		if cb.probesUsed >= cb.halfOpenMax {
			return false, false
		}
		cb.probesUsed++
		return true, true
	}
	return false, true
}

// settle folds the call outcome back into the breaker state.
func (cb *CircuitBreaker) settle(err error, probing bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch {
	case err != nil && probing:
		// One bad probe is enough evidence the backend is still down.
		cb.lastFail = time.Now()
		cb.failures = cb.maxFailures
		cb.state = StateOpen
		slog.Warn("circuit breaker re-opened after failed probe", "name", cb.name)

	case err != nil:
		cb.lastFail = time.Now()
		cb.failures++
		if cb.failures >= cb.maxFailures {
			cb.state = StateOpen
			slog.Warn("circuit breaker opened",
				"name", cb.name,
				"consecutive_failures", cb.failures)
		}

	case probing:
		cb.probesGood++
		if cb.probesGood >= cb.halfOpenMax {
			cb.state = StateClosed
			cb.failures = 0
			slog.Info("circuit breaker closed, backend recovered", "name", cb.name)
		}

	default:
		cb.failures = 0
	}
}

// State reports the breaker's current mode. An open breaker whose reset
// timeout has lapsed reports half-open; the stored state flips on the next
// Execute.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && time.Since(cb.lastFail) >= cb.resetTimeout {
		return StateHalfOpen
	}
	return cb.state
}

// Reset forces the breaker closed and clears all counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.failures = 0
	cb.probesUsed = 0
	cb.probesGood = 0
	slog.Info("circuit breaker manually reset", "name", cb.name)
}

// Package breaker implements a per-dependency circuit breaker over a
// count-based sliding window of call outcomes.
//
// Callers use the low-level protocol directly: TryAcquirePermission
// before issuing a call, Record after it completes. A denied permission
// is a synchronous, constant-time decision; the caller routes to its own
// fallback. The breaker itself never fails and never suspends.
package breaker

import (
	"sync"
	"time"

	"github.com/shiva/pnrview/pkg/clock"
)

// ─── States and outcomes ────────────────────────────────────

// State is the circuit breaker state.
type State int32

const (
	// StateClosed grants every permission and tracks outcomes.
	StateClosed State = iota

	// StateOpen denies every permission until the wait duration elapses.
	StateOpen

	// StateHalfOpen grants a capped number of trial permissions.
	StateHalfOpen
)

// String returns the wire representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Outcome classifies one completed call.
type Outcome int

const (
	// OutcomeSuccess counts toward the window as a success.
	OutcomeSuccess Outcome = iota

	// OutcomeFailure counts toward the window as a failure.
	OutcomeFailure

	// OutcomeIgnored neither counts as success nor fills the window.
	// Used for business-logical results ("record not found") that must
	// not trip the breaker.
	OutcomeIgnored
)

// ─── Configuration ──────────────────────────────────────────

// Config tunes one circuit breaker.
type Config struct {
	// Name identifies the breaker in logs and metrics.
	Name string

	// SlidingWindowSize is the ring capacity (count-based).
	SlidingWindowSize int

	// MinimumNumberOfCalls must be buffered before the failure rate is
	// evaluated at all.
	MinimumNumberOfCalls int

	// FailureRateThreshold is a percentage (0–100). At or above it the
	// breaker opens.
	FailureRateThreshold float64

	// WaitDurationInOpenState is how long the breaker stays open before
	// the next permission request moves it to half-open.
	WaitDurationInOpenState time.Duration

	// PermittedCallsInHalfOpen caps concurrent trial calls in half-open.
	PermittedCallsInHalfOpen int

	// SlowCallDurationThreshold marks a recorded call as slow for the
	// slowCallRate metric. Purely observational.
	SlowCallDurationThreshold time.Duration

	// Clock supplies time; tests substitute a fake.
	Clock clock.Clock

	// OnStateChange, when set, is invoked after every transition.
	OnStateChange func(name string, from, to State)
}

// DefaultConfig returns the standard per-source tuning.
func DefaultConfig(name string) Config {
	return Config{
		Name:                      name,
		SlidingWindowSize:         100,
		MinimumNumberOfCalls:      10,
		FailureRateThreshold:      10,
		WaitDurationInOpenState:   10 * time.Second,
		PermittedCallsInHalfOpen:  3,
		SlowCallDurationThreshold: 60 * time.Second,
		Clock:                     clock.New(),
	}
}

// ─── CircuitBreaker ─────────────────────────────────────────

// Metrics is a point-in-time snapshot of one breaker, exposed by the
// /circuitbreakers and /health endpoints.
type Metrics struct {
	Name              string  `json:"name"`
	State             string  `json:"state"`
	BufferedCalls     int     `json:"bufferedCalls"`
	FailedCalls       int     `json:"failedCalls"`
	SuccessfulCalls   int     `json:"successfulCalls"`
	NotPermittedCalls uint64  `json:"notPermittedCalls"`
	FailureRate       float64 `json:"failureRate"`
	SlowCallRate      float64 `json:"slowCallRate"`
}

// CircuitBreaker is the per-dependency state machine. All state is
// serialized under a single mutex, so observers see transitions in a
// total order consistent with Record invocations.
type CircuitBreaker struct {
	cfg Config

	mu       sync.Mutex
	state    State
	openedAt time.Time
	window   *window

	// Half-open bookkeeping: permits issued and trial outcomes recorded
	// in the current probation period.
	halfOpenIssued int
	trialCalls     int
	trialFailures  int

	notPermitted uint64
}

// New creates a breaker, filling zero-valued config fields with defaults.
func New(cfg Config) *CircuitBreaker {
	def := DefaultConfig(cfg.Name)
	if cfg.SlidingWindowSize <= 0 {
		cfg.SlidingWindowSize = def.SlidingWindowSize
	}
	if cfg.MinimumNumberOfCalls <= 0 {
		cfg.MinimumNumberOfCalls = def.MinimumNumberOfCalls
	}
	if cfg.FailureRateThreshold <= 0 {
		cfg.FailureRateThreshold = def.FailureRateThreshold
	}
	if cfg.WaitDurationInOpenState <= 0 {
		cfg.WaitDurationInOpenState = def.WaitDurationInOpenState
	}
	if cfg.PermittedCallsInHalfOpen <= 0 {
		cfg.PermittedCallsInHalfOpen = def.PermittedCallsInHalfOpen
	}
	if cfg.SlowCallDurationThreshold <= 0 {
		cfg.SlowCallDurationThreshold = def.SlowCallDurationThreshold
	}
	if cfg.Clock == nil {
		cfg.Clock = def.Clock
	}

	return &CircuitBreaker{
		cfg:    cfg,
		state:  StateClosed,
		window: newWindow(cfg.SlidingWindowSize, cfg.SlowCallDurationThreshold),
	}
}

// Name returns the breaker's configured name.
func (cb *CircuitBreaker) Name() string { return cb.cfg.Name }

// TryAcquirePermission reports whether the caller may attempt the
// protected call. When denied, the caller must route to its fallback.
func (cb *CircuitBreaker) TryAcquirePermission() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true

	case StateOpen:
		if cb.cfg.Clock.Since(cb.openedAt) >= cb.cfg.WaitDurationInOpenState {
			cb.transitionTo(StateHalfOpen)
			cb.halfOpenIssued = 1
			return true
		}
		cb.notPermitted++
		return false

	case StateHalfOpen:
		if cb.halfOpenIssued < cb.cfg.PermittedCallsInHalfOpen {
			cb.halfOpenIssued++
			return true
		}
		cb.notPermitted++
		return false
	}
	return false
}

// Record reports the outcome of a permitted call. Ignored outcomes do
// not fill the window; in half-open they return their trial permit.
func (cb *CircuitBreaker) Record(outcome Outcome, duration time.Duration) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if outcome == OutcomeIgnored {
		if cb.state == StateHalfOpen && cb.halfOpenIssued > 0 {
			cb.halfOpenIssued--
		}
		return
	}

	failure := outcome == OutcomeFailure

	switch cb.state {
	case StateClosed:
		cb.window.record(failure, duration)
		if cb.window.bufferedCalls() >= cb.cfg.MinimumNumberOfCalls &&
			cb.window.failureRate() >= cb.cfg.FailureRateThreshold {
			cb.openedAt = cb.cfg.Clock.Now()
			cb.transitionTo(StateOpen)
		}

	case StateHalfOpen:
		cb.trialCalls++
		if failure {
			cb.trialFailures++
		}
		if cb.trialCalls >= cb.cfg.PermittedCallsInHalfOpen {
			trialRate := 100 * float64(cb.trialFailures) / float64(cb.trialCalls)
			if trialRate < cb.cfg.FailureRateThreshold {
				cb.window.reset()
				cb.transitionTo(StateClosed)
			} else {
				cb.openedAt = cb.cfg.Clock.Now()
				cb.transitionTo(StateOpen)
			}
		}

	case StateOpen:
		// A call that was in flight when the breaker opened. Its outcome
		// still lands in the window but cannot change the state.
		cb.window.record(failure, duration)
	}
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Snapshot returns the breaker's current metrics.
func (cb *CircuitBreaker) Snapshot() Metrics {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return Metrics{
		Name:              cb.cfg.Name,
		State:             cb.state.String(),
		BufferedCalls:     cb.window.bufferedCalls(),
		FailedCalls:       cb.window.failedCalls(),
		SuccessfulCalls:   cb.window.bufferedCalls() - cb.window.failedCalls(),
		NotPermittedCalls: cb.notPermitted,
		FailureRate:       cb.window.failureRate(),
		SlowCallRate:      cb.window.slowCallRate(),
	}
}

// transitionTo switches state and fires the listener. Caller holds the
// mutex; listeners must not call back into the breaker.
func (cb *CircuitBreaker) transitionTo(next State) {
	prev := cb.state
	if prev == next {
		return
	}
	cb.state = next

	if next == StateHalfOpen {
		cb.halfOpenIssued = 0
		cb.trialCalls = 0
		cb.trialFailures = 0
	}

	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.cfg.Name, prev, next)
	}
}

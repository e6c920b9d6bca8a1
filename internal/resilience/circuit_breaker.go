// Package resilience implements the Circuit Breaker and Supervised Task
// Runner, the two cooperating failure-isolation mechanisms wrapping
// individual outbound calls and long-lived background loops.
package resilience

import (
	"sync"
	"time"

	"github.com/tradecore/engine/internal/tradeerrors"
)

// State is a Circuit Breaker's current state.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// CircuitBreakerConfig configures a CircuitBreaker.
type CircuitBreakerConfig struct {
	Name             string
	FailureThreshold int
	SuccessThreshold int
	Timeout          time.Duration
	WindowDuration   time.Duration
}

// CircuitBreaker wraps an individual outbound call with a
// Closed/Open/HalfOpen state machine per spec §4.9.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig

	mu             sync.Mutex
	state          State
	failureCount   int
	successCount   int
	windowStart    time.Time
	lastFailureAt  time.Time
	now            func() time.Time
}

// NewCircuitBreaker constructs a CircuitBreaker in the Closed state.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		cfg:         cfg,
		state:       Closed,
		windowStart: time.Now(),
		now:         time.Now,
	}
}

// State returns the breaker's current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// IsCallPermitted reports whether a call may proceed right now, advancing
// Open -> HalfOpen when the configured timeout has elapsed since the last
// recorded failure.
func (cb *CircuitBreaker) IsCallPermitted() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.isCallPermittedLocked()
}

func (cb *CircuitBreaker) isCallPermittedLocked() bool {
	switch cb.state {
	case Closed:
		return true
	case Open:
		if cb.now().Sub(cb.lastFailureAt) > cb.cfg.Timeout {
			cb.state = HalfOpen
			cb.successCount = 0
			return true
		}
		return false
	case HalfOpen:
		return true
	default:
		return false
	}
}

// Call executes f iff IsCallPermitted, recording success or failure on its
// return. If not permitted, returns CircuitOpen without invoking f.
func (cb *CircuitBreaker) Call(f func() error) error {
	if !cb.IsCallPermitted() {
		return &tradeerrors.CircuitOpen{Name: cb.cfg.Name}
	}

	err := f()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil {
		cb.onFailureLocked()
	} else {
		cb.onSuccessLocked()
	}
	return err
}

func (cb *CircuitBreaker) onFailureLocked() {
	cb.lastFailureAt = cb.now()

	switch cb.state {
	case Closed:
		cb.expireWindowLocked()
		cb.failureCount++
		if cb.failureCount >= cb.cfg.FailureThreshold {
			cb.state = Open
		}
	case HalfOpen:
		cb.state = Open
		cb.successCount = 0
	}
}

func (cb *CircuitBreaker) onSuccessLocked() {
	switch cb.state {
	case Closed:
		cb.failureCount = 0
		cb.windowStart = cb.now()
	case HalfOpen:
		cb.successCount++
		if cb.successCount >= cb.cfg.SuccessThreshold {
			cb.state = Closed
			cb.failureCount = 0
			cb.successCount = 0
		}
	}
}

// expireWindowLocked zeroes the failure count once the failure window has
// elapsed.
func (cb *CircuitBreaker) expireWindowLocked() {
	if cb.now().Sub(cb.windowStart) > cb.cfg.WindowDuration {
		cb.failureCount = 0
		cb.windowStart = cb.now()
	}
}

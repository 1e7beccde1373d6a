// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package resilience isolates misbehaving listeners behind circuit breakers.
package resilience

import (
	"errors"
	"sync"
	"time"

	"github.com/ManuGH/botcore/internal/metrics"
)

// State is the position of a circuit breaker.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

// ErrCircuitOpen is returned by Execute while the breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

var errPanicked = errors.New("panicked")

// Settings configure a breaker. Zero values fall back to defaults.
type Settings struct {
	// Threshold is the number of consecutive failures that opens the breaker.
	Threshold int
	// ResetTimeout is how long an open breaker waits before letting a probe
	// through.
	ResetTimeout time.Duration
	// Now is the clock. Defaults to time.Now.
	Now func() time.Time
	// OnTransition is called after every state change, outside the breaker
	// lock.
	OnTransition func(name string, from, to State)
}

func (s Settings) withDefaults() Settings {
	if s.Threshold <= 0 {
		s.Threshold = 3
	}
	if s.ResetTimeout <= 0 {
		s.ResetTimeout = 30 * time.Second
	}
	if s.Now == nil {
		s.Now = time.Now
	}
	return s
}

// Snapshot is a point-in-time view of a breaker.
type Snapshot struct {
	State    State      `json:"state"`
	Failures int        `json:"failures"`
	OpenedAt *time.Time `json:"opened_at,omitempty"`
}

// CircuitBreaker opens after Threshold consecutive failures and lets a single
// probe through once ResetTimeout has elapsed. A successful probe closes it,
// a failed one opens it again.
type CircuitBreaker struct {
	name     string
	settings Settings

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
}

// NewCircuitBreaker creates a closed breaker reporting metrics under name.
func NewCircuitBreaker(name string, s Settings) *CircuitBreaker {
	cb := &CircuitBreaker{
		name:     name,
		settings: s.withDefaults(),
		state:    StateClosed,
	}
	metrics.SetCircuitBreakerState(name, string(StateClosed))
	return cb
}

// Execute runs fn unless the breaker is open. A panic in fn counts as a
// failure and keeps unwinding.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.acquire(); err != nil {
		return err
	}
	completed := false
	defer func() {
		if !completed {
			cb.release(errPanicked)
		}
	}()
	err := fn()
	completed = true
	cb.release(err)
	return err
}

func (cb *CircuitBreaker) acquire() error {
	cb.mu.Lock()
	var notify func()
	defer func() {
		cb.mu.Unlock()
		if notify != nil {
			notify()
		}
	}()

	switch cb.state {
	case StateClosed:
		return nil
	case StateOpen:
		if cb.settings.Now().Sub(cb.openedAt) < cb.settings.ResetTimeout {
			return ErrCircuitOpen
		}
		notify = cb.setState(StateHalfOpen)
	default:
		if cb.probing {
			return ErrCircuitOpen
		}
	}
	cb.probing = true
	return nil
}

func (cb *CircuitBreaker) release(err error) {
	cb.mu.Lock()
	var notify func()
	defer func() {
		cb.mu.Unlock()
		if notify != nil {
			notify()
		}
	}()

	if err == nil {
		cb.failures = 0
		notify = cb.setState(StateClosed)
		return
	}

	cb.failures++
	switch {
	case cb.state == StateHalfOpen:
		metrics.RecordCircuitBreakerTrip(cb.name, "half_open_failure")
		notify = cb.setState(StateOpen)
	case cb.state == StateClosed && cb.failures >= cb.settings.Threshold:
		metrics.RecordCircuitBreakerTrip(cb.name, "threshold_exceeded")
		notify = cb.setState(StateOpen)
	}
}

// setState must be called with cb.mu held. The returned func reports the
// transition and must run after unlocking.
func (cb *CircuitBreaker) setState(to State) func() {
	from := cb.state
	if from == to {
		return nil
	}
	cb.state = to
	cb.probing = false
	if to == StateOpen {
		cb.openedAt = cb.settings.Now()
	}
	metrics.SetCircuitBreakerState(cb.name, string(to))

	hook := cb.settings.OnTransition
	if hook == nil {
		return nil
	}
	name := cb.name
	return func() { hook(name, from, to) }
}

// Reset closes the breaker and forgets recorded failures.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	cb.failures = 0
	notify := cb.setState(StateClosed)
	cb.mu.Unlock()
	if notify != nil {
		notify()
	}
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Snapshot returns the current state and failure count.
func (cb *CircuitBreaker) Snapshot() Snapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	s := Snapshot{State: cb.state, Failures: cb.failures}
	if cb.state != StateClosed {
		at := cb.openedAt
		s.OpenedAt = &at
	}
	return s
}

// Name returns the name the breaker reports metrics under.
func (cb *CircuitBreaker) Name() string { return cb.name }

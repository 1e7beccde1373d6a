// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package resilience

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var errBoom = errors.New("boom")

func fail() error { return errBoom }
func ok() error   { return nil }

func newTestBreaker(threshold int, reset time.Duration) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	return NewCircuitBreaker("echo", Settings{Threshold: threshold, ResetTimeout: reset, Now: clock.Now}), clock
}

func TestCircuitBreaker_OpensAtThreshold(t *testing.T) {
	cb, clock := newTestBreaker(3, 30*time.Second)

	for range 2 {
		assert.ErrorIs(t, cb.Execute(fail), errBoom)
	}
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 2, cb.Snapshot().Failures)

	assert.ErrorIs(t, cb.Execute(fail), errBoom)
	snap := cb.Snapshot()
	assert.Equal(t, StateOpen, snap.State)
	require.NotNil(t, snap.OpenedAt)
	assert.Equal(t, clock.Now(), *snap.OpenedAt)

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb, _ := newTestBreaker(2, time.Second)
	_ = cb.Execute(fail)
	require.NoError(t, cb.Execute(ok))
	_ = cb.Execute(fail)
	assert.Equal(t, StateClosed, cb.State())
	assert.Nil(t, cb.Snapshot().OpenedAt)
}

func TestCircuitBreaker_HalfOpenAdmitsOneProbe(t *testing.T) {
	cb, clock := newTestBreaker(1, 10*time.Second)
	_ = cb.Execute(fail)
	require.Equal(t, StateOpen, cb.State())

	clock.Advance(9 * time.Second)
	assert.ErrorIs(t, cb.Execute(ok), ErrCircuitOpen)

	clock.Advance(2 * time.Second)
	err := cb.Execute(func() error {
		assert.Equal(t, StateHalfOpen, cb.State())
		assert.ErrorIs(t, cb.Execute(ok), ErrCircuitOpen)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb, clock := newTestBreaker(1, 10*time.Second)
	_ = cb.Execute(fail)

	clock.Advance(11 * time.Second)
	assert.ErrorIs(t, cb.Execute(fail), errBoom)
	assert.Equal(t, StateOpen, cb.State())
	assert.ErrorIs(t, cb.Execute(ok), ErrCircuitOpen)
}

func TestCircuitBreaker_PanicCountsAsFailure(t *testing.T) {
	cb, _ := newTestBreaker(1, time.Minute)
	assert.PanicsWithValue(t, "boom", func() {
		_ = cb.Execute(func() error { panic("boom") })
	})
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_ReportsTransitions(t *testing.T) {
	var got []string
	clock := &fakeClock{now: time.Now()}
	var cb *CircuitBreaker
	cb = NewCircuitBreaker("echo", Settings{
		Threshold:    1,
		ResetTimeout: time.Second,
		Now:          clock.Now,
		OnTransition: func(name string, from, to State) {
			// the breaker is unlocked while the hook runs
			_ = cb.State()
			got = append(got, fmt.Sprintf("%s:%s->%s", name, from, to))
		},
	})

	_ = cb.Execute(fail)
	clock.Advance(2 * time.Second)
	_ = cb.Execute(ok)
	_ = cb.Execute(fail)
	cb.Reset()

	assert.Equal(t, []string{
		"echo:closed->open",
		"echo:open->half-open",
		"echo:half-open->closed",
		"echo:closed->open",
		"echo:open->closed",
	}, got)
}

func TestCircuitBreaker_Defaults(t *testing.T) {
	cb := NewCircuitBreaker("defaults", Settings{})
	assert.Equal(t, 3, cb.settings.Threshold)
	assert.Equal(t, 30*time.Second, cb.settings.ResetTimeout)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(Settings{Threshold: 1, ResetTimeout: time.Minute})
	a := r.Get("a")
	assert.Same(t, a, r.Get("a"))
	assert.Equal(t, "a", a.Name())

	_ = r.Get("b").Execute(fail)
	assert.Equal(t, map[string]State{"a": StateClosed, "b": StateOpen}, r.States())

	snaps := r.Snapshots()
	assert.Equal(t, 1, snaps["b"].Failures)
	assert.NotNil(t, snaps["b"].OpenedAt)

	assert.True(t, r.Reset("b"))
	assert.Equal(t, StateClosed, r.Get("b").State())
	assert.False(t, r.Reset("missing"))
}

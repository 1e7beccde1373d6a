// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package scope

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ManuGH/botcore/internal/event"
)

var (
	// ErrWaiterExists is returned when a waiter id is already registered.
	ErrWaiterExists = errors.New("session waiter already exists")
	// ErrWaiterCancelled is returned to a waiter removed by Cancel.
	ErrWaiterCancelled = errors.New("session waiter cancelled")
)

// Matcher selects the event a waiter is interested in.
type Matcher func(ev event.Event) bool

type waiter struct {
	match Matcher
	ch    chan event.Event
	done  chan struct{}
	once  sync.Once
}

func (w *waiter) deliver(ev event.Event) bool {
	delivered := false
	w.once.Do(func() {
		w.ch <- ev
		delivered = true
	})
	return delivered
}

func (w *waiter) cancel() bool {
	cancelled := false
	w.once.Do(func() {
		close(w.done)
		cancelled = true
	})
	return cancelled
}

// Sessions is the continuous-session registry: listeners park here to receive
// a future event, independently of the static listener registry.
type Sessions struct {
	mu      sync.Mutex
	waiters map[string]*waiter
}

// NewSessions creates an empty registry.
func NewSessions() *Sessions {
	return &Sessions{waiters: make(map[string]*waiter)}
}

// Len returns the number of waiting sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.waiters)
}

// Wait registers a waiter under id and blocks until an event accepted by match
// is offered, the waiter is cancelled, or ctx is done. A nil match accepts any
// event.
func (s *Sessions) Wait(ctx context.Context, id string, match Matcher) (event.Event, error) {
	if match == nil {
		match = func(event.Event) bool { return true }
	}
	w := &waiter{match: match, ch: make(chan event.Event, 1), done: make(chan struct{})}

	s.mu.Lock()
	if _, ok := s.waiters[id]; ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrWaiterExists, id)
	}
	s.waiters[id] = w
	s.mu.Unlock()

	defer s.remove(id, w)

	select {
	case ev := <-w.ch:
		return ev, nil
	case <-w.done:
		return nil, fmt.Errorf("%w: %s", ErrWaiterCancelled, id)
	case <-ctx.Done():
		w.cancel()
		// an Offer may have won the race
		select {
		case ev := <-w.ch:
			return ev, nil
		default:
		}
		return nil, ctx.Err()
	}
}

// Offer hands ev to every waiter whose matcher accepts it and returns the
// number of waiters resumed.
func (s *Sessions) Offer(ev event.Event) int {
	s.mu.Lock()
	candidates := make(map[string]*waiter, len(s.waiters))
	for id, w := range s.waiters {
		candidates[id] = w
	}
	s.mu.Unlock()

	resumed := 0
	for id, w := range candidates {
		if !w.match(ev) {
			continue
		}
		if w.deliver(ev) {
			s.remove(id, w)
			resumed++
		}
	}
	return resumed
}

// Resume delivers ev to the waiter registered under id regardless of its matcher.
func (s *Sessions) Resume(id string, ev event.Event) bool {
	s.mu.Lock()
	w, ok := s.waiters[id]
	s.mu.Unlock()
	if !ok {
		return false
	}
	if !w.deliver(ev) {
		return false
	}
	s.remove(id, w)
	return true
}

// Cancel wakes the waiter registered under id with ErrWaiterCancelled.
func (s *Sessions) Cancel(id string) bool {
	s.mu.Lock()
	w, ok := s.waiters[id]
	s.mu.Unlock()
	if !ok {
		return false
	}
	s.remove(id, w)
	return w.cancel()
}

func (s *Sessions) remove(id string, w *waiter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.waiters[id]; ok && cur == w {
		delete(s.waiters, id)
	}
}

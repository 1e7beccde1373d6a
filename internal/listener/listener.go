// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package listener defines the listener capability consumed by the manager and
// a builder for the common case of a handler function plus filters.
package listener

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/ManuGH/botcore/internal/event"
	"github.com/ManuGH/botcore/internal/processing"
)

// Priorities. Lower values run first.
const (
	PriorityFirst  = -1000
	PriorityHigh   = -100
	PriorityNormal = 0
	PriorityLow    = 100
	PriorityLast   = 1000
)

// Listener is a unit of event handling registered with the manager.
type Listener interface {
	processing.ListenerInfo

	// IsTarget reports whether events of key are of interest. It must be a
	// pure function of key.
	IsTarget(key *event.Key) bool
	// Match is the final per-event predicate evaluated before Invoke.
	Match(ctx context.Context, lc *processing.ListenerContext) (bool, error)
	Invoke(ctx context.Context, lc *processing.ListenerContext) (event.Result, error)
}

// Handler handles a matched event.
type Handler func(ctx context.Context, lc *processing.ListenerContext) (event.Result, error)

// MatchFunc is a per-event predicate.
type MatchFunc func(ctx context.Context, lc *processing.ListenerContext) (bool, error)

// Simple is a Listener built from a target key, a handler and options.
type Simple struct {
	id        string
	target    *event.Key
	priority  int
	async     bool
	blockNext bool
	matcher   MatchFunc
	filters   []Filter
	handler   Handler
}

// Option configures a Simple listener.
type Option func(*Simple)

// WithID sets the listener id. The default is a random UUID.
func WithID(id string) Option {
	return func(s *Simple) {
		if id != "" {
			s.id = id
		}
	}
}

// WithPriority sets the priority. The default is PriorityNormal.
func WithPriority(p int) Option {
	return func(s *Simple) { s.priority = p }
}

// Async makes the listener run on the manager's task group.
func Async() Option {
	return func(s *Simple) { s.async = true }
}

// WithMatcher sets a predicate evaluated before the filters.
func WithMatcher(fn MatchFunc) Option {
	return func(s *Simple) { s.matcher = fn }
}

// WithFilters adds filters. All of them must pass for the listener to match.
func WithFilters(filters ...Filter) Option {
	return func(s *Simple) {
		for _, f := range filters {
			if f != nil {
				s.filters = append(s.filters, f)
			}
		}
	}
}

// BlockNext makes the default result of a Consume listener truncate dispatch.
func BlockNext() Option {
	return func(s *Simple) { s.blockNext = true }
}

// New builds a listener for events of target and every key descending from it.
// A nil target means event.Root.
func New(target *event.Key, h Handler, opts ...Option) *Simple {
	if target == nil {
		target = event.Root
	}
	s := &Simple{
		id:       uuid.NewString(),
		target:   target,
		priority: PriorityNormal,
		handler:  h,
	}
	for _, opt := range opts {
		opt(s)
	}
	sort.SliceStable(s.filters, func(i, j int) bool {
		return s.filters[i].Priority() < s.filters[j].Priority()
	})
	if s.handler == nil {
		s.handler = func(context.Context, *processing.ListenerContext) (event.Result, error) {
			return event.Invalid(), nil
		}
	}
	return s
}

// Consume builds a listener whose handler has no result of its own. It yields
// an empty value result that truncates when BlockNext is set.
func Consume(target *event.Key, fn func(ctx context.Context, lc *processing.ListenerContext) error, opts ...Option) *Simple {
	s := New(target, nil, opts...)
	s.handler = func(ctx context.Context, lc *processing.ListenerContext) (event.Result, error) {
		if err := fn(ctx, lc); err != nil {
			return event.Invalid(), err
		}
		return event.Defaults(s.blockNext), nil
	}
	return s
}

func (s *Simple) ID() string    { return s.id }
func (s *Simple) Priority() int { return s.priority }
func (s *Simple) IsAsync() bool { return s.async }

// Target returns the key the listener was built for.
func (s *Simple) Target() *event.Key { return s.target }

// IsTarget implements Listener.
func (s *Simple) IsTarget(key *event.Key) bool {
	return key.IsSubOf(s.target)
}

// Match runs the matcher, then the filters in priority order.
func (s *Simple) Match(ctx context.Context, lc *processing.ListenerContext) (bool, error) {
	if s.matcher != nil {
		ok, err := s.matcher(ctx, lc)
		if err != nil || !ok {
			return false, err
		}
	}
	for _, f := range s.filters {
		ok, err := f.Test(ctx, lc)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// Invoke implements Listener.
func (s *Simple) Invoke(ctx context.Context, lc *processing.ListenerContext) (event.Result, error) {
	return s.handler(ctx, lc)
}

var _ Listener = (*Simple)(nil)

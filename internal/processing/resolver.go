// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package processing

import (
	"context"

	"github.com/ManuGH/botcore/internal/event"
	"github.com/ManuGH/botcore/internal/scope"
)

// InvokeType tells the dispatcher whether to keep invoking listeners.
type InvokeType int

const (
	Continue InvokeType = iota
	Truncated
)

func (t InvokeType) String() string {
	if t == Truncated {
		return "truncated"
	}
	return "continue"
}

// Result is the immutable outcome of one dispatch.
type Result struct {
	results []event.Result
}

// Empty returns the result of a dispatch that invoked no listener.
func Empty() Result { return Result{} }

// NewResult snapshots results.
func NewResult(results []event.Result) Result {
	return Result{results: append([]event.Result(nil), results...)}
}

// Results returns a copy of the listener results in invocation order.
func (r Result) Results() []event.Result {
	return append([]event.Result(nil), r.results...)
}

// Len returns the number of listener results.
func (r Result) Len() int { return len(r.results) }

// Resolver creates and feeds event contexts for the listener manager.
type Resolver interface {
	// IsProcessable reports whether events of key must be resolved even when
	// no registered listener targets them.
	IsProcessable(key *event.Key) bool
	// ResolveEventToContext builds the context of a dispatch. A nil context
	// without error skips the dispatch.
	ResolveEventToContext(ctx context.Context, ev event.Event, sizeHint int) (*EventContext, error)
	// AppendResult records r in ec.
	AppendResult(ctx context.Context, ec *EventContext, r event.Result) (InvokeType, error)

	Global() *scope.Scope
	Sessions() *scope.Sessions
}

// CoreResolver is the default Resolver. It owns the global scope and the
// continuous-session registry of one manager.
type CoreResolver struct {
	global   *scope.Scope
	sessions *scope.Sessions
}

// NewCoreResolver creates a resolver with fresh scopes.
func NewCoreResolver() *CoreResolver {
	return &CoreResolver{
		global:   scope.New("global"),
		sessions: scope.NewSessions(),
	}
}

func (r *CoreResolver) Global() *scope.Scope      { return r.global }
func (r *CoreResolver) Sessions() *scope.Sessions { return r.sessions }

// IsProcessable is true while continuous sessions are waiting, since those are
// not visible to the static listener registry.
func (r *CoreResolver) IsProcessable(*event.Key) bool {
	return r.sessions.Len() > 0
}

// ResolveEventToContext offers ev to waiting sessions and builds a context.
func (r *CoreResolver) ResolveEventToContext(_ context.Context, ev event.Event, sizeHint int) (*EventContext, error) {
	if r.sessions.Len() > 0 {
		r.sessions.Offer(ev)
	}
	return NewEventContext(ev, r.global, r.sessions, sizeHint), nil
}

// AppendResult appends every result, Invalid included, and reports truncation.
func (r *CoreResolver) AppendResult(_ context.Context, ec *EventContext, res event.Result) (InvokeType, error) {
	ec.append(res)
	if res.IsTruncated() {
		return Truncated, nil
	}
	return Continue, nil
}

var _ Resolver = (*CoreResolver)(nil)

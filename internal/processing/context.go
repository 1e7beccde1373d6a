// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package processing holds the per-dispatch state of the listener pipeline:
// the event context with its accumulated results and scopes, the per-listener
// context, and the resolver that creates and feeds them.
package processing

import (
	"sync"
	"sync/atomic"

	"golang.org/x/text/unicode/norm"

	"github.com/ManuGH/botcore/internal/event"
	"github.com/ManuGH/botcore/internal/scope"
)

// ListenerInfo identifies the listener a ListenerContext was derived for.
type ListenerInfo interface {
	ID() string
	Priority() int
	IsAsync() bool
}

// EventContext is the state of one dispatch. It is created per pushed event
// and shared by every listener of that event.
type EventContext struct {
	event event.Event

	resMu   sync.RWMutex
	results []event.Result

	global   *scope.Scope
	sessions *scope.Sessions

	instantMu sync.Mutex
	instant   atomic.Pointer[scope.Scope]
}

// NewEventContext creates a context. sizeHint preallocates the result list;
// it does not cap it.
func NewEventContext(ev event.Event, global *scope.Scope, sessions *scope.Sessions, sizeHint int) *EventContext {
	if sizeHint < 0 {
		sizeHint = 0
	}
	return &EventContext{
		event:    ev,
		results:  make([]event.Result, 0, sizeHint),
		global:   global,
		sessions: sessions,
	}
}

// Event returns the event being dispatched.
func (c *EventContext) Event() event.Event { return c.event }

// Results returns a copy of the results appended so far, in invocation order.
func (c *EventContext) Results() []event.Result {
	c.resMu.RLock()
	defer c.resMu.RUnlock()
	return append([]event.Result(nil), c.results...)
}

// Len returns the number of results appended so far.
func (c *EventContext) Len() int {
	c.resMu.RLock()
	defer c.resMu.RUnlock()
	return len(c.results)
}

func (c *EventContext) append(r event.Result) {
	c.resMu.Lock()
	c.results = append(c.results, r)
	c.resMu.Unlock()
}

// Global returns the manager-wide scope.
func (c *EventContext) Global() *scope.Scope { return c.global }

// Sessions returns the manager-wide continuous-session registry.
func (c *EventContext) Sessions() *scope.Sessions { return c.sessions }

// Instant returns the per-event scope, creating it on first use.
func (c *EventContext) Instant() *scope.Scope {
	if s := c.instant.Load(); s != nil {
		return s
	}
	c.instantMu.Lock()
	defer c.instantMu.Unlock()
	if s := c.instant.Load(); s != nil {
		return s
	}
	s := scope.New("instant")
	c.instant.Store(s)
	return s
}

// instantCreated reports whether Instant was ever called.
func (c *EventContext) instantCreated() bool {
	return c.instant.Load() != nil
}

// ListenerContext is the view of an EventContext handed to one listener.
type ListenerContext struct {
	*EventContext

	listener ListenerInfo

	textOnce sync.Once
	textMu   sync.RWMutex
	text     string
	hasText  bool
}

// WithListener derives the context for listener l.
func (c *EventContext) WithListener(l ListenerInfo) *ListenerContext {
	return &ListenerContext{EventContext: c, listener: l}
}

// Listener returns the listener this context belongs to.
func (lc *ListenerContext) Listener() ListenerInfo { return lc.listener }

// TextContent returns the NFC-normalised plain text of a message event. ok is
// false for events without message content.
func (lc *ListenerContext) TextContent() (text string, ok bool) {
	lc.textOnce.Do(func() {
		if me, isMsg := lc.event.(event.MessageEvent); isMsg {
			lc.textMu.Lock()
			lc.text = norm.NFC.String(me.PlainText())
			lc.hasText = true
			lc.textMu.Unlock()
		}
	})
	lc.textMu.RLock()
	defer lc.textMu.RUnlock()
	return lc.text, lc.hasText
}

// SetTextContent replaces the text seen by later stages of this listener's
// pipeline, e.g. after an interceptor stripped a command prefix.
func (lc *ListenerContext) SetTextContent(text string) {
	lc.textOnce.Do(func() {})
	lc.textMu.Lock()
	lc.text = text
	lc.hasText = true
	lc.textMu.Unlock()
}

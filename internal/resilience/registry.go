// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package resilience

import "sync"

// Registry lazily creates one breaker per listener id with shared settings.
type Registry struct {
	settings Settings

	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
}

// NewRegistry creates an empty registry.
func NewRegistry(s Settings) *Registry {
	return &Registry{
		settings: s,
		breakers: make(map[string]*CircuitBreaker),
	}
}

// Get returns the breaker for name, creating it on first use.
func (r *Registry) Get(name string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	cb, ok := r.breakers[name]
	if !ok {
		cb = NewCircuitBreaker(name, r.settings)
		r.breakers[name] = cb
	}
	return cb
}

func (r *Registry) all() map[string]*CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]*CircuitBreaker, len(r.breakers))
	for name, cb := range r.breakers {
		out[name] = cb
	}
	return out
}

// States returns the state of every breaker created so far.
func (r *Registry) States() map[string]State {
	all := r.all()
	out := make(map[string]State, len(all))
	for name, cb := range all {
		out[name] = cb.State()
	}
	return out
}

// Snapshots returns a snapshot of every breaker created so far.
func (r *Registry) Snapshots() map[string]Snapshot {
	all := r.all()
	out := make(map[string]Snapshot, len(all))
	for name, cb := range all {
		out[name] = cb.Snapshot()
	}
	return out
}

// Reset closes the breaker for name. It reports false when no breaker was
// created for name.
func (r *Registry) Reset(name string) bool {
	r.mu.Lock()
	cb, ok := r.breakers[name]
	r.mu.Unlock()
	if !ok {
		return false
	}
	cb.Reset()
	return true
}

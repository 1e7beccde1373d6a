// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"sort"

	"github.com/ManuGH/botcore/internal/event"
	"github.com/ManuGH/botcore/internal/metrics"
)

// snapshot is an immutable resolution cache generation.
type snapshot map[*event.Key][]*invoker

// resolve returns the invokers targeting key, sync before async and then by
// ascending priority. Ties keep registration order. Reads are lock-free.
func (m *Manager) resolve(key *event.Key) []*invoker {
	if cached, ok := (*m.cache.Load())[key]; ok {
		return cached
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	current := *m.cache.Load()
	if cached, ok := current[key]; ok {
		return cached
	}

	var resolved []*invoker
	for _, inv := range m.order {
		if inv.listener.IsTarget(key) {
			resolved = append(resolved, inv)
		}
	}
	sort.SliceStable(resolved, func(i, j int) bool {
		a, b := resolved[i].listener, resolved[j].listener
		if a.IsAsync() != b.IsAsync() {
			return !a.IsAsync()
		}
		return a.Priority() < b.Priority()
	})

	next := make(snapshot, len(current)+1)
	for k, v := range current {
		next[k] = v
	}
	next[key] = resolved
	m.cache.Store(&next)
	metrics.IncCacheRebuild()

	return resolved
}

// invalidateLocked drops every cached resolution. Caller holds m.mu.
func (m *Manager) invalidateLocked() {
	empty := snapshot{}
	m.cache.Store(&empty)
}

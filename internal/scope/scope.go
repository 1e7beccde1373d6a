// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package scope provides attribute storage for the dispatch pipeline: typed
// attributes stored in a Scope, and continuous sessions that let a listener
// wait for a later event.
package scope

import (
	"sync"
)

// Attribute is a typed key into a Scope. Attributes are compared by identity,
// so two attributes created with the same name do not collide.
type Attribute[T any] struct {
	name string
}

// NewAttribute creates an attribute key.
func NewAttribute[T any](name string) *Attribute[T] {
	return &Attribute[T]{name: name}
}

// Name returns the attribute's name.
func (a *Attribute[T]) Name() string { return a.name }

func (a *Attribute[T]) String() string { return a.name }

// Scope is a concurrency safe attribute map. Every operation on a single
// attribute is atomic.
type Scope struct {
	name string

	mu     sync.RWMutex
	values map[any]any
}

// New creates an empty scope.
func New(name string) *Scope {
	return &Scope{name: name, values: make(map[any]any)}
}

// Name returns the scope's name ("global", "instant", ...).
func (s *Scope) Name() string { return s.name }

// Len returns the number of stored attributes.
func (s *Scope) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// Contains reports whether attr has a value in s.
func Contains[T any](s *Scope, attr *Attribute[T]) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.values[attr]
	return ok
}

// Get returns the value stored for attr.
func Get[T any](s *Scope, attr *Attribute[T]) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[attr]
	if !ok {
		var zero T
		return zero, false
	}
	return v.(T), true
}

// Put stores value and returns the previous one.
func Put[T any](s *Scope, attr *Attribute[T], value T) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.values[attr]
	s.values[attr] = value
	if !ok {
		var zero T
		return zero, false
	}
	return old.(T), true
}

// Remove deletes attr and returns the removed value.
func Remove[T any](s *Scope, attr *Attribute[T]) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.values[attr]
	if !ok {
		var zero T
		return zero, false
	}
	delete(s.values, attr)
	return old.(T), true
}

// ComputeIfAbsent returns the stored value, storing compute() first if absent.
// compute runs under the scope lock and must not touch s.
func ComputeIfAbsent[T any](s *Scope, attr *Attribute[T], compute func() T) T {
	if v, ok := Get(s, attr); ok {
		return v
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.values[attr]; ok {
		return v.(T)
	}
	v := compute()
	s.values[attr] = v
	return v
}

// Merge stores value if absent, otherwise remap(old, value). Returns the stored value.
func Merge[T any](s *Scope, attr *Attribute[T], value T, remap func(old, value T) T) T {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.values[attr]; ok {
		value = remap(old.(T), value)
	}
	s.values[attr] = value
	return value
}

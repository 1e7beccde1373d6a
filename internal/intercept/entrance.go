// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package intercept implements ordered interceptor chains wrapping a terminal
// function. The same chain type serves the process level and the listener
// level of the dispatch pipeline.
package intercept

import (
	"context"
	"sort"
)

// Point selects where a listener interceptor runs.
type Point int

const (
	// PointDefault runs before the listener's match.
	PointDefault Point = iota
	// PointAfterMatch runs only once the listener matched.
	PointAfterMatch
)

func (p Point) String() string {
	switch p {
	case PointDefault:
		return "default"
	case PointAfterMatch:
		return "after_match"
	default:
		return "unknown"
	}
}

// Next runs the remainder of a chain.
type Next[C, R any] func(ctx context.Context, c C) (R, error)

// Interceptor wraps the remainder of a chain. It may call next any number of
// times, including not at all to suppress the terminal.
type Interceptor[C, R any] interface {
	Priority() int
	Intercept(ctx context.Context, c C, next Next[C, R]) (R, error)
}

type funcInterceptor[C, R any] struct {
	priority int
	fn       func(ctx context.Context, c C, next Next[C, R]) (R, error)
}

func (f funcInterceptor[C, R]) Priority() int { return f.priority }

func (f funcInterceptor[C, R]) Intercept(ctx context.Context, c C, next Next[C, R]) (R, error) {
	return f.fn(ctx, c, next)
}

// Func adapts fn to an Interceptor.
func Func[C, R any](priority int, fn func(ctx context.Context, c C, next Next[C, R]) (R, error)) Interceptor[C, R] {
	return funcInterceptor[C, R]{priority: priority, fn: fn}
}

// Entrance is an immutable chain of interceptors.
type Entrance[C, R any] struct {
	chain []Interceptor[C, R]
}

// NewEntrance orders interceptors ascending by priority. Equal priorities keep
// their given order. Nil interceptors are dropped.
func NewEntrance[C, R any](interceptors ...Interceptor[C, R]) *Entrance[C, R] {
	chain := make([]Interceptor[C, R], 0, len(interceptors))
	for _, i := range interceptors {
		if i != nil {
			chain = append(chain, i)
		}
	}
	sort.SliceStable(chain, func(a, b int) bool {
		return chain[a].Priority() < chain[b].Priority()
	})
	return &Entrance[C, R]{chain: chain}
}

// Len returns the number of interceptors.
func (e *Entrance[C, R]) Len() int {
	if e == nil {
		return 0
	}
	return len(e.chain)
}

// Do runs c through the chain, outermost (lowest priority value) first, and
// finally through terminal. Errors propagate unchanged.
func (e *Entrance[C, R]) Do(ctx context.Context, c C, terminal Next[C, R]) (R, error) {
	if e == nil || len(e.chain) == 0 {
		return terminal(ctx, c)
	}
	return e.step(0, terminal)(ctx, c)
}

func (e *Entrance[C, R]) step(i int, terminal Next[C, R]) Next[C, R] {
	if i == len(e.chain) {
		return terminal
	}
	return func(ctx context.Context, c C) (R, error) {
		return e.chain[i].Intercept(ctx, c, e.step(i+1, terminal))
	}
}

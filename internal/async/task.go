// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package async provides the execution scope used by the listener manager:
// a cancellable task group and future-like task handles.
package async

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
)

// ErrGroupClosed is returned by tasks spawned on a closed group.
var ErrGroupClosed = errors.New("task group is closed")

// PanicError is the error a task resolves to when its function panics.
type PanicError struct {
	Value any
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// Task is a handle to a value computed concurrently.
type Task[T any] struct {
	done   chan struct{}
	cancel context.CancelFunc
	val    T
	err    error
}

// Completed returns a task that is already resolved with v.
func Completed[T any](v T) *Task[T] {
	t := &Task[T]{done: make(chan struct{}), cancel: func() {}, val: v}
	close(t.done)
	return t
}

// Failed returns a task that is already resolved with err.
func Failed[T any](err error) *Task[T] {
	t := &Task[T]{done: make(chan struct{}), cancel: func() {}, err: err}
	close(t.done)
	return t
}

// Done is closed once the task finished.
func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task finished or ctx is done.
func (t *Task[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		return t.val, t.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result returns the outcome without blocking. ok is false while running.
func (t *Task[T]) Result() (v T, err error, ok bool) {
	select {
	case <-t.done:
		return t.val, t.err, true
	default:
		var zero T
		return zero, nil, false
	}
}

// Cancel cancels the task's context. The task still has to observe it.
func (t *Task[T]) Cancel() {
	t.cancel()
}

func (t *Task[T]) run(ctx context.Context, fn func(context.Context) (T, error)) {
	defer close(t.done)
	defer t.cancel()
	defer func() {
		if r := recover(); r != nil {
			var zero T
			t.val = zero
			t.err = &PanicError{Value: r, Stack: string(debug.Stack())}
		}
	}()
	t.val, t.err = fn(ctx)
}

// Group is a long-lived scope that owns concurrently running tasks.
type Group struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup

	drainOnce sync.Once
	drained   chan struct{}
}

// NewGroup creates a group bound to parent. Cancelling parent cancels every
// task of the group.
func NewGroup(parent context.Context) *Group {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Group{ctx: ctx, cancel: cancel}
}

// Context returns the group's context.
func (g *Group) Context() context.Context {
	return g.ctx
}

// Go starts fn on the group. The task context keeps the values of ctx but is
// cancelled by the group (or Task.Cancel), not by ctx.
func Go[T any](g *Group, ctx context.Context, fn func(context.Context) (T, error)) *Task[T] {
	if ctx == nil {
		ctx = context.Background()
	}

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return Failed[T](ErrGroupClosed)
	}
	g.wg.Add(1)
	g.mu.Unlock()

	taskCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(g.ctx, cancel)

	t := &Task[T]{done: make(chan struct{}), cancel: cancel}
	go func() {
		defer g.wg.Done()
		defer stop()
		t.run(taskCtx, fn)
	}()
	return t
}

// Close cancels all tasks and waits for them to return or ctx to expire.
// Repeated calls share one waiter.
func (g *Group) Close(ctx context.Context) error {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
	g.cancel()

	select {
	case <-g.drain():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for tasks: %w", ctx.Err())
	}
}

// drain is closed once every task returned. Callers must have marked the
// group closed.
func (g *Group) drain() <-chan struct{} {
	g.drainOnce.Do(func() {
		g.drained = make(chan struct{})
		go func() {
			g.wg.Wait()
			close(g.drained)
		}()
	})
	return g.drained
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package event

import (
	"context"

	"github.com/ManuGH/botcore/internal/async"
)

// ResultKind tells the variants of Result apart.
type ResultKind int

const (
	// KindInvalid means the listener declined or produced nothing.
	KindInvalid ResultKind = iota
	// KindValue carries listener output.
	KindValue
	// KindAsync wraps a listener still running on the manager's task group.
	KindAsync
)

func (k ResultKind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindValue:
		return "value"
	case KindAsync:
		return "async"
	default:
		return "unknown"
	}
}

// Result is what a listener contributes to a dispatch.
// The zero value is an Invalid result.
type Result struct {
	kind      ResultKind
	content   any
	truncated bool
	task      *async.Task[Result]
}

// Invalid returns the result of a listener that did not handle the event.
func Invalid() Result {
	return Result{kind: KindInvalid}
}

// ValueOf returns a value result that lets dispatch continue.
func ValueOf(content any) Result {
	return Result{kind: KindValue, content: content}
}

// Truncate returns a value result that stops dispatch after this listener.
func Truncate(content any) Result {
	return Result{kind: KindValue, content: content, truncated: true}
}

// Defaults returns a value result without content.
func Defaults(truncated bool) Result {
	return Result{kind: KindValue, truncated: truncated}
}

// Async wraps a running listener task. Async results never truncate.
func Async(task *async.Task[Result]) Result {
	return Result{kind: KindAsync, task: task}
}

func (r Result) Kind() ResultKind { return r.kind }

// Content is the listener output. Nil for Invalid and Async results.
func (r Result) Content() any { return r.content }

// IsTruncated reports whether dispatch must stop after this result.
func (r Result) IsTruncated() bool { return r.truncated }

// Task returns the pending task of an Async result, nil otherwise.
func (r Result) Task() *async.Task[Result] { return r.task }

// Await resolves an Async result by waiting on its task. Other variants are
// returned as is.
func (r Result) Await(ctx context.Context) (Result, error) {
	if r.kind != KindAsync || r.task == nil {
		return r, nil
	}
	return r.task.Wait(ctx)
}

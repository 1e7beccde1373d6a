// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"context"
	"runtime/debug"

	"github.com/ManuGH/botcore/internal/async"
	"github.com/ManuGH/botcore/internal/event"
	"github.com/ManuGH/botcore/internal/intercept"
	"github.com/ManuGH/botcore/internal/listener"
	"github.com/ManuGH/botcore/internal/log"
	"github.com/ManuGH/botcore/internal/metrics"
	"github.com/ManuGH/botcore/internal/processing"
)

// invoker runs one listener behind the manager's listener interceptors.
type invoker struct {
	m          *Manager
	listener   listener.Listener
	defaults   *intercept.Entrance[*processing.ListenerContext, event.Result]
	afterMatch *intercept.Entrance[*processing.ListenerContext, event.Result]
}

func (m *Manager) newInvoker(l listener.Listener) *invoker {
	return &invoker{
		m:          m,
		listener:   l,
		defaults:   m.defaultEntrance,
		afterMatch: m.afterMatchEntrance,
	}
}

// run produces the listener's contribution to a dispatch. Failures never
// escape: a sync listener's failure becomes Invalid, an async listener's is
// held by its task.
func (inv *invoker) run(ctx context.Context, lc *processing.ListenerContext) event.Result {
	if !inv.listener.IsAsync() {
		res, err := inv.execute(ctx, lc)
		if err != nil {
			return event.Invalid()
		}
		return res
	}
	task := async.Go(inv.m.group, ctx, func(ctx context.Context) (event.Result, error) {
		return inv.execute(ctx, lc)
	})
	return event.Async(task)
}

// execute runs the pipeline and applies the exception handler. The returned
// error is a *ListenerError or *HandlerError and has already been logged.
func (inv *invoker) execute(ctx context.Context, lc *processing.ListenerContext) (event.Result, error) {
	id := inv.listener.ID()
	res, err := inv.guarded(ctx, lc)
	if err == nil {
		metrics.RecordListenerInvocation(id, outcomeOf(res))
		return res, nil
	}

	var failure error = &ListenerError{ListenerID: id, Err: err}
	if h := inv.m.handler; h != nil {
		handled, herr := inv.handle(ctx, lc, h, failure)
		if herr == nil {
			metrics.RecordListenerInvocation(id, metrics.OutcomeHandled)
			return handled, nil
		}
		failure = &HandlerError{Err: herr, Suppressed: failure}
	}

	metrics.RecordListenerInvocation(id, metrics.OutcomeError)
	logger := log.WithContext(ctx, inv.m.logger)
	logger.Error().
		Err(failure).
		Str(log.FieldEvent, "dispatch.listener_failed").
		Str(log.FieldListenerID, id).
		Str(log.FieldEventKey, lc.Event().Key().ID()).
		Msg("listener failed")
	return event.Invalid(), failure
}

// guarded runs default interceptors, match, after-match interceptors and
// invoke, turning panics into *PanicError.
func (inv *invoker) guarded(ctx context.Context, lc *processing.ListenerContext) (res event.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = event.Invalid(), &PanicError{Value: r, Stack: string(debug.Stack())}
		}
	}()
	return inv.defaults.Do(ctx, lc, inv.matchThenInvoke)
}

func (inv *invoker) matchThenInvoke(ctx context.Context, lc *processing.ListenerContext) (event.Result, error) {
	ok, err := inv.listener.Match(ctx, lc)
	if err != nil {
		return event.Invalid(), err
	}
	if !ok {
		return event.Invalid(), nil
	}
	return inv.afterMatch.Do(ctx, lc, inv.listener.Invoke)
}

func (inv *invoker) handle(ctx context.Context, lc *processing.ListenerContext, h ExceptionHandler, failure error) (res event.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = event.Invalid(), &PanicError{Value: r, Stack: string(debug.Stack())}
		}
	}()
	return h(ctx, lc, failure)
}

func outcomeOf(r event.Result) string {
	switch {
	case r.Kind() == event.KindInvalid:
		return metrics.OutcomeInvalid
	case r.IsTruncated():
		return metrics.OutcomeTruncated
	default:
		return metrics.OutcomeValue
	}
}

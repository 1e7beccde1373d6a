// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/botcore/internal/async"
	"github.com/ManuGH/botcore/internal/event"
	"github.com/ManuGH/botcore/internal/log"
	"github.com/ManuGH/botcore/internal/metrics"
	"github.com/ManuGH/botcore/internal/processing"
	"github.com/ManuGH/botcore/internal/telemetry"
)

// Push dispatches ev to its listeners on the calling goroutine and returns
// their results. Async listeners contribute an Async result without being
// awaited. Push never fails: pipeline failures are logged and yield an empty
// result.
func (m *Manager) Push(ctx context.Context, ev event.Event) processing.Result {
	return m.dispatch(ctx, ev, false)
}

// PushAsync runs Push on the manager's task group. The dispatch keeps the
// values of ctx but not its cancellation.
func (m *Manager) PushAsync(ctx context.Context, ev event.Event) *async.Task[processing.Result] {
	pending, err := m.pending(ev.Key())
	if err != nil {
		m.pipelineFailure(ctx, ev, err)
		return async.Completed(processing.Empty())
	}
	if !pending {
		metrics.RecordPush(ev.Key().ID(), metrics.OutcomeNoListeners)
		return async.Completed(processing.Empty())
	}
	return async.Go(m.group, ctx, func(ctx context.Context) (processing.Result, error) {
		return m.dispatch(ctx, ev, true), nil
	})
}

// pending reports whether events of key need a dispatch. A panic while
// resolving is returned as a PanicError.
func (m *Manager) pending(key *event.Key) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: string(debug.Stack())}
		}
	}()
	return m.IsProcessable(key), nil
}

func (m *Manager) dispatch(ctx context.Context, ev event.Event, detached bool) (res processing.Result) {
	var span trace.Span
	defer func() {
		if r := recover(); r != nil {
			m.pipelineFailure(ctx, ev, &PanicError{Value: r, Stack: string(debug.Stack())})
			res = processing.Empty()
		}
		if span != nil {
			span.End()
		}
	}()

	key := ev.Key()
	invokers := m.resolve(key)
	if len(invokers) == 0 {
		if !m.resolver.IsProcessable(key) {
			metrics.RecordPush(key.ID(), metrics.OutcomeNoListeners)
			return processing.Empty()
		}
		// sessions may be waiting for this event
		if _, err := m.resolver.ResolveEventToContext(ctx, ev, 0); err != nil {
			m.pipelineFailure(ctx, ev, fmt.Errorf("resolve context: %w", err))
			return processing.Empty()
		}
		metrics.RecordPush(key.ID(), metrics.OutcomeNoListeners)
		return processing.Empty()
	}

	botID := ""
	if bot := ev.Bot(); bot != nil {
		botID = bot.ID()
	}
	ctx = log.ContextWithEventID(ctx, ev.ID())
	if botID != "" {
		ctx = log.ContextWithBotID(ctx, botID)
	}
	ctx, span = m.tracer.Start(ctx, "dispatch",
		trace.WithAttributes(telemetry.EventAttributes(key.ID(), ev.ID(), botID)...),
		trace.WithAttributes(telemetry.DispatchAttributes(m.name, len(invokers), detached)...),
	)
	start := time.Now()

	ec, err := m.resolver.ResolveEventToContext(ctx, ev, len(invokers))
	if err != nil {
		m.pipelineFailure(ctx, ev, fmt.Errorf("resolve context: %w", err))
		return processing.Empty()
	}
	if ec == nil {
		metrics.RecordPush(key.ID(), metrics.OutcomeSkipped)
		return processing.Empty()
	}

	res, err = m.pipeline.Do(ctx, ec, func(ctx context.Context, ec *processing.EventContext) (processing.Result, error) {
		return m.invokeAll(ctx, ec, invokers)
	})
	if err != nil {
		m.pipelineFailure(ctx, ev, err)
		return processing.Empty()
	}

	metrics.ObserveDispatch(time.Since(start))
	metrics.RecordPush(key.ID(), metrics.OutcomeDispatched)
	span.SetAttributes(attribute.Int(telemetry.DispatchResultsKey, res.Len()))
	return res
}

// invokeAll is the terminal of the process-level chain.
func (m *Manager) invokeAll(ctx context.Context, ec *processing.EventContext, invokers []*invoker) (processing.Result, error) {
	for _, inv := range invokers {
		lc := ec.WithListener(inv.listener)
		r := inv.run(ctx, lc)
		typ, err := m.resolver.AppendResult(ctx, ec, r)
		if err != nil {
			return processing.Empty(), fmt.Errorf("append result of listener %q: %w", inv.listener.ID(), err)
		}
		if typ == processing.Truncated {
			break
		}
	}
	return processing.NewResult(ec.Results()), nil
}

// pipelineFailure logs err against the event's bot.
func (m *Manager) pipelineFailure(ctx context.Context, ev event.Event, err error) {
	metrics.IncPipelineFailure()
	metrics.RecordPush(ev.Key().ID(), metrics.OutcomeFailed)

	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(telemetry.ErrorAttributes(err, "pipeline")...)

	logger := m.logger
	if bot := ev.Bot(); bot != nil {
		logger = bot.Logger()
	}
	logger = log.WithContext(ctx, logger)
	logger.Error().
		Err(err).
		Str(log.FieldEvent, "dispatch.pipeline_failed").
		Str(log.FieldManager, m.name).
		Str(log.FieldEventID, ev.ID()).
		Str(log.FieldEventKey, ev.Key().ID()).
		Msg("event dispatch failed")
}

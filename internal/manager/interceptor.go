// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"context"

	"github.com/ManuGH/botcore/internal/event"
	"github.com/ManuGH/botcore/internal/intercept"
	"github.com/ManuGH/botcore/internal/processing"
)

type (
	// ProcessingNext runs the rest of the process-level chain.
	ProcessingNext = intercept.Next[*processing.EventContext, processing.Result]
	// ProcessingInterceptor wraps a whole dispatch.
	ProcessingInterceptor = intercept.Interceptor[*processing.EventContext, processing.Result]

	// ListenerNext runs the rest of a listener-level chain.
	ListenerNext = intercept.Next[*processing.ListenerContext, event.Result]
)

// ListenerInterceptor wraps the invocation of every listener at its Point.
type ListenerInterceptor interface {
	intercept.Interceptor[*processing.ListenerContext, event.Result]
	Point() intercept.Point
}

// ProcessingInterceptorFunc adapts fn to a ProcessingInterceptor.
func ProcessingInterceptorFunc(priority int, fn func(ctx context.Context, ec *processing.EventContext, next ProcessingNext) (processing.Result, error)) ProcessingInterceptor {
	return intercept.Func[*processing.EventContext, processing.Result](priority, fn)
}

type listenerInterceptor struct {
	intercept.Interceptor[*processing.ListenerContext, event.Result]
	point intercept.Point
}

func (l listenerInterceptor) Point() intercept.Point { return l.point }

// ListenerInterceptorFunc adapts fn to a ListenerInterceptor running at point.
func ListenerInterceptorFunc(point intercept.Point, priority int, fn func(ctx context.Context, lc *processing.ListenerContext, next ListenerNext) (event.Result, error)) ListenerInterceptor {
	return listenerInterceptor{
		Interceptor: intercept.Func[*processing.ListenerContext, event.Result](priority, fn),
		point:       point,
	}
}

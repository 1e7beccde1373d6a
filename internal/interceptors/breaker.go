// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package interceptors

import (
	"context"
	"errors"

	"github.com/ManuGH/botcore/internal/event"
	"github.com/ManuGH/botcore/internal/intercept"
	"github.com/ManuGH/botcore/internal/manager"
	"github.com/ManuGH/botcore/internal/processing"
	"github.com/ManuGH/botcore/internal/resilience"
)

// Breaker guards every listener with its own circuit breaker. An open breaker
// skips the listener with an Invalid result. Listener errors count as
// failures and still propagate to the manager.
func Breaker(registry *resilience.Registry) manager.ListenerInterceptor {
	return manager.ListenerInterceptorFunc(intercept.PointDefault, PriorityBreaker, func(ctx context.Context, lc *processing.ListenerContext, next manager.ListenerNext) (event.Result, error) {
		cb := registry.Get(lc.Listener().ID())

		var res event.Result
		err := cb.Execute(func() error {
			var err error
			res, err = next(ctx, lc)
			return err
		})
		if errors.Is(err, resilience.ErrCircuitOpen) {
			return event.Invalid(), nil
		}
		return res, err
	})
}

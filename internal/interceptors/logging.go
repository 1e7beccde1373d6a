// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package interceptors

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/botcore/internal/event"
	"github.com/ManuGH/botcore/internal/intercept"
	"github.com/ManuGH/botcore/internal/log"
	"github.com/ManuGH/botcore/internal/manager"
	"github.com/ManuGH/botcore/internal/processing"
)

// Logging logs every matched listener invocation at debug level.
func Logging(logger zerolog.Logger) manager.ListenerInterceptor {
	return manager.ListenerInterceptorFunc(intercept.PointAfterMatch, PriorityLogging, func(ctx context.Context, lc *processing.ListenerContext, next manager.ListenerNext) (event.Result, error) {
		start := time.Now()
		res, err := next(ctx, lc)

		l := log.WithContext(ctx, logger)
		entry := l.Debug()
		if err != nil {
			entry = l.Warn().Err(err)
		}
		entry.
			Str(log.FieldEvent, "listener.invoked").
			Str(log.FieldListenerID, lc.Listener().ID()).
			Str(log.FieldEventKey, lc.Event().Key().ID()).
			Str(log.FieldOutcome, res.Kind().String()).
			Bool("truncated", res.IsTruncated()).
			Dur(log.FieldDuration, time.Since(start)).
			Msg("listener invoked")
		return res, err
	})
}

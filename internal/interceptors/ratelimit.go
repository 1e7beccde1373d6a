// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package interceptors provides ready-made process and listener interceptors
// for the listener manager.
package interceptors

import (
	"context"

	"github.com/ManuGH/botcore/internal/manager"
	"github.com/ManuGH/botcore/internal/metrics"
	"github.com/ManuGH/botcore/internal/processing"
	"github.com/ManuGH/botcore/internal/ratelimit"
)

// Priorities of the built-in interceptors. Lower runs first.
const (
	PriorityRateLimit = -200
	PriorityDedupe    = -100
	PriorityBreaker   = -50
	PriorityLogging   = 100
)

// RateLimit drops events whose bot exceeds its token bucket.
func RateLimit(l *ratelimit.Limiter) manager.ProcessingInterceptor {
	return manager.ProcessingInterceptorFunc(PriorityRateLimit, func(ctx context.Context, ec *processing.EventContext, next manager.ProcessingNext) (processing.Result, error) {
		ev := ec.Event()
		botID := ""
		if bot := ev.Bot(); bot != nil {
			botID = bot.ID()
		}
		if !l.Allow(botID, ev.Key().ID()) {
			metrics.IncEventDropped("rate_limited")
			return processing.Empty(), nil
		}
		return next(ctx, ec)
	})
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package interceptors

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/botcore/internal/cache"
	"github.com/ManuGH/botcore/internal/event"
	"github.com/ManuGH/botcore/internal/log"
	"github.com/ManuGH/botcore/internal/manager"
	"github.com/ManuGH/botcore/internal/metrics"
	"github.com/ManuGH/botcore/internal/processing"
)

// DedupeConfig configures the dedupe interceptor.
type DedupeConfig struct {
	KV     cache.KV
	Prefix string        // defaults to "botcore:dedupe"
	TTL    time.Duration // defaults to 10 minutes
	// KeyFunc derives the dedupe key. Defaults to bot id + event id. An empty
	// key disables dedupe for the event.
	KeyFunc func(ev event.Event) string
	Logger  *zerolog.Logger
}

// DedupeKey is the default dedupe key of ev.
func DedupeKey(ev event.Event) string {
	botID := ""
	if bot := ev.Bot(); bot != nil {
		botID = bot.ID()
	}
	return botID + "/" + ev.ID()
}

// Dedupe drops events whose key was already seen within the TTL. Store errors
// let the event through.
func Dedupe(cfg DedupeConfig) manager.ProcessingInterceptor {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "botcore:dedupe"
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = DedupeKey
	}
	var logger zerolog.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	} else {
		logger = log.WithComponent("dedupe")
	}

	return manager.ProcessingInterceptorFunc(PriorityDedupe, func(ctx context.Context, ec *processing.EventContext, next manager.ProcessingNext) (processing.Result, error) {
		raw := keyFunc(ec.Event())
		if raw == "" {
			return next(ctx, ec)
		}
		sum := sha1.Sum([]byte(raw))
		storeKey := prefix + ":" + hex.EncodeToString(sum[:])

		fresh, err := cfg.KV.SetNX(ctx, storeKey, "1", ttl)
		if err != nil {
			l := log.WithContext(ctx, logger)
			l.Warn().
				Err(err).
				Str(log.FieldEvent, "dedupe.store_failed").
				Str(log.FieldEventID, ec.Event().ID()).
				Msg("dedupe store unavailable, dispatching anyway")
			return next(ctx, ec)
		}
		if !fresh {
			metrics.IncEventDropped("duplicate")
			return processing.Empty(), nil
		}
		return next(ctx, ec)
	})
}

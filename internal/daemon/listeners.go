// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/botcore/internal/event"
	"github.com/ManuGH/botcore/internal/listener"
	"github.com/ManuGH/botcore/internal/log"
	"github.com/ManuGH/botcore/internal/processing"
	"github.com/ManuGH/botcore/internal/scope"
	"github.com/ManuGH/botcore/internal/timer"
)

var memos = scope.NewAttribute[map[string]string]("daemon.memos")

// rememberTimeout bounds how long !remember waits for the follow-up message.
const rememberTimeout = 2 * time.Minute

// BuiltinListeners returns the command listeners of the demo daemon:
//
//	!ping            replies pong and stops further dispatch
//	!echo <text>     replies text
//	!remember        waits for the author's next message and stores it
//	!recall          replies the stored message
//
// and a listener logging every timer event.
func BuiltinListeners(logger zerolog.Logger) []listener.Listener {
	return []listener.Listener{
		listener.New(event.Message, func(context.Context, *processing.ListenerContext) (event.Result, error) {
			return event.Truncate("pong"), nil
		}, listener.WithID("ping"), listener.WithPriority(listener.PriorityHigh), listener.WithFilters(command("!ping"))),

		listener.New(event.Message, func(_ context.Context, lc *processing.ListenerContext) (event.Result, error) {
			text, _ := lc.TextContent()
			return event.ValueOf(strings.TrimSpace(strings.TrimPrefix(text, "!echo"))), nil
		}, listener.WithID("echo"), listener.WithFilters(command("!echo"))),

		listener.New(event.Message, remember, listener.WithID("remember"), listener.Async(), listener.WithFilters(command("!remember"))),

		listener.New(event.Message, func(_ context.Context, lc *processing.ListenerContext) (event.Result, error) {
			author := authorOf(lc.Event())
			stored, _ := scope.Get(lc.Global(), memos)
			if memo, ok := stored[author]; ok {
				return event.ValueOf(memo), nil
			}
			return event.ValueOf("nothing remembered yet"), nil
		}, listener.WithID("recall"), listener.WithFilters(command("!recall"))),

		listener.Consume(event.Timer, func(_ context.Context, lc *processing.ListenerContext) error {
			te, ok := lc.Event().(*timer.Event)
			if !ok {
				return nil
			}
			logger.Info().
				Str(log.FieldTaskID, te.TaskID()).
				Str(log.FieldBotID, te.Bot().ID()).
				Msg("timer fired")
			return nil
		}, listener.WithID("timer-log"), listener.WithPriority(listener.PriorityLast)),
	}
}

// command matches a message whose first word is name.
func command(name string) listener.Filter {
	return listener.FilterFunc(listener.PriorityNormal, func(_ context.Context, lc *processing.ListenerContext) (bool, error) {
		text, ok := lc.TextContent()
		if !ok {
			return false, nil
		}
		first, _, _ := strings.Cut(text, " ")
		return first == name, nil
	})
}

func authorOf(ev event.Event) string {
	if t, ok := ev.(interface{ AuthorID() string }); ok {
		return t.AuthorID()
	}
	return ""
}

func remember(ctx context.Context, lc *processing.ListenerContext) (event.Result, error) {
	ev := lc.Event()
	author := authorOf(ev)
	botID := ""
	if ev.Bot() != nil {
		botID = ev.Bot().ID()
	}

	waitCtx, cancel := context.WithTimeout(ctx, rememberTimeout)
	defer cancel()
	next, err := lc.Sessions().Wait(waitCtx, fmt.Sprintf("remember/%s/%s", botID, author), func(candidate event.Event) bool {
		if candidate.ID() == ev.ID() || authorOf(candidate) != author {
			return false
		}
		_, isMsg := candidate.(event.MessageEvent)
		return isMsg && candidate.Bot() != nil && candidate.Bot().ID() == botID
	})
	if err != nil {
		return event.Invalid(), err
	}

	memo := next.(event.MessageEvent).PlainText()
	scope.Merge(lc.Global(), memos, map[string]string{author: memo}, func(old, add map[string]string) map[string]string {
		merged := make(map[string]string, len(old)+len(add))
		for k, v := range old {
			merged[k] = v
		}
		for k, v := range add {
			merged[k] = v
		}
		return merged
	})
	return event.ValueOf("remembered: " + memo), nil
}

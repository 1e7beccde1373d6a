// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package listener

import (
	"context"
	"regexp"
	"strings"

	"github.com/ManuGH/botcore/internal/processing"
)

// Filter is a prioritised predicate attached to a Simple listener.
type Filter interface {
	Priority() int
	Test(ctx context.Context, lc *processing.ListenerContext) (bool, error)
}

type funcFilter struct {
	priority int
	fn       MatchFunc
}

func (f funcFilter) Priority() int { return f.priority }

func (f funcFilter) Test(ctx context.Context, lc *processing.ListenerContext) (bool, error) {
	return f.fn(ctx, lc)
}

// FilterFunc adapts fn to a Filter.
func FilterFunc(priority int, fn MatchFunc) Filter {
	return funcFilter{priority: priority, fn: fn}
}

// TextPrefix passes message events whose text starts with prefix.
func TextPrefix(prefix string) Filter {
	return FilterFunc(PriorityNormal, func(_ context.Context, lc *processing.ListenerContext) (bool, error) {
		text, ok := lc.TextContent()
		return ok && strings.HasPrefix(text, prefix), nil
	})
}

// TextRegexp passes message events whose text matches re.
func TextRegexp(re *regexp.Regexp) Filter {
	return FilterFunc(PriorityNormal, func(_ context.Context, lc *processing.ListenerContext) (bool, error) {
		text, ok := lc.TextContent()
		return ok && re.MatchString(text), nil
	})
}

// FromBots passes events of the listed bots. It runs before text filters.
func FromBots(ids ...string) Filter {
	allowed := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		allowed[id] = struct{}{}
	}
	return FilterFunc(PriorityHigh, func(_ context.Context, lc *processing.ListenerContext) (bool, error) {
		bot := lc.Event().Bot()
		if bot == nil {
			return false, nil
		}
		_, ok := allowed[bot.ID()]
		return ok, nil
	})
}

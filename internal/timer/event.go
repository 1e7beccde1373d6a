// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package timer

import (
	"context"
	"time"

	"github.com/ManuGH/botcore/internal/event"
	"github.com/ManuGH/botcore/internal/processing"
)

// Event is pushed each time a PushEvent task fires.
type Event struct {
	*event.Basic
	taskID string
}

// TaskID is the id of the task that fired.
func (e *Event) TaskID() string { return e.taskID }

// NewEvent builds a timer event for taskID with event.Timer as key.
func NewEvent(bot event.Bot, taskID string, at time.Time) *Event {
	return &Event{
		Basic:  event.New(event.Timer, bot, event.WithTimestamp(at), event.WithPayload(taskID)),
		taskID: taskID,
	}
}

// Pusher delivers events into a dispatch pipeline. *manager.Manager is one.
type Pusher interface {
	Push(ctx context.Context, ev event.Event) processing.Result
}

// PushEvent returns a task body that pushes a timer event for taskID on
// behalf of bot.
func PushEvent(p Pusher, bot event.Bot, taskID string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		p.Push(ctx, NewEvent(bot, taskID, time.Now()))
		return nil
	}
}

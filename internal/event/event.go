// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package event

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Bot is the bot an event belongs to.
type Bot interface {
	ID() string
	// Logger is used for failures that cannot be attributed to a listener.
	Logger() zerolog.Logger
}

// Event is something that happened to a bot.
type Event interface {
	ID() string
	Key() *Key
	Bot() Bot
	Timestamp() time.Time
}

// MessageEvent is an event carrying message content.
type MessageEvent interface {
	Event
	// PlainText is the text projection of the message content.
	PlainText() string
}

// Basic is a general purpose immutable Event.
type Basic struct {
	id        string
	key       *Key
	bot       Bot
	timestamp time.Time
	payload   any
}

// Option customises events built by New and NewMessage.
type Option func(*Basic)

// WithID overrides the generated event id.
func WithID(id string) Option {
	return func(b *Basic) {
		if id != "" {
			b.id = id
		}
	}
}

// WithTimestamp overrides the creation time.
func WithTimestamp(ts time.Time) Option {
	return func(b *Basic) { b.timestamp = ts }
}

// WithPayload attaches adapter specific data.
func WithPayload(payload any) Option {
	return func(b *Basic) { b.payload = payload }
}

// New creates a Basic event of the given key.
func New(key *Key, bot Bot, opts ...Option) *Basic {
	b := &Basic{
		id:        uuid.NewString(),
		key:       key,
		bot:       bot,
		timestamp: time.Now(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Basic) ID() string           { return b.id }
func (b *Basic) Key() *Key            { return b.key }
func (b *Basic) Bot() Bot             { return b.bot }
func (b *Basic) Timestamp() time.Time { return b.timestamp }
func (b *Basic) Payload() any         { return b.payload }

// Text is a MessageEvent with plain text content.
type Text struct {
	*Basic
	authorID string
	text     string
}

// NewMessage creates a text message event. key should descend from Message.
func NewMessage(key *Key, bot Bot, authorID, text string, opts ...Option) *Text {
	return &Text{
		Basic:    New(key, bot, opts...),
		authorID: authorID,
		text:     text,
	}
}

// AuthorID returns the id of the user who sent the message.
func (t *Text) AuthorID() string { return t.authorID }

// PlainText implements MessageEvent.
func (t *Text) PlainText() string { return t.text }

var (
	_ Event        = (*Basic)(nil)
	_ MessageEvent = (*Text)(nil)
)

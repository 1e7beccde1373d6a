// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/botcore/internal/event"
	"github.com/ManuGH/botcore/internal/log"
	"github.com/ManuGH/botcore/internal/processing"
)

// Pusher delivers events into a dispatch pipeline.
type Pusher interface {
	Push(ctx context.Context, ev event.Event) processing.Result
}

// SystemBot is the bot internal events, such as timer ticks, belong to.
type SystemBot struct {
	logger zerolog.Logger
}

// NewSystemBot creates the system bot.
func NewSystemBot(logger zerolog.Logger) *SystemBot {
	return &SystemBot{logger: logger.With().Str(log.FieldBotID, "system").Logger()}
}

func (b *SystemBot) ID() string             { return "system" }
func (b *SystemBot) Logger() zerolog.Logger { return b.logger }

// ConsoleAuthor is the author id of every console message.
const ConsoleAuthor = "console"

// ConsoleBot turns lines read from a reader into friend messages and writes
// the string contents of the results back. Async results are written when
// their task completes.
type ConsoleBot struct {
	in           io.Reader
	logger       zerolog.Logger
	asyncTimeout time.Duration

	outMu sync.Mutex
	out   io.Writer

	pending sync.WaitGroup
}

// NewConsoleBot creates a console bot.
func NewConsoleBot(in io.Reader, out io.Writer, logger zerolog.Logger) *ConsoleBot {
	return &ConsoleBot{
		in:           in,
		out:          out,
		logger:       logger.With().Str(log.FieldBotID, "console").Logger(),
		asyncTimeout: 5 * time.Minute,
	}
}

func (b *ConsoleBot) ID() string             { return "console" }
func (b *ConsoleBot) Logger() zerolog.Logger { return b.logger }

// Run pushes one message per non-blank input line until the input ends or
// ctx is done. On end of input it waits for pending async replies.
func (b *ConsoleBot) Run(ctx context.Context, p Pusher) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(b.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				b.pending.Wait()
				select {
				case err := <-readErr:
					if err != nil {
						return fmt.Errorf("console input: %w", err)
					}
				default:
				}
				return nil
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			res := p.Push(ctx, event.NewMessage(event.FriendMessage, b, ConsoleAuthor, line))
			b.reply(ctx, res)
		}
	}
}

func (b *ConsoleBot) reply(ctx context.Context, res processing.Result) {
	for _, r := range res.Results() {
		switch r.Kind() {
		case event.KindValue:
			b.write(r.Content())
		case event.KindAsync:
			b.pending.Add(1)
			go func(r event.Result) {
				defer b.pending.Done()
				waitCtx, cancel := context.WithTimeout(ctx, b.asyncTimeout)
				defer cancel()
				v, err := r.Await(waitCtx)
				if err != nil {
					b.logger.Debug().Err(err).Msg("async reply dropped")
					return
				}
				b.write(v.Content())
			}(r)
		}
	}
}

func (b *ConsoleBot) write(content any) {
	s, ok := content.(string)
	if !ok || s == "" {
		return
	}
	b.outMu.Lock()
	defer b.outMu.Unlock()
	_, _ = fmt.Fprintln(b.out, s)
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const defaultService = "botcore"

// Config captures options for configuring the global logger.
type Config struct {
	Level   string    // "debug", "info", ...; falls back to BOTCORE_LOG_LEVEL, then info
	Output  io.Writer // defaults to os.Stdout
	Service string    // falls back to BOTCORE_LOG_SERVICE, then "botcore"
	Version string    // attached as "version" when set
	Console bool      // human readable output instead of JSON
}

var (
	once sync.Once
	mu   sync.RWMutex
	base zerolog.Logger
)

// Configure installs the global logger. Only the first call has an effect.
func Configure(cfg Config) {
	once.Do(func() { install(cfg) })
}

// Reconfigure replaces the global logger, e.g. after a reload changed the
// level. Loggers derived earlier keep their old writer.
func Reconfigure(cfg Config) {
	once.Do(func() {})
	install(cfg)
}

func install(cfg Config) {
	zerolog.SetGlobalLevel(resolveLevel(cfg.Level))
	zerolog.TimeFieldFormat = time.RFC3339

	fields := zerolog.New(newWriter(cfg)).With().
		Timestamp().
		Str(FieldService, firstNonEmpty(cfg.Service, os.Getenv("BOTCORE_LOG_SERVICE"), defaultService))
	if cfg.Version != "" {
		fields = fields.Str(FieldVersion, cfg.Version)
	}
	l := fields.Logger()

	mu.Lock()
	base = l
	mu.Unlock()
}

// resolveLevel parses level, or BOTCORE_LOG_LEVEL when level is empty.
// Unparseable values mean info.
func resolveLevel(level string) zerolog.Level {
	parsed, err := zerolog.ParseLevel(firstNonEmpty(level, os.Getenv("BOTCORE_LOG_LEVEL")))
	if err != nil || parsed == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return parsed
}

func newWriter(cfg Config) io.Writer {
	w := cfg.Output
	if w == nil {
		w = os.Stdout
	}
	if cfg.Console {
		return zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return w
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func logger() zerolog.Logger {
	Configure(Config{})
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// Base returns the configured base logger.
func Base() zerolog.Logger {
	return logger()
}

// WithComponent returns a child logger annotated with the component name.
func WithComponent(component string) zerolog.Logger {
	return logger().With().Str(FieldComponent, component).Logger()
}

// Derive attaches arbitrary fields to a child logger.
func Derive(build func(*zerolog.Context)) zerolog.Logger {
	ctx := logger().With()
	if build != nil {
		build(&ctx)
	}
	return ctx.Logger()
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/botcore/internal/event"
	"github.com/ManuGH/botcore/internal/listener"
	"github.com/ManuGH/botcore/internal/processing"
)

// ExceptionHandler turns a listener failure into a result. Returning an error
// makes the failure a *HandlerError.
type ExceptionHandler func(ctx context.Context, lc *processing.ListenerContext, err error) (event.Result, error)

// Config configures a Manager. Every field is optional.
type Config struct {
	// Name labels logs and spans. Defaults to "default".
	Name string

	// Scope bounds the manager's task group. Cancelling it cancels every
	// running async listener.
	Scope context.Context

	ExceptionHandler ExceptionHandler

	ProcessingInterceptors []ProcessingInterceptor
	ListenerInterceptors   []ListenerInterceptor

	// Listeners are registered by New; a duplicate id fails New.
	Listeners []listener.Listener

	// Resolver defaults to a processing.CoreResolver.
	Resolver processing.Resolver

	// Logger defaults to the "manager" component logger.
	Logger *zerolog.Logger
	// Tracer defaults to the global tracer provider.
	Tracer trace.Tracer
}

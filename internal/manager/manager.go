// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package manager implements the listener manager: a registry of listeners,
// a lock-free resolution cache from event keys to ordered invokers, and the
// dispatch protocol behind Push and PushAsync.
package manager

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/botcore/internal/async"
	"github.com/ManuGH/botcore/internal/event"
	"github.com/ManuGH/botcore/internal/intercept"
	"github.com/ManuGH/botcore/internal/listener"
	"github.com/ManuGH/botcore/internal/log"
	"github.com/ManuGH/botcore/internal/processing"
	"github.com/ManuGH/botcore/internal/scope"
	"github.com/ManuGH/botcore/internal/telemetry"
)

const tracerName = "github.com/ManuGH/botcore/internal/manager"

// Manager dispatches events to registered listeners.
type Manager struct {
	name     string
	logger   zerolog.Logger
	tracer   trace.Tracer
	resolver processing.Resolver
	handler  ExceptionHandler
	group    *async.Group

	pipeline           *intercept.Entrance[*processing.EventContext, processing.Result]
	defaultEntrance    *intercept.Entrance[*processing.ListenerContext, event.Result]
	afterMatchEntrance *intercept.Entrance[*processing.ListenerContext, event.Result]

	// mu guards the registry and serialises cache publication.
	mu    sync.Mutex
	byID  map[string]*invoker
	order []*invoker
	cache atomic.Pointer[snapshot]
}

// New creates a manager and registers cfg.Listeners.
func New(cfg Config) (*Manager, error) {
	name := cfg.Name
	if name == "" {
		name = "default"
	}
	parent := cfg.Scope
	if parent == nil {
		parent = context.Background()
	}
	resolver := cfg.Resolver
	if resolver == nil {
		resolver = processing.NewCoreResolver()
	}
	var logger zerolog.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	} else {
		logger = log.WithComponent("manager")
	}
	logger = logger.With().Str(log.FieldManager, name).Logger()
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = telemetry.Tracer(tracerName)
	}

	var defaults, afterMatch []intercept.Interceptor[*processing.ListenerContext, event.Result]
	for _, li := range cfg.ListenerInterceptors {
		if li == nil {
			continue
		}
		switch li.Point() {
		case intercept.PointAfterMatch:
			afterMatch = append(afterMatch, li)
		default:
			defaults = append(defaults, li)
		}
	}

	m := &Manager{
		name:               name,
		logger:             logger,
		tracer:             tracer,
		resolver:           resolver,
		handler:            cfg.ExceptionHandler,
		group:              async.NewGroup(parent),
		pipeline:           intercept.NewEntrance(cfg.ProcessingInterceptors...),
		defaultEntrance:    intercept.NewEntrance(defaults...),
		afterMatchEntrance: intercept.NewEntrance(afterMatch...),
		byID:               make(map[string]*invoker, len(cfg.Listeners)),
	}
	m.invalidateLocked()

	for _, l := range cfg.Listeners {
		if err := m.Register(l); err != nil {
			_ = m.group.Close(context.Background())
			return nil, err
		}
	}
	return m, nil
}

// Name returns the manager's name.
func (m *Manager) Name() string { return m.name }

// Register adds l. It fails with ErrDuplicateListenerID if the id is taken, in
// which case the registry is unchanged.
func (m *Manager) Register(l listener.Listener) error {
	if l == nil {
		return ErrNilListener
	}
	inv := m.newInvoker(l)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byID[l.ID()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateListenerID, l.ID())
	}
	m.byID[l.ID()] = inv
	m.order = append(m.order, inv)
	m.invalidateLocked()

	m.logger.Debug().
		Str(log.FieldEvent, "manager.listener_registered").
		Str(log.FieldListenerID, l.ID()).
		Msg("listener registered")
	return nil
}

// Get returns the listener registered under id.
func (m *Manager) Get(id string) (listener.Listener, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.byID[id]
	if !ok {
		return nil, false
	}
	return inv.listener, true
}

// Listeners returns every registered listener ordered by id.
func (m *Manager) Listeners() []listener.Listener {
	m.mu.Lock()
	out := make([]listener.Listener, 0, len(m.order))
	for _, inv := range m.order {
		out = append(out, inv.listener)
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Contains reports whether any registered listener targets key.
func (m *Manager) Contains(key *event.Key) bool {
	return len(m.resolve(key)) > 0
}

// IsProcessable reports whether pushing an event of key does any work.
func (m *Manager) IsProcessable(key *event.Key) bool {
	return m.Contains(key) || m.resolver.IsProcessable(key)
}

// Global returns the manager-wide scope.
func (m *Manager) Global() *scope.Scope { return m.resolver.Global() }

// Sessions returns the continuous-session registry.
func (m *Manager) Sessions() *scope.Sessions { return m.resolver.Sessions() }

// Close cancels every running async task and waits for them until ctx is done.
// Pushes after Close still run sync listeners; async ones fail with
// async.ErrGroupClosed.
func (m *Manager) Close(ctx context.Context) error {
	if err := m.group.Close(ctx); err != nil {
		return fmt.Errorf("close manager %s: %w", m.name, err)
	}
	return nil
}

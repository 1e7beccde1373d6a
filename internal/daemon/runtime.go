// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package daemon assembles the listener manager and its supporting
// subsystems from configuration and owns their lifecycle.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/botcore/internal/cache"
	"github.com/ManuGH/botcore/internal/config"
	"github.com/ManuGH/botcore/internal/event"
	"github.com/ManuGH/botcore/internal/health"
	"github.com/ManuGH/botcore/internal/interceptors"
	"github.com/ManuGH/botcore/internal/listener"
	"github.com/ManuGH/botcore/internal/log"
	"github.com/ManuGH/botcore/internal/manager"
	"github.com/ManuGH/botcore/internal/ratelimit"
	"github.com/ManuGH/botcore/internal/resilience"
	"github.com/ManuGH/botcore/internal/telemetry"
	"github.com/ManuGH/botcore/internal/timer"
)

// Options carries what Build cannot derive from configuration.
type Options struct {
	Version   string
	Listeners []listener.Listener
	// TimerBot is the bot timer events are pushed for. Defaults to SystemBot.
	TimerBot event.Bot
	// KV overrides the dedupe store selected by configuration.
	KV cache.KV
	// Logger overrides the component logger.
	Logger *zerolog.Logger
}

// Runtime is the assembled set of subsystems around one listener manager.
type Runtime struct {
	Manager  *manager.Manager
	Timers   *timer.Manager
	Health   *health.Manager
	Breakers *resilience.Registry
	Limiter  *ratelimit.Limiter
	Tracing  *telemetry.Provider

	logger   zerolog.Logger
	version  string
	timerBot event.Bot

	timersMu   sync.Mutex
	timerSpecs map[string]string

	hooks     []namedHook
	closeOnce sync.Once
	closeErr  error
}

type namedHook struct {
	name string
	hook func(ctx context.Context) error
}

// Build wires the manager with the interceptors enabled in cfg, schedules
// the configured timers and registers health checks. The returned runtime
// must be closed.
func Build(ctx context.Context, cfg config.AppConfig, opts Options) (rt *Runtime, err error) {
	logger := log.WithComponent("daemon")
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	timerBot := opts.TimerBot
	if timerBot == nil {
		timerBot = NewSystemBot(logger)
	}
	rt = &Runtime{
		Health:     health.NewManager(opts.Version),
		logger:     logger,
		version:    opts.Version,
		timerBot:   timerBot,
		timerSpecs: make(map[string]string),
	}
	defer func() {
		if err != nil {
			_ = rt.Close(context.WithoutCancel(ctx))
			rt = nil
		}
	}()

	rt.Tracing, err = telemetry.NewProvider(ctx, cfg.Telemetry.ToTelemetry(cfg.Log.Service, opts.Version))
	if err != nil {
		return rt, fmt.Errorf("telemetry: %w", err)
	}
	rt.onClose("telemetry", rt.Tracing.Shutdown)

	var processing []manager.ProcessingInterceptor
	var listenerLevel []manager.ListenerInterceptor

	if cfg.RateLimit.Enabled {
		rt.Limiter = ratelimit.New(cfg.RateLimit.ToLimiter())
		processing = append(processing, interceptors.RateLimit(rt.Limiter))
	}

	if cfg.Dedupe.Enabled {
		kv, err := rt.dedupeStore(ctx, cfg.Dedupe, opts.KV)
		if err != nil {
			return rt, err
		}
		processing = append(processing, interceptors.Dedupe(interceptors.DedupeConfig{
			KV:     kv,
			Prefix: cfg.Dedupe.Prefix,
			TTL:    cfg.Dedupe.TTL,
			Logger: &logger,
		}))
	}

	if cfg.Breaker.Enabled {
		rt.Breakers = resilience.NewRegistry(resilience.Settings{
			Threshold:    cfg.Breaker.Threshold,
			ResetTimeout: cfg.Breaker.ResetTimeout,
			OnTransition: rt.logBreakerTransition,
		})
		listenerLevel = append(listenerLevel, interceptors.Breaker(rt.Breakers))
		rt.Health.RegisterChecker(health.CheckerFunc("breakers", rt.checkBreakers))
	}
	listenerLevel = append(listenerLevel, interceptors.Logging(logger))

	mgrLogger := logger.With().Str(log.FieldManager, cfg.Manager.Name).Logger()
	rt.Manager, err = manager.New(manager.Config{
		Name:                   cfg.Manager.Name,
		Scope:                  context.WithoutCancel(ctx),
		ProcessingInterceptors: processing,
		ListenerInterceptors:   listenerLevel,
		Listeners:              opts.Listeners,
		Logger:                 &mgrLogger,
		Tracer:                 rt.Tracing.TracerProvider().Tracer("github.com/ManuGH/botcore/internal/manager"),
	})
	if err != nil {
		return rt, fmt.Errorf("manager: %w", err)
	}
	rt.onClose("manager", rt.Manager.Close)

	rt.Timers = timer.New(timer.WithLogger(logger))
	rt.onClose("timers", rt.Timers.Stop)
	if err := rt.ApplyTimers(cfg.Timers); err != nil {
		return rt, err
	}

	logger.Info().
		Str(log.FieldManager, rt.Manager.Name()).
		Int(log.FieldListeners, len(rt.Manager.Listeners())).
		Int("processing_interceptors", len(processing)).
		Int("listener_interceptors", len(listenerLevel)).
		Int("timers", len(cfg.Timers)).
		Msg("runtime assembled")
	return rt, nil
}

func (rt *Runtime) dedupeStore(ctx context.Context, cfg config.DedupeConfig, override cache.KV) (cache.KV, error) {
	if override != nil {
		return override, nil
	}
	switch cfg.Backend {
	case config.DedupeBackendRedis:
		kv, err := cache.NewRedisKV(ctx, cfg.Redis.ToCache(), rt.logger)
		if err != nil {
			return nil, fmt.Errorf("dedupe store: %w", err)
		}
		rt.onClose("redis", func(context.Context) error { return kv.Close() })
		rt.Health.RegisterChecker(health.PingChecker("redis", kv.Ping))
		return kv, nil
	default:
		kv := cache.NewMemoryKV(time.Minute)
		rt.onClose("memory-kv", func(context.Context) error {
			kv.Stop()
			return nil
		})
		return kv, nil
	}
}

func (rt *Runtime) logBreakerTransition(name string, from, to resilience.State) {
	ev := rt.logger.Info()
	if to == resilience.StateOpen {
		ev = rt.logger.Warn()
	}
	ev.Str(log.FieldEvent, "breaker.transition").
		Str(log.FieldListenerID, name).
		Str(log.FieldOldState, string(from)).
		Str(log.FieldNewState, string(to)).
		Msg("listener breaker changed state")
}

func (rt *Runtime) checkBreakers(context.Context) health.CheckResult {
	var open []string
	for name, state := range rt.Breakers.States() {
		if state == resilience.StateOpen {
			open = append(open, name)
		}
	}
	if len(open) > 0 {
		return health.CheckResult{
			Status:  health.StatusDegraded,
			Message: fmt.Sprintf("%d listener breaker(s) open: %v", len(open), open),
		}
	}
	return health.CheckResult{Status: health.StatusHealthy}
}

// ApplyTimers reconciles the scheduled timers with cfgs. Each timer pushes a
// timer event for its id. Unlisted timers are removed, changed specs are
// rescheduled.
func (rt *Runtime) ApplyTimers(cfgs []config.TimerConfig) error {
	rt.timersMu.Lock()
	defer rt.timersMu.Unlock()

	want := make(map[string]string, len(cfgs))
	for _, c := range cfgs {
		want[c.ID] = c.Spec
	}
	for id, spec := range rt.timerSpecs {
		if next, ok := want[id]; !ok || next != spec {
			rt.Timers.Remove(id)
			delete(rt.timerSpecs, id)
		}
	}
	var errs []error
	for _, c := range cfgs {
		if _, ok := rt.timerSpecs[c.ID]; ok {
			continue
		}
		err := rt.Timers.Add(timer.Task{
			ID:   c.ID,
			Spec: c.Spec,
			Run:  timer.PushEvent(rt.Manager, rt.timerBot, c.ID),
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		rt.timerSpecs[c.ID] = c.Spec
	}
	return errors.Join(errs...)
}

func (rt *Runtime) onClose(name string, hook func(ctx context.Context) error) {
	rt.hooks = append(rt.hooks, namedHook{name: name, hook: hook})
}

// Close runs the shutdown hooks in reverse registration order. It is safe to
// call more than once.
func (rt *Runtime) Close(ctx context.Context) error {
	rt.closeOnce.Do(func() {
		var errs []error
		for i := len(rt.hooks) - 1; i >= 0; i-- {
			h := rt.hooks[i]
			start := time.Now()
			if err := h.hook(ctx); err != nil {
				rt.logger.Error().Err(err).Str("hook", h.name).Dur(log.FieldDuration, time.Since(start)).Msg("shutdown hook failed")
				errs = append(errs, fmt.Errorf("hook %s: %w", h.name, err))
				continue
			}
			rt.logger.Debug().Str("hook", h.name).Dur(log.FieldDuration, time.Since(start)).Msg("shutdown hook completed")
		}
		if len(errs) > 0 {
			rt.closeErr = fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
		}
	})
	return rt.closeErr
}

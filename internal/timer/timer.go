// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package timer schedules recurring tasks on cron expressions. Tasks usually
// push timer events into a manager, see PushEvent.
package timer

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/ManuGH/botcore/internal/async"
	"github.com/ManuGH/botcore/internal/log"
	"github.com/ManuGH/botcore/internal/metrics"
)

var (
	ErrDuplicateTask = errors.New("timer: duplicate task id")
	ErrUnknownTask   = errors.New("timer: unknown task id")
	ErrInvalidTask   = errors.New("timer: task needs an id and a run function")
	ErrStopped       = errors.New("timer: manager stopped")
)

// Run outcomes recorded in metrics.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomePanic   = "panic"
	OutcomeSkipped = "skipped"
)

// Task is a named unit of recurring work.
type Task struct {
	ID string
	// Spec is a cron expression with an optional leading seconds field, or a
	// descriptor such as "@every 30s" or "@hourly".
	Spec string
	Run  func(ctx context.Context) error
}

// Manager owns a cron scheduler and the tasks registered with it.
type Manager struct {
	cron   *cron.Cron
	logger zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	entries map[string]entry
	running map[string]bool
	started bool
	stopped bool

	inflight  sync.WaitGroup
	drainOnce sync.Once
	drained   chan struct{}
}

type entry struct {
	id   cron.EntryID
	task Task
}

// Option configures a Manager.
type Option func(*options)

type options struct {
	loc    *time.Location
	logger *zerolog.Logger
}

// WithLocation sets the time zone schedules are evaluated in. The default is
// time.Local.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.loc = loc
		}
	}
}

// WithLogger overrides the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = &l }
}

var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// New creates a stopped Manager.
func New(opts ...Option) *Manager {
	o := options{loc: time.Local}
	for _, opt := range opts {
		opt(&o)
	}
	logger := log.WithComponent("timer")
	if o.logger != nil {
		logger = *o.logger
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLocation(o.loc),
			cron.WithLogger(cronLogger{logger: logger}),
		),
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[string]entry),
		running: make(map[string]bool),
	}
}

// Validate reports whether spec parses.
func Validate(spec string) error {
	_, err := parser.Parse(spec)
	return err
}

// Add schedules t. Tasks may be added before or after Start.
func (m *Manager) Add(t Task) error {
	if t.ID == "" || t.Run == nil {
		return ErrInvalidTask
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.entries[t.ID]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateTask, t.ID)
	}
	id, err := m.cron.AddFunc(t.Spec, func() { _ = m.fire(t) })
	if err != nil {
		return fmt.Errorf("timer: task %s: invalid spec %q: %w", t.ID, t.Spec, err)
	}
	m.entries[t.ID] = entry{id: id, task: t}
	m.logger.Debug().Str(log.FieldTaskID, t.ID).Str("spec", t.Spec).Msg("timer.task_added")
	return nil
}

// Remove unschedules the task. A run in progress is not interrupted.
func (m *Manager) Remove(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return false
	}
	m.cron.Remove(e.id)
	delete(m.entries, id)
	return true
}

// Tasks returns the registered task ids in lexical order.
func (m *Manager) Tasks() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.entries))
	for id := range m.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Next returns the next scheduled run of the task. It is zero until Start.
func (m *Manager) Next(id string) (time.Time, bool) {
	m.mu.Lock()
	e, ok := m.entries[id]
	m.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	return m.cron.Entry(e.id).Next, true
}

// RunNow runs the task synchronously outside its schedule and returns its
// error. Overlap with a scheduled run is skipped like a scheduled overlap.
// After Stop it returns ErrStopped.
func (m *Manager) RunNow(id string) error {
	m.mu.Lock()
	e, ok := m.entries[id]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, id)
	}
	return m.fire(e.task)
}

// Start begins scheduling. It is a no-op on a started manager.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}
	m.started = true
	m.cron.Start()
	m.logger.Info().Int("tasks", len(m.entries)).Msg("timer.started")
}

// Stop halts scheduling and waits for running tasks, scheduled or started by
// RunNow. When ctx expires first, running tasks see their context cancelled
// and ctx.Err() is returned. A stopped manager cannot be started again.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()
	scheduled := m.cron.Stop()
	defer m.cancel()
	select {
	case <-m.drain(scheduled.Done()):
		m.logger.Info().Msg("timer.stopped")
		return nil
	case <-ctx.Done():
		m.logger.Warn().Err(ctx.Err()).Msg("timer.stop_timeout")
		return ctx.Err()
	}
}

// drain is closed once scheduled and manual runs returned. Callers must have
// marked the manager stopped.
func (m *Manager) drain(scheduled <-chan struct{}) <-chan struct{} {
	m.drainOnce.Do(func() {
		m.drained = make(chan struct{})
		go func() {
			<-scheduled
			m.inflight.Wait()
			close(m.drained)
		}()
	})
	return m.drained
}

// fire runs t unless a previous run of the same task is still in progress.
func (m *Manager) fire(t Task) error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return ErrStopped
	}
	if m.running[t.ID] {
		m.mu.Unlock()
		metrics.RecordTimerRun(t.ID, OutcomeSkipped)
		m.logger.Debug().Str(log.FieldTaskID, t.ID).Msg("timer.run_skipped")
		return nil
	}
	m.running[t.ID] = true
	m.inflight.Add(1)
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		delete(m.running, t.ID)
		m.mu.Unlock()
		m.inflight.Done()
	}()

	start := time.Now()
	err := m.execute(t)
	ev := m.logger.Debug()
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
		var pe *async.PanicError
		if errors.As(err, &pe) {
			outcome = OutcomePanic
		}
		ev = m.logger.Error().Err(err)
	}
	metrics.RecordTimerRun(t.ID, outcome)
	ev.Str(log.FieldTaskID, t.ID).
		Str(log.FieldOutcome, outcome).
		Dur(log.FieldDuration, time.Since(start)).
		Msg("timer.run")
	return err
}

func (m *Manager) execute(t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &async.PanicError{Value: r, Stack: string(debug.Stack())}
		}
	}()
	return t.Run(m.ctx)
}

// cronLogger routes scheduler diagnostics to zerolog.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug().Fields(keysAndValues).Msg("cron." + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg("cron." + msg)
}

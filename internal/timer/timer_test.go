// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package timer

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/botcore/internal/event"
	"github.com/ManuGH/botcore/internal/listener"
	"github.com/ManuGH/botcore/internal/manager"
	"github.com/ManuGH/botcore/internal/metrics"
	"github.com/ManuGH/botcore/internal/processing"
)

type testBot struct{}

func (testBot) ID() string             { return "clock" }
func (testBot) Logger() zerolog.Logger { return zerolog.Nop() }

func nopTask(id, spec string) Task {
	return Task{ID: id, Spec: spec, Run: func(context.Context) error { return nil }}
}

func newTestManager(t *testing.T, logs *bytes.Buffer) *Manager {
	t.Helper()
	logger := zerolog.Nop()
	if logs != nil {
		logger = zerolog.New(logs)
	}
	m := New(WithLogger(logger), WithLocation(time.UTC))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = m.Stop(ctx)
	})
	return m
}

func TestAdd_Validation(t *testing.T) {
	m := newTestManager(t, nil)

	require.NoError(t, m.Add(nopTask("b", "@hourly")))
	require.NoError(t, m.Add(nopTask("a", "*/5 * * * *")))
	require.NoError(t, m.Add(nopTask("c", "30 */5 * * * *")))

	assert.ErrorIs(t, m.Add(nopTask("a", "@daily")), ErrDuplicateTask)
	assert.ErrorIs(t, m.Add(Task{ID: "x", Spec: "@daily"}), ErrInvalidTask)
	assert.ErrorIs(t, m.Add(Task{Spec: "@daily", Run: func(context.Context) error { return nil }}), ErrInvalidTask)
	assert.Error(t, m.Add(nopTask("bad", "not a schedule")))

	assert.Equal(t, []string{"a", "b", "c"}, m.Tasks())
	assert.True(t, m.Remove("b"))
	assert.False(t, m.Remove("b"))
	assert.Equal(t, []string{"a", "c"}, m.Tasks())

	_, ok := m.Next("missing")
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate("@every 10s"))
	assert.NoError(t, Validate("0 9 * * MON-FRI"))
	assert.Error(t, Validate("61 * * * *"))
}

func TestRunNow_Outcomes(t *testing.T) {
	var logs bytes.Buffer
	m := newTestManager(t, &logs)

	boom := errors.New("boom")
	require.NoError(t, m.Add(Task{ID: "runnow-ok", Spec: "@yearly", Run: func(context.Context) error { return nil }}))
	require.NoError(t, m.Add(Task{ID: "runnow-err", Spec: "@yearly", Run: func(context.Context) error { return boom }}))
	require.NoError(t, m.Add(Task{ID: "runnow-panic", Spec: "@yearly", Run: func(context.Context) error { panic("kaboom") }}))

	assert.NoError(t, m.RunNow("runnow-ok"))
	assert.ErrorIs(t, m.RunNow("runnow-err"), boom)

	err := m.RunNow("runnow-panic")
	var pe *manager.PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "kaboom", pe.Value)

	assert.ErrorIs(t, m.RunNow("missing"), ErrUnknownTask)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.TimerRunsTotal.WithLabelValues("runnow-ok", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.TimerRunsTotal.WithLabelValues("runnow-err", OutcomeError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.TimerRunsTotal.WithLabelValues("runnow-panic", OutcomePanic)))
	assert.Contains(t, logs.String(), `"task_id":"runnow-panic"`)
	assert.Contains(t, logs.String(), `"outcome":"panic"`)
}

func TestRunNow_SkipsOverlap(t *testing.T) {
	m := newTestManager(t, nil)
	entered := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, m.Add(Task{ID: "overlap", Spec: "@yearly", Run: func(context.Context) error {
		close(entered)
		<-release
		return nil
	}}))

	done := make(chan error, 1)
	go func() { done <- m.RunNow("overlap") }()
	<-entered

	assert.NoError(t, m.RunNow("overlap"))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.TimerRunsTotal.WithLabelValues("overlap", OutcomeSkipped)))

	close(release)
	require.NoError(t, <-done)
}

func TestSchedule_PushesTimerEvents(t *testing.T) {
	var fired atomic.Int32
	var lastTask atomic.Value
	nop := zerolog.Nop()
	mgr, err := manager.New(manager.Config{
		Logger: &nop,
		Listeners: []listener.Listener{
			listener.Consume(event.Timer, func(_ context.Context, lc *processing.ListenerContext) error {
				if te, ok := lc.Event().(*Event); ok {
					lastTask.Store(te.TaskID())
				}
				fired.Add(1)
				return nil
			}),
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Close(context.Background()) })

	m := newTestManager(t, nil)
	require.NoError(t, m.Add(Task{ID: "tick", Spec: "* * * * * *", Run: PushEvent(mgr, testBot{}, "tick")}))

	next, ok := m.Next("tick")
	require.True(t, ok)
	assert.True(t, next.IsZero())

	m.Start()
	m.Start()

	require.Eventually(t, func() bool { return fired.Load() > 0 }, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, "tick", lastTask.Load())

	next, _ = m.Next("tick")
	assert.False(t, next.IsZero())
}

func TestStop_CancelsRunningTaskOnTimeout(t *testing.T) {
	m := New(WithLogger(zerolog.Nop()))
	started := make(chan struct{})
	cancelled := make(chan struct{})
	require.NoError(t, m.Add(Task{ID: "slow", Spec: "* * * * * *", Run: func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		close(cancelled)
		return ctx.Err()
	}}))
	m.Start()

	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("task never started")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, m.Stop(ctx), context.DeadlineExceeded)

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("running task did not observe cancellation")
	}
}

func TestStop_WaitsForRunNow(t *testing.T) {
	m := New(WithLogger(zerolog.Nop()))
	entered := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, m.Add(Task{ID: "manual", Spec: "@yearly", Run: func(context.Context) error {
		close(entered)
		<-release
		return nil
	}}))

	ran := make(chan error, 1)
	go func() { ran <- m.RunNow("manual") }()
	<-entered

	stopped := make(chan error, 1)
	go func() { stopped <- m.Stop(context.Background()) }()

	select {
	case err := <-stopped:
		t.Fatalf("Stop returned while a manual run was in progress: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-ran)
	select {
	case err := <-stopped:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after the manual run finished")
	}

	assert.ErrorIs(t, m.RunNow("manual"), ErrStopped)
}

func TestNewEvent(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	ev := NewEvent(testBot{}, "daily", at)
	assert.Same(t, event.Timer, ev.Key())
	assert.Equal(t, at, ev.Timestamp())
	assert.Equal(t, "daily", ev.TaskID())
	assert.Equal(t, "daily", ev.Payload())
	assert.Equal(t, "clock", ev.Bot().ID())
}

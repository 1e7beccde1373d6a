// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/botcore/internal/config"
	"github.com/ManuGH/botcore/internal/event"
	"github.com/ManuGH/botcore/internal/health"
	"github.com/ManuGH/botcore/internal/listener"
	"github.com/ManuGH/botcore/internal/log"
	"github.com/ManuGH/botcore/internal/processing"
	"github.com/ManuGH/botcore/internal/resilience"
)

type testBot struct{ id string }

func (b testBot) ID() string             { return b.id }
func (b testBot) Logger() zerolog.Logger { return zerolog.Nop() }

var chatBot = testBot{id: "chat"}

// syncBuffer is a bytes.Buffer safe for concurrent writers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testConfig() config.AppConfig {
	cfg := config.Default()
	cfg.HTTP.Enabled = false
	return cfg
}

func buildRuntime(t *testing.T, cfg config.AppConfig, opts Options) *Runtime {
	t.Helper()
	if opts.Logger == nil {
		nop := zerolog.Nop()
		opts.Logger = &nop
	}
	if opts.Listeners == nil {
		opts.Listeners = BuiltinListeners(*opts.Logger)
	}
	rt, err := Build(context.Background(), cfg, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close(context.Background()) })
	return rt
}

// values returns the contents of the value results of res.
func values(res processing.Result) []any {
	var out []any
	for _, r := range res.Results() {
		if r.Kind() == event.KindValue {
			out = append(out, r.Content())
		}
	}
	return out
}

func say(author, text string) event.Event {
	return event.NewMessage(event.FriendMessage, chatBot, author, text)
}

func TestBuild_RegistersBuiltinListeners(t *testing.T) {
	rt := buildRuntime(t, testConfig(), Options{})

	var ids []string
	for _, l := range rt.Manager.Listeners() {
		ids = append(ids, l.ID())
	}
	assert.ElementsMatch(t, []string{"ping", "echo", "remember", "recall", "timer-log"}, ids)
	assert.NotNil(t, rt.Limiter)
	assert.NotNil(t, rt.Breakers)
	assert.Empty(t, rt.Timers.Tasks())
}

func TestBuild_DisabledInterceptors(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.Enabled = false
	cfg.Dedupe.Enabled = false
	cfg.Breaker.Enabled = false

	rt := buildRuntime(t, cfg, Options{})
	assert.Nil(t, rt.Limiter)
	assert.Nil(t, rt.Breakers)

	ready := rt.Health.Ready(context.Background())
	assert.True(t, ready.Ready)
	assert.Empty(t, ready.Checks)
}

func TestRuntime_Commands(t *testing.T) {
	rt := buildRuntime(t, testConfig(), Options{})
	ctx := context.Background()

	ping := rt.Manager.Push(ctx, say("alice", "!ping"))
	require.Equal(t, []any{"pong"}, values(ping))
	assert.True(t, ping.Results()[len(ping.Results())-1].IsTruncated())

	echo := rt.Manager.Push(ctx, say("alice", "!echo hello  world "))
	assert.Equal(t, []any{"hello  world"}, values(echo))

	recall := rt.Manager.Push(ctx, say("alice", "!recall"))
	assert.Equal(t, []any{"nothing remembered yet"}, values(recall))

	other := rt.Manager.Push(ctx, say("alice", "ping"))
	assert.Empty(t, values(other))
}

func TestRuntime_RememberWaitsForNextMessage(t *testing.T) {
	rt := buildRuntime(t, testConfig(), Options{})
	ctx := context.Background()

	res := rt.Manager.Push(ctx, say("bob", "!remember"))
	var pending event.Result
	for _, r := range res.Results() {
		if r.Kind() == event.KindAsync {
			pending = r
		}
	}
	require.Equal(t, event.KindAsync, pending.Kind())

	require.Eventually(t, func() bool { return rt.Manager.Sessions().Len() == 1 }, 2*time.Second, 5*time.Millisecond)

	// another author does not resume the session
	rt.Manager.Push(ctx, say("carol", "not for bob"))
	assert.Equal(t, 1, rt.Manager.Sessions().Len())

	rt.Manager.Push(ctx, say("bob", "buy milk"))

	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	got, err := pending.Await(waitCtx)
	require.NoError(t, err)
	assert.Equal(t, "remembered: buy milk", got.Content())

	assert.Equal(t, []any{"buy milk"}, values(rt.Manager.Push(ctx, say("bob", "!recall"))))
	assert.Equal(t, []any{"nothing remembered yet"}, values(rt.Manager.Push(ctx, say("carol", "!recall"))))
}

func TestRuntime_DedupeDropsRedelivery(t *testing.T) {
	rt := buildRuntime(t, testConfig(), Options{})
	ctx := context.Background()

	ev := event.NewMessage(event.FriendMessage, chatBot, "alice", "!echo once", event.WithID("msg-1"))
	assert.Equal(t, []any{"once"}, values(rt.Manager.Push(ctx, ev)))
	assert.Zero(t, rt.Manager.Push(ctx, ev).Len())
}

func TestRuntime_RedisDedupe(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.Dedupe.Backend = config.DedupeBackendRedis
	cfg.Dedupe.Redis.Addr = mr.Addr()

	rt := buildRuntime(t, cfg, Options{})
	ctx := context.Background()

	ready := rt.Health.Ready(ctx)
	require.True(t, ready.Ready)
	assert.Equal(t, health.StatusHealthy, ready.Checks["redis"].Status)

	ev := event.NewMessage(event.FriendMessage, chatBot, "alice", "!echo once", event.WithID("msg-redis"))
	assert.Equal(t, []any{"once"}, values(rt.Manager.Push(ctx, ev)))
	assert.Zero(t, rt.Manager.Push(ctx, ev).Len())
	assert.NotEmpty(t, mr.Keys())

	mr.Close()
	ready = rt.Health.Ready(ctx)
	assert.False(t, ready.Ready)
	assert.Equal(t, health.StatusUnhealthy, ready.Checks["redis"].Status)
}

func TestBuild_RedisUnreachable(t *testing.T) {
	cfg := testConfig()
	cfg.Dedupe.Backend = config.DedupeBackendRedis
	cfg.Dedupe.Redis.Addr = "127.0.0.1:1"

	nop := zerolog.Nop()
	rt, err := Build(context.Background(), cfg, Options{Logger: &nop})
	require.Error(t, err)
	assert.Nil(t, rt)
}

func TestRuntime_OpenBreakerDegradesHealth(t *testing.T) {
	cfg := testConfig()
	cfg.Breaker.Threshold = 1
	cfg.Breaker.ResetTimeout = time.Hour

	failing := listener.New(event.Message, func(context.Context, *processing.ListenerContext) (event.Result, error) {
		return event.Invalid(), errors.New("backend down")
	}, listener.WithID("flaky"))

	rt := buildRuntime(t, cfg, Options{Listeners: []listener.Listener{failing}})
	ctx := context.Background()

	rt.Manager.Push(ctx, say("alice", "hi"))
	assert.Equal(t, resilience.StateOpen, rt.Breakers.States()["flaky"])

	ready := rt.Health.Ready(ctx)
	assert.True(t, ready.Ready)
	assert.Equal(t, health.StatusDegraded, ready.Status)
	assert.Contains(t, ready.Checks["breakers"].Message, "flaky")
}

func TestRuntime_TimerPushesEvent(t *testing.T) {
	out := &syncBuffer{}
	logger := zerolog.New(out)
	cfg := testConfig()
	cfg.Timers = []config.TimerConfig{{ID: "tick", Spec: "@yearly"}}

	rt := buildRuntime(t, cfg, Options{Logger: &logger})
	require.Equal(t, []string{"tick"}, rt.Timers.Tasks())

	require.NoError(t, rt.Timers.RunNow("tick"))
	assert.Contains(t, out.String(), "timer fired")
	assert.Contains(t, out.String(), fmt.Sprintf(`"%s":"tick"`, log.FieldTaskID))
	assert.Contains(t, out.String(), fmt.Sprintf(`"%s":"system"`, log.FieldBotID))
}

func TestRuntime_ApplyTimersReconciles(t *testing.T) {
	cfg := testConfig()
	cfg.Timers = []config.TimerConfig{{ID: "a", Spec: "@daily"}, {ID: "b", Spec: "@hourly"}}
	rt := buildRuntime(t, cfg, Options{})
	require.Equal(t, []string{"a", "b"}, rt.Timers.Tasks())

	require.NoError(t, rt.ApplyTimers([]config.TimerConfig{{ID: "b", Spec: "@daily"}, {ID: "c", Spec: "@every 1m"}}))
	assert.Equal(t, []string{"b", "c"}, rt.Timers.Tasks())
	assert.Equal(t, "@daily", rt.timerSpecs["b"])

	err := rt.ApplyTimers([]config.TimerConfig{{ID: "c", Spec: "@every 1m"}, {ID: "bad", Spec: "not a spec"}})
	require.Error(t, err)
	assert.Equal(t, []string{"c"}, rt.Timers.Tasks())

	require.NoError(t, rt.ApplyTimers(nil))
	assert.Empty(t, rt.Timers.Tasks())
}

func TestRuntime_CloseIsIdempotent(t *testing.T) {
	nop := zerolog.Nop()
	rt, err := Build(context.Background(), testConfig(), Options{Logger: &nop})
	require.NoError(t, err)

	require.NoError(t, rt.Close(context.Background()))
	require.NoError(t, rt.Close(context.Background()))
}

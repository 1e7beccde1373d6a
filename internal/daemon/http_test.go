// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/botcore/internal/config"
	"github.com/ManuGH/botcore/internal/event"
	"github.com/ManuGH/botcore/internal/listener"
	"github.com/ManuGH/botcore/internal/log"
	"github.com/ManuGH/botcore/internal/processing"
	"github.com/ManuGH/botcore/internal/resilience"
)

func newAdminServer(t *testing.T, cfg config.AppConfig) (*Runtime, *httptest.Server) {
	t.Helper()
	rt := buildRuntime(t, cfg, Options{})
	srv := httptest.NewServer(NewRouter(rt, func() config.AppConfig { return cfg }))
	t.Cleanup(srv.Close)
	return rt, srv
}

func get(t *testing.T, url string) (int, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func TestRouter_Probes(t *testing.T) {
	_, srv := newAdminServer(t, testConfig())

	code, body := get(t, srv.URL+"/healthz?verbose=true")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), `"status":"healthy"`)
	assert.Contains(t, string(body), `"breakers"`)

	code, body = get(t, srv.URL+"/readyz")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), `"ready":true`)
}

func TestRouter_Listeners(t *testing.T) {
	_, srv := newAdminServer(t, testConfig())

	code, body := get(t, srv.URL+"/listeners")
	require.Equal(t, http.StatusOK, code)

	var views []listenerView
	require.NoError(t, json.Unmarshal(body, &views))
	byID := make(map[string]listenerView, len(views))
	for _, v := range views {
		byID[v.ID] = v
	}
	require.Len(t, byID, 5)
	assert.True(t, byID["remember"].Async)
	assert.False(t, byID["ping"].Async)
	assert.Less(t, byID["ping"].Priority, byID["echo"].Priority)
}

func TestRouter_Timers(t *testing.T) {
	cfg := testConfig()
	cfg.Timers = []config.TimerConfig{{ID: "tick", Spec: "@yearly"}}
	rt, srv := newAdminServer(t, cfg)
	rt.Timers.Start()
	require.Eventually(t, func() bool {
		next, ok := rt.Timers.Next("tick")
		return ok && !next.IsZero()
	}, 2*time.Second, 5*time.Millisecond)

	code, body := get(t, srv.URL+"/timers")
	require.Equal(t, http.StatusOK, code)
	var views []timerView
	require.NoError(t, json.Unmarshal(body, &views))
	require.Len(t, views, 1)
	assert.Equal(t, "tick", views[0].ID)
	assert.NotNil(t, views[0].Next)

	resp, err := http.Post(srv.URL+"/timers/tick/run", "", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/timers/missing/run", "", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouter_BreakersAndMetrics(t *testing.T) {
	rt, srv := newAdminServer(t, testConfig())
	rt.Manager.Push(context.Background(), say("alice", "!ping"))

	code, body := get(t, srv.URL+"/breakers")
	require.Equal(t, http.StatusOK, code)
	var snaps map[string]resilience.Snapshot
	require.NoError(t, json.Unmarshal(body, &snaps))
	assert.Equal(t, resilience.StateClosed, snaps["ping"].State)

	code, body = get(t, srv.URL+"/metrics")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), "botcore_events_pushed_total")
}

func TestRouter_BreakerReset(t *testing.T) {
	cfg := testConfig()
	cfg.Breaker.Threshold = 1
	failing := listener.New(event.Message, func(context.Context, *processing.ListenerContext) (event.Result, error) {
		return event.Invalid(), errors.New("backend down")
	}, listener.WithID("flaky"))
	rt := buildRuntime(t, cfg, Options{Listeners: []listener.Listener{failing}})
	srv := httptest.NewServer(NewRouter(rt, func() config.AppConfig { return cfg }))
	t.Cleanup(srv.Close)

	rt.Manager.Push(context.Background(), say("alice", "hi"))
	require.Equal(t, resilience.StateOpen, rt.Breakers.States()["flaky"])

	resp, err := http.Post(srv.URL+"/breakers/flaky/reset", "", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, resilience.StateClosed, rt.Breakers.States()["flaky"])

	resp, err = http.Post(srv.URL+"/breakers/missing/reset", "", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouter_ConfigIsRedacted(t *testing.T) {
	cfg := testConfig()
	cfg.Dedupe.Redis.Password = "hunter2"
	_, srv := newAdminServer(t, cfg)

	code, body := get(t, srv.URL+"/config")
	require.Equal(t, http.StatusOK, code)
	assert.NotContains(t, string(body), "hunter2")
	assert.Contains(t, string(body), "***redacted***")
}

func TestRouter_RateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.HTTP.RequestsPerMinute = 2
	_, srv := newAdminServer(t, cfg)

	for range 2 {
		code, _ := get(t, srv.URL+"/healthz")
		require.Equal(t, http.StatusOK, code)
	}
	code, body := get(t, srv.URL+"/healthz")
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.JSONEq(t, `{"error":"rate_limit_exceeded"}`, string(body))
}

func TestRouter_AccessLogAndEncodeErrors(t *testing.T) {
	logs := &syncBuffer{}
	log.Reconfigure(log.Config{Output: logs, Level: "debug"})
	defer log.Reconfigure(log.Config{Output: io.Discard})

	_, srv := newAdminServer(t, testConfig())
	code, _ := get(t, srv.URL+"/healthz")
	require.Equal(t, http.StatusOK, code)
	assert.Eventually(t, func() bool {
		return strings.Contains(logs.String(), "admin request") && strings.Contains(logs.String(), `"path":"/healthz"`)
	}, time.Second, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	writeJSON(rec, func() {})
	assert.Contains(t, logs.String(), "http.encode_error")
}

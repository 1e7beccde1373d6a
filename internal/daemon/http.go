// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ManuGH/botcore/internal/config"
	"github.com/ManuGH/botcore/internal/log"
	"github.com/ManuGH/botcore/internal/resilience"
	"github.com/ManuGH/botcore/internal/timer"
)

type listenerView struct {
	ID       string `json:"id"`
	Priority int    `json:"priority"`
	Async    bool   `json:"async"`
}

type timerView struct {
	ID   string     `json:"id"`
	Next *time.Time `json:"next,omitempty"`
}

// NewRouter builds the admin HTTP handler: health probes, prometheus metrics,
// views of listeners, breakers, timers and the effective configuration, and
// manual timer runs and breaker resets.
func NewRouter(rt *Runtime, cfg func() config.AppConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(accessLog)

	if rpm := cfg().HTTP.RequestsPerMinute; rpm > 0 {
		r.Use(httprate.Limit(
			rpm,
			time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "60")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"rate_limit_exceeded"}`))
			}),
		))
	}

	r.Get("/healthz", rt.Health.ServeHealth)
	r.Get("/readyz", rt.Health.ServeReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/listeners", func(w http.ResponseWriter, _ *http.Request) {
		ls := rt.Manager.Listeners()
		out := make([]listenerView, 0, len(ls))
		for _, l := range ls {
			out = append(out, listenerView{ID: l.ID(), Priority: l.Priority(), Async: l.IsAsync()})
		}
		writeJSON(w, out)
	})

	r.Get("/breakers", func(w http.ResponseWriter, _ *http.Request) {
		if rt.Breakers == nil {
			writeJSON(w, map[string]resilience.Snapshot{})
			return
		}
		writeJSON(w, rt.Breakers.Snapshots())
	})

	r.Post("/breakers/{id}/reset", func(w http.ResponseWriter, req *http.Request) {
		id := chi.URLParam(req, "id")
		if rt.Breakers == nil || !rt.Breakers.Reset(id) {
			http.Error(w, fmt.Sprintf("no breaker for listener %s", id), http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	r.Get("/timers", func(w http.ResponseWriter, _ *http.Request) {
		ids := rt.Timers.Tasks()
		out := make([]timerView, 0, len(ids))
		for _, id := range ids {
			v := timerView{ID: id}
			if next, ok := rt.Timers.Next(id); ok && !next.IsZero() {
				v.Next = &next
			}
			out = append(out, v)
		}
		writeJSON(w, out)
	})

	r.Post("/timers/{id}/run", func(w http.ResponseWriter, req *http.Request) {
		id := chi.URLParam(req, "id")
		if err := rt.Timers.RunNow(id); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, timer.ErrUnknownTask) {
				status = http.StatusNotFound
			}
			http.Error(w, fmt.Sprintf("run timer %s: %v", id, err), status)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	r.Get("/config", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, cfg().Redacted())
	})

	return otelhttp.NewHandler(r, "admin")
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger := log.WithComponent("http")
		logger.Error().Err(err).Str(log.FieldEvent, "http.encode_error").Msg("failed to encode response")
	}
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logger := log.WithComponentFromContext(r.Context(), "http")
		logger.Debug().
			Str("method", r.Method).
			Str(log.FieldPath, r.URL.Path).
			Int("status", ww.Status()).
			Str("request_id", chimw.GetReqID(r.Context())).
			Dur(log.FieldDuration, time.Since(start)).
			Msg("admin request")
	})
}

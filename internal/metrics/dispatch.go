// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Push outcomes.
const (
	OutcomeDispatched  = "dispatched"
	OutcomeNoListeners = "no_listeners"
	OutcomeSkipped     = "skipped"
	OutcomeFailed      = "failed"
)

// Listener outcomes.
const (
	OutcomeValue     = "value"
	OutcomeInvalid   = "invalid"
	OutcomeTruncated = "truncated"
	OutcomeError     = "error"
	OutcomeHandled   = "handled"
)

var (
	EventsPushedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "botcore_events_pushed_total",
		Help: "Total number of events pushed to a listener manager by key and outcome",
	}, []string{"key", "outcome"})

	ListenerInvocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "botcore_listener_invocations_total",
		Help: "Total number of listener invocations by listener id and outcome",
	}, []string{"listener", "outcome"})

	DispatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "botcore_dispatch_duration_seconds",
		Help:    "Duration of synchronous event dispatch",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})

	ResolutionCacheRebuildsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "botcore_resolution_cache_rebuilds_total",
		Help: "Total number of listener resolution cache misses that computed a new entry",
	})

	PipelineFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "botcore_pipeline_failures_total",
		Help: "Total number of pushes aborted by a failure outside listener isolation",
	})

	EventsDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "botcore_events_dropped_total",
		Help: "Total number of events dropped by processing interceptors by reason",
	}, []string{"reason"})
)

// RecordPush counts one pushed event.
func RecordPush(key, outcome string) {
	if key == "" {
		key = "unknown"
	}
	EventsPushedTotal.WithLabelValues(key, outcome).Inc()
}

// RecordListenerInvocation counts one listener invocation.
func RecordListenerInvocation(listenerID, outcome string) {
	ListenerInvocationsTotal.WithLabelValues(listenerID, outcome).Inc()
}

// ObserveDispatch records the duration of a dispatch that invoked listeners.
func ObserveDispatch(d time.Duration) {
	DispatchDuration.Observe(d.Seconds())
}

// IncCacheRebuild counts a resolution cache miss.
func IncCacheRebuild() {
	ResolutionCacheRebuildsTotal.Inc()
}

// IncPipelineFailure counts an aborted push.
func IncPipelineFailure() {
	PipelineFailuresTotal.Inc()
}

// IncEventDropped records an event dropped before dispatch.
func IncEventDropped(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	EventsDroppedTotal.WithLabelValues(reason).Inc()
}

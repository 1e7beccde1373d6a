// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var TimerRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "botcore_timer_runs_total",
	Help: "Total number of timer task runs by task id and outcome",
}, []string{"task", "outcome"})

// RecordTimerRun counts one timer task run or skipped run.
func RecordTimerRun(task, outcome string) {
	TimerRunsTotal.WithLabelValues(task, outcome).Inc()
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ManuGH/botcore/internal/timer"
	"github.com/ManuGH/botcore/internal/validate"
)

// Validate checks cfg and reports every invalid field at once.
func Validate(cfg AppConfig) error {
	v := validate.New()

	if _, err := zerolog.ParseLevel(strings.ToLower(cfg.Log.Level)); err != nil || cfg.Log.Level == "" {
		v.AddError("log.level", "invalid log level (must be: trace, debug, info, warn, error)", cfg.Log.Level)
	}

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, []string{"grpc", "http", "noop"})
		if cfg.Telemetry.Exporter != "noop" {
			v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		}
		v.FloatRange("telemetry.samplingRate", cfg.Telemetry.SamplingRate, 0, 1)
	}

	if cfg.HTTP.Enabled {
		v.HostPort("http.addr", cfg.HTTP.Addr)
		v.Range("http.requestsPerMinute", cfg.HTTP.RequestsPerMinute, 0, 100000)
	}

	v.NotEmpty("manager.name", cfg.Manager.Name)
	if cfg.Manager.ShutdownTimeout <= 0 {
		v.AddError("manager.shutdownTimeout", "must be positive", cfg.Manager.ShutdownTimeout)
	}

	if cfg.RateLimit.Enabled {
		v.Positive("rateLimit.globalRate", cfg.RateLimit.GlobalRate)
		v.Range("rateLimit.globalBurst", cfg.RateLimit.GlobalBurst, 1, 1<<20)
		v.Positive("rateLimit.perBotRate", cfg.RateLimit.PerBotRate)
		v.Range("rateLimit.perBotBurst", cfg.RateLimit.PerBotBurst, 1, 1<<20)
	}

	if cfg.Dedupe.Enabled {
		v.OneOf("dedupe.backend", cfg.Dedupe.Backend, []string{DedupeBackendMemory, DedupeBackendRedis})
		if cfg.Dedupe.TTL <= 0 {
			v.AddError("dedupe.ttl", "must be positive", cfg.Dedupe.TTL)
		}
		if cfg.Dedupe.Backend == DedupeBackendRedis {
			v.HostPort("dedupe.redis.addr", cfg.Dedupe.Redis.Addr)
			v.Range("dedupe.redis.db", cfg.Dedupe.Redis.DB, 0, 15)
		}
	}

	if cfg.Breaker.Enabled {
		v.Range("breaker.threshold", cfg.Breaker.Threshold, 1, 1000)
		if cfg.Breaker.ResetTimeout <= 0 {
			v.AddError("breaker.resetTimeout", "must be positive", cfg.Breaker.ResetTimeout)
		}
	}

	seen := make(map[string]struct{}, len(cfg.Timers))
	for i, t := range cfg.Timers {
		field := fmt.Sprintf("timers[%d]", i)
		if t.ID == "" {
			v.AddError(field+".id", "value cannot be empty", t.ID)
		} else if _, dup := seen[t.ID]; dup {
			v.AddError(field+".id", "duplicate timer id", t.ID)
		}
		seen[t.ID] = struct{}{}
		if err := timer.Validate(t.Spec); err != nil {
			v.AddError(field+".spec", err.Error(), t.Spec)
		}
	}

	return v.Err()
}

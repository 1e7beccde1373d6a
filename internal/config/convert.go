// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"io"

	"golang.org/x/time/rate"

	"github.com/ManuGH/botcore/internal/cache"
	"github.com/ManuGH/botcore/internal/log"
	"github.com/ManuGH/botcore/internal/ratelimit"
	"github.com/ManuGH/botcore/internal/telemetry"
)

// ToLog converts to the logger configuration writing to out.
func (c LogConfig) ToLog(out io.Writer, version string) log.Config {
	return log.Config{
		Level:   c.Level,
		Service: c.Service,
		Version: version,
		Console: c.Console,
		Output:  out,
	}
}

// ToTelemetry converts to the tracer provider configuration.
func (c TelemetryConfig) ToTelemetry(serviceName, version string) telemetry.Config {
	return telemetry.Config{
		Enabled:        c.Enabled,
		ServiceName:    serviceName,
		ServiceVersion: version,
		Environment:    c.Environment,
		ExporterType:   c.Exporter,
		Endpoint:       c.Endpoint,
		SamplingRate:   c.SamplingRate,
	}
}

// ToLimiter converts to the rate limiter configuration.
func (c RateLimitConfig) ToLimiter() ratelimit.Config {
	rl := ratelimit.DefaultConfig()
	rl.GlobalRate = rate.Limit(c.GlobalRate)
	rl.GlobalBurst = c.GlobalBurst
	rl.PerBotRate = rate.Limit(c.PerBotRate)
	rl.PerBotBurst = c.PerBotBurst
	if c.IdleTimeout > 0 {
		rl.IdleTimeout = c.IdleTimeout
	}
	return rl
}

// ToCache converts to the Redis KV configuration.
func (c RedisConfig) ToCache() cache.RedisConfig {
	return cache.RedisConfig{
		Addr:     c.Addr,
		Username: c.Username,
		Password: c.Password,
		DB:       c.DB,
	}
}

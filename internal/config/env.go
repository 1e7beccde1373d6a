// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// EnvPrefix prefixes every environment variable read by the loader.
const EnvPrefix = "BOTCORE_"

// envReader reads typed values from the environment, falling back to the
// current value when a variable is unset, empty or malformed.
type envReader struct {
	lookup   func(string) (string, bool)
	logger   zerolog.Logger
	consumed map[string]struct{}
}

func (r *envReader) raw(key string) (string, bool) {
	r.consumed[key] = struct{}{}
	v, ok := r.lookup(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (r *envReader) String(key, current string) string {
	v, ok := r.raw(key)
	if !ok {
		return current
	}
	lowerKey := strings.ToLower(key)
	if strings.Contains(lowerKey, "token") || strings.Contains(lowerKey, "password") {
		r.logger.Debug().Str("key", key).Str("source", "environment").Bool("sensitive", true).Msg("using environment variable")
	} else {
		r.logger.Debug().Str("key", key).Str("value", v).Str("source", "environment").Msg("using environment variable")
	}
	return v
}

func (r *envReader) Int(key string, current int) int {
	v, ok := r.raw(key)
	if !ok {
		return current
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		r.invalid(key, v, err)
		return current
	}
	return i
}

func (r *envReader) Float(key string, current float64) float64 {
	v, ok := r.raw(key)
	if !ok {
		return current
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.invalid(key, v, err)
		return current
	}
	return f
}

func (r *envReader) Bool(key string, current bool) bool {
	v, ok := r.raw(key)
	if !ok {
		return current
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.invalid(key, v, err)
		return current
	}
	return b
}

func (r *envReader) Duration(key string, current time.Duration) time.Duration {
	v, ok := r.raw(key)
	if !ok {
		return current
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.invalid(key, v, err)
		return current
	}
	return d
}

func (r *envReader) invalid(key, value string, err error) {
	r.logger.Warn().
		Err(err).
		Str("key", key).
		Str("value", value).
		Msg("invalid environment value, keeping previous")
}

// mergeEnv applies BOTCORE_* overrides on top of cfg.
func (r *envReader) mergeEnv(cfg *AppConfig) error {
	cfg.Log.Level = r.String(EnvPrefix+"LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Service = r.String(EnvPrefix+"LOG_SERVICE", cfg.Log.Service)
	cfg.Log.Console = r.Bool(EnvPrefix+"LOG_CONSOLE", cfg.Log.Console)

	cfg.Telemetry.Enabled = r.Bool(EnvPrefix+"TELEMETRY_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = r.String(EnvPrefix+"TELEMETRY_EXPORTER", cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = r.String(EnvPrefix+"TELEMETRY_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.Environment = r.String(EnvPrefix+"TELEMETRY_ENVIRONMENT", cfg.Telemetry.Environment)
	cfg.Telemetry.SamplingRate = r.Float(EnvPrefix+"TELEMETRY_SAMPLING_RATE", cfg.Telemetry.SamplingRate)

	cfg.HTTP.Enabled = r.Bool(EnvPrefix+"HTTP_ENABLED", cfg.HTTP.Enabled)
	cfg.HTTP.Addr = r.String(EnvPrefix+"HTTP_ADDR", cfg.HTTP.Addr)
	cfg.HTTP.RequestsPerMinute = r.Int(EnvPrefix+"HTTP_REQUESTS_PER_MINUTE", cfg.HTTP.RequestsPerMinute)

	cfg.Manager.Name = r.String(EnvPrefix+"MANAGER_NAME", cfg.Manager.Name)
	cfg.Manager.ShutdownTimeout = r.Duration(EnvPrefix+"MANAGER_SHUTDOWN_TIMEOUT", cfg.Manager.ShutdownTimeout)

	cfg.RateLimit.Enabled = r.Bool(EnvPrefix+"RATELIMIT_ENABLED", cfg.RateLimit.Enabled)
	cfg.RateLimit.GlobalRate = r.Float(EnvPrefix+"RATELIMIT_GLOBAL_RATE", cfg.RateLimit.GlobalRate)
	cfg.RateLimit.GlobalBurst = r.Int(EnvPrefix+"RATELIMIT_GLOBAL_BURST", cfg.RateLimit.GlobalBurst)
	cfg.RateLimit.PerBotRate = r.Float(EnvPrefix+"RATELIMIT_PER_BOT_RATE", cfg.RateLimit.PerBotRate)
	cfg.RateLimit.PerBotBurst = r.Int(EnvPrefix+"RATELIMIT_PER_BOT_BURST", cfg.RateLimit.PerBotBurst)
	cfg.RateLimit.IdleTimeout = r.Duration(EnvPrefix+"RATELIMIT_IDLE_TIMEOUT", cfg.RateLimit.IdleTimeout)

	cfg.Dedupe.Enabled = r.Bool(EnvPrefix+"DEDUPE_ENABLED", cfg.Dedupe.Enabled)
	cfg.Dedupe.Backend = r.String(EnvPrefix+"DEDUPE_BACKEND", cfg.Dedupe.Backend)
	cfg.Dedupe.Prefix = r.String(EnvPrefix+"DEDUPE_PREFIX", cfg.Dedupe.Prefix)
	cfg.Dedupe.TTL = r.Duration(EnvPrefix+"DEDUPE_TTL", cfg.Dedupe.TTL)
	cfg.Dedupe.Redis.Addr = r.String(EnvPrefix+"REDIS_ADDR", cfg.Dedupe.Redis.Addr)
	cfg.Dedupe.Redis.Username = r.String(EnvPrefix+"REDIS_USERNAME", cfg.Dedupe.Redis.Username)
	cfg.Dedupe.Redis.Password = r.String(EnvPrefix+"REDIS_PASSWORD", cfg.Dedupe.Redis.Password)
	cfg.Dedupe.Redis.DB = r.Int(EnvPrefix+"REDIS_DB", cfg.Dedupe.Redis.DB)

	cfg.Breaker.Enabled = r.Bool(EnvPrefix+"BREAKER_ENABLED", cfg.Breaker.Enabled)
	cfg.Breaker.Threshold = r.Int(EnvPrefix+"BREAKER_THRESHOLD", cfg.Breaker.Threshold)
	cfg.Breaker.ResetTimeout = r.Duration(EnvPrefix+"BREAKER_RESET_TIMEOUT", cfg.Breaker.ResetTimeout)

	if raw, ok := r.raw(EnvPrefix + "TIMERS"); ok {
		timers, err := ParseTimers(raw)
		if err != nil {
			return err
		}
		cfg.Timers = timers
	}
	return nil
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads the botcore daemon configuration from defaults, an
// optional YAML file and BOTCORE_* environment variables.
package config

import (
	"time"
)

// AppConfig is the complete daemon configuration.
type AppConfig struct {
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	HTTP      HTTPConfig      `yaml:"http"`
	Manager   ManagerConfig   `yaml:"manager"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Dedupe    DedupeConfig    `yaml:"dedupe"`
	Breaker   BreakerConfig   `yaml:"breaker"`
	Timers    []TimerConfig   `yaml:"timers,omitempty"`
}

type LogConfig struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
	Console bool   `yaml:"console"`
}

type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint,omitempty"`
	Environment  string  `yaml:"environment,omitempty"`
	SamplingRate float64 `yaml:"samplingRate"`
}

// HTTPConfig configures the admin endpoint serving metrics, health and the
// listener table.
type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	// RequestsPerMinute limits admin requests per client IP. Zero disables.
	RequestsPerMinute int `yaml:"requestsPerMinute"`
}

type ManagerConfig struct {
	Name            string        `yaml:"name"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

type RateLimitConfig struct {
	Enabled     bool          `yaml:"enabled"`
	GlobalRate  float64       `yaml:"globalRate"`
	GlobalBurst int           `yaml:"globalBurst"`
	PerBotRate  float64       `yaml:"perBotRate"`
	PerBotBurst int           `yaml:"perBotBurst"`
	IdleTimeout time.Duration `yaml:"idleTimeout"`
}

// Dedupe backends.
const (
	DedupeBackendMemory = "memory"
	DedupeBackendRedis  = "redis"
)

type DedupeConfig struct {
	Enabled bool          `yaml:"enabled"`
	Backend string        `yaml:"backend"`
	Prefix  string        `yaml:"prefix"`
	TTL     time.Duration `yaml:"ttl"`
	Redis   RedisConfig   `yaml:"redis,omitempty"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr,omitempty"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
}

type BreakerConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Threshold    int           `yaml:"threshold"`
	ResetTimeout time.Duration `yaml:"resetTimeout"`
}

// TimerConfig schedules a timer event push for the id on spec.
type TimerConfig struct {
	ID   string `yaml:"id"`
	Spec string `yaml:"spec"`
}

// Default returns the configuration used when nothing overrides it.
func Default() AppConfig {
	return AppConfig{
		Log: LogConfig{
			Level:   "info",
			Service: "botcore",
		},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
		},
		HTTP: HTTPConfig{
			Enabled:           true,
			Addr:              ":9090",
			RequestsPerMinute: 120,
		},
		Manager: ManagerConfig{
			Name:            "default",
			ShutdownTimeout: 10 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled:     true,
			GlobalRate:  200,
			GlobalBurst: 400,
			PerBotRate:  20,
			PerBotBurst: 40,
			IdleTimeout: 5 * time.Minute,
		},
		Dedupe: DedupeConfig{
			Enabled: true,
			Backend: DedupeBackendMemory,
			Prefix:  "botcore:dedupe",
			TTL:     10 * time.Minute,
		},
		Breaker: BreakerConfig{
			Enabled:      true,
			Threshold:    5,
			ResetTimeout: 30 * time.Second,
		},
	}
}

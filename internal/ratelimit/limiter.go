// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package ratelimit provides token bucket limits for inbound bot events.
package ratelimit

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

var (
	rateLimitExceeded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "botcore",
			Name:      "ratelimit_exceeded_total",
			Help:      "Total rate limit rejections",
		},
		[]string{"limit_type", "key"},
	)
)

// Config holds rate limiting configuration
type Config struct {
	// Global limits
	GlobalRate  rate.Limit // events per second
	GlobalBurst int        // max burst size

	// Per-bot limits
	PerBotRate  rate.Limit
	PerBotBurst int

	// Per event key limits, keyed by event key id
	KeyRates map[string]rate.Limit
	KeyBurst map[string]int

	// Per-bot limiters unused for this long are dropped
	IdleTimeout time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		GlobalRate:  200,
		GlobalBurst: 400,

		PerBotRate:  20,
		PerBotBurst: 40,

		KeyRates: map[string]rate.Limit{},
		KeyBurst: map[string]int{},

		IdleTimeout: 5 * time.Minute,
	}
}

type botLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter applies global, per-key and per-bot token buckets.
type Limiter struct {
	config Config
	now    func() time.Time

	global *rate.Limiter
	perKey map[string]*rate.Limiter

	mu          sync.Mutex
	perBot      map[string]*botLimiter
	lastCleanup time.Time
}

// New creates a new rate limiter with the given config
func New(config Config) *Limiter {
	l := &Limiter{
		config:      config,
		now:         time.Now,
		global:      rate.NewLimiter(config.GlobalRate, config.GlobalBurst),
		perKey:      make(map[string]*rate.Limiter, len(config.KeyRates)),
		perBot:      make(map[string]*botLimiter),
		lastCleanup: time.Now(),
	}

	for key, keyRate := range config.KeyRates {
		l.perKey[key] = rate.NewLimiter(keyRate, config.KeyBurst[key])
	}

	return l
}

// Allow reports whether an event of key for botID may be dispatched.
func (l *Limiter) Allow(botID, key string) bool {
	// 1. Check global limit
	if !l.global.Allow() {
		rateLimitExceeded.WithLabelValues("global", key).Inc()
		return false
	}

	// 2. Check per-key limit; perKey is read-only after New
	if keyLimiter, exists := l.perKey[key]; exists && !keyLimiter.Allow() {
		rateLimitExceeded.WithLabelValues("per_key", key).Inc()
		return false
	}

	// 3. Check per-bot limit
	if !l.botLimiter(botID).Allow() {
		rateLimitExceeded.WithLabelValues("per_bot", key).Inc()
		return false
	}

	return true
}

// Bots returns the number of tracked per-bot limiters.
func (l *Limiter) Bots() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.perBot)
}

func (l *Limiter) botLimiter(botID string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.cleanupLocked(now)

	b, exists := l.perBot[botID]
	if !exists {
		b = &botLimiter{limiter: rate.NewLimiter(l.config.PerBotRate, l.config.PerBotBurst)}
		l.perBot[botID] = b
	}
	b.lastSeen = now
	return b.limiter
}

// cleanupLocked drops idle per-bot limiters at most once per IdleTimeout.
func (l *Limiter) cleanupLocked(now time.Time) {
	if l.config.IdleTimeout <= 0 || now.Sub(l.lastCleanup) < l.config.IdleTimeout {
		return
	}
	for id, b := range l.perBot {
		if now.Sub(b.lastSeen) >= l.config.IdleTimeout {
			delete(l.perBot, id)
		}
	}
	l.lastCleanup = now
}

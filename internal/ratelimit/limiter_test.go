// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ratelimit

import (
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestRateLimiterGlobal(t *testing.T) {
	config := Config{
		GlobalRate:  10,
		GlobalBurst: 20,
		PerBotRate:  100,
		PerBotBurst: 200,
		IdleTimeout: 1 * time.Minute,
	}
	limiter := New(config)

	allowed := 0
	for i := 0; i < 25; i++ {
		if limiter.Allow("bot-1", "api.message") {
			allowed++
		}
	}

	// Should be around 20 (burst size)
	if allowed < 19 || allowed > 21 {
		t.Errorf("expected ~20 events to pass with burst=20, got %d", allowed)
	}
}

func TestRateLimiterPerKey(t *testing.T) {
	config := Config{
		GlobalRate:  100,
		GlobalBurst: 200,
		PerBotRate:  100,
		PerBotBurst: 200,
		KeyRates:    map[string]rate.Limit{"api.timer": 5},
		KeyBurst:    map[string]int{"api.timer": 10},
		IdleTimeout: 1 * time.Minute,
	}
	limiter := New(config)

	allowed := 0
	for i := 0; i < 20; i++ {
		if limiter.Allow("bot-1", "api.timer") {
			allowed++
		}
	}
	if allowed < 9 || allowed > 11 {
		t.Errorf("expected ~10 timer events to pass with burst=10, got %d", allowed)
	}

	// other keys are unaffected
	if !limiter.Allow("bot-1", "api.message") {
		t.Error("expected unrelated key to pass")
	}
}

func TestRateLimiterPerBot(t *testing.T) {
	config := Config{
		GlobalRate:  100,
		GlobalBurst: 200,
		PerBotRate:  5,
		PerBotBurst: 10,
		IdleTimeout: 1 * time.Minute,
	}
	limiter := New(config)

	allowed := 0
	for i := 0; i < 20; i++ {
		if limiter.Allow("bot-1", "api.message") {
			allowed++
		}
	}
	if allowed < 9 || allowed > 11 {
		t.Errorf("expected ~10 events to pass for bot-1, got %d", allowed)
	}

	if !limiter.Allow("bot-2", "api.message") {
		t.Error("expected bot-2 to have its own bucket")
	}
}

func TestRateLimiterIdleCleanup(t *testing.T) {
	config := DefaultConfig()
	config.IdleTimeout = time.Minute
	limiter := New(config)

	now := time.Now()
	limiter.now = func() time.Time { return now }
	limiter.lastCleanup = now

	limiter.Allow("bot-1", "api.message")
	limiter.Allow("bot-2", "api.message")
	if got := limiter.Bots(); got != 2 {
		t.Fatalf("expected 2 tracked bots, got %d", got)
	}

	now = now.Add(2 * time.Minute)
	limiter.Allow("bot-3", "api.message")
	if got := limiter.Bots(); got != 1 {
		t.Errorf("expected idle bots to be dropped, got %d tracked", got)
	}
}

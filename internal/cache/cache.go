// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package cache provides the set-if-absent key-value stores used to remember
// already dispatched events.
package cache

import (
	"context"
	"sync"
	"time"
)

// KV is the minimal store the dedupe interceptor needs.
type KV interface {
	// SetNX stores key with ttl if it does not exist and reports whether it
	// was stored.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
}

// Stats holds store counters.
type Stats struct {
	Stored      int64 // SetNX calls that stored a new key
	Rejected    int64 // SetNX calls that found a live key
	Evictions   int64 // expired entries cleaned up
	CurrentSize int
}

// entry represents a stored key with expiration time.
type entry struct {
	value      string
	expiration time.Time
}

func (e *entry) isExpired(now time.Time) bool {
	return !now.Before(e.expiration)
}

// MemoryKV is an in-process KV for single-instance deployments.
type MemoryKV struct {
	mu      sync.Mutex
	entries map[string]*entry
	stats   Stats
	now     func() time.Time
	janitor *janitor
}

// NewMemoryKV creates a store. A positive cleanupInterval starts a janitor
// that removes expired entries; Stop ends it.
func NewMemoryKV(cleanupInterval time.Duration) *MemoryKV {
	c := &MemoryKV{
		entries: make(map[string]*entry),
		now:     time.Now,
	}

	if cleanupInterval > 0 {
		c.janitor = &janitor{
			interval: cleanupInterval,
			stop:     make(chan struct{}),
			done:     make(chan struct{}),
		}
		go c.janitor.run(c)
	}

	return c
}

// SetNX implements KV.
func (c *MemoryKV) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if e, found := c.entries[key]; found && !e.isExpired(now) {
		c.stats.Rejected++
		return false, nil
	}
	c.entries[key] = &entry{value: value, expiration: now.Add(ttl)}
	c.stats.Stored++
	return true, nil
}

// Stats returns store statistics.
func (c *MemoryKV) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.CurrentSize = len(c.entries)
	return stats
}

// deleteExpired removes all expired entries and returns how many were deleted.
func (c *MemoryKV) deleteExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	count := 0
	for key, e := range c.entries {
		if e.isExpired(now) {
			delete(c.entries, key)
			count++
		}
	}

	c.stats.Evictions += int64(count)
	return count
}

// Stop stops the background cleanup goroutine and waits for it.
func (c *MemoryKV) Stop() {
	if c.janitor != nil {
		c.janitor.once.Do(func() { close(c.janitor.stop) })
		<-c.janitor.done
	}
}

// janitor performs periodic cleanup of expired entries.
type janitor struct {
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
	once     sync.Once
}

func (j *janitor) run(c *MemoryKV) {
	defer close(j.done)
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.deleteExpired()
		case <-j.stop:
			return
		}
	}
}

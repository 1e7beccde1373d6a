// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package cache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMemoryKV_SetNX(t *testing.T) {
	kv := NewMemoryKV(0)
	ctx := context.Background()

	ok, err := kv.SetNX(ctx, "k", "1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first SetNX = %v, %v; want true, nil", ok, err)
	}
	ok, _ = kv.SetNX(ctx, "k", "2", time.Minute)
	if ok {
		t.Error("second SetNX on a live key should fail")
	}

	stats := kv.Stats()
	if stats.Stored != 1 || stats.Rejected != 1 || stats.CurrentSize != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestMemoryKV_Expiration(t *testing.T) {
	kv := NewMemoryKV(0)
	now := time.Now()
	kv.now = func() time.Time { return now }
	ctx := context.Background()

	if ok, _ := kv.SetNX(ctx, "k", "1", time.Second); !ok {
		t.Fatal("expected first SetNX to store")
	}
	now = now.Add(2 * time.Second)
	if ok, _ := kv.SetNX(ctx, "k", "1", time.Second); !ok {
		t.Error("expected expired key to be replaced")
	}

	now = now.Add(2 * time.Second)
	if n := kv.deleteExpired(); n != 1 {
		t.Errorf("deleteExpired = %d, want 1", n)
	}
	if kv.Stats().Evictions != 1 {
		t.Errorf("evictions = %d, want 1", kv.Stats().Evictions)
	}
}

func TestMemoryKV_JanitorStops(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	kv := NewMemoryKV(time.Millisecond)
	if ok, _ := kv.SetNX(context.Background(), "k", "1", time.Nanosecond); !ok {
		t.Fatal("expected store")
	}
	deadline := time.Now().Add(time.Second)
	for kv.Stats().CurrentSize != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if kv.Stats().CurrentSize != 0 {
		t.Error("janitor did not remove the expired entry")
	}
	kv.Stop()
	kv.Stop()
}

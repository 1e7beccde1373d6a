// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package event defines the event model consumed by the listener pipeline:
// hierarchical event keys, the Event and Bot contracts, and listener results.
package event

import (
	"sync"
)

// Key identifies an event type. Keys form an "is-a" DAG: a key may declare any
// number of parent keys, and a listener targeting a key receives events of that
// key and of every key descending from it.
//
// Keys are compared by identity. Two keys with the same id are distinct types.
type Key struct {
	id      string
	parents []*Key

	// memo caches reachability answers; the DAG never changes after NewKey.
	memo sync.Map // map[*Key]bool
}

// NewKey creates a key with the given id and parents. Nil parents are ignored.
func NewKey(id string, parents ...*Key) *Key {
	k := &Key{id: id}
	for _, p := range parents {
		if p != nil {
			k.parents = append(k.parents, p)
		}
	}
	return k
}

// ID returns the key's id.
func (k *Key) ID() string {
	if k == nil {
		return ""
	}
	return k.id
}

// Parents returns a copy of the declared parent keys.
func (k *Key) Parents() []*Key {
	if k == nil {
		return nil
	}
	return append([]*Key(nil), k.parents...)
}

// String implements fmt.Stringer.
func (k *Key) String() string {
	return k.ID()
}

// IsSubOf reports whether k is parent or descends from parent.
func (k *Key) IsSubOf(parent *Key) bool {
	if k == nil || parent == nil {
		return false
	}
	if k == parent {
		return true
	}
	if v, ok := k.memo.Load(parent); ok {
		return v.(bool)
	}

	found := k.reach(parent)
	k.memo.Store(parent, found)
	return found
}

// reach walks the ancestors of k breadth-first.
func (k *Key) reach(target *Key) bool {
	seen := map[*Key]struct{}{k: {}}
	queue := append([]*Key(nil), k.parents...)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == target {
			return true
		}
		if _, ok := seen[cur]; ok {
			continue
		}
		seen[cur] = struct{}{}
		if v, ok := cur.memo.Load(target); ok {
			if v.(bool) {
				return true
			}
			continue
		}
		queue = append(queue, cur.parents...)
	}
	return false
}

// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package lru implements a bounded, thread-safe least-recently-used cache
// keyed by integers. Misses can be filled with GetOrCompute, which
// guarantees that concurrent callers asking for the same key share a single
// computation. Failed computations are never stored.
package lru

import (
	"container/list"
	"strconv"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Key is the set of key types accepted by Cache.
type Key interface {
	~int | ~int32 | ~int64
}

// Cache is a bounded LRU map from K to V. The zero value is not usable; use
// New.
type Cache[K Key, V any] struct {
	mu        sync.Mutex
	capacity  int
	items     map[K]*list.Element
	evictList *list.List
	group     singleflight.Group

	// OnEvict, if set, is called (with the cache lock held) whenever an entry
	// is dropped to make room.
	OnEvict func(key K, value V)

	hits   atomic.Int64
	misses atomic.Int64
}

type entry[K Key, V any] struct {
	key   K
	value V
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Len    int
	Hits   int64
	Misses int64
}

// New creates a cache holding at most capacity entries. capacity < 1 is
// treated as 1.
func New[K Key, V any](capacity int) *Cache[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	return &Cache[K, V]{
		capacity:  capacity,
		items:     make(map[K]*list.Element),
		evictList: list.New(),
	}
}

// Capacity returns the maximum number of resident entries.
func (c *Cache[K, V]) Capacity() int { return c.capacity }

// Get returns the cached value for key.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ent, ok := c.items[key]; ok {
		c.hits.Add(1)
		c.evictList.MoveToFront(ent)
		return ent.Value.(*entry[K, V]).value, true
	}
	c.misses.Add(1)
	var zero V
	return zero, false
}

// Contains reports whether key is resident without touching recency or the
// hit counters.
func (c *Cache[K, V]) Contains(key K) bool {
	c.mu.Lock()
	_, ok := c.items[key]
	c.mu.Unlock()
	return ok
}

// Add inserts or replaces the value for key, evicting the least recently used
// entry if the cache is full.
func (c *Cache[K, V]) Add(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ent, ok := c.items[key]; ok {
		c.evictList.MoveToFront(ent)
		ent.Value.(*entry[K, V]).value = value
		return
	}
	for c.evictList.Len() >= c.capacity {
		c.removeOldest()
	}
	c.items[key] = c.evictList.PushFront(&entry[K, V]{key, value})
}

// GetOrCompute returns the cached value for key, calling compute to fill it
// on a miss. Concurrent misses on the same key wait for one compute call. If
// compute fails the error is returned to every waiter and nothing is cached.
func (c *Cache[K, V]) GetOrCompute(key K, compute func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err, _ := c.group.Do(strconv.FormatInt(int64(key), 10), func() (interface{}, error) {
		// Another caller may have filled the entry between Get and Do.
		c.mu.Lock()
		if ent, ok := c.items[key]; ok {
			c.mu.Unlock()
			return ent.Value.(*entry[K, V]).value, nil
		}
		c.mu.Unlock()
		v, err := compute()
		if err != nil {
			return nil, err
		}
		c.Add(key, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}

// Remove drops key from the cache.
func (c *Cache[K, V]) Remove(key K) {
	c.mu.Lock()
	if ent, ok := c.items[key]; ok {
		c.evictList.Remove(ent)
		delete(c.items, key)
	}
	c.mu.Unlock()
}

// Len returns the number of resident entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictList.Len()
}

// Stats returns the current counters.
func (c *Cache[K, V]) Stats() Stats {
	return Stats{Len: c.Len(), Hits: c.hits.Load(), Misses: c.misses.Load()}
}

func (c *Cache[K, V]) removeOldest() {
	ent := c.evictList.Back()
	if ent == nil {
		return
	}
	c.evictList.Remove(ent)
	e := ent.Value.(*entry[K, V])
	delete(c.items, e.key)
	if c.OnEvict != nil {
		c.OnEvict(e.key, e.value)
	}
}

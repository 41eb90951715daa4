// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package inflight provides an advisory set of keys currently being
// computed. It is used to keep two workers from building the same cache
// block; it carries no data.
package inflight

import (
	"encoding/binary"
	"sync"

	"blainsmith.com/go/seahash"
)

const numShards = 64

type shard struct {
	mu   sync.Mutex
	keys map[int64]struct{}
}

// Set is a sharded, thread-safe set of int64 keys.
type Set struct {
	shards [numShards]shard
}

// New creates an empty set.
func New() *Set {
	s := &Set{}
	for i := range s.shards {
		s.shards[i].keys = make(map[int64]struct{})
	}
	return s
}

func (s *Set) shard(key int64) *shard {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(key))
	h := seahash.Sum64(buf[:])
	return &s.shards[int(h%uint64(numShards))]
}

// Add inserts key. It returns true iff the key was not already present, i.e.,
// the caller won the race to do the work.
func (s *Set) Add(key int64) bool {
	sh := s.shard(key)
	sh.mu.Lock()
	_, ok := sh.keys[key]
	if !ok {
		sh.keys[key] = struct{}{}
	}
	sh.mu.Unlock()
	return !ok
}

// Remove deletes key. Removing an absent key is a no-op.
func (s *Set) Remove(key int64) {
	sh := s.shard(key)
	sh.mu.Lock()
	delete(sh.keys, key)
	sh.mu.Unlock()
}

// Contains reports whether key is present.
func (s *Set) Contains(key int64) bool {
	sh := s.shard(key)
	sh.mu.Lock()
	_, ok := sh.keys[key]
	sh.mu.Unlock()
	return ok
}

// Len returns the number of keys. The result is exact only when no other
// goroutine is modifying the set.
func (s *Set) Len() int {
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		n += len(sh.keys)
		sh.mu.Unlock()
	}
	return n
}

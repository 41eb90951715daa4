// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package engine owns the derived-statistics caches for a graph of genotype
// tables: per-site allele frequencies (computed in blocks, with background
// look-ahead) and per-site or per-sample Stats records.
//
// Caches are keyed by table identity and live as long as the Engine. A view
// whose ReuseKey names another table shares that table's caches when its
// translation leaves the counted axis untouched.
package engine

import (
	"sync"

	"github.com/grailbio/genomatrix/genotype"
	"github.com/grailbio/genomatrix/sched"
)

// Opts configures an Engine.
type Opts struct {
	// Scheduler runs background block computations. If nil the engine starts
	// its own sched.Pool and closes it in Close.
	Scheduler sched.Scheduler
	// BlockSize is the number of sites per frequency block. Default 256.
	BlockSize int
	// BlockCacheSize bounds the resident frequency blocks per table.
	// Default 1000.
	BlockCacheSize int
	// LookAhead is the number of blocks scheduled beyond the current one
	// when a lookup misses on a block boundary. Default 3; negative
	// disables look-ahead.
	LookAhead int
}

// Engine holds caches for any number of tables. Tables are compared by
// interface equality, so they must be comparable (pointer types are).
type Engine struct {
	opts Opts
	pool *sched.Pool

	mu          sync.Mutex
	freqs       map[genotype.Table]*FreqCache
	siteStats   map[genotype.Table]*StatsCache
	sampleStats map[genotype.Table]*StatsCache
}

// New creates an engine.
func New(opts Opts) *Engine {
	if opts.BlockSize <= 0 {
		opts.BlockSize = 256
	}
	if opts.BlockCacheSize <= 0 {
		opts.BlockCacheSize = 1000
	}
	if opts.LookAhead < 0 {
		opts.LookAhead = 0
	} else if opts.LookAhead == 0 {
		opts.LookAhead = 3
	}
	e := &Engine{
		opts:        opts,
		freqs:       make(map[genotype.Table]*FreqCache),
		siteStats:   make(map[genotype.Table]*StatsCache),
		sampleStats: make(map[genotype.Table]*StatsCache),
	}
	if opts.Scheduler == nil {
		e.pool = sched.NewPool(sched.PoolOpts{})
		e.opts.Scheduler = e.pool
	}
	return e
}

// Scheduler returns the scheduler used for background work.
func (e *Engine) Scheduler() sched.Scheduler { return e.opts.Scheduler }

// Frequencies returns the allele-frequency cache of t.
func (e *Engine) Frequencies(t genotype.Table) *FreqCache {
	e.mu.Lock()
	c, ok := e.freqs[t]
	e.mu.Unlock()
	if ok {
		return c
	}
	key := t.ReuseKey()
	var base *FreqCache
	if key.Base != nil && key.Base != t && key.Samples.Identity() && key.Samples.Len() == key.Base.NumSamples() {
		base = e.Frequencies(key.Base)
	}
	c = newFreqCache(t, base, key.Sites, e.opts)
	e.mu.Lock()
	defer e.mu.Unlock()
	if prev, ok := e.freqs[t]; ok {
		return prev
	}
	e.freqs[t] = c
	return c
}

// SiteStats returns the per-site Stats cache of t.
func (e *Engine) SiteStats(t genotype.Table) *StatsCache {
	return e.stats(t, true)
}

// SampleStats returns the per-sample Stats cache of t.
func (e *Engine) SampleStats(t genotype.Table) *StatsCache {
	return e.stats(t, false)
}

func (e *Engine) stats(t genotype.Table, bySite bool) *StatsCache {
	m := e.sampleStats
	if bySite {
		m = e.siteStats
	}
	e.mu.Lock()
	c, ok := m[t]
	e.mu.Unlock()
	if ok {
		return c
	}
	// Stats along one axis are reusable when the other axis is untouched.
	key := t.ReuseKey()
	var (
		base  *StatsCache
		index genotype.Index
	)
	if key.Base != nil && key.Base != t {
		if bySite && key.Samples.Identity() && key.Samples.Len() == key.Base.NumSamples() {
			base, index = e.stats(key.Base, true), key.Sites
		} else if !bySite && key.Sites.Identity() && key.Sites.Len() == key.Base.NumSites() {
			base, index = e.stats(key.Base, false), key.Samples
		}
	}
	c = newStatsCache(t, bySite, base, index)
	e.mu.Lock()
	defer e.mu.Unlock()
	if prev, ok := m[t]; ok {
		return prev
	}
	m[t] = c
	return c
}

// Release drops every cache held for t. Caches of other tables that borrow
// from t keep their reference.
func (e *Engine) Release(t genotype.Table) {
	e.mu.Lock()
	delete(e.freqs, t)
	delete(e.siteStats, t)
	delete(e.sampleStats, t)
	e.mu.Unlock()
}

// Close releases every cache and, if the engine started its own pool, waits
// for background work and returns the first background error.
func (e *Engine) Close() error {
	e.mu.Lock()
	e.freqs = make(map[genotype.Table]*FreqCache)
	e.siteStats = make(map[genotype.Table]*StatsCache)
	e.sampleStats = make(map[genotype.Table]*StatsCache)
	e.mu.Unlock()
	if e.pool != nil {
		return e.pool.Close()
	}
	return nil
}

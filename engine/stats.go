// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package engine

import (
	"sync/atomic"

	"github.com/grailbio/genomatrix/genotype"
)

// StatsCache memoizes one Stats record per site (or per sample) of a table.
// Records are computed on first request and kept for the life of the cache.
type StatsCache struct {
	table   genotype.Table
	bySite  bool
	entries []atomic.Pointer[genotype.Stats]

	// base, if set, holds records for the underlying table; index maps this
	// table's positions to base positions.
	base  *StatsCache
	index genotype.Index

	computed atomic.Int64
}

func newStatsCache(t genotype.Table, bySite bool, base *StatsCache, index genotype.Index) *StatsCache {
	n := t.NumSamples()
	if bySite {
		n = t.NumSites()
	}
	return &StatsCache{
		table:   t,
		bySite:  bySite,
		entries: make([]atomic.Pointer[genotype.Stats], n),
		base:    base,
		index:   index,
	}
}

// Len returns the number of positions on the cached axis.
func (c *StatsCache) Len() int { return len(c.entries) }

// Computed returns how many records this cache computed itself (not counting
// records borrowed from a base cache).
func (c *StatsCache) Computed() int64 { return c.computed.Load() }

// Get returns the record for position i.
func (c *StatsCache) Get(i int) (*genotype.Stats, error) {
	if i < 0 || i >= len(c.entries) {
		what := "sample"
		if c.bySite {
			what = "site"
		}
		return nil, genotype.OutOfRange(what, i, len(c.entries))
	}
	if s := c.entries[i].Load(); s != nil {
		return s, nil
	}
	var (
		s   *genotype.Stats
		err error
	)
	if j := c.mapIndex(i); c.base != nil && j != genotype.Absent {
		var bs *genotype.Stats
		if bs, err = c.base.Get(j); err != nil {
			return nil, err
		}
		s = bs.Reindex(i)
	} else {
		if s, err = c.compute(i); err != nil {
			return nil, err
		}
		c.computed.Add(1)
	}
	c.entries[i].CompareAndSwap(nil, s)
	return c.entries[i].Load(), nil
}

func (c *StatsCache) mapIndex(i int) int {
	if c.base == nil {
		return genotype.Absent
	}
	return c.index.Map(i)
}

func (c *StatsCache) compute(i int) (*genotype.Stats, error) {
	var (
		calls []byte
		err   error
	)
	if c.bySite {
		calls, err = c.table.SiteColumn(i)
	} else {
		calls, err = c.table.SampleRow(i)
	}
	if err != nil {
		return nil, err
	}
	return genotype.ComputeStats(i, calls, c.table.MaxNumAlleles()), nil
}

// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package engine

import (
	"fmt"
	"sync/atomic"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/genomatrix/genotype"
	"github.com/grailbio/genomatrix/internal/inflight"
	"github.com/grailbio/genomatrix/internal/lru"
	"github.com/grailbio/genomatrix/sched"
)

// FreqCache answers per-site allele frequency queries for one table.
//
// A lookup that misses computes the requested site directly and schedules
// the whole owning block in the background; a miss on the first site of a
// block also schedules the following LookAhead blocks. Blocks are evicted
// LRU and recomputed on demand.
type FreqCache struct {
	table     genotype.Table
	sched     sched.Scheduler
	blockSize int
	lookAhead int

	// base, if set, answers for this table through sites.
	base  *FreqCache
	sites genotype.Index

	counter  genotype.AlleleCounter
	blocks   *lru.Cache[int, []genotype.AlleleCounts]
	inflight *inflight.Set

	direct, computed atomic.Int64
}

func newFreqCache(t genotype.Table, base *FreqCache, sites genotype.Index, opts Opts) *FreqCache {
	c := &FreqCache{
		table:     t,
		sched:     opts.Scheduler,
		blockSize: opts.BlockSize,
		lookAhead: opts.LookAhead,
		base:      base,
		sites:     sites,
		blocks:    lru.New[int, []genotype.AlleleCounts](opts.BlockCacheSize),
		inflight:  inflight.New(),
	}
	if counter, ok := t.(genotype.AlleleCounter); ok && base == nil && counter.Annotated() {
		c.counter = counter
	}
	return c
}

// FreqStats reports cache activity.
type FreqStats struct {
	lru.Stats
	// Direct counts sites computed synchronously on a miss.
	Direct int64
	// Blocks counts blocks computed in the background.
	Blocks int64
}

// Stats returns the cache counters.
func (c *FreqCache) Stats() FreqStats {
	return FreqStats{Stats: c.blocks.Stats(), Direct: c.direct.Load(), Blocks: c.computed.Load()}
}

// BlockCached reports whether the block holding site is resident.
func (c *FreqCache) BlockCached(site int) bool {
	return c.blocks.Contains(c.blockStart(site))
}

func (c *FreqCache) blockStart(site int) int {
	return site / c.blockSize * c.blockSize
}

// AlleleCounts returns the alleles observed at site, most frequent first.
func (c *FreqCache) AlleleCounts(site int) (genotype.AlleleCounts, error) {
	if n := c.table.NumSites(); site < 0 || site >= n {
		return genotype.AlleleCounts{}, genotype.OutOfRange("site", site, n)
	}
	if c.base != nil {
		j := c.sites.Map(site)
		if j == genotype.Absent {
			return genotype.AlleleCounts{}, nil
		}
		return c.base.AlleleCounts(j)
	}
	if c.counter != nil {
		return c.counter.AlleleCounts(site)
	}
	start := c.blockStart(site)
	if blk, ok := c.blocks.Get(start); ok {
		return blk[site-start], nil
	}
	c.schedule(start)
	if site == start {
		for i := 1; i <= c.lookAhead; i++ {
			c.schedule(start + i*c.blockSize)
		}
	}
	c.direct.Add(1)
	return c.compute(site)
}

func (c *FreqCache) compute(site int) (genotype.AlleleCounts, error) {
	col, err := c.table.SiteColumn(site)
	if err != nil {
		return genotype.AlleleCounts{}, err
	}
	return genotype.CountAlleles(col, c.table.MaxNumAlleles()), nil
}

func (c *FreqCache) schedule(start int) {
	if start >= c.table.NumSites() || c.blocks.Contains(start) {
		return
	}
	if !c.inflight.Add(int64(start)) {
		return
	}
	ok := c.sched.Schedule(fmt.Sprintf("freq block %d", start), func() error {
		defer c.inflight.Remove(int64(start))
		if c.blocks.Contains(start) {
			return nil
		}
		end := start + c.blockSize
		if n := c.table.NumSites(); end > n {
			end = n
		}
		blk := make([]genotype.AlleleCounts, end-start)
		for i := range blk {
			var err error
			if blk[i], err = c.compute(start + i); err != nil {
				return errors.E(err, fmt.Sprintf("allele frequencies for sites [%d,%d)", start, end))
			}
		}
		c.blocks.Add(start, blk)
		c.computed.Add(1)
		log.Debug.Printf("engine: cached frequency block %d (%d sites)", start, len(blk))
		return nil
	})
	if !ok {
		c.inflight.Remove(int64(start))
	}
}

// Major returns the most frequent allele at site.
func (c *FreqCache) Major(site int) (byte, error) {
	a, err := c.AlleleCounts(site)
	return a.Major(), err
}

// MajorFrequency returns the frequency of the most frequent allele.
func (c *FreqCache) MajorFrequency(site int) (float64, error) {
	a, err := c.AlleleCounts(site)
	return a.MajorFrequency(), err
}

// Minor returns the second most frequent allele, or UnknownAllele.
func (c *FreqCache) Minor(site int) (byte, error) {
	a, err := c.AlleleCounts(site)
	return a.Minor(), err
}

// MinorFrequency returns the frequency of the second most frequent allele.
func (c *FreqCache) MinorFrequency(site int) (float64, error) {
	a, err := c.AlleleCounts(site)
	return a.MinorFrequency(), err
}

// Third returns the third most frequent allele, or UnknownAllele.
func (c *FreqCache) Third(site int) (byte, error) {
	a, err := c.AlleleCounts(site)
	return a.Third(), err
}

// MinorAlleleCount returns the count of the second most frequent allele.
func (c *FreqCache) MinorAlleleCount(site int) (int, error) {
	a, err := c.AlleleCounts(site)
	return a.Count(1), err
}

// Polymorphic reports whether more than one allele was observed at site.
func (c *FreqCache) Polymorphic(site int) (bool, error) {
	a, err := c.AlleleCounts(site)
	return a.Polymorphic(), err
}

// TotalGametesNonMissing returns the number of known gametes at site. Every
// allele other than UnknownAllele counts, so the site column is scanned.
func (c *FreqCache) TotalGametesNonMissing(site int) (int, error) {
	counts, err := genotype.SiteCallCounts(c.table, site)
	return counts.GametesNonMissing, err
}

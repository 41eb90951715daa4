// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package view

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/biogo/store/llrb"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/genomatrix/genotype"
)

// DonorHaplotypes says that over [Start, End] (physical positions,
// inclusive) of Chrom a projected sample carries the haplotypes of base
// samples Parent1 and Parent2.
type DonorHaplotypes struct {
	Chrom            string
	Start, End       int32
	Parent1, Parent2 int
}

// MergeDonorHaplotypes joins two ranges with the same chromosome and donors
// into one range covering both. ok is false if they cannot be merged.
func MergeDonorHaplotypes(a, b DonorHaplotypes) (m DonorHaplotypes, ok bool) {
	if a.Chrom != b.Chrom || a.Parent1 != b.Parent1 || a.Parent2 != b.Parent2 {
		return DonorHaplotypes{}, false
	}
	m = a
	if b.Start < m.Start {
		m.Start = b.Start
	}
	if b.End > m.End {
		m.End = b.End
	}
	return m, true
}

// donorRange is a DonorHaplotypes resolved to base sites [start, end]. It is
// ordered by start in the llrb trees.
type donorRange struct {
	start, end       int
	parent1, parent2 int
}

func (r donorRange) Compare(c llrb.Comparable) int { return r.start - c.(donorRange).start }

func (r donorRange) contains(site int) bool { return site >= r.start && site <= r.end }

type projectionMode int32

const (
	// modeGeneral resolves each cell with a tree lookup (cached per sample).
	modeGeneral projectionMode = iota
	// modeSite keeps the base column of the last site read.
	modeSite
)

type siteColumn struct {
	site int
	col  []byte
}

// Projection presents low-density samples imputed from a high-density base
// table: over each donor range a projected sample's call combines the base
// calls of its two donors (see genotype.CombineNoHets). Sites outside every
// range read as Missing.
type Projection struct {
	base      genotype.Table
	donors    [][]DonorHaplotypes
	ranges    []*llrb.Tree
	lastRange []atomic.Pointer[donorRange]

	mode    atomic.Int32
	colMu   sync.Mutex
	lastCol atomic.Pointer[siteColumn]
}

// NewProjection resolves donors[i] (the ranges of projected sample i)
// against the positions of base.
func NewProjection(base genotype.Table, positions *genotype.Positions, donors [][]DonorHaplotypes) (*Projection, error) {
	if positions.Len() != base.NumSites() {
		return nil, errors.E(errors.Invalid,
			fmt.Sprintf("projection: %d positions for %d base sites", positions.Len(), base.NumSites()))
	}
	p := &Projection{
		base:      base,
		donors:    donors,
		ranges:    make([]*llrb.Tree, len(donors)),
		lastRange: make([]atomic.Pointer[donorRange], len(donors)),
	}
	for i, list := range donors {
		resolved := make([]donorRange, 0, len(list))
		for _, dh := range list {
			for _, parent := range []int{dh.Parent1, dh.Parent2} {
				if parent < 0 || parent >= base.NumSamples() {
					return nil, errors.E(errors.Invalid, fmt.Sprintf(
						"projection: sample %d: donor %d out of range [0,%d)", i, parent, base.NumSamples()))
				}
			}
			r, ok := resolveRange(positions, dh)
			if !ok {
				continue
			}
			resolved = append(resolved, r)
		}
		sort.Slice(resolved, func(a, b int) bool { return resolved[a].start < resolved[b].start })
		tree := &llrb.Tree{}
		for k, r := range resolved {
			if k > 0 && r.start <= resolved[k-1].end {
				return nil, errors.E(errors.Invalid, fmt.Sprintf(
					"projection: sample %d: donor ranges [%d,%d] and [%d,%d] overlap",
					i, resolved[k-1].start, resolved[k-1].end, r.start, r.end))
			}
			tree.Insert(r)
		}
		p.ranges[i] = tree
	}
	return p, nil
}

// resolveRange converts physical positions to base sites. A start position
// with no site begins at the next site; an end position with no site ends at
// the previous one.
func resolveRange(positions *genotype.Positions, dh DonorHaplotypes) (donorRange, bool) {
	start := positions.SiteOf(dh.Chrom, dh.Start)
	if start < 0 {
		start = -(start + 1)
	}
	end := positions.SiteOf(dh.Chrom, dh.End)
	if end < 0 {
		end = -(end + 1) - 1
	}
	if end < start || start >= positions.Len() || positions.Site(start).Chrom != dh.Chrom {
		return donorRange{}, false
	}
	return donorRange{start: start, end: end, parent1: dh.Parent1, parent2: dh.Parent2}, true
}

// Base returns the high-density table.
func (p *Projection) Base() genotype.Table { return p.base }

// Donors returns the donor ranges of sample as given to NewProjection.
func (p *Projection) Donors(sample int) []DonorHaplotypes { return p.donors[sample] }

// SampleDonors returns the base samples that serve sample at site. ok is
// false if no range covers the site.
func (p *Projection) SampleDonors(sample, site int) (parent1, parent2 int, ok bool) {
	r, ok := p.lookup(sample, site)
	return r.parent1, r.parent2, ok
}

func (p *Projection) lookup(sample, site int) (donorRange, bool) {
	if r := p.lastRange[sample].Load(); r != nil && r.contains(site) {
		return *r, true
	}
	c := p.ranges[sample].Floor(donorRange{start: site})
	if c == nil {
		return donorRange{}, false
	}
	r := c.(donorRange)
	if !r.contains(site) {
		return donorRange{}, false
	}
	p.lastRange[sample].Store(&r)
	return r, true
}

// Kind implements genotype.Table.
func (p *Projection) Kind() genotype.Kind { return genotype.Projection }

// NumSamples implements genotype.Table.
func (p *Projection) NumSamples() int { return len(p.donors) }

// NumSites implements genotype.Table.
func (p *Projection) NumSites() int { return p.base.NumSites() }

// Phased implements genotype.Table. Projected calls are unphased.
func (p *Projection) Phased() bool { return false }

// AlleleStates implements genotype.Table.
func (p *Projection) AlleleStates() genotype.AlleleStates { return p.base.AlleleStates() }

// MaxNumAlleles implements genotype.Table.
func (p *Projection) MaxNumAlleles() int { return p.base.MaxNumAlleles() }

// Genotype implements genotype.Table.
func (p *Projection) Genotype(sample, site int) (byte, error) {
	if err := genotype.CheckCell(p, sample, site); err != nil {
		return genotype.Missing, err
	}
	r, ok := p.lookup(sample, site)
	if !ok {
		return genotype.Missing, nil
	}
	if projectionMode(p.mode.Load()) == modeSite {
		col, err := p.column(site)
		if err != nil {
			return genotype.Missing, err
		}
		return genotype.CombineNoHets(col[r.parent1], col[r.parent2]), nil
	}
	g1, err := p.base.Genotype(r.parent1, site)
	if err != nil {
		return genotype.Missing, err
	}
	g2, err := p.base.Genotype(r.parent2, site)
	if err != nil {
		return genotype.Missing, err
	}
	return genotype.CombineNoHets(g1, g2), nil
}

func (p *Projection) column(site int) ([]byte, error) {
	if c := p.lastCol.Load(); c != nil && c.site == site {
		return c.col, nil
	}
	p.colMu.Lock()
	defer p.colMu.Unlock()
	if c := p.lastCol.Load(); c != nil && c.site == site {
		return c.col, nil
	}
	col, err := p.base.SiteColumn(site)
	if err != nil {
		return nil, err
	}
	p.lastCol.Store(&siteColumn{site: site, col: col})
	return col, nil
}

// SampleRange implements genotype.Table. Each overlapping donor range costs
// two base row reads.
func (p *Projection) SampleRange(sample, start, end int) ([]byte, error) {
	if err := genotype.CheckRange(p, sample, start, end); err != nil {
		return nil, err
	}
	out := missingRow(end - start)
	var ranges []donorRange
	if c := p.ranges[sample].Floor(donorRange{start: start}); c != nil {
		ranges = append(ranges, c.(donorRange))
	}
	if start+1 < end {
		p.ranges[sample].DoRange(func(c llrb.Comparable) bool {
			ranges = append(ranges, c.(donorRange))
			return false
		}, donorRange{start: start + 1}, donorRange{start: end})
	}
	for _, r := range ranges {
		lo, hi := r.start, r.end+1
		if lo < start {
			lo = start
		}
		if hi > end {
			hi = end
		}
		if lo >= hi {
			continue
		}
		r1, err := p.base.SampleRange(r.parent1, lo, hi)
		if err != nil {
			return nil, err
		}
		r2, err := p.base.SampleRange(r.parent2, lo, hi)
		if err != nil {
			return nil, err
		}
		for k := range r1 {
			out[lo-start+k] = genotype.CombineNoHets(r1[k], r2[k])
		}
	}
	return out, nil
}

// SampleRow implements genotype.Table.
func (p *Projection) SampleRow(sample int) ([]byte, error) {
	return p.SampleRange(sample, 0, p.NumSites())
}

// SiteColumn implements genotype.Table.
func (p *Projection) SiteColumn(site int) ([]byte, error) {
	if site < 0 || site >= p.NumSites() {
		return nil, genotype.OutOfRange("site", site, p.NumSites())
	}
	col, err := p.base.SiteColumn(site)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(p.donors))
	for s := range out {
		r, ok := p.lookup(s, site)
		if !ok {
			out[s] = genotype.Missing
			continue
		}
		out[s] = genotype.CombineNoHets(col[r.parent1], col[r.parent2])
	}
	return out, nil
}

// Transpose implements genotype.Table. It forwards the request to the base
// table; with siteInnerLoop the view switches to reading whole base
// columns.
func (p *Projection) Transpose(siteInnerLoop bool) error {
	if err := p.base.Transpose(siteInnerLoop); err != nil {
		return err
	}
	if siteInnerLoop {
		p.mode.Store(int32(modeSite))
	} else {
		p.mode.Store(int32(modeGeneral))
	}
	return nil
}

// SiteOptimized implements genotype.Table.
func (p *Projection) SiteOptimized() bool { return projectionMode(p.mode.Load()) != modeSite }

// ReuseKey implements genotype.Table.
func (p *Projection) ReuseKey() genotype.ReuseKey { return genotype.SelfKey(p) }

// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package view

import (
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/genomatrix/genotype"
)

// donorTable holds what Hybrid and Difference share: a base table and two
// base-sample indexes per logical sample.
type donorTable struct {
	base          genotype.Table
	first, second []int
	kind          genotype.Kind
	derive        func(g1, g2 byte) byte
}

func newDonorTable(kind genotype.Kind, base genotype.Table, first, second []int, derive func(g1, g2 byte) byte) (donorTable, error) {
	if len(first) != len(second) {
		return donorTable{}, errors.E(errors.Invalid,
			fmt.Sprintf("%s: %d first donors but %d second donors", kind, len(first), len(second)))
	}
	for _, idx := range [][]int{first, second} {
		for i, s := range idx {
			if s < 0 || s >= base.NumSamples() {
				return donorTable{}, errors.E(errors.Invalid,
					fmt.Sprintf("%s: donor %d of sample %d out of range [0,%d)", kind, s, i, base.NumSamples()))
			}
		}
	}
	return donorTable{base: base, first: first, second: second, kind: kind, derive: derive}, nil
}

func (d *donorTable) Kind() genotype.Kind                 { return d.kind }
func (d *donorTable) NumSamples() int                     { return len(d.first) }
func (d *donorTable) NumSites() int                       { return d.base.NumSites() }
func (d *donorTable) Phased() bool                        { return d.base.Phased() }
func (d *donorTable) AlleleStates() genotype.AlleleStates { return d.base.AlleleStates() }
func (d *donorTable) MaxNumAlleles() int                  { return d.base.MaxNumAlleles() }
func (d *donorTable) Transpose(siteInnerLoop bool) error  { return d.base.Transpose(siteInnerLoop) }
func (d *donorTable) SiteOptimized() bool                 { return d.base.SiteOptimized() }

func (d *donorTable) genotype(sample, site int) (byte, error) {
	if sample < 0 || sample >= len(d.first) {
		return genotype.Missing, genotype.OutOfRange("sample", sample, len(d.first))
	}
	g1, err := d.base.Genotype(d.first[sample], site)
	if err != nil {
		return genotype.Missing, err
	}
	g2, err := d.base.Genotype(d.second[sample], site)
	if err != nil {
		return genotype.Missing, err
	}
	return d.derive(g1, g2), nil
}

func (d *donorTable) sampleRange(sample, start, end int) ([]byte, error) {
	if sample < 0 || sample >= len(d.first) {
		return nil, genotype.OutOfRange("sample", sample, len(d.first))
	}
	r1, err := d.base.SampleRange(d.first[sample], start, end)
	if err != nil {
		return nil, err
	}
	r2, err := d.base.SampleRange(d.second[sample], start, end)
	if err != nil {
		return nil, err
	}
	for i := range r1 {
		r1[i] = d.derive(r1[i], r2[i])
	}
	return r1, nil
}

func (d *donorTable) siteColumn(site int) ([]byte, error) {
	col, err := d.base.SiteColumn(site)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(d.first))
	for i := range out {
		out[i] = d.derive(col[d.first[i]], col[d.second[i]])
	}
	return out, nil
}

// Hybrid derives each sample from two homozygous donors: the call takes its
// first allele from the first donor and its second from the second donor.
// If either donor is not homozygous the call is Missing.
type Hybrid struct{ donorTable }

// NewHybrid creates a hybrid view. Sample i crosses base samples first[i] and
// second[i].
func NewHybrid(base genotype.Table, first, second []int) (*Hybrid, error) {
	d, err := newDonorTable(genotype.Hybrid, base, first, second, HybridCall)
	if err != nil {
		return nil, err
	}
	return &Hybrid{d}, nil
}

// HybridCall combines two donor calls into a hybrid call.
func HybridCall(first, second byte) byte {
	if genotype.IsHomozygous(first) && genotype.IsHomozygous(second) {
		return first&0xF0 | second&0x0F
	}
	return genotype.Missing
}

// Genotype implements genotype.Table.
func (h *Hybrid) Genotype(sample, site int) (byte, error) { return h.genotype(sample, site) }

// SampleRange implements genotype.Table.
func (h *Hybrid) SampleRange(sample, start, end int) ([]byte, error) {
	return h.sampleRange(sample, start, end)
}

// SampleRow implements genotype.Table.
func (h *Hybrid) SampleRow(sample int) ([]byte, error) { return h.sampleRange(sample, 0, h.NumSites()) }

// SiteColumn implements genotype.Table.
func (h *Hybrid) SiteColumn(site int) ([]byte, error) { return h.siteColumn(site) }

// ReuseKey implements genotype.Table.
func (h *Hybrid) ReuseKey() genotype.ReuseKey { return genotype.SelfKey(h) }

// Difference infers, for a hybrid and one of its parents, the allele the
// hybrid got from the other parent.
type Difference struct{ donorTable }

// NewDifference creates a difference view. Sample i compares base sample
// hybrids[i] against its parent parents[i].
func NewDifference(base genotype.Table, hybrids, parents []int) (*Difference, error) {
	d, err := newDonorTable(genotype.Difference, base, hybrids, parents, DifferenceCall)
	if err != nil {
		return nil, err
	}
	return &Difference{d}, nil
}

// DifferenceCall returns the homozygous call of the allele that hybrid did
// not inherit from parent. A homozygous hybrid yields itself when it matches
// the parent; anything undecidable is Missing.
func DifferenceCall(hybrid, parent byte) byte {
	if genotype.IsHomozygous(hybrid) {
		if hybrid == parent {
			return hybrid
		}
		return genotype.Missing
	}
	if !genotype.IsHomozygous(parent) {
		return genotype.Missing
	}
	h1, h2 := genotype.Alleles(hybrid)
	p, _ := genotype.Alleles(parent)
	if p == h1 {
		return genotype.Diploid(h2, h2)
	}
	return genotype.Diploid(h1, h1)
}

// Genotype implements genotype.Table.
func (d *Difference) Genotype(sample, site int) (byte, error) { return d.genotype(sample, site) }

// SampleRange implements genotype.Table.
func (d *Difference) SampleRange(sample, start, end int) ([]byte, error) {
	return d.sampleRange(sample, start, end)
}

// SampleRow implements genotype.Table.
func (d *Difference) SampleRow(sample int) ([]byte, error) {
	return d.sampleRange(sample, 0, d.NumSites())
}

// SiteColumn implements genotype.Table.
func (d *Difference) SiteColumn(site int) ([]byte, error) { return d.siteColumn(site) }

// ReuseKey implements genotype.Table.
func (d *Difference) ReuseKey() genotype.ReuseKey { return genotype.SelfKey(d) }

// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package dense implements an in-memory genotype.Table backed by a byte
// matrix. The table keeps a sample-major copy, a site-major copy, or both;
// Transpose builds the missing orientation lazily and never drops the other.
package dense

import (
	"sync"
	"sync/atomic"

	"github.com/grailbio/base/log"
	"github.com/grailbio/genomatrix/bytematrix"
	"github.com/grailbio/genomatrix/genotype"
)

// Opts describes the non-cell properties of a table.
type Opts struct {
	// Phased marks the two alleles of each call as ordered.
	Phased bool
	// AlleleStates defaults to genotype.NucleotideAlleles.
	AlleleStates genotype.AlleleStates
	// MaxNumAlleles defaults to genotype.DefaultMaxNumAlleles.
	MaxNumAlleles int
}

func (o *Opts) setDefaults() {
	if o.AlleleStates == nil {
		o.AlleleStates = genotype.NucleotideAlleles
	}
	if o.MaxNumAlleles <= 0 {
		o.MaxNumAlleles = genotype.DefaultMaxNumAlleles
	}
}

// Table is the dense backend.
type Table struct {
	opts                 Opts
	numSamples, numSites int

	mu sync.Mutex // serializes Transpose
	// bySample is row-major over (sample, site); bySite is column-major. At
	// least one is non-nil.
	bySample, bySite atomic.Pointer[bytematrix.Matrix]
	siteOptimized    atomic.Bool
}

// New creates a table from calls[sample][site]. The rows are copied.
func New(calls [][]byte, opts Opts) (*Table, error) {
	m, err := bytematrix.FromRows(calls)
	if err != nil {
		return nil, err
	}
	return newTable(m, opts), nil
}

func newTable(m *bytematrix.Matrix, opts Opts) *Table {
	opts.setDefaults()
	t := &Table{opts: opts, numSamples: m.NumRows(), numSites: m.NumColumns()}
	if m.RowMajor() {
		t.bySample.Store(m)
	} else {
		t.bySite.Store(m)
		t.siteOptimized.Store(true)
	}
	return t
}

// Kind implements genotype.Table.
func (t *Table) Kind() genotype.Kind { return genotype.Dense }

// NumSamples implements genotype.Table.
func (t *Table) NumSamples() int { return t.numSamples }

// NumSites implements genotype.Table.
func (t *Table) NumSites() int { return t.numSites }

// Phased implements genotype.Table.
func (t *Table) Phased() bool { return t.opts.Phased }

// AlleleStates implements genotype.Table.
func (t *Table) AlleleStates() genotype.AlleleStates { return t.opts.AlleleStates }

// MaxNumAlleles implements genotype.Table.
func (t *Table) MaxNumAlleles() int { return t.opts.MaxNumAlleles }

// matrix returns the orientation matching the current hint, or the other one
// if it has not been built.
func (t *Table) matrix() *bytematrix.Matrix {
	if t.siteOptimized.Load() {
		if m := t.bySite.Load(); m != nil {
			return m
		}
		return t.bySample.Load()
	}
	if m := t.bySample.Load(); m != nil {
		return m
	}
	return t.bySite.Load()
}

// Genotype implements genotype.Table.
func (t *Table) Genotype(sample, site int) (byte, error) {
	if uint(sample) >= uint(t.numSamples) || uint(site) >= uint(t.numSites) {
		return genotype.Missing, genotype.CheckCell(t, sample, site)
	}
	return t.matrix().Get(sample, site), nil
}

// SampleRange implements genotype.Table.
func (t *Table) SampleRange(sample, start, end int) ([]byte, error) {
	if err := genotype.CheckRange(t, sample, start, end); err != nil {
		return nil, err
	}
	if m := t.bySample.Load(); m != nil {
		return m.RowRange(sample, start, end), nil
	}
	return t.bySite.Load().RowRange(sample, start, end), nil
}

// SampleRow implements genotype.Table.
func (t *Table) SampleRow(sample int) ([]byte, error) {
	return t.SampleRange(sample, 0, t.numSites)
}

// SiteColumn implements genotype.Table.
func (t *Table) SiteColumn(site int) ([]byte, error) {
	if site < 0 || site >= t.numSites {
		return nil, genotype.OutOfRange("site", site, t.numSites)
	}
	if m := t.bySite.Load(); m != nil {
		return m.Column(site), nil
	}
	return t.bySample.Load().Column(site), nil
}

// Transpose implements genotype.Table. The first request for an orientation
// copies the matrix; both copies are then kept.
func (t *Table) Transpose(siteInnerLoop bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if siteInnerLoop {
		if t.bySample.Load() == nil {
			log.Debug.Printf("dense: building sample-major copy (%d x %d)", t.numSamples, t.numSites)
			t.bySample.Store(t.bySite.Load().Transpose())
		}
	} else if t.bySite.Load() == nil {
		log.Debug.Printf("dense: building site-major copy (%d x %d)", t.numSamples, t.numSites)
		t.bySite.Store(t.bySample.Load().Transpose())
	}
	t.siteOptimized.Store(!siteInnerLoop)
	return nil
}

// SiteOptimized implements genotype.Table.
func (t *Table) SiteOptimized() bool { return t.siteOptimized.Load() }

// ReuseKey implements genotype.Table.
func (t *Table) ReuseKey() genotype.ReuseKey { return genotype.SelfKey(t) }

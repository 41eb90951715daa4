// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package view

import (
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/genomatrix/genotype"
)

// Merged presents samples and sites drawn from several sources. Each logical
// cell folds, with a MergeRule, the calls of every source that has both the
// sample and the site; a cell no source covers is Missing.
type Merged struct {
	sources []genotype.Table
	// samples[s][k] and sites[t][k] locate logical sample s and site t in
	// sources[k], or are genotype.Absent.
	samples, sites [][]int
	rule           MergeRule
	alleles        genotype.AlleleStates
}

// NewMerged creates a merged view. samples and sites have one row per
// logical sample (site) and one column per source. A nil rule means SetToN.
// A single source with identity maps is returned unchanged.
func NewMerged(sources []genotype.Table, samples, sites [][]int, rule MergeRule) (genotype.Table, error) {
	if len(sources) == 0 {
		return nil, errors.E(errors.Invalid, "merge: must provide genotype tables")
	}
	if rule == nil {
		rule = SetToN{}
	}
	first := sources[0]
	for k, t := range sources[1:] {
		if t.Phased() != first.Phased() {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("merge: phase is different in source %d", k+1))
		}
		if t.MaxNumAlleles() != first.MaxNumAlleles() {
			return nil, errors.E(errors.Invalid,
				fmt.Sprintf("merge: max number of alleles is different in source %d", k+1))
		}
	}
	if err := checkMergeMap("sample", samples, sources, genotype.Table.NumSamples); err != nil {
		return nil, err
	}
	if err := checkMergeMap("site", sites, sources, genotype.Table.NumSites); err != nil {
		return nil, err
	}
	if len(sources) == 1 && identityMap(samples, first.NumSamples()) && identityMap(sites, first.NumSites()) {
		return first, nil
	}
	m := &Merged{sources: sources, samples: samples, sites: sites, rule: rule}

	shared := first.AlleleStates()
	same := shared.Shared()
	for _, t := range sources[1:] {
		if !same {
			break
		}
		same = t.AlleleStates().Equal(shared)
	}
	if same {
		m.alleles = shared
		return m, nil
	}
	m.alleles = make(genotype.AlleleStates, len(sites))
	for t, row := range sites {
		m.alleles[t] = []string{}
		for k, j := range row {
			if j == genotype.Absent {
				continue
			}
			states, err := sources[k].AlleleStates().ForSite(j)
			if err != nil {
				return nil, err
			}
			m.alleles[t] = states
			break
		}
	}
	return m, nil
}

func checkMergeMap(what string, m [][]int, sources []genotype.Table, size func(genotype.Table) int) error {
	for i, row := range m {
		if len(row) != len(sources) {
			return errors.E(errors.Invalid,
				fmt.Sprintf("merge: %s %d maps to %d sources, want %d", what, i, len(row), len(sources)))
		}
		for k, j := range row {
			if j != genotype.Absent && (j < 0 || j >= size(sources[k])) {
				return errors.E(errors.Invalid,
					fmt.Sprintf("merge: %s %d maps to %d in source %d, out of range [0,%d)",
						what, i, j, k, size(sources[k])))
			}
		}
	}
	return nil
}

func identityMap(m [][]int, n int) bool {
	if len(m) != n {
		return false
	}
	for i, row := range m {
		if row[0] != i {
			return false
		}
	}
	return true
}

// Rule returns the merge rule.
func (m *Merged) Rule() MergeRule { return m.rule }

// Kind implements genotype.Table.
func (m *Merged) Kind() genotype.Kind { return genotype.Merged }

// NumSamples implements genotype.Table.
func (m *Merged) NumSamples() int { return len(m.samples) }

// NumSites implements genotype.Table.
func (m *Merged) NumSites() int { return len(m.sites) }

// Phased implements genotype.Table.
func (m *Merged) Phased() bool { return m.sources[0].Phased() }

// AlleleStates implements genotype.Table.
func (m *Merged) AlleleStates() genotype.AlleleStates { return m.alleles }

// MaxNumAlleles implements genotype.Table.
func (m *Merged) MaxNumAlleles() int { return m.sources[0].MaxNumAlleles() }

// Genotype implements genotype.Table.
func (m *Merged) Genotype(sample, site int) (byte, error) {
	if err := genotype.CheckCell(m, sample, site); err != nil {
		return genotype.Missing, err
	}
	g := genotype.Missing
	for k, src := range m.sources {
		i, j := m.samples[sample][k], m.sites[site][k]
		if i == genotype.Absent || j == genotype.Absent {
			continue
		}
		v, err := src.Genotype(i, j)
		if err != nil {
			return genotype.Missing, err
		}
		g = m.rule.MergeCalls(g, v)
	}
	return g, nil
}

// SampleRange implements genotype.Table.
func (m *Merged) SampleRange(sample, start, end int) ([]byte, error) {
	return genotype.RangeFromCells(m, sample, start, end)
}

// SampleRow implements genotype.Table.
func (m *Merged) SampleRow(sample int) ([]byte, error) {
	return genotype.RangeFromCells(m, sample, 0, m.NumSites())
}

// SiteColumn implements genotype.Table.
func (m *Merged) SiteColumn(site int) ([]byte, error) { return genotype.ColumnFromCells(m, site) }

// Transpose implements genotype.Table. It is not supported.
func (m *Merged) Transpose(bool) error { return genotype.Unsupported("transpose", genotype.Merged) }

// SiteOptimized implements genotype.Table.
func (m *Merged) SiteOptimized() bool { return m.sources[0].SiteOptimized() }

// ReuseKey implements genotype.Table.
func (m *Merged) ReuseKey() genotype.ReuseKey { return genotype.SelfKey(m) }

// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package view

import (
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/genomatrix/genotype"
)

// Mask forces the cells selected by a mask matrix to Missing.
type Mask struct {
	base genotype.Table
	mask genotype.MaskMatrix
}

// NewMask wraps base. The mask must have the same shape.
func NewMask(base genotype.Table, mask genotype.MaskMatrix) (*Mask, error) {
	if mask.NumSamples() != base.NumSamples() || mask.NumSites() != base.NumSites() {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("mask is %d x %d, table is %d x %d",
			mask.NumSamples(), mask.NumSites(), base.NumSamples(), base.NumSites()))
	}
	return &Mask{base: base, mask: mask}, nil
}

// Kind implements genotype.Table.
func (m *Mask) Kind() genotype.Kind { return genotype.Mask }

// NumSamples implements genotype.Table.
func (m *Mask) NumSamples() int { return m.base.NumSamples() }

// NumSites implements genotype.Table.
func (m *Mask) NumSites() int { return m.base.NumSites() }

// Phased implements genotype.Table.
func (m *Mask) Phased() bool { return m.base.Phased() }

// AlleleStates implements genotype.Table.
func (m *Mask) AlleleStates() genotype.AlleleStates { return m.base.AlleleStates() }

// MaxNumAlleles implements genotype.Table.
func (m *Mask) MaxNumAlleles() int { return m.base.MaxNumAlleles() }

// Genotype implements genotype.Table.
func (m *Mask) Genotype(sample, site int) (byte, error) {
	if err := genotype.CheckCell(m, sample, site); err != nil {
		return genotype.Missing, err
	}
	if m.mask.Masked(sample, site) {
		return genotype.Missing, nil
	}
	return m.base.Genotype(sample, site)
}

// SampleRange implements genotype.Table.
func (m *Mask) SampleRange(sample, start, end int) ([]byte, error) {
	row, err := m.base.SampleRange(sample, start, end)
	if err != nil || !m.mask.SampleMaskedHint(sample) {
		return row, err
	}
	it := m.mask.ForSample(sample).Iterator()
	it.AdvanceIfNeeded(uint32(start))
	for it.HasNext() {
		site := int(it.Next())
		if site >= end {
			break
		}
		row[site-start] = genotype.Missing
	}
	return row, nil
}

// SampleRow implements genotype.Table.
func (m *Mask) SampleRow(sample int) ([]byte, error) {
	return m.SampleRange(sample, 0, m.NumSites())
}

// SiteColumn implements genotype.Table.
func (m *Mask) SiteColumn(site int) ([]byte, error) {
	col, err := m.base.SiteColumn(site)
	if err != nil || !m.mask.SiteMaskedHint(site) {
		return col, err
	}
	it := m.mask.ForSite(site).Iterator()
	for it.HasNext() {
		col[it.Next()] = genotype.Missing
	}
	return col, nil
}

// Transpose implements genotype.Table by forwarding to the base table.
func (m *Mask) Transpose(siteInnerLoop bool) error { return m.base.Transpose(siteInnerLoop) }

// SiteOptimized implements genotype.Table.
func (m *Mask) SiteOptimized() bool { return m.base.SiteOptimized() }

// ReuseKey implements genotype.Table.
func (m *Mask) ReuseKey() genotype.ReuseKey { return genotype.SelfKey(m) }

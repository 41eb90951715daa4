// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package dense

import (
	"fmt"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/genomatrix/bytematrix"
	"github.com/grailbio/genomatrix/genotype"
)

// Builder fills a table incrementally. Every cell starts out Missing.
// Distinct samples may be written from different goroutines when the
// builder is sample-major.
type Builder struct {
	opts Opts
	m    *bytematrix.Matrix
}

// NewBuilder creates a builder for a numSamples x numSites table. If
// bySite is true the cells are laid out site-major, which suits filling
// one site at a time.
func NewBuilder(numSamples, numSites int, bySite bool, opts Opts) *Builder {
	opts.setDefaults()
	return &Builder{opts: opts, m: bytematrix.New(numSamples, numSites, genotype.Missing, !bySite)}
}

func (b *Builder) check(sample, start, end int) error {
	if sample < 0 || sample >= b.m.NumRows() {
		return genotype.OutOfRange("sample", sample, b.m.NumRows())
	}
	if start < 0 || start > end || end > b.m.NumColumns() {
		return errors.E(errors.Invalid,
			fmt.Sprintf("site range [%d,%d) out of range [0,%d)", start, end, b.m.NumColumns()))
	}
	return nil
}

// Set stores one cell.
func (b *Builder) Set(sample, site int, g byte) error {
	if err := b.check(sample, site, site+1); err != nil {
		return err
	}
	b.m.Set(sample, site, g)
	return nil
}

// SetRange overwrites the sites of sample starting at start.
func (b *Builder) SetRange(sample, start int, calls []byte) error {
	if err := b.check(sample, start, start+len(calls)); err != nil {
		return err
	}
	b.m.SetRange(sample, start, calls)
	return nil
}

// SetStrings parses calls written as allele strings and stores them starting
// at site start. Nucleotide tables accept any form ParseNucleotide does;
// other tables require "allele1:allele2".
func (b *Builder) SetStrings(sample, start int, calls []string) error {
	if err := b.check(sample, start, start+len(calls)); err != nil {
		return err
	}
	nucleotide := b.opts.AlleleStates.IsNucleotide()
	for i, s := range calls {
		var (
			g   byte
			err error
		)
		if nucleotide {
			g, err = genotype.ParseNucleotide(s)
		} else {
			g, err = b.parseCall(start+i, s)
		}
		if err != nil {
			return errors.E(err, fmt.Sprintf("sample %d site %d", sample, start+i))
		}
		b.m.Set(sample, start+i, g)
	}
	return nil
}

func (b *Builder) parseCall(site int, s string) (byte, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return genotype.Missing, errors.E(errors.Invalid, fmt.Sprintf("call %q is not of the form a:b", s))
	}
	a1, err := b.opts.AlleleStates.Code(site, parts[0])
	if err != nil {
		return genotype.Missing, err
	}
	a2, err := b.opts.AlleleStates.Code(site, parts[1])
	if err != nil {
		return genotype.Missing, err
	}
	return genotype.Diploid(a1, a2), nil
}

// ReorderSamples permutes samples so that new sample i is old sample
// order[i].
func (b *Builder) ReorderSamples(order []int) error { return b.m.ReorderRows(order) }

// ReorderSites permutes sites so that new site i is old site order[i]. Per-site
// allele tables are permuted with them.
func (b *Builder) ReorderSites(order []int) error {
	if err := b.m.ReorderColumns(order); err != nil {
		return err
	}
	if !b.opts.AlleleStates.Shared() {
		old := b.opts.AlleleStates
		states := make(genotype.AlleleStates, len(order))
		for i, j := range order {
			states[i] = old[j]
		}
		b.opts.AlleleStates = states
	}
	return nil
}

// Build returns the table. The builder must not be used afterwards.
func (b *Builder) Build() *Table {
	t := newTable(b.m, b.opts)
	b.m = nil
	return t
}

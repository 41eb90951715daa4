// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package view

import (
	"fmt"
	"sort"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/genomatrix/genotype"
)

// Combine concatenates the sites of several tables with the same samples.
type Combine struct {
	tables  []genotype.Table
	offsets []int // offsets[k] is the first logical site of tables[k]; len(tables)+1 entries
	alleles genotype.AlleleStates
}

// NewCombine joins tables site-wise. A single table is returned unchanged.
// Every table must agree on sample count, phasing and MaxNumAlleles.
func NewCombine(tables ...genotype.Table) (genotype.Table, error) {
	if len(tables) == 0 {
		return nil, errors.E(errors.Invalid, "combine: must provide genotype tables")
	}
	if len(tables) == 1 {
		return tables[0], nil
	}
	first := tables[0]
	for k, t := range tables[1:] {
		switch {
		case t.NumSamples() != first.NumSamples():
			return nil, errors.E(errors.Invalid, fmt.Sprintf(
				"combine: number of taxa not equal: table %d has %d samples, table 0 has %d; "+
					"filter the inputs to a common sample list first", k+1, t.NumSamples(), first.NumSamples()))
		case t.Phased() != first.Phased():
			return nil, errors.E(errors.Invalid, fmt.Sprintf(
				"combine: phase is different: table %d phased=%v, table 0 phased=%v", k+1, t.Phased(), first.Phased()))
		case t.MaxNumAlleles() != first.MaxNumAlleles():
			return nil, errors.E(errors.Invalid, fmt.Sprintf(
				"combine: max number of alleles is different: table %d has %d, table 0 has %d",
				k+1, t.MaxNumAlleles(), first.MaxNumAlleles()))
		}
	}
	c := &Combine{tables: tables, offsets: make([]int, len(tables)+1)}
	for k, t := range tables {
		c.offsets[k+1] = c.offsets[k] + t.NumSites()
	}

	shared := first.AlleleStates()
	same := shared.Shared()
	for _, t := range tables[1:] {
		if !same {
			break
		}
		same = t.AlleleStates().Equal(shared)
	}
	if same {
		c.alleles = shared
	} else {
		c.alleles = make(genotype.AlleleStates, 0, c.NumSites())
		for _, t := range tables {
			states := t.AlleleStates()
			for site := 0; site < t.NumSites(); site++ {
				row, err := states.ForSite(site)
				if err != nil {
					return nil, err
				}
				c.alleles = append(c.alleles, row)
			}
		}
	}
	return c, nil
}

// Locate returns the table owning logical site and the site's index within
// it.
func (c *Combine) Locate(site int) (table, local int) {
	k := sort.SearchInts(c.offsets, site+1) - 1
	return k, site - c.offsets[k]
}

// Kind implements genotype.Table.
func (c *Combine) Kind() genotype.Kind { return genotype.Combine }

// NumSamples implements genotype.Table.
func (c *Combine) NumSamples() int { return c.tables[0].NumSamples() }

// NumSites implements genotype.Table.
func (c *Combine) NumSites() int { return c.offsets[len(c.tables)] }

// Phased implements genotype.Table.
func (c *Combine) Phased() bool { return c.tables[0].Phased() }

// AlleleStates implements genotype.Table.
func (c *Combine) AlleleStates() genotype.AlleleStates { return c.alleles }

// MaxNumAlleles implements genotype.Table.
func (c *Combine) MaxNumAlleles() int { return c.tables[0].MaxNumAlleles() }

// Genotype implements genotype.Table.
func (c *Combine) Genotype(sample, site int) (byte, error) {
	if err := genotype.CheckCell(c, sample, site); err != nil {
		return genotype.Missing, err
	}
	k, local := c.Locate(site)
	return c.tables[k].Genotype(sample, local)
}

// SampleRange implements genotype.Table.
func (c *Combine) SampleRange(sample, start, end int) ([]byte, error) {
	if err := genotype.CheckRange(c, sample, start, end); err != nil {
		return nil, err
	}
	out := make([]byte, 0, end-start)
	for site := start; site < end; {
		k, local := c.Locate(site)
		n := c.offsets[k+1] - site
		if site+n > end {
			n = end - site
		}
		part, err := c.tables[k].SampleRange(sample, local, local+n)
		if err != nil {
			return nil, err
		}
		out = append(out, part...)
		site += n
	}
	return out, nil
}

// SampleRow implements genotype.Table.
func (c *Combine) SampleRow(sample int) ([]byte, error) {
	return c.SampleRange(sample, 0, c.NumSites())
}

// SiteColumn implements genotype.Table.
func (c *Combine) SiteColumn(site int) ([]byte, error) {
	if site < 0 || site >= c.NumSites() {
		return nil, genotype.OutOfRange("site", site, c.NumSites())
	}
	k, local := c.Locate(site)
	return c.tables[k].SiteColumn(local)
}

// Transpose implements genotype.Table. It is not supported; transpose the
// inputs instead.
func (c *Combine) Transpose(bool) error { return genotype.Unsupported("transpose", genotype.Combine) }

// SiteOptimized implements genotype.Table.
func (c *Combine) SiteOptimized() bool { return c.tables[0].SiteOptimized() }

// ReuseKey implements genotype.Table.
func (c *Combine) ReuseKey() genotype.ReuseKey { return genotype.SelfKey(c) }

// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package view

import (
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/genomatrix/genotype"
)

// Filter presents a subset, reordering or padding of a base table. Logical
// positions that translate to genotype.Absent read as Missing.
type Filter struct {
	base genotype.Table
	tr   genotype.Translation
}

// NewFilter creates a filter over base. Filtering a Filter composes the two
// translations so that the result always wraps a non-filter table.
func NewFilter(base genotype.Table, tr genotype.Translation) (*Filter, error) {
	if f, ok := base.(*Filter); ok {
		tr = genotype.Translation{
			Samples: tr.Samples.Compose(f.tr.Samples),
			Sites:   tr.Sites.Compose(f.tr.Sites),
		}
		base = f.base
	}
	if err := tr.Samples.Validate("sample", base.NumSamples()); err != nil {
		return nil, err
	}
	if err := tr.Sites.Validate("site", base.NumSites()); err != nil {
		return nil, err
	}
	// A short identity is a prefix selection, which is a translation.
	if tr.Samples.Identity() && tr.Samples.Len() != base.NumSamples() {
		tr.Samples = genotype.RangeIndex(0, tr.Samples.Len())
	}
	if tr.Sites.Identity() && tr.Sites.Len() != base.NumSites() {
		tr.Sites = genotype.RangeIndex(0, tr.Sites.Len())
	}
	return &Filter{base: base, tr: tr}, nil
}

// FilterSites keeps the given base sites, in order, and every sample.
func FilterSites(base genotype.Table, sites []int) (*Filter, error) {
	return NewFilter(base, genotype.Translation{
		Samples: genotype.IdentityIndex(base.NumSamples()),
		Sites:   genotype.NewIndex(sites),
	})
}

// FilterSamples keeps the given base samples, in order, and every site.
func FilterSamples(base genotype.Table, samples []int) (*Filter, error) {
	return NewFilter(base, genotype.Translation{
		Samples: genotype.NewIndex(samples),
		Sites:   genotype.IdentityIndex(base.NumSites()),
	})
}

// SiteRange keeps base sites [start, end).
func SiteRange(base genotype.Table, start, end int) (*Filter, error) {
	if start < 0 || start > end || end > base.NumSites() {
		return nil, errors.E(errors.Invalid,
			fmt.Sprintf("site range [%d,%d) out of range [0,%d)", start, end, base.NumSites()))
	}
	return NewFilter(base, genotype.Translation{
		Samples: genotype.IdentityIndex(base.NumSamples()),
		Sites:   genotype.RangeIndex(start, end),
	})
}

// Base returns the filtered table.
func (f *Filter) Base() genotype.Table { return f.base }

// Translation returns the sample and site maps.
func (f *Filter) Translation() genotype.Translation { return f.tr }

// Kind implements genotype.Table.
func (f *Filter) Kind() genotype.Kind { return genotype.Filter }

// NumSamples implements genotype.Table.
func (f *Filter) NumSamples() int { return f.tr.Samples.Len() }

// NumSites implements genotype.Table.
func (f *Filter) NumSites() int { return f.tr.Sites.Len() }

// Phased implements genotype.Table.
func (f *Filter) Phased() bool { return f.base.Phased() }

// MaxNumAlleles implements genotype.Table.
func (f *Filter) MaxNumAlleles() int { return f.base.MaxNumAlleles() }

// AlleleStates implements genotype.Table. Per-site definitions follow the
// site map; absent sites have no definitions.
func (f *Filter) AlleleStates() genotype.AlleleStates {
	states := f.base.AlleleStates()
	if states.Shared() || !f.tr.HasSiteTranslations() {
		return states
	}
	out := make(genotype.AlleleStates, f.NumSites())
	for i := range out {
		if j := f.tr.Sites.Map(i); j != genotype.Absent {
			out[i] = states[j]
		} else {
			out[i] = []string{}
		}
	}
	return out
}

// Genotype implements genotype.Table.
func (f *Filter) Genotype(sample, site int) (byte, error) {
	if err := genotype.CheckCell(f, sample, site); err != nil {
		return genotype.Missing, err
	}
	i, j := f.tr.Samples.Map(sample), f.tr.Sites.Map(site)
	if i == genotype.Absent || j == genotype.Absent {
		return genotype.Missing, nil
	}
	return f.base.Genotype(i, j)
}

// SampleRange implements genotype.Table.
func (f *Filter) SampleRange(sample, start, end int) ([]byte, error) {
	if err := genotype.CheckRange(f, sample, start, end); err != nil {
		return nil, err
	}
	i := f.tr.Samples.Map(sample)
	if i == genotype.Absent {
		return missingRow(end - start), nil
	}
	if !f.tr.HasSiteTranslations() {
		return f.base.SampleRange(i, start, end)
	}
	out := make([]byte, end-start)
	for k := range out {
		j := f.tr.Sites.Map(start + k)
		if j == genotype.Absent {
			out[k] = genotype.Missing
			continue
		}
		g, err := f.base.Genotype(i, j)
		if err != nil {
			return nil, err
		}
		out[k] = g
	}
	return out, nil
}

// SampleRow implements genotype.Table.
func (f *Filter) SampleRow(sample int) ([]byte, error) {
	return f.SampleRange(sample, 0, f.NumSites())
}

// SiteColumn implements genotype.Table.
func (f *Filter) SiteColumn(site int) ([]byte, error) {
	if site < 0 || site >= f.NumSites() {
		return nil, genotype.OutOfRange("site", site, f.NumSites())
	}
	j := f.tr.Sites.Map(site)
	if j == genotype.Absent {
		return missingRow(f.NumSamples()), nil
	}
	col, err := f.base.SiteColumn(j)
	if err != nil || !f.tr.HasSampleTranslations() {
		return col, err
	}
	out := make([]byte, f.NumSamples())
	for k := range out {
		if i := f.tr.Samples.Map(k); i == genotype.Absent {
			out[k] = genotype.Missing
		} else {
			out[k] = col[i]
		}
	}
	return out, nil
}

// Transpose implements genotype.Table. It is not supported; transpose the
// base table instead.
func (f *Filter) Transpose(bool) error { return genotype.Unsupported("transpose", genotype.Filter) }

// SiteOptimized implements genotype.Table.
func (f *Filter) SiteOptimized() bool { return f.base.SiteOptimized() }

// ReuseKey implements genotype.Table.
func (f *Filter) ReuseKey() genotype.ReuseKey {
	return genotype.ReuseKey{Base: f.base, Samples: f.tr.Samples, Sites: f.tr.Sites}
}

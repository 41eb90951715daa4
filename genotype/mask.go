// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package genotype

import (
	"github.com/RoaringBitmap/roaring/v2"
)

// MaskMatrix marks cells that must read as Missing.
type MaskMatrix interface {
	NumSamples() int
	NumSites() int
	// Masked reports whether (sample, site) is masked.
	Masked(sample, site int) bool
	// ForSample returns the masked sites of sample. The result must not be
	// modified.
	ForSample(sample int) *roaring.Bitmap
	// ForSite returns the masked samples at site. The result must not be
	// modified.
	ForSite(site int) *roaring.Bitmap
	// SampleMaskedHint returns false only if no site of sample is masked.
	SampleMaskedHint(sample int) bool
	// SiteMaskedHint returns false only if no sample at site is masked.
	SiteMaskedHint(site int) bool
	// SiteOptimized reports whether ForSite is the cheap direction.
	SiteOptimized() bool
}

// CellMask is a MaskMatrix with one bitmap per sample (or per site).
type CellMask struct {
	numSamples, numSites int
	bySite               bool
	rows                 []*roaring.Bitmap
}

// NewCellMask creates an empty mask. If bySite is true the bitmaps are kept
// per site, otherwise per sample.
func NewCellMask(numSamples, numSites int, bySite bool) *CellMask {
	n := numSamples
	if bySite {
		n = numSites
	}
	m := &CellMask{numSamples: numSamples, numSites: numSites, bySite: bySite,
		rows: make([]*roaring.Bitmap, n)}
	for i := range m.rows {
		m.rows[i] = roaring.New()
	}
	return m
}

// Set masks (sample, site).
func (m *CellMask) Set(sample, site int) {
	if m.bySite {
		m.rows[site].Add(uint32(sample))
	} else {
		m.rows[sample].Add(uint32(site))
	}
}

// NumSamples implements MaskMatrix.
func (m *CellMask) NumSamples() int { return m.numSamples }

// NumSites implements MaskMatrix.
func (m *CellMask) NumSites() int { return m.numSites }

// Masked implements MaskMatrix.
func (m *CellMask) Masked(sample, site int) bool {
	if m.bySite {
		return m.rows[site].Contains(uint32(sample))
	}
	return m.rows[sample].Contains(uint32(site))
}

// ForSample implements MaskMatrix.
func (m *CellMask) ForSample(sample int) *roaring.Bitmap {
	if !m.bySite {
		return m.rows[sample]
	}
	b := roaring.New()
	for site, row := range m.rows {
		if row.Contains(uint32(sample)) {
			b.Add(uint32(site))
		}
	}
	return b
}

// ForSite implements MaskMatrix.
func (m *CellMask) ForSite(site int) *roaring.Bitmap {
	if m.bySite {
		return m.rows[site]
	}
	b := roaring.New()
	for sample, row := range m.rows {
		if row.Contains(uint32(site)) {
			b.Add(uint32(sample))
		}
	}
	return b
}

// SampleMaskedHint implements MaskMatrix.
func (m *CellMask) SampleMaskedHint(sample int) bool {
	if m.bySite {
		return true
	}
	return !m.rows[sample].IsEmpty()
}

// SiteMaskedHint implements MaskMatrix.
func (m *CellMask) SiteMaskedHint(site int) bool {
	if !m.bySite {
		return true
	}
	return !m.rows[site].IsEmpty()
}

// SiteOptimized implements MaskMatrix.
func (m *CellMask) SiteOptimized() bool { return m.bySite }

// AxisMask masks whole sites or whole samples.
type AxisMask struct {
	numSamples, numSites int
	sites                bool
	masked               *roaring.Bitmap
	all                  *roaring.Bitmap
	empty                *roaring.Bitmap
}

// NewSiteMask masks every sample at each of the given sites.
func NewSiteMask(numSamples, numSites int, sites ...int) *AxisMask {
	return newAxisMask(numSamples, numSites, true, sites)
}

// NewSampleMask masks every site of each of the given samples.
func NewSampleMask(numSamples, numSites int, samples ...int) *AxisMask {
	return newAxisMask(numSamples, numSites, false, samples)
}

func newAxisMask(numSamples, numSites int, sites bool, idx []int) *AxisMask {
	m := &AxisMask{numSamples: numSamples, numSites: numSites, sites: sites,
		masked: roaring.New(), all: roaring.New(), empty: roaring.New()}
	for _, i := range idx {
		m.masked.Add(uint32(i))
	}
	other := numSamples
	if !sites {
		other = numSites
	}
	m.all.AddRange(0, uint64(other))
	return m
}

// NumSamples implements MaskMatrix.
func (m *AxisMask) NumSamples() int { return m.numSamples }

// NumSites implements MaskMatrix.
func (m *AxisMask) NumSites() int { return m.numSites }

// Masked implements MaskMatrix.
func (m *AxisMask) Masked(sample, site int) bool {
	if m.sites {
		return m.masked.Contains(uint32(site))
	}
	return m.masked.Contains(uint32(sample))
}

// ForSample implements MaskMatrix.
func (m *AxisMask) ForSample(sample int) *roaring.Bitmap {
	if m.sites {
		return m.masked
	}
	if m.masked.Contains(uint32(sample)) {
		return m.all
	}
	return m.empty
}

// ForSite implements MaskMatrix.
func (m *AxisMask) ForSite(site int) *roaring.Bitmap {
	if !m.sites {
		return m.masked
	}
	if m.masked.Contains(uint32(site)) {
		return m.all
	}
	return m.empty
}

// SampleMaskedHint implements MaskMatrix.
func (m *AxisMask) SampleMaskedHint(sample int) bool {
	if m.sites {
		return !m.masked.IsEmpty()
	}
	return m.masked.Contains(uint32(sample))
}

// SiteMaskedHint implements MaskMatrix.
func (m *AxisMask) SiteMaskedHint(site int) bool {
	if !m.sites {
		return !m.masked.IsEmpty()
	}
	return m.masked.Contains(uint32(site))
}

// SiteOptimized implements MaskMatrix.
func (m *AxisMask) SiteOptimized() bool { return m.sites }

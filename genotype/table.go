// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package genotype

import (
	"fmt"
	"strings"

	"github.com/grailbio/base/errors"
)

// Kind identifies the concrete variant behind a Table. The set is closed.
type Kind int

const (
	// Dense tables hold every cell in memory.
	Dense Kind = iota
	// HDF5 tables load site blocks lazily from a chunked HDF5 file.
	HDF5
	// IndexedText tables parse lines lazily from a BGZF Hapmap file.
	IndexedText
	// Filter views subset and reorder another table.
	Filter
	// Combine views concatenate the sites of several tables.
	Combine
	// Mask views force selected cells to Missing.
	Mask
	// Hybrid views cross two donor samples.
	Hybrid
	// Difference views infer a hybrid's non-parental allele.
	Difference
	// Merged views fold calls from several sources.
	Merged
	// Projection views copy donor haplotypes from a dense base table.
	Projection
)

var kindNames = [...]string{
	Dense: "dense", HDF5: "hdf5", IndexedText: "indexedtext", Filter: "filter",
	Combine: "combine", Mask: "mask", Hybrid: "hybrid", Difference: "difference",
	Merged: "merged", Projection: "projection",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// Table is the random-access contract implemented by every genotype backend
// and view. Coordinates are zero-based and ranges are end-exclusive.
//
// Tables are logically immutable once built. Transpose only changes the
// internal iteration order. Slices returned by the row and column accessors
// belong to the caller.
type Table interface {
	// Kind returns the variant tag.
	Kind() Kind
	NumSamples() int
	NumSites() int
	// Phased reports whether the two alleles of a call are ordered.
	Phased() bool
	AlleleStates() AlleleStates
	// MaxNumAlleles bounds the distinct alleles counted per site.
	MaxNumAlleles() int

	// Genotype returns the cell at (sample, site).
	Genotype(sample, site int) (byte, error)
	// SampleRange returns the cells of sample in sites [start, end).
	SampleRange(sample, start, end int) ([]byte, error)
	// SampleRow returns every site of sample.
	SampleRow(sample int) ([]byte, error)
	// SiteColumn returns every sample at site.
	SiteColumn(site int) ([]byte, error)

	// Transpose asks the table to favor per-site (siteInnerLoop=false) or
	// per-sample (siteInnerLoop=true) access. Values never change.
	Transpose(siteInnerLoop bool) error
	// SiteOptimized reports whether the table currently favors per-site
	// access.
	SiteOptimized() bool

	// ReuseKey names the table whose derived caches can answer for this one.
	ReuseKey() ReuseKey
}

// ReuseKey identifies where derived statistics for a table can be borrowed
// from. Base is the table that owns the cache; Samples and Sites translate
// this table's coordinates into Base's. A table that is its own base returns
// ReuseKey{Base: itself} with identity indexes.
type ReuseKey struct {
	Base    Table
	Samples Index
	Sites   Index
}

// SelfKey is the ReuseKey of a table that does not share caches.
func SelfKey(t Table) ReuseKey {
	return ReuseKey{Base: t, Samples: IdentityIndex(t.NumSamples()), Sites: IdentityIndex(t.NumSites())}
}

// OutOfRange returns the error for an index outside [0, n).
func OutOfRange(what string, i, n int) error {
	return errors.E(errors.Invalid, fmt.Sprintf("%s index %d out of range [0,%d)", what, i, n))
}

// Unsupported returns the error for an operation a table variant does not
// implement.
func Unsupported(op string, k Kind) error {
	return errors.E(errors.NotSupported, fmt.Sprintf("%s is not supported on %s tables", op, k))
}

// CheckCell validates a (sample, site) coordinate.
func CheckCell(t Table, sample, site int) error {
	if sample < 0 || sample >= t.NumSamples() {
		return OutOfRange("sample", sample, t.NumSamples())
	}
	if site < 0 || site >= t.NumSites() {
		return OutOfRange("site", site, t.NumSites())
	}
	return nil
}

// CheckRange validates a sample and a site range [start, end).
func CheckRange(t Table, sample, start, end int) error {
	if sample < 0 || sample >= t.NumSamples() {
		return OutOfRange("sample", sample, t.NumSamples())
	}
	if start < 0 || start > end || end > t.NumSites() {
		return errors.E(errors.Invalid,
			fmt.Sprintf("site range [%d,%d) out of range [0,%d)", start, end, t.NumSites()))
	}
	return nil
}

// RangeFromCells implements SampleRange with per-cell lookups.
func RangeFromCells(t Table, sample, start, end int) ([]byte, error) {
	if err := CheckRange(t, sample, start, end); err != nil {
		return nil, err
	}
	out := make([]byte, end-start)
	for i := range out {
		g, err := t.Genotype(sample, start+i)
		if err != nil {
			return nil, err
		}
		out[i] = g
	}
	return out, nil
}

// ColumnFromCells implements SiteColumn with per-cell lookups.
func ColumnFromCells(t Table, site int) ([]byte, error) {
	if site < 0 || site >= t.NumSites() {
		return nil, OutOfRange("site", site, t.NumSites())
	}
	out := make([]byte, t.NumSamples())
	for s := range out {
		g, err := t.Genotype(s, site)
		if err != nil {
			return nil, err
		}
		out[s] = g
	}
	return out, nil
}

// String renders the cell at (sample, site) as "allele1:allele2".
func String(t Table, sample, site int) (string, error) {
	g, err := t.Genotype(sample, site)
	if err != nil {
		return "", err
	}
	return t.AlleleStates().DiploidString(site, g)
}

// RangeString renders sites [start, end) of sample, separated by ";".
func RangeString(t Table, sample, start, end int) (string, error) {
	row, err := t.SampleRange(sample, start, end)
	if err != nil {
		return "", err
	}
	alleles := t.AlleleStates()
	parts := make([]string, len(row))
	for i, g := range row {
		if parts[i], err = alleles.DiploidString(start+i, g); err != nil {
			return "", err
		}
	}
	return strings.Join(parts, ";"), nil
}

// IsHeterozygousAt reports whether the call at (sample, site) carries two
// different allele codes.
func IsHeterozygousAt(t Table, sample, site int) (bool, error) {
	g, err := t.Genotype(sample, site)
	if err != nil {
		return false, err
	}
	return IsHeterozygous(g), nil
}

// CallCounts summarizes one row or column of calls.
type CallCounts struct {
	// Heterozygous counts calls whose two allele codes differ, including
	// half-missing calls.
	Heterozygous int
	// NonMissing counts calls other than Missing.
	NonMissing int
	// GametesNonMissing counts allele codes other than UnknownAllele.
	GametesNonMissing int
}

// CountCalls tallies calls.
func CountCalls(calls []byte) CallCounts {
	var c CallCounts
	for _, g := range calls {
		if g == Missing {
			continue
		}
		c.NonMissing++
		a, b := Alleles(g)
		if a != b {
			c.Heterozygous++
		}
		if a != UnknownAllele {
			c.GametesNonMissing++
		}
		if b != UnknownAllele {
			c.GametesNonMissing++
		}
	}
	return c
}

// SiteCallCounts tallies the calls at site.
func SiteCallCounts(t Table, site int) (CallCounts, error) {
	col, err := t.SiteColumn(site)
	if err != nil {
		return CallCounts{}, err
	}
	return CountCalls(col), nil
}

// SampleCallCounts tallies the calls of sample.
func SampleCallCounts(t Table, sample int) (CallCounts, error) {
	row, err := t.SampleRow(sample)
	if err != nil {
		return CallCounts{}, err
	}
	return CountCalls(row), nil
}

// AlleleCounter is implemented by tables that store precomputed allele counts
// (for example HDF5 files written with annotations). Frequency caches use it
// instead of scanning the site, but only while Annotated is true.
type AlleleCounter interface {
	AlleleCounts(site int) (AlleleCounts, error)
	// Annotated reports whether the counts are stored rather than computed
	// from the calls on every request.
	Annotated() bool
}

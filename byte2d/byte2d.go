// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package byte2d

import (
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/genomatrix/bytematrix"
)

// Byte2D is a read-only matrix of byte scores. Returned slices belong to the
// caller.
type Byte2D interface {
	ScoreType() ScoreType
	NumSamples() int
	NumSites() int
	Value(sample, site int) (byte, error)
	SampleValues(sample int) ([]byte, error)
	SiteValues(site int) ([]byte, error)
}

func checkCell(b Byte2D, sample, site int) error {
	if sample < 0 || sample >= b.NumSamples() {
		return outOfRange("sample", sample, b.NumSamples())
	}
	if site < 0 || site >= b.NumSites() {
		return outOfRange("site", site, b.NumSites())
	}
	return nil
}

func outOfRange(what string, i, n int) error {
	return errors.E(errors.Invalid, fmt.Sprintf("%s index %d out of range [0,%d)", what, i, n))
}

// Dense is an in-memory Byte2D.
type Dense struct {
	typ ScoreType
	m   *bytematrix.Matrix
}

// Values returns the underlying matrix.
func (d *Dense) Values() *bytematrix.Matrix { return d.m }

// ScoreType implements Byte2D.
func (d *Dense) ScoreType() ScoreType { return d.typ }

// NumSamples implements Byte2D.
func (d *Dense) NumSamples() int { return d.m.NumRows() }

// NumSites implements Byte2D.
func (d *Dense) NumSites() int { return d.m.NumColumns() }

// Value implements Byte2D.
func (d *Dense) Value(sample, site int) (byte, error) {
	if err := checkCell(d, sample, site); err != nil {
		return 0, err
	}
	return d.m.Get(sample, site), nil
}

// SampleValues implements Byte2D.
func (d *Dense) SampleValues(sample int) ([]byte, error) {
	if sample < 0 || sample >= d.NumSamples() {
		return nil, outOfRange("sample", sample, d.NumSamples())
	}
	return d.m.Row(sample), nil
}

// SiteValues implements Byte2D.
func (d *Dense) SiteValues(site int) ([]byte, error) {
	if site < 0 || site >= d.NumSites() {
		return nil, outOfRange("site", site, d.NumSites())
	}
	return d.m.Column(site), nil
}

// Depths returns the decoded per-allele read depths of (sample, site) from a
// set of depth matrices, indexed by allele code. Matrices for other score
// types are ignored.
func Depths(depths []Byte2D, sample, site int) ([]int, error) {
	out := make([]int, 0, len(DepthTypes))
	for _, d := range depths {
		t := d.ScoreType()
		if !t.IsDepth() {
			continue
		}
		a := int(t.Allele())
		for len(out) <= a {
			out = append(out, 0)
		}
		v, err := d.Value(sample, site)
		if err != nil {
			return nil, err
		}
		if depth := DepthFromByte(v); depth != DepthMissing {
			out[a] = depth
		}
	}
	return out, nil
}

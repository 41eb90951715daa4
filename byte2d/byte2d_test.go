// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package byte2d

import (
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/genomatrix/encoding/h5io"
	"github.com/grailbio/genomatrix/genotype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreType(t *testing.T) {
	assert.Equal(t, "ReferenceProbablity", ReferenceProbability.String())
	assert.Equal(t, "DepthGap", DepthGap.String())
	for _, typ := range append(append([]ScoreType{None, Dosage}, DepthTypes...), ProbTypes...) {
		got, err := ParseScoreType(typ.String())
		require.NoError(t, err)
		assert.Equal(t, typ, got)
	}
	_, err := ParseScoreType("DepthZ")
	assert.True(t, errors.Is(errors.Invalid, err))

	assert.True(t, DepthT.IsDepth())
	assert.False(t, DepthT.IsProb())
	assert.True(t, ProbInsertion.IsProb())
	assert.Equal(t, genotype.AlleleT, DepthT.Allele())
	assert.Equal(t, genotype.AlleleGap, ProbGap.Allele())
	assert.Equal(t, genotype.AlleleInsert, DepthInsertion.Allele())
	assert.Equal(t, genotype.UnknownAllele, Dosage.Allele())
}

func TestDense(t *testing.T) {
	b := NewBuilder(2, 4, Dosage)
	require.NoError(t, b.AddSample(0, []byte{1, 2, 3, 4}))
	require.NoError(t, b.SetRange(1, 2, []byte{9, 8}))
	err := b.AddSample(1, []byte{1, 2})
	assert.True(t, errors.Is(errors.Invalid, err))
	err = b.SetRange(1, 3, []byte{1, 2})
	assert.True(t, errors.Is(errors.Invalid, err))
	require.NoError(t, b.ReorderSites([]int{3, 2, 1, 0}))

	d := b.Build()
	assert.Equal(t, Dosage, d.ScoreType())
	assert.Equal(t, 2, d.NumSamples())
	assert.Equal(t, 4, d.NumSites())
	row, err := d.SampleValues(0)
	require.NoError(t, err)
	assert.Equal(t, []byte{4, 3, 2, 1}, row)
	col, err := d.SiteValues(1)
	require.NoError(t, err)
	assert.Equal(t, []byte{3, 8}, col)
	v, err := d.Value(1, 0)
	require.NoError(t, err)
	assert.Equal(t, byte(0), v)

	row[0] = 100
	v, err = d.Value(0, 0)
	require.NoError(t, err)
	assert.Equal(t, byte(4), v)

	_, err = d.Value(2, 0)
	assert.True(t, errors.Is(errors.Invalid, err))
	_, err = d.SiteValues(4)
	assert.True(t, errors.Is(errors.Invalid, err))
}

func newFile(t *testing.T, samples []string, numSites int) *h5io.Mem {
	m := h5io.NewMem()
	require.NoError(t, h5io.WriteStrings(m, h5io.TaxaOrder, samples))
	require.NoError(t, m.CreateGroup(h5io.PositionsModule))
	require.NoError(t, m.SetInt32Attr(h5io.PositionsModule, h5io.AttrNumSites, int32(numSites)))
	return m
}

func TestH5(t *testing.T) {
	samples := []string{"B73", "Mo17", "W22"}
	m := newFile(t, samples, 5)
	b := NewH5Builder(m, samples, 5, DepthC)
	require.NoError(t, b.AddSample(0, []byte{1, 2, 3, 4, 5}))
	require.NoError(t, b.AddSample(2, []byte{5, 4, 3, 2, 1}))
	assert.True(t, errors.Is(errors.NotSupported, b.SetRange(1, 0, []byte{1})))
	assert.True(t, errors.Is(errors.Precondition, b.ReorderSites([]int{0, 1, 2, 3, 4})))
	assert.True(t, errors.Is(errors.Invalid, b.AddSample(1, []byte{1})))
	require.NoError(t, b.AddSample(1, []byte{0, 0, 7, 0, 0}))
	assert.True(t, errors.Is(errors.Exists, b.AddSample(1, []byte{0, 0, 7, 0, 0})))
	assert.True(t, m.Exists("Genotypes/Mo17/DepthC"))

	r := m.Reopen()
	h, err := OpenH5(r, DepthC)
	require.NoError(t, err)
	assert.Equal(t, 3, h.NumSamples())
	assert.Equal(t, 5, h.NumSites())
	col, err := h.SiteValues(2)
	require.NoError(t, err)
	assert.Equal(t, []byte{3, 7, 3}, col)
	v, err := h.Value(2, 0)
	require.NoError(t, err)
	assert.Equal(t, byte(5), v)
	row, err := h.SampleValues(0)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, row)
	assert.Equal(t, 3, h.rows.Len())

	// Rows are served from the cache once loaded.
	reads := r.ChunkReads()
	for s := 0; s < 3; s++ {
		_, err := h.SampleValues(s)
		require.NoError(t, err)
	}
	assert.Equal(t, reads, r.ChunkReads())

	built := b.Build()
	v, err = built.Value(1, 2)
	require.NoError(t, err)
	assert.Equal(t, byte(7), v)
}

func TestH5MissingSample(t *testing.T) {
	samples := []string{"B73", "Mo17"}
	m := newFile(t, samples, 3)
	b := NewH5Builder(m, samples, 3, ProbA)
	require.NoError(t, b.AddSample(0, []byte{1, 2, 3}))
	h, err := OpenH5(m, ProbA)
	require.NoError(t, err)
	v, err := h.Value(0, 2)
	require.NoError(t, err)
	assert.Equal(t, byte(3), v)
	_, err = h.Value(1, 0)
	assert.True(t, errors.Is(errors.NotExist, err))
	_, err = h.Value(0, 3)
	assert.True(t, errors.Is(errors.Invalid, err))
	// The failure is not cached.
	assert.Equal(t, 1, h.rows.Len())
}

func TestDepths(t *testing.T) {
	a := NewBuilder(1, 2, DepthA)
	require.NoError(t, a.AddSample(0, []byte{5, MissingDepthByte}))
	g := NewBuilder(1, 2, DepthG)
	require.NoError(t, g.AddSample(0, []byte{2, 3}))
	q := NewBuilder(1, 2, QualityScore)
	depths := []Byte2D{a.Build(), g.Build(), q.Build()}

	d, err := Depths(depths, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{5, 0, 2}, d)
	d, err = Depths(depths, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 3}, d)
}

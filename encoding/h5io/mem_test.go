// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package h5io_test

import (
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/genomatrix/encoding/h5io"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemDatasets(t *testing.T) {
	m := h5io.NewMem()
	data := make([]byte, 10)
	for i := range data {
		data[i] = byte(i * 3)
	}
	require.NoError(t, m.WriteUint8("/Genotypes/s1/calls", data, 4))
	assert.True(t, m.Exists("Genotypes"))
	assert.True(t, m.Exists("Genotypes/s1/"))
	assert.True(t, m.Exists("/Genotypes/s1/calls"))
	assert.False(t, m.Exists("Genotypes/s2"))

	n, err := m.Len("Genotypes/s1/calls")
	require.NoError(t, err)
	expect.EQ(t, n, 10)

	got, err := m.ReadUint8("Genotypes/s1/calls", 3, 4)
	require.NoError(t, err)
	expect.EQ(t, got, []byte{9, 12, 15, 18})
	expect.EQ(t, m.ChunkReads(), int64(2))

	// Reads past the end are truncated.
	got, err = m.ReadUint8("Genotypes/s1/calls", 8, 4)
	require.NoError(t, err)
	expect.EQ(t, got, []byte{24, 27})
	got, err = m.ReadUint8("Genotypes/s1/calls", 10, 4)
	require.NoError(t, err)
	expect.EQ(t, len(got), 0)
	_, err = m.ReadUint8("Genotypes/s1/calls", 11, 1)
	assert.True(t, errors.Is(errors.Invalid, err))

	require.NoError(t, m.WriteInt32("Desc/AlleleCnt", []int32{-1, 0, 1 << 20}, 2))
	ints, err := m.ReadInt32("Desc/AlleleCnt", 0, 3)
	require.NoError(t, err)
	expect.EQ(t, ints, []int32{-1, 0, 1 << 20})
	require.NoError(t, m.WriteFloat32("Desc/MAF", []float32{0.25, 0.5}, 8))
	floats, err := m.ReadFloat32("Desc/MAF", 1, 1)
	require.NoError(t, err)
	expect.EQ(t, floats, []float32{0.5})

	_, err = m.ReadInt32("Desc/MAF", 0, 1)
	assert.True(t, errors.Is(errors.Invalid, err))
	_, err = m.ReadUint8("Desc/missing", 0, 1)
	assert.True(t, errors.Is(errors.NotExist, err))
	err = m.WriteUint8("Desc/MAF", nil, 1)
	assert.True(t, errors.Is(errors.Exists, err))
	err = m.WriteUint8("Desc/x", []byte{1}, 0)
	assert.True(t, errors.Is(errors.Invalid, err))
}

func TestMemAttrs(t *testing.T) {
	m := h5io.NewMem()
	require.NoError(t, m.CreateGroup("Genotypes"))
	require.NoError(t, m.SetInt32Attr("Genotypes/", "numTaxa", 12))
	require.NoError(t, m.SetBoolAttr("/Genotypes", "locked", false))
	require.NoError(t, m.SetBoolAttr("Genotypes", "locked", true))

	n, err := m.Int32Attr("Genotypes", "numTaxa")
	require.NoError(t, err)
	expect.EQ(t, n, int32(12))
	locked, err := m.BoolAttr("Genotypes", "locked")
	require.NoError(t, err)
	assert.True(t, locked)

	_, err = m.BoolAttr("Genotypes", "numTaxa")
	assert.True(t, errors.Is(errors.Invalid, err))
	_, err = m.Int32Attr("Genotypes", "numSites")
	assert.True(t, errors.Is(errors.NotExist, err))
	err = m.SetInt32Attr("Positions", "numSites", 1)
	assert.True(t, errors.Is(errors.NotExist, err))
}

func TestMemClose(t *testing.T) {
	m := h5io.NewMem()
	require.NoError(t, m.WriteUint8("a/b", []byte{1, 2}, 1))
	require.NoError(t, m.Close())
	_, err := m.ReadUint8("a/b", 0, 2)
	assert.True(t, errors.Is(errors.Precondition, err))
	assert.Error(t, m.WriteUint8("a/c", []byte{1}, 1))

	r := m.Reopen()
	got, err := r.ReadUint8("a/b", 0, 2)
	require.NoError(t, err)
	expect.EQ(t, got, []byte{1, 2})
}

func TestJoin(t *testing.T) {
	expect.EQ(t, h5io.Join("Genotypes/", "/s1", "calls"), "Genotypes/s1/calls")
	expect.EQ(t, h5io.Join("", "Taxa"), "Taxa")
}

func TestNative(t *testing.T) {
	if h5io.Native {
		t.Skip("native HDF5 is available")
	}
	_, err := h5io.Open("/nonexistent.h5")
	assert.True(t, errors.Is(errors.NotSupported, err))
}

func TestStrings(t *testing.T) {
	m := h5io.NewMem()
	require.NoError(t, h5io.WriteStrings(m, h5io.TaxaOrder, []string{"B73", "Mo17", ""}))
	got, err := h5io.ReadStrings(m, h5io.TaxaOrder)
	require.NoError(t, err)
	expect.EQ(t, got, []string{"B73", "Mo17", ""})

	require.NoError(t, h5io.WriteStrings(m, h5io.SNPIDs, nil))
	got, err = h5io.ReadStrings(m, h5io.SNPIDs)
	require.NoError(t, err)
	expect.EQ(t, len(got), 0)

	err = h5io.WriteStrings(m, "x", []string{"a\nb"})
	assert.True(t, errors.Is(errors.Invalid, err))
	expect.EQ(t, h5io.CallsPath("B73"), "Genotypes/B73/calls")
}

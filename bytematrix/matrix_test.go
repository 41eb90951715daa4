// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package bytematrix

import (
	"testing"

	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture(t *testing.T) *Matrix {
	m, err := FromRows([][]byte{
		{1, 2, 3},
		{4, 5, 6},
	})
	require.NoError(t, err)
	return m
}

func TestLayouts(t *testing.T) {
	rm := fixture(t)
	cm := rm.Transpose()
	assert.True(t, rm.RowMajor())
	assert.False(t, cm.RowMajor())
	for _, m := range []*Matrix{rm, cm} {
		expect.EQ(t, m.NumRows(), 2)
		expect.EQ(t, m.NumColumns(), 3)
		expect.EQ(t, m.Get(1, 2), byte(6))
		expect.EQ(t, m.Row(0), []byte{1, 2, 3})
		expect.EQ(t, m.RowRange(1, 1, 3), []byte{5, 6})
		expect.EQ(t, m.Column(1), []byte{2, 5})
	}
	back := cm.Transpose()
	expect.EQ(t, back.Row(1), []byte{4, 5, 6})
}

func TestMutate(t *testing.T) {
	for _, rowMajor := range []bool{true, false} {
		m := New(2, 4, 0xff, rowMajor)
		expect.EQ(t, m.Row(1), []byte{0xff, 0xff, 0xff, 0xff})
		m.Set(0, 3, 7)
		m.SetRange(1, 1, []byte{8, 9})
		expect.EQ(t, m.Row(0), []byte{0xff, 0xff, 0xff, 7})
		expect.EQ(t, m.Row(1), []byte{0xff, 8, 9, 0xff})
		m.Fill(0)
		expect.EQ(t, m.Column(3), []byte{0, 0})
	}
}

func TestReorder(t *testing.T) {
	for _, m := range []*Matrix{fixture(t), fixture(t).Transpose()} {
		require.NoError(t, m.ReorderRows([]int{1, 0}))
		expect.EQ(t, m.Row(0), []byte{4, 5, 6})
		require.NoError(t, m.ReorderColumns([]int{2, 0, 1}))
		expect.EQ(t, m.Row(0), []byte{6, 4, 5})
		expect.EQ(t, m.Row(1), []byte{3, 1, 2})
		assert.Error(t, m.ReorderColumns([]int{0, 0, 1}))
		assert.Error(t, m.ReorderRows([]int{0}))
	}
}

func TestRagged(t *testing.T) {
	_, err := FromRows([][]byte{{1, 2}, {3}})
	assert.Error(t, err)
}

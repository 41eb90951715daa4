// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package byte2d

import (
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDepthExact(t *testing.T) {
	for d := 0; d <= 182; d++ {
		b, err := DepthToByte(d)
		require.NoError(t, err)
		assert.Equal(t, d, DepthFromByte(b), "depth %d", d)
	}
	b, err := DepthToByte(127)
	require.NoError(t, err)
	assert.Equal(t, byte(127), b)
	b, err = DepthToByte(128)
	require.NoError(t, err)
	assert.Equal(t, byte(0xff), b)
}

func TestDepthLogScale(t *testing.T) {
	prev := 182
	for _, d := range []int{183, 200, 500, 1000, 5000, 10000} {
		b, err := DepthToByte(d)
		require.NoError(t, err)
		got := DepthFromByte(b)
		assert.InEpsilon(t, float64(d), float64(got), 0.1, "depth %d decoded as %d", d, got)
		assert.True(t, got >= prev, "depth %d decoded as %d < %d", d, got, prev)
		prev = got
	}
	// Saturates rather than colliding with the missing marker.
	b, err := DepthToByte(1 << 30)
	require.NoError(t, err)
	assert.NotEqual(t, MissingDepthByte, b)
}

func TestDepthMissing(t *testing.T) {
	b, err := DepthToByte(DepthMissing)
	require.NoError(t, err)
	assert.Equal(t, MissingDepthByte, b)
	assert.Equal(t, DepthMissing, DepthFromByte(MissingDepthByte))
	_, err = DepthToByte(-2)
	assert.True(t, errors.Is(errors.Invalid, err))

	b150, err := DepthToByte(150)
	require.NoError(t, err)
	assert.Equal(t, []int{3, DepthMissing, 150}, DepthsFromBytes([]byte{3, MissingDepthByte, b150}))
}

func TestAddDepths(t *testing.T) {
	enc := func(d int) byte {
		b, err := DepthToByte(d)
		require.NoError(t, err)
		return b
	}
	assert.Equal(t, 30, DepthFromByte(AddDepths(enc(10), enc(20))))
	assert.Equal(t, 170, DepthFromByte(AddDepths(enc(100), enc(70))))
	assert.Equal(t, 7, DepthFromByte(AddDepths(enc(7), MissingDepthByte)))
	assert.Equal(t, 7, DepthFromByte(AddDepths(MissingDepthByte, enc(7))))
	assert.Equal(t, MissingDepthByte, AddDepths(MissingDepthByte, MissingDepthByte))
}

// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package bgzf

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanner(t *testing.T) {
	input := make([]byte, 1000)
	rand.New(rand.NewSource(1)).Read(input)
	var buf bytes.Buffer
	w, err := NewWriterParams(&buf, 1, 300, -1)
	require.NoError(t, err)
	_, err = w.Write(input)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	s := NewScanner(bytes.NewReader(buf.Bytes()))
	var (
		got    []byte
		sizes  []int
		offset int64
	)
	for s.Scan() {
		b := s.Block()
		assert.Equal(t, offset, b.Offset)
		offset += int64(b.Size)
		sizes = append(sizes, len(b.Data))
		got = append(got, b.Data...)
	}
	require.NoError(t, s.Err())
	assert.Equal(t, []int{300, 300, 300, 100, 0}, sizes)
	assert.Equal(t, input, got)
	assert.Equal(t, int64(buf.Len()), offset)
	assert.Equal(t, offset, s.Offset())
}

func TestScannerCorrupt(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, 1)
	require.NoError(t, err)
	_, err = w.Write([]byte("hello, world"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	good := buf.Bytes()

	for name, data := range map[string][]byte{
		"truncated": good[:20],
		"magic":     append([]byte{0x1f, 0x8c}, good[2:]...),
		"payload": func() []byte {
			b := append([]byte(nil), good...)
			b[20] ^= 0xff
			return b
		}(),
	} {
		s := NewScanner(bytes.NewReader(data))
		for s.Scan() {
		}
		assert.True(t, errors.Is(errors.Integrity, s.Err()), "%s: %v", name, s.Err())
	}

	s := NewScanner(bytes.NewReader(nil))
	assert.False(t, s.Scan())
	assert.NoError(t, s.Err())
}

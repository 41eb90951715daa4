// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package bgzf

import (
	"bytes"
	"io"
	"io/ioutil"
	"math/rand"
	"os"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/hts/bgzf"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter(t *testing.T) {
	for _, length := range []int{0, 1, 100, 65279, 65280, 65281, 500000} {
		t.Logf("length: %d", length)
		for _, useParams := range []bool{false, true} {
			input := make([]byte, length)
			n, err := rand.Read(input)
			require.Nil(t, err)
			assert.Equal(t, length, n)

			var buf bytes.Buffer
			var w *Writer
			if useParams {
				w, err = NewWriterParams(&buf, 1, 0x0ff05, 3)
			} else {
				w, err = NewWriter(&buf, 1)
			}
			require.Nil(t, err)
			n, err = w.Write(input)
			assert.Nil(t, err)
			assert.Equal(t, length, n)
			err = w.Close()
			assert.Nil(t, err)
			assert.Equal(t, uint64(buf.Len())<<16, w.VOffset())
			assert.True(t, bytes.HasSuffix(buf.Bytes(), Terminator))

			if useParams && length > 0 {
				// The XFL field is set in every block but the terminator.
				assert.Equal(t, byte(3), buf.Bytes()[8])
			}
			r, err := gzip.NewReader(&buf)
			require.Nil(t, err)
			actual, err := ioutil.ReadAll(r)
			require.Nil(t, err)
			assert.Equal(t, length, len(actual))
			assert.Equal(t, 0, bytes.Compare(input, actual))
		}
	}
}

func TestWriterParams(t *testing.T) {
	var buf bytes.Buffer
	_, err := NewWriterParams(&buf, 1, MaxUncompressedBlockSize+1, -1)
	assert.True(t, errors.Is(errors.Invalid, err))
	_, err = NewWriterParams(&buf, 1, 100, 256)
	assert.True(t, errors.Is(errors.Invalid, err))
	_, err = NewWriterParams(&buf, 42, 100, -1)
	assert.True(t, errors.Is(errors.Invalid, err))
}

func TestVOffset(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriterParams(&buf, 1, 5, 0)
	require.Nil(t, err)

	// 4 bytes do not complete a block.
	_, err = w.Write([]byte("ABCD"))
	require.Nil(t, err)
	assert.Equal(t, uint64(4), w.VOffset())

	// The fifth byte completes it.
	_, err = w.Write([]byte("E"))
	require.Nil(t, err)
	voffset1 := w.VOffset()
	assert.Equal(t, uint64(0), voffset1&uint64(0xffff))
	assert.NotEqual(t, uint64(0), voffset1>>16)

	_, err = w.Write([]byte("F"))
	require.Nil(t, err)
	voffset2 := w.VOffset()
	assert.Equal(t, uint64(1), voffset2&uint64(0xffff))
	assert.Equal(t, voffset1>>16, voffset2>>16)

	coff, uoff := SplitVOffset(voffset2)
	assert.Equal(t, voffset2, MakeVOffset(coff, uoff))
	assert.Equal(t, 1, uoff)
}

// Virtual offsets recorded while writing are usable with a seeking reader.
func TestSeek(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriterParams(&buf, gzip.BestSpeed, 64, -1)
	require.NoError(t, err)
	var offsets []uint64
	var lines []string
	for i := 0; i < 50; i++ {
		offsets = append(offsets, w.VOffset())
		line := string(rune('a'+i%26)) + "line\n"
		lines = append(lines, line)
		_, err := w.Write([]byte(line))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	r, err := bgzf.NewReader(bytes.NewReader(buf.Bytes()), 1)
	require.NoError(t, err)
	for _, i := range []int{37, 0, 12, 49} {
		coff, uoff := SplitVOffset(offsets[i])
		require.NoError(t, r.Seek(bgzf.Offset{File: coff, Block: uint16(uoff)}))
		got := make([]byte, len(lines[i]))
		_, err := io.ReadFull(r, got)
		require.NoError(t, err)
		assert.Equal(t, lines[i], string(got))
	}
}

func TestMain(m *testing.M) {
	shutdown := grail.Init()
	defer shutdown()
	os.Exit(m.Run())
}

// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package bgzf writes and scans .bgzf (block gzipped) files. A .bgzf file
// is a sequence of complete gzip members, each holding at most 64KB of
// payload, followed by a 28 byte empty terminator member. Each member
// carries its compressed size in a "BC" Extra subfield, so a reader can
// jump between members without decompressing them.
//
// A position in the payload is named by a virtual offset: the file offset
// of the member's first byte shifted left by 16, or'ed with the offset
// within the member's payload. Hapmap files are stored this way so that a
// line index can seek straight to any interval of sites.
//
// For the format, see the SAM/BAM spec at
// https://samtools.github.io/hts-specs/SAMv1.pdf
//
// Example:
//   var out bytes.Buffer
//   w, err := NewWriter(&out, gzip.DefaultCompression)
//   start := w.VOffset()
//   n, err := w.Write([]byte("rs1\tA/C\t1\t100\n"))
//   err = w.Close()
package bgzf

import (
	"bytes"
	"fmt"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/klauspost/compress/gzip"
	"v.io/x/lib/vlog"
)

const (
	// DefaultUncompressedBlockSize is the payload size of a full block, as
	// chosen by sambamba, biogo and bgzip.
	DefaultUncompressedBlockSize = 0x0ff00

	// MaxUncompressedBlockSize is the largest legal payload size.
	MaxUncompressedBlockSize = 0x10000

	// compressedBlockSize bounds a member's compressed size.
	compressedBlockSize = 0x10000

	// extraOffset is the offset of the Extra field in a gzip header.
	extraOffset = 12
)

var (
	// bgzfExtra goes into the gzip Extra field: subfield ids 66, 67 ("BC"),
	// length 2, then BSIZE.
	bgzfExtra       = [...]byte{66, 67, 2, 0, 0, 0}
	bgzfExtraPrefix = [...]byte{66, 67, 2, 0}

	// Terminator is the empty member that ends a .bgzf file.
	Terminator = []byte{
		0x1f, 0x8b, 0x08, 0x04, 0x00, 0x00, 0x00, 0x00, 0x00, 0xff, 0x06, 0x00, 0x42, 0x43,
		0x02, 0x00, 0x1b, 0x00, 0x03, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}
)

// Writer compresses data into .bgzf format. Data is buffered until a full
// block is available; Close (or CloseWithoutTerminator) flushes the final
// partial block.
type Writer struct {
	level            int
	uncompressedSize int
	xfl              int
	w                io.Writer
	gz               *gzip.Writer
	original         bytes.Buffer
	compressed       bytes.Buffer
	coffset          uint64 // starting file position of the current block
}

// NewWriter returns a .bgzf writer with the given gzip compression level.
func NewWriter(w io.Writer, level int) (*Writer, error) {
	return NewWriterParams(w, level, DefaultUncompressedBlockSize, -1)
}

// NewWriterParams returns a .bgzf writer that puts at most
// uncompressedBlockSize payload bytes in each block. If gzipXFL is not -1
// it is written to the XFL header field of every block.
func NewWriterParams(w io.Writer, level, uncompressedBlockSize, gzipXFL int) (*Writer, error) {
	if uncompressedBlockSize <= 0 || uncompressedBlockSize > MaxUncompressedBlockSize {
		return nil, errors.E(errors.Invalid, fmt.Sprintf(
			"bgzf: uncompressedBlockSize %d out of range (0,%d]", uncompressedBlockSize, MaxUncompressedBlockSize))
	}
	if gzipXFL != -1 && (gzipXFL < 0 || gzipXFL > 255) {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("bgzf: gzipXFL must be -1 or in [0:255] not %d", gzipXFL))
	}
	gz, err := gzip.NewWriterLevel(&bytes.Buffer{}, level)
	if err != nil {
		return nil, errors.E(errors.Invalid, "bgzf", err)
	}
	return &Writer{
		level:            level,
		uncompressedSize: uncompressedBlockSize,
		xfl:              gzipXFL,
		w:                w,
		gz:               gz,
	}, nil
}

// Write appends buf to the payload.
func (w *Writer) Write(buf []byte) (int, error) {
	for i := 0; i < len(buf); {
		// Fill at most one block at a time so buf is never copied whole.
		end := len(buf)
		if limit := i + w.uncompressedSize - w.original.Len(); limit < end {
			end = limit
		}
		n, _ := w.original.Write(buf[i:end])
		i += n
		if err := w.tryCompress(false); err != nil {
			return i, err
		}
	}
	return len(buf), nil
}

// CloseWithoutTerminator flushes the current block but does not append the
// terminator. The output is not a complete .bgzf file until Close is called
// on this or a later shard.
func (w *Writer) CloseWithoutTerminator() error {
	return w.tryCompress(true)
}

// Close flushes the current block and appends the terminator.
func (w *Writer) Close() error {
	if err := w.CloseWithoutTerminator(); err != nil {
		return err
	}
	_, err := w.w.Write(Terminator)
	w.coffset += uint64(len(Terminator))
	return err
}

// tryCompress writes out every full block, and the remainder if
// compressRemainder is set.
func (w *Writer) tryCompress(compressRemainder bool) error {
	for w.original.Len() >= w.uncompressedSize || (compressRemainder && w.original.Len() > 0) {
		w.gz.Reset(&w.compressed)
		w.gz.Header.Extra = append(w.gz.Header.Extra[:0], bgzfExtra[:]...)
		w.gz.Header.OS = 0xff // unknown
		if _, err := w.gz.Write(w.original.Next(w.uncompressedSize)); err != nil {
			return err
		}
		if err := w.gz.Close(); err != nil {
			return err
		}

		b := w.compressed.Bytes()
		if w.xfl >= 0 {
			b[8] = byte(w.xfl)
		}
		bsize := w.compressed.Len() - 1
		if bsize >= compressedBlockSize {
			return errors.E(errors.Invalid, fmt.Sprintf(
				"bgzf: compressed block is too big: %d > %d", bsize, compressedBlockSize))
		}
		if w.compressed.Len() < extraOffset+len(bgzfExtra) {
			vlog.Fatalf("compressed length is too short: %d < %d", w.compressed.Len(), extraOffset+len(bgzfExtra))
		}
		if !bytes.Equal(b[extraOffset:extraOffset+len(bgzfExtraPrefix)], bgzfExtraPrefix[:]) {
			vlog.Fatalf("could not find bgzf extra prefix")
		}
		b[extraOffset+4] = byte(bsize)
		b[extraOffset+5] = byte(bsize >> 8)

		sz := w.compressed.Len()
		if _, err := w.compressed.WriteTo(w.w); err != nil {
			return err
		}
		w.coffset += uint64(sz)
	}
	return nil
}

// VOffset returns the virtual offset of the next byte to be written.
func (w *Writer) VOffset() uint64 {
	return w.coffset<<16 | uint64(w.original.Len())
}

// SplitVOffset returns the file offset of a block and the offset within its
// payload.
func SplitVOffset(voffset uint64) (coffset int64, uoffset int) {
	return int64(voffset >> 16), int(voffset & 0xffff)
}

// MakeVOffset is the inverse of SplitVOffset.
func MakeVOffset(coffset int64, uoffset int) uint64 {
	return uint64(coffset)<<16 | uint64(uoffset)
}

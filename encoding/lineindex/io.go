// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package lineindex

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"hash"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/klauspost/compress/gzip"
	"github.com/minio/highwayhash"
)

var magic = []byte{'L', 'I', 'X', 0x01}

// checksumKey keys the body checksum. Changing it invalidates every
// existing index.
var checksumKey = []byte("genomatrix line index checksum\x00\x01")

// maxField bounds any single stored string or count, to reject garbage
// before allocating.
const maxField = 1 << 30

func newHash() hash.Hash64 {
	h, err := highwayhash.New64(checksumKey)
	if err != nil {
		panic(err)
	}
	return h
}

type encoder struct {
	w   *bufio.Writer
	buf [8]byte
	err error
}

func (e *encoder) u8(v byte) {
	if e.err == nil {
		e.err = e.w.WriteByte(v)
	}
}

func (e *encoder) u32(v int) {
	binary.LittleEndian.PutUint32(e.buf[:4], uint32(v))
	e.bytes(e.buf[:4])
}

func (e *encoder) u64(v uint64) {
	binary.LittleEndian.PutUint64(e.buf[:], v)
	e.bytes(e.buf[:])
}

func (e *encoder) bytes(b []byte) {
	if e.err == nil {
		_, e.err = e.w.Write(b)
	}
}

func (e *encoder) str(s string) {
	e.u32(len(s))
	if e.err == nil {
		_, e.err = e.w.WriteString(s)
	}
}

// Write writes x to w in .lix format.
func Write(w io.Writer, x *Index) error {
	gz := gzip.NewWriter(w)
	h := newHash()
	e := &encoder{w: bufio.NewWriter(io.MultiWriter(gz, h))}
	e.bytes(magic)
	e.u8(x.CommentChar)
	e.u32(x.HeaderLines)
	e.u32(x.LinesPerInterval)
	e.u32(x.SavedColumns)
	e.u64(x.Fingerprint)
	e.u64(uint64(x.NumLines))
	e.u32(len(x.Header))
	for _, s := range x.Header {
		e.str(s)
	}
	e.u32(len(x.Intervals))
	for _, v := range x.Intervals {
		e.u64(v)
	}
	for _, cols := range x.Columns {
		if len(cols) != x.SavedColumns {
			return errors.E(errors.Invalid, fmt.Sprintf(
				"lineindex: line has %d saved columns, want %d", len(cols), x.SavedColumns))
		}
		for _, s := range cols {
			e.str(s)
		}
	}
	if e.err == nil {
		e.err = e.w.Flush()
	}
	if e.err != nil {
		return errors.E(e.err, "lineindex: write")
	}
	var sum [8]byte
	binary.LittleEndian.PutUint64(sum[:], h.Sum64())
	if _, err := gz.Write(sum[:]); err != nil {
		return errors.E(err, "lineindex: write")
	}
	return gz.Close()
}

type decoder struct {
	r   io.Reader
	h   hash.Hash64
	buf [8]byte
	err error
}

func (d *decoder) read(b []byte) {
	if d.err != nil {
		return
	}
	if _, d.err = io.ReadFull(d.r, b); d.err != nil {
		if d.err == io.EOF || d.err == io.ErrUnexpectedEOF {
			d.err = errors.E(errors.Integrity, "lineindex: truncated index")
		}
		return
	}
	d.h.Write(b)
}

func (d *decoder) u8() byte {
	d.read(d.buf[:1])
	return d.buf[0]
}

func (d *decoder) u32() int {
	d.read(d.buf[:4])
	v := binary.LittleEndian.Uint32(d.buf[:4])
	if d.err == nil && v > maxField {
		d.err = errors.E(errors.Integrity, fmt.Sprintf("lineindex: field value %d too large", v))
	}
	return int(v)
}

func (d *decoder) u64() uint64 {
	d.read(d.buf[:])
	return binary.LittleEndian.Uint64(d.buf[:])
}

func (d *decoder) str() string {
	n := d.u32()
	if d.err != nil {
		return ""
	}
	b := make([]byte, n)
	d.read(b)
	return string(b)
}

// Read parses a .lix file.
func Read(r io.Reader) (*Index, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, errors.E(errors.Integrity, "lineindex: not a line index", err)
	}
	defer gz.Close() // nolint: errcheck
	d := &decoder{r: bufio.NewReader(gz), h: newHash()}
	m := make([]byte, len(magic))
	d.read(m)
	if d.err == nil && !bytes.Equal(m, magic) {
		return nil, errors.E(errors.Integrity, fmt.Sprintf("lineindex: unexpected magic %q", m))
	}
	x := &Index{}
	x.CommentChar = d.u8()
	x.HeaderLines = d.u32()
	x.LinesPerInterval = d.u32()
	x.SavedColumns = d.u32()
	x.Fingerprint = d.u64()
	numLines := d.u64()
	if d.err == nil && numLines > maxField {
		d.err = errors.E(errors.Integrity, fmt.Sprintf("lineindex: %d lines", numLines))
	}
	x.NumLines = int(numLines)
	if d.err == nil && (x.LinesPerInterval <= 0 || x.SavedColumns <= 0) {
		d.err = errors.E(errors.Integrity, "lineindex: corrupt options")
	}
	n := d.u32()
	for i := 0; i < n && d.err == nil; i++ {
		x.Header = append(x.Header, d.str())
	}
	n = d.u32()
	if d.err == nil && n != (x.NumLines+x.LinesPerInterval-1)/x.LinesPerInterval {
		d.err = errors.E(errors.Integrity, fmt.Sprintf(
			"lineindex: %d intervals for %d lines of %d", n, x.NumLines, x.LinesPerInterval))
	}
	if d.err == nil {
		x.Intervals = make([]uint64, n)
	}
	for i := 0; i < n && d.err == nil; i++ {
		x.Intervals[i] = d.u64()
	}
	if d.err == nil {
		x.Columns = make([][]string, x.NumLines)
	}
	for i := 0; i < x.NumLines && d.err == nil; i++ {
		cols := make([]string, x.SavedColumns)
		for j := range cols {
			cols[j] = d.str()
		}
		x.Columns[i] = cols
	}
	if d.err != nil {
		return nil, d.err
	}
	want := d.h.Sum64()
	var sum [8]byte
	if _, err := io.ReadFull(d.r, sum[:]); err != nil {
		return nil, errors.E(errors.Integrity, "lineindex: missing checksum")
	}
	if got := binary.LittleEndian.Uint64(sum[:]); got != want {
		return nil, errors.E(errors.Integrity, fmt.Sprintf("lineindex: checksum %016x, want %016x", got, want))
	}
	return x, nil
}

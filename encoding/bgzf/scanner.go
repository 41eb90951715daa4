// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package bgzf

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/klauspost/compress/gzip"
)

// Block is one decompressed member of a .bgzf file.
type Block struct {
	// Offset is the file offset of the member's first byte.
	Offset int64
	// Size is the compressed size of the member.
	Size int
	// Data is the payload. It is valid until the next call to Scan.
	Data []byte
}

// VOffset returns the virtual offset of byte i of the block's payload.
func (b Block) VOffset(i int) uint64 { return MakeVOffset(b.Offset, i) }

// Scanner reads a .bgzf stream one member at a time, in order.
//
//   s := NewScanner(r)
//   for s.Scan() {
//     b := s.Block()
//     ...
//   }
//   if err := s.Err(); err != nil {...}
type Scanner struct {
	r     *bufio.Reader
	off   int64
	raw   []byte
	data  bytes.Buffer
	gz    *gzip.Reader
	block Block
	err   error
}

// NewScanner creates a scanner reading from r.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{r: bufio.NewReaderSize(r, 2*compressedBlockSize)}
}

// Scan advances to the next member. It returns false at the end of the
// stream or on error.
func (s *Scanner) Scan() bool {
	if s.err != nil {
		return false
	}
	if _, err := s.r.Peek(1); err != nil {
		if err != io.EOF {
			s.err = errors.E(err, fmt.Sprintf("bgzf: reading block at offset %d", s.off))
		}
		return false
	}
	size, err := s.readRaw()
	if err != nil {
		s.err = err
		return false
	}
	if s.gz == nil {
		s.gz, err = gzip.NewReader(bytes.NewReader(s.raw))
	} else {
		err = s.gz.Reset(bytes.NewReader(s.raw))
	}
	if err == nil {
		s.gz.Multistream(false)
		s.data.Reset()
		_, err = s.data.ReadFrom(s.gz)
	}
	if err != nil {
		s.err = errors.E(errors.Integrity, fmt.Sprintf("bgzf: block at offset %d", s.off), err)
		return false
	}
	if s.data.Len() > MaxUncompressedBlockSize {
		s.err = errors.E(errors.Integrity, fmt.Sprintf(
			"bgzf: block at offset %d holds %d bytes", s.off, s.data.Len()))
		return false
	}
	s.block = Block{Offset: s.off, Size: size, Data: s.data.Bytes()}
	s.off += int64(size)
	return true
}

// readRaw reads one compressed member into s.raw and returns its size.
func (s *Scanner) readRaw() (int, error) {
	corrupt := func(msg string) error {
		return errors.E(errors.Integrity, fmt.Sprintf("bgzf: block at offset %d: %s", s.off, msg))
	}
	hdr, err := s.r.Peek(extraOffset)
	if err != nil {
		return 0, corrupt("truncated header")
	}
	if hdr[0] != 0x1f || hdr[1] != 0x8b || hdr[2] != 8 || hdr[3]&4 == 0 {
		return 0, corrupt("not a bgzf member")
	}
	xlen := int(binary.LittleEndian.Uint16(hdr[10:12]))
	hdr, err = s.r.Peek(extraOffset + xlen)
	if err != nil {
		return 0, corrupt("truncated extra field")
	}
	size := -1
	for extra := hdr[extraOffset:]; len(extra) >= 4; {
		n := int(binary.LittleEndian.Uint16(extra[2:4]))
		if len(extra) < 4+n {
			break
		}
		if extra[0] == 'B' && extra[1] == 'C' && n == 2 {
			size = int(binary.LittleEndian.Uint16(extra[4:6])) + 1
		}
		extra = extra[4+n:]
	}
	if size < extraOffset+xlen {
		return 0, corrupt("missing BSIZE")
	}
	if cap(s.raw) < size {
		s.raw = make([]byte, size)
	}
	s.raw = s.raw[:size]
	if _, err := io.ReadFull(s.r, s.raw); err != nil {
		return 0, corrupt("truncated block")
	}
	return size, nil
}

// Block returns the current member.
func (s *Scanner) Block() Block { return s.block }

// Offset returns the file offset of the next member.
func (s *Scanner) Offset() int64 { return s.off }

// Err returns the first error encountered.
func (s *Scanner) Err() error { return s.err }

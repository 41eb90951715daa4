// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package lineindex

import (
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/genomatrix/encoding/bgzf"
)

// Build indexes a BGZF-compressed data file.
func Build(r io.Reader, opts Opts) (*Index, error) {
	b := NewBuilder(opts)
	s := bgzf.NewScanner(r)
	var (
		line        []byte
		start       uint64
		atLineStart = true
	)
	for s.Scan() {
		blk := s.Block()
		for i := 0; i < len(blk.Data); {
			if atLineStart {
				start = blk.VOffset(i)
				atLineStart = false
			}
			j := i
			for j < len(blk.Data) && blk.Data[j] != '\n' {
				j++
			}
			line = append(line, blk.Data[i:j]...)
			if j == len(blk.Data) {
				break
			}
			if err := b.Add(trimCR(line), start); err != nil {
				return nil, err
			}
			line = line[:0]
			atLineStart = true
			i = j + 1
		}
	}
	if err := s.Err(); err != nil {
		return nil, errors.E(err, "lineindex: scanning data file")
	}
	if !atLineStart {
		if err := b.Add(trimCR(line), start); err != nil {
			return nil, err
		}
	}
	return b.Index()
}

func trimCR(line []byte) []byte {
	if n := len(line); n > 0 && line[n-1] == '\r' {
		return line[:n-1]
	}
	return line
}

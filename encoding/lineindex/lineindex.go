// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package lineindex implements the .lix index of a BGZF-compressed,
// line-oriented table such as a Hapmap genotype file.
//
// Lines starting with the comment character are skipped. The first
// HeaderLines remaining lines form the header; every later line is a data
// line (one site). The index records the virtual offset of every
// LinesPerInterval-th data line, so a reader can seek to the interval that
// holds a site and parse only that interval. It also keeps the first
// SavedColumns fields of every data line, so site names, alleles and
// positions are known without touching the data file.
//
// The on-disk format is a gzip stream holding, in little-endian order:
//
//   "LIX\x01"
//   uint8  CommentChar
//   uint32 HeaderLines, LinesPerInterval, SavedColumns
//   uint64 header fingerprint (farmhash of the header lines)
//   uint64 number of data lines
//   header lines, interval offsets, saved columns
//   uint64 highwayhash-64 of everything above
package lineindex

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dgryski/go-farm"
	"github.com/grailbio/base/errors"
)

// Opts configures index construction. Zero fields take the defaults below.
type Opts struct {
	// CommentChar starts a skipped line. Default '#'.
	CommentChar byte
	// HeaderLines is the number of header lines. Default 1.
	HeaderLines int
	// LinesPerInterval is the number of data lines per indexed interval.
	// Default 1000.
	LinesPerInterval int
	// SavedColumns is the number of leading fields kept per data line.
	// Default 11, the fixed columns of a Hapmap file.
	SavedColumns int
}

const (
	DefaultCommentChar      = '#'
	DefaultHeaderLines      = 1
	DefaultLinesPerInterval = 1000
	DefaultSavedColumns     = 11
)

func (o Opts) withDefaults() Opts {
	if o.CommentChar == 0 {
		o.CommentChar = DefaultCommentChar
	}
	if o.HeaderLines <= 0 {
		o.HeaderLines = DefaultHeaderLines
	}
	if o.LinesPerInterval <= 0 {
		o.LinesPerInterval = DefaultLinesPerInterval
	}
	if o.SavedColumns <= 0 {
		o.SavedColumns = DefaultSavedColumns
	}
	return o
}

// Index is a parsed .lix file.
type Index struct {
	Opts
	// Header holds the header lines, without line terminators.
	Header []string
	// Fingerprint identifies the header.
	Fingerprint uint64
	// NumLines is the number of data lines.
	NumLines int
	// Intervals[i] is the virtual offset of data line i*LinesPerInterval.
	Intervals []uint64
	// Columns[i] holds the saved fields of data line i.
	Columns [][]string
}

// Path returns the conventional index path of a data file.
func Path(dataPath string) string { return dataPath + ".lix" }

// Fingerprint returns the fingerprint of a set of header lines.
func Fingerprint(header []string) uint64 {
	return farm.Fingerprint64([]byte(strings.Join(header, "\n")))
}

// CheckHeader verifies that header is the header the index was built from.
func (x *Index) CheckHeader(header []string) error {
	if got := Fingerprint(header); got != x.Fingerprint {
		return errors.E(errors.Integrity, fmt.Sprintf(
			"lineindex: header fingerprint %016x does not match index %016x; rebuild the index", got, x.Fingerprint))
	}
	return nil
}

// NumIntervals returns the number of indexed intervals.
func (x *Index) NumIntervals() int { return len(x.Intervals) }

// Interval returns the interval that holds data line i, and i's position
// within it.
func (x *Index) Interval(line int) (interval, within int) {
	return line / x.LinesPerInterval, line % x.LinesPerInterval
}

// IntervalLines returns the data lines [start, end) of an interval.
func (x *Index) IntervalLines(interval int) (start, end int) {
	start = interval * x.LinesPerInterval
	end = start + x.LinesPerInterval
	if end > x.NumLines {
		end = x.NumLines
	}
	return
}

// Builder accumulates an index from the lines of a data file, in order.
type Builder struct {
	x     *Index
	lines int // all lines seen, for error messages
	err   error
}

// NewBuilder creates an empty builder.
func NewBuilder(opts Opts) *Builder {
	return &Builder{x: &Index{Opts: opts.withDefaults()}}
}

// Add records one line, without its terminator, that starts at voffset.
func (b *Builder) Add(line []byte, voffset uint64) error {
	if b.err != nil {
		return b.err
	}
	b.lines++
	x := b.x
	if len(x.Header) < x.HeaderLines {
		if len(line) == 0 || line[0] == x.CommentChar {
			return nil
		}
		x.Header = append(x.Header, string(line))
		if len(x.Header) == x.HeaderLines {
			x.Fingerprint = Fingerprint(x.Header)
		}
		return nil
	}
	if len(line) == 0 {
		return nil
	}
	cols := make([]string, 0, x.SavedColumns)
	for rest := line; len(cols) < x.SavedColumns; {
		i := bytes.IndexByte(rest, '\t')
		if i < 0 {
			cols = append(cols, string(rest))
			break
		}
		cols = append(cols, string(rest[:i]))
		rest = rest[i+1:]
	}
	if len(cols) < x.SavedColumns {
		b.err = errors.E(errors.Integrity, fmt.Sprintf(
			"lineindex: line %d has %d columns, want at least %d", b.lines, len(cols), x.SavedColumns))
		return b.err
	}
	if x.NumLines%x.LinesPerInterval == 0 {
		x.Intervals = append(x.Intervals, voffset)
	}
	x.Columns = append(x.Columns, cols)
	x.NumLines++
	return nil
}

// Index returns the index. It fails if the header was never completed.
func (b *Builder) Index() (*Index, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.x.Header) < b.x.HeaderLines {
		return nil, errors.E(errors.Integrity, fmt.Sprintf(
			"lineindex: found %d header lines, want %d", len(b.x.Header), b.x.HeaderLines))
	}
	return b.x, nil
}

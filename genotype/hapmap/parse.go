// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package hapmap

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/genomatrix/genotype"
)

// NumFixedColumns is the number of metadata columns before the first
// sample: rs#, alleles, chrom, pos, strand, assembly#, center, protLSID,
// assayLSID, panelLSID and QCcode.
const NumFixedColumns = 11

// Metadata column positions.
const (
	colName    = 0
	colAlleles = 1
	colChrom   = 2
	colPos     = 3
)

// Encoding is the width of one call in a Hapmap file.
type Encoding int

const (
	// OneLetter files hold one IUPAC character per call, e.g. "R".
	OneLetter Encoding = iota + 1
	// TwoLetter files hold two allele characters per call, e.g. "AG".
	TwoLetter
)

func (e Encoding) String() string {
	switch e {
	case OneLetter:
		return "one-letter"
	case TwoLetter:
		return "two-letter"
	}
	return fmt.Sprintf("Encoding(%d)", int(e))
}

// DetectEncoding returns the encoding of a data line from the width of its
// first call.
func DetectEncoding(line []byte) (Encoding, error) {
	rest, ok := skipColumns(line, NumFixedColumns)
	if !ok || len(rest) == 0 {
		// A file without samples parses the same either way.
		return OneLetter, nil
	}
	n := bytes.IndexByte(rest, '\t')
	if n < 0 {
		n = len(rest)
	}
	switch n {
	case 1:
		return OneLetter, nil
	case 2:
		return TwoLetter, nil
	}
	return 0, errors.E(errors.Integrity, fmt.Sprintf("hapmap: call %q is neither one-letter nor two-letter", rest[:n]))
}

// skipColumns returns line after its first n tab-terminated fields.
func skipColumns(line []byte, n int) ([]byte, bool) {
	for i := 0; i < n; i++ {
		j := bytes.IndexByte(line, '\t')
		if j < 0 {
			return nil, false
		}
		line = line[j+1:]
	}
	return line, true
}

// ParseLine decodes the calls of one data line into out, which must hold
// one entry per sample. site and path only label errors.
//
// Two-letter calls are stored with their letters swapped: "AC" becomes
// 0x10, matching files written by earlier importers.
func ParseLine(line []byte, enc Encoding, out []byte, site int, path string) error {
	bad := func(format string, args ...interface{}) error {
		return errors.E(errors.Integrity, fmt.Sprintf("hapmap: %s: site %d: ", path, site)+fmt.Sprintf(format, args...))
	}
	rest, ok := skipColumns(line, NumFixedColumns)
	if !ok {
		if len(out) == 0 && bytes.Count(line, []byte{'\t'}) == NumFixedColumns-1 {
			return nil
		}
		return bad("fewer than %d columns", NumFixedColumns+1)
	}
	width := int(enc)
	n := 0
	for len(rest) > 0 {
		if n >= len(out) {
			return bad("has too many values; want %d", len(out))
		}
		if len(rest) < width || (len(rest) > width && rest[width] != '\t') {
			end := bytes.IndexByte(rest, '\t')
			if end < 0 {
				end = len(rest)
			}
			return bad("sample %d has illegal value %q", n, rest[:end])
		}
		var g byte
		if enc == OneLetter {
			g = genotype.NucleotideDiploidFromChar(rest[0])
		} else {
			a, ok1 := genotype.NucleotideAllele(rest[0])
			b, ok2 := genotype.NucleotideAllele(rest[1])
			if !ok1 || !ok2 {
				g = genotype.Illegal
			} else {
				g = genotype.Diploid(b, a)
			}
		}
		if g == genotype.Illegal {
			return bad("sample %d has illegal value %q", n, rest[:width])
		}
		out[n] = g
		n++
		rest = rest[width:]
		if len(rest) > 0 {
			rest = rest[1:]
			if len(rest) == 0 {
				return bad("trailing tab")
			}
		}
	}
	if n != len(out) {
		return bad("has %d values, want %d", n, len(out))
	}
	return nil
}

// ParsePosition decodes the saved metadata columns of a data line.
func ParsePosition(cols []string, site int) (genotype.Position, error) {
	if len(cols) <= colPos {
		return genotype.Position{}, errors.E(errors.Integrity, fmt.Sprintf("hapmap: site %d: missing position columns", site))
	}
	pos, err := strconv.ParseInt(cols[colPos], 10, 32)
	if err != nil {
		return genotype.Position{}, errors.E(errors.Integrity, fmt.Sprintf("hapmap: site %d: bad position %q", site, cols[colPos]))
	}
	return genotype.Position{
		Chrom:   cols[colChrom],
		Pos:     int32(pos),
		Name:    cols[colName],
		Alleles: cols[colAlleles],
	}, nil
}

// SampleNames returns the sample columns of a header line.
func SampleNames(header string) ([]string, error) {
	rest, ok := skipColumns([]byte(header), NumFixedColumns)
	if !ok {
		if n := bytes.Count([]byte(header), []byte{'\t'}) + 1; n == NumFixedColumns {
			return nil, nil
		}
		return nil, errors.E(errors.Integrity, fmt.Sprintf("hapmap: header has fewer than %d columns", NumFixedColumns))
	}
	if len(rest) == 0 {
		return nil, nil
	}
	return bytes2strings(bytes.Split(rest, []byte{'\t'})), nil
}

func bytes2strings(b [][]byte) []string {
	s := make([]string, len(b))
	for i := range b {
		s[i] = string(b[i])
	}
	return s
}

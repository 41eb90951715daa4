// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package genotype

import (
	"fmt"

	"github.com/grailbio/base/errors"
)

// Nucleotide allele codes.
const (
	AlleleA      byte = 0x0
	AlleleC      byte = 0x1
	AlleleG      byte = 0x2
	AlleleT      byte = 0x3
	AlleleInsert byte = 0x4
	AlleleGap    byte = 0x5

	// NumNucleotideAlleles is the number of real nucleotide alleles (A, C, G,
	// T, insertion, gap).
	NumNucleotideAlleles = 6

	// Illegal is returned by NucleotideDiploidFromChar for characters that
	// have no nucleotide meaning. It is the homozygous value of the first
	// undefined allele code and never appears in stored data.
	Illegal byte = 0x66
)

// NucleotideAlleles is the allele-definition table shared by every site of a
// nucleotide table.
var NucleotideAlleles = AlleleStates{{
	"A", "C", "G", "T", "+", "-",
	"X", "X", "X", "X", "X", "X", "X", "X",
	"Z", "N",
}}

var (
	// alleleFromChar maps one character to an allele code, or 0xff.
	alleleFromChar [256]byte
	// diploidFromChar maps a one-letter (IUPAC) call to a diploid value.
	diploidFromChar [256]byte
	// iupac maps a diploid value to its one-letter IUPAC rendering.
	iupac [256]byte
)

func init() {
	for i := range alleleFromChar {
		alleleFromChar[i] = 0xff
		diploidFromChar[i] = Illegal
	}
	for c, code := range map[byte]byte{
		'A': AlleleA, 'C': AlleleC, 'G': AlleleG, 'T': AlleleT,
		'+': AlleleInsert, '-': AlleleGap, 'Z': RareAllele, 'N': UnknownAllele, 'X': UnknownAllele,
	} {
		alleleFromChar[c] = code
		diploidFromChar[c] = code<<4 | code
	}
	for c, code := range map[byte]byte{'a': AlleleA, 'c': AlleleC, 'g': AlleleG, 't': AlleleT, 'n': UnknownAllele} {
		alleleFromChar[c] = code
	}
	for c, g := range map[byte]byte{
		'R': 0x02, 'Y': 0x13, 'S': 0x21, 'W': 0x03, 'K': 0x23, 'M': 0x01, '0': 0x54,
	} {
		diploidFromChar[c] = g
	}
	for g := 0; g < 256; g++ {
		iupac[g] = iupacFor(byte(g))
	}
}

func alleleLetter(a byte) byte {
	if int(a) < len(NucleotideAlleles[0]) {
		return NucleotideAlleles[0][a][0]
	}
	return 'X'
}

func isIndel(a byte) bool { return a == AlleleInsert || a == AlleleGap }

func isBase(a byte) bool { return a <= AlleleT }

func iupacFor(g byte) byte {
	a, b := Alleles(g)
	unknownish := func(x byte) bool { return x == UnknownAllele || x == RareAllele }
	switch {
	case a == b:
		return alleleLetter(a)
	case unknownish(a) && unknownish(b):
		return 'N'
	case unknownish(a) && b <= AlleleGap:
		return alleleLetter(b)
	case unknownish(b) && a <= AlleleGap:
		return alleleLetter(a)
	case isBase(a) && isBase(b):
		switch Unphased(a, b) {
		case 0x01:
			return 'M'
		case 0x02:
			return 'R'
		case 0x03:
			return 'W'
		case 0x12:
			return 'S'
		case 0x13:
			return 'Y'
		case 0x23:
			return 'K'
		}
	case (isIndel(a) && b <= AlleleGap) || (isIndel(b) && a <= AlleleGap):
		return '0'
	}
	return 'X'
}

// NucleotideIUPAC renders a nucleotide diploid value as one IUPAC character.
// Heterozygous indels render as "0"; half-missing calls render as their known
// allele.
func NucleotideIUPAC(g byte) string {
	return string(iupac[g])
}

// NucleotideDiploidFromChar returns the diploid value of a one-letter
// nucleotide call. It returns Illegal for characters outside the alphabet.
func NucleotideDiploidFromChar(c byte) byte {
	return diploidFromChar[c]
}

// NucleotideAllele returns the allele code for a single nucleotide character.
func NucleotideAllele(c byte) (byte, bool) {
	a := alleleFromChar[c]
	return a, a != 0xff
}

// ParseNucleotide parses a nucleotide call written as a single IUPAC letter
// ("R"), two letters ("AG"), or two letters separated by a colon ("A:G").
// "N" and "?" denote a missing call.
func ParseNucleotide(s string) (byte, error) {
	switch len(s) {
	case 1:
		if s[0] == '?' {
			return Missing, nil
		}
		if g := diploidFromChar[s[0]]; g != Illegal {
			return g, nil
		}
	case 2:
		a, ok1 := NucleotideAllele(s[0])
		b, ok2 := NucleotideAllele(s[1])
		if ok1 && ok2 {
			return Diploid(a, b), nil
		}
	case 3:
		if s[1] == ':' {
			return ParseNucleotide(s[:1] + s[2:])
		}
	}
	return Missing, errors.E(errors.Invalid, fmt.Sprintf("illegal nucleotide call %q", s))
}

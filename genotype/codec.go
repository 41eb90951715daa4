// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package genotype

const (
	// UnknownAllele is the allele code for an unobserved gamete.
	UnknownAllele byte = 0xF
	// Missing is the diploid value of a cell with no call.
	Missing byte = 0xFF
	// RareAllele is the allele code that stands for "some allele outside the
	// table".
	RareAllele byte = 0xE
	// RareDiploid is the homozygous rare call.
	RareDiploid byte = 0xEE
	// DefaultMaxNumAlleles bounds the number of distinct alleles tracked per
	// site by frequency computations.
	DefaultMaxNumAlleles = 6

	lowMask = 0xF
)

// Diploid packs two allele codes into a phased diploid value.
func Diploid(a, b byte) byte {
	return a<<4 | (b & lowMask)
}

// Unphased packs two allele codes with the lower code first.
func Unphased(a, b byte) byte {
	a &= lowMask
	b &= lowMask
	if a < b {
		return a<<4 | b
	}
	return b<<4 | a
}

// SortUnphased reorders the alleles of g so that the lower code comes first.
func SortUnphased(g byte) byte {
	return Unphased(g>>4, g)
}

// Alleles splits a diploid value into its two allele codes.
func Alleles(g byte) (byte, byte) {
	return g >> 4, g & lowMask
}

// IsHeterozygous reports whether the two allele codes of g differ. A
// half-missing call such as A/N counts as heterozygous.
func IsHeterozygous(g byte) bool {
	return g>>4 != g&lowMask
}

// IsHomozygous reports whether g is a call with two identical, non-missing
// allele codes.
func IsHomozygous(g byte) bool {
	if g == Missing {
		return false
	}
	return g>>4 == g&lowMask
}

// Equal compares two diploid values ignoring phase.
func Equal(g1, g2 byte) bool {
	return g1 == g2 || g2 == (g1<<4|g1>>4)
}

// EqualOrUnknown is like Equal, but a missing call matches anything.
func EqualOrUnknown(g1, g2 byte) bool {
	if g1 == Missing || g2 == Missing {
		return true
	}
	return Equal(g1, g2)
}

// PartiallyEqual reports whether g1 and g2 share at least one allele code.
func PartiallyEqual(g1, g2 byte) bool {
	h1, l1 := Alleles(g1)
	h2, l2 := Alleles(g2)
	return l1 == l2 || h1 == l2 || l1 == h2 || h1 == h2
}

// CombineNoHets derives one call from two donor calls: identical homozygous
// donors pass through, two homozygous donors combine into an unphased het, and
// anything involving a heterozygous or missing donor is Missing.
func CombineNoHets(g1, g2 byte) byte {
	if g1 == g2 && !IsHeterozygous(g1) {
		return g1
	}
	if g1 == Missing || g2 == Missing || IsHeterozygous(g1) || IsHeterozygous(g2) {
		return Missing
	}
	return Unphased(g1, g2)
}

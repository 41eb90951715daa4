// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package genotype

import (
	"fmt"

	"github.com/grailbio/base/errors"
)

// AlleleStates is an allele-definition table. A table with one row applies to
// every site; otherwise row i defines the alleles of site i. Within a row,
// entry c is the display string of allele code c.
type AlleleStates [][]string

// Display strings for the special allele codes, used when a site's row does
// not define them (including sites with no definitions at all).
const (
	UnknownAlleleString = "N"
	RareAlleleString    = "Z"
)

// Shared reports whether one row serves every site.
func (a AlleleStates) Shared() bool { return len(a) == 1 }

// ForSite returns the allele definitions in force at site.
func (a AlleleStates) ForSite(site int) ([]string, error) {
	if len(a) == 1 {
		return a[0], nil
	}
	if site < 0 || site >= len(a) {
		return nil, errors.E(errors.Precondition,
			fmt.Sprintf("no allele definitions for site %d (table has %d rows)", site, len(a)))
	}
	return a[site], nil
}

// Allele returns the display string of allele code at site.
func (a AlleleStates) Allele(site int, code byte) (string, error) {
	row, err := a.ForSite(site)
	if err != nil {
		return "", err
	}
	if int(code) >= len(row) {
		switch code {
		case UnknownAllele:
			return UnknownAlleleString, nil
		case RareAllele:
			return RareAlleleString, nil
		}
		return "", errors.E(errors.Precondition,
			fmt.Sprintf("allele code %#x undefined at site %d", code, site))
	}
	return row[code], nil
}

// DiploidString renders g as "allele1:allele2" using the definitions at site.
func (a AlleleStates) DiploidString(site int, g byte) (string, error) {
	hi, lo := Alleles(g)
	s1, err := a.Allele(site, hi)
	if err != nil {
		return "", err
	}
	s2, err := a.Allele(site, lo)
	if err != nil {
		return "", err
	}
	return s1 + ":" + s2, nil
}

// Code returns the allele code whose display string is s at site.
func (a AlleleStates) Code(site int, s string) (byte, error) {
	row, err := a.ForSite(site)
	if err != nil {
		return 0, err
	}
	for i, v := range row {
		if v == s {
			return byte(i), nil
		}
	}
	return 0, errors.E(errors.Precondition, fmt.Sprintf("allele %q undefined at site %d", s, site))
}

// IsNucleotide reports whether a is the shared nucleotide table.
func (a AlleleStates) IsNucleotide() bool {
	return a.Equal(NucleotideAlleles)
}

// Equal reports whether a and b define the same alleles for every site.
func (a AlleleStates) Equal(b AlleleStates) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i]) != len(b[i]) {
			return false
		}
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				return false
			}
		}
	}
	return true
}

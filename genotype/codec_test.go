// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package genotype_test

import (
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/genomatrix/genotype"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec(t *testing.T) {
	expect.EQ(t, genotype.Diploid(genotype.AlleleA, genotype.AlleleC), byte(0x01))
	expect.EQ(t, genotype.Unphased(genotype.AlleleT, genotype.AlleleC), byte(0x13))
	expect.EQ(t, genotype.SortUnphased(0x31), byte(0x13))
	a, b := genotype.Alleles(0x23)
	expect.EQ(t, a, byte(2))
	expect.EQ(t, b, byte(3))

	assert.True(t, genotype.IsHeterozygous(0x01))
	assert.True(t, genotype.IsHeterozygous(0x0F))
	assert.False(t, genotype.IsHeterozygous(genotype.Missing))
	assert.True(t, genotype.IsHomozygous(0x22))
	assert.False(t, genotype.IsHomozygous(genotype.Missing))

	assert.True(t, genotype.Equal(0x01, 0x10))
	assert.False(t, genotype.Equal(0x01, 0x11))
	assert.True(t, genotype.EqualOrUnknown(0x01, genotype.Missing))
	assert.True(t, genotype.PartiallyEqual(0x01, 0x12))
	assert.False(t, genotype.PartiallyEqual(0x01, 0x23))
}

func TestCombineNoHets(t *testing.T) {
	tests := []struct {
		g1, g2, want byte
	}{
		{0x00, 0x00, 0x00},
		{0x00, 0x22, 0x02},
		{0x22, 0x00, 0x02},
		{0x01, 0x00, genotype.Missing},
		{0x00, genotype.Missing, genotype.Missing},
		{genotype.Missing, genotype.Missing, genotype.Missing},
	}
	for _, tt := range tests {
		expect.EQ(t, genotype.CombineNoHets(tt.g1, tt.g2), tt.want, "%#x %#x", tt.g1, tt.g2)
	}
}

func TestNucleotide(t *testing.T) {
	tests := []struct {
		in   string
		want byte
	}{
		{"A", 0x00}, {"C", 0x11}, {"N", 0xFF}, {"X", 0xFF}, {"?", 0xFF},
		{"R", 0x02}, {"Y", 0x13}, {"S", 0x21}, {"W", 0x03}, {"K", 0x23}, {"M", 0x01}, {"0", 0x54},
		{"AC", 0x01}, {"A:C", 0x01}, {"NA", 0xF0}, {"ZZ", 0xEE}, {"-+", 0x54},
	}
	for _, tt := range tests {
		got, err := genotype.ParseNucleotide(tt.in)
		require.NoError(t, err, tt.in)
		expect.EQ(t, got, tt.want, tt.in)
	}
	_, err := genotype.ParseNucleotide("Q")
	assert.True(t, errors.Is(errors.Invalid, err))
	expect.EQ(t, genotype.NucleotideDiploidFromChar('B'), genotype.Illegal)
}

func TestIUPAC(t *testing.T) {
	for g, want := range map[byte]string{
		0x00: "A", 0x01: "M", 0x10: "M", 0x02: "R", 0x03: "W", 0x12: "S", 0x13: "Y", 0x23: "K",
		0x04: "0", 0x45: "0", 0x0F: "A", 0xF3: "T", 0xE1: "C", 0xEE: "Z", 0xEF: "N", 0xFF: "N",
		0x44: "+", 0x55: "-",
	} {
		expect.EQ(t, genotype.NucleotideIUPAC(g), want, "%#x", g)
	}
}

func TestAlleleStates(t *testing.T) {
	s, err := genotype.NucleotideAlleles.DiploidString(100, 0x13)
	require.NoError(t, err)
	expect.EQ(t, s, "C:T")
	assert.True(t, genotype.NucleotideAlleles.IsNucleotide())

	perSite := genotype.AlleleStates{{"x", "y"}, {"p", "q", "r"}}
	s, err = perSite.DiploidString(1, 0x12)
	require.NoError(t, err)
	expect.EQ(t, s, "q:r")
	_, err = perSite.ForSite(2)
	assert.True(t, errors.Is(errors.Precondition, err))
	_, err = perSite.DiploidString(0, 0x02)
	assert.True(t, errors.Is(errors.Precondition, err))
	// Special codes render even where a row leaves them undefined.
	s, err = perSite.DiploidString(0, genotype.Missing)
	require.NoError(t, err)
	expect.EQ(t, s, "N:N")
	s, err = genotype.AlleleStates{{}, {}}.DiploidString(1, 0xEF)
	require.NoError(t, err)
	expect.EQ(t, s, "Z:N")
	code, err := perSite.Code(1, "r")
	require.NoError(t, err)
	expect.EQ(t, code, byte(2))
}

func TestDiploidStringRoundTrip(t *testing.T) {
	alleles := genotype.NucleotideAlleles
	for a := byte(0); a < genotype.NumNucleotideAlleles; a++ {
		for b := byte(0); b < genotype.NumNucleotideAlleles; b++ {
			g := genotype.Diploid(a, b)
			s, err := alleles.DiploidString(0, g)
			require.NoError(t, err)
			c1, err := alleles.Code(0, s[:1])
			require.NoError(t, err)
			c2, err := alleles.Code(0, s[2:])
			require.NoError(t, err)
			expect.EQ(t, genotype.Diploid(c1, c2), g)
		}
	}
}

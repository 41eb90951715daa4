// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package genotype_test

import (
	"math/rand"
	"testing"

	"github.com/grailbio/genomatrix/genotype"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
)

func TestCountAlleles(t *testing.T) {
	// A/C, A/A, G/T, N/N, C/C
	c := genotype.CountAlleles([]byte{0x01, 0x00, 0x23, 0xFF, 0x11}, genotype.DefaultMaxNumAlleles)
	expect.EQ(t, c.Alleles, []byte{0, 1, 2, 3})
	expect.EQ(t, c.Counts, []int{3, 3, 1, 1})
	expect.EQ(t, c.Major(), genotype.AlleleA)
	expect.EQ(t, c.Minor(), genotype.AlleleC)
	expect.EQ(t, c.Third(), genotype.AlleleG)
	assert.InDelta(t, 3.0/8, c.MajorFrequency(), 1e-12)
	assert.True(t, c.Polymorphic())
	expect.EQ(t, c.MinorAlleles(), []byte{1, 2, 3})
}

func TestCountAllelesEmpty(t *testing.T) {
	c := genotype.CountAlleles([]byte{0xFF, 0xFF}, genotype.DefaultMaxNumAlleles)
	expect.EQ(t, c.Len(), 0)
	expect.EQ(t, c.Major(), genotype.UnknownAllele)
	expect.EQ(t, c.MajorFrequency(), 0.0)
	expect.EQ(t, c.MinorFrequency(), 0.0)
}

func TestCountAllelesBound(t *testing.T) {
	// Codes at or above the bound are ignored.
	c := genotype.CountAlleles([]byte{0x44, 0x45, 0x00}, 4)
	expect.EQ(t, c.Alleles, []byte{0})
	expect.EQ(t, c.Counts, []int{2})
}

func TestStatsGameteTotals(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	calls := make([]byte, 200)
	for i := range calls {
		switch r.Intn(4) {
		case 0:
			calls[i] = genotype.Missing
		case 1:
			calls[i] = genotype.Diploid(byte(r.Intn(6)), genotype.UnknownAllele)
		default:
			calls[i] = genotype.Diploid(byte(r.Intn(6)), byte(r.Intn(6)))
		}
	}
	s := genotype.ComputeStats(7, calls, genotype.DefaultMaxNumAlleles)
	expect.EQ(t, s.MissingGametes+s.TotalGametesNonMissing(), 2*len(calls))
	expect.EQ(t, s.Missing+s.Heterozygous+s.Homozygous <= len(calls), true)
	assert.True(t, s.MajorFrequency()+s.MinorFrequency() <= 1.0)
	expect.EQ(t, s.AllMinorAlleleCount(), s.Total()-s.Count(0))
	r2 := s.Reindex(3)
	expect.EQ(t, r2.Index, 3)
	expect.EQ(t, s.Index, 7)
	expect.EQ(t, r2.Counts, s.Counts)
}

func TestStatsCounters(t *testing.T) {
	s := genotype.ComputeStats(0, []byte{0x00, 0x01, 0x0F, 0xFF, 0x45}, genotype.DefaultMaxNumAlleles)
	expect.EQ(t, s.Missing, 1)
	expect.EQ(t, s.MissingGametes, 3)
	expect.EQ(t, s.Heterozygous, 2)
	expect.EQ(t, s.Homozygous, 1)
	assert.InDelta(t, 0.4, s.ProportionHeterozygous(), 1e-12)
	assert.InDelta(t, 0.8, s.PercentNotMissing(), 1e-12)
	assert.True(t, s.HasIndel())
}

func TestRareAlleleGametes(t *testing.T) {
	calls := []byte{
		genotype.Diploid(genotype.AlleleA, genotype.RareAllele),
		genotype.Diploid(genotype.RareAllele, genotype.RareAllele),
		genotype.Diploid(genotype.AlleleC, genotype.UnknownAllele),
		genotype.Missing,
	}
	s := genotype.ComputeStats(0, calls, genotype.DefaultMaxNumAlleles)
	expect.EQ(t, s.Total(), 2)
	expect.EQ(t, s.TotalGametesNonMissing(), 5)
	expect.EQ(t, s.TotalGametesNonMissing(), genotype.CountCalls(calls).GametesNonMissing)
}

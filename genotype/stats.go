// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package genotype

// Stats summarizes the calls along one site column or one sample row.
type Stats struct {
	AlleleCounts
	// Missing counts fully missing calls.
	Missing int
	// MissingGametes counts unknown gametes: 2 per missing call, 1 per
	// half-missing call.
	MissingGametes int
	// Heterozygous counts calls with two different known alleles.
	Heterozygous int
	// Homozygous counts calls with two identical known alleles.
	Homozygous int
	// N is the number of calls summarized.
	N int
	// Index is the site or sample this record describes.
	Index int
}

// ComputeStats summarizes calls, counting alleles with codes below
// maxAlleles.
func ComputeStats(index int, calls []byte, maxAlleles int) *Stats {
	s := &Stats{
		AlleleCounts: CountAlleles(calls, maxAlleles),
		N:            len(calls),
		Index:        index,
	}
	for _, g := range calls {
		if g == Missing {
			s.Missing++
			s.MissingGametes += 2
			continue
		}
		a, b := Alleles(g)
		switch {
		case a == UnknownAllele || b == UnknownAllele:
			s.MissingGametes++
		case a == b:
			s.Homozygous++
		default:
			s.Heterozygous++
		}
	}
	return s
}

// Reindex returns a copy of s describing logical position index. The counts
// are shared.
func (s *Stats) Reindex(index int) *Stats {
	c := *s
	c.Index = index
	return &c
}

// MinorAlleleCount returns the count of the second most frequent allele.
func (s *Stats) MinorAlleleCount() int { return s.Count(1) }

// AllMinorAlleleCount sums the counts of every allele except the major one.
func (s *Stats) AllMinorAlleleCount() int { return s.Total() - s.Count(0) }

// TotalGametesNonMissing returns the number of known gametes, including
// alleles too rare to be counted in AlleleCounts.
func (s *Stats) TotalGametesNonMissing() int { return 2*s.N - s.MissingGametes }

// ProportionHeterozygous is Heterozygous / N.
func (s *Stats) ProportionHeterozygous() float64 {
	if s.N == 0 {
		return 0
	}
	return float64(s.Heterozygous) / float64(s.N)
}

// PercentNotMissing is the fraction of calls that are not fully missing.
func (s *Stats) PercentNotMissing() float64 {
	if s.N == 0 {
		return 0
	}
	return float64(s.N-s.Missing) / float64(s.N)
}

// HasIndel reports whether an insertion or gap allele was observed.
func (s *Stats) HasIndel() bool {
	for _, a := range s.Alleles {
		if a == AlleleInsert || a == AlleleGap {
			return true
		}
	}
	return false
}

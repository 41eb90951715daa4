// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package genotype

// AlleleCounts lists the alleles observed at one site (or in one sample)
// sorted by descending count. Ties are broken toward the lower allele code.
type AlleleCounts struct {
	Alleles []byte
	Counts  []int
}

// CountAlleles tallies every gamete in calls whose allele code is below
// maxAlleles and returns the alleles with a nonzero count, sorted.
func CountAlleles(calls []byte, maxAlleles int) AlleleCounts {
	if maxAlleles > 15 {
		maxAlleles = 15
	}
	var counts [16]int
	for _, g := range calls {
		a, b := Alleles(g)
		if int(a) < maxAlleles {
			counts[a]++
		}
		if int(b) < maxAlleles {
			counts[b]++
		}
	}
	return SortCounts(counts[:maxAlleles])
}

// SortCounts turns per-code counts into an AlleleCounts record. Each entry is
// packed as count<<4 | (max-1-code) so that one descending sort orders by
// count and then by ascending code.
func SortCounts(counts []int) AlleleCounts {
	max := len(counts)
	packed := make([]int, max)
	for i, c := range counts {
		packed[i] = c<<4 | (max - 1 - i)
	}
	// Selection sort: max is tiny.
	n := 0
	for i := 0; i < max; i++ {
		best := i
		for j := i + 1; j < max; j++ {
			if packed[j] > packed[best] {
				best = j
			}
		}
		packed[i], packed[best] = packed[best], packed[i]
		if packed[i] > 0xF {
			n++
		}
	}
	r := AlleleCounts{Alleles: make([]byte, n), Counts: make([]int, n)}
	for i := 0; i < n; i++ {
		r.Alleles[i] = byte(max - 1 - (packed[i] & 0xF))
		r.Counts[i] = packed[i] >> 4
	}
	return r
}

// Len returns the number of observed alleles.
func (c AlleleCounts) Len() int { return len(c.Alleles) }

// Total returns the number of counted gametes.
func (c AlleleCounts) Total() int {
	n := 0
	for _, v := range c.Counts {
		n += v
	}
	return n
}

// Allele returns the i-th most frequent allele, or UnknownAllele if fewer
// than i+1 alleles were observed.
func (c AlleleCounts) Allele(i int) byte {
	if i < len(c.Alleles) {
		return c.Alleles[i]
	}
	return UnknownAllele
}

// Count returns the count of the i-th most frequent allele, or 0.
func (c AlleleCounts) Count(i int) int {
	if i < len(c.Counts) {
		return c.Counts[i]
	}
	return 0
}

// Frequency returns the i-th allele's share of the counted gametes. It is 0
// when the allele is absent or nothing was counted.
func (c AlleleCounts) Frequency(i int) float64 {
	if i >= len(c.Counts) {
		return 0
	}
	total := c.Total()
	if total == 0 {
		return 0
	}
	return float64(c.Counts[i]) / float64(total)
}

// Major returns the most frequent allele.
func (c AlleleCounts) Major() byte { return c.Allele(0) }

// Minor returns the second most frequent allele.
func (c AlleleCounts) Minor() byte { return c.Allele(1) }

// Third returns the third most frequent allele.
func (c AlleleCounts) Third() byte { return c.Allele(2) }

// MajorFrequency returns the frequency of Major.
func (c AlleleCounts) MajorFrequency() float64 { return c.Frequency(0) }

// MinorFrequency returns the frequency of Minor.
func (c AlleleCounts) MinorFrequency() float64 { return c.Frequency(1) }

// MinorAlleles returns every allele except the major one.
func (c AlleleCounts) MinorAlleles() []byte {
	if len(c.Alleles) < 2 {
		return nil
	}
	return c.Alleles[1:]
}

// Polymorphic reports whether more than one allele was observed.
func (c AlleleCounts) Polymorphic() bool { return len(c.Alleles) > 1 }

// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package view

import (
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/genomatrix/byte2d"
	"github.com/grailbio/genomatrix/genotype"
	"gonum.org/v1/gonum/stat/distuv"
)

// MergeRule decides the call for a cell observed in more than one source.
type MergeRule interface {
	// MergeCalls folds two calls into one.
	MergeCalls(g1, g2 byte) byte
	// MergeDepths sums two per-allele depth vectors (encoded as in package
	// byte2d).
	MergeDepths(d1, d2 []byte) ([]byte, error)
	// CallFromDepths calls a genotype from per-allele read depths. depths[a]
	// is the depth of allele code a.
	CallFromDepths(depths []int) byte
}

// SetToN merges agreeing calls, fills in a missing call from the other
// source, and sets conflicting calls to Missing. Depth calling only calls
// homozygotes: if more than one allele has reads the call is Missing.
type SetToN struct{}

// MergeCalls implements MergeRule.
func (SetToN) MergeCalls(g1, g2 byte) byte { return mergeCalls(g1, g2) }

// MergeDepths implements MergeRule.
func (SetToN) MergeDepths(d1, d2 []byte) ([]byte, error) { return mergeDepths(d1, d2) }

// CallFromDepths implements MergeRule.
func (SetToN) CallFromDepths(depths []int) byte {
	_, maxA, _, nextA := topTwo(depths)
	if nextA == genotype.UnknownAllele {
		return genotype.Diploid(maxA, maxA)
	}
	return genotype.Missing
}

func mergeCalls(g1, g2 byte) byte {
	switch {
	case g1 == g2:
		return g1
	case g1 == genotype.Missing:
		return g2
	case g2 == genotype.Missing:
		return g1
	}
	return genotype.Missing
}

func mergeDepths(d1, d2 []byte) ([]byte, error) {
	if len(d1) != len(d2) {
		return nil, errors.E(errors.Invalid,
			fmt.Sprintf("depth vectors differ in length: %d vs %d", len(d1), len(d2)))
	}
	out := make([]byte, len(d1))
	for i := range out {
		out[i] = byte2d.AddDepths(d1[i], d2[i])
	}
	return out, nil
}

// topTwo returns the largest and second largest depths and their allele
// codes. An allele code is UnknownAllele if no allele has a positive depth
// in that rank.
func topTwo(depths []int) (max int, maxA byte, next int, nextA byte) {
	maxA, nextA = genotype.UnknownAllele, genotype.UnknownAllele
	for a, d := range depths {
		if d > max {
			next, nextA = max, maxA
			max, maxA = d, byte(a)
		} else if d > next {
			next, nextA = d, byte(a)
		}
	}
	return
}

// basicMaxDepth is the total depth at and above which Basic switches from
// the likelihood table to a fixed 10% minor-allele threshold.
const basicMaxDepth = 100

// Basic merges calls like SetToN and calls heterozygotes from depth with a
// binomial likelihood ratio: a site is heterozygous when the second allele's
// depth makes "het" more likely than "sequencing errors at ErrorRate".
type Basic struct {
	ErrorRate float64
	// thresh[n] is the minimum second-allele depth for a het call at total
	// depth n.
	thresh [basicMaxDepth]int
}

// NewBasic creates a Basic rule for the given per-read error rate.
func NewBasic(errorRate float64) (*Basic, error) {
	if errorRate <= 0 || errorRate >= 0.5 {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("error rate %v outside (0, 0.5)", errorRate))
	}
	b := &Basic{ErrorRate: errorRate}
	b.thresh[0], b.thresh[1] = 1, 1
	last := 1
	for n := 2; n < basicMaxDepth; n++ {
		het := distuv.Binomial{N: float64(n), P: 0.5}
		errs := distuv.Binomial{N: float64(n), P: errorRate}
		ratio := func(k int) float64 {
			// P(het: X <= k) / P(error: X >= k)
			return het.CDF(float64(k)) / (1 - errs.CDF(float64(k)) + errs.Prob(float64(k)))
		}
		for ratio(last) <= 1 {
			last++
		}
		b.thresh[n] = last
	}
	return b, nil
}

// Threshold returns the minimum second-allele depth for a het call at total
// depth n < 100.
func (b *Basic) Threshold(n int) int { return b.thresh[n] }

// MergeCalls implements MergeRule.
func (b *Basic) MergeCalls(g1, g2 byte) byte { return mergeCalls(g1, g2) }

// MergeDepths implements MergeRule.
func (b *Basic) MergeDepths(d1, d2 []byte) ([]byte, error) { return mergeDepths(d1, d2) }

// CallFromDepths implements MergeRule.
func (b *Basic) CallFromDepths(depths []int) byte {
	max, maxA, next, nextA := topTwo(depths)
	total := max + next
	het := false
	if total < basicMaxDepth {
		het = next >= b.thresh[total]
	} else {
		het = float64(next)/float64(total) >= 0.1
	}
	if het {
		return genotype.Diploid(maxA, nextA)
	}
	return genotype.Diploid(maxA, maxA)
}

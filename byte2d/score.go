// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package byte2d stores one byte score per (sample, site): read depth per
// allele, allele probabilities, reference probability, dosage or quality.
// Dense matrices live in memory; H5 matrices load one sample row at a time
// from a genotype file.
package byte2d

import (
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/genomatrix/genotype"
)

// ScoreType names what a matrix holds.
type ScoreType int

const (
	None ScoreType = iota
	QualityScore
	ReferenceProbability
	Dosage
	DepthA
	DepthC
	DepthG
	DepthT
	DepthGap
	DepthInsertion
	ProbA
	ProbC
	ProbG
	ProbT
	ProbGap
	ProbInsertion
)

var scoreTypeNames = [...]string{
	None: "None", QualityScore: "QualityScore", ReferenceProbability: "ReferenceProbablity", Dosage: "Dosage",
	DepthA: "DepthA", DepthC: "DepthC", DepthG: "DepthG", DepthT: "DepthT",
	DepthGap: "DepthGap", DepthInsertion: "DepthInsertion",
	ProbA: "ProbA", ProbC: "ProbC", ProbG: "ProbG", ProbT: "ProbT",
	ProbGap: "ProbGap", ProbInsertion: "ProbInsertion",
}

// DepthTypes and ProbTypes list the per-allele score types.
var (
	DepthTypes = []ScoreType{DepthA, DepthC, DepthG, DepthT, DepthGap, DepthInsertion}
	ProbTypes  = []ScoreType{ProbA, ProbC, ProbG, ProbT, ProbGap, ProbInsertion}
)

// String returns the name used for the type's datasets in genotype files.
// ReferenceProbability keeps its historical misspelling.
func (t ScoreType) String() string {
	if t < 0 || int(t) >= len(scoreTypeNames) {
		return fmt.Sprintf("ScoreType(%d)", int(t))
	}
	return scoreTypeNames[t]
}

// ParseScoreType is the inverse of String.
func ParseScoreType(s string) (ScoreType, error) {
	for t, name := range scoreTypeNames {
		if name == s {
			return ScoreType(t), nil
		}
	}
	return None, errors.E(errors.Invalid, fmt.Sprintf("unknown score type %q", s))
}

// IsDepth reports whether t is a per-allele read depth.
func (t ScoreType) IsDepth() bool { return t >= DepthA && t <= DepthInsertion }

// IsProb reports whether t is a per-allele probability.
func (t ScoreType) IsProb() bool { return t >= ProbA && t <= ProbInsertion }

// Allele returns the nucleotide allele code of a per-allele score type, or
// genotype.UnknownAllele.
func (t ScoreType) Allele() byte {
	var i ScoreType
	switch {
	case t.IsDepth():
		i = t - DepthA
	case t.IsProb():
		i = t - ProbA
	default:
		return genotype.UnknownAllele
	}
	return [...]byte{
		genotype.AlleleA, genotype.AlleleC, genotype.AlleleG, genotype.AlleleT,
		genotype.AlleleGap, genotype.AlleleInsert,
	}[i]
}

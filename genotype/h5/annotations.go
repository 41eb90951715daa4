// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package h5

import (
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/genomatrix/encoding/h5io"
	"github.com/grailbio/genomatrix/genotype"
)

// NumAnnotatedAlleles is the number of allele codes tracked by the
// precomputed annotations: A, C, G, T, insertion and gap.
const NumAnnotatedAlleles = genotype.DefaultMaxNumAlleles

// annotationBlock holds the annotations of sites [start, start+n).
//
// The count and order matrices are stored in the file row-major with one row
// per allele: element a*numSites+s. counts[a][i] is the number of gametes of
// allele code a; order[k][i] is the k'th most frequent allele, or
// genotype.UnknownAllele past the last observed one.
type annotationBlock struct {
	start    int
	counts   [NumAnnotatedAlleles][]int32
	order    [NumAnnotatedAlleles][]byte
	maf      []float32
	coverage []float32
}

func (b *annotationBlock) alleleCounts(site int) genotype.AlleleCounts {
	i := site - b.start
	var c genotype.AlleleCounts
	for k := 0; k < NumAnnotatedAlleles; k++ {
		a := b.order[k][i]
		if a == genotype.UnknownAllele || int(a) >= NumAnnotatedAlleles {
			break
		}
		c.Alleles = append(c.Alleles, a)
		c.Counts = append(c.Counts, int(b.counts[a][i]))
	}
	return c
}

func (t *Table) annotation(site int) (*annotationBlock, error) {
	if !t.annotated {
		return nil, errors.E(errors.NotExist, "h5: file has no site annotations")
	}
	start := site &^ blockMask
	return t.annotations.GetOrCompute(start, func() (*annotationBlock, error) {
		n := h5io.BlockSize
		if start+n > t.numSites {
			n = t.numSites - start
		}
		b := &annotationBlock{start: start}
		t.mu.Lock()
		err := t.readAnnotations(b, n)
		t.mu.Unlock()
		if err != nil {
			return nil, errors.E(err, fmt.Sprintf("h5: reading annotations of sites [%d,%d)", start, start+n))
		}
		return b, nil
	})
}

// readAnnotations fills b with n sites. t.mu must be held.
func (t *Table) readAnnotations(b *annotationBlock, n int) error {
	var err error
	for a := 0; a < NumAnnotatedAlleles; a++ {
		off := a*t.numSites + b.start
		if b.counts[a], err = t.r.ReadInt32(h5io.AlleleCounts, off, n); err != nil {
			return err
		}
		if b.order[a], err = t.r.ReadUint8(h5io.AlleleFreqOrder, off, n); err != nil {
			return err
		}
		if len(b.counts[a]) != n || len(b.order[a]) != n {
			return errors.E(errors.Integrity, fmt.Sprintf("h5: short annotation row for allele %d", a))
		}
	}
	if b.maf, err = t.r.ReadFloat32(h5io.MAF, b.start, n); err != nil {
		return err
	}
	if b.coverage, err = t.r.ReadFloat32(h5io.SiteCoverage, b.start, n); err != nil {
		return err
	}
	if len(b.maf) != n || len(b.coverage) != n {
		return errors.E(errors.Integrity, "h5: short MAF or coverage annotation")
	}
	return nil
}

// AlleleCounts implements genotype.AlleleCounter. Files without annotations
// are counted from the site column.
func (t *Table) AlleleCounts(site int) (genotype.AlleleCounts, error) {
	if site < 0 || site >= t.numSites {
		return genotype.AlleleCounts{}, genotype.OutOfRange("site", site, t.numSites)
	}
	if !t.annotated {
		col, err := t.SiteColumn(site)
		if err != nil {
			return genotype.AlleleCounts{}, err
		}
		return genotype.CountAlleles(col, t.maxAlleles), nil
	}
	b, err := t.annotation(site)
	if err != nil {
		return genotype.AlleleCounts{}, err
	}
	return b.alleleCounts(site), nil
}

// MinorAlleleFrequency returns the stored frequency of the second most
// common allele at site, or 0 if the site is monomorphic.
func (t *Table) MinorAlleleFrequency(site int) (float64, error) {
	if site < 0 || site >= t.numSites {
		return 0, genotype.OutOfRange("site", site, t.numSites)
	}
	b, err := t.annotation(site)
	if err != nil {
		return 0, err
	}
	return float64(b.maf[site-b.start]), nil
}

// SiteCoverage returns the stored fraction of gametes at site that carry
// one of the annotated alleles.
func (t *Table) SiteCoverage(site int) (float64, error) {
	if site < 0 || site >= t.numSites {
		return 0, genotype.OutOfRange("site", site, t.numSites)
	}
	b, err := t.annotation(site)
	if err != nil {
		return 0, err
	}
	return float64(b.coverage[site-b.start]), nil
}

// TaxonCoverage returns the stored fraction of non-missing calls of sample,
// and its fraction of heterozygous calls among those.
func (t *Table) TaxonCoverage(sample int) (coverage, het float64, err error) {
	if sample < 0 || sample >= t.NumSamples() {
		return 0, 0, genotype.OutOfRange("sample", sample, t.NumSamples())
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	cov, err := t.r.ReadFloat32(h5io.TaxaCoverage, sample, 1)
	if err != nil {
		return 0, 0, errors.E(err, "h5: reading taxon coverage")
	}
	h, err := t.r.ReadFloat32(h5io.TaxaHeterozygosity, sample, 1)
	if err != nil {
		return 0, 0, errors.E(err, "h5: reading taxon heterozygosity")
	}
	if len(cov) != 1 || len(h) != 1 {
		return 0, 0, errors.E(errors.Integrity, fmt.Sprintf("h5: no taxon annotations for sample %d", sample))
	}
	return float64(cov[0]), float64(h[0]), nil
}

// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package h5

import (
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/genomatrix/encoding/h5io"
	"github.com/grailbio/genomatrix/genotype"
)

// WriteOpts configures Write.
type WriteOpts struct {
	// KeepOpen leaves the genotype module unlocked, so that more samples
	// can be added later. Such a file cannot be opened by Open.
	KeepOpen bool
}

// Write stores table in w: the taxa list, the site positions, one calls
// dataset per sample, and the site and taxon annotations. Unless
// opts.KeepOpen is set, it finally locks the genotype module.
//
// samples names the rows of table; positions lists its sites.
func Write(w h5io.Writer, table genotype.Table, samples *genotype.SampleList, positions *genotype.Positions, opts WriteOpts) error {
	numTaxa, numSites := table.NumSamples(), table.NumSites()
	if samples.Len() != numTaxa {
		return errors.E(errors.Invalid, fmt.Sprintf("h5: %d sample names for %d samples", samples.Len(), numTaxa))
	}
	if positions.Len() != numSites {
		return errors.E(errors.Invalid, fmt.Sprintf("h5: %d positions for %d sites", positions.Len(), numSites))
	}
	if err := h5io.WriteStrings(w, h5io.TaxaOrder, samples.Names()); err != nil {
		return err
	}
	if err := writePositions(w, positions); err != nil {
		return err
	}
	if err := w.CreateGroup(h5io.GenotypesModule); err != nil {
		return err
	}

	var counts [NumAnnotatedAlleles][]int32
	for a := range counts {
		counts[a] = make([]int32, numSites)
	}
	coverage := make([]float32, numTaxa)
	het := make([]float32, numTaxa)
	for i := 0; i < numTaxa; i++ {
		row, err := table.SampleRow(i)
		if err != nil {
			return errors.E(err, fmt.Sprintf("h5: reading sample %s", samples.Name(i)))
		}
		var covered, hets int
		for s, g := range row {
			a, b := genotype.Alleles(g)
			if a < NumAnnotatedAlleles {
				counts[a][s]++
			}
			if b < NumAnnotatedAlleles {
				counts[b][s]++
			}
			if genotype.IsHeterozygous(g) {
				hets++
			}
			if g != genotype.Missing {
				covered++
			}
		}
		if numSites > 0 {
			coverage[i] = float32(covered) / float32(numSites)
		}
		if covered > 0 {
			het[i] = float32(hets) / float32(covered)
		}
		if err := w.WriteUint8(h5io.CallsPath(samples.Name(i)), row, h5io.BlockSize); err != nil {
			return err
		}
	}
	if err := writeSiteAnnotations(w, &counts, numTaxa, numSites); err != nil {
		return err
	}
	if err := w.CreateGroup(h5io.TaxaDescriptorsGroup); err != nil {
		return err
	}
	if err := w.WriteFloat32(h5io.TaxaCoverage, coverage, h5io.BlockSize); err != nil {
		return err
	}
	if err := w.WriteFloat32(h5io.TaxaHeterozygosity, het, h5io.BlockSize); err != nil {
		return err
	}

	if err := w.SetInt32Attr(h5io.GenotypesModule, h5io.AttrNumTaxa, int32(numTaxa)); err != nil {
		return err
	}
	if err := w.SetInt32Attr(h5io.GenotypesModule, h5io.AttrMaxNumAlleles, int32(table.MaxNumAlleles())); err != nil {
		return err
	}
	if err := w.SetBoolAttr(h5io.GenotypesModule, h5io.AttrPhased, table.Phased()); err != nil {
		return err
	}
	if err := w.SetBoolAttr(h5io.GenotypesModule, h5io.AttrLocked, !opts.KeepOpen); err != nil {
		return err
	}
	log.Printf("h5: wrote %d taxa, %d sites (locked: %v)", numTaxa, numSites, !opts.KeepOpen)
	return nil
}

func writePositions(w h5io.Writer, positions *genotype.Positions) error {
	n := positions.Len()
	if err := w.CreateGroup(h5io.PositionsModule); err != nil {
		return err
	}
	if err := w.SetInt32Attr(h5io.PositionsModule, h5io.AttrNumSites, int32(n)); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	chroms := make([]string, n)
	pos := make([]int32, n)
	names := make([]string, n)
	named := false
	for i := range pos {
		p := positions.Site(i)
		chroms[i], pos[i], names[i] = p.Chrom, p.Pos, p.Name
		named = named || p.Name != ""
	}
	if err := h5io.WriteStrings(w, h5io.Chromosomes, chroms); err != nil {
		return err
	}
	if err := w.WriteInt32(h5io.Positions, pos, h5io.BlockSize); err != nil {
		return err
	}
	if named {
		return h5io.WriteStrings(w, h5io.SNPIDs, names)
	}
	return nil
}

// writeSiteAnnotations derives the allele order, minor allele frequency and
// coverage of every site from its allele counts, and stores all four.
func writeSiteAnnotations(w h5io.Writer, counts *[NumAnnotatedAlleles][]int32, numTaxa, numSites int) error {
	flatCounts := make([]int32, NumAnnotatedAlleles*numSites)
	order := make([]byte, NumAnnotatedAlleles*numSites)
	maf := make([]float32, numSites)
	coverage := make([]float32, numSites)
	site := make([]int, NumAnnotatedAlleles)
	for s := 0; s < numSites; s++ {
		sum := 0
		for a := range site {
			site[a] = int(counts[a][s])
			flatCounts[a*numSites+s] = counts[a][s]
			sum += site[a]
		}
		sorted := genotype.SortCounts(site)
		for k := 0; k < NumAnnotatedAlleles; k++ {
			order[k*numSites+s] = genotype.UnknownAllele
			if k < sorted.Len() {
				order[k*numSites+s] = sorted.Allele(k)
			}
		}
		if sorted.Len() > 1 {
			maf[s] = float32(sorted.Count(1)) / float32(sum)
		}
		if numTaxa > 0 {
			coverage[s] = float32(sum) / float32(2*numTaxa)
		}
	}
	if err := w.CreateGroup(h5io.DescriptorsGroup); err != nil {
		return err
	}
	if err := w.WriteInt32(h5io.AlleleCounts, flatCounts, h5io.BlockSize); err != nil {
		return err
	}
	if err := w.WriteUint8(h5io.AlleleFreqOrder, order, h5io.BlockSize); err != nil {
		return err
	}
	if err := w.WriteFloat32(h5io.MAF, maf, h5io.BlockSize); err != nil {
		return err
	}
	return w.WriteFloat32(h5io.SiteCoverage, coverage, h5io.BlockSize)
}

// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package h5io

import (
	"fmt"
	"strings"

	"github.com/grailbio/base/errors"
)

// Groups, datasets and attributes of a genotype file.
const (
	GenotypesModule = "Genotypes"
	// Attributes of GenotypesModule.
	AttrNumTaxa       = "numTaxa"
	AttrLocked        = "locked"
	AttrMaxNumAlleles = "maxNumAlleles"
	AttrPhased        = "phased"

	// Per-site annotations, written when the genotype module is finalized.
	DescriptorsGroup = GenotypesModule + "/_Descriptors"
	AlleleCounts     = DescriptorsGroup + "/AlleleCnt"
	AlleleFreqOrder  = DescriptorsGroup + "/AlleleFreqOrder"
	MAF              = DescriptorsGroup + "/MAF"
	SiteCoverage     = DescriptorsGroup + "/SiteCoverage"

	TaxaModule = "Taxa"
	TaxaOrder  = TaxaModule + "/TaxaOrder"

	// Per-taxon annotations.
	TaxaDescriptorsGroup = TaxaModule + "/_Descriptors"
	TaxaCoverage         = TaxaDescriptorsGroup + "/TaxaCoverage"
	TaxaHeterozygosity   = TaxaDescriptorsGroup + "/TaxaHet"

	PositionsModule = "Positions"
	AttrNumSites    = "numSites"
	Chromosomes     = PositionsModule + "/Chromosomes"
	Positions       = PositionsModule + "/Positions"
	SNPIDs          = PositionsModule + "/SnpIds"

	// BlockSize is the number of sites per chunk of every per-site dataset.
	BlockSize = 1 << 16
)

// CallsPath is the dataset holding the calls of taxon.
func CallsPath(taxon string) string { return Join(GenotypesModule, taxon, "calls") }

// ScorePath is the dataset holding the scores of the given type for taxon.
func ScorePath(taxon, scoreType string) string { return Join(GenotypesModule, taxon, scoreType) }

// WriteStrings stores a list of strings as a newline-separated uint8
// dataset. The strings must not contain newlines.
func WriteStrings(w Writer, path string, values []string) error {
	for i, v := range values {
		if strings.IndexByte(v, '\n') >= 0 {
			return errors.E(errors.Invalid, fmt.Sprintf("h5io: %s: value %d contains a newline", path, i))
		}
	}
	return w.WriteUint8(path, []byte(strings.Join(values, "\n")), BlockSize)
}

// ReadStrings reads a dataset written by WriteStrings.
func ReadStrings(r Reader, path string) ([]string, error) {
	n, err := r.Len(path)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	b, err := r.ReadUint8(path, 0, n)
	if err != nil {
		return nil, err
	}
	return strings.Split(string(b), "\n"), nil
}

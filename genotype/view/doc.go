// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package view implements genotype tables that derive their cells from other
// tables without copying them: Filter, Combine, Mask, Hybrid, Difference,
// Merged and Projection.
package view

import "github.com/grailbio/genomatrix/genotype"

func missingRow(n int) []byte {
	row := make([]byte, n)
	for i := range row {
		row[i] = genotype.Missing
	}
	return row
}

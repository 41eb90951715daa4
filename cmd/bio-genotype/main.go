// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// bio-genotype converts, indexes and summarizes genotype matrices stored as
// BGZF Hapmap text or HDF5.
//
// Usage:
//
//	bio-genotype bgzip in.hmp.txt out.hmp.txt.gz
//	bio-genotype index in.hmp.txt.gz
//	bio-genotype stats [-start N] [-end N] in.hmp.txt.gz|in.h5
//	bio-genotype h5 in.hmp.txt.gz out.h5
package main

import (
	"github.com/grailbio/genomatrix/cmd/bio-genotype/cmd"
)

func main() {
	cmd.Run()
}

// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package dense

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/sync/multierror"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/genomatrix/genotype"
)

// CopyOpts controls Copy.
type CopyOpts struct {
	// BatchSize is the number of samples per unit of work. Default 10.
	BatchSize int
	// Parallelism is the number of workers. Default runtime.NumCPU().
	Parallelism int
	// MaxErrors bounds the number of worker errors reported. Default 8.
	MaxErrors int
}

// Copy materializes src into a new dense table. Samples are split into
// batches that a fixed set of workers drain; Copy returns once every batch
// is done, with every worker failure folded into one error.
func Copy(src genotype.Table, opts CopyOpts) (*Table, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = runtime.NumCPU()
	}
	if opts.MaxErrors <= 0 {
		opts.MaxErrors = 8
	}
	numSamples, numSites := src.NumSamples(), src.NumSites()
	b := NewBuilder(numSamples, numSites, false, Opts{
		Phased:        src.Phased(),
		AlleleStates:  src.AlleleStates(),
		MaxNumAlleles: src.MaxNumAlleles(),
	})
	numBatches := (numSamples + opts.BatchSize - 1) / opts.BatchSize
	workers := opts.Parallelism
	if workers > numBatches {
		workers = numBatches
	}
	var (
		next int64 = -1
		errs       = multierror.NewMultiError(opts.MaxErrors)
		t0         = time.Now()
	)
	err := traverse.Each(workers, func(int) error {
		for {
			batch := int(atomic.AddInt64(&next, 1))
			if batch >= numBatches {
				return nil
			}
			start := batch * opts.BatchSize
			end := start + opts.BatchSize
			if end > numSamples {
				end = numSamples
			}
			for s := start; s < end; s++ {
				row, err := src.SampleRow(s)
				if err == nil {
					err = b.SetRange(s, 0, row)
				}
				if err != nil {
					errs.Add(errors.E(err, fmt.Sprintf("copy sample %d", s)))
				}
			}
		}
	})
	errs.Add(err)
	if err := errs.Err(); err != nil {
		return nil, err
	}
	log.Debug.Printf("dense: copied %d x %d %s table in %v", numSamples, numSites, src.Kind(), time.Since(t0))
	return b.Build(), nil
}

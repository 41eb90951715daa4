// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package byte2d

import (
	"fmt"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/genomatrix/bytematrix"
	"github.com/grailbio/genomatrix/encoding/h5io"
)

// Builder fills a Byte2D. A dense builder accepts values in any order; an
// HDF5 builder writes each sample as it is added.
type Builder struct {
	typ      ScoreType
	numSites int

	m *bytematrix.Matrix

	mu      sync.Mutex // serializes writes
	w       h5io.Writer
	samples []string
}

// NewBuilder creates a dense builder with every value zero.
func NewBuilder(numSamples, numSites int, t ScoreType) *Builder {
	return &Builder{typ: t, numSites: numSites, m: bytematrix.New(numSamples, numSites, 0, true)}
}

// NewH5Builder creates a builder that writes samples to w. The file's taxa
// list and site count must already be written.
func NewH5Builder(w h5io.Writer, samples []string, numSites int, t ScoreType) *Builder {
	return &Builder{typ: t, numSites: numSites, w: w, samples: samples}
}

// AddSample sets every site of sample.
func (b *Builder) AddSample(sample int, values []byte) error {
	if len(values) != b.numSites {
		return errors.E(errors.Invalid,
			fmt.Sprintf("byte2d: sample %d has %d values, want %d", sample, len(values), b.numSites))
	}
	if b.w == nil {
		return b.SetRange(sample, 0, values)
	}
	if sample < 0 || sample >= len(b.samples) {
		return outOfRange("sample", sample, len(b.samples))
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.w.WriteUint8(h5io.ScorePath(b.samples[sample], b.typ.String()), values, h5io.BlockSize)
}

// SetRange sets sites [offset, offset+len(values)) of sample. HDF5 builders
// do not support it.
func (b *Builder) SetRange(sample, offset int, values []byte) error {
	if b.w != nil {
		return errors.E(errors.NotSupported, "byte2d: SetRange on an HDF5 builder")
	}
	if sample < 0 || sample >= b.m.NumRows() {
		return outOfRange("sample", sample, b.m.NumRows())
	}
	if offset < 0 || offset+len(values) > b.numSites {
		return errors.E(errors.Invalid, fmt.Sprintf("byte2d: site range [%d,%d) out of range [0,%d)",
			offset, offset+len(values), b.numSites))
	}
	b.m.SetRange(sample, offset, values)
	return nil
}

// ReorderSites permutes the sites of a dense builder: site i of the result
// is current site order[i].
func (b *Builder) ReorderSites(order []int) error {
	if b.w != nil {
		return errors.E(errors.Precondition, "byte2d: ReorderSites: not an in-memory builder")
	}
	return b.m.ReorderColumns(order)
}

// Build returns the matrix. The builder must not be used afterwards.
func (b *Builder) Build() Byte2D {
	if b.w != nil {
		return newH5(b.w, b.typ, b.samples, b.numSites, DefaultRowCacheSize)
	}
	m := b.m
	b.m = nil
	return &Dense{typ: b.typ, m: m}
}

// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package byte2d

import (
	"fmt"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/genomatrix/encoding/h5io"
	"github.com/grailbio/genomatrix/internal/lru"
)

// DefaultRowCacheSize bounds the sample rows an H5 matrix keeps resident.
const DefaultRowCacheSize = 1 << 16

// H5 is a Byte2D stored in a genotype file, one dataset per sample. A
// sample's whole row is read on first access and cached.
type H5 struct {
	typ      ScoreType
	numSites int
	paths    []string

	mu   sync.Mutex // serializes reads
	r    h5io.Reader
	rows *lru.Cache[int, []byte]
}

// OpenH5 opens the matrix of type t in r. Sample names come from the
// file's taxa list.
func OpenH5(r h5io.Reader, t ScoreType) (*H5, error) {
	samples, err := h5io.ReadStrings(r, h5io.TaxaOrder)
	if err != nil {
		return nil, errors.E(err, "byte2d: reading taxa")
	}
	numSites, err := r.Int32Attr(h5io.PositionsModule, h5io.AttrNumSites)
	if err != nil {
		return nil, errors.E(err, "byte2d: reading site count")
	}
	return newH5(r, t, samples, int(numSites), DefaultRowCacheSize), nil
}

func newH5(r h5io.Reader, t ScoreType, samples []string, numSites, cacheSize int) *H5 {
	h := &H5{
		typ:      t,
		numSites: numSites,
		paths:    make([]string, len(samples)),
		r:        r,
		rows:     lru.New[int, []byte](cacheSize),
	}
	for i, s := range samples {
		h.paths[i] = h5io.ScorePath(s, t.String())
	}
	return h
}

// ScoreType implements Byte2D.
func (h *H5) ScoreType() ScoreType { return h.typ }

// NumSamples implements Byte2D.
func (h *H5) NumSamples() int { return len(h.paths) }

// NumSites implements Byte2D.
func (h *H5) NumSites() int { return h.numSites }

func (h *H5) row(sample int) ([]byte, error) {
	return h.rows.GetOrCompute(sample, func() ([]byte, error) {
		h.mu.Lock()
		defer h.mu.Unlock()
		row, err := h.r.ReadUint8(h.paths[sample], 0, h.numSites)
		if err != nil {
			return nil, errors.E(err, fmt.Sprintf("byte2d: %s scores of sample %d", h.typ, sample))
		}
		if len(row) != h.numSites {
			return nil, errors.E(errors.Integrity, fmt.Sprintf(
				"byte2d: %s has %d sites, want %d", h.paths[sample], len(row), h.numSites))
		}
		log.Debug.Printf("byte2d: loaded %s", h.paths[sample])
		return row, nil
	})
}

// Value implements Byte2D.
func (h *H5) Value(sample, site int) (byte, error) {
	if err := checkCell(h, sample, site); err != nil {
		return 0, err
	}
	row, err := h.row(sample)
	if err != nil {
		return 0, err
	}
	return row[site], nil
}

// SampleValues implements Byte2D.
func (h *H5) SampleValues(sample int) ([]byte, error) {
	if sample < 0 || sample >= h.NumSamples() {
		return nil, outOfRange("sample", sample, h.NumSamples())
	}
	row, err := h.row(sample)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), row...), nil
}

// SiteValues implements Byte2D. It loads every sample row.
func (h *H5) SiteValues(site int) ([]byte, error) {
	if site < 0 || site >= h.numSites {
		return nil, outOfRange("site", site, h.numSites)
	}
	out := make([]byte, len(h.paths))
	for s := range out {
		row, err := h.row(s)
		if err != nil {
			return nil, err
		}
		out[s] = row[site]
	}
	return out, nil
}

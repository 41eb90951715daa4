// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package h5 implements a read-only genotype.Table over an HDF5 genotype
// file, and the writer that produces such files.
//
// The calls of each sample are stored in one dataset chunked every
// h5io.BlockSize sites. The table loads one (sample, block) chunk at a time
// into a bounded cache. A second, smaller cache holds the per-site
// annotations (allele counts and order, minor allele frequency, coverage)
// that the writer precomputes, so that allele frequencies never require a
// scan of the site.
//
// Every read from the underlying h5io.Reader is serialized by the table;
// cache population is otherwise concurrent.
package h5

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/genomatrix/encoding/h5io"
	"github.com/grailbio/genomatrix/genotype"
	"github.com/grailbio/genomatrix/internal/lru"
	"github.com/grailbio/genomatrix/internal/sysmem"
)

// Opts configures a Table. Zero fields take defaults.
type Opts struct {
	// BlockCacheSize bounds the number of cached (sample, block) chunks.
	// Default: one third of MaxMemory divided by the cost of a chunk, capped
	// at one chunk per sample per CPU.
	BlockCacheSize int
	// AnnotationCacheSize bounds the number of cached annotation blocks.
	// Default 150.
	AnnotationCacheSize int
	// MaxMemory overrides the process memory ceiling. Default sysmem.Max().
	MaxMemory int64
}

const (
	defaultAnnotationCacheSize = 150
	blockMask                  = h5io.BlockSize - 1
	// blockCost is the assumed memory cost of one cached chunk: three bytes
	// per call.
	blockCost = 3 * h5io.BlockSize
)

const notLocked = "The Genotype module of this HDF5 file hasn't been locked, and therefore can't be opened for reading. " +
	"This could occur if the file was created using the -ko (keep open) option when running the plugin " +
	"ProductionSNPCallerPluginV2. Please check your file, close if appropriate, and try again."

// Stats reports cache activity.
type Stats struct {
	Blocks      lru.Stats
	Annotations lru.Stats
}

// Table is the HDF5 backend.
type Table struct {
	mu sync.Mutex // serializes every call on r
	r  h5io.Reader

	samples    *genotype.SampleList
	positions  *genotype.Positions
	numSites   int
	maxAlleles int
	phased     bool
	annotated  bool

	blocks      *lru.Cache[int64, []byte]
	annotations *lru.Cache[int, *annotationBlock]
}

// OpenFile opens the HDF5 file at path. It requires a binary built with the
// "hdf5" tag.
func OpenFile(path string, opts Opts) (*Table, error) {
	r, err := h5io.Open(path)
	if err != nil {
		return nil, err
	}
	t, err := Open(r, opts)
	if err != nil {
		r.Close() // nolint: errcheck
		return nil, errors.E(err, path)
	}
	return t, nil
}

// Open reads the metadata of a genotype file from r. The table takes
// ownership of r and closes it in Close. The genotype module must have been
// locked by the writer.
func Open(r h5io.Reader, opts Opts) (*Table, error) {
	locked, err := r.BoolAttr(h5io.GenotypesModule, h5io.AttrLocked)
	if err != nil && !errors.Is(errors.NotExist, err) {
		return nil, errors.E(err, "h5: reading lock state")
	}
	if !locked {
		return nil, errors.E(errors.Precondition, notLocked)
	}
	numTaxa, err := r.Int32Attr(h5io.GenotypesModule, h5io.AttrNumTaxa)
	if err != nil {
		return nil, errors.E(err, "h5: reading number of taxa")
	}
	numSites, err := r.Int32Attr(h5io.PositionsModule, h5io.AttrNumSites)
	if err != nil {
		return nil, errors.E(err, "h5: reading number of sites")
	}
	names, err := h5io.ReadStrings(r, h5io.TaxaOrder)
	if err != nil {
		return nil, errors.E(err, "h5: reading taxa")
	}
	if len(names) != int(numTaxa) {
		return nil, errors.E(errors.Integrity,
			fmt.Sprintf("h5: %d taxa listed, but %s says %d", len(names), h5io.AttrNumTaxa, numTaxa))
	}
	samples, err := genotype.NewSampleList(names)
	if err != nil {
		return nil, err
	}
	positions, err := readPositions(r, int(numSites))
	if err != nil {
		return nil, err
	}
	t := &Table{
		r:          r,
		samples:    samples,
		positions:  positions,
		numSites:   int(numSites),
		maxAlleles: genotype.DefaultMaxNumAlleles,
		annotated:  r.Exists(h5io.AlleleCounts) && r.Exists(h5io.AlleleFreqOrder),
	}
	if n, err := r.Int32Attr(h5io.GenotypesModule, h5io.AttrMaxNumAlleles); err == nil && n > 0 {
		t.maxAlleles = int(n)
	}
	if p, err := r.BoolAttr(h5io.GenotypesModule, h5io.AttrPhased); err == nil {
		t.phased = p
	}
	if opts.BlockCacheSize <= 0 {
		opts.BlockCacheSize = blockCacheSize(opts.MaxMemory, samples.Len())
	}
	if opts.AnnotationCacheSize <= 0 {
		opts.AnnotationCacheSize = defaultAnnotationCacheSize
	}
	t.blocks = lru.New[int64, []byte](opts.BlockCacheSize)
	t.annotations = lru.New[int, *annotationBlock](opts.AnnotationCacheSize)
	log.Printf("h5: %d taxa, %d sites, caching %d blocks of %d sites, annotations: %v",
		samples.Len(), numSites, opts.BlockCacheSize, h5io.BlockSize, t.annotated)
	return t, nil
}

func blockCacheSize(maxMemory int64, numSamples int) int {
	if maxMemory <= 0 {
		maxMemory = sysmem.Max()
	}
	n := maxMemory / blockCost
	if m := int64(numSamples * runtime.NumCPU()); m < n {
		n = m
	}
	if n < 1 {
		n = 1
	}
	return int(n)
}

func readPositions(r h5io.Reader, numSites int) (*genotype.Positions, error) {
	sites := make([]genotype.Position, numSites)
	if numSites == 0 {
		return genotype.NewPositions(sites)
	}
	chroms, err := h5io.ReadStrings(r, h5io.Chromosomes)
	if err != nil {
		return nil, errors.E(err, "h5: reading chromosomes")
	}
	pos, err := r.ReadInt32(h5io.Positions, 0, numSites)
	if err != nil {
		return nil, errors.E(err, "h5: reading positions")
	}
	if len(chroms) != numSites || len(pos) != numSites {
		return nil, errors.E(errors.Integrity,
			fmt.Sprintf("h5: %d chromosomes and %d positions for %d sites", len(chroms), len(pos), numSites))
	}
	var ids []string
	if r.Exists(h5io.SNPIDs) {
		if ids, err = h5io.ReadStrings(r, h5io.SNPIDs); err != nil {
			return nil, errors.E(err, "h5: reading marker names")
		}
	}
	for i := range sites {
		sites[i] = genotype.Position{Chrom: chroms[i], Pos: pos[i]}
		if i < len(ids) {
			sites[i].Name = ids[i]
		}
	}
	return genotype.NewPositions(sites)
}

// Close closes the underlying reader.
func (t *Table) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.r.Close()
}

// Samples returns the taxa of the file.
func (t *Table) Samples() *genotype.SampleList { return t.samples }

// Positions returns the site coordinates of the file.
func (t *Table) Positions() *genotype.Positions { return t.positions }

// Annotated reports whether the file carries precomputed site annotations.
func (t *Table) Annotated() bool { return t.annotated }

// Stats returns the cache counters.
func (t *Table) Stats() Stats {
	return Stats{Blocks: t.blocks.Stats(), Annotations: t.annotations.Stats()}
}

// Kind implements genotype.Table.
func (t *Table) Kind() genotype.Kind { return genotype.HDF5 }

// NumSamples implements genotype.Table.
func (t *Table) NumSamples() int { return t.samples.Len() }

// NumSites implements genotype.Table.
func (t *Table) NumSites() int { return t.numSites }

// Phased implements genotype.Table.
func (t *Table) Phased() bool { return t.phased }

// AlleleStates implements genotype.Table.
func (t *Table) AlleleStates() genotype.AlleleStates { return genotype.NucleotideAlleles }

// MaxNumAlleles implements genotype.Table.
func (t *Table) MaxNumAlleles() int { return t.maxAlleles }

func blockKey(sample, block int) int64 { return int64(sample)<<33 + int64(block) }

// block returns the calls of sample in site block b.
func (t *Table) block(sample, b int) ([]byte, error) {
	return t.blocks.GetOrCompute(blockKey(sample, b), func() ([]byte, error) {
		start := b * h5io.BlockSize
		n := h5io.BlockSize
		if start+n > t.numSites {
			n = t.numSites - start
		}
		name := t.samples.Name(sample)
		t.mu.Lock()
		calls, err := t.r.ReadUint8(h5io.CallsPath(name), start, n)
		t.mu.Unlock()
		if err != nil {
			return nil, errors.E(err, fmt.Sprintf("h5: reading taxon %s sites [%d,%d)", name, start, start+n))
		}
		if len(calls) != n {
			return nil, errors.E(errors.Integrity,
				fmt.Sprintf("h5: taxon %s has %d calls in block %d, want %d", name, len(calls), b, n))
		}
		return calls, nil
	})
}

// Genotype implements genotype.Table.
func (t *Table) Genotype(sample, site int) (byte, error) {
	if err := genotype.CheckCell(t, sample, site); err != nil {
		return genotype.Missing, err
	}
	calls, err := t.block(sample, site/h5io.BlockSize)
	if err != nil {
		return genotype.Missing, err
	}
	return calls[site&blockMask], nil
}

// SampleRange implements genotype.Table.
func (t *Table) SampleRange(sample, start, end int) ([]byte, error) {
	if err := genotype.CheckRange(t, sample, start, end); err != nil {
		return nil, err
	}
	out := make([]byte, 0, end-start)
	for site := start; site < end; {
		calls, err := t.block(sample, site/h5io.BlockSize)
		if err != nil {
			return nil, err
		}
		i := site & blockMask
		n := len(calls) - i
		if site+n > end {
			n = end - site
		}
		out = append(out, calls[i:i+n]...)
		site += n
	}
	return out, nil
}

// SampleRow implements genotype.Table.
func (t *Table) SampleRow(sample int) ([]byte, error) {
	return t.SampleRange(sample, 0, t.numSites)
}

// SiteColumn implements genotype.Table.
func (t *Table) SiteColumn(site int) ([]byte, error) {
	return genotype.ColumnFromCells(t, site)
}

// Transpose implements genotype.Table. The file is chunked by site block
// within each sample, so only per-sample access is supported.
func (t *Table) Transpose(siteInnerLoop bool) error {
	return genotype.Unsupported("transpose", genotype.HDF5)
}

// SiteOptimized implements genotype.Table.
func (t *Table) SiteOptimized() bool { return false }

// ReuseKey implements genotype.Table.
func (t *Table) ReuseKey() genotype.ReuseKey { return genotype.SelfKey(t) }

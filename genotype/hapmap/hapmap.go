// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package hapmap implements a genotype.Table over a BGZF-compressed Hapmap
// file and its .lix line index. Sites are parsed on demand, one interval of
// lines at a time, and parsed intervals are kept in a bounded cache. Every
// interval fault schedules a background parse of the intervals that follow
// it.
package hapmap

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/genomatrix/encoding/lineindex"
	"github.com/grailbio/genomatrix/genotype"
	"github.com/grailbio/genomatrix/internal/inflight"
	"github.com/grailbio/genomatrix/internal/lru"
	"github.com/grailbio/genomatrix/internal/sysmem"
	"github.com/grailbio/genomatrix/sched"
	pkgerrors "github.com/pkg/errors"
)

// Opts configures a Table. Zero fields take defaults.
type Opts struct {
	// Scheduler runs interval prefetch. Default: a pool owned by the table.
	Scheduler sched.Scheduler
	// SiteCacheSize bounds the single-site cache. Default 1000.
	SiteCacheSize int
	// BlockCacheSize bounds the number of cached intervals. Default: one
	// third of MaxMemory divided by the size of an interval, capped at 110
	// per CPU.
	BlockCacheSize int
	// LookAhead is the number of intervals a prefetch task parses past the
	// first one. Default 100; negative disables look-ahead.
	LookAhead int
	// MaxMemory overrides the process memory ceiling. Default sysmem.Max().
	MaxMemory int64
	// Phased marks calls as phased.
	Phased bool
	// IndexPath overrides the index location. Default lineindex.Path(path).
	IndexPath string
}

const (
	defaultSiteCacheSize = 1000
	defaultLookAhead     = 100
	blocksPerCPU         = 110
	// cellCost is the assumed memory cost of one cached call.
	cellCost = 3
)

// Stats reports cache and parse activity.
type Stats struct {
	SiteCache     lru.Stats
	IntervalCache lru.Stats
	// Parses counts intervals parsed on behalf of a caller.
	Parses int64
	// Prefetched counts intervals parsed in the background.
	Prefetched int64
	// Readers counts data file handles opened.
	Readers int64
}

// Table is the indexed-text backend.
type Table struct {
	path     string
	opts     Opts
	index    *lineindex.Index
	enc      Encoding
	samples  *genotype.SampleList
	sites    *genotype.Positions
	pool     *sched.Pool // owned, if Opts.Scheduler was nil
	readers  readerPool
	siteRows *lru.Cache[int, []byte]
	// intervals[i][j] holds the calls of site i*LinesPerInterval+j.
	intervals *lru.Cache[int, [][]byte]
	inflight  *inflight.Set

	parses, prefetched atomic.Int64
}

// Open opens the Hapmap file at path. Its index must already exist; see
// lineindex.Build. ctx is used for all file access and must remain valid
// until Close.
func Open(ctx context.Context, path string, opts Opts) (*Table, error) {
	if opts.IndexPath == "" {
		opts.IndexPath = lineindex.Path(path)
	}
	index, err := readIndex(ctx, opts.IndexPath)
	if err != nil {
		return nil, err
	}
	names, err := SampleNames(index.Header[len(index.Header)-1])
	if err != nil {
		return nil, errors.E(err, path)
	}
	samples, err := genotype.NewSampleList(names)
	if err != nil {
		return nil, errors.E(err, path)
	}
	sites := make([]genotype.Position, index.NumLines)
	for i, cols := range index.Columns {
		if sites[i], err = ParsePosition(cols, i); err != nil {
			return nil, errors.E(err, path)
		}
	}
	positions, err := genotype.NewPositions(sites)
	if err != nil {
		return nil, errors.E(err, path)
	}

	t := &Table{
		path:     path,
		opts:     opts,
		index:    index,
		samples:  samples,
		sites:    positions,
		readers:  readerPool{ctx: ctx, path: path},
		inflight: inflight.New(),
	}
	if err := t.checkHeader(); err != nil {
		t.readers.close() // nolint: errcheck
		return nil, err
	}
	if t.opts.Scheduler == nil {
		t.pool = sched.NewPool(sched.PoolOpts{})
		t.opts.Scheduler = t.pool
	}
	if t.opts.SiteCacheSize <= 0 {
		t.opts.SiteCacheSize = defaultSiteCacheSize
	}
	if t.opts.LookAhead == 0 {
		t.opts.LookAhead = defaultLookAhead
	} else if t.opts.LookAhead < 0 {
		t.opts.LookAhead = 0
	}
	if t.opts.BlockCacheSize <= 0 {
		t.opts.BlockCacheSize = blockCacheSize(t.opts.MaxMemory, samples.Len(), index.LinesPerInterval)
	}
	t.siteRows = lru.New[int, []byte](t.opts.SiteCacheSize)
	t.intervals = lru.New[int, [][]byte](t.opts.BlockCacheSize)
	t.intervals.OnEvict = func(i int, _ [][]byte) {
		log.Debug.Printf("hapmap: %s: evicted interval %d", path, i)
	}
	log.Printf("hapmap: %s: %d samples, %d sites, %s calls, caching %d intervals of %d sites",
		path, samples.Len(), index.NumLines, t.enc, t.opts.BlockCacheSize, index.LinesPerInterval)
	return t, nil
}

func blockCacheSize(maxMemory int64, numSamples, linesPerInterval int) int {
	if maxMemory <= 0 {
		maxMemory = sysmem.Max()
	}
	n := int64(blocksPerCPU * runtime.NumCPU())
	if numSamples > 0 {
		if m := maxMemory / 3 / (int64(numSamples) * int64(linesPerInterval) * cellCost); m < n {
			n = m
		}
	}
	if n < 1 {
		n = 1
	}
	return int(n)
}

func readIndex(ctx context.Context, path string) (*lineindex.Index, error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "hapmap: opening index "+path)
	}
	defer f.Close(ctx) // nolint: errcheck
	index, err := lineindex.Read(f.Reader(ctx))
	if err != nil {
		return nil, errors.E(err, "hapmap: reading index "+path)
	}
	if len(index.Header) == 0 {
		return nil, errors.E(errors.Integrity, "hapmap: index "+path+" has no header")
	}
	return index, nil
}

// checkHeader verifies that the data file matches the index, and detects
// the call encoding from the first data line.
func (t *Table) checkHeader() error {
	r, err := t.readers.get()
	if err != nil {
		return err
	}
	var header []string
	for len(header) < t.index.HeaderLines {
		line, err := r.readLine()
		if err != nil {
			t.readers.discard(r)
			return errors.E(errors.Integrity, "hapmap: reading header of "+t.path, err)
		}
		if line[0] == t.index.CommentChar {
			continue
		}
		header = append(header, string(line))
	}
	if err := t.index.CheckHeader(header); err != nil {
		t.readers.discard(r)
		return errors.E(err, t.path)
	}
	t.enc = OneLetter
	if t.index.NumLines > 0 {
		line, err := r.readLine()
		if err != nil {
			t.readers.discard(r)
			return errors.E(errors.Integrity, "hapmap: reading first site of "+t.path, err)
		}
		if t.enc, err = DetectEncoding(line); err != nil {
			t.readers.discard(r)
			return errors.E(err, t.path)
		}
	}
	t.readers.put(r)
	return nil
}

// Close stops prefetch (if the table owns its scheduler) and closes the
// data file handles.
func (t *Table) Close() error {
	var err error
	if t.pool != nil {
		err = t.pool.Close()
	}
	if cerr := t.readers.close(); err == nil {
		err = cerr
	}
	return err
}

// Path returns the data file path.
func (t *Table) Path() string { return t.path }

// Encoding returns the call encoding of the file.
func (t *Table) Encoding() Encoding { return t.enc }

// Samples returns the sample names.
func (t *Table) Samples() *genotype.SampleList { return t.samples }

// Positions returns the site coordinates from the index.
func (t *Table) Positions() *genotype.Positions { return t.sites }

// Index returns the line index.
func (t *Table) Index() *lineindex.Index { return t.index }

// Stats returns the cache counters.
func (t *Table) Stats() Stats {
	return Stats{
		SiteCache:     t.siteRows.Stats(),
		IntervalCache: t.intervals.Stats(),
		Parses:        t.parses.Load(),
		Prefetched:    t.prefetched.Load(),
		Readers:       t.readers.opened.Load(),
	}
}

// IntervalCached reports whether the interval holding site is resident.
func (t *Table) IntervalCached(site int) bool {
	i, _ := t.index.Interval(site)
	return t.intervals.Contains(i)
}

// Kind implements genotype.Table.
func (t *Table) Kind() genotype.Kind { return genotype.IndexedText }

// NumSamples implements genotype.Table.
func (t *Table) NumSamples() int { return t.samples.Len() }

// NumSites implements genotype.Table.
func (t *Table) NumSites() int { return t.index.NumLines }

// Phased implements genotype.Table.
func (t *Table) Phased() bool { return t.opts.Phased }

// AlleleStates implements genotype.Table.
func (t *Table) AlleleStates() genotype.AlleleStates { return genotype.NucleotideAlleles }

// MaxNumAlleles implements genotype.Table.
func (t *Table) MaxNumAlleles() int { return genotype.DefaultMaxNumAlleles }

// Genotype implements genotype.Table.
func (t *Table) Genotype(sample, site int) (byte, error) {
	if err := genotype.CheckCell(t, sample, site); err != nil {
		return genotype.Missing, err
	}
	if row, ok := t.siteRows.Get(site); ok {
		return row[sample], nil
	}
	row, err := t.site(site)
	if err != nil {
		return genotype.Missing, err
	}
	t.siteRows.Add(site, row)
	return row[sample], nil
}

// SampleRange implements genotype.Table.
func (t *Table) SampleRange(sample, start, end int) ([]byte, error) {
	if err := genotype.CheckRange(t, sample, start, end); err != nil {
		return nil, err
	}
	out := make([]byte, 0, end-start)
	for site := start; site < end; {
		i, j := t.index.Interval(site)
		rows, err := t.interval(i)
		if err != nil {
			return nil, err
		}
		for ; j < len(rows) && site < end; j++ {
			out = append(out, rows[j][sample])
			site++
		}
	}
	return out, nil
}

// SampleRow implements genotype.Table.
func (t *Table) SampleRow(sample int) ([]byte, error) {
	return t.SampleRange(sample, 0, t.NumSites())
}

// SiteColumn implements genotype.Table.
func (t *Table) SiteColumn(site int) ([]byte, error) {
	if site < 0 || site >= t.NumSites() {
		return nil, genotype.OutOfRange("site", site, t.NumSites())
	}
	row, err := t.site(site)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), row...), nil
}

// Transpose implements genotype.Table. Hapmap files are stored by site and
// cannot be reoriented.
func (t *Table) Transpose(bool) error { return genotype.Unsupported("transpose", genotype.IndexedText) }

// SiteOptimized implements genotype.Table.
func (t *Table) SiteOptimized() bool { return true }

// ReuseKey implements genotype.Table.
func (t *Table) ReuseKey() genotype.ReuseKey { return genotype.SelfKey(t) }

// site returns the calls of site. The result must not be modified.
func (t *Table) site(site int) ([]byte, error) {
	i, j := t.index.Interval(site)
	rows, err := t.interval(i)
	if err != nil {
		return nil, err
	}
	return rows[j], nil
}

// interval returns the calls of interval i, parsing it if it is not cached.
// A fault schedules the following intervals.
func (t *Table) interval(i int) ([][]byte, error) {
	if rows, ok := t.intervals.Get(i); ok {
		return rows, nil
	}
	rows, err := t.intervals.GetOrCompute(i, func() ([][]byte, error) {
		t.parses.Add(1)
		return t.parseInterval(i)
	})
	if err != nil {
		return nil, err
	}
	t.prefetch(i + 1)
	return rows, nil
}

// parseInterval reads every line of interval i.
func (t *Table) parseInterval(i int) ([][]byte, error) {
	r, err := t.readers.get()
	if err != nil {
		return nil, err
	}
	if err := r.seek(t.index.Intervals[i]); err != nil {
		t.readers.discard(r)
		return nil, pkgerrors.Wrapf(err, "hapmap: %s: seeking to interval %d", t.path, i)
	}
	rows, err := t.readInterval(r, i)
	if err != nil {
		t.readers.discard(r)
		return nil, err
	}
	t.readers.put(r)
	return rows, nil
}

// readInterval parses interval i from r, which must be positioned at its
// first line.
func (t *Table) readInterval(r *reader, i int) ([][]byte, error) {
	start, end := t.index.IntervalLines(i)
	rows := make([][]byte, end-start)
	for j := range rows {
		line, err := r.readLine()
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "hapmap: %s: reading site %d", t.path, start+j)
		}
		rows[j] = make([]byte, t.NumSamples())
		if err := ParseLine(line, t.enc, rows[j], start+j, t.path); err != nil {
			return nil, err
		}
	}
	log.Debug.Printf("hapmap: %s: parsed interval %d (sites [%d,%d))", t.path, i, start, end)
	return rows, nil
}

// prefetch schedules a background parse of interval first and up to
// LookAhead intervals after it. The task stops at the first interval that
// is already cached or claimed by another task. Readers stay positioned
// between consecutive intervals, so the look-ahead never seeks.
func (t *Table) prefetch(first int) {
	if first >= t.index.NumIntervals() || t.intervals.Contains(first) || !t.inflight.Add(int64(first)) {
		return
	}
	ok := t.opts.Scheduler.Schedule(fmt.Sprintf("hapmap interval %d", first), func() error {
		defer t.inflight.Remove(int64(first))
		if t.intervals.Contains(first) {
			return nil
		}
		r, err := t.readers.get()
		if err != nil {
			return err
		}
		if err := r.seek(t.index.Intervals[first]); err != nil {
			t.readers.discard(r)
			return pkgerrors.Wrapf(err, "hapmap: %s: seeking to interval %d", t.path, first)
		}
		for i := first; i <= first+t.opts.LookAhead && i < t.index.NumIntervals(); i++ {
			if i > first {
				if t.intervals.Contains(i) || !t.inflight.Add(int64(i)) {
					break
				}
			}
			rows, err := t.readInterval(r, i)
			if err == nil {
				t.intervals.Add(i, rows)
				t.prefetched.Add(1)
			}
			if i > first {
				t.inflight.Remove(int64(i))
			}
			if err != nil {
				t.readers.discard(r)
				log.Error.Printf("hapmap: prefetch of interval %d failed: %v", i, err)
				return err
			}
		}
		t.readers.put(r)
		return nil
	})
	if !ok {
		t.inflight.Remove(int64(first))
	}
}

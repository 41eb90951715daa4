// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package genotype

import (
	"fmt"
	"sort"

	"github.com/antzucaro/matchr"
	"github.com/grailbio/base/errors"
)

// SampleList maps sample names to row indexes.
type SampleList struct {
	names []string
	index map[string]int
}

// NewSampleList builds a list from names. Duplicate names are rejected.
func NewSampleList(names []string) (*SampleList, error) {
	l := &SampleList{names: names, index: make(map[string]int, len(names))}
	for i, n := range names {
		if j, ok := l.index[n]; ok {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("duplicate sample name %q at %d and %d", n, j, i))
		}
		l.index[n] = i
	}
	return l, nil
}

// Len returns the number of samples.
func (l *SampleList) Len() int { return len(l.names) }

// Name returns the name of sample i.
func (l *SampleList) Name(i int) string { return l.names[i] }

// Names returns every name in index order. The result must not be modified.
func (l *SampleList) Names() []string { return l.names }

// Index returns the position of name. When name is unknown the error suggests
// the closest known name.
func (l *SampleList) Index(name string) (int, error) {
	if i, ok := l.index[name]; ok {
		return i, nil
	}
	msg := fmt.Sprintf("unknown sample %q", name)
	if s := l.closest(name); s != "" {
		msg += fmt.Sprintf("; did you mean %q?", s)
	}
	return -1, errors.E(errors.NotExist, msg)
}

func (l *SampleList) closest(name string) string {
	best, bestDist := "", -1
	for _, n := range l.names {
		d := matchr.Levenshtein(name, n)
		if bestDist < 0 || d < bestDist {
			best, bestDist = n, d
		}
	}
	if bestDist < 0 || bestDist > len(name)/2+1 {
		return ""
	}
	return best
}

// Position is the physical coordinate of one site.
type Position struct {
	Chrom string
	Pos   int32
	// Name is the marker name, e.g. the rs# column of a Hapmap file.
	Name string
	// Alleles is the declared allele string, e.g. "A/C".
	Alleles string
}

// Positions is a list of site coordinates sorted by chromosome order of
// first appearance and then by position.
type Positions struct {
	sites  []Position
	chroms map[string][2]int // chrom -> [first, end) site range
}

// NewPositions indexes sites. Sites of one chromosome must be contiguous and
// sorted by position.
func NewPositions(sites []Position) (*Positions, error) {
	p := &Positions{sites: sites, chroms: make(map[string][2]int)}
	for i := 0; i < len(sites); {
		j := i + 1
		for j < len(sites) && sites[j].Chrom == sites[i].Chrom {
			if sites[j].Pos < sites[j-1].Pos {
				return nil, errors.E(errors.Invalid,
					fmt.Sprintf("site %d (%s:%d) is out of order", j, sites[j].Chrom, sites[j].Pos))
			}
			j++
		}
		if _, ok := p.chroms[sites[i].Chrom]; ok {
			return nil, errors.E(errors.Invalid,
				fmt.Sprintf("chromosome %s is not contiguous (again at site %d)", sites[i].Chrom, i))
		}
		p.chroms[sites[i].Chrom] = [2]int{i, j}
		i = j
	}
	return p, nil
}

// Len returns the number of sites.
func (p *Positions) Len() int { return len(p.sites) }

// Site returns the coordinate of site i.
func (p *Positions) Site(i int) Position { return p.sites[i] }

// SiteOf returns the site at (chrom, pos). If there is no such site it
// returns -(insertion point)-1, where the insertion point is the first site
// after pos on chrom.
func (p *Positions) SiteOf(chrom string, pos int32) int {
	r, ok := p.chroms[chrom]
	if !ok {
		return -1
	}
	i := r[0] + sort.Search(r[1]-r[0], func(k int) bool { return p.sites[r[0]+k].Pos >= pos })
	if i < r[1] && p.sites[i].Pos == pos {
		return i
	}
	return -(i + 1)
}

// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package genotype

import (
	"fmt"

	"github.com/grailbio/base/errors"
)

// Absent marks a logical index with no underlying counterpart.
const Absent = -1

// Index maps logical positions on one axis to positions in an underlying
// table. The zero value is the empty identity. An Index with no explicit
// mapping is the identity over its length.
type Index struct {
	n int
	m []int
}

// IdentityIndex returns the identity over n positions.
func IdentityIndex(n int) Index { return Index{n: n} }

// NewIndex returns the mapping i -> m[i]. Entries equal to Absent read as
// missing. m is retained, not copied.
func NewIndex(m []int) Index { return Index{n: len(m), m: m} }

// RangeIndex selects underlying positions [start, end).
func RangeIndex(start, end int) Index {
	m := make([]int, end-start)
	for i := range m {
		m[i] = start + i
	}
	return NewIndex(m)
}

// Len returns the number of logical positions.
func (x Index) Len() int { return x.n }

// Identity reports whether x has no translations.
func (x Index) Identity() bool { return x.m == nil }

// Map translates logical position i. It returns Absent if i has no
// underlying position.
func (x Index) Map(i int) int {
	if x.m == nil {
		return i
	}
	return x.m[i]
}

// Translations returns the full mapping as a slice.
func (x Index) Translations() []int {
	out := make([]int, x.n)
	for i := range out {
		out[i] = x.Map(i)
	}
	return out
}

// Compose returns the index that first applies x, then y: i -> y.Map(x.Map(i)).
func (x Index) Compose(y Index) Index {
	if x.Identity() && y.Identity() {
		return IdentityIndex(x.n)
	}
	m := make([]int, x.n)
	for i := range m {
		j := x.Map(i)
		if j == Absent {
			m[i] = Absent
		} else {
			m[i] = y.Map(j)
		}
	}
	return NewIndex(m)
}

// Validate checks that every mapped position lies in [0, n).
func (x Index) Validate(what string, n int) error {
	if x.m == nil {
		if x.n > n {
			return errors.E(errors.Invalid, fmt.Sprintf("%s identity index of length %d exceeds %d", what, x.n, n))
		}
		return nil
	}
	for i, j := range x.m {
		if j != Absent && (j < 0 || j >= n) {
			return errors.E(errors.Invalid, fmt.Sprintf("%s index %d maps to %d, out of range [0,%d)", what, i, j, n))
		}
	}
	return nil
}

// Translation is a pair of indexes, one per axis.
type Translation struct {
	Samples Index
	Sites   Index
}

// HasSampleTranslations reports whether the sample axis is not the identity.
func (t Translation) HasSampleTranslations() bool { return !t.Samples.Identity() }

// HasSiteTranslations reports whether the site axis is not the identity.
func (t Translation) HasSiteTranslations() bool { return !t.Sites.Identity() }

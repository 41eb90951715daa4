// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package dense_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/genomatrix/genotype"
	"github.com/grailbio/genomatrix/genotype/dense"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoByThree is sample 0: A/A A/C N/N, sample 1: C/C A/A G/T.
func twoByThree(t *testing.T) *dense.Table {
	b := dense.NewBuilder(2, 3, false, dense.Opts{})
	require.NoError(t, b.SetStrings(0, 0, []string{"A:A", "A:C", "N"}))
	require.NoError(t, b.SetStrings(1, 0, []string{"C:C", "A:A", "G:T"}))
	return b.Build()
}

func TestSmallTable(t *testing.T) {
	tab := twoByThree(t)
	expect.EQ(t, tab.Kind(), genotype.Dense)
	expect.EQ(t, tab.NumSamples(), 2)
	expect.EQ(t, tab.NumSites(), 3)

	col, err := tab.SiteColumn(0)
	require.NoError(t, err)
	c := genotype.CountAlleles(col, tab.MaxNumAlleles())
	// A and C tie 2:2; the lower code wins.
	expect.EQ(t, c.Major(), genotype.AlleleA)
	assert.InDelta(t, 0.5, c.MajorFrequency(), 1e-12)

	col, err = tab.SiteColumn(1)
	require.NoError(t, err)
	c = genotype.CountAlleles(col, tab.MaxNumAlleles())
	expect.EQ(t, c.Major(), genotype.AlleleA)
	assert.InDelta(t, 0.75, c.MajorFrequency(), 1e-12)
	expect.EQ(t, c.Minor(), genotype.AlleleC)

	counts, err := genotype.SiteCallCounts(tab, 2)
	require.NoError(t, err)
	expect.EQ(t, counts.GametesNonMissing, 2)
	expect.EQ(t, counts.NonMissing, 1)
	expect.EQ(t, counts.Heterozygous, 1)

	s, err := genotype.String(tab, 1, 2)
	require.NoError(t, err)
	expect.EQ(t, s, "G:T")
	s, err = genotype.RangeString(tab, 0, 0, 3)
	require.NoError(t, err)
	expect.EQ(t, s, "A:A;A:C;N:N")
	het, err := genotype.IsHeterozygousAt(tab, 0, 1)
	require.NoError(t, err)
	assert.True(t, het)
}

func TestOutOfRange(t *testing.T) {
	tab := twoByThree(t)
	_, err := tab.Genotype(2, 0)
	assert.True(t, errors.Is(errors.Invalid, err))
	_, err = tab.Genotype(0, -1)
	assert.True(t, errors.Is(errors.Invalid, err))
	_, err = tab.SampleRange(0, 2, 4)
	assert.True(t, errors.Is(errors.Invalid, err))
	_, err = tab.SiteColumn(3)
	assert.True(t, errors.Is(errors.Invalid, err))
}

func randomCalls(r *rand.Rand, samples, sites int) [][]byte {
	calls := make([][]byte, samples)
	for i := range calls {
		calls[i] = make([]byte, sites)
		for j := range calls[i] {
			if r.Intn(10) == 0 {
				calls[i][j] = genotype.Missing
			} else {
				calls[i][j] = genotype.Diploid(byte(r.Intn(6)), byte(r.Intn(6)))
			}
		}
	}
	return calls
}

func TestRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(0))
	calls := randomCalls(r, 7, 13)
	b := dense.NewBuilder(7, 13, true, dense.Opts{})
	for s := range calls {
		for site, g := range calls[s] {
			require.NoError(t, b.Set(s, site, g))
		}
	}
	tab := b.Build()
	assert.True(t, tab.SiteOptimized())
	for s := range calls {
		row, err := tab.SampleRow(s)
		require.NoError(t, err)
		expect.EQ(t, row, calls[s])
		for site, g := range calls[s] {
			got, err := tab.Genotype(s, site)
			require.NoError(t, err)
			expect.EQ(t, got, g)
			str, err := genotype.String(tab, s, site)
			require.NoError(t, err)
			back, err := genotype.ParseNucleotide(str)
			require.NoError(t, err)
			expect.EQ(t, back, g, str)
		}
	}
}

func TestTransposeIdempotence(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	calls := randomCalls(r, 5, 9)
	tab, err := dense.New(calls, dense.Opts{})
	require.NoError(t, err)
	assert.False(t, tab.SiteOptimized())
	for _, siteInner := range []bool{true, false, true, false} {
		require.NoError(t, tab.Transpose(siteInner))
		expect.EQ(t, tab.SiteOptimized(), !siteInner)
		for s := range calls {
			for site := range calls[s] {
				g, err := tab.Genotype(s, site)
				require.NoError(t, err)
				expect.EQ(t, g, calls[s][site])
			}
		}
		col, err := tab.SiteColumn(4)
		require.NoError(t, err)
		for s := range calls {
			expect.EQ(t, col[s], calls[s][4])
		}
	}
}

func TestBuilderReorder(t *testing.T) {
	b := dense.NewBuilder(3, 2, false, dense.Opts{})
	require.NoError(t, b.SetStrings(0, 0, []string{"A", "C"}))
	require.NoError(t, b.SetStrings(1, 0, []string{"G", "T"}))
	require.NoError(t, b.SetRange(2, 1, []byte{0x01}))
	require.NoError(t, b.ReorderSamples([]int{2, 0, 1}))
	require.NoError(t, b.ReorderSites([]int{1, 0}))
	tab := b.Build()
	row, err := tab.SampleRow(0)
	require.NoError(t, err)
	expect.EQ(t, row, []byte{0x01, genotype.Missing})
	row, err = tab.SampleRow(2)
	require.NoError(t, err)
	expect.EQ(t, row, []byte{0x33, 0x22})

	assert.Error(t, b2().SetRange(0, 1, []byte{1, 2}))
	assert.True(t, errors.Is(errors.Invalid, b2().SetStrings(0, 0, []string{"Q"})))
}

func b2() *dense.Builder { return dense.NewBuilder(1, 2, false, dense.Opts{}) }

func TestPerSiteAlleles(t *testing.T) {
	states := genotype.AlleleStates{{"x", "y"}, {"p", "q", "r"}}
	b := dense.NewBuilder(1, 2, false, dense.Opts{AlleleStates: states, MaxNumAlleles: 3})
	require.NoError(t, b.SetStrings(0, 0, []string{"y:x", "r:r"}))
	require.NoError(t, b.ReorderSites([]int{1, 0}))
	tab := b.Build()
	s, err := genotype.RangeString(tab, 0, 0, 2)
	require.NoError(t, err)
	expect.EQ(t, s, "r:r;y:x")
}

type failingTable struct {
	*dense.Table
	bad int
}

func (f failingTable) SampleRow(sample int) ([]byte, error) {
	if sample == f.bad {
		return nil, fmt.Errorf("read of sample %d failed", sample)
	}
	return f.Table.SampleRow(sample)
}

func TestCopy(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	calls := randomCalls(r, 37, 11)
	src, err := dense.New(calls, dense.Opts{Phased: true})
	require.NoError(t, err)
	for _, opts := range []dense.CopyOpts{{}, {BatchSize: 1, Parallelism: 3}, {BatchSize: 100}} {
		cp, err := dense.Copy(src, opts)
		require.NoError(t, err)
		assert.True(t, cp.Phased())
		for s := range calls {
			row, err := cp.SampleRow(s)
			require.NoError(t, err)
			expect.EQ(t, row, calls[s])
		}
	}

	_, err = dense.Copy(failingTable{src, 20}, dense.CopyOpts{BatchSize: 4, Parallelism: 4})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read of sample 20 failed")
}

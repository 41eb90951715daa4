// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package genotype_test

import (
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/genomatrix/genotype"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleList(t *testing.T) {
	l, err := genotype.NewSampleList([]string{"B73", "Mo17", "CML247"})
	require.NoError(t, err)
	i, err := l.Index("Mo17")
	require.NoError(t, err)
	expect.EQ(t, i, 1)
	_, err = l.Index("Mo18")
	require.Error(t, err)
	assert.True(t, errors.Is(errors.NotExist, err))
	assert.Contains(t, err.Error(), `did you mean "Mo17"`)

	_, err = genotype.NewSampleList([]string{"a", "a"})
	assert.True(t, errors.Is(errors.Invalid, err))
}

func TestPositions(t *testing.T) {
	p, err := genotype.NewPositions([]genotype.Position{
		{Chrom: "1", Pos: 10}, {Chrom: "1", Pos: 20}, {Chrom: "1", Pos: 30},
		{Chrom: "2", Pos: 5}, {Chrom: "2", Pos: 15},
	})
	require.NoError(t, err)
	expect.EQ(t, p.SiteOf("1", 20), 1)
	expect.EQ(t, p.SiteOf("1", 25), -3)
	expect.EQ(t, p.SiteOf("2", 1), -4)
	expect.EQ(t, p.SiteOf("2", 99), -6)
	expect.EQ(t, p.SiteOf("3", 1), -1)

	_, err = genotype.NewPositions([]genotype.Position{{Chrom: "1", Pos: 10}, {Chrom: "1", Pos: 5}})
	assert.Error(t, err)
	_, err = genotype.NewPositions([]genotype.Position{{Chrom: "1"}, {Chrom: "2"}, {Chrom: "1"}})
	assert.Error(t, err)
}

// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package genotype_test

import (
	"testing"

	"github.com/grailbio/genomatrix/genotype"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
)

func TestCellMask(t *testing.T) {
	for _, bySite := range []bool{false, true} {
		m := genotype.NewCellMask(3, 5, bySite)
		m.Set(1, 2)
		m.Set(1, 4)
		m.Set(2, 2)
		assert.True(t, m.Masked(1, 2))
		assert.False(t, m.Masked(0, 2))
		expect.EQ(t, m.ForSample(1).ToArray(), []uint32{2, 4})
		expect.EQ(t, m.ForSite(2).ToArray(), []uint32{1, 2})
		expect.EQ(t, m.SiteOptimized(), bySite)
		if !bySite {
			assert.False(t, m.SampleMaskedHint(0))
		} else {
			assert.False(t, m.SiteMaskedHint(0))
		}
	}
}

func TestAxisMask(t *testing.T) {
	m := genotype.NewSiteMask(3, 5, 1, 3)
	assert.True(t, m.Masked(0, 1))
	assert.False(t, m.Masked(0, 2))
	expect.EQ(t, m.ForSite(3).ToArray(), []uint32{0, 1, 2})
	expect.EQ(t, m.ForSite(2).GetCardinality(), uint64(0))
	expect.EQ(t, m.ForSample(0).ToArray(), []uint32{1, 3})

	s := genotype.NewSampleMask(3, 4, 2)
	assert.True(t, s.Masked(2, 0))
	assert.False(t, s.Masked(1, 0))
	expect.EQ(t, s.ForSample(2).ToArray(), []uint32{0, 1, 2, 3})
	assert.False(t, s.SampleMaskedHint(1))
}

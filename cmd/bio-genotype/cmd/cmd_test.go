// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package cmd

import (
	"bytes"
	"context"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/genomatrix/encoding/h5io"
	"github.com/grailbio/genomatrix/encoding/lineindex"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hmp = "rs#\talleles\tchrom\tpos\tstrand\tassembly#\tcenter\tprotLSID\tassayLSID\tpanelLSID\tQCcode\tB73\tMo17\n" +
	"S0\tA/C\t1\t100\t+\tNA\tNA\tNA\tNA\tNA\tNA\tAA\tCC\n" +
	"S1\tA/C\t1\t200\t+\tNA\tNA\tNA\tNA\tNA\tNA\tAC\tAA\n" +
	"S2\tG\t1\t300\t+\tNA\tNA\tNA\tNA\tNA\tNA\tNN\tGG\n"

func TestBgzipAndStats(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, dir)
	ctx := context.Background()
	src := filepath.Join(dir, "in.txt")
	require.NoError(t, ioutil.WriteFile(src, []byte(hmp), 0644))
	dst := filepath.Join(dir, "out.hmp.txt.gz")

	var out bytes.Buffer
	require.NoError(t, bgzip(ctx, &out, src, dst, lineindex.Opts{LinesPerInterval: 2}))
	expect.EQ(t, out.String(), dst+": 3 sites, 2 intervals\n")

	out.Reset()
	require.NoError(t, index(ctx, &out, dst, lineindex.Opts{LinesPerInterval: 2}))
	expect.EQ(t, out.String(), dst+".lix: 3 sites, 2 intervals\n")

	out.Reset()
	require.NoError(t, stats(ctx, &out, dst, statsFlags{end: -1}))
	expect.EQ(t, strings.Split(out.String(), "\n"), []string{
		strings.TrimSuffix(statsHeader, "\n"),
		"0\t1\t100\tS0\tA\t0.5000\tC\t0.5000\t1.0000\t0.0000",
		"1\t1\t200\tS1\tA\t0.7500\tC\t0.2500\t1.0000\t0.5000",
		"2\t1\t300\tS2\tG\t1.0000\tN\t0.0000\t0.5000\t0.0000",
		"",
	})

	out.Reset()
	require.NoError(t, stats(ctx, &out, dst, statsFlags{start: 1, end: 2}))
	expect.EQ(t, strings.Count(out.String(), "\n"), 2)
	assert.True(t, strings.Contains(out.String(), "\n1\t1\t200\t"), out.String())

	err := stats(ctx, &out, dst, statsFlags{start: 4, end: -1})
	assert.True(t, errors.Is(errors.Invalid, err))
	err = stats(ctx, &out, filepath.Join(dir, "missing.hmp.txt.gz"), statsFlags{end: -1})
	assert.Error(t, err)
}

func TestWriteH5RequiresNative(t *testing.T) {
	if h5io.Native {
		t.Skip("built with HDF5 support")
	}
	err := writeH5(context.Background(), "in.hmp.txt.gz", "out.h5", false)
	assert.True(t, errors.Is(errors.NotSupported, err))
}

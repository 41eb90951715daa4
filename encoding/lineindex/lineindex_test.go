// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package lineindex

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"strings"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/genomatrix/encoding/bgzf"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeData writes lines as a BGZF file with tiny blocks and returns the
// virtual offset each line starts at. The last line is terminated only if
// trailing is set.
func writeData(t *testing.T, lines []string, eol string, trailing bool) ([]byte, []uint64) {
	var buf bytes.Buffer
	w, err := bgzf.NewWriterParams(&buf, 1, 37, -1)
	require.NoError(t, err)
	var offsets []uint64
	for i, line := range lines {
		offsets = append(offsets, w.VOffset())
		if i < len(lines)-1 || trailing {
			line += eol
		}
		_, err := w.Write([]byte(line))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes(), offsets
}

func hapmapLines(n int) []string {
	lines := []string{
		"## generated",
		"rs#\talleles\tchrom\tpos\tstrand\tassembly#\tcenter\tprotLSID\tassayLSID\tpanelLSID\tQCcode\tB73\tMo17",
	}
	for i := 0; i < n; i++ {
		lines = append(lines, fmt.Sprintf("S%d\tA/C\t1\t%d\t+\tNA\tNA\tNA\tNA\tNA\tNA\tAA\tCC", i, 100*(i+1)))
	}
	return lines
}

func TestBuild(t *testing.T) {
	for _, eol := range []string{"\n", "\r\n"} {
		for _, trailing := range []bool{true, false} {
			lines := hapmapLines(10)
			data, offsets := writeData(t, lines, eol, trailing)
			x, err := Build(bytes.NewReader(data), Opts{LinesPerInterval: 4})
			require.NoError(t, err)
			assert.Equal(t, []string{lines[1]}, x.Header)
			assert.Equal(t, 10, x.NumLines)
			assert.Equal(t, 3, x.NumIntervals())
			assert.Equal(t, []uint64{offsets[2], offsets[6], offsets[10]}, x.Intervals)
			assert.Equal(t, []string{"S7", "A/C", "1", "800", "+", "NA", "NA", "NA", "NA", "NA", "NA"}, x.Columns[7])
			assert.NoError(t, x.CheckHeader([]string{lines[1]}))

			interval, within := x.Interval(9)
			assert.Equal(t, 2, interval)
			assert.Equal(t, 1, within)
			start, end := x.IntervalLines(2)
			assert.Equal(t, 8, start)
			assert.Equal(t, 10, end)
		}
	}
}

func TestBuildErrors(t *testing.T) {
	lines := hapmapLines(3)
	lines[3] = "S1\tA/C\t1"
	data, _ := writeData(t, lines, "\n", true)
	_, err := Build(bytes.NewReader(data), Opts{})
	assert.True(t, errors.Is(errors.Integrity, err))
	assert.Contains(t, err.Error(), "line 4 has 3 columns")

	data, _ = writeData(t, []string{"# only a comment"}, "\n", true)
	_, err = Build(bytes.NewReader(data), Opts{})
	assert.True(t, errors.Is(errors.Integrity, err))

	_, err = Build(strings.NewReader("not bgzf at all"), Opts{})
	assert.True(t, errors.Is(errors.Integrity, err))
}

func TestReadWrite(t *testing.T) {
	data, _ := writeData(t, hapmapLines(25), "\n", true)
	x, err := Build(bytes.NewReader(data), Opts{LinesPerInterval: 7})
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, x))
	y, err := Read(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, x, y)

	// Corrupt one byte of the body and recompress.
	gz, err := gzip.NewReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	raw, err := ioutil.ReadAll(gz)
	require.NoError(t, err)
	raw[len(raw)-9] ^= 1
	var bad bytes.Buffer
	gw := gzip.NewWriter(&bad)
	_, err = gw.Write(raw)
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	_, err = Read(&bad)
	assert.True(t, errors.Is(errors.Integrity, err))

	_, err = Read(bytes.NewReader(buf.Bytes()[:buf.Len()/2]))
	assert.Error(t, err)
	_, err = Read(strings.NewReader("plain text"))
	assert.True(t, errors.Is(errors.Integrity, err))
}

func TestCheckHeader(t *testing.T) {
	x := &Index{Fingerprint: Fingerprint([]string{"a\tb"})}
	assert.NoError(t, x.CheckHeader([]string{"a\tb"}))
	err := x.CheckHeader([]string{"a\tc"})
	assert.True(t, errors.Is(errors.Integrity, err))
	assert.Contains(t, err.Error(), "rebuild the index")
	assert.Equal(t, "g.hmp.txt.gz.lix", Path("g.hmp.txt.gz"))
}

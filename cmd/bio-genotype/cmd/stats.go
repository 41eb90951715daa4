// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/genomatrix/engine"
	"github.com/grailbio/genomatrix/genotype"
	"github.com/grailbio/genomatrix/genotype/h5"
	"github.com/grailbio/genomatrix/genotype/hapmap"
	"github.com/grailbio/genomatrix/sched"
)

type statsFlags struct {
	start, end int
	lookAhead  int
	maxMemory  int64
}

// source is a table opened from a file together with its site coordinates.
type source struct {
	genotype.Table
	positions *genotype.Positions
	close     func() error
}

func openSource(ctx context.Context, path string, s sched.Scheduler, flags statsFlags) (source, error) {
	if strings.HasSuffix(path, ".h5") {
		t, err := h5.OpenFile(path, h5.Opts{MaxMemory: flags.maxMemory})
		if err != nil {
			return source{}, err
		}
		return source{t, t.Positions(), t.Close}, nil
	}
	t, err := hapmap.Open(ctx, path, hapmap.Opts{
		Scheduler: s,
		LookAhead: flags.lookAhead,
		MaxMemory: flags.maxMemory,
	})
	if err != nil {
		return source{}, err
	}
	return source{t, t.Positions(), t.Close}, nil
}

const statsHeader = "site\tchrom\tpos\tname\tmajor\tmajor_freq\tminor\tminor_freq\tnot_missing\thet\n"

func stats(ctx context.Context, out io.Writer, path string, flags statsFlags) (err error) {
	e := engine.New(engine.Opts{})
	src, err := openSource(ctx, path, e.Scheduler(), flags)
	if err != nil {
		e.Close() // nolint: errcheck
		return err
	}
	// The engine's pool runs the table's prefetch; drain it before closing the table.
	defer func() {
		if cerr := e.Close(); err == nil {
			err = cerr
		}
		if cerr := src.close(); err == nil {
			err = cerr
		}
	}()
	end := flags.end
	if end < 0 || end > src.NumSites() {
		end = src.NumSites()
	}
	if flags.start < 0 || flags.start > end {
		return errors.E(errors.Invalid, fmt.Sprintf("site range [%d,%d) out of range [0,%d)", flags.start, end, src.NumSites()))
	}

	freqs := e.Frequencies(src.Table)
	siteStats := e.SiteStats(src.Table)
	alleles := src.AlleleStates()
	w := bufio.NewWriter(out)
	if _, err := w.WriteString(statsHeader); err != nil {
		return err
	}
	for site := flags.start; site < end; site++ {
		c, err := freqs.AlleleCounts(site)
		if err != nil {
			return err
		}
		st, err := siteStats.Get(site)
		if err != nil {
			return err
		}
		major, err := alleles.Allele(site, c.Major())
		if err != nil {
			return err
		}
		minor, err := alleles.Allele(site, c.Minor())
		if err != nil {
			return err
		}
		p := src.positions.Site(site)
		name := p.Name
		if name == "" {
			name = "."
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%.4f\t%s\t%.4f\t%.4f\t%.4f\n",
			site, p.Chrom, p.Pos, name, major, c.MajorFrequency(), minor, c.MinorFrequency(),
			st.PercentNotMissing(), st.ProportionHeterozygous())
	}
	return w.Flush()
}

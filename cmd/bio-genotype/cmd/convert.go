// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/genomatrix/encoding/h5io"
	"github.com/grailbio/genomatrix/encoding/lineindex"
	"github.com/grailbio/genomatrix/genotype/h5"
	"github.com/grailbio/genomatrix/genotype/hapmap"
)

func bgzip(ctx context.Context, out io.Writer, src, dst string, opts lineindex.Opts) error {
	index, err := hapmap.CompressFile(ctx, src, dst, opts)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s: %d sites, %d intervals\n", dst, index.NumLines, index.NumIntervals())
	return err
}

func index(ctx context.Context, out io.Writer, path string, opts lineindex.Opts) error {
	index, err := hapmap.IndexFile(ctx, path, opts)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s: %d sites, %d intervals\n", lineindex.Path(path), index.NumLines, index.NumIntervals())
	return err
}

func writeH5(ctx context.Context, src, dst string, keepOpen bool) (err error) {
	if !h5io.Native {
		return errors.E(errors.NotSupported, "h5: bio-genotype was built without HDF5 support; rebuild with -tags hdf5")
	}
	table, err := hapmap.Open(ctx, src, hapmap.Opts{})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := table.Close(); err == nil {
			err = cerr
		}
	}()
	w, err := h5io.Create(dst)
	if err != nil {
		return err
	}
	if err = h5.Write(w, table, table.Samples(), table.Positions(), h5.WriteOpts{KeepOpen: keepOpen}); err != nil {
		w.Close() // nolint: errcheck
		return errors.E(err, "writing "+dst)
	}
	if err = w.Close(); err != nil {
		return errors.E(err, "closing "+dst)
	}
	log.Printf("wrote %s from %s", dst, src)
	return nil
}

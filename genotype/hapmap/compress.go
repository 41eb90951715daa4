// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package hapmap

import (
	"bufio"
	"context"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/genomatrix/encoding/bgzf"
	"github.com/grailbio/genomatrix/encoding/lineindex"
	"github.com/klauspost/compress/gzip"
	pkgerrors "github.com/pkg/errors"
)

// Compress copies a plain-text Hapmap stream to w in BGZF form and returns
// the line index of the result. Lines are copied unchanged except that the
// last line always gets a terminator.
func Compress(r io.Reader, w io.Writer, opts lineindex.Opts) (*lineindex.Index, error) {
	bw, err := bgzf.NewWriter(w, gzip.DefaultCompression)
	if err != nil {
		return nil, err
	}
	b := lineindex.NewBuilder(opts)
	br := bufio.NewReaderSize(r, 1<<20)
	for lineNo := 1; ; lineNo++ {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			text := line
			if text[len(text)-1] == '\n' {
				text = text[:len(text)-1]
			} else {
				line = append(line, '\n')
			}
			if n := len(text); n > 0 && text[n-1] == '\r' {
				text = text[:n-1]
			}
			if aerr := b.Add(text, bw.VOffset()); aerr != nil {
				return nil, aerr
			}
			if _, werr := bw.Write(line); werr != nil {
				return nil, pkgerrors.Wrapf(werr, "hapmap: writing line %d", lineNo)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "hapmap: reading line %d", lineNo)
		}
	}
	if err := bw.Close(); err != nil {
		return nil, err
	}
	return b.Index()
}

// CompressFile compresses the plain Hapmap file src into dst and writes the
// index of dst next to it.
func CompressFile(ctx context.Context, src, dst string, opts lineindex.Opts) (*lineindex.Index, error) {
	in, err := file.Open(ctx, src)
	if err != nil {
		return nil, errors.E(err, "hapmap: opening "+src)
	}
	defer in.Close(ctx) // nolint: errcheck
	out, err := file.Create(ctx, dst)
	if err != nil {
		return nil, errors.E(err, "hapmap: creating "+dst)
	}
	index, err := Compress(in.Reader(ctx), out.Writer(ctx), opts)
	if cerr := out.Close(ctx); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, errors.E(err, "hapmap: compressing "+src)
	}
	if err := WriteIndex(ctx, lineindex.Path(dst), index); err != nil {
		return nil, err
	}
	log.Printf("hapmap: wrote %s: %d sites in %d intervals", dst, index.NumLines, index.NumIntervals())
	return index, nil
}

// IndexFile builds and writes the index of an existing BGZF Hapmap file.
func IndexFile(ctx context.Context, path string, opts lineindex.Opts) (*lineindex.Index, error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "hapmap: opening "+path)
	}
	defer in.Close(ctx) // nolint: errcheck
	index, err := lineindex.Build(in.Reader(ctx), opts)
	if err != nil {
		return nil, errors.E(err, "hapmap: indexing "+path)
	}
	if err := WriteIndex(ctx, lineindex.Path(path), index); err != nil {
		return nil, err
	}
	log.Printf("hapmap: indexed %s: %d sites in %d intervals", path, index.NumLines, index.NumIntervals())
	return index, nil
}

// WriteIndex writes index to path.
func WriteIndex(ctx context.Context, path string, index *lineindex.Index) error {
	out, err := file.Create(ctx, path)
	if err != nil {
		return errors.E(err, "hapmap: creating "+path)
	}
	err = lineindex.Write(out.Writer(ctx), index)
	if cerr := out.Close(ctx); err == nil {
		err = cerr
	}
	if err != nil {
		return errors.E(err, "hapmap: writing "+path)
	}
	return nil
}

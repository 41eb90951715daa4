// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package h5io reads and writes the subset of HDF5 used by genotype files:
// groups, chunked one-dimensional datasets of uint8, int32 and float32
// values, and scalar int32 and bool attributes on groups.
//
// Paths are slash-separated; leading and trailing slashes are ignored, so
// "Genotypes/" and "/Genotypes" name the same group. Writers create
// intermediate groups as needed.
//
// Mem is an in-memory implementation. Open and Create use the native HDF5
// library and are only available in binaries built with the "hdf5" tag.
package h5io

import (
	"fmt"
	"strings"

	"github.com/grailbio/base/errors"
)

// Reader is read access to an HDF5 file. Implementations are not required to
// be safe for concurrent use.
type Reader interface {
	// Exists reports whether a group or dataset exists at path.
	Exists(path string) bool
	// Len returns the number of elements in the dataset at path.
	Len(path string) (int, error)
	// ReadUint8 reads up to n elements starting at offset. Reads that extend
	// past the end of the dataset are truncated.
	ReadUint8(path string, offset, n int) ([]byte, error)
	// ReadInt32 is ReadUint8 for int32 datasets.
	ReadInt32(path string, offset, n int) ([]int32, error)
	// ReadFloat32 is ReadUint8 for float32 datasets.
	ReadFloat32(path string, offset, n int) ([]float32, error)
	// Int32Attr reads an int32 attribute of the group at path.
	Int32Attr(path, name string) (int32, error)
	// BoolAttr reads a bool attribute of the group at path.
	BoolAttr(path, name string) (bool, error)
	Close() error
}

// Writer is write access to an HDF5 file.
type Writer interface {
	Reader
	// CreateGroup creates the group at path and any missing parents.
	CreateGroup(path string) error
	// WriteUint8 creates a dataset holding data, chunked every chunk
	// elements. Datasets cannot be overwritten.
	WriteUint8(path string, data []byte, chunk int) error
	WriteInt32(path string, data []int32, chunk int) error
	WriteFloat32(path string, data []float32, chunk int) error
	// SetInt32Attr sets an int32 attribute on the group at path.
	SetInt32Attr(path, name string, v int32) error
	// SetBoolAttr sets a bool attribute on the group at path.
	SetBoolAttr(path, name string, v bool) error
}

// Join joins path elements.
func Join(elem ...string) string {
	parts := make([]string, 0, len(elem))
	for _, e := range elem {
		if e = clean(e); e != "" {
			parts = append(parts, e)
		}
	}
	return strings.Join(parts, "/")
}

func clean(path string) string { return strings.Trim(path, "/") }

// parents returns the proper ancestors of path, outermost first.
func parents(path string) []string {
	path = clean(path)
	var out []string
	for i := 0; i < len(path); i++ {
		if path[i] == '/' {
			out = append(out, path[:i])
		}
	}
	return out
}

// clip bounds a read of n elements at offset to a dataset of length size.
func clip(path string, offset, n, size int) (int, error) {
	if offset < 0 || n < 0 || offset > size {
		return 0, errors.E(errors.Invalid,
			fmt.Sprintf("h5io: %s: read [%d,+%d) out of range [0,%d)", path, offset, n, size))
	}
	if offset+n > size {
		n = size - offset
	}
	return n, nil
}

func notExist(path string) error {
	return errors.E(errors.NotExist, fmt.Sprintf("h5io: %s does not exist", path))
}

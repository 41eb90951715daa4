// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

//go:build !hdf5 || !cgo

package h5io

import (
	"github.com/grailbio/base/errors"
)

// Native reports whether Open and Create are backed by the HDF5 library.
const Native = false

var errNoHDF5 = errors.E(errors.NotSupported, "h5io: built without HDF5 support; rebuild with -tags hdf5")

// Open opens an HDF5 file for reading.
func Open(path string) (Reader, error) { return nil, errNoHDF5 }

// Create creates (or truncates) an HDF5 file for writing.
func Create(path string) (Writer, error) { return nil, errNoHDF5 }

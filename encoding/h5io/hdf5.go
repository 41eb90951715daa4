// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

//go:build hdf5 && cgo

package h5io

import (
	"fmt"
	"sync"

	"github.com/grailbio/base/errors"
	"gonum.org/v1/hdf5"
)

// Native reports whether Open and Create are backed by the HDF5 library.
const Native = true

// file serializes every library call through mu; the HDF5 library is not
// assumed to be thread-safe.
type file struct {
	mu   sync.Mutex
	path string
	f    *hdf5.File
}

// Open opens an HDF5 file for reading.
func Open(path string) (Reader, error) {
	f, err := hdf5.OpenFile(path, hdf5.F_ACC_RDONLY)
	if err != nil {
		return nil, errors.E(err, "h5io: open", path)
	}
	return &file{path: path, f: f}, nil
}

// Create creates (or truncates) an HDF5 file for writing.
func Create(path string) (Writer, error) {
	f, err := hdf5.CreateFile(path, hdf5.F_ACC_TRUNC)
	if err != nil {
		return nil, errors.E(err, "h5io: create", path)
	}
	return &file{path: path, f: f}, nil
}

func (h *file) wrap(err error, path string) error {
	return errors.E(err, fmt.Sprintf("h5io: %s:%s", h.path, path))
}

func (h *file) exists(path string) bool {
	for _, p := range append(parents(path), path) {
		if !h.f.LinkExists(p) {
			return false
		}
	}
	return true
}

// Exists implements Reader.
func (h *file) Exists(path string) bool {
	path = clean(path)
	if path == "" {
		return true
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exists(path)
}

func (h *file) length(ds *hdf5.Dataset) (int, error) {
	space := ds.Space()
	defer space.Close()
	dims, _, err := space.SimpleExtentDims()
	if err != nil {
		return 0, err
	}
	if len(dims) != 1 {
		return 0, errors.E(errors.NotSupported, fmt.Sprintf("dataset has %d dimensions", len(dims)))
	}
	return int(dims[0]), nil
}

// Len implements Reader.
func (h *file) Len(path string) (int, error) {
	path = clean(path)
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.exists(path) {
		return 0, notExist(path)
	}
	ds, err := h.f.OpenDataset(path)
	if err != nil {
		return 0, h.wrap(err, path)
	}
	defer ds.Close()
	n, err := h.length(ds)
	if err != nil {
		return 0, h.wrap(err, path)
	}
	return n, nil
}

// readSubset reads elements [offset, offset+n) into the slice pointed to by
// alloc(n).
func (h *file) readSubset(path string, offset, n int, alloc func(n int) interface{}) (int, error) {
	path = clean(path)
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.exists(path) {
		return 0, notExist(path)
	}
	ds, err := h.f.OpenDataset(path)
	if err != nil {
		return 0, h.wrap(err, path)
	}
	defer ds.Close()
	size, err := h.length(ds)
	if err != nil {
		return 0, h.wrap(err, path)
	}
	if n, err = clip(path, offset, n, size); err != nil || n == 0 {
		alloc(0)
		return 0, err
	}
	fileSpace := ds.Space()
	defer fileSpace.Close()
	if err := fileSpace.SelectHyperslab([]uint{uint(offset)}, nil, []uint{uint(n)}, nil); err != nil {
		return 0, h.wrap(err, path)
	}
	memSpace, err := hdf5.CreateSimpleDataspace([]uint{uint(n)}, nil)
	if err != nil {
		return 0, h.wrap(err, path)
	}
	defer memSpace.Close()
	if err := ds.ReadSubset(alloc(n), memSpace, fileSpace); err != nil {
		return 0, h.wrap(err, path)
	}
	return n, nil
}

// ReadUint8 implements Reader.
func (h *file) ReadUint8(path string, offset, n int) ([]byte, error) {
	var out []byte
	_, err := h.readSubset(path, offset, n, func(n int) interface{} {
		out = make([]byte, n)
		return &out
	})
	return out, err
}

// ReadInt32 implements Reader.
func (h *file) ReadInt32(path string, offset, n int) ([]int32, error) {
	var out []int32
	_, err := h.readSubset(path, offset, n, func(n int) interface{} {
		out = make([]int32, n)
		return &out
	})
	return out, err
}

// ReadFloat32 implements Reader.
func (h *file) ReadFloat32(path string, offset, n int) ([]float32, error) {
	var out []float32
	_, err := h.readSubset(path, offset, n, func(n int) interface{} {
		out = make([]float32, n)
		return &out
	})
	return out, err
}

func (h *file) mkdirs(path string) error {
	for _, p := range append(parents(path), path) {
		if p == "" || h.f.LinkExists(p) {
			continue
		}
		g, err := h.f.CreateGroup(p)
		if err != nil {
			return h.wrap(err, p)
		}
		g.Close()
	}
	return nil
}

// CreateGroup implements Writer.
func (h *file) CreateGroup(path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mkdirs(clean(path))
}

func (h *file) write(path string, dtype *hdf5.Datatype, n, chunk int, data interface{}) error {
	path = clean(path)
	if chunk <= 0 {
		return errors.E(errors.Invalid, fmt.Sprintf("h5io: %s: chunk size %d", path, chunk))
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.exists(path) {
		return errors.E(errors.Exists, fmt.Sprintf("h5io: %s already exists", path))
	}
	if ps := parents(path); len(ps) > 0 {
		if err := h.mkdirs(ps[len(ps)-1]); err != nil {
			return err
		}
	}
	space, err := hdf5.CreateSimpleDataspace([]uint{uint(n)}, nil)
	if err != nil {
		return h.wrap(err, path)
	}
	defer space.Close()
	dcpl, err := hdf5.NewPropList(hdf5.P_DATASET_CREATE)
	if err != nil {
		return h.wrap(err, path)
	}
	defer dcpl.Close()
	if chunk > n && n > 0 {
		chunk = n
	}
	if n > 0 {
		if err := dcpl.SetChunk([]uint{uint(chunk)}); err != nil {
			return h.wrap(err, path)
		}
		if err := dcpl.SetDeflate(6); err != nil {
			return h.wrap(err, path)
		}
	}
	ds, err := h.f.CreateDatasetWith(path, dtype, space, dcpl)
	if err != nil {
		return h.wrap(err, path)
	}
	defer ds.Close()
	if n > 0 {
		if err := ds.Write(data); err != nil {
			return h.wrap(err, path)
		}
	}
	return nil
}

// WriteUint8 implements Writer.
func (h *file) WriteUint8(path string, data []byte, chunk int) error {
	return h.write(path, hdf5.T_NATIVE_UINT8, len(data), chunk, &data)
}

// WriteInt32 implements Writer.
func (h *file) WriteInt32(path string, data []int32, chunk int) error {
	return h.write(path, hdf5.T_NATIVE_INT32, len(data), chunk, &data)
}

// WriteFloat32 implements Writer.
func (h *file) WriteFloat32(path string, data []float32, chunk int) error {
	return h.write(path, hdf5.T_NATIVE_FLOAT, len(data), chunk, &data)
}

func (h *file) group(path string) (*hdf5.Group, error) {
	if path == "" {
		return h.f.OpenGroup("/")
	}
	if !h.exists(path) {
		return nil, notExist(path)
	}
	return h.f.OpenGroup(path)
}

func (h *file) setAttr(path, name string, dtype *hdf5.Datatype, v interface{}) error {
	path = clean(path)
	h.mu.Lock()
	defer h.mu.Unlock()
	g, err := h.group(path)
	if err != nil {
		return h.wrap(err, path)
	}
	defer g.Close()
	attr, err := g.OpenAttribute(name)
	if err != nil {
		space, err := hdf5.CreateDataspace(hdf5.S_SCALAR)
		if err != nil {
			return h.wrap(err, path)
		}
		defer space.Close()
		if attr, err = g.CreateAttribute(name, dtype, space); err != nil {
			return h.wrap(err, path+"@"+name)
		}
	}
	defer attr.Close()
	if err := attr.Write(v, dtype); err != nil {
		return h.wrap(err, path+"@"+name)
	}
	return nil
}

func (h *file) attr(path, name string, dtype *hdf5.Datatype, v interface{}) error {
	path = clean(path)
	h.mu.Lock()
	defer h.mu.Unlock()
	g, err := h.group(path)
	if err != nil {
		return err
	}
	defer g.Close()
	attr, err := g.OpenAttribute(name)
	if err != nil {
		return notExist(Join(path, "@"+name))
	}
	defer attr.Close()
	if err := attr.Read(v, dtype); err != nil {
		return h.wrap(err, path+"@"+name)
	}
	return nil
}

// SetInt32Attr implements Writer.
func (h *file) SetInt32Attr(path, name string, v int32) error {
	return h.setAttr(path, name, hdf5.T_NATIVE_INT32, &v)
}

// SetBoolAttr implements Writer. Booleans are stored as uint8.
func (h *file) SetBoolAttr(path, name string, v bool) error {
	var b uint8
	if v {
		b = 1
	}
	return h.setAttr(path, name, hdf5.T_NATIVE_UINT8, &b)
}

// Int32Attr implements Reader.
func (h *file) Int32Attr(path, name string) (int32, error) {
	var v int32
	err := h.attr(path, name, hdf5.T_NATIVE_INT32, &v)
	return v, err
}

// BoolAttr implements Reader.
func (h *file) BoolAttr(path, name string) (bool, error) {
	var v uint8
	err := h.attr(path, name, hdf5.T_NATIVE_UINT8, &v)
	return v != 0, err
}

// Close implements Reader.
func (h *file) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.f.Close(); err != nil {
		return h.wrap(err, "")
	}
	return nil
}

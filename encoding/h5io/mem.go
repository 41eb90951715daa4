// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package h5io

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/golang/snappy"
	"github.com/grailbio/base/errors"
)

type dtype int

const (
	uint8Type dtype = iota
	int32Type
	float32Type
)

var dtypeNames = [...]string{uint8Type: "uint8", int32Type: "int32", float32Type: "float32"}

func (t dtype) size() int {
	if t == uint8Type {
		return 1
	}
	return 4
}

type memDataset struct {
	typ      dtype
	n, chunk int
	// chunks hold snappy-compressed little-endian elements.
	chunks [][]byte
}

// Mem is an in-memory Writer. Datasets are stored as snappy-compressed
// chunks, and every read decompresses the chunks it touches, so the access
// pattern of a reader costs roughly what it would against a chunked file.
// Mem is safe for concurrent use.
type Mem struct {
	mu       sync.Mutex
	groups   map[string]bool
	datasets map[string]*memDataset
	attrs    map[string]map[string]interface{}
	closed   bool

	chunkReads atomic.Int64
}

// NewMem creates an empty store containing only the root group.
func NewMem() *Mem {
	return &Mem{
		groups:   map[string]bool{"": true},
		datasets: make(map[string]*memDataset),
		attrs:    make(map[string]map[string]interface{}),
	}
}

// ChunkReads returns the number of chunks decompressed so far.
func (m *Mem) ChunkReads() int64 { return m.chunkReads.Load() }

// Exists implements Reader.
func (m *Mem) Exists(path string) bool {
	path = clean(path)
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.datasets[path]
	return ok || m.groups[path]
}

// CreateGroup implements Writer.
func (m *Mem) CreateGroup(path string) error {
	path = clean(path)
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mkdirs(path)
}

func (m *Mem) mkdirs(path string) error {
	if m.closed {
		return errors.E(errors.Precondition, "h5io: store is closed")
	}
	for _, p := range append(parents(path), path) {
		if _, ok := m.datasets[p]; ok {
			return errors.E(errors.Exists, fmt.Sprintf("h5io: %s is a dataset", p))
		}
		m.groups[p] = true
	}
	return nil
}

func (m *Mem) write(path string, typ dtype, n, chunk int, put func(buf []byte, i int)) error {
	path = clean(path)
	if chunk <= 0 {
		return errors.E(errors.Invalid, fmt.Sprintf("h5io: %s: chunk size %d", path, chunk))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.datasets[path]; ok || m.groups[path] {
		return errors.E(errors.Exists, fmt.Sprintf("h5io: %s already exists", path))
	}
	if ps := parents(path); len(ps) > 0 {
		if err := m.mkdirs(ps[len(ps)-1]); err != nil {
			return err
		}
	} else if m.closed {
		return errors.E(errors.Precondition, "h5io: store is closed")
	}
	ds := &memDataset{typ: typ, n: n, chunk: chunk}
	buf := make([]byte, chunk*typ.size())
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		raw := buf[:(end-start)*typ.size()]
		for i := start; i < end; i++ {
			put(raw[(i-start)*typ.size():], i)
		}
		ds.chunks = append(ds.chunks, snappy.Encode(nil, raw))
	}
	m.datasets[path] = ds
	return nil
}

// WriteUint8 implements Writer.
func (m *Mem) WriteUint8(path string, data []byte, chunk int) error {
	return m.write(path, uint8Type, len(data), chunk, func(b []byte, i int) { b[0] = data[i] })
}

// WriteInt32 implements Writer.
func (m *Mem) WriteInt32(path string, data []int32, chunk int) error {
	return m.write(path, int32Type, len(data), chunk, func(b []byte, i int) {
		binary.LittleEndian.PutUint32(b, uint32(data[i]))
	})
}

// WriteFloat32 implements Writer.
func (m *Mem) WriteFloat32(path string, data []float32, chunk int) error {
	return m.write(path, float32Type, len(data), chunk, func(b []byte, i int) {
		binary.LittleEndian.PutUint32(b, math.Float32bits(data[i]))
	})
}

func (m *Mem) dataset(path string, typ dtype) (*memDataset, error) {
	m.mu.Lock()
	ds, ok := m.datasets[path]
	closed := m.closed
	m.mu.Unlock()
	switch {
	case closed:
		return nil, errors.E(errors.Precondition, "h5io: store is closed")
	case !ok:
		return nil, notExist(path)
	case ds.typ != typ:
		return nil, errors.E(errors.Invalid,
			fmt.Sprintf("h5io: %s holds %s, not %s", path, dtypeNames[ds.typ], dtypeNames[typ]))
	}
	return ds, nil
}

// read decodes elements [offset, offset+n) of path through get.
func (m *Mem) read(path string, typ dtype, offset, n int, get func(b []byte, i int)) (int, error) {
	path = clean(path)
	ds, err := m.dataset(path, typ)
	if err != nil {
		return 0, err
	}
	if n, err = clip(path, offset, n, ds.n); err != nil {
		return 0, err
	}
	for i := 0; i < n; {
		c := (offset + i) / ds.chunk
		raw, err := snappy.Decode(nil, ds.chunks[c])
		if err != nil {
			return 0, errors.E(errors.Integrity, fmt.Sprintf("h5io: %s: chunk %d", path, c), err)
		}
		m.chunkReads.Add(1)
		for k := (offset + i) - c*ds.chunk; k < len(raw)/typ.size() && i < n; k++ {
			get(raw[k*typ.size():], i)
			i++
		}
	}
	return n, nil
}

// Len implements Reader.
func (m *Mem) Len(path string) (int, error) {
	path = clean(path)
	m.mu.Lock()
	defer m.mu.Unlock()
	ds, ok := m.datasets[path]
	if !ok {
		return 0, notExist(path)
	}
	return ds.n, nil
}

// ReadUint8 implements Reader.
func (m *Mem) ReadUint8(path string, offset, n int) ([]byte, error) {
	out := make([]byte, max(n, 0))
	n, err := m.read(path, uint8Type, offset, n, func(b []byte, i int) { out[i] = b[0] })
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}

// ReadInt32 implements Reader.
func (m *Mem) ReadInt32(path string, offset, n int) ([]int32, error) {
	out := make([]int32, max(n, 0))
	n, err := m.read(path, int32Type, offset, n, func(b []byte, i int) {
		out[i] = int32(binary.LittleEndian.Uint32(b))
	})
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}

// ReadFloat32 implements Reader.
func (m *Mem) ReadFloat32(path string, offset, n int) ([]float32, error) {
	out := make([]float32, max(n, 0))
	n, err := m.read(path, float32Type, offset, n, func(b []byte, i int) {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b))
	})
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}

func (m *Mem) setAttr(path, name string, v interface{}) error {
	path = clean(path)
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.groups[path] {
		return notExist(path)
	}
	if m.closed {
		return errors.E(errors.Precondition, "h5io: store is closed")
	}
	if m.attrs[path] == nil {
		m.attrs[path] = make(map[string]interface{})
	}
	m.attrs[path][name] = v
	return nil
}

func (m *Mem) attr(path, name string) (interface{}, error) {
	path = clean(path)
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.attrs[path][name]
	if !ok {
		return nil, notExist(Join(path, "@"+name))
	}
	return v, nil
}

// SetInt32Attr implements Writer.
func (m *Mem) SetInt32Attr(path, name string, v int32) error { return m.setAttr(path, name, v) }

// SetBoolAttr implements Writer.
func (m *Mem) SetBoolAttr(path, name string, v bool) error { return m.setAttr(path, name, v) }

// Int32Attr implements Reader.
func (m *Mem) Int32Attr(path, name string) (int32, error) {
	v, err := m.attr(path, name)
	if err != nil {
		return 0, err
	}
	i, ok := v.(int32)
	if !ok {
		return 0, errors.E(errors.Invalid, fmt.Sprintf("h5io: attribute %s of %s is not int32", name, path))
	}
	return i, nil
}

// BoolAttr implements Reader.
func (m *Mem) BoolAttr(path, name string) (bool, error) {
	v, err := m.attr(path, name)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, errors.E(errors.Invalid, fmt.Sprintf("h5io: attribute %s of %s is not bool", name, path))
	}
	return b, nil
}

// Close implements Reader. A closed Mem rejects every read and write.
func (m *Mem) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Reopen returns an open store with the same contents, as if the file had
// been opened again. Datasets are shared; they are never modified after
// being written.
func (m *Mem) Reopen() *Mem {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := NewMem()
	for p := range m.groups {
		r.groups[p] = true
	}
	for p, ds := range m.datasets {
		r.datasets[p] = ds
	}
	for p, attrs := range m.attrs {
		r.attrs[p] = make(map[string]interface{}, len(attrs))
		for k, v := range attrs {
			r.attrs[p][k] = v
		}
	}
	return r
}

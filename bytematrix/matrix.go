// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package bytematrix provides a dense rows x columns byte matrix stored in a
// single slice, in either row-major or column-major order.
package bytematrix

import (
	"fmt"

	"github.com/grailbio/base/errors"
)

// Matrix is a dense byte matrix. It is not safe for concurrent mutation;
// concurrent reads are fine.
type Matrix struct {
	rows, cols int
	rowMajor   bool
	data       []byte
}

// New allocates a rows x cols matrix with every cell set to init.
func New(rows, cols int, init byte, rowMajor bool) *Matrix {
	m := &Matrix{rows: rows, cols: cols, rowMajor: rowMajor, data: make([]byte, rows*cols)}
	if init != 0 {
		m.Fill(init)
	}
	return m
}

// FromRows copies a rectangular [][]byte into a row-major matrix.
func FromRows(rows [][]byte) (*Matrix, error) {
	cols := 0
	if len(rows) > 0 {
		cols = len(rows[0])
	}
	m := New(len(rows), cols, 0, true)
	for i, r := range rows {
		if len(r) != cols {
			return nil, errors.E(errors.Invalid,
				fmt.Sprintf("row %d has %d columns, want %d", i, len(r), cols))
		}
		copy(m.data[i*cols:], r)
	}
	return m, nil
}

// NumRows returns the number of rows.
func (m *Matrix) NumRows() int { return m.rows }

// NumColumns returns the number of columns.
func (m *Matrix) NumColumns() int { return m.cols }

// RowMajor reports whether rows are contiguous in memory.
func (m *Matrix) RowMajor() bool { return m.rowMajor }

func (m *Matrix) offset(r, c int) int {
	if m.rowMajor {
		return r*m.cols + c
	}
	return c*m.rows + r
}

// Get returns the cell at (r, c). It panics if either index is out of range.
func (m *Matrix) Get(r, c int) byte { return m.data[m.offset(r, c)] }

// Set stores v at (r, c).
func (m *Matrix) Set(r, c int, v byte) { m.data[m.offset(r, c)] = v }

// SetRange stores vals into row r starting at column start.
func (m *Matrix) SetRange(r, start int, vals []byte) {
	if m.rowMajor {
		copy(m.data[r*m.cols+start:r*m.cols+start+len(vals)], vals)
		return
	}
	for i, v := range vals {
		m.data[(start+i)*m.rows+r] = v
	}
}

// Row returns a copy of row r.
func (m *Matrix) Row(r int) []byte {
	return m.RowRange(r, 0, m.cols)
}

// RowRange returns a copy of columns [start, end) of row r.
func (m *Matrix) RowRange(r, start, end int) []byte {
	out := make([]byte, end-start)
	if m.rowMajor {
		copy(out, m.data[r*m.cols+start:r*m.cols+end])
		return out
	}
	for i := range out {
		out[i] = m.data[(start+i)*m.rows+r]
	}
	return out
}

// Column returns a copy of column c.
func (m *Matrix) Column(c int) []byte {
	out := make([]byte, m.rows)
	if !m.rowMajor {
		copy(out, m.data[c*m.rows:(c+1)*m.rows])
		return out
	}
	for i := range out {
		out[i] = m.data[i*m.cols+c]
	}
	return out
}

// Fill sets every cell to v.
func (m *Matrix) Fill(v byte) {
	for i := range m.data {
		m.data[i] = v
	}
}

// Transpose returns a copy of m with the opposite memory order. The logical
// content (Get(r, c)) is unchanged.
func (m *Matrix) Transpose() *Matrix {
	t := &Matrix{rows: m.rows, cols: m.cols, rowMajor: !m.rowMajor, data: make([]byte, len(m.data))}
	for r := 0; r < m.rows; r++ {
		for c := 0; c < m.cols; c++ {
			t.data[t.offset(r, c)] = m.data[m.offset(r, c)]
		}
	}
	return t
}

// ReorderRows permutes rows so that new row i is old row order[i].
func (m *Matrix) ReorderRows(order []int) error {
	if err := checkPermutation("row", order, m.rows); err != nil {
		return err
	}
	old := append([]byte(nil), m.data...)
	for i, j := range order {
		for c := 0; c < m.cols; c++ {
			src := j*m.cols + c
			if !m.rowMajor {
				src = c*m.rows + j
			}
			m.data[m.offset(i, c)] = old[src]
		}
	}
	return nil
}

// ReorderColumns permutes columns so that new column i is old column
// order[i].
func (m *Matrix) ReorderColumns(order []int) error {
	if err := checkPermutation("column", order, m.cols); err != nil {
		return err
	}
	old := append([]byte(nil), m.data...)
	for i, j := range order {
		for r := 0; r < m.rows; r++ {
			src := r*m.cols + j
			if !m.rowMajor {
				src = j*m.rows + r
			}
			m.data[m.offset(r, i)] = old[src]
		}
	}
	return nil
}

func checkPermutation(what string, order []int, n int) error {
	if len(order) != n {
		return errors.E(errors.Invalid, fmt.Sprintf("%s order has %d entries, want %d", what, len(order), n))
	}
	seen := make([]bool, n)
	for _, j := range order {
		if j < 0 || j >= n || seen[j] {
			return errors.E(errors.Invalid, fmt.Sprintf("%s order is not a permutation of [0,%d)", what, n))
		}
		seen[j] = true
	}
	return nil
}

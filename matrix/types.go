// SPDX-License-Identifier: MIT

// Package matrix: domain types shared by the dense kernels.
// This file contains ONLY the public Matrix interface and the vector alias.
// Errors live in errors.go, storage in impl_dense.go, kernels in
// impl_linear_algebra.go and impl_vector.go.
package matrix

// Vector is a dense column vector. A zero-length Vector is legal and is used
// by callers as an "uninitialized" marker; kernels reject it where a length
// is required.
type Vector = []float64

// Matrix represents a two-dimensional mutable array of float64 values.
//
// Complexity notes: all methods are expected O(1) except Clone (O(r*c)).
type Matrix interface {
	// Rows returns the number of rows in the matrix.
	// Complexity: O(1).
	Rows() int

	// Cols returns the number of columns in the matrix.
	// Complexity: O(1).
	Cols() int

	// At retrieves the element at position (i, j).
	// Returns ErrOutOfRange if i<0, i>=Rows(), j<0 or j>=Cols().
	// Complexity: O(1).
	At(i, j int) (float64, error)

	// Set assigns the value v at position (i, j).
	// Returns ErrOutOfRange if indices are invalid.
	// Complexity: O(1).
	Set(i, j int, v float64) error

	// Clone returns a deep copy of the matrix.
	// Complexity: O(rows*cols).
	Clone() Matrix
}

// SPDX-License-Identifier: MIT
// Package matrix: sentinel error set (unified, consistent).
// This file defines ONLY package-level sentinel errors used across the matrix
// package. All kernels MUST return these sentinels and tests MUST check them
// via errors.Is. No kernel panics on user-triggered error conditions.

package matrix

import "errors"

// NOTE ON NAMING & PREFIXING
// --------------------------
// Every message is prefixed with "matrix: ..." for consistency and to allow
// easy grepping across logs. Kernels wrap with fmt.Errorf("<Op>: %w", ErrX);
// callers still match with errors.Is.

var (
	// ErrInvalidDimensions indicates that requested matrix dimensions are non-positive.
	ErrInvalidDimensions = errors.New("matrix: dimensions must be > 0")

	// ErrOutOfRange indicates that an index (row or column) is outside valid bounds.
	ErrOutOfRange = errors.New("matrix: index out of range")

	// ErrDimensionMismatch indicates incompatible dimensions between operands,
	// e.g. Mul where a.Cols != b.Rows or a vector of the wrong length.
	ErrDimensionMismatch = errors.New("matrix: dimension mismatch")

	// ErrNonSquare signals that a square matrix was required but the input wasn't.
	ErrNonSquare = errors.New("matrix: matrix is not square")

	// ErrSingular is returned when a zero pivot is met during a triangular solve.
	ErrSingular = errors.New("matrix: singular matrix")

	// ErrNaNInf signals a NaN or ±Inf value where finite values are required.
	ErrNaNInf = errors.New("matrix: NaN or Inf encountered")

	// ErrNilMatrix indicates that a nil Matrix or nil vector was used.
	ErrNilMatrix = errors.New("matrix: nil receiver")

	// ErrZeroNorm is returned when normalizing a vector whose norm is zero.
	ErrZeroNorm = errors.New("matrix: zero-norm vector")

	// ErrEmptyMatrix is returned by the text reader when no values were found.
	ErrEmptyMatrix = errors.New("matrix: empty matrix text")

	// ErrRaggedRows is returned by the text reader when rows differ in length.
	ErrRaggedRows = errors.New("matrix: ragged rows in matrix text")

	// ErrParseValue is returned by the text reader for a non-numeric token.
	ErrParseValue = errors.New("matrix: cannot parse value")
)

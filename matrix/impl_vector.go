// SPDX-License-Identifier: MIT
// Package matrix: dense vector kernels.
//
// Purpose:
//   - Euclidean norm, normalization, elementwise product and difference.
//   - Constant unit-norm vectors used as cold-start beliefs.
//
// Determinism:
//   - Fixed index order; no allocation beyond the returned slice.

package matrix

import (
	"fmt"
	"math"
)

const (
	opHadamard  = "Hadamard"
	opSub       = "Sub"
	opNormalize = "Normalize"
	opConstant  = "ConstantUnit"
)

// Norm2 returns the Euclidean norm ‖x‖₂. The empty vector has norm 0.
//
// Implementation:
//   - Scaled sum of squares (as in BLAS dnrm2) to avoid overflow for large entries.
//
// Complexity: O(n).
func Norm2(x Vector) float64 {
	var scale, ssq float64 = 0, 1
	var ax, r float64
	for i := range x {
		if x[i] == 0 {
			continue
		}
		ax = math.Abs(x[i])
		if scale < ax {
			r = scale / ax
			ssq = 1 + ssq*r*r
			scale = ax
		} else {
			r = ax / scale
			ssq += r * r
		}
	}

	return scale * math.Sqrt(ssq)
}

// Normalize returns x / ‖x‖₂ as a new vector.
//
// Errors:
//   - ErrNilMatrix for an empty vector, ErrZeroNorm when ‖x‖₂ == 0,
//     ErrNaNInf when the norm is not finite.
//
// Complexity: O(n).
func Normalize(x Vector) (Vector, error) {
	if len(x) == 0 {
		return nil, matrixErrorf(opNormalize, ErrNilMatrix)
	}
	n := Norm2(x)
	if n == 0 {
		return nil, matrixErrorf(opNormalize, ErrZeroNorm)
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return nil, matrixErrorf(opNormalize, ErrNaNInf)
	}
	out := make([]float64, len(x))
	for i := range x {
		out[i] = x[i] / n
	}

	return out, nil
}

// Hadamard returns the elementwise product a∘b as a new vector.
//
// Errors:
//   - ErrDimensionMismatch when lengths differ.
//
// Complexity: O(n).
func Hadamard(a, b Vector) (Vector, error) {
	if err := ValidateSameLen(a, b); err != nil {
		return nil, matrixErrorf(opHadamard, err)
	}
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] * b[i]
	}

	return out, nil
}

// Sub returns a − b as a new vector.
//
// Errors:
//   - ErrDimensionMismatch when lengths differ.
//
// Complexity: O(n).
func Sub(a, b Vector) (Vector, error) {
	if err := ValidateSameLen(a, b); err != nil {
		return nil, matrixErrorf(opSub, err)
	}
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] - b[i]
	}

	return out, nil
}

// Distance returns ‖a − b‖₂.
//
// Errors:
//   - ErrDimensionMismatch when lengths differ.
func Distance(a, b Vector) (float64, error) {
	d, err := Sub(a, b)
	if err != nil {
		return 0, err
	}

	return Norm2(d), nil
}

// ConstantUnit returns the length-n vector with every entry 1/√n, i.e. the
// constant vector of ones normalized to unit Euclidean length.
//
// Errors:
//   - ErrInvalidDimensions when n <= 0.
//
// Complexity: O(n).
func ConstantUnit(n int) (Vector, error) {
	if n <= 0 {
		return nil, matrixErrorf(opConstant, fmt.Errorf("n=%d: %w", n, ErrInvalidDimensions))
	}
	v := 1.0 / math.Sqrt(float64(n))
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}

	return out, nil
}

// CloneVector returns an independent copy of x (nil stays nil).
func CloneVector(x Vector) Vector {
	if x == nil {
		return nil
	}
	out := make([]float64, len(x))
	copy(out, x)

	return out
}

// EqualVectors reports whether a and b have the same length and identical entries.
func EqualVectors(a, b Vector) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

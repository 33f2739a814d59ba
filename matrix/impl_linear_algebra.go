// SPDX-License-Identifier: MIT
// Package matrix provides the linear-algebra kernels used by message passing:
// matrix multiplication, transpose, matrix-vector products and the three
// triangular solves (lower, upper, lower-transposed). All functions perform
// strict fail-fast validation and return clear errors on dimension mismatches.
//
// Notes:
//   - Operands are never mutated; every kernel allocates its result.
//   - Fast paths operate on *Dense flat storage; other Matrix implementations
//     fall back to At/Set.

package matrix

import (
	"fmt"
	"math"
)

// ZeroSum is the initial sum value for dot products and substitution.
const ZeroSum = 0.0

// ZeroPivot is the sentinel for detecting a zero pivot in triangular solves.
const ZeroPivot = 0.0

// Operation name constants for unified error wrapping.
const (
	opMul        = "Mul"
	opTranspose  = "Transpose"
	opMatVec     = "MatVec"
	opMatTVec    = "MatTVec"
	opSolveLower = "SolveLower"
	opSolveUpper = "SolveUpper"
	opSolveLT    = "SolveLowerT"
)

// matrixErrorf wraps err with an operation tag, preserving the original error via %w.
// Use only when err != nil.
func matrixErrorf(tag string, err error) error {
	return fmt.Errorf("%s: %w", tag, err)
}

// asDense returns m as *Dense, materializing a copy through At when m is
// another Matrix implementation.
//
// Complexity: O(1) for *Dense, O(r*c) otherwise.
func asDense(m Matrix) (*Dense, error) {
	if d, ok := m.(*Dense); ok {
		return d, nil
	}
	d, err := NewDense(m.Rows(), m.Cols())
	if err != nil {
		return nil, err
	}
	var i, j int
	var v float64
	for i = 0; i < d.r; i++ {
		for j = 0; j < d.c; j++ {
			if v, err = m.At(i, j); err != nil {
				return nil, err
			}
			d.data[i*d.c+j] = v
		}
	}

	return d, nil
}

// Mul computes the matrix product a×b into a fresh Dense.
//
// Implementation:
//   - Stage 1: ValidateMulCompatible(a, b); allocate Dense(a.Rows, b.Cols).
//   - Stage 2: i→k→j accumulation on flat storage, skipping zero a[i,k].
//
// Errors:
//   - ErrNilMatrix (nil input), ErrDimensionMismatch (inner mismatch).
//
// Complexity:
//   - Time O(r*n*c), Space O(r*c).
func Mul(a, b Matrix) (*Dense, error) {
	if err := ValidateMulCompatible(a, b); err != nil {
		return nil, matrixErrorf(opMul, err)
	}
	da, err := asDense(a)
	if err != nil {
		return nil, matrixErrorf(opMul, err)
	}
	db, err := asDense(b)
	if err != nil {
		return nil, matrixErrorf(opMul, err)
	}
	res, err := NewDense(da.r, db.c)
	if err != nil {
		return nil, matrixErrorf(opMul, err)
	}

	var (
		i, k, j                            int
		av                                 float64
		rowOffsetA, rowOffsetB, rowOffsetR int
	)
	for i = 0; i < da.r; i++ {
		rowOffsetA = i * da.c
		rowOffsetR = i * db.c
		for k = 0; k < da.c; k++ {
			av = da.data[rowOffsetA+k]
			if av == 0 {
				continue // skip zero for performance
			}
			rowOffsetB = k * db.c
			for j = 0; j < db.c; j++ {
				res.data[rowOffsetR+j] += av * db.data[rowOffsetB+j]
			}
		}
	}

	return res, nil
}

// Transpose returns a new matrix with rows and columns swapped (mᵀ).
//
// Errors:
//   - ErrNilMatrix.
//
// Complexity:
//   - Time O(r*c), Space O(r*c).
func Transpose(m Matrix) (*Dense, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf(opTranspose, err)
	}
	dm, err := asDense(m)
	if err != nil {
		return nil, matrixErrorf(opTranspose, err)
	}
	res, err := NewDense(dm.c, dm.r)
	if err != nil {
		return nil, matrixErrorf(opTranspose, err)
	}
	var i, j, baseSrc int
	for i = 0; i < dm.r; i++ {
		baseSrc = i * dm.c
		for j = 0; j < dm.c; j++ {
			res.data[j*dm.r+i] = dm.data[baseSrc+j]
		}
	}

	return res, nil
}

// MatVec computes y = m * x for a column vector x.
//
// Contract: m non-nil; len(x) == m.Cols().
// Determinism: fixed i→j loop order.
// Complexity: Time O(r*c), Space O(r) for y.
func MatVec(m Matrix, x Vector) (Vector, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf(opMatVec, err)
	}
	if err := ValidateVecLen(x, m.Cols()); err != nil {
		return nil, matrixErrorf(opMatVec, err)
	}
	d, err := asDense(m)
	if err != nil {
		return nil, matrixErrorf(opMatVec, err)
	}
	y := make([]float64, d.r)
	var i, j, base int
	var acc, xv float64
	for i = 0; i < d.r; i++ {
		acc = ZeroSum
		base = i * d.c
		for j = 0; j < d.c; j++ {
			xv = x[j]
			if xv != 0 {
				acc += d.data[base+j] * xv
			}
		}
		y[i] = acc
	}

	return y, nil
}

// MatTVec computes y = mᵀ * x without materializing the transpose.
//
// Contract: m non-nil; len(x) == m.Rows().
// Complexity: Time O(r*c), Space O(c) for y.
func MatTVec(m Matrix, x Vector) (Vector, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf(opMatTVec, err)
	}
	if err := ValidateVecLen(x, m.Rows()); err != nil {
		return nil, matrixErrorf(opMatTVec, err)
	}
	d, err := asDense(m)
	if err != nil {
		return nil, matrixErrorf(opMatTVec, err)
	}
	y := make([]float64, d.c)
	var i, j, base int
	var xv float64
	for i = 0; i < d.r; i++ {
		xv = x[i]
		if xv == 0 {
			continue
		}
		base = i * d.c
		for j = 0; j < d.c; j++ {
			y[j] += d.data[base+j] * xv
		}
	}

	return y, nil
}

// SolveLower solves L·x = b by forward substitution, reading only the lower
// triangle (diagonal included) of the square matrix L.
//
// Implementation:
//   - Stage 1: validate L square and len(b) == n.
//   - Stage 2: for i=0..n-1: x[i] = (b[i] - Σ_{k<i} L[i,k]·x[k]) / L[i,i].
//
// Errors:
//   - ErrNilMatrix, ErrNonSquare, ErrDimensionMismatch, ErrSingular (zero diagonal).
//
// Complexity:
//   - Time O(n²), Space O(n).
func SolveLower(l Matrix, b Vector) (Vector, error) {
	d, err := prepareSolve(l, b)
	if err != nil {
		return nil, matrixErrorf(opSolveLower, err)
	}
	n := d.r
	x := make([]float64, n)
	var i, k, base int
	var sum, piv float64
	for i = 0; i < n; i++ {
		base = i * n
		sum = b[i]
		for k = 0; k < i; k++ {
			sum -= d.data[base+k] * x[k]
		}
		piv = d.data[base+i]
		if piv == ZeroPivot {
			return nil, matrixErrorf(opSolveLower, fmt.Errorf("pivot %d: %w", i, ErrSingular))
		}
		x[i] = sum / piv
	}

	return x, nil
}

// SolveUpper solves U·x = b by backward substitution, reading only the upper
// triangle (diagonal included) of the square matrix U.
//
// Errors:
//   - ErrNilMatrix, ErrNonSquare, ErrDimensionMismatch, ErrSingular.
//
// Complexity:
//   - Time O(n²), Space O(n).
func SolveUpper(u Matrix, b Vector) (Vector, error) {
	d, err := prepareSolve(u, b)
	if err != nil {
		return nil, matrixErrorf(opSolveUpper, err)
	}
	n := d.r
	x := make([]float64, n)
	var i, k, base int
	var sum, piv float64
	for i = n - 1; i >= 0; i-- {
		base = i * n
		sum = b[i]
		for k = i + 1; k < n; k++ {
			sum -= d.data[base+k] * x[k]
		}
		piv = d.data[base+i]
		if piv == ZeroPivot {
			return nil, matrixErrorf(opSolveUpper, fmt.Errorf("pivot %d: %w", i, ErrSingular))
		}
		x[i] = sum / piv
	}

	return x, nil
}

// SolveLowerT solves Lᵀ·x = b for a lower-triangular L, i.e. the upper
// triangular system formed by the transpose, without materializing Lᵀ.
// Together with SolveLower this applies (L·Lᵀ)⁻¹ for a Cholesky factor L.
//
// Errors:
//   - ErrNilMatrix, ErrNonSquare, ErrDimensionMismatch, ErrSingular.
//
// Complexity:
//   - Time O(n²), Space O(n).
func SolveLowerT(l Matrix, b Vector) (Vector, error) {
	d, err := prepareSolve(l, b)
	if err != nil {
		return nil, matrixErrorf(opSolveLT, err)
	}
	n := d.r
	x := make([]float64, n)
	var i, k int
	var sum, piv float64
	for i = n - 1; i >= 0; i-- {
		sum = b[i]
		// Lᵀ[i,k] == L[k,i] for k > i.
		for k = i + 1; k < n; k++ {
			sum -= d.data[k*n+i] * x[k]
		}
		piv = d.data[i*n+i]
		if piv == ZeroPivot {
			return nil, matrixErrorf(opSolveLT, fmt.Errorf("pivot %d: %w", i, ErrSingular))
		}
		x[i] = sum / piv
	}

	return x, nil
}

// prepareSolve performs the shared validation of the triangular solvers and
// returns the dense view of the system matrix.
func prepareSolve(m Matrix, b Vector) (*Dense, error) {
	if err := ValidateSquare(m); err != nil {
		return nil, err
	}
	if err := ValidateVecLen(b, m.Rows()); err != nil {
		return nil, err
	}
	for i := range b {
		if math.IsNaN(b[i]) || math.IsInf(b[i], 0) {
			return nil, fmt.Errorf("rhs[%d]: %w", i, ErrNaNInf)
		}
	}

	return asDense(m)
}

// Package matrix is the dense numeric payload carried by graph vertices and
// edges: row-major float64 matrices and plain vectors.
//
// The matrix package provides:
//
//   - Dense, a row-major matrix with bounds-checked At/Set and a finite-only
//     numeric policy.
//   - Kernels: Mul, Transpose, MatVec, MatTVec (mᵀx without materializing mᵀ).
//   - Triangular solves: SolveLower (L·x=b), SolveUpper (U·x=b) and
//     SolveLowerT (Lᵀ·x=b). Chaining SolveLower and SolveLowerT applies the
//     inverse of L·Lᵀ for a Cholesky factor L.
//   - Vector helpers: Norm2, Normalize, Hadamard, Sub, Distance, ConstantUnit.
//   - A plain-text codec (ReadText/WriteText, LoadText/SaveText): one row per
//     line, whitespace separated, shape inferred from the content.
//
// All kernels allocate their result and never mutate operands. Errors are the
// package sentinels (ErrDimensionMismatch, ErrSingular, ...) wrapped with the
// operation name; match them with errors.Is.
package matrix

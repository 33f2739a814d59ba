// SPDX-License-Identifier: MIT
// Package matrix_test contains unit tests for the matrix validators.
package matrix_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/kernelbp/matrix"
)

// TestValidateSquare covers nil inputs, square and non-square cases.
func TestValidateSquare(t *testing.T) {
	t.Parallel()

	zeros := func(r, c int) matrix.Matrix {
		m, err := matrix.NewDense(r, c)
		require.NoError(t, err)
		return m
	}
	var typedNil *matrix.Dense

	tests := []struct {
		name    string
		m       matrix.Matrix
		wantErr error
	}{
		{"nil interface", nil, matrix.ErrNilMatrix},
		{"typed nil", typedNil, matrix.ErrNilMatrix},
		{"square 3x3", zeros(3, 3), nil},
		{"non-square 2x3", zeros(2, 3), matrix.ErrNonSquare},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := matrix.ValidateSquare(tc.m)
			if tc.wantErr == nil {
				require.NoError(t, err)
			} else {
				require.Truef(t, errors.Is(err, tc.wantErr),
					"expected errors.Is(%v, %v)", err, tc.wantErr)
			}
		})
	}
}

// TestValidateMulCompatible covers nil operands and inner-dimension checks.
func TestValidateMulCompatible(t *testing.T) {
	t.Parallel()

	a, err := matrix.NewDense(2, 3)
	require.NoError(t, err)
	b, err := matrix.NewDense(3, 4)
	require.NoError(t, err)

	require.NoError(t, matrix.ValidateMulCompatible(a, b))
	require.ErrorIs(t, matrix.ValidateMulCompatible(b, a), matrix.ErrDimensionMismatch)
	require.ErrorIs(t, matrix.ValidateMulCompatible(nil, b), matrix.ErrNilMatrix)
	require.ErrorIs(t, matrix.ValidateMulCompatible(a, nil), matrix.ErrNilMatrix)
}

// TestValidateVectors covers vector length checks.
func TestValidateVectors(t *testing.T) {
	t.Parallel()

	require.NoError(t, matrix.ValidateVecLen([]float64{1, 2}, 2))
	require.ErrorIs(t, matrix.ValidateVecLen(nil, 0), matrix.ErrNilMatrix)
	require.ErrorIs(t, matrix.ValidateVecLen([]float64{1}, 2), matrix.ErrDimensionMismatch)

	require.NoError(t, matrix.ValidateSameLen([]float64{1, 2}, []float64{3, 4}))
	require.NoError(t, matrix.ValidateSameLen(nil, []float64{}))
	require.ErrorIs(t, matrix.ValidateSameLen([]float64{1}, nil), matrix.ErrDimensionMismatch)
}

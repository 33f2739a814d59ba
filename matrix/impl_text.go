// SPDX-License-Identifier: MIT
// Package matrix: plain-text matrix codec.
//
// Format:
//   - One matrix row per line, values separated by any whitespace.
//   - Row and column counts are inferred from the content, never declared.
//   - Blank lines are ignored; every non-blank line must carry the same
//     number of values as the first one.
//
// Values are written with strconv.FormatFloat(v, 'g', -1, 64), the shortest
// representation that parses back to the identical float64, so a write/read
// round trip is exact.

package matrix

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

const (
	opReadText  = "ReadText"
	opWriteText = "WriteText"
	opAsVector  = "AsVector"

	// maxTextLine bounds a single row in bytes (wide kernel matrices).
	maxTextLine = 64 << 20
)

// ReadText parses a whitespace-separated matrix from r.
//
// Implementation:
//   - Stage 1: scan lines, split on whitespace, skip blank lines.
//   - Stage 2: parse each token as float64; first row fixes the column count.
//   - Stage 3: build a Dense via NewFromRows.
//
// Errors:
//   - ErrEmptyMatrix when no values were found.
//   - ErrRaggedRows when a row length differs from the first row.
//   - ErrParseValue for non-numeric tokens.
//   - Underlying reader errors.
//
// Complexity:
//   - Time O(r*c), Space O(r*c).
func ReadText(r io.Reader) (*Dense, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxTextLine)

	var rows [][]float64
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(rows) > 0 && len(fields) != len(rows[0]) {
			return nil, matrixErrorf(opReadText,
				fmt.Errorf("line %d: %d values, want %d: %w", line, len(fields), len(rows[0]), ErrRaggedRows))
		}
		row := make([]float64, len(fields))
		for j, tok := range fields {
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return nil, matrixErrorf(opReadText, fmt.Errorf("line %d col %d %q: %w", line, j, tok, ErrParseValue))
			}
			row[j] = v
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, matrixErrorf(opReadText, err)
	}
	if len(rows) == 0 {
		return nil, matrixErrorf(opReadText, ErrEmptyMatrix)
	}

	m, err := NewFromRows(rows)
	if err != nil {
		return nil, matrixErrorf(opReadText, err)
	}

	return m, nil
}

// LoadText opens path and parses it with ReadText.
func LoadText(path string) (*Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, matrixErrorf(opReadText, err)
	}
	defer f.Close()

	m, err := ReadText(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return m, nil
}

// WriteText serializes m to w, one row per line.
//
// Errors:
//   - ErrNilMatrix, underlying writer errors.
//
// Complexity:
//   - Time O(r*c).
func WriteText(w io.Writer, m Matrix) error {
	if err := ValidateNotNil(m); err != nil {
		return matrixErrorf(opWriteText, err)
	}
	bw := bufio.NewWriter(w)
	var i, j int
	var v float64
	var err error
	for i = 0; i < m.Rows(); i++ {
		for j = 0; j < m.Cols(); j++ {
			if v, err = m.At(i, j); err != nil {
				return matrixErrorf(opWriteText, err)
			}
			if j > 0 {
				_ = bw.WriteByte(' ')
			}
			_, _ = bw.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		}
		_ = bw.WriteByte('\n')
	}
	if err = bw.Flush(); err != nil {
		return matrixErrorf(opWriteText, err)
	}

	return nil
}

// SaveText writes m to path (created or truncated).
func SaveText(path string, m Matrix) error {
	f, err := os.Create(path)
	if err != nil {
		return matrixErrorf(opWriteText, err)
	}
	if err = WriteText(f, m); err != nil {
		_ = f.Close()
		return err
	}

	return f.Close()
}

// AsVector flattens an n×1 or 1×n matrix into a vector.
//
// Errors:
//   - ErrNilMatrix, ErrDimensionMismatch when neither dimension is 1.
func AsVector(m Matrix) (Vector, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf(opAsVector, err)
	}
	d, err := asDense(m)
	if err != nil {
		return nil, matrixErrorf(opAsVector, err)
	}
	if d.r != 1 && d.c != 1 {
		return nil, matrixErrorf(opAsVector, fmt.Errorf("%dx%d: %w", d.r, d.c, ErrDimensionMismatch))
	}

	return CloneVector(d.data), nil
}

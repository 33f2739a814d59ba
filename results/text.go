// Package results persists converged edge betas: as a plain-text table of
// "source target v1 v2 ..." lines, or in an embedded BadgerDB store.
package results

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/katalvlaran/kernelbp/core"
	"github.com/katalvlaran/kernelbp/kernelbp"
)

var (
	// ErrNotFound is returned when no beta is stored for an edge.
	ErrNotFound = errors.New("results: beta not found")

	// ErrMalformed indicates an unreadable result line or store key.
	ErrMalformed = errors.New("results: malformed record")
)

// WriteText writes one line per edge, ordered by (source, target).
// Values use the shortest exact float formatting, so ReadText restores
// them bit for bit. Uninitialized betas produce a line with no values.
func WriteText(w io.Writer, betas map[kernelbp.EdgeKey][]float64) error {
	bw := bufio.NewWriter(w)
	for _, k := range kernelbp.SortedKeys(betas) {
		_, _ = bw.WriteString(strconv.FormatInt(int64(k.Source), 10))
		_ = bw.WriteByte(' ')
		_, _ = bw.WriteString(strconv.FormatInt(int64(k.Target), 10))
		for _, v := range betas[k] {
			_ = bw.WriteByte(' ')
			_, _ = bw.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		}
		_ = bw.WriteByte('\n')
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("results: write: %w", err)
	}

	return nil
}

// WriteFile writes betas to path (created or truncated).
func WriteFile(path string, betas map[kernelbp.EdgeKey][]float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("results: %w", err)
	}
	if err = WriteText(f, betas); err != nil {
		_ = f.Close()
		return err
	}

	return f.Close()
}

// ReadText parses the output of WriteText.
func ReadText(r io.Reader) (map[kernelbp.EdgeKey][]float64, error) {
	out := make(map[kernelbp.EdgeKey][]float64)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16<<20)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 2 {
			return nil, fmt.Errorf("results: line %d: %w", line, ErrMalformed)
		}
		src, err1 := strconv.ParseInt(fields[0], 10, 64)
		tgt, err2 := strconv.ParseInt(fields[1], 10, 64)
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("results: line %d: endpoints: %w", line, ErrMalformed)
		}
		beta := make([]float64, 0, len(fields)-2)
		for _, tok := range fields[2:] {
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return nil, fmt.Errorf("results: line %d: value %q: %w", line, tok, ErrMalformed)
			}
			beta = append(beta, v)
		}
		out[kernelbp.EdgeKey{Source: core.VertexID(src), Target: core.VertexID(tgt)}] = beta
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("results: read: %w", err)
	}

	return out, nil
}

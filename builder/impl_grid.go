// SPDX-License-Identifier: MIT
// Package: kernelbp/builder
//
// impl_grid.go: Grid(rows, cols) constructor.
//
// Canonical model:
//   • 2D orthogonal grid with 4-neighborhood (right & bottom neighbors per cell).
//   • Cell (r,c) has index r*cols + c (row-major).
//
// Contract:
//   • rows ≥ 1 and cols ≥ 1 (else ErrTooFewVertices).
//   • For each (r,c) emit Right then Bottom if present.
//
// Complexity:
//   • Time: O(rows*cols).

package builder

import (
	"fmt"

	"github.com/katalvlaran/kernelbp/core"
)

const (
	methodGrid = "Grid"
	minGridDim = 1
)

// Grid returns a Constructor that builds a rows×cols orthogonal grid.
func Grid[V, E any](rows, cols int) Constructor[V, E] {
	return func(g *core.Graph[V, E], fac Factory[V, E], cfg builderConfig) error {
		if rows < minGridDim || cols < minGridDim {
			return fmt.Errorf("%s: rows=%d, cols=%d (each must be ≥ %d): %w",
				methodGrid, rows, cols, minGridDim, ErrTooFewVertices)
		}
		if err := addVertices(methodGrid, g, fac, cfg, rows*cols); err != nil {
			return err
		}
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				u := cfg.id(r*cols + c)
				if c+1 < cols {
					if err := link(methodGrid, g, fac, cfg, u, cfg.id(r*cols+c+1)); err != nil {
						return err
					}
				}
				if r+1 < rows {
					if err := link(methodGrid, g, fac, cfg, u, cfg.id((r+1)*cols+c)); err != nil {
						return err
					}
				}
			}
		}

		return nil
	}
}

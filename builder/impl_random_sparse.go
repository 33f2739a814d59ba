// SPDX-License-Identifier: MIT
// Package: kernelbp/builder
//
// impl_random_sparse.go: RandomSparse(n, p) constructor (Erdős–Rényi G(n,p)).
//
// Contract:
//   • n ≥ 1, p ∈ [0,1].
//   • Each unordered pair {i<j} is linked i → j with probability p; pairs
//     are drawn in (i asc, j asc) order so a fixed seed fixes the graph.
//
// Complexity:
//   • Time: O(n²) draws.

package builder

import (
	"fmt"

	"github.com/katalvlaran/kernelbp/core"
)

const (
	methodRandomSparse = "RandomSparse"
	minRandomNodes     = 1
)

// RandomSparse returns a Constructor that builds a seeded G(n,p).
func RandomSparse[V, E any](n int, p float64) Constructor[V, E] {
	return func(g *core.Graph[V, E], fac Factory[V, E], cfg builderConfig) error {
		if n < minRandomNodes {
			return fmt.Errorf("%s: n=%d < min=%d: %w", methodRandomSparse, n, minRandomNodes, ErrTooFewVertices)
		}
		if p < 0 || p > 1 {
			return fmt.Errorf("%s: p=%v: %w", methodRandomSparse, p, ErrInvalidProbability)
		}
		if err := addVertices(methodRandomSparse, g, fac, cfg, n); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				if cfg.rng.Float64() >= p {
					continue
				}
				if err := link(methodRandomSparse, g, fac, cfg, cfg.id(i), cfg.id(j)); err != nil {
					return err
				}
			}
		}

		return nil
	}
}

// SPDX-License-Identifier: MIT
// Package: kernelbp/builder
//
// impl_path.go: Path(n) and Cycle(n) constructors.
//
// Contract:
//   • Path: n ≥ 2; edges i → i+1 for i=0..n-2.
//   • Cycle: n ≥ 3; Path edges plus n-1 → 0.
//   • Vertices are added in ascending index order.
//
// Complexity:
//   • Time: O(n) vertices + O(n) edges.

package builder

import (
	"fmt"

	"github.com/katalvlaran/kernelbp/core"
)

const (
	methodPath    = "Path"
	methodCycle   = "Cycle"
	minPathNodes  = 2
	minCycleNodes = 3
)

// Path returns a Constructor that builds an n-vertex path P_n.
func Path[V, E any](n int) Constructor[V, E] {
	return func(g *core.Graph[V, E], fac Factory[V, E], cfg builderConfig) error {
		if n < minPathNodes {
			return fmt.Errorf("%s: n=%d < min=%d: %w", methodPath, n, minPathNodes, ErrTooFewVertices)
		}

		return ring(methodPath, g, fac, cfg, n, false)
	}
}

// Cycle returns a Constructor that builds an n-vertex simple cycle C_n.
func Cycle[V, E any](n int) Constructor[V, E] {
	return func(g *core.Graph[V, E], fac Factory[V, E], cfg builderConfig) error {
		if n < minCycleNodes {
			return fmt.Errorf("%s: n=%d < min=%d: %w", methodCycle, n, minCycleNodes, ErrTooFewVertices)
		}

		return ring(methodCycle, g, fac, cfg, n, true)
	}
}

func ring[V, E any](method string, g *core.Graph[V, E], fac Factory[V, E], cfg builderConfig, n int, closed bool) error {
	if err := addVertices(method, g, fac, cfg, n); err != nil {
		return err
	}
	last := n - 1
	if closed {
		last = n
	}
	for i := 0; i < last; i++ {
		if err := link(method, g, fac, cfg, cfg.id(i), cfg.id((i+1)%n)); err != nil {
			return err
		}
	}

	return nil
}

// SPDX-License-Identifier: MIT
// Package: kernelbp/builder
//
// api.go - public entry-points for the builder package.
//
// Design contract:
//   - One orchestrator: BuildGraph(gopts, fac, bopts, cons...). Creates g,
//     resolves cfg, runs cons in order.
//   - Payloads come from a Factory, so the same topology serves any
//     vertex/edge payload type.
//   - Determinism: same inputs/options/seed and constructor order ⇒ identical graphs.
//   - Safety: never panic; return sentinel errors from constructors.

package builder

import (
	"fmt"

	"github.com/katalvlaran/kernelbp/core"
)

// Factory creates the payloads of generated vertices and edges.
type Factory[V, E any] struct {
	Vertex func(id core.VertexID) V
	Edge   func(src, tgt core.VertexID) E
}

// Constructor applies a deterministic graph mutation using the resolved
// builderConfig. Constructors validate parameters early and return
// sentinel errors (no panics).
type Constructor[V, E any] func(g *core.Graph[V, E], fac Factory[V, E], cfg builderConfig) error

// BuildGraph creates a new core.Graph with graph options gopts, resolves the
// builder configuration from bopts, and applies all constructors in order.
// Any constructor error is wrapped with the context "BuildGraph: %w" and
// returned immediately.
//
// Errors:
//   - ErrConstructFailed for a nil constructor or an incomplete Factory.
//   - Constructor sentinels (ErrTooFewVertices, ErrInvalidProbability) and
//     core errors, wrapped.
func BuildGraph[V, E any](gopts []core.GraphOption, fac Factory[V, E], bopts []BuilderOption, cons ...Constructor[V, E]) (*core.Graph[V, E], error) {
	if fac.Vertex == nil || fac.Edge == nil {
		return nil, fmt.Errorf("BuildGraph: incomplete factory: %w", ErrConstructFailed)
	}
	g := core.NewGraph[V, E](gopts...)
	cfg := newBuilderConfig(bopts...)

	for i, fn := range cons {
		if fn == nil {
			return nil, fmt.Errorf("BuildGraph: nil constructor at index %d: %w", i, ErrConstructFailed)
		}
		if err := fn(g, fac, cfg); err != nil {
			return nil, fmt.Errorf("BuildGraph: %w", err)
		}
	}

	return g, nil
}

// addVertices inserts n vertices with IDs cfg.id(0..n-1).
func addVertices[V, E any](method string, g *core.Graph[V, E], fac Factory[V, E], cfg builderConfig, n int) error {
	for i := 0; i < n; i++ {
		id := cfg.id(i)
		if err := g.AddVertex(id, fac.Vertex(id)); err != nil {
			return fmt.Errorf("%s: %w", method, err)
		}
	}

	return nil
}

// link adds u→v, and v→u when the config asks for both directions.
func link[V, E any](method string, g *core.Graph[V, E], fac Factory[V, E], cfg builderConfig, u, v core.VertexID) error {
	if _, err := g.AddEdge(u, v, fac.Edge(u, v)); err != nil {
		return fmt.Errorf("%s: AddEdge(%d→%d): %w", method, u, v, err)
	}
	if !cfg.both {
		return nil
	}
	if _, err := g.AddEdge(v, u, fac.Edge(v, u)); err != nil {
		return fmt.Errorf("%s: AddEdge(%d→%d): %w", method, v, u, err)
	}

	return nil
}

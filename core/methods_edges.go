// File: methods_edges.go
// Role: Edge lifecycle & queries.
//
// Policy:
//   - Edges are directed Source → Target.
//   - Self-loops are rejected (ErrLoopNotAllowed).
//   - At most one edge per ordered pair (ErrMultiEdgeNotAllowed); the reverse
//     pair is a distinct edge.
//
// Determinism:
//   - Edges() yields edges sorted by (Source, Target) ascending.
//   - Adjacency buckets are kept sorted on insert.
package core

import (
	"cmp"
	"fmt"
	"iter"
	"slices"
)

// AddEdge inserts the directed edge source → target carrying data.
//
// Implementation:
//   - Stage 1: Reject self-loops before taking the lock.
//   - Stage 2: Under g.mu write lock, check frozen state, endpoint existence
//     and pair uniqueness.
//   - Stage 3: Register the edge and insert it into out[source] (ordered by
//     Target) and in[target] (ordered by Source).
//
// Errors:
//   - ErrLoopNotAllowed, ErrFrozen, ErrVertexNotFound, ErrMultiEdgeNotAllowed.
//
// Complexity:
//   - Time O(d) for the ordered bucket insert, Space O(1) amortized.
func (g *Graph[V, E]) AddEdge(source, target VertexID, data E) (*Edge[E], error) {
	if source == target {
		return nil, fmt.Errorf("AddEdge(%d,%d): %w", source, target, ErrLoopNotAllowed)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.frozen {
		return nil, fmt.Errorf("AddEdge(%d,%d): %w", source, target, ErrFrozen)
	}
	if _, ok := g.vertices[source]; !ok {
		return nil, fmt.Errorf("AddEdge(%d,%d): source: %w", source, target, ErrVertexNotFound)
	}
	if _, ok := g.vertices[target]; !ok {
		return nil, fmt.Errorf("AddEdge(%d,%d): target: %w", source, target, ErrVertexNotFound)
	}
	k := edgeKey{source: source, target: target}
	if _, ok := g.edges[k]; ok {
		return nil, fmt.Errorf("AddEdge(%d,%d): %w", source, target, ErrMultiEdgeNotAllowed)
	}

	e := &Edge[E]{Source: source, Target: target, Data: data}
	g.edges[k] = e
	g.out[source] = insertSorted(g.out[source], e, func(x *Edge[E]) VertexID { return x.Target })
	g.in[target] = insertSorted(g.in[target], e, func(x *Edge[E]) VertexID { return x.Source })

	return e, nil
}

// insertSorted places e into bucket keeping it ordered by key.
func insertSorted[E any](bucket []*Edge[E], e *Edge[E], key func(*Edge[E]) VertexID) []*Edge[E] {
	i, _ := slices.BinarySearchFunc(bucket, key(e), func(x *Edge[E], id VertexID) int {
		return cmp.Compare(key(x), id)
	})

	return slices.Insert(bucket, i, e)
}

// Edge returns the live edge record source → target.
//
// Errors:
//   - ErrEdgeNotFound: no such edge.
func (g *Graph[V, E]) Edge(source, target VertexID) (*Edge[E], error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	e, ok := g.edges[edgeKey{source: source, target: target}]
	if !ok {
		return nil, fmt.Errorf("Edge(%d,%d): %w", source, target, ErrEdgeNotFound)
	}

	return e, nil
}

// EdgeCount returns the number of edges.
func (g *Graph[V, E]) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.edges)
}

// Edges yields every edge ordered by (Source, Target) ascending.
// The order set is snapshotted when iteration starts.
//
// Complexity: O(E log E) per iteration start.
func (g *Graph[V, E]) Edges() iter.Seq[*Edge[E]] {
	return func(yield func(*Edge[E]) bool) {
		g.mu.RLock()
		snap := make([]*Edge[E], 0, len(g.edges))
		for _, e := range g.edges {
			snap = append(snap, e)
		}
		g.mu.RUnlock()
		slices.SortFunc(snap, func(a, b *Edge[E]) int {
			if c := cmp.Compare(a.Source, b.Source); c != 0 {
				return c
			}
			return cmp.Compare(a.Target, b.Target)
		})

		for _, e := range snap {
			if !yield(e) {
				return
			}
		}
	}
}

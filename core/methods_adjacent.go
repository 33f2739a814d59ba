// File: methods_adjacent.go
// Role: Direction-filtered neighborhood iteration.
//
// Determinism:
//   - In edges are yielded ordered by Source asc, Out edges by Target asc.
//   - All yields the In bucket followed by the Out bucket.
//
// Concurrency:
//   - Buckets are copied under g.mu read lock when iteration starts; the
//     yielded *Edge values are live records.
package core

import (
	"iter"
	"slices"
)

// EdgesOf yields the edges incident to id selected by dir.
//
// Behavior highlights:
//   - Lazy: nothing is copied until the sequence is ranged over.
//   - Restartable: each range takes a fresh snapshot of the buckets.
//   - Finite: an unknown id or Direction None yields nothing.
//
// Complexity:
//   - Time O(d), Space O(d) for the snapshot.
func (g *Graph[V, E]) EdgesOf(id VertexID, dir Direction) iter.Seq[*Edge[E]] {
	return func(yield func(*Edge[E]) bool) {
		var in, out []*Edge[E]
		g.mu.RLock()
		if dir == In || dir == All {
			in = slices.Clone(g.in[id])
		}
		if dir == Out || dir == All {
			out = slices.Clone(g.out[id])
		}
		g.mu.RUnlock()

		for _, e := range in {
			if !yield(e) {
				return
			}
		}
		for _, e := range out {
			if !yield(e) {
				return
			}
		}
	}
}

// Degree returns the number of edges EdgesOf(id, dir) would yield.
func (g *Graph[V, E]) Degree(id VertexID, dir Direction) int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n := 0
	if dir == In || dir == All {
		n += len(g.in[id])
	}
	if dir == Out || dir == All {
		n += len(g.out[id])
	}

	return n
}

// NeighborIDs returns the far endpoints of EdgesOf(id, dir) in yield order.
// With All, a vertex linked both ways appears twice.
func (g *Graph[V, E]) NeighborIDs(id VertexID, dir Direction) []VertexID {
	var ids []VertexID
	for e := range g.EdgesOf(id, dir) {
		ids = append(ids, e.Other(id))
	}

	return ids
}

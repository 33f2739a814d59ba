// File: methods_vertices.go
// Role: Vertex lifecycle & queries.
//
// Determinism:
//   - Vertices() yields vertices sorted by ID ascending.
//
// Concurrency:
//   - Vertex catalog protected by g.mu.
package core

import (
	"fmt"
	"iter"
	"slices"
)

// AddVertex inserts a vertex with the given payload.
//
// Implementation:
//   - Stage 1: Under g.mu write lock, refuse mutation of a frozen graph.
//   - Stage 2: Reject duplicates; register the vertex.
//
// Errors:
//   - ErrFrozen: graph was frozen.
//   - ErrVertexExists: id already present.
//
// Complexity:
//   - Time O(1) amortized, Space O(1).
func (g *Graph[V, E]) AddVertex(id VertexID, data V) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.frozen {
		return fmt.Errorf("AddVertex(%d): %w", id, ErrFrozen)
	}
	if _, ok := g.vertices[id]; ok {
		return fmt.Errorf("AddVertex(%d): %w", id, ErrVertexExists)
	}
	g.vertices[id] = &Vertex[V]{ID: id, Data: data}

	return nil
}

// Vertex returns the live vertex record for id.
//
// Errors:
//   - ErrVertexNotFound: id is unknown.
//
// Notes:
//   - The returned pointer is shared with the graph; Data writes must happen
//     under the owning partition's lock (see WithPartitionLock).
func (g *Graph[V, E]) Vertex(id VertexID) (*Vertex[V], error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	v, ok := g.vertices[id]
	if !ok {
		return nil, fmt.Errorf("Vertex(%d): %w", id, ErrVertexNotFound)
	}

	return v, nil
}

// HasVertex reports whether id is present.
func (g *Graph[V, E]) HasVertex(id VertexID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.vertices[id]

	return ok
}

// VertexCount returns the number of vertices.
func (g *Graph[V, E]) VertexCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.vertices)
}

// VertexIDs returns all vertex ids sorted ascending.
// Complexity: O(V log V).
func (g *Graph[V, E]) VertexIDs() []VertexID {
	g.mu.RLock()
	ids := make([]VertexID, 0, len(g.vertices))
	for id := range g.vertices {
		ids = append(ids, id)
	}
	g.mu.RUnlock()
	slices.Sort(ids)

	return ids
}

// Vertices yields every vertex in ascending ID order.
//
// The sequence snapshots the id set when iteration starts, so it may be
// restarted and is safe to range over while other goroutines read the graph.
func (g *Graph[V, E]) Vertices() iter.Seq[*Vertex[V]] {
	return func(yield func(*Vertex[V]) bool) {
		ids := g.VertexIDs()
		g.mu.RLock()
		snap := make([]*Vertex[V], len(ids))
		for i, id := range ids {
			snap[i] = g.vertices[id]
		}
		g.mu.RUnlock()

		for _, v := range snap {
			if !yield(v) {
				return
			}
		}
	}
}

// Freeze forbids further structural mutation. Subsequent AddVertex/AddEdge
// calls return ErrFrozen. Payload mutation is unaffected. Idempotent.
func (g *Graph[V, E]) Freeze() {
	g.mu.Lock()
	g.frozen = true
	g.mu.Unlock()
}

// Frozen reports whether Freeze has been called.
func (g *Graph[V, E]) Frozen() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.frozen
}

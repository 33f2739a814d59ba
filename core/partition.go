// File: partition.go
// Role: Partition ownership and the per-partition payload locks.
//
// Ownership:
//   - Every vertex belongs to exactly one partition, Owner(id).
//   - Every edge belongs to the partition of its Target (EdgeOwner), which is
//     the only partition allowed to write Edge.Data.
//
// Concurrency:
//   - Writers of payloads owned by partition p hold WithPartitionLock(p).
//   - Readers that need a point-in-time view of p hold WithPartitionRLock(p).
package core

import (
	"fmt"
	"slices"
)

// Partitions returns the number of partitions (>= 1).
func (g *Graph[V, E]) Partitions() int { return g.partitions }

// Owner returns the partition owning vertex id.
func (g *Graph[V, E]) Owner(id VertexID) int {
	p := g.owner(id) % g.partitions
	if p < 0 {
		p += g.partitions
	}

	return p
}

// EdgeOwner returns the partition owning e, i.e. Owner(e.Target).
func (g *Graph[V, E]) EdgeOwner(e *Edge[E]) int { return g.Owner(e.Target) }

// OwnedVertices returns the ids owned by partition p, sorted ascending.
//
// Errors:
//   - ErrBadPartition: p outside [0, Partitions()).
//
// Complexity: O(V log V).
func (g *Graph[V, E]) OwnedVertices(p int) ([]VertexID, error) {
	if err := g.checkPartition(p); err != nil {
		return nil, err
	}
	g.mu.RLock()
	var ids []VertexID
	for id := range g.vertices {
		if g.Owner(id) == p {
			ids = append(ids, id)
		}
	}
	g.mu.RUnlock()
	slices.Sort(ids)

	return ids, nil
}

// WithPartitionLock runs fn holding partition p's write lock.
func (g *Graph[V, E]) WithPartitionLock(p int, fn func() error) error {
	if err := g.checkPartition(p); err != nil {
		return err
	}
	g.parts[p].Lock()
	defer g.parts[p].Unlock()

	return fn()
}

// WithPartitionRLock runs fn holding partition p's read lock.
func (g *Graph[V, E]) WithPartitionRLock(p int, fn func() error) error {
	if err := g.checkPartition(p); err != nil {
		return err
	}
	g.parts[p].RLock()
	defer g.parts[p].RUnlock()

	return fn()
}

func (g *Graph[V, E]) checkPartition(p int) error {
	if p < 0 || p >= g.partitions {
		return fmt.Errorf("partition %d of %d: %w", p, g.partitions, ErrBadPartition)
	}

	return nil
}

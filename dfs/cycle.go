// Package dfs implements cycle detection over the undirected view of a
// core.Graph: u→v and v→u collapse into one link, so reciprocal pairs are
// not cycles. FindCycle reports one witness cycle found by a three-color
// depth-first search with back-edge detection. Roots and neighbors are
// visited in ascending ID order, so the witness is deterministic.
//
// Complexity:
//
//   - Time:   O(V + E)
//   - Memory: O(V)     (explicit stack + state map)
package dfs

import (
	"slices"

	"github.com/katalvlaran/kernelbp/core"
)

// frame is one explicit-stack entry: a vertex, its DFS parent and the
// index of the next neighbor to explore.
type frame struct {
	id     core.VertexID
	parent core.VertexID
	root   bool
	nbrs   []core.VertexID
	next   int
}

// FindCycle returns a simple cycle of at least three vertices in the
// undirected view of g, or (nil, false) if g is a forest. The witness
// starts at the vertex where the back edge lands and follows the DFS path.
func FindCycle[V, E any](g *core.Graph[V, E]) ([]core.VertexID, bool, error) {
	if g == nil {
		return nil, false, ErrGraphNil
	}

	ids := g.VertexIDs()
	state := make(map[core.VertexID]int, len(ids))
	for _, root := range ids {
		if state[root] != White {
			continue
		}
		if cyc := visit(g, root, state); cyc != nil {
			return cyc, true, nil
		}
	}

	return nil, false, nil
}

// undirectedNeighbors returns the distinct neighbors of id, ascending.
func undirectedNeighbors[V, E any](g *core.Graph[V, E], id core.VertexID) []core.VertexID {
	nbrs := g.NeighborIDs(id, core.All)
	slices.Sort(nbrs)

	return slices.Compact(nbrs)
}

func visit[V, E any](g *core.Graph[V, E], root core.VertexID, state map[core.VertexID]int) []core.VertexID {
	stack := []*frame{{id: root, root: true, nbrs: undirectedNeighbors(g, root)}}
	state[root] = Gray
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.next == len(top.nbrs) {
			state[top.id] = Black
			stack = stack[:len(stack)-1]
			continue
		}
		nbr := top.nbrs[top.next]
		top.next++
		if !top.root && nbr == top.parent {
			continue
		}
		switch state[nbr] {
		case White:
			state[nbr] = Gray
			stack = append(stack, &frame{id: nbr, parent: top.id, nbrs: undirectedNeighbors(g, nbr)})
		case Gray:
			// Back edge: the cycle is the stack suffix starting at nbr.
			for i, f := range stack {
				if f.id == nbr {
					cyc := make([]core.VertexID, 0, len(stack)-i)
					for _, sf := range stack[i:] {
						cyc = append(cyc, sf.id)
					}
					return cyc
				}
			}
		}
	}

	return nil
}

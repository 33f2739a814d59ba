package kernelbp

import (
	"context"
	"slices"

	"github.com/katalvlaran/kernelbp/bfs"
	"github.com/katalvlaran/kernelbp/core"
	"github.com/katalvlaran/kernelbp/dfs"
)

// Evidence describes how observations reach the hidden vertices.
type Evidence struct {
	// Observed lists the observed vertices, ascending.
	Observed []core.VertexID

	// Unreached lists vertices with no undirected path to any observed
	// vertex, ascending. Their betas stay at the cold-start value.
	Unreached []core.VertexID

	// Depth is the largest hop distance from a reached vertex to its
	// nearest observation.
	Depth int

	// Cycle is one loop of the undirected graph, nil for a forest. On a
	// forest propagation is exact and halts within about 2·Depth supersteps.
	Cycle []core.VertexID
}

// EvidenceReach runs a multi-source BFS from every observed vertex,
// ignoring edge direction, and looks for a loop.
func EvidenceReach(ctx context.Context, g *Graph) (Evidence, error) {
	var ev Evidence
	for v := range g.Vertices() {
		if v.Data.Observed {
			ev.Observed = append(ev.Observed, v.ID)
		}
	}
	slices.Sort(ev.Observed)

	res, err := bfs.BFS(g, ev.Observed, bfs.WithContext(ctx))
	if err != nil {
		return ev, err
	}
	for _, id := range g.VertexIDs() {
		d, ok := res.Depth[id]
		if !ok {
			ev.Unreached = append(ev.Unreached, id)
			continue
		}
		ev.Depth = max(ev.Depth, d)
	}
	if ev.Cycle, _, err = dfs.FindCycle(g); err != nil {
		return ev, err
	}

	return ev, nil
}

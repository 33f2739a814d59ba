package kernelbp

import (
	"cmp"
	"maps"
	"slices"

	"github.com/katalvlaran/kernelbp/core"
	"github.com/katalvlaran/kernelbp/matrix"
)

// Gather is the merged per-vertex gather result.
//
// Merge is a union of both collections. A neighbor present on both sides
// with different betas is recorded in Conflicts (and the lexicographically
// smaller beta is kept so the result does not depend on merge order);
// Apply refuses a Gather with conflicts.
type Gather struct {
	// SourceBetas maps out-neighbors to the beta on the edge toward them.
	SourceBetas map[core.VertexID][]float64

	// Targets is the set of hidden in-neighbors that receive messages.
	Targets map[core.VertexID]bool

	// Conflicts lists neighbors whose betas disagreed during merges.
	Conflicts map[core.VertexID]bool
}

// Merge folds o into g and returns g. Either side may be nil.
func (g *Gather) Merge(o *Gather) *Gather {
	if g == nil {
		return o
	}
	if o == nil {
		return g
	}
	for id, beta := range o.SourceBetas {
		if g.SourceBetas == nil {
			g.SourceBetas = make(map[core.VertexID][]float64)
		}
		cur, ok := g.SourceBetas[id]
		if !ok {
			g.SourceBetas[id] = beta
			continue
		}
		if !matrix.EqualVectors(cur, beta) {
			g.markConflict(id)
			if slices.Compare(beta, cur) < 0 {
				g.SourceBetas[id] = beta
			}
		}
	}
	for id := range o.Targets {
		if g.Targets == nil {
			g.Targets = make(map[core.VertexID]bool)
		}
		g.Targets[id] = true
	}
	for id := range o.Conflicts {
		g.markConflict(id)
	}

	return g
}

func (g *Gather) markConflict(id core.VertexID) {
	if g.Conflicts == nil {
		g.Conflicts = make(map[core.VertexID]bool)
	}
	g.Conflicts[id] = true
}

// sortedIDs returns the keys of m ascending.
func sortedIDs[T any](m map[core.VertexID]T) []core.VertexID {
	return slices.SortedFunc(maps.Keys(m), cmp.Compare[core.VertexID])
}

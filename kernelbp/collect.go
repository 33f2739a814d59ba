package kernelbp

import (
	"cmp"
	"slices"

	"github.com/katalvlaran/kernelbp/aggregate"
	"github.com/katalvlaran/kernelbp/core"
	"github.com/katalvlaran/kernelbp/gas"
	"github.com/katalvlaran/kernelbp/matrix"
)

// NewEngine builds a gas engine running prog over g.
func NewEngine(g *Graph, prog *Program, opts ...gas.Option) (*gas.Engine[*VertexData, *EdgeData, *Gather], error) {
	return gas.New[*VertexData, *EdgeData, *Gather](g, prog, opts...)
}

// Codec is the wire codec for partial gathers shipped between partitions.
func Codec() gas.Codec[*Gather] { return gas.GobCodec[*Gather]{} }

// CollectBetas copies every edge beta keyed by (source, target).
// Uninitialized betas are included as empty vectors.
func CollectBetas(g *Graph) map[EdgeKey][]float64 {
	out := make(map[EdgeKey][]float64, g.EdgeCount())
	for e := range g.Edges() {
		out[EdgeKey{Source: e.Source, Target: e.Target}] = matrix.CloneVector(e.Data.Beta)
	}

	return out
}

// SortedKeys returns the keys of betas ordered by (Source, Target).
func SortedKeys(betas map[EdgeKey][]float64) []EdgeKey {
	keys := make([]EdgeKey, 0, len(betas))
	for k := range betas {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b EdgeKey) int {
		if c := cmp.Compare(a.Source, b.Source); c != 0 {
			return c
		}
		return cmp.Compare(a.Target, b.Target)
	})

	return keys
}

// Summary is the shared value published by the built-in aggregations.
type Summary struct {
	// BeliefMass is Σ over vertices and targets of ‖Messages[t]‖₂.
	BeliefMass float64

	// Messages is the number of message products held by hidden vertices.
	Messages int

	// Syncs counts completed aggregation applies.
	Syncs int
}

// NewBeliefMass returns the aggregation summing message-product norms.
func NewBeliefMass(target *aggregate.Shared[Summary]) (*aggregate.FoldSync[*VertexData, *EdgeData, float64, Summary], error) {
	return aggregate.New[*VertexData, *EdgeData](
		"belief_mass",
		target,
		0.0,
		func(v *core.Vertex[*VertexData], acc float64) float64 {
			for _, t := range sortedIDs(v.Data.Messages) {
				acc += matrix.Norm2(v.Data.Messages[t])
			}
			return acc
		},
		func(a, b float64) float64 { return a + b },
		func(s *Summary, acc float64) {
			s.BeliefMass = acc
			s.Syncs++
		},
	)
}

// NewMessageCount returns the aggregation counting message products.
func NewMessageCount(target *aggregate.Shared[Summary]) (*aggregate.FoldSync[*VertexData, *EdgeData, int, Summary], error) {
	return aggregate.New[*VertexData, *EdgeData](
		"message_count",
		target,
		0,
		func(v *core.Vertex[*VertexData], acc int) int { return acc + len(v.Data.Messages) },
		func(a, b int) int { return a + b },
		func(s *Summary, acc int) { s.Messages = acc },
	)
}

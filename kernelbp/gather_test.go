package kernelbp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/kernelbp/core"
	"github.com/katalvlaran/kernelbp/kernelbp"
)

func gatherOf(betas map[core.VertexID][]float64, targets ...core.VertexID) *kernelbp.Gather {
	g := &kernelbp.Gather{SourceBetas: betas}
	if len(targets) > 0 {
		g.Targets = make(map[core.VertexID]bool)
		for _, t := range targets {
			g.Targets[t] = true
		}
	}

	return g
}

// clone deep-copies a Gather so merges, which reuse the receiver, do not leak between cases.
func clone(g *kernelbp.Gather) *kernelbp.Gather {
	return (&kernelbp.Gather{}).Merge(g)
}

func TestGather_MergeUnion(t *testing.T) {
	a := gatherOf(map[core.VertexID][]float64{1: {1, 0}}, 5)
	b := gatherOf(map[core.VertexID][]float64{2: {0, 1}}, 6)

	m := clone(a).Merge(b)
	assert.Equal(t, map[core.VertexID][]float64{1: {1, 0}, 2: {0, 1}}, m.SourceBetas)
	assert.Equal(t, map[core.VertexID]bool{5: true, 6: true}, m.Targets)
	assert.Empty(t, m.Conflicts)

	// nil on either side is the identity.
	assert.Same(t, a, (*kernelbp.Gather)(nil).Merge(a))
	assert.Same(t, a, a.Merge(nil))
}

func TestGather_MergeCommutativeAssociative(t *testing.T) {
	parts := []*kernelbp.Gather{
		gatherOf(map[core.VertexID][]float64{1: {1, 0}, 3: nil}, 7),
		gatherOf(map[core.VertexID][]float64{2: {0.6, 0.8}}, 7, 8),
		gatherOf(map[core.VertexID][]float64{1: {1, 0}}, 9),
		gatherOf(nil, 3),
	}

	ab := clone(parts[0]).Merge(clone(parts[1]))
	ba := clone(parts[1]).Merge(clone(parts[0]))
	assert.Equal(t, ab, ba)

	left := clone(parts[0]).Merge(clone(parts[1])).Merge(clone(parts[2])).Merge(clone(parts[3]))
	right := clone(parts[0]).Merge(clone(parts[1]).Merge(clone(parts[2]).Merge(clone(parts[3]))))
	rev := clone(parts[3]).Merge(clone(parts[2])).Merge(clone(parts[1])).Merge(clone(parts[0]))
	assert.Equal(t, left, right)
	assert.Equal(t, left.SourceBetas, rev.SourceBetas)
	assert.Equal(t, left.Targets, rev.Targets)
	assert.Empty(t, left.Conflicts)
}

func TestGather_MergeConflict(t *testing.T) {
	a := gatherOf(map[core.VertexID][]float64{4: {1, 0}})
	b := gatherOf(map[core.VertexID][]float64{4: {0, 1}})

	ab := clone(a).Merge(clone(b))
	ba := clone(b).Merge(clone(a))
	assert.Equal(t, ab, ba)
	assert.Equal(t, map[core.VertexID]bool{4: true}, ab.Conflicts)
	// Smaller beta wins regardless of order.
	assert.Equal(t, []float64{0, 1}, ab.SourceBetas[4])

	// Conflicts survive further merges.
	c := gatherOf(map[core.VertexID][]float64{5: {1}})
	assert.True(t, c.Merge(ab).Conflicts[4])
}

func TestGather_CodecRoundTrip(t *testing.T) {
	codec := kernelbp.Codec()
	in := map[core.VertexID]*kernelbp.Gather{
		1: gatherOf(map[core.VertexID][]float64{2: {0.5, 0.5}}, 3),
		9: gatherOf(nil, 4),
	}
	data, err := codec.Encode(in)
	require.NoError(t, err)
	out, err := codec.Decode(data)
	require.NoError(t, err)

	require.Len(t, out, 2)
	assert.Equal(t, in[1].SourceBetas, out[1].SourceBetas)
	assert.Equal(t, in[1].Targets, out[1].Targets)
	assert.Equal(t, in[9].Targets, out[9].Targets)

	// Merging decoded partials equals merging the originals.
	assert.Equal(t,
		clone(in[1]).Merge(clone(in[9])).Targets,
		out[1].Merge(out[9]).Targets,
	)
}

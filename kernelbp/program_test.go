package kernelbp_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/kernelbp/aggregate"
	"github.com/katalvlaran/kernelbp/core"
	"github.com/katalvlaran/kernelbp/gas"
	"github.com/katalvlaran/kernelbp/kernelbp"
	"github.com/katalvlaran/kernelbp/matrix"
)

const tol = 1e-9

func ident(t *testing.T, n int) *matrix.Dense {
	t.Helper()
	m, err := matrix.Identity(n)
	require.NoError(t, err)

	return m
}

func dense(t *testing.T, rows ...[]float64) *matrix.Dense {
	t.Helper()
	m, err := matrix.NewFromRows(rows)
	require.NoError(t, err)

	return m
}

func fullRank(t *testing.T, n int) *kernelbp.EdgeData {
	t.Helper()
	return kernelbp.NewEdgeData(map[string]*matrix.Dense{
		kernelbp.FactorLs: ident(t, n),
		kernelbp.FactorLt: ident(t, n),
	})
}

func reducedRank(t *testing.T, n int) *kernelbp.EdgeData {
	t.Helper()
	sol := make(map[string]*matrix.Dense)
	for _, name := range []string{
		kernelbp.FactorPs, kernelbp.FactorQs, kernelbp.FactorRs,
		kernelbp.FactorPt, kernelbp.FactorQt, kernelbp.FactorRt, kernelbp.FactorW,
	} {
		sol[name] = ident(t, n)
	}

	return kernelbp.NewEdgeData(sol)
}

func observed(obs map[core.VertexID][]float64) *kernelbp.VertexData {
	d := kernelbp.NewVertexData(true)
	for k, v := range obs {
		d.ObsKernels[k] = v
	}

	return d
}

// chain3 builds 1(observed) ← 2(hidden) → 3(observed).
func chain3(t *testing.T, parts int, edge func(*testing.T, int) *kernelbp.EdgeData) *kernelbp.Graph {
	t.Helper()
	g := core.NewGraph[*kernelbp.VertexData, *kernelbp.EdgeData](core.WithPartitions(parts))
	require.NoError(t, g.AddVertex(1, observed(map[core.VertexID][]float64{2: {1, 0}})))
	require.NoError(t, g.AddVertex(2, kernelbp.NewVertexData(false)))
	require.NoError(t, g.AddVertex(3, observed(map[core.VertexID][]float64{2: {0, 1}})))
	_, err := g.AddEdge(2, 1, edge(t, 2))
	require.NoError(t, err)
	_, err = g.AddEdge(2, 3, edge(t, 2))
	require.NoError(t, err)

	return g
}

func run(t *testing.T, g *kernelbp.Graph, opts ...gas.Option) gas.Stats {
	t.Helper()
	prog, err := kernelbp.NewProgram(tol)
	require.NoError(t, err)
	eng, err := kernelbp.NewEngine(g, prog, append(opts, gas.WithMetrics(false))...)
	require.NoError(t, err)
	require.NoError(t, eng.SignalAll())
	stats, err := eng.Run(context.Background())
	require.NoError(t, err)

	return stats
}

func TestProgram_ThreeNodeChain(t *testing.T) {
	for _, tc := range []struct {
		name  string
		parts int
		edge  func(*testing.T, int) *kernelbp.EdgeData
		opts  []gas.Option
	}{
		{name: "full_rank", parts: 1, edge: fullRank},
		{name: "reduced_rank", parts: 1, edge: reducedRank},
		{name: "full_rank_partitioned_gob", parts: 3, edge: fullRank, opts: []gas.Option{gas.WithCodec(kernelbp.Codec())}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			g := chain3(t, tc.parts, tc.edge)
			stats := run(t, g, tc.opts...)

			betas := kernelbp.CollectBetas(g)
			assert.Equal(t, []float64{1, 0}, betas[kernelbp.EdgeKey{Source: 2, Target: 1}])
			assert.Equal(t, []float64{0, 1}, betas[kernelbp.EdgeKey{Source: 2, Target: 3}])
			// Superstep 0 sets both betas and signals 2; superstep 1 runs 2 alone.
			assert.Equal(t, 2, stats.Supersteps)
			assert.Equal(t, 4, stats.VertexUpdates)
			assert.Equal(t, 2, stats.Signals)

			// Re-running from converged state changes nothing and signals nobody.
			again := run(t, g)
			assert.Equal(t, 1, again.Supersteps)
			assert.Zero(t, again.Signals)
			assert.Equal(t, betas, kernelbp.CollectBetas(g))
		})
	}
}

func TestNewEngine_DefaultSeed(t *testing.T) {
	g := chain3(t, 2, fullRank)
	prog, err := kernelbp.NewProgram(tol)
	require.NoError(t, err)
	eng, err := kernelbp.NewEngine(g, prog, gas.WithMetrics(false))
	require.NoError(t, err)

	// Without SignalAll every vertex still starts active.
	stats, err := eng.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Supersteps)
	betas := kernelbp.CollectBetas(g)
	assert.Equal(t, []float64{1, 0}, betas[kernelbp.EdgeKey{Source: 2, Target: 1}])
	assert.Equal(t, []float64{0, 1}, betas[kernelbp.EdgeKey{Source: 2, Target: 3}])
}

// unit returns x scaled to unit length.
func unit(x ...float64) []float64 {
	out := make([]float64, len(x))
	n := matrix.Norm2(x)
	for i, v := range x {
		out[i] = v / n
	}

	return out
}

// TestProgram_SolveChains runs every chain on distinct non-symmetric
// factors, so a reordered step, a swapped source/target factor or a
// missing transpose changes the result. k = [1, 2] throughout.
func TestProgram_SolveChains(t *testing.T) {
	factors := func(t *testing.T, names ...string) map[string]*matrix.Dense {
		all := map[string]*matrix.Dense{
			kernelbp.FactorLt: dense(t, []float64{2, 0}, []float64{1, 1}),
			kernelbp.FactorLs: dense(t, []float64{2, 0}, []float64{3, 1}),
			kernelbp.FactorPt: dense(t, []float64{1, 2}, []float64{0, 1}),
			kernelbp.FactorQt: dense(t, []float64{1, 0}, []float64{1, 1}),
			kernelbp.FactorRt: dense(t, []float64{2, 1}, []float64{0, 1}),
			kernelbp.FactorW:  dense(t, []float64{1, 1}, []float64{0, 2}),
			kernelbp.FactorPs: dense(t, []float64{1, 3}, []float64{0, 2}),
			kernelbp.FactorQs: dense(t, []float64{1, 1}, []float64{0, 1}),
			kernelbp.FactorRs: dense(t, []float64{1, 2}, []float64{0, 4}),
		}
		out := make(map[string]*matrix.Dense, len(names))
		for _, n := range names {
			out[n] = all[n]
		}

		return out
	}
	k := []float64{1, 2}

	for _, tc := range []struct {
		name     string
		observed bool
		factors  []string
		want     []float64
	}{
		{
			// L_t⁻¹k = [1/2, 3/2]; L_t⁻ᵀ → [-1/2, 3/2]; L_s⁻¹ → [-1/4, 9/4]; L_s⁻ᵀ → [-7/2, 9/4].
			name:     "observed_full_rank",
			observed: true,
			factors:  []string{kernelbp.FactorLs, kernelbp.FactorLt},
			want:     unit(-3.5, 2.25),
		},
		{
			// P_tᵀk = [1, 4]; Q_tᵀ → [5, 4]; R_t⁻¹ → [1/2, 4]; W → [9/2, 8];
			// P_sᵀ → [9/2, 59/2]; Q_sᵀ → [9/2, 34]; R_s⁻¹ → [-25/2, 17/2].
			name:     "observed_reduced_rank",
			observed: true,
			factors: []string{
				kernelbp.FactorPt, kernelbp.FactorQt, kernelbp.FactorRt, kernelbp.FactorW,
				kernelbp.FactorPs, kernelbp.FactorQs, kernelbp.FactorRs,
			},
			want: unit(-12.5, 8.5),
		},
		{
			// L_s⁻¹k = [1/2, 1/2]; L_s⁻ᵀ → [-1/2, 1/2].
			name:    "hidden_full_rank",
			factors: []string{kernelbp.FactorLs, kernelbp.FactorLt},
			want:    unit(-0.5, 0.5),
		},
		{
			// W k = [3, 4]; P_sᵀ → [3, 17]; Q_sᵀ → [3, 20]; R_s⁻¹ → [-7, 5].
			name:    "hidden_reduced_rank",
			factors: []string{kernelbp.FactorW, kernelbp.FactorPs, kernelbp.FactorQs, kernelbp.FactorRs},
			want:    unit(-7, 5),
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ctx := gas.NewContext(context.Background(), 0, 0, nil, nil)
			prog, err := kernelbp.NewProgram(tol)
			require.NoError(t, err)

			d := kernelbp.NewVertexData(tc.observed)
			if tc.observed {
				d.ObsKernels[1] = k
			} else {
				d.Messages[1] = k
			}
			v := &core.Vertex[*kernelbp.VertexData]{ID: 2, Data: d}
			ed := kernelbp.NewEdgeData(factors(t, tc.factors...))
			e := &core.Edge[*kernelbp.EdgeData]{Source: 1, Target: 2, Data: ed}

			require.NoError(t, prog.Scatter(ctx, v, e, nil))
			assert.InDeltaSlice(t, tc.want, ed.Beta, 1e-12)
		})
	}
}

// loop4 builds 1(obs) ← 2 ⇄ 3 → 4(obs) with diagonal kernels on the hidden pair.
func loop4(t *testing.T, parts int) *kernelbp.Graph {
	t.Helper()
	g := core.NewGraph[*kernelbp.VertexData, *kernelbp.EdgeData](core.WithPartitions(parts))
	require.NoError(t, g.AddVertex(1, observed(map[core.VertexID][]float64{2: {3, 4}})))
	require.NoError(t, g.AddVertex(4, observed(map[core.VertexID][]float64{3: {0, 2}})))

	v2 := kernelbp.NewVertexData(false)
	v2.Kernels[kernelbp.Pair{Target: 3, Source: 1}] = dense(t, []float64{2, 0}, []float64{0, 1})
	require.NoError(t, g.AddVertex(2, v2))
	v3 := kernelbp.NewVertexData(false)
	v3.Kernels[kernelbp.Pair{Target: 2, Source: 4}] = dense(t, []float64{1, 0}, []float64{0, 3})
	require.NoError(t, g.AddVertex(3, v3))

	for _, p := range [][2]core.VertexID{{2, 1}, {2, 3}, {3, 2}, {3, 4}} {
		_, err := g.AddEdge(p[0], p[1], fullRank(t, 2))
		require.NoError(t, err)
	}

	return g
}

func TestProgram_HiddenLoopConverges(t *testing.T) {
	var ref map[kernelbp.EdgeKey][]float64
	for _, parts := range []int{1, 2, 4} {
		g := loop4(t, parts)
		run(t, g)
		betas := kernelbp.CollectBetas(g)

		// Every converged beta has unit norm.
		for k, b := range betas {
			assert.InDelta(t, 1.0, matrix.Norm2(b), 1e-12, "beta %v", k)
		}
		// 3→2 carries K₂(3,1)·normalize(obs₁) = diag(2,1)·[0.6,0.8], normalized.
		n := math.Sqrt(1.2*1.2 + 0.8*0.8)
		assert.InDeltaSlice(t, []float64{1.2 / n, 0.8 / n}, betas[kernelbp.EdgeKey{Source: 3, Target: 2}], 1e-12)
		// 2→3 carries K₃(2,4)·[0,1] = [0,3], normalized.
		assert.InDeltaSlice(t, []float64{0, 1}, betas[kernelbp.EdgeKey{Source: 2, Target: 3}], 1e-12)

		if ref == nil {
			ref = betas
		} else {
			assert.Equal(t, ref, betas, "partitions=%d", parts)
		}
	}
}

func TestProgram_ColdStartHidden(t *testing.T) {
	ctx := gas.NewContext(context.Background(), 0, 0, nil, nil)
	prog, err := kernelbp.NewProgram(tol)
	require.NoError(t, err)

	t.Run("full_rank", func(t *testing.T) {
		ed := kernelbp.NewEdgeData(map[string]*matrix.Dense{
			kernelbp.FactorLs: dense(t, []float64{1, 0, 0}, []float64{0, 2, 0}, []float64{0, 0, 4}),
		})
		v := &core.Vertex[*kernelbp.VertexData]{ID: 2, Data: kernelbp.NewVertexData(false)}
		e := &core.Edge[*kernelbp.EdgeData]{Source: 1, Target: 2, Data: ed}

		var signaled []core.VertexID
		sctx := gas.NewContext(context.Background(), 0, 0, func(id core.VertexID) { signaled = append(signaled, id) }, nil)
		require.NoError(t, prog.Scatter(sctx, v, e, nil))

		// (L Lᵀ)⁻¹ · ones/√3 with L = diag(1,2,4) ∝ [1, 1/4, 1/16].
		n := math.Sqrt(1 + 1.0/16 + 1.0/256)
		assert.InDeltaSlice(t, []float64{1 / n, 0.25 / n, 0.0625 / n}, ed.Beta, 1e-12)
		assert.Equal(t, []core.VertexID{1}, signaled)
	})

	t.Run("reduced_rank_uses_W_columns", func(t *testing.T) {
		ed := kernelbp.NewEdgeData(map[string]*matrix.Dense{
			kernelbp.FactorW:  dense(t, []float64{1, 1, 1}, []float64{0, 0, 1}),
			kernelbp.FactorPs: ident(t, 2),
			kernelbp.FactorQs: ident(t, 2),
			kernelbp.FactorRs: ident(t, 2),
		})
		require.False(t, ed.FullRank)
		v := &core.Vertex[*kernelbp.VertexData]{ID: 2, Data: kernelbp.NewVertexData(false)}
		e := &core.Edge[*kernelbp.EdgeData]{Source: 1, Target: 2, Data: ed}
		require.NoError(t, prog.Scatter(ctx, v, e, nil))

		n := math.Sqrt(10)
		assert.InDeltaSlice(t, []float64{3 / n, 1 / n}, ed.Beta, 1e-12)
	})
}

func TestProgram_ApplySelfPairAndColdBeta(t *testing.T) {
	ctx := gas.NewContext(context.Background(), 0, 0, nil, nil)
	prog, err := kernelbp.NewProgram(tol)
	require.NoError(t, err)

	d := kernelbp.NewVertexData(false)
	d.Kernels[kernelbp.Pair{Target: 5, Source: 6}] = dense(t, []float64{1, 1}, []float64{0, 2})
	d.Kernels[kernelbp.Pair{Target: 6, Source: 5}] = ident(t, 2)
	d.Messages[99] = []float64{7} // stale products are cleared
	v := &core.Vertex[*kernelbp.VertexData]{ID: 1, Data: d}

	// No kernel exists for (5,5) or (6,6): self pairs must be skipped.
	acc := gatherOf(map[core.VertexID][]float64{5: {0, 1}, 6: nil}, 5, 6)
	require.NoError(t, prog.Apply(ctx, v, acc))

	s := 1 / math.Sqrt2
	// K(5,6) applied to the cold-start unit vector.
	assert.InDeltaSlice(t, []float64{2 * s, 2 * s}, d.Messages[5], 1e-12)
	// Identity kernel passes beta from 5 through.
	assert.Equal(t, []float64{0, 1}, d.Messages[6])
	assert.Len(t, d.Messages, 2)
}

func TestProgram_ApplyProduct(t *testing.T) {
	ctx := gas.NewContext(context.Background(), 0, 0, nil, nil)
	prog, err := kernelbp.NewProgram(tol)
	require.NoError(t, err)

	d := kernelbp.NewVertexData(false)
	d.Kernels[kernelbp.Pair{Target: 1, Source: 2}] = dense(t, []float64{2, 0}, []float64{0, 3})
	d.Kernels[kernelbp.Pair{Target: 1, Source: 3}] = dense(t, []float64{5, 0}, []float64{0, 7})
	v := &core.Vertex[*kernelbp.VertexData]{ID: 4, Data: d}

	acc := gatherOf(map[core.VertexID][]float64{2: {1, 1}, 3: {1, 2}}, 1)
	require.NoError(t, prog.Apply(ctx, v, acc))
	assert.Equal(t, []float64{2 * 5, 3 * 14}, d.Messages[1])
}

func TestProgram_Errors(t *testing.T) {
	ctx := gas.NewContext(context.Background(), 0, 0, nil, nil)
	prog, err := kernelbp.NewProgram(tol)
	require.NoError(t, err)

	_, err = kernelbp.NewProgram(-1)
	require.ErrorIs(t, err, kernelbp.ErrBadTolerance)
	_, err = kernelbp.NewProgram(math.NaN())
	require.ErrorIs(t, err, kernelbp.ErrBadTolerance)

	t.Run("missing kernel", func(t *testing.T) {
		v := &core.Vertex[*kernelbp.VertexData]{ID: 1, Data: kernelbp.NewVertexData(false)}
		err := prog.Apply(ctx, v, gatherOf(map[core.VertexID][]float64{2: nil}, 3))
		require.ErrorIs(t, err, kernelbp.ErrMissingKernel)
	})

	t.Run("gather conflict", func(t *testing.T) {
		for _, obs := range []bool{false, true} {
			v := &core.Vertex[*kernelbp.VertexData]{ID: 1, Data: kernelbp.NewVertexData(obs)}
			acc := gatherOf(map[core.VertexID][]float64{2: {1}}).Merge(gatherOf(map[core.VertexID][]float64{2: {2}}))
			require.ErrorIs(t, prog.Apply(ctx, v, acc), kernelbp.ErrGatherConflict, "observed=%v", obs)
		}
	})

	t.Run("missing observation", func(t *testing.T) {
		v := &core.Vertex[*kernelbp.VertexData]{ID: 1, Data: observed(nil)}
		e := &core.Edge[*kernelbp.EdgeData]{Source: 2, Target: 1, Data: fullRank(t, 2)}
		require.ErrorIs(t, prog.Scatter(ctx, v, e, nil), kernelbp.ErrMissingObservation)
	})

	t.Run("missing message", func(t *testing.T) {
		d := kernelbp.NewVertexData(false)
		d.Messages[7] = []float64{1, 0}
		v := &core.Vertex[*kernelbp.VertexData]{ID: 1, Data: d}
		e := &core.Edge[*kernelbp.EdgeData]{Source: 2, Target: 1, Data: fullRank(t, 2)}
		require.ErrorIs(t, prog.Scatter(ctx, v, e, nil), kernelbp.ErrMissingMessage)
	})

	t.Run("missing factor", func(t *testing.T) {
		v := &core.Vertex[*kernelbp.VertexData]{ID: 1, Data: observed(map[core.VertexID][]float64{2: {1, 0}})}
		e := &core.Edge[*kernelbp.EdgeData]{Source: 2, Target: 1, Data: kernelbp.NewEdgeData(map[string]*matrix.Dense{
			kernelbp.FactorLs: ident(t, 2),
		})}
		require.ErrorIs(t, prog.Scatter(ctx, v, e, nil), kernelbp.ErrMissingFactor)
	})

	t.Run("engine aborts", func(t *testing.T) {
		g := chain3(t, 2, fullRank)
		v1, err := g.Vertex(1)
		require.NoError(t, err)
		delete(v1.Data.ObsKernels, 2)

		eng, err := kernelbp.NewEngine(g, prog, gas.WithMetrics(false))
		require.NoError(t, err)
		require.NoError(t, eng.SignalAll())
		_, err = eng.Run(context.Background())
		require.ErrorIs(t, err, kernelbp.ErrMissingObservation)
	})
}

func TestProgram_ConvergenceThreshold(t *testing.T) {
	v := &core.Vertex[*kernelbp.VertexData]{ID: 1, Data: observed(map[core.VertexID][]float64{2: {1, 0}})}

	var signals int
	sctx := gas.NewContext(context.Background(), 1, 0, func(core.VertexID) { signals++ }, nil)

	// Old beta within tolerance: untouched, no signal.
	loose, err := kernelbp.NewProgram(0.1)
	require.NoError(t, err)
	ed := fullRank(t, 2)
	old := []float64{math.Cos(0.05), math.Sin(0.05)}
	ed.Beta = old
	e := &core.Edge[*kernelbp.EdgeData]{Source: 2, Target: 1, Data: ed}
	require.NoError(t, loose.Scatter(sctx, v, e, nil))
	assert.Equal(t, old, ed.Beta)
	assert.Zero(t, signals)

	// Same move with a tight tolerance: stored and signaled.
	tight, err := kernelbp.NewProgram(0.01)
	require.NoError(t, err)
	require.NoError(t, tight.Scatter(sctx, v, e, nil))
	assert.Equal(t, []float64{1, 0}, ed.Beta)
	assert.Equal(t, 1, signals)

	// Converged: applying again is a no-op.
	require.NoError(t, tight.Scatter(sctx, v, e, nil))
	assert.Equal(t, 1, signals)
}

func TestAggregations(t *testing.T) {
	g := loop4(t, 2)
	run(t, g)

	shared := aggregate.NewShared(kernelbp.Summary{})
	mass, err := kernelbp.NewBeliefMass(shared)
	require.NoError(t, err)
	count, err := kernelbp.NewMessageCount(shared)
	require.NoError(t, err)

	require.NoError(t, mass.Bind(g).Sync(context.Background()))
	require.NoError(t, count.Run(context.Background(), g))

	s := shared.Get()
	// Hidden 2 holds Messages[3], hidden 3 holds Messages[2]; observed vertices hold none.
	assert.Equal(t, 2, s.Messages)
	assert.Equal(t, 1, s.Syncs)
	assert.Greater(t, s.BeliefMass, 0.0)
}

func TestCollectBetas_SortedKeys(t *testing.T) {
	g := loop4(t, 1)
	keys := kernelbp.SortedKeys(kernelbp.CollectBetas(g))
	assert.Equal(t, []kernelbp.EdgeKey{
		{Source: 2, Target: 1},
		{Source: 2, Target: 3},
		{Source: 3, Target: 2},
		{Source: 3, Target: 4},
	}, keys)
}

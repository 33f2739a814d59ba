package kernelbp

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/katalvlaran/kernelbp/core"
	"github.com/katalvlaran/kernelbp/gas"
	"github.com/katalvlaran/kernelbp/matrix"
)

// Program is the kernel belief-propagation vertex program.
//
//   - Gather (all edges): in-edges from hidden vertices name message targets;
//     out-edges contribute their beta keyed by the edge target.
//   - Apply: Messages[t] = ∏_{s≠t} K(t,s)·beta_s, elementwise product.
//   - Scatter (in-edges): solve the edge's factor chain against the
//     observation vector (observed vertex) or Messages[source] (hidden
//     vertex), normalize, and signal the source when beta moved by more
//     than the tolerance.
type Program struct {
	tolerance float64
	logger    *slog.Logger
}

var _ gas.VertexProgram[*VertexData, *EdgeData, *Gather] = (*Program)(nil)

// Option configures a Program.
type Option func(*Program)

// WithLogger overrides the per-callback logger (default: the engine's).
func WithLogger(l *slog.Logger) Option {
	return func(p *Program) { p.logger = l }
}

// NewProgram returns a Program converging when ‖new−old‖₂ <= tolerance.
//
// Errors:
//   - ErrBadTolerance: tolerance negative, NaN or infinite.
func NewProgram(tolerance float64, opts ...Option) (*Program, error) {
	if tolerance < 0 || math.IsNaN(tolerance) || math.IsInf(tolerance, 0) {
		return nil, fmt.Errorf("%v: %w", tolerance, ErrBadTolerance)
	}
	p := &Program{tolerance: tolerance}
	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// Tolerance returns the convergence threshold.
func (p *Program) Tolerance() float64 { return p.tolerance }

func (p *Program) log(c *gas.Context) *slog.Logger {
	if p.logger != nil {
		return p.logger
	}

	return c.Logger()
}

// GatherEdges implements gas.VertexProgram.
func (p *Program) GatherEdges(*gas.Context, *core.Vertex[*VertexData]) core.Direction {
	return core.All
}

// Gather implements gas.VertexProgram.
func (p *Program) Gather(c *gas.Context, v *core.Vertex[*VertexData], e *core.Edge[*EdgeData], other *core.Vertex[*VertexData]) (*Gather, error) {
	g := &Gather{}
	if e.Target == v.ID {
		if !other.Data.Observed {
			g.Targets = map[core.VertexID]bool{e.Source: true}
		}
	} else {
		g.SourceBetas = map[core.VertexID][]float64{e.Target: matrix.CloneVector(e.Data.Beta)}
	}

	return g, nil
}

// Apply implements gas.VertexProgram. Observed vertices never read their
// message products, so only their products are cleared.
func (p *Program) Apply(c *gas.Context, v *core.Vertex[*VertexData], acc *Gather) error {
	d := v.Data
	d.Messages = make(map[core.VertexID][]float64)
	if acc == nil {
		return nil
	}
	if len(acc.Conflicts) > 0 {
		return fmt.Errorf("vertex %d neighbors %v: %w", v.ID, sortedIDs(acc.Conflicts), ErrGatherConflict)
	}
	if d.Observed {
		return nil
	}

	sources := sortedIDs(acc.SourceBetas)
	for _, t := range sortedIDs(acc.Targets) {
		for _, s := range sources {
			if s == t {
				continue
			}
			k, ok := d.Kernels[Pair{Target: t, Source: s}]
			if !ok || k == nil {
				return fmt.Errorf("vertex %d pair (%d,%d): %w", v.ID, t, s, ErrMissingKernel)
			}
			beta := acc.SourceBetas[s]
			if len(beta) == 0 {
				var err error
				if beta, err = matrix.ConstantUnit(k.Cols()); err != nil {
					return fmt.Errorf("vertex %d pair (%d,%d): %w", v.ID, t, s, err)
				}
			}
			msg, err := matrix.MatVec(k, beta)
			if err != nil {
				return fmt.Errorf("vertex %d pair (%d,%d): %w", v.ID, t, s, err)
			}
			if prev, ok := d.Messages[t]; ok {
				if msg, err = matrix.Hadamard(prev, msg); err != nil {
					return fmt.Errorf("vertex %d target %d: %w", v.ID, t, err)
				}
			}
			d.Messages[t] = msg
		}
	}
	p.log(c).Debug("apply",
		slog.Int64("vertex", int64(v.ID)),
		slog.Int("partition", c.Partition()),
		slog.Int("targets", len(acc.Targets)),
		slog.Int("sources", len(sources)),
		slog.Int("messages", len(d.Messages)),
	)

	return nil
}

// ScatterEdges implements gas.VertexProgram.
func (p *Program) ScatterEdges(*gas.Context, *core.Vertex[*VertexData]) core.Direction {
	return core.In
}

// Scatter implements gas.VertexProgram. v is e.Target; the new beta is the
// message from v to e.Source.
func (p *Program) Scatter(c *gas.Context, v *core.Vertex[*VertexData], e *core.Edge[*EdgeData], _ *core.Vertex[*VertexData]) error {
	raw, err := p.solve(v, e)
	if err != nil {
		return fmt.Errorf("edge %d->%d: %w", e.Source, e.Target, err)
	}
	beta, err := matrix.Normalize(raw)
	if err != nil {
		return fmt.Errorf("edge %d->%d: %w", e.Source, e.Target, err)
	}

	diff := math.Inf(1)
	if len(e.Data.Beta) > 0 {
		if diff, err = matrix.Distance(beta, e.Data.Beta); err != nil {
			return fmt.Errorf("edge %d->%d: %w", e.Source, e.Target, err)
		}
	}
	changed := diff > p.tolerance
	if changed {
		e.Data.Beta = beta
		c.Signal(e.Source)
	}
	p.log(c).Debug("scatter",
		slog.Int64("source", int64(e.Source)),
		slog.Int64("target", int64(e.Target)),
		slog.Bool("observed", v.Data.Observed),
		slog.Bool("full_rank", e.Data.FullRank),
		slog.Float64("diff", diff),
		slog.Bool("signaled", changed),
	)

	return nil
}

// solve picks the input vector and factor chain for e and runs it.
func (p *Program) solve(v *core.Vertex[*VertexData], e *core.Edge[*EdgeData]) ([]float64, error) {
	d, ed := v.Data, e.Data
	if d.Observed {
		k, ok := d.ObsKernels[e.Source]
		if !ok {
			return nil, fmt.Errorf("vertex %d neighbor %d: %w", v.ID, e.Source, ErrMissingObservation)
		}
		if ed.FullRank {
			return runChain(ed, fullObservedChain, k)
		}
		return runChain(ed, reducedObservedChain, k)
	}

	chain, sizer := reducedHiddenChain, FactorW
	if ed.FullRank {
		chain, sizer = fullHiddenChain, FactorLs
	}
	var k []float64
	if len(d.Messages) == 0 {
		f, err := factor(ed, sizer)
		if err != nil {
			return nil, err
		}
		if k, err = matrix.ConstantUnit(f.Cols()); err != nil {
			return nil, err
		}
	} else {
		var ok bool
		if k, ok = d.Messages[e.Source]; !ok {
			return nil, fmt.Errorf("vertex %d neighbor %d: %w", v.ID, e.Source, ErrMissingMessage)
		}
	}

	return runChain(ed, chain, k)
}

// File: engine.go
// Role: Synchronous superstep engine.
//
// Superstep:
//   - Gather: worker p visits, for every active vertex, the gather-direction
//     edges it owns (EdgeOwner == p) and merges the results into a partial per
//     vertex. Partials of vertices owned elsewhere are shipped to the owner's
//     inbox (optionally through a Codec). Barrier.
//   - Apply: worker p merges its inbox into its partials and applies every
//     active vertex it owns under its partition write lock. Barrier.
//   - Scatter: worker p visits the scatter-direction edges it owns for every
//     active vertex under its partition write lock; signals collect into the
//     next active set. Barrier.
//
// The run halts when the next active set is empty.
package gas

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/katalvlaran/kernelbp/core"
)

// Engine drives a VertexProgram over a core.Graph.
type Engine[V, E any, A Accumulator[A]] struct {
	graph *core.Graph[V, E]
	prog  VertexProgram[V, E, A]
	opts  options
	codec Codec[A]

	mu      sync.Mutex // guards seed, seeded, running
	seed    *activeSet
	seeded  bool
	running bool
}

// batch carries partial accumulators from one partition to another.
type batch[A any] struct {
	from     int
	partials map[core.VertexID]A
	payload  []byte
}

// New builds an engine for graph and prog.
//
// Errors:
//   - ErrNilProgram: graph or prog is nil.
//   - ErrUnsupportedMode: mode other than ModeSync.
//   - ErrCodecMismatch: WithCodec was given a Codec for another type.
func New[V, E any, A Accumulator[A]](graph *core.Graph[V, E], prog VertexProgram[V, E, A], opts ...Option) (*Engine[V, E, A], error) {
	if graph == nil || prog == nil {
		return nil, ErrNilProgram
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.mode != ModeSync {
		return nil, fmt.Errorf("mode %q: %w", o.mode, ErrUnsupportedMode)
	}
	e := &Engine[V, E, A]{graph: graph, prog: prog, opts: o, seed: newActiveSet()}
	if o.codec != nil {
		c, ok := o.codec.(Codec[A])
		if !ok {
			return nil, fmt.Errorf("codec %T: %w", o.codec, ErrCodecMismatch)
		}
		e.codec = c
	}

	return e, nil
}

// Signal adds ids to the initial active set of the next Run. Without any
// Signal call a Run activates every vertex; Signal() with no ids makes the
// next Run start from an empty set.
//
// Errors:
//   - ErrRunning: a run is in progress.
//   - core.ErrVertexNotFound: an id is not in the graph.
func (e *Engine[V, E, A]) Signal(ids ...core.VertexID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return ErrRunning
	}
	for _, id := range ids {
		if !e.graph.HasVertex(id) {
			return fmt.Errorf("Signal(%d): %w", id, core.ErrVertexNotFound)
		}
		e.seed.ids[id] = struct{}{}
	}
	e.seeded = true

	return nil
}

// SignalAll adds every vertex to the initial active set.
func (e *Engine[V, E, A]) SignalAll() error {
	return e.Signal(e.graph.VertexIDs()...)
}

// Run executes supersteps until quiescence, an error, ctx cancellation or
// the superstep bound. The graph is frozen on entry. The seed of Signal
// calls is consumed; with none pending every vertex starts active. Partial Stats are
// returned together with any error.
func (e *Engine[V, E, A]) Run(ctx context.Context) (Stats, error) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return Stats{}, ErrRunning
	}
	e.running = true
	active := e.seed.drain()
	if !e.seeded {
		active = e.graph.VertexIDs()
	}
	e.seeded = false
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	e.graph.Freeze()
	stats := Stats{RunID: uuid.NewString()}
	logger := e.opts.logger.With(slog.String("run_id", stats.RunID))

	ctx, span := tracer.Start(ctx, "gas.Engine.Run",
		trace.WithAttributes(
			attribute.String("gas.run_id", stats.RunID),
			attribute.Int("gas.vertices", e.graph.VertexCount()),
			attribute.Int("gas.partitions", e.graph.Partitions()),
		),
	)
	defer span.End()

	start := time.Now()
	logger.Info("engine run started",
		slog.Int("vertices", e.graph.VertexCount()),
		slog.Int("edges", e.graph.EdgeCount()),
		slog.Int("partitions", e.graph.Partitions()),
		slog.Int("active", len(active)),
	)

	fail := func(err error) (Stats, error) {
		stats.Duration = time.Since(start)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("engine run failed", slog.Int("superstep", stats.Supersteps), slog.String("error", err.Error()))
		return stats, err
	}

	for len(active) > 0 {
		if err := ctx.Err(); err != nil {
			return fail(fmt.Errorf("superstep %d: %w", stats.Supersteps, err))
		}
		if e.opts.maxSupersteps > 0 && stats.Supersteps >= e.opts.maxSupersteps {
			return fail(fmt.Errorf("%d supersteps, %d active: %w", stats.Supersteps, len(active), ErrMaxSupersteps))
		}

		next, signals, err := e.superstep(ctx, logger, stats.Supersteps, active)
		if err != nil {
			return fail(err)
		}
		stats.Supersteps++
		stats.VertexUpdates += len(active)
		stats.Signals += signals
		if e.opts.metrics {
			superstepsTotal.Inc()
			vertexUpdatesTotal.Add(float64(len(active)))
			signalsTotal.Add(float64(signals))
		}

		for _, ps := range e.opts.syncers {
			if ps.every > 0 && stats.Supersteps%ps.every == 0 {
				if err := ps.s.Sync(ctx); err != nil {
					return fail(fmt.Errorf("aggregator after superstep %d: %w", stats.Supersteps, err))
				}
			}
		}
		active = next
	}

	for _, ps := range e.opts.syncers {
		if err := ps.s.Sync(ctx); err != nil {
			return fail(fmt.Errorf("final aggregator: %w", err))
		}
	}
	if e.opts.metrics {
		activeVertices.Set(0)
	}

	stats.Duration = time.Since(start)
	span.SetAttributes(
		attribute.Int("gas.supersteps", stats.Supersteps),
		attribute.Int("gas.vertex_updates", stats.VertexUpdates),
	)
	logger.Info("engine run converged",
		slog.Int("supersteps", stats.Supersteps),
		slog.Int("vertex_updates", stats.VertexUpdates),
		slog.Int("signals", stats.Signals),
		slog.Duration("duration", stats.Duration),
	)

	return stats, nil
}

// superstep runs the three barrier-separated phases for active and returns
// the next active set and the number of raised signals.
func (e *Engine[V, E, A]) superstep(ctx context.Context, logger *slog.Logger, step int, active []core.VertexID) ([]core.VertexID, int, error) {
	ctx, span := tracer.Start(ctx, "gas.Engine.superstep",
		trace.WithAttributes(
			attribute.Int("gas.superstep", step),
			attribute.Int("gas.active", len(active)),
		),
	)
	defer span.End()

	if e.opts.metrics {
		activeVertices.Set(float64(len(active)))
	}
	verts := make([]*core.Vertex[V], len(active))
	for i, id := range active {
		v, err := e.graph.Vertex(id)
		if err != nil {
			return nil, 0, err
		}
		verts[i] = v
	}

	parts := e.graph.Partitions()
	next := newActiveSet()
	stepLogger := logger.With(slog.Int("superstep", step))
	contextFor := func(ctx context.Context, p int) *Context {
		return &Context{Context: ctx, superstep: step, partition: p, signal: next.add, logger: stepLogger}
	}

	partials := make([]map[core.VertexID]A, parts)
	inboxes := make([]chan batch[A], parts)
	for p := range inboxes {
		inboxes[p] = make(chan batch[A], parts)
	}

	if err := e.phase(ctx, "gather", func(ctx context.Context, p int) error {
		return e.gatherPartition(contextFor(ctx, p), p, verts, partials, inboxes)
	}); err != nil {
		return nil, 0, err
	}
	for _, ch := range inboxes {
		close(ch)
	}

	if err := e.phase(ctx, "apply", func(ctx context.Context, p int) error {
		return e.applyPartition(contextFor(ctx, p), p, verts, partials[p], inboxes[p])
	}); err != nil {
		return nil, 0, err
	}

	if err := e.phase(ctx, "scatter", func(ctx context.Context, p int) error {
		return e.scatterPartition(contextFor(ctx, p), p, verts)
	}); err != nil {
		return nil, 0, err
	}

	stepLogger.Debug("superstep done",
		slog.Int("active", len(active)),
		slog.Int("next", next.len()),
	)

	return next.drain(), int(next.signals.Load()), nil
}

// phase runs fn once per partition and waits for all of them.
func (e *Engine[V, E, A]) phase(ctx context.Context, name string, fn func(ctx context.Context, p int) error) error {
	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for p := 0; p < e.graph.Partitions(); p++ {
		g.Go(func() error { return fn(gctx, p) })
	}
	err := g.Wait()
	if e.opts.metrics {
		superstepDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		if err != nil {
			runErrorsTotal.WithLabelValues(name).Inc()
		}
	}
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	return nil
}

func (e *Engine[V, E, A]) gatherPartition(c *Context, p int, verts []*core.Vertex[V], partials []map[core.VertexID]A, inboxes []chan batch[A]) error {
	local := make(map[core.VertexID]A)
	remote := make(map[int]map[core.VertexID]A)

	for _, v := range verts {
		if err := c.Err(); err != nil {
			return err
		}
		dst := local
		if q := e.graph.Owner(v.ID); q != p {
			if remote[q] == nil {
				remote[q] = make(map[core.VertexID]A)
			}
			dst = remote[q]
		}
		for edge := range e.graph.EdgesOf(v.ID, e.prog.GatherEdges(c, v)) {
			if e.graph.EdgeOwner(edge) != p {
				continue
			}
			other, err := e.graph.Vertex(edge.Other(v.ID))
			if err != nil {
				return err
			}
			acc, err := e.prog.Gather(c, v, edge, other)
			if err != nil {
				return fmt.Errorf("vertex %d edge %d->%d: %w", v.ID, edge.Source, edge.Target, err)
			}
			if cur, ok := dst[v.ID]; ok {
				dst[v.ID] = cur.Merge(acc)
			} else {
				dst[v.ID] = acc
			}
		}
	}
	partials[p] = local

	for q, m := range remote {
		if len(m) == 0 {
			continue
		}
		b := batch[A]{from: p}
		if e.codec != nil {
			payload, err := e.codec.Encode(m)
			if err != nil {
				return fmt.Errorf("ship to partition %d: %w", q, err)
			}
			b.payload = payload
		} else {
			b.partials = m
		}
		inboxes[q] <- b
	}

	return nil
}

func (e *Engine[V, E, A]) applyPartition(c *Context, p int, verts []*core.Vertex[V], local map[core.VertexID]A, inbox <-chan batch[A]) error {
	var batches []batch[A]
	for b := range inbox {
		batches = append(batches, b)
	}
	slices.SortFunc(batches, func(x, y batch[A]) int { return x.from - y.from })

	for _, b := range batches {
		m := b.partials
		if b.payload != nil {
			var err error
			if m, err = e.codec.Decode(b.payload); err != nil {
				return fmt.Errorf("batch from partition %d: %w", b.from, err)
			}
		}
		for _, id := range sortedKeys(m) {
			if cur, ok := local[id]; ok {
				local[id] = cur.Merge(m[id])
			} else {
				local[id] = m[id]
			}
		}
	}

	return e.graph.WithPartitionLock(p, func() error {
		for _, v := range verts {
			if e.graph.Owner(v.ID) != p {
				continue
			}
			if err := c.Err(); err != nil {
				return err
			}
			if err := e.prog.Apply(c, v, local[v.ID]); err != nil {
				return fmt.Errorf("apply vertex %d: %w", v.ID, err)
			}
		}

		return nil
	})
}

func (e *Engine[V, E, A]) scatterPartition(c *Context, p int, verts []*core.Vertex[V]) error {
	return e.graph.WithPartitionLock(p, func() error {
		for _, v := range verts {
			if err := c.Err(); err != nil {
				return err
			}
			for edge := range e.graph.EdgesOf(v.ID, e.prog.ScatterEdges(c, v)) {
				if e.graph.EdgeOwner(edge) != p {
					continue
				}
				other, err := e.graph.Vertex(edge.Other(v.ID))
				if err != nil {
					return err
				}
				if err := e.prog.Scatter(c, v, edge, other); err != nil {
					return fmt.Errorf("scatter vertex %d edge %d->%d: %w", v.ID, edge.Source, edge.Target, err)
				}
			}
		}

		return nil
	})
}

func sortedKeys[A any](m map[core.VertexID]A) []core.VertexID {
	keys := make([]core.VertexID, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	return keys
}

// IsCanceled reports whether err stems from context cancellation or deadline.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

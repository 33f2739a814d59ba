// Package aggregate implements fold-sync aggregation: a whole-graph
// reduction of vertex payloads into a Shared value.
//
// Lifecycle of one sync:
//
//	Clear → Fold(v) for every vertex → Combine(partial) per partition → Apply
//
// Run folds every partition in parallel, each under that partition's read
// lock, so every partition contributes a point-in-time snapshot even while an
// engine is writing other partitions. Partials travel to the coordinator on a
// channel and are combined in partition order.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/katalvlaran/kernelbp/core"
)

var tracer = otel.Tracer("kernelbp.aggregate")

// ErrNilFunc indicates New was called with a nil target or callback.
var ErrNilFunc = errors.New("aggregate: nil target or callback")

// FoldFunc folds one vertex into the accumulator and returns it.
type FoldFunc[V, A any] func(v *core.Vertex[V], acc A) A

// CombineFunc merges two partial accumulators. Must be commutative and associative.
type CombineFunc[A any] func(a, b A) A

// ApplyFunc publishes the final accumulator into the shared value.
type ApplyFunc[T, A any] func(target *T, acc A)

// FoldSync is one named aggregation over graphs with vertex payload V and
// edge payload E. A should be a value type; Clear resets to a copy of zero.
type FoldSync[V, E, A, T any] struct {
	name    string
	target  *Shared[T]
	zero    A
	fold    FoldFunc[V, A]
	combine CombineFunc[A]
	apply   ApplyFunc[T, A]
	logger  *slog.Logger

	runMu sync.Mutex // serializes Run
	mu    sync.Mutex // guards acc
	acc   A
}

// New builds a FoldSync publishing into target.
//
// Errors:
//   - ErrNilFunc: target or any callback is nil.
func New[V, E, A, T any](name string, target *Shared[T], zero A, fold FoldFunc[V, A], combine CombineFunc[A], apply ApplyFunc[T, A]) (*FoldSync[V, E, A, T], error) {
	if target == nil || fold == nil || combine == nil || apply == nil {
		return nil, fmt.Errorf("%s: %w", name, ErrNilFunc)
	}

	return &FoldSync[V, E, A, T]{
		name:    name,
		target:  target,
		zero:    zero,
		fold:    fold,
		combine: combine,
		apply:   apply,
		logger:  slog.Default(),
		acc:     zero,
	}, nil
}

// WithLogger sets the logger used by Run and Every. nil is ignored.
func (f *FoldSync[V, E, A, T]) WithLogger(l *slog.Logger) *FoldSync[V, E, A, T] {
	if l != nil {
		f.logger = l
	}

	return f
}

// Name returns the aggregation name.
func (f *FoldSync[V, E, A, T]) Name() string { return f.name }

// Clear resets the accumulator to zero.
func (f *FoldSync[V, E, A, T]) Clear() {
	f.mu.Lock()
	f.acc = f.zero
	f.mu.Unlock()
}

// Fold folds v into the accumulator.
func (f *FoldSync[V, E, A, T]) Fold(v *core.Vertex[V]) {
	f.mu.Lock()
	f.acc = f.fold(v, f.acc)
	f.mu.Unlock()
}

// Combine merges another partial into the accumulator.
func (f *FoldSync[V, E, A, T]) Combine(other A) {
	f.mu.Lock()
	f.acc = f.combine(f.acc, other)
	f.mu.Unlock()
}

// Apply publishes the accumulator into the shared target.
func (f *FoldSync[V, E, A, T]) Apply() {
	f.mu.Lock()
	acc := f.acc
	f.mu.Unlock()
	f.target.Apply(func(t *T) { f.apply(t, acc) })
}

// Result returns the current accumulator.
func (f *FoldSync[V, E, A, T]) Result() A {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.acc
}

type partial[A any] struct {
	p   int
	acc A
}

// Run performs one complete sync over g: clear, parallel per-partition
// folds, ordered combine, apply.
//
// Errors:
//   - ctx errors; graph errors from partition enumeration.
//
// Complexity: O(V) folds, O(P) combines.
func (f *FoldSync[V, E, A, T]) Run(ctx context.Context, g *core.Graph[V, E]) error {
	ctx, span := tracer.Start(ctx, "aggregate.FoldSync.Run",
		trace.WithAttributes(
			attribute.String("aggregate.name", f.name),
			attribute.Int("aggregate.partitions", g.Partitions()),
		),
	)
	defer span.End()
	start := time.Now()

	f.runMu.Lock()
	defer f.runMu.Unlock()
	f.Clear()
	ch := make(chan partial[A], g.Partitions())
	eg, gctx := errgroup.WithContext(ctx)
	for p := 0; p < g.Partitions(); p++ {
		eg.Go(func() error {
			ids, err := g.OwnedVertices(p)
			if err != nil {
				return err
			}
			acc := f.zero
			err = g.WithPartitionRLock(p, func() error {
				for _, id := range ids {
					if err := gctx.Err(); err != nil {
						return err
					}
					v, err := g.Vertex(id)
					if err != nil {
						return err
					}
					acc = f.fold(v, acc)
				}
				return nil
			})
			if err != nil {
				return err
			}
			ch <- partial[A]{p: p, acc: acc}

			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("aggregate %s: %w", f.name, err)
	}
	close(ch)

	parts := make([]A, g.Partitions())
	for pa := range ch {
		parts[pa.p] = pa.acc
	}
	for _, a := range parts {
		f.Combine(a)
	}
	f.Apply()

	f.logger.Debug("aggregation synced",
		slog.String("name", f.name),
		slog.Duration("duration", time.Since(start)),
	)

	return nil
}

// Bind returns a Periodic that syncs f over g.
func (f *FoldSync[V, E, A, T]) Bind(g *core.Graph[V, E]) *Bound[V, E, A, T] {
	return &Bound[V, E, A, T]{fs: f, g: g}
}

// Bound couples a FoldSync with the graph it reduces.
type Bound[V, E, A, T any] struct {
	fs *FoldSync[V, E, A, T]
	g  *core.Graph[V, E]
}

// Sync implements Periodic.
func (b *Bound[V, E, A, T]) Sync(ctx context.Context) error { return b.fs.Run(ctx, b.g) }

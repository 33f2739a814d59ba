// File: types.go
// Role: Contracts of the GAS engine: Accumulator, VertexProgram, Context,
// Mode, Stats, Syncer and sentinel errors.
package gas

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/katalvlaran/kernelbp/core"
)

// Sentinel errors for engine configuration and runs.
var (
	// ErrUnsupportedMode indicates a Mode other than ModeSync.
	ErrUnsupportedMode = errors.New("gas: unsupported engine mode")

	// ErrMaxSupersteps indicates the superstep bound was hit with active vertices left.
	ErrMaxSupersteps = errors.New("gas: max supersteps reached")

	// ErrRunning indicates Run or Signal was called while a run is in progress.
	ErrRunning = errors.New("gas: engine is running")

	// ErrCodecMismatch indicates WithCodec was given a codec for another accumulator type.
	ErrCodecMismatch = errors.New("gas: codec does not match accumulator type")

	// ErrNilProgram indicates New was called without a graph or program.
	ErrNilProgram = errors.New("gas: nil graph or program")
)

// Accumulator is the gather result type. Merge must be commutative and
// associative; it may reuse the receiver's storage and must return the
// merged value.
type Accumulator[A any] interface {
	Merge(other A) A
}

// VertexProgram is the per-vertex Gather → Apply → Scatter cycle.
//
// Phase rules:
//   - Gather may read any vertex and edge payload; it must not write.
//   - Apply may write only v.Data. acc is the zero A when no edge was gathered.
//   - Scatter may write only e.Data and read any vertex payload.
//
// A non-nil error from any callback aborts the run.
type VertexProgram[V, E any, A Accumulator[A]] interface {
	GatherEdges(c *Context, v *core.Vertex[V]) core.Direction
	Gather(c *Context, v *core.Vertex[V], e *core.Edge[E], other *core.Vertex[V]) (A, error)
	Apply(c *Context, v *core.Vertex[V], acc A) error
	ScatterEdges(c *Context, v *core.Vertex[V]) core.Direction
	Scatter(c *Context, v *core.Vertex[V], e *core.Edge[E], other *core.Vertex[V]) error
}

// Context is handed to every program callback. It carries the run's
// cancellation, the superstep number and the signal sink for the next
// superstep.
type Context struct {
	context.Context

	superstep int
	partition int
	signal    func(core.VertexID)
	logger    *slog.Logger
}

// NewContext builds a callback context outside the engine, e.g. for driving
// a VertexProgram step by step. nil signal discards signals; nil logger uses
// slog.Default().
func NewContext(ctx context.Context, superstep, partition int, signal func(core.VertexID), logger *slog.Logger) *Context {
	if signal == nil {
		signal = func(core.VertexID) {}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Context{Context: ctx, superstep: superstep, partition: partition, signal: signal, logger: logger}
}

// Superstep returns the zero-based superstep number.
func (c *Context) Superstep() int { return c.superstep }

// Partition returns the partition executing the callback.
func (c *Context) Partition() int { return c.partition }

// Logger returns the engine logger annotated with the superstep.
func (c *Context) Logger() *slog.Logger { return c.logger }

// Signal schedules id for the next superstep. Duplicate signals collapse.
func (c *Context) Signal(id core.VertexID) { c.signal(id) }

// Mode selects the engine's scheduling discipline.
type Mode string

const (
	// ModeSync runs barrier-separated supersteps.
	ModeSync Mode = "sync"
	// ModeAsync is accepted by ParseMode but not executed.
	ModeAsync Mode = "async"
)

// ParseMode maps "sync"/"async" to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeSync, ModeAsync:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("mode %q: %w", s, ErrUnsupportedMode)
	}
}

// Stats summarizes a finished run.
type Stats struct {
	RunID         string
	Supersteps    int
	VertexUpdates int
	Signals       int
	Duration      time.Duration
}

// Syncer is a whole-graph reduction run on the engine's cadence, e.g. a
// bound fold-sync aggregation.
type Syncer interface {
	Sync(ctx context.Context) error
}

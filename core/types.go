// File: types.go
// Role: VertexID, Direction, Vertex, Edge, Graph, GraphOption, sentinel
// errors, and the NewGraph constructor.
//
// Concurrency:
//   - g.mu guards the vertex/edge catalogs and adjacency.
//   - Payload mutation (Vertex.Data, Edge.Data) is NOT guarded by g.mu; it is
//     coordinated by partition ownership (see partition.go).
package core

import (
	"errors"
	"strconv"
	"sync"
)

// Sentinel errors for core graph operations.
var (
	// ErrVertexExists indicates AddVertex was called with an id already in the graph.
	ErrVertexExists = errors.New("core: vertex already exists")

	// ErrVertexNotFound indicates an operation referenced a non-existent vertex.
	ErrVertexNotFound = errors.New("core: vertex not found")

	// ErrEdgeNotFound indicates an operation referenced a non-existent edge.
	ErrEdgeNotFound = errors.New("core: edge not found")

	// ErrLoopNotAllowed indicates a self-loop was attempted.
	ErrLoopNotAllowed = errors.New("core: self-loop not allowed")

	// ErrMultiEdgeNotAllowed indicates a parallel edge for the same ordered pair.
	ErrMultiEdgeNotAllowed = errors.New("core: multi-edges not allowed")

	// ErrFrozen indicates a structural mutation after Freeze.
	ErrFrozen = errors.New("core: graph is frozen")

	// ErrBadPartition indicates a partition index outside [0, Partitions()).
	ErrBadPartition = errors.New("core: partition out of range")
)

// VertexID uniquely identifies a vertex for the graph's lifetime.
type VertexID int64

// String renders the id in decimal.
func (id VertexID) String() string { return strconv.FormatInt(int64(id), 10) }

// Direction selects which incident edges of a vertex are visited.
type Direction uint8

const (
	// None visits no edges.
	None Direction = iota
	// In visits edges whose Target is the vertex.
	In
	// Out visits edges whose Source is the vertex.
	Out
	// All visits In edges followed by Out edges.
	All
)

// String returns a short lowercase name for logs.
func (d Direction) String() string {
	switch d {
	case None:
		return "none"
	case In:
		return "in"
	case Out:
		return "out"
	case All:
		return "all"
	default:
		return "direction(" + strconv.Itoa(int(d)) + ")"
	}
}

// Vertex is a vertex record. ID is immutable; Data is owned by the vertex's
// partition during a run.
type Vertex[V any] struct {
	// ID is the unique identifier for this Vertex.
	ID VertexID

	// Data is the user payload.
	Data V
}

// Edge is a directed edge record Source → Target. Data is owned by the
// partition of Target during a run.
type Edge[E any] struct {
	// Source is the tail vertex ID.
	Source VertexID

	// Target is the head vertex ID.
	Target VertexID

	// Data is the user payload.
	Data E
}

// Other returns the endpoint of e opposite to id.
func (e *Edge[E]) Other(id VertexID) VertexID {
	if e.Source == id {
		return e.Target
	}

	return e.Source
}

// edgeKey is the ordered pair identifying an edge (multi-edges are disallowed).
type edgeKey struct {
	source VertexID
	target VertexID
}

// GraphOption configures behavior of a Graph before creation.
type GraphOption func(o *graphOptions)

type graphOptions struct {
	partitions int
	owner      func(VertexID) int
}

// WithPartitions sets the number of partitions (workers). Values < 1 are
// treated as 1.
func WithPartitions(n int) GraphOption {
	return func(o *graphOptions) {
		if n < 1 {
			n = 1
		}
		o.partitions = n
	}
}

// WithOwner overrides the vertex → partition function. The function must be
// deterministic and return values in [0, partitions); results are reduced
// modulo the partition count.
func WithOwner(fn func(VertexID) int) GraphOption {
	return func(o *graphOptions) { o.owner = fn }
}

// Graph is the in-memory graph store.
//
// mu protects the vertex catalog, the edge catalog and both adjacency
// indexes. parts holds one RWMutex per partition used to coordinate payload
// access between engine workers (writers) and aggregations (readers).
type Graph[V, E any] struct {
	mu sync.RWMutex // guards vertices, edges, in, out, frozen

	partitions int
	owner      func(VertexID) int
	parts      []sync.RWMutex

	vertices map[VertexID]*Vertex[V]
	edges    map[edgeKey]*Edge[E]
	in       map[VertexID][]*Edge[E] // sorted by Source asc
	out      map[VertexID][]*Edge[E] // sorted by Target asc
	frozen   bool
}

// NewGraph creates an empty Graph. By default it has a single partition and
// the owner function is id mod partitions.
// Complexity: O(partitions).
func NewGraph[V, E any](opts ...GraphOption) *Graph[V, E] {
	o := graphOptions{partitions: 1}
	for _, opt := range opts {
		opt(&o)
	}
	if o.owner == nil {
		o.owner = modOwner(o.partitions)
	}

	return &Graph[V, E]{
		partitions: o.partitions,
		owner:      o.owner,
		parts:      make([]sync.RWMutex, o.partitions),
		vertices:   make(map[VertexID]*Vertex[V]),
		edges:      make(map[edgeKey]*Edge[E]),
		in:         make(map[VertexID][]*Edge[E]),
		out:        make(map[VertexID][]*Edge[E]),
	}
}

// modOwner maps ids onto partitions by non-negative remainder.
func modOwner(n int) func(VertexID) int {
	return func(id VertexID) int {
		return int(uint64(id) % uint64(n))
	}
}

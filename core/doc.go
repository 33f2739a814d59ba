// Package core provides the thread-safe in-memory graph store used by the
// GAS engine: typed vertex and edge records, deterministic direction-filtered
// iteration, and partition ownership.
//
// The Graph[V, E] is generic over its payloads. Structure is built once at
// load time (AddVertex, AddEdge) and then frozen; during a run only payloads
// change, and each payload has exactly one writing partition:
//
//   - Vertex.Data is written by Owner(v.ID).
//   - Edge.Data is written by EdgeOwner(e) == Owner(e.Target).
//
// Edge policy:
//
//   - Edges are directed Source → Target.
//   - Self-loops → ErrLoopNotAllowed.
//   - A second edge for the same ordered pair → ErrMultiEdgeNotAllowed.
//
// Core Methods:
//
//	// Structure
//	AddVertex(id VertexID, data V) error
//	AddEdge(source, target VertexID, data E) (*Edge[E], error)
//	Freeze()
//
//	// Query
//	Vertex(id) (*Vertex[V], error)
//	Edge(source, target) (*Edge[E], error)
//	EdgesOf(id, dir Direction) iter.Seq[*Edge[E]] // In by Source asc, then Out by Target asc
//	Vertices() iter.Seq[*Vertex[V]]               // ID asc
//	Edges() iter.Seq[*Edge[E]]                    // (Source, Target) asc
//
//	// Partitions
//	Partitions() int
//	Owner(id) int
//	OwnedVertices(p) ([]VertexID, error)
//	WithPartitionLock(p, fn) / WithPartitionRLock(p, fn)
//
// Concurrency:
//
//	A single sync.RWMutex guards the catalogs. One RWMutex per partition
//	coordinates payload writers (engine workers) with payload readers
//	(aggregations).
package core

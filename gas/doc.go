// Package gas implements a synchronous Gather-Apply-Scatter engine over a
// partitioned core.Graph.
//
// A VertexProgram supplies five callbacks. For every active vertex in a
// superstep the engine gathers over GatherEdges, merges the per-edge
// Accumulator values, hands the merged value to Apply and then scatters over
// ScatterEdges. Scatter raises Context.Signal to schedule neighbors for the
// next superstep; the run halts when nothing is signaled.
//
// Partitions are in-process workers. Each edge is processed by the partition
// of its target, so every payload has one writer; partial accumulators for
// vertices owned elsewhere travel over channels, optionally serialized by a
// Codec (GobCodec).
//
// Observability: prometheus collectors (gas_*) and an OpenTelemetry span per
// run and per superstep.
package gas

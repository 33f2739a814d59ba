// Package bfs provides breadth-first search over a core.Graph,
// returning unweighted shortest-path distances, parent links, and visit order.
//
// BFS explores vertices in increasing distance from a set of source
// vertices, with an optional visit hook, depth limiting, edge direction and
// neighbor filtering. Sources are visited in the given order and neighbors
// in core's deterministic EdgesOf order, so results are reproducible.
package bfs

import (
	"fmt"

	"github.com/katalvlaran/kernelbp/core"
)

// queueItem pairs a vertex ID with its BFS depth.
type queueItem struct {
	id    core.VertexID
	depth int
}

// walker encapsulates mutable BFS state.
type walker[V, E any] struct {
	graph *core.Graph[V, E]
	opts  Options
	queue []queueItem
	res   *Result
}

// BFS runs a multi-source breadth-first search on g from sources, applying
// any number of functional Options. Every source starts at depth 0;
// duplicate sources are visited once.
// Returns ErrGraphNil or ErrStartVertexNotFound for invalid input,
// ErrOptionViolation for bad options, ctx errors, or any OnVisit error.
func BFS[V, E any](g *core.Graph[V, E], sources []core.VertexID, opts ...Option) (*Result, error) {
	if g == nil {
		return nil, ErrGraphNil
	}
	// Build options and catch any invalid ones immediately
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.err != nil {
		return nil, o.err
	}
	for _, id := range sources {
		if !g.HasVertex(id) {
			return nil, fmt.Errorf("%w: %d", ErrStartVertexNotFound, id)
		}
	}

	n := g.VertexCount()
	w := &walker[V, E]{
		graph: g,
		opts:  o,
		queue: make([]queueItem, 0, n),
		res: &Result{
			Order:  make([]core.VertexID, 0, n),
			Depth:  make(map[core.VertexID]int, n),
			Parent: make(map[core.VertexID]core.VertexID, n),
		},
	}
	for _, id := range sources {
		if !w.res.Reached(id) {
			w.enqueue(id, 0)
		}
	}

	return w.res, w.loop()
}

// enqueue marks id visited at depth d and adds it to the queue.
func (w *walker[V, E]) enqueue(id core.VertexID, d int) {
	w.res.Depth[id] = d
	w.queue = append(w.queue, queueItem{id: id, depth: d})
}

// loop processes the queue until empty, error, or cancellation.
func (w *walker[V, E]) loop() error {
	for len(w.queue) > 0 {
		if err := w.opts.Ctx.Err(); err != nil {
			return err
		}

		item := w.queue[0]
		w.queue = w.queue[1:]
		w.res.Order = append(w.res.Order, item.id)
		if err := w.opts.OnVisit(item.id, item.depth); err != nil {
			return fmt.Errorf("bfs: OnVisit error at %d: %w", item.id, err)
		}
		w.enqueueNeighbors(item)
	}

	return nil
}

// enqueueNeighbors applies filtering and MaxDepth and enqueues each unseen
// neighbor of item.
func (w *walker[V, E]) enqueueNeighbors(item queueItem) {
	nextDepth := item.depth + 1
	if w.opts.MaxDepth > 0 && nextDepth > w.opts.MaxDepth {
		return
	}
	for _, nbr := range w.graph.NeighborIDs(item.id, w.opts.Direction) {
		if w.res.Reached(nbr) || !w.opts.FilterNeighbor(item.id, nbr) {
			continue
		}
		w.res.Parent[nbr] = item.id
		w.enqueue(nbr, nextDepth)
	}
}

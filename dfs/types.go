// DFS vertex states and sentinel errors.

package dfs

import "errors"

// VertexState represents the DFS visitation state of a vertex.
const (
	White = iota // White: the vertex has not been visited yet.
	Gray         // Gray: the vertex is in the recursion stack (visiting).
	Black        // Black: the vertex and all its descendants have been fully explored.
)

// ErrGraphNil is returned when a nil graph is passed to FindCycle.
var ErrGraphNil = errors.New("dfs: graph is nil")

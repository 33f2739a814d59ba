package kernelbp

import (
	"errors"

	"github.com/katalvlaran/kernelbp/core"
	"github.com/katalvlaran/kernelbp/matrix"
)

// Sentinel errors. Every one of them aborts a run.
var (
	// ErrMissingKernel indicates no kernel matrix for a (target, source) pair.
	ErrMissingKernel = errors.New("kernelbp: missing kernel matrix")

	// ErrMissingObservation indicates an observed vertex has no observation vector for a neighbor.
	ErrMissingObservation = errors.New("kernelbp: missing observation kernel")

	// ErrMissingMessage indicates a hidden vertex has messages, but none for the neighbor.
	ErrMissingMessage = errors.New("kernelbp: missing message product")

	// ErrMissingFactor indicates an edge lacks a solution matrix its chain needs.
	ErrMissingFactor = errors.New("kernelbp: missing solution factor")

	// ErrGatherConflict indicates two gathered betas for the same neighbor disagree.
	ErrGatherConflict = errors.New("kernelbp: conflicting betas for neighbor")

	// ErrBadTolerance indicates a negative or non-finite tolerance.
	ErrBadTolerance = errors.New("kernelbp: tolerance must be finite and >= 0")
)

// Solution factor names as they appear in graph definitions.
const (
	FactorLs = "L_s"
	FactorLt = "L_t"
	FactorQs = "Q_s"
	FactorRs = "R_s"
	FactorPs = "P_s"
	FactorQt = "Q_t"
	FactorRt = "R_t"
	FactorPt = "P_t"
	FactorW  = "W"
)

// Pair keys a vertex kernel by the neighbor the message goes to (Target) and
// the neighbor whose belief is folded in (Source).
type Pair struct {
	Target core.VertexID
	Source core.VertexID
}

// VertexData is the per-vertex payload.
type VertexData struct {
	// Observed marks data sinks; hidden vertices take part in inference.
	Observed bool

	// Kernels holds the coupling kernel per (target, source) pair.
	Kernels map[Pair]*matrix.Dense

	// ObsKernels holds the observation vector per neighbor (observed vertices only).
	ObsKernels map[core.VertexID][]float64

	// Messages holds the product of incoming messages per target; rebuilt by every Apply.
	Messages map[core.VertexID][]float64
}

// NewVertexData returns an empty payload with allocated maps.
func NewVertexData(observed bool) *VertexData {
	return &VertexData{
		Observed:   observed,
		Kernels:    make(map[Pair]*matrix.Dense),
		ObsKernels: make(map[core.VertexID][]float64),
		Messages:   make(map[core.VertexID][]float64),
	}
}

// EdgeData is the per-edge payload. Beta flows from Target toward Source.
type EdgeData struct {
	// Solutions holds factor matrices by name; immutable after load.
	Solutions map[string]*matrix.Dense

	// FullRank is true iff Solutions contains L_s.
	FullRank bool

	// Beta is the current belief; empty means uninitialized.
	Beta []float64
}

// NewEdgeData wraps solutions and derives FullRank.
func NewEdgeData(solutions map[string]*matrix.Dense) *EdgeData {
	if solutions == nil {
		solutions = make(map[string]*matrix.Dense)
	}
	_, full := solutions[FactorLs]

	return &EdgeData{Solutions: solutions, FullRank: full}
}

// Graph is the belief-propagation graph.
type Graph = core.Graph[*VertexData, *EdgeData]

// EdgeKey identifies an edge in collected results.
type EdgeKey struct {
	Source core.VertexID
	Target core.VertexID
}

package kernelbp

import (
	"fmt"

	"github.com/katalvlaran/kernelbp/matrix"
)

// step applies one factor to the running vector.
type step struct {
	factor string
	op     func(m matrix.Matrix, x matrix.Vector) (matrix.Vector, error)
}

// Solve chains, applied left to right.
var (
	// L_s⁻ᵀ L_s⁻¹ L_t⁻ᵀ L_t⁻¹ k
	fullObservedChain = []step{
		{FactorLt, matrix.SolveLower},
		{FactorLt, matrix.SolveLowerT},
		{FactorLs, matrix.SolveLower},
		{FactorLs, matrix.SolveLowerT},
	}

	// R_s⁻¹ Q_sᵀ P_sᵀ W R_t⁻¹ Q_tᵀ P_tᵀ k
	reducedObservedChain = []step{
		{FactorPt, matrix.MatTVec},
		{FactorQt, matrix.MatTVec},
		{FactorRt, matrix.SolveUpper},
		{FactorW, matrix.MatVec},
		{FactorPs, matrix.MatTVec},
		{FactorQs, matrix.MatTVec},
		{FactorRs, matrix.SolveUpper},
	}

	// L_s⁻ᵀ L_s⁻¹ k
	fullHiddenChain = []step{
		{FactorLs, matrix.SolveLower},
		{FactorLs, matrix.SolveLowerT},
	}

	// R_s⁻¹ Q_sᵀ P_sᵀ W k
	reducedHiddenChain = []step{
		{FactorW, matrix.MatVec},
		{FactorPs, matrix.MatTVec},
		{FactorQs, matrix.MatTVec},
		{FactorRs, matrix.SolveUpper},
	}
)

func factor(ed *EdgeData, name string) (*matrix.Dense, error) {
	m, ok := ed.Solutions[name]
	if !ok || m == nil {
		return nil, fmt.Errorf("%s: %w", name, ErrMissingFactor)
	}

	return m, nil
}

func runChain(ed *EdgeData, chain []step, k []float64) ([]float64, error) {
	x := k
	for i, s := range chain {
		m, err := factor(ed, s.factor)
		if err != nil {
			return nil, err
		}
		if x, err = s.op(m, x); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, s.factor, err)
		}
	}

	return x, nil
}

// Package kalman implements a discrete linear Kalman filter as a
// collection of pure functions over immutable states: extrapolate,
// batched correction, and scalar-sequential correction, plus the step
// orchestration that combines them. The engine is deliberately
// stateless; Filter (in filter.go) is the thin stateful wrapper that
// retains only the most recent state and the step specification.
package kalman

import (
	"gonum.org/v1/gonum/mat"

	"github.com/xoreactor/xo-reactor/internal/xtime"
)

// State is an immutable snapshot of the filter's belief about the
// system at step k: the estimate x_k, its covariance P_k, and the
// transition (F_k, Q_k) that produced x_k from x_{k-1}.
type State struct {
	StepNo uint32
	Tm     xtime.Timestamp

	X *mat.VecDense // n x 1
	P *mat.SymDense // n x n

	F *mat.Dense // n x n, transition used to produce this state
	Q *mat.Dense // n x n, process noise used to produce this state
}

// Dim returns the state dimension n.
func (s *State) Dim() int {
	return s.X.Len()
}

// ExtState extends State with the gain and observation bookkeeping
// produced by a correction step. ObsIndex is -1 for batched
// correction, or the row index of the single observation applied by
// scalar-sequential correction.
type ExtState struct {
	State

	K        *mat.Dense // n x m_k gain used in this step (nil if zero observations present)
	ObsIndex int        // -1 for batched correction, else the scalar row index
	Input    *Input     // the input that produced this state

	// NumericalFailure records that the innovation covariance could
	// not be solved (Cholesky failed, or a non-positive scalar
	// innovation variance); when true, State above is the unmodified
	// extrapolated state, K is nil, ObsIndex is -1, and Input is the
	// input whose correction failed.
	NumericalFailure bool
	FailureReason    string
}

// Input is an observation snapshot for step k+1: the candidate
// timestamp, a presence mask selecting which configured observations
// are available, the full observation vector, and per-observation
// error standard deviations. Absent observations are dropped before H
// and R are consulted.
type Input struct {
	Tkp1    xtime.Timestamp
	Present []bool
	Z       *mat.VecDense
	Sigma   []float64 // per-observation stdev, available to the StepBuilder; the engine itself takes R only from the StepBuilder
}

// NPresent returns the count of present observations in the input.
func (in *Input) NPresent() int {
	n := 0
	for _, p := range in.Present {
		if p {
			n++
		}
	}
	return n
}

// symmetrize returns (P + P^T) / 2 as a *mat.SymDense, defending
// against numerical drift accumulated across extrapolate/correct
// cycles.
func symmetrize(p mat.Matrix) *mat.SymDense {
	r, _ := p.Dims()
	var sym mat.Dense
	sym.Add(p, p.T())
	sym.Scale(0.5, &sym)

	out := mat.NewSymDense(r, nil)
	for i := 0; i < r; i++ {
		for j := i; j < r; j++ {
			out.SetSym(i, j, sym.At(i, j))
		}
	}
	return out
}

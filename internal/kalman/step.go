package kalman

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/xoreactor/xo-reactor/internal/diag"
)

// StepBuilder produces the transition and observable matrices for one
// step, given the previous extended state and the new input. This
// indirection lets step matrices depend on elapsed time and on which
// observations are present; F, Q are n x n, H is m x n and R is m x m
// over the *full* configured observation set (before presence
// filtering).
type StepBuilder func(prev *ExtState, input *Input) (f, q, h, r *mat.Dense, err error)

// Mode selects how a step with multiple present observations is
// corrected.
type Mode int

const (
	// Batched solves the full m_k x m_k innovation covariance in one
	// Cholesky factorization.
	Batched Mode = iota
	// Sequential applies present observations one at a time via
	// ScalarCorrect, avoiding the m_k x m_k solve. Requires R to be
	// (at least effectively) diagonal; off-diagonal entries are
	// ignored by this mode.
	Sequential
)

// Step computes one complete filter cycle: invoke build to obtain
// (F, Q, H, R), extrapolate once, then apply correction using mode.
// Zero present observations degenerates to pure extrapolation with
// ObsIndex -1.
func Step(prev *ExtState, input *Input, build StepBuilder, mode Mode, bus *diag.Bus) (*ExtState, error) {
	f, q, h, r, err := build(prev, input)
	if err != nil {
		return nil, fmt.Errorf("kalman: step builder: %w", err)
	}

	xExt, pExt, err := Extrapolate(prev.X, prev.P, f, q)
	if err != nil {
		return nil, err
	}

	next := &ExtState{
		State: State{
			StepNo: prev.StepNo + 1,
			Tm:     input.Tkp1,
			X:      xExt,
			P:      pExt,
			F:      f,
			Q:      q,
		},
		ObsIndex: -1,
		Input:    input,
	}

	nPresent := input.NPresent()
	if nPresent == 0 {
		publishStep(bus, next)
		return next, nil
	}

	hf, rf, zf, rowIndex := filterPresent(h, r, input.Z, input.Present)

	switch mode {
	case Sequential:
		x, p := xExt, pExt
		var k *mat.VecDense
		lastJ := -1
		for fi, j := range rowIndex {
			hRow := rowVec(hf, fi)
			rVal := rf.At(fi, fi)
			xNew, pNew, kVec, ok := ScalarCorrect(x, p, hRow, rVal, zf.AtVec(fi))
			if !ok {
				publishNumericalFailure(bus, next, "scalar correction: non-positive innovation variance")
				next.NumericalFailure = true
				next.FailureReason = "scalar correction: non-positive innovation variance"
				publishStep(bus, next)
				return next, nil
			}
			x, p, k, lastJ = xNew, pNew, kVec, j
		}
		next.X, next.P = x, p
		if k != nil {
			kDense := mat.NewDense(k.Len(), 1, nil)
			for i := 0; i < k.Len(); i++ {
				kDense.Set(i, 0, k.AtVec(i))
			}
			next.K = kDense
		}
		next.ObsIndex = lastJ

	default: // Batched
		xNew, pNew, kGain, ok, err := BatchedCorrect(xExt, pExt, hf, rf, zf)
		if err != nil {
			return nil, err
		}
		if !ok {
			next.NumericalFailure = true
			next.FailureReason = "batched correction: innovation covariance not positive definite"
			publishNumericalFailure(bus, next, next.FailureReason)
			publishStep(bus, next)
			return next, nil
		}
		next.X, next.P = xNew, pNew
		next.K = kGain
		next.ObsIndex = -1
	}

	publishStep(bus, next)
	return next, nil
}

func publishStep(bus *diag.Bus, s *ExtState) {
	bus.Publish(diag.Event{
		Source: diag.SourceFilter,
		Kind:   diag.KindFilterStep,
		Data: map[string]any{
			"step_no":           s.StepNo,
			"tm":                s.Tm.String(),
			"j":                 s.ObsIndex,
			"numerical_failure": s.NumericalFailure,
		},
	})
}

func publishNumericalFailure(bus *diag.Bus, s *ExtState, reason string) {
	bus.Publish(diag.Event{
		Source: diag.SourceFilter,
		Kind:   diag.KindFilterNumericalFailure,
		Data:   map[string]any{"step_no": s.StepNo, "tm": s.Tm.String(), "reason": reason},
	})
}

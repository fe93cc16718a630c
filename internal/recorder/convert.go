package recorder

import (
	"github.com/xoreactor/xo-reactor/internal/diag"
	"github.com/xoreactor/xo-reactor/internal/kalman"
)

// eventSnapshotFrom converts a diag.Event into its persisted form.
func eventSnapshotFrom(ev diag.Event) EventSnapshot {
	return EventSnapshot{
		Source: ev.Source,
		Kind:   ev.Kind,
		Tm:     ev.Timestamp,
		Data:   ev.Data,
	}
}

// stepSnapshotFrom flattens a kalman.ExtState's matrices to plain
// float64 slices for JSON round-tripping.
func stepSnapshotFrom(s *kalman.ExtState) StepSnapshot {
	n := s.X.Len()

	x := make([][]float64, n)
	for i := 0; i < n; i++ {
		x[i] = []float64{s.X.AtVec(i)}
	}

	p := make([][]float64, n)
	for i := 0; i < n; i++ {
		p[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			p[i][j] = s.P.At(i, j)
		}
	}

	var k [][]float64
	if s.K != nil {
		kr, kc := s.K.Dims()
		k = make([][]float64, kr)
		for i := 0; i < kr; i++ {
			k[i] = make([]float64, kc)
			for j := 0; j < kc; j++ {
				k[i][j] = s.K.At(i, j)
			}
		}
	}

	return StepSnapshot{
		StepNo:           s.StepNo,
		Tm:               s.Tm.Time(),
		X:                x,
		P:                p,
		K:                k,
		ObsIndex:         s.ObsIndex,
		NumericalFailure: s.NumericalFailure,
		FailureReason:    s.FailureReason,
	}
}

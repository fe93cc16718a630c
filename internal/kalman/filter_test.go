package kalman

import (
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/xoreactor/xo-reactor/internal/xtime"
)

func TestFilterNotifyInputAdvancesStepNoAndTimestamp(t *testing.T) {
	t0 := xtime.Unix(0, 0)
	f := mat.NewDense(1, 1, []float64{1})
	q := mat.NewDense(1, 1, []float64{0})
	h := mat.NewDense(1, 1, []float64{1})
	r := mat.NewDense(1, 1, []float64{1})

	spec := Spec{
		Init: scalarIdentityInit(t0, 0, 1),
		Build: func(prev *ExtState, input *Input) (*mat.Dense, *mat.Dense, *mat.Dense, *mat.Dense, error) {
			return f, q, h, r, nil
		},
		Mode: Batched,
	}
	flt := New(spec, nil, nil)

	t1 := t0.Add(xtime.Duration(1e9))
	next, err := flt.NotifyInput(&Input{
		Tkp1:    t1,
		Present: []bool{true},
		Z:       mat.NewVecDense(1, []float64{1}),
		Sigma:   []float64{1},
	})
	if err != nil {
		t.Fatalf("NotifyInput: %v", err)
	}
	if next.StepNo != 1 {
		t.Fatalf("StepNo = %d, want 1", next.StepNo)
	}
	if !next.Tm.Equal(t1) {
		t.Fatalf("Tm = %v, want %v", next.Tm, t1)
	}
	if flt.StepNo() != 1 {
		t.Fatalf("Filter.StepNo() = %d, want 1", flt.StepNo())
	}
	if flt.Current() != next {
		t.Fatal("Current() should return the state produced by NotifyInput")
	}
}

func TestFilterNotifyInputRejectsOutOfOrderTimestamp(t *testing.T) {
	t0 := xtime.Unix(100, 0)
	f := mat.NewDense(1, 1, []float64{1})
	q := mat.NewDense(1, 1, []float64{0})
	h := mat.NewDense(1, 1, []float64{1})
	r := mat.NewDense(1, 1, []float64{1})

	spec := Spec{
		Init: scalarIdentityInit(t0, 0, 1),
		Build: func(prev *ExtState, input *Input) (*mat.Dense, *mat.Dense, *mat.Dense, *mat.Dense, error) {
			return f, q, h, r, nil
		},
		Mode: Batched,
	}
	flt := New(spec, nil, nil)

	past := t0.Add(xtime.Duration(-1e9))
	_, err := flt.NotifyInput(&Input{
		Tkp1:    past,
		Present: []bool{true},
		Z:       mat.NewVecDense(1, []float64{1}),
		Sigma:   []float64{1},
	})
	if err == nil {
		t.Fatal("expected error for input timestamp preceding current state")
	}
	if flt.StepNo() != 0 {
		t.Fatalf("StepNo should remain 0 after a rejected input, got %d", flt.StepNo())
	}
}

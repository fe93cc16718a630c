package process

import (
	"testing"
	"time"

	"github.com/xoreactor/xo-reactor/internal/xtime"
)

// linearProcess advances deterministically by 1 unit per second,
// useful for exercising Tracer without randomness.
type linearProcess struct {
	t0 xtime.Timestamp
}

func (p linearProcess) T0() xtime.Timestamp { return p.t0 }
func (p linearProcess) T0Value() float64    { return 0 }
func (p linearProcess) ExteriorSample(t xtime.Timestamp, lo Sample[float64]) float64 {
	return lo.X + t.Sub(lo.Tm).AsStdlib().Seconds()
}

func TestTracerAdvanceUntil(t *testing.T) {
	t0 := xtime.Unix(0, 0)
	tr := NewTracer[float64](linearProcess{t0: t0})

	tr.AdvanceUntil(t0.Add(xtime.Duration(5 * time.Second)))
	if got := tr.CurrentValue(); got != 5 {
		t.Fatalf("CurrentValue() = %v, want 5", got)
	}
}

func TestTracerAdvanceUntilNoOpWhenNotAfter(t *testing.T) {
	t0 := xtime.Unix(100, 0)
	tr := NewTracer[float64](linearProcess{t0: t0})
	tr.AdvanceUntil(t0.Add(xtime.Duration(10 * time.Second)))

	before := tr.Current()
	tr.AdvanceUntil(t0) // strictly before current — no-op
	tr.AdvanceUntil(before.Tm) // equal to current — no-op

	after := tr.Current()
	if after != before {
		t.Fatalf("AdvanceUntil with t1 <= current mutated state: before=%v after=%v", before, after)
	}
}

func TestBrownianMotionDeterministicWithSeed(t *testing.T) {
	t0 := xtime.Unix(0, 0)

	a := NewBrownianMotion(t0, 0.30, 12345678)
	b := NewBrownianMotion(t0, 0.30, 12345678)

	trA := NewTracer[float64](a)
	trB := NewTracer[float64](b)

	for i := 0; i < 10; i++ {
		trA.AdvanceDT(xtime.Duration(time.Second))
		trB.AdvanceDT(xtime.Duration(time.Second))
	}

	if trA.Current() != trB.Current() {
		t.Fatalf("same seed produced different realizations: %v vs %v", trA.Current(), trB.Current())
	}
}

func TestBrownianMotionDifferentSeedsDiverge(t *testing.T) {
	t0 := xtime.Unix(0, 0)
	a := NewTracer[float64](NewBrownianMotion(t0, 0.30, 1))
	b := NewTracer[float64](NewBrownianMotion(t0, 0.30, 2))

	a.AdvanceDT(xtime.Duration(time.Second))
	b.AdvanceDT(xtime.Duration(time.Second))

	if a.Current().X == b.Current().X {
		t.Fatal("different seeds produced identical first sample (astronomically unlikely)")
	}
}

func TestVarianceDTScalesWithHorizon(t *testing.T) {
	bm := NewBrownianMotion(xtime.Unix(0, 0), 0.30, 1)
	v1 := bm.VarianceDT(xtime.Duration(24 * time.Hour))
	v2 := bm.VarianceDT(xtime.Duration(48 * time.Hour))

	if v2 <= v1 {
		t.Fatalf("variance should grow with horizon: v1=%v v2=%v", v1, v2)
	}
	if got, want := v2/v1, 2.0; got < want-1e-9 || got > want+1e-9 {
		t.Fatalf("variance should scale linearly with dt: ratio=%v, want %v", got, want)
	}
}

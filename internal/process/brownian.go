package process

import (
	"math"
	"math/rand/v2"

	"github.com/xoreactor/xo-reactor/internal/xtime"
)

// NormalSource abstracts a source of standard-normal pseudorandom
// deviates, so BrownianMotion realizations can be seeded
// deterministically in tests.
type NormalSource interface {
	NormFloat64() float64
}

// pcgNormalSource draws standard normal deviates from a seeded PCG
// generator.
type pcgNormalSource struct {
	r *rand.Rand
}

// NewSeededSource returns a NormalSource seeded deterministically from
// seed, so repeated runs with the same seed reproduce the same
// realization.
func NewSeededSource(seed uint64) NormalSource {
	return &pcgNormalSource{r: rand.New(rand.NewPCG(seed, seed))}
}

func (s *pcgNormalSource) NormFloat64() float64 { return s.r.NormFloat64() }

// BrownianMotion is a driftless Brownian motion with constant annual
// volatility: for a horizon dt, the variance accumulated is
// volatility^2 * dt, expressed in 365.25-day years.
type BrownianMotion struct {
	t0         xtime.Timestamp
	volatility float64
	varYear    float64
	rng        NormalSource
}

// NewBrownianMotion constructs a Brownian motion starting at t0 with
// value 0, annual volatility volatility, driven by a generator seeded
// from seed.
func NewBrownianMotion(t0 xtime.Timestamp, volatility float64, seed uint64) *BrownianMotion {
	return &BrownianMotion{
		t0:         t0,
		volatility: volatility,
		varYear:    volatility * volatility,
		rng:        NewSeededSource(seed),
	}
}

// T0 returns the motion's starting time.
func (b *BrownianMotion) T0() xtime.Timestamp { return b.t0 }

// T0Value returns the motion's starting value, always 0.
func (b *BrownianMotion) T0Value() float64 { return 0.0 }

// Volatility returns the motion's annual volatility.
func (b *BrownianMotion) Volatility() float64 { return b.volatility }

// VarianceDT returns the variance this motion accumulates over dt.
func (b *BrownianMotion) VarianceDT(dt xtime.Duration) float64 {
	return b.varYear * dt.YearsFraction()
}

// ExteriorSample draws this motion's value at t, given the greatest
// lower bound sample lo, t strictly after lo.Tm.
func (b *BrownianMotion) ExteriorSample(t xtime.Timestamp, lo Sample[float64]) float64 {
	v := b.VarianceDT(t.Sub(lo.Tm))
	return lo.X + math.Sqrt(v)*b.rng.NormFloat64()
}

// InteriorSample draws a bridge sample at t strictly between two
// already-known points lo and hi. It de-drifts the path between lo and
// hi, then samples the conditional (Brownian-bridge) distribution at t:
// the increments [lo,t] and [t,hi] are independent normals with
// variances var1 and var2, and the bridge variance at t is
// var1*var2/(var1+var2).
func (b *BrownianMotion) InteriorSample(t xtime.Timestamp, lo, hi Sample[float64]) float64 {
	tFrac := float64(t.Sub(lo.Tm)) / float64(hi.Tm.Sub(lo.Tm))
	meanDx := (hi.X - lo.X) * tFrac

	var1 := b.VarianceDT(t.Sub(lo.Tm))
	var2 := b.VarianceDT(hi.Tm.Sub(t))
	varS := var1 * var2 / (var1 + var2)

	dx := math.Sqrt(varS) * b.rng.NormFloat64()

	return lo.X + meanDx + dx
}

// DisplayString returns a human-readable identifier for logging.
func (b *BrownianMotion) DisplayString() string { return "<BrownianMotion>" }

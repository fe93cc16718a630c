// Package process develops sampled realizations of stochastic processes
// and adapts them as reactor sources.
package process

import (
	"sync"

	"github.com/xoreactor/xo-reactor/internal/xtime"
)

// Sample is a single (time, value) point on a realized path.
type Sample[T any] struct {
	Tm xtime.Timestamp
	X  T
}

// Process is the minimal contract a Tracer needs to develop a sampled
// path: a starting point, plus the ability to draw the process's value
// at any later time given the greatest lower bound already sampled.
type Process[T any] interface {
	// T0 returns this process's starting time.
	T0() xtime.Timestamp
	// T0Value returns this process's value at T0.
	T0Value() T
	// ExteriorSample draws the process value at t, given the greatest
	// lower bound already-known sample lo, where t is strictly after
	// lo.Tm.
	ExteriorSample(t xtime.Timestamp, lo Sample[T]) T
}

// InteriorSampler is implemented by processes that support sampling
// strictly between two already-known points (a bridge sample), rather
// than only extending a path forward in time.
type InteriorSampler[T any] interface {
	// InteriorSample draws the process value at t, with lo.Tm < t <
	// hi.Tm and both lo and hi already known.
	InteriorSample(t xtime.Timestamp, lo, hi Sample[T]) T
}

// Tracer maintains one-way iteration over a realization (a sampled
// path) of a stochastic process: a monotonically increasing current
// sample, advanced on demand. It does not cache history — callers that
// need interior sampling must supply both endpoints themselves.
type Tracer[T any] struct {
	mu      sync.Mutex
	current Sample[T]
	process Process[T]
}

// NewTracer creates a Tracer starting at p's T0/T0Value.
func NewTracer[T any](p Process[T]) *Tracer[T] {
	return &Tracer[T]{
		current: Sample[T]{Tm: p.T0(), X: p.T0Value()},
		process: p,
	}
}

// Process returns the process this tracer samples.
func (tr *Tracer[T]) Process() Process[T] {
	return tr.process
}

// Current returns the tracer's current (time, value) sample.
func (tr *Tracer[T]) Current() Sample[T] {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.current
}

// CurrentTimestamp returns the timestamp of the tracer's current sample.
func (tr *Tracer[T]) CurrentTimestamp() xtime.Timestamp {
	return tr.Current().Tm
}

// CurrentValue returns the value of the tracer's current sample.
func (tr *Tracer[T]) CurrentValue() T {
	return tr.Current().X
}

// AdvanceUntil fails silently (no change) if t1 is not strictly after
// the current sample's timestamp; otherwise it draws a new exterior
// sample at t1 and replaces the current sample.
func (tr *Tracer[T]) AdvanceUntil(t1 xtime.Timestamp) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	if t1.Compare(tr.current.Tm) <= 0 {
		return
	}

	x1 := tr.process.ExteriorSample(t1, tr.current)
	tr.current = Sample[T]{Tm: t1, X: x1}
}

// AdvanceDT advances the tracer by a fixed interval dt.
func (tr *Tracer[T]) AdvanceDT(dt xtime.Duration) {
	tr.AdvanceUntil(tr.CurrentTimestamp().Add(dt))
}

// InteriorSample draws a bridge sample at t, strictly between the
// tracer's current sample and hi, without advancing the tracer's own
// state. It reports false if the underlying process does not support
// interior sampling.
func (tr *Tracer[T]) InteriorSample(t xtime.Timestamp, hi Sample[T]) (T, bool) {
	is, ok := tr.process.(InteriorSampler[T])
	if !ok {
		var zero T
		return zero, false
	}
	return is.InteriorSample(t, tr.Current(), hi), true
}

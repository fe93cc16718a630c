package process

import (
	"github.com/xoreactor/xo-reactor/internal/diag"
	"github.com/xoreactor/xo-reactor/internal/reactor"
	"github.com/xoreactor/xo-reactor/internal/xtime"
)

// Event is the concrete event a RealizationSource delivers: the
// timestamp and process value of one discretized sample.
type Event[T any] struct {
	Tm xtime.Timestamp
	X  T
}

// RealizationSource adapts a Tracer as a reactor.Source, discretizing
// the underlying realization at a fixed interval. It is always primed
// and never exhausted — the stochastic process API has no notion of an
// end time; a simulator or duration-bound driver imposes one.
type RealizationSource[T any] struct {
	reactor.SinkTable[Event[T]]

	name       string
	seq        uint64
	tracer     *Tracer[T]
	intervalDt xtime.Duration
	nOutEv     uint64
	bus        *diag.Bus
}

// NewRealizationSource creates a source named name that samples tracer
// every intervalDt, publishing diagnostic events to bus (nil-safe: pass
// nil to disable diagnostics).
func NewRealizationSource[T any](name string, tracer *Tracer[T], intervalDt xtime.Duration, bus *diag.Bus) *RealizationSource[T] {
	return &RealizationSource[T]{
		name:       name,
		seq:        reactor.NextSeq(),
		tracer:     tracer,
		intervalDt: intervalDt,
		bus:        bus,
	}
}

func (s *RealizationSource[T]) Name() string { return s.name }
func (s *RealizationSource[T]) Seq() uint64  { return s.seq }

// IsEmpty is always false: process realizations always have a next
// sample to deliver.
func (s *RealizationSource[T]) IsEmpty() bool { return false }

// IsPrimed is always true for a RealizationSource.
func (s *RealizationSource[T]) IsPrimed() bool { return true }

// IsExhausted is always false: the underlying process has no end time
// of its own.
func (s *RealizationSource[T]) IsExhausted() bool { return false }

// CurrentTimestamp returns the timestamp of the tracer's current sample.
func (s *RealizationSource[T]) CurrentTimestamp() xtime.Timestamp {
	return s.tracer.CurrentTimestamp()
}

// NOutEvents returns the lifetime count of delivered events.
func (s *RealizationSource[T]) NOutEvents() uint64 { return s.nOutEv }

// AdvanceUntil moves the source forward to t. With replayFlag set, every
// event up to and including t is delivered along the way, in
// non-decreasing order, leaving the current timestamp strictly after t;
// without it, the tracer jumps directly to t (no change if t is not
// after the current timestamp) and no events are published.
func (s *RealizationSource[T]) AdvanceUntil(t xtime.Timestamp, replayFlag bool) uint64 {
	var delivered uint64
	if replayFlag {
		for !s.CurrentTimestamp().After(t) {
			delivered += s.DeliverOne()
		}
	} else {
		s.tracer.AdvanceUntil(t)
	}
	return delivered
}

// DeliverOne publishes the tracer's current sample to attached sinks,
// then advances the tracer by one discretization interval.
func (s *RealizationSource[T]) DeliverOne() uint64 {
	s.nOutEv++
	cur := s.tracer.Current()

	s.Publish(Event[T]{Tm: cur.Tm, X: cur.X})

	s.bus.Publish(diag.Event{
		Source: diag.SourceProcess,
		Kind:   diag.KindRealizationAdvance,
		Data: map[string]any{
			"source_name": s.name,
			"tm":          cur.Tm.String(),
			"value":       cur.X,
		},
	})

	s.tracer.AdvanceDT(s.intervalDt)

	return 1
}

// NotifyReactorAdd records association with a reactor. A
// RealizationSource has no state of its own to adjust on attachment.
func (s *RealizationSource[T]) NotifyReactorAdd(reactor.Reactor) {}

// NotifyReactorRemove records dissociation from a reactor.
func (s *RealizationSource[T]) NotifyReactorRemove(reactor.Reactor) {}

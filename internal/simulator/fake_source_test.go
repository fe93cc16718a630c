package simulator

import (
	"github.com/xoreactor/xo-reactor/internal/reactor"
	"github.com/xoreactor/xo-reactor/internal/xtime"
)

// fakeSource is a minimal, hand-rolled reactor.Source for exercising
// the simulator: it delivers a fixed sequence of event timestamps, one
// per DeliverOne call, and supports being constructed not-primed so
// tests can drive NotifySourcePrimed explicitly.
type fakeSource struct {
	name string
	seq  uint64

	events  []xtime.Timestamp
	pos     int
	primed  bool
	onEvent func(idx int)

	addedTo   []reactor.Reactor
	removedOf []reactor.Reactor
}

func newFakeSource(name string, events []xtime.Timestamp) *fakeSource {
	return &fakeSource{
		name:   name,
		seq:    reactor.NextSeq(),
		events: events,
		primed: len(events) > 0,
	}
}

func (f *fakeSource) Name() string { return f.name }
func (f *fakeSource) Seq() uint64  { return f.seq }

func (f *fakeSource) IsEmpty() bool      { return f.pos >= len(f.events) }
func (f *fakeSource) IsPrimed() bool     { return f.primed && !f.IsEmpty() }
func (f *fakeSource) IsExhausted() bool  { return f.IsEmpty() }

func (f *fakeSource) CurrentTimestamp() xtime.Timestamp {
	if f.IsEmpty() {
		return xtime.Timestamp{}
	}
	return f.events[f.pos]
}

func (f *fakeSource) AdvanceUntil(t xtime.Timestamp, replayFlag bool) uint64 {
	var delivered uint64
	for !f.IsEmpty() {
		ev := f.events[f.pos]
		if replayFlag {
			if ev.After(t) {
				break
			}
			delivered += f.DeliverOne()
		} else {
			if !ev.Before(t) {
				break
			}
			f.pos++
		}
	}
	return delivered
}

func (f *fakeSource) DeliverOne() uint64 {
	if f.IsEmpty() {
		return 0
	}
	idx := f.pos
	f.pos++
	if f.onEvent != nil {
		f.onEvent(idx)
	}
	return 1
}

// newUnprimedFakeSource constructs a source with no events yet; a test
// calls primeWith to give it events and then NotifySourcePrimed on the
// simulator to surface the transition.
func newUnprimedFakeSource(name string) *fakeSource {
	return &fakeSource{name: name, seq: reactor.NextSeq()}
}

func (f *fakeSource) primeWith(events []xtime.Timestamp) {
	f.events = events
	f.pos = 0
	f.primed = true
}

func (f *fakeSource) NotifyReactorAdd(r reactor.Reactor)    { f.addedTo = append(f.addedTo, r) }
func (f *fakeSource) NotifyReactorRemove(r reactor.Reactor) { f.removedOf = append(f.removedOf, r) }

var _ reactor.Source = (*fakeSource)(nil)

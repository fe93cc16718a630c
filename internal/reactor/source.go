package reactor

import "github.com/xoreactor/xo-reactor/internal/xtime"

// Source is the abstract contract for an event producer. Event
// representation is left open: a concrete source and the sinks attached
// to it must agree on a compatible event type; the reactor mediating
// between them only ever sees this interface.
//
// A source may be associated with at most one reactor at a time. It is
// told when that association is formed or broken via NotifyReactorAdd
// and NotifyReactorRemove.
//
// The interface also provides for simulation: CurrentTimestamp and
// AdvanceUntil let a driver replay a source deterministically. An
// online (non-simulated) source can implement AdvanceUntil as a no-op
// returning 0, and is expected to never be exhausted.
type Source interface {
	// Name identifies the source for logging and diagnostics.
	Name() string

	// Seq returns the source's process-wide sequence number, assigned
	// once at construction via NextSeq. It exists to give the
	// simulator's heap a deterministic tie-break when two sources
	// share a timestamp.
	Seq() uint64

	// IsEmpty reports whether the source currently has zero events to
	// deliver.
	IsEmpty() bool

	// IsPrimed reports whether the source knows its next event. A
	// source that is not primed is excluded from the simulator's heap
	// until it transitions — this makes it possible for one source to
	// depend on another.
	IsPrimed() bool

	// IsExhausted reports whether the source has no events left and
	// will never publish more.
	IsExhausted() bool

	// CurrentTimestamp returns the timestamp of the next event. Only
	// meaningful when IsPrimed is true and IsExhausted is false.
	CurrentTimestamp() xtime.Timestamp

	// AdvanceUntil moves the source forward to t. When replayFlag is
	// true, every event with timestamp <= t is published in
	// non-decreasing order, and afterward CurrentTimestamp() is
	// strictly after t, or the source is not primed, or it is
	// exhausted; the return value is the count of events delivered
	// this way. When replayFlag is false, events strictly before t are
	// discarded without publishing, an event at exactly t is kept as
	// the next event, and the return value is always 0.
	AdvanceUntil(t xtime.Timestamp, replayFlag bool) uint64

	// DeliverOne delivers at most one event to attached sinks and
	// returns the count delivered (0 or 1). CurrentTimestamp must
	// advance monotonically across calls, or the source must
	// transition to not-primed or exhausted.
	DeliverOne() uint64

	// NotifyReactorAdd is called when the source is registered with a
	// reactor.
	NotifyReactorAdd(r Reactor)

	// NotifyReactorRemove is called when the source is deregistered
	// from a reactor.
	NotifyReactorRemove(r Reactor)
}

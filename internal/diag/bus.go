// Package diag provides a publish/subscribe event bus for reactor and
// Kalman-filter diagnostics. Events flow from core components (the
// simulator, realization sources, the filter engine) to subscribers
// (a recorder sink, a CLI progress printer, future metrics collectors).
// The bus is nil-safe: calling Publish on a nil *Bus is a no-op, so core
// components never need guard checks before emitting a trace event —
// matching the core's promise that it "never fails because of logger
// state."
package diag

import (
	"sync"
	"sync/atomic"
	"time"
)

// Source constants identify which component published an event.
const (
	// SourceSimulator identifies events from the simulator's dispatch loop.
	SourceSimulator = "simulator"
	// SourceProcess identifies events from a realization source/tracer.
	SourceProcess = "process"
	// SourceFilter identifies events from the Kalman filter engine.
	SourceFilter = "filter"
	// SourceRecorder identifies events from the run recorder.
	SourceRecorder = "recorder"
)

// Kind constants describe the type of event within a source.
const (
	// KindSourceAdded signals a source was registered with the simulator.
	// Data: source_name, primed, exhausted.
	KindSourceAdded = "source_added"
	// KindSourceRemoved signals a source was deregistered.
	// Data: source_name.
	KindSourceRemoved = "source_removed"
	// KindSourcePrimed signals a source transitioned from not-primed to primed.
	// Data: source_name, current_tm.
	KindSourcePrimed = "source_primed"
	// KindDeliverOne signals one event was dispatched.
	// Data: source_name, tm, n_event.
	KindDeliverOne = "deliver_one"
	// KindThrottleSleep signals the throttled replay loop slept to pin
	// simulated time to wall-clock time.
	// Data: sleep_ms, sim_tm.
	KindThrottleSleep = "throttle_sleep"
	// KindRunComplete signals a run loop (RunUntil/RunThrottledUntil) finished.
	// Data: n_event, last_tm.
	KindRunComplete = "run_complete"

	// KindRealizationAdvance signals a tracer advanced its sample.
	// Data: source_name, tm, value.
	KindRealizationAdvance = "realization_advance"

	// KindFilterStep signals a completed extrapolate/correct cycle.
	// Data: step_no, tm, j, numerical_failure.
	KindFilterStep = "filter_step"
	// KindFilterNumericalFailure signals a correction step could not solve
	// the innovation covariance and fell back to the extrapolated state.
	// Data: step_no, tm, reason.
	KindFilterNumericalFailure = "filter_numerical_failure"
)

// Event represents a single diagnostic event published by a component.
type Event struct {
	// Timestamp is when the event occurred (wall-clock, not simulated time).
	Timestamp time.Time `json:"ts"`
	// Source identifies the component that published the event.
	Source string `json:"source"`
	// Kind describes the type of event within the source.
	Kind string `json:"kind"`
	// Data holds event-specific key/value pairs.
	Data map[string]any `json:"data,omitempty"`
}

// subscriber pairs a delivery channel with a count of events dropped
// because the channel was full. The recorder subscribes to accumulate
// a complete run history for persistence, not just a best-effort
// progress feed, so a silently incomplete recording is a correctness
// problem, not cosmetic — dropped counts let a subscriber (or the
// recorder's own run-complete summary) detect and report that its
// record of the run is missing events, rather than finding out never.
type subscriber struct {
	ch      chan Event
	dropped atomic.Uint64
}

// Bus is a non-blocking broadcast event bus. Subscribers receive events
// on buffered channels; slow subscribers miss events rather than
// blocking publishers. The simulator's dispatch loop publishes from a
// single goroutine, so Publish calls are never concurrent with each
// other, but Subscribe/Unsubscribe can still race against it from the
// CLI's recorder goroutine — both remain guarded by mu.
type Bus struct {
	mu   sync.RWMutex
	subs []*subscriber
}

// New creates a new diagnostic event bus ready for use.
func New() *Bus {
	return &Bus{}
}

// Publish sends an event to all subscribers. Non-blocking: if a
// subscriber's channel is full, the event is dropped for that
// subscriber and its dropped counter is incremented. Safe to call on a
// nil receiver (no-op).
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		select {
		case sub.ch <- e:
		default:
			sub.dropped.Add(1)
		}
	}
}

// Subscribe returns a channel that receives published events. The
// caller must eventually call Unsubscribe to avoid resource leaks.
// bufSize controls the channel buffer; 64 is a reasonable default, but
// a subscriber intending to archive the full run (the recorder) should
// size it to the between-flush event volume rather than rely on the
// default and then discover drops after the fact.
func (b *Bus) Subscribe(bufSize int) <-chan Event {
	sub := &subscriber{ch: make(chan Event, bufSize)}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, sub)
	return sub.ch
}

// Unsubscribe removes a subscription and closes the channel. Safe to
// call with a channel that is already unsubscribed (no-op).
func (b *Bus) Unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subs {
		if sub.ch != ch {
			continue
		}
		b.subs = append(b.subs[:i], b.subs[i+1:]...)
		close(sub.ch)
		return
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped returns the number of events dropped for the subscriber
// identified by ch because its buffer was full, or 0 if ch is not a
// current subscriber.
func (b *Bus) Dropped(ch <-chan Event) uint64 {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if sub.ch == ch {
			return sub.dropped.Load()
		}
	}
	return 0
}

// TotalDropped returns the sum of dropped-event counts across every
// current subscriber, for a coarse health signal when a caller doesn't
// track its own channel (e.g. a log line at run-complete time).
func (b *Bus) TotalDropped() uint64 {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	var total uint64
	for _, sub := range b.subs {
		total += sub.dropped.Load()
	}
	return total
}

// Package simulator implements a reactor specialized for ordered,
// time-driven replay: a min-heap of (timestamp, source) entries drives
// sources forward in non-decreasing timestamp order, with reentrant
// add/remove support during delivery.
package simulator

import (
	"container/heap"
	"fmt"
	"log/slog"
	"sync"

	"github.com/xoreactor/xo-reactor/internal/diag"
	"github.com/xoreactor/xo-reactor/internal/reactor"
	"github.com/xoreactor/xo-reactor/internal/xtime"
)

// cmdKind identifies a deferred reentrant command.
type cmdKind int

const (
	cmdNotifySourcePrimed cmdKind = iota
	cmdCompleteAddSource
	cmdCompleteRemoveSource
)

type reentrantCmd struct {
	kind cmdKind
	src  reactor.Source
}

// Simulator is a reactor.Reactor specialized for ordered, time-driven
// replay of a set of sources.
type Simulator struct {
	mu sync.Mutex

	t0     xtime.Timestamp
	lastTm xtime.Timestamp
	nEvent uint64

	srcV       []reactor.Source
	registered map[reactor.Source]bool

	heap heapEntries

	reentrantQueue     []reentrantCmd
	deliveryInProgress bool

	logger *slog.Logger
	bus    *diag.Bus
}

// New constructs a Simulator with start time t0. logger and bus may be
// nil; nil logging is silently skipped and diag.Bus is nil-safe.
func New(t0 xtime.Timestamp, logger *slog.Logger, bus *diag.Bus) *Simulator {
	return &Simulator{
		t0:         t0,
		lastTm:     t0,
		registered: make(map[reactor.Source]bool),
		logger:     logger,
		bus:        bus,
	}
}

// T0 returns the simulator's fixed start time.
func (s *Simulator) T0() xtime.Timestamp { return s.t0 }

// LastTm returns the timestamp of the most recently dispatched event.
func (s *Simulator) LastTm() xtime.Timestamp {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTm
}

// NEvent returns the total number of events dispatched so far.
func (s *Simulator) NEvent() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nEvent
}

// NextTimestamp returns the timestamp of the next event the simulator
// would dispatch, and whether one exists.
func (s *Simulator) NextTimestamp() (xtime.Timestamp, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.heap) == 0 {
		return xtime.Timestamp{}, false
	}
	return s.heap[0].tm, true
}

// IsExhausted reports whether the simulator has no primed,
// non-exhausted source left to dispatch. A simulator with no sources
// registered is exhausted.
func (s *Simulator) IsExhausted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.heap) == 0
}

// AddSource registers src with the simulator. Pre-t0 events are
// silently discarded by advancing src to t0 first. Idempotent: adding
// an already-registered source returns false without changing state.
func (s *Simulator) AddSource(src reactor.Source) bool {
	if src == nil {
		panic("simulator: AddSource called with nil source")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addSourceLocked(src)
}

func (s *Simulator) addSourceLocked(src reactor.Source) bool {
	if s.registered[src] {
		return false
	}

	src.AdvanceUntil(s.t0, false)

	s.srcV = append(s.srcV, src)
	s.registered[src] = true
	src.NotifyReactorAdd(s)

	exhausted := src.IsExhausted()
	primed := src.IsPrimed()

	s.bus.Publish(diag.Event{
		Source: diag.SourceSimulator,
		Kind:   diag.KindSourceAdded,
		Data:   map[string]any{"source_name": src.Name(), "primed": primed, "exhausted": exhausted},
	})

	if exhausted {
		return true
	}
	if !primed {
		// Stays out of the heap until a future NotifySourcePrimed.
		return true
	}

	if s.deliveryInProgress {
		s.reentrantQueue = append(s.reentrantQueue, reentrantCmd{kind: cmdCompleteAddSource, src: src})
	} else {
		s.insertHeap(src)
	}
	return true
}

// RemoveSource deregisters src. Idempotent: removing a source not
// registered returns false without changing state. Removal breaks the
// scheduling relationship only; it does not alter the source itself.
func (s *Simulator) RemoveSource(src reactor.Source) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeSourceLocked(src)
}

func (s *Simulator) removeSourceLocked(src reactor.Source) bool {
	if !s.registered[src] {
		return false
	}

	if s.deliveryInProgress {
		s.reentrantQueue = append(s.reentrantQueue, reentrantCmd{kind: cmdCompleteRemoveSource, src: src})
		return true
	}

	s.completeRemove(src)
	return true
}

func (s *Simulator) completeRemove(src reactor.Source) {
	delete(s.registered, src)

	for i, x := range s.srcV {
		if x == src {
			s.srcV = append(s.srcV[:i], s.srcV[i+1:]...)
			break
		}
	}

	if idx := s.heap.indexOf(src); idx >= 0 {
		heap.Remove(&s.heap, idx)
	}

	src.NotifyReactorRemove(s)

	s.bus.Publish(diag.Event{
		Source: diag.SourceSimulator,
		Kind:   diag.KindSourceRemoved,
		Data:   map[string]any{"source_name": src.Name()},
	})
}

// NotifySourcePrimed is called by a source after a not-primed to primed
// transition, so the simulator can reconsider it for scheduling.
func (s *Simulator) NotifySourcePrimed(src reactor.Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifySourcePrimedLocked(src)
}

func (s *Simulator) notifySourcePrimedLocked(src reactor.Source) {
	if !s.registered[src] {
		return
	}

	if s.deliveryInProgress {
		s.reentrantQueue = append(s.reentrantQueue, reentrantCmd{kind: cmdNotifySourcePrimed, src: src})
		return
	}

	if src.IsPrimed() && !src.IsExhausted() && s.heap.indexOf(src) < 0 {
		s.insertHeap(src)

		s.bus.Publish(diag.Event{
			Source: diag.SourceSimulator,
			Kind:   diag.KindSourcePrimed,
			Data:   map[string]any{"source_name": src.Name(), "current_tm": src.CurrentTimestamp().String()},
		})
	}
}

func (s *Simulator) insertHeap(src reactor.Source) {
	heap.Push(&s.heap, heapEntry{tm: src.CurrentTimestamp(), seq: src.Seq(), src: src})
}

// RunOne advances the simulator by one event and returns the count
// dispatched, 0 or 1. If the top source panics during delivery, the
// reentrancy flag and queue are restored before the panic is
// re-raised, so the simulator remains usable by a caller that recovers
// further up the stack.
func (s *Simulator) RunOne() int {
	s.mu.Lock()
	if len(s.heap) == 0 {
		s.mu.Unlock()
		return 0
	}

	top := s.heap[0]
	s.lastTm = top.tm
	s.deliveryInProgress = true
	s.mu.Unlock()

	delivered := s.deliverOneGuarded(top.src)

	s.mu.Lock()
	heap.Pop(&s.heap)
	s.nEvent += delivered

	if !top.src.IsExhausted() && top.src.IsPrimed() {
		s.insertHeap(top.src)
	}

	s.deliveryInProgress = false
	queue := s.reentrantQueue
	s.reentrantQueue = nil
	s.mu.Unlock()

	s.drainReentrantQueue(queue)

	s.bus.Publish(diag.Event{
		Source: diag.SourceSimulator,
		Kind:   diag.KindDeliverOne,
		Data:   map[string]any{"source_name": top.src.Name(), "tm": top.tm.String(), "n_event": s.NEvent()},
	})

	return int(delivered)
}

// deliverOneGuarded calls src.DeliverOne(), restoring the reentrancy
// flag and draining nothing further before re-raising any panic —
// deliver_one's exceptions propagate to the caller of RunOne by design.
func (s *Simulator) deliverOneGuarded(src reactor.Source) (delivered uint64) {
	defer func() {
		if r := recover(); r != nil {
			s.mu.Lock()
			s.deliveryInProgress = false
			s.reentrantQueue = nil
			s.mu.Unlock()
			panic(r)
		}
	}()
	return src.DeliverOne()
}

func (s *Simulator) drainReentrantQueue(queue []reentrantCmd) {
	for _, cmd := range queue {
		switch cmd.kind {
		case cmdNotifySourcePrimed:
			s.NotifySourcePrimed(cmd.src)
		case cmdCompleteAddSource:
			s.mu.Lock()
			if s.registered[cmd.src] && cmd.src.IsPrimed() && !cmd.src.IsExhausted() {
				s.insertHeap(cmd.src)
			}
			s.mu.Unlock()
		case cmdCompleteRemoveSource:
			s.mu.Lock()
			if s.registered[cmd.src] {
				s.completeRemove(cmd.src)
			}
			s.mu.Unlock()
		default:
			panic(fmt.Sprintf("simulator: unknown reentrant command kind %d", cmd.kind))
		}
	}
}

// RunN calls RunOne in a loop n times, or forever if n == -1.
func (s *Simulator) RunN(n int) int {
	return reactor.RunLoop(n, s.RunOne)
}

// RunUntil dispatches events while the next event's timestamp is <= t1
// and the simulator is not exhausted.
func (s *Simulator) RunUntil(t1 xtime.Timestamp) int {
	total := 0
	for {
		tm, ok := s.NextTimestamp()
		if !ok || tm.After(t1) {
			break
		}
		total += s.RunOne()
	}

	s.bus.Publish(diag.Event{
		Source: diag.SourceSimulator,
		Kind:   diag.KindRunComplete,
		Data:   map[string]any{"n_event": total, "last_tm": s.LastTm().String()},
	})

	return total
}

package simulator

import (
	"container/heap"

	"github.com/xoreactor/xo-reactor/internal/xtime"
)

// HeapEntrySnapshot is a read-only view of one heap entry, as reported
// by HeapContents.
type HeapEntrySnapshot struct {
	Timestamp  xtime.Timestamp
	SourceName string
}

// HeapContents returns a non-destructive snapshot of the dispatch heap
// in time order, obtained by popping a private copy.
func (s *Simulator) HeapContents() []HeapEntrySnapshot {
	s.mu.Lock()
	cp := s.heap.clone()
	s.mu.Unlock()

	out := make([]HeapEntrySnapshot, 0, len(cp))
	for cp.Len() > 0 {
		e := heap.Pop(&cp).(heapEntry)
		out = append(out, HeapEntrySnapshot{Timestamp: e.tm, SourceName: e.src.Name()})
	}
	return out
}

// LogHeapContents writes a human-readable dump of the dispatch heap to
// the simulator's logger. A no-op if no logger was configured.
func (s *Simulator) LogHeapContents() {
	if s.logger == nil {
		return
	}
	for _, e := range s.HeapContents() {
		s.logger.Debug("heap entry", "source", e.SourceName, "tm", e.Timestamp.String())
	}
}

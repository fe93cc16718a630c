package simulator

import (
	"container/heap"

	"github.com/xoreactor/xo-reactor/internal/reactor"
	"github.com/xoreactor/xo-reactor/internal/xtime"
)

// heapEntry is one (timestamp, source) pairing in the simulator's
// dispatch heap.
type heapEntry struct {
	tm  xtime.Timestamp
	seq uint64
	src reactor.Source
}

// heapEntries is a binary min-heap of heapEntry, ordered by timestamp
// and tie-broken by the source's sequence number — a deterministic
// total order standing in for the reference implementation's
// address-comparison tie-break.
type heapEntries []heapEntry

func (h heapEntries) Len() int { return len(h) }

func (h heapEntries) Less(i, j int) bool {
	if c := h[i].tm.Compare(h[j].tm); c != 0 {
		return c < 0
	}
	return h[i].seq < h[j].seq
}

func (h heapEntries) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *heapEntries) Push(x any) {
	*h = append(*h, x.(heapEntry))
}

func (h *heapEntries) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// indexOf returns the slice index of the entry for src, or -1.
func (h heapEntries) indexOf(src reactor.Source) int {
	for i, e := range h {
		if e.src == src {
			return i
		}
	}
	return -1
}

// clone returns a copy suitable for non-destructive draining.
func (h heapEntries) clone() heapEntries {
	cp := make(heapEntries, len(h))
	copy(cp, h)
	return cp
}

var _ heap.Interface = (*heapEntries)(nil)

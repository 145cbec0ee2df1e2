package traverse

import (
	"sync"

	"github.com/grepcore/grepcore/pkg/sink"
)

// SlotArray is the output slot array: a growable array of per-visit-index
// buffers, where slot i is locked by buckets[i mod n]. Growth is performed
// under a lock that covers every per-slot lock, so a concurrent reader never
// observes a torn slice header.
type SlotArray struct {
	buckets []sync.Mutex // one lock per (index mod n) bucket
	n       int

	hdrMu sync.RWMutex // protects the slots slice header during growth
	slots []*sink.Slot
}

// NewSlotArray creates a SlotArray with n worker buckets and an initial
// capacity.
func NewSlotArray(n, initialCap int) *SlotArray {
	if initialCap < 1 {
		initialCap = 1
	}
	return &SlotArray{
		buckets: make([]sync.Mutex, n),
		n:       n,
		slots:   make([]*sink.Slot, initialCap),
	}
}

// Get returns the slot for visit index i, growing the array if necessary
// and lazily allocating the slot on first write.
func (a *SlotArray) Get(i int) *sink.Slot {
	a.ensureCap(i + 1)

	lock := &a.buckets[i%a.n]
	lock.Lock()
	defer lock.Unlock()

	a.hdrMu.RLock()
	s := a.slots[i]
	a.hdrMu.RUnlock()
	if s != nil {
		return s
	}

	s = &sink.Slot{}
	a.hdrMu.Lock()
	a.slots[i] = s
	a.hdrMu.Unlock()
	return s
}

// Release frees slot i after it has been flushed.
func (a *SlotArray) Release(i int) {
	lock := &a.buckets[i%a.n]
	lock.Lock()
	defer lock.Unlock()
	a.hdrMu.Lock()
	if i < len(a.slots) {
		a.slots[i] = nil
	}
	a.hdrMu.Unlock()
}

func (a *SlotArray) ensureCap(min int) {
	a.hdrMu.RLock()
	ok := min <= len(a.slots)
	a.hdrMu.RUnlock()
	if ok {
		return
	}

	for i := range a.buckets {
		a.buckets[i].Lock()
	}
	defer func() {
		for i := range a.buckets {
			a.buckets[i].Unlock()
		}
	}()

	a.hdrMu.Lock()
	defer a.hdrMu.Unlock()
	if min <= len(a.slots) {
		return
	}
	newCap := len(a.slots)
	for newCap < min {
		newCap *= 2
	}
	grown := make([]*sink.Slot, newCap)
	copy(grown, a.slots)
	a.slots = grown
}

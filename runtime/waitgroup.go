package runtime

import (
	"sync"
	"sync/atomic"
)

// ---------------------------------------------------------------------------
// WaitGroup: join-point for a known number of jobs
// ---------------------------------------------------------------------------

// WaitGroup wraps sync.WaitGroup with an atomic shadow counter so compiled
// code can inspect the outstanding count.
type WaitGroup struct {
	wg      sync.WaitGroup
	counter atomic.Int32
}

// NewWaitGroup creates a wait group with a zero counter.
func NewWaitGroup() *WaitGroup {
	return &WaitGroup{}
}

// Add adds delta to the counter.
func (w *WaitGroup) Add(delta int) {
	w.counter.Add(int32(delta))
	w.wg.Add(delta)
}

// Done decrements the counter by one.
func (w *WaitGroup) Done() {
	w.counter.Add(-1)
	w.wg.Done()
}

// Wait blocks until the counter reaches zero.
func (w *WaitGroup) Wait() {
	w.wg.Wait()
}

// Count returns the outstanding count. Snapshot only.
func (w *WaitGroup) Count() int {
	return int(w.counter.Load())
}

package runtime

import (
	"sync/atomic"
)

// ---------------------------------------------------------------------------
// AtomicCell: lock-free single-word integer
// ---------------------------------------------------------------------------

// AtomicCell is a lock-free integer cell. All operations are single-word
// and linearizable; there is no ABA protection beyond the single
// compare-and-swap.
type AtomicCell struct {
	v atomic.Int64
}

// NewAtomicCell creates an atomic cell holding initial.
func NewAtomicCell(initial int64) *AtomicCell {
	a := &AtomicCell{}
	a.v.Store(initial)
	return a
}

// Load returns the current value.
func (a *AtomicCell) Load() int64 {
	return a.v.Load()
}

// Store replaces the current value.
func (a *AtomicCell) Store(n int64) {
	a.v.Store(n)
}

// Add adds delta and returns the value before the operation.
func (a *AtomicCell) Add(delta int64) int64 {
	return a.v.Add(delta) - delta
}

// Sub subtracts delta and returns the value before the operation.
func (a *AtomicCell) Sub(delta int64) int64 {
	return a.v.Add(-delta) + delta
}

// Inc increments and returns the value after the operation.
func (a *AtomicCell) Inc() int64 {
	return a.v.Add(1)
}

// Dec decrements and returns the value after the operation.
func (a *AtomicCell) Dec() int64 {
	return a.v.Add(-1)
}

// CAS atomically swaps expected for desired, returning true iff the swap
// occurred.
func (a *AtomicCell) CAS(expected, desired int64) bool {
	return a.v.CompareAndSwap(expected, desired)
}

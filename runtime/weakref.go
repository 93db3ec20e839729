package runtime

import (
	"sync"
)

// ---------------------------------------------------------------------------
// WeakRef: a non-owning, resolvable observer of a Cell
// ---------------------------------------------------------------------------

// WeakRef is a lookup path to a Cell that does not participate in the
// strong count. Once the target's count reaches zero the reference is
// severed and every subsequent Resolve yields Absent; a weak reference
// never dangles. Weak references break ownership cycles: the primary
// ownership edge stays strong (NewRef), the back-edge goes weak.
type WeakRef struct {
	mu        sync.RWMutex
	target    *Cell
	finalizer func(*Cell)
}

// absentWeak backs Weaken(Absent) and Weaken(nil); it resolves to Absent
// forever.
var absentWeak = &WeakRef{target: Absent}

// Weaken records a weak observer of the cell. It is idempotent: every call
// on the same cell returns the same WeakRef, so requesting a weak view of
// an already-weak relation is safe. Safe to call concurrently on different
// cells from different threads.
func Weaken(c *Cell) *WeakRef {
	if c == nil || c.pinned {
		return absentWeak
	}
	c.weakMu.Lock()
	defer c.weakMu.Unlock()
	if c.weak == nil {
		c.weak = &WeakRef{target: c}
	}
	return c.weak
}

// Resolve returns the target with its strong count already incremented if
// it is still alive, or (Absent, false) otherwise. The caller owns the
// returned reference on success. Resolution races against the final
// Release through a conditional increment that refuses to resurrect a
// dead cell.
func (wr *WeakRef) Resolve() (*Cell, bool) {
	if wr == nil {
		return Absent, false
	}
	wr.mu.RLock()
	t := wr.target
	wr.mu.RUnlock()
	if t == nil {
		return Absent, false
	}
	if !t.tryRetain() {
		return Absent, false
	}
	return t, true
}

// IsAlive reports whether the target has not died. Snapshot only.
func (wr *WeakRef) IsAlive() bool {
	if wr == nil {
		return false
	}
	wr.mu.RLock()
	t := wr.target
	wr.mu.RUnlock()
	return t != nil && t.Alive()
}

// SetFinalizer installs a callback invoked once, on the thread performing
// the final Release, just after the target dies. The callback receives the
// dead cell for identification only; its payload is already torn down.
func (wr *WeakRef) SetFinalizer(fn func(*Cell)) {
	if wr == nil || wr == absentWeak {
		return
	}
	wr.mu.Lock()
	wr.finalizer = fn
	wr.mu.Unlock()
}

// sever disconnects the reference from its dying target and returns the
// finalizer to run, if any. Called exactly once, from Cell.die.
func (wr *WeakRef) sever() func(*Cell) {
	wr.mu.Lock()
	defer wr.mu.Unlock()
	wr.target = nil
	fn := wr.finalizer
	wr.finalizer = nil
	return fn
}

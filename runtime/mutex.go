package runtime

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// ---------------------------------------------------------------------------
// Mutex: OS-backed mutual exclusion exposed to compiled code
// ---------------------------------------------------------------------------

// Mutex is a non-reentrant mutual-exclusion lock. Re-locking from the
// owning thread deadlocks; that is accepted behavior, not a bug. Misuse
// that the runtime can detect (double unlock, destroying a held or
// contended mutex) panics with ErrMutexMisuse: these are programming
// errors, not recoverable conditions.
type Mutex struct {
	mu        sync.Mutex
	locked    atomic.Bool // shadows the lock for introspection
	waiters   atomic.Int32
	destroyed atomic.Bool
}

// NewMutex creates an unlocked mutex.
func NewMutex() *Mutex {
	return &Mutex{}
}

// Lock acquires the mutex, blocking until it is free.
func (m *Mutex) Lock() {
	if m.destroyed.Load() {
		panic(fmt.Errorf("%w: lock of a destroyed mutex", ErrMutexMisuse))
	}
	m.waiters.Add(1)
	m.mu.Lock()
	m.waiters.Add(-1)
	m.locked.Store(true)
}

// Unlock releases the mutex. Unlocking a mutex that is not held panics.
func (m *Mutex) Unlock() {
	if !m.locked.Swap(false) {
		panic(fmt.Errorf("%w: unlock of an unlocked mutex", ErrMutexMisuse))
	}
	m.mu.Unlock()
}

// TryLock acquires the mutex without blocking, reporting success.
func (m *Mutex) TryLock() bool {
	if m.destroyed.Load() {
		panic(fmt.Errorf("%w: lock of a destroyed mutex", ErrMutexMisuse))
	}
	if m.mu.TryLock() {
		m.locked.Store(true)
		return true
	}
	return false
}

// IsLocked reports whether the mutex is currently held. Snapshot only.
func (m *Mutex) IsLocked() bool {
	return m.locked.Load()
}

// Destroy marks the mutex dead. Only safe once no thread holds or is
// waiting on the lock; destroying a held or contended mutex panics.
// Idempotent on an already-destroyed mutex.
func (m *Mutex) Destroy() {
	if m.locked.Load() || m.waiters.Load() != 0 {
		panic(fmt.Errorf("%w: destroy of a held or contended mutex", ErrMutexMisuse))
	}
	m.destroyed.Store(true)
}

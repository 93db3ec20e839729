package runtime

import (
	"sync"
	"sync/atomic"
)

// ---------------------------------------------------------------------------
// Handle encoding
// ---------------------------------------------------------------------------

// Handle addresses a runtime object from compiled code. The top byte
// carries a per-type marker, the low 24 bits a registry ID; compiled
// programs treat handles as opaque words.
type Handle uint32

const (
	handleMarkerMask Handle = 0xFF << 24
	handleIDMask     Handle = 0x00FFFFFF

	channelMarker   Handle = 1 << 24
	futureMarker    Handle = 2 << 24
	mutexMarker     Handle = 3 << 24
	semaphoreMarker Handle = 4 << 24
	waitGroupMarker Handle = 5 << 24
	atomicMarker    Handle = 6 << 24
	weakRefMarker   Handle = 7 << 24
)

func (h Handle) marker() Handle { return h & handleMarkerMask }
func (h Handle) id() Handle     { return h & handleIDMask }

// nextHandle allocates the next free handle of one class. IDs are 24 bits
// and wrap; ID zero and IDs still bound to a live entry are skipped, so a
// stale handle is never silently rebound to a new object. Caller holds the
// class lock.
func nextHandle(marker Handle, id *atomic.Uint32, taken func(Handle) bool) Handle {
	for i := uint32(0); i <= uint32(handleIDMask); i++ {
		h := marker | Handle(id.Add(1))&handleIDMask
		if h.id() == 0 || taken(h) {
			continue
		}
		return h
	}
	panic("runtime: handle space exhausted")
}

// ---------------------------------------------------------------------------
// Registry: handle table for all concurrency objects
// ---------------------------------------------------------------------------

// Registry maps handles to the channels, futures, mutexes, semaphores,
// wait groups, atomic cells, and weak references a compiled program has
// created. Each class of object has its own table and lock so unrelated
// lookups never contend.
type Registry struct {
	channels   map[Handle]*Channel
	channelsMu sync.RWMutex
	channelID  atomic.Uint32

	futures   map[Handle]*Future
	futuresMu sync.RWMutex
	futureID  atomic.Uint32

	mutexes   map[Handle]*Mutex
	mutexesMu sync.RWMutex
	mutexID   atomic.Uint32

	semaphores   map[Handle]*Semaphore
	semaphoresMu sync.RWMutex
	semaphoreID  atomic.Uint32

	waitGroups   map[Handle]*WaitGroup
	waitGroupsMu sync.RWMutex
	waitGroupID  atomic.Uint32

	atomics   map[Handle]*AtomicCell
	atomicsMu sync.RWMutex
	atomicID  atomic.Uint32

	weakRefs   map[Handle]*WeakRef
	weakRefsMu sync.RWMutex
	weakRefID  atomic.Uint32
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		channels:   make(map[Handle]*Channel),
		futures:    make(map[Handle]*Future),
		mutexes:    make(map[Handle]*Mutex),
		semaphores: make(map[Handle]*Semaphore),
		waitGroups: make(map[Handle]*WaitGroup),
		atomics:    make(map[Handle]*AtomicCell),
		weakRefs:   make(map[Handle]*WeakRef),
	}
}

// RegisterChannel adds a channel and returns its handle.
func (r *Registry) RegisterChannel(ch *Channel) Handle {
	r.channelsMu.Lock()
	defer r.channelsMu.Unlock()
	h := nextHandle(channelMarker, &r.channelID, func(h Handle) bool {
		_, ok := r.channels[h]
		return ok
	})
	r.channels[h] = ch
	return h
}

// GetChannel resolves a channel handle, or nil for a stale or foreign one.
func (r *Registry) GetChannel(h Handle) *Channel {
	if h.marker() != channelMarker {
		return nil
	}
	r.channelsMu.RLock()
	defer r.channelsMu.RUnlock()
	return r.channels[h]
}

// RegisterFuture adds a future and returns its handle.
func (r *Registry) RegisterFuture(f *Future) Handle {
	r.futuresMu.Lock()
	defer r.futuresMu.Unlock()
	h := nextHandle(futureMarker, &r.futureID, func(h Handle) bool {
		_, ok := r.futures[h]
		return ok
	})
	r.futures[h] = f
	return h
}

// GetFuture resolves a future handle, or nil for a stale or foreign one.
func (r *Registry) GetFuture(h Handle) *Future {
	if h.marker() != futureMarker {
		return nil
	}
	r.futuresMu.RLock()
	defer r.futuresMu.RUnlock()
	return r.futures[h]
}

// RegisterMutex adds a mutex and returns its handle.
func (r *Registry) RegisterMutex(m *Mutex) Handle {
	r.mutexesMu.Lock()
	defer r.mutexesMu.Unlock()
	h := nextHandle(mutexMarker, &r.mutexID, func(h Handle) bool {
		_, ok := r.mutexes[h]
		return ok
	})
	r.mutexes[h] = m
	return h
}

// GetMutex resolves a mutex handle, or nil for a stale or foreign one.
func (r *Registry) GetMutex(h Handle) *Mutex {
	if h.marker() != mutexMarker {
		return nil
	}
	r.mutexesMu.RLock()
	defer r.mutexesMu.RUnlock()
	return r.mutexes[h]
}

// DropMutex removes a destroyed mutex from the table.
func (r *Registry) DropMutex(h Handle) {
	r.mutexesMu.Lock()
	delete(r.mutexes, h)
	r.mutexesMu.Unlock()
}

// RegisterSemaphore adds a semaphore and returns its handle.
func (r *Registry) RegisterSemaphore(s *Semaphore) Handle {
	r.semaphoresMu.Lock()
	defer r.semaphoresMu.Unlock()
	h := nextHandle(semaphoreMarker, &r.semaphoreID, func(h Handle) bool {
		_, ok := r.semaphores[h]
		return ok
	})
	r.semaphores[h] = s
	return h
}

// GetSemaphore resolves a semaphore handle.
func (r *Registry) GetSemaphore(h Handle) *Semaphore {
	if h.marker() != semaphoreMarker {
		return nil
	}
	r.semaphoresMu.RLock()
	defer r.semaphoresMu.RUnlock()
	return r.semaphores[h]
}

// RegisterWaitGroup adds a wait group and returns its handle.
func (r *Registry) RegisterWaitGroup(wg *WaitGroup) Handle {
	r.waitGroupsMu.Lock()
	defer r.waitGroupsMu.Unlock()
	h := nextHandle(waitGroupMarker, &r.waitGroupID, func(h Handle) bool {
		_, ok := r.waitGroups[h]
		return ok
	})
	r.waitGroups[h] = wg
	return h
}

// GetWaitGroup resolves a wait-group handle.
func (r *Registry) GetWaitGroup(h Handle) *WaitGroup {
	if h.marker() != waitGroupMarker {
		return nil
	}
	r.waitGroupsMu.RLock()
	defer r.waitGroupsMu.RUnlock()
	return r.waitGroups[h]
}

// RegisterAtomic adds an atomic cell and returns its handle.
func (r *Registry) RegisterAtomic(a *AtomicCell) Handle {
	r.atomicsMu.Lock()
	defer r.atomicsMu.Unlock()
	h := nextHandle(atomicMarker, &r.atomicID, func(h Handle) bool {
		_, ok := r.atomics[h]
		return ok
	})
	r.atomics[h] = a
	return h
}

// GetAtomic resolves an atomic-cell handle.
func (r *Registry) GetAtomic(h Handle) *AtomicCell {
	if h.marker() != atomicMarker {
		return nil
	}
	r.atomicsMu.RLock()
	defer r.atomicsMu.RUnlock()
	return r.atomics[h]
}

// RegisterWeakRef adds a weak reference and returns its handle.
func (r *Registry) RegisterWeakRef(wr *WeakRef) Handle {
	r.weakRefsMu.Lock()
	defer r.weakRefsMu.Unlock()
	h := nextHandle(weakRefMarker, &r.weakRefID, func(h Handle) bool {
		_, ok := r.weakRefs[h]
		return ok
	})
	r.weakRefs[h] = wr
	return h
}

// GetWeakRef resolves a weak-reference handle.
func (r *Registry) GetWeakRef(h Handle) *WeakRef {
	if h.marker() != weakRefMarker {
		return nil
	}
	r.weakRefsMu.RLock()
	defer r.weakRefsMu.RUnlock()
	return r.weakRefs[h]
}

// ---------------------------------------------------------------------------
// Sweeping
// ---------------------------------------------------------------------------

// SweepFutures drops terminal futures from the table, releasing the result
// reference each one still holds. Returns the number swept.
func (r *Registry) SweepFutures() int {
	r.futuresMu.Lock()
	var dead []*Future
	for h, f := range r.futures {
		if f.IsDone() {
			delete(r.futures, h)
			dead = append(dead, f)
		}
	}
	r.futuresMu.Unlock()

	for _, f := range dead {
		f.discardResult()
	}
	return len(dead)
}

// SweepChannels drops closed, drained channels. A closed channel with a
// backlog stays registered until receivers drain it. Returns the number
// swept.
func (r *Registry) SweepChannels() int {
	r.channelsMu.Lock()
	defer r.channelsMu.Unlock()
	swept := 0
	for h, ch := range r.channels {
		if ch.drained() {
			delete(r.channels, h)
			swept++
		}
	}
	return swept
}

// SweepWeakRefs drops weak references whose target has died. Returns the
// number swept.
func (r *Registry) SweepWeakRefs() int {
	r.weakRefsMu.Lock()
	defer r.weakRefsMu.Unlock()
	swept := 0
	for h, wr := range r.weakRefs {
		if !wr.IsAlive() {
			delete(r.weakRefs, h)
			swept++
		}
	}
	return swept
}

// Sweep runs every sweep pass.
func (r *Registry) Sweep() (futures, channels, weakRefs int) {
	futures = r.SweepFutures()
	channels = r.SweepChannels()
	weakRefs = r.SweepWeakRefs()
	return
}

// ---------------------------------------------------------------------------
// Introspection
// ---------------------------------------------------------------------------

// ChannelCount returns the number of registered channels.
func (r *Registry) ChannelCount() int {
	r.channelsMu.RLock()
	defer r.channelsMu.RUnlock()
	return len(r.channels)
}

// FutureCount returns the number of registered futures.
func (r *Registry) FutureCount() int {
	r.futuresMu.RLock()
	defer r.futuresMu.RUnlock()
	return len(r.futures)
}

// MutexCount returns the number of registered mutexes.
func (r *Registry) MutexCount() int {
	r.mutexesMu.RLock()
	defer r.mutexesMu.RUnlock()
	return len(r.mutexes)
}

// Stats returns counts of every registered object class.
func (r *Registry) Stats() map[string]int {
	r.semaphoresMu.RLock()
	semaphores := len(r.semaphores)
	r.semaphoresMu.RUnlock()
	r.waitGroupsMu.RLock()
	waitGroups := len(r.waitGroups)
	r.waitGroupsMu.RUnlock()
	r.atomicsMu.RLock()
	atomics := len(r.atomics)
	r.atomicsMu.RUnlock()
	r.weakRefsMu.RLock()
	weakRefs := len(r.weakRefs)
	r.weakRefsMu.RUnlock()

	return map[string]int{
		"channels":   r.ChannelCount(),
		"futures":    r.FutureCount(),
		"mutexes":    r.MutexCount(),
		"semaphores": semaphores,
		"waitGroups": waitGroups,
		"atomics":    atomics,
		"weakRefs":   weakRefs,
	}
}

package runtime

// ---------------------------------------------------------------------------
// Semaphore: counting semaphore on the buffered-channel permit pattern
// ---------------------------------------------------------------------------

// Semaphore is a counting semaphore. Permits live in a buffered channel
// whose capacity is the permit count.
type Semaphore struct {
	permits  chan struct{}
	capacity int
}

// NewSemaphore creates a semaphore with the given permit count. A count
// below 1 is raised to 1 (a binary semaphore).
func NewSemaphore(capacity int) *Semaphore {
	if capacity < 1 {
		capacity = 1
	}
	s := &Semaphore{
		permits:  make(chan struct{}, capacity),
		capacity: capacity,
	}
	for i := 0; i < capacity; i++ {
		s.permits <- struct{}{}
	}
	return s
}

// Acquire takes a permit, blocking until one is available.
func (s *Semaphore) Acquire() {
	<-s.permits
}

// TryAcquire takes a permit without blocking, reporting success.
func (s *Semaphore) TryAcquire() bool {
	select {
	case <-s.permits:
		return true
	default:
		return false
	}
}

// Release returns a permit. A release beyond capacity is ignored rather
// than blocking the releasing thread.
func (s *Semaphore) Release() {
	select {
	case s.permits <- struct{}{}:
	default:
	}
}

// Available returns the number of permits currently available.
func (s *Semaphore) Available() int {
	return len(s.permits)
}

// Capacity returns the total permit count.
func (s *Semaphore) Capacity() int {
	return s.capacity
}

package runtime

import (
	"sync"
)

// ---------------------------------------------------------------------------
// Channel: thread-safe FIFO queue of cells
// ---------------------------------------------------------------------------

// Channel is a FIFO queue of cells with an optional capacity bound, built
// on a mutex and two condition variables. It is deliberately not a Go
// channel: an unbounded queue and "send to closed is an error, not a
// panic" do not map onto chans.
//
// Ownership: Send transfers one strong reference into the channel; Recv
// transfers it out to the receiver. When Send fails the caller keeps its
// reference. FIFO order is preserved for items that are fully enqueued; no
// order is guaranteed between concurrent senders racing for the last slot
// of a bounded channel beyond some total order being chosen.
type Channel struct {
	mu       sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond
	items    []*Cell
	capacity int // <= 0 means unbounded
	closed   bool
}

// NewChannel creates a channel. A capacity of zero or below means
// unbounded; otherwise the channel holds at most capacity items and Send
// blocks while it is full.
func NewChannel(capacity int) *Channel {
	ch := &Channel{capacity: capacity}
	ch.notFull = sync.NewCond(&ch.mu)
	ch.notEmpty = sync.NewCond(&ch.mu)
	return ch
}

func (ch *Channel) full() bool {
	return ch.capacity > 0 && len(ch.items) >= ch.capacity
}

// Send enqueues a cell, blocking while the channel is full. It returns
// ErrChannelClosed if the channel is closed at the time of the call or
// becomes closed while the sender is blocked; the caller then keeps its
// reference.
func (ch *Channel) Send(c *Cell) error {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	for ch.full() && !ch.closed {
		ch.notFull.Wait()
	}
	if ch.closed {
		return ErrChannelClosed
	}
	ch.items = append(ch.items, c)
	ch.notEmpty.Signal()
	return nil
}

// TrySend enqueues without blocking. It returns (false, ErrChannelClosed)
// on a closed channel, (false, nil) when the channel is full, and
// (true, nil) when the cell was enqueued.
func (ch *Channel) TrySend(c *Cell) (bool, error) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.closed {
		return false, ErrChannelClosed
	}
	if ch.full() {
		return false, nil
	}
	ch.items = append(ch.items, c)
	ch.notEmpty.Signal()
	return true, nil
}

// Recv dequeues the oldest cell, blocking while the channel is empty and
// open. Once the channel is both closed and drained it returns
// (Absent, false) without blocking. The receiver owns the returned
// reference.
func (ch *Channel) Recv() (*Cell, bool) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	for len(ch.items) == 0 && !ch.closed {
		ch.notEmpty.Wait()
	}
	if len(ch.items) == 0 {
		return Absent, false
	}
	return ch.pop(), true
}

// TryRecv dequeues without blocking, returning (Absent, false) immediately
// when nothing is queued.
func (ch *Channel) TryRecv() (*Cell, bool) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if len(ch.items) == 0 {
		return Absent, false
	}
	return ch.pop(), true
}

// pop removes and returns the head item. Caller holds ch.mu.
func (ch *Channel) pop() *Cell {
	c := ch.items[0]
	ch.items[0] = nil
	ch.items = ch.items[1:]
	ch.notFull.Signal()
	return c
}

// Close marks the channel closed and wakes every blocked sender and
// receiver. Items already enqueued remain receivable. Idempotent.
func (ch *Channel) Close() {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.closed {
		return
	}
	ch.closed = true
	ch.notFull.Broadcast()
	ch.notEmpty.Broadcast()
}

// IsClosed reports whether the channel has been closed.
func (ch *Channel) IsClosed() bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.closed
}

// Len returns the queued item count. A snapshot, not a synchronization
// point.
func (ch *Channel) Len() int {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return len(ch.items)
}

// Cap returns the capacity bound, or 0 for an unbounded channel.
func (ch *Channel) Cap() int {
	if ch.capacity <= 0 {
		return 0
	}
	return ch.capacity
}

// drained reports closed-and-empty, the terminal inert state. Used by the
// registry sweep.
func (ch *Channel) drained() bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.closed && len(ch.items) == 0
}

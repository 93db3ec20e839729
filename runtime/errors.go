package runtime

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Runtime error kinds
// ---------------------------------------------------------------------------

// Errors surfaced by the concurrency layer. Errors raised inside a job body
// are captured at the Future boundary and returned verbatim from Await; they
// never crash a worker. Mutex misuse is the exception: it is a programming
// error and panics immediately.
var (
	// ErrChannelClosed is returned by Send on a closed channel.
	ErrChannelClosed = errors.New("channel is closed")

	// ErrFutureCancelled is returned by Await on a cancelled future. Job
	// bodies that observe their cancel flag should return it to settle
	// the future in the Cancelled state.
	ErrFutureCancelled = errors.New("future was cancelled")

	// ErrFutureTimedOut is returned by Timeout when the window expires
	// before the future reaches a terminal state.
	ErrFutureTimedOut = errors.New("timed out waiting for future")

	// ErrPoolUnavailable is returned when submitting work after shutdown.
	ErrPoolUnavailable = errors.New("worker pool is unavailable")

	// ErrPoolRunning is returned by InitPool when workers already started.
	ErrPoolRunning = errors.New("worker pool already running")

	// ErrMutexMisuse is the panic value wrapped on double-unlock and on
	// destroying a held or contended mutex. Not recoverable.
	ErrMutexMisuse = errors.New("mutex misuse")
)

// PanicError preserves the payload of a panic recovered from a job body so
// it can be re-raised verbatim at Await.
type PanicError struct {
	Payload any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("job panicked: %v", e.Payload)
}

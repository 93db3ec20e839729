package runtime

import (
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"time"
)

// ---------------------------------------------------------------------------
// Future: handle to the eventual outcome of a spawned job
// ---------------------------------------------------------------------------

// FutureState is the life-cycle state of a Future.
type FutureState int32

const (
	FuturePending FutureState = iota
	FutureRunning
	FutureCompleted
	FutureFailed
	FutureCancelled
)

func (s FutureState) String() string {
	switch s {
	case FuturePending:
		return "pending"
	case FutureRunning:
		return "running"
	case FutureCompleted:
		return "completed"
	case FutureFailed:
		return "failed"
	case FutureCancelled:
		return "cancelled"
	default:
		return "invalid"
	}
}

// Terminal reports whether s is one of the three terminal states.
func (s FutureState) Terminal() bool {
	return s == FutureCompleted || s == FutureFailed || s == FutureCancelled
}

// Job is a unit of work submitted to the pool. The job owns the reference
// it returns; the future takes it over on completion.
//
// Cancellation is cooperative, not preemptive: Cancel only sets an
// advisory flag, and a running job keeps running until it polls
// fut.Cancelled() at a safe point and bails, conventionally by returning
// ErrFutureCancelled. There is no grace period; a job that never polls
// runs to completion. Write job bodies accordingly.
type Job func(fut *Future) (*Cell, error)

// Future represents the eventual result, failure, or cancellation of a
// job. Await may be called from any thread, including a pool worker, so
// nested asynchronous calls work.
type Future struct {
	mu     sync.Mutex
	cond   *sync.Cond
	state  FutureState
	result *Cell // owned by the future until discarded
	err    error
	job    Job // owning reference to the job closure, cleared once run

	cancelFlag atomic.Bool
	done       chan struct{} // closed on the transition to a terminal state
}

func newFuture(job Job) *Future {
	f := &Future{
		job:  job,
		done: make(chan struct{}),
	}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// State returns the current state.
func (f *Future) State() FutureState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// IsDone reports whether the future has reached a terminal state.
// Non-blocking.
func (f *Future) IsDone() bool {
	return f.State().Terminal()
}

// Cancel requests cancellation. Advisory only; see the Job doc comment.
func (f *Future) Cancel() {
	f.cancelFlag.Store(true)
}

// Cancelled reports whether cancellation has been requested. Job bodies
// poll this at safe points. Non-blocking.
func (f *Future) Cancelled() bool {
	return f.cancelFlag.Load()
}

// Done returns a channel closed when the future reaches a terminal state.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// settle performs the one transition into a terminal state. A second
// settle discards its result and is otherwise a no-op, so a late job
// completion after a shutdown cancellation is harmless.
func (f *Future) settle(state FutureState, result *Cell, err error) {
	f.mu.Lock()
	if f.state.Terminal() {
		f.mu.Unlock()
		if result != nil {
			result.Release()
		}
		return
	}
	f.state = state
	f.result = result
	f.err = err
	f.job = nil
	f.cond.Broadcast()
	f.mu.Unlock()
	close(f.done)
}

// run executes the job on the calling worker. A pending future whose
// cancel flag is already set settles Cancelled without running. Panics in
// the job body are recovered and captured as a failure; they never take
// down the worker.
func (f *Future) run() {
	if f.cancelFlag.Load() {
		f.settle(FutureCancelled, nil, ErrFutureCancelled)
		return
	}

	f.mu.Lock()
	if f.state.Terminal() {
		f.mu.Unlock()
		return
	}
	f.state = FutureRunning
	job := f.job
	f.mu.Unlock()

	var result *Cell
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = &PanicError{Payload: r}
			}
		}()
		result, err = job(f)
	}()

	switch {
	case errors.Is(err, ErrFutureCancelled):
		if result != nil {
			result.Release()
		}
		f.settle(FutureCancelled, nil, ErrFutureCancelled)
	case err != nil:
		if result != nil {
			result.Release()
		}
		f.settle(FutureFailed, nil, err)
	default:
		if result == nil {
			result = Absent
		}
		f.settle(FutureCompleted, result, nil)
	}
}

// Await blocks the calling thread until the future is terminal, then
// returns a freshly retained reference to the value for Completed, the
// original job error verbatim for Failed, or ErrFutureCancelled for
// Cancelled. On an already-terminal future it returns without blocking.
// Once the registry sweep has discarded a Completed future's result, Await
// returns Absent for it; never nil.
func (f *Future) Await() (*Cell, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for !f.state.Terminal() {
		f.cond.Wait()
	}
	switch f.state {
	case FutureCompleted:
		if f.result == nil {
			// result reclaimed by a registry sweep; the completion stands
			return Absent, nil
		}
		return f.result.Retain(), nil
	case FutureFailed:
		return Absent, f.err
	default:
		return Absent, ErrFutureCancelled
	}
}

// discardResult releases the future's own reference to its result. Called
// by the registry sweep once a terminal future is dropped.
func (f *Future) discardResult() {
	f.mu.Lock()
	r := f.result
	f.result = nil
	f.mu.Unlock()
	if r != nil {
		r.Release()
	}
}

// ---------------------------------------------------------------------------
// Combinators
// ---------------------------------------------------------------------------

// All blocks until every future is terminal and returns their values in
// input order. If any future failed or was cancelled, All waits for the
// remainder to settle anyway, then returns the error of the first such
// future in input order and no values.
func All(futs []*Future) ([]*Cell, error) {
	results := make([]*Cell, len(futs))
	var firstErr error
	for i, f := range futs {
		v, err := f.Await()
		if err != nil && firstErr == nil {
			firstErr = err
		}
		results[i] = v
	}
	if firstErr != nil {
		for _, v := range results {
			v.Release()
		}
		return nil, firstErr
	}
	return results, nil
}

// Race blocks until the first future reaches a terminal state, requests
// cancellation on all the others, and returns or fails based on that first
// future's outcome. The losers keep running until they observe their
// cancel flag.
func Race(futs []*Future) (*Cell, error) {
	if len(futs) == 0 {
		return Absent, nil
	}
	cases := make([]reflect.SelectCase, len(futs))
	for i, f := range futs {
		cases[i] = reflect.SelectCase{
			Dir:  reflect.SelectRecv,
			Chan: reflect.ValueOf(f.Done()),
		}
	}
	chosen, _, _ := reflect.Select(cases)
	for i, f := range futs {
		if i != chosen {
			f.Cancel()
		}
	}
	return futs[chosen].Await()
}

// Timeout behaves like Await when the future turns terminal within the
// window, and returns ErrFutureTimedOut otherwise. The underlying job is
// never cancelled by a timeout; it keeps running in the background and the
// future can still be awaited later.
func Timeout(f *Future, ms int64) (*Cell, error) {
	if f.IsDone() {
		return f.Await()
	}
	timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-f.Done():
		return f.Await()
	case <-timer.C:
		return Absent, ErrFutureTimedOut
	}
}

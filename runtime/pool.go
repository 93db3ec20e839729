package runtime

import (
	"sync"

	"github.com/tliron/commonlog"
)

// ---------------------------------------------------------------------------
// Pool: fixed worker set draining a FIFO job queue
// ---------------------------------------------------------------------------

// DefaultWorkers is the worker count used when the pool self-initializes
// on the first Spawn.
const DefaultWorkers = 4

var poolLog = commonlog.GetLogger("tern.runtime.pool")

// Pool executes jobs on a fixed set of OS-thread-backed workers. Jobs are
// taken in FIFO submission order; no fairness guarantee exists beyond
// that. Idle workers block on a condition variable, never spin.
//
// Most callers use the process-wide pool through InitPool, Spawn, and
// ShutdownPool; independent Pool instances exist for embedders and tests.
type Pool struct {
	mu       sync.Mutex
	cond     *sync.Cond
	queue    []*Future
	workers  int
	shutdown bool
	wg       sync.WaitGroup
}

// NewPool creates a pool and starts its workers. A worker count of zero or
// below means DefaultWorkers.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	p := &Pool{workers: workers}
	p.cond = sync.NewCond(&p.mu)
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	poolLog.Debugf("started %d workers", workers)
	return p
}

// worker is the run loop of one pool thread: block until a job is
// available, pop one, execute it, settle its future, repeat.
func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.shutdown {
			p.cond.Wait()
		}
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		fut := p.queue[0]
		p.queue[0] = nil
		p.queue = p.queue[1:]
		p.mu.Unlock()
		fut.run()
	}
}

// Submit enqueues a job and returns its Future immediately. After Shutdown
// it returns ErrPoolUnavailable.
func (p *Pool) Submit(job Job) (*Future, error) {
	fut := newFuture(job)
	p.mu.Lock()
	if p.shutdown {
		p.mu.Unlock()
		return nil, ErrPoolUnavailable
	}
	p.queue = append(p.queue, fut)
	p.cond.Signal()
	p.mu.Unlock()
	return fut, nil
}

// Shutdown signals every worker to exit after its current job and joins
// them. Jobs still queued and not yet started settle Cancelled, so a
// concurrent Await on one of their futures observes a terminal state
// rather than hanging. Idempotent.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.shutdown {
		p.mu.Unlock()
		p.wg.Wait()
		return
	}
	p.shutdown = true
	pending := p.queue
	p.queue = nil
	p.cond.Broadcast()
	p.mu.Unlock()

	for _, fut := range pending {
		fut.Cancel()
		fut.settle(FutureCancelled, nil, ErrFutureCancelled)
	}
	p.wg.Wait()
	poolLog.Debugf("shut down, %d queued jobs cancelled", len(pending))
}

// IsShutdown reports whether Shutdown has been called.
func (p *Pool) IsShutdown() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shutdown
}

// Workers returns the worker count.
func (p *Pool) Workers() int {
	return p.workers
}

// QueueLen returns the number of jobs waiting for a worker. Snapshot only.
func (p *Pool) QueueLen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// ---------------------------------------------------------------------------
// Process-wide pool
// ---------------------------------------------------------------------------

// The well-known pool: one per process, lazily created, explicitly shut
// down. All access goes through the functions below, never through the
// variable directly.
var (
	globalMu   sync.Mutex
	globalPool *Pool
)

// InitPool sizes and starts the process-wide pool. It must be called
// before the first Spawn if a non-default worker count is wanted; once
// workers have started it returns ErrPoolRunning and changes nothing.
// After ShutdownPool, InitPool starts a fresh pool.
func InitPool(workers int) error {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalPool != nil && !globalPool.IsShutdown() {
		return ErrPoolRunning
	}
	globalPool = NewPool(workers)
	return nil
}

// Spawn submits a job to the process-wide pool, starting it with
// DefaultWorkers if InitPool was never called. After ShutdownPool it
// returns ErrPoolUnavailable.
func Spawn(job Job) (*Future, error) {
	globalMu.Lock()
	if globalPool == nil {
		globalPool = NewPool(DefaultWorkers)
	}
	p := globalPool
	globalMu.Unlock()
	return p.Submit(job)
}

// ShutdownPool shuts down the process-wide pool. Safe to call with awaits
// in flight: their futures are already terminal or settle Cancelled. A
// Spawn after this returns ErrPoolUnavailable until InitPool is called
// again. No-op if the pool never started.
func ShutdownPool() {
	globalMu.Lock()
	p := globalPool
	globalMu.Unlock()
	if p != nil {
		p.Shutdown()
	}
}

package runtime

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/tliron/commonlog"
)

// ---------------------------------------------------------------------------
// Sweeper: periodic reclamation of terminal registry entries
// ---------------------------------------------------------------------------

var sweepLog = commonlog.GetLogger("tern.runtime.sweep")

// DefaultSweepInterval is the default interval between registry sweeps.
const DefaultSweepInterval = 30 * time.Second

// SweepStats holds the outcome of one sweep pass.
type SweepStats struct {
	Futures   int
	Channels  int
	WeakRefs  int
	Total     int
	Duration  time.Duration
	Timestamp time.Time
}

// Sweeper periodically sweeps a Registry, reclaiming entries for terminal
// futures, drained channels, and dead weak references. Long-running
// programs leak registry entries without it.
type Sweeper struct {
	reg      *Registry
	interval time.Duration
	stop     chan struct{}
	stopped  chan struct{}
	mu       sync.Mutex // protects start/stop lifecycle

	sweepCount atomic.Uint64
	lastStats  atomic.Value // *SweepStats
}

// NewSweeper creates a sweeper for the given registry. An interval of zero
// or below means DefaultSweepInterval.
func NewSweeper(reg *Registry, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		reg:      reg,
		interval: interval,
	}
}

// Start begins the periodic sweep goroutine. Safe to call more than once;
// only one sweep loop runs.
func (s *Sweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}
	s.stop = make(chan struct{})
	s.stopped = make(chan struct{})

	// Capture the channels locally so the loop never reads fields that
	// Stop has nilled out.
	stopCh := s.stop
	stoppedCh := s.stopped
	go s.loop(stopCh, stoppedCh)
}

// Stop halts the sweep goroutine and waits for it to finish. Safe to call
// more than once, or on a sweeper that was never started.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop == nil {
		return
	}
	close(s.stop)
	<-s.stopped
	s.stop = nil
	s.stopped = nil
}

func (s *Sweeper) loop(stopCh, stoppedCh chan struct{}) {
	defer close(stoppedCh)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.SweepNow()
		case <-stopCh:
			return
		}
	}
}

// SweepNow performs one sweep pass immediately and records its stats.
func (s *Sweeper) SweepNow() SweepStats {
	start := time.Now()
	futures, channels, weakRefs := s.reg.Sweep()
	stats := SweepStats{
		Futures:   futures,
		Channels:  channels,
		WeakRefs:  weakRefs,
		Total:     futures + channels + weakRefs,
		Duration:  time.Since(start),
		Timestamp: start,
	}
	s.sweepCount.Add(1)
	s.lastStats.Store(&stats)
	if stats.Total > 0 {
		sweepLog.Debugf("swept %d futures, %d channels, %d weak refs in %s",
			futures, channels, weakRefs, stats.Duration)
	}
	return stats
}

// SweepCount returns the number of sweep passes performed.
func (s *Sweeper) SweepCount() uint64 {
	return s.sweepCount.Load()
}

// LastStats returns the stats of the most recent sweep, or nil if none has
// run yet.
func (s *Sweeper) LastStats() *SweepStats {
	stats, _ := s.lastStats.Load().(*SweepStats)
	return stats
}

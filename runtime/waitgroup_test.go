package runtime

import (
	"sync/atomic"
	"testing"
)

func TestWaitGroupJoinsAllJobs(t *testing.T) {
	const numJobs = 8
	wg := NewWaitGroup()
	var finished atomic.Int32

	wg.Add(numJobs)
	for i := 0; i < numJobs; i++ {
		go func() {
			finished.Add(1)
			wg.Done()
		}()
	}
	wg.Wait()

	if got := finished.Load(); got != numJobs {
		t.Errorf("finished = %d, want %d", got, numJobs)
	}
	if got := wg.Count(); got != 0 {
		t.Errorf("Count after Wait = %d, want 0", got)
	}
}

func TestWaitGroupCountTracksAddDone(t *testing.T) {
	wg := NewWaitGroup()
	wg.Add(3)
	if got := wg.Count(); got != 3 {
		t.Errorf("Count after Add(3) = %d, want 3", got)
	}
	wg.Done()
	if got := wg.Count(); got != 2 {
		t.Errorf("Count after Done = %d, want 2", got)
	}
	wg.Done()
	wg.Done()
	wg.Wait() // returns immediately at zero
}

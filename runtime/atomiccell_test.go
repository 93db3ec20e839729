package runtime

import (
	"sync"
	"testing"
)

func TestAtomicLoadStore(t *testing.T) {
	a := NewAtomicCell(10)
	if got := a.Load(); got != 10 {
		t.Errorf("Load = %d, want 10", got)
	}
	a.Store(-3)
	if got := a.Load(); got != -3 {
		t.Errorf("Load after Store = %d, want -3", got)
	}
}

func TestAtomicAddSubReturnPriorValue(t *testing.T) {
	a := NewAtomicCell(10)
	if got := a.Add(5); got != 10 {
		t.Errorf("Add returned %d, want prior value 10", got)
	}
	if got := a.Load(); got != 15 {
		t.Errorf("value after Add = %d, want 15", got)
	}
	if got := a.Sub(3); got != 15 {
		t.Errorf("Sub returned %d, want prior value 15", got)
	}
	if got := a.Load(); got != 12 {
		t.Errorf("value after Sub = %d, want 12", got)
	}
}

func TestAtomicIncDecReturnNewValue(t *testing.T) {
	a := NewAtomicCell(0)
	if got := a.Inc(); got != 1 {
		t.Errorf("Inc returned %d, want new value 1", got)
	}
	if got := a.Dec(); got != 0 {
		t.Errorf("Dec returned %d, want new value 0", got)
	}
}

func TestAtomicCAS(t *testing.T) {
	a := NewAtomicCell(10)
	if !a.CAS(10, 20) {
		t.Error("CAS(10, 20) should succeed")
	}
	if got := a.Load(); got != 20 {
		t.Errorf("value after CAS = %d, want 20", got)
	}
	if a.CAS(10, 30) {
		t.Error("repeated CAS(10, 30) should fail")
	}
	if got := a.Load(); got != 20 {
		t.Errorf("value after failed CAS = %d, want 20", got)
	}
}

func TestAtomicConcurrentInc(t *testing.T) {
	const numGoroutines = 8
	const opsPerGoroutine = 1000

	a := NewAtomicCell(0)
	var wg sync.WaitGroup
	for g := 0; g < numGoroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < opsPerGoroutine; i++ {
				a.Inc()
			}
		}()
	}
	wg.Wait()

	want := int64(numGoroutines * opsPerGoroutine)
	if got := a.Load(); got != want {
		t.Errorf("counter = %d, want %d", got, want)
	}
}

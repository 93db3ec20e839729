package runtime

import (
	"sync"
	"testing"
)

func TestCellStartsWithOneReference(t *testing.T) {
	c := NewInt(42)
	if got := c.Refs(); got != 1 {
		t.Errorf("new cell refs = %d, want 1", got)
	}
	if got := c.Int(); got != 42 {
		t.Errorf("Int = %d, want 42", got)
	}
	c.Release()
	if c.Alive() {
		t.Error("cell should be dead after releasing the only reference")
	}
}

func TestRetainReleaseBalanced(t *testing.T) {
	c := NewText("hello")
	for i := 0; i < 10; i++ {
		c.Retain()
	}
	for i := 0; i < 10; i++ {
		c.Release()
		if !c.Alive() {
			t.Fatalf("cell died early, after %d of 10 releases", i+1)
		}
	}
	c.Release() // the creation reference
	if c.Alive() {
		t.Error("cell should be dead after the balancing release")
	}
}

func TestReleaseFreesExactlyOnce(t *testing.T) {
	c := NewInt(1)
	freed := 0
	Weaken(c).SetFinalizer(func(*Cell) { freed++ })

	c.Retain()
	c.Release()
	c.Release()
	if freed != 1 {
		t.Errorf("finalizer ran %d times, want 1", freed)
	}
}

func TestUnbalancedReleasePanics(t *testing.T) {
	c := NewInt(1)
	c.Release()

	defer func() {
		if recover() == nil {
			t.Error("release of a dead cell should panic")
		}
	}()
	c.Release()
}

func TestRetainDeadCellPanics(t *testing.T) {
	c := NewInt(1)
	c.Release()

	defer func() {
		if recover() == nil {
			t.Error("retain of a dead cell should panic")
		}
	}()
	c.Retain()
}

func TestConcurrentRetainRelease(t *testing.T) {
	const numGoroutines = 10
	const opsPerGoroutine = 1000

	c := NewInt(7)
	var wg sync.WaitGroup
	for g := 0; g < numGoroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < opsPerGoroutine; i++ {
				c.Retain()
				c.Release()
			}
		}()
	}
	wg.Wait()

	if got := c.Refs(); got != 1 {
		t.Errorf("refs after balanced concurrent churn = %d, want 1", got)
	}
	c.Release()
	if c.Alive() {
		t.Error("cell should be dead")
	}
}

func TestSeqReleasesElements(t *testing.T) {
	a := NewInt(1)
	b := NewInt(2)
	seq := NewSeq(a, b) // takes ownership

	if seq.SeqLen() != 2 {
		t.Fatalf("SeqLen = %d, want 2", seq.SeqLen())
	}
	if seq.SeqAt(0).Int() != 1 || seq.SeqAt(1).Int() != 2 {
		t.Error("sequence elements out of order")
	}

	seq.Release()
	if a.Alive() || b.Alive() {
		t.Error("releasing the sequence should release its elements")
	}
}

func TestSeqElementSurvivesWhenRetained(t *testing.T) {
	a := NewInt(1)
	seq := NewSeq(a.Retain()) // seq owns one ref, we keep one

	seq.Release()
	if !a.Alive() {
		t.Fatal("element with an outside owner should survive the sequence")
	}
	a.Release()
}

func TestMapSetReleasesDisplacedValue(t *testing.T) {
	m := NewMap()
	old := NewInt(1)
	m.MapSet("k", old)
	m.MapSet("k", NewInt(2))

	if old.Alive() {
		t.Error("displaced map value should have been released")
	}
	if got := m.MapGet("k").Int(); got != 2 {
		t.Errorf("MapGet = %d, want 2", got)
	}
	if m.MapGet("missing") != Absent {
		t.Error("missing key should yield Absent")
	}
	m.Release()
}

func TestRefReleasesTarget(t *testing.T) {
	target := NewText("t")
	ref := NewRef(target)

	if ref.Ref() != target {
		t.Error("Ref should return the target")
	}
	ref.Release()
	if target.Alive() {
		t.Error("releasing the ref cell should release its target")
	}
}

func TestNestedReleaseCascades(t *testing.T) {
	leaf := NewInt(9)
	inner := NewSeq(leaf)
	outer := NewSeq(inner)

	outer.Release()
	if inner.Alive() || leaf.Alive() {
		t.Error("release should cascade through nested sequences")
	}
}

func TestAbsentIsPinned(t *testing.T) {
	Absent.Retain()
	Absent.Release()
	Absent.Release() // would panic on a normal cell
	if !Absent.Alive() {
		t.Error("Absent must never die")
	}
	if !Absent.IsUndefined() {
		t.Error("Absent should be undefined")
	}
}

func TestPayloadAccessorKindMismatchPanics(t *testing.T) {
	c := NewInt(1)
	defer c.Release()
	defer func() {
		if recover() == nil {
			t.Error("Text on an integer cell should panic")
		}
	}()
	_ = c.Text()
}

func TestClosureInvoke(t *testing.T) {
	c := NewClosure(func(args []*Cell) (*Cell, error) {
		return NewInt(args[0].Int() + 1), nil
	})
	defer c.Release()

	arg := NewInt(41)
	defer arg.Release()
	out, err := c.Invoke([]*Cell{arg})
	if err != nil {
		t.Fatalf("Invoke error: %v", err)
	}
	if got := out.Int(); got != 42 {
		t.Errorf("Invoke = %d, want 42", got)
	}
	out.Release()
}

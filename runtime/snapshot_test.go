package runtime

import (
	"bytes"
	"errors"
	"testing"
)

func TestSnapshotRoundTripMixedGraph(t *testing.T) {
	inner := NewSeq(NewInt(1), NewFloat(2.5), NewText("three"))
	m := NewMap()
	m.MapSet("items", inner)
	m.MapSet("name", NewText("demo"))
	root := NewRef(m)
	defer root.Release()

	data, err := EncodeSnapshot(root, 0)
	if err != nil {
		t.Fatalf("EncodeSnapshot failed: %v", err)
	}

	got, err := DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("DecodeSnapshot failed: %v", err)
	}
	defer got.Release()

	if got.Kind() != KindRef {
		t.Fatalf("root kind = %v, want ref", got.Kind())
	}
	gm := got.Ref()
	if gm.Kind() != KindMap || gm.MapLen() != 2 {
		t.Fatalf("map = kind %v len %d, want map of 2", gm.Kind(), gm.MapLen())
	}
	if name := gm.MapGet("name"); name.Text() != "demo" {
		t.Errorf("name = %q, want demo", name.Text())
	}
	seq := gm.MapGet("items")
	if seq.Kind() != KindSeq || seq.SeqLen() != 3 {
		t.Fatalf("items = kind %v len %d, want seq of 3", seq.Kind(), seq.SeqLen())
	}
	if got := seq.SeqAt(0).Int(); got != 1 {
		t.Errorf("items[0] = %d, want 1", got)
	}
	if got := seq.SeqAt(1).Float(); got != 2.5 {
		t.Errorf("items[1] = %v, want 2.5", got)
	}
	if got := seq.SeqAt(2).Text(); got != "three" {
		t.Errorf("items[2] = %q, want three", got)
	}
}

func TestSnapshotCanonicalEncodingIsStable(t *testing.T) {
	m := NewMap()
	m.MapSet("b", NewInt(2))
	m.MapSet("a", NewInt(1))
	m.MapSet("c", NewInt(3))
	defer m.Release()

	first, err := EncodeSnapshot(m, 0)
	if err != nil {
		t.Fatalf("EncodeSnapshot failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := EncodeSnapshot(m, 0)
		if err != nil {
			t.Fatalf("EncodeSnapshot %d failed: %v", i, err)
		}
		if !bytes.Equal(first, again) {
			t.Fatal("canonical encoding differed between runs")
		}
	}
}

func TestSnapshotDepthLimit(t *testing.T) {
	// A chain of refs deeper than the limit.
	root := NewInt(0)
	for i := 0; i < 10; i++ {
		root = NewRef(root)
	}
	defer root.Release()

	if _, err := EncodeSnapshot(root, 5); !errors.Is(err, ErrSnapshotDepth) {
		t.Errorf("EncodeSnapshot with shallow limit = %v, want ErrSnapshotDepth", err)
	}
	if _, err := EncodeSnapshot(root, 20); err != nil {
		t.Errorf("EncodeSnapshot with ample limit failed: %v", err)
	}
}

func TestSnapshotStrongCycleSurfacesAsDepthError(t *testing.T) {
	seq := NewSeq()
	seq.SeqAppend(seq.Retain())

	_, err := EncodeSnapshot(seq, 0)
	if !errors.Is(err, ErrSnapshotDepth) {
		t.Errorf("EncodeSnapshot of a cycle = %v, want ErrSnapshotDepth", err)
	}

	// Break the cycle by hand before releasing.
	inner := seq.SeqAt(0)
	seq.seqVal = nil
	inner.Release()
	seq.Release()
}

func TestSnapshotClosureAndHandleAreOpaque(t *testing.T) {
	seq := NewSeq(
		NewClosure(func(args []*Cell) (*Cell, error) { return Absent, nil }),
		NewHandleCell(Handle(0x01000001)),
		NewInt(9),
	)
	defer seq.Release()

	data, err := EncodeSnapshot(seq, 0)
	if err != nil {
		t.Fatalf("EncodeSnapshot failed: %v", err)
	}
	got, err := DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("DecodeSnapshot failed: %v", err)
	}
	defer got.Release()

	if got.SeqLen() != 3 {
		t.Fatalf("SeqLen = %d, want 3", got.SeqLen())
	}
	if !got.SeqAt(0).IsUndefined() {
		t.Error("closure should decode to an undefined cell")
	}
	if !got.SeqAt(1).IsUndefined() {
		t.Error("handle should decode to an undefined cell")
	}
	if got.SeqAt(2).Int() != 9 {
		t.Error("plain values around opaque nodes must survive")
	}
}

func TestSnapshotUndefinedRoot(t *testing.T) {
	data, err := EncodeSnapshot(Absent, 0)
	if err != nil {
		t.Fatalf("EncodeSnapshot(Absent) failed: %v", err)
	}
	got, err := DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("DecodeSnapshot failed: %v", err)
	}
	if !got.IsUndefined() {
		t.Errorf("decoded kind = %v, want undefined", got.Kind())
	}
	got.Release()
}

func TestSnapshotRejectsGarbage(t *testing.T) {
	if _, err := DecodeSnapshot([]byte{0xFF, 0x00, 0x13, 0x37}); err == nil {
		t.Error("DecodeSnapshot of garbage bytes should fail")
	}
}

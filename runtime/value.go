package runtime

import (
	"sync"
	"sync/atomic"
)

// Kind is the type discriminant of a Cell.
type Kind uint8

const (
	KindUndefined Kind = iota
	KindInt
	KindFloat
	KindText
	KindSeq
	KindMap
	KindRef
	KindClosure
	KindHandle
)

func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindText:
		return "text"
	case KindSeq:
		return "seq"
	case KindMap:
		return "map"
	case KindRef:
		return "ref"
	case KindClosure:
		return "closure"
	case KindHandle:
		return "handle"
	default:
		return "invalid"
	}
}

// Closure is the payload of a closure cell: a compiled function body bound
// to its captures. Arguments are borrowed; the returned cell is owned by
// the caller.
type Closure func(args []*Cell) (*Cell, error)

// ---------------------------------------------------------------------------
// Cell: the reference-counted container for every Tern runtime value
// ---------------------------------------------------------------------------

// Cell holds one runtime value: a kind, a kind-dependent payload, and an
// atomic strong-reference count. The count starts at 1 at creation; every
// new owner calls Retain, every departing owner calls Release, and the cell
// dies exactly once, when the count reaches zero.
//
// The count may be mutated from any thread without external locking. The
// payload may not: callers sharing a Seq or Map cell across threads must
// serialize payload mutation themselves, typically with a Mutex.
type Cell struct {
	kind   Kind
	refs   atomic.Int32
	pinned bool // process-lifetime sentinel, Retain/Release are no-ops

	intVal    int64
	floatVal  float64
	textVal   string
	seqVal    []*Cell
	mapVal    map[string]*Cell
	refVal    *Cell
	closure   Closure
	handleVal Handle

	weakMu sync.Mutex
	weak   *WeakRef
}

// Absent is the shared "no value" sentinel. It is pinned: it never dies,
// and Retain/Release on it are no-ops. Recv on a closed, drained channel
// and Resolve on a dead weak reference both yield Absent.
var Absent = &Cell{kind: KindUndefined, pinned: true}

func newCell(kind Kind) *Cell {
	c := &Cell{kind: kind}
	c.refs.Store(1)
	return c
}

// NewInt creates an integer cell with one reference.
func NewInt(n int64) *Cell {
	c := newCell(KindInt)
	c.intVal = n
	return c
}

// NewFloat creates a float cell with one reference.
func NewFloat(f float64) *Cell {
	c := newCell(KindFloat)
	c.floatVal = f
	return c
}

// NewText creates a text cell with one reference.
func NewText(s string) *Cell {
	c := newCell(KindText)
	c.textVal = s
	return c
}

// NewSeq creates a sequence cell with one reference. The cell takes
// ownership of one reference to each element.
func NewSeq(elems ...*Cell) *Cell {
	c := newCell(KindSeq)
	c.seqVal = append([]*Cell(nil), elems...)
	return c
}

// NewMap creates an empty mapping cell with one reference.
func NewMap() *Cell {
	c := newCell(KindMap)
	c.mapVal = make(map[string]*Cell)
	return c
}

// NewRef creates a reference cell pointing at target. The cell takes
// ownership of one reference to the target; this is the strong edge of an
// ownership relation. Back-edges should use Weaken instead, so that cycles
// can be broken.
func NewRef(target *Cell) *Cell {
	c := newCell(KindRef)
	c.refVal = target
	return c
}

// NewClosure creates a closure cell with one reference.
func NewClosure(fn Closure) *Cell {
	c := newCell(KindClosure)
	c.closure = fn
	return c
}

// NewHandleCell creates an opaque-handle cell with one reference. The
// handle addresses a runtime object through the Registry.
func NewHandleCell(h Handle) *Cell {
	c := newCell(KindHandle)
	c.handleVal = h
	return c
}

// ---------------------------------------------------------------------------
// Ownership
// ---------------------------------------------------------------------------

// Retain increments the strong count and returns the same cell.
// Retaining a dead cell is a fatal misuse.
func (c *Cell) Retain() *Cell {
	if c == nil || c.pinned {
		return c
	}
	if c.refs.Add(1) <= 1 {
		panic("runtime: Cell.Retain on a dead cell")
	}
	return c
}

// Release decrements the strong count. When the count reaches zero the cell
// recursively releases every cell its payload owns, clears its weak
// observer, and dies. Releasing more times than retained is a fatal misuse.
func (c *Cell) Release() {
	if c == nil || c.pinned {
		return
	}
	n := c.refs.Add(-1)
	if n > 0 {
		return
	}
	if n < 0 {
		panic("runtime: Cell.Release on a dead cell (unbalanced release)")
	}
	c.die()
}

// die tears down a cell whose count has just reached zero. The weak
// observer is severed first so no resolver can see a dying payload.
func (c *Cell) die() {
	c.weakMu.Lock()
	wr := c.weak
	c.weak = nil
	c.weakMu.Unlock()

	var finalize func(*Cell)
	if wr != nil {
		finalize = wr.sever()
	}

	switch c.kind {
	case KindSeq:
		for _, e := range c.seqVal {
			e.Release()
		}
		c.seqVal = nil
	case KindMap:
		for _, v := range c.mapVal {
			v.Release()
		}
		c.mapVal = nil
	case KindRef:
		if c.refVal != nil {
			c.refVal.Release()
			c.refVal = nil
		}
	}
	c.textVal = ""
	c.closure = nil

	if finalize != nil {
		finalize(c)
	}
}

// tryRetain increments the count only if the cell is still alive. Used by
// weak-reference resolution: a cell whose count has reached zero is never
// resurrected.
func (c *Cell) tryRetain() bool {
	if c.pinned {
		return true
	}
	for {
		n := c.refs.Load()
		if n <= 0 {
			return false
		}
		if c.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// Refs returns the current strong count. Snapshot only; by the time the
// caller looks at it another thread may have changed it.
func (c *Cell) Refs() int32 {
	return c.refs.Load()
}

// Alive reports whether the cell has not died yet.
func (c *Cell) Alive() bool {
	return c.pinned || c.refs.Load() > 0
}

// ---------------------------------------------------------------------------
// Payload access
// ---------------------------------------------------------------------------

// Kind returns the type discriminant.
func (c *Cell) Kind() Kind {
	return c.kind
}

// IsUndefined reports whether c is an undefined cell (including Absent).
func (c *Cell) IsUndefined() bool {
	return c.kind == KindUndefined
}

// Int returns the integer payload.
// Panics if c is not an integer cell.
func (c *Cell) Int() int64 {
	if c.kind != KindInt {
		panic("runtime: Cell.Int: not an integer cell")
	}
	return c.intVal
}

// Float returns the float payload.
// Panics if c is not a float cell.
func (c *Cell) Float() float64 {
	if c.kind != KindFloat {
		panic("runtime: Cell.Float: not a float cell")
	}
	return c.floatVal
}

// Text returns the text payload.
// Panics if c is not a text cell.
func (c *Cell) Text() string {
	if c.kind != KindText {
		panic("runtime: Cell.Text: not a text cell")
	}
	return c.textVal
}

// SeqLen returns the element count of a sequence cell.
func (c *Cell) SeqLen() int {
	if c.kind != KindSeq {
		panic("runtime: Cell.SeqLen: not a sequence cell")
	}
	return len(c.seqVal)
}

// SeqAt returns the element at index i, borrowed. The caller retains it if
// it needs to outlive the sequence.
func (c *Cell) SeqAt(i int) *Cell {
	if c.kind != KindSeq {
		panic("runtime: Cell.SeqAt: not a sequence cell")
	}
	return c.seqVal[i]
}

// SeqAppend appends an element, taking ownership of one reference to it.
// Not synchronized; see the Cell doc comment.
func (c *Cell) SeqAppend(e *Cell) {
	if c.kind != KindSeq {
		panic("runtime: Cell.SeqAppend: not a sequence cell")
	}
	c.seqVal = append(c.seqVal, e)
}

// MapGet returns the value for key, borrowed, or Absent if missing.
func (c *Cell) MapGet(key string) *Cell {
	if c.kind != KindMap {
		panic("runtime: Cell.MapGet: not a mapping cell")
	}
	if v, ok := c.mapVal[key]; ok {
		return v
	}
	return Absent
}

// MapSet stores a value for key, taking ownership of one reference to it
// and releasing any value it displaces. Not synchronized.
func (c *Cell) MapSet(key string, v *Cell) {
	if c.kind != KindMap {
		panic("runtime: Cell.MapSet: not a mapping cell")
	}
	if old, ok := c.mapVal[key]; ok {
		old.Release()
	}
	c.mapVal[key] = v
}

// MapLen returns the entry count of a mapping cell.
func (c *Cell) MapLen() int {
	if c.kind != KindMap {
		panic("runtime: Cell.MapLen: not a mapping cell")
	}
	return len(c.mapVal)
}

// MapKeys returns the keys of a mapping cell in unspecified order.
func (c *Cell) MapKeys() []string {
	if c.kind != KindMap {
		panic("runtime: Cell.MapKeys: not a mapping cell")
	}
	keys := make([]string, 0, len(c.mapVal))
	for k := range c.mapVal {
		keys = append(keys, k)
	}
	return keys
}

// Ref returns the referenced cell, borrowed.
// Panics if c is not a reference cell.
func (c *Cell) Ref() *Cell {
	if c.kind != KindRef {
		panic("runtime: Cell.Ref: not a reference cell")
	}
	return c.refVal
}

// Invoke calls the closure payload.
// Panics if c is not a closure cell.
func (c *Cell) Invoke(args []*Cell) (*Cell, error) {
	if c.kind != KindClosure {
		panic("runtime: Cell.Invoke: not a closure cell")
	}
	return c.closure(args)
}

// HandleID returns the opaque handle payload.
// Panics if c is not a handle cell.
func (c *Cell) HandleID() Handle {
	if c.kind != KindHandle {
		panic("runtime: Cell.HandleID: not a handle cell")
	}
	return c.handleVal
}

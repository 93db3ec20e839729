package runtime

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// ---------------------------------------------------------------------------
// Snapshot: canonical CBOR encoding of a value graph
// ---------------------------------------------------------------------------

// Snapshots serialize a cell graph for debug dumps and crash reports.
// Closure and handle payloads are process-local and encode as bare kind
// markers; they decode to undefined cells.

// DefaultSnapshotDepth is the default recursion limit for EncodeSnapshot.
const DefaultSnapshotDepth = 64

// ErrSnapshotDepth is returned when a value graph is deeper than the
// requested limit, which is how a strong reference cycle surfaces.
var ErrSnapshotDepth = errors.New("snapshot depth limit exceeded")

var snapshotEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("runtime: failed to create CBOR enc mode: %v", err))
	}
	snapshotEncMode = em
}

type snapshotNode struct {
	Kind  uint8                    `cbor:"k"`
	Int   int64                    `cbor:"i,omitempty"`
	Float float64                  `cbor:"f,omitempty"`
	Text  string                   `cbor:"t,omitempty"`
	Seq   []*snapshotNode          `cbor:"s,omitempty"`
	Map   map[string]*snapshotNode `cbor:"m,omitempty"`
	Ref   *snapshotNode            `cbor:"r,omitempty"`
}

// EncodeSnapshot serializes the graph rooted at c to canonical CBOR.
// Recursion stops at maxDepth (DefaultSnapshotDepth when <= 0) with
// ErrSnapshotDepth; a graph with a strong cycle cannot be snapshotted.
func EncodeSnapshot(c *Cell, maxDepth int) ([]byte, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultSnapshotDepth
	}
	node, err := buildNode(c, maxDepth)
	if err != nil {
		return nil, err
	}
	return snapshotEncMode.Marshal(node)
}

func buildNode(c *Cell, depth int) (*snapshotNode, error) {
	if c == nil {
		return &snapshotNode{Kind: uint8(KindUndefined)}, nil
	}
	if depth <= 0 {
		return nil, ErrSnapshotDepth
	}
	n := &snapshotNode{Kind: uint8(c.kind)}
	switch c.kind {
	case KindInt:
		n.Int = c.intVal
	case KindFloat:
		n.Float = c.floatVal
	case KindText:
		n.Text = c.textVal
	case KindSeq:
		n.Seq = make([]*snapshotNode, len(c.seqVal))
		for i, e := range c.seqVal {
			child, err := buildNode(e, depth-1)
			if err != nil {
				return nil, err
			}
			n.Seq[i] = child
		}
	case KindMap:
		n.Map = make(map[string]*snapshotNode, len(c.mapVal))
		for k, v := range c.mapVal {
			child, err := buildNode(v, depth-1)
			if err != nil {
				return nil, err
			}
			n.Map[k] = child
		}
	case KindRef:
		child, err := buildNode(c.refVal, depth-1)
		if err != nil {
			return nil, err
		}
		n.Ref = child
	case KindClosure, KindHandle:
		// process-local payloads: kind marker only
	}
	return n, nil
}

// DecodeSnapshot deserializes CBOR produced by EncodeSnapshot into a fresh
// cell graph. The caller owns one reference to the returned root; closure
// and handle nodes decode to Absent.
func DecodeSnapshot(data []byte) (*Cell, error) {
	var node snapshotNode
	if err := cbor.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("runtime: unmarshal snapshot: %w", err)
	}
	return buildCell(&node), nil
}

func buildCell(n *snapshotNode) *Cell {
	if n == nil {
		return Absent
	}
	switch Kind(n.Kind) {
	case KindInt:
		return NewInt(n.Int)
	case KindFloat:
		return NewFloat(n.Float)
	case KindText:
		return NewText(n.Text)
	case KindSeq:
		elems := make([]*Cell, len(n.Seq))
		for i, child := range n.Seq {
			elems[i] = buildCell(child)
		}
		return NewSeq(elems...)
	case KindMap:
		m := NewMap()
		for k, child := range n.Map {
			m.MapSet(k, buildCell(child))
		}
		return m
	case KindRef:
		return NewRef(buildCell(n.Ref))
	default:
		return Absent
	}
}

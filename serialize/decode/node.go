// Package decode parses a binary blob into a forest of tagged data nodes,
// one tree per instance frame. Parsing is purely local to each frame, so
// the frames are handed to the worker pool and parsed in parallel; a
// malformed frame yields a nil entry in the forest and a logged error
// without disturbing its siblings.
//
// The node tree is the intermediate representation between raw bytes and
// user objects. The materializer consumes it; nodes do not outlive one
// decode call.
package decode

import (
	"math"

	"github.com/elekiengine/elekicore/serialize/wire"
)

// Node is one tagged value. Kind selects which payload fields are
// meaningful:
//
//	scalar signs     Bits (raw, width per sign)
//	TRUE/FALSE/NIL   nothing
//	REFERENCE        Index, or Name when Outside
//	ARRAY            Items
//	STRUCT           Fields (key order is not semantic)
//	STRING           Str
//	BINARY           Blob
type Node struct {
	Kind wire.Sign

	Bits    uint64
	Str     string
	Blob    []byte
	Index   uint32
	Outside bool
	Name    string
	Items   []*Node
	Fields  map[string]*Node
}

// Int returns the scalar payload sign-extended to int64. Zero for
// non-scalar nodes.
func (n *Node) Int() int64 {
	switch n.Kind {
	case wire.SignI8:
		return int64(int8(n.Bits))
	case wire.SignI16:
		return int64(int16(n.Bits))
	case wire.SignI32:
		return int64(int32(n.Bits))
	case wire.SignI64:
		return int64(n.Bits)
	case wire.SignU8, wire.SignU16, wire.SignU32, wire.SignU64, wire.SignChar:
		return int64(n.Bits)
	}
	return 0
}

// Uint returns the scalar payload zero-extended to uint64.
func (n *Node) Uint() uint64 {
	switch n.Kind {
	case wire.SignI8:
		return uint64(uint8(n.Bits))
	case wire.SignI16:
		return uint64(uint16(n.Bits))
	case wire.SignI32:
		return uint64(uint32(n.Bits))
	default:
		return n.Bits
	}
}

// Float returns the floating-point payload. Integer scalars convert.
func (n *Node) Float() float64 {
	switch n.Kind {
	case wire.SignF32:
		return float64(math.Float32frombits(uint32(n.Bits)))
	case wire.SignF64:
		return math.Float64frombits(n.Bits)
	case wire.SignI8, wire.SignI16, wire.SignI32, wire.SignI64:
		return float64(n.Int())
	case wire.SignU8, wire.SignU16, wire.SignU32, wire.SignU64, wire.SignChar:
		return float64(n.Bits)
	}
	return 0
}

// Bool returns the Boolean payload; ok is false for non-Boolean nodes.
func (n *Node) Bool() (value, ok bool) {
	switch n.Kind {
	case wire.SignTrue:
		return true, true
	case wire.SignFalse:
		return false, true
	}
	return false, false
}

// IsNil reports whether the node is the NIL value.
func (n *Node) IsNil() bool { return n.Kind == wire.SignNil }

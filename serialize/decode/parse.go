package decode

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/elekiengine/elekicore/internal/buf"
	"github.com/elekiengine/elekicore/serialize/wire"
)

// ErrMalformedInstance tags per-instance parse failures. The failure is
// isolated: the instance's slot in the forest is nil and the other
// instances are unaffected.
var ErrMalformedInstance = errors.New("decode: malformed instance")

// parsePayload parses exactly one tagged value spanning the whole slice.
// Trailing bytes after the value are malformed: a frame holds one value
// and its size prefix delimits it exactly.
func parsePayload(data []byte) (*Node, error) {
	n, pos, err := parseValue(data, 0)
	if err != nil {
		return nil, err
	}
	if pos != len(data) {
		return nil, fmt.Errorf("%d trailing bytes after value", len(data)-pos)
	}
	return n, nil
}

// parseValue parses the tagged value starting at pos and returns the node
// and the position one past it.
func parseValue(data []byte, pos int) (*Node, int, error) {
	if pos >= len(data) {
		return nil, 0, fmt.Errorf("truncated at %d: want a tag", pos)
	}
	sign := wire.Sign(data[pos])
	pos++

	switch {
	case wire.IsScalar(sign):
		return parseScalar(data, pos, sign)

	case sign == wire.SignTrue || sign == wire.SignFalse || sign == wire.SignNil:
		return &Node{Kind: sign}, pos, nil

	case sign == wire.SignReference:
		return parseReference(data, pos)

	case sign == wire.SignArray:
		return parseArray(data, pos)

	case sign == wire.SignStruct:
		return parseStruct(data, pos)

	case sign == wire.SignString:
		n, pos, err := parseString(data, pos)
		if err != nil {
			return nil, 0, err
		}
		return n, pos, nil

	case sign == wire.SignBinary:
		return parseBinary(data, pos)

	default:
		return nil, 0, fmt.Errorf("unknown tag %d at %d", byte(sign), pos-1)
	}
}

func parseScalar(data []byte, pos int, sign wire.Sign) (*Node, int, error) {
	size := wire.ScalarSize(sign)
	end, err := buf.CheckSlice(len(data), pos, size)
	if err != nil {
		return nil, 0, fmt.Errorf("truncated %v at %d: %w", sign, pos, err)
	}
	bits, ok := wire.ReadScalar(data[pos:], size)
	if !ok {
		return nil, 0, fmt.Errorf("truncated %v at %d", sign, pos)
	}
	return &Node{Kind: sign, Bits: bits}, end, nil
}

// parseReference parses the payload after a REFERENCE tag: either a
// U32-tagged instance index or a STRING-tagged external name.
func parseReference(data []byte, pos int) (*Node, int, error) {
	if pos >= len(data) {
		return nil, 0, fmt.Errorf("truncated REFERENCE at %d", pos)
	}
	inner := wire.Sign(data[pos])
	pos++
	switch inner {
	case wire.SignU32:
		end, err := buf.CheckSlice(len(data), pos, 4)
		if err != nil {
			return nil, 0, fmt.Errorf("truncated REFERENCE index at %d: %w", pos, err)
		}
		idx, _ := wire.ReadU32(data[pos:])
		return &Node{Kind: wire.SignReference, Index: idx}, end, nil

	case wire.SignString:
		n, pos, err := parseString(data, pos)
		if err != nil {
			return nil, 0, fmt.Errorf("REFERENCE name: %w", err)
		}
		return &Node{Kind: wire.SignReference, Outside: true, Name: n.Str}, pos, nil

	default:
		return nil, 0, fmt.Errorf("REFERENCE payload has tag %v at %d", inner, pos-1)
	}
}

func parseArray(data []byte, pos int) (*Node, int, error) {
	n := &Node{Kind: wire.SignArray}
	for {
		if pos >= len(data) {
			return nil, 0, fmt.Errorf("unterminated ARRAY at %d", pos)
		}
		if wire.Sign(data[pos]) == wire.SignEnd {
			return n, pos + 1, nil
		}
		item, next, err := parseValue(data, pos)
		if err != nil {
			return nil, 0, err
		}
		n.Items = append(n.Items, item)
		pos = next
	}
}

// parseStruct reads (STRING value) pairs until END. Keys land in a map, so
// any key order decodes identically.
func parseStruct(data []byte, pos int) (*Node, int, error) {
	n := &Node{Kind: wire.SignStruct, Fields: make(map[string]*Node)}
	for {
		if pos >= len(data) {
			return nil, 0, fmt.Errorf("unterminated STRUCT at %d", pos)
		}
		if wire.Sign(data[pos]) == wire.SignEnd {
			return n, pos + 1, nil
		}
		if wire.Sign(data[pos]) != wire.SignString {
			return nil, 0, fmt.Errorf("STRUCT key has tag %v at %d", wire.Sign(data[pos]), pos)
		}
		key, next, err := parseString(data, pos+1)
		if err != nil {
			return nil, 0, fmt.Errorf("STRUCT key: %w", err)
		}
		value, next, err := parseValue(data, next)
		if err != nil {
			return nil, 0, err
		}
		n.Fields[key.Str] = value
		pos = next
	}
}

// parseString reads UTF-8 bytes up to the END terminator. pos is the first
// payload byte, after the STRING tag.
func parseString(data []byte, pos int) (*Node, int, error) {
	start := pos
	for pos < len(data) {
		if data[pos] == byte(wire.SignEnd) {
			s := string(data[start:pos])
			if !utf8.ValidString(s) {
				return nil, 0, fmt.Errorf("STRING at %d is not valid UTF-8", start)
			}
			return &Node{Kind: wire.SignString, Str: s}, pos + 1, nil
		}
		pos++
	}
	return nil, 0, fmt.Errorf("unterminated STRING at %d", start)
}

// parseBinary reads (u32 size, bytes) chunks until END. A chunk size that
// overruns the frame is inconsistent chunking and fails the instance. After
// the first chunk, a zero byte where the next size would start is read as
// END, so a later chunk whose size has a zero low byte cannot be told apart
// from the terminator.
func parseBinary(data []byte, pos int) (*Node, int, error) {
	n := &Node{Kind: wire.SignBinary}
	for chunk := 0; ; chunk++ {
		if pos >= len(data) {
			return nil, 0, fmt.Errorf("unterminated BINARY at %d", pos)
		}
		if chunk > 0 && wire.Sign(data[pos]) == wire.SignEnd {
			return n, pos + 1, nil
		}
		end, err := buf.CheckSlice(len(data), pos, 4)
		if err != nil {
			return nil, 0, fmt.Errorf("BINARY chunk %d size at %d: %w", chunk, pos, err)
		}
		size, _ := wire.ReadU32(data[pos:])
		pos = end
		end, err = buf.CheckSlice(len(data), pos, int(size))
		if err != nil {
			return nil, 0, fmt.Errorf("BINARY chunk %d (%d bytes) at %d: %w", chunk, size, pos, err)
		}
		n.Blob = append(n.Blob, data[pos:end]...)
		pos = end
	}
}

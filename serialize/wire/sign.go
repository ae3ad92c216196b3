// Package wire defines the binary format: the header, the tag-byte
// vocabulary, the numeric wire order, and the allocator-backed byte buffer
// the encoder emits into.
//
// A blob is a 16-byte header followed by a sequence of instance frames.
// Each frame is a u32 payload size followed by exactly one tagged value.
// Frame 0 holds the root; REFERENCE values cite other frames by index or
// name objects supplied out of band.
package wire

import "fmt"

// Sign is the one-byte tag that precedes every value in a payload.
type Sign byte

const (
	SignEnd Sign = 0 // closes ARRAY, STRUCT, STRING, and BINARY

	SignI8   Sign = 1  // 1 payload byte
	SignU8   Sign = 2  // 1 payload byte
	SignI16  Sign = 3  // 2 payload bytes
	SignU16  Sign = 4  // 2 payload bytes
	SignI32  Sign = 5  // 4 payload bytes
	SignU32  Sign = 6  // 4 payload bytes
	SignI64  Sign = 7  // 8 payload bytes
	SignU64  Sign = 8  // 8 payload bytes
	SignF32  Sign = 9  // 4 payload bytes
	SignF64  Sign = 10 // 8 payload bytes
	SignChar Sign = 11 // 1 payload byte

	SignTrue  Sign = 32
	SignFalse Sign = 33
	SignNil   Sign = 34

	SignReference Sign = 64 // U32 instance index, or STRING external name
	SignArray     Sign = 65 // values until END
	SignStruct    Sign = 66 // (STRING value) pairs until END

	SignString Sign = 128 // UTF-8 bytes until END
	SignBinary Sign = 129 // repeated (u32 size, bytes) chunks until END
)

// ScalarSize returns the payload width of a numeric sign, or -1 when s is
// not a numeric sign.
func ScalarSize(s Sign) int {
	switch s {
	case SignI8, SignU8, SignChar:
		return 1
	case SignI16, SignU16:
		return 2
	case SignI32, SignU32, SignF32:
		return 4
	case SignI64, SignU64, SignF64:
		return 8
	}
	return -1
}

// IsScalar reports whether s tags a fixed-width numeric payload.
func IsScalar(s Sign) bool { return ScalarSize(s) > 0 }

func (s Sign) String() string {
	switch s {
	case SignEnd:
		return "END"
	case SignI8:
		return "I8"
	case SignU8:
		return "U8"
	case SignI16:
		return "I16"
	case SignU16:
		return "U16"
	case SignI32:
		return "I32"
	case SignU32:
		return "U32"
	case SignI64:
		return "I64"
	case SignU64:
		return "U64"
	case SignF32:
		return "F32"
	case SignF64:
		return "F64"
	case SignChar:
		return "CHAR"
	case SignTrue:
		return "TRUE"
	case SignFalse:
		return "FALSE"
	case SignNil:
		return "NIL"
	case SignReference:
		return "REFERENCE"
	case SignArray:
		return "ARRAY"
	case SignStruct:
		return "STRUCT"
	case SignString:
		return "STRING"
	case SignBinary:
		return "BINARY"
	}
	return fmt.Sprintf("Sign(%d)", byte(s))
}

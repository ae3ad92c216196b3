package wire

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/elekiengine/elekicore/internal/tracelog"
)

// Endianness classifies the host byte order.
type Endianness int

const (
	// Little means the host stores the least significant byte first.
	Little Endianness = iota
	// Big means the host stores the most significant byte first.
	Big
	// Unknown means neither, a "middle" endian host. Numeric payloads on
	// such a host are written as zeros, which is lossy; see
	// [ErrUnsupportedEndian].
	Unknown
)

// ErrUnsupportedEndian is logged when a numeric payload is written on a
// host whose byte order is neither little nor big. The payload bytes are
// all zero in that case and cannot be read back.
var ErrUnsupportedEndian = errors.New("wire: unsupported host endianness, numeric payload written as zeros")

// hostEndian is probed once at startup. The probe writes through the
// native byte order and inspects which end the low byte landed on.
var hostEndian = func() Endianness {
	var probe [2]byte
	binary.NativeEndian.PutUint16(probe[:], 0x0102)
	switch {
	case probe[0] == 0x02 && probe[1] == 0x01:
		return Little
	case probe[0] == 0x01 && probe[1] == 0x02:
		return Big
	default:
		return Unknown
	}
}()

// HostEndian returns the byte order of the host this process runs on.
func HostEndian() Endianness { return hostEndian }

// appendBits appends size bytes of v in wire order. The wire order is
// little-endian regardless of the host: a little-endian host copies its
// bytes forward, a big-endian host copies them reversed, and both land on
// the same wire bytes. An unknown host appends zeros and logs, matching
// the documented lossy behavior for middle-endian machines.
func appendBits(dst []byte, v uint64, size int) []byte {
	switch hostEndian {
	case Little, Big:
		for i := 0; i < size; i++ {
			dst = append(dst, byte(v>>(8*i)))
		}
	default:
		tracelog.Errorf("%v", ErrUnsupportedEndian)
		for i := 0; i < size; i++ {
			dst = append(dst, 0)
		}
	}
	return dst
}

// AppendU8 appends a one-byte payload.
func AppendU8(dst []byte, v uint8) []byte { return appendBits(dst, uint64(v), 1) }

// AppendU16 appends a two-byte payload in wire order.
func AppendU16(dst []byte, v uint16) []byte { return appendBits(dst, uint64(v), 2) }

// AppendU32 appends a four-byte payload in wire order. REFERENCE indices,
// BINARY chunk sizes, and instance-frame sizes all go through here.
func AppendU32(dst []byte, v uint32) []byte { return appendBits(dst, uint64(v), 4) }

// AppendU64 appends an eight-byte payload in wire order.
func AppendU64(dst []byte, v uint64) []byte { return appendBits(dst, v, 8) }

// AppendF32 appends a float32 payload in wire order.
func AppendF32(dst []byte, v float32) []byte {
	return appendBits(dst, uint64(math.Float32bits(v)), 4)
}

// AppendF64 appends a float64 payload in wire order.
func AppendF64(dst []byte, v float64) []byte {
	return appendBits(dst, math.Float64bits(v), 8)
}

// readBits reads size bytes from b in wire order. ok is false when b is
// too short. The inverse of appendBits, with the same host dispatch.
func readBits(b []byte, size int) (v uint64, ok bool) {
	if len(b) < size {
		return 0, false
	}
	switch hostEndian {
	case Little, Big:
		for i := 0; i < size; i++ {
			v |= uint64(b[i]) << (8 * i)
		}
		return v, true
	default:
		return 0, false
	}
}

// ReadScalar reads a numeric payload of the given width in wire order.
// The decoder's tag dispatch uses it for every scalar sign.
func ReadScalar(b []byte, size int) (uint64, bool) {
	return readBits(b, size)
}

// ReadU16 reads a two-byte payload in wire order.
func ReadU16(b []byte) (uint16, bool) {
	v, ok := readBits(b, 2)
	return uint16(v), ok
}

// ReadU32 reads a four-byte payload in wire order.
func ReadU32(b []byte) (uint32, bool) {
	v, ok := readBits(b, 4)
	return uint32(v), ok
}

// ReadU64 reads an eight-byte payload in wire order.
func ReadU64(b []byte) (uint64, bool) {
	return readBits(b, 8)
}

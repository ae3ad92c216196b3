package wire

import (
	"bytes"
	"errors"

	"github.com/elekiengine/elekicore/internal/buf"
)

// Binary is a complete serialized blob: header plus instance frames.
type Binary []byte

const (
	// Magic is the ASCII prefix every blob starts with.
	Magic = "ELEKIBINARY"

	// Version is the format version, stored little-endian on the wire
	// directly after the magic.
	Version uint32 = 1220701

	// HeaderSize is the full header length: 11 magic bytes, 4 version
	// bytes, and 1 reserved zero byte.
	HeaderSize = 16

	// FrameSizeLen is the width of the u32 payload-size prefix on each
	// instance frame.
	FrameSizeLen = 4
)

var (
	// ErrBadMagic means the blob does not start with the ASCII magic.
	ErrBadMagic = errors.New("wire: bad magic")

	// ErrBadVersion means the magic matched but the version did not.
	ErrBadVersion = errors.New("wire: version mismatch")

	// ErrTruncated means the blob ends inside a header or a frame prefix.
	ErrTruncated = errors.New("wire: truncated")
)

// AppendHeader appends the 16-byte header to dst.
func AppendHeader(dst []byte) []byte {
	dst = append(dst, Magic...)
	dst = buf.AppendU32LE(dst, Version)
	return append(dst, 0)
}

// CheckHeader verifies the magic and version. Either mismatch fails the
// whole blob; the caller returns an empty result in that case.
func CheckHeader(blob Binary) error {
	if len(blob) < HeaderSize {
		return ErrTruncated
	}
	if !bytes.Equal(blob[:len(Magic)], []byte(Magic)) {
		return ErrBadMagic
	}
	if buf.U32LE(blob[len(Magic):]) != Version {
		return ErrBadVersion
	}
	return nil
}

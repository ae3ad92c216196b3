package wire

import "github.com/elekiengine/elekicore/runtime/alloc"

// Buffer is a growable byte buffer backed by the tiered allocator. The
// encoder gives each instance its own Buffer, written by exactly one task,
// so Buffer does no locking. Release returns the current backing block to
// the allocator; the stitch step copies payloads out before releasing.
type Buffer struct {
	a    *alloc.Tiered
	h    alloc.Handle
	data []byte // full capacity view of h
	n    int    // bytes written
}

// initialBufferCap is the first backing allocation. Sized to the top slab
// class so small instances never leave the pools.
const initialBufferCap = 256

// NewBuffer returns an empty buffer drawing from a. A nil a uses the
// shared allocator.
func NewBuffer(a *alloc.Tiered) *Buffer {
	if a == nil {
		a = alloc.Shared()
	}
	return &Buffer{a: a}
}

// grow ensures capacity for n more bytes, moving to a larger block when
// needed. Growth doubles, so a long emission settles into the heap
// fallback after a few copies.
func (b *Buffer) grow(n int) {
	if b.n+n <= len(b.data) {
		return
	}
	capacity := len(b.data)
	if capacity == 0 {
		capacity = initialBufferCap
	}
	for capacity < b.n+n {
		capacity *= 2
	}
	h := b.a.Allocate(capacity)
	next := h.Bytes()
	copy(next, b.data[:b.n])
	b.h.Free()
	b.h = h
	b.data = next
}

// AppendByte appends one byte.
func (b *Buffer) AppendByte(c byte) {
	b.grow(1)
	b.data[b.n] = c
	b.n++
}

// AppendSign appends a tag byte.
func (b *Buffer) AppendSign(s Sign) { b.AppendByte(byte(s)) }

// Append appends p.
func (b *Buffer) Append(p []byte) {
	b.grow(len(p))
	copy(b.data[b.n:], p)
	b.n += len(p)
}

// AppendWire appends the result of one of the wire Append helpers, reusing
// the buffer's backing store. fn receives the current tail and must return
// it extended; this keeps scalar emission allocation-free.
func (b *Buffer) AppendWire(fn func(dst []byte) []byte) {
	// Worst case for a single scalar is 8 bytes.
	b.grow(8)
	tail := fn(b.data[b.n:b.n])
	b.n += len(tail)
}

// Len returns the number of bytes written.
func (b *Buffer) Len() int { return b.n }

// Bytes returns the written prefix. Valid until the next Append or
// Release.
func (b *Buffer) Bytes() []byte { return b.data[:b.n] }

// Release returns the backing block to the allocator and empties the
// buffer.
func (b *Buffer) Release() {
	b.h.Free()
	b.h = alloc.Handle{}
	b.data = nil
	b.n = 0
}

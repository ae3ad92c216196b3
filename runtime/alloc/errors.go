package alloc

import "errors"

var (
	// ErrExhausted indicates that a request for memory could not be
	// satisfied: either a frame allocator ran past its reserved buffer, or
	// the host allocator itself failed.
	ErrExhausted = errors.New("alloc: exhausted")

	// ErrBadHandle indicates a Handle whose owning pool could not be
	// determined, or one that has already been freed.
	ErrBadHandle = errors.New("alloc: bad handle")
)

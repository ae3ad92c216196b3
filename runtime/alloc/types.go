package alloc

// Handle is the result of a [Tiered] allocation. Its zero value is not
// usable; Handle values come only from [Tiered.Allocate]. The handle
// carries the deallocation routing: a non-nil chunk means the payload
// came from a slab pool and must go back through that pool's free list, a
// nil chunk means it came from the heap fallback and Free leaves it to
// the garbage collector.
type Handle struct {
	bytes []byte
	pool  *pool  // nil for the malloc-fallback path
	chunk *chunk // owning chunk within pool, nil for the malloc-fallback path
	slot  int32  // slot index within chunk
}

// Bytes returns the payload backing this handle. The slice is valid until
// Free is called.
func (h Handle) Bytes() []byte { return h.bytes }

// Free returns the payload to its owning pool. For a heap-fallback handle
// it does nothing and lets the garbage collector reclaim it. Calling
// Free twice on the same slab handle corrupts the free list; deallocate
// exactly once per allocate.
func (h Handle) Free() {
	if h.pool == nil {
		return
	}
	h.pool.free(h.chunk, h.slot)
}

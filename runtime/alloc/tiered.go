package alloc

import "sync"

// Tiered is the tiered pool allocator: one [pool] per size class, with a
// plain heap allocation for anything past the largest class. It is safe
// for concurrent use: callers on different goroutines (serializer worker
// tasks, in particular) may call Allocate/Handle.Free concurrently.
type Tiered struct {
	cfg   SizeClassConfig
	pools []*pool
}

// NewTiered builds a [Tiered] allocator from cfg. Use [DefaultClasses]
// unless the workload's size distribution says otherwise.
func NewTiered(cfg SizeClassConfig) *Tiered {
	t := &Tiered{cfg: cfg, pools: make([]*pool, len(cfg.Classes))}
	for i, class := range cfg.Classes {
		t.pools[i] = newPool(class, cfg.ChunkLen)
	}
	return t
}

// Allocate returns n bytes. Requests that fit a size class are served from
// that class's slab pool in O(1); larger requests fall back to a plain heap
// allocation. Allocate never fails: unlike the frame allocators, the heap
// fallback means exhaustion can only come from the host running out of
// memory, which Go reports by crashing the process rather than by a
// recoverable error, so there is no error return here.
func (t *Tiered) Allocate(n int) Handle {
	if n <= 0 {
		n = 1
	}
	idx := t.cfg.classFor(n)
	if idx >= len(t.pools) {
		return Handle{bytes: make([]byte, n)}
	}
	h := t.pools[idx].allocate()
	return Handle{bytes: h.bytes[:n], pool: h.pool, chunk: h.chunk, slot: h.slot}
}

// LiveCounts reports the number of slots currently checked out of each size
// class, indexed the same as cfg.Classes.
func (t *Tiered) LiveCounts() []int {
	out := make([]int, len(t.pools))
	for i, p := range t.pools {
		out[i] = p.liveCount()
	}
	return out
}

var (
	sharedOnce sync.Once
	shared     *Tiered
)

// Shared returns the process-wide tiered allocator, built on first use.
// Encoder and decoder worker tasks call Shared() rather than carry their
// own allocator by default; components that want isolation construct
// their own [Tiered] via [NewTiered] instead.
func Shared() *Tiered {
	sharedOnce.Do(func() {
		shared = NewTiered(DefaultClasses())
	})
	return shared
}

package alloc

// SizeClassConfig describes the boundaries of the fixed-size slab pools
// as a table, so callers with an unusual size distribution can tune the
// classes without touching [Tiered].
type SizeClassConfig struct {
	// Name identifies the configuration, for logging only.
	Name string

	// Classes lists the upper bound, in bytes, of each slab size class in
	// increasing order. A request that does not fit the largest class
	// falls back to a plain heap allocation.
	Classes []int32

	// ChunkLen is the number of slots carved out of each chunk a pool
	// allocates when its free list runs dry.
	ChunkLen int
}

// DefaultClasses is the standard five-class table: 16, 32, 64, 128, 256
// bytes, 64 slots per chunk.
func DefaultClasses() SizeClassConfig {
	return SizeClassConfig{
		Name:     "default",
		Classes:  []int32{16, 32, 64, 128, 256},
		ChunkLen: 64,
	}
}

// FineGrained adds the intermediate classes 48, 96, and 192 to the default
// table, eight classes in all, trading a larger lookup table for tighter
// internal fragmentation.
func FineGrained() SizeClassConfig {
	return SizeClassConfig{
		Name:     "fine-grained",
		Classes:  []int32{16, 32, 48, 64, 96, 128, 192, 256},
		ChunkLen: 64,
	}
}

// classFor returns the index into cfg.Classes that fits n bytes, or
// len(cfg.Classes) when n exceeds every class (malloc fallback).
func (cfg SizeClassConfig) classFor(n int) int {
	for i, c := range cfg.Classes {
		if n <= int(c) {
			return i
		}
	}
	return len(cfg.Classes)
}

package serialize

import (
	"github.com/elekiengine/elekicore/runtime/alloc"
	"github.com/elekiengine/elekicore/runtime/task"
)

// config carries the knobs shared by one encode or decode call. Zero
// values mean the process-wide defaults.
type config struct {
	pool  *task.Pool
	alloc *alloc.Tiered
}

// Option adjusts one encode or decode call.
type Option func(*config)

// WithPool schedules the call's per-instance work on p instead of the
// shared pool. Useful for isolating a large encode from other pool
// clients, or for tests that want a pool they can close.
func WithPool(p *task.Pool) Option {
	return func(c *config) { c.pool = p }
}

// WithAllocator draws the call's instance buffers from a instead of the
// shared tiered allocator.
func WithAllocator(a *alloc.Tiered) Option {
	return func(c *config) { c.alloc = a }
}

func buildConfig(opts []Option) config {
	var c config
	for _, o := range opts {
		o(&c)
	}
	if c.pool == nil {
		c.pool = task.Shared()
	}
	if c.alloc == nil {
		c.alloc = alloc.Shared()
	}
	return c
}

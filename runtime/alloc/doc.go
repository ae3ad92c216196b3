// Package alloc provides the tiered pool allocator that backs the rest of
// the runtime.
//
// # Overview
//
// Small byte payloads (in this module, the serializer's per-instance encode
// buffers) are served from one of five segregated slab pools by size class.
// Smart-pointer control blocks, weak-reference nodes, and task queue nodes
// are ordinary Go allocations and do not come from these pools. Anything larger than the top size class falls
// back to a plain heap allocation. Both paths return a [Handle] whose
// Free method routes to the correct sub-allocator without the caller ever
// inspecting which path served it; the handle carries that decision, not
// the byte slice.
//
// # Size classes
//
// The default table has five classes: 16, 32, 64, 128, and 256 bytes. A
// caller that wants a different granularity (more classes for a workload
// with many distinct small sizes, fewer for one dominated by a single size)
// can build a [Tiered] from a custom [SizeClassConfig] via [NewTiered].
//
// # Frame allocators
//
// [StaticFrame] and [DynamicFrame] are bump allocators for scratch memory
// that is freed in bulk rather than piece by piece. The serializer does not
// use them; its per-instance encode buffers come from the tiered pools. Frame
// allocators are single-owner and are not safe for concurrent use; the
// tiered pools are.
package alloc

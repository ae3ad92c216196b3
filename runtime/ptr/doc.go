// Package ptr provides the smart-pointer triad used by the runtime: an
// exclusive owner ([Unique]), a reference-counted shared owner ([Counted]),
// and a non-owning back-reference ([Weak]).
//
// All three variants share one control block per payload. The control block
// tracks the strong count, the finalizer to run when ownership ends, and a
// circular doubly-linked list of every live weak reference. When the last
// owner drops, each weak reference in the list has its control-block pointer
// nulled before the block is retired, so a weak reference outliving its
// owner observes nil, never a dangling payload.
//
// Go's garbage collector reclaims the memory itself; what the triad adds on
// top is deterministic finalization (the deleter runs exactly once, at the
// moment the last owner drops) and the observable owner-gone signal that
// weak references need. Dereferencing an empty pointer is reported through
// the logger and returns (nil, false) rather than garbage.
package ptr

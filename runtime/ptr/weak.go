package ptr

import (
	"sync/atomic"

	"github.com/elekiengine/elekicore/internal/tracelog"
)

// weakNode is one element of a control block's circular weak-reference
// list. The weak reference owns its node inline; the control block only
// ever sees the list head. The control pointer is atomic because the owner
// nulls it from its own drop path while the weak holder may be reading it.
type weakNode[T any] struct {
	prev, next *weakNode[T]
	cb         atomic.Pointer[control[T]]
}

// Weak is a non-owning back-reference. It observes the payload while an
// owner is alive and nil afterwards, never a dangling pointer. A Weak
// must not be copied once created (its list node is embedded); share the
// returned pointer instead.
type Weak[T any] struct {
	n weakNode[T]
}

// newWeak splices a fresh weak reference into cb's circular list. A nil cb
// yields a permanently empty Weak.
func newWeak[T any](cb *control[T]) *Weak[T] {
	w := &Weak[T]{}
	if cb == nil {
		return w
	}
	w.n.cb.Store(cb)
	cb.spliceWeak(&w.n)
	return w
}

// Get returns the payload while an owner is alive. After the last owner
// drops, Get logs a null dereference and returns (nil, false).
func (w *Weak[T]) Get() (*T, bool) {
	if w == nil {
		tracelog.Errorf("ptr: null dereference on Weak")
		return nil, false
	}
	cb := w.n.cb.Load()
	if cb == nil {
		tracelog.Errorf("ptr: null dereference on Weak")
		return nil, false
	}
	p, ok := cb.get()
	if !ok {
		tracelog.Errorf("ptr: null dereference on Weak")
	}
	return p, ok
}

// Alive reports whether the payload is still owned, without logging.
func (w *Weak[T]) Alive() bool {
	if w == nil {
		return false
	}
	cb := w.n.cb.Load()
	if cb == nil {
		return false
	}
	_, ok := cb.get()
	return ok
}

// Drop unlinks this weak reference from the control block's list. Must be
// called before the Weak goes out of scope so the owner's notification
// walk never touches a dead node. Dropping twice, or after the owner has
// already detached the list, is a no-op.
func (w *Weak[T]) Drop() {
	if w == nil {
		return
	}
	cb := w.n.cb.Load()
	if cb == nil {
		return
	}
	cb.unlinkWeak(&w.n)
}

// Referent returns the payload as an untyped pointer for the serializer's
// reference traversal, or nil when the owner is gone. It does not log.
func (w *Weak[T]) Referent() any {
	if w == nil {
		return nil
	}
	cb := w.n.cb.Load()
	if cb == nil {
		return nil
	}
	p, ok := cb.get()
	if !ok {
		return nil
	}
	return p
}

// Weak derives another non-owning back-reference to the same payload. When
// the owner is already gone the result is an empty Weak.
func (w *Weak[T]) Weak() *Weak[T] {
	if w == nil {
		return newWeak[T](nil)
	}
	return newWeak(w.n.cb.Load())
}

// AttachTo re-points this weak reference at the payload owned by owner,
// which must be a *Counted[T]. The deserializer uses it to rebuild weak
// back-references once the owning Counted for an instance exists. Any
// previous attachment is dropped first.
func (w *Weak[T]) AttachTo(owner any) bool {
	c, ok := owner.(*Counted[T])
	if !ok || c.cb == nil {
		return false
	}
	w.Drop()
	w.n.cb.Store(c.cb)
	c.cb.spliceWeak(&w.n)
	return true
}

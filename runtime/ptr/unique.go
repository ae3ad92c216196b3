package ptr

import "github.com/elekiengine/elekicore/internal/tracelog"

// Unique is the exclusive owner of a payload. It is move-only in spirit:
// passing a Unique by value and dropping both copies releases the payload
// twice, which the control block reports as an error. Use the pointer form
// and [Unique.Drop] exactly once.
//
// On Drop the deleter runs, every weak reference observing the payload is
// nulled, and the control block is retired.
type Unique[T any] struct {
	cb *control[T]
}

// NewUnique takes exclusive ownership of payload. The optional deleter runs
// when ownership ends; omit it when the garbage collector is enough.
func NewUnique[T any](payload *T, deleter ...func(*T)) Unique[T] {
	if payload == nil {
		return Unique[T]{}
	}
	var d func(*T)
	if len(deleter) > 0 {
		d = deleter[0]
	}
	return Unique[T]{cb: newControl(payload, d)}
}

// Get returns the payload. An empty or already-dropped Unique logs a null
// dereference and returns (nil, false).
func (u Unique[T]) Get() (*T, bool) {
	if u.cb == nil {
		tracelog.Errorf("ptr: null dereference on Unique")
		return nil, false
	}
	p, ok := u.cb.get()
	if !ok {
		tracelog.Errorf("ptr: null dereference on Unique")
	}
	return p, ok
}

// IsNil reports whether the Unique currently owns a payload.
func (u Unique[T]) IsNil() bool {
	if u.cb == nil {
		return true
	}
	_, ok := u.cb.get()
	return !ok
}

// Drop ends ownership: the deleter runs, weak references are notified, and
// the Unique becomes empty. Calling Drop on an empty Unique is a no-op.
func (u *Unique[T]) Drop() {
	if u.cb == nil {
		return
	}
	u.cb.decStrong()
	u.cb = nil
}

// Weak derives a non-owning back-reference to the payload. The returned
// Weak must be dropped by its holder; it observes nil once this Unique
// drops.
func (u Unique[T]) Weak() *Weak[T] {
	return newWeak(u.cb)
}

// Referent returns the payload as an untyped pointer for the serializer's
// reference traversal, or nil when empty. It does not log.
func (u Unique[T]) Referent() any {
	if u.cb == nil {
		return nil
	}
	p, ok := u.cb.get()
	if !ok {
		return nil
	}
	return p
}

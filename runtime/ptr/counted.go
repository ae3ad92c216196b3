package ptr

import "github.com/elekiengine/elekicore/internal/tracelog"

// Counted is a reference-counted shared owner. Copies must be made through
// [Counted.Clone], which increments the strong count; each clone (and the
// original) must be dropped exactly once. When the last owner drops, the
// payload is finalized through the same path as [Unique].
type Counted[T any] struct {
	cb *control[T]
}

// NewCounted takes shared ownership of payload with a strong count of one.
func NewCounted[T any](payload *T, deleter ...func(*T)) Counted[T] {
	if payload == nil {
		return Counted[T]{}
	}
	var d func(*T)
	if len(deleter) > 0 {
		d = deleter[0]
	}
	return Counted[T]{cb: newControl(payload, d)}
}

// Clone adds an owner and returns the new handle. Cloning an empty or
// already-released Counted returns an empty handle.
func (c Counted[T]) Clone() Counted[T] {
	if c.cb == nil || !c.cb.incStrong() {
		return Counted[T]{}
	}
	return Counted[T]{cb: c.cb}
}

// Get returns the payload. An empty or released Counted logs a null
// dereference and returns (nil, false).
func (c Counted[T]) Get() (*T, bool) {
	if c.cb == nil {
		tracelog.Errorf("ptr: null dereference on Counted")
		return nil, false
	}
	p, ok := c.cb.get()
	if !ok {
		tracelog.Errorf("ptr: null dereference on Counted")
	}
	return p, ok
}

// IsNil reports whether the Counted currently shares a live payload.
func (c Counted[T]) IsNil() bool {
	if c.cb == nil {
		return true
	}
	_, ok := c.cb.get()
	return !ok
}

// StrongCount reports the current number of owners, for diagnostics.
func (c Counted[T]) StrongCount() int {
	if c.cb == nil {
		return 0
	}
	c.cb.mu.Lock()
	defer c.cb.mu.Unlock()
	return c.cb.strong
}

// Drop removes this owner. The last Drop finalizes the payload and
// notifies weak references. Dropping an empty Counted is a no-op.
func (c *Counted[T]) Drop() {
	if c.cb == nil {
		return
	}
	c.cb.decStrong()
	c.cb = nil
}

// Weak derives a non-owning back-reference sharing this control block.
func (c Counted[T]) Weak() *Weak[T] {
	return newWeak(c.cb)
}

// Referent returns the payload as an untyped pointer for the serializer's
// reference traversal, or nil when empty. It does not log.
func (c Counted[T]) Referent() any {
	if c.cb == nil {
		return nil
	}
	p, ok := c.cb.get()
	if !ok {
		return nil
	}
	return p
}

// NewPayload allocates a zero payload of this Counted's element type and
// returns it untyped. The deserializer uses it to build placeholders for
// instances whose destination field is a Counted, without knowing T.
func (c *Counted[T]) NewPayload() any {
	return new(T)
}

// Adopt installs payload (a *T produced by [Counted.NewPayload]) under a
// fresh control block with a strong count of one. It reports false when
// payload has the wrong type. Any previous ownership held by c is dropped.
func (c *Counted[T]) Adopt(payload any) bool {
	p, ok := payload.(*T)
	if !ok || p == nil {
		return false
	}
	if c.cb != nil {
		c.cb.decStrong()
	}
	c.cb = newControl(p, nil)
	return true
}

// CloneAny returns a new owner sharing this control block, as an untyped
// *Counted[T]. Reflect-driven callers (the deserializer re-linking a
// shared instance) use it where the element type is not statically known.
func (c *Counted[T]) CloneAny() any {
	n := c.Clone()
	return &n
}

// As asserts the payload of c to the interface type U, preserving the
// control block's identity, the analogue of a pointer cast between
// compatible payload types. Returns the zero U and false when c is empty
// or the payload does not implement U.
func As[U any, T any](c Counted[T]) (U, bool) {
	var zero U
	if c.cb == nil {
		return zero, false
	}
	p, ok := c.cb.get()
	if !ok {
		return zero, false
	}
	u, ok := any(p).(U)
	if !ok {
		return zero, false
	}
	return u, true
}

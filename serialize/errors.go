package serialize

import "errors"

var (
	// ErrUnsupportedValue means the encoder met a value no dispatch rule
	// covers (a channel, a function, an unregistered opaque type).
	ErrUnsupportedValue = errors.New("serialize: unsupported value")

	// ErrBadString means a string contained a byte sequence the format
	// cannot frame: invalid UTF-8, or an interior NUL (the NUL byte is the
	// STRING terminator on the wire).
	ErrBadString = errors.New("serialize: string not representable")

	// ErrEmptyBlob means the blob decoded to no instances at all.
	ErrEmptyBlob = errors.New("serialize: no instances")

	// ErrMalformedInstance means a referenced instance frame failed to
	// parse. The materializer fails the whole decode on it.
	ErrMalformedInstance = errors.New("serialize: malformed instance")

	// ErrDanglingIndex means an inside-reference cited an instance index
	// the blob does not contain.
	ErrDanglingIndex = errors.New("serialize: dangling instance index")

	// ErrUnresolvedExternal means an outside-reference named an object the
	// caller's table does not supply.
	ErrUnresolvedExternal = errors.New("serialize: unresolved external reference")

	// ErrTypeMismatch means a node cannot populate the destination it was
	// asked to (for example a STRING node into an integer field).
	ErrTypeMismatch = errors.New("serialize: type mismatch")

	// ErrMissingField means Deserializer.Field asked a STRUCT node for a
	// key it does not carry.
	ErrMissingField = errors.New("serialize: missing field")

	// ErrWeakWithoutOwner means a weak reference field cited an instance
	// that no counted owner materialized, so there is no control block for
	// the weak reference to observe.
	ErrWeakWithoutOwner = errors.New("serialize: weak reference has no counted owner")
)

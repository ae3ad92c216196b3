package ptr

import "reflect"

// Referent is implemented by the smart-pointer triad. The serializer uses
// it to reach the underlying payload pointer during graph traversal
// without knowing the concrete element type.
type Referent interface {
	// Referent returns the payload as an untyped pointer, or nil when the
	// pointer is empty.
	Referent() any
}

// AddressOf returns a stable identity key for v, used to key the
// external-name tables passed to the serializer. For pointer-shaped values
// it is the referenced address; for anything else it is zero. The key is
// only meaningful while the caller keeps v alive, which in practice means
// one encode or decode call.
func AddressOf(v any) uintptr {
	if v == nil {
		return 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return rv.Pointer()
	case reflect.Slice:
		if rv.Len() == 0 && rv.Cap() == 0 {
			return 0
		}
		return rv.Pointer()
	default:
		return 0
	}
}

package serialize

import (
	"reflect"
	"sync"
)

// adapter is one registered extrusive codec, erased to untyped form.
// Both funcs receive a *T.
type adapter struct {
	enc func(*Serializer, any) error
	dec func(*Deserializer, any) error
}

// adapters maps reflect.Type of *T to its adapter. Registration happens
// at package init in practice, but the map tolerates concurrent use.
var adapters sync.Map

// RegisterAdapter installs an extrusive codec for T, used for types whose
// source cannot grow Serialize/Deserialize methods. The encoder prefers
// the intrusive interface when a type has both. Registering T twice
// replaces the earlier codec.
func RegisterAdapter[T any](
	enc func(*Serializer, *T) error,
	dec func(*Deserializer, *T) error,
) {
	key := reflect.TypeOf((*T)(nil))
	adapters.Store(key, adapter{
		enc: func(s *Serializer, v any) error { return enc(s, v.(*T)) },
		dec: func(d *Deserializer, v any) error { return dec(d, v.(*T)) },
	})
}

// adapterFor looks up the adapter registered for the pointer type pt, or
// nil.
func adapterFor(pt reflect.Type) *adapter {
	if pt == nil {
		return nil
	}
	if a, ok := adapters.Load(pt); ok {
		ad := a.(adapter)
		return &ad
	}
	return nil
}

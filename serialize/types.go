package serialize

// Serializable is the intrusive dispatch surface. A type that implements
// it controls its own wire layout: the encoder opens a STRUCT, calls
// Serialize to stream the fields, and closes it; the decoder mirrors with
// Deserialize. Implement on the pointer receiver: reference edges carry
// pointers, and Deserialize must mutate.
type Serializable interface {
	Serialize(s *Serializer) error
	Deserialize(d *Deserializer) error
}

// KeyValuePair is one entry of an encoded mapping. It serializes as a
// STRUCT with the fixed keys "key" and "value"; Map-typed values encode
// as an ARRAY of these.
type KeyValuePair[K any, V any] struct {
	Key   K
	Value V
}

// pairElems exposes the pair untyped for the encoder's dispatch.
func (p KeyValuePair[K, V]) pairElems() (key, value any) { return p.Key, p.Value }

// keyPtr and valuePtr expose settable slots for the decoder.
func (p *KeyValuePair[K, V]) keyPtr() any   { return &p.Key }
func (p *KeyValuePair[K, V]) valuePtr() any { return &p.Value }

// pairer is any KeyValuePair instantiation, seen from the encoder.
type pairer interface{ pairElems() (any, any) }

// pairFiller is any *KeyValuePair instantiation, seen from the decoder.
type pairFiller interface {
	keyPtr() any
	valuePtr() any
}

// Ref is a by-value edge that prefers inlining. Encoding a Ref emits the
// target's serialization in place, with no instance frame, unless the target
// address is already a registered instance or appears in the external-name
// table, in which case a REFERENCE is emitted to preserve identity. Use it
// for edges where the target is logically part of the referrer but may
// also be shared.
type Ref[T any] struct {
	Target *T
}

// refTarget exposes the edge untyped for the encoder's dispatch.
func (r Ref[T]) refTarget() any {
	if r.Target == nil {
		return nil
	}
	return r.Target
}

// refNew allocates a fresh target for inline decoding and returns it for
// filling.
func (r *Ref[T]) refNew() any {
	r.Target = new(T)
	return r.Target
}

// refSet points the edge at an already-materialized target.
func (r *Ref[T]) refSet(p any) bool {
	t, ok := p.(*T)
	if !ok {
		return false
	}
	r.Target = t
	return true
}

type refWrapper interface{ refTarget() any }

type refFiller interface {
	refNew() any
	refSet(any) bool
}

package serialize

import (
	"fmt"
	"reflect"

	"github.com/elekiengine/elekicore/serialize/decode"
	"github.com/elekiengine/elekicore/serialize/wire"
)

// Serializer is the streaming handle passed to Serialize implementations
// and encode adapters. The encoder has already opened the value's STRUCT;
// each Field call appends one (name, value) pair to it. Values route
// through the same tag-writer table as everything else, so a field may be
// a scalar, a string, a container, a nested value, or a pointer edge into
// the rest of the graph.
type Serializer struct {
	sess *session
	buf  *wire.Buffer
}

// Field streams one named field.
func (s *Serializer) Field(name string, v any) error {
	if err := s.sess.putString(s.buf, name); err != nil {
		return err
	}
	if err := s.sess.put(s.buf, v); err != nil {
		return fmt.Errorf("field %s: %w", name, err)
	}
	return nil
}

// Deserializer is the mirror handle passed to Deserialize implementations
// and decode adapters. It wraps the instance's STRUCT node; Field looks a
// key up and materializes its value into dst. Key order on the wire is
// irrelevant; read fields in whatever order suits the type.
type Deserializer struct {
	sess *msession
	node *decode.Node
}

// Field materializes the named field into dst, which must be a non-nil
// pointer to the destination.
func (d *Deserializer) Field(name string, dst any) error {
	f, ok := d.node.Fields[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrMissingField, name)
	}
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("%w: Field destination must be a non-nil pointer, got %T", ErrTypeMismatch, dst)
	}
	if err := d.sess.fill(f, rv.Elem()); err != nil {
		return fmt.Errorf("field %s: %w", name, err)
	}
	return nil
}

// Has reports whether the STRUCT carries the named field, letting types
// decode optional fields without an error round-trip.
func (d *Deserializer) Has(name string) bool {
	_, ok := d.node.Fields[name]
	return ok
}

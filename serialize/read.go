package serialize

import (
	"fmt"
	"reflect"

	"github.com/elekiengine/elekicore/internal/tracelog"
	"github.com/elekiengine/elekicore/serialize/decode"
	"github.com/elekiengine/elekicore/serialize/wire"
)

// The materializer reaches the smart-pointer triad only through these
// capability interfaces, so it never needs the element type statically.
type (
	// *ptr.Counted[T]
	adopter interface {
		NewPayload() any
		Adopt(any) bool
	}
	cloner interface{ CloneAny() any }
	// *ptr.Weak[T]
	attacher interface{ AttachTo(any) bool }
	dropper  interface{ Drop() }
)

// msession is the shared state of one decode call: the parsed forest, the
// caller's name table, and the instance tables that rebuild identity
// (index to payload address, index to counted owner). Instances register
// their address before their contents fill, which is what lets cycles and
// self-loops terminate with the right topology.
type msession struct {
	forest []*decode.Node
	named  map[string]any

	built  []any // idx -> payload pointer once allocated
	owners []any // idx -> *ptr.Counted owner, when one exists

	created  []any // owners in creation order, for rollback
	deferred []deferredWeak
}

// deferredWeak is a weak field whose counted owner had not materialized
// when the field was reached. Attachments run after the main walk.
type deferredWeak struct {
	idx    int
	attach attacher
}

// FromBinary decodes blob into target, a non-nil pointer to the root
// object. named maps external-reference names to the caller-owned objects
// they stand for, mirroring the table given to [ToBinary].
//
// The header gate, a malformed instance reachable from the root, a
// dangling index, or an unresolved external all fail the decode; counted
// owners created along the way are dropped again in reverse order before
// the error returns.
func FromBinary(target any, blob wire.Binary, named map[string]any, opts ...Option) error {
	cfg := buildConfig(opts)
	forest, err := decode.Decode(blob, cfg.pool)
	if err != nil {
		return err
	}
	if len(forest) == 0 {
		return ErrEmptyBlob
	}

	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("%w: decode target must be a non-nil pointer, got %T", ErrTypeMismatch, target)
	}
	if forest[0] == nil {
		return fmt.Errorf("%w 0", ErrMalformedInstance)
	}

	m := &msession{
		forest: forest,
		named:  named,
		built:  make([]any, len(forest)),
		owners: make([]any, len(forest)),
	}
	m.built[0] = target

	err = m.fill(forest[0], rv.Elem())
	if err == nil {
		err = m.attachDeferred()
	}
	if err != nil {
		m.rollback()
		tracelog.Errorf("serialize: decode failed: %v", err)
		return err
	}
	return nil
}

// attachDeferred resolves weak fields whose owners materialized after the
// field was walked. An instance that never gained a counted owner cannot
// back a weak reference.
func (m *msession) attachDeferred() error {
	for _, d := range m.deferred {
		owner := m.owners[d.idx]
		if owner == nil {
			return fmt.Errorf("%w: instance %d", ErrWeakWithoutOwner, d.idx)
		}
		if !d.attach.AttachTo(owner) {
			return fmt.Errorf("%w: instance %d", ErrTypeMismatch, d.idx)
		}
	}
	return nil
}

// rollback drops every counted owner created during the failed walk, in
// reverse creation order. Payloads without owners are left to the garbage
// collector.
func (m *msession) rollback() {
	for i := len(m.created) - 1; i >= 0; i-- {
		if d, ok := m.created[i].(dropper); ok {
			d.Drop()
		}
	}
	m.created = nil
}

// fill materializes node n into the destination dst. dst is an
// addressable value: a field, a slice element, or a fresh allocation.
func (m *msession) fill(n *decode.Node, dst reflect.Value) error {
	if n == nil {
		return ErrMalformedInstance
	}

	// NIL zeroes any destination.
	if n.Kind == wire.SignNil {
		dst.SetZero()
		return nil
	}

	// Destinations with their own filling protocol come before the kind
	// switch: references, pairs, inline edges, and the triad.
	if dst.CanAddr() {
		switch a := dst.Addr().Interface().(type) {
		case refFiller:
			return m.fillRef(n, a)
		case adopter:
			return m.fillCounted(n, dst)
		case attacher:
			return m.fillWeak(n, a)
		case pairFiller:
			if n.Kind == wire.SignStruct {
				return m.fillPair(n, a)
			}
		}
	}

	switch n.Kind {
	case wire.SignTrue, wire.SignFalse:
		if dst.Kind() != reflect.Bool {
			return typeErr(n, dst)
		}
		v, _ := n.Bool()
		dst.SetBool(v)
		return nil

	case wire.SignString:
		if dst.Kind() != reflect.String {
			return typeErr(n, dst)
		}
		dst.SetString(n.Str)
		return nil

	case wire.SignBinary:
		if dst.Kind() != reflect.Slice || dst.Type().Elem().Kind() != reflect.Uint8 {
			return typeErr(n, dst)
		}
		dst.SetBytes(append([]byte(nil), n.Blob...))
		return nil

	case wire.SignArray:
		return m.fillArray(n, dst)

	case wire.SignStruct:
		return m.fillStruct(n, dst)

	case wire.SignReference:
		return m.fillReference(n, dst)
	}

	if wire.IsScalar(n.Kind) {
		switch dst.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			dst.SetInt(n.Int())
			return nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			dst.SetUint(n.Uint())
			return nil
		case reflect.Float32, reflect.Float64:
			dst.SetFloat(n.Float())
			return nil
		}
		return typeErr(n, dst)
	}

	return typeErr(n, dst)
}

func typeErr(n *decode.Node, dst reflect.Value) error {
	return fmt.Errorf("%w: %v node into %s", ErrTypeMismatch, n.Kind, dst.Type())
}

func (m *msession) fillArray(n *decode.Node, dst reflect.Value) error {
	switch dst.Kind() {
	case reflect.Slice:
		out := reflect.MakeSlice(dst.Type(), len(n.Items), len(n.Items))
		for i, item := range n.Items {
			if err := m.fill(item, out.Index(i)); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
		dst.Set(out)
		return nil

	case reflect.Array:
		if len(n.Items) != dst.Len() {
			return fmt.Errorf("%w: %d elements into [%d]%s", ErrTypeMismatch, len(n.Items), dst.Len(), dst.Type().Elem())
		}
		for i, item := range n.Items {
			if err := m.fill(item, dst.Index(i)); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
		return nil

	case reflect.Map:
		// A mapping travels as an ARRAY of {key value} pair structs.
		out := reflect.MakeMapWithSize(dst.Type(), len(n.Items))
		for i, item := range n.Items {
			if item.Kind != wire.SignStruct {
				return fmt.Errorf("%w: map element %d is %v", ErrTypeMismatch, i, item.Kind)
			}
			kn, ok := item.Fields["key"]
			if !ok {
				return fmt.Errorf("%w: map element %d has no key", ErrMissingField, i)
			}
			vn, ok := item.Fields["value"]
			if !ok {
				return fmt.Errorf("%w: map element %d has no value", ErrMissingField, i)
			}
			kv := reflect.New(dst.Type().Key()).Elem()
			if err := m.fill(kn, kv); err != nil {
				return fmt.Errorf("map key %d: %w", i, err)
			}
			vv := reflect.New(dst.Type().Elem()).Elem()
			if err := m.fill(vn, vv); err != nil {
				return fmt.Errorf("map value %d: %w", i, err)
			}
			out.SetMapIndex(kv, vv)
		}
		dst.Set(out)
		return nil
	}
	return typeErr(n, dst)
}

// fillStruct populates dst from a STRUCT node: intrusive interface first,
// then a registered adapter, then exported fields by name. Absent keys
// leave their fields zero; unknown keys are ignored. Both follow from key
// order and presence being non-semantic.
func (m *msession) fillStruct(n *decode.Node, dst reflect.Value) error {
	if dst.Kind() == reflect.Pointer {
		// An inlined value behind a pointer field: allocate and descend.
		pv := reflect.New(dst.Type().Elem())
		if err := m.fill(n, pv.Elem()); err != nil {
			return err
		}
		dst.Set(pv)
		return nil
	}
	if dst.Kind() != reflect.Struct {
		return typeErr(n, dst)
	}
	if dst.CanAddr() {
		if sz, ok := dst.Addr().Interface().(Serializable); ok {
			return sz.Deserialize(&Deserializer{sess: m, node: n})
		}
		if ad := adapterFor(dst.Addr().Type()); ad != nil {
			return ad.dec(&Deserializer{sess: m, node: n}, dst.Addr().Interface())
		}
	}
	t := dst.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		fn, ok := n.Fields[f.Name]
		if !ok {
			continue
		}
		if err := m.fill(fn, dst.Field(i)); err != nil {
			return fmt.Errorf("field %s.%s: %w", t.Name(), f.Name, err)
		}
	}
	return nil
}

func (m *msession) fillPair(n *decode.Node, p pairFiller) error {
	kn, ok := n.Fields["key"]
	if !ok {
		return fmt.Errorf("%w: pair has no key", ErrMissingField)
	}
	vn, ok := n.Fields["value"]
	if !ok {
		return fmt.Errorf("%w: pair has no value", ErrMissingField)
	}
	if err := m.fill(kn, reflect.ValueOf(p.keyPtr()).Elem()); err != nil {
		return err
	}
	return m.fill(vn, reflect.ValueOf(p.valuePtr()).Elem())
}

// fillRef handles a Ref destination: a REFERENCE node resolves through
// the instance tables, anything else was inlined and fills a fresh
// target.
func (m *msession) fillRef(n *decode.Node, r refFiller) error {
	if n.Kind != wire.SignReference {
		return m.fill(n, reflect.ValueOf(r.refNew()).Elem())
	}
	if n.Outside {
		v, ok := m.named[n.Name]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnresolvedExternal, n.Name)
		}
		if !r.refSet(v) {
			return fmt.Errorf("%w: external %q as Ref target", ErrTypeMismatch, n.Name)
		}
		return nil
	}
	idx := int(n.Index)
	if idx >= len(m.forest) {
		return fmt.Errorf("%w: %d of %d", ErrDanglingIndex, idx, len(m.forest))
	}
	if m.built[idx] != nil {
		if !r.refSet(m.built[idx]) {
			return fmt.Errorf("%w: instance %d as Ref target", ErrTypeMismatch, idx)
		}
		return nil
	}
	if m.forest[idx] == nil {
		return fmt.Errorf("%w %d", ErrMalformedInstance, idx)
	}
	// First visit through this Ref: the Ref's own element type drives the
	// allocation, registered before filling like any instance.
	p := r.refNew()
	m.built[idx] = p
	return m.fill(m.forest[idx], reflect.ValueOf(p).Elem())
}

// fillReference handles a REFERENCE node into a plain destination. The
// destination decides the ownership model: a *T field shares the bare
// payload, a Counted field shares or creates the control block, a Weak
// field attaches to an owner.
func (m *msession) fillReference(n *decode.Node, dst reflect.Value) error {
	if dst.Kind() != reflect.Pointer {
		return typeErr(n, dst)
	}

	// *ptr.Weak[T] fields allocate the weak in place, then attach.
	if dst.Type().Implements(reflect.TypeOf((*attacher)(nil)).Elem()) {
		wv := reflect.New(dst.Type().Elem())
		dst.Set(wv)
		return m.fillWeak(n, wv.Interface().(attacher))
	}

	if n.Outside {
		v, ok := m.named[n.Name]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnresolvedExternal, n.Name)
		}
		tv := reflect.ValueOf(v)
		if !tv.Type().AssignableTo(dst.Type()) {
			return fmt.Errorf("%w: external %q is %s, field wants %s", ErrTypeMismatch, n.Name, tv.Type(), dst.Type())
		}
		dst.Set(tv)
		return nil
	}

	target, err := m.ensureInstance(int(n.Index), dst.Type().Elem())
	if err != nil {
		return err
	}
	tv := reflect.ValueOf(target)
	if !tv.Type().AssignableTo(dst.Type()) {
		return fmt.Errorf("%w: instance %d is %s, field wants %s", ErrTypeMismatch, n.Index, tv.Type(), dst.Type())
	}
	dst.Set(tv)
	return nil
}

// ensureInstance materializes instance idx as elemType, registering the
// address before filling so cyclic references land on the same payload.
func (m *msession) ensureInstance(idx int, elemType reflect.Type) (any, error) {
	if idx >= len(m.forest) {
		return nil, fmt.Errorf("%w: %d of %d", ErrDanglingIndex, idx, len(m.forest))
	}
	if m.built[idx] != nil {
		return m.built[idx], nil
	}
	if m.forest[idx] == nil {
		return nil, fmt.Errorf("%w %d", ErrMalformedInstance, idx)
	}
	pv := reflect.New(elemType)
	m.built[idx] = pv.Interface()
	if err := m.fill(m.forest[idx], pv.Elem()); err != nil {
		return nil, err
	}
	return pv.Interface(), nil
}

// fillCounted handles a REFERENCE (or NIL, upstream) into a Counted
// field: reuse the instance's owner when one exists, adopt the bare
// payload when it was already built, or build payload and owner fresh.
func (m *msession) fillCounted(n *decode.Node, dst reflect.Value) error {
	if n.Kind != wire.SignReference {
		return typeErr(n, dst)
	}
	if n.Outside {
		v, ok := m.named[n.Name]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnresolvedExternal, n.Name)
		}
		// The caller registers the owner itself for counted externals.
		ov := reflect.ValueOf(v)
		if ov.Kind() == reflect.Pointer && ov.Type().Elem() == dst.Type() {
			if cl, ok := v.(cloner); ok {
				dst.Set(reflect.ValueOf(cl.CloneAny()).Elem())
				return nil
			}
		}
		return fmt.Errorf("%w: external %q into %s", ErrTypeMismatch, n.Name, dst.Type())
	}

	idx := int(n.Index)
	if idx >= len(m.forest) {
		return fmt.Errorf("%w: %d of %d", ErrDanglingIndex, idx, len(m.forest))
	}

	if owner := m.owners[idx]; owner != nil {
		cl, ok := owner.(cloner)
		if !ok {
			return fmt.Errorf("%w: instance %d owner", ErrTypeMismatch, idx)
		}
		cv := reflect.ValueOf(cl.CloneAny())
		if cv.Type() != reflect.PointerTo(dst.Type()) {
			if d, ok := cv.Interface().(dropper); ok {
				d.Drop()
			}
			return fmt.Errorf("%w: instance %d owned as %s, field wants %s", ErrTypeMismatch, idx, cv.Type().Elem(), dst.Type())
		}
		dst.Set(cv.Elem())
		return nil
	}

	cPtr := reflect.New(dst.Type())
	ad := cPtr.Interface().(adopter)

	if m.built[idx] != nil {
		if !ad.Adopt(m.built[idx]) {
			return fmt.Errorf("%w: instance %d payload into %s", ErrTypeMismatch, idx, dst.Type())
		}
		m.owners[idx] = cPtr.Interface()
		m.created = append(m.created, cPtr.Interface())
		dst.Set(cPtr.Elem())
		return nil
	}
	if m.forest[idx] == nil {
		return fmt.Errorf("%w %d", ErrMalformedInstance, idx)
	}

	payload := ad.NewPayload()
	m.built[idx] = payload
	if !ad.Adopt(payload) {
		return fmt.Errorf("%w: instance %d", ErrTypeMismatch, idx)
	}
	// Owner is visible before the payload fills, so weak references and
	// counted aliases inside a cycle resolve against it.
	m.owners[idx] = cPtr.Interface()
	m.created = append(m.created, cPtr.Interface())
	if err := m.fill(m.forest[idx], reflect.ValueOf(payload).Elem()); err != nil {
		return err
	}
	dst.Set(cPtr.Elem())
	return nil
}

// fillWeak handles a REFERENCE into a weak field. The owner may not have
// materialized yet; those attachments defer to the end of the walk.
func (m *msession) fillWeak(n *decode.Node, w attacher) error {
	if n.Kind != wire.SignReference || n.Outside {
		return fmt.Errorf("%w: weak field wants an inside reference", ErrTypeMismatch)
	}
	idx := int(n.Index)
	if idx >= len(m.forest) {
		return fmt.Errorf("%w: %d of %d", ErrDanglingIndex, idx, len(m.forest))
	}
	if owner := m.owners[idx]; owner != nil {
		if !w.AttachTo(owner) {
			return fmt.Errorf("%w: instance %d", ErrTypeMismatch, idx)
		}
		return nil
	}
	m.deferred = append(m.deferred, deferredWeak{idx: idx, attach: w})
	return nil
}

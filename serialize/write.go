package serialize

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/elekiengine/elekicore/internal/tracelog"
	"github.com/elekiengine/elekicore/runtime/ptr"
	"github.com/elekiengine/elekicore/runtime/task"
	"github.com/elekiengine/elekicore/serialize/wire"
)

// session is the shared state of one encode call: the per-instance
// buffers, the address-to-index map, the caller's external names, and the
// outstanding emission tasks. One mutex guards all four; every critical
// section is a handful of map and slice operations, and the lock is never
// held across user callbacks or task joins.
type session struct {
	mu      sync.Mutex
	buffers []*wire.Buffer
	ids     map[uintptr]uint32
	named   map[uintptr]string
	tasks   []*task.Task[error]
	cfg     config
}

// ToBinary encodes the object graph reachable from root into one blob.
//
// named lists addresses that must appear as named outside-references
// instead of being serialized: key with [ptr.AddressOf]. Decode with a
// matching name table to re-attach those fields to caller-owned objects.
//
// Each newly discovered referent gets a private buffer and its emission is
// handed to the worker pool, so independent subgraphs serialize in
// parallel. On error the blob is withheld entirely: callers get nil and
// the first failure, and the same failure is logged.
func ToBinary(root any, named map[uintptr]string, opts ...Option) (wire.Binary, error) {
	if r, ok := root.(ptr.Referent); ok {
		root = r.Referent()
	}
	s := &session{
		ids:   make(map[uintptr]uint32),
		named: named,
		cfg:   buildConfig(opts),
	}
	b0 := wire.NewBuffer(s.cfg.alloc)
	s.buffers = append(s.buffers, b0)
	if addr := ptr.AddressOf(root); addr != 0 {
		s.ids[addr] = 0
	}

	firstErr := s.putObject(b0, root)

	// Drain: tasks may enqueue more tasks, so re-check the list each
	// round. Join steals still-queued work inline, which keeps the drain
	// finite even when the pool is saturated with this call's own tasks.
	for {
		s.mu.Lock()
		if len(s.tasks) == 0 {
			s.mu.Unlock()
			break
		}
		t := s.tasks[0]
		s.tasks = s.tasks[1:]
		s.mu.Unlock()
		if err := t.Join(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if firstErr != nil {
		for _, b := range s.buffers {
			b.Release()
		}
		tracelog.Errorf("serialize: encode failed: %v", firstErr)
		return nil, firstErr
	}
	return s.stitch(), nil
}

// stitch assembles the final blob: header, then each instance framed by
// its u32 payload size, at offsets fixed by a prefix sum. The per-instance
// copies write disjoint ranges, so they run concurrently.
func (s *session) stitch() wire.Binary {
	offsets := make([]int, len(s.buffers)+1)
	offsets[0] = wire.HeaderSize
	for i, b := range s.buffers {
		offsets[i+1] = offsets[i] + wire.FrameSizeLen + b.Len()
	}

	out := make([]byte, offsets[len(s.buffers)])
	wire.AppendHeader(out[:0])

	var g errgroup.Group
	for i, b := range s.buffers {
		i, b := i, b
		g.Go(func() error {
			dst := out[offsets[i]:offsets[i+1]]
			wire.AppendU32(dst[:0], uint32(b.Len()))
			copy(dst[wire.FrameSizeLen:], b.Bytes())
			return nil
		})
	}
	g.Wait() // the copy funcs never fail

	for _, b := range s.buffers {
		b.Release()
	}
	return out
}

// putObject emits the body of one instance: the root value, or the
// pointee of a reference edge. Dispatch prefers the intrusive interface,
// then a registered adapter, then reflection.
func (s *session) putObject(b *wire.Buffer, v any) error {
	if v == nil {
		b.AppendSign(wire.SignNil)
		return nil
	}
	if sz, ok := v.(Serializable); ok {
		b.AppendSign(wire.SignStruct)
		if err := sz.Serialize(&Serializer{sess: s, buf: b}); err != nil {
			return err
		}
		b.AppendSign(wire.SignEnd)
		return nil
	}
	if ad := adapterFor(reflect.TypeOf(v)); ad != nil {
		b.AppendSign(wire.SignStruct)
		if err := ad.enc(&Serializer{sess: s, buf: b}, v); err != nil {
			return err
		}
		b.AppendSign(wire.SignEnd)
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			b.AppendSign(wire.SignNil)
			return nil
		}
		elem := rv.Elem()
		switch elem.Interface().(type) {
		case pairer, refWrapper, ptr.Referent:
			return s.put(b, elem.Interface())
		}
		if elem.Kind() == reflect.Struct {
			return s.putFields(b, elem)
		}
		// Instance whose payload is a bare value (*int, *string, ...).
		return s.put(b, elem.Interface())
	}
	return s.put(b, v)
}

// putFields emits a struct's exported fields as a STRUCT value, keyed by
// field name. The reflection fallback for types that implement neither
// dispatch surface.
func (s *session) putFields(b *wire.Buffer, structV reflect.Value) error {
	b.AppendSign(wire.SignStruct)
	t := structV.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if err := s.putString(b, f.Name); err != nil {
			return err
		}
		if err := s.put(b, structV.Field(i).Interface()); err != nil {
			return fmt.Errorf("field %s.%s: %w", t.Name(), f.Name, err)
		}
	}
	b.AppendSign(wire.SignEnd)
	return nil
}

// put emits one tagged value into b. This is the tag-writer table: every
// dispatch rule of the format in one switch.
func (s *session) put(b *wire.Buffer, v any) error {
	if v == nil {
		b.AppendSign(wire.SignNil)
		return nil
	}

	switch x := v.(type) {
	case bool:
		if x {
			b.AppendSign(wire.SignTrue)
		} else {
			b.AppendSign(wire.SignFalse)
		}
		return nil
	case int8:
		b.AppendSign(wire.SignI8)
		b.AppendWire(func(d []byte) []byte { return wire.AppendU8(d, uint8(x)) })
		return nil
	case uint8:
		b.AppendSign(wire.SignU8)
		b.AppendWire(func(d []byte) []byte { return wire.AppendU8(d, x) })
		return nil
	case int16:
		b.AppendSign(wire.SignI16)
		b.AppendWire(func(d []byte) []byte { return wire.AppendU16(d, uint16(x)) })
		return nil
	case uint16:
		b.AppendSign(wire.SignU16)
		b.AppendWire(func(d []byte) []byte { return wire.AppendU16(d, x) })
		return nil
	case int32:
		b.AppendSign(wire.SignI32)
		b.AppendWire(func(d []byte) []byte { return wire.AppendU32(d, uint32(x)) })
		return nil
	case uint32:
		b.AppendSign(wire.SignU32)
		b.AppendWire(func(d []byte) []byte { return wire.AppendU32(d, x) })
		return nil
	case int64:
		b.AppendSign(wire.SignI64)
		b.AppendWire(func(d []byte) []byte { return wire.AppendU64(d, uint64(x)) })
		return nil
	case uint64:
		b.AppendSign(wire.SignU64)
		b.AppendWire(func(d []byte) []byte { return wire.AppendU64(d, x) })
		return nil
	case int:
		b.AppendSign(wire.SignI64)
		b.AppendWire(func(d []byte) []byte { return wire.AppendU64(d, uint64(x)) })
		return nil
	case uint:
		b.AppendSign(wire.SignU64)
		b.AppendWire(func(d []byte) []byte { return wire.AppendU64(d, uint64(x)) })
		return nil
	case float32:
		b.AppendSign(wire.SignF32)
		b.AppendWire(func(d []byte) []byte { return wire.AppendF32(d, x) })
		return nil
	case float64:
		b.AppendSign(wire.SignF64)
		b.AppendWire(func(d []byte) []byte { return wire.AppendF64(d, x) })
		return nil
	case string:
		return s.putString(b, x)
	case []byte:
		return s.putBinary(b, x)
	}

	// Structured wrappers before raw kinds: pairs, inline edges, and the
	// smart-pointer triad are all struct- or pointer-shaped underneath.
	if p, ok := v.(pairer); ok {
		k, val := p.pairElems()
		return s.putPair(b, k, val)
	}
	if r, ok := v.(refWrapper); ok {
		return s.putInlineRef(b, r)
	}
	if r, ok := v.(ptr.Referent); ok {
		target := r.Referent()
		if target == nil {
			b.AppendSign(wire.SignNil)
			return nil
		}
		return s.putReference(b, target)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			b.AppendSign(wire.SignNil)
			return nil
		}
		return s.putReference(b, v)

	case reflect.Slice:
		if rv.IsNil() {
			b.AppendSign(wire.SignNil)
			return nil
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return s.putBinary(b, rv.Bytes())
		}
		return s.putArray(b, rv)

	case reflect.Array:
		return s.putArray(b, rv)

	case reflect.Map:
		if rv.IsNil() {
			b.AppendSign(wire.SignNil)
			return nil
		}
		b.AppendSign(wire.SignArray)
		iter := rv.MapRange()
		for iter.Next() {
			if err := s.putPair(b, iter.Key().Interface(), iter.Value().Interface()); err != nil {
				return err
			}
		}
		b.AppendSign(wire.SignEnd)
		return nil

	case reflect.Struct:
		// Inline struct value. Re-box behind a pointer so pointer-receiver
		// Serialize implementations and adapters are reachable.
		pv := reflect.New(rv.Type())
		pv.Elem().Set(rv)
		return s.putObject(b, pv.Interface())

	// Named basic types reach here; the concrete switch above only sees
	// the unnamed kinds.
	case reflect.Bool:
		return s.put(b, rv.Bool())
	case reflect.Int8:
		return s.put(b, int8(rv.Int()))
	case reflect.Int16:
		return s.put(b, int16(rv.Int()))
	case reflect.Int32:
		return s.put(b, int32(rv.Int()))
	case reflect.Int64, reflect.Int:
		return s.put(b, rv.Int())
	case reflect.Uint8:
		return s.put(b, uint8(rv.Uint()))
	case reflect.Uint16:
		return s.put(b, uint16(rv.Uint()))
	case reflect.Uint32:
		return s.put(b, uint32(rv.Uint()))
	case reflect.Uint64, reflect.Uint:
		return s.put(b, rv.Uint())
	case reflect.Float32:
		return s.put(b, float32(rv.Float()))
	case reflect.Float64:
		return s.put(b, rv.Float())
	case reflect.String:
		return s.putString(b, rv.String())
	}

	tracelog.Errorf("serialize: cannot encode %T", v)
	return fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
}

func (s *session) putArray(b *wire.Buffer, rv reflect.Value) error {
	b.AppendSign(wire.SignArray)
	for i := 0; i < rv.Len(); i++ {
		if err := s.put(b, rv.Index(i).Interface()); err != nil {
			return err
		}
	}
	b.AppendSign(wire.SignEnd)
	return nil
}

func (s *session) putPair(b *wire.Buffer, key, value any) error {
	b.AppendSign(wire.SignStruct)
	if err := s.putString(b, "key"); err != nil {
		return err
	}
	if err := s.put(b, key); err != nil {
		return err
	}
	if err := s.putString(b, "value"); err != nil {
		return err
	}
	if err := s.put(b, value); err != nil {
		return err
	}
	b.AppendSign(wire.SignEnd)
	return nil
}

// putString emits a STRING value. The NUL byte is the terminator on the
// wire, so a string containing one is unrepresentable, as is invalid
// UTF-8.
func (s *session) putString(b *wire.Buffer, str string) error {
	if !utf8.ValidString(str) || strings.IndexByte(str, 0) >= 0 {
		return fmt.Errorf("%w: %q", ErrBadString, str)
	}
	b.AppendSign(wire.SignString)
	b.Append([]byte(str))
	b.AppendSign(wire.SignEnd)
	return nil
}

// putBinary emits a BINARY value as a single chunk. The format permits
// splitting into multiple chunks; everything fits in memory here, so one
// chunk per blob is the whole story.
func (s *session) putBinary(b *wire.Buffer, data []byte) error {
	b.AppendSign(wire.SignBinary)
	b.AppendWire(func(d []byte) []byte { return wire.AppendU32(d, uint32(len(data))) })
	b.Append(data)
	b.AppendSign(wire.SignEnd)
	return nil
}

// putReference emits a reference edge to the non-nil pointer target. A
// named address becomes an outside-reference and never gets an instance;
// a seen address reuses its index; a fresh address registers the next
// index before recursing (that ordering is what makes self-loops and
// cycles terminate) and hands the new instance's emission to the pool.
func (s *session) putReference(b *wire.Buffer, target any) error {
	addr := ptr.AddressOf(target)
	if addr == 0 {
		return fmt.Errorf("%w: reference to %T", ErrUnsupportedValue, target)
	}

	s.mu.Lock()
	if name, ok := s.named[addr]; ok {
		s.mu.Unlock()
		b.AppendSign(wire.SignReference)
		return s.putString(b, name)
	}
	id, ok := s.ids[addr]
	var nb *wire.Buffer
	if !ok {
		id = uint32(len(s.buffers))
		s.ids[addr] = id
		nb = wire.NewBuffer(s.cfg.alloc)
		s.buffers = append(s.buffers, nb)
	}
	s.mu.Unlock()

	// Spawn outside the lock: on a closed pool SpawnOn runs the closure
	// inline, and that closure takes s.mu again.
	if nb != nil {
		t := task.SpawnOn(s.cfg.pool, task.Pooled, func() error {
			return s.putObject(nb, target)
		})
		s.mu.Lock()
		s.tasks = append(s.tasks, t)
		s.mu.Unlock()
	}

	b.AppendSign(wire.SignReference)
	b.AppendSign(wire.SignU32)
	b.AppendWire(func(d []byte) []byte { return wire.AppendU32(d, id) })
	return nil
}

// putInlineRef handles a Ref edge: inline the target's serialization
// unless its address is already an instance or is named, in which case
// identity must be preserved with a REFERENCE.
func (s *session) putInlineRef(b *wire.Buffer, r refWrapper) error {
	target := r.refTarget()
	if target == nil {
		b.AppendSign(wire.SignNil)
		return nil
	}
	addr := ptr.AddressOf(target)
	s.mu.Lock()
	_, isNamed := s.named[addr]
	_, isSeen := s.ids[addr]
	s.mu.Unlock()
	if isNamed || isSeen {
		return s.putReference(b, target)
	}
	return s.putObject(b, target)
}

package serialize

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/elekiengine/elekicore/runtime/ptr"
	"github.com/elekiengine/elekicore/serialize/decode"
	"github.com/elekiengine/elekicore/serialize/wire"
)

// sample exercises every inline value shape through the reflection
// fallback: no Serialize/Deserialize, no adapter.
type sample struct {
	B    bool
	I8   int8
	I64  int64
	U16  uint16
	F32  float32
	F64  float64
	Name string
	Raw  []byte
	Seq  []int32
	Grid [3]uint8
	Dict map[string]int64
}

func TestReflectionFallbackRoundTrip(t *testing.T) {
	in := sample{
		B:    true,
		I8:   -5,
		I64:  1 << 40,
		U16:  65535,
		F32:  1.5,
		F64:  -2.25,
		Name: "こんにちは",
		Raw:  []byte{0, 1, 2, 254, 255},
		Seq:  []int32{-1, 0, 1},
		Grid: [3]uint8{9, 8, 7},
		Dict: map[string]int64{"a": 1, "b": -2},
	}

	blob, err := ToBinary(&in, nil)
	require.NoError(t, err)

	var out sample
	require.NoError(t, FromBinary(&out, blob, nil))
	require.Empty(t, cmp.Diff(in, out))
}

func TestKeyValuePair(t *testing.T) {
	in := KeyValuePair[string, uint32]{Key: "answer", Value: 42}

	blob, err := ToBinary(&in, nil)
	require.NoError(t, err)

	// On the wire it is a STRUCT with the fixed keys.
	forest, err := decode.Decode(blob, nil)
	require.NoError(t, err)
	require.Equal(t, wire.SignStruct, forest[0].Kind)
	require.Equal(t, "answer", forest[0].Fields["key"].Str)
	require.Equal(t, uint64(42), forest[0].Fields["value"].Uint())

	var out KeyValuePair[string, uint32]
	require.NoError(t, FromBinary(&out, blob, nil))
	require.Equal(t, in, out)
}

func TestMapEncodesAsPairArray(t *testing.T) {
	in := map[uint8]string{3: "three"}

	blob, err := ToBinary(&in, nil)
	require.NoError(t, err)

	forest, err := decode.Decode(blob, nil)
	require.NoError(t, err)
	require.Equal(t, wire.SignArray, forest[0].Kind)
	require.Len(t, forest[0].Items, 1)
	pair := forest[0].Items[0]
	require.Equal(t, wire.SignStruct, pair.Kind)
	require.Equal(t, uint64(3), pair.Fields["key"].Uint())
	require.Equal(t, "three", pair.Fields["value"].Str)
}

// opaque cannot grow methods; its codec registers extrusively.
type opaque struct {
	Hidden uint16
}

func init() {
	RegisterAdapter(
		func(s *Serializer, o *opaque) error { return s.Field("hidden", o.Hidden) },
		func(d *Deserializer, o *opaque) error { return d.Field("hidden", &o.Hidden) },
	)
}

func TestExtrusiveAdapter(t *testing.T) {
	in := &opaque{Hidden: 77}
	blob, err := ToBinary(in, nil)
	require.NoError(t, err)

	forest, err := decode.Decode(blob, nil)
	require.NoError(t, err)
	require.Equal(t, uint64(77), forest[0].Fields["hidden"].Uint())

	var out opaque
	require.NoError(t, FromBinary(&out, blob, nil))
	require.Equal(t, uint16(77), out.Hidden)
}

// tree exercises Ref: inline by default, reference when shared.
type tree struct {
	Inline Ref[leaf]
	Shared *leaf
	Again  Ref[leaf]
}

func (tr *tree) Serialize(s *Serializer) error {
	if err := s.Field("inline", tr.Inline); err != nil {
		return err
	}
	if err := s.Field("shared", tr.Shared); err != nil {
		return err
	}
	return s.Field("again", tr.Again)
}

func (tr *tree) Deserialize(d *Deserializer) error {
	if err := d.Field("inline", &tr.Inline); err != nil {
		return err
	}
	if err := d.Field("shared", &tr.Shared); err != nil {
		return err
	}
	return d.Field("again", &tr.Again)
}

func TestRefInlinesUnsharedTarget(t *testing.T) {
	in := &tree{
		Inline: Ref[leaf]{Target: &leaf{X: 1}},
	}

	blob, err := ToBinary(in, nil)
	require.NoError(t, err)

	forest, err := decode.Decode(blob, nil)
	require.NoError(t, err)
	require.Len(t, forest, 1, "inlined edge must not create an instance")
	require.Equal(t, wire.SignStruct, forest[0].Fields["inline"].Kind)

	var out tree
	require.NoError(t, FromBinary(&out, blob, nil))
	require.NotNil(t, out.Inline.Target)
	require.Equal(t, uint8(1), out.Inline.Target.X)
}

func TestRefPreservesIdentityWhenShared(t *testing.T) {
	shared := &leaf{X: 9}
	in := &tree{
		Shared: shared,
		Again:  Ref[leaf]{Target: shared},
	}

	blob, err := ToBinary(in, nil)
	require.NoError(t, err)

	// The pointer edge made the leaf an instance, so the Ref edge after
	// it must cite the instance rather than inline a copy.
	forest, err := decode.Decode(blob, nil)
	require.NoError(t, err)
	require.Len(t, forest, 2)
	require.Equal(t, wire.SignReference, forest[0].Fields["again"].Kind)

	var out tree
	require.NoError(t, FromBinary(&out, blob, nil))
	require.Same(t, out.Shared, out.Again.Target)
}

// crew exercises the counted/weak half of the triad end to end.
type crew struct {
	First  ptr.Counted[member]
	Second ptr.Counted[member]
	Alias  ptr.Counted[member]
}

type member struct {
	ID    int32
	Buddy *ptr.Weak[member]
}

func (c *crew) Serialize(s *Serializer) error {
	if err := s.Field("first", c.First); err != nil {
		return err
	}
	if err := s.Field("second", c.Second); err != nil {
		return err
	}
	return s.Field("alias", c.Alias)
}

func (c *crew) Deserialize(d *Deserializer) error {
	if err := d.Field("first", &c.First); err != nil {
		return err
	}
	if err := d.Field("second", &c.Second); err != nil {
		return err
	}
	return d.Field("alias", &c.Alias)
}

func (m *member) Serialize(s *Serializer) error {
	if err := s.Field("id", m.ID); err != nil {
		return err
	}
	return s.Field("buddy", m.Buddy)
}

func (m *member) Deserialize(d *Deserializer) error {
	if err := d.Field("id", &m.ID); err != nil {
		return err
	}
	return d.Field("buddy", &m.Buddy)
}

func TestCountedAndWeakRoundTrip(t *testing.T) {
	first := &member{ID: 1}
	second := &member{ID: 2}
	cFirst := ptr.NewCounted(first)
	cSecond := ptr.NewCounted(second)
	first.Buddy = cSecond.Weak()
	second.Buddy = cFirst.Weak()

	in := &crew{
		First:  cFirst,
		Second: cSecond,
		Alias:  cFirst.Clone(),
	}

	blob, err := ToBinary(in, nil)
	require.NoError(t, err)

	// Two member instances plus the root.
	forest, err := decode.Decode(blob, nil)
	require.NoError(t, err)
	require.Len(t, forest, 3)

	var out crew
	require.NoError(t, FromBinary(&out, blob, nil))

	f, ok := out.First.Get()
	require.True(t, ok)
	sec, ok := out.Second.Get()
	require.True(t, ok)
	require.Equal(t, int32(1), f.ID)
	require.Equal(t, int32(2), sec.ID)

	// Alias shares First's control block.
	a, ok := out.Alias.Get()
	require.True(t, ok)
	require.Same(t, f, a)
	require.Equal(t, 2, out.First.StrongCount())

	// Weak back-references landed on the right owners.
	fb, ok := f.Buddy.Get()
	require.True(t, ok)
	require.Same(t, sec, fb)
	sb, ok := sec.Buddy.Get()
	require.True(t, ok)
	require.Same(t, f, sb)

	// Dropping every owner of Second kills the weak edge from First.
	out.Second.Drop()
	require.False(t, f.Buddy.Alive())
}

func TestUniqueEdgeEncodes(t *testing.T) {
	owned := ptr.NewUnique(&leaf{X: 3})
	type box struct {
		Item ptr.Unique[leaf]
	}
	in := &box{Item: owned}

	blob, err := ToBinary(in, nil)
	require.NoError(t, err)

	forest, err := decode.Decode(blob, nil)
	require.NoError(t, err)
	require.Len(t, forest, 2)
	require.Equal(t, wire.SignReference, forest[0].Fields["Item"].Kind)
	require.Equal(t, uint64(3), forest[1].Fields["x"].Uint())
}

func TestWeakWithoutOwnerFails(t *testing.T) {
	// A weak edge to an instance that only ever materializes as a bare
	// pointer has no control block to observe.
	type orphan struct {
		Plain *member
		W     *ptr.Weak[member]
	}
	m := &member{ID: 3}
	w := ptr.NewCounted(m).Weak()
	in := &orphan{Plain: m, W: w}

	blob, err := ToBinary(in, nil)
	require.NoError(t, err)

	var out orphan
	err = FromBinary(&out, blob, nil)
	require.ErrorIs(t, err, ErrWeakWithoutOwner)
}

package serialize

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/elekiengine/elekicore/runtime/ptr"
	"github.com/elekiengine/elekicore/serialize/decode"
	"github.com/elekiengine/elekicore/serialize/wire"
)

// leaf is the smallest intrusive type: one u8 field.
type leaf struct {
	X uint8
}

func (l *leaf) Serialize(s *Serializer) error   { return s.Field("x", l.X) }
func (l *leaf) Deserialize(d *Deserializer) error { return d.Field("x", &l.X) }

// fork holds two edges that may share a target.
type fork struct {
	Left  *leaf
	Right *leaf
}

func (f *fork) Serialize(s *Serializer) error {
	if err := s.Field("left", f.Left); err != nil {
		return err
	}
	return s.Field("right", f.Right)
}

func (f *fork) Deserialize(d *Deserializer) error {
	if err := d.Field("left", &f.Left); err != nil {
		return err
	}
	return d.Field("right", &f.Right)
}

// loop is a self- or mutually-referencing node.
type loop struct {
	Next *loop
}

func (l *loop) Serialize(s *Serializer) error   { return s.Field("next", l.Next) }
func (l *loop) Deserialize(d *Deserializer) error { return d.Field("next", &l.Next) }

func TestPrimitiveRoundTrip(t *testing.T) {
	blob, err := ToBinary(uint32(0x01020304), nil)
	require.NoError(t, err)

	// Exactly one frame; payload is the U32 tag then the value in wire
	// (little-endian) order.
	body := []byte(blob)[wire.HeaderSize:]
	require.Equal(t, []byte{5, 0, 0, 0}, body[:4])
	require.Equal(t, []byte{byte(wire.SignU32), 0x04, 0x03, 0x02, 0x01}, body[4:])

	var out uint32
	require.NoError(t, FromBinary(&out, blob, nil))
	require.Equal(t, uint32(0x01020304), out)
}

func TestSharedChildTwoFrames(t *testing.T) {
	b := &leaf{X: 7}
	root := &fork{Left: b, Right: b}

	blob, err := ToBinary(root, nil)
	require.NoError(t, err)

	forest, err := decode.Decode(blob, nil)
	require.NoError(t, err)
	require.Len(t, forest, 2, "one frame for the fork, one for the shared leaf")

	left := forest[0].Fields["left"]
	right := forest[0].Fields["right"]
	require.Equal(t, wire.SignReference, left.Kind)
	require.Equal(t, wire.SignReference, right.Kind)
	require.Equal(t, uint32(1), left.Index)
	require.Equal(t, uint32(1), right.Index)
	require.Equal(t, uint64(7), forest[1].Fields["x"].Uint())

	// Sharing must survive the round trip: both edges land on one
	// allocation.
	var out fork
	require.NoError(t, FromBinary(&out, blob, nil))
	require.NotNil(t, out.Left)
	require.Same(t, out.Left, out.Right)
	require.Equal(t, uint8(7), out.Left.X)
}

func TestSelfLoopSingleFrame(t *testing.T) {
	root := &loop{}
	root.Next = root

	blob, err := ToBinary(root, nil)
	require.NoError(t, err)

	forest, err := decode.Decode(blob, nil)
	require.NoError(t, err)
	require.Len(t, forest, 1)
	next := forest[0].Fields["next"]
	require.Equal(t, wire.SignReference, next.Kind)
	require.Equal(t, uint32(0), next.Index)

	var out loop
	require.NoError(t, FromBinary(&out, blob, nil))
	require.Same(t, &out, out.Next)
}

func TestTwoNodeCycle(t *testing.T) {
	a := &loop{}
	b := &loop{Next: a}
	a.Next = b

	blob, err := ToBinary(a, nil)
	require.NoError(t, err)

	forest, err := decode.Decode(blob, nil)
	require.NoError(t, err)
	require.Len(t, forest, 2)

	var out loop
	require.NoError(t, FromBinary(&out, blob, nil))
	require.NotNil(t, out.Next)
	require.NotSame(t, &out, out.Next, "cycle must contain two distinct allocations")
	require.Same(t, &out, out.Next.Next)
}

// registry stands in for a long-lived engine object that must never be
// serialized inline.
type registry struct {
	Tag int32
}

type holder struct {
	Registry *registry
}

func (h *holder) Serialize(s *Serializer) error   { return s.Field("registry", h.Registry) }
func (h *holder) Deserialize(d *Deserializer) error { return d.Field("registry", &h.Registry) }

func TestExternalName(t *testing.T) {
	ext := &registry{Tag: 5}
	root := &holder{Registry: ext}

	blob, err := ToBinary(root, map[uintptr]string{
		ptr.AddressOf(ext): "Memory::allocator",
	})
	require.NoError(t, err)

	// Exactly one frame: the external target gets no instance.
	forest, err := decode.Decode(blob, nil)
	require.NoError(t, err)
	require.Len(t, forest, 1)
	ref := forest[0].Fields["registry"]
	require.Equal(t, wire.SignReference, ref.Kind)
	require.True(t, ref.Outside)
	require.Equal(t, "Memory::allocator", ref.Name)

	// With the matching table, the field points at the registered object
	// itself.
	other := &registry{Tag: 9}
	var out holder
	require.NoError(t, FromBinary(&out, blob, map[string]any{
		"Memory::allocator": other,
	}))
	require.Same(t, other, out.Registry)

	// Without the table the decode fails whole.
	var out2 holder
	err = FromBinary(&out2, blob, nil)
	require.ErrorIs(t, err, ErrUnresolvedExternal)
}

func TestNullPointerEmitsNil(t *testing.T) {
	root := &loop{Next: nil}

	blob, err := ToBinary(root, nil)
	require.NoError(t, err)

	forest, err := decode.Decode(blob, nil)
	require.NoError(t, err)
	require.Len(t, forest, 1)
	require.True(t, forest[0].Fields["next"].IsNil())

	out := &loop{Next: &loop{}}
	require.NoError(t, FromBinary(out, blob, nil))
	require.Nil(t, out.Next)
}

func TestMalformedReferencedInstanceFailsDecode(t *testing.T) {
	// Frame 0 references frame 1; frame 1 carries an unknown tag.
	payload0 := []byte{byte(wire.SignStruct)}
	payload0 = append(payload0, byte(wire.SignString))
	payload0 = append(payload0, "next"...)
	payload0 = append(payload0, byte(wire.SignEnd))
	payload0 = append(payload0, byte(wire.SignReference), byte(wire.SignU32))
	payload0 = wire.AppendU32(payload0, 1)
	payload0 = append(payload0, byte(wire.SignEnd))

	blob := wire.AppendHeader(nil)
	blob = wire.AppendU32(blob, uint32(len(payload0)))
	blob = append(blob, payload0...)
	blob = wire.AppendU32(blob, 1)
	blob = append(blob, 0xFE)

	var out loop
	err := FromBinary(&out, wire.Binary(blob), nil)
	require.ErrorIs(t, err, ErrMalformedInstance)
}

func TestDanglingIndexFailsDecode(t *testing.T) {
	payload := []byte{byte(wire.SignStruct)}
	payload = append(payload, byte(wire.SignString))
	payload = append(payload, "next"...)
	payload = append(payload, byte(wire.SignEnd))
	payload = append(payload, byte(wire.SignReference), byte(wire.SignU32))
	payload = wire.AppendU32(payload, 7) // no such instance
	payload = append(payload, byte(wire.SignEnd))

	blob := wire.AppendHeader(nil)
	blob = wire.AppendU32(blob, uint32(len(payload)))
	blob = append(blob, payload...)

	var out loop
	err := FromBinary(&out, wire.Binary(blob), nil)
	require.ErrorIs(t, err, ErrDanglingIndex)
}

func TestHeaderGateEndToEnd(t *testing.T) {
	blob, err := ToBinary(uint32(1), nil)
	require.NoError(t, err)

	tampered := append(wire.Binary(nil), blob...)
	tampered[0] = 'Z'
	var out uint32
	require.ErrorIs(t, FromBinary(&out, tampered, nil), wire.ErrBadMagic)

	tampered = append(wire.Binary(nil), blob...)
	tampered[13]++
	require.ErrorIs(t, FromBinary(&out, tampered, nil), wire.ErrBadVersion)
}

func TestEncodeRejectsBadString(t *testing.T) {
	_, err := ToBinary("bad\x00string", nil)
	require.ErrorIs(t, err, ErrBadString)

	_, err = ToBinary(string([]byte{0xFF, 0xFE}), nil)
	require.ErrorIs(t, err, ErrBadString)
}

func TestEncodeRejectsUnsupported(t *testing.T) {
	_, err := ToBinary(make(chan int), nil)
	require.ErrorIs(t, err, ErrUnsupportedValue)
}

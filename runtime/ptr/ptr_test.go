package ptr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type widget struct {
	id int
}

func TestUniqueOwnsAndDrops(t *testing.T) {
	deleted := 0
	u := NewUnique(&widget{id: 1}, func(w *widget) { deleted++ })

	p, ok := u.Get()
	require.True(t, ok)
	require.Equal(t, 1, p.id)
	require.False(t, u.IsNil())

	u.Drop()
	require.Equal(t, 1, deleted)
	require.True(t, u.IsNil())

	_, ok = u.Get()
	require.False(t, ok)

	// A second Drop must not run the deleter again.
	u.Drop()
	require.Equal(t, 1, deleted)
}

func TestWeakObservesNilAfterOwnerDrop(t *testing.T) {
	u := NewUnique(&widget{id: 2})
	w := u.Weak()

	p, ok := w.Get()
	require.True(t, ok)
	require.Equal(t, 2, p.id)
	require.True(t, w.Alive())

	u.Drop()

	_, ok = w.Get()
	require.False(t, ok)
	require.False(t, w.Alive())

	// Dropping the weak after the owner detached the list is a no-op.
	w.Drop()
}

func TestWeakListSpliceAndUnlink(t *testing.T) {
	c := NewCounted(&widget{id: 3})
	w1 := c.Weak()
	w2 := c.Weak()
	w3 := c.Weak()
	require.Equal(t, 3, c.cb.weakCount())

	// Unlink the middle node; the circular list must stay consistent.
	w2.Drop()
	require.Equal(t, 2, c.cb.weakCount())
	require.True(t, w1.Alive())
	require.True(t, w3.Alive())
	require.False(t, w2.Alive())

	w1.Drop()
	w3.Drop()
	require.Equal(t, 0, c.cb.weakCount())

	c.Drop()
}

func TestCountedSharesOwnership(t *testing.T) {
	deleted := 0
	a := NewCounted(&widget{id: 4}, func(w *widget) { deleted++ })
	b := a.Clone()
	require.Equal(t, 2, a.StrongCount())

	w := b.Weak()

	a.Drop()
	require.Equal(t, 0, deleted, "payload must survive while one owner remains")
	require.True(t, w.Alive())

	pb, ok := b.Get()
	require.True(t, ok)
	require.Equal(t, 4, pb.id)

	b.Drop()
	require.Equal(t, 1, deleted)
	require.False(t, w.Alive())
}

func TestCloneAfterReleaseIsEmpty(t *testing.T) {
	a := NewCounted(&widget{id: 5})
	b := a
	a.Drop()
	c := b.Clone()
	require.True(t, c.IsNil())
}

type shape interface {
	sides() int
}

type square struct{}

func (square) sides() int { return 4 }

func TestAsPreservesControlBlock(t *testing.T) {
	c := NewCounted(&square{})
	s, ok := As[shape](c)
	require.True(t, ok)
	require.Equal(t, 4, s.sides())

	_, ok = As[interface{ corners() int }](c)
	require.False(t, ok)

	c.Drop()
	_, ok = As[shape](c)
	require.False(t, ok)
}

func TestAdoptBuildsFreshOwnership(t *testing.T) {
	var c Counted[widget]
	payload := c.NewPayload()
	w, ok := payload.(*widget)
	require.True(t, ok)
	w.id = 6

	require.True(t, c.Adopt(payload))
	p, ok := c.Get()
	require.True(t, ok)
	require.Equal(t, 6, p.id)
	require.Equal(t, 1, c.StrongCount())

	require.False(t, c.Adopt("not a widget"))
}

func TestWeakAttachTo(t *testing.T) {
	c := NewCounted(&widget{id: 7})
	w := &Weak[widget]{}
	require.False(t, w.Alive())

	require.True(t, w.AttachTo(&c))
	p, ok := w.Get()
	require.True(t, ok)
	require.Equal(t, 7, p.id)

	c.Drop()
	require.False(t, w.Alive())
}

func TestNilConstructors(t *testing.T) {
	u := NewUnique[widget](nil)
	require.True(t, u.IsNil())
	require.Nil(t, u.Referent())

	c := NewCounted[widget](nil)
	require.True(t, c.IsNil())
	require.Nil(t, c.Referent())

	w := u.Weak()
	require.False(t, w.Alive())
	require.Nil(t, w.Referent())
}

func TestAddressOf(t *testing.T) {
	a := &widget{}
	require.NotZero(t, AddressOf(a))
	require.Equal(t, AddressOf(a), AddressOf(a))

	b := &widget{}
	require.NotEqual(t, AddressOf(a), AddressOf(b))

	require.Zero(t, AddressOf(nil))
	require.Zero(t, AddressOf(42))
}

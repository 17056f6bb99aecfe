package mem

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/delay/core/store"
	"go.dedis.ch/delay/internal/testing/fake"
)

func TestSnapshot_Get(t *testing.T) {
	snap := NewOverlay(NewSnapshot())

	snap.store["A"] = item{value: []byte{1}}
	snap.parent.(*Snapshot).store["B"] = item{value: []byte{2}}
	snap.parent.(*Snapshot).store["D"] = item{value: []byte{3}}

	value, err := snap.Get([]byte("A"))
	require.NoError(t, err)
	require.Equal(t, []byte{1}, value)

	value, err = snap.Get([]byte("B"))
	require.NoError(t, err)
	require.Equal(t, []byte{2}, value)

	value, err = snap.Get([]byte("C"))
	require.NoError(t, err)
	require.Nil(t, value)

	snap.store["D"] = item{deleted: true}
	value, err = snap.Get([]byte("D"))
	require.NoError(t, err)
	require.Nil(t, value)

	snap = NewOverlay(fake.NewBadSnapshot())
	_, err = snap.Get([]byte("A"))
	require.EqualError(t, err, fake.Err("parent"))
}

func TestSnapshot_Set(t *testing.T) {
	snap := NewSnapshot()

	require.NoError(t, snap.Set([]byte("A"), []byte{1}))
	require.Equal(t, item{value: []byte{1}}, snap.store["A"])
	require.Equal(t, 1, snap.Len())
}

func TestSnapshot_Delete(t *testing.T) {
	snap := NewSnapshot()
	snap.store["A"] = item{value: []byte{1}}

	require.NoError(t, snap.Delete([]byte("A")))
	require.Equal(t, item{deleted: true}, snap.store["A"])

	require.NoError(t, snap.Delete([]byte("B")))
	require.Equal(t, item{deleted: true}, snap.store["B"])
}

func TestSnapshot_Stage(t *testing.T) {
	snap := NewSnapshot()
	require.NoError(t, snap.Set([]byte("A"), []byte{1}))

	child, err := snap.Stage(func(s store.Snapshot) error {
		return s.Set([]byte("B"), []byte{2})
	})
	require.NoError(t, err)

	value, err := snap.Get([]byte("B"))
	require.NoError(t, err)
	require.Nil(t, value)

	value, err = child.Get([]byte("A"))
	require.NoError(t, err)
	require.Equal(t, []byte{1}, value)

	_, err = snap.Stage(func(store.Snapshot) error {
		return fake.GetError()
	})
	require.Equal(t, fake.GetError(), err)
}

func TestSnapshot_Commit(t *testing.T) {
	parent := NewSnapshot()
	require.NoError(t, parent.Set([]byte("A"), []byte{1}))

	child := NewOverlay(parent)
	require.NoError(t, child.Set([]byte("B"), []byte{2}))
	require.NoError(t, child.Delete([]byte("A")))

	require.NoError(t, child.Commit())
	require.Equal(t, 0, child.Len())

	value, err := parent.Get([]byte("A"))
	require.NoError(t, err)
	require.Nil(t, value)

	value, err = parent.Get([]byte("B"))
	require.NoError(t, err)
	require.Equal(t, []byte{2}, value)

	err = NewSnapshot().Commit()
	require.EqualError(t, err, "missing parent")

	bad := fake.NewBadSnapshot()
	child = NewOverlay(bad)
	require.NoError(t, child.Set([]byte("A"), []byte{1}))
	err = child.Commit()
	require.EqualError(t, err, fake.Err("failed to apply key 0x41"))
}

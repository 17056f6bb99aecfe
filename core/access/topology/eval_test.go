package topology

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	keyA = PublicKey("A")
	keyB = PublicKey("B")
	keyC = PublicKey("C")
)

func TestIsSatisfied_SimpleKey(t *testing.T) {
	key := NewSimpleKey(keyA)

	require.True(t, IsSatisfied(key, NewKeySet(keyA)))
	require.True(t, IsSatisfied(key, NewKeySet(keyB, keyA)))
	require.False(t, IsSatisfied(key, NewKeySet(keyB)))
	require.False(t, IsSatisfied(key, NewKeySet()))
	require.False(t, IsSatisfied(NewSimpleKey(nil), NewKeySet(PublicKey{})))
	require.False(t, IsSatisfied(nil, NewKeySet(keyA)))
}

func TestIsSatisfied_ThresholdKey(t *testing.T) {
	key := NewThresholdKey(2, NewSimpleKey(keyA), NewSimpleKey(keyB), NewSimpleKey(keyC))

	require.False(t, IsSatisfied(key, NewKeySet()))
	require.False(t, IsSatisfied(key, NewKeySet(keyA)))
	require.True(t, IsSatisfied(key, NewKeySet(keyA, keyC)))
	require.True(t, IsSatisfied(key, NewKeySet(keyA, keyB, keyC)))

	require.True(t, IsSatisfied(NewThresholdKey(0), NewKeySet()))
	require.True(t, IsSatisfied(NewThresholdKey(0, NewSimpleKey(keyA)), NewKeySet()))
	require.False(t, IsSatisfied(NewThresholdKey(2, NewSimpleKey(keyA)), NewKeySet(keyA)))
}

func TestIsSatisfied_KeyList(t *testing.T) {
	key := NewKeyList(NewSimpleKey(keyA), NewSimpleKey(keyB))

	require.True(t, IsSatisfied(key, NewKeySet(keyA, keyB)))
	require.False(t, IsSatisfied(key, NewKeySet(keyA)))
	require.True(t, IsSatisfied(NewKeyList(), NewKeySet()))
}

func TestIsSatisfied_Nested(t *testing.T) {
	// (A and B) or C, with the key A reused by two children.
	key := NewThresholdKey(1,
		NewKeyList(NewSimpleKey(keyA), NewSimpleKey(keyB)),
		NewSimpleKey(keyC),
	)

	require.True(t, IsSatisfied(key, NewKeySet(keyC)))
	require.True(t, IsSatisfied(key, NewKeySet(keyA, keyB)))
	require.False(t, IsSatisfied(key, NewKeySet(keyA)))

	overlap := NewThresholdKey(2, NewSimpleKey(keyA), NewKeyList(NewSimpleKey(keyA)))
	require.True(t, IsSatisfied(overlap, NewKeySet(keyA)))

	withNil := NewThresholdKey(1, nil, NewSimpleKey(keyA))
	require.True(t, IsSatisfied(withNil, NewKeySet(keyA)))
	require.False(t, IsSatisfied(NewKeyList(nil), NewKeySet(keyA)))
}

func TestIsSatisfied_DeepStructure(t *testing.T) {
	var key Key = NewSimpleKey(keyA)
	for i := 0; i < 10000; i++ {
		key = NewKeyList(key)
	}

	require.True(t, IsSatisfied(key, NewKeySet(keyA)))
	require.False(t, IsSatisfied(key, NewKeySet(keyB)))
	require.Equal(t, 10001, Depth(key))
}

func TestAllSatisfied(t *testing.T) {
	require.True(t, AllSatisfied(nil, NewKeySet()))

	keys := []Key{NewSimpleKey(keyA), NewSimpleKey(keyB)}
	require.True(t, AllSatisfied(keys, NewKeySet(keyA, keyB)))
	require.False(t, AllSatisfied(keys, NewKeySet(keyA)))
}

func TestDepth(t *testing.T) {
	require.Equal(t, 1, Depth(NewSimpleKey(keyA)))
	require.Equal(t, 1, Depth(NewKeyList()))
	require.Equal(t, 3, Depth(NewThresholdKey(1,
		NewSimpleKey(keyA),
		NewKeyList(NewSimpleKey(keyB)),
	)))
}

func TestValidate(t *testing.T) {
	key := NewThresholdKey(1, NewKeyList(NewSimpleKey(keyA)))

	require.NoError(t, Validate(key, 3))
	require.NoError(t, Validate(key, 0))

	err := Validate(key, 2)
	require.EqualError(t, err, "depth 3 exceeds 2")

	err = Validate(NewKeyList(NewSimpleKey(nil)), 0)
	require.EqualError(t, err, "empty public key")

	err = Validate(NewKeyList(nil), 0)
	require.Equal(t, ErrNilKey, err)

	err = Validate(nil, 0)
	require.Equal(t, ErrNilKey, err)
}

func TestKeys(t *testing.T) {
	key := NewThresholdKey(1,
		NewSimpleKey(keyA),
		NewKeyList(NewSimpleKey(keyB), NewSimpleKey(keyC)),
	)

	require.Equal(t, []PublicKey{keyA, keyB, keyC}, Keys(key))
}

func TestKeySet(t *testing.T) {
	set := NewKeySet(keyB, keyA)

	require.False(t, set.Add(keyA))
	require.True(t, set.Add(keyC))
	require.True(t, set.Contains(keyC))
	require.Equal(t, 3, set.Len())
	require.Equal(t, []PublicKey{keyA, keyB, keyC}, set.Sorted())
}

func TestPublicKey_String(t *testing.T) {
	require.Equal(t, "41", keyA.String())
	require.True(t, keyA.Equal(PublicKey("A")))
}

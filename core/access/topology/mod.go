// Package topology defines the key structures that authorize an action and the
// evaluation of a set of signatures against them.
//
// A key structure is a tree made of three kinds of nodes:
//   - a simple key, satisfied when its public key signed;
//   - a threshold key, satisfied when at least N of its children are;
//   - a key list, satisfied when all of its children are.
//
// The evaluation walks the tree with an explicit stack so that the call stack
// does not grow with the nesting depth. It is deterministic and free of side
// effects, as every replica evaluates the same structures independently.
//
// Documentation Last Review: 14.10.2026
//
package topology

import (
	"bytes"
	"encoding/hex"
	"sort"
)

// PublicKey is the binary representation of a public key.
type PublicKey []byte

// String implements fmt.Stringer. It returns the hexadecimal form of the key.
func (pk PublicKey) String() string {
	return hex.EncodeToString(pk)
}

// Equal returns true if both keys have the same bytes.
func (pk PublicKey) Equal(other PublicKey) bool {
	return bytes.Equal(pk, other)
}

// Key is the interface of a node in a key structure. The set of
// implementations is closed.
type Key interface {
	isKey()
}

// SimpleKey is a leaf of a key structure.
//
// - implements topology.Key
type SimpleKey struct {
	PublicKey PublicKey
}

// NewSimpleKey returns a leaf for the public key.
func NewSimpleKey(pk PublicKey) SimpleKey {
	return SimpleKey{PublicKey: pk}
}

func (SimpleKey) isKey() {}

// ThresholdKey is satisfied when at least Threshold of its children are
// satisfied.
//
// - implements topology.Key
type ThresholdKey struct {
	Threshold uint32
	Keys      []Key
}

// NewThresholdKey returns a threshold node with the children in order.
func NewThresholdKey(threshold uint32, keys ...Key) ThresholdKey {
	return ThresholdKey{Threshold: threshold, Keys: keys}
}

func (ThresholdKey) isKey() {}

// KeyList is satisfied when all of its children are satisfied.
//
// - implements topology.Key
type KeyList struct {
	Keys []Key
}

// NewKeyList returns a list node with the children in order.
func NewKeyList(keys ...Key) KeyList {
	return KeyList{Keys: keys}
}

func (KeyList) isKey() {}

// KeySet is a set of public keys. The order of insertion does not matter.
type KeySet map[string]struct{}

// NewKeySet returns a set populated with the keys.
func NewKeySet(keys ...PublicKey) KeySet {
	set := make(KeySet, len(keys))
	for _, key := range keys {
		set.Add(key)
	}

	return set
}

// Add inserts the key and returns true if it was not already in the set.
func (s KeySet) Add(key PublicKey) bool {
	_, found := s[string(key)]
	if found {
		return false
	}

	s[string(key)] = struct{}{}

	return true
}

// Contains returns true if the key is in the set.
func (s KeySet) Contains(key PublicKey) bool {
	_, found := s[string(key)]
	return found
}

// Len returns the number of keys in the set.
func (s KeySet) Len() int {
	return len(s)
}

// Sorted returns the keys of the set in the lexicographic order of their
// bytes.
func (s KeySet) Sorted() []PublicKey {
	keys := make([]string, 0, len(s))
	for key := range s {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	res := make([]PublicKey, len(keys))
	for i, key := range keys {
		res[i] = PublicKey(key)
	}

	return res
}

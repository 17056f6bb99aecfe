// Package prefixed implements a namespaced view over a store. Each namespace
// writes its keys as the digest of the namespace and the key, so that the
// account and the value stores can share the ledger snapshot of a step
// without colliding.
package prefixed

import (
	"encoding/binary"

	"go.dedis.ch/delay/core/store"
	"go.dedis.ch/delay/crypto"
)

// readable is a namespaced read-only view.
//
// - implements store.Readable
type readable struct {
	parent    store.Readable
	namespace []byte
}

// NewReadable returns a read-only view of the namespace.
func NewReadable(namespace string, r store.Readable) store.Readable {
	return readable{parent: r, namespace: []byte(namespace)}
}

// Get implements store.Readable. It returns the value of the key in the
// namespace, or nil if it is not set.
func (r readable) Get(key []byte) ([]byte, error) {
	return r.parent.Get(Key(r.namespace, key))
}

// snapshot is a namespaced view that can be written.
//
// - implements store.Snapshot
type snapshot struct {
	readable

	parent store.Snapshot
}

// NewSnapshot returns a view of the namespace that writes to the snapshot.
func NewSnapshot(namespace string, snap store.Snapshot) store.Snapshot {
	return snapshot{
		readable: readable{parent: snap, namespace: []byte(namespace)},
		parent:   snap,
	}
}

// Set implements store.Writable. It sets the key of the namespace.
func (s snapshot) Set(key []byte, value []byte) error {
	return s.parent.Set(Key(s.namespace, key), value)
}

// Delete implements store.Writable. It removes the key of the namespace.
func (s snapshot) Delete(key []byte) error {
	return s.parent.Delete(Key(s.namespace, key))
}

// Key returns the key as it is written in the parent store. Both parts are
// length-prefixed so that two different splits of the same bytes never
// produce the same key.
func Key(namespace, key []byte) []byte {
	h := crypto.NewHashFactory(crypto.Sha256).New()

	for _, part := range [][]byte{namespace, key} {
		length := make([]byte, 2)
		binary.LittleEndian.PutUint16(length, uint16(len(part)))

		h.Write(length)
		h.Write(part)
	}

	return h.Sum(nil)
}

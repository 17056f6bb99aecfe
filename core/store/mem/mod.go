// Package mem implements an in-memory snapshot that can be staged on top of
// another snapshot.
//
// A staged snapshot records the updates and the deletions without touching its
// parent. The updates are applied to the parent only when the snapshot is
// committed, which allows one to discard the effects of a failed execution.
package mem

import (
	"sort"

	"go.dedis.ch/delay/core/store"
	"golang.org/x/xerrors"
)

type item struct {
	value   []byte
	deleted bool
}

// Snapshot is an in-memory implementation of a store snapshot. It saves the
// updates in an internal store and only keep the updates of the current
// snapshot. When reading, it'll look up by following the parent if the key is
// not found.
//
// - implements store.Snapshot
type Snapshot struct {
	parent store.Snapshot
	store  map[string]item
}

// NewSnapshot returns a new empty snapshot without parent.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		store: make(map[string]item),
	}
}

// NewOverlay returns a new snapshot staged on top of the parent.
func NewOverlay(parent store.Snapshot) *Snapshot {
	return &Snapshot{
		parent: parent,
		store:  make(map[string]item),
	}
}

// Get implements store.Readable. It returns the value of the key, or nil if it
// does not exist.
func (s *Snapshot) Get(key []byte) ([]byte, error) {
	it, found := s.store[string(key)]
	if found {
		if it.deleted {
			return nil, nil
		}

		return it.value, nil
	}

	if s.parent == nil {
		return nil, nil
	}

	val, err := s.parent.Get(key)
	if err != nil {
		return nil, xerrors.Errorf("parent: %v", err)
	}

	return val, nil
}

// Set implements store.Writable.
func (s *Snapshot) Set(key, value []byte) error {
	s.store[string(key)] = item{value: append([]byte{}, value...)}

	return nil
}

// Delete implements store.Writable.
func (s *Snapshot) Delete(key []byte) error {
	s.store[string(key)] = item{deleted: true}

	return nil
}

// Len returns the number of pending updates, deletions included.
func (s *Snapshot) Len() int {
	return len(s.store)
}

// Stage creates a child snapshot and runs the function on it. The child is
// returned only if the function succeeds.
func (s *Snapshot) Stage(fn func(store.Snapshot) error) (*Snapshot, error) {
	child := NewOverlay(s)

	err := fn(child)
	if err != nil {
		return nil, err
	}

	return child, nil
}

// Commit applies the updates to the parent in the order of the keys, and
// clears the snapshot.
func (s *Snapshot) Commit() error {
	if s.parent == nil {
		return xerrors.New("missing parent")
	}

	keys := make([]string, 0, len(s.store))
	for key := range s.store {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	for _, key := range keys {
		it := s.store[key]

		var err error
		if it.deleted {
			err = s.parent.Delete([]byte(key))
		} else {
			err = s.parent.Set([]byte(key), it.value)
		}

		if err != nil {
			return xerrors.Errorf("failed to apply key %#x: %v", key, err)
		}
	}

	s.store = make(map[string]item)

	return nil
}

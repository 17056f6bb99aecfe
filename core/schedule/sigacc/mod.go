// Package sigacc implements the accumulator of the signatures collected by the
// pending schedules.
//
// The accumulator is a set of keys per schedule. Keys only get added while a
// schedule is pending, and the whole set is discarded once it is resolved.
package sigacc

import (
	"github.com/google/btree"
	"go.dedis.ch/delay/core/access/topology"
	"go.dedis.ch/delay/core/schedule/types"
)

const defaultTreeDegree = 32

// AddResult is the outcome of an addition.
type AddResult int

const (
	// Added means the key was not present.
	Added AddResult = iota
	// AlreadyPresent means the key was already collected.
	AlreadyPresent
)

type item struct {
	id  types.ID
	key string
}

func (i item) less(than item) bool {
	if i.id != than.id {
		return i.id < than.id
	}

	return i.key < than.key
}

// Accumulator holds the keys that signed each pending schedule.
type Accumulator struct {
	tree *btree.BTreeG[item]
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		tree: btree.NewG(defaultTreeDegree, item.less),
	}
}

// Add adds the key to the set of the schedule.
func (a *Accumulator) Add(id types.ID, key topology.PublicKey) AddResult {
	_, found := a.tree.ReplaceOrInsert(item{id: id, key: string(key)})
	if found {
		return AlreadyPresent
	}

	return Added
}

// Snapshot returns a copy of the set of keys of the schedule.
func (a *Accumulator) Snapshot(id types.ID) topology.KeySet {
	set := topology.NewKeySet()

	a.ascend(id, func(it item) {
		set[it.key] = struct{}{}
	})

	return set
}

// Keys returns the keys of the schedule in lexicographic order.
func (a *Accumulator) Keys(id types.ID) []topology.PublicKey {
	var keys []topology.PublicKey

	a.ascend(id, func(it item) {
		keys = append(keys, topology.PublicKey(it.key))
	})

	return keys
}

// Len returns the number of keys collected for the schedule.
func (a *Accumulator) Len(id types.ID) int {
	count := 0
	a.ascend(id, func(item) { count++ })

	return count
}

// Discard removes every key of the schedule.
func (a *Accumulator) Discard(id types.ID) {
	var items []item
	a.ascend(id, func(it item) {
		items = append(items, it)
	})

	for _, it := range items {
		a.tree.Delete(it)
	}
}

// Clone returns a copy of the accumulator. The copy is lazy and both can be
// modified independently.
func (a *Accumulator) Clone() *Accumulator {
	return &Accumulator{tree: a.tree.Clone()}
}

func (a *Accumulator) ascend(id types.ID, fn func(item)) {
	a.tree.AscendGreaterOrEqual(item{id: id}, func(it item) bool {
		if it.id != id {
			return false
		}

		fn(it)

		return true
	})
}

// Package expiry implements the index of the pending schedules ordered by
// their expiry.
//
// Entries are ordered by expiry and then by identifier, which gives every
// replica the same processing order when several schedules expire at the same
// consensus time.
package expiry

import (
	"time"

	"github.com/google/btree"
	"go.dedis.ch/delay/core/schedule/types"
)

const defaultTreeDegree = 16

// Entry is an item of the index.
type Entry struct {
	At time.Time
	ID types.ID
}

// Less returns true if the entry expires before the other one.
func (e Entry) Less(than Entry) bool {
	if e.At.Before(than.At) {
		return true
	}
	if than.At.Before(e.At) {
		return false
	}

	return e.ID < than.ID
}

// Scheduler is the index of the expiry of the pending schedules. The zero
// value is not usable.
type Scheduler struct {
	tree *btree.BTreeG[Entry]
}

// NewScheduler returns an empty index.
func NewScheduler() *Scheduler {
	return &Scheduler{
		tree: btree.NewG(defaultTreeDegree, Entry.Less),
	}
}

// Schedule adds the schedule to the index.
func (s *Scheduler) Schedule(id types.ID, at time.Time) {
	s.tree.ReplaceOrInsert(Entry{At: at, ID: id})
}

// Remove removes the schedule from the index. It returns false if the entry
// was not found.
func (s *Scheduler) Remove(id types.ID, at time.Time) bool {
	_, found := s.tree.Delete(Entry{At: at, ID: id})
	return found
}

// Due returns at most max entries whose expiry is less than or equal to the
// time, in order of expiry then identifier. A non-positive max returns every
// due entry. The entries are not removed.
func (s *Scheduler) Due(asOf time.Time, max int) []types.ID {
	var ids []types.ID

	s.tree.Ascend(func(e Entry) bool {
		if e.At.After(asOf) {
			return false
		}

		ids = append(ids, e.ID)

		return max <= 0 || len(ids) < max
	})

	return ids
}

// Next returns the earliest entry of the index, if any.
func (s *Scheduler) Next() (Entry, bool) {
	return s.tree.Min()
}

// Len returns the number of entries.
func (s *Scheduler) Len() int {
	return s.tree.Len()
}

// Clone returns a copy of the index. The copy is lazy and both indexes can be
// modified independently.
func (s *Scheduler) Clone() *Scheduler {
	return &Scheduler{tree: s.tree.Clone()}
}

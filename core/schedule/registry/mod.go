// Package registry implements the store of the schedule entries.
//
// The registry keeps the entries ordered by identifier, an index of the
// fingerprints of the pending entries to detect duplicates, and an index of
// the resolved entries ordered by the time they can be reaped. Each index is a
// copy-on-write tree so that a registry can be cloned at the beginning of a
// step and the clone discarded if the step fails.
//
// Documentation Last Review: 16.10.2026
//
package registry

import (
	"time"

	"github.com/google/btree"
	"go.dedis.ch/delay/core/access/topology"
	"go.dedis.ch/delay/core/execution"
	"go.dedis.ch/delay/core/schedule"
	"go.dedis.ch/delay/core/schedule/types"
	"golang.org/x/xerrors"
)

const defaultTreeDegree = 16

type dedupItem struct {
	digest string
	id     types.ID
}

func (i dedupItem) less(than dedupItem) bool {
	return i.digest < than.digest
}

type reapItem struct {
	at time.Time
	id types.ID
}

func (i reapItem) less(than reapItem) bool {
	if i.at.Before(than.at) {
		return true
	}
	if than.at.Before(i.at) {
		return false
	}

	return i.id < than.id
}

func entryLess(a, b types.Entry) bool {
	return a.ID < b.ID
}

// Registry is the store of the schedule entries.
type Registry struct {
	entries   *btree.BTreeG[types.Entry]
	dedup     *btree.BTreeG[dedupItem]
	retention *btree.BTreeG[reapItem]
	keep      time.Duration
	lastID    types.ID
	pending   int
}

// NewRegistry returns an empty registry that keeps the resolved entries for
// the retention period.
func NewRegistry(retention time.Duration) *Registry {
	return &Registry{
		entries:   btree.NewG(defaultTreeDegree, entryLess),
		dedup:     btree.NewG(defaultTreeDegree, dedupItem.less),
		retention: btree.NewG(defaultTreeDegree, reapItem.less),
		keep:      retention,
	}
}

// Create inserts the entry with a new identifier, unless a pending entry has
// the same fingerprint. In that case the identifier of the existing entry is
// returned with created set to false.
func (r *Registry) Create(entry types.Entry) (types.ID, bool, error) {
	digest, err := entry.Digest()
	if err != nil {
		return 0, false, xerrors.Errorf("failed to compute digest: %v", err)
	}

	existing, found := r.dedup.Get(dedupItem{digest: string(digest)})
	if found {
		return existing.id, false, nil
	}

	r.lastID++

	entry.ID = r.lastID
	entry.Status = types.StatusPending

	r.entries.ReplaceOrInsert(entry)
	r.dedup.ReplaceOrInsert(dedupItem{digest: string(digest), id: entry.ID})
	r.pending++

	return entry.ID, true, nil
}

// Get returns a copy of the entry.
func (r *Registry) Get(id types.ID) (types.Entry, error) {
	entry, found := r.entries.Get(types.Entry{ID: id})
	if !found {
		return types.Entry{}, xerrors.Errorf("%w: %v", schedule.ErrNotFound, id)
	}

	return entry.Clone(), nil
}

// Delete resolves the entry as deleted if the present keys satisfy its admin
// key. The signatures of the entry are frozen to the given keys.
func (r *Registry) Delete(id types.ID, present topology.KeySet, now time.Time,
	frozen []topology.PublicKey) error {

	entry, err := r.pendingEntry(id)
	if err != nil {
		return err
	}

	if entry.AdminKey == nil {
		return xerrors.Errorf("%w: %v", schedule.ErrImmutable, id)
	}

	if !topology.IsSatisfied(entry.AdminKey, present) {
		return xerrors.Errorf("%w: admin key of %v not satisfied", schedule.ErrNotAuthorized, id)
	}

	return r.resolve(entry, types.StatusDeleted, now, frozen)
}

// MarkExecuted resolves the entry as executed with the result.
func (r *Registry) MarkExecuted(id types.ID, res execution.Result, now time.Time,
	frozen []topology.PublicKey) error {

	entry, err := r.pendingEntry(id)
	if err != nil {
		return err
	}

	entry.Result = &res

	return r.resolve(entry, types.StatusExecuted, now, frozen)
}

// MarkExpired resolves the entry as expired.
func (r *Registry) MarkExpired(id types.ID, now time.Time, frozen []topology.PublicKey) error {
	entry, err := r.pendingEntry(id)
	if err != nil {
		return err
	}

	return r.resolve(entry, types.StatusExpired, now, frozen)
}

// RecordFailure saves a retryable failure on the pending entry.
func (r *Registry) RecordFailure(id types.ID, res execution.Result) error {
	entry, err := r.pendingEntry(id)
	if err != nil {
		return err
	}

	entry.LastFailure = &res

	r.entries.ReplaceOrInsert(entry)

	return nil
}

// Reap removes at most max resolved entries whose retention is over, in order
// of resolution. A non-positive max removes every such entry.
func (r *Registry) Reap(asOf time.Time, max int) []types.ID {
	var items []reapItem

	r.retention.Ascend(func(it reapItem) bool {
		if it.at.After(asOf) {
			return false
		}

		items = append(items, it)

		return max <= 0 || len(items) < max
	})

	ids := make([]types.ID, len(items))
	for i, it := range items {
		r.retention.Delete(it)
		r.entries.Delete(types.Entry{ID: it.id})
		ids[i] = it.id
	}

	return ids
}

// Restore inserts the entry as is, and makes sure that new identifiers are
// greater than its identifier.
func (r *Registry) Restore(entry types.Entry) error {
	if entry.ID == 0 {
		return xerrors.New("invalid identifier 0")
	}

	if r.entries.Has(types.Entry{ID: entry.ID}) {
		return xerrors.Errorf("entry %v already exists", entry.ID)
	}

	if entry.Status.Terminal() {
		r.retention.ReplaceOrInsert(reapItem{at: entry.ResolvedAt.Add(r.keep), id: entry.ID})
	} else {
		digest, err := entry.Digest()
		if err != nil {
			return xerrors.Errorf("failed to compute digest: %v", err)
		}

		r.dedup.ReplaceOrInsert(dedupItem{digest: string(digest), id: entry.ID})
		r.pending++
	}

	r.entries.ReplaceOrInsert(entry)

	if entry.ID > r.lastID {
		r.lastID = entry.ID
	}

	return nil
}

// ForEach calls the function for each entry in order of identifier until it
// returns false.
func (r *Registry) ForEach(fn func(types.Entry) bool) {
	r.entries.Ascend(func(entry types.Entry) bool {
		return fn(entry.Clone())
	})
}

// LastID returns the last identifier that was assigned.
func (r *Registry) LastID() types.ID {
	return r.lastID
}

// SetLastID sets the last assigned identifier. It is ignored if it is lower
// than the current one, so that identifiers are never reused.
func (r *Registry) SetLastID(id types.ID) {
	if id > r.lastID {
		r.lastID = id
	}
}

// Len returns the number of entries, pending and resolved.
func (r *Registry) Len() int {
	return r.entries.Len()
}

// Pending returns the number of pending entries.
func (r *Registry) Pending() int {
	return r.pending
}

// Clone returns a copy of the registry. The copy is lazy and both registries
// can be modified independently.
func (r *Registry) Clone() *Registry {
	clone := *r
	clone.entries = r.entries.Clone()
	clone.dedup = r.dedup.Clone()
	clone.retention = r.retention.Clone()

	return &clone
}

func (r *Registry) pendingEntry(id types.ID) (types.Entry, error) {
	entry, err := r.Get(id)
	if err != nil {
		return entry, err
	}

	if entry.Status.Terminal() {
		return entry, schedule.NewTerminalError(id, entry.Status)
	}

	return entry, nil
}

func (r *Registry) resolve(entry types.Entry, status types.Status, now time.Time,
	frozen []topology.PublicKey) error {

	digest, err := entry.Digest()
	if err != nil {
		return xerrors.Errorf("failed to compute digest: %v", err)
	}

	r.dedup.Delete(dedupItem{digest: string(digest)})

	entry.Status = status
	entry.ResolvedAt = now
	entry.Signatures = frozen
	entry.LastFailure = nil

	r.entries.ReplaceOrInsert(entry)
	r.retention.ReplaceOrInsert(reapItem{at: now.Add(r.keep), id: entry.ID})
	r.pending--

	return nil
}

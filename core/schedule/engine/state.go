package engine

import (
	"sort"
	"time"

	"go.dedis.ch/delay/core/access/topology"
	"go.dedis.ch/delay/core/schedule/expiry"
	"go.dedis.ch/delay/core/schedule/registry"
	"go.dedis.ch/delay/core/schedule/sigacc"
	"go.dedis.ch/delay/core/schedule/types"
	"go.dedis.ch/delay/core/store/mem"
	"golang.org/x/xerrors"
)

// state is the whole schedule state. It is never modified once it is visible
// to the readers.
type state struct {
	registry *registry.Registry
	sigs     *sigacc.Accumulator
	expiry   *expiry.Scheduler
	time     time.Time
}

func newState(retention time.Duration) *state {
	return &state{
		registry: registry.NewRegistry(retention),
		sigs:     sigacc.NewAccumulator(),
		expiry:   expiry.NewScheduler(),
	}
}

func (s *state) clone() *state {
	return &state{
		registry: s.registry.Clone(),
		sigs:     s.sigs.Clone(),
		expiry:   s.expiry.Clone(),
		time:     s.time,
	}
}

// restore inserts an entry read from the storage. The signatures of a pending
// entry are moved to the accumulator.
func (s *state) restore(entry types.Entry) error {
	if !entry.Status.Terminal() {
		for _, key := range entry.Signatures {
			s.sigs.Add(entry.ID, key)
		}

		entry.Signatures = nil

		s.expiry.Schedule(entry.ID, entry.Expiry)
	}

	err := s.registry.Restore(entry)
	if err != nil {
		return xerrors.Errorf("failed to restore %v: %v", entry.ID, err)
	}

	return nil
}

// step is a modification of a copy of the state. The copy replaces the state
// only if every operation of the step succeeds.
type step struct {
	*state

	now  time.Time
	snap *mem.Snapshot

	touched  map[types.ID]struct{}
	resolved []types.ID
	reaped   []types.ID
	created  bool
	sweep    int
}

func (st *step) touch(id types.ID) {
	st.touched[id] = struct{}{}
}

// touchedIDs returns the identifiers of the entries to write, in order.
func (st *step) touchedIDs() []types.ID {
	ids := make([]types.ID, 0, len(st.touched))
	for id := range st.touched {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids
}

// resolve freezes the signatures of the pending entry, applies the transition
// and removes the entry from the accumulator and the expiry index.
func (st *step) resolve(entry types.Entry, mark func(frozen []topology.PublicKey) error) error {
	err := mark(st.sigs.Keys(entry.ID))
	if err != nil {
		return err
	}

	st.sigs.Discard(entry.ID)
	st.expiry.Remove(entry.ID, entry.Expiry)

	st.touch(entry.ID)
	st.resolved = append(st.resolved, entry.ID)

	return nil
}

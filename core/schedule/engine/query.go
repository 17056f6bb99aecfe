package engine

import (
	"time"

	"go.dedis.ch/delay/core/schedule/types"
)

// GetScheduleInfo returns a copy of the schedule. The signatures of a pending
// schedule are the ones collected so far.
func (e *Engine) GetScheduleInfo(id types.ID) (types.Entry, error) {
	e.RLock()
	defer e.RUnlock()

	entry, err := e.state.registry.Get(id)
	if err != nil {
		return entry, err
	}

	if !entry.Status.Terminal() {
		entry.Signatures = e.state.sigs.Keys(id)
	}

	return entry, nil
}

// IsExecuted returns true if the schedule was executed and is still retained.
func (e *Engine) IsExecuted(id types.ID) bool {
	_, ok := e.resolvedAt(id, types.StatusExecuted)
	return ok
}

// IsDeleted returns true if the schedule was deleted and is still retained.
func (e *Engine) IsDeleted(id types.ID) bool {
	_, ok := e.resolvedAt(id, types.StatusDeleted)
	return ok
}

// WasExecutedAt returns the consensus time of the execution of the schedule,
// if it was executed.
func (e *Engine) WasExecutedAt(id types.ID) (time.Time, bool) {
	return e.resolvedAt(id, types.StatusExecuted)
}

// WasDeletedAt returns the consensus time of the deletion of the schedule, if
// it was deleted.
func (e *Engine) WasDeletedAt(id types.ID) (time.Time, bool) {
	return e.resolvedAt(id, types.StatusDeleted)
}

// Pending returns the identifiers of the pending schedules in order.
func (e *Engine) Pending() []types.ID {
	e.RLock()
	defer e.RUnlock()

	var ids []types.ID

	e.state.registry.ForEach(func(entry types.Entry) bool {
		if !entry.Status.Terminal() {
			ids = append(ids, entry.ID)
		}

		return true
	})

	return ids
}

// Time returns the consensus time of the last step.
func (e *Engine) Time() time.Time {
	e.RLock()
	defer e.RUnlock()

	return e.state.time
}

func (e *Engine) resolvedAt(id types.ID, status types.Status) (time.Time, bool) {
	e.RLock()
	defer e.RUnlock()

	entry, err := e.state.registry.Get(id)
	if err != nil || entry.Status != status {
		return time.Time{}, false
	}

	return entry.ResolvedAt, true
}

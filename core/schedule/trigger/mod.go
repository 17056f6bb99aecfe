// Package trigger implements the execution of the inner transaction of a
// schedule once its required keys are satisfied.
package trigger

import (
	"go.dedis.ch/delay/core/access/topology"
	"go.dedis.ch/delay/core/execution"
	"go.dedis.ch/delay/core/schedule"
	"go.dedis.ch/delay/core/schedule/types"
	"go.dedis.ch/delay/core/store"
	"go.dedis.ch/delay/core/store/mem"
	"golang.org/x/xerrors"
)

// Ready returns true if every required key structure of the entry is satisfied
// by the present keys.
func Ready(entry types.Entry, present topology.KeySet) bool {
	return topology.AllSatisfied(entry.RequiredKeys, present)
}

// Trigger dispatches the inner transactions to the execution service.
type Trigger struct {
	exec execution.Service
}

// NewTrigger returns a trigger that uses the execution service.
func NewTrigger(exec execution.Service) Trigger {
	return Trigger{exec: exec}
}

// Fire executes the inner transaction of the entry on a staged copy of the
// snapshot. The changes are applied to the snapshot only when the execution
// is accepted. A rejected execution is reported in the result, and an error is
// returned when the entry is resolved or when the execution could not run.
func (t Trigger) Fire(snap store.Snapshot, entry types.Entry) (execution.Result, error) {
	if entry.Status.Terminal() {
		return execution.Result{}, schedule.NewTerminalError(entry.ID, entry.Status)
	}

	overlay := mem.NewOverlay(snap)

	res, err := t.exec.Execute(overlay, entry.Payer, entry.Inner.Kind, entry.Inner.Body)
	if err != nil {
		return execution.Result{}, xerrors.Errorf("failed to execute %v: %v", entry.ID, err)
	}

	if !res.Accepted {
		return res, nil
	}

	err = overlay.Commit()
	if err != nil {
		return execution.Result{}, xerrors.Errorf("failed to commit: %v", err)
	}

	return res, nil
}

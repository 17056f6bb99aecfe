// Package core implements the tools shared by the components of the engine.
//
// Documentation Last Review: 18.10.2026
//
package core

import (
	"sync"
	"time"

	"go.dedis.ch/delay/core/execution"
	"go.dedis.ch/delay/core/schedule/types"
)

// Resolution is the event of a schedule reaching a terminal status.
type Resolution struct {
	ID     types.ID
	Status types.Status
	Payer  string
	At     time.Time
	Result *execution.Result
}

// Observer is the interface to implement to watch the resolutions.
type Observer interface {
	NotifyResolution(event Resolution)
}

// Watcher keeps a list of observers and notifies them of the resolutions.
type Watcher struct {
	sync.RWMutex

	observers map[Observer]struct{}
}

// NewWatcher creates a new empty watcher.
func NewWatcher() *Watcher {
	return &Watcher{
		observers: make(map[Observer]struct{}),
	}
}

// Add adds the observer to the list of observers that will be notified of
// new resolutions.
func (w *Watcher) Add(observer Observer) {
	w.Lock()
	w.observers[observer] = struct{}{}
	w.Unlock()
}

// Remove removes the observer from the list thus stopping it from receiving
// new resolutions.
func (w *Watcher) Remove(observer Observer) {
	w.Lock()
	delete(w.observers, observer)
	w.Unlock()
}

// Len returns the number of observers.
func (w *Watcher) Len() int {
	w.RLock()
	defer w.RUnlock()

	return len(w.observers)
}

// Notify notifies the observers of the resolutions, in order, one observer
// after the other.
func (w *Watcher) Notify(events ...Resolution) {
	w.RLock()
	defer w.RUnlock()

	for _, event := range events {
		for obs := range w.observers {
			obs.NotifyResolution(event)
		}
	}
}

// Package engine implements the scheduled transaction engine.
//
// The engine is the state transition function of the schedules. Every
// operation is applied as one step on a copy of the state, and the copy
// replaces the state once the step is persisted. The inner transactions are
// executed on a staged copy of the ledger snapshot of the step, which is
// applied to the snapshot only after the database transaction is committed.
//
// Time only moves forward. Each operation carries the consensus time of its
// step, and an operation older than the previous one is rejected.
//
// Documentation Last Review: 17.10.2026
//
package engine

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.dedis.ch/delay"
	"go.dedis.ch/delay/core"
	"go.dedis.ch/delay/core/access/topology"
	"go.dedis.ch/delay/core/execution"
	"go.dedis.ch/delay/core/schedule"
	"go.dedis.ch/delay/core/schedule/config"
	_ "go.dedis.ch/delay/core/schedule/json"
	"go.dedis.ch/delay/core/schedule/sigacc"
	"go.dedis.ch/delay/core/schedule/trigger"
	"go.dedis.ch/delay/core/schedule/types"
	"go.dedis.ch/delay/core/store"
	"go.dedis.ch/delay/core/store/kv"
	"go.dedis.ch/delay/core/store/mem"
	"go.dedis.ch/delay/serde"
	"go.dedis.ch/delay/serde/json"
	"golang.org/x/xerrors"
)

// Engine is the scheduled transaction engine.
type Engine struct {
	sync.RWMutex

	cfg      config.Config
	exec     execution.Service
	resolver schedule.SignerResolver
	trigger  trigger.Trigger
	watcher  *core.Watcher

	state *state

	db      kv.DB
	context serde.Context
	fac     types.EntryFactory
	logger  zerolog.Logger
}

type engineTemplate struct {
	db      kv.DB
	context serde.Context
	logger  zerolog.Logger
}

// Option is the type of option to create an engine.
type Option func(*engineTemplate)

// WithDB sets the database where the schedules are persisted. The engine
// restores its state from the database when it is created.
func WithDB(db kv.DB) Option {
	return func(tmpl *engineTemplate) {
		tmpl.db = db
	}
}

// WithSerdeContext sets the context used to serialize the entries in the
// database.
func WithSerdeContext(ctx serde.Context) Option {
	return func(tmpl *engineTemplate) {
		tmpl.context = ctx
	}
}

// WithLogger sets the logger of the engine.
func WithLogger(logger zerolog.Logger) Option {
	return func(tmpl *engineTemplate) {
		tmpl.logger = logger
	}
}

// NewEngine returns a new engine. The execution service runs the inner
// transactions and the resolver returns the key structures of the accounts.
func NewEngine(cfg config.Config, exec execution.Service,
	resolver schedule.SignerResolver, opts ...Option) (*Engine, error) {

	err := cfg.Validate()
	if err != nil {
		return nil, xerrors.Errorf("invalid configuration: %v", err)
	}

	tmpl := engineTemplate{
		context: json.NewContext(),
		logger:  delay.Logger.With().Str("component", "schedule").Logger(),
	}

	for _, opt := range opts {
		opt(&tmpl)
	}

	e := &Engine{
		cfg:      cfg,
		exec:     exec,
		resolver: resolver,
		trigger:  trigger.NewTrigger(exec),
		watcher:  core.NewWatcher(),
		state:    newState(cfg.Retention),
		db:       tmpl.db,
		context:  tmpl.context,
		fac:      types.NewEntryFactory(),
		logger:   tmpl.logger,
	}

	if e.db != nil {
		err = e.load()
		if err != nil {
			return nil, xerrors.Errorf("failed to load: %v", err)
		}
	}

	promPending.Set(float64(e.state.registry.Pending()))

	return e, nil
}

// Watch adds an observer that is notified of every schedule resolution once
// the step is persisted. The observers are notified while the engine is locked
// and therefore must not call it.
func (e *Engine) Watch(obs core.Observer) {
	e.watcher.Add(obs)
}

// Unwatch removes the observer.
func (e *Engine) Unwatch(obs core.Observer) {
	e.watcher.Remove(obs)
}

// Create creates a schedule for the request. If a pending schedule already
// exists for the same payer, inner transaction and requested expiry, nothing
// is created and the result points to the existing schedule. The signatures
// of the request are added to the new schedule and the inner transaction is
// executed if they satisfy the required keys.
func (e *Engine) Create(snap store.Snapshot, s types.Step, spec types.Spec) (schedule.CreateResult, error) {
	e.Lock()
	defer e.Unlock()

	if snap == nil {
		return schedule.CreateResult{}, xerrors.New("missing snapshot")
	}

	st, err := e.begin(snap, s)
	if err != nil {
		return schedule.CreateResult{}, err
	}

	entry, err := e.prepare(st, spec)
	if err != nil {
		return schedule.CreateResult{}, err
	}

	id, created, err := st.registry.Create(entry)
	if err != nil {
		return schedule.CreateResult{}, xerrors.Errorf("failed to create: %v", err)
	}

	if !created {
		// The duplicate may be expired while the sweep has not reached it yet,
		// in which case it is expired now and the new entry replaces it.
		id, created, err = e.replaceExpired(st, id, entry)
		if err != nil {
			return schedule.CreateResult{}, err
		}
	}

	res := schedule.CreateResult{ID: id, Status: types.StatusPending}

	if !created {
		res.Duplicate = true

		err = e.commit(st)
		if err != nil {
			return schedule.CreateResult{}, err
		}

		return res, nil
	}

	entry.ID = id

	st.created = true
	st.touch(id)
	st.expiry.Schedule(id, entry.Expiry)

	for _, key := range spec.Signatures {
		st.sigs.Add(id, key)
	}

	if trigger.Ready(entry, st.sigs.Snapshot(id)) {
		exec, err := e.attempt(st, entry)
		if err != nil {
			return schedule.CreateResult{}, err
		}

		if !exec.Retryable || exec.Accepted {
			res.Status = types.StatusExecuted
		}
	}

	err = e.commit(st)
	if err != nil {
		return schedule.CreateResult{}, err
	}

	return res, nil
}

// replaceExpired expires the existing entry if its expiry is reached and
// creates the entry in its place. Otherwise the existing entry is kept.
func (e *Engine) replaceExpired(st *step, existing types.ID, entry types.Entry) (types.ID, bool, error) {
	prev, err := st.registry.Get(existing)
	if err != nil {
		return 0, false, xerrors.Errorf("inconsistent duplicate index: %v", err)
	}

	if st.now.Before(prev.Expiry) {
		return existing, false, nil
	}

	err = st.resolve(prev, func(frozen []topology.PublicKey) error {
		return st.registry.MarkExpired(prev.ID, st.now, frozen)
	})
	if err != nil {
		return 0, false, xerrors.Errorf("failed to expire %v: %v", prev.ID, err)
	}

	id, created, err := st.registry.Create(entry)
	if err != nil {
		return 0, false, xerrors.Errorf("failed to create: %v", err)
	}

	return id, created, nil
}

// Sign adds the keys to the signatures of the schedule. The inner transaction
// is executed when a new key was added, or when the previous execution failed
// with a transient error, and the signatures satisfy the required keys. An
// execution failure does not fail the request but resolves the schedule with
// the failure as result.
func (e *Engine) Sign(snap store.Snapshot, s types.Step, id types.ID,
	keys []topology.PublicKey) (schedule.SignResult, error) {

	e.Lock()
	defer e.Unlock()

	if snap == nil {
		return schedule.SignResult{}, xerrors.New("missing snapshot")
	}

	if len(keys) == 0 {
		return schedule.SignResult{}, schedule.NewValidationError(schedule.ErrInvalidSpec, "no signature")
	}

	for _, key := range keys {
		if len(key) == 0 {
			return schedule.SignResult{}, schedule.NewValidationError(schedule.ErrInvalidSpec, "empty signature key")
		}
	}

	st, err := e.begin(snap, s)
	if err != nil {
		return schedule.SignResult{}, err
	}

	entry, err := e.pending(st, id)
	if err != nil {
		return schedule.SignResult{}, err
	}

	res := schedule.SignResult{Status: types.StatusPending}

	for _, key := range keys {
		if st.sigs.Add(id, key) == sigacc.Added {
			res.Added++
		}
	}

	if res.Added > 0 {
		st.touch(id)
	}

	if (res.Added > 0 || entry.LastFailure != nil) && trigger.Ready(entry, st.sigs.Snapshot(id)) {
		exec, err := e.attempt(st, entry)
		if err != nil {
			return schedule.SignResult{}, err
		}

		res.Result = &exec

		if !exec.Retryable || exec.Accepted {
			res.Status = types.StatusExecuted
		}
	}

	err = e.commit(st)
	if err != nil {
		return schedule.SignResult{}, err
	}

	return res, nil
}

// Delete resolves the schedule as deleted if the keys satisfy its admin key.
func (e *Engine) Delete(snap store.Snapshot, s types.Step, id types.ID, keys []topology.PublicKey) error {
	e.Lock()
	defer e.Unlock()

	st, err := e.begin(snap, s)
	if err != nil {
		return err
	}

	entry, err := e.pending(st, id)
	if err != nil {
		return err
	}

	present := topology.NewKeySet(keys...)

	err = st.resolve(entry, func(frozen []topology.PublicKey) error {
		return st.registry.Delete(id, present, st.now, frozen)
	})
	if err != nil {
		return err
	}

	return e.commit(st)
}

// AdvanceTime expires the pending schedules whose expiry is reached and reaps
// the resolved schedules whose retention is over. At most the configured cap
// of schedules is expired, and separately reaped, per call. It returns the
// identifiers of the expired schedules in order of expiry.
func (e *Engine) AdvanceTime(snap store.Snapshot, now time.Time) ([]types.ID, error) {
	e.Lock()
	defer e.Unlock()

	st, err := e.begin(snap, types.Step{Time: now})
	if err != nil {
		return nil, err
	}

	due := st.expiry.Due(st.now, e.cfg.SweepCap)

	for _, id := range due {
		entry, err := st.registry.Get(id)
		if err != nil {
			return nil, xerrors.Errorf("inconsistent expiry index: %v", err)
		}

		err = st.resolve(entry, func(frozen []topology.PublicKey) error {
			return st.registry.MarkExpired(id, st.now, frozen)
		})
		if err != nil {
			return nil, xerrors.Errorf("failed to expire %v: %v", id, err)
		}
	}

	st.sweep = len(due)
	st.reaped = st.registry.Reap(st.now, e.cfg.SweepCap)

	err = e.commit(st)
	if err != nil {
		return nil, err
	}

	return due, nil
}

// begin starts a step on a copy of the state.
func (e *Engine) begin(snap store.Snapshot, s types.Step) (*step, error) {
	now := s.Time.UTC()

	if now.Before(e.state.time) {
		return nil, schedule.NewValidationError(schedule.ErrTimeRegression,
			"%v is before %v", now, e.state.time)
	}

	st := &step{
		state:   e.state.clone(),
		now:     now,
		touched: make(map[types.ID]struct{}),
	}

	if snap != nil {
		st.snap = mem.NewOverlay(snap)
	}

	return st, nil
}

// commit persists the step and replaces the state.
func (e *Engine) commit(st *step) error {
	st.time = st.now

	if e.db == nil {
		err := e.apply(st)
		if err != nil {
			return xerrors.Errorf("failed to commit: %v", err)
		}

		e.state = st.state
		e.report(st)

		return nil
	}

	err := e.persist(st)
	if err != nil {
		return xerrors.Errorf("failed to commit: %v", err)
	}

	// The schedules are durable at this point, so the state follows the
	// database even when the ledger cannot be updated.
	e.state = st.state

	err = e.apply(st)
	if err != nil {
		e.logger.Error().Err(err).Msg("ledger not updated after the schedules were persisted")
		return xerrors.Errorf("failed to commit: %v", err)
	}

	e.report(st)

	return nil
}

// apply applies the changes of the inner transactions to the ledger snapshot.
func (e *Engine) apply(st *step) error {
	if st.snap == nil {
		return nil
	}

	err := st.snap.Commit()
	if err != nil {
		return xerrors.Errorf("failed to apply snapshot: %v", err)
	}

	return nil
}

// pending returns the entry if it can still be signed or deleted.
func (e *Engine) pending(st *step, id types.ID) (types.Entry, error) {
	entry, err := st.registry.Get(id)
	if err != nil {
		return entry, err
	}

	if entry.Status.Terminal() {
		return entry, schedule.NewTerminalError(id, entry.Status)
	}

	// The entry may still wait for the sweep, but it is already expired.
	if !st.now.Before(entry.Expiry) {
		return entry, schedule.NewTerminalError(id, types.StatusExpired)
	}

	return entry, nil
}

// attempt executes the inner transaction of the entry. The entry is resolved
// unless the failure is transient.
func (e *Engine) attempt(st *step, entry types.Entry) (execution.Result, error) {
	res, err := e.trigger.Fire(st.snap, entry)
	if err != nil {
		return res, xerrors.Errorf("failed to trigger %v: %v", entry.ID, err)
	}

	if !res.Accepted {
		promFailures.WithLabelValues(res.Code).Inc()
	}

	st.touch(entry.ID)

	if !res.Accepted && res.Retryable {
		err = st.registry.RecordFailure(entry.ID, res)
		if err != nil {
			return res, xerrors.Errorf("failed to record failure: %v", err)
		}

		e.logger.Debug().
			Stringer("id", entry.ID).
			Str("code", res.Code).
			Msg("transient execution failure")

		return res, nil
	}

	err = st.resolve(entry, func(frozen []topology.PublicKey) error {
		return st.registry.MarkExecuted(entry.ID, res, st.now, frozen)
	})
	if err != nil {
		return res, xerrors.Errorf("failed to resolve: %v", err)
	}

	return res, nil
}

// report updates the metrics and writes the audit lines of the step.
func (e *Engine) report(st *step) {
	if st.created {
		promCreated.Inc()
	}

	if st.sweep > 0 {
		promSweep.Observe(float64(st.sweep))
	}

	promPending.Set(float64(st.registry.Pending()))

	events := make([]core.Resolution, 0, len(st.resolved))

	for _, id := range st.resolved {
		entry, err := st.registry.Get(id)
		if err != nil {
			// Reaped in the same step.
			continue
		}

		promResolved.WithLabelValues(entry.Status.String()).Inc()

		signers := make([]string, len(entry.Signatures))
		for i, key := range entry.Signatures {
			signers[i] = key.String()
		}

		event := e.logger.Info().
			Str("audit", "resolution").
			Stringer("id", entry.ID).
			Stringer("status", entry.Status).
			Str("payer", entry.Payer).
			Time("at", entry.ResolvedAt).
			Strs("signers", signers)

		if entry.Result != nil {
			event = event.Bool("accepted", entry.Result.Accepted).Str("code", entry.Result.Code)
		}

		event.Msg("schedule resolved")

		events = append(events, core.Resolution{
			ID:     entry.ID,
			Status: entry.Status,
			Payer:  entry.Payer,
			At:     entry.ResolvedAt,
			Result: entry.Result,
		})
	}

	e.watcher.Notify(events...)

	if len(st.reaped) > 0 {
		e.logger.Debug().Int("count", len(st.reaped)).Msg("schedules reaped")
	}
}

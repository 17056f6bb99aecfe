package engine

import (
	"encoding/binary"
	"time"

	"go.dedis.ch/delay/core/schedule/types"
	"go.dedis.ch/delay/core/store/kv"
	"golang.org/x/xerrors"
)

var (
	entriesBucket = []byte("schedules")
	metaBucket    = []byte("schedules.meta")

	lastIDKey = []byte("last_id")
	timeKey   = []byte("time")
)

func idKey(id types.ID) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(id))

	return key
}

// load restores the state from the database.
func (e *Engine) load() error {
	st := newState(e.cfg.Retention)

	err := e.db.View(func(txn kv.ReadableTx) error {
		bucket := txn.GetBucket(entriesBucket)
		if bucket != nil {
			err := bucket.ForEach(func(key, value []byte) error {
				entry, err := e.fac.EntryOf(e.context, value)
				if err != nil {
					return xerrors.Errorf("failed to read entry %#x: %v", key, err)
				}

				return st.restore(entry)
			})
			if err != nil {
				return err
			}
		}

		meta := txn.GetBucket(metaBucket)
		if meta == nil {
			return nil
		}

		value := meta.Get(lastIDKey)
		if len(value) == 8 {
			st.registry.SetLastID(types.ID(binary.BigEndian.Uint64(value)))
		}

		value = meta.Get(timeKey)
		if len(value) == 8 {
			st.time = time.Unix(0, int64(binary.BigEndian.Uint64(value))).UTC()
		}

		return nil
	})

	if err != nil {
		return err
	}

	e.state = st

	e.logger.Info().
		Int("entries", st.registry.Len()).
		Int("pending", st.registry.Pending()).
		Msg("schedules restored")

	return nil
}

// persist writes the entries of the step in a single transaction. The ledger
// changes are applied by the caller once the transaction is committed.
func (e *Engine) persist(st *step) error {
	return e.db.Update(func(txn kv.WritableTx) error {
		bucket, err := txn.GetBucketOrCreate(entriesBucket)
		if err != nil {
			return xerrors.Errorf("failed to get bucket: %v", err)
		}

		ids := st.touchedIDs()

		for _, id := range ids {
			entry, err := st.registry.Get(id)
			if err != nil {
				// Reaped in the same step.
				continue
			}

			if !entry.Status.Terminal() {
				entry.Signatures = st.sigs.Keys(id)
			}

			data, err := entry.Serialize(e.context)
			if err != nil {
				return xerrors.Errorf("failed to serialize %v: %v", id, err)
			}

			err = bucket.Set(idKey(id), data)
			if err != nil {
				return xerrors.Errorf("failed to write %v: %v", id, err)
			}
		}

		for _, id := range st.reaped {
			err = bucket.Delete(idKey(id))
			if err != nil {
				return xerrors.Errorf("failed to delete %v: %v", id, err)
			}
		}

		meta, err := txn.GetBucketOrCreate(metaBucket)
		if err != nil {
			return xerrors.Errorf("failed to get bucket: %v", err)
		}

		err = meta.Set(lastIDKey, idKey(st.registry.LastID()))
		if err != nil {
			return xerrors.Errorf("failed to write last id: %v", err)
		}

		if !st.time.IsZero() {
			buffer := make([]byte, 8)
			binary.BigEndian.PutUint64(buffer, uint64(st.time.UnixNano()))

			err = meta.Set(timeKey, buffer)
			if err != nil {
				return xerrors.Errorf("failed to write time: %v", err)
			}
		}

		txn.OnCommit(func() {
			e.logger.Debug().
				Time("time", st.time).
				Int("written", len(ids)).
				Int("deleted", len(st.reaped)).
				Msg("step persisted")
		})

		return nil
	})
}

package engine

import (
	"go.dedis.ch/delay/core/access/topology"
	"go.dedis.ch/delay/core/schedule"
	"go.dedis.ch/delay/core/schedule/types"
	"golang.org/x/xerrors"
)

// prepare validates the request and returns the entry to create. The required
// keys are the key of the payer followed by the keys of the accounts that the
// handler of the inner transaction requires.
func (e *Engine) prepare(st *step, spec types.Spec) (types.Entry, error) {
	if spec.Creator == "" {
		return types.Entry{}, schedule.NewValidationError(schedule.ErrInvalidSpec, "missing creator")
	}

	if spec.Inner.Kind == "" {
		return types.Entry{}, schedule.NewValidationError(schedule.ErrInvalidSpec, "missing transaction kind")
	}

	if len(spec.Memo) > e.cfg.MaxMemoLength {
		return types.Entry{}, schedule.NewValidationError(schedule.ErrMemoTooLong,
			"%d > %d", len(spec.Memo), e.cfg.MaxMemoLength)
	}

	if !e.exec.Supports(spec.Inner.Kind) {
		return types.Entry{}, schedule.NewValidationError(schedule.ErrNotSupported,
			"'%s'", spec.Inner.Kind)
	}

	if spec.AdminKey != nil {
		err := e.validateKey(spec.AdminKey)
		if err != nil {
			return types.Entry{}, xerrors.Errorf("invalid admin key: %w", err)
		}
	}

	for _, key := range spec.Signatures {
		if len(key) == 0 {
			return types.Entry{}, schedule.NewValidationError(schedule.ErrInvalidSpec, "empty signature key")
		}
	}

	expiry := st.now.Add(e.cfg.DefaultExpiry)

	requested := spec.Expiry
	if !requested.IsZero() {
		requested = requested.UTC()

		if !requested.After(st.now) {
			return types.Entry{}, schedule.NewValidationError(schedule.ErrInvalidExpiry,
				"%v is not after %v", requested, st.now)
		}

		if requested.After(st.now.Add(e.cfg.MaxExpiry)) {
			return types.Entry{}, schedule.NewValidationError(schedule.ErrInvalidExpiry,
				"%v is beyond the horizon of %v", requested, e.cfg.MaxExpiry)
		}

		expiry = requested
	}

	payer := spec.Payer
	if payer == "" {
		payer = spec.Creator
	}

	required, err := e.requiredKeys(st, payer, spec.Inner)
	if err != nil {
		return types.Entry{}, err
	}

	entry := types.Entry{
		Inner: types.InnerTx{
			Kind: spec.Inner.Kind,
			Body: append([]byte(nil), spec.Inner.Body...),
		},
		Payer:           payer,
		Creator:         spec.Creator,
		AdminKey:        spec.AdminKey,
		RequiredKeys:    required,
		RequestedExpiry: requested,
		Expiry:          expiry,
		Status:          types.StatusPending,
		Memo:            spec.Memo,
		CreatedAt:       st.now,
	}

	return entry, nil
}

func (e *Engine) requiredKeys(st *step, payer string, inner types.InnerTx) ([]topology.Key, error) {
	signers, err := e.exec.Signers(inner.Kind, inner.Body)
	if err != nil {
		return nil, schedule.NewValidationError(schedule.ErrInvalidSpec, "%v", err)
	}

	seen := map[string]struct{}{}

	var keys []topology.Key

	for _, account := range append([]string{payer}, signers...) {
		if _, found := seen[account]; found {
			continue
		}

		seen[account] = struct{}{}

		key, err := e.resolver.KeyOf(st.snap, account)
		if err != nil {
			return nil, xerrors.Errorf("%w: '%s': %v", schedule.ErrUnresolvableSigners, account, err)
		}

		err = e.validateKey(key)
		if err != nil {
			return nil, xerrors.Errorf("invalid key of '%s': %w", account, err)
		}

		keys = append(keys, key)
	}

	return keys, nil
}

func (e *Engine) validateKey(key topology.Key) error {
	if topology.Depth(key) > e.cfg.MaxKeyDepth {
		return schedule.NewValidationError(schedule.ErrKeyTooDeep,
			"depth %d exceeds %d", topology.Depth(key), e.cfg.MaxKeyDepth)
	}

	err := topology.Validate(key, 0)
	if err != nil {
		return schedule.NewValidationError(schedule.ErrInvalidSpec, "%v", err)
	}

	return nil
}

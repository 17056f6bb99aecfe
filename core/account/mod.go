// Package account defines the ledger accounts that pay for and authorize the
// scheduled transactions.
//
// An account is stored in the snapshot under a dedicated prefix. It owns a key
// structure, a balance and the balances of the tokens it is associated with.
// The package also provides the resolver that turns account identifiers into
// the key structures that must sign a schedule.
//
// Documentation Last Review: 15.10.2026
//
package account

import (
	"go.dedis.ch/delay/core/access/topology"
	"go.dedis.ch/delay/core/store"
	"go.dedis.ch/delay/core/store/prefixed"
	"go.dedis.ch/delay/serde"
	"go.dedis.ch/delay/serde/registry"
	"golang.org/x/xerrors"
)

// Prefix is the prefix of the keyspace of the accounts in the snapshot.
const Prefix = "accounts"

var (
	// ErrNotFound is returned when an account does not exist.
	ErrNotFound = xerrors.New("account not found")

	// ErrInsufficientBalance is returned when a debit exceeds the balance.
	ErrInsufficientBalance = xerrors.New("insufficient balance")

	// ErrOverflow is returned when a credit overflows the balance.
	ErrOverflow = xerrors.New("balance overflow")

	// ErrNotAssociated is returned when the account does not hold the token.
	ErrNotAssociated = xerrors.New("token not associated")
)

var msgFormats = registry.NewSimpleRegistry()

// RegisterMessageFormat registers the engine for the provided format.
func RegisterMessageFormat(f serde.Format, e serde.FormatEngine) {
	msgFormats.Register(f, e)
}

// Account is the state of a ledger account.
//
// - implements serde.Message
type Account struct {
	ID      string
	Key     topology.Key
	Balance uint64
	Tokens  map[string]uint64
}

// Serialize implements serde.Message. It returns the serialized data of the
// account.
func (a Account) Serialize(ctx serde.Context) ([]byte, error) {
	format := msgFormats.Get(ctx.GetFormat())

	data, err := format.Encode(ctx, a)
	if err != nil {
		return nil, xerrors.Errorf("failed to encode account: %v", err)
	}

	return data, nil
}

// TokenBalance returns the balance of the token, or zero if the account does
// not hold it.
func (a Account) TokenBalance(token string) uint64 {
	return a.Tokens[token]
}

// Factory is the factory of accounts.
//
// - implements serde.Factory
type Factory struct{}

// Deserialize implements serde.Factory. It populates the account from the data
// if appropriate, otherwise it returns an error.
func (Factory) Deserialize(ctx serde.Context, data []byte) (serde.Message, error) {
	format := msgFormats.Get(ctx.GetFormat())

	msg, err := format.Decode(ctx, data)
	if err != nil {
		return nil, xerrors.Errorf("failed to decode account: %v", err)
	}

	return msg, nil
}

// Store reads and writes the accounts of a snapshot.
type Store struct {
	ctx serde.Context
	fac Factory
}

// NewStore returns a store that serializes the accounts with the context.
func NewStore(ctx serde.Context) Store {
	return Store{ctx: ctx}
}

// Get returns the account of the snapshot. It returns ErrNotFound if the
// account does not exist.
func (s Store) Get(snap store.Readable, id string) (Account, error) {
	data, err := prefixed.NewReadable(Prefix, snap).Get([]byte(id))
	if err != nil {
		return Account{}, xerrors.Errorf("failed to read account: %v", err)
	}

	if data == nil {
		return Account{}, xerrors.Errorf("%w: '%s'", ErrNotFound, id)
	}

	msg, err := s.fac.Deserialize(s.ctx, data)
	if err != nil {
		return Account{}, xerrors.Errorf("failed to deserialize: %v", err)
	}

	acc, ok := msg.(Account)
	if !ok {
		return Account{}, xerrors.Errorf("invalid message of type '%T'", msg)
	}

	return acc, nil
}

// Set writes the account to the snapshot.
func (s Store) Set(snap store.Snapshot, acc Account) error {
	if acc.ID == "" {
		return xerrors.New("empty account identifier")
	}

	data, err := acc.Serialize(s.ctx)
	if err != nil {
		return xerrors.Errorf("failed to serialize: %v", err)
	}

	err = prefixed.NewSnapshot(Prefix, snap).Set([]byte(acc.ID), data)
	if err != nil {
		return xerrors.Errorf("failed to write account: %v", err)
	}

	return nil
}

// Debit removes the amount from the balance of the account. It returns
// ErrInsufficientBalance and leaves the snapshot untouched if the balance is
// too low.
func (s Store) Debit(snap store.Snapshot, id string, amount uint64) error {
	acc, err := s.Get(snap, id)
	if err != nil {
		return err
	}

	if acc.Balance < amount {
		return xerrors.Errorf("%w: %d < %d", ErrInsufficientBalance, acc.Balance, amount)
	}

	acc.Balance -= amount

	return s.Set(snap, acc)
}

// Credit adds the amount to the balance of the account.
func (s Store) Credit(snap store.Snapshot, id string, amount uint64) error {
	acc, err := s.Get(snap, id)
	if err != nil {
		return err
	}

	if acc.Balance+amount < acc.Balance {
		return xerrors.Errorf("%w: '%s'", ErrOverflow, id)
	}

	acc.Balance += amount

	return s.Set(snap, acc)
}

// DebitToken removes the amount from the token balance of the account.
func (s Store) DebitToken(snap store.Snapshot, id, token string, amount uint64) error {
	acc, err := s.Get(snap, id)
	if err != nil {
		return err
	}

	balance, found := acc.Tokens[token]
	if !found {
		return xerrors.Errorf("%w: '%s' to '%s'", ErrNotAssociated, token, id)
	}

	if balance < amount {
		return xerrors.Errorf("%w: %d < %d of '%s'", ErrInsufficientBalance, balance, amount, token)
	}

	acc.Tokens[token] = balance - amount

	return s.Set(snap, acc)
}

// CreditToken adds the amount to the token balance of the account. The account
// must already be associated with the token.
func (s Store) CreditToken(snap store.Snapshot, id, token string, amount uint64) error {
	acc, err := s.Get(snap, id)
	if err != nil {
		return err
	}

	balance, found := acc.Tokens[token]
	if !found {
		return xerrors.Errorf("%w: '%s' to '%s'", ErrNotAssociated, token, id)
	}

	if balance+amount < balance {
		return xerrors.Errorf("%w: '%s' of '%s'", ErrOverflow, token, id)
	}

	acc.Tokens[token] = balance + amount

	return s.Set(snap, acc)
}

// Resolver resolves the key structures of the accounts of a snapshot.
//
// - implements schedule.SignerResolver
type Resolver struct {
	store Store
}

// NewResolver returns a resolver that reads the accounts with the store.
func NewResolver(store Store) Resolver {
	return Resolver{store: store}
}

// KeyOf implements schedule.SignerResolver. It returns the key structure of the
// account, or an error if the account does not exist or has no key.
func (r Resolver) KeyOf(snap store.Readable, id string) (topology.Key, error) {
	acc, err := r.store.Get(snap, id)
	if err != nil {
		return nil, err
	}

	if acc.Key == nil {
		return nil, xerrors.Errorf("account '%s' has no key", id)
	}

	return acc.Key, nil
}

package account_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/delay/core/access/topology"
	"go.dedis.ch/delay/core/account"
	_ "go.dedis.ch/delay/core/account/json"
	"go.dedis.ch/delay/core/store/mem"
	"go.dedis.ch/delay/internal/testing/fake"
	"go.dedis.ch/delay/serde"
	"go.dedis.ch/delay/serde/cbor"
	"go.dedis.ch/delay/serde/json"
	"golang.org/x/xerrors"
)

func TestStore_SetGet(t *testing.T) {
	for _, ctx := range []serde.Context{json.NewContext(), cbor.NewContext()} {
		store := account.NewStore(ctx)
		snap := mem.NewSnapshot()

		acc := account.Account{
			ID:      "alice",
			Key:     topology.NewSimpleKey([]byte("A")),
			Balance: 10,
			Tokens:  map[string]uint64{"tok": 5},
		}

		require.NoError(t, store.Set(snap, acc))

		res, err := store.Get(snap, "alice")
		require.NoError(t, err)
		require.Equal(t, acc, res)
		require.Equal(t, uint64(5), res.TokenBalance("tok"))
		require.Equal(t, uint64(0), res.TokenBalance("none"))

		// The account lives in its own keyspace.
		value, err := snap.Get([]byte("alice"))
		require.NoError(t, err)
		require.Nil(t, value)
	}
}

func TestStore_Get_Errors(t *testing.T) {
	store := account.NewStore(json.NewContext())

	_, err := store.Get(mem.NewSnapshot(), "alice")
	require.True(t, xerrors.Is(err, account.ErrNotFound))
	require.EqualError(t, err, "account not found: 'alice'")

	_, err = store.Get(fake.NewBadSnapshot(), "alice")
	require.EqualError(t, err, fake.Err("failed to read account"))

	snap := mem.NewSnapshot()
	require.NoError(t, store.Set(snap, account.Account{ID: "alice"}))

	store = account.NewStore(fake.NewBadContext())
	_, err = store.Get(snap, "alice")
	require.EqualError(t, err,
		fake.Err("failed to deserialize: failed to decode account: failed to unmarshal"))
}

func TestStore_Set_Errors(t *testing.T) {
	store := account.NewStore(json.NewContext())

	err := store.Set(mem.NewSnapshot(), account.Account{})
	require.EqualError(t, err, "empty account identifier")

	err = store.Set(fake.NewBadSnapshot(), account.Account{ID: "alice"})
	require.EqualError(t, err, fake.Err("failed to write account"))

	store = account.NewStore(fake.NewBadContext())
	err = store.Set(mem.NewSnapshot(), account.Account{ID: "alice"})
	require.EqualError(t, err,
		fake.Err("failed to serialize: failed to encode account: failed to marshal"))
}

func TestStore_DebitCredit(t *testing.T) {
	store := account.NewStore(json.NewContext())
	snap := mem.NewSnapshot()

	require.NoError(t, store.Set(snap, account.Account{ID: "alice", Balance: 10}))

	require.NoError(t, store.Debit(snap, "alice", 4))
	require.NoError(t, store.Credit(snap, "alice", 1))

	acc, err := store.Get(snap, "alice")
	require.NoError(t, err)
	require.Equal(t, uint64(7), acc.Balance)

	err = store.Debit(snap, "alice", 8)
	require.True(t, xerrors.Is(err, account.ErrInsufficientBalance))
	require.EqualError(t, err, "insufficient balance: 7 < 8")

	require.NoError(t, store.Set(snap, account.Account{ID: "bob", Balance: ^uint64(0)}))
	err = store.Credit(snap, "bob", 1)
	require.True(t, xerrors.Is(err, account.ErrOverflow))
	require.EqualError(t, err, "balance overflow: 'bob'")

	err = store.Debit(snap, "none", 1)
	require.True(t, xerrors.Is(err, account.ErrNotFound))
}

func TestStore_Tokens(t *testing.T) {
	store := account.NewStore(json.NewContext())
	snap := mem.NewSnapshot()

	require.NoError(t, store.Set(snap, account.Account{
		ID:     "alice",
		Tokens: map[string]uint64{"tok": 3},
	}))

	require.NoError(t, store.DebitToken(snap, "alice", "tok", 2))
	require.NoError(t, store.CreditToken(snap, "alice", "tok", 5))

	acc, err := store.Get(snap, "alice")
	require.NoError(t, err)
	require.Equal(t, uint64(6), acc.TokenBalance("tok"))

	err = store.DebitToken(snap, "alice", "tok", 7)
	require.True(t, xerrors.Is(err, account.ErrInsufficientBalance))

	err = store.DebitToken(snap, "alice", "other", 1)
	require.True(t, xerrors.Is(err, account.ErrNotAssociated))
	require.EqualError(t, err, "token not associated: 'other' to 'alice'")

	err = store.CreditToken(snap, "alice", "other", 1)
	require.True(t, xerrors.Is(err, account.ErrNotAssociated))

	require.NoError(t, store.CreditToken(snap, "alice", "tok", ^uint64(0)-6))
	err = store.CreditToken(snap, "alice", "tok", 1)
	require.True(t, xerrors.Is(err, account.ErrOverflow))

	err = store.CreditToken(snap, "none", "tok", 1)
	require.True(t, xerrors.Is(err, account.ErrNotFound))
}

func TestResolver_KeyOf(t *testing.T) {
	store := account.NewStore(json.NewContext())
	snap := mem.NewSnapshot()

	key := topology.NewThresholdKey(1, topology.NewSimpleKey([]byte("A")))

	require.NoError(t, store.Set(snap, account.Account{ID: "alice", Key: key}))
	require.NoError(t, store.Set(snap, account.Account{ID: "bob"}))

	resolver := account.NewResolver(store)

	res, err := resolver.KeyOf(snap, "alice")
	require.NoError(t, err)
	require.Equal(t, topology.ToDTO(key), topology.ToDTO(res))

	_, err = resolver.KeyOf(snap, "bob")
	require.EqualError(t, err, "account 'bob' has no key")

	_, err = resolver.KeyOf(snap, "none")
	require.True(t, xerrors.Is(err, account.ErrNotFound))
}

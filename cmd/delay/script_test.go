package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/delay/core/access/topology"
)

func TestParseScript(t *testing.T) {
	s, err := parseScript([]byte(`
start: 2026-01-01T00:00:00Z
accounts:
  - id: alice
    balance: 3
events:
  - at: 1m
    op: advance
`))
	require.NoError(t, err)
	require.Len(t, s.Accounts, 1)
	require.Len(t, s.Events, 1)

	start, err := s.startTime()
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), start)

	offset, err := s.Events[0].offset()
	require.NoError(t, err)
	require.Equal(t, time.Minute, offset)

	_, err = parseScript([]byte("unknown: field"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to unmarshal")

	_, err = script{Start: "yesterday"}.startTime()
	require.Error(t, err)

	start, err = script{}.startTime()
	require.NoError(t, err)
	require.Equal(t, time.Unix(0, 0).UTC(), start)

	_, err = eventSpec{At: "soon"}.offset()
	require.Error(t, err)
}

func TestKeyring_Key(t *testing.T) {
	keys := keyring{}

	a, err := keys.publicKey("a")
	require.NoError(t, err)

	again, err := keyring{}.publicKey("a")
	require.NoError(t, err)
	require.Equal(t, a, again)

	b, err := keys.publicKey("b")
	require.NoError(t, err)
	require.NotEqual(t, a, b)

	key, err := keys.key(&keySpec{
		Threshold: 1,
		Keys: []keySpec{
			{Signer: "a"},
			{Keys: []keySpec{{Signer: "b"}}},
		},
	})
	require.NoError(t, err)

	require.True(t, topology.IsSatisfied(key, topology.NewKeySet(a)))
	require.True(t, topology.IsSatisfied(key, topology.NewKeySet(b)))
	require.False(t, topology.IsSatisfied(key, topology.NewKeySet()))

	key, err = keys.key(nil)
	require.NoError(t, err)
	require.Nil(t, key)

	_, err = keys.key(&keySpec{})
	require.EqualError(t, err, "key without signer nor keys")

	_, err = keys.account(accountSpec{ID: "alice", Key: &keySpec{}})
	require.EqualError(t, err, "invalid key of 'alice': key without signer nor keys")
}

func TestSpecs_Conversion(t *testing.T) {
	tx := transferSpec{
		Transfers:      []moveSpec{{From: "a", To: "b", Amount: 1}},
		TokenTransfers: []moveSpec{{Token: "t", From: "b", To: "a", Amount: 2}},
	}.toTransfer()

	require.Len(t, tx.Moves, 1)
	require.Len(t, tx.Tokens, 1)
	require.Equal(t, "t", tx.Tokens[0].Token)

	req := valueSpec{Command: "DELETE", Owner: "a", Key: "k"}.toRequest()
	require.Nil(t, req.Value)
	require.Equal(t, "DELETE", string(req.Command))
}

package json

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/delay/core/access/topology"
	"go.dedis.ch/delay/core/account"
	"go.dedis.ch/delay/internal/testing/fake"
	"go.dedis.ch/delay/serde/json"
)

func TestAccountFormat_Encode(t *testing.T) {
	format := newFormat()
	ctx := json.NewContext()

	acc := account.Account{
		ID:      "alice",
		Key:     topology.NewSimpleKey([]byte("A")),
		Balance: 3,
	}

	data, err := format.Encode(ctx, acc)
	require.NoError(t, err)
	require.Equal(t, `{"id":"alice","key":{"type":"simple","key":"QQ=="},"balance":3}`, string(data))

	_, err = format.Encode(ctx, fake.Message{})
	require.EqualError(t, err, "unsupported message of type 'fake.Message'")

	_, err = format.Encode(fake.NewBadContext(), acc)
	require.EqualError(t, err, fake.Err("failed to marshal"))
}

func TestAccountFormat_Decode(t *testing.T) {
	format := newFormat()
	ctx := json.NewContext()

	msg, err := format.Decode(ctx, []byte(`{"id":"alice","balance":3,"tokens":{"tok":1}}`))
	require.NoError(t, err)
	require.Equal(t, account.Account{
		ID:      "alice",
		Balance: 3,
		Tokens:  map[string]uint64{"tok": 1},
	}, msg)

	_, err = format.Decode(ctx, []byte(`{"key":{"type":"unknown"}}`))
	require.EqualError(t, err, "invalid key: unknown key type 'unknown'")

	_, err = format.Decode(fake.NewBadContext(), nil)
	require.EqualError(t, err, fake.Err("failed to unmarshal"))
}

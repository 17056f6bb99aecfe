package cbor

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/delay/serde"
)

func TestCborEngine_GetFormat(t *testing.T) {
	ctx := NewContext()
	require.Equal(t, serde.FormatCBOR, ctx.GetFormat())
}

func TestCborEngine_MarshalUnmarshal(t *testing.T) {
	ctx := NewContext()

	type message struct {
		Value uint64 `json:"value"`
		Name  string `json:"name"`
	}

	data, err := ctx.Marshal(message{Value: 42, Name: "abc"})
	require.NoError(t, err)

	// Deterministic encoding must not depend on the call.
	again, err := ctx.Marshal(message{Value: 42, Name: "abc"})
	require.NoError(t, err)
	require.Equal(t, data, again)

	var m message
	err = ctx.Unmarshal(data, &m)
	require.NoError(t, err)
	require.Equal(t, message{Value: 42, Name: "abc"}, m)

	var raw map[string]interface{}
	require.NoError(t, ctx.Unmarshal(data, &raw))
	require.Contains(t, raw, "value")

	err = ctx.Unmarshal(nil, &m)
	require.Error(t, err)
}

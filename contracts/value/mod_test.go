package value

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/delay/core/execution"
	"go.dedis.ch/delay/core/store"
	"go.dedis.ch/delay/core/store/mem"
	"go.dedis.ch/delay/internal/testing/fake"
	"go.dedis.ch/delay/serde"
	"go.dedis.ch/delay/serde/cbor"
	"go.dedis.ch/delay/serde/json"
)

func TestHandler_Decode(t *testing.T) {
	for _, ctx := range []serde.Context{json.NewContext(), cbor.NewContext()} {
		h := NewHandler(ctx)

		req := Request{Command: CmdSet, Owner: "alice", Key: "a", Value: []byte("1")}

		body, err := req.Encode(ctx)
		require.NoError(t, err)

		p, err := h.Decode(body)
		require.NoError(t, err)
		require.Equal(t, req, p)
		require.Equal(t, []string{"alice"}, h.Signers(p))

		check := func(req Request, msg string) {
			body, err := req.Encode(ctx)
			require.NoError(t, err)

			_, err = h.Decode(body)
			require.EqualError(t, err, msg)
		}

		check(Request{Command: CmdSet, Key: "a"}, "missing owner")
		check(Request{Command: CmdSet, Owner: "alice"}, "missing key")
		check(Request{Command: CmdSet, Owner: "alice", Key: "a"}, "missing value")
		check(Request{Command: "READ", Owner: "alice", Key: "a"}, "unknown command: READ")
	}

	h := NewHandler(fake.NewBadContext())

	_, err := h.Decode(nil)
	require.EqualError(t, err, fake.Err("failed to unmarshal"))

	_, err = Request{}.Encode(fake.NewBadContext())
	require.EqualError(t, err, fake.Err("failed to marshal"))

	require.Nil(t, h.Signers("invalid"))
}

func TestHandler_Execute(t *testing.T) {
	h := NewHandler(json.NewContext())

	_, err := h.Execute(fake.NewSnapshot(), "alice", "invalid")
	require.EqualError(t, err, "invalid payload of type 'string'")

	h.cmd = fakeCmd{err: fake.GetError()}

	_, err = h.Execute(fake.NewSnapshot(), "alice", Request{Command: CmdSet})
	require.EqualError(t, err, fake.Err("failed to SET"))

	_, err = h.Execute(fake.NewSnapshot(), "alice", Request{Command: CmdDelete})
	require.EqualError(t, err, fake.Err("failed to DELETE"))

	_, err = h.Execute(fake.NewSnapshot(), "alice", Request{Command: "fake"})
	require.EqualError(t, err, "unknown command: fake")

	h.cmd = fakeCmd{}

	res, err := h.Execute(fake.NewSnapshot(), "alice", Request{Command: CmdSet})
	require.NoError(t, err)
	require.True(t, res.Accepted)
}

func TestCommand_Set(t *testing.T) {
	cmd := valueCommand{}
	snap := mem.NewSnapshot()

	res, err := cmd.set(snap, Request{Owner: "alice", Key: "a", Value: []byte("1")})
	require.NoError(t, err)
	require.True(t, res.Accepted)

	res, err = cmd.set(snap, Request{Owner: "alice", Key: "a", Value: []byte("2")})
	require.NoError(t, err)
	require.True(t, res.Accepted)

	res, err = cmd.set(snap, Request{Owner: "bob", Key: "a", Value: []byte("3")})
	require.NoError(t, err)
	require.Equal(t, execution.CodeUnauthorized, res.Code)

	value, owner, err := Read(snap, "a")
	require.NoError(t, err)
	require.Equal(t, []byte("2"), value)
	require.Equal(t, "alice", owner)

	_, err = cmd.set(fake.NewBadSnapshot(), Request{Key: "a"})
	require.EqualError(t, err, fake.Err("failed to read value"))

	bad := fake.NewBadSnapshot()
	bad.ErrRead = nil

	_, err = cmd.set(bad, Request{Key: "a"})
	require.EqualError(t, err, fake.Err("failed to set value"))
}

func TestCommand_Delete(t *testing.T) {
	cmd := valueCommand{}
	snap := mem.NewSnapshot()

	res, err := cmd.delete(snap, Request{Owner: "alice", Key: "a"})
	require.NoError(t, err)
	require.Equal(t, CodeValueNotFound, res.Code)

	_, err = cmd.set(snap, Request{Owner: "alice", Key: "a", Value: []byte("1")})
	require.NoError(t, err)

	res, err = cmd.delete(snap, Request{Owner: "bob", Key: "a"})
	require.NoError(t, err)
	require.Equal(t, execution.CodeUnauthorized, res.Code)

	res, err = cmd.delete(snap, Request{Owner: "alice", Key: "a"})
	require.NoError(t, err)
	require.True(t, res.Accepted)

	value, owner, err := Read(snap, "a")
	require.NoError(t, err)
	require.Nil(t, value)
	require.Equal(t, "", owner)

	_, err = cmd.delete(fake.NewBadSnapshot(), Request{Key: "a"})
	require.EqualError(t, err, fake.Err("failed to read value"))
}

// -----------------------------------------------------------------------------
// Utility functions

type fakeCmd struct {
	err error
}

func (c fakeCmd) set(snap store.Snapshot, req Request) (execution.Result, error) {
	return execution.Success(), c.err
}

func (c fakeCmd) delete(snap store.Snapshot, req Request) (execution.Result, error) {
	return execution.Success(), c.err
}

package trigger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/delay/core/access/topology"
	"go.dedis.ch/delay/core/execution"
	"go.dedis.ch/delay/core/schedule"
	"go.dedis.ch/delay/core/schedule/types"
	"go.dedis.ch/delay/core/store"
	"go.dedis.ch/delay/core/store/mem"
	"go.dedis.ch/delay/internal/testing/fake"
	"golang.org/x/xerrors"
)

func TestReady(t *testing.T) {
	entry := types.Entry{
		RequiredKeys: []topology.Key{
			topology.NewSimpleKey([]byte("A")),
			topology.NewThresholdKey(1,
				topology.NewSimpleKey([]byte("B")),
				topology.NewSimpleKey([]byte("C"))),
		},
	}

	require.False(t, Ready(entry, topology.NewKeySet([]byte("A"))))
	require.False(t, Ready(entry, topology.NewKeySet([]byte("B"))))
	require.True(t, Ready(entry, topology.NewKeySet([]byte("A"), []byte("C"))))
}

func TestTrigger_Fire_Accepted(t *testing.T) {
	exec := &fakeService{res: execution.Success()}
	trig := NewTrigger(exec)

	snap := mem.NewSnapshot()

	entry := types.Entry{ID: 1, Payer: "alice", Inner: types.InnerTx{Kind: "abc", Body: []byte("key")}}

	res, err := trig.Fire(snap, entry)
	require.NoError(t, err)
	require.True(t, res.Accepted)
	require.Equal(t, "alice", exec.payer)

	value, err := snap.Get([]byte("key"))
	require.NoError(t, err)
	require.Equal(t, []byte("alice"), value)
}

func TestTrigger_Fire_Rejected(t *testing.T) {
	for _, res := range []execution.Result{
		execution.Failure(execution.CodeInsufficientBalance, "no funds"),
		{Code: "BUSY", Retryable: true},
	} {
		trig := NewTrigger(&fakeService{res: res})

		snap := mem.NewSnapshot()

		out, err := trig.Fire(snap, types.Entry{ID: 1, Inner: types.InnerTx{Body: []byte("key")}})
		require.NoError(t, err)
		require.Equal(t, res, out)

		value, err := snap.Get([]byte("key"))
		require.NoError(t, err)
		require.Nil(t, value)
	}
}

func TestTrigger_Fire_Failures(t *testing.T) {
	exec := &fakeService{res: execution.Success()}
	trig := NewTrigger(exec)

	_, err := trig.Fire(mem.NewSnapshot(), types.Entry{ID: 2, Status: types.StatusExecuted})
	require.True(t, xerrors.Is(err, schedule.ErrAlreadyExecuted))
	require.Equal(t, 0, exec.calls)

	exec.err = fake.GetError()
	_, err = trig.Fire(mem.NewSnapshot(), types.Entry{ID: 2})
	require.EqualError(t, err, fake.Err("failed to execute #2"))

	exec.err = nil
	_, err = trig.Fire(fake.NewBadSnapshot(), types.Entry{ID: 2, Inner: types.InnerTx{Body: []byte("key")}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to commit")
}

// -----------------------------------------------------------------------------
// Utility functions

type fakeService struct {
	execution.Service

	res   execution.Result
	err   error
	calls int
	payer string
}

func (s *fakeService) Execute(snap store.Snapshot, payer, kind string,
	body []byte) (execution.Result, error) {

	s.calls++

	if s.err != nil {
		return execution.Result{}, s.err
	}

	s.payer = payer

	err := snap.Set(body, []byte(payer))
	if err != nil {
		return execution.Result{}, err
	}

	return s.res, nil
}

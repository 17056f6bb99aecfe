package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/delay/core/access/topology"
	"go.dedis.ch/delay/core/execution"
	"go.dedis.ch/delay/internal/testing/fake"
)

func TestID_String(t *testing.T) {
	require.Equal(t, "#42", ID(42).String())
}

func TestStatus_String(t *testing.T) {
	require.Equal(t, "PENDING", StatusPending.String())
	require.Equal(t, "EXECUTED", StatusExecuted.String())
	require.Equal(t, "DELETED", StatusDeleted.String())
	require.Equal(t, "EXPIRED", StatusExpired.String())
	require.Equal(t, "UNKNOWN", Status(99).String())

	require.False(t, StatusPending.Terminal())
	require.True(t, StatusExpired.Terminal())
}

func TestEntry_Clone(t *testing.T) {
	entry := Entry{
		ID:          1,
		Inner:       InnerTx{Kind: "abc", Body: []byte("body")},
		Signatures:  []topology.PublicKey{[]byte("A")},
		Result:      &execution.Result{Accepted: true},
		LastFailure: &execution.Result{Retryable: true},
	}

	clone := entry.Clone()
	require.Equal(t, entry, clone)

	clone.Inner.Body[0] = 'x'
	clone.Signatures[0][0] = 'x'
	clone.Result.Accepted = false
	clone.LastFailure.Retryable = false

	require.Equal(t, []byte("body"), entry.Inner.Body)
	require.Equal(t, topology.PublicKey("A"), entry.Signatures[0])
	require.True(t, entry.Result.Accepted)
	require.True(t, entry.LastFailure.Retryable)
}

func TestEntry_Digest(t *testing.T) {
	entry := Entry{
		ID:      1,
		Payer:   "alice",
		Creator: "bob",
		Inner:   InnerTx{Kind: "abc", Body: []byte("body")},
	}

	digest, err := entry.Digest()
	require.NoError(t, err)
	require.Len(t, digest, 32)

	// Fields out of the logical identity do not change the digest.
	other := entry
	other.ID = 2
	other.Creator = "carol"
	other.Memo = "memo"
	other.Expiry = time.Unix(100, 0)

	otherDigest, err := other.Digest()
	require.NoError(t, err)
	require.Equal(t, digest, otherDigest)

	other.RequestedExpiry = time.Unix(0, 0)
	otherDigest, err = other.Digest()
	require.NoError(t, err)
	require.NotEqual(t, digest, otherDigest)

	other = entry
	other.Payer = "alic"
	other.Inner.Kind = "eabc"
	otherDigest, err = other.Digest()
	require.NoError(t, err)
	require.NotEqual(t, digest, otherDigest)
}

func TestEntry_Fingerprint_Failures(t *testing.T) {
	entry := Entry{}

	err := entry.Fingerprint(fake.NewBadHash())
	require.EqualError(t, err, fake.Err("couldn't write length"))

	err = entry.Fingerprint(fake.NewBadHashWithDelay(1))
	require.EqualError(t, err, fake.Err("couldn't write field"))

	err = entry.Fingerprint(fake.NewBadHashWithDelay(6))
	require.EqualError(t, err, fake.Err("couldn't write expiry"))
}

func TestEntry_Serialize(t *testing.T) {
	RegisterMessageFormat(fake.GoodFormat, fake.Format{})
	RegisterMessageFormat(fake.BadFormat, fake.NewBadFormat())

	data, err := Entry{}.Serialize(fake.NewContextWithFormat(fake.GoodFormat))
	require.NoError(t, err)
	require.Equal(t, "fake format", string(data))

	_, err = Entry{}.Serialize(fake.NewContextWithFormat(fake.BadFormat))
	require.EqualError(t, err, fake.Err("failed to encode entry"))
}

func TestEntryFactory_Deserialize(t *testing.T) {
	RegisterMessageFormat(fake.GoodFormat, fake.Format{Msg: Entry{ID: 3}})
	RegisterMessageFormat(fake.BadFormat, fake.NewBadFormat())

	fac := NewEntryFactory()

	msg, err := fac.Deserialize(fake.NewContextWithFormat(fake.GoodFormat), nil)
	require.NoError(t, err)
	require.Equal(t, Entry{ID: 3}, msg)

	_, err = fac.Deserialize(fake.NewContextWithFormat(fake.BadFormat), nil)
	require.EqualError(t, err, fake.Err("failed to decode entry"))

	RegisterMessageFormat(fake.GoodFormat, fake.Format{Msg: fake.Message{}})
	_, err = fac.EntryOf(fake.NewContextWithFormat(fake.GoodFormat), nil)
	require.EqualError(t, err, "invalid entry of type 'fake.Message'")
}

package ed25519

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/delay/crypto"
)

func TestPublicKey_New(t *testing.T) {
	point := suite.Point()
	pointBuf, err := point.MarshalBinary()
	require.NoError(t, err)

	pubKey, err := NewPublicKey(pointBuf)
	require.NoError(t, err)

	require.True(t, pubKey.Equal(PublicKey{point: point}))

	_, err = NewPublicKey([]byte{})
	require.EqualError(t, err, "couldn't unmarshal point: invalid Ed25519 curve point")
}

func TestPublicKey_Verify(t *testing.T) {
	signer := NewSigner()

	sig, err := signer.Sign([]byte("deadbeef"))
	require.NoError(t, err)

	err = signer.GetPublicKey().Verify([]byte("deadbeef"), sig)
	require.NoError(t, err)

	err = signer.GetPublicKey().Verify([]byte("abc"), sig)
	require.EqualError(t, err, "schnorr verify failed: schnorr: invalid signature")

	err = signer.GetPublicKey().Verify([]byte("deadbeef"), fakeSignature{})
	require.EqualError(t, err, "invalid signature type 'ed25519.fakeSignature'")
}

func TestPublicKey_Equal(t *testing.T) {
	signer := NewSigner()

	require.True(t, signer.GetPublicKey().Equal(signer.GetPublicKey()))
	require.False(t, signer.GetPublicKey().Equal(NewSigner().GetPublicKey()))
	require.False(t, signer.GetPublicKey().Equal(struct{}{}))
}

func TestPublicKey_MarshalText(t *testing.T) {
	signer := NewSigner()

	text, err := signer.GetPublicKey().MarshalText()
	require.NoError(t, err)
	require.Contains(t, string(text), "schnorr:")

	require.Len(t, signer.GetPublicKey().(PublicKey).String(), 24)
}

func TestPublicKeyFactory_FromBytes(t *testing.T) {
	signer := NewSigner()

	data, err := signer.GetPublicKey().MarshalBinary()
	require.NoError(t, err)

	pk, err := NewPublicKeyFactory().FromBytes(data)
	require.NoError(t, err)
	require.True(t, pk.Equal(signer.GetPublicKey()))

	_, err = NewPublicKeyFactory().FromBytes(nil)
	require.EqualError(t, err,
		"failed to unmarshal the key: couldn't unmarshal point: invalid Ed25519 curve point")
}

func TestSignatureFactory_FromBytes(t *testing.T) {
	sig, err := NewSignatureFactory().FromBytes([]byte{1, 2})
	require.NoError(t, err)
	require.True(t, sig.Equal(NewSignature([]byte{1, 2})))
	require.False(t, sig.Equal(NewSignature([]byte{1})))

	_, err = NewSignatureFactory().FromBytes(nil)
	require.EqualError(t, err, "empty signature")
}

func TestSigner_FromSeed(t *testing.T) {
	a := NewSignerFromSeed([]byte("alice"))
	b := NewSignerFromSeed([]byte("alice"))
	c := NewSignerFromSeed([]byte("bob"))

	require.True(t, a.GetPublicKey().Equal(b.GetPublicKey()))
	require.False(t, a.GetPublicKey().Equal(c.GetPublicKey()))

	sig, err := a.Sign([]byte("ping"))
	require.NoError(t, err)
	require.NoError(t, b.GetPublicKey().Verify([]byte("ping"), sig))
}

// -----------------------------------------------------------------------------
// Utility functions

type fakeSignature struct {
	crypto.Signature
}

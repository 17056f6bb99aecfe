// Package gateway authenticates the operations submitted to the schedule
// engine.
//
// A client signs the digest of the inner transaction to create or sign a
// schedule, and the digest of the identifier to delete it. The gateway verifies
// every signature and only forwards the public keys of the valid ones. The
// engine never sees a key that did not sign.
package gateway

import (
	"encoding/binary"
	"io"

	"go.dedis.ch/delay/core/access/topology"
	"go.dedis.ch/delay/core/schedule"
	"go.dedis.ch/delay/core/schedule/types"
	"go.dedis.ch/delay/core/store"
	"go.dedis.ch/delay/crypto"
	"go.dedis.ch/delay/crypto/ed25519"
	"golang.org/x/xerrors"
)

// ErrInvalidSignature is the kind of the validation error returned when a
// signature does not verify.
var ErrInvalidSignature = xerrors.New("invalid signature")

var deleteTag = []byte("delete")

// Engine is the part of the engine that the gateway protects.
type Engine interface {
	Create(snap store.Snapshot, s types.Step, spec types.Spec) (schedule.CreateResult, error)
	Sign(snap store.Snapshot, s types.Step, id types.ID, keys []topology.PublicKey) (schedule.SignResult, error)
	Delete(snap store.Snapshot, s types.Step, id types.ID, keys []topology.PublicKey) error
	GetScheduleInfo(id types.ID) (types.Entry, error)
}

// Signed is a signature with the public key that produced it.
type Signed struct {
	PublicKey []byte
	Signature []byte
}

// Gateway verifies the signatures of the operations before they reach the
// engine.
type Gateway struct {
	engine Engine
	keys   crypto.PublicKeyFactory
	sigs   crypto.SignatureFactory
	hash   crypto.HashFactory
}

// Option is the type of option to create a gateway.
type Option func(*Gateway)

// WithHashFactory sets the hash factory of the digests.
func WithHashFactory(f crypto.HashFactory) Option {
	return func(g *Gateway) {
		g.hash = f
	}
}

// NewGateway returns a gateway in front of the engine. The signatures are
// verified as Ed25519 Schnorr signatures.
func NewGateway(engine Engine, opts ...Option) Gateway {
	g := Gateway{
		engine: engine,
		keys:   ed25519.NewPublicKeyFactory(),
		sigs:   ed25519.NewSignatureFactory(),
		hash:   crypto.NewSha256Factory(),
	}

	for _, opt := range opts {
		opt(&g)
	}

	return g
}

// Create verifies the signatures over the inner transaction of the request and
// creates the schedule with their keys. Keys already listed in the request are
// discarded.
func (g Gateway) Create(snap store.Snapshot, s types.Step, spec types.Spec,
	signed []Signed) (schedule.CreateResult, error) {

	digest, err := InnerDigest(g.hash, spec.Inner)
	if err != nil {
		return schedule.CreateResult{}, err
	}

	keys, err := g.verify(digest, signed)
	if err != nil {
		return schedule.CreateResult{}, err
	}

	spec.Signatures = keys

	return g.engine.Create(snap, s, spec)
}

// Sign verifies the signatures over the inner transaction of the schedule and
// adds their keys.
func (g Gateway) Sign(snap store.Snapshot, s types.Step, id types.ID,
	signed []Signed) (schedule.SignResult, error) {

	entry, err := g.engine.GetScheduleInfo(id)
	if err != nil {
		return schedule.SignResult{}, err
	}

	digest, err := InnerDigest(g.hash, entry.Inner)
	if err != nil {
		return schedule.SignResult{}, err
	}

	keys, err := g.verify(digest, signed)
	if err != nil {
		return schedule.SignResult{}, err
	}

	return g.engine.Sign(snap, s, id, keys)
}

// Delete verifies the signatures over the identifier and deletes the schedule
// with their keys.
func (g Gateway) Delete(snap store.Snapshot, s types.Step, id types.ID, signed []Signed) error {
	digest, err := DeleteDigest(g.hash, id)
	if err != nil {
		return err
	}

	keys, err := g.verify(digest, signed)
	if err != nil {
		return err
	}

	return g.engine.Delete(snap, s, id, keys)
}

func (g Gateway) verify(digest []byte, signed []Signed) ([]topology.PublicKey, error) {
	keys := make([]topology.PublicKey, len(signed))

	for i, s := range signed {
		pk, err := g.keys.FromBytes(s.PublicKey)
		if err != nil {
			return nil, schedule.NewValidationError(ErrInvalidSignature,
				"public key %d: %v", i, err)
		}

		sig, err := g.sigs.FromBytes(s.Signature)
		if err != nil {
			return nil, schedule.NewValidationError(ErrInvalidSignature,
				"signature %d: %v", i, err)
		}

		err = pk.Verify(digest, sig)
		if err != nil {
			return nil, schedule.NewValidationError(ErrInvalidSignature,
				"signature %d by %#x: %v", i, s.PublicKey, err)
		}

		keys[i] = topology.PublicKey(s.PublicKey)
	}

	return keys, nil
}

// InnerDigest returns the digest of the inner transaction that the signers of
// a schedule sign.
func InnerDigest(f crypto.HashFactory, inner types.InnerTx) ([]byte, error) {
	h := f.New()

	err := writeField(h, []byte(inner.Kind))
	if err != nil {
		return nil, xerrors.Errorf("failed to write kind: %v", err)
	}

	err = writeField(h, inner.Body)
	if err != nil {
		return nil, xerrors.Errorf("failed to write body: %v", err)
	}

	return h.Sum(nil), nil
}

// DeleteDigest returns the digest that the admins of a schedule sign to delete
// it.
func DeleteDigest(f crypto.HashFactory, id types.ID) ([]byte, error) {
	h := f.New()

	buffer := make([]byte, 8)
	binary.BigEndian.PutUint64(buffer, uint64(id))

	_, err := h.Write(append(append([]byte{}, deleteTag...), buffer...))
	if err != nil {
		return nil, xerrors.Errorf("failed to write identifier: %v", err)
	}

	return h.Sum(nil), nil
}

// SignInner returns the signature of the inner transaction by the signer.
func SignInner(signer crypto.Signer, inner types.InnerTx) (Signed, error) {
	digest, err := InnerDigest(crypto.NewSha256Factory(), inner)
	if err != nil {
		return Signed{}, err
	}

	return sign(signer, digest)
}

// SignDelete returns the signature of the deletion of the schedule by the
// signer.
func SignDelete(signer crypto.Signer, id types.ID) (Signed, error) {
	digest, err := DeleteDigest(crypto.NewSha256Factory(), id)
	if err != nil {
		return Signed{}, err
	}

	return sign(signer, digest)
}

func sign(signer crypto.Signer, digest []byte) (Signed, error) {
	pk, err := signer.GetPublicKey().MarshalBinary()
	if err != nil {
		return Signed{}, xerrors.Errorf("failed to marshal public key: %v", err)
	}

	sig, err := signer.Sign(digest)
	if err != nil {
		return Signed{}, xerrors.Errorf("failed to sign: %v", err)
	}

	data, err := sig.MarshalBinary()
	if err != nil {
		return Signed{}, xerrors.Errorf("failed to marshal signature: %v", err)
	}

	return Signed{PublicKey: pk, Signature: data}, nil
}

func writeField(w io.Writer, data []byte) error {
	buffer := make([]byte, 8)
	binary.BigEndian.PutUint64(buffer, uint64(len(data)))

	_, err := w.Write(buffer)
	if err != nil {
		return err
	}

	_, err = w.Write(data)

	return err
}

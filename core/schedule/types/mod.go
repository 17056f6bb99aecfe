// Package types defines the data model of the schedules.
package types

import (
	"encoding/binary"
	"io"
	"strconv"
	"time"

	"go.dedis.ch/delay/core/access/topology"
	"go.dedis.ch/delay/core/execution"
	"go.dedis.ch/delay/crypto"
	"go.dedis.ch/delay/serde"
	"go.dedis.ch/delay/serde/registry"
	"golang.org/x/xerrors"
)

var msgFormats = registry.NewSimpleRegistry()

// RegisterMessageFormat registers the engine for the provided format.
func RegisterMessageFormat(f serde.Format, e serde.FormatEngine) {
	msgFormats.Register(f, e)
}

// ID is the identifier of a schedule. Identifiers are assigned in increasing
// order and never reused.
type ID uint64

// String implements fmt.Stringer.
func (id ID) String() string {
	return "#" + strconv.FormatUint(uint64(id), 10)
}

// Status is the lifecycle status of a schedule.
type Status uint8

const (
	// StatusPending is the status of a schedule waiting for signatures.
	StatusPending Status = iota
	// StatusExecuted is the status of a schedule whose inner transaction was
	// attempted, successfully or not.
	StatusExecuted
	// StatusDeleted is the status of a schedule deleted by its admin key.
	StatusDeleted
	// StatusExpired is the status of a schedule that reached its expiry.
	StatusExpired
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusExecuted:
		return "EXECUTED"
	case StatusDeleted:
		return "DELETED"
	case StatusExpired:
		return "EXPIRED"
	default:
		return "UNKNOWN"
	}
}

// Terminal returns true if no further transition is possible.
func (s Status) Terminal() bool {
	return s != StatusPending
}

// InnerTx is the encoded transaction wrapped by a schedule, tagged with its
// kind.
type InnerTx struct {
	Kind string
	Body []byte
}

// Step is the context of a consensus step.
type Step struct {
	// Time is the consensus time of the step.
	Time time.Time
}

// Spec is a request to create a schedule.
type Spec struct {
	// Creator is the account submitting the request.
	Creator string
	// Payer is the account paying for the execution. The creator pays when
	// it is empty.
	Payer string
	Inner InnerTx
	// AdminKey authorizes the deletion. The schedule is immutable when it is
	// nil.
	AdminKey topology.Key
	// Expiry is the requested expiry. The default horizon applies when it is
	// zero.
	Expiry time.Time
	Memo   string
	// Signatures are the keys that signed the request itself.
	Signatures []topology.PublicKey
}

// Entry is the state of a schedule.
//
// - implements serde.Message
// - implements serde.Fingerprinter
type Entry struct {
	ID      ID
	Inner   InnerTx
	Payer   string
	Creator string

	AdminKey     topology.Key
	RequiredKeys []topology.Key

	// Signatures is only populated once the schedule is resolved. The keys of
	// a pending schedule live in the signature accumulator.
	Signatures []topology.PublicKey

	RequestedExpiry time.Time
	Expiry          time.Time

	Status      Status
	Result      *execution.Result
	LastFailure *execution.Result

	Memo       string
	CreatedAt  time.Time
	ResolvedAt time.Time
}

// Clone returns a deep copy of the entry. Key structures are immutable and
// therefore shared.
func (e Entry) Clone() Entry {
	clone := e

	clone.Inner.Body = append([]byte(nil), e.Inner.Body...)
	clone.RequiredKeys = append([]topology.Key(nil), e.RequiredKeys...)

	if e.Signatures != nil {
		clone.Signatures = make([]topology.PublicKey, len(e.Signatures))
		for i, sig := range e.Signatures {
			clone.Signatures[i] = append(topology.PublicKey(nil), sig...)
		}
	}

	if e.Result != nil {
		res := *e.Result
		clone.Result = &res
	}

	if e.LastFailure != nil {
		res := *e.LastFailure
		clone.LastFailure = &res
	}

	return clone
}

// Fingerprint implements serde.Fingerprinter. It writes the identity of the
// logical schedule, made of the payer, the inner transaction and the requested
// expiry, so that two identical requests produce the same bytes.
func (e Entry) Fingerprint(w io.Writer) error {
	fields := [][]byte{
		[]byte(e.Payer),
		[]byte(e.Inner.Kind),
		e.Inner.Body,
	}

	for _, field := range fields {
		err := writeField(w, field)
		if err != nil {
			return err
		}
	}

	// A zero expiry follows the default policy and is distinct from any
	// explicit expiry.
	buffer := make([]byte, 9)
	if !e.RequestedExpiry.IsZero() {
		buffer[0] = 1
		binary.LittleEndian.PutUint64(buffer[1:], uint64(e.RequestedExpiry.UnixNano()))
	}

	_, err := w.Write(buffer)
	if err != nil {
		return xerrors.Errorf("couldn't write expiry: %v", err)
	}

	return nil
}

// Digest returns the hash of the fingerprint of the entry.
func (e Entry) Digest() ([]byte, error) {
	h := crypto.NewSha256Factory().New()

	err := e.Fingerprint(h)
	if err != nil {
		return nil, xerrors.Errorf("failed to fingerprint: %v", err)
	}

	return h.Sum(nil), nil
}

// Serialize implements serde.Message. It returns the serialized data of the
// entry.
func (e Entry) Serialize(ctx serde.Context) ([]byte, error) {
	format := msgFormats.Get(ctx.GetFormat())

	data, err := format.Encode(ctx, e)
	if err != nil {
		return nil, xerrors.Errorf("failed to encode entry: %v", err)
	}

	return data, nil
}

// EntryFactory is the factory of schedule entries.
//
// - implements serde.Factory
type EntryFactory struct{}

// NewEntryFactory returns a new factory.
func NewEntryFactory() EntryFactory {
	return EntryFactory{}
}

// Deserialize implements serde.Factory.
func (f EntryFactory) Deserialize(ctx serde.Context, data []byte) (serde.Message, error) {
	return f.EntryOf(ctx, data)
}

// EntryOf returns the entry of the data if appropriate, otherwise an error.
func (f EntryFactory) EntryOf(ctx serde.Context, data []byte) (Entry, error) {
	format := msgFormats.Get(ctx.GetFormat())

	msg, err := format.Decode(ctx, data)
	if err != nil {
		return Entry{}, xerrors.Errorf("failed to decode entry: %v", err)
	}

	entry, ok := msg.(Entry)
	if !ok {
		return Entry{}, xerrors.Errorf("invalid entry of type '%T'", msg)
	}

	return entry, nil
}

func writeField(w io.Writer, field []byte) error {
	length := make([]byte, 4)
	binary.LittleEndian.PutUint32(length, uint32(len(field)))

	_, err := w.Write(length)
	if err != nil {
		return xerrors.Errorf("couldn't write length: %v", err)
	}

	_, err = w.Write(field)
	if err != nil {
		return xerrors.Errorf("couldn't write field: %v", err)
	}

	return nil
}

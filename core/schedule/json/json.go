// Package json defines the format of the schedule entries. The CBOR format uses
// the same data transfer objects through their json tags.
//
// Times are stored as nanoseconds since the Unix epoch in UTC, and zero for the
// zero time, so that every replica produces the same bytes.
package json

import (
	"time"

	"go.dedis.ch/delay/core/access/topology"
	"go.dedis.ch/delay/core/execution"
	"go.dedis.ch/delay/core/schedule/types"
	"go.dedis.ch/delay/serde"
	"golang.org/x/xerrors"
)

func init() {
	types.RegisterMessageFormat(serde.FormatJSON, newEntryFormat())
	types.RegisterMessageFormat(serde.FormatCBOR, newEntryFormat())
}

// InnerJSON is the data transfer object of an inner transaction.
type InnerJSON struct {
	Kind string `json:"kind"`
	Body []byte `json:"body"`
}

// ResultJSON is the data transfer object of an execution result.
type ResultJSON struct {
	Accepted  bool   `json:"accepted"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// EntryJSON is the data transfer object of a schedule entry.
type EntryJSON struct {
	ID              uint64         `json:"id"`
	Inner           InnerJSON      `json:"inner"`
	Payer           string         `json:"payer"`
	Creator         string         `json:"creator"`
	AdminKey        *topology.DTO  `json:"admin_key,omitempty"`
	RequiredKeys    []topology.DTO `json:"required_keys"`
	Signatures      [][]byte       `json:"signatures,omitempty"`
	RequestedExpiry int64          `json:"requested_expiry,omitempty"`
	Expiry          int64          `json:"expiry"`
	Status          uint8          `json:"status"`
	Result          *ResultJSON    `json:"result,omitempty"`
	LastFailure     *ResultJSON    `json:"last_failure,omitempty"`
	Memo            string         `json:"memo,omitempty"`
	CreatedAt       int64          `json:"created_at"`
	ResolvedAt      int64          `json:"resolved_at,omitempty"`
}

// entryFormat is the engine to encode and decode schedule entries.
//
// - implements serde.FormatEngine
type entryFormat struct{}

func newEntryFormat() entryFormat {
	return entryFormat{}
}

// Encode implements serde.FormatEngine. It returns the data of the entry if
// appropriate, otherwise an error.
func (f entryFormat) Encode(ctx serde.Context, msg serde.Message) ([]byte, error) {
	entry, ok := msg.(types.Entry)
	if !ok {
		return nil, xerrors.Errorf("unsupported message of type '%T'", msg)
	}

	required := make([]topology.DTO, len(entry.RequiredKeys))
	for i, key := range entry.RequiredKeys {
		dto := topology.ToDTO(key)
		if dto == nil {
			return nil, xerrors.Errorf("required key %d is nil", i)
		}

		required[i] = *dto
	}

	var sigs [][]byte
	for _, sig := range entry.Signatures {
		sigs = append(sigs, sig)
	}

	m := EntryJSON{
		ID: uint64(entry.ID),
		Inner: InnerJSON{
			Kind: entry.Inner.Kind,
			Body: entry.Inner.Body,
		},
		Payer:           entry.Payer,
		Creator:         entry.Creator,
		AdminKey:        topology.ToDTO(entry.AdminKey),
		RequiredKeys:    required,
		Signatures:      sigs,
		RequestedExpiry: toNanos(entry.RequestedExpiry),
		Expiry:          toNanos(entry.Expiry),
		Status:          uint8(entry.Status),
		Result:          toResult(entry.Result),
		LastFailure:     toResult(entry.LastFailure),
		Memo:            entry.Memo,
		CreatedAt:       toNanos(entry.CreatedAt),
		ResolvedAt:      toNanos(entry.ResolvedAt),
	}

	data, err := ctx.Marshal(m)
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal: %v", err)
	}

	return data, nil
}

// Decode implements serde.FormatEngine. It populates the entry from the data if
// appropriate, otherwise it returns an error.
func (f entryFormat) Decode(ctx serde.Context, data []byte) (serde.Message, error) {
	m := EntryJSON{}

	err := ctx.Unmarshal(data, &m)
	if err != nil {
		return nil, xerrors.Errorf("failed to unmarshal: %v", err)
	}

	if m.Status > uint8(types.StatusExpired) {
		return nil, xerrors.Errorf("unknown status %d", m.Status)
	}

	admin, err := topology.FromDTO(m.AdminKey)
	if err != nil {
		return nil, xerrors.Errorf("invalid admin key: %v", err)
	}

	required, err := topology.FromDTOs(m.RequiredKeys)
	if err != nil {
		return nil, xerrors.Errorf("invalid required keys: %v", err)
	}

	var sigs []topology.PublicKey
	for _, sig := range m.Signatures {
		sigs = append(sigs, sig)
	}

	entry := types.Entry{
		ID: types.ID(m.ID),
		Inner: types.InnerTx{
			Kind: m.Inner.Kind,
			Body: m.Inner.Body,
		},
		Payer:           m.Payer,
		Creator:         m.Creator,
		AdminKey:        admin,
		RequiredKeys:    required,
		Signatures:      sigs,
		RequestedExpiry: fromNanos(m.RequestedExpiry),
		Expiry:          fromNanos(m.Expiry),
		Status:          types.Status(m.Status),
		Result:          fromResult(m.Result),
		LastFailure:     fromResult(m.LastFailure),
		Memo:            m.Memo,
		CreatedAt:       fromNanos(m.CreatedAt),
		ResolvedAt:      fromNanos(m.ResolvedAt),
	}

	return entry, nil
}

func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}

	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}

	return time.Unix(0, n).UTC()
}

func toResult(res *execution.Result) *ResultJSON {
	if res == nil {
		return nil
	}

	return &ResultJSON{
		Accepted:  res.Accepted,
		Code:      res.Code,
		Message:   res.Message,
		Retryable: res.Retryable,
	}
}

func fromResult(m *ResultJSON) *execution.Result {
	if m == nil {
		return nil
	}

	return &execution.Result{
		Accepted:  m.Accepted,
		Code:      m.Code,
		Message:   m.Message,
		Retryable: m.Retryable,
	}
}

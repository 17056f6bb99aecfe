// Package json defines the format of the accounts. The CBOR format uses the
// same data transfer objects through their json tags.
package json

import (
	"go.dedis.ch/delay/core/access/topology"
	"go.dedis.ch/delay/core/account"
	"go.dedis.ch/delay/serde"
	"golang.org/x/xerrors"
)

func init() {
	account.RegisterMessageFormat(serde.FormatJSON, newFormat())
	account.RegisterMessageFormat(serde.FormatCBOR, newFormat())
}

// AccountJSON is the data transfer object of an account.
type AccountJSON struct {
	ID      string            `json:"id"`
	Key     *topology.DTO     `json:"key,omitempty"`
	Balance uint64            `json:"balance"`
	Tokens  map[string]uint64 `json:"tokens,omitempty"`
}

// accountFormat is the engine to encode and decode accounts.
//
// - implements serde.FormatEngine
type accountFormat struct{}

func newFormat() accountFormat {
	return accountFormat{}
}

// Encode implements serde.FormatEngine. It returns the data of the account if
// appropriate, otherwise an error.
func (f accountFormat) Encode(ctx serde.Context, msg serde.Message) ([]byte, error) {
	acc, ok := msg.(account.Account)
	if !ok {
		return nil, xerrors.Errorf("unsupported message of type '%T'", msg)
	}

	m := AccountJSON{
		ID:      acc.ID,
		Key:     topology.ToDTO(acc.Key),
		Balance: acc.Balance,
		Tokens:  acc.Tokens,
	}

	data, err := ctx.Marshal(m)
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal: %v", err)
	}

	return data, nil
}

// Decode implements serde.FormatEngine. It populates the account from the data
// if appropriate, otherwise it returns an error.
func (f accountFormat) Decode(ctx serde.Context, data []byte) (serde.Message, error) {
	m := AccountJSON{}

	err := ctx.Unmarshal(data, &m)
	if err != nil {
		return nil, xerrors.Errorf("failed to unmarshal: %v", err)
	}

	key, err := topology.FromDTO(m.Key)
	if err != nil {
		return nil, xerrors.Errorf("invalid key: %v", err)
	}

	acc := account.Account{
		ID:      m.ID,
		Key:     key,
		Balance: m.Balance,
		Tokens:  m.Tokens,
	}

	return acc, nil
}

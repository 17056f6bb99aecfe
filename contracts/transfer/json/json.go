// Package json defines the format of the transfers, shared by the JSON and the
// CBOR contexts.
package json

import (
	"go.dedis.ch/delay/contracts/transfer"
	"go.dedis.ch/delay/serde"
	"golang.org/x/xerrors"
)

func init() {
	transfer.RegisterMessageFormat(serde.FormatJSON, transferFormat{})
	transfer.RegisterMessageFormat(serde.FormatCBOR, transferFormat{})
}

// MoveJSON is the data transfer object of a move.
type MoveJSON struct {
	Token  string `json:"token,omitempty"`
	From   string `json:"from"`
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// TransferJSON is the data transfer object of a transfer.
type TransferJSON struct {
	Moves  []MoveJSON `json:"transfers,omitempty"`
	Tokens []MoveJSON `json:"token_transfers,omitempty"`
}

// transferFormat is the engine to encode and decode transfers.
//
// - implements serde.FormatEngine
type transferFormat struct{}

// Encode implements serde.FormatEngine.
func (transferFormat) Encode(ctx serde.Context, msg serde.Message) ([]byte, error) {
	tx, ok := msg.(transfer.Transfer)
	if !ok {
		return nil, xerrors.Errorf("unsupported message of type '%T'", msg)
	}

	m := TransferJSON{}

	for _, move := range tx.Moves {
		m.Moves = append(m.Moves, MoveJSON{
			From:   move.From,
			To:     move.To,
			Amount: move.Amount,
		})
	}

	for _, move := range tx.Tokens {
		m.Tokens = append(m.Tokens, MoveJSON{
			Token:  move.Token,
			From:   move.From,
			To:     move.To,
			Amount: move.Amount,
		})
	}

	data, err := ctx.Marshal(m)
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal: %v", err)
	}

	return data, nil
}

// Decode implements serde.FormatEngine.
func (transferFormat) Decode(ctx serde.Context, data []byte) (serde.Message, error) {
	m := TransferJSON{}

	err := ctx.Unmarshal(data, &m)
	if err != nil {
		return nil, xerrors.Errorf("failed to unmarshal: %v", err)
	}

	tx := transfer.Transfer{}

	for _, move := range m.Moves {
		if move.Token != "" {
			return nil, xerrors.Errorf("unexpected token '%s' in transfer", move.Token)
		}

		tx.Moves = append(tx.Moves, transfer.Move{
			From:   move.From,
			To:     move.To,
			Amount: move.Amount,
		})
	}

	for _, move := range m.Tokens {
		tx.Tokens = append(tx.Tokens, transfer.TokenMove{
			Token:  move.Token,
			From:   move.From,
			To:     move.To,
			Amount: move.Amount,
		})
	}

	return tx, nil
}

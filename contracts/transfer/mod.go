// Package transfer implements the handler of the transfers of value and tokens
// between ledger accounts.
//
// A transfer is a list of moves of the native currency and a list of moves of
// tokens. Every sender must sign the schedule, and the payer is charged the
// execution fee. The moves are applied in order and the first one that cannot
// be applied fails the whole transfer.
//
// Documentation Last Review: 18.10.2026
//
package transfer

import (
	"go.dedis.ch/delay/core/account"
	"go.dedis.ch/delay/core/execution"
	"go.dedis.ch/delay/core/store"
	"go.dedis.ch/delay/serde"
	"go.dedis.ch/delay/serde/registry"
	"golang.org/x/xerrors"
)

// Kind is the kind of the transfer transactions.
const Kind = "transfer"

// Result codes of the transfers.
const (
	CodeInsufficientAccountBalance = "INSUFFICIENT_ACCOUNT_BALANCE"
	CodeInsufficientTokenBalance   = "INSUFFICIENT_TOKEN_BALANCE"
	CodeTokenNotAssociated         = "TOKEN_NOT_ASSOCIATED_TO_ACCOUNT"
	CodeBalanceOverflow            = "BALANCE_OVERFLOW"
)

var msgFormats = registry.NewSimpleRegistry()

// RegisterMessageFormat registers the engine for the provided format.
func RegisterMessageFormat(f serde.Format, e serde.FormatEngine) {
	msgFormats.Register(f, e)
}

// Move is a move of the native currency.
type Move struct {
	From   string
	To     string
	Amount uint64
}

// TokenMove is a move of a token.
type TokenMove struct {
	Token  string
	From   string
	To     string
	Amount uint64
}

// Transfer is the body of a transfer transaction.
//
// - implements serde.Message
type Transfer struct {
	Moves  []Move
	Tokens []TokenMove
}

// Serialize implements serde.Message.
func (t Transfer) Serialize(ctx serde.Context) ([]byte, error) {
	format := msgFormats.Get(ctx.GetFormat())

	data, err := format.Encode(ctx, t)
	if err != nil {
		return nil, xerrors.Errorf("failed to encode transfer: %v", err)
	}

	return data, nil
}

// Senders returns the distinct senders of the transfer in order of
// appearance.
func (t Transfer) Senders() []string {
	seen := map[string]struct{}{}
	senders := []string{}

	add := func(from string) {
		if _, found := seen[from]; !found {
			seen[from] = struct{}{}
			senders = append(senders, from)
		}
	}

	for _, move := range t.Moves {
		add(move.From)
	}

	for _, move := range t.Tokens {
		add(move.From)
	}

	return senders
}

// Factory is the factory of transfers.
//
// - implements serde.Factory
type Factory struct{}

// Deserialize implements serde.Factory.
func (Factory) Deserialize(ctx serde.Context, data []byte) (serde.Message, error) {
	format := msgFormats.Get(ctx.GetFormat())

	msg, err := format.Decode(ctx, data)
	if err != nil {
		return nil, xerrors.Errorf("failed to decode transfer: %v", err)
	}

	return msg, nil
}

// Limits are the limits of the transfers and the fee charged to the payer.
type Limits struct {
	MaxTransfers      int
	MaxTokenTransfers int
	Fee               uint64
}

// Handler is the handler of the transfers.
//
// - implements execution.Handler
type Handler struct {
	ctx      serde.Context
	fac      Factory
	accounts account.Store
	limits   Limits
}

// NewHandler returns a handler that decodes the bodies with the context and
// moves the balances of the accounts of the store.
func NewHandler(ctx serde.Context, accounts account.Store, limits Limits) Handler {
	return Handler{
		ctx:      ctx,
		accounts: accounts,
		limits:   limits,
	}
}

// Decode implements execution.Handler. It returns the transfer of the body, or
// an error if it is malformed or exceeds the limits.
func (h Handler) Decode(body []byte) (execution.Payload, error) {
	msg, err := h.fac.Deserialize(h.ctx, body)
	if err != nil {
		return nil, err
	}

	tx, ok := msg.(Transfer)
	if !ok {
		return nil, xerrors.Errorf("invalid message of type '%T'", msg)
	}

	err = h.check(tx)
	if err != nil {
		return nil, err
	}

	return tx, nil
}

// Signers implements execution.Handler. It returns the senders.
func (h Handler) Signers(p execution.Payload) []string {
	tx, ok := p.(Transfer)
	if !ok {
		return nil
	}

	return tx.Senders()
}

// Execute implements execution.Handler. It charges the fee to the payer and
// applies the moves. A missing account or a balance too low fails the
// transfer.
func (h Handler) Execute(snap store.Snapshot, payer string, p execution.Payload) (execution.Result, error) {
	tx, ok := p.(Transfer)
	if !ok {
		return execution.Result{}, xerrors.Errorf("invalid payload of type '%T'", p)
	}

	err := h.accounts.Debit(snap, payer, h.limits.Fee)
	if err != nil {
		return failureOf(err, execution.CodeInsufficientBalance)
	}

	for _, move := range tx.Moves {
		err = h.accounts.Debit(snap, move.From, move.Amount)
		if err != nil {
			return failureOf(err, CodeInsufficientAccountBalance)
		}

		err = h.accounts.Credit(snap, move.To, move.Amount)
		if err != nil {
			return failureOf(err, CodeInsufficientAccountBalance)
		}
	}

	for _, move := range tx.Tokens {
		err = h.accounts.DebitToken(snap, move.From, move.Token, move.Amount)
		if err != nil {
			return failureOf(err, CodeInsufficientTokenBalance)
		}

		err = h.accounts.CreditToken(snap, move.To, move.Token, move.Amount)
		if err != nil {
			return failureOf(err, CodeInsufficientTokenBalance)
		}
	}

	return execution.Success(), nil
}

func (h Handler) check(tx Transfer) error {
	if len(tx.Moves) == 0 && len(tx.Tokens) == 0 {
		return xerrors.New("empty transfer")
	}

	if len(tx.Moves) > h.limits.MaxTransfers {
		return xerrors.Errorf("too many transfers: %d > %d",
			len(tx.Moves), h.limits.MaxTransfers)
	}

	if len(tx.Tokens) > h.limits.MaxTokenTransfers {
		return xerrors.Errorf("too many token transfers: %d > %d",
			len(tx.Tokens), h.limits.MaxTokenTransfers)
	}

	for i, move := range tx.Moves {
		err := checkMove(move.From, move.To, move.Amount)
		if err != nil {
			return xerrors.Errorf("transfer %d: %v", i, err)
		}
	}

	for i, move := range tx.Tokens {
		if move.Token == "" {
			return xerrors.Errorf("token transfer %d: empty token", i)
		}

		err := checkMove(move.From, move.To, move.Amount)
		if err != nil {
			return xerrors.Errorf("token transfer %d: %v", i, err)
		}
	}

	return nil
}

func checkMove(from, to string, amount uint64) error {
	if from == "" || to == "" {
		return xerrors.New("empty account")
	}

	if from == to {
		return xerrors.Errorf("'%s' sends to itself", from)
	}

	if amount == 0 {
		return xerrors.New("zero amount")
	}

	return nil
}

// failureOf converts the expected account errors into a failure of the
// transfer. Any other error is returned as is.
func failureOf(err error, insufficient string) (execution.Result, error) {
	switch {
	case xerrors.Is(err, account.ErrNotFound):
		return execution.Failure(execution.CodeInvalidAccount, err.Error()), nil
	case xerrors.Is(err, account.ErrInsufficientBalance):
		return execution.Failure(insufficient, err.Error()), nil
	case xerrors.Is(err, account.ErrNotAssociated):
		return execution.Failure(CodeTokenNotAssociated, err.Error()), nil
	case xerrors.Is(err, account.ErrOverflow):
		return execution.Failure(CodeBalanceOverflow, err.Error()), nil
	default:
		return execution.Result{}, err
	}
}

// Package execution defines the interface of the services that execute the
// inner transactions of the schedules.
package execution

import (
	"go.dedis.ch/delay/core/store"
	"golang.org/x/xerrors"
)

// ErrUnknownKind is returned when no handler accepts a transaction kind.
var ErrUnknownKind = xerrors.New("unknown transaction kind")

// Common result codes. Handlers are free to define their own.
const (
	CodeSuccess             = "SUCCESS"
	CodeInsufficientBalance = "INSUFFICIENT_PAYER_BALANCE"
	CodeInvalidAccount      = "INVALID_ACCOUNT_ID"
	CodeUnauthorized        = "UNAUTHORIZED"
)

// Result is the result of a transaction execution.
type Result struct {
	// Accepted is the success state of the transaction.
	Accepted bool

	// Code is a short machine-readable status of the execution.
	Code string

	// Message gives a chance to the execution to explain why a transaction has
	// failed.
	Message string

	// Retryable is set for transient failures. The transaction is attempted
	// again on a later trigger instead of being consumed.
	Retryable bool
}

// Success returns an accepted result.
func Success() Result {
	return Result{Accepted: true, Code: CodeSuccess}
}

// Failure returns a deterministic failure with the code and the message.
func Failure(code, msg string) Result {
	return Result{Code: code, Message: msg}
}

// Payload is a decoded inner transaction. Payloads are shared between
// executions and must not be modified by a handler.
type Payload interface{}

// Handler is the interface to implement to execute one kind of inner
// transaction.
type Handler interface {
	// Decode returns the payload of the encoded body. An error means that the
	// body is malformed.
	Decode(body []byte) (Payload, error)

	// Signers returns the accounts that must sign the transaction in addition
	// to the payer.
	Signers(p Payload) []string

	// Execute must apply the payload to the snapshot on behalf of the payer
	// and return the result of it. A rejection of the transaction is reported
	// in the result, and an error is returned only when the snapshot cannot be
	// used.
	Execute(snap store.Snapshot, payer string, p Payload) (Result, error)
}

// Service is the execution service that dispatches the inner transactions to
// the handlers.
type Service interface {
	// Supports returns true if the kind is allowed and has a handler.
	Supports(kind string) bool

	// Signers returns the accounts that must sign the inner transaction in
	// addition to the payer.
	Signers(kind string, body []byte) ([]string, error)

	// Execute decodes and applies the inner transaction.
	Execute(snap store.Snapshot, payer, kind string, body []byte) (Result, error)
}

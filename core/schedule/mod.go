// Package schedule defines the errors and the collaborators of the scheduled
// transaction engine.
//
// A schedule wraps an inner transaction that is executed once every required
// key structure is satisfied by the collected signatures. It is resolved
// exactly once, either by an execution, a deletion by its admin key, or its
// expiry.
//
// Documentation Last Review: 15.10.2026
//
package schedule

import (
	"fmt"

	"go.dedis.ch/delay/core/access/topology"
	"go.dedis.ch/delay/core/execution"
	"go.dedis.ch/delay/core/schedule/types"
	"go.dedis.ch/delay/core/store"
	"golang.org/x/xerrors"
)

var (
	// ErrValidation matches every validation error.
	ErrValidation = xerrors.New("invalid request")

	// ErrKeyTooDeep is returned when a key structure exceeds the maximum
	// nesting depth.
	ErrKeyTooDeep = xerrors.New("key structure too deep")

	// ErrNotSupported is returned when the kind of the inner transaction is
	// not whitelisted.
	ErrNotSupported = xerrors.New("transaction kind not supported")

	// ErrInvalidExpiry is returned when the requested expiry is not in the
	// allowed horizon.
	ErrInvalidExpiry = xerrors.New("invalid expiry")

	// ErrMemoTooLong is returned when the memo exceeds the maximum length.
	ErrMemoTooLong = xerrors.New("memo too long")

	// ErrInvalidSpec is returned when a request is malformed.
	ErrInvalidSpec = xerrors.New("malformed request")

	// ErrTimeRegression is returned when a step is older than the previous
	// one.
	ErrTimeRegression = xerrors.New("consensus time regression")

	// ErrNotFound is returned when the schedule does not exist or was reaped.
	ErrNotFound = xerrors.New("schedule not found")

	// ErrAlreadyTerminal matches every operation on a resolved schedule.
	ErrAlreadyTerminal = xerrors.New("schedule already resolved")

	// ErrAlreadyExecuted is returned when the schedule was executed.
	ErrAlreadyExecuted = xerrors.New("schedule already executed")

	// ErrAlreadyDeleted is returned when the schedule was deleted.
	ErrAlreadyDeleted = xerrors.New("schedule already deleted")

	// ErrAlreadyExpired is returned when the schedule expired.
	ErrAlreadyExpired = xerrors.New("schedule already expired")

	// ErrNotAuthorized is returned when the admin key is not satisfied.
	ErrNotAuthorized = xerrors.New("not authorized")

	// ErrImmutable is returned when a schedule without admin key is deleted.
	ErrImmutable = xerrors.New("schedule is immutable")

	// ErrUnresolvableSigners is returned when a required signer cannot be
	// resolved at creation.
	ErrUnresolvableSigners = xerrors.New("unresolvable required signers")
)

// ValidationError is the error of a request rejected before any mutation.
type ValidationError struct {
	Kind   error
	Reason string
}

// NewValidationError returns a validation error of the kind.
func NewValidationError(kind error, format string, args ...interface{}) ValidationError {
	return ValidationError{
		Kind:   kind,
		Reason: fmt.Sprintf(format, args...),
	}
}

// Error implements error. It returns the kind followed by the reason.
func (e ValidationError) Error() string {
	if e.Reason == "" {
		return e.Kind.Error()
	}

	return fmt.Sprintf("%v: %s", e.Kind, e.Reason)
}

// Is returns true if the target is the kind of the error or ErrValidation.
func (e ValidationError) Is(target error) bool {
	return target == ErrValidation || target == e.Kind
}

// TerminalError is the error of an operation on a resolved schedule.
type TerminalError struct {
	ID     types.ID
	Status types.Status
}

// NewTerminalError returns the error for the schedule in a terminal status.
func NewTerminalError(id types.ID, status types.Status) TerminalError {
	return TerminalError{ID: id, Status: status}
}

// Error implements error.
func (e TerminalError) Error() string {
	return fmt.Sprintf("%v: %v", e.kind(), e.ID)
}

// Is returns true if the target is ErrAlreadyTerminal or the sentinel of the
// status of the schedule.
func (e TerminalError) Is(target error) bool {
	return target == ErrAlreadyTerminal || target == e.kind()
}

func (e TerminalError) kind() error {
	switch e.Status {
	case types.StatusExecuted:
		return ErrAlreadyExecuted
	case types.StatusDeleted:
		return ErrAlreadyDeleted
	case types.StatusExpired:
		return ErrAlreadyExpired
	default:
		return ErrAlreadyTerminal
	}
}

// SignerResolver resolves the key structure of an account at creation time.
type SignerResolver interface {
	// KeyOf returns the key structure that authorizes the account.
	KeyOf(snap store.Readable, account string) (topology.Key, error)
}

// CreateResult is the outcome of a creation.
type CreateResult struct {
	// ID is the identifier of the new schedule, or of the pending schedule
	// with the same fingerprint.
	ID types.ID

	// Duplicate is set when no schedule was created.
	Duplicate bool

	// Status is the status of the schedule after the request. A schedule
	// satisfied at creation is executed immediately.
	Status types.Status
}

// SignResult is the outcome of a signature request.
type SignResult struct {
	// Added is the number of keys that were not already present.
	Added int

	// Status is the status of the schedule after the request.
	Status types.Status

	// Result is the execution result if an execution was attempted.
	Result *execution.Result
}

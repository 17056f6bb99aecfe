// Package value implements a simple handler that can store and delete values
// owned by ledger accounts.
//
// The first account to set a key owns it. Only the owner can update or delete
// the value afterwards, and the owner must sign the schedule.
package value

import (
	"go.dedis.ch/delay"
	"go.dedis.ch/delay/core/execution"
	"go.dedis.ch/delay/core/store"
	"go.dedis.ch/delay/core/store/prefixed"
	"go.dedis.ch/delay/serde"
	"golang.org/x/xerrors"
)

// commands defines the commands of the value handler. This interface helps in
// testing the handler.
type commands interface {
	set(snap store.Snapshot, req Request) (execution.Result, error)
	delete(snap store.Snapshot, req Request) (execution.Result, error)
}

const (
	// Kind is the kind of the value transactions.
	Kind = "value"

	// Prefix is the prefix of the keyspace of the values.
	Prefix = "values"

	// OwnerPrefix is the prefix of the keyspace of the owners of the values.
	OwnerPrefix = "values.owners"

	// CodeValueNotFound is the result code of a deletion of an unknown key.
	CodeValueNotFound = "VALUE_NOT_FOUND"
)

// Command defines a type of command for the value handler
type Command string

const (
	// CmdSet defines the command to set a value
	CmdSet Command = "SET"

	// CmdDelete defines the command to delete a value
	CmdDelete Command = "DELETE"
)

// Request is the body of a value transaction.
type Request struct {
	Command Command
	Owner   string
	Key     string
	Value   []byte
}

// RequestJSON is the data transfer object of a request, shared by the JSON and
// the CBOR contexts.
type RequestJSON struct {
	Command string `json:"command"`
	Owner   string `json:"owner"`
	Key     string `json:"key"`
	Value   []byte `json:"value,omitempty"`
}

// Encode returns the body of the request for the context.
func (r Request) Encode(ctx serde.Context) ([]byte, error) {
	m := RequestJSON{
		Command: string(r.Command),
		Owner:   r.Owner,
		Key:     r.Key,
		Value:   r.Value,
	}

	data, err := ctx.Marshal(m)
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal: %v", err)
	}

	return data, nil
}

// Read returns the value of the key and its owner, or nil if the key is not
// set.
func Read(snap store.Readable, key string) ([]byte, string, error) {
	value, err := prefixed.NewReadable(Prefix, snap).Get([]byte(key))
	if err != nil {
		return nil, "", xerrors.Errorf("failed to read value: %v", err)
	}

	owner, err := prefixed.NewReadable(OwnerPrefix, snap).Get([]byte(key))
	if err != nil {
		return nil, "", xerrors.Errorf("failed to read owner: %v", err)
	}

	return value, string(owner), nil
}

// Handler is the handler of the value transactions.
//
// - implements execution.Handler
type Handler struct {
	ctx serde.Context

	// cmd provides the commands executions
	cmd commands
}

// NewHandler returns a handler that decodes the bodies with the context.
func NewHandler(ctx serde.Context) Handler {
	return Handler{
		ctx: ctx,
		cmd: valueCommand{},
	}
}

// Decode implements execution.Handler.
func (h Handler) Decode(body []byte) (execution.Payload, error) {
	m := RequestJSON{}

	err := h.ctx.Unmarshal(body, &m)
	if err != nil {
		return nil, xerrors.Errorf("failed to unmarshal: %v", err)
	}

	req := Request{
		Command: Command(m.Command),
		Owner:   m.Owner,
		Key:     m.Key,
		Value:   m.Value,
	}

	if req.Owner == "" {
		return nil, xerrors.New("missing owner")
	}

	if req.Key == "" {
		return nil, xerrors.New("missing key")
	}

	switch req.Command {
	case CmdSet:
		if len(req.Value) == 0 {
			return nil, xerrors.New("missing value")
		}
	case CmdDelete:
	default:
		return nil, xerrors.Errorf("unknown command: %s", req.Command)
	}

	return req, nil
}

// Signers implements execution.Handler. It returns the owner of the request.
func (h Handler) Signers(p execution.Payload) []string {
	req, ok := p.(Request)
	if !ok {
		return nil
	}

	return []string{req.Owner}
}

// Execute implements execution.Handler. It runs the appropriate command.
func (h Handler) Execute(snap store.Snapshot, payer string, p execution.Payload) (execution.Result, error) {
	req, ok := p.(Request)
	if !ok {
		return execution.Result{}, xerrors.Errorf("invalid payload of type '%T'", p)
	}

	switch req.Command {
	case CmdSet:
		res, err := h.cmd.set(snap, req)
		if err != nil {
			return res, xerrors.Errorf("failed to SET: %v", err)
		}

		return res, nil
	case CmdDelete:
		res, err := h.cmd.delete(snap, req)
		if err != nil {
			return res, xerrors.Errorf("failed to DELETE: %v", err)
		}

		return res, nil
	default:
		return execution.Result{}, xerrors.Errorf("unknown command: %s", req.Command)
	}
}

// valueCommand implements the commands of the value handler
//
// - implements commands
type valueCommand struct{}

// set implements commands. It performs the SET command
func (c valueCommand) set(snap store.Snapshot, req Request) (execution.Result, error) {
	_, owner, err := Read(snap, req.Key)
	if err != nil {
		return execution.Result{}, err
	}

	if owner != "" && owner != req.Owner {
		return execution.Failure(execution.CodeUnauthorized,
			"key is owned by "+owner), nil
	}

	err = prefixed.NewSnapshot(Prefix, snap).Set([]byte(req.Key), req.Value)
	if err != nil {
		return execution.Result{}, xerrors.Errorf("failed to set value: %v", err)
	}

	err = prefixed.NewSnapshot(OwnerPrefix, snap).Set([]byte(req.Key), []byte(req.Owner))
	if err != nil {
		return execution.Result{}, xerrors.Errorf("failed to set owner: %v", err)
	}

	delay.Logger.Info().Str("handler", "value").Msgf("setting %s=%s", req.Key, req.Value)

	return execution.Success(), nil
}

// delete implements commands. It performs the DELETE command
func (c valueCommand) delete(snap store.Snapshot, req Request) (execution.Result, error) {
	_, owner, err := Read(snap, req.Key)
	if err != nil {
		return execution.Result{}, err
	}

	if owner == "" {
		return execution.Failure(CodeValueNotFound, "key '"+req.Key+"' is not set"), nil
	}

	if owner != req.Owner {
		return execution.Failure(execution.CodeUnauthorized,
			"key is owned by "+owner), nil
	}

	err = prefixed.NewSnapshot(Prefix, snap).Delete([]byte(req.Key))
	if err != nil {
		return execution.Result{}, xerrors.Errorf("failed to delete value: %v", err)
	}

	err = prefixed.NewSnapshot(OwnerPrefix, snap).Delete([]byte(req.Key))
	if err != nil {
		return execution.Result{}, xerrors.Errorf("failed to delete owner: %v", err)
	}

	return execution.Success(), nil
}

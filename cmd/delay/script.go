package main

import (
	"io/ioutil"
	"time"

	"go.dedis.ch/delay/contracts/transfer"
	"go.dedis.ch/delay/contracts/value"
	"go.dedis.ch/delay/core/access/topology"
	"go.dedis.ch/delay/core/account"
	"go.dedis.ch/delay/crypto"
	"go.dedis.ch/delay/crypto/ed25519"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"
)

// script is a replay script. The events happen at an offset from the start,
// and the schedules are referred to by a name local to the script.
type script struct {
	Start    string        `yaml:"start"`
	Accounts []accountSpec `yaml:"accounts"`
	Events   []eventSpec   `yaml:"events"`
}

// keySpec describes a key structure. A signer is a simple key, keys with a
// threshold are a threshold key and keys without one are a key list.
type keySpec struct {
	Signer    string    `yaml:"signer,omitempty"`
	Threshold uint32    `yaml:"threshold,omitempty"`
	Keys      []keySpec `yaml:"keys,omitempty"`
}

type accountSpec struct {
	ID      string            `yaml:"id"`
	Balance uint64            `yaml:"balance"`
	Tokens  map[string]uint64 `yaml:"tokens,omitempty"`
	Key     *keySpec          `yaml:"key,omitempty"`
}

type moveSpec struct {
	Token  string `yaml:"token,omitempty"`
	From   string `yaml:"from"`
	To     string `yaml:"to"`
	Amount uint64 `yaml:"amount"`
}

type transferSpec struct {
	Transfers      []moveSpec `yaml:"transfers,omitempty"`
	TokenTransfers []moveSpec `yaml:"token_transfers,omitempty"`
}

type valueSpec struct {
	Command string `yaml:"command"`
	Owner   string `yaml:"owner"`
	Key     string `yaml:"key"`
	Value   string `yaml:"value,omitempty"`
}

type eventSpec struct {
	At       string        `yaml:"at"`
	Op       string        `yaml:"op"`
	Name     string        `yaml:"name,omitempty"`
	Creator  string        `yaml:"creator,omitempty"`
	Payer    string        `yaml:"payer,omitempty"`
	Kind     string        `yaml:"kind,omitempty"`
	Body     string        `yaml:"body,omitempty"`
	Transfer *transferSpec `yaml:"transfer,omitempty"`
	Value    *valueSpec    `yaml:"value,omitempty"`
	Admin    *keySpec      `yaml:"admin,omitempty"`
	Expiry   string        `yaml:"expiry,omitempty"`
	Memo     string        `yaml:"memo,omitempty"`
	Signers  []string      `yaml:"signers,omitempty"`
}

func loadScript(path string) (script, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return script{}, xerrors.Errorf("failed to read script: %v", err)
	}

	return parseScript(data)
}

func parseScript(data []byte) (script, error) {
	s := script{}

	err := yaml.UnmarshalStrict(data, &s)
	if err != nil {
		return s, xerrors.Errorf("failed to unmarshal: %v", err)
	}

	return s, nil
}

func (s script) startTime() (time.Time, error) {
	if s.Start == "" {
		return time.Unix(0, 0).UTC(), nil
	}

	start, err := time.Parse(time.RFC3339, s.Start)
	if err != nil {
		return time.Time{}, xerrors.Errorf("invalid start: %v", err)
	}

	return start.UTC(), nil
}

func (e eventSpec) offset() (time.Duration, error) {
	if e.At == "" {
		return 0, nil
	}

	at, err := time.ParseDuration(e.At)
	if err != nil {
		return 0, xerrors.Errorf("invalid offset: %v", err)
	}

	return at, nil
}

// keyring derives the signers from their name, so that a script can refer to
// them without carrying any key material.
type keyring map[string]crypto.Signer

func (k keyring) signer(name string) crypto.Signer {
	signer, found := k[name]
	if !found {
		signer = ed25519.NewSignerFromSeed([]byte(name))
		k[name] = signer
	}

	return signer
}

func (k keyring) publicKey(name string) (topology.PublicKey, error) {
	data, err := k.signer(name).GetPublicKey().MarshalBinary()
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal key of '%s': %v", name, err)
	}

	return topology.PublicKey(data), nil
}

func (k keyring) key(spec *keySpec) (topology.Key, error) {
	if spec == nil {
		return nil, nil
	}

	if spec.Signer != "" {
		pk, err := k.publicKey(spec.Signer)
		if err != nil {
			return nil, err
		}

		return topology.NewSimpleKey(pk), nil
	}

	if len(spec.Keys) == 0 {
		return nil, xerrors.New("key without signer nor keys")
	}

	children := make([]topology.Key, len(spec.Keys))
	for i := range spec.Keys {
		child, err := k.key(&spec.Keys[i])
		if err != nil {
			return nil, err
		}

		children[i] = child
	}

	if spec.Threshold > 0 {
		return topology.NewThresholdKey(spec.Threshold, children...), nil
	}

	return topology.NewKeyList(children...), nil
}

func (k keyring) account(spec accountSpec) (account.Account, error) {
	key, err := k.key(spec.Key)
	if err != nil {
		return account.Account{}, xerrors.Errorf("invalid key of '%s': %v", spec.ID, err)
	}

	acc := account.Account{
		ID:      spec.ID,
		Key:     key,
		Balance: spec.Balance,
		Tokens:  spec.Tokens,
	}

	return acc, nil
}

func (t transferSpec) toTransfer() transfer.Transfer {
	tx := transfer.Transfer{}

	for _, move := range t.Transfers {
		tx.Moves = append(tx.Moves, transfer.Move{
			From:   move.From,
			To:     move.To,
			Amount: move.Amount,
		})
	}

	for _, move := range t.TokenTransfers {
		tx.Tokens = append(tx.Tokens, transfer.TokenMove{
			Token:  move.Token,
			From:   move.From,
			To:     move.To,
			Amount: move.Amount,
		})
	}

	return tx
}

func (v valueSpec) toRequest() value.Request {
	req := value.Request{
		Command: value.Command(v.Command),
		Owner:   v.Owner,
		Key:     v.Key,
	}

	if v.Value != "" {
		req.Value = []byte(v.Value)
	}

	return req
}

// Package config defines the configuration of the schedule engine and of the
// handlers that it carries.
//
// The configuration is read from a YAML document. Missing keys keep their
// default value.
package config

import (
	"io/ioutil"
	"time"

	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"
)

// Config is the configuration of the engine.
type Config struct {
	// DefaultExpiry is the horizon of a schedule created without an explicit
	// expiry.
	DefaultExpiry time.Duration `yaml:"default_expiry"`
	// MaxExpiry is the furthest horizon a creation can request.
	MaxExpiry time.Duration `yaml:"max_expiry"`
	// MaxKeyDepth is the deepest key structure accepted.
	MaxKeyDepth int `yaml:"max_key_depth"`
	// Whitelist is the list of the kinds of inner transactions that can be
	// scheduled.
	Whitelist []string `yaml:"whitelist"`
	// SweepCap is the maximum number of entries expired, and separately
	// reaped, per time advance.
	SweepCap int `yaml:"sweep_cap"`
	// Retention is the time a resolved schedule can still be queried.
	Retention time.Duration `yaml:"retention"`
	// MaxMemoLength is the maximum length in bytes of a memo.
	MaxMemoLength int `yaml:"max_memo_length"`

	// MaxTransfers is the maximum number of transfers of a transfer
	// transaction.
	MaxTransfers int `yaml:"max_transfers"`
	// MaxTokenTransfers is the maximum number of token transfers of a
	// transfer transaction.
	MaxTokenTransfers int `yaml:"max_token_transfers"`
	// ExecutionFee is charged to the payer of a transfer transaction.
	ExecutionFee uint64 `yaml:"execution_fee"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		DefaultExpiry:     30 * time.Minute,
		MaxExpiry:         62 * 24 * time.Hour,
		MaxKeyDepth:       15,
		Whitelist:         []string{"transfer", "value"},
		SweepCap:          100,
		Retention:         24 * time.Hour,
		MaxMemoLength:     100,
		MaxTransfers:      10,
		MaxTokenTransfers: 10,
		ExecutionFee:      1,
	}
}

// Parse returns the configuration of the YAML document, completed with the
// default values.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	err := yaml.UnmarshalStrict(data, &cfg)
	if err != nil {
		return cfg, xerrors.Errorf("failed to unmarshal: %v", err)
	}

	err = cfg.Validate()
	if err != nil {
		return cfg, xerrors.Errorf("invalid configuration: %v", err)
	}

	return cfg, nil
}

// Load returns the configuration of the file.
func Load(path string) (Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return Config{}, xerrors.Errorf("failed to read config: %v", err)
	}

	return Parse(data)
}

// Validate returns an error if a value is out of its range.
func (c Config) Validate() error {
	if c.DefaultExpiry <= 0 {
		return xerrors.Errorf("default expiry must be positive: %v", c.DefaultExpiry)
	}

	if c.MaxExpiry < c.DefaultExpiry {
		return xerrors.Errorf("max expiry %v is lower than default expiry %v",
			c.MaxExpiry, c.DefaultExpiry)
	}

	if c.MaxKeyDepth <= 0 {
		return xerrors.Errorf("max key depth must be positive: %d", c.MaxKeyDepth)
	}

	if c.SweepCap <= 0 {
		return xerrors.Errorf("sweep cap must be positive: %d", c.SweepCap)
	}

	if c.Retention < 0 {
		return xerrors.Errorf("retention must not be negative: %v", c.Retention)
	}

	if c.MaxMemoLength < 0 || c.MaxTransfers < 0 || c.MaxTokenTransfers < 0 {
		return xerrors.New("limits must not be negative")
	}

	return nil
}

// Marshal returns the YAML document of the configuration.
func (c Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal: %v", err)
	}

	return data, nil
}

package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestParse(t *testing.T) {
	doc := `
default_expiry: 10m
max_expiry: 1h
whitelist:
  - value
sweep_cap: 5
`

	cfg, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.Equal(t, 10*time.Minute, cfg.DefaultExpiry)
	require.Equal(t, time.Hour, cfg.MaxExpiry)
	require.Equal(t, []string{"value"}, cfg.Whitelist)
	require.Equal(t, 5, cfg.SweepCap)
	require.Equal(t, Default().Retention, cfg.Retention)
	require.Equal(t, Default().MaxKeyDepth, cfg.MaxKeyDepth)
}

func TestParse_Failures(t *testing.T) {
	_, err := Parse([]byte("unknown: 1"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to unmarshal")

	_, err = Parse([]byte("default_expiry: 2h\nmax_expiry: 1h"))
	require.EqualError(t, err,
		"invalid configuration: max expiry 1h0m0s is lower than default expiry 2h0m0s")
}

func TestConfig_Validate(t *testing.T) {
	cfg := Default()
	cfg.DefaultExpiry = 0
	require.EqualError(t, cfg.Validate(), "default expiry must be positive: 0s")

	cfg = Default()
	cfg.MaxKeyDepth = 0
	require.EqualError(t, cfg.Validate(), "max key depth must be positive: 0")

	cfg = Default()
	cfg.SweepCap = -1
	require.EqualError(t, cfg.Validate(), "sweep cap must be positive: -1")

	cfg = Default()
	cfg.Retention = -time.Second
	require.EqualError(t, cfg.Validate(), "retention must not be negative: -1s")

	cfg = Default()
	cfg.MaxTransfers = -1
	require.EqualError(t, cfg.Validate(), "limits must not be negative")
}

func TestLoad(t *testing.T) {
	dir, err := ioutil.TempDir(os.TempDir(), "delay-config")
	require.NoError(t, err)

	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "config.yaml")

	data, err := Default().Marshal()
	require.NoError(t, err)
	require.NoError(t, ioutil.WriteFile(path, data, os.ModePerm))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)

	_, err = Load(filepath.Join(dir, "none.yaml"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to read config")
}

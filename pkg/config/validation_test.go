package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg := &Config{
		Mounts: []MountConfig{{Source: t.TempDir(), Target: "/data"}},
	}
	ApplyDefaults(cfg)
	return cfg
}

func TestValidateAcceptsValidConfig(t *testing.T) {
	require.NoError(t, Validate(validConfig(t)))
}

func TestValidateRejectsNoMounts(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	assert.Error(t, Validate(cfg))
}

func TestValidateRejectsMissingSource(t *testing.T) {
	cfg := validConfig(t)
	cfg.Mounts[0].Source = filepath.Join(t.TempDir(), "no-such-dir")
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source")
}

func TestValidateRejectsFileSource(t *testing.T) {
	cfg := validConfig(t)
	file := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	cfg.Mounts[0].Source = file
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestValidateRejectsRelativeTarget(t *testing.T) {
	cfg := validConfig(t)
	cfg.Mounts[0].Target = "data"
	assert.Error(t, Validate(cfg))
}

func TestValidateRejectsDuplicateTargets(t *testing.T) {
	cfg := validConfig(t)
	cfg.Mounts = append(cfg.Mounts, MountConfig{Source: t.TempDir(), Target: "/data/"})
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicates")
}

func TestValidateRejectsBadAllowList(t *testing.T) {
	for _, entry := range []string{"not-an-ip", "10.0.0.0/99", "10.0.0"} {
		cfg := validConfig(t)
		cfg.Server.AllowIPs = []string{entry}
		assert.Error(t, Validate(cfg), "entry %q should be rejected", entry)
	}
}

func TestValidateAcceptsAllowListForms(t *testing.T) {
	cfg := validConfig(t)
	cfg.Server.AllowIPs = []string{"127.0.0.1", "10.0.0.0/8", "::1", "fd00::/8"}
	assert.NoError(t, Validate(cfg))
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg := validConfig(t)
	cfg.Server.Port = 70000
	assert.Error(t, Validate(cfg))

	cfg = validConfig(t)
	cfg.Server.Port = -1
	assert.Error(t, Validate(cfg))
}

func TestValidateRejectsUnknownLogLevel(t *testing.T) {
	cfg := validConfig(t)
	cfg.Server.LogLevel = "loud"
	assert.Error(t, Validate(cfg))
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	source := t.TempDir()
	path := writeConfig(t, `
[[mounts]]
source = "`+source+`"
target = "/data"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.IP)
	assert.Equal(t, 11451, cfg.Server.Port)
	assert.Equal(t, "error", cfg.Server.LogLevel)
	assert.Equal(t, 100, cfg.Server.MaxConnections)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	require.Len(t, cfg.Mounts, 1)
	assert.Equal(t, "/data", cfg.Mounts[0].Target)
}

func TestLoadParsesFullFile(t *testing.T) {
	source := t.TempDir()
	path := writeConfig(t, `
[server]
ip = "0.0.0.0"
port = 2049
log_level = "DEBUG"
read_only = true
max_connections = 5
read_timeout = "10s"
write_timeout = "1m"
allow_ips = ["10.0.0.0/8", "127.0.0.1"]

[[mounts]]
source = "`+source+`"
target = "/data"
read_only = true
description = "test data"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.IP)
	assert.Equal(t, 2049, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel, "level is normalized to lowercase")
	assert.True(t, cfg.Server.ReadOnly)
	assert.Equal(t, 5, cfg.Server.MaxConnections)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, time.Minute, cfg.Server.WriteTimeout)
	assert.Equal(t, []string{"10.0.0.0/8", "127.0.0.1"}, cfg.Server.AllowIPs)
	require.Len(t, cfg.Mounts, 1)
	assert.True(t, cfg.Mounts[0].ReadOnly)
	assert.Equal(t, "test data", cfg.Mounts[0].Description)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 11451, cfg.Server.Port)
	assert.Empty(t, cfg.Mounts)
}

func TestVerboseForcesDebug(t *testing.T) {
	cfg := &Config{Server: ServerConfig{LogLevel: "error", Verbose: true}}
	ApplyDefaults(cfg)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
}

func TestWriteExample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "example.toml")
	require.NoError(t, WriteExample(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[server]")
	assert.Contains(t, string(data), "[[mounts]]")

	assert.Error(t, WriteExample(path), "refuses to overwrite")
}

// Package config loads and validates the server configuration from a TOML
// file, environment variables and defaults. CLI flags are layered on top by
// the binary; flags win over environment, environment wins over file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config is the complete server configuration.
type Config struct {
	// Server holds the listener, logging and policy settings.
	Server ServerConfig `mapstructure:"server"`

	// Mounts lists the local directories composed into the exported tree.
	// At least one mount is required.
	Mounts []MountConfig `mapstructure:"mounts" validate:"required,min=1,dive"`
}

// ServerConfig holds server-wide settings.
type ServerConfig struct {
	// IP is the listen address.
	IP string `mapstructure:"ip" validate:"required,ip"`

	// Port is the TCP port serving both the NFS and MOUNT programs.
	Port int `mapstructure:"port" validate:"required,min=1,max=65535"`

	// LogLevel is the minimum level to log: trace, debug, info, warn, error.
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=trace debug info warn error"`

	// Verbose forces the log level to debug regardless of LogLevel.
	Verbose bool `mapstructure:"verbose"`

	// ReadOnly refuses every mutating operation on every mount.
	ReadOnly bool `mapstructure:"read_only"`

	// MaxConnections caps concurrent clients; connections beyond the cap
	// are rejected. 0 means unlimited.
	MaxConnections int `mapstructure:"max_connections" validate:"min=0"`

	// ReadTimeout bounds reading one RPC request.
	ReadTimeout time.Duration `mapstructure:"read_timeout" validate:"min=0"`

	// WriteTimeout bounds writing one RPC reply.
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"min=0"`

	// AllowIPs is the client allow-list: bare IPs or CIDR ranges.
	// Empty allows every client.
	AllowIPs []string `mapstructure:"allow_ips"`

	// PidFile, when set, is written with the process id at startup and
	// removed at shutdown.
	PidFile string `mapstructure:"pid_file"`

	// WorkDir, when set, is chdir'd into before serving.
	WorkDir string `mapstructure:"work_dir"`
}

// MountConfig describes one exported directory.
type MountConfig struct {
	// Source is the local directory to expose. Must exist and be a
	// directory.
	Source string `mapstructure:"source" validate:"required"`

	// Target is the absolute path inside the exported tree.
	Target string `mapstructure:"target" validate:"required,startswith=/"`

	// ReadOnly refuses mutations under this mount only.
	ReadOnly bool `mapstructure:"read_only"`

	// Description is free text shown in logs.
	Description string `mapstructure:"description"`
}

// Load reads the configuration from the given file (optional), applies
// NFSMIRROR_ environment overrides and defaults, and validates the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix("NFSMIRROR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configPath, err)
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)
	return &cfg, nil
}

// ApplyDefaults fills zero values. Mounts get no default: requiring an
// explicit mount keeps an empty config from silently exporting nothing.
func ApplyDefaults(cfg *Config) {
	s := &cfg.Server
	if s.IP == "" {
		s.IP = "127.0.0.1"
	}
	if s.Port == 0 {
		s.Port = 11451
	}
	if s.LogLevel == "" {
		s.LogLevel = "error"
	}
	s.LogLevel = strings.ToLower(s.LogLevel)
	if s.Verbose {
		s.LogLevel = "debug"
	}
	if s.MaxConnections == 0 {
		s.MaxConnections = 100
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = 30 * time.Second
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = 30 * time.Second
	}
}

package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks the configuration. Struct tags cover the declarative
// rules; everything touching the filesystem or needing cross-field context
// lives in the custom rules below. Any failure is startup-fatal.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return validateCustomRules(cfg)
}

func validateCustomRules(cfg *Config) error {
	targets := make(map[string]int)
	for i, m := range cfg.Mounts {
		info, err := os.Stat(m.Source)
		if err != nil {
			return fmt.Errorf("mounts[%d]: source %q: %w", i, m.Source, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("mounts[%d]: source %q is not a directory", i, m.Source)
		}

		target := strings.TrimRight(m.Target, "/")
		if target == "" {
			target = "/"
		}
		if prev, dup := targets[target]; dup {
			return fmt.Errorf("mounts[%d]: target %q duplicates mounts[%d]", i, m.Target, prev)
		}
		targets[target] = i
	}

	for i, entry := range cfg.Server.AllowIPs {
		if err := validateAllowEntry(entry); err != nil {
			return fmt.Errorf("server.allow_ips[%d]: %w", i, err)
		}
	}
	return nil
}

// validateAllowEntry accepts a bare IP or a CIDR range.
func validateAllowEntry(entry string) error {
	if strings.Contains(entry, "/") {
		if _, _, err := net.ParseCIDR(entry); err != nil {
			return fmt.Errorf("invalid CIDR %q", entry)
		}
		return nil
	}
	if net.ParseIP(entry) == nil {
		return fmt.Errorf("invalid IP %q", entry)
	}
	return nil
}

func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: failed %q validation (value: %v)", e.Namespace(), e.Tag(), e.Value())
	}
	return err
}

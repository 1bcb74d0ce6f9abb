// Copyright (c) 2026 Jeremy Hahn
// Copyright (c) 2026 Automate The Things, LLC
//
// This file is part of go-nitrocert.
//
// go-nitrocert is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultCertDir is where certbot maintains the live symlinks for
// issued certificates
const DefaultCertDir = "/etc/letsencrypt/live"

// DefaultTimeoutSeconds bounds each appliance request
const DefaultTimeoutSeconds = 30

// Config represents the complete nitrocert configuration
type Config struct {
	Appliance ApplianceConfig `yaml:"appliance"`
	Certs     CertsConfig     `yaml:"certs"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ApplianceConfig contains the NITRO endpoint and credentials
type ApplianceConfig struct {
	// URL is the management address, e.g. https://ns.example.net
	URL string `yaml:"url"`

	// Username and Password authenticate every request, the NITRO
	// protocol has no session state
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// VerifySSL controls certificate verification of the management
	// endpoint itself. Nil means verify.
	VerifySSL *bool `yaml:"verify_ssl"`

	// TimeoutSeconds bounds each request
	TimeoutSeconds int `yaml:"timeout_seconds"`

	// RequestsPerSecond throttles the client, 0 disables throttling
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// KeyPassphrase decrypts encrypted private keys before upload
	KeyPassphrase string `yaml:"key_passphrase"`
}

// CertsConfig locates local certificate material
type CertsConfig struct {
	// Dir is the directory holding one subdirectory per certificate
	// lineage, certbot layout
	Dir string `yaml:"dir"`
}

// LoggingConfig controls logging behavior
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Appliance: ApplianceConfig{
			Username:       "nsroot",
			Password:       "nsroot",
			TimeoutSeconds: DefaultTimeoutSeconds,
		},
		Certs: CertsConfig{
			Dir: DefaultCertDir,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from a YAML file over the defaults.
func Load(path string) (*Config, error) {
	// #nosec G304 - Config file path is provided by admin/user
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the populated fields are consistent. The URL
// may still arrive from flags or the environment, callers check for it
// before connecting.
func (c *Config) Validate() error {
	if c.Appliance.URL != "" {
		parsed, err := url.Parse(c.Appliance.URL)
		if err != nil {
			return fmt.Errorf("invalid appliance url: %w", err)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return fmt.Errorf("invalid appliance url scheme: %q (must be http or https)", parsed.Scheme)
		}
	}

	if c.Appliance.TimeoutSeconds < 0 {
		return fmt.Errorf("invalid timeout_seconds: %d", c.Appliance.TimeoutSeconds)
	}
	if c.Appliance.RequestsPerSecond < 0 {
		return fmt.Errorf("invalid requests_per_second: %g", c.Appliance.RequestsPerSecond)
	}

	if c.Logging.Level != "" {
		validLevels := map[string]bool{
			"debug": true, "info": true, "warn": true, "error": true,
		}
		if !validLevels[strings.ToLower(c.Logging.Level)] {
			return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
		}
	}
	return nil
}

// Timeout returns the request timeout as a duration.
func (c *Config) Timeout() time.Duration {
	if c.Appliance.TimeoutSeconds <= 0 {
		return DefaultTimeoutSeconds * time.Second
	}
	return time.Duration(c.Appliance.TimeoutSeconds) * time.Second
}

// Insecure reports whether management endpoint verification is
// disabled.
func (c *Config) Insecure() bool {
	return c.Appliance.VerifySSL != nil && !*c.Appliance.VerifySSL
}

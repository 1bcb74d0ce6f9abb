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

package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jeremyhahn/go-nitrocert/internal/config"
	"github.com/jeremyhahn/go-nitrocert/pkg/logging"
	"github.com/jeremyhahn/go-nitrocert/pkg/nitro"
	"github.com/spf13/viper"
)

// Config holds global CLI configuration
type Config struct {
	// ConfigFile is the path to the configuration file
	ConfigFile string

	// URL overrides the appliance management address
	URL string

	// OutputFormat controls output formatting (text, json, table)
	OutputFormat string

	// Verbose enables debug logging
	Verbose bool

	// Quiet suppresses everything below error
	Quiet bool

	resolved *config.Config
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		OutputFormat: "text",
	}
}

// Resolve merges the config file, NS_* environment variables and
// command line flags, in that order of precedence. The result is
// cached for the remainder of the invocation.
func (c *Config) Resolve() (*config.Config, error) {
	if c.resolved != nil {
		return c.resolved, nil
	}

	cfg, err := c.loadFile()
	if err != nil {
		return nil, err
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if c.URL != "" {
		cfg.Appliance.URL = c.URL
	}
	if c.Verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c.resolved = cfg
	return cfg, nil
}

// loadFile reads the configuration file named by --config, falling
// back to the well-known locations and then to defaults.
func (c *Config) loadFile() (*config.Config, error) {
	if c.ConfigFile != "" {
		return config.Load(c.ConfigFile)
	}
	for _, path := range defaultConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			return config.Load(path)
		}
	}
	return config.Default(), nil
}

func defaultConfigPaths() []string {
	paths := []string{"/etc/nitrocert/nitrocert.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".nitrocert.yaml"))
	}
	return paths
}

// applyEnv overlays the NS_* environment variables, the interface
// certbot deploy hooks have historically been configured with.
func applyEnv(cfg *config.Config) error {
	v := viper.New()
	v.SetEnvPrefix("ns")
	v.AutomaticEnv()

	if url := v.GetString("url"); url != "" {
		cfg.Appliance.URL = url
	}
	if login := v.GetString("login"); login != "" {
		cfg.Appliance.Username = login
	}
	if password := v.GetString("password"); password != "" {
		cfg.Appliance.Password = password
	}
	if verify := v.GetString("verify_ssl"); verify != "" {
		b, err := strconv.ParseBool(verify)
		if err != nil {
			return fmt.Errorf("invalid NS_VERIFY_SSL value %q: %w", verify, err)
		}
		cfg.Appliance.VerifySSL = &b
	}
	if timeout := v.GetString("timeout"); timeout != "" {
		secs, err := strconv.Atoi(timeout)
		if err != nil || secs <= 0 {
			return fmt.Errorf("invalid NS_TIMEOUT value %q (seconds)", timeout)
		}
		cfg.Appliance.TimeoutSeconds = secs
	}
	if passphrase := v.GetString("key_passphrase"); passphrase != "" {
		cfg.Appliance.KeyPassphrase = passphrase
	}
	if dir := v.GetString("cert_dir"); dir != "" {
		cfg.Certs.Dir = dir
	}
	return nil
}

// CreateStore connects a NITRO client from the resolved configuration
func (c *Config) CreateStore() (nitro.Store, error) {
	cfg, err := c.Resolve()
	if err != nil {
		return nil, err
	}
	if cfg.Appliance.URL == "" {
		return nil, fmt.Errorf("appliance url is required (set --url, NS_URL, or appliance.url in the config file)")
	}
	return nitro.NewClient(&nitro.Config{
		URL:               cfg.Appliance.URL,
		Username:          cfg.Appliance.Username,
		Password:          cfg.Appliance.Password,
		Insecure:          cfg.Insecure(),
		Timeout:           cfg.Timeout(),
		RequestsPerSecond: cfg.Appliance.RequestsPerSecond,
	})
}

// Logger builds the CLI logger from the resolved log level and the
// --verbose and --quiet flags
func (c *Config) Logger() *logging.Logger {
	verbose := c.Verbose
	if c.resolved != nil && strings.EqualFold(c.resolved.Logging.Level, "debug") {
		verbose = true
	}
	return logging.New(verbose, c.Quiet)
}

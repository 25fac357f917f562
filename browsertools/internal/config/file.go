// Package config handles browsermcp configuration: a YAML file, then
// BROWSERMCP_* environment overrides, then defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration.
type Config struct {
	Browser   BrowserConfig   `yaml:"browser"`
	Assert    AssertConfig    `yaml:"assert"`
	Recording RecordingConfig `yaml:"recording"`
	Server    ServerConfig    `yaml:"server"`
}

// BrowserConfig controls Chrome.
type BrowserConfig struct {
	Remote            string        `yaml:"remote"`
	Bin               string        `yaml:"bin"`
	Headful           bool          `yaml:"headful"`
	Stealth           bool          `yaml:"stealth"`
	ResourceBlocking  []string      `yaml:"resource_blocking"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`

	// Navigation policy. Entries are origins ("https://example.com") or
	// host patterns ("*.example.com"). Empty AllowedOrigins allows all.
	AllowedOrigins      []string `yaml:"allowed_origins"`
	BlockedOrigins      []string `yaml:"blocked_origins"`
	BlockPrivateNetwork bool     `yaml:"block_private_network"`
}

// AssertConfig controls the containment check.
type AssertConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// RecordingConfig controls step recording.
type RecordingConfig struct {
	Enabled bool   `yaml:"enabled"`
	DB      string `yaml:"db"` // empty = log only

	// Retention prunes steps older than this at startup. 0 keeps all.
	Retention time.Duration `yaml:"retention"`
}

// ServerConfig controls the MCP transport.
type ServerConfig struct {
	Transport string `yaml:"transport"` // stdio | http
	Addr      string `yaml:"addr"`      // for http
}

// LoadFile reads a YAML configuration file, applies environment overrides
// and defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// Default returns the configuration used without a file.
func Default() *Config {
	var cfg Config
	cfg.ApplyDefaults()
	return &cfg
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Browser.NavigationTimeout <= 0 {
		c.Browser.NavigationTimeout = 30 * time.Second
	}
	if c.Assert.Timeout <= 0 {
		c.Assert.Timeout = 5 * time.Second
	}
	if c.Server.Transport == "" {
		c.Server.Transport = "stdio"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = "127.0.0.1:8931"
	}
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	switch c.Server.Transport {
	case "", "stdio", "http":
	default:
		return fmt.Errorf("config: unknown transport %q", c.Server.Transport)
	}
	return nil
}

// ApplyEnv overrides fields from BROWSERMCP_* variables. lookup is
// os.LookupEnv outside tests.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	list := func(key string, dst *[]string) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		var out []string
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		*dst = out
	}
	boolean := func(key string, dst *bool) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", key, err)
		}
		*dst = b
		return nil
	}
	duration := func(key string, dst *time.Duration) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", key, err)
		}
		*dst = d
		return nil
	}

	str("BROWSERMCP_REMOTE", &c.Browser.Remote)
	str("BROWSERMCP_CHROME_BIN", &c.Browser.Bin)
	str("BROWSERMCP_RECORDING_DB", &c.Recording.DB)
	str("BROWSERMCP_TRANSPORT", &c.Server.Transport)
	str("BROWSERMCP_ADDR", &c.Server.Addr)
	list("BROWSERMCP_RESOURCE_BLOCKING", &c.Browser.ResourceBlocking)
	list("BROWSERMCP_ALLOWED_ORIGINS", &c.Browser.AllowedOrigins)
	list("BROWSERMCP_BLOCKED_ORIGINS", &c.Browser.BlockedOrigins)
	for key, dst := range map[string]*bool{
		"BROWSERMCP_HEADFUL":               &c.Browser.Headful,
		"BROWSERMCP_STEALTH":               &c.Browser.Stealth,
		"BROWSERMCP_BLOCK_PRIVATE_NETWORK": &c.Browser.BlockPrivateNetwork,
		"BROWSERMCP_RECORDING":             &c.Recording.Enabled,
	} {
		if err := boolean(key, dst); err != nil {
			return err
		}
	}
	if err := duration("BROWSERMCP_NAVIGATION_TIMEOUT", &c.Browser.NavigationTimeout); err != nil {
		return err
	}
	if err := duration("BROWSERMCP_RECORDING_RETENTION", &c.Recording.Retention); err != nil {
		return err
	}
	return duration("BROWSERMCP_ASSERT_TIMEOUT", &c.Assert.Timeout)
}

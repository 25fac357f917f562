package browsertools

import (
	"github.com/hazyhaar/browsermcp/browsertools/internal/config"
)

// Config is the top-level browsermcp configuration. Re-exported from internal.
type Config = config.Config

// BrowserConfig controls Chrome.
type BrowserConfig = config.BrowserConfig

// AssertConfig controls the containment check.
type AssertConfig = config.AssertConfig

// RecordingConfig controls step recording.
type RecordingConfig = config.RecordingConfig

// ServerConfig controls the MCP transport.
type ServerConfig = config.ServerConfig

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}

// DefaultConfig returns the configuration used without a file, with
// BROWSERMCP_* overrides applied.
func DefaultConfig(lookup func(string) (string, bool)) (*Config, error) {
	cfg := config.Default()
	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

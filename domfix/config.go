package domfix

import (
	"github.com/hazyhaar/domfix/domfix/internal/config"
)

// Config is the top-level domfix configuration. Re-exported from internal.
type Config = config.Config

// BrowserConfig controls Chrome for live mode.
type BrowserConfig = config.BrowserConfig

// SinkConfig defines an output backend.
type SinkConfig = config.SinkConfig

// AdminConfig controls the admin HTTP surface.
type AdminConfig = config.AdminConfig

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	return config.Default()
}

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}

// ParseConfig decodes a YAML configuration.
func ParseConfig(data []byte) (*Config, error) {
	return config.Parse(data)
}

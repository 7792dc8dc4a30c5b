// CLAUDE:SUMMARY Defines domfix config structs and parses YAML configuration files with defaults.
// Package config handles domfix configuration from YAML files.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/domfix/domfix/rule"
	"github.com/hazyhaar/domfix/fixes"
)

// Config is the top-level domfix configuration.
type Config struct {
	DebounceMS      int    `yaml:"debounce_ms"`
	SettleDelayMS   int    `yaml:"settle_delay_ms"`
	MaxPending      int    `yaml:"max_pending"`
	ObservedRoot    string `yaml:"observed_root"` // selector
	MarkerAttribute string `yaml:"marker_attribute"`
	ReportBuffer    int    `yaml:"report_buffer"`
	InitialScreen   string `yaml:"initial_screen"`

	Screens []rule.ScreenDescriptor `yaml:"screens"`
	Styles  []fixes.StyleSpec       `yaml:"styles"`
	Staking fixes.Staking           `yaml:"staking"`

	Browser BrowserConfig `yaml:"browser"`
	Sinks   []SinkConfig  `yaml:"sinks"`
	Admin   AdminConfig   `yaml:"admin"`
}

// BrowserConfig controls Chrome for live mode.
type BrowserConfig struct {
	Remote           string   `yaml:"remote"` // ws:// of an existing Chrome; empty launches one
	Headless         *bool    `yaml:"headless"`
	Stealth          bool     `yaml:"stealth"`
	ResourceBlocking []string `yaml:"resource_blocking"` // image | font | media | stylesheet
	URL              string   `yaml:"url"`
}

// SinkConfig defines an output backend for pass reports.
type SinkConfig struct {
	Type string `yaml:"type"` // stdout | webhook | ledger
	URL  string `yaml:"url"`  // webhook
	Path string `yaml:"path"` // ledger database
}

// AdminConfig controls the admin HTTP surface.
type AdminConfig struct {
	Addr string `yaml:"addr"` // empty disables it
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var c Config
	c.ApplyDefaults()
	return &c
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML and applies defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills every zero field with its default.
func (c *Config) ApplyDefaults() {
	if c.DebounceMS <= 0 {
		c.DebounceMS = 100
	}
	if c.SettleDelayMS <= 0 {
		c.SettleDelayMS = 300
	}
	if c.MaxPending <= 0 {
		c.MaxPending = 1000
	}
	if c.ObservedRoot == "" {
		c.ObservedRoot = "#app"
	}
	if c.MarkerAttribute == "" {
		c.MarkerAttribute = "data-fx"
	}
	if c.ReportBuffer <= 0 {
		c.ReportBuffer = 64
	}
	if c.InitialScreen == "" {
		c.InitialScreen = "wallet"
	}
	if len(c.Screens) == 0 {
		c.Screens = fixes.DefaultScreens()
	}
	if c.Browser.Headless == nil {
		headless := true
		c.Browser.Headless = &headless
	}
}

// Validate checks values defaults cannot repair.
func (c *Config) Validate() error {
	var errs []error
	seen := make(map[string]bool)
	for _, sd := range c.Screens {
		if sd.ScreenID == "" {
			errs = append(errs, errors.New("screen without id"))
			continue
		}
		if seen[sd.ScreenID] {
			errs = append(errs, fmt.Errorf("screen %q declared twice", sd.ScreenID))
		}
		seen[sd.ScreenID] = true
	}
	for i, s := range c.Sinks {
		switch s.Type {
		case "stdout":
		case "webhook":
			if s.URL == "" {
				errs = append(errs, fmt.Errorf("sinks[%d]: webhook requires url", i))
			}
		case "ledger":
			if s.Path == "" {
				errs = append(errs, fmt.Errorf("sinks[%d]: ledger requires path", i))
			}
		default:
			errs = append(errs, fmt.Errorf("sinks[%d]: unknown type %q", i, s.Type))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Debounce returns the debounce window.
func (c *Config) Debounce() time.Duration { return time.Duration(c.DebounceMS) * time.Millisecond }

// SettleDelay returns the navigation settle delay.
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.SettleDelayMS) * time.Millisecond
}

// FixOptions returns the options of the configurable rules.
func (c *Config) FixOptions() fixes.Options {
	return fixes.Options{Staking: c.Staking, Styles: c.Styles}
}

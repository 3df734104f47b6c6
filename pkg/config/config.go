package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Defaults applied to unset fields.
const (
	DefaultBaseURL      = "http://localhost:8000"
	DefaultPollInterval = "5m"
)

// Config represents the top-level configuration file structure
type Config struct {
	Backend  BackendConfig  `yaml:"backend" toml:"backend"`
	Insights InsightsConfig `yaml:"insights" toml:"insights"`
	Console  ConsoleConfig  `yaml:"console" toml:"console"`
}

// BackendConfig describes how to reach the inventory backend
type BackendConfig struct {
	BaseURL string `yaml:"base_url" toml:"base_url"`
	// Timeout is a Go duration string; empty means no client-side timeout
	Timeout string `yaml:"timeout" toml:"timeout"`

	timeout time.Duration
}

// InsightsConfig controls the sales insights panel
type InsightsConfig struct {
	PollInterval string `yaml:"poll_interval" toml:"poll_interval"`

	pollInterval time.Duration
}

// ConsoleConfig controls terminal rendering
type ConsoleConfig struct {
	NoColor      bool `yaml:"no_color" toml:"no_color"`
	ItemColWidth int  `yaml:"item_col_width" toml:"item_col_width"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	c := &Config{}
	if err := c.ApplyDefaults(); err != nil {
		// the built-in defaults always validate
		panic(err)
	}
	return c
}

// LoadFromFile reads a YAML or TOML configuration file and returns the parsed
// Config. Files ending in .toml are decoded as TOML, anything else as YAML.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if strings.EqualFold(filepath.Ext(filename), ".toml") {
		if _, err := toml.Decode(string(data), &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}

	return &config, nil
}

// ApplyDefaults fills unset fields and validates the result. It must be
// called again after fields are changed, e.g. by command-line overrides.
func (c *Config) ApplyDefaults() error {
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = DefaultBaseURL
	}
	if c.Insights.PollInterval == "" {
		c.Insights.PollInterval = DefaultPollInterval
	}

	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("backend: base_url %q must be an absolute http(s) URL", c.Backend.BaseURL)
	}

	c.Backend.timeout = 0
	if c.Backend.Timeout != "" {
		d, err := time.ParseDuration(c.Backend.Timeout)
		if err != nil {
			return fmt.Errorf("backend: invalid timeout %q: %w", c.Backend.Timeout, err)
		}
		if d < 0 {
			return fmt.Errorf("backend: timeout %q must not be negative", c.Backend.Timeout)
		}
		c.Backend.timeout = d
	}

	d, err := time.ParseDuration(c.Insights.PollInterval)
	if err != nil {
		return fmt.Errorf("insights: invalid poll_interval %q: %w", c.Insights.PollInterval, err)
	}
	if d <= 0 {
		return fmt.Errorf("insights: poll_interval %q must be positive", c.Insights.PollInterval)
	}
	c.Insights.pollInterval = d

	if c.Console.ItemColWidth < 0 {
		return fmt.Errorf("console: item_col_width must not be negative, got %d", c.Console.ItemColWidth)
	}

	return nil
}

// TimeoutDuration returns the parsed request timeout, zero when unset.
func (b BackendConfig) TimeoutDuration() time.Duration {
	return b.timeout
}

// Interval returns the parsed poll interval.
func (i InsightsConfig) Interval() time.Duration {
	return i.pollInterval
}

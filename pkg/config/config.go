// Package config loads fragctl's YAML configuration, the same
// Load/DefaultConfig/Validate shape the rest of the retrieved pack uses
// for its own config.Load (see mrcgq-222's internal/config), adapted down
// to what the fragmentation handler and its interfaces actually need.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is fragctl's top-level configuration document.
type Config struct {
	Listen    string          `yaml:"listen"`
	LogLevel  string          `yaml:"log_level"`
	Fragment  FragmentConfig  `yaml:"fragment"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Transport TransportConfig `yaml:"transport"`
}

// FragmentConfig mirrors fragmentation.Config's tunable fields.
type FragmentConfig struct {
	MaxFragmentSize      int           `yaml:"max_fragment_size"`
	RetransmitTime       time.Duration `yaml:"retransmit_time"`
	DropTime             time.Duration `yaml:"drop_time"`
	RetransmitMultiplier uint          `yaml:"retransmit_multiplier"`
	TombstoneMultiplier  uint          `yaml:"tombstone_multiplier"`
}

// MetricsConfig configures the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
	Path    string `yaml:"path"`
}

// TransportConfig selects and configures the link.Interface a Handler
// binds to.
type TransportConfig struct {
	Kind string `yaml:"kind"` // loopback, quic, websocket, yamux, pty
	Addr string `yaml:"addr"`
}

// Load reads and parses the YAML document at path, then fills in any
// zero-valued field from DefaultConfig and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfig returns a Config with every field set to its default.
func DefaultConfig() *Config {
	return &Config{
		Listen:   ":7780",
		LogLevel: "info",
		Fragment: FragmentConfig{
			MaxFragmentSize:      255,
			RetransmitTime:       2 * time.Second,
			DropTime:             30 * time.Second,
			RetransmitMultiplier: 3,
			TombstoneMultiplier:  5,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Listen:  ":9090",
			Path:    "/metrics",
		},
		Transport: TransportConfig{
			Kind: "loopback",
		},
	}
}

// applyDefaults fills in zero-valued fields left unset by a partial YAML
// document, the way mrcgq-222's config.Load layers DefaultConfig()
// underneath the parsed document.
func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.Fragment.MaxFragmentSize == 0 {
		c.Fragment.MaxFragmentSize = def.Fragment.MaxFragmentSize
	}
	if c.Fragment.RetransmitTime == 0 {
		c.Fragment.RetransmitTime = def.Fragment.RetransmitTime
	}
	if c.Fragment.DropTime == 0 {
		c.Fragment.DropTime = def.Fragment.DropTime
	}
	if c.Fragment.RetransmitMultiplier == 0 {
		c.Fragment.RetransmitMultiplier = def.Fragment.RetransmitMultiplier
	}
	if c.Fragment.TombstoneMultiplier == 0 {
		c.Fragment.TombstoneMultiplier = def.Fragment.TombstoneMultiplier
	}
	if c.Metrics.Listen == "" {
		c.Metrics.Listen = def.Metrics.Listen
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = def.Metrics.Path
	}
	if c.Transport.Kind == "" {
		c.Transport.Kind = def.Transport.Kind
	}
}

// Validate rejects configurations the handler cannot be built from.
func (c *Config) Validate() error {
	if c.Fragment.MaxFragmentSize <= 7 {
		return fmt.Errorf("config: fragment.max_fragment_size must exceed the 7-byte header, got %d", c.Fragment.MaxFragmentSize)
	}
	if c.Fragment.DropTime <= c.Fragment.RetransmitTime {
		return fmt.Errorf("config: fragment.drop_time must exceed fragment.retransmit_time")
	}
	switch c.Transport.Kind {
	case "loopback", "quic", "websocket", "yamux", "pty":
	default:
		return fmt.Errorf("config: unsupported transport.kind %q", c.Transport.Kind)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unsupported log_level %q", c.LogLevel)
	}
	return nil
}

package recorder

import (
	"fmt"
	"os"
	"time"

	"github.com/yairfalse/memtrace/pkg/hooks"
	"gopkg.in/yaml.v3"
)

// Config holds configuration for one recording observer.
type Config struct {
	// Basic settings
	Name           string `yaml:"name" json:"name"`
	BufferCapacity int    `yaml:"buffer_capacity" json:"buffer_capacity"` // initial event buffer capacity

	// Stack trace capture
	CaptureStackTraces bool `yaml:"capture_stack_traces" json:"capture_stack_traces"`
	TraceCacheSize     int  `yaml:"trace_cache_size" json:"trace_cache_size"` // LRU entries, keyed by origin pc

	// Health grading
	HealthCheckTimeout time.Duration `yaml:"health_check_timeout" json:"health_check_timeout"`
	ErrorRateThreshold float64       `yaml:"error_rate_threshold" json:"error_rate_threshold"`

	// Host-supplied policies; not loadable from file
	DirectionPolicy hooks.DirectionPolicy `yaml:"-" json:"-"`
	TraceCapturer   hooks.TraceCapturer   `yaml:"-" json:"-"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name must not be empty")
	}
	if c.BufferCapacity < 0 {
		return fmt.Errorf("buffer capacity cannot be negative")
	}
	if c.TraceCacheSize < 0 {
		return fmt.Errorf("trace cache size cannot be negative")
	}
	if c.ErrorRateThreshold < 0 || c.ErrorRateThreshold > 1 {
		return fmt.Errorf("error rate threshold must be within [0, 1]")
	}
	return nil
}

// DefaultConfig returns production-ready default configuration
func DefaultConfig() *Config {
	return &Config{
		Name:           "memtrace",
		BufferCapacity: 4096,

		CaptureStackTraces: false,
		TraceCacheSize:     1024,

		HealthCheckTimeout: 5 * time.Minute,
		ErrorRateThreshold: 0.05,

		DirectionPolicy: hooks.SignDirectionPolicy,
		TraceCapturer:   hooks.RuntimeTraceCapturer,
	}
}

// UnmarshalYAML decodes a config document over whatever is already set,
// leaving absent keys untouched. Durations use time.ParseDuration notation.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	type rawConfig struct {
		Name               string   `yaml:"name"`
		BufferCapacity     *int     `yaml:"buffer_capacity"`
		CaptureStackTraces *bool    `yaml:"capture_stack_traces"`
		TraceCacheSize     *int     `yaml:"trace_cache_size"`
		HealthCheckTimeout string   `yaml:"health_check_timeout"`
		ErrorRateThreshold *float64 `yaml:"error_rate_threshold"`
	}

	var raw rawConfig
	if err := value.Decode(&raw); err != nil {
		return err
	}

	if raw.Name != "" {
		c.Name = raw.Name
	}
	if raw.BufferCapacity != nil {
		c.BufferCapacity = *raw.BufferCapacity
	}
	if raw.CaptureStackTraces != nil {
		c.CaptureStackTraces = *raw.CaptureStackTraces
	}
	if raw.TraceCacheSize != nil {
		c.TraceCacheSize = *raw.TraceCacheSize
	}
	if raw.HealthCheckTimeout != "" {
		d, err := time.ParseDuration(raw.HealthCheckTimeout)
		if err != nil {
			return fmt.Errorf("invalid health_check_timeout: %w", err)
		}
		c.HealthCheckTimeout = d
	}
	if raw.ErrorRateThreshold != nil {
		c.ErrorRateThreshold = *raw.ErrorRateThreshold
	}
	return nil
}

// LoadConfig reads a config file (YAML) over the defaults. Policies stay at
// their defaults; hosts override them in code.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

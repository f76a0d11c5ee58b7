package fins

import (
	"fmt"
	"net"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the YAML form of the client options.
//
//	host: 192.168.250.1
//	port: 9600
//	timeout: 2s
//	destination: {network: 0, node: 1, unit: 0}
//	source: {network: 0, node: 34, unit: 0}
type Config struct {
	Host               string         `yaml:"host"`
	Port               int            `yaml:"port"`
	LocalAddr          string         `yaml:"local-addr"`
	Timeout            *time.Duration `yaml:"timeout"` // 0 disables, unset keeps the default
	Destination        *FinsAddress   `yaml:"destination"`
	Source             *FinsAddress   `yaml:"source"`
	LegacyAreaFallback bool           `yaml:"legacy-area-fallback"`
	RearmOnSend        bool           `yaml:"rearm-on-send"`
}

// LoadConfig reads a Config from a YAML file and applies defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = DEFAULT_HOST
	}
	if c.Port == 0 {
		c.Port = DEFAULT_PORT
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.Timeout != nil && *c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative: %v", *c.Timeout)
	}
	if c.LocalAddr != "" {
		if _, err := net.ResolveUDPAddr("udp4", c.LocalAddr); err != nil {
			return fmt.Errorf("local-addr: %w", err)
		}
	}
	return nil
}

// Options converts the config into client options. Options passed to
// NewClient after these override them.
func (c *Config) Options() ([]Option, error) {
	opts := []Option{
		WithLegacyAreaFallback(c.LegacyAreaFallback),
		WithRearmOnSend(c.RearmOnSend),
	}
	if c.Port != 0 {
		opts = append(opts, WithPort(c.Port))
	}
	if c.Timeout != nil {
		opts = append(opts, WithTimeout(*c.Timeout))
	}
	if c.Destination != nil {
		opts = append(opts, WithDestination(*c.Destination))
	}
	if c.Source != nil {
		opts = append(opts, WithSource(*c.Source))
	}
	if c.LocalAddr != "" {
		local, err := net.ResolveUDPAddr("udp4", c.LocalAddr)
		if err != nil {
			return nil, fmt.Errorf("local-addr: %w", err)
		}
		opts = append(opts, WithLocalAddr(local))
	}
	return opts, nil
}

// NewClient builds a client from the config. extra options are applied
// last.
func (c *Config) NewClient(extra ...Option) (*Client, error) {
	opts, err := c.Options()
	if err != nil {
		return nil, err
	}
	return NewClient(c.Host, append(opts, extra...)...)
}

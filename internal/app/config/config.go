// Package config loads the dispatcher's YAML configuration file, grounded in
// the teacher's Load/applyDefaults/validate two-step shape.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"txflow/internal/ports"
	"txflow/internal/registry"
)

// Config is the top-level dispatcher configuration.
type Config struct {
	ServiceID string            `yaml:"service_id"`
	Postgres  PostgresConfig    `yaml:"postgres"`
	Metrics   MetricsConfig     `yaml:"metrics"`
	Registry  RegistryConfig    `yaml:"registry"`
	Queue     ports.QueuePolicy `yaml:"queue"`
}

// PostgresConfig points at the optional Postgres-backed SettingsStore and
// DistributorRegistry adapters. Left empty, pkg/txflow falls back to its
// in-memory adapters unless callers supply their own via functional options.
type PostgresConfig struct {
	ConnString string `yaml:"conn_string"`
}

// MetricsConfig controls where the Prometheus handler is exposed.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// RegistryConfig controls the DispatcherRegistry's periodic refresh.
type RegistryConfig struct {
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

// Load reads path, applies defaults, validates, and returns the resulting
// Config.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ServiceID == "" {
		c.ServiceID = "txflow-dispatcher"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
	if c.Registry.RefreshInterval <= 0 {
		c.Registry.RefreshInterval = registry.DefaultRefreshInterval
	}
	c.Queue.ApplyDefaults()
}

func (c *Config) validate() error {
	if c.ServiceID == "" {
		return fmt.Errorf("service_id is required")
	}
	if c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required")
	}
	if c.Registry.RefreshInterval <= 0 {
		return fmt.Errorf("registry.refresh_interval must be positive")
	}
	return nil
}

package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/syssam/rowmap/db"
)

// Environment variables that override the configuration file.
const (
	envDSN    = "ROWMAP_DSN"
	envDriver = "ROWMAP_DRIVER"
)

// defaultDriver is used when neither the file, the environment nor a flag
// names one.
const defaultDriver = "mysql"

// fileConfig is the YAML configuration file layout.
type fileConfig struct {
	db.Config     `yaml:",inline"`
	Debug         bool          `yaml:"debug"`
	SlowThreshold time.Duration `yaml:"slow_threshold"`
}

// loadConfig reads path (when set) and applies the environment overrides.
func loadConfig(path string) (*fileConfig, error) {
	cfg := &fileConfig{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if v := os.Getenv(envDSN); v != "" {
		cfg.DSN = v
	}
	if v := os.Getenv(envDriver); v != "" {
		cfg.Driver = v
	}
	return cfg, nil
}

// apply overrides the configuration with non-empty flag values.
func (c *fileConfig) apply(g globalFlags) {
	if g.dsn != "" {
		c.DSN = g.dsn
	}
	if g.driver != "" {
		c.Driver = g.driver
	}
	if g.debug {
		c.Debug = true
	}
	if c.Driver == "" {
		c.Driver = defaultDriver
	}
}

// options returns the facade options derived from the configuration.
func (c *fileConfig) options() []db.Option {
	var opts []db.Option
	if c.Debug {
		opts = append(opts, db.WithDebug())
	}
	if c.SlowThreshold > 0 {
		opts = append(opts, db.WithSlowThreshold(c.SlowThreshold))
	}
	return opts
}

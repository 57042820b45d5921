// Package config aggregates the per-package sections of config.yaml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	yaml "github.com/goccy/go-yaml"

	"flightsup/internal/avoid"
	"flightsup/internal/directive"
	"flightsup/internal/logging"
	"flightsup/internal/safety"
	"flightsup/internal/sched"
	"flightsup/internal/sim"
	"flightsup/internal/task"
	"flightsup/internal/telemetry"
)

// Config mirrors config.yaml
type Config struct {
	Scheduler sched.Config            `yaml:"scheduler"`
	Task      task.Config             `yaml:"task"`
	Safety    safety.Config           `yaml:"safety"`
	Avoidance avoid.Config            `yaml:"avoidance"`
	Channel   directive.ChannelConfig `yaml:"channel"`
	Log       logging.Config          `yaml:"log"`
	Telemetry telemetry.Config        `yaml:"telemetry"`
	Sim       sim.Config              `yaml:"sim"`
}

// Default is used when no config file is given.
func Default() Config {
	return Config{
		Scheduler: sched.DefaultConfig(),
		Task:      task.DefaultConfig(),
		Safety:    safety.DefaultConfig(),
		Avoidance: avoid.DefaultConfig(),
		Channel:   directive.DefaultChannelConfig(),
		Log:       logging.DefaultConfig(),
		Telemetry: telemetry.DefaultConfig(),
		Sim:       sim.DefaultConfig(),
	}
}

// Load reads YAML over the defaults. An empty path or a missing file gives
// the defaults; a malformed file is an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	return Parse(data)
}

// Parse decodes data over the defaults and applies sanity clamps.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("parse config: %w", err)
	}
	cfg.Sanitize()
	return cfg, nil
}

// Sanitize clamps every section.
func (c *Config) Sanitize() {
	c.Scheduler.Sanitize()
	c.Task.Sanitize()
	c.Safety.Sanitize()
	c.Avoidance.Sanitize()
	c.Telemetry.Sanitize()
	c.Sim.Sanitize()
	if c.Channel.ReadBuffer <= 0 {
		c.Channel.ReadBuffer = directive.DefaultChannelConfig().ReadBuffer
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		c.Log.Level = logging.DefaultConfig().Level
	}
}

// YAML renders the effective configuration.
func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

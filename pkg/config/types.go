package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the main configuration struct.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Work      WorkConfig      `yaml:"work"`
	Monitor   MonitorConfig   `yaml:"monitor"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds http listener settings.
type ServerConfig struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// SchedulerConfig controls batching and dispatch throughput.
type SchedulerConfig struct {
	// MaxBatch is the maximum number of ids per batch.
	MaxBatch int `yaml:"max_batch"`
	// RateLimit is the minimum interval between two consecutive dispatches.
	RateLimit Duration `yaml:"rate_limit"`
}

// WorkConfig tunes the simulated unit of work.
type WorkConfig struct {
	MinLatency Duration `yaml:"min_latency"`
	MaxLatency Duration `yaml:"max_latency"`
}

// MonitorConfig drives the stuck-batch sweep.
type MonitorConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"`
	// StuckAfter is how long a batch may sit dispatched before the sweep
	// reports it.
	StuckAfter Duration `yaml:"stuck_after"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Addr returns the listen address in host:port form.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// Duration is a wrapper around time.Duration that supports YAML parsing from
// strings like "5s" or plain numbers (interpreted as seconds).
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*d = Duration(0)
		return nil
	}
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		*d = Duration(0)
		return nil
	}
	if td, err := time.ParseDuration(raw); err == nil {
		*d = Duration(td)
		return nil
	}
	// allow numeric seconds
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		*d = Duration(time.Duration(f * float64(time.Second)))
		return nil
	}
	return fmt.Errorf("invalid duration value: %q", node.Value)
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }

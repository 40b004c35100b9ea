package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied wherever the file, env and flags stay silent. The binary
// must run with no config file at all.
const (
	DefaultAddress   = "0.0.0.0"
	DefaultPort      = 8080
	DefaultMaxBatch  = 3
	DefaultRateLimit = 5 * time.Second
	DefaultCron      = "* * * * *"
)

// Default returns a fully-populated default config.
func Default() *Config {
	return &Config{
		Server:    ServerConfig{Address: DefaultAddress, Port: DefaultPort},
		Scheduler: SchedulerConfig{MaxBatch: DefaultMaxBatch, RateLimit: Duration(DefaultRateLimit)},
		Work: WorkConfig{
			MinLatency: Duration(500 * time.Millisecond),
			MaxLatency: Duration(2 * time.Second),
		},
		Monitor: MonitorConfig{Enabled: true, Cron: DefaultCron, StuckAfter: Duration(time.Minute)},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads a YAML config file over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadEnvOverrides applies INGESTD_* environment overrides on top of cfg and
// reports whether any env var was used.
func LoadEnvOverrides(cfg *Config) bool {
	used := false
	if v := os.Getenv("INGESTD_ADDR"); v != "" {
		cfg.Server.Address = v
		used = true
	}
	if v := os.Getenv("INGESTD_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
			used = true
		}
	}
	if v := os.Getenv("INGESTD_MAX_BATCH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Scheduler.MaxBatch = n
			used = true
		}
	}
	if v := os.Getenv("INGESTD_RATE_LIMIT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Scheduler.RateLimit = Duration(d)
			used = true
		}
	}
	if v := os.Getenv("INGESTD_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
		used = true
	}
	return used
}

// ParseCommandFlags parses process flags and records which were explicitly
// set so flags can win over file and env values.
func ParseCommandFlags() (addr string, cfgPath string, setFlags map[string]bool) {
	addrFlag := flag.String("addr", "", "listen address (host:port)")
	cfgFlag := flag.String("config", "", "path to YAML config file")
	flag.Parse()
	setFlags = map[string]bool{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })
	return *addrFlag, *cfgFlag, setFlags
}

// ResolveConfigPath picks the config file path: the flag wins over the
// INGESTD_CONFIG env var.
func ResolveConfigPath(flagPath string, flagSet bool) string {
	if flagSet {
		return flagPath
	}
	return os.Getenv("INGESTD_CONFIG")
}

// Validate rejects configs the scheduler cannot run with.
func (c *Config) Validate() error {
	if c.Scheduler.MaxBatch <= 0 {
		return fmt.Errorf("scheduler.max_batch must be > 0, got %d", c.Scheduler.MaxBatch)
	}
	if c.Scheduler.RateLimit.Duration() <= 0 {
		return fmt.Errorf("scheduler.rate_limit must be > 0, got %s", c.Scheduler.RateLimit.Duration())
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Work.MaxLatency.Duration() < c.Work.MinLatency.Duration() {
		return fmt.Errorf("work.max_latency %s below work.min_latency %s",
			c.Work.MaxLatency.Duration(), c.Work.MinLatency.Duration())
	}
	return nil
}

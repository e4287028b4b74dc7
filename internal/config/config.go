// Package config loads the agent configuration from an optional YAML
// file and the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	DefaultPath       = "dcollector.yaml"
	DefaultPIDFile    = "dcollector.pid"
	DefaultUPSHost    = "vks0"
	DefaultUPSName    = "eta"
	DefaultUPSPort    = 3493
	DefaultInterval   = 10 * time.Second
	DefaultBackoff    = 5 * time.Second
	DefaultProcessGap = 10 * time.Millisecond
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	UPS      UPSConfig      `yaml:"ups"`
	Disk     DiskConfig     `yaml:"disk"`
	Process  ProcessConfig  `yaml:"process"`
	Poll     PollConfig     `yaml:"poll"`
	PIDFile  string         `yaml:"pid_file"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

type DatabaseConfig struct {
	// URL is usually supplied through DATABASE_URL instead.
	URL          string `yaml:"url"`
	Migrate      bool   `yaml:"migrate"`
	Timescale    bool   `yaml:"timescale"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	BatchRows    int    `yaml:"batch_rows"`
}

type UPSConfig struct {
	Enabled  *bool         `yaml:"enabled"`
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	Name     string        `yaml:"name"`
	Username string        `yaml:"username"`
	Timeout  time.Duration `yaml:"timeout"`
}

type DiskConfig struct {
	Enabled  *bool    `yaml:"enabled"`
	Smartctl string   `yaml:"smartctl"`
	Devices  []string `yaml:"devices"`
}

type ProcessConfig struct {
	Enabled *bool         `yaml:"enabled"`
	Gap     time.Duration `yaml:"gap"`
}

type PollConfig struct {
	Interval    time.Duration `yaml:"interval"`
	Backoff     time.Duration `yaml:"backoff"`
	ReportCount *int          `yaml:"report_count"`
}

type LogConfig struct {
	File  string `yaml:"file"`
	Debug bool   `yaml:"debug"`
}

type MetricsConfig struct {
	// Addr is the HTTP listen address. Empty disables the server.
	Addr string `yaml:"addr"`
}

func (u UPSConfig) IsEnabled() bool     { return u.Enabled == nil || *u.Enabled }
func (d DiskConfig) IsEnabled() bool    { return d.Enabled == nil || *d.Enabled }
func (p ProcessConfig) IsEnabled() bool { return p.Enabled == nil || *p.Enabled }

// ReportRows returns how many rows per kind are printed after each
// iteration.
func (p PollConfig) ReportRows() int {
	if p.ReportCount == nil {
		return 1
	}
	return *p.ReportCount
}

// PathFromEnv returns DCOLLECTOR_CONFIG or DefaultPath.
func PathFromEnv() string {
	if override := strings.TrimSpace(os.Getenv("DCOLLECTOR_CONFIG")); override != "" {
		return override
	}
	return DefaultPath
}

// Load reads path, applies environment overrides and defaults, and
// validates the result. A missing file is not an error.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		file, err := os.Open(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			defer file.Close()
			raw, err := io.ReadAll(file)
			if err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	env := func(key string) (string, bool) {
		v := strings.TrimSpace(getenv(key))
		return v, v != ""
	}

	if v, ok := env("DATABASE_URL"); ok {
		c.Database.URL = v
	}
	if v, ok := env("NUT_HOST"); ok {
		c.UPS.Host = v
	}
	if v, ok := env("NUT_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("NUT_PORT: %w", err)
		}
		c.UPS.Port = port
	}
	if v, ok := env("NUT_UPS"); ok {
		c.UPS.Name = v
	}
	if v, ok := env("NUT_USERNAME"); ok {
		c.UPS.Username = v
	}
	if v, ok := env("SLEEP_SECONDS"); ok {
		seconds, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("SLEEP_SECONDS: %w", err)
		}
		c.Poll.Interval = time.Duration(seconds) * time.Second
	}
	if v, ok := env("PID_FILE"); ok {
		c.PIDFile = v
	}
	if v, ok := env("LOG_FILE"); ok {
		c.Log.File = v
	}
	if v, ok := env("DCOLLECTOR_DEBUG"); ok {
		if debug, known := ParseBool(v); known {
			c.Log.Debug = debug
		}
	}
	if v, ok := env("METRICS_ADDR"); ok {
		c.Metrics.Addr = v
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.UPS.Host == "" {
		c.UPS.Host = DefaultUPSHost
	}
	if c.UPS.Port == 0 {
		c.UPS.Port = DefaultUPSPort
	}
	if c.UPS.Name == "" {
		c.UPS.Name = DefaultUPSName
	}
	if c.UPS.Timeout == 0 {
		c.UPS.Timeout = 5 * time.Second
	}
	if c.Disk.Smartctl == "" {
		c.Disk.Smartctl = "smartctl"
	}
	if c.Process.Gap == 0 {
		c.Process.Gap = DefaultProcessGap
	}
	if c.Poll.Interval == 0 {
		c.Poll.Interval = DefaultInterval
	}
	if c.Poll.Backoff == 0 {
		c.Poll.Backoff = DefaultBackoff
	}
	if c.PIDFile == "" {
		c.PIDFile = DefaultPIDFile
	}
}

func (c *Config) validate() error {
	if c.UPS.Port <= 0 || c.UPS.Port > 65535 {
		return fmt.Errorf("ups.port %d out of range", c.UPS.Port)
	}
	if c.Poll.Interval < 0 {
		return fmt.Errorf("poll.interval must be positive")
	}
	if c.Poll.Backoff < 0 {
		return fmt.Errorf("poll.backoff must be positive")
	}
	if c.Process.Gap < 0 {
		return fmt.Errorf("process.gap must not be negative")
	}
	if c.Poll.ReportCount != nil && *c.Poll.ReportCount < 0 {
		return fmt.Errorf("poll.report_count must not be negative")
	}
	if c.Database.BatchRows < 0 {
		return fmt.Errorf("database.batch_rows must not be negative")
	}
	return nil
}

// ParseBool accepts the usual spellings of a boolean switch. The second
// result is false when value is empty or unrecognised.
func ParseBool(value string) (bool, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return false, false
	}

	switch strings.ToLower(trimmed) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	default:
		return false, false
	}
}

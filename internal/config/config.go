// Package config loads the TexMCP configuration from YAML with an optional
// .env overlay and environment variable overrides.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full server configuration. Zero values trigger defaults.
type Config struct {
	// WorkDir is the flat directory render jobs write sources and artifacts into.
	WorkDir string `yaml:"work_dir,omitempty"`
	// TemplateDir is the root directory templates are resolved from.
	TemplateDir string `yaml:"template_dir,omitempty"`

	Compiler CompilerConfig `yaml:"compiler,omitempty"`
	Server   ServerConfig   `yaml:"server,omitempty"`
}

// CompilerConfig configures the external LaTeX toolchain.
type CompilerConfig struct {
	// Path is the compiler executable name or absolute path.
	Path string `yaml:"path,omitempty"`
	// TexInputs lists extra directories the compiler searches for includes.
	TexInputs []string `yaml:"tex_inputs,omitempty"`
	// Timeout bounds one compiler pass (Go duration string). Empty means none.
	Timeout string `yaml:"timeout,omitempty"`
}

// ServerConfig holds serve-mode tuning knobs.
type ServerConfig struct {
	// MaxConcurrent caps simultaneous compiler invocations.
	MaxConcurrent int `yaml:"max_concurrent,omitempty"`
	// MaxRuns caps the per-call compiler pass count accepted from clients.
	MaxRuns int `yaml:"max_runs,omitempty"`
	// MetricsListen enables a Prometheus /metrics listener when non-empty (e.g. ":9464").
	MetricsListen string `yaml:"metrics_listen,omitempty"`

	Retention RetentionConfig `yaml:"retention,omitempty"`
}

// RetentionConfig controls the work-directory janitor. Disabled unless MaxAge
// is set.
type RetentionConfig struct {
	MaxAge   string `yaml:"max_age,omitempty"`
	Interval string `yaml:"interval,omitempty"`
}

// Load reads the configuration file at path. A missing file yields defaults so
// the server can run unconfigured. Environment files (.env, .env.local) are
// overlaid first without overriding real environment variables.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		slog.Debug("No configuration file found, using defaults", "path", path)
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults fills unset fields with their defaults.
func (c *Config) ApplyDefaults() {
	if c.WorkDir == "" {
		c.WorkDir = "./artifacts"
	}
	if c.TemplateDir == "" {
		c.TemplateDir = "./templates"
	}
	if c.Compiler.Path == "" {
		c.Compiler.Path = "pdflatex"
	}
	if c.Server.MaxConcurrent <= 0 {
		c.Server.MaxConcurrent = 2
	}
	if c.Server.MaxRuns <= 0 {
		c.Server.MaxRuns = 10
	}
	if c.Server.Retention.Interval == "" {
		c.Server.Retention.Interval = "1h"
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("TEXMCP_WORK_DIR"); v != "" {
		c.WorkDir = v
	}
	if v := os.Getenv("TEXMCP_TEMPLATE_DIR"); v != "" {
		c.TemplateDir = v
	}
	if v := os.Getenv("TEXMCP_COMPILER_PATH"); v != "" {
		c.Compiler.Path = v
	}
	if v := os.Getenv("TEXMCP_METRICS_LISTEN"); v != "" {
		c.Server.MetricsListen = v
	}
}

// TimeoutDuration parses the per-pass timeout; zero when unset or invalid.
func (c CompilerConfig) TimeoutDuration() time.Duration {
	if c.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d < 0 {
		slog.Warn("Invalid compiler timeout, ignoring", "timeout", c.Timeout)
		return 0
	}
	return d
}

// MaxAgeDuration parses the retention age; zero (disabled) when unset or invalid.
func (r RetentionConfig) MaxAgeDuration() time.Duration {
	if r.MaxAge == "" {
		return 0
	}
	d, err := time.ParseDuration(r.MaxAge)
	if err != nil || d <= 0 {
		slog.Warn("Invalid retention max_age, disabling janitor", "max_age", r.MaxAge)
		return 0
	}
	return d
}

// IntervalDuration parses the sweep interval, falling back to one hour.
func (r RetentionConfig) IntervalDuration() time.Duration {
	d, err := time.ParseDuration(r.Interval)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

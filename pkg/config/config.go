// Package config provides unified configuration for the rsengine server.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (PORT and the RSENGINE_ prefix)
//  4. Caller overrides, typically command line flags
//  5. Validation
package config

import (
	"time"

	"github.com/rhuss/rsengine/pkg/api"
	"github.com/rhuss/rsengine/pkg/observability"
	"github.com/rhuss/rsengine/pkg/render"
	"github.com/rhuss/rsengine/pkg/routes"
	"github.com/rhuss/rsengine/pkg/stream"
)

// DefaultPort is the listen port used when none is configured.
const DefaultPort = 3000

// Config holds all configuration for the rsengine server.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Render        RenderConfig        `yaml:"render"`
	Routes        []api.RouteConfig   `yaml:"routes"`
	Logging       LoggingConfig       `yaml:"logging"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port              int           `yaml:"port"`                // default: 3000, env PORT
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"` // default: 10s
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`    // default: 30s
}

// RenderConfig holds render backend settings.
type RenderConfig struct {
	Bundle         string `yaml:"bundle" env:"RSENGINE_BUNDLE"`                    // required
	RuntimeName    string `yaml:"runtime_name" env:"RSENGINE_RUNTIME_NAME"`        // default: "rsengine"
	StreamCapacity int    `yaml:"stream_capacity" env:"RSENGINE_STREAM_CAPACITY"` // default: 16
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level      string `yaml:"level" env:"RSENGINE_LOG_LEVEL"`   // default: "info"
	Format     string `yaml:"format" env:"RSENGINE_LOG_FORMAT"` // "json" or "text", default: "json"
	File       string `yaml:"file" env:"RSENGINE_LOG_FILE"`     // optional, enables rotation
	Debug      string `yaml:"debug"`                            // debug categories, see pkg/debug
	MaxSizeMB  int    `yaml:"max_size_mb"`                      // default: 100
	MaxBackups int    `yaml:"max_backups"`                      // default: 5
	MaxAgeDays int    `yaml:"max_age_days"`                     // default: 28
	Compress   bool   `yaml:"compress"`
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Exporter string `yaml:"exporter" env:"RSENGINE_TRACING_EXPORTER"` // "none" or "stdout", default: "none"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:              DefaultPort,
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   30 * time.Second,
		},
		Render: RenderConfig{
			RuntimeName:    render.DefaultName,
			StreamCapacity: stream.DefaultCapacity,
		},
		Routes: routes.Defaults(),
		Logging: LoggingConfig{
			Level:      "info",
			Format:     observability.LogFormatJSON,
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 28,
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
			Tracing: TracingConfig{
				Exporter: observability.ExporterNone,
			},
		},
	}
}

// LogOptions converts the logging settings for observability.NewLogger.
func (c LoggingConfig) LogOptions() observability.LogOptions {
	return observability.LogOptions{
		Level:      c.Level,
		Format:     c.Format,
		File:       c.File,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// MetricsPath returns the path of the metrics endpoint, or "" when metrics
// are disabled.
func (c MetricsConfig) MetricsPath() string {
	if !c.Enabled {
		return ""
	}
	return c.Path
}

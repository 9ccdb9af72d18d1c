package config

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/rhuss/rsengine/pkg/observability"
)

// reservedPaths are served by the adapter and cannot host the metrics
// endpoint.
var reservedPaths = map[string]bool{
	"/":       true,
	"/health": true,
	"/ready":  true,
	"/stream": true,
}

// metricsPathPattern accepts literal, clean URL paths. Anything else would
// be a wildcard or an invalid ServeMux pattern.
var metricsPathPattern = regexp.MustCompile(`^(/[A-Za-z0-9._~-]+)+$`)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	if c.Render.Bundle == "" {
		errs = append(errs, fmt.Errorf("render.bundle is required"))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}

	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.shutdown_timeout must be > 0, got %v", c.Server.ShutdownTimeout))
	}

	if c.Render.StreamCapacity <= 0 {
		errs = append(errs, fmt.Errorf("render.stream_capacity must be > 0, got %d", c.Render.StreamCapacity))
	}

	if len(c.Routes) == 0 {
		errs = append(errs, fmt.Errorf("routes must not be empty"))
	}
	seen := make(map[string]bool, len(c.Routes))
	for i, r := range c.Routes {
		switch {
		case r.ID == "":
			errs = append(errs, fmt.Errorf("routes[%d].id is required", i))
		case seen[r.ID]:
			errs = append(errs, fmt.Errorf("routes[%d].id %q is duplicated", i, r.ID))
		}
		seen[r.ID] = true
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, fmt.Errorf("logging.level must be \"debug\", \"info\", \"warn\", or \"error\", got %q", c.Logging.Level))
	}

	switch strings.ToLower(c.Logging.Format) {
	case observability.LogFormatJSON, observability.LogFormatText:
		// valid
	default:
		errs = append(errs, fmt.Errorf("logging.format must be \"json\" or \"text\", got %q", c.Logging.Format))
	}

	switch c.Observability.Tracing.Exporter {
	case observability.ExporterNone, observability.ExporterStdout:
		// valid
	default:
		errs = append(errs, fmt.Errorf("observability.tracing.exporter must be \"none\" or \"stdout\", got %q", c.Observability.Tracing.Exporter))
	}

	if m := c.Observability.Metrics; m.Enabled {
		switch {
		case !strings.HasPrefix(m.Path, "/"):
			errs = append(errs, fmt.Errorf("observability.metrics.path must start with \"/\", got %q", m.Path))
		case !metricsPathPattern.MatchString(m.Path) || path.Clean(m.Path) != m.Path:
			errs = append(errs, fmt.Errorf("observability.metrics.path must be a plain URL path, got %q", m.Path))
		case reservedPaths[m.Path] || strings.HasPrefix(m.Path, "/render/"):
			errs = append(errs, fmt.Errorf("observability.metrics.path %q collides with a built-in endpoint", m.Path))
		}
	}

	return errors.Join(errs...)
}

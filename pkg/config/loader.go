package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Override adjusts a loaded configuration before it is validated.
type Override func(*Config)

// WithBundle overrides render.bundle when path is not empty.
func WithBundle(path string) Override {
	return func(c *Config) {
		if path != "" {
			c.Render.Bundle = path
		}
	}
}

// WithRuntimeName overrides render.runtime_name when name is not empty.
func WithRuntimeName(name string) Override {
	return func(c *Config) {
		if name != "" {
			c.Render.RuntimeName = name
		}
	}
}

// WithPort overrides server.port when port is positive.
func WithPort(port int) Override {
	return func(c *Config) {
		if port > 0 {
			c.Server.Port = port
		}
	}
}

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, RSENGINE_CONFIG env, ./rsengine.yaml, /etc/rsengine/config.yaml)
//  3. Environment variable overrides
//  4. The given overrides, in order
//  5. Validation
func Load(configPath string, overrides ...Override) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	for _, o := range overrides {
		o(&cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. RSENGINE_CONFIG environment variable
// 3. ./rsengine.yaml in the current directory
// 4. /etc/rsengine/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv("RSENGINE_CONFIG"); envPath != "" {
		return envPath
	}

	candidates := []string{
		"rsengine.yaml",
		"/etc/rsengine/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
// A routes list in the file replaces the default routes.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps environment variables to config fields. Fields
// tagged with env are only touched when their variable is set. PORT is
// read separately: a value that is not a valid port number is ignored and
// the previous setting stays in effect.
func applyEnvOverrides(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return err
	}

	if v, ok := os.LookupEnv("PORT"); ok {
		if port, err := strconv.Atoi(v); err == nil && port > 0 && port <= 65535 {
			cfg.Server.Port = port
		}
	}
	return nil
}

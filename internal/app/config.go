package app

import (
	"clusterdash/internal/config"
)

// Config holds the application configuration
type Config struct {
	// UI mode
	NoTUI bool
	// MCP serves the agent tools over stdio instead of showing a UI
	MCP bool

	// Debug settings
	Debug bool

	// Seed overrides the configured primary channel address when set
	Seed string
	// ConfigPath replaces the layered config lookup when set
	ConfigPath string

	// Version is reported by the MCP server
	Version string

	// Dashboard configuration, loaded by NewApplication
	Dashboard *config.Config
}

// NewConfig creates a new application configuration
func NewConfig(seed, configPath string, noTUI, debug bool) *Config {
	return &Config{
		NoTUI:      noTUI,
		Debug:      debug,
		Seed:       seed,
		ConfigPath: configPath,
	}
}

func (c *Config) logLevel() string {
	if c.Debug {
		return "debug"
	}
	return "info"
}

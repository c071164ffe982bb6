package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"clusterdash/internal/config"
	"clusterdash/internal/syncchannel"
	"clusterdash/pkg/logging"
)

// Application is the main application structure that bootstraps and runs clusterdash
type Application struct {
	config    *Config
	transport syncchannel.Transport

	in  io.Reader
	out io.Writer
}

// NewApplication loads the configuration and prepares the transport
func NewApplication(cfg *Config) (*Application, error) {
	level, err := logging.ParseLevel(cfg.logLevel())
	if err != nil {
		return nil, err
	}

	// stdout carries the MCP protocol in MCP mode
	logOut := io.Writer(os.Stdout)
	if cfg.MCP {
		logOut = os.Stderr
	}
	logging.InitForCLI(level, logOut)

	dashCfg, err := config.LoadConfig(cfg.ConfigPath, config.WithSeed(cfg.Seed))
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to load configuration")
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logging.Info("Bootstrap", "Primary channel %s", dashCfg.Seed)

	cfg.Dashboard = &dashCfg
	return &Application{
		config:    cfg,
		transport: syncchannel.NewWebsocketTransport(dashCfg.Channel),
		in:        os.Stdin,
		out:       os.Stdout,
	}, nil
}

// Run executes the application in the appropriate mode
func (a *Application) Run(ctx context.Context) error {
	switch {
	case a.config.MCP:
		return a.runMCPMode(ctx)
	case a.config.NoTUI:
		return a.runCLIMode(ctx)
	default:
		return a.runTUIMode(ctx)
	}
}

// runCLIMode runs the application in non-interactive CLI mode
func (a *Application) runCLIMode(ctx context.Context) error {
	return runCLIMode(ctx, a.config, a.transport, a.out)
}

// runTUIMode runs the application in interactive TUI mode
func (a *Application) runTUIMode(ctx context.Context) error {
	return runTUIMode(ctx, a.config, a.transport)
}

// runMCPMode serves the agent tools over stdio
func (a *Application) runMCPMode(ctx context.Context) error {
	return runMCPMode(ctx, a.config, a.transport, a.in, a.out)
}

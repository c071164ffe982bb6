package app

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"clusterdash/internal/color"
	"clusterdash/internal/mcpserver"
	"clusterdash/internal/session"
	"clusterdash/internal/syncchannel"
	"clusterdash/internal/tui/controller"
	"clusterdash/pkg/logging"
)

// withSignals cancels ctx on SIGINT or SIGTERM.
func withSignals(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

// runCLIMode runs the synchronization layer headless and reports to out
func runCLIMode(ctx context.Context, config *Config, transport syncchannel.Transport, out io.Writer) error {
	logging.Info("CLI", "Running in no-TUI mode.")

	ctx, stop := withSignals(ctx)
	defer stop()

	s := session.New(ctx, *config.Dashboard, transport)
	s.SetObserver(newReporter(out, config.Dashboard.UI.LogTemplate))
	s.Start()
	defer s.Close()

	logging.Info("CLI", "Synchronizing with %s. Press Ctrl+C to exit.", s.Primary())
	err := s.Run(ctx)

	logging.Info("CLI", "--- Shutting down channels ---")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// runTUIMode executes the interactive terminal UI mode
func runTUIMode(ctx context.Context, config *Config, transport syncchannel.Transport) error {
	logging.Info("CLI", "Starting TUI mode...")

	color.Initialize(true)

	logLevel := logging.LevelInfo
	if config.Debug {
		logLevel = logging.LevelDebug
	}
	logChan := logging.InitForTUI(logLevel)
	defer logging.CloseTUIChannel()

	s := session.New(ctx, *config.Dashboard, transport)
	s.Start()
	defer s.Close()

	p := controller.NewProgram(s, config.Debug, logChan)
	if _, err := p.Run(); err != nil {
		logging.Error("TUI-Lifecycle", err, "Error running TUI program")
		return err
	}
	logging.Info("TUI-Lifecycle", "TUI exited.")
	return nil
}

// runMCPMode serves the agent tools on in/out while the session syncs
func runMCPMode(ctx context.Context, config *Config, transport syncchannel.Transport, in io.Reader, out io.Writer) error {
	ctx, stop := withSignals(ctx)
	defer stop()

	s := session.New(ctx, *config.Dashboard, transport)
	s.Start()
	defer s.Close()

	go func() {
		if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logging.Error("MCP", err, "Session loop stopped")
		}
	}()

	err := mcpserver.New(s, config.Version).ServeStdio(ctx, in, out)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

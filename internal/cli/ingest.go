package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/runnerr0/watchlog/internal/config"
	"github.com/runnerr0/watchlog/internal/daemon"
	"github.com/runnerr0/watchlog/internal/logging"
)

// Execute implements the go-flags Commander interface for IngestCommand.
func (c *IngestCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}
	if err := c.applyOverrides(cfg); err != nil {
		return err
	}

	a, err := openAppWithConfig(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	d, err := c.build(a)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "watchlog %s listening on http://%s\n", c.version, cfg.ListenAddr())
	return d.Run(ctx)
}

// applyOverrides folds command flags into cfg.
func (c *IngestCommand) applyOverrides(cfg *config.Config) error {
	if c.Host != "" {
		cfg.Daemon.Host = c.Host
	}
	if c.Port != 0 {
		cfg.Daemon.Port = c.Port
	}
	if c.LogLevel != "" && (c.globals == nil || !c.globals.Verbose) {
		if _, err := logging.ParseLevel(c.LogLevel); err != nil {
			return err
		}
		cfg.Logging.Level = c.LogLevel
	}
	return cfg.Validate()
}

// build wires the daemon around an open app.
func (c *IngestCommand) build(a *app) (*daemon.Daemon, error) {
	dataDir, err := a.cfg.DataDir()
	if err != nil {
		return nil, err
	}

	handler := daemon.NewHandler(a.orchestrator(), a.log, a.settings, a.logger, daemon.Options{
		AuthToken:      a.cfg.Daemon.AuthToken,
		MaxRequestSize: int64(a.cfg.Daemon.MaxRequestSize),
	})
	if a.cfg.Daemon.AuthToken == "" && !isLoopback(a.cfg.Daemon.Host) {
		a.logger.Warn("daemon reachable beyond loopback without an auth token")
	}
	return daemon.New(a.cfg.ListenAddr(), dataDir, handler.Router(), a.logger), nil
}

func isLoopback(host string) bool {
	switch host {
	case "127.0.0.1", "localhost", "::1":
		return true
	}
	return false
}

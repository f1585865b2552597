package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mglowin/stackwarden/internal/config"
	"github.com/mglowin/stackwarden/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "stackwarden",
	Short: "Orchestrates the all-in-one application container",
	Long: `stackwarden drives the supervisord-managed services of a single
application container: it sequences the boot order, runs scheduled health
audits with preventive restarts, and consumes process lifecycle events.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(bootCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(watchEventsCmd)
}

// app bundles the pieces every subcommand needs: validated configuration, the
// shared logger, and a context canceled on SIGINT/SIGTERM.
type app struct {
	ctx    context.Context
	stop   context.CancelFunc
	logger zerolog.Logger
	cfg    config.Config
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		fallback := logging.New()
		fallback.Error().Err(err).Msg("invalid configuration")
		return nil, err
	}

	logger, err := logging.NewWithFile(cfg.LogFile)
	if err != nil {
		logger.Warn().Err(err).Str("path", cfg.LogFile).Msg("log file unavailable, using stdout only")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return &app{ctx: ctx, stop: stop, logger: logger, cfg: cfg}, nil
}

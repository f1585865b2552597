package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mglowin/stackwarden/internal/config"
	"github.com/mglowin/stackwarden/internal/events"
	"github.com/mglowin/stackwarden/internal/healthcheck"
	"github.com/mglowin/stackwarden/internal/journal"
	"github.com/mglowin/stackwarden/internal/metrics"
	"github.com/mglowin/stackwarden/internal/server"
)

var watchEventsCmd = &cobra.Command{
	Use:   "watch-events",
	Short: "Consume supervisord process events on stdin/stdout",
	RunE:  runWatchEvents,
}

func runWatchEvents(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.stop()

	// The event-listener protocol owns stdout; all logging must stay off it.
	logger := eventListenerLogger(a.logger, a.cfg)

	tracker := healthcheck.NewTracker()
	metricsCollector := metrics.New()
	server.Start(a.ctx, logger, tracker, metricsCollector, a.cfg.HealthPort, a.cfg.MetricsPort)

	watcher := events.New(logger, os.Stdin, os.Stdout, journal.New(a.cfg.JournalPath, logger),
		events.WithMetrics(metricsCollector),
		events.WithTracker(tracker),
	)
	if err := watcher.Run(a.ctx); err != nil && a.ctx.Err() == nil {
		logger.Error().Err(err).Msg("event watcher failed")
		return err
	}
	return nil
}

func eventListenerLogger(fallback zerolog.Logger, cfg config.Config) zerolog.Logger {
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err == nil {
			return zerolog.New(f).With().Timestamp().Logger()
		}
		fallback.Warn().Err(err).Msg("log file unavailable for event listener")
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

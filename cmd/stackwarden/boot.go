package main

import (
	"github.com/spf13/cobra"

	"github.com/mglowin/stackwarden/internal/bootseq"
	"github.com/mglowin/stackwarden/internal/config"
	"github.com/mglowin/stackwarden/internal/journal"
	"github.com/mglowin/stackwarden/internal/probe"
	"github.com/mglowin/stackwarden/internal/supervise"
)

var bootCmd = &cobra.Command{
	Use:   "boot",
	Short: "Start services in dependency order and gate on readiness",
	RunE:  runBoot,
}

func runBoot(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.stop()

	ctrl, err := supervise.NewRPCController(a.logger, a.cfg.SupervisorURL)
	if err != nil {
		a.logger.Error().Err(err).Msg("cannot reach process controller")
		return err
	}

	overrides, err := config.LoadStageOverrides(a.cfg.StagesFile)
	if err != nil {
		a.logger.Error().Err(err).Str("path", a.cfg.StagesFile).Msg("invalid stage overrides")
		return err
	}

	jrnl := journal.New(a.cfg.JournalPath, a.logger)
	stages := bootseq.DefaultStages(a.cfg.CacheEnabled, a.cfg.CacheRequired, overrides)

	seq := bootseq.New(a.logger, ctrl, bootProbers(a.cfg), stages,
		bootseq.WithPollInterval(a.cfg.PollInterval),
		bootseq.WithJournal(jrnl),
		bootseq.WithConfirmation(probe.NewHTTPProbe(bootseq.ServiceWeb, a.cfg.WebHealthURL)),
	)
	if err := seq.Run(a.ctx); err != nil {
		a.logger.Error().Err(err).Msg("boot sequence failed")
		return err
	}
	a.logger.Info().Msg("boot sequence complete")
	return nil
}

// bootProbers maps each probed stage to its readiness check. The one-shot
// migration stage gates on run-state and needs no entry.
func bootProbers(cfg config.Config) map[string]probe.Prober {
	probers := map[string]probe.Prober{
		bootseq.ServiceDB:     probe.NewPostgresProbe(bootseq.ServiceDB, cfg.DatabaseDSN),
		bootseq.ServiceWorker: probe.NewWorkerProbe(bootseq.ServiceWorker, cfg.WorkerPattern, cfg.WorkerInspect),
		bootseq.ServiceWeb:    probe.NewHTTPProbe(bootseq.ServiceWeb, cfg.WebHealthURL),
	}
	if cfg.CacheEnabled {
		probers[bootseq.ServiceCache] = probe.NewRedisProbe(bootseq.ServiceCache, cfg.RedisAddr)
	}
	return probers
}

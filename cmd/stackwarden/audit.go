package main

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mglowin/stackwarden/internal/audit"
	"github.com/mglowin/stackwarden/internal/bootseq"
	"github.com/mglowin/stackwarden/internal/config"
	"github.com/mglowin/stackwarden/internal/journal"
	"github.com/mglowin/stackwarden/internal/notify"
	"github.com/mglowin/stackwarden/internal/probe"
	"github.com/mglowin/stackwarden/internal/supervise"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Run a health audit cycle",
	Long: `audit probes the foundation and application tiers and restarts the
application tier per policy. It runs one cycle and exits, or loops on a
fixed schedule with --every.`,
	RunE: runAudit,
}

func init() {
	auditCmd.Flags().Duration("every", 0, "run the audit on this interval instead of once")
	auditCmd.Flags().Bool("on-failure-only", false, "restart only services whose checks fail")
}

func runAudit(cmd *cobra.Command, _ []string) error {
	every, _ := cmd.Flags().GetDuration("every")
	onFailureOnly, _ := cmd.Flags().GetBool("on-failure-only")

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

	policy := audit.PreventivePolicy
	if onFailureOnly {
		policy = audit.OnFailurePolicy
	}

	auditor := audit.New(a.logger, ctrl, foundationProbers(a.cfg), applicationProbers(a.cfg),
		audit.WithPolicy(policy),
		audit.WithJournal(journal.New(a.cfg.JournalPath, a.logger)),
		audit.WithNotifier(buildNotifier(a.logger, a.cfg)),
		audit.WithRestartWait(a.cfg.RestartWait),
		audit.WithPollInterval(a.cfg.PollInterval),
		audit.WithDomain(a.cfg.Domain),
		audit.WithDryRun(a.cfg.DryRun),
	)

	runOnce := func(ctx context.Context) error {
		_, err := auditor.RunCycle(ctx)
		return err
	}

	if every <= 0 {
		if err := runOnce(a.ctx); err != nil {
			a.logger.Error().Err(err).Msg("audit cycle failed")
			return err
		}
		return nil
	}

	loop := audit.NewLoop(a.logger, every, runOnce)
	if err := loop.Run(a.ctx); err != nil && a.ctx.Err() == nil {
		a.logger.Error().Err(err).Msg("audit loop stopped")
		return err
	}
	return nil
}

// foundationProbers covers every foundation service the stack runs. An
// enabled cache is always part of the gate, required or not: restarting the
// application tier on top of a dead cache is exactly what the gate exists to
// prevent.
func foundationProbers(cfg config.Config) []probe.Prober {
	probers := []probe.Prober{
		probe.NewPostgresProbe(bootseq.ServiceDB, cfg.DatabaseDSN),
	}
	if cfg.CacheEnabled {
		probers = append(probers, probe.NewRedisProbe(bootseq.ServiceCache, cfg.RedisAddr))
	}
	return probers
}

// applicationProbers doubles as the restart order. Worker before web:
// draining background work first keeps the web tier serving while its
// dependency bounces.
func applicationProbers(cfg config.Config) []probe.Prober {
	return []probe.Prober{
		probe.NewWorkerProbe(bootseq.ServiceWorker, cfg.WorkerPattern, cfg.WorkerInspect),
		probe.NewHTTPProbe(bootseq.ServiceWeb, cfg.WebHealthURL),
	}
}

func buildNotifier(logger zerolog.Logger, cfg config.Config) notify.Notifier {
	if cfg.DryRun {
		return notify.NewDryRunNotifier(logger)
	}
	webhook, err := notify.NewWebhookNotifier(logger, cfg.WebhookURL, "")
	if err != nil {
		logger.Warn().Err(err).Msg("webhook notifier disabled")
	}
	return notify.NewMultiNotifier(
		notify.NewSlackNotifier(logger, cfg.SlackWebhookURL),
		webhook,
	)
}

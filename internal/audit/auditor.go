// Package audit runs the unattended health-check-driven maintenance cycle:
// verify the foundation tier, evaluate the application tier, and restart the
// application tier when policy says so, worker before web, never touching
// foundation services.
package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mglowin/stackwarden/internal/clock"
	"github.com/mglowin/stackwarden/internal/journal"
	"github.com/mglowin/stackwarden/internal/notify"
	"github.com/mglowin/stackwarden/internal/probe"
	"github.com/mglowin/stackwarden/internal/supervise"
	"github.com/mglowin/stackwarden/internal/sysinfo"
)

// ErrFoundationUnhealthy marks a cycle aborted because a foundation service
// failed its probe. Restarting the application tier on top of broken
// foundations is disallowed policy; the cycle retries at the next scheduled
// invocation.
var ErrFoundationUnhealthy = errors.New("foundation tier unhealthy, audit aborted")

// ErrPostRestartUnhealthy marks a cycle whose restarts did not yield a
// healthy application tier. The system is left as is; no repeated restarts
// within the same cycle.
var ErrPostRestartUnhealthy = errors.New("application tier unhealthy after restart")

const defaultPollInterval = 2 * time.Second

// Auditor re-checks service health on a schedule and restarts the
// application tier when warranted.
type Auditor struct {
	logger       zerolog.Logger
	ctrl         supervise.Controller
	foundation   []probe.Prober
	application  []probe.Prober // restart order: worker first, then web
	policy       Policy
	clk          clock.Clock
	jrnl         *journal.Journal
	notifier     notify.Notifier
	restartWait  time.Duration
	pollInterval time.Duration
	domain       string
	dryRun       bool
	resources    func() sysinfo.Snapshot
}

// Option customizes auditor behavior.
type Option func(*Auditor)

// WithClock overrides the time source.
func WithClock(clk clock.Clock) Option {
	return func(a *Auditor) { a.clk = clk }
}

// WithPolicy overrides the restart decision policy.
func WithPolicy(policy Policy) Option {
	return func(a *Auditor) { a.policy = policy }
}

// WithJournal records probe results and decisions durably.
func WithJournal(jrnl *journal.Journal) Option {
	return func(a *Auditor) { a.jrnl = jrnl }
}

// WithNotifier sets the fire-and-forget report sink.
func WithNotifier(notifier notify.Notifier) Option {
	return func(a *Auditor) { a.notifier = notifier }
}

// WithRestartWait bounds the post-restart readiness wait per service.
func WithRestartWait(d time.Duration) Option {
	return func(a *Auditor) { a.restartWait = d }
}

// WithPollInterval sets the readiness poll cadence during restart waits.
func WithPollInterval(d time.Duration) Option {
	return func(a *Auditor) { a.pollInterval = d }
}

// WithDomain labels reports with the served domain.
func WithDomain(domain string) Option {
	return func(a *Auditor) { a.domain = domain }
}

// WithDryRun evaluates and reports without issuing restarts.
func WithDryRun(dryRun bool) Option {
	return func(a *Auditor) { a.dryRun = dryRun }
}

// WithResourceCollector overrides host resource collection (for tests).
func WithResourceCollector(fn func() sysinfo.Snapshot) Option {
	return func(a *Auditor) { a.resources = fn }
}

// New constructs an Auditor. foundation probes gate the cycle; application
// probes double as the restart order.
func New(logger zerolog.Logger, ctrl supervise.Controller, foundation, application []probe.Prober, opts ...Option) *Auditor {
	a := &Auditor{
		logger:       logger,
		ctrl:         ctrl,
		foundation:   foundation,
		application:  application,
		policy:       PreventivePolicy,
		clk:          clock.Real{},
		restartWait:  60 * time.Second,
		pollInterval: defaultPollInterval,
		resources:    sysinfo.Collect,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.jrnl == nil {
		a.jrnl = journal.New("", logger)
	}
	if a.notifier == nil {
		a.notifier = notify.NewNoop(logger, "")
	}
	return a
}

// RunCycle executes one audit cycle and returns its report. The returned
// error classifies unhealthy outcomes; it never means the auditor itself
// should stop.
func (a *Auditor) RunCycle(ctx context.Context) (notify.Report, error) {
	started := a.clk.Now()
	a.logger.Info().Msg("audit cycle starting")

	report := notify.Report{
		Domain:    a.domain,
		StartedAt: started.UTC(),
	}

	foundationResults := a.probeAll(ctx, a.foundation)
	report.Checks = append(report.Checks, foundationResults...)

	if blocking := failures(foundationResults); len(blocking) > 0 {
		decision := Decision{BlockingIssues: blocking}
		a.journalDecision(decision)
		report.Success = false
		report.Message = "foundation unhealthy, skipping application restart: " + strings.Join(blocking, "; ")
		a.logger.Error().Strs("blocking_issues", blocking).Msg("aborting audit cycle")
		a.finish(ctx, &report, started)
		return report, ErrFoundationUnhealthy
	}

	appResults := a.probeAll(ctx, a.application)
	report.Checks = append(report.Checks, appResults...)

	decision := a.policy(appResults)
	a.journalDecision(decision)
	a.logger.Info().
		Bool("restart_needed", decision.RestartNeeded).
		Strs("reasons", decision.Reasons).
		Msg("audit decision")

	if !decision.RestartNeeded {
		report.Success = true
		report.Message = "all services healthy, no restart needed"
		a.finish(ctx, &report, started)
		return report, nil
	}

	if a.dryRun {
		report.Success = true
		report.Message = "restart suppressed (dry run): " + strings.Join(decision.Reasons, "; ")
		a.finish(ctx, &report, started)
		return report, nil
	}

	restartErr := a.restartSequential(ctx, &report)

	finalResults := a.probeAll(ctx, a.application)
	report.Checks = append(report.Checks, finalResults...)

	if restartErr == nil && len(failures(finalResults)) == 0 {
		report.Success = true
		report.Message = "all services healthy after restart: " + strings.Join(decision.Reasons, "; ")
		a.logger.Info().Msg("audit cycle complete")
		a.finish(ctx, &report, started)
		return report, nil
	}

	report.Success = false
	report.Message = "services still unhealthy after restart, leaving system as is"
	// Highest severity: an operator has to look at this. No automatic
	// re-restart; that way lies a restart storm.
	a.logger.Error().
		Strs("unhealthy", failures(finalResults)).
		Err(restartErr).
		Msg("post-restart state unhealthy, escalating")
	a.finish(ctx, &report, started)
	return report, ErrPostRestartUnhealthy
}

// restartSequential restarts the application tier in order, waiting for each
// service to re-reach readiness before moving on. Web never restarts before
// the worker is confirmed ready again, so synchronous task dispatch has a
// worker to talk to.
func (a *Auditor) restartSequential(ctx context.Context, report *notify.Report) error {
	for _, prober := range a.application {
		name := prober.Service()
		restartStart := a.clk.Now()

		a.logger.Info().Str("service", name).Msg("restarting")
		if err := a.ctrl.Restart(ctx, name); err != nil {
			action := notify.RestartAction{Service: name, Success: false, Message: fmt.Sprintf("restart failed: %v", err)}
			report.Restarts = append(report.Restarts, action)
			_ = a.jrnl.Append(journal.Entry{Kind: journal.KindRestart, Service: name, OK: false, Detail: action.Message})
			return fmt.Errorf("restart %s: %w", name, err)
		}

		if !a.waitReady(ctx, prober) {
			action := notify.RestartAction{
				Service: name,
				Success: false,
				Message: fmt.Sprintf("not ready within %s after restart", a.restartWait),
				Elapsed: a.clk.Now().Sub(restartStart),
			}
			report.Restarts = append(report.Restarts, action)
			_ = a.jrnl.Append(journal.Entry{Kind: journal.KindRestart, Service: name, OK: false, Detail: action.Message})
			return fmt.Errorf("restart %s: %s", name, action.Message)
		}

		action := notify.RestartAction{
			Service: name,
			Success: true,
			Message: "restarted and ready",
			Elapsed: a.clk.Now().Sub(restartStart),
		}
		report.Restarts = append(report.Restarts, action)
		_ = a.jrnl.Append(journal.Entry{Kind: journal.KindRestart, Service: name, OK: true, Detail: action.Message})
		a.logger.Info().Str("service", name).Dur("elapsed", action.Elapsed).Msg("restart confirmed")
	}
	return nil
}

func (a *Auditor) waitReady(ctx context.Context, prober probe.Prober) bool {
	deadline := a.clk.Now().Add(a.restartWait)
	for {
		if prober.Probe(ctx).OK {
			return true
		}
		if !a.clk.Now().Before(deadline) {
			return false
		}
		if err := a.clk.Sleep(ctx, a.pollInterval); err != nil {
			return false
		}
	}
}

func (a *Auditor) probeAll(ctx context.Context, probers []probe.Prober) []probe.Result {
	results := make([]probe.Result, 0, len(probers))
	for _, prober := range probers {
		result := prober.Probe(ctx)
		results = append(results, result)
		_ = a.jrnl.Append(journal.Entry{
			Kind: journal.KindProbe, Service: result.Service, OK: result.OK, Detail: result.Detail,
		})
		event := a.logger.Info()
		if !result.OK {
			event = a.logger.Warn()
		}
		event.Str("service", result.Service).Bool("ok", result.OK).Str("detail", result.Detail).Msg("probe result")
	}
	return results
}

func (a *Auditor) journalDecision(decision Decision) {
	detail := "restart_needed=" + fmt.Sprint(decision.RestartNeeded)
	if len(decision.Reasons) > 0 {
		detail += "; reasons: " + strings.Join(decision.Reasons, "; ")
	}
	if len(decision.BlockingIssues) > 0 {
		detail += "; blocking: " + strings.Join(decision.BlockingIssues, "; ")
	}
	_ = a.jrnl.Append(journal.Entry{
		Kind: journal.KindDecision, OK: len(decision.BlockingIssues) == 0, Detail: detail,
	})
}

// finish stamps the report, collects resources, and fires the notification.
// Notification failures are logged at low severity and swallowed.
func (a *Auditor) finish(ctx context.Context, report *notify.Report, started time.Time) {
	report.Duration = a.clk.Now().Sub(started)
	report.Resources = a.resources()
	report.RecentLog = a.jrnl.Tail(5)

	if err := a.notifier.Notify(ctx, *report); err != nil {
		a.logger.Debug().Err(err).Msg("notification failed")
	}
}

func failures(results []probe.Result) []string {
	var out []string
	for _, result := range results {
		if !result.OK {
			out = append(out, fmt.Sprintf("%s: %s", result.Service, result.Detail))
		}
	}
	return out
}

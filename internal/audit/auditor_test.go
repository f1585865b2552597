package audit

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/mglowin/stackwarden/internal/clock"
	"github.com/mglowin/stackwarden/internal/notify"
	"github.com/mglowin/stackwarden/internal/probe"
	"github.com/mglowin/stackwarden/internal/supervise"
	"github.com/mglowin/stackwarden/internal/sysinfo"
)

type fakeController struct {
	mu        sync.Mutex
	restarted []string
}

func (f *fakeController) Start(context.Context, string) error { return nil }
func (f *fakeController) Stop(context.Context, string) error  { return nil }

func (f *fakeController) Restart(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restarted = append(f.restarted, name)
	return nil
}

func (f *fakeController) Status(context.Context, string) (supervise.RunState, error) {
	return supervise.RunState{Phase: supervise.PhaseRunning}, nil
}

func (f *fakeController) restarts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.restarted...)
}

type scriptedProber struct {
	service string
	ok      bool
	detail  string

	// failUntilRestarted recovers the probe once the controller has
	// restarted the service.
	failUntilRestarted *fakeController
}

func (p *scriptedProber) Service() string { return p.service }

func (p *scriptedProber) Probe(context.Context) probe.Result {
	ok := p.ok
	if p.failUntilRestarted != nil {
		ok = false
		for _, name := range p.failUntilRestarted.restarts() {
			if name == p.service {
				ok = true
			}
		}
	}
	return probe.Result{Service: p.service, OK: ok, Detail: p.detail}
}

type capturingNotifier struct {
	mu      sync.Mutex
	reports []notify.Report
	err     error
}

func (c *capturingNotifier) Notify(_ context.Context, report notify.Report) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports = append(c.reports, report)
	return c.err
}

func newTestAuditor(t *testing.T, ctrl *fakeController, foundation, application []probe.Prober, opts ...Option) *Auditor {
	t.Helper()
	base := []Option{
		WithClock(clock.NewFake(time.Date(2026, 4, 5, 3, 1, 0, 0, time.UTC))),
		WithRestartWait(30 * time.Second),
		WithPollInterval(2 * time.Second),
		WithResourceCollector(func() sysinfo.Snapshot { return sysinfo.Snapshot{} }),
	}
	return New(zerolog.Nop(), ctrl, foundation, application, append(base, opts...)...)
}

func TestRunCycle_FoundationFailureBlocksRestarts(t *testing.T) {
	ctrl := &fakeController{}
	foundation := []probe.Prober{
		&scriptedProber{service: "db", ok: true},
		&scriptedProber{service: "redis", ok: false, detail: "connection refused"},
	}
	application := []probe.Prober{
		&scriptedProber{service: "worker", ok: true},
		&scriptedProber{service: "web", ok: true},
	}

	auditor := newTestAuditor(t, ctrl, foundation, application)
	report, err := auditor.RunCycle(context.Background())

	if !errors.Is(err, ErrFoundationUnhealthy) {
		t.Fatalf("err = %v, want ErrFoundationUnhealthy", err)
	}
	if got := ctrl.restarts(); len(got) != 0 {
		t.Fatalf("restarts = %v, want none", got)
	}
	if report.Success {
		t.Fatalf("report should not be successful")
	}
	if !strings.Contains(report.Message, "redis") {
		t.Fatalf("blocking issue missing from message: %q", report.Message)
	}
	if count := strings.Count(report.Message, "connection refused"); count != 1 {
		t.Fatalf("expected exactly one blocking reason, message %q", report.Message)
	}
}

func TestRunCycle_PreventiveRestartWorkerBeforeWeb(t *testing.T) {
	ctrl := &fakeController{}
	foundation := []probe.Prober{
		&scriptedProber{service: "db", ok: true},
		&scriptedProber{service: "redis", ok: true},
	}
	application := []probe.Prober{
		&scriptedProber{service: "worker", ok: true},
		&scriptedProber{service: "web", ok: true},
	}

	auditor := newTestAuditor(t, ctrl, foundation, application)
	report, err := auditor.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle error: %v", err)
	}

	restarts := ctrl.restarts()
	if len(restarts) != 2 || restarts[0] != "worker" || restarts[1] != "web" {
		t.Fatalf("restarts = %v, want [worker web]", restarts)
	}
	if !report.Success {
		t.Fatalf("report not successful: %q", report.Message)
	}
	if len(report.Restarts) != 2 || !report.Restarts[0].Success || !report.Restarts[1].Success {
		t.Fatalf("restart actions = %+v", report.Restarts)
	}
}

func TestRunCycle_WebWaitsForWorkerReadiness(t *testing.T) {
	ctrl := &fakeController{}
	foundation := []probe.Prober{&scriptedProber{service: "db", ok: true}}
	// Worker only probes healthy once its restart has been issued; the web
	// restart must therefore come strictly after it.
	application := []probe.Prober{
		&scriptedProber{service: "worker", failUntilRestarted: ctrl},
		&scriptedProber{service: "web", ok: true},
	}

	auditor := newTestAuditor(t, ctrl, foundation, application, WithPolicy(PreventivePolicy))
	if _, err := auditor.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle error: %v", err)
	}

	restarts := ctrl.restarts()
	if len(restarts) != 2 || restarts[0] != "worker" || restarts[1] != "web" {
		t.Fatalf("restarts = %v, want worker strictly before web", restarts)
	}
}

func TestRunCycle_PostRestartUnhealthyEscalatesWithoutRetry(t *testing.T) {
	ctrl := &fakeController{}
	foundation := []probe.Prober{&scriptedProber{service: "db", ok: true}}
	application := []probe.Prober{
		&scriptedProber{service: "worker", ok: false, detail: "workers gone"},
	}

	auditor := newTestAuditor(t, ctrl, foundation, application)
	_, err := auditor.RunCycle(context.Background())

	if err == nil {
		t.Fatalf("expected unhealthy outcome")
	}
	// One restart attempt only; the bounded wait failing must not trigger
	// another restart within the cycle.
	if got := ctrl.restarts(); len(got) != 1 || got[0] != "worker" {
		t.Fatalf("restarts = %v, want exactly one worker restart", got)
	}
}

func TestRunCycle_OnFailurePolicySkipsRestartWhenHealthy(t *testing.T) {
	ctrl := &fakeController{}
	foundation := []probe.Prober{&scriptedProber{service: "db", ok: true}}
	application := []probe.Prober{
		&scriptedProber{service: "worker", ok: true},
		&scriptedProber{service: "web", ok: true},
	}

	auditor := newTestAuditor(t, ctrl, foundation, application, WithPolicy(OnFailurePolicy))
	report, err := auditor.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle error: %v", err)
	}
	if len(ctrl.restarts()) != 0 {
		t.Fatalf("restarts = %v, want none under OnFailurePolicy", ctrl.restarts())
	}
	if !report.Success {
		t.Fatalf("report not successful: %q", report.Message)
	}
}

func TestRunCycle_DryRunSkipsRestarts(t *testing.T) {
	ctrl := &fakeController{}
	foundation := []probe.Prober{&scriptedProber{service: "db", ok: true}}
	application := []probe.Prober{&scriptedProber{service: "worker", ok: true}}

	auditor := newTestAuditor(t, ctrl, foundation, application, WithDryRun(true))
	report, err := auditor.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle error: %v", err)
	}
	if len(ctrl.restarts()) != 0 {
		t.Fatalf("dry run must not restart, got %v", ctrl.restarts())
	}
	if !strings.Contains(report.Message, "dry run") {
		t.Fatalf("message = %q", report.Message)
	}
}

func TestRunCycle_NotificationFailureIsSwallowed(t *testing.T) {
	ctrl := &fakeController{}
	sink := &capturingNotifier{err: errors.New("webhook down")}
	foundation := []probe.Prober{&scriptedProber{service: "db", ok: true}}
	application := []probe.Prober{&scriptedProber{service: "worker", ok: true}}

	auditor := newTestAuditor(t, ctrl, foundation, application, WithNotifier(sink))
	if _, err := auditor.RunCycle(context.Background()); err != nil {
		t.Fatalf("notification failure must not fail the cycle: %v", err)
	}
	if len(sink.reports) != 1 {
		t.Fatalf("reports = %d, want 1", len(sink.reports))
	}
}

func TestPreventivePolicy_AlwaysRestarts(t *testing.T) {
	healthy := PreventivePolicy([]probe.Result{{Service: "web", OK: true}})
	if !healthy.RestartNeeded {
		t.Fatalf("preventive policy must restart even when healthy")
	}
	if len(healthy.Reasons) != 1 || !strings.Contains(healthy.Reasons[0], "preventive") {
		t.Fatalf("reasons = %v", healthy.Reasons)
	}

	unhealthy := PreventivePolicy([]probe.Result{{Service: "web", OK: false, Detail: "status 502"}})
	if !unhealthy.RestartNeeded || len(unhealthy.Reasons) != 1 {
		t.Fatalf("decision = %+v", unhealthy)
	}
	if !strings.Contains(unhealthy.Reasons[0], "web") {
		t.Fatalf("reasons = %v", unhealthy.Reasons)
	}
}

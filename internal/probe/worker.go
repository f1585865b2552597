package probe

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// WorkerProbe verifies that at least one live worker process matches the
// configured command-line pattern. The process table is the authoritative
// signal. An optional management inspect command is run as supplementary
// confirmation and is allowed to be inconclusive without failing the check.
type WorkerProbe struct {
	service    string
	pattern    string
	inspectCmd string
	timeout    time.Duration

	listCmdlines func() ([]string, error)
	runInspect   func(ctx context.Context, command string) error
}

// NewWorkerProbe builds a probe matching processes whose command line
// contains pattern. inspectCmd may be empty to skip the supplementary check.
func NewWorkerProbe(service, pattern, inspectCmd string) *WorkerProbe {
	return &WorkerProbe{
		service:      service,
		pattern:      pattern,
		inspectCmd:   inspectCmd,
		timeout:      DefaultTimeout,
		listCmdlines: listProcessCmdlines,
		runInspect:   runShellCommand,
	}
}

// Service implements Prober.
func (p *WorkerProbe) Service() string { return p.service }

// Probe implements Prober.
func (p *WorkerProbe) Probe(ctx context.Context) Result {
	start := time.Now()

	cmdlines, err := p.listCmdlines()
	if err != nil {
		return newResult(p.service, start, false, fmt.Sprintf("process scan: %v", err))
	}

	live := 0
	for _, cmdline := range cmdlines {
		if strings.Contains(cmdline, p.pattern) {
			live++
		}
	}
	if live == 0 {
		return newResult(p.service, start, false, fmt.Sprintf("no processes matching %q", p.pattern))
	}

	detail := fmt.Sprintf("%d worker process(es)", live)
	if p.inspectCmd != "" {
		inspectCtx, cancel := context.WithTimeout(ctx, p.timeout)
		err := p.runInspect(inspectCtx, p.inspectCmd)
		cancel()
		if err != nil {
			// Inconclusive, not a failure: process liveness already passed.
			detail += fmt.Sprintf(", inspect inconclusive: %v", err)
		} else {
			detail += ", inspect ok"
		}
	}
	return newResult(p.service, start, true, detail)
}

func listProcessCmdlines() ([]string, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, err
	}
	cmdlines := make([]string, 0, len(procs))
	for _, proc := range procs {
		cmdline, err := proc.Cmdline()
		if err != nil {
			// Processes can vanish between listing and inspection.
			continue
		}
		if cmdline != "" {
			cmdlines = append(cmdlines, cmdline)
		}
	}
	return cmdlines, nil
}

func runShellCommand(ctx context.Context, command string) error {
	return exec.CommandContext(ctx, "/bin/sh", "-c", command).Run()
}

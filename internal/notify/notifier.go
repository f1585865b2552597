package notify

import (
	"context"
	"time"

	"github.com/mglowin/stackwarden/internal/journal"
	"github.com/mglowin/stackwarden/internal/probe"
	"github.com/mglowin/stackwarden/internal/sysinfo"
)

// RestartAction summarizes one service restart performed during an audit.
type RestartAction struct {
	Service string        `json:"service"`
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Elapsed time.Duration `json:"elapsed"`
}

// Report summarizes one audit cycle for external sinks.
type Report struct {
	Domain    string           `json:"domain"`
	StartedAt time.Time        `json:"started_at"`
	Duration  time.Duration    `json:"duration"`
	Checks    []probe.Result   `json:"checks"`
	Restarts  []RestartAction  `json:"restarts"`
	Resources sysinfo.Snapshot `json:"resources"`
	Success   bool             `json:"success"`
	Message   string           `json:"message"`
	RecentLog []journal.Entry  `json:"recent_log,omitempty"`
}

// Notifier delivers audit reports to external systems. Delivery is fire and
// forget from the auditor's point of view: errors are logged by the caller
// and never fail the cycle.
type Notifier interface {
	Notify(ctx context.Context, report Report) error
}

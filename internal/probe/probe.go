// Package probe answers, per service, whether it can actually do its job
// right now, as opposed to merely having a live process. Every probe call is
// bounded by its own short timeout, independent of any caller-side budget; a
// timed-out probe is "not ready", never fatal by itself.
package probe

import (
	"context"
	"time"
)

// DefaultTimeout bounds a single probe attempt.
const DefaultTimeout = 5 * time.Second

// Result is the outcome of one probe call. Results are produced fresh on
// every call and never cached beyond a single decision.
type Result struct {
	Service string
	OK      bool
	Detail  string
	Elapsed time.Duration
	At      time.Time
}

// Prober performs a protocol-appropriate readiness check for one service.
type Prober interface {
	Service() string
	Probe(ctx context.Context) Result
}

func newResult(service string, start time.Time, ok bool, detail string) Result {
	return Result{
		Service: service,
		OK:      ok,
		Detail:  detail,
		Elapsed: time.Since(start),
		At:      start.UTC(),
	}
}

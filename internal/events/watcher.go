// Package events consumes supervisord's event-listener protocol and records
// unexpected process terminations durably. The watcher is strictly passive:
// it acknowledges every event it receives, even when its own logging fails,
// so it can never stall the event source.
package events

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/mglowin/stackwarden/internal/journal"
	"github.com/mglowin/stackwarden/internal/metrics"
)

// Tracker receives liveness signals from the watcher loop.
type Tracker interface {
	RecordReady()
	RecordEvent()
}

// Watcher is the long-lived event-consumption loop. It reads events one at a
// time from in (supervisord's pipe) and acknowledges each on out.
type Watcher struct {
	logger  zerolog.Logger
	in      *bufio.Reader
	out     io.Writer
	jrnl    *journal.Journal
	metrics *metrics.Metrics
	tracker Tracker
}

// Option customizes watcher behavior.
type Option func(*Watcher)

// WithMetrics records event counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Watcher) { w.metrics = m }
}

// WithTracker feeds the health endpoints.
func WithTracker(t Tracker) Option {
	return func(w *Watcher) { w.tracker = t }
}

// New constructs a Watcher over the given streams.
func New(logger zerolog.Logger, in io.Reader, out io.Writer, jrnl *journal.Journal, opts ...Option) *Watcher {
	w := &Watcher{
		logger: logger,
		in:     bufio.NewReader(in),
		out:    out,
		jrnl:   jrnl,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.jrnl == nil {
		w.jrnl = journal.New("", logger)
	}
	return w
}

// Run consumes events until the input closes or the context is canceled
// between events. It never returns an error for a bad or unhandled event;
// only a broken transport ends the loop.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := io.WriteString(w.out, "READY\n"); err != nil {
			return fmt.Errorf("write ready: %w", err)
		}
		if w.tracker != nil {
			w.tracker.RecordReady()
		}

		line, err := w.in.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				w.logger.Info().Msg("event source closed")
				return nil
			}
			return fmt.Errorf("read header: %w", err)
		}

		header, headerErr := parseHeader(line)
		if headerErr != nil {
			// Discard whatever payload length did parse so the next header
			// line starts at an event boundary.
			if header.PayloadLen > 0 {
				if _, err := io.CopyN(io.Discard, w.in, int64(header.PayloadLen)); err != nil {
					return fmt.Errorf("discard payload: %w", err)
				}
			}
			w.logger.Warn().Err(headerErr).Msg("unparseable event header")
		} else {
			payload := make([]byte, header.PayloadLen)
			if _, err := io.ReadFull(w.in, payload); err != nil {
				return fmt.Errorf("read payload: %w", err)
			}
			w.handle(header, string(payload))
		}
		if w.tracker != nil {
			w.tracker.RecordEvent()
		}
		w.metrics.ObserveEventHandled(time.Now())

		// Acknowledge unconditionally. A journaling problem is ours alone;
		// stalling supervisord's event pipe would hurt every listener.
		if _, err := io.WriteString(w.out, "RESULT 2\nOK"); err != nil {
			return fmt.Errorf("write ack: %w", err)
		}
	}
}

func (w *Watcher) handle(header Header, payload string) {
	tokens := parseTokens(payload)
	name := tokens["processname"]

	switch header.EventName {
	case EventProcessExited:
		// expected:0 means supervisord did NOT anticipate this exit code.
		if tokens["expected"] != "0" {
			w.logger.Debug().Str("service", name).Msg("expected process exit")
			return
		}
		detail := fmt.Sprintf("exited unexpectedly from %s (pid %s)", tokens["from_state"], tokens["pid"])
		w.record(name, header.EventName, detail)
	case EventProcessFatal:
		detail := fmt.Sprintf("entered fatal state from %s", tokens["from_state"])
		w.record(name, header.EventName, detail)
	default:
		w.logger.Debug().Str("event", header.EventName).Msg("ignoring event")
	}
}

func (w *Watcher) record(service, event, detail string) {
	w.logger.Error().Str("service", service).Str("event", event).Str("detail", detail).Msg("process event")
	w.metrics.IncProcessEvents(service, event)
	if err := w.jrnl.Append(journal.Entry{
		Kind: journal.KindProcessEvent, Service: service, OK: false, Detail: detail,
	}); err != nil {
		w.metrics.IncJournalErrors()
		w.logger.Warn().Err(err).Msg("journal append failed, acknowledging anyway")
	}
}

// Package bootseq drives the managed services from cold start to fully
// serving, in fixed dependency order, failing fast and loudly on
// unrecoverable problems. It runs exactly once per orchestrator process.
package bootseq

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mglowin/stackwarden/internal/clock"
	"github.com/mglowin/stackwarden/internal/journal"
	"github.com/mglowin/stackwarden/internal/probe"
	"github.com/mglowin/stackwarden/internal/supervise"
)

const defaultPollInterval = 2 * time.Second

// StageError is a fatal boot failure. The whole sequence aborts and the
// process exits non-zero so the enclosing supervisor treats the system as
// failed-to-start.
type StageError struct {
	Stage  string
	Reason string
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %s", e.Stage, e.Reason)
}

// Sequencer sequences the boot stages using an injected controller, probes,
// and clock.
type Sequencer struct {
	logger       zerolog.Logger
	ctrl         supervise.Controller
	probers      map[string]probe.Prober
	stages       []Descriptor
	clk          clock.Clock
	jrnl         *journal.Journal
	pollInterval time.Duration
	confirm      probe.Prober
}

// Option customizes sequencer behavior.
type Option func(*Sequencer)

// WithClock overrides the time source.
func WithClock(clk clock.Clock) Option {
	return func(s *Sequencer) { s.clk = clk }
}

// WithPollInterval overrides the gate poll cadence.
func WithPollInterval(d time.Duration) Option {
	return func(s *Sequencer) { s.pollInterval = d }
}

// WithJournal records stage transitions and probe results durably.
func WithJournal(jrnl *journal.Journal) Option {
	return func(s *Sequencer) { s.jrnl = jrnl }
}

// WithConfirmation sets the advisory post-boot check of the externally
// visible health endpoint. Its failure is logged, never fatal.
func WithConfirmation(p probe.Prober) Option {
	return func(s *Sequencer) { s.confirm = p }
}

// New constructs a Sequencer over the given stages. probers maps service
// names to their readiness checks; one-shot stages need no prober.
func New(logger zerolog.Logger, ctrl supervise.Controller, probers map[string]probe.Prober, stages []Descriptor, opts ...Option) *Sequencer {
	s := &Sequencer{
		logger:       logger,
		ctrl:         ctrl,
		probers:      probers,
		stages:       stages,
		clk:          clock.Real{},
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.jrnl == nil {
		s.jrnl = journal.New("", logger)
	}
	return s
}

// Run executes all stages in order. Stage N+1 never starts before stage N's
// gate condition is observed true. Any fatal stage failure aborts the whole
// sequence.
func (s *Sequencer) Run(ctx context.Context) error {
	for _, stage := range s.stages {
		s.logger.Info().
			Str("stage", stage.Name).
			Str("kind", string(stage.Kind)).
			Dur("timeout", stage.Timeout).
			Msg("stage starting")

		if err := s.runStage(ctx, stage); err != nil {
			s.logger.Error().Str("stage", stage.Name).Err(err).Msg("stage failed")
			_ = s.jrnl.Append(journal.Entry{
				Kind: journal.KindStage, Service: stage.Name, OK: false, Detail: err.Error(),
			})
			if stage.Fatal {
				return err
			}
			s.logger.Warn().Str("stage", stage.Name).Msg("non-fatal stage skipped")
			continue
		}

		s.logger.Info().Str("stage", stage.Name).Msg("stage ready")
		_ = s.jrnl.Append(journal.Entry{
			Kind: journal.KindStage, Service: stage.Name, OK: true, Detail: "ready",
		})
	}

	s.confirmServing(ctx)
	s.logAggregateState(ctx)
	return nil
}

func (s *Sequencer) runStage(ctx context.Context, stage Descriptor) error {
	if err := s.ctrl.Start(ctx, stage.Name); err != nil {
		return &StageError{Stage: stage.Name, Reason: fmt.Sprintf("start: %v", err)}
	}

	deadline := s.clk.Now().Add(stage.Timeout)
	for {
		ready, fatalErr := s.checkGate(ctx, stage)
		if fatalErr != nil {
			return fatalErr
		}
		if ready {
			return nil
		}

		if !s.clk.Now().Before(deadline) {
			return &StageError{
				Stage:  stage.Name,
				Reason: fmt.Sprintf("not ready within %s", stage.Timeout),
			}
		}
		if err := s.clk.Sleep(ctx, s.pollInterval); err != nil {
			return &StageError{Stage: stage.Name, Reason: fmt.Sprintf("canceled: %v", err)}
		}
	}
}

// checkGate evaluates a stage's gate once. It returns ready=true when the
// gate condition holds, or a non-nil error for conditions that cannot
// recover by waiting (explicit failed run-state, non-zero one-shot exit).
func (s *Sequencer) checkGate(ctx context.Context, stage Descriptor) (bool, error) {
	state, err := s.ctrl.Status(ctx, stage.Name)
	if err != nil {
		// Transient controller errors are retried on the next tick.
		s.logger.Debug().Str("stage", stage.Name).Err(err).Msg("status unavailable")
		return false, nil
	}

	if stage.Kind == KindOneShot {
		switch {
		case state.ExitedOK():
			return true, nil
		case state.Phase == supervise.PhaseExited:
			return false, &StageError{
				Stage:  stage.Name,
				Reason: fmt.Sprintf("exited with code %d", state.ExitCode),
			}
		case state.Phase == supervise.PhaseFailed:
			return false, &StageError{
				Stage:  stage.Name,
				Reason: fmt.Sprintf("failed to run: %s", state.Detail),
			}
		default:
			return false, nil
		}
	}

	switch state.Phase {
	case supervise.PhaseFailed:
		return false, &StageError{
			Stage:  stage.Name,
			Reason: fmt.Sprintf("failed run-state: %s", state.Detail),
		}
	case supervise.PhaseExited:
		return false, &StageError{
			Stage:  stage.Name,
			Reason: fmt.Sprintf("exited unexpectedly with code %d", state.ExitCode),
		}
	}

	prober, ok := s.probers[stage.Name]
	if !ok {
		// No richer check configured, process run-state is the gate.
		return state.Running(), nil
	}

	result := prober.Probe(ctx)
	_ = s.jrnl.Append(journal.Entry{
		Kind: journal.KindProbe, Service: stage.Name, OK: result.OK, Detail: result.Detail,
	})
	if !result.OK {
		s.logger.Debug().Str("stage", stage.Name).Str("detail", result.Detail).Msg("not ready yet")
	}
	return result.OK, nil
}

func (s *Sequencer) confirmServing(ctx context.Context) {
	if s.confirm == nil {
		return
	}
	result := s.confirm.Probe(ctx)
	_ = s.jrnl.Append(journal.Entry{
		Kind: journal.KindProbe, Service: result.Service, OK: result.OK, Detail: "confirmation: " + result.Detail,
	})
	if result.OK {
		s.logger.Info().Str("detail", result.Detail).Msg("serving confirmed")
		return
	}
	// Advisory only: the individual stage gates already passed.
	s.logger.Warn().Str("detail", result.Detail).Msg("confirmation check failed")
}

func (s *Sequencer) logAggregateState(ctx context.Context) {
	for _, stage := range s.stages {
		state, err := s.ctrl.Status(ctx, stage.Name)
		if err != nil {
			s.logger.Warn().Str("service", stage.Name).Err(err).Msg("status unavailable")
			continue
		}
		s.logger.Info().Str("service", stage.Name).Str("state", state.String()).Msg("managed service state")
	}
}

package audit

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// Ticker is the minimal interface needed for driving the audit loop.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct {
	ticker *time.Ticker
}

func (t timeTicker) C() <-chan time.Time {
	return t.ticker.C
}

func (t timeTicker) Stop() {
	t.ticker.Stop()
}

// Loop drives repeated audit cycles for environments without cron. A failed
// cycle is logged and the loop continues; a single bad audit must not take
// down a running system.
type Loop struct {
	logger        zerolog.Logger
	interval      time.Duration
	tickerFactory func(time.Duration) Ticker
	runOnce       func(context.Context) error
}

// LoopOption customizes loop behavior.
type LoopOption func(*Loop)

// WithTickerFactory overrides how tickers are created.
func WithTickerFactory(factory func(time.Duration) Ticker) LoopOption {
	return func(l *Loop) {
		l.tickerFactory = factory
	}
}

// NewLoop constructs a Loop invoking runOnce on the given interval.
func NewLoop(logger zerolog.Logger, interval time.Duration, runOnce func(context.Context) error, opts ...LoopOption) *Loop {
	l := &Loop{
		logger:   logger,
		interval: interval,
		runOnce:  runOnce,
		tickerFactory: func(d time.Duration) Ticker {
			return timeTicker{ticker: time.NewTicker(d)}
		},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run blocks until the context is canceled. The first cycle runs on the
// first tick, not immediately: the schedule exists to hit low-traffic
// windows, so an immediate run at process start would defeat it.
func (l *Loop) Run(ctx context.Context) error {
	if l.interval <= 0 {
		return errors.New("audit interval must be greater than zero")
	}

	ticker := l.tickerFactory(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info().Msg("audit loop stopped")
			return nil
		case <-ticker.C():
			if err := l.runOnce(ctx); err != nil {
				l.logger.Error().Err(err).Msg("audit cycle failed")
			}
		}
	}
}

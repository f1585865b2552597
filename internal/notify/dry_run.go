package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// DryRunNotifier logs reports without sending notifications.
type DryRunNotifier struct {
	logger zerolog.Logger
}

// NewDryRunNotifier returns a notifier that suppresses delivery and logs instead.
func NewDryRunNotifier(logger zerolog.Logger) *DryRunNotifier {
	return &DryRunNotifier{logger: logger}
}

// Notify implements Notifier.
func (n *DryRunNotifier) Notify(_ context.Context, report Report) error {
	n.logger.Info().
		Str("domain", report.Domain).
		Bool("success", report.Success).
		Int("checks", len(report.Checks)).
		Int("restarts", len(report.Restarts)).
		Str("message", report.Message).
		Msg("[DRY-RUN] Would notify")
	return nil
}

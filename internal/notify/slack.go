package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
)

const slackMaxLogLines = 5

// SlackNotifier posts an audit summary card to a Slack incoming webhook.
type SlackNotifier struct {
	logger     zerolog.Logger
	webhookURL string
	timing     timingConfig
	poster     *httpPoster
}

// SlackOption customizes SlackNotifier behavior.
type SlackOption func(*SlackNotifier)

// WithSlackTiming overrides timing parameters (primarily for testing).
func WithSlackTiming(rateInterval time.Duration, rateBurst int, backoffInitial, backoffMax, backoffMaxElapsed time.Duration) SlackOption {
	return func(s *SlackNotifier) {
		s.timing.rateInterval = rateInterval
		s.timing.rateBurst = rateBurst
		s.timing.backoffInitial = backoffInitial
		s.timing.backoffMax = backoffMax
		s.timing.backoffMaxElapsed = backoffMaxElapsed
	}
}

// NewSlackNotifier creates a Slack notifier or a noop notifier when the
// webhook is empty.
func NewSlackNotifier(logger zerolog.Logger, webhookURL string, opts ...SlackOption) Notifier {
	if webhookURL == "" {
		return NewNoop(logger, "slack webhook not configured; notifications disabled")
	}

	notifier := &SlackNotifier{
		logger:     logger,
		webhookURL: webhookURL,
		timing:     defaultTiming,
	}
	for _, opt := range opts {
		opt(notifier)
	}
	notifier.poster = newHTTPPoster(logger, "slack", webhookURL, "application/json", notifier.timing)

	return notifier
}

// Notify implements Notifier.
func (n *SlackNotifier) Notify(ctx context.Context, report Report) error {
	if err := n.poster.waitForRateLimit(ctx); err != nil {
		return err
	}

	payload, err := json.Marshal(buildSlackMessage(report))
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}
	if err := n.poster.postWithRetry(ctx, payload); err != nil {
		return err
	}

	n.logger.Debug().
		Str("domain", report.Domain).
		Bool("success", report.Success).
		Msg("slack notification sent")

	return nil
}

func buildSlackMessage(report Report) slack.WebhookMessage {
	statusEmoji := ":white_check_mark:"
	if !report.Success {
		statusEmoji = ":x:"
	}
	summary := fmt.Sprintf("%s Scheduled maintenance report: %s", statusEmoji, report.Domain)
	header := slack.NewHeaderBlock(slack.NewTextBlockObject("plain_text", summary, true, false))
	context := slack.NewContextBlock("",
		slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("Ran at *%s*, took *%s*", report.StartedAt.Format(time.RFC3339), report.Duration.Round(time.Millisecond)), false, false),
	)

	blocks := []slack.Block{header, context}

	if len(report.Checks) > 0 {
		lines := make([]string, 0, len(report.Checks))
		for _, check := range report.Checks {
			mark := ":white_check_mark:"
			if !check.OK {
				mark = ":x:"
			}
			lines = append(lines, fmt.Sprintf("%s *%s*: %s (%s)", mark, check.Service, check.Detail, check.Elapsed.Round(time.Millisecond)))
		}
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject("mrkdwn", "*Health checks*\n"+strings.Join(lines, "\n"), false, false), nil, nil,
		))
	}

	if len(report.Restarts) > 0 {
		lines := make([]string, 0, len(report.Restarts))
		for _, restart := range report.Restarts {
			mark := ":white_check_mark:"
			if !restart.Success {
				mark = ":x:"
			}
			lines = append(lines, fmt.Sprintf("%s *%s*: %s (%s)", mark, restart.Service, restart.Message, restart.Elapsed.Round(time.Millisecond)))
		}
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject("mrkdwn", "*Restarts*\n"+strings.Join(lines, "\n"), false, false), nil, nil,
		))
	}

	resources := fmt.Sprintf("*Resources*\nMemory %.1f%% · Disk %.1f%% · CPU %.1f%% · Load %.2f/%.2f/%.2f · %d connections",
		report.Resources.MemoryUsedPercent, report.Resources.DiskUsedPercent, report.Resources.CPUPercent,
		report.Resources.Load1, report.Resources.Load5, report.Resources.Load15, report.Resources.Connections)
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", resources, false, false), nil, nil))

	if len(report.RecentLog) > 0 {
		start := 0
		if len(report.RecentLog) > slackMaxLogLines {
			start = len(report.RecentLog) - slackMaxLogLines
		}
		lines := make([]string, 0, slackMaxLogLines)
		for _, entry := range report.RecentLog[start:] {
			lines = append(lines, fmt.Sprintf("%s %s %s ok=%t %s", entry.At.Format(time.RFC3339), entry.Kind, entry.Service, entry.OK, entry.Detail))
		}
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject("mrkdwn", "*Recent journal*\n```"+strings.Join(lines, "\n")+"```", false, false), nil, nil,
		))
	}

	if report.Message != "" {
		blocks = append(blocks, slack.NewContextBlock("",
			slack.NewTextBlockObject("mrkdwn", report.Message, false, false),
		))
	}

	blockSet := slack.Blocks{BlockSet: blocks}
	return slack.WebhookMessage{
		Text:   summary,
		Blocks: &blockSet,
	}
}

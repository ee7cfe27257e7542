package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/slack-go/slack"

	"spirareport/internal/reporter"
)

// TokenEnv holds the bot token used for Slack summaries.
const TokenEnv = "SLACK_BOT_USER_TOKEN"

var (
	ErrNoToken   = errors.New("slack bot token is not configured")
	ErrNoChannel = errors.New("slack channel is not configured")
)

// SlackPoster is the subset of *slack.Client used to post messages.
type SlackPoster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

var _ SlackPoster = (*slack.Client)(nil)

// SlackNotifier posts flush summaries to a Slack channel.
type SlackNotifier struct {
	Client  SlackPoster
	Channel string
}

// NewSlackNotifier creates a SlackNotifier backed by the Slack Web API.
func NewSlackNotifier(token, channel string, options ...slack.Option) (*SlackNotifier, error) {
	if token == "" {
		return nil, ErrNoToken
	}
	if channel == "" {
		return nil, ErrNoChannel
	}
	return &SlackNotifier{
		Client:  slack.New(token, options...),
		Channel: channel,
	}, nil
}

// NotifySummary posts the outcome of a flush and returns the message timestamp.
func (s *SlackNotifier) NotifySummary(ctx context.Context, projectID int, summary reporter.Summary, flushErr error) (string, error) {
	if s.Client == nil {
		return "", ErrNoToken
	}
	if s.Channel == "" {
		return "", ErrNoChannel
	}

	_, ts, err := s.Client.PostMessageContext(ctx, s.Channel,
		slack.MsgOptionText(SummaryMessage(projectID, summary, flushErr), false),
	)
	if err != nil {
		return "", fmt.Errorf("failed to post slack summary: %w", err)
	}
	return ts, nil
}

// SummaryMessage formats a flush summary as Slack mrkdwn.
func SummaryMessage(projectID int, summary reporter.Summary, flushErr error) string {
	icon := ":white_check_mark:"
	if flushErr != nil || summary.Rejected > 0 || summary.Failed > 0 {
		icon = ":x:"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s *Spira project %d*: recorded %d/%d test runs (%d passed, %d failed, %d unknown)",
		icon, projectID, summary.Recorded, summary.Submitted, summary.Passed, summary.Failed, summary.Unknown)

	if len(summary.TestRunIDs) > 0 {
		ids := make([]string, len(summary.TestRunIDs))
		for i, id := range summary.TestRunIDs {
			ids[i] = fmt.Sprintf("TR%d", id)
		}
		fmt.Fprintf(&b, "\nTest runs: %s", strings.Join(ids, ", "))
	}
	if summary.Rejected > 0 {
		fmt.Fprintf(&b, "\n%d test run(s) were not recorded", summary.Rejected)
	}
	if flushErr != nil {
		// first failure only; the full list is in the logs
		msg, _, _ := strings.Cut(flushErr.Error(), "\n")
		fmt.Fprintf(&b, "\n> %s", msg)
	}
	return b.String()
}

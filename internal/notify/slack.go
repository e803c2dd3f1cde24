package notify

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

// SlackNotifier posts prompt questions to a fixed Slack channel.
type SlackNotifier struct {
	client  *slack.Client
	channel string
	logger  *zap.Logger
}

// NewSlackNotifier creates a notifier using a Bot User OAuth token
// (xoxb-...).
func NewSlackNotifier(botToken, channel string, logger *zap.Logger) *SlackNotifier {
	logger.Info("slack notifier ready", zap.String("channel", channel))
	return &SlackNotifier{
		client:  slack.New(botToken),
		channel: channel,
		logger:  logger,
	}
}

// NotifyPrompt posts the question to the configured channel.
func (n *SlackNotifier) NotifyPrompt(ctx context.Context, promptID, question string) error {
	_, _, err := n.client.PostMessageContext(ctx, n.channel,
		slack.MsgOptionText(formatPrompt(promptID, question), false),
	)
	if err != nil {
		return fmt.Errorf("slack send: %w", err)
	}
	n.logger.Debug("prompt posted to slack", zap.String("prompt", promptID))
	return nil
}

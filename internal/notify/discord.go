package notify

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// DiscordNotifier posts prompt questions to a fixed Discord channel.
type DiscordNotifier struct {
	session   *discordgo.Session
	channelID string
	logger    *zap.Logger
}

// NewDiscordNotifier opens a Discord session against the bot token. The
// gateway websocket stays closed; plain REST sends are enough for
// outbound announcements.
func NewDiscordNotifier(token, channelID string, logger *zap.Logger) (*DiscordNotifier, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	logger.Info("discord notifier ready", zap.String("channel", channelID))
	return &DiscordNotifier{session: session, channelID: channelID, logger: logger}, nil
}

// NotifyPrompt posts the question to the configured channel.
func (n *DiscordNotifier) NotifyPrompt(ctx context.Context, promptID, question string) error {
	_, err := n.session.ChannelMessageSend(n.channelID, formatPrompt(promptID, question))
	if err != nil {
		return fmt.Errorf("discord send: %w", err)
	}
	n.logger.Debug("prompt posted to discord", zap.String("prompt", promptID))
	return nil
}

// Close shuts down the Discord session.
func (n *DiscordNotifier) Close() error {
	return n.session.Close()
}

// cmd/verilens-scan/notify.go
package main

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// DiscordNotifier posts flagged items to a Discord channel.
type DiscordNotifier struct {
	session   *discordgo.Session
	channelID string
	logger    *zap.Logger
}

func NewDiscordNotifier(token, channelID string, logger *zap.Logger) (*DiscordNotifier, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("failed to open Discord connection: %w", err)
	}
	return &DiscordNotifier{
		session:   session,
		channelID: channelID,
		logger:    logger,
	}, nil
}

// NotifyFlagged posts an embed for an item the service judged fake.
func (dn *DiscordNotifier) NotifyFlagged(source, title, link string, assessment *Assessment) {
	embed := &discordgo.MessageEmbed{
		Title: "Flagged as likely fake news",
		URL:   link,
		Color: 0xB00020,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Source", Value: source, Inline: true},
			{Name: "Headline", Value: title},
			{
				Name: "Verdict",
				Value: fmt.Sprintf("Fake: %s (%.0f%%) — fact check %s (%.0f%%)",
					assessment.IsFakeNews.Label, assessment.IsFakeNews.Confidence*100,
					assessment.FactCheckStatus.Label, assessment.FactCheckStatus.Confidence*100),
			},
		},
	}
	if assessment.Reasoning != "" {
		reasoning := assessment.Reasoning
		if len(reasoning) > 1000 {
			reasoning = reasoning[:1000] + "..."
		}
		embed.Description = reasoning
	}

	if _, err := dn.session.ChannelMessageSendEmbed(dn.channelID, embed); err != nil {
		dn.logger.Error("failed to post Discord notification", zap.String("title", title), zap.Error(err))
	}
}

// Close shuts the Discord session down.
func (dn *DiscordNotifier) Close() {
	if err := dn.session.Close(); err != nil {
		dn.logger.Warn("failed to close Discord session", zap.Error(err))
	}
}

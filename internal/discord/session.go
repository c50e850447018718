// Package discord adapts a discordgo session to the moderation pipeline:
// it turns slash commands and messages into pipeline requests and implements
// the outbound platform calls, mod-log delivery and live status.
package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

const Intents = discordgo.IntentGuilds |
	discordgo.IntentGuildMembers |
	discordgo.IntentGuildMessages |
	discordgo.IntentMessageContent

func NewSession(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = Intents
	s.StateEnabled = true
	return s, nil
}

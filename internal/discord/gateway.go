package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/modrelay/backend/internal/services"
	"go.uber.org/zap"
)

// Messages older than this cannot be bulk-deleted.
const bulkDeleteMaxAge = 14 * 24 * time.Hour

// Gateway implements the outbound platform calls, mod-log delivery and the
// dashboard status on top of a discordgo session.
type Gateway struct {
	s   *discordgo.Session
	log *zap.Logger
}

var (
	_ services.Platform       = (*Gateway)(nil)
	_ services.NoticeSink     = (*Gateway)(nil)
	_ services.StatusProvider = (*Gateway)(nil)
)

func NewGateway(s *discordgo.Session, log *zap.Logger) *Gateway {
	return &Gateway{s: s, log: log}
}

func (g *Gateway) KickMember(ctx context.Context, guildID, userID, reason string) error {
	return g.s.GuildMemberDeleteWithReason(guildID, userID, reason, discordgo.WithContext(ctx))
}

func (g *Gateway) BanMember(ctx context.Context, guildID, userID, reason string) error {
	return g.s.GuildBanCreateWithReason(guildID, userID, reason, 0, discordgo.WithContext(ctx))
}

func (g *Gateway) TimeoutMember(ctx context.Context, guildID, userID string, until time.Time, reason string) error {
	return g.s.GuildMemberTimeout(guildID, userID, &until,
		discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
}

// PurgeMessages deletes up to limit of the newest messages in channelID.
// Recent messages go through bulk delete; older ones are removed one by one.
func (g *Gateway) PurgeMessages(ctx context.Context, channelID string, limit int) (int, error) {
	msgs, err := g.s.ChannelMessages(channelID, limit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return 0, fmt.Errorf("list messages: %w", err)
	}

	cutoff := time.Now().Add(-bulkDeleteMaxAge)
	var recent, old []string
	for _, m := range msgs {
		if m.Timestamp.After(cutoff) {
			recent = append(recent, m.ID)
		} else {
			old = append(old, m.ID)
		}
	}

	deleted := 0
	switch len(recent) {
	case 0:
	case 1:
		old = append(old, recent[0])
	default:
		if err := g.s.ChannelMessagesBulkDelete(channelID, recent, discordgo.WithContext(ctx)); err != nil {
			return 0, fmt.Errorf("bulk delete: %w", err)
		}
		deleted += len(recent)
	}

	for _, id := range old {
		if err := g.s.ChannelMessageDelete(channelID, id, discordgo.WithContext(ctx)); err != nil {
			if deleted > 0 {
				g.log.Warn("purge stopped early", zap.String("channel_id", channelID), zap.Int("deleted", deleted), zap.Error(err))
				return deleted, nil
			}
			return 0, fmt.Errorf("delete message: %w", err)
		}
		deleted++
	}
	return deleted, nil
}

func (g *Gateway) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return g.s.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx))
}

func (g *Gateway) SendTransient(ctx context.Context, channelID, text string, ttl time.Duration) error {
	msg, err := g.s.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx))
	if err != nil {
		return err
	}
	time.AfterFunc(ttl, func() {
		if err := g.s.ChannelMessageDelete(channelID, msg.ID); err != nil {
			g.log.Debug("failed to remove transient message", zap.String("message_id", msg.ID), zap.Error(err))
		}
	})
	return nil
}

// FindTextChannel looks the channel up by name in the state cache, falling back to REST.
func (g *Gateway) FindTextChannel(ctx context.Context, guildID, name string) (string, bool, error) {
	var channels []*discordgo.Channel
	if guild, err := g.s.State.Guild(guildID); err == nil {
		g.s.State.RLock()
		channels = append(channels, guild.Channels...)
		g.s.State.RUnlock()
	} else {
		channels, err = g.s.GuildChannels(guildID, discordgo.WithContext(ctx))
		if err != nil {
			return "", false, err
		}
	}
	id, ok := FindTextChannelByName(channels, name)
	return id, ok, nil
}

func FindTextChannelByName(channels []*discordgo.Channel, name string) (string, bool) {
	for _, c := range channels {
		if c.Type == discordgo.ChannelTypeGuildText && c.Name == name {
			return c.ID, true
		}
	}
	return "", false
}

func (g *Gateway) SendNotice(ctx context.Context, channelID string, n services.Notice) error {
	_, err := g.s.ChannelMessageSendEmbed(channelID, toEmbed(n), discordgo.WithContext(ctx))
	return err
}

func toEmbed(n services.Notice) *discordgo.MessageEmbed {
	fields := make([]*discordgo.MessageEmbedField, 0, len(n.Fields))
	for _, f := range n.Fields {
		fields = append(fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: true})
	}
	return &discordgo.MessageEmbed{
		Title:  n.Title,
		Color:  n.Color,
		Fields: fields,
		Footer: &discordgo.MessageEmbedFooter{Text: n.Footer},
	}
}

func (g *Gateway) GuildCount() int {
	g.s.State.RLock()
	defer g.s.State.RUnlock()
	return len(g.s.State.Guilds)
}

func (g *Gateway) Latency() time.Duration {
	return g.s.HeartbeatLatency()
}

// Guild returns the cached guild, fetching it over REST when the cache misses.
func (g *Gateway) Guild(ctx context.Context, guildID string) (*discordgo.Guild, error) {
	if guild, err := g.s.State.Guild(guildID); err == nil {
		return guild, nil
	}
	return g.s.Guild(guildID, discordgo.WithContext(ctx))
}

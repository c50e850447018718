package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/modrelay/backend/internal/models"
	"github.com/modrelay/backend/internal/policy"
	"github.com/modrelay/backend/internal/services"
	"go.uber.org/zap"
)

const (
	replyNoPermission = "❌ You don't have permission!"
	replyGuildOnly    = "❌ This command only works inside a server."
)

// Bot routes gateway events into the moderation pipeline.
type Bot struct {
	session  *discordgo.Session
	gateway  *Gateway
	pipeline *services.Pipeline
	log      *zap.Logger

	ctx context.Context
}

func NewBot(session *discordgo.Session, gateway *Gateway, pipeline *services.Pipeline, log *zap.Logger) *Bot {
	b := &Bot{
		session:  session,
		gateway:  gateway,
		pipeline: pipeline,
		log:      log,
		ctx:      context.Background(),
	}
	session.AddHandler(b.onReady)
	session.AddHandler(b.onInteraction)
	session.AddHandler(b.onMessageCreate)
	return b
}

// Run connects to the gateway, syncs slash commands and blocks until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	b.ctx = ctx
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	defer func() {
		if err := b.session.Close(); err != nil {
			b.log.Warn("discord close error", zap.Error(err))
		}
		b.pipeline.Wait()
	}()

	if _, err := b.session.ApplicationCommandBulkOverwrite(b.session.State.User.ID, "", Commands()); err != nil {
		return fmt.Errorf("sync slash commands: %w", err)
	}
	b.log.Info("slash commands synced", zap.Int("count", len(Commands())))

	<-ctx.Done()
	b.log.Info("discord gateway shutting down")
	return nil
}

func (b *Bot) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	b.log.Info("discord gateway ready",
		zap.String("user", r.User.Username),
		zap.Int("guilds", len(r.Guilds)),
	)
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()
	kind, ok := CommandAction(data.Name)
	if !ok {
		return
	}
	if i.Member == nil || i.GuildID == "" {
		b.respond(s, i, replyGuildOnly, true)
		return
	}
	if !policy.HasCapability(i.Member.Permissions, kind) {
		b.respond(s, i, replyNoPermission, true)
		return
	}

	deferred := kind == models.ActionClear
	if deferred {
		err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
		})
		if err != nil {
			b.log.Warn("failed to defer interaction", zap.Error(err))
			return
		}
	}

	out := b.handleCommand(kind, i, data)

	if deferred {
		_, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
			Content: out.Reply,
			Flags:   discordgo.MessageFlagsEphemeral,
		})
		if err != nil {
			b.log.Warn("failed to send followup", zap.Error(err))
		}
		return
	}
	b.respond(s, i, out.Reply, out.Ephemeral)
}

func (b *Bot) handleCommand(kind models.Action, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) services.Outcome {
	guild, err := b.gateway.Guild(b.ctx, i.GuildID)
	if err != nil {
		b.log.Warn("failed to load guild", zap.String("guild_id", i.GuildID), zap.Error(err))
		return services.Outcome{Stage: services.StageFailed, Reply: fmt.Sprintf("Error: %v", err), Ephemeral: true}
	}

	req, err := BuildRequest(kind, guild, i.GuildID, i.ChannelID, i.Member, data)
	if err != nil {
		return services.Outcome{Stage: services.StageReceived, Reply: "❌ " + err.Error(), Ephemeral: true}
	}

	out, err := b.pipeline.Handle(b.ctx, req)
	switch {
	case err == nil, errors.Is(err, services.ErrDenied):
	case services.IsUserFacing(err):
		b.log.Info("moderation command rejected",
			zap.String("action", string(kind)),
			zap.String("stage", string(out.Stage)),
			zap.Error(err),
		)
	default:
		b.log.Error("moderation command left unrecorded",
			zap.String("action", string(kind)),
			zap.String("stage", string(out.Stage)),
			zap.Error(err),
		)
	}
	return out
}

func (b *Bot) onMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.GuildID == "" {
		return
	}
	msg := models.ChatMessage{
		ID:        m.ID,
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		Author: models.Member{
			ID:   m.Author.ID,
			Name: DisplayName(m.Member, m.Author),
		},
		Mention: m.Author.Mention(),
		Bot:     m.Author.Bot,
		Content: m.Content,
	}
	if _, err := b.pipeline.HandleMessage(b.ctx, msg); err != nil {
		b.log.Warn("automod handling failed", zap.String("message_id", m.ID), zap.Error(err))
	}
}

func (b *Bot) respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string, ephemeral bool) {
	var flags discordgo.MessageFlags
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content, Flags: flags},
	})
	if err != nil {
		b.log.Warn("failed to respond to interaction", zap.Error(err))
	}
}

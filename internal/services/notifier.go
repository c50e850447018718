package services

import (
	"context"
	"fmt"

	"github.com/modrelay/backend/internal/events"
	"github.com/modrelay/backend/internal/metrics"
	"github.com/modrelay/backend/internal/models"
	"go.uber.org/zap"
)

const (
	ColorRed  = 0xE74C3C
	ColorBlue = 0x3498DB
)

type NoticeField struct {
	Name  string
	Value string
}

// Notice is a platform-neutral rich message.
type Notice struct {
	Title  string
	Color  int
	Fields []NoticeField
	Footer string
}

// NoticeSink resolves the mod-log channel and delivers notices to it.
type NoticeSink interface {
	// FindTextChannel returns ok=false when the guild has no channel by that name.
	FindTextChannel(ctx context.Context, guildID, name string) (channelID string, ok bool, err error)
	SendNotice(ctx context.Context, channelID string, n Notice) error
}

// Notifier fans a committed audit record out to the mod-log channel and the event bus.
// Every failure is logged and dropped.
type Notifier struct {
	sink        NoticeSink
	channelName string
	publisher   events.Publisher
	log         *zap.Logger
}

func NewNotifier(sink NoticeSink, channelName string, publisher events.Publisher, log *zap.Logger) *Notifier {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Notifier{sink: sink, channelName: channelName, publisher: publisher, log: log}
}

func BuildNotice(rec models.AuditRecord) Notice {
	color := ColorBlue
	if rec.Action == models.ActionBan {
		color = ColorRed
	}
	return Notice{
		Title: fmt.Sprintf("Action: %s", rec.Action),
		Color: color,
		Fields: []NoticeField{
			{Name: "User", Value: rec.Subject},
			{Name: "Reason", Value: models.OrDefaultReason(rec.Reason)},
		},
		Footer: rec.Timestamp,
	}
}

func (n *Notifier) Emit(ctx context.Context, guildID string, rec models.AuditRecord) {
	n.sendToChannel(ctx, guildID, rec)
	n.publish(ctx, guildID, rec)
}

func (n *Notifier) sendToChannel(ctx context.Context, guildID string, rec models.AuditRecord) {
	if n.sink == nil || guildID == "" {
		return
	}
	channelID, ok, err := n.sink.FindTextChannel(ctx, guildID, n.channelName)
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues("channel", "error").Inc()
		n.log.Warn("failed to resolve mod-log channel",
			zap.String("guild_id", guildID), zap.String("channel", n.channelName), zap.Error(err))
		return
	}
	if !ok {
		metrics.NotificationsTotal.WithLabelValues("channel", "no_channel").Inc()
		n.log.Debug("no mod-log channel, skipping", zap.String("guild_id", guildID))
		return
	}
	if err := n.sink.SendNotice(ctx, channelID, BuildNotice(rec)); err != nil {
		metrics.NotificationsTotal.WithLabelValues("channel", "error").Inc()
		n.log.Warn("failed to send mod-log notice",
			zap.String("guild_id", guildID), zap.Int64("record_id", rec.ID), zap.Error(err))
		return
	}
	metrics.NotificationsTotal.WithLabelValues("channel", "sent").Inc()
}

func (n *Notifier) publish(ctx context.Context, guildID string, rec models.AuditRecord) {
	eventType := events.EventModerationLogged
	if rec.Action == models.ActionAutomod {
		eventType = events.EventAutomodTriggered
	}
	err := n.publisher.Publish(ctx, events.StreamModeration, events.Event{
		Type: eventType,
		Payload: map[string]any{
			"id":        rec.ID,
			"guild_id":  guildID,
			"action":    string(rec.Action),
			"subject":   rec.Subject,
			"reason":    rec.Reason,
			"timestamp": rec.Timestamp,
		},
	})
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues("events", "error").Inc()
		n.log.Warn("failed to publish moderation event", zap.Int64("record_id", rec.ID), zap.Error(err))
		return
	}
	metrics.NotificationsTotal.WithLabelValues("events", "sent").Inc()
}

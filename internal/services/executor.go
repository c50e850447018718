package services

import (
	"context"
	"fmt"
	"time"

	"github.com/modrelay/backend/internal/models"
)

// Platform is the outbound side of the chat gateway.
type Platform interface {
	KickMember(ctx context.Context, guildID, userID, reason string) error
	BanMember(ctx context.Context, guildID, userID, reason string) error
	TimeoutMember(ctx context.Context, guildID, userID string, until time.Time, reason string) error
	// PurgeMessages deletes up to limit recent messages and reports how many were removed.
	PurgeMessages(ctx context.Context, channelID string, limit int) (int, error)
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	// SendTransient posts text and removes it again after ttl.
	SendTransient(ctx context.Context, channelID, text string, ttl time.Duration) error
}

type Result struct {
	Deleted int
}

// Executor performs exactly one platform call per action kind.
// It is not transactional with the audit store.
type Executor struct {
	platform Platform
	now      func() time.Time
}

func NewExecutor(platform Platform) *Executor {
	return &Executor{platform: platform, now: time.Now}
}

func (e *Executor) Execute(ctx context.Context, req models.ActionRequest) (Result, error) {
	var (
		res Result
		err error
	)
	switch req.Kind {
	case models.ActionKick:
		err = e.platform.KickMember(ctx, req.GuildID, req.Target.ID, models.OrDefaultReason(req.Reason))
	case models.ActionBan:
		err = e.platform.BanMember(ctx, req.GuildID, req.Target.ID, models.OrDefaultReason(req.Reason))
	case models.ActionTimeout:
		until := e.now().Add(time.Duration(req.Minutes) * time.Minute)
		err = e.platform.TimeoutMember(ctx, req.GuildID, req.Target.ID, until, models.OrDefaultReason(req.Reason))
	case models.ActionClear:
		res.Deleted, err = e.platform.PurgeMessages(ctx, req.ChannelID, req.Count)
	case models.ActionAutomod:
		err = e.platform.DeleteMessage(ctx, req.ChannelID, req.MessageID)
	default:
		return res, fmt.Errorf("%w: unknown action %q", ErrInvalidRequest, req.Kind)
	}
	if err != nil {
		return Result{}, &PlatformError{Action: req.Kind, Err: err}
	}
	return res, nil
}

// Warn posts a short-lived notice in channelID, removed after WarningTTL.
func (e *Executor) Warn(ctx context.Context, channelID, text string) error {
	return e.platform.SendTransient(ctx, channelID, text, WarningTTL)
}

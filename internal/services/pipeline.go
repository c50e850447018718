package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/modrelay/backend/internal/metrics"
	"github.com/modrelay/backend/internal/models"
	"github.com/modrelay/backend/internal/policy"
	"go.uber.org/zap"
)

// Stage is a step of the per-request moderation state machine.
type Stage string

const (
	StageReceived    Stage = "received"
	StageAuthorizing Stage = "authorizing"
	StageExecuting   Stage = "executing"
	StagePersisting  Stage = "persisting"
	StageNotifying   Stage = "notifying"
	StageDone        Stage = "done"
	StageDenied      Stage = "denied"
	StageFailed      Stage = "failed"
	// StageSkipped ends a message that automod left alone.
	StageSkipped Stage = "skipped"
)

const (
	MaxClearCount   = 100
	WarningTTL      = 5 * time.Second
	notifyTimeout   = 10 * time.Second
	automodActorTag = "automod"
)

// AuditStore is the append-only moderation log.
type AuditStore interface {
	Append(ctx context.Context, rec models.AuditRecord) (int64, error)
	QueryRecent(ctx context.Context, limit int) ([]models.AuditRecord, error)
}

type Emitter interface {
	Emit(ctx context.Context, guildID string, rec models.AuditRecord)
}

// Outcome is what the caller reports back to the actor.
type Outcome struct {
	Stage     Stage
	Record    *models.AuditRecord
	Deleted   int
	Reply     string
	Ephemeral bool
}

// Pipeline runs Authorizing → Executing → Persisting → Notifying for each request.
// Stages of one request never overlap; different requests may run concurrently.
type Pipeline struct {
	policy   *policy.Evaluator
	executor *Executor
	store    AuditStore
	notifier Emitter
	log      *zap.Logger
	now      func() time.Time

	wg sync.WaitGroup
}

func NewPipeline(ev *policy.Evaluator, executor *Executor, store AuditStore, notifier Emitter, log *zap.Logger) *Pipeline {
	return &Pipeline{
		policy:   ev,
		executor: executor,
		store:    store,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// Handle processes a moderator-issued command.
func (p *Pipeline) Handle(ctx context.Context, req models.ActionRequest) (Outcome, error) {
	start := p.now()

	if err := validate(req); err != nil {
		metrics.ActionsTotal.WithLabelValues(string(req.Kind), metrics.OutcomeInvalid).Inc()
		return Outcome{Stage: StageReceived, Reply: "❌ " + err.Error(), Ephemeral: true}, err
	}

	if policy.NeedsHierarchyCheck(req.Kind) {
		if p.policy.AuthorizeHierarchical(req.Actor.Rank, req.Target.Rank) == policy.Deny {
			metrics.ActionsTotal.WithLabelValues(string(req.Kind), metrics.OutcomeDenied).Inc()
			p.log.Info("moderation denied by hierarchy",
				zap.String("action", string(req.Kind)),
				zap.String("actor", req.Actor.Subject()),
				zap.String("target", req.Target.Subject()),
				zap.Int("actor_rank", req.Actor.Rank),
				zap.Int("target_rank", req.Target.Rank),
			)
			return Outcome{
				Stage:     StageDenied,
				Reply:     fmt.Sprintf("❌ Cannot %s user with equal/higher role.", strings.ToLower(string(req.Kind))),
				Ephemeral: true,
			}, ErrDenied
		}
	}

	res, err := p.executor.Execute(ctx, req)
	if err != nil {
		metrics.ActionsTotal.WithLabelValues(string(req.Kind), metrics.OutcomeFailed).Inc()
		p.log.Warn("moderation action failed",
			zap.String("action", string(req.Kind)),
			zap.String("target", req.Target.Subject()),
			zap.Error(err),
		)
		return Outcome{Stage: StageFailed, Reply: fmt.Sprintf("Error: %v", err), Ephemeral: true}, err
	}

	rec := p.recordFor(req, res)
	out := Outcome{Deleted: res.Deleted, Reply: successReply(req, res), Ephemeral: req.Kind == models.ActionClear}
	return p.commit(ctx, req.GuildID, rec, out, start)
}

// HandleMessage offers an inbound chat message to automod. There is no
// authorization step: the trigger is the message itself.
func (p *Pipeline) HandleMessage(ctx context.Context, msg models.ChatMessage) (Outcome, error) {
	if msg.Bot {
		return Outcome{Stage: StageSkipped}, nil
	}
	verdict, term := p.policy.ClassifyAutomod(msg.Content)
	if verdict != policy.Trigger {
		return Outcome{Stage: StageSkipped}, nil
	}
	start := p.now()

	req := models.ActionRequest{
		Kind:      models.ActionAutomod,
		GuildID:   msg.GuildID,
		ChannelID: msg.ChannelID,
		MessageID: msg.ID,
		Actor:     models.Actor{Member: models.Member{Name: automodActorTag}, Automod: true},
		Target:    msg.Author,
	}
	if _, err := p.executor.Execute(ctx, req); err != nil {
		metrics.ActionsTotal.WithLabelValues(string(req.Kind), metrics.OutcomeFailed).Inc()
		p.log.Warn("automod delete failed",
			zap.String("channel_id", msg.ChannelID),
			zap.String("message_id", msg.ID),
			zap.Error(err),
		)
		return Outcome{Stage: StageFailed}, err
	}

	p.log.Info("automod triggered",
		zap.String("guild_id", msg.GuildID),
		zap.String("author", msg.Author.Subject()),
		zap.String("term", term),
	)

	mention := msg.Mention
	if mention == "" {
		mention = msg.Author.Name
	}
	warning := fmt.Sprintf("%s No bad words!", mention)
	if err := p.executor.Warn(ctx, msg.ChannelID, warning); err != nil {
		p.log.Warn("failed to send automod warning", zap.String("channel_id", msg.ChannelID), zap.Error(err))
	}

	rec := models.NewAuditRecord(models.ActionAutomod, msg.Author.Subject(), models.AutomodReason(msg.Content), p.now())
	return p.commit(ctx, msg.GuildID, rec, Outcome{Reply: warning}, start)
}

// Wait blocks until in-flight notifications have finished.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// commit runs Persisting and Notifying. The platform effect already happened,
// so a failed append is logged with the full record before being returned.
func (p *Pipeline) commit(ctx context.Context, guildID string, rec models.AuditRecord, out Outcome, start time.Time) (Outcome, error) {
	id, err := p.store.Append(ctx, rec)
	if err != nil {
		metrics.ActionsTotal.WithLabelValues(string(rec.Action), metrics.OutcomeUnrecorded).Inc()
		p.log.Error("audit append failed, action applied but unrecorded",
			zap.String("guild_id", guildID),
			zap.String("action", string(rec.Action)),
			zap.String("subject", rec.Subject),
			zap.String("reason", rec.Reason),
			zap.String("timestamp", rec.Timestamp),
			zap.Error(err),
		)
		out.Stage = StagePersisting
		out.Reply = fmt.Sprintf("⚠️ %s applied to %s but the audit log write failed.", rec.Action, rec.Subject)
		out.Ephemeral = true
		return out, &PersistenceError{Record: rec, Err: err}
	}
	rec.ID = id
	metrics.ActionDuration.WithLabelValues(string(rec.Action)).Observe(p.now().Sub(start).Seconds())

	p.notify(ctx, guildID, rec)

	metrics.ActionsTotal.WithLabelValues(string(rec.Action), metrics.OutcomeDone).Inc()
	out.Stage = StageDone
	out.Record = &rec
	return out, nil
}

func (p *Pipeline) notify(ctx context.Context, guildID string, rec models.AuditRecord) {
	if p.notifier == nil {
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				metrics.ActionsTotal.WithLabelValues(string(rec.Action), metrics.OutcomeNotifyDropped).Inc()
				p.log.Error("notifier panicked", zap.Any("panic", r), zap.Int64("record_id", rec.ID))
			}
		}()
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()
		p.notifier.Emit(nctx, guildID, rec)
	}()
}

func (p *Pipeline) recordFor(req models.ActionRequest, res Result) models.AuditRecord {
	switch req.Kind {
	case models.ActionTimeout:
		return models.NewAuditRecord(req.Kind, req.Target.Subject(), models.TimeoutReason(req.Minutes, req.Reason), p.now())
	case models.ActionClear:
		return models.NewAuditRecord(req.Kind, req.Actor.Subject(), models.ClearReason(res.Deleted), p.now())
	default:
		return models.NewAuditRecord(req.Kind, req.Target.Subject(), models.OrDefaultReason(req.Reason), p.now())
	}
}

func successReply(req models.ActionRequest, res Result) string {
	switch req.Kind {
	case models.ActionKick:
		return fmt.Sprintf("👢 Kicked %s", req.Target.Name)
	case models.ActionBan:
		return fmt.Sprintf("🔨 Banned %s", req.Target.Name)
	case models.ActionTimeout:
		return fmt.Sprintf("🤐 Muted %s for %dm", req.Target.Name, req.Minutes)
	case models.ActionClear:
		return fmt.Sprintf("🧹 Deleted %d messages.", res.Deleted)
	}
	return ""
}

func validate(req models.ActionRequest) error {
	switch req.Kind {
	case models.ActionKick, models.ActionBan:
		if req.Target.ID == "" {
			return fmt.Errorf("%w: target is required", ErrInvalidRequest)
		}
	case models.ActionTimeout:
		if req.Target.ID == "" {
			return fmt.Errorf("%w: target is required", ErrInvalidRequest)
		}
		if req.Minutes <= 0 {
			return fmt.Errorf("%w: minutes must be positive", ErrInvalidRequest)
		}
	case models.ActionClear:
		if req.Count < 1 || req.Count > MaxClearCount {
			return fmt.Errorf("%w: amount must be between 1 and %d", ErrInvalidRequest, MaxClearCount)
		}
	case models.ActionAutomod:
		return fmt.Errorf("%w: automod is not a command", ErrInvalidRequest)
	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidRequest, req.Kind)
	}
	return nil
}

// IsUserFacing reports whether err should be shown to the actor verbatim.
func IsUserFacing(err error) bool {
	var pe *PlatformError
	return errors.Is(err, ErrDenied) || errors.Is(err, ErrInvalidRequest) || errors.As(err, &pe)
}

package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/modrelay/backend/internal/models"
	"github.com/modrelay/backend/internal/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2026, 10, 16, 12, 30, 45, 0, time.UTC)

type pipelineFixture struct {
	pipeline *Pipeline
	platform *fakePlatform
	store    *memStore
	emitter  *recordingEmitter
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	platform := &fakePlatform{available: 1000}
	store := &memStore{}
	emitter := &recordingEmitter{}
	executor := NewExecutor(platform)
	executor.now = func() time.Time { return fixedNow }
	p := NewPipeline(policy.NewEvaluator(policy.DefaultConfig()), executor, store, emitter, zap.NewNop())
	p.now = func() time.Time { return fixedNow }
	return &pipelineFixture{pipeline: p, platform: platform, store: store, emitter: emitter}
}

func moderator(rank int) models.Actor {
	return models.Actor{Member: models.Member{ID: "100", Name: "mod", Rank: rank}}
}

func member(rank int) models.Member {
	return models.Member{ID: "200", Name: "target", Rank: rank}
}

func TestPipelineBanEndToEnd(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	out, err := f.pipeline.Handle(ctx, models.ActionRequest{
		Kind:    models.ActionBan,
		GuildID: "g1",
		Actor:   moderator(5),
		Target:  member(3),
		Reason:  "spam",
	})
	require.NoError(t, err)
	f.pipeline.Wait()

	assert.Equal(t, StageDone, out.Stage)
	assert.Equal(t, "🔨 Banned target", out.Reply)
	assert.False(t, out.Ephemeral)

	calls := f.platform.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, platformCall{Op: "ban", GuildID: "g1", TargetID: "200", Reason: "spam"}, calls[0])

	require.Equal(t, 1, f.store.Len())
	recent, err := f.store.QueryRecent(ctx, 50)
	require.NoError(t, err)
	assert.Equal(t, models.AuditRecord{
		ID:        1,
		Action:    models.ActionBan,
		Subject:   "target#200",
		Reason:    "spam",
		Timestamp: "2026-10-16 12:30:45",
	}, recent[0])
	assert.Equal(t, recent[0], *out.Record)

	view, err := NewDashboardService(f.store, fakeStatus{}).View(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, view.Records)
	assert.Equal(t, recent[0], view.Records[0])

	got := f.emitter.Emitted()
	require.Len(t, got, 1)
	assert.Equal(t, "g1", got[0].GuildID)
	assert.Equal(t, int64(1), got[0].Record.ID)
}

func TestPipelineKickDenied(t *testing.T) {
	f := newPipelineFixture(t)

	out, err := f.pipeline.Handle(context.Background(), models.ActionRequest{
		Kind:    models.ActionKick,
		GuildID: "g1",
		Actor:   moderator(2),
		Target:  member(4),
	})
	f.pipeline.Wait()

	require.ErrorIs(t, err, ErrDenied)
	assert.Equal(t, StageDenied, out.Stage)
	assert.Equal(t, "❌ Cannot kick user with equal/higher role.", out.Reply)
	assert.True(t, out.Ephemeral)
	assert.Empty(t, f.platform.Calls())
	assert.Zero(t, f.store.Len())
	assert.Empty(t, f.emitter.Emitted())
}

func TestPipelinePeerDenied(t *testing.T) {
	f := newPipelineFixture(t)

	out, err := f.pipeline.Handle(context.Background(), models.ActionRequest{
		Kind: models.ActionBan, Actor: moderator(4), Target: member(4),
	})
	require.ErrorIs(t, err, ErrDenied)
	assert.Equal(t, "❌ Cannot ban user with equal/higher role.", out.Reply)
	assert.Zero(t, f.store.Len())
}

func TestPipelineKickDefaultReason(t *testing.T) {
	f := newPipelineFixture(t)

	out, err := f.pipeline.Handle(context.Background(), models.ActionRequest{
		Kind: models.ActionKick, GuildID: "g1", Actor: moderator(9), Target: member(1),
	})
	require.NoError(t, err)
	assert.Equal(t, "👢 Kicked target", out.Reply)
	assert.Equal(t, "No reason", out.Record.Reason)
	assert.Equal(t, "No reason", f.platform.Calls()[0].Reason)
}

func TestPipelineTimeoutSkipsHierarchy(t *testing.T) {
	f := newPipelineFixture(t)

	out, err := f.pipeline.Handle(context.Background(), models.ActionRequest{
		Kind:    models.ActionTimeout,
		GuildID: "g1",
		Actor:   moderator(1),
		Target:  member(8),
		Minutes: 15,
		Reason:  "flood",
	})
	require.NoError(t, err)

	assert.Equal(t, "🤐 Muted target for 15m", out.Reply)
	assert.Equal(t, "15m - flood", out.Record.Reason)
	calls := f.platform.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, fixedNow.Add(15*time.Minute), calls[0].Until)
}

func TestPipelineClearRecordsActualCount(t *testing.T) {
	f := newPipelineFixture(t)
	f.platform.available = 3

	out, err := f.pipeline.Handle(context.Background(), models.ActionRequest{
		Kind:      models.ActionClear,
		GuildID:   "g1",
		ChannelID: "c1",
		Actor:     moderator(5),
		Count:     10,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, out.Deleted)
	assert.True(t, out.Ephemeral)
	assert.Equal(t, "🧹 Deleted 3 messages.", out.Reply)
	assert.Equal(t, "mod#100", out.Record.Subject)
	assert.Equal(t, "Deleted 3 messages", out.Record.Reason)
	assert.Equal(t, 10, f.platform.Calls()[0].Limit)
}

func TestPipelineInvalidRequests(t *testing.T) {
	tests := []struct {
		name string
		req  models.ActionRequest
	}{
		{"zero minutes", models.ActionRequest{Kind: models.ActionTimeout, Actor: moderator(5), Target: member(1)}},
		{"clear zero", models.ActionRequest{Kind: models.ActionClear, Actor: moderator(5)}},
		{"clear too many", models.ActionRequest{Kind: models.ActionClear, Actor: moderator(5), Count: MaxClearCount + 1}},
		{"kick without target", models.ActionRequest{Kind: models.ActionKick, Actor: moderator(5)}},
		{"automod as command", models.ActionRequest{Kind: models.ActionAutomod, Actor: moderator(5), Target: member(1)}},
		{"unknown", models.ActionRequest{Kind: "Warn", Actor: moderator(5), Target: member(1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPipelineFixture(t)
			out, err := f.pipeline.Handle(context.Background(), tt.req)
			require.ErrorIs(t, err, ErrInvalidRequest)
			assert.Equal(t, StageReceived, out.Stage)
			assert.True(t, IsUserFacing(err))
			assert.Empty(t, f.platform.Calls())
			assert.Zero(t, f.store.Len())
		})
	}
}

func TestPipelinePlatformFailureIsNotRecorded(t *testing.T) {
	f := newPipelineFixture(t)
	f.platform.err = errPlatform

	out, err := f.pipeline.Handle(context.Background(), models.ActionRequest{
		Kind: models.ActionBan, GuildID: "g1", Actor: moderator(5), Target: member(3),
	})
	f.pipeline.Wait()

	var pe *PlatformError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, models.ActionBan, pe.Action)
	assert.ErrorIs(t, err, errPlatform)
	assert.Equal(t, StageFailed, out.Stage)
	assert.True(t, strings.HasPrefix(out.Reply, "Error: "))
	assert.Zero(t, f.store.Len())
	assert.Empty(t, f.emitter.Emitted())
}

func TestPipelinePersistenceFailureSurfaces(t *testing.T) {
	f := newPipelineFixture(t)
	f.store.err = errors.New("disk full")

	out, err := f.pipeline.Handle(context.Background(), models.ActionRequest{
		Kind: models.ActionKick, GuildID: "g1", Actor: moderator(5), Target: member(3),
	})
	f.pipeline.Wait()

	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, models.ActionKick, pe.Record.Action)
	assert.Equal(t, "target#200", pe.Record.Subject)
	assert.False(t, IsUserFacing(err))
	assert.Equal(t, StagePersisting, out.Stage)
	assert.Len(t, f.platform.Calls(), 1, "platform action is not rolled back")
	assert.Empty(t, f.emitter.Emitted())

	// the pipeline stays usable for the next request
	f.store.mu.Lock()
	f.store.err = nil
	f.store.mu.Unlock()
	_, err = f.pipeline.Handle(context.Background(), models.ActionRequest{
		Kind: models.ActionKick, GuildID: "g1", Actor: moderator(5), Target: member(3),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.Len())
}

func TestPipelineNotifierPanicDoesNotAffectOutcome(t *testing.T) {
	f := newPipelineFixture(t)
	f.emitter.panic = true

	out, err := f.pipeline.Handle(context.Background(), models.ActionRequest{
		Kind: models.ActionKick, GuildID: "g1", Actor: moderator(5), Target: member(3),
	})
	f.pipeline.Wait()

	require.NoError(t, err)
	assert.Equal(t, StageDone, out.Stage)
	assert.Equal(t, 1, f.store.Len())
}

func TestPipelineAutomodTrigger(t *testing.T) {
	f := newPipelineFixture(t)

	out, err := f.pipeline.HandleMessage(context.Background(), models.ChatMessage{
		ID:        "m1",
		GuildID:   "g1",
		ChannelID: "c1",
		Author:    models.Member{ID: "300", Name: "bob"},
		Mention:   "<@300>",
		Content:   "this is badword1 content",
	})
	require.NoError(t, err)
	f.pipeline.Wait()

	assert.Equal(t, StageDone, out.Stage)
	calls := f.platform.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, platformCall{Op: "delete", ChannelID: "c1", TargetID: "m1"}, calls[0])
	assert.Equal(t, platformCall{Op: "send", ChannelID: "c1", Text: "<@300> No bad words!"}, calls[1])

	require.Equal(t, 1, f.store.Len())
	rec := *out.Record
	assert.Equal(t, models.ActionAutomod, rec.Action)
	assert.Equal(t, "bob#300", rec.Subject)
	assert.True(t, strings.HasPrefix(rec.Reason, "Said: this is badword1 con"))
	assert.Len(t, f.emitter.Emitted(), 1)
}

func TestPipelineAutomodIgnoresCleanAndBots(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	out, err := f.pipeline.HandleMessage(ctx, models.ChatMessage{ID: "m1", Content: "hello there"})
	require.NoError(t, err)
	assert.Equal(t, StageSkipped, out.Stage)

	out, err = f.pipeline.HandleMessage(ctx, models.ChatMessage{ID: "m2", Bot: true, Content: "scam scam"})
	require.NoError(t, err)
	assert.Equal(t, StageSkipped, out.Stage)

	assert.Empty(t, f.platform.Calls())
	assert.Zero(t, f.store.Len())
}

func TestPipelineAutomodDeleteFailure(t *testing.T) {
	f := newPipelineFixture(t)
	f.platform.err = errPlatform

	out, err := f.pipeline.HandleMessage(context.Background(), models.ChatMessage{
		ID: "m1", ChannelID: "c1", Author: models.Member{ID: "300", Name: "bob"}, Content: "idiot",
	})
	var pe *PlatformError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, StageFailed, out.Stage)
	assert.Zero(t, f.store.Len())
}

func TestPipelineConcurrentActionsGetDistinctIDs(t *testing.T) {
	f := newPipelineFixture(t)

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids []int64
	)
	for _, kind := range []models.Action{models.ActionKick, models.ActionBan} {
		wg.Add(1)
		go func(kind models.Action) {
			defer wg.Done()
			out, err := f.pipeline.Handle(context.Background(), models.ActionRequest{
				Kind: kind, GuildID: "g1", Actor: moderator(5), Target: member(1),
			})
			assert.NoError(t, err)
			mu.Lock()
			ids = append(ids, out.Record.ID)
			mu.Unlock()
		}(kind)
	}
	wg.Wait()
	f.pipeline.Wait()

	require.Len(t, ids, 2)
	assert.NotEqual(t, ids[0], ids[1])
	assert.ElementsMatch(t, []int64{1, 2}, ids)
	assert.Equal(t, 2, f.store.Len())
}

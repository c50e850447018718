package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/modrelay/backend/internal/events"
	"github.com/modrelay/backend/internal/models"
)

type platformCall struct {
	Op        string
	GuildID   string
	ChannelID string
	TargetID  string
	Reason    string
	Until     time.Time
	Limit     int
	Text      string
}

type fakePlatform struct {
	mu        sync.Mutex
	calls     []platformCall
	err       error
	available int
}

func (f *fakePlatform) record(c platformCall) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	return f.err
}

func (f *fakePlatform) Calls() []platformCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]platformCall(nil), f.calls...)
}

func (f *fakePlatform) KickMember(_ context.Context, guildID, userID, reason string) error {
	return f.record(platformCall{Op: "kick", GuildID: guildID, TargetID: userID, Reason: reason})
}

func (f *fakePlatform) BanMember(_ context.Context, guildID, userID, reason string) error {
	return f.record(platformCall{Op: "ban", GuildID: guildID, TargetID: userID, Reason: reason})
}

func (f *fakePlatform) TimeoutMember(_ context.Context, guildID, userID string, until time.Time, reason string) error {
	return f.record(platformCall{Op: "timeout", GuildID: guildID, TargetID: userID, Until: until, Reason: reason})
}

func (f *fakePlatform) PurgeMessages(_ context.Context, channelID string, limit int) (int, error) {
	if err := f.record(platformCall{Op: "purge", ChannelID: channelID, Limit: limit}); err != nil {
		return 0, err
	}
	if f.available < limit {
		return f.available, nil
	}
	return limit, nil
}

func (f *fakePlatform) DeleteMessage(_ context.Context, channelID, messageID string) error {
	return f.record(platformCall{Op: "delete", ChannelID: channelID, TargetID: messageID})
}

func (f *fakePlatform) SendTransient(_ context.Context, channelID, text string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, platformCall{Op: "send", ChannelID: channelID, Text: text})
	return nil
}

type memStore struct {
	mu      sync.Mutex
	records []models.AuditRecord
	nextID  int64
	err     error
}

func (s *memStore) Append(_ context.Context, rec models.AuditRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	s.nextID++
	rec.ID = s.nextID
	s.records = append(s.records, rec)
	return rec.ID, nil
}

func (s *memStore) QueryRecent(_ context.Context, limit int) ([]models.AuditRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]models.AuditRecord, 0, limit)
	for i := len(s.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.records[i])
	}
	return out, nil
}

func (s *memStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

type emitted struct {
	GuildID string
	Record  models.AuditRecord
}

type recordingEmitter struct {
	mu    sync.Mutex
	got   []emitted
	panic bool
}

func (e *recordingEmitter) Emit(_ context.Context, guildID string, rec models.AuditRecord) {
	if e.panic {
		panic("notifier exploded")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.got = append(e.got, emitted{GuildID: guildID, Record: rec})
}

func (e *recordingEmitter) Emitted() []emitted {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]emitted(nil), e.got...)
}

type fakeSink struct {
	mu       sync.Mutex
	channels map[string]string
	findErr  error
	sendErr  error
	sent     []Notice
	sentTo   []string
}

func (s *fakeSink) FindTextChannel(_ context.Context, guildID, name string) (string, bool, error) {
	if s.findErr != nil {
		return "", false, s.findErr
	}
	id, ok := s.channels[guildID+"/"+name]
	return id, ok, nil
}

func (s *fakeSink) SendNotice(_ context.Context, channelID string, n Notice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, n)
	s.sentTo = append(s.sentTo, channelID)
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, stream string, e events.Event) error {
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

type fakeStatus struct {
	guilds  int
	latency time.Duration
}

func (s fakeStatus) GuildCount() int        { return s.guilds }
func (s fakeStatus) Latency() time.Duration { return s.latency }

var errPlatform = errors.New("missing permissions")

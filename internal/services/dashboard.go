package services

import (
	"context"
	"time"

	"github.com/modrelay/backend/internal/models"
)

const DashboardRecentLimit = 50

// StatusProvider exposes live gateway state without handing out the session.
type StatusProvider interface {
	GuildCount() int
	Latency() time.Duration
}

type RecordReader interface {
	QueryRecent(ctx context.Context, limit int) ([]models.AuditRecord, error)
}

type ConnectionStatus struct {
	GuildCount int   `json:"guild_count"`
	LatencyMS  int64 `json:"latency_ms"`
}

type DashboardView struct {
	Status  ConnectionStatus     `json:"connection_status"`
	Records []models.AuditRecord `json:"recent_records"`
}

// DashboardService is the read path. It never writes and is safe for concurrent use.
type DashboardService struct {
	store  RecordReader
	status StatusProvider
}

func NewDashboardService(store RecordReader, status StatusProvider) *DashboardService {
	return &DashboardService{store: store, status: status}
}

func (s *DashboardService) Status() ConnectionStatus {
	if s.status == nil {
		return ConnectionStatus{}
	}
	latency := s.status.Latency()
	if latency < 0 {
		latency = 0
	}
	return ConnectionStatus{
		GuildCount: s.status.GuildCount(),
		LatencyMS:  latency.Round(time.Millisecond).Milliseconds(),
	}
}

// Recent returns up to limit records newest first; limit is clamped to 1..DashboardRecentLimit.
func (s *DashboardService) Recent(ctx context.Context, limit int) ([]models.AuditRecord, error) {
	if limit <= 0 || limit > DashboardRecentLimit {
		limit = DashboardRecentLimit
	}
	records, err := s.store.QueryRecent(ctx, limit)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []models.AuditRecord{}
	}
	return records, nil
}

func (s *DashboardService) View(ctx context.Context) (*DashboardView, error) {
	records, err := s.Recent(ctx, DashboardRecentLimit)
	if err != nil {
		return nil, err
	}
	return &DashboardView{Status: s.Status(), Records: records}, nil
}

package dto

import "github.com/modrelay/backend/internal/models"

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

type LogsResponse struct {
	Records []models.AuditRecord `json:"records"`
	Limit   int                  `json:"limit"`
}

type StatusResponse struct {
	GuildCount int   `json:"guild_count"`
	LatencyMS  int64 `json:"latency_ms"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

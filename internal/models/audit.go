package models

import (
	"fmt"
	"time"
)

// Moderation actions
type Action string

const (
	ActionKick    Action = "Kick"
	ActionBan     Action = "Ban"
	ActionTimeout Action = "Timeout"
	ActionClear   Action = "Clear"
	ActionAutomod Action = "Automod"
)

var AllActions = []Action{ActionKick, ActionBan, ActionTimeout, ActionClear, ActionAutomod}

func (a Action) Valid() bool {
	for _, v := range AllActions {
		if v == a {
			return true
		}
	}
	return false
}

// TimestampLayout is the textual format stored in mod_logs.timestamp.
const TimestampLayout = "2006-01-02 15:04:05"

const (
	DefaultReason       = "No reason"
	automodExcerptRunes = 20
)

// AuditRecord is one row of the append-only moderation log. ID is assigned by the store.
type AuditRecord struct {
	ID        int64  `json:"id"`
	Action    Action `json:"action"`
	Subject   string `json:"subject"`
	Reason    string `json:"reason"`
	Timestamp string `json:"timestamp"`
}

func NewAuditRecord(action Action, subject, reason string, now time.Time) AuditRecord {
	return AuditRecord{
		Action:    action,
		Subject:   subject,
		Reason:    reason,
		Timestamp: now.Format(TimestampLayout),
	}
}

func OrDefaultReason(reason string) string {
	if reason == "" {
		return DefaultReason
	}
	return reason
}

func TimeoutReason(minutes int, reason string) string {
	return fmt.Sprintf("%dm - %s", minutes, OrDefaultReason(reason))
}

func ClearReason(deleted int) string {
	return fmt.Sprintf("Deleted %d messages", deleted)
}

// AutomodReason keeps only the first 20 characters of the offending message.
func AutomodReason(content string) string {
	r := []rune(content)
	if len(r) > automodExcerptRunes {
		r = r[:automodExcerptRunes]
	}
	return "Said: " + string(r) + "..."
}

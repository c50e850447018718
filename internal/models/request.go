package models

import "fmt"

// Member is a snapshot of a guild member taken when the request arrives.
type Member struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Rank int    `json:"rank"`
}

// Subject renders the member as stored in audit records: display-name#id.
func (m Member) Subject() string {
	if m.ID == "" {
		return m.Name
	}
	return fmt.Sprintf("%s#%s", m.Name, m.ID)
}

// Actor is whoever triggered a request: a moderator or the automod subsystem.
type Actor struct {
	Member
	Automod bool `json:"automod"`
}

// ActionRequest is the per-invocation pipeline input. It is never persisted.
type ActionRequest struct {
	Kind      Action
	GuildID   string
	ChannelID string
	MessageID string
	Actor     Actor
	Target    Member
	Minutes   int
	Count     int
	Reason    string
}

// ChatMessage is an inbound non-command message offered to automod.
type ChatMessage struct {
	ID        string
	GuildID   string
	ChannelID string
	Author    Member
	Mention   string
	Bot       bool
	Content   string
}

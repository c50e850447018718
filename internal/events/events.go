package events

import "context"

// Streams
const (
	StreamModeration = "events:moderation"
)

// Event types
const (
	EventModerationLogged = "moderation_logged"
	EventAutomodTriggered = "automod_triggered"
)

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}

// NopPublisher drops events. Used when Redis is not configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, Event) error { return nil }

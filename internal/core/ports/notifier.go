package ports

import (
	"context"
	"time"
)

// SessionCreatedEvent is published to each requested device group's routing
// key when a session starts.
type SessionCreatedEvent struct {
	SessionID string    `json:"session_id"`
	ProjectID string    `json:"project_id"`
	RoomName  string    `json:"room_name"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Notifier publishes fire-and-forget events to the message broker.
type Notifier interface {
	PublishSessionCreated(ctx context.Context, routingKey string, event SessionCreatedEvent) error
}

package relations

import (
	"time"

	"linkup/backend/internal/models"
)

// EventType names a relationship event. The value doubles as the message subject suffix.
type EventType string

const (
	EventRequestSent       EventType = "connection.requested"
	EventRequestAccepted   EventType = "connection.accepted"
	EventRequestRejected   EventType = "connection.rejected"
	EventConnectionRemoved EventType = "connection.removed"
	EventFollowed          EventType = "follow.created"
	EventUnfollowed        EventType = "follow.removed"
	EventBlocked           EventType = "account.blocked"
	EventUnblocked         EventType = "account.unblocked"
)

// Event is published after a relationship change has been persisted.
type Event struct {
	ID           string            `json:"id"`
	Type         EventType         `json:"type"`
	Actor        models.AccountRef `json:"actor"`
	Subject      models.AccountRef `json:"subject"`
	ConnectionID uint              `json:"connection_id,omitempty"`
	OccurredAt   time.Time         `json:"occurred_at"`
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventNotificationCreated EventType = "notification.created"
	EventChainProposed       EventType = "chain.proposed"
	EventChainRepaired       EventType = "chain.repaired"
	EventChainCancelled      EventType = "chain.cancelled"
	EventChainActivated      EventType = "chain.activated"
	EventChainCompleted      EventType = "chain.completed"
)

// Event is an outbound message for the delivery collaborators. Handling it is
// never part of the graph computation that produced it.
type Event struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload"`
}

func NewEvent(eventType EventType, payload map[string]any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

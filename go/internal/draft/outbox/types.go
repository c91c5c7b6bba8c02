package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cdlfantasy/league/go/internal/draft/events"
	"github.com/google/uuid"
)

// OutboxEvent represents an outbox event for the application layer. Seq is
// assigned by the store and defines publish order.
type OutboxEvent struct {
	Seq       int64           `json:"seq"`
	ID        uuid.UUID       `json:"id"`
	DraftID   uuid.UUID       `json:"draft_id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	SentAt    *time.Time      `json:"sent_at,omitempty"`
}

// NewEvent marshals payload into a new unsent event.
func NewEvent(draftID uuid.UUID, eventType string, payload any, now time.Time) (OutboxEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return OutboxEvent{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return OutboxEvent{
		ID:        uuid.New(),
		DraftID:   draftID,
		EventType: eventType,
		Payload:   data,
		CreatedAt: now,
	}, nil
}

// Envelope converts the event to its wire form.
func (e OutboxEvent) Envelope() events.Envelope {
	return events.Envelope{
		EventID:   e.ID.String(),
		EventType: e.EventType,
		DraftID:   e.DraftID.String(),
		Sequence:  e.Seq,
		Timestamp: e.CreatedAt.UTC(),
		Payload:   e.Payload,
	}
}

// EventPublisher delivers one event to the push layer.
type EventPublisher interface {
	Publish(ctx context.Context, event OutboxEvent) error
}

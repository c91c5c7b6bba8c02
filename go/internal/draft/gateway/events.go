package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cdlfantasy/league/go/internal/draft/events"
)

// DraftEvent is the frame written to websocket clients
type DraftEvent struct {
	ID        string          `json:"id"`                 // Event UUID
	DraftID   string          `json:"draft_id"`           // Draft UUID
	Type      EventType       `json:"type"`               // Event type
	Sequence  int64           `json:"sequence,omitempty"` // Outbox sequence, 0 for snapshots and errors
	Timestamp time.Time       `json:"timestamp"`          // Event creation time
	Data      json.RawMessage `json:"data"`               // Event-specific payload
}

// EventType represents the type of draft event
type EventType string

const (
	EventTypeDraftStarted   EventType = events.TypeDraftStarted
	EventTypePickStarted    EventType = events.TypePickStarted
	EventTypePickMade       EventType = events.TypePickMade
	EventTypeDraftCompleted EventType = events.TypeDraftCompleted
	EventTypeAutoPickFailed EventType = events.TypeAutoPickFailed

	// Gateway-only frames.
	EventTypeDraftState EventType = "DraftState"
	EventTypeError      EventType = "Error"
)

// FromEnvelope converts a bus envelope to a client frame.
func FromEnvelope(env events.Envelope) (*DraftEvent, error) {
	switch EventType(env.EventType) {
	case EventTypeDraftStarted, EventTypePickStarted, EventTypePickMade,
		EventTypeDraftCompleted, EventTypeAutoPickFailed:
	default:
		return nil, fmt.Errorf("unknown event type: %s", env.EventType)
	}
	return &DraftEvent{
		ID:        env.EventID,
		DraftID:   env.DraftID,
		Type:      EventType(env.EventType),
		Sequence:  env.Sequence,
		Timestamp: env.Timestamp,
		Data:      env.Payload,
	}, nil
}

// ErrorPayload is sent to a single client whose command failed.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ParseEventPayload parses event data into the appropriate payload struct
func ParseEventPayload(event *DraftEvent) (any, error) {
	var target any
	switch event.Type {
	case EventTypeDraftStarted:
		target = &events.DraftStartedPayload{}
	case EventTypePickStarted:
		target = &events.PickStartedPayload{}
	case EventTypePickMade:
		target = &events.PickMadePayload{}
	case EventTypeDraftCompleted:
		target = &events.DraftCompletedPayload{}
	case EventTypeAutoPickFailed:
		target = &events.AutoPickFailedPayload{}
	case EventTypeDraftState:
		target = &DraftState{}
	case EventTypeError:
		target = &ErrorPayload{}
	default:
		return nil, fmt.Errorf("unknown event type: %s", event.Type)
	}
	if err := json.Unmarshal(event.Data, target); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s payload: %w", event.Type, err)
	}
	return target, nil
}

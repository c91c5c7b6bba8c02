package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cdlfantasy/league/go/internal/draft/events"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// OutboxRepository defines what the app layer needs from the repository
type OutboxRepository interface {
	InsertEvent(ctx context.Context, e OutboxEvent) error
}

// Waker is told when new events are waiting.
type Waker interface {
	Notify()
}

// App handles standalone outbox writes. Draft state changes write their
// events inside their own transaction instead.
type App struct {
	repo  OutboxRepository
	waker Waker
	clock clockwork.Clock
}

// NewApp creates a new outbox App
func NewApp(repo OutboxRepository, waker Waker, clock clockwork.Clock) *App {
	return &App{
		repo:  repo,
		waker: waker,
		clock: clock,
	}
}

// Enqueue inserts one event and wakes the relay.
func (a *App) Enqueue(ctx context.Context, draftID uuid.UUID, eventType string, payload any) error {
	if draftID == uuid.Nil {
		return fmt.Errorf("invalid %s event: draft_id is required", eventType)
	}
	e, err := NewEvent(draftID, eventType, payload, a.clock.Now())
	if err != nil {
		return err
	}
	if err := a.validateEventPayload(e.Payload); err != nil {
		return fmt.Errorf("invalid %s payload: %w", eventType, err)
	}

	if err := a.repo.InsertEvent(ctx, e); err != nil {
		return fmt.Errorf("failed to insert %s event: %w", eventType, err)
	}

	log.Info().
		Str("draft_id", draftID.String()).
		Str("event_type", eventType).
		Msg("outbox event inserted")

	if a.waker != nil {
		a.waker.Notify()
	}
	return nil
}

// InsertAutoPickFailedEvent records an operator alert for a turn the
// scheduler could not fill.
func (a *App) InsertAutoPickFailedEvent(ctx context.Context, draftID uuid.UUID, payload events.AutoPickFailedPayload) error {
	return a.Enqueue(ctx, draftID, events.TypeAutoPickFailed, payload)
}

func (a *App) validateEventPayload(payload []byte) error {
	if len(payload) == 0 {
		return fmt.Errorf("payload cannot be empty")
	}
	if !json.Valid(payload) {
		return fmt.Errorf("payload is not valid JSON")
	}
	return nil
}

package memstore

import (
	"context"
	"slices"
	"time"

	"github.com/cdlfantasy/league/go/internal/draft/outbox"
	"github.com/google/uuid"
)

var (
	_ outbox.OutboxRepository = (*Store)(nil)
	_ outbox.RelayRepository  = (*Store)(nil)
)

// InsertEvent appends one event with the next sequence number.
func (s *Store) InsertEvent(_ context.Context, e outbox.OutboxEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendEvents([]outbox.OutboxEvent{e})
	return nil
}

// FetchUnsent returns up to limit unsent events in seq order.
func (s *Store) FetchUnsent(_ context.Context, limit int) ([]outbox.OutboxEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var evts []outbox.OutboxEvent
	for _, e := range s.outbox {
		if e.SentAt != nil {
			continue
		}
		evts = append(evts, e)
		if len(evts) == limit {
			break
		}
	}
	return evts, nil
}

// MarkSent stamps sent_at on the given events.
func (s *Store) MarkSent(_ context.Context, ids []uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.outbox {
		if slices.Contains(ids, s.outbox[i].ID) {
			sent := at
			s.outbox[i].SentAt = &sent
		}
	}
	return nil
}

// OutboxEvents returns every event written for draftID in seq order.
func (s *Store) OutboxEvents(draftID uuid.UUID) []outbox.OutboxEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var evts []outbox.OutboxEvent
	for _, e := range s.outbox {
		if e.DraftID == draftID {
			evts = append(evts, e)
		}
	}
	return evts
}

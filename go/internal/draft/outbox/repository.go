package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cdlfantasy/league/go/internal/sqlutil"
	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

// Queries writes outbox rows on any connection, so callers can insert events
// inside the transaction that produced them.
type Queries struct {
	db sqlutil.DBTX
}

func NewQueries(db sqlutil.DBTX) *Queries {
	return &Queries{db: db}
}

// InsertEvent appends one event; its seq is assigned by the database.
func (q *Queries) InsertEvent(ctx context.Context, e OutboxEvent) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO draft_outbox (id, draft_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		e.ID, e.DraftID, e.EventType,
		pqtype.NullRawMessage{RawMessage: e.Payload, Valid: len(e.Payload) > 0},
		e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert %s outbox event: %w", e.EventType, err)
	}
	return nil
}

type Repository struct {
	db *sql.DB
	*Queries
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, Queries: NewQueries(db)}
}

// FetchUnsent returns up to limit unsent events in seq order.
func (r *Repository) FetchUnsent(ctx context.Context, limit int) ([]OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT seq, id, draft_id, event_type, payload, created_at
		FROM draft_outbox
		WHERE sent_at IS NULL
		ORDER BY seq
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unsent outbox events: %w", err)
	}
	defer rows.Close()

	var evts []OutboxEvent
	for rows.Next() {
		var (
			e       OutboxEvent
			payload pqtype.NullRawMessage
		)
		if err := rows.Scan(&e.Seq, &e.ID, &e.DraftID, &e.EventType, &payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		if payload.Valid {
			e.Payload = payload.RawMessage
		}
		evts = append(evts, e)
	}
	return evts, rows.Err()
}

// MarkSent stamps sent_at on the given events.
func (r *Repository) MarkSent(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE draft_outbox SET sent_at = $2 WHERE id = ANY($1::uuid[])`, sqlutil.UUIDArray(ids), at)
	if err != nil {
		return fmt.Errorf("failed to mark outbox events as sent: %w", err)
	}
	return nil
}

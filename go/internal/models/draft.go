package models

import (
	"time"

	"github.com/google/uuid"
)

// DraftStatus defines the status of a draft.
type DraftStatus string

const (
	DraftStatusNotStarted DraftStatus = "NOT_STARTED"
	DraftStatusInProgress DraftStatus = "IN_PROGRESS"
	DraftStatusCompleted  DraftStatus = "COMPLETED"
)

// Draft is the live snake draft session for a league. CurrentPick is 1-based
// and is zero until the draft starts.
type Draft struct {
	ID             uuid.UUID   `json:"id"`
	LeagueID       uuid.UUID   `json:"league_id"`
	Status         DraftStatus `json:"status"`
	DraftOrder     []uuid.UUID `json:"draft_order"`
	SecondsPerPick int         `json:"seconds_per_pick"`
	CurrentPick    int         `json:"current_pick"`
	CurrentRound   int         `json:"current_round"`
	StartedAt      *time.Time  `json:"started_at,omitempty"`
	CompletedAt    *time.Time  `json:"completed_at,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// PickDuration returns the turn length as a duration.
func (d *Draft) PickDuration() time.Duration {
	return time.Duration(d.SecondsPerPick) * time.Second
}

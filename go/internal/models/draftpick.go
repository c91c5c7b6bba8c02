package models

import (
	"time"

	"github.com/google/uuid"
)

// DraftPick is an append-only record of a completed pick.
type DraftPick struct {
	ID         uuid.UUID `json:"id"`
	DraftID    uuid.UUID `json:"draft_id"`
	TeamID     uuid.UUID `json:"team_id"`
	PlayerID   uuid.UUID `json:"player_id"`
	PickNumber int       `json:"pick_number"`
	Round      int       `json:"round"`
	IsAutoPick bool      `json:"is_auto_pick"`
	PickedAt   time.Time `json:"picked_at"`
}

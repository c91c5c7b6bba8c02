package models

import (
	"time"

	"github.com/google/uuid"
)

// Player is a professional CDL player available to draft.
type Player struct {
	ID                   uuid.UUID `json:"id"`
	GamerTag             string    `json:"gamer_tag"`
	FullName             string    `json:"full_name"`
	TeamName             string    `json:"team_name"`
	Role                 string    `json:"role"`
	AverageDraftPosition *float64  `json:"average_draft_position,omitempty"`
	IsActive             bool      `json:"is_active"`
	CreatedAt            time.Time `json:"created_at"`
}

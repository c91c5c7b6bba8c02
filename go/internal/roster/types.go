package roster

import (
	"errors"

	"github.com/google/uuid"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrLineupLocked      = errors.New("lineup is locked for this scoring period")
	ErrStarterCount      = errors.New("wrong number of starters")
	ErrInvalidRosterSlot = errors.New("roster entry does not belong to this team")
	ErrDuplicateSlot     = errors.New("roster entry listed more than once")
)

// SlotRequest places a roster entry in the lineup.
type SlotRequest struct {
	RosterEntryID uuid.UUID `json:"roster_entry_id"`
	IsStarter     bool      `json:"is_starter"`
}

// SetLineupRequest represents a lineup submission for one scoring period
type SetLineupRequest struct {
	FantasyTeamID   uuid.UUID     `json:"fantasy_team_id"`
	ScoringPeriodID uuid.UUID     `json:"scoring_period_id"`
	Slots           []SlotRequest `json:"slots"`
}

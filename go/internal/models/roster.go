package models

import (
	"time"

	"github.com/google/uuid"
)

// RosterEntry records ownership of a player by a fantasy team.
type RosterEntry struct {
	ID              uuid.UUID       `json:"id"`
	FantasyTeamID   uuid.UUID       `json:"fantasy_team_id"`
	PlayerID        uuid.UUID       `json:"player_id"`
	AcquiredAt      time.Time       `json:"acquired_at"`
	AcquisitionType AcquisitionType `json:"acquisition_type"`
}

// AcquisitionType represents how a player was acquired
type AcquisitionType string

const (
	AcquisitionTypeDraft     AcquisitionType = "DRAFT"
	AcquisitionTypeFreeAgent AcquisitionType = "FREE_AGENT"
)

// LineupPosition is where a rostered player sits for a scoring period.
type LineupPosition string

const (
	LineupPositionStarter LineupPosition = "STARTER"
	LineupPositionBench   LineupPosition = "BENCH"
)

// LineupSlot places one roster entry in a lineup.
type LineupSlot struct {
	RosterEntryID uuid.UUID      `json:"roster_entry_id"`
	PlayerID      uuid.UUID      `json:"player_id"`
	Position      LineupPosition `json:"position"`
}

// IsStarter reports whether the slot counts toward the team score.
func (s LineupSlot) IsStarter() bool {
	return s.Position == LineupPositionStarter
}

// Lineup is a team's starter/bench split for one scoring period.
type Lineup struct {
	ID              uuid.UUID    `json:"id"`
	FantasyTeamID   uuid.UUID    `json:"fantasy_team_id"`
	ScoringPeriodID uuid.UUID    `json:"scoring_period_id"`
	Slots           []LineupSlot `json:"slots"`
	IsLocked        bool         `json:"is_locked"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// StarterIDs returns the player ids of every starter slot.
func (l *Lineup) StarterIDs() []uuid.UUID {
	var ids []uuid.UUID
	for _, s := range l.Slots {
		if s.IsStarter() {
			ids = append(ids, s.PlayerID)
		}
	}
	return ids
}

// BenchIDs returns the player ids of every bench slot.
func (l *Lineup) BenchIDs() []uuid.UUID {
	var ids []uuid.UUID
	for _, s := range l.Slots {
		if !s.IsStarter() {
			ids = append(ids, s.PlayerID)
		}
	}
	return ids
}

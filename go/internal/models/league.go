package models

import (
	"time"

	"github.com/google/uuid"
)

type LeagueStatus string

const (
	LeagueStatusPreDraft  LeagueStatus = "PRE_DRAFT"
	LeagueStatusDrafting  LeagueStatus = "DRAFTING"
	LeagueStatusInSeason  LeagueStatus = "IN_SEASON"
	LeagueStatusCompleted LeagueStatus = "COMPLETED"
)

// League represents a fantasy league
type League struct {
	ID           uuid.UUID    `json:"id"`
	Name         string       `json:"name"`
	Status       LeagueStatus `json:"status"`
	RosterSize   int          `json:"roster_size"`
	StarterCount int          `json:"starter_count"`
	ScoringRules ScoringRules `json:"scoring_rules"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// ScoringPeriod is a window of matches that count toward one matchup week.
type ScoringPeriod struct {
	ID          uuid.UUID `json:"id"`
	LeagueID    uuid.UUID `json:"league_id"`
	Name        string    `json:"name"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	LockAt      time.Time `json:"lock_at"`
	IsCompleted bool      `json:"is_completed"`
}

// Contains reports whether t falls in [StartsAt, EndsAt).
func (p *ScoringPeriod) Contains(t time.Time) bool {
	return !t.Before(p.StartsAt) && t.Before(p.EndsAt)
}

// Matchup pairs two fantasy teams for one scoring period.
type Matchup struct {
	ID              uuid.UUID  `json:"id"`
	ScoringPeriodID uuid.UUID  `json:"scoring_period_id"`
	Team1ID         uuid.UUID  `json:"team1_id"`
	Team2ID         uuid.UUID  `json:"team2_id"`
	Team1Score      float64    `json:"team1_score"`
	Team2Score      float64    `json:"team2_score"`
	WinnerID        *uuid.UUID `json:"winner_id,omitempty"`
	IsCompleted     bool       `json:"is_completed"`
}

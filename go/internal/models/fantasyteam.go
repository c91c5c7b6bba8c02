package models

import (
	"github.com/google/uuid"
	"time"
)

type FantasyTeam struct {
	ID          uuid.UUID `json:"id"`
	LeagueID    uuid.UUID `json:"league_id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	Name        string    `json:"name"`
	Wins        int       `json:"wins"`
	Losses      int       `json:"losses"`
	Ties        int       `json:"ties"`
	TotalPoints float64   `json:"total_points"`
	CreatedAt   time.Time `json:"created_at"`
}

// TeamTotal is a team's points for one scoring period.
type TeamTotal struct {
	FantasyTeamID   uuid.UUID `json:"fantasy_team_id"`
	ScoringPeriodID uuid.UUID `json:"scoring_period_id"`
	StarterPoints   float64   `json:"starter_points"`
	BenchPoints     float64   `json:"bench_points"`
}

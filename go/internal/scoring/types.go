package scoring

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/cdlfantasy/league/go/internal/models"
)

// ErrValidation wraps bad input to the scoring operations.
var ErrValidation = errors.New("validation failed")

// ScoredLine is a stored fantasy points row joined with its match time.
type ScoredLine struct {
	PlayerID         uuid.UUID `json:"player_id"`
	MatchID          uuid.UUID `json:"match_id"`
	MatchScheduledAt time.Time `json:"match_scheduled_at"`
	Points           float64   `json:"points"`
}

// MatchupResult is the outcome applied to a matchup and both teams' records.
type MatchupResult struct {
	MatchupID  uuid.UUID  `json:"matchup_id"`
	Team1ID    uuid.UUID  `json:"team1_id"`
	Team2ID    uuid.UUID  `json:"team2_id"`
	Team1Score float64    `json:"team1_score"`
	Team2Score float64    `json:"team2_score"`
	WinnerID   *uuid.UUID `json:"winner_id,omitempty"`
}

// IsTie reports whether neither team won.
func (r MatchupResult) IsTie() bool {
	return r.WinnerID == nil
}

// RescoreSummary reports how much work a league rescore did.
type RescoreSummary struct {
	MatchesScored  int `json:"matches_scored"`
	LinesScored    int `json:"lines_scored"`
	PeriodsUpdated int `json:"periods_updated"`
}

// TotalsByPlayer sums points per player for matches inside period.
func TotalsByPlayer(lines []ScoredLine, period models.ScoringPeriod) map[uuid.UUID]float64 {
	totals := make(map[uuid.UUID]float64)
	for _, l := range lines {
		if !period.Contains(l.MatchScheduledAt) {
			continue
		}
		totals[l.PlayerID] += l.Points
	}
	return totals
}

// AggregateLineup splits player totals into starter and bench points.
// A nil lineup scores zero.
func AggregateLineup(lineup *models.Lineup, byPlayer map[uuid.UUID]float64) (starter, bench float64) {
	if lineup == nil {
		return 0, 0
	}
	for _, slot := range lineup.Slots {
		if slot.IsStarter() {
			starter += byPlayer[slot.PlayerID]
		} else {
			bench += byPlayer[slot.PlayerID]
		}
	}
	return starter, bench
}

// DecideMatchup compares starter points; equal scores are a tie.
func DecideMatchup(m models.Matchup, team1Score, team2Score float64) MatchupResult {
	res := MatchupResult{
		MatchupID:  m.ID,
		Team1ID:    m.Team1ID,
		Team2ID:    m.Team2ID,
		Team1Score: team1Score,
		Team2Score: team2Score,
	}
	switch {
	case team1Score > team2Score:
		id := m.Team1ID
		res.WinnerID = &id
	case team2Score > team1Score:
		id := m.Team2ID
		res.WinnerID = &id
	}
	return res
}

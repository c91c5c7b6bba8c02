package scoring

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/cdlfantasy/league/go/internal/models"
)

// StandingsEntry is one team's row in the league table.
type StandingsEntry struct {
	Rank          int       `json:"rank"`
	TeamID        uuid.UUID `json:"team_id"`
	Name          string    `json:"name"`
	Wins          int       `json:"wins"`
	Losses        int       `json:"losses"`
	Ties          int       `json:"ties"`
	TotalPoints   float64   `json:"total_points"`
	WinPercentage float64   `json:"win_percentage"`
}

// PeriodRanking is a team's placing by starter points within one period.
type PeriodRanking struct {
	Rank          int       `json:"rank"`
	TeamID        uuid.UUID `json:"team_id"`
	Name          string    `json:"name"`
	StarterPoints float64   `json:"starter_points"`
	BenchPoints   float64   `json:"bench_points"`
}

// PeriodStandings is the table and matchups for one scoring period.
type PeriodStandings struct {
	Period   models.ScoringPeriod `json:"period"`
	Rankings []PeriodRanking      `json:"rankings"`
	Matchups []models.Matchup     `json:"matchups"`
}

// RankTeams orders teams by wins, then total points, then name.
func RankTeams(teams []models.FantasyTeam) []StandingsEntry {
	entries := make([]StandingsEntry, 0, len(teams))
	for _, t := range teams {
		e := StandingsEntry{
			TeamID:      t.ID,
			Name:        t.Name,
			Wins:        t.Wins,
			Losses:      t.Losses,
			Ties:        t.Ties,
			TotalPoints: t.TotalPoints,
		}
		if played := t.Wins + t.Losses + t.Ties; played > 0 {
			e.WinPercentage = float64(t.Wins) / float64(played)
		}
		entries = append(entries, e)
	}

	slices.SortStableFunc(entries, func(a, b StandingsEntry) int {
		if c := cmp.Compare(b.Wins, a.Wins); c != 0 {
			return c
		}
		if c := cmp.Compare(b.TotalPoints, a.TotalPoints); c != 0 {
			return c
		}
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// GetStandings returns the league table.
func (a *App) GetStandings(ctx context.Context, leagueID uuid.UUID) ([]StandingsEntry, error) {
	if leagueID == uuid.Nil {
		return nil, fmt.Errorf("league_id is required: %w", ErrValidation)
	}
	if _, err := a.repo.GetLeague(ctx, leagueID); err != nil {
		return nil, fmt.Errorf("failed to get league: %w", err)
	}
	teams, err := a.repo.ListFantasyTeams(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list fantasy teams: %w", err)
	}
	return RankTeams(teams), nil
}

// GetPeriodStandings ranks the league's teams by their stored starter
// points for a period. Teams without a stored total are left out.
func (a *App) GetPeriodStandings(ctx context.Context, leagueID, periodID uuid.UUID) (*PeriodStandings, error) {
	period, err := a.leaguePeriod(ctx, leagueID, periodID)
	if err != nil {
		return nil, err
	}
	teams, err := a.repo.ListFantasyTeams(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list fantasy teams: %w", err)
	}

	rankings := make([]PeriodRanking, 0, len(teams))
	for _, t := range teams {
		total, err := a.repo.GetTeamTotal(ctx, t.ID, periodID)
		if errors.Is(err, models.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get team total: %w", err)
		}
		rankings = append(rankings, PeriodRanking{
			TeamID:        t.ID,
			Name:          t.Name,
			StarterPoints: total.StarterPoints,
			BenchPoints:   total.BenchPoints,
		})
	}
	slices.SortStableFunc(rankings, func(a, b PeriodRanking) int {
		if c := cmp.Compare(b.StarterPoints, a.StarterPoints); c != 0 {
			return c
		}
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	for i := range rankings {
		rankings[i].Rank = i + 1
	}

	matchups, err := a.repo.ListMatchups(ctx, periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matchups: %w", err)
	}
	return &PeriodStandings{Period: *period, Rankings: rankings, Matchups: matchups}, nil
}

// ListMatchups returns a league's matchups in period order. A non-nil
// periodID narrows the list to that period.
func (a *App) ListMatchups(ctx context.Context, leagueID, periodID uuid.UUID) ([]models.Matchup, error) {
	if periodID != uuid.Nil {
		if _, err := a.leaguePeriod(ctx, leagueID, periodID); err != nil {
			return nil, err
		}
		return a.repo.ListMatchups(ctx, periodID)
	}

	if leagueID == uuid.Nil {
		return nil, fmt.Errorf("league_id is required: %w", ErrValidation)
	}
	periods, err := a.repo.ListScoringPeriods(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list scoring periods: %w", err)
	}
	matchups := []models.Matchup{}
	for _, p := range periods {
		ms, err := a.repo.ListMatchups(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list matchups: %w", err)
		}
		matchups = append(matchups, ms...)
	}
	return matchups, nil
}

// GetMatchup returns a single matchup.
func (a *App) GetMatchup(ctx context.Context, matchupID uuid.UUID) (*models.Matchup, error) {
	if matchupID == uuid.Nil {
		return nil, fmt.Errorf("matchup_id is required: %w", ErrValidation)
	}
	return a.repo.GetMatchup(ctx, matchupID)
}

func (a *App) leaguePeriod(ctx context.Context, leagueID, periodID uuid.UUID) (*models.ScoringPeriod, error) {
	if leagueID == uuid.Nil || periodID == uuid.Nil {
		return nil, fmt.Errorf("league_id and scoring_period_id are required: %w", ErrValidation)
	}
	period, err := a.repo.GetScoringPeriod(ctx, periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to get scoring period: %w", err)
	}
	if period.LeagueID != leagueID {
		return nil, fmt.Errorf("period %s does not belong to league %s: %w", periodID, leagueID, ErrValidation)
	}
	return period, nil
}

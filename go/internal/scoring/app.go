package scoring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/cdlfantasy/league/go/internal/models"
)

// ScoringRepository defines what the scoring app needs from storage
type ScoringRepository interface {
	GetLeague(ctx context.Context, leagueID uuid.UUID) (*models.League, error)
	UpdateScoringRules(ctx context.Context, leagueID uuid.UUID, rules models.ScoringRules) error
	ListFantasyTeams(ctx context.Context, leagueID uuid.UUID) ([]models.FantasyTeam, error)

	ListStatLinesForMatch(ctx context.Context, matchID uuid.UUID) ([]models.StatLine, error)
	UpsertFantasyPoints(ctx context.Context, fp models.FantasyPoints) error
	ListScoredLines(ctx context.Context, leagueID uuid.UUID, playerIDs []uuid.UUID) ([]ScoredLine, error)

	GetScoringPeriod(ctx context.Context, periodID uuid.UUID) (*models.ScoringPeriod, error)
	ListScoringPeriods(ctx context.Context, leagueID uuid.UUID) ([]models.ScoringPeriod, error)
	ListCompletedMatches(ctx context.Context, from, to time.Time) ([]models.Match, error)

	GetLineup(ctx context.Context, teamID, periodID uuid.UUID) (*models.Lineup, error)
	UpsertTeamTotal(ctx context.Context, total models.TeamTotal) error
	GetTeamTotal(ctx context.Context, teamID, periodID uuid.UUID) (*models.TeamTotal, error)

	ListOpenMatchups(ctx context.Context, periodID uuid.UUID) ([]models.Matchup, error)
	ListMatchups(ctx context.Context, periodID uuid.UUID) ([]models.Matchup, error)
	GetMatchup(ctx context.Context, matchupID uuid.UUID) (*models.Matchup, error)
	ApplyMatchupResult(ctx context.Context, res MatchupResult) error
}

// App handles fantasy scoring
type App struct {
	repo ScoringRepository
}

// NewApp creates a new scoring App
func NewApp(repo ScoringRepository) *App {
	return &App{repo: repo}
}

// ScoreMatch computes and stores fantasy points for every stat line of a
// match under the league's rules. Re-running it overwrites earlier values.
func (a *App) ScoreMatch(ctx context.Context, matchID, leagueID uuid.UUID) (int, error) {
	if matchID == uuid.Nil {
		return 0, fmt.Errorf("%w: %w", ErrValidation, errors.New("match_id is required"))
	}
	league, err := a.repo.GetLeague(ctx, leagueID)
	if err != nil {
		return 0, fmt.Errorf("failed to get league: %w", err)
	}

	lines, err := a.repo.ListStatLinesForMatch(ctx, matchID)
	if err != nil {
		return 0, fmt.Errorf("failed to list stat lines: %w", err)
	}

	for _, line := range lines {
		breakdown := ComputePoints(line, league.ScoringRules)
		if err := a.repo.UpsertFantasyPoints(ctx, models.FantasyPoints{
			ID:         uuid.New(),
			LeagueID:   leagueID,
			StatLineID: line.ID,
			PlayerID:   line.PlayerID,
			MatchID:    line.MatchID,
			Points:     breakdown.Total,
			Breakdown:  breakdown,
		}); err != nil {
			return 0, fmt.Errorf("failed to store points for stat line %s: %w", line.ID, err)
		}
	}

	log.Debug().
		Str("match_id", matchID.String()).
		Str("league_id", leagueID.String()).
		Int("lines", len(lines)).
		Msg("scored match")
	return len(lines), nil
}

// UpdateTeamTotals recomputes starter and bench points for every team in the
// league for one scoring period. Teams without a locked lineup score zero.
func (a *App) UpdateTeamTotals(ctx context.Context, leagueID, periodID uuid.UUID) ([]models.TeamTotal, error) {
	period, err := a.repo.GetScoringPeriod(ctx, periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to get scoring period: %w", err)
	}
	if period.LeagueID != leagueID {
		return nil, fmt.Errorf("%w: %w", ErrValidation, errors.New("scoring period belongs to another league"))
	}

	teams, err := a.repo.ListFantasyTeams(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list fantasy teams: %w", err)
	}

	totals := make([]models.TeamTotal, 0, len(teams))
	for _, team := range teams {
		total, err := a.teamTotal(ctx, leagueID, team.ID, period)
		if err != nil {
			return nil, err
		}
		if err := a.repo.UpsertTeamTotal(ctx, total); err != nil {
			return nil, fmt.Errorf("failed to store team total: %w", err)
		}
		totals = append(totals, total)
	}
	return totals, nil
}

func (a *App) teamTotal(ctx context.Context, leagueID, teamID uuid.UUID, period *models.ScoringPeriod) (models.TeamTotal, error) {
	total := models.TeamTotal{FantasyTeamID: teamID, ScoringPeriodID: period.ID}

	lineup, err := a.repo.GetLineup(ctx, teamID, period.ID)
	if errors.Is(err, models.ErrNotFound) {
		return total, nil
	}
	if err != nil {
		return total, fmt.Errorf("failed to get lineup: %w", err)
	}
	// Only a locked lineup counts; until then it can still change.
	if !lineup.IsLocked {
		return total, nil
	}

	playerIDs := append(lineup.StarterIDs(), lineup.BenchIDs()...)
	lines, err := a.repo.ListScoredLines(ctx, leagueID, playerIDs)
	if err != nil {
		return total, fmt.Errorf("failed to list scored lines: %w", err)
	}

	total.StarterPoints, total.BenchPoints = AggregateLineup(lineup, TotalsByPlayer(lines, *period))
	return total, nil
}

// ResolveMatchups settles every open matchup of a period by starter points
// and updates both teams' records.
func (a *App) ResolveMatchups(ctx context.Context, periodID uuid.UUID) ([]MatchupResult, error) {
	matchups, err := a.repo.ListOpenMatchups(ctx, periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matchups: %w", err)
	}

	results := make([]MatchupResult, 0, len(matchups))
	for _, m := range matchups {
		s1, err := a.starterPoints(ctx, m.Team1ID, periodID)
		if err != nil {
			return nil, err
		}
		s2, err := a.starterPoints(ctx, m.Team2ID, periodID)
		if err != nil {
			return nil, err
		}

		res := DecideMatchup(m, s1, s2)
		if err := a.repo.ApplyMatchupResult(ctx, res); err != nil {
			return nil, fmt.Errorf("failed to apply matchup result: %w", err)
		}
		results = append(results, res)
	}

	log.Info().
		Str("scoring_period_id", periodID.String()).
		Int("matchups", len(results)).
		Msg("resolved matchups")
	return results, nil
}

func (a *App) starterPoints(ctx context.Context, teamID, periodID uuid.UUID) (float64, error) {
	t, err := a.repo.GetTeamTotal(ctx, teamID, periodID)
	if errors.Is(err, models.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get team total: %w", err)
	}
	return t.StarterPoints, nil
}

// RescoreLeague recomputes every completed match in the league's periods and
// then every team total, using the league's current rules.
func (a *App) RescoreLeague(ctx context.Context, leagueID uuid.UUID) (RescoreSummary, error) {
	var summary RescoreSummary

	periods, err := a.repo.ListScoringPeriods(ctx, leagueID)
	if err != nil {
		return summary, fmt.Errorf("failed to list scoring periods: %w", err)
	}

	seen := make(map[uuid.UUID]bool)
	for _, p := range periods {
		matches, err := a.repo.ListCompletedMatches(ctx, p.StartsAt, p.EndsAt)
		if err != nil {
			return summary, fmt.Errorf("failed to list matches: %w", err)
		}
		for _, m := range matches {
			if seen[m.ID] {
				continue
			}
			seen[m.ID] = true
			n, err := a.ScoreMatch(ctx, m.ID, leagueID)
			if err != nil {
				return summary, err
			}
			summary.MatchesScored++
			summary.LinesScored += n
		}
	}

	for _, p := range periods {
		if _, err := a.UpdateTeamTotals(ctx, leagueID, p.ID); err != nil {
			return summary, err
		}
		summary.PeriodsUpdated++
	}

	log.Info().
		Str("league_id", leagueID.String()).
		Int("matches", summary.MatchesScored).
		Int("periods", summary.PeriodsUpdated).
		Msg("rescored league")
	return summary, nil
}

// UpdateScoringRules replaces the league's weights and rescores it.
func (a *App) UpdateScoringRules(ctx context.Context, leagueID uuid.UUID, rules models.ScoringRules) (RescoreSummary, error) {
	if err := validateRules(rules); err != nil {
		return RescoreSummary{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if err := a.repo.UpdateScoringRules(ctx, leagueID, rules); err != nil {
		return RescoreSummary{}, fmt.Errorf("failed to update scoring rules: %w", err)
	}
	return a.RescoreLeague(ctx, leagueID)
}

// GetTeamTotal returns the stored totals for a team in a period.
func (a *App) GetTeamTotal(ctx context.Context, teamID, periodID uuid.UUID) (*models.TeamTotal, error) {
	return a.repo.GetTeamTotal(ctx, teamID, periodID)
}

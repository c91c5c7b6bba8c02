package roster

import (
	"context"
	"errors"
	"fmt"

	"github.com/cdlfantasy/league/go/internal/models"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// RosterRepository defines what the app layer needs from the repository
type RosterRepository interface {
	ListRoster(ctx context.Context, fantasyTeamID uuid.UUID) ([]models.RosterEntry, error)
	GetLineup(ctx context.Context, fantasyTeamID, periodID uuid.UUID) (*models.Lineup, error)
	SaveLineup(ctx context.Context, lineup models.Lineup) (*models.Lineup, error)
	LockLineups(ctx context.Context, periodID uuid.UUID) (int, error)
}

// LeagueReader defines the league lookups lineup validation needs
type LeagueReader interface {
	GetLeague(ctx context.Context, id uuid.UUID) (*models.League, error)
	GetFantasyTeam(ctx context.Context, id uuid.UUID) (*models.FantasyTeam, error)
	GetScoringPeriod(ctx context.Context, id uuid.UUID) (*models.ScoringPeriod, error)
}

// App handles roster and lineup business logic
type App struct {
	repo    RosterRepository
	leagues LeagueReader
	clock   clockwork.Clock
}

// NewApp creates a new roster App
func NewApp(repo RosterRepository, leagues LeagueReader, clock clockwork.Clock) *App {
	return &App{
		repo:    repo,
		leagues: leagues,
		clock:   clock,
	}
}

// ListRoster returns a team's roster entries
func (a *App) ListRoster(ctx context.Context, fantasyTeamID uuid.UUID) ([]models.RosterEntry, error) {
	if fantasyTeamID == uuid.Nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, errors.New("fantasy_team_id is required"))
	}
	return a.repo.ListRoster(ctx, fantasyTeamID)
}

// GetLineup returns a team's lineup for a period
func (a *App) GetLineup(ctx context.Context, fantasyTeamID, periodID uuid.UUID) (*models.Lineup, error) {
	return a.repo.GetLineup(ctx, fantasyTeamID, periodID)
}

// SetLineup replaces a team's lineup for a period. The period must not have
// reached its lock time and the league's starter count must be met exactly.
func (a *App) SetLineup(ctx context.Context, req SetLineupRequest) (*models.Lineup, error) {
	if err := a.validateSetLineupRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	team, err := a.leagues.GetFantasyTeam(ctx, req.FantasyTeamID)
	if err != nil {
		return nil, fmt.Errorf("fantasy team not found: %w", err)
	}
	period, err := a.leagues.GetScoringPeriod(ctx, req.ScoringPeriodID)
	if err != nil {
		return nil, fmt.Errorf("scoring period not found: %w", err)
	}
	if period.LeagueID != team.LeagueID {
		return nil, fmt.Errorf("%w: %w", ErrValidation, errors.New("scoring period belongs to another league"))
	}
	if a.clock.Now().After(period.LockAt) {
		return nil, ErrLineupLocked
	}
	if existing, err := a.repo.GetLineup(ctx, req.FantasyTeamID, req.ScoringPeriodID); err == nil && existing.IsLocked {
		return nil, ErrLineupLocked
	}

	league, err := a.leagues.GetLeague(ctx, team.LeagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to get league: %w", err)
	}

	starters := 0
	for _, s := range req.Slots {
		if s.IsStarter {
			starters++
		}
	}
	if starters != league.StarterCount {
		return nil, fmt.Errorf("%w: must have exactly %d starters, got %d", ErrStarterCount, league.StarterCount, starters)
	}

	entries, err := a.repo.ListRoster(ctx, req.FantasyTeamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roster: %w", err)
	}
	owned := make(map[uuid.UUID]models.RosterEntry, len(entries))
	for _, e := range entries {
		owned[e.ID] = e
	}

	lineup := models.Lineup{
		ID:              uuid.New(),
		FantasyTeamID:   req.FantasyTeamID,
		ScoringPeriodID: req.ScoringPeriodID,
		UpdatedAt:       a.clock.Now(),
	}
	for _, s := range req.Slots {
		entry, ok := owned[s.RosterEntryID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrInvalidRosterSlot, s.RosterEntryID)
		}
		pos := models.LineupPositionBench
		if s.IsStarter {
			pos = models.LineupPositionStarter
		}
		lineup.Slots = append(lineup.Slots, models.LineupSlot{
			RosterEntryID: entry.ID,
			PlayerID:      entry.PlayerID,
			Position:      pos,
		})
	}

	saved, err := a.repo.SaveLineup(ctx, lineup)
	if err != nil {
		return nil, fmt.Errorf("failed to save lineup: %w", err)
	}

	log.Info().
		Str("fantasy_team_id", req.FantasyTeamID.String()).
		Str("scoring_period_id", req.ScoringPeriodID.String()).
		Int("starters", starters).
		Msg("lineup set")
	return saved, nil
}

// LockLineups freezes every lineup of a period
func (a *App) LockLineups(ctx context.Context, periodID uuid.UUID) (int, error) {
	if periodID == uuid.Nil {
		return 0, fmt.Errorf("%w: %w", ErrValidation, errors.New("scoring_period_id is required"))
	}
	n, err := a.repo.LockLineups(ctx, periodID)
	if err != nil {
		return 0, fmt.Errorf("failed to lock lineups: %w", err)
	}
	log.Info().Str("scoring_period_id", periodID.String()).Int("locked", n).Msg("locked lineups")
	return n, nil
}

func (a *App) validateSetLineupRequest(req SetLineupRequest) error {
	if req.FantasyTeamID == uuid.Nil {
		return fmt.Errorf("fantasy_team_id is required")
	}
	if req.ScoringPeriodID == uuid.Nil {
		return fmt.Errorf("scoring_period_id is required")
	}
	seen := make(map[uuid.UUID]bool, len(req.Slots))
	for _, s := range req.Slots {
		if s.RosterEntryID == uuid.Nil {
			return fmt.Errorf("roster_entry_id is required")
		}
		if seen[s.RosterEntryID] {
			return ErrDuplicateSlot
		}
		seen[s.RosterEntryID] = true
	}
	return nil
}

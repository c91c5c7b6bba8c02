package memstore

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/cdlfantasy/league/go/internal/models"
	"github.com/cdlfantasy/league/go/internal/roster"
	"github.com/google/uuid"
)

var (
	_ roster.RosterRepository = (*Store)(nil)
	_ roster.LeagueReader     = (*Store)(nil)
)

// ListRoster returns a team's roster entries by acquisition time
func (s *Store) ListRoster(_ context.Context, fantasyTeamID uuid.UUID) ([]models.RosterEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var entries []models.RosterEntry
	for _, e := range s.rosters {
		if e.FantasyTeamID == fantasyTeamID {
			entries = append(entries, e)
		}
	}
	slices.SortFunc(entries, func(a, b models.RosterEntry) int {
		if c := a.AcquiredAt.Compare(b.AcquiredAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return entries, nil
}

// GetLineup retrieves a team's lineup for one period
func (s *Store) GetLineup(_ context.Context, fantasyTeamID, periodID uuid.UUID) (*models.Lineup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lineups[lineupKey{teamID: fantasyTeamID, periodID: periodID}]
	if !ok {
		return nil, notFound("lineup", fantasyTeamID)
	}
	l.Slots = slices.Clone(l.Slots)
	return &l, nil
}

// SaveLineup replaces a team's lineup unless it is locked.
func (s *Store) SaveLineup(_ context.Context, lineup models.Lineup) (*models.Lineup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := lineupKey{teamID: lineup.FantasyTeamID, periodID: lineup.ScoringPeriodID}
	if existing, ok := s.lineups[key]; ok {
		if existing.IsLocked {
			return nil, fmt.Errorf("lineup locked: %w", models.ErrConflict)
		}
		lineup.ID = existing.ID
	}
	lineup.Slots = slices.Clone(lineup.Slots)
	s.lineups[key] = lineup
	return &lineup, nil
}

// LockLineups freezes every unlocked lineup of a period
func (s *Store) LockLineups(_ context.Context, periodID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key, l := range s.lineups {
		if key.periodID == periodID && !l.IsLocked {
			l.IsLocked = true
			s.lineups[key] = l
			n++
		}
	}
	return n, nil
}

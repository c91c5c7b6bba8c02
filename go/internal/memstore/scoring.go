package memstore

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/cdlfantasy/league/go/internal/models"
	"github.com/cdlfantasy/league/go/internal/scoring"
	"github.com/google/uuid"
)

var _ scoring.ScoringRepository = (*Store)(nil)

// ListStatLinesForMatch returns a match's stat lines by player and map
func (s *Store) ListStatLinesForMatch(_ context.Context, matchID uuid.UUID) ([]models.StatLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var lines []models.StatLine
	for _, l := range s.statLines {
		if l.MatchID == matchID {
			lines = append(lines, l)
		}
	}
	slices.SortFunc(lines, func(a, b models.StatLine) int {
		if c := cmp.Compare(a.PlayerID.String(), b.PlayerID.String()); c != 0 {
			return c
		}
		return cmp.Compare(a.MapNumber, b.MapNumber)
	})
	return lines, nil
}

// UpsertFantasyPoints stores points for one stat line in one league
func (s *Store) UpsertFantasyPoints(_ context.Context, fp models.FantasyPoints) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pointsKey{statLineID: fp.StatLineID, leagueID: fp.LeagueID}
	if existing, ok := s.points[key]; ok {
		fp.ID = existing.ID
	}
	s.points[key] = fp
	return nil
}

// FantasyPoints returns the stored points for one stat line in one league.
func (s *Store) FantasyPoints(leagueID, statLineID uuid.UUID) (models.FantasyPoints, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fp, ok := s.points[pointsKey{statLineID: statLineID, leagueID: leagueID}]
	return fp, ok
}

// ListScoredLines returns stored points for the given players with the time
// of the match each line came from.
func (s *Store) ListScoredLines(_ context.Context, leagueID uuid.UUID, playerIDs []uuid.UUID) ([]scoring.ScoredLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var lines []scoring.ScoredLine
	for key, fp := range s.points {
		if key.leagueID != leagueID {
			continue
		}
		sl, ok := s.statLines[key.statLineID]
		if !ok || !slices.Contains(playerIDs, sl.PlayerID) {
			continue
		}
		m, ok := s.matches[sl.MatchID]
		if !ok {
			continue
		}
		lines = append(lines, scoring.ScoredLine{
			PlayerID:         sl.PlayerID,
			MatchID:          sl.MatchID,
			MatchScheduledAt: m.ScheduledAt,
			Points:           fp.Points,
		})
	}
	return lines, nil
}

// ListCompletedMatches returns completed matches scheduled in [from, to)
func (s *Store) ListCompletedMatches(_ context.Context, from, to time.Time) ([]models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matches []models.Match
	for _, m := range s.matches {
		if m.Status == models.MatchStatusCompleted && !m.ScheduledAt.Before(from) && m.ScheduledAt.Before(to) {
			matches = append(matches, m)
		}
	}
	slices.SortFunc(matches, func(a, b models.Match) int { return a.ScheduledAt.Compare(b.ScheduledAt) })
	return matches, nil
}

// UpsertTeamTotal stores a team's totals for one period
func (s *Store) UpsertTeamTotal(_ context.Context, t models.TeamTotal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totals[lineupKey{teamID: t.FantasyTeamID, periodID: t.ScoringPeriodID}] = t
	return nil
}

// GetTeamTotal retrieves a team's totals for one period
func (s *Store) GetTeamTotal(_ context.Context, teamID, periodID uuid.UUID) (*models.TeamTotal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.totals[lineupKey{teamID: teamID, periodID: periodID}]
	if !ok {
		return nil, notFound("team total", teamID)
	}
	return &t, nil
}

// ListOpenMatchups returns the period's unresolved matchups
func (s *Store) ListOpenMatchups(_ context.Context, periodID uuid.UUID) ([]models.Matchup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matchups []models.Matchup
	for _, m := range s.matchups {
		if m.ScoringPeriodID == periodID && !m.IsCompleted {
			matchups = append(matchups, m)
		}
	}
	slices.SortFunc(matchups, func(a, b models.Matchup) int { return cmp.Compare(a.ID.String(), b.ID.String()) })
	return matchups, nil
}

// ListMatchups returns every matchup of a period
func (s *Store) ListMatchups(_ context.Context, periodID uuid.UUID) ([]models.Matchup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matchups := []models.Matchup{}
	for _, m := range s.matchups {
		if m.ScoringPeriodID == periodID {
			matchups = append(matchups, m)
		}
	}
	slices.SortFunc(matchups, func(a, b models.Matchup) int { return cmp.Compare(a.ID.String(), b.ID.String()) })
	return matchups, nil
}

// GetMatchup retrieves a matchup by ID
func (s *Store) GetMatchup(_ context.Context, id uuid.UUID) (*models.Matchup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matchups[id]
	if !ok {
		return nil, notFound("matchup", id)
	}
	return &m, nil
}

// ApplyMatchupResult marks the matchup complete and updates both team
// records.
func (s *Store) ApplyMatchupResult(_ context.Context, res scoring.MatchupResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matchups[res.MatchupID]
	if !ok {
		return notFound("matchup", res.MatchupID)
	}
	if m.IsCompleted {
		return fmt.Errorf("matchup %s already resolved: %w", res.MatchupID, models.ErrConflict)
	}
	m.Team1Score = res.Team1Score
	m.Team2Score = res.Team2Score
	m.WinnerID = res.WinnerID
	m.IsCompleted = true
	s.matchups[m.ID] = m

	t1, t2 := s.teams[res.Team1ID], s.teams[res.Team2ID]
	switch {
	case res.IsTie():
		t1.Ties++
		t2.Ties++
	case *res.WinnerID == res.Team1ID:
		t1.Wins++
		t2.Losses++
	default:
		t1.Losses++
		t2.Wins++
	}
	t1.TotalPoints += res.Team1Score
	t2.TotalPoints += res.Team2Score
	s.teams[t1.ID] = t1
	s.teams[t2.ID] = t2
	return nil
}

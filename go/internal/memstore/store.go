// Package memstore is an in-memory implementation of every repository the
// league services need. It backs the memory store driver and the tests.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/cdlfantasy/league/go/internal/draft/outbox"
	"github.com/cdlfantasy/league/go/internal/models"
	"github.com/cdlfantasy/league/go/internal/player"
	"github.com/google/uuid"
)

// Store keeps all state behind one mutex, so each method is atomic in the
// same way a postgres transaction is.
type Store struct {
	mu sync.Mutex

	leagues      map[uuid.UUID]models.League
	teams        map[uuid.UUID]models.FantasyTeam
	players      map[uuid.UUID]models.Player
	drafts       map[uuid.UUID]models.Draft
	picks        map[uuid.UUID][]models.DraftPick
	rosters      map[uuid.UUID]models.RosterEntry
	periods      map[uuid.UUID]models.ScoringPeriod
	lineups      map[lineupKey]models.Lineup
	matches      map[uuid.UUID]models.Match
	statLines    map[uuid.UUID]models.StatLine
	points       map[pointsKey]models.FantasyPoints
	totals       map[lineupKey]models.TeamTotal
	matchups     map[uuid.UUID]models.Matchup
	outbox       []outbox.OutboxEvent
	outboxSeq    int64
	teamSequence int
}

type lineupKey struct {
	teamID   uuid.UUID
	periodID uuid.UUID
}

type pointsKey struct {
	statLineID uuid.UUID
	leagueID   uuid.UUID
}

// New returns an empty store
func New() *Store {
	return &Store{
		leagues:   make(map[uuid.UUID]models.League),
		teams:     make(map[uuid.UUID]models.FantasyTeam),
		players:   make(map[uuid.UUID]models.Player),
		drafts:    make(map[uuid.UUID]models.Draft),
		picks:     make(map[uuid.UUID][]models.DraftPick),
		rosters:   make(map[uuid.UUID]models.RosterEntry),
		periods:   make(map[uuid.UUID]models.ScoringPeriod),
		lineups:   make(map[lineupKey]models.Lineup),
		matches:   make(map[uuid.UUID]models.Match),
		statLines: make(map[uuid.UUID]models.StatLine),
		points:    make(map[pointsKey]models.FantasyPoints),
		totals:    make(map[lineupKey]models.TeamTotal),
		matchups:  make(map[uuid.UUID]models.Matchup),
	}
}

func notFound(what string, id uuid.UUID) error {
	return fmt.Errorf("%s %s: %w", what, id, models.ErrNotFound)
}

// AddLeague stores l, assigning an ID when it has none.
func (s *Store) AddLeague(l models.League) models.League {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.Status == "" {
		l.Status = models.LeagueStatusPreDraft
	}
	s.leagues[l.ID] = l
	return l
}

// AddFantasyTeam stores t. Teams keep insertion order for participant
// listing, matching created_at order in postgres.
func (s *Store) AddFantasyTeam(t models.FantasyTeam) models.FantasyTeam {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	s.teamSequence++
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Unix(int64(s.teamSequence), 0).UTC()
	}
	s.teams[t.ID] = t
	return t
}

// AddPlayer stores p as given; only players with IsActive set can be drafted.
func (s *Store) AddPlayer(p models.Player) models.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	s.players[p.ID] = p
	return p
}

// AddRosterEntry stores e outside of a draft.
func (s *Store) AddRosterEntry(e models.RosterEntry) models.RosterEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	s.rosters[e.ID] = e
	return e
}

// AddScoringPeriod stores p
func (s *Store) AddScoringPeriod(p models.ScoringPeriod) models.ScoringPeriod {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	s.periods[p.ID] = p
	return p
}

// AddMatch stores m
func (s *Store) AddMatch(m models.Match) models.Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	s.matches[m.ID] = m
	return m
}

// AddStatLine stores l
func (s *Store) AddStatLine(l models.StatLine) models.StatLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	s.statLines[l.ID] = l
	return l
}

// AddMatchup stores m
func (s *Store) AddMatchup(m models.Matchup) models.Matchup {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	s.matchups[m.ID] = m
	return m
}

// GetLeague retrieves a league by ID
func (s *Store) GetLeague(_ context.Context, id uuid.UUID) (*models.League, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leagues[id]
	if !ok {
		return nil, notFound("league", id)
	}
	return &l, nil
}

// UpdateScoringRules replaces the league's scoring weights
func (s *Store) UpdateScoringRules(_ context.Context, leagueID uuid.UUID, rules models.ScoringRules) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leagues[leagueID]
	if !ok {
		return notFound("league", leagueID)
	}
	l.ScoringRules = rules
	s.leagues[leagueID] = l
	return nil
}

// ListFantasyTeams returns the league's teams in creation order
func (s *Store) ListFantasyTeams(_ context.Context, leagueID uuid.UUID) ([]models.FantasyTeam, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.leagueTeams(leagueID), nil
}

func (s *Store) leagueTeams(leagueID uuid.UUID) []models.FantasyTeam {
	var teams []models.FantasyTeam
	for _, t := range s.teams {
		if t.LeagueID == leagueID {
			teams = append(teams, t)
		}
	}
	slices.SortFunc(teams, func(a, b models.FantasyTeam) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return teams
}

// GetFantasyTeam retrieves a fantasy team by ID
func (s *Store) GetFantasyTeam(_ context.Context, id uuid.UUID) (*models.FantasyTeam, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[id]
	if !ok {
		return nil, notFound("fantasy team", id)
	}
	return &t, nil
}

// GetParticipants returns the league's team IDs in creation order
func (s *Store) GetParticipants(_ context.Context, leagueID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.leagues[leagueID]; !ok {
		return nil, notFound("league", leagueID)
	}
	var ids []uuid.UUID
	for _, t := range s.leagueTeams(leagueID) {
		ids = append(ids, t.ID)
	}
	return ids, nil
}

// GetRosterSize returns the number of draft rounds for the league
func (s *Store) GetRosterSize(_ context.Context, leagueID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leagues[leagueID]
	if !ok {
		return 0, notFound("league", leagueID)
	}
	return l.RosterSize, nil
}

// GetScoringPeriod retrieves a scoring period by ID
func (s *Store) GetScoringPeriod(_ context.Context, id uuid.UUID) (*models.ScoringPeriod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.periods[id]
	if !ok {
		return nil, notFound("scoring period", id)
	}
	return &p, nil
}

// ListScoringPeriods returns the league's periods by start time
func (s *Store) ListScoringPeriods(_ context.Context, leagueID uuid.UUID) ([]models.ScoringPeriod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var periods []models.ScoringPeriod
	for _, p := range s.periods {
		if p.LeagueID == leagueID {
			periods = append(periods, p)
		}
	}
	slices.SortFunc(periods, func(a, b models.ScoringPeriod) int { return a.StartsAt.Compare(b.StartsAt) })
	return periods, nil
}

// GetPlayer retrieves a player by ID
func (s *Store) GetPlayer(_ context.Context, id uuid.UUID) (*models.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[id]
	if !ok {
		return nil, notFound("player", id)
	}
	return &p, nil
}

// ListAvailablePlayers returns active players not in excludeIDs, best ADP
// first.
func (s *Store) ListAvailablePlayers(_ context.Context, excludeIDs []uuid.UUID) ([]models.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var players []models.Player
	for _, p := range s.players {
		if p.IsActive && !slices.Contains(excludeIDs, p.ID) {
			players = append(players, p)
		}
	}
	player.SortByDraftPriority(players)
	return players, nil
}

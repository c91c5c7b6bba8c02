package scoring_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdlfantasy/league/go/internal/models"
	"github.com/cdlfantasy/league/go/internal/scoring"
)

// playWeek scores and resolves a Home 15 - Away 5 week.
func (s *season) playWeek(t *testing.T) models.Matchup {
	t.Helper()
	ctx := context.Background()
	m := s.store.AddMatchup(models.Matchup{ScoringPeriodID: s.period.ID, Team1ID: s.teams[0].ID, Team2ID: s.teams[1].ID})
	s.addLine(s.players[0], s.match, 1, 20, 10)
	s.addLine(s.players[2], s.match, 1, 10, 10)

	_, err := s.app.ScoreMatch(ctx, s.match.ID, s.league.ID)
	require.NoError(t, err)
	_, err = s.app.UpdateTeamTotals(ctx, s.league.ID, s.period.ID)
	require.NoError(t, err)
	_, err = s.app.ResolveMatchups(ctx, s.period.ID)
	require.NoError(t, err)
	return m
}

func TestRankTeams(t *testing.T) {
	teams := []models.FantasyTeam{
		{Name: "zulu", Wins: 2, Losses: 1, TotalPoints: 90},
		{Name: "Bravo", Wins: 3, Losses: 0, TotalPoints: 70},
		{Name: "alpha", Wins: 2, Losses: 1, TotalPoints: 90},
		{Name: "Yankee", Wins: 2, Ties: 1, TotalPoints: 120},
		{Name: "Fresh"},
	}
	got := scoring.RankTeams(teams)

	var names []string
	for i, e := range got {
		assert.Equal(t, i+1, e.Rank)
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"Bravo", "Yankee", "alpha", "zulu", "Fresh"}, names)
	assert.Equal(t, 1.0, got[0].WinPercentage)
	assert.InDelta(t, 2.0/3.0, got[1].WinPercentage, 1e-9)
	assert.Zero(t, got[4].WinPercentage)
}

func TestGetStandings(t *testing.T) {
	s := newSeason(t)
	s.playWeek(t)

	standings, err := s.app.GetStandings(context.Background(), s.league.ID)
	require.NoError(t, err)
	require.Len(t, standings, 2)
	assert.Equal(t, s.teams[0].ID, standings[0].TeamID)
	assert.Equal(t, 1, standings[0].Wins)
	assert.InDelta(t, 15.0, standings[0].TotalPoints, 1e-9)
	assert.Equal(t, s.teams[1].ID, standings[1].TeamID)
	assert.Equal(t, 1, standings[1].Losses)
	assert.Equal(t, 2, standings[1].Rank)

	_, err = s.app.GetStandings(context.Background(), uuid.Nil)
	assert.ErrorIs(t, err, scoring.ErrValidation)
	_, err = s.app.GetStandings(context.Background(), uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestGetPeriodStandings(t *testing.T) {
	s := newSeason(t)
	m := s.playWeek(t)
	ctx := context.Background()
	// Joined after totals were computed, so has no stored total.
	s.store.AddFantasyTeam(models.FantasyTeam{LeagueID: s.league.ID, Name: "Expansion"})

	got, err := s.app.GetPeriodStandings(ctx, s.league.ID, s.period.ID)
	require.NoError(t, err)
	assert.Equal(t, s.period.ID, got.Period.ID)
	require.Len(t, got.Rankings, 2)
	assert.Equal(t, s.teams[0].ID, got.Rankings[0].TeamID)
	assert.Equal(t, 1, got.Rankings[0].Rank)
	assert.InDelta(t, 15.0, got.Rankings[0].StarterPoints, 1e-9)
	assert.InDelta(t, 5.0, got.Rankings[1].StarterPoints, 1e-9)
	require.Len(t, got.Matchups, 1)
	assert.Equal(t, m.ID, got.Matchups[0].ID)
	assert.True(t, got.Matchups[0].IsCompleted)

	_, err = s.app.GetPeriodStandings(ctx, uuid.New(), s.period.ID)
	assert.ErrorIs(t, err, scoring.ErrValidation)
	_, err = s.app.GetPeriodStandings(ctx, s.league.ID, uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestListMatchups(t *testing.T) {
	s := newSeason(t)
	ctx := context.Background()
	week2 := s.store.AddScoringPeriod(models.ScoringPeriod{
		LeagueID: s.league.ID,
		Name:     "Week 2",
		StartsAt: s.period.EndsAt,
		EndsAt:   s.period.EndsAt.Add(7 * 24 * time.Hour),
		LockAt:   s.period.EndsAt,
	})
	later := s.store.AddMatchup(models.Matchup{ScoringPeriodID: week2.ID, Team1ID: s.teams[1].ID, Team2ID: s.teams[0].ID})
	first := s.store.AddMatchup(models.Matchup{ScoringPeriodID: s.period.ID, Team1ID: s.teams[0].ID, Team2ID: s.teams[1].ID})

	all, err := s.app.ListMatchups(ctx, s.league.ID, uuid.Nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first.ID, all[0].ID)
	assert.Equal(t, later.ID, all[1].ID)

	filtered, err := s.app.ListMatchups(ctx, s.league.ID, week2.ID)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, later.ID, filtered[0].ID)

	_, err = s.app.ListMatchups(ctx, uuid.New(), week2.ID)
	assert.ErrorIs(t, err, scoring.ErrValidation)
	_, err = s.app.ListMatchups(ctx, uuid.Nil, uuid.Nil)
	assert.ErrorIs(t, err, scoring.ErrValidation)
}

func TestGetMatchup(t *testing.T) {
	s := newSeason(t)
	m := s.playWeek(t)
	ctx := context.Background()

	got, err := s.app.GetMatchup(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, got.IsCompleted)
	require.NotNil(t, got.WinnerID)
	assert.Equal(t, s.teams[0].ID, *got.WinnerID)

	_, err = s.app.GetMatchup(ctx, uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = s.app.GetMatchup(ctx, uuid.Nil)
	assert.ErrorIs(t, err, scoring.ErrValidation)
}

package roster_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdlfantasy/league/go/internal/memstore"
	"github.com/cdlfantasy/league/go/internal/models"
	"github.com/cdlfantasy/league/go/internal/roster"
	"github.com/cdlfantasy/league/go/internal/scoring"
)

var now = time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)

type rosterFixture struct {
	store   *memstore.Store
	clock   *clockwork.FakeClock
	app     *roster.App
	team    models.FantasyTeam
	rival   models.FantasyTeam
	period  models.ScoringPeriod
	entries []models.RosterEntry
}

// newRosterFixture gives one team four rostered players in a league that
// starts two, with a period locking a day from now.
func newRosterFixture(t *testing.T) *rosterFixture {
	t.Helper()
	store := memstore.New()
	league, teams := store.SeedLeague("Roster League", 4, 2, scoring.DefaultRules(), "Mine", "Rival")
	players := store.SeedPlayers(5)
	period := store.AddScoringPeriod(models.ScoringPeriod{
		LeagueID: league.ID,
		Name:     "Week 1",
		StartsAt: now.Add(24 * time.Hour),
		EndsAt:   now.Add(8 * 24 * time.Hour),
		LockAt:   now.Add(24 * time.Hour),
	})

	f := &rosterFixture{
		store:  store,
		clock:  clockwork.NewFakeClockAt(now),
		team:   teams[0],
		rival:  teams[1],
		period: period,
	}
	for i, p := range players[:4] {
		f.entries = append(f.entries, store.AddRosterEntry(models.RosterEntry{
			FantasyTeamID:   f.team.ID,
			PlayerID:        p.ID,
			AcquiredAt:      now.Add(time.Duration(i) * time.Minute),
			AcquisitionType: models.AcquisitionTypeDraft,
		}))
	}
	store.AddRosterEntry(models.RosterEntry{
		FantasyTeamID:   f.rival.ID,
		PlayerID:        players[4].ID,
		AcquiredAt:      now,
		AcquisitionType: models.AcquisitionTypeDraft,
	})
	f.app = roster.NewApp(store, store, f.clock)
	return f
}

func (f *rosterFixture) request(starters ...int) roster.SetLineupRequest {
	req := roster.SetLineupRequest{FantasyTeamID: f.team.ID, ScoringPeriodID: f.period.ID}
	isStarter := make(map[int]bool)
	for _, i := range starters {
		isStarter[i] = true
	}
	for i, e := range f.entries {
		req.Slots = append(req.Slots, roster.SlotRequest{RosterEntryID: e.ID, IsStarter: isStarter[i]})
	}
	return req
}

func TestListRoster(t *testing.T) {
	f := newRosterFixture(t)
	entries, err := f.app.ListRoster(context.Background(), f.team.ID)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	for i, e := range entries {
		assert.Equal(t, f.entries[i].ID, e.ID)
	}

	_, err = f.app.ListRoster(context.Background(), uuid.Nil)
	assert.ErrorIs(t, err, roster.ErrValidation)
}

func TestSetLineup(t *testing.T) {
	f := newRosterFixture(t)
	ctx := context.Background()

	lineup, err := f.app.SetLineup(ctx, f.request(0, 2))
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{f.entries[0].PlayerID, f.entries[2].PlayerID}, lineup.StarterIDs())
	assert.Equal(t, []uuid.UUID{f.entries[1].PlayerID, f.entries[3].PlayerID}, lineup.BenchIDs())
	assert.Equal(t, now, lineup.UpdatedAt)

	// Resubmitting replaces the lineup in place.
	f.clock.Advance(time.Hour)
	updated, err := f.app.SetLineup(ctx, f.request(1, 3))
	require.NoError(t, err)
	assert.Equal(t, lineup.ID, updated.ID)

	got, err := f.app.GetLineup(ctx, f.team.ID, f.period.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{f.entries[1].PlayerID, f.entries[3].PlayerID}, got.StarterIDs())
}

func TestSetLineup_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("wrong starter count", func(t *testing.T) {
		f := newRosterFixture(t)
		_, err := f.app.SetLineup(ctx, f.request(0))
		assert.ErrorIs(t, err, roster.ErrStarterCount)
		_, err = f.app.SetLineup(ctx, f.request(0, 1, 2))
		assert.ErrorIs(t, err, roster.ErrStarterCount)
	})

	t.Run("player not on roster", func(t *testing.T) {
		f := newRosterFixture(t)
		req := f.request(0, 1)
		req.Slots = append(req.Slots, roster.SlotRequest{RosterEntryID: uuid.New()})
		_, err := f.app.SetLineup(ctx, req)
		assert.ErrorIs(t, err, roster.ErrInvalidRosterSlot)
	})

	t.Run("duplicate slot", func(t *testing.T) {
		f := newRosterFixture(t)
		req := f.request(0, 1)
		req.Slots = append(req.Slots, req.Slots[2])
		_, err := f.app.SetLineup(ctx, req)
		assert.ErrorIs(t, err, roster.ErrDuplicateSlot)
		assert.ErrorIs(t, err, roster.ErrValidation)
	})

	t.Run("missing ids", func(t *testing.T) {
		f := newRosterFixture(t)
		_, err := f.app.SetLineup(ctx, roster.SetLineupRequest{ScoringPeriodID: f.period.ID})
		assert.ErrorIs(t, err, roster.ErrValidation)
	})

	t.Run("period from another league", func(t *testing.T) {
		f := newRosterFixture(t)
		other, _ := f.store.SeedLeague("Elsewhere", 4, 2, scoring.DefaultRules())
		period := f.store.AddScoringPeriod(models.ScoringPeriod{LeagueID: other.ID, LockAt: now.Add(time.Hour)})
		req := f.request(0, 1)
		req.ScoringPeriodID = period.ID
		_, err := f.app.SetLineup(ctx, req)
		assert.ErrorIs(t, err, roster.ErrValidation)
	})

	t.Run("after lock time", func(t *testing.T) {
		f := newRosterFixture(t)
		f.clock.Advance(25 * time.Hour)
		_, err := f.app.SetLineup(ctx, f.request(0, 1))
		assert.ErrorIs(t, err, roster.ErrLineupLocked)
	})

	t.Run("locked lineup", func(t *testing.T) {
		f := newRosterFixture(t)
		_, err := f.app.SetLineup(ctx, f.request(0, 1))
		require.NoError(t, err)

		n, err := f.app.LockLineups(ctx, f.period.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		_, err = f.app.SetLineup(ctx, f.request(2, 3))
		assert.ErrorIs(t, err, roster.ErrLineupLocked)

		got, err := f.app.GetLineup(ctx, f.team.ID, f.period.ID)
		require.NoError(t, err)
		assert.True(t, got.IsLocked)
		assert.Equal(t, []uuid.UUID{f.entries[0].PlayerID, f.entries[1].PlayerID}, got.StarterIDs())
	})
}

func TestLockLineups_Validation(t *testing.T) {
	f := newRosterFixture(t)
	_, err := f.app.LockLineups(context.Background(), uuid.Nil)
	assert.ErrorIs(t, err, roster.ErrValidation)

	n, err := f.app.LockLineups(context.Background(), f.period.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

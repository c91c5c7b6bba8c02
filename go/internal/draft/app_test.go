package draft_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdlfantasy/league/go/internal/draft"
	"github.com/cdlfantasy/league/go/internal/draft/events"
	"github.com/cdlfantasy/league/go/internal/memstore"
	"github.com/cdlfantasy/league/go/internal/models"
	"github.com/cdlfantasy/league/go/internal/scoring"
)

type armCall struct {
	pickNumber int
	delay      time.Duration
}

type recordingTimer struct {
	mu        sync.Mutex
	armed     map[uuid.UUID]armCall
	cancelled map[uuid.UUID]bool
}

func newRecordingTimer() *recordingTimer {
	return &recordingTimer{
		armed:     make(map[uuid.UUID]armCall),
		cancelled: make(map[uuid.UUID]bool),
	}
}

func (t *recordingTimer) Arm(draftID uuid.UUID, pickNumber int, delay time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.armed[draftID] = armCall{pickNumber: pickNumber, delay: delay}
	delete(t.cancelled, draftID)
}

func (t *recordingTimer) Cancel(draftID uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.armed, draftID)
	t.cancelled[draftID] = true
}

func (t *recordingTimer) get(draftID uuid.UUID) (armCall, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.armed[draftID]
	return c, ok
}

type countingNotifier struct {
	mu sync.Mutex
	n  int
}

func (c *countingNotifier) Notify() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

type fixture struct {
	store    *memstore.Store
	app      *draft.App
	timer    *recordingTimer
	notifier *countingNotifier
	clock    *clockwork.FakeClock
	league   models.League
	teams    []models.FantasyTeam
	players  []models.Player
}

var startTime = time.Date(2025, 1, 10, 18, 0, 0, 0, time.UTC)

// newFixture builds a league with the given teams, in draft order, and
// twice as many players as the draft needs.
func newFixture(t *testing.T, teams, rosterSize int) *fixture {
	t.Helper()
	store := memstore.New()
	names := make([]string, teams)
	for i := range names {
		names[i] = string(rune('A' + i))
	}
	league, fts := store.SeedLeague("Test League", rosterSize, 1, scoring.DefaultRules(), names...)

	f := &fixture{
		store:    store,
		timer:    newRecordingTimer(),
		notifier: &countingNotifier{},
		clock:    clockwork.NewFakeClockAt(startTime),
		league:   league,
		teams:    fts,
		players:  store.SeedPlayers(2 * teams * rosterSize),
	}
	f.app = draft.NewApp(store, store, store, store, f.timer, f.notifier, f.clock).
		WithShuffle(func([]uuid.UUID) {})
	return f
}

func (f *fixture) createAndStart(t *testing.T, secondsPerPick int) *models.Draft {
	t.Helper()
	ctx := context.Background()
	d, err := f.app.CreateDraft(ctx, draft.CreateDraftRequest{LeagueID: f.league.ID, SecondsPerPick: secondsPerPick})
	require.NoError(t, err)
	d, err = f.app.StartDraft(ctx, d.ID)
	require.NoError(t, err)
	return d
}

func TestCreateDraft_Idempotent(t *testing.T) {
	f := newFixture(t, 4, 6)
	ctx := context.Background()

	first, err := f.app.CreateDraft(ctx, draft.CreateDraftRequest{LeagueID: f.league.ID, SecondsPerPick: 60})
	require.NoError(t, err)
	assert.Equal(t, models.DraftStatusNotStarted, first.Status)
	assert.Equal(t, 0, first.CurrentPick)

	second, err := f.app.CreateDraft(ctx, draft.CreateDraftRequest{LeagueID: f.league.ID, SecondsPerPick: 90})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 60, second.SecondsPerPick)
}

func TestCreateDraft_Validation(t *testing.T) {
	f := newFixture(t, 2, 2)
	ctx := context.Background()

	tests := []struct {
		name string
		req  draft.CreateDraftRequest
	}{
		{"missing league", draft.CreateDraftRequest{SecondsPerPick: 60}},
		{"zero seconds", draft.CreateDraftRequest{LeagueID: f.league.ID}},
		{"negative seconds", draft.CreateDraftRequest{LeagueID: f.league.ID, SecondsPerPick: -5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.app.CreateDraft(ctx, tt.req)
			assert.ErrorIs(t, err, draft.ErrInvalidArgument)
		})
	}

	_, err := f.app.CreateDraft(ctx, draft.CreateDraftRequest{LeagueID: uuid.New(), SecondsPerPick: 60})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestStartDraft(t *testing.T) {
	f := newFixture(t, 4, 6)
	d := f.createAndStart(t, 60)

	assert.Equal(t, models.DraftStatusInProgress, d.Status)
	assert.Equal(t, 1, d.CurrentPick)
	assert.Equal(t, 1, d.CurrentRound)
	require.NotNil(t, d.StartedAt)
	assert.Equal(t, startTime, *d.StartedAt)
	assert.Len(t, d.DraftOrder, 4)

	league, err := f.store.GetLeague(context.Background(), f.league.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LeagueStatusDrafting, league.Status)

	call, ok := f.timer.get(d.ID)
	require.True(t, ok)
	assert.Equal(t, armCall{pickNumber: 1, delay: 60 * time.Second}, call)

	evts := f.store.OutboxEvents(d.ID)
	require.Len(t, evts, 2)
	assert.Equal(t, events.TypeDraftStarted, evts[0].EventType)
	assert.Equal(t, events.TypePickStarted, evts[1].EventType)
	assert.Less(t, evts[0].Seq, evts[1].Seq)
}

func TestStartDraft_ShufflesOrder(t *testing.T) {
	f := newFixture(t, 3, 2)
	f.app.WithShuffle(func(ids []uuid.UUID) {
		ids[0], ids[2] = ids[2], ids[0]
	})
	d := f.createAndStart(t, 30)
	assert.Equal(t, []uuid.UUID{f.teams[2].ID, f.teams[1].ID, f.teams[0].ID}, d.DraftOrder)
}

func TestStartDraft_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("already started", func(t *testing.T) {
		f := newFixture(t, 2, 2)
		d := f.createAndStart(t, 60)
		_, err := f.app.StartDraft(ctx, d.ID)
		assert.ErrorIs(t, err, draft.ErrAlreadyStarted)
	})

	t.Run("not enough participants", func(t *testing.T) {
		f := newFixture(t, 1, 2)
		d, err := f.app.CreateDraft(ctx, draft.CreateDraftRequest{LeagueID: f.league.ID, SecondsPerPick: 60})
		require.NoError(t, err)
		_, err = f.app.StartDraft(ctx, d.ID)
		assert.ErrorIs(t, err, draft.ErrNotEnoughParticipants)
	})

	t.Run("unknown draft", func(t *testing.T) {
		f := newFixture(t, 2, 2)
		_, err := f.app.StartDraft(ctx, uuid.New())
		assert.ErrorIs(t, err, draft.ErrDraftNotFound)
	})
}

// A 4-team, 6-round draft runs to completion with the snake order intact.
func TestFullDraft_FourTeamsSixRounds(t *testing.T) {
	f := newFixture(t, 4, 6)
	ctx := context.Background()
	d := f.createAndStart(t, 60)

	seen := make(map[uuid.UUID]bool)
	for k := 1; k <= 24; k++ {
		view, err := f.app.GetDraftView(ctx, d.ID)
		require.NoError(t, err)
		require.NotNil(t, view.CurrentTeamID)
		assert.Equal(t, d.DraftOrder[draft.TurnIndex(k, 4)], *view.CurrentTeamID, "pick %d", k)
		require.NotEmpty(t, view.AvailablePlayers)

		p := view.AvailablePlayers[0]
		f.clock.Advance(5 * time.Second)
		res, err := f.app.SubmitPick(ctx, draft.MakePickRequest{DraftID: d.ID, TeamID: *view.CurrentTeamID, PlayerID: p.ID})
		require.NoError(t, err, "pick %d", k)
		assert.Equal(t, k, res.Pick.PickNumber)
		assert.Equal(t, draft.RoundForPick(k, 4), res.Pick.Round)
		assert.False(t, res.Pick.IsAutoPick)
		assert.False(t, seen[p.ID], "player drafted twice")
		seen[p.ID] = true

		got, err := f.app.GetDraft(ctx, d.ID)
		require.NoError(t, err)
		picks, err := f.app.ListDraftPicks(ctx, d.ID)
		require.NoError(t, err)
		assert.Len(t, picks, k)
		if k < 24 {
			assert.Equal(t, k+1, got.CurrentPick)
			assert.Equal(t, models.DraftStatusInProgress, got.Status)
			call, ok := f.timer.get(d.ID)
			require.True(t, ok)
			assert.Equal(t, k+1, call.pickNumber)
		} else {
			assert.True(t, res.Completed)
			assert.Equal(t, models.DraftStatusCompleted, got.Status)
			assert.Equal(t, 24, got.CurrentPick)
			require.NotNil(t, got.CompletedAt)
		}
	}

	_, armed := f.timer.get(d.ID)
	assert.False(t, armed)
	assert.True(t, f.timer.cancelled[d.ID])

	for _, team := range f.teams {
		entries, err := f.store.ListRoster(ctx, team.ID)
		require.NoError(t, err)
		assert.Len(t, entries, 6)
		for _, e := range entries {
			assert.Equal(t, models.AcquisitionTypeDraft, e.AcquisitionType)
		}
	}

	league, err := f.store.GetLeague(ctx, f.league.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LeagueStatusInSeason, league.Status)

	// DraftStarted, PickStarted, then PickMade+PickStarted per pick with the
	// last pick closing on DraftCompleted.
	evts := f.store.OutboxEvents(d.ID)
	require.Len(t, evts, 2+24*2)
	assert.Equal(t, events.TypePickMade, evts[len(evts)-2].EventType)
	assert.Equal(t, events.TypeDraftCompleted, evts[len(evts)-1].EventType)
	for i := 1; i < len(evts); i++ {
		assert.Less(t, evts[i-1].Seq, evts[i].Seq)
	}

	view, err := f.app.GetDraftView(ctx, d.ID)
	require.NoError(t, err)
	assert.Nil(t, view.CurrentTeamID)
	assert.Nil(t, view.PickDeadline)
	assert.Equal(t, 24, view.TotalPicks)

	_, err = f.app.SubmitPick(ctx, draft.MakePickRequest{DraftID: d.ID, TeamID: f.teams[0].ID, PlayerID: view.AvailablePlayers[0].ID})
	assert.ErrorIs(t, err, draft.ErrDraftNotInProgress)
}

func TestSubmitPick_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("not started", func(t *testing.T) {
		f := newFixture(t, 2, 2)
		d, err := f.app.CreateDraft(ctx, draft.CreateDraftRequest{LeagueID: f.league.ID, SecondsPerPick: 60})
		require.NoError(t, err)
		_, err = f.app.SubmitPick(ctx, draft.MakePickRequest{DraftID: d.ID, TeamID: f.teams[0].ID, PlayerID: f.players[0].ID})
		assert.ErrorIs(t, err, draft.ErrDraftNotInProgress)
	})

	t.Run("not your turn", func(t *testing.T) {
		f := newFixture(t, 2, 2)
		d := f.createAndStart(t, 60)
		_, err := f.app.SubmitPick(ctx, draft.MakePickRequest{DraftID: d.ID, TeamID: f.teams[1].ID, PlayerID: f.players[0].ID})
		assert.ErrorIs(t, err, draft.ErrNotYourTurn)
	})

	t.Run("already drafted", func(t *testing.T) {
		f := newFixture(t, 2, 2)
		d := f.createAndStart(t, 60)
		_, err := f.app.SubmitPick(ctx, draft.MakePickRequest{DraftID: d.ID, TeamID: f.teams[0].ID, PlayerID: f.players[0].ID})
		require.NoError(t, err)
		_, err = f.app.SubmitPick(ctx, draft.MakePickRequest{DraftID: d.ID, TeamID: f.teams[1].ID, PlayerID: f.players[0].ID})
		assert.ErrorIs(t, err, draft.ErrPlayerAlreadyDrafted)
	})

	t.Run("unknown player", func(t *testing.T) {
		f := newFixture(t, 2, 2)
		d := f.createAndStart(t, 60)
		_, err := f.app.SubmitPick(ctx, draft.MakePickRequest{DraftID: d.ID, TeamID: f.teams[0].ID, PlayerID: uuid.New()})
		assert.ErrorIs(t, err, draft.ErrPlayerNotFound)
	})

	t.Run("inactive player", func(t *testing.T) {
		f := newFixture(t, 2, 2)
		retired := f.store.AddPlayer(models.Player{GamerTag: "retired", IsActive: false})
		d := f.createAndStart(t, 60)
		_, err := f.app.SubmitPick(ctx, draft.MakePickRequest{DraftID: d.ID, TeamID: f.teams[0].ID, PlayerID: retired.ID})
		assert.ErrorIs(t, err, draft.ErrPlayerNotFound)
	})

	t.Run("missing ids", func(t *testing.T) {
		f := newFixture(t, 2, 2)
		_, err := f.app.SubmitPick(ctx, draft.MakePickRequest{})
		assert.ErrorIs(t, err, draft.ErrInvalidArgument)
	})

	t.Run("failed pick leaves counter alone", func(t *testing.T) {
		f := newFixture(t, 2, 2)
		d := f.createAndStart(t, 60)
		_, err := f.app.SubmitPick(ctx, draft.MakePickRequest{DraftID: d.ID, TeamID: f.teams[1].ID, PlayerID: f.players[0].ID})
		require.Error(t, err)
		got, err := f.app.GetDraft(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.CurrentPick)
		assert.Len(t, f.store.OutboxEvents(d.ID), 2)
	})
}

func TestSubmitPick_ConcurrentSamePick(t *testing.T) {
	f := newFixture(t, 4, 6)
	ctx := context.Background()
	d := f.createAndStart(t, 60)
	owner := d.DraftOrder[0]

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		errs      []error
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(player models.Player) {
			defer wg.Done()
			_, err := f.app.SubmitPick(ctx, draft.MakePickRequest{DraftID: d.ID, TeamID: owner, PlayerID: player.ID})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			errs = append(errs, err)
		}(f.players[i])
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	for _, err := range errs {
		assert.ErrorIs(t, err, draft.ErrNotYourTurn)
	}

	picks, err := f.app.ListDraftPicks(ctx, d.ID)
	require.NoError(t, err)
	assert.Len(t, picks, 1)
	got, err := f.app.GetDraft(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CurrentPick)
}

func TestSubmitAutoPick(t *testing.T) {
	f := newFixture(t, 2, 2)
	ctx := context.Background()
	d := f.createAndStart(t, 60)

	_, err := f.app.SubmitAutoPick(ctx, d.ID, 2, f.players[0].ID)
	assert.ErrorIs(t, err, draft.ErrStaleTurn)

	res, err := f.app.SubmitAutoPick(ctx, d.ID, 1, f.players[0].ID)
	require.NoError(t, err)
	assert.True(t, res.Pick.IsAutoPick)
	assert.Equal(t, d.DraftOrder[0], res.Pick.TeamID)
	require.NotNil(t, res.NextTeam)
	assert.Equal(t, d.DraftOrder[1], *res.NextTeam)

	_, err = f.app.SubmitAutoPick(ctx, d.ID, 1, f.players[1].ID)
	assert.True(t, errors.Is(err, draft.ErrStaleTurn))
}

func TestGetDraftView_Deadline(t *testing.T) {
	f := newFixture(t, 2, 2)
	ctx := context.Background()

	created, err := f.app.CreateDraft(ctx, draft.CreateDraftRequest{LeagueID: f.league.ID, SecondsPerPick: 45})
	require.NoError(t, err)
	view, err := f.app.GetDraftView(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, view.CurrentTeamID)
	assert.Nil(t, view.PickDeadline)

	d, err := f.app.StartDraft(ctx, created.ID)
	require.NoError(t, err)
	view, err = f.app.GetDraftView(ctx, d.ID)
	require.NoError(t, err)
	require.NotNil(t, view.PickDeadline)
	assert.Equal(t, startTime.Add(45*time.Second), *view.PickDeadline)

	f.clock.Advance(10 * time.Second)
	_, err = f.app.SubmitPick(ctx, draft.MakePickRequest{DraftID: d.ID, TeamID: d.DraftOrder[0], PlayerID: view.AvailablePlayers[0].ID})
	require.NoError(t, err)

	view, err = f.app.GetDraftView(ctx, d.ID)
	require.NoError(t, err)
	require.NotNil(t, view.CurrentTeamID)
	assert.Equal(t, d.DraftOrder[1], *view.CurrentTeamID)
	assert.Equal(t, startTime.Add(55*time.Second), *view.PickDeadline)
	assert.Len(t, view.Picks, 1)
	assert.Len(t, view.AvailablePlayers, len(f.players)-1)
}

func TestListAvailablePlayers_ADPOrder(t *testing.T) {
	f := newFixture(t, 2, 2)
	ctx := context.Background()
	f.store.AddPlayer(models.Player{GamerTag: "aaa-no-adp", IsActive: true})
	d := f.createAndStart(t, 60)

	players, err := f.app.ListAvailablePlayers(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, players, len(f.players)+1)
	assert.Equal(t, f.players[0].ID, players[0].ID)
	assert.Equal(t, "aaa-no-adp", players[len(players)-1].GamerTag)
}

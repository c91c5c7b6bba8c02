package orchestrator_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdlfantasy/league/go/internal/draft"
	"github.com/cdlfantasy/league/go/internal/draft/events"
	"github.com/cdlfantasy/league/go/internal/draft/orchestrator"
	"github.com/cdlfantasy/league/go/internal/draft/outbox"
	"github.com/cdlfantasy/league/go/internal/memstore"
	"github.com/cdlfantasy/league/go/internal/models"
	"github.com/cdlfantasy/league/go/internal/scoring"
)

const secondsPerPick = 30

type nopTimer struct{}

func (nopTimer) Arm(uuid.UUID, int, time.Duration) {}
func (nopTimer) Cancel(uuid.UUID)                  {}

// gatedTimer holds back the arm for one pick until released, so a later
// pick can commit and arm first.
type gatedTimer struct {
	*orchestrator.Scheduler
	holdPick int
	entered  chan struct{}
	release  chan struct{}
}

func (g *gatedTimer) Arm(draftID uuid.UUID, pickNumber int, delay time.Duration) {
	if pickNumber == g.holdPick {
		close(g.entered)
		<-g.release
	}
	g.Scheduler.Arm(draftID, pickNumber, delay)
}

// failingDeadlines fails PickDeadline for one draft.
type failingDeadlines struct {
	orchestrator.DraftApp
	draftID uuid.UUID
}

var errDeadline = errors.New("picks unavailable")

func (f failingDeadlines) PickDeadline(ctx context.Context, d *models.Draft) (time.Time, error) {
	if d.ID == f.draftID {
		return time.Time{}, errDeadline
	}
	return f.DraftApp.PickDeadline(ctx, d)
}

type harness struct {
	store     *memstore.Store
	clock     *clockwork.FakeClock
	scheduler *orchestrator.Scheduler
	app       *draft.App
	orch      *orchestrator.Orchestrator
	teams     []models.FantasyTeam
	players   []models.Player
	league    models.League
}

// newHarness seeds a two-team, two-round league with the given number of
// players and wires the orchestrator to a fake clock.
func newHarness(t *testing.T, players int) *harness {
	t.Helper()
	store := memstore.New()
	league, teams := store.SeedLeague("Auto League", 2, 1, scoring.DefaultRules(), "A", "B")
	h := &harness{
		store:   store,
		clock:   clockwork.NewFakeClock(),
		teams:   teams,
		players: store.SeedPlayers(players),
		league:  league,
	}
	h.wire()
	return h
}

func (h *harness) wire() {
	h.scheduler = orchestrator.NewScheduler(h.clock, 16)
	h.app = draft.NewApp(h.store, h.store, h.store, h.store, h.scheduler, nil, h.clock).
		WithShuffle(func([]uuid.UUID) {})
	outboxApp := outbox.NewApp(h.store, nil, h.clock)
	h.orch = orchestrator.NewOrchestrator(h.app, orchestrator.BestAvailableStrategy{}, outboxApp, h.scheduler, h.clock, 2)
}

func (h *harness) run(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = h.orch.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func (h *harness) start(t *testing.T, app *draft.App) *models.Draft {
	t.Helper()
	ctx := context.Background()
	d, err := app.CreateDraft(ctx, draft.CreateDraftRequest{LeagueID: h.league.ID, SecondsPerPick: secondsPerPick})
	require.NoError(t, err)
	d, err = app.StartDraft(ctx, d.ID)
	require.NoError(t, err)
	return d
}

func (h *harness) waitForPicks(t *testing.T, draftID uuid.UUID, n int) []models.DraftPick {
	t.Helper()
	var picks []models.DraftPick
	require.Eventually(t, func() bool {
		var err error
		picks, err = h.store.ListDraftPicks(context.Background(), draftID)
		return err == nil && len(picks) == n
	}, 2*time.Second, 5*time.Millisecond)
	return picks
}

func (h *harness) waitArmed(t *testing.T, draftID uuid.UUID, pick int) {
	t.Helper()
	require.Eventually(t, func() bool {
		got, ok := h.scheduler.Armed(draftID)
		return ok && got == pick
	}, 2*time.Second, 5*time.Millisecond)
}

func TestOrchestrator_TimeoutAutoPicksBestAvailable(t *testing.T) {
	h := newHarness(t, 6)
	h.run(t)
	d := h.start(t, h.app)

	h.waitArmed(t, d.ID, 1)
	h.clock.Advance(secondsPerPick * time.Second)

	picks := h.waitForPicks(t, d.ID, 1)
	assert.True(t, picks[0].IsAutoPick)
	assert.Equal(t, h.players[0].ID, picks[0].PlayerID)
	assert.Equal(t, d.DraftOrder[0], picks[0].TeamID)

	got, err := h.app.GetDraft(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CurrentPick)
}

func TestOrchestrator_HumanPickBeatsTimer(t *testing.T) {
	h := newHarness(t, 6)
	h.run(t)
	d := h.start(t, h.app)
	ctx := context.Background()

	h.waitArmed(t, d.ID, 1)
	h.clock.Advance(10 * time.Second)
	_, err := h.app.SubmitPick(ctx, draft.MakePickRequest{DraftID: d.ID, TeamID: d.DraftOrder[0], PlayerID: h.players[3].ID})
	require.NoError(t, err)
	h.waitArmed(t, d.ID, 2)

	// Pick 1's original deadline passes with nothing to do.
	h.clock.Advance(20 * time.Second)
	assert.Never(t, func() bool {
		picks, _ := h.store.ListDraftPicks(ctx, d.ID)
		return len(picks) != 1
	}, 100*time.Millisecond, 10*time.Millisecond)

	// Pick 2 times out a full turn after pick 1 was made.
	h.clock.Advance(10 * time.Second)
	picks := h.waitForPicks(t, d.ID, 2)
	assert.False(t, picks[0].IsAutoPick)
	assert.True(t, picks[1].IsAutoPick)
	assert.Equal(t, d.DraftOrder[1], picks[1].TeamID)
	assert.Equal(t, h.players[0].ID, picks[1].PlayerID)
}

func TestOrchestrator_AutoPilotCompletesDraft(t *testing.T) {
	h := newHarness(t, 6)
	h.run(t)
	d := h.start(t, h.app)

	for k := 1; k <= 4; k++ {
		h.waitArmed(t, d.ID, k)
		h.clock.Advance(secondsPerPick * time.Second)
		h.waitForPicks(t, d.ID, k)
	}

	require.Eventually(t, func() bool {
		got, err := h.app.GetDraft(context.Background(), d.ID)
		return err == nil && got.Status == models.DraftStatusCompleted
	}, 2*time.Second, 5*time.Millisecond)

	picks, err := h.store.ListDraftPicks(context.Background(), d.ID)
	require.NoError(t, err)
	wantTeams := []uuid.UUID{d.DraftOrder[0], d.DraftOrder[1], d.DraftOrder[1], d.DraftOrder[0]}
	for i, p := range picks {
		assert.Equal(t, wantTeams[i], p.TeamID, "pick %d", i+1)
		assert.Equal(t, h.players[i].ID, p.PlayerID, "pick %d", i+1)
	}

	_, armed := h.scheduler.Armed(d.ID)
	assert.False(t, armed)
}

func TestOrchestrator_NoPlayersRaisesAlert(t *testing.T) {
	h := newHarness(t, 0)
	h.run(t)
	d := h.start(t, h.app)

	h.waitArmed(t, d.ID, 1)
	h.clock.Advance(secondsPerPick * time.Second)

	var failed outbox.OutboxEvent
	require.Eventually(t, func() bool {
		evts := h.store.OutboxEvents(d.ID)
		last := evts[len(evts)-1]
		if last.EventType != events.TypeAutoPickFailed {
			return false
		}
		failed = last
		return true
	}, 2*time.Second, 5*time.Millisecond)

	var payload events.AutoPickFailedPayload
	require.NoError(t, json.Unmarshal(failed.Payload, &payload))
	assert.Equal(t, 1, payload.PickNumber)
	assert.Equal(t, d.DraftOrder[0].String(), payload.TeamID)
	assert.Contains(t, payload.Reason, draft.ErrNoPlayersAvailable.Error())

	got, err := h.app.GetDraft(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentPick)
	assert.Equal(t, models.DraftStatusInProgress, got.Status)
}

func TestOrchestrator_RecoverRearmsRemainingTime(t *testing.T) {
	h := newHarness(t, 6)
	before := draft.NewApp(h.store, h.store, h.store, h.store, nopTimer{}, nil, h.clock).
		WithShuffle(func([]uuid.UUID) {})
	d := h.start(t, before)

	// The process restarts 10s into pick 1.
	h.clock.Advance(10 * time.Second)
	require.NoError(t, h.orch.Recover(context.Background()))
	pick, ok := h.scheduler.Armed(d.ID)
	require.True(t, ok)
	assert.Equal(t, 1, pick)
	h.run(t)

	h.clock.Advance(19 * time.Second)
	assert.Never(t, func() bool {
		picks, _ := h.store.ListDraftPicks(context.Background(), d.ID)
		return len(picks) > 0
	}, 100*time.Millisecond, 10*time.Millisecond)

	h.clock.Advance(time.Second)
	picks := h.waitForPicks(t, d.ID, 1)
	assert.True(t, picks[0].IsAutoPick)
}

func TestOrchestrator_RecoverFiresExpiredTurns(t *testing.T) {
	h := newHarness(t, 6)
	before := draft.NewApp(h.store, h.store, h.store, h.store, nopTimer{}, nil, h.clock).
		WithShuffle(func([]uuid.UUID) {})
	d := h.start(t, before)

	h.clock.Advance(5 * time.Minute)
	h.run(t)
	require.NoError(t, h.orch.Recover(context.Background()))

	picks := h.waitForPicks(t, d.ID, 1)
	assert.True(t, picks[0].IsAutoPick)
	assert.Equal(t, h.players[0].ID, picks[0].PlayerID)
}

func TestOrchestrator_LateArmDoesNotStrandLiveTurn(t *testing.T) {
	h := newHarness(t, 6)
	gate := &gatedTimer{
		Scheduler: h.scheduler,
		holdPick:  2,
		entered:   make(chan struct{}),
		release:   make(chan struct{}),
	}
	app := draft.NewApp(h.store, h.store, h.store, h.store, gate, nil, h.clock).
		WithShuffle(func([]uuid.UUID) {})
	d := h.start(t, app)
	ctx := context.Background()

	firstDone := make(chan error, 1)
	go func() {
		_, err := app.SubmitPick(ctx, draft.MakePickRequest{DraftID: d.ID, TeamID: d.DraftOrder[0], PlayerID: h.players[0].ID})
		firstDone <- err
	}()
	select {
	case <-gate.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("pick 1 never armed pick 2")
	}

	_, err := app.SubmitPick(ctx, draft.MakePickRequest{DraftID: d.ID, TeamID: d.DraftOrder[1], PlayerID: h.players[1].ID})
	require.NoError(t, err)
	h.waitArmed(t, d.ID, 3)

	close(gate.release)
	require.NoError(t, <-firstDone)
	pick, ok := h.scheduler.Armed(d.ID)
	require.True(t, ok)
	assert.Equal(t, 3, pick)

	h.run(t)
	h.clock.Advance(secondsPerPick * time.Second)
	picks := h.waitForPicks(t, d.ID, 3)
	assert.True(t, picks[2].IsAutoPick)
	assert.Equal(t, d.DraftOrder[1], picks[2].TeamID)
	assert.Equal(t, h.players[2].ID, picks[2].PlayerID)
}

func TestOrchestrator_RecoverContinuesPastFailedDraft(t *testing.T) {
	h := newHarness(t, 6)
	before := draft.NewApp(h.store, h.store, h.store, h.store, nopTimer{}, nil, h.clock).
		WithShuffle(func([]uuid.UUID) {})
	broken := h.start(t, before)

	ctx := context.Background()
	other, _ := h.store.SeedLeague("Second League", 2, 1, scoring.DefaultRules(), "C", "D")
	healthy, err := before.CreateDraft(ctx, draft.CreateDraftRequest{LeagueID: other.ID, SecondsPerPick: secondsPerPick})
	require.NoError(t, err)
	_, err = before.StartDraft(ctx, healthy.ID)
	require.NoError(t, err)

	orch := orchestrator.NewOrchestrator(
		failingDeadlines{DraftApp: h.app, draftID: broken.ID},
		orchestrator.BestAvailableStrategy{},
		outbox.NewApp(h.store, nil, h.clock),
		h.scheduler, h.clock, 1,
	)
	err = orch.Recover(ctx)
	assert.ErrorIs(t, err, errDeadline)

	pick, ok := h.scheduler.Armed(healthy.ID)
	require.True(t, ok)
	assert.Equal(t, 1, pick)
	_, ok = h.scheduler.Armed(broken.ID)
	assert.False(t, ok)
}

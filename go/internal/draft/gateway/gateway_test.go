package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdlfantasy/league/go/internal/draft"
	"github.com/cdlfantasy/league/go/internal/draft/events"
	"github.com/cdlfantasy/league/go/internal/draft/gateway"
	"github.com/cdlfantasy/league/go/internal/draft/outbox"
	"github.com/cdlfantasy/league/go/internal/memstore"
	"github.com/cdlfantasy/league/go/internal/models"
	"github.com/cdlfantasy/league/go/internal/scoring"
)

type nopTimer struct{}

func (nopTimer) Arm(uuid.UUID, int, time.Duration) {}
func (nopTimer) Cancel(uuid.UUID)                  {}

type gatewayFixture struct {
	server  *httptest.Server
	app     *draft.App
	draft   *models.Draft
	players []models.Player
}

// newGatewayFixture serves the gateway for a started two-team draft, with
// the outbox relayed in-process to the websocket rooms.
func newGatewayFixture(t *testing.T) *gatewayFixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	store := memstore.New()
	league, _ := store.SeedLeague("Gateway League", 2, 1, scoring.DefaultRules(), "A", "B")
	players := store.SeedPlayers(6)
	clock := clockwork.NewFakeClockAt(time.Date(2025, 1, 10, 18, 0, 0, 0, time.UTC))

	cm := gateway.NewConnectionManager(gateway.DefaultConnectionConfig())
	relay := outbox.NewRelay(store, gateway.NewLocalPublisher(cm), outbox.DefaultConfig(), clock)
	app := draft.NewApp(store, store, store, store, nopTimer{}, relay, clock).WithShuffle(func([]uuid.UUID) {})

	svc := gateway.NewService(cm, app, app, clock)
	go svc.Start(ctx)
	require.NoError(t, relay.Start(ctx))
	t.Cleanup(func() { _ = relay.Stop() })

	r := chi.NewRouter()
	svc.RegisterRoutes(r)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	d, err := app.CreateDraft(ctx, draft.CreateDraftRequest{LeagueID: league.ID, SecondsPerPick: 60})
	require.NoError(t, err)
	d, err = app.StartDraft(ctx, d.ID)
	require.NoError(t, err)

	return &gatewayFixture{server: server, app: app, draft: d, players: players}
}

func (f *gatewayFixture) wsURL(draftID uuid.UUID) string {
	return "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws/draft?draft_id=" + draftID.String() + "&user_id=tester"
}

func (f *gatewayFixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(f.wsURL(f.draft.ID), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) gateway.DraftEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev gateway.DraftEvent
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

// readUntil skips frames until one of type want arrives. Start-of-draft
// events may still be in flight when a test connects.
func readUntil(t *testing.T, conn *websocket.Conn, want gateway.EventType) gateway.DraftEvent {
	t.Helper()
	for {
		ev := readEvent(t, conn)
		if ev.Type == want {
			return ev
		}
	}
}

func TestDraftSocket_SnapshotFirst(t *testing.T) {
	f := newGatewayFixture(t)
	conn := f.dial(t)

	ev := readEvent(t, conn)
	require.Equal(t, gateway.EventTypeDraftState, ev.Type)
	assert.Equal(t, f.draft.ID.String(), ev.DraftID)

	var state gateway.DraftState
	require.NoError(t, json.Unmarshal(ev.Data, &state))
	assert.Equal(t, string(models.DraftStatusInProgress), state.Status)
	assert.Equal(t, 4, state.TotalPicks)
	require.NotNil(t, state.CurrentPick)
	assert.Equal(t, 1, state.CurrentPick.PickNumber)
	assert.Equal(t, f.draft.DraftOrder[0].String(), state.CurrentPick.TeamID)
	assert.Equal(t, 60, state.CurrentPick.TimeRemainingSec)
}

func TestDraftSocket_MakePickBroadcasts(t *testing.T) {
	f := newGatewayFixture(t)
	watcher := f.dial(t)
	picker := f.dial(t)
	readEvent(t, watcher)
	readEvent(t, picker)

	require.NoError(t, picker.WriteJSON(gateway.ClientMessage{
		Type:     "MakePick",
		TeamID:   f.draft.DraftOrder[0],
		PlayerID: f.players[2].ID,
	}))

	for _, conn := range []*websocket.Conn{watcher, picker} {
		made := readUntil(t, conn, gateway.EventTypePickMade)
		assert.NotZero(t, made.Sequence)
		payload, err := gateway.ParseEventPayload(&made)
		require.NoError(t, err)
		pick := payload.(*events.PickMadePayload)
		assert.Equal(t, f.players[2].ID.String(), pick.PlayerID)
		assert.Equal(t, 1, pick.PickNumber)

		next := readUntil(t, conn, gateway.EventTypePickStarted)
		assert.Greater(t, next.Sequence, made.Sequence)
	}
}

func TestDraftSocket_RejectedCommandGoesToSenderOnly(t *testing.T) {
	f := newGatewayFixture(t)
	conn := f.dial(t)
	readEvent(t, conn)

	require.NoError(t, conn.WriteJSON(gateway.ClientMessage{
		Type:     "MakePick",
		TeamID:   f.draft.DraftOrder[1],
		PlayerID: f.players[0].ID,
	}))
	ev := readUntil(t, conn, gateway.EventTypeError)
	var payload gateway.ErrorPayload
	require.NoError(t, json.Unmarshal(ev.Data, &payload))
	assert.Equal(t, "failed_precondition", payload.Code)
	assert.Equal(t, draft.ErrNotYourTurn.Error(), payload.Message)

	require.NoError(t, conn.WriteJSON(gateway.ClientMessage{Type: "Trade"}))
	ev = readUntil(t, conn, gateway.EventTypeError)
	require.NoError(t, json.Unmarshal(ev.Data, &payload))
	assert.Equal(t, "invalid_argument", payload.Code)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	ev = readUntil(t, conn, gateway.EventTypeError)
	require.NoError(t, json.Unmarshal(ev.Data, &payload))
	assert.Equal(t, "invalid_argument", payload.Code)
}

func TestDraftSocket_BadRequests(t *testing.T) {
	f := newGatewayFixture(t)

	_, resp, err := websocket.DefaultDialer.Dial(f.wsURL(uuid.New()), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	bad := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws/draft?draft_id=nope"
	_, resp, err = websocket.DefaultDialer.Dial(bad, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStateEndpoints(t *testing.T) {
	f := newGatewayFixture(t)

	resp, err := http.Get(f.server.URL + "/api/drafts/" + f.draft.ID.String() + "/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var state gateway.DraftState
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	assert.Equal(t, f.draft.ID.String(), state.DraftID)
	assert.Len(t, state.DraftOrder, 2)

	missing, err := http.Get(f.server.URL + "/api/drafts/" + uuid.NewString() + "/state")
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)

	active, err := http.Get(f.server.URL + "/api/drafts/active")
	require.NoError(t, err)
	defer active.Body.Close()
	var summaries []gateway.DraftSummary
	require.NoError(t, json.NewDecoder(active.Body).Decode(&summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, f.draft.ID.String(), summaries[0].DraftID)
	assert.Equal(t, 2, summaries[0].TotalTeams)
}

func TestConnectionStats(t *testing.T) {
	f := newGatewayFixture(t)
	conn := f.dial(t)
	readEvent(t, conn)

	resp, err := http.Get(f.server.URL + "/ws/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	var stats gateway.ConnectionStats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, 1, stats.TotalConnections)
	assert.Equal(t, 1, stats.DraftConnections[f.draft.ID.String()])
}

func TestFromEnvelope(t *testing.T) {
	env := events.Envelope{
		EventID:   uuid.NewString(),
		EventType: events.TypePickStarted,
		DraftID:   uuid.NewString(),
		Sequence:  42,
		Payload:   json.RawMessage(`{"pick_number":3}`),
	}
	ev, err := gateway.FromEnvelope(env)
	require.NoError(t, err)
	assert.Equal(t, gateway.EventTypePickStarted, ev.Type)
	assert.Equal(t, int64(42), ev.Sequence)
	assert.JSONEq(t, `{"pick_number":3}`, string(ev.Data))

	env.EventType = "LeagueRenamed"
	_, err = gateway.FromEnvelope(env)
	assert.Error(t, err)
}

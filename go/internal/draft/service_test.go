package draft_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdlfantasy/league/go/internal/draft"
	"github.com/cdlfantasy/league/go/internal/models"
	"github.com/cdlfantasy/league/go/internal/rpcjson"
)

func newClient[Req, Res any](server *httptest.Server, method string) *connect.Client[Req, Res] {
	return connect.NewClient[Req, Res](
		http.DefaultClient,
		server.URL+draft.ServicePath+method,
		connect.WithCodec(rpcjson.Codec{}),
	)
}

func TestService_DraftOverRPC(t *testing.T) {
	f := newFixture(t, 2, 2)
	server := httptest.NewServer(draft.NewService(f.app).Handler())
	defer server.Close()
	ctx := context.Background()

	create := newClient[draft.CreateDraftRequest, draft.DraftResponse](server, "CreateDraft")
	start := newClient[draft.DraftIDRequest, draft.DraftResponse](server, "StartDraft")
	pick := newClient[draft.MakePickRequest, draft.PickResult](server, "MakePick")
	view := newClient[draft.DraftIDRequest, draft.DraftView](server, "GetDraftView")

	created, err := create.CallUnary(ctx, connect.NewRequest(&draft.CreateDraftRequest{LeagueID: f.league.ID, SecondsPerPick: 45}))
	require.NoError(t, err)
	draftID := created.Msg.Draft.ID
	assert.Equal(t, models.DraftStatusNotStarted, created.Msg.Draft.Status)

	started, err := start.CallUnary(ctx, connect.NewRequest(&draft.DraftIDRequest{DraftID: draftID}))
	require.NoError(t, err)
	assert.Equal(t, 1, started.Msg.Draft.CurrentPick)
	owner := started.Msg.Draft.DraftOrder[0]

	made, err := pick.CallUnary(ctx, connect.NewRequest(&draft.MakePickRequest{DraftID: draftID, TeamID: owner, PlayerID: f.players[0].ID}))
	require.NoError(t, err)
	assert.Equal(t, 1, made.Msg.Pick.PickNumber)
	assert.Equal(t, f.players[0].GamerTag, made.Msg.Player.GamerTag)

	got, err := view.CallUnary(ctx, connect.NewRequest(&draft.DraftIDRequest{DraftID: draftID}))
	require.NoError(t, err)
	assert.Len(t, got.Msg.Picks, 1)
	require.NotNil(t, got.Msg.CurrentTeamID)
	assert.Equal(t, started.Msg.Draft.DraftOrder[1], *got.Msg.CurrentTeamID)
}

func TestService_ErrorCodes(t *testing.T) {
	f := newFixture(t, 2, 2)
	server := httptest.NewServer(draft.NewService(f.app).Handler())
	defer server.Close()
	ctx := context.Background()
	d := f.createAndStart(t, 60)

	pick := newClient[draft.MakePickRequest, draft.PickResult](server, "MakePick")
	start := newClient[draft.DraftIDRequest, draft.DraftResponse](server, "StartDraft")
	create := newClient[draft.CreateDraftRequest, draft.DraftResponse](server, "CreateDraft")

	tests := []struct {
		name string
		call func() error
		want connect.Code
	}{
		{
			name: "not your turn",
			call: func() error {
				_, err := pick.CallUnary(ctx, connect.NewRequest(&draft.MakePickRequest{DraftID: d.ID, TeamID: d.DraftOrder[1], PlayerID: f.players[0].ID}))
				return err
			},
			want: connect.CodeFailedPrecondition,
		},
		{
			name: "unknown player",
			call: func() error {
				_, err := pick.CallUnary(ctx, connect.NewRequest(&draft.MakePickRequest{DraftID: d.ID, TeamID: d.DraftOrder[0], PlayerID: uuid.New()}))
				return err
			},
			want: connect.CodeNotFound,
		},
		{
			name: "missing ids",
			call: func() error {
				_, err := pick.CallUnary(ctx, connect.NewRequest(&draft.MakePickRequest{}))
				return err
			},
			want: connect.CodeInvalidArgument,
		},
		{
			name: "already started",
			call: func() error {
				_, err := start.CallUnary(ctx, connect.NewRequest(&draft.DraftIDRequest{DraftID: d.ID}))
				return err
			},
			want: connect.CodeFailedPrecondition,
		},
		{
			name: "unknown draft",
			call: func() error {
				_, err := start.CallUnary(ctx, connect.NewRequest(&draft.DraftIDRequest{DraftID: uuid.New()}))
				return err
			},
			want: connect.CodeNotFound,
		},
		{
			name: "unknown league",
			call: func() error {
				_, err := create.CallUnary(ctx, connect.NewRequest(&draft.CreateDraftRequest{LeagueID: uuid.New(), SecondsPerPick: 60}))
				return err
			},
			want: connect.CodeNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.Equal(t, tt.want, connect.CodeOf(err))
		})
	}
}

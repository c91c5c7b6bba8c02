package roster

import (
	"context"
	"errors"

	"connectrpc.com/connect"
	"github.com/cdlfantasy/league/go/internal/models"
	"github.com/cdlfantasy/league/go/internal/rpcjson"
	"github.com/google/uuid"
)

// ServicePath is the route prefix of the roster RPC service.
const ServicePath = "/roster.v1.RosterService/"

// RosterApp defines what the service layer needs from the roster application
type RosterApp interface {
	ListRoster(ctx context.Context, fantasyTeamID uuid.UUID) ([]models.RosterEntry, error)
	GetLineup(ctx context.Context, fantasyTeamID, periodID uuid.UUID) (*models.Lineup, error)
	SetLineup(ctx context.Context, req SetLineupRequest) (*models.Lineup, error)
	LockLineups(ctx context.Context, periodID uuid.UUID) (int, error)
}

type ListRosterRequest struct {
	FantasyTeamID uuid.UUID `json:"fantasy_team_id"`
}

type ListRosterResponse struct {
	Entries []models.RosterEntry `json:"entries"`
}

type GetLineupRequest struct {
	FantasyTeamID   uuid.UUID `json:"fantasy_team_id"`
	ScoringPeriodID uuid.UUID `json:"scoring_period_id"`
}

type LineupResponse struct {
	Lineup *models.Lineup `json:"lineup"`
}

type LockLineupsRequest struct {
	ScoringPeriodID uuid.UUID `json:"scoring_period_id"`
}

type LockLineupsResponse struct {
	Locked int `json:"locked"`
}

// Service implements the RosterService RPCs
type Service struct {
	app RosterApp
}

// NewService creates a new roster RPC service
func NewService(app RosterApp) *Service {
	return &Service{app: app}
}

// Handler returns the connect handler serving ServicePath.
func (s *Service) Handler(opts ...connect.HandlerOption) *rpcjson.Mux {
	mux := rpcjson.NewMux(opts...)
	rpcjson.Handle(mux, ServicePath+"ListRoster", s.ListRoster)
	rpcjson.Handle(mux, ServicePath+"SetLineup", s.SetLineup)
	rpcjson.Handle(mux, ServicePath+"GetLineup", s.GetLineup)
	rpcjson.Handle(mux, ServicePath+"LockLineups", s.LockLineups)
	return mux
}

func (s *Service) ListRoster(ctx context.Context, req *ListRosterRequest) (*ListRosterResponse, error) {
	entries, err := s.app.ListRoster(ctx, req.FantasyTeamID)
	if err != nil {
		return nil, rpcjson.Error(err, errorCode)
	}
	if entries == nil {
		entries = []models.RosterEntry{}
	}
	return &ListRosterResponse{Entries: entries}, nil
}

func (s *Service) SetLineup(ctx context.Context, req *SetLineupRequest) (*LineupResponse, error) {
	lineup, err := s.app.SetLineup(ctx, *req)
	if err != nil {
		return nil, rpcjson.Error(err, errorCode)
	}
	return &LineupResponse{Lineup: lineup}, nil
}

func (s *Service) GetLineup(ctx context.Context, req *GetLineupRequest) (*LineupResponse, error) {
	if req.FantasyTeamID == uuid.Nil || req.ScoringPeriodID == uuid.Nil {
		return nil, rpcjson.InvalidArgument("fantasy_team_id and scoring_period_id are required")
	}
	lineup, err := s.app.GetLineup(ctx, req.FantasyTeamID, req.ScoringPeriodID)
	if err != nil {
		return nil, rpcjson.Error(err, errorCode)
	}
	return &LineupResponse{Lineup: lineup}, nil
}

func (s *Service) LockLineups(ctx context.Context, req *LockLineupsRequest) (*LockLineupsResponse, error) {
	n, err := s.app.LockLineups(ctx, req.ScoringPeriodID)
	if err != nil {
		return nil, rpcjson.Error(err, errorCode)
	}
	return &LockLineupsResponse{Locked: n}, nil
}

func errorCode(err error) (connect.Code, bool) {
	switch {
	case errors.Is(err, ErrValidation):
		return connect.CodeInvalidArgument, true
	case errors.Is(err, ErrLineupLocked),
		errors.Is(err, ErrStarterCount),
		errors.Is(err, ErrInvalidRosterSlot),
		errors.Is(err, ErrDuplicateSlot):
		return connect.CodeFailedPrecondition, true
	}
	return 0, false
}

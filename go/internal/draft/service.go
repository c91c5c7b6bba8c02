package draft

import (
	"context"
	"errors"

	"connectrpc.com/connect"
	"github.com/cdlfantasy/league/go/internal/models"
	"github.com/cdlfantasy/league/go/internal/rpcjson"
	"github.com/google/uuid"
)

// ServicePath is the route prefix of the draft RPC service.
const ServicePath = "/draft.v1.DraftService/"

// DraftApp defines what the service layer needs from the draft application
type DraftApp interface {
	CreateDraft(ctx context.Context, req CreateDraftRequest) (*models.Draft, error)
	StartDraft(ctx context.Context, draftID uuid.UUID) (*models.Draft, error)
	SubmitPick(ctx context.Context, req MakePickRequest) (*PickResult, error)
	GetDraftView(ctx context.Context, draftID uuid.UUID) (*DraftView, error)
}

// DraftIDRequest addresses a single draft
type DraftIDRequest struct {
	DraftID uuid.UUID `json:"draft_id"`
}

// DraftResponse wraps a draft
type DraftResponse struct {
	Draft *models.Draft `json:"draft"`
}

// Service implements the DraftService RPCs
type Service struct {
	app DraftApp
}

// NewService creates a new draft RPC service
func NewService(app DraftApp) *Service {
	return &Service{app: app}
}

// Handler returns the connect handler serving ServicePath.
func (s *Service) Handler(opts ...connect.HandlerOption) *rpcjson.Mux {
	mux := rpcjson.NewMux(opts...)
	rpcjson.Handle(mux, ServicePath+"CreateDraft", s.CreateDraft)
	rpcjson.Handle(mux, ServicePath+"StartDraft", s.StartDraft)
	rpcjson.Handle(mux, ServicePath+"MakePick", s.MakePick)
	rpcjson.Handle(mux, ServicePath+"GetDraftView", s.GetDraftView)
	return mux
}

// CreateDraft creates the league's draft, or returns the existing one
func (s *Service) CreateDraft(ctx context.Context, req *CreateDraftRequest) (*DraftResponse, error) {
	d, err := s.app.CreateDraft(ctx, *req)
	if err != nil {
		return nil, rpcjson.Error(err, ErrorCode)
	}
	return &DraftResponse{Draft: d}, nil
}

// StartDraft randomises the draft order and opens pick 1
func (s *Service) StartDraft(ctx context.Context, req *DraftIDRequest) (*DraftResponse, error) {
	if req.DraftID == uuid.Nil {
		return nil, rpcjson.InvalidArgument("draft_id is required")
	}
	d, err := s.app.StartDraft(ctx, req.DraftID)
	if err != nil {
		return nil, rpcjson.Error(err, ErrorCode)
	}
	return &DraftResponse{Draft: d}, nil
}

// MakePick submits a human pick for the team on the clock
func (s *Service) MakePick(ctx context.Context, req *MakePickRequest) (*PickResult, error) {
	res, err := s.app.SubmitPick(ctx, *req)
	if err != nil {
		return nil, rpcjson.Error(err, ErrorCode)
	}
	return res, nil
}

// GetDraftView returns the draft room state
func (s *Service) GetDraftView(ctx context.Context, req *DraftIDRequest) (*DraftView, error) {
	if req.DraftID == uuid.Nil {
		return nil, rpcjson.InvalidArgument("draft_id is required")
	}
	view, err := s.app.GetDraftView(ctx, req.DraftID)
	if err != nil {
		return nil, rpcjson.Error(err, ErrorCode)
	}
	return view, nil
}

// ErrorCode maps draft errors to connect codes.
func ErrorCode(err error) (connect.Code, bool) {
	switch {
	case errors.Is(err, ErrInvalidArgument):
		return connect.CodeInvalidArgument, true
	case errors.Is(err, ErrDraftNotFound), errors.Is(err, ErrPlayerNotFound):
		return connect.CodeNotFound, true
	case errors.Is(err, ErrNotYourTurn),
		errors.Is(err, ErrPlayerAlreadyDrafted),
		errors.Is(err, ErrDraftNotInProgress),
		errors.Is(err, ErrAlreadyStarted),
		errors.Is(err, ErrNotEnoughParticipants),
		errors.Is(err, ErrNoPlayersAvailable):
		return connect.CodeFailedPrecondition, true
	}
	return 0, false
}

package scoring

import (
	"context"
	"errors"

	"connectrpc.com/connect"
	"github.com/cdlfantasy/league/go/internal/models"
	"github.com/cdlfantasy/league/go/internal/rpcjson"
	"github.com/google/uuid"
)

// ServicePath is the route prefix of the scoring RPC service.
const ServicePath = "/scoring.v1.ScoringService/"

// ScoringApp defines what the service layer needs from the scoring application
type ScoringApp interface {
	ScoreMatch(ctx context.Context, matchID, leagueID uuid.UUID) (int, error)
	UpdateTeamTotals(ctx context.Context, leagueID, periodID uuid.UUID) ([]models.TeamTotal, error)
	ResolveMatchups(ctx context.Context, periodID uuid.UUID) ([]MatchupResult, error)
	RescoreLeague(ctx context.Context, leagueID uuid.UUID) (RescoreSummary, error)
	UpdateScoringRules(ctx context.Context, leagueID uuid.UUID, rules models.ScoringRules) (RescoreSummary, error)

	GetStandings(ctx context.Context, leagueID uuid.UUID) ([]StandingsEntry, error)
	GetPeriodStandings(ctx context.Context, leagueID, periodID uuid.UUID) (*PeriodStandings, error)
	ListMatchups(ctx context.Context, leagueID, periodID uuid.UUID) ([]models.Matchup, error)
	GetMatchup(ctx context.Context, matchupID uuid.UUID) (*models.Matchup, error)
}

type ComputePointsRequest struct {
	StatLine models.StatLine `json:"stat_line"`
	// Rules defaults to the stock weights when omitted.
	Rules *models.ScoringRules `json:"rules,omitempty"`
}

type ComputePointsResponse struct {
	Breakdown models.PointsBreakdown `json:"breakdown"`
	Rounded   float64                `json:"rounded_total"`
}

type ScoreMatchRequest struct {
	MatchID  uuid.UUID `json:"match_id"`
	LeagueID uuid.UUID `json:"league_id"`
}

type ScoreMatchResponse struct {
	LinesScored int `json:"lines_scored"`
}

type UpdateTeamTotalsRequest struct {
	LeagueID        uuid.UUID `json:"league_id"`
	ScoringPeriodID uuid.UUID `json:"scoring_period_id"`
}

type UpdateTeamTotalsResponse struct {
	Totals []models.TeamTotal `json:"totals"`
}

type ResolveMatchupsRequest struct {
	ScoringPeriodID uuid.UUID `json:"scoring_period_id"`
}

type ResolveMatchupsResponse struct {
	Results []MatchupResult `json:"results"`
}

type RescoreLeagueRequest struct {
	LeagueID uuid.UUID `json:"league_id"`
}

type UpdateScoringRulesRequest struct {
	LeagueID uuid.UUID           `json:"league_id"`
	Rules    models.ScoringRules `json:"rules"`
}

type GetStandingsRequest struct {
	LeagueID uuid.UUID `json:"league_id"`
}

type GetStandingsResponse struct {
	Standings []StandingsEntry `json:"standings"`
}

type GetPeriodStandingsRequest struct {
	LeagueID        uuid.UUID `json:"league_id"`
	ScoringPeriodID uuid.UUID `json:"scoring_period_id"`
}

type ListMatchupsRequest struct {
	LeagueID uuid.UUID `json:"league_id"`
	// ScoringPeriodID narrows the list to one period when set.
	ScoringPeriodID uuid.UUID `json:"scoring_period_id"`
}

type ListMatchupsResponse struct {
	Matchups []models.Matchup `json:"matchups"`
}

type GetMatchupRequest struct {
	MatchupID uuid.UUID `json:"matchup_id"`
}

type MatchupResponse struct {
	Matchup models.Matchup `json:"matchup"`
}

// Service implements the ScoringService RPCs
type Service struct {
	app ScoringApp
}

// NewService creates a new scoring RPC service
func NewService(app ScoringApp) *Service {
	return &Service{app: app}
}

// Handler returns the connect handler serving ServicePath.
func (s *Service) Handler(opts ...connect.HandlerOption) *rpcjson.Mux {
	mux := rpcjson.NewMux(opts...)
	rpcjson.Handle(mux, ServicePath+"ComputePoints", s.ComputePoints)
	rpcjson.Handle(mux, ServicePath+"ScoreMatch", s.ScoreMatch)
	rpcjson.Handle(mux, ServicePath+"UpdateTeamTotals", s.UpdateTeamTotals)
	rpcjson.Handle(mux, ServicePath+"ResolveMatchups", s.ResolveMatchups)
	rpcjson.Handle(mux, ServicePath+"RescoreLeague", s.RescoreLeague)
	rpcjson.Handle(mux, ServicePath+"UpdateScoringRules", s.UpdateScoringRules)
	rpcjson.Handle(mux, ServicePath+"GetStandings", s.GetStandings)
	rpcjson.Handle(mux, ServicePath+"GetPeriodStandings", s.GetPeriodStandings)
	rpcjson.Handle(mux, ServicePath+"ListMatchups", s.ListMatchups)
	rpcjson.Handle(mux, ServicePath+"GetMatchup", s.GetMatchup)
	return mux
}

// ComputePoints scores a single stat line without storing anything
func (s *Service) ComputePoints(_ context.Context, req *ComputePointsRequest) (*ComputePointsResponse, error) {
	rules := DefaultRules()
	if req.Rules != nil {
		if err := validateRules(*req.Rules); err != nil {
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
		rules = *req.Rules
	}
	b := ComputePoints(req.StatLine, rules)
	return &ComputePointsResponse{Breakdown: b, Rounded: RoundPoints(b.Total)}, nil
}

func (s *Service) ScoreMatch(ctx context.Context, req *ScoreMatchRequest) (*ScoreMatchResponse, error) {
	n, err := s.app.ScoreMatch(ctx, req.MatchID, req.LeagueID)
	if err != nil {
		return nil, rpcjson.Error(err, errorCode)
	}
	return &ScoreMatchResponse{LinesScored: n}, nil
}

// UpdateTeamTotals recomputes a period's team totals, rounded for display
func (s *Service) UpdateTeamTotals(ctx context.Context, req *UpdateTeamTotalsRequest) (*UpdateTeamTotalsResponse, error) {
	totals, err := s.app.UpdateTeamTotals(ctx, req.LeagueID, req.ScoringPeriodID)
	if err != nil {
		return nil, rpcjson.Error(err, errorCode)
	}
	for i := range totals {
		totals[i].StarterPoints = RoundPoints(totals[i].StarterPoints)
		totals[i].BenchPoints = RoundPoints(totals[i].BenchPoints)
	}
	return &UpdateTeamTotalsResponse{Totals: totals}, nil
}

func (s *Service) ResolveMatchups(ctx context.Context, req *ResolveMatchupsRequest) (*ResolveMatchupsResponse, error) {
	if req.ScoringPeriodID == uuid.Nil {
		return nil, rpcjson.InvalidArgument("scoring_period_id is required")
	}
	results, err := s.app.ResolveMatchups(ctx, req.ScoringPeriodID)
	if err != nil {
		return nil, rpcjson.Error(err, errorCode)
	}
	for i := range results {
		results[i].Team1Score = RoundPoints(results[i].Team1Score)
		results[i].Team2Score = RoundPoints(results[i].Team2Score)
	}
	return &ResolveMatchupsResponse{Results: results}, nil
}

func (s *Service) RescoreLeague(ctx context.Context, req *RescoreLeagueRequest) (*RescoreSummary, error) {
	summary, err := s.app.RescoreLeague(ctx, req.LeagueID)
	if err != nil {
		return nil, rpcjson.Error(err, errorCode)
	}
	return &summary, nil
}

func (s *Service) UpdateScoringRules(ctx context.Context, req *UpdateScoringRulesRequest) (*RescoreSummary, error) {
	summary, err := s.app.UpdateScoringRules(ctx, req.LeagueID, req.Rules)
	if err != nil {
		return nil, rpcjson.Error(err, errorCode)
	}
	return &summary, nil
}

func (s *Service) GetStandings(ctx context.Context, req *GetStandingsRequest) (*GetStandingsResponse, error) {
	standings, err := s.app.GetStandings(ctx, req.LeagueID)
	if err != nil {
		return nil, rpcjson.Error(err, errorCode)
	}
	for i := range standings {
		standings[i].TotalPoints = RoundPoints(standings[i].TotalPoints)
	}
	return &GetStandingsResponse{Standings: standings}, nil
}

func (s *Service) GetPeriodStandings(ctx context.Context, req *GetPeriodStandingsRequest) (*PeriodStandings, error) {
	standings, err := s.app.GetPeriodStandings(ctx, req.LeagueID, req.ScoringPeriodID)
	if err != nil {
		return nil, rpcjson.Error(err, errorCode)
	}
	for i := range standings.Rankings {
		standings.Rankings[i].StarterPoints = RoundPoints(standings.Rankings[i].StarterPoints)
		standings.Rankings[i].BenchPoints = RoundPoints(standings.Rankings[i].BenchPoints)
	}
	return standings, nil
}

func (s *Service) ListMatchups(ctx context.Context, req *ListMatchupsRequest) (*ListMatchupsResponse, error) {
	matchups, err := s.app.ListMatchups(ctx, req.LeagueID, req.ScoringPeriodID)
	if err != nil {
		return nil, rpcjson.Error(err, errorCode)
	}
	return &ListMatchupsResponse{Matchups: matchups}, nil
}

func (s *Service) GetMatchup(ctx context.Context, req *GetMatchupRequest) (*MatchupResponse, error) {
	m, err := s.app.GetMatchup(ctx, req.MatchupID)
	if err != nil {
		return nil, rpcjson.Error(err, errorCode)
	}
	return &MatchupResponse{Matchup: *m}, nil
}

func errorCode(err error) (connect.Code, bool) {
	if errors.Is(err, ErrValidation) {
		return connect.CodeInvalidArgument, true
	}
	return 0, false
}

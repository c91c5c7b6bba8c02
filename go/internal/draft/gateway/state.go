package gateway

import (
	"context"
	"time"

	"github.com/cdlfantasy/league/go/internal/draft"
	"github.com/cdlfantasy/league/go/internal/models"
	"github.com/google/uuid"
)

// StateProvider supplies the draft view a joining client is synced from.
type StateProvider interface {
	GetDraftView(ctx context.Context, draftID uuid.UUID) (*draft.DraftView, error)
	ListInProgressDrafts(ctx context.Context) ([]models.Draft, error)
}

// DraftState represents the current state of a draft for synchronization
type DraftState struct {
	DraftID        string     `json:"draft_id"`
	LeagueID       string     `json:"league_id"`
	Status         string     `json:"status"`
	DraftOrder     []string   `json:"draft_order"`
	CurrentPick    *PickState `json:"current_pick,omitempty"`
	TotalPicks     int        `json:"total_picks"`
	CompletedPicks int        `json:"completed_picks"`
	RecentPicks    []Pick     `json:"recent_picks"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	ServerTime     time.Time  `json:"server_time"`
}

// PickState represents the pick on the clock
type PickState struct {
	TeamID           string    `json:"team_id"`
	Round            int       `json:"round"`
	PickNumber       int       `json:"pick_number"`
	TimeoutAt        time.Time `json:"timeout_at"`
	TimePerPickSec   int       `json:"time_per_pick_sec"`
	TimeRemainingSec int       `json:"time_remaining_sec"`
}

// Pick represents a completed pick for history
type Pick struct {
	PlayerID   string    `json:"player_id"`
	TeamID     string    `json:"team_id"`
	Round      int       `json:"round"`
	PickNumber int       `json:"pick_number"`
	IsAutoPick bool      `json:"is_auto_pick"`
	PickedAt   time.Time `json:"picked_at"`
}

const recentPickLimit = 10

// NewDraftState builds the join snapshot from a draft view at serverTime.
func NewDraftState(view *draft.DraftView, serverTime time.Time) *DraftState {
	d := view.Draft
	state := &DraftState{
		DraftID:        d.ID.String(),
		LeagueID:       d.LeagueID.String(),
		Status:         string(d.Status),
		TotalPicks:     view.TotalPicks,
		CompletedPicks: len(view.Picks),
		StartedAt:      d.StartedAt,
		CompletedAt:    d.CompletedAt,
		ServerTime:     serverTime,
		RecentPicks:    []Pick{},
	}
	for _, id := range d.DraftOrder {
		state.DraftOrder = append(state.DraftOrder, id.String())
	}

	start := max(len(view.Picks)-recentPickLimit, 0)
	for _, p := range view.Picks[start:] {
		state.RecentPicks = append(state.RecentPicks, Pick{
			PlayerID:   p.PlayerID.String(),
			TeamID:     p.TeamID.String(),
			Round:      p.Round,
			PickNumber: p.PickNumber,
			IsAutoPick: p.IsAutoPick,
			PickedAt:   p.PickedAt,
		})
	}

	if view.CurrentTeamID != nil && view.PickDeadline != nil {
		state.CurrentPick = &PickState{
			TeamID:           view.CurrentTeamID.String(),
			Round:            d.CurrentRound,
			PickNumber:       d.CurrentPick,
			TimeoutAt:        *view.PickDeadline,
			TimePerPickSec:   d.SecondsPerPick,
			TimeRemainingSec: timeRemaining(*view.PickDeadline, serverTime),
		}
	}
	return state
}

// timeRemaining is whole seconds left on the clock, never negative.
func timeRemaining(timeoutAt, now time.Time) int {
	remaining := int(timeoutAt.Sub(now).Seconds())
	if remaining < 0 {
		return 0
	}
	return remaining
}

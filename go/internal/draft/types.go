package draft

import (
	"time"

	"github.com/cdlfantasy/league/go/internal/draft/outbox"
	"github.com/cdlfantasy/league/go/internal/models"
	"github.com/google/uuid"
)

// CreateDraftRequest represents the data needed to create a league's draft
type CreateDraftRequest struct {
	LeagueID       uuid.UUID `json:"league_id"`
	SecondsPerPick int       `json:"seconds_per_pick"`
}

// MakePickRequest is a human pick submission
type MakePickRequest struct {
	DraftID  uuid.UUID `json:"draft_id"`
	TeamID   uuid.UUID `json:"team_id"`
	PlayerID uuid.UUID `json:"player_id"`
}

// StartCommit is what starting a draft writes in one transaction. The store
// must reject it if the draft is no longer NOT_STARTED.
type StartCommit struct {
	DraftID    uuid.UUID
	LeagueID   uuid.UUID
	DraftOrder []uuid.UUID
	StartedAt  time.Time
	Events     []outbox.OutboxEvent
}

// PickCommit is what one accepted pick writes in one transaction: the pick,
// the roster entry, the counter advance or completion, and the events. The
// store must apply it only while the draft is IN_PROGRESS with CurrentPick
// equal to ExpectedPick, and report models.ErrStalePick otherwise.
type PickCommit struct {
	DraftID      uuid.UUID
	LeagueID     uuid.UUID
	ExpectedPick int
	Pick         models.DraftPick
	RosterEntry  models.RosterEntry
	Completed    bool
	NextPick     int
	NextRound    int
	At           time.Time
	Events       []outbox.OutboxEvent
}

// PickResult describes an accepted pick.
type PickResult struct {
	Pick      models.DraftPick `json:"pick"`
	Player    models.Player    `json:"player"`
	Completed bool             `json:"completed"`
	NextPick  int              `json:"next_pick,omitempty"`
	NextTeam  *uuid.UUID       `json:"next_team_id,omitempty"`
}

// DraftView is the full state a client needs to render a draft room.
type DraftView struct {
	Draft            models.Draft       `json:"draft"`
	Picks            []models.DraftPick `json:"picks"`
	AvailablePlayers []models.Player    `json:"available_players"`
	CurrentTeamID    *uuid.UUID         `json:"current_team_id,omitempty"`
	PickDeadline     *time.Time         `json:"pick_deadline,omitempty"`
	TotalPicks       int                `json:"total_picks"`
}

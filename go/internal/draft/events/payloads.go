package events

import (
	"time"
)

// Event payload types that are shared between draft, outbox and gateway packages

// Event type names as written to the outbox and used as subject suffixes.
const (
	TypeDraftStarted   = "DraftStarted"
	TypePickStarted    = "PickStarted"
	TypePickMade       = "PickMade"
	TypeDraftCompleted = "DraftCompleted"
	TypeAutoPickFailed = "AutoPickFailed"
)

// DraftStartedPayload is the payload for a DraftStarted event
type DraftStartedPayload struct {
	DraftID        string    `json:"draft_id"`
	LeagueID       string    `json:"league_id"`
	DraftOrder     []string  `json:"draft_order"`
	StartedAt      time.Time `json:"started_at"`
	TotalRounds    int       `json:"total_rounds"`
	TotalPicks     int       `json:"total_picks"`
	SecondsPerPick int       `json:"seconds_per_pick"`
}

// PickStartedPayload is the payload for a PickStarted event
type PickStartedPayload struct {
	TeamID         string    `json:"team_id"`
	Round          int       `json:"round"`
	PickNumber     int       `json:"pick_number"`
	StartedAt      time.Time `json:"started_at"`
	TimeoutAt      time.Time `json:"timeout_at"`
	SecondsPerPick int       `json:"seconds_per_pick"`
}

// PickMadePayload is the payload for a PickMade event
type PickMadePayload struct {
	PickID     string    `json:"pick_id"`
	TeamID     string    `json:"team_id"`
	PlayerID   string    `json:"player_id"`
	GamerTag   string    `json:"gamer_tag"`
	Round      int       `json:"round"`
	PickNumber int       `json:"pick_number"`
	IsAutoPick bool      `json:"is_auto_pick"`
	MadeAt     time.Time `json:"made_at"`
}

// DraftCompletedPayload is the payload for a DraftCompleted event
type DraftCompletedPayload struct {
	DraftID     string    `json:"draft_id"`
	CompletedAt time.Time `json:"completed_at"`
	Duration    string    `json:"duration"`
	TotalPicks  int       `json:"total_picks"`
}

// AutoPickFailedPayload is written when a timed-out turn could not be filled.
type AutoPickFailedPayload struct {
	DraftID    string    `json:"draft_id"`
	PickNumber int       `json:"pick_number"`
	TeamID     string    `json:"team_id"`
	Reason     string    `json:"reason"`
	FailedAt   time.Time `json:"failed_at"`
}

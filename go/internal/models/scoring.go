package models

import (
	"time"

	"github.com/google/uuid"
)

// ScoringRules maps each stat category to a point weight. DamagePoints is
// applied per 100 damage and ObjectiveTimePoints per second held.
type ScoringRules struct {
	KillPoints          float64 `json:"kill_points" yaml:"kill_points"`
	DeathPoints         float64 `json:"death_points" yaml:"death_points"`
	AssistPoints        float64 `json:"assist_points" yaml:"assist_points"`
	DamagePoints        float64 `json:"damage_points" yaml:"damage_points"`
	ObjectiveTimePoints float64 `json:"objective_time_points" yaml:"objective_time_points"`
	BombPlantPoints     float64 `json:"bomb_plant_points" yaml:"bomb_plant_points"`
	BombDefusePoints    float64 `json:"bomb_defuse_points" yaml:"bomb_defuse_points"`
	FirstBloodPoints    float64 `json:"first_blood_points" yaml:"first_blood_points"`
}

// StatLine is one player's stats for one map of a match.
type StatLine struct {
	ID               uuid.UUID `json:"id"`
	MatchID          uuid.UUID `json:"match_id"`
	PlayerID         uuid.UUID `json:"player_id"`
	MapNumber        int       `json:"map_number"`
	Kills            int       `json:"kills"`
	Deaths           int       `json:"deaths"`
	Assists          int       `json:"assists"`
	Damage           int       `json:"damage"`
	ObjectiveSeconds int       `json:"objective_seconds"`
	BombPlants       int       `json:"bomb_plants"`
	BombDefuses      int       `json:"bomb_defuses"`
	FirstBloods      int       `json:"first_bloods"`
}

// PointsBreakdown holds per-category points and their unrounded sum.
type PointsBreakdown struct {
	Kills         float64 `json:"kills"`
	Deaths        float64 `json:"deaths"`
	Assists       float64 `json:"assists"`
	Damage        float64 `json:"damage"`
	ObjectiveTime float64 `json:"objective_time"`
	BombPlants    float64 `json:"bomb_plants"`
	BombDefuses   float64 `json:"bomb_defuses"`
	FirstBloods   float64 `json:"first_bloods"`
	Total         float64 `json:"total"`
}

type MatchStatus string

const (
	MatchStatusScheduled MatchStatus = "SCHEDULED"
	MatchStatusLive      MatchStatus = "LIVE"
	MatchStatusCompleted MatchStatus = "COMPLETED"
)

// Match is a real-world CDL series.
type Match struct {
	ID          uuid.UUID   `json:"id"`
	ScheduledAt time.Time   `json:"scheduled_at"`
	Status      MatchStatus `json:"status"`
}

// FantasyPoints is the stored score for one stat line in one league.
type FantasyPoints struct {
	ID         uuid.UUID       `json:"id"`
	LeagueID   uuid.UUID       `json:"league_id"`
	StatLineID uuid.UUID       `json:"stat_line_id"`
	PlayerID   uuid.UUID       `json:"player_id"`
	MatchID    uuid.UUID       `json:"match_id"`
	Points     float64         `json:"points"`
	Breakdown  PointsBreakdown `json:"breakdown"`
}

package scoring

import (
	"fmt"
	"math"

	"github.com/cdlfantasy/league/go/internal/models"
)

// DefaultRules returns the stock CDL scoring weights.
func DefaultRules() models.ScoringRules {
	return models.ScoringRules{
		KillPoints:          1.0,
		DeathPoints:         -0.5,
		AssistPoints:        0.25,
		DamagePoints:        0.01,
		ObjectiveTimePoints: 0.02,
		BombPlantPoints:     2.0,
		BombDefusePoints:    2.0,
		FirstBloodPoints:    1.5,
	}
}

func validateRules(r models.ScoringRules) error {
	weights := map[string]float64{
		"kill_points":           r.KillPoints,
		"death_points":          r.DeathPoints,
		"assist_points":         r.AssistPoints,
		"damage_points":         r.DamagePoints,
		"objective_time_points": r.ObjectiveTimePoints,
		"bomb_plant_points":     r.BombPlantPoints,
		"bomb_defuse_points":    r.BombDefusePoints,
		"first_blood_points":    r.FirstBloodPoints,
	}
	for name, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("%s must be a finite number", name)
		}
	}
	return nil
}

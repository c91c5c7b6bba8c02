package scoring

import (
	"github.com/shopspring/decimal"

	"github.com/cdlfantasy/league/go/internal/models"
)

// ComputePoints converts one stat line into fantasy points under rules.
// Total is the unrounded sum of the components; use RoundPoints for display.
func ComputePoints(stats models.StatLine, rules models.ScoringRules) models.PointsBreakdown {
	b := models.PointsBreakdown{
		Kills:         float64(stats.Kills) * rules.KillPoints,
		Deaths:        float64(stats.Deaths) * rules.DeathPoints,
		Assists:       float64(stats.Assists) * rules.AssistPoints,
		Damage:        float64(stats.Damage) / 100 * rules.DamagePoints,
		ObjectiveTime: float64(stats.ObjectiveSeconds) * rules.ObjectiveTimePoints,
		BombPlants:    float64(stats.BombPlants) * rules.BombPlantPoints,
		BombDefuses:   float64(stats.BombDefuses) * rules.BombDefusePoints,
		FirstBloods:   float64(stats.FirstBloods) * rules.FirstBloodPoints,
	}

	b.Total = b.Kills +
		b.Deaths +
		b.Assists +
		b.Damage +
		b.ObjectiveTime +
		b.BombPlants +
		b.BombDefuses +
		b.FirstBloods

	return b
}

// RoundPoints rounds to one decimal place, half away from zero.
func RoundPoints(points float64) float64 {
	rounded, _ := decimal.NewFromFloat(points).Round(1).Float64()
	return rounded
}

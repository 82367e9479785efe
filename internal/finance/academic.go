package finance

import (
	"github.com/shopspring/decimal"

	"github.com/asmil/asmil-api/internal/models"
)

var twenty = decimal.NewFromInt(20)

// AttendanceRate is (présent + retard) / total × 100, rounded to two places; 0 without records.
func AttendanceRate(records []models.Attendance) decimal.Decimal {
	if len(records) == 0 {
		return decimal.Zero
	}
	attended := 0
	for _, r := range records {
		if r.Status == models.AttendanceStatusPresent || r.Status == models.AttendanceStatusLate {
			attended++
		}
	}
	return decimal.NewFromInt(int64(attended)).Mul(hundred).DivRound(decimal.NewFromInt(int64(len(records))), 2)
}

// WeightedAverage normalises every grade to /20 and averages by weight, rounded to two places.
// Grades with a non-positive max or weight are skipped.
func WeightedAverage(grades []models.Grade) decimal.Decimal {
	sum := decimal.Zero
	weights := decimal.Zero
	for _, g := range grades {
		if !g.MaxValue.IsPositive() || !g.Weight.IsPositive() {
			continue
		}
		sum = sum.Add(g.Value.Div(g.MaxValue).Mul(twenty).Mul(g.Weight))
		weights = weights.Add(g.Weight)
	}
	if weights.IsZero() {
		return decimal.Zero
	}
	return sum.DivRound(weights, 2)
}

// Mention maps a /20 average to the French honours scale.
func Mention(average decimal.Decimal) string {
	switch {
	case average.GreaterThanOrEqual(decimal.NewFromInt(16)):
		return "Très bien"
	case average.GreaterThanOrEqual(decimal.NewFromInt(14)):
		return "Bien"
	case average.GreaterThanOrEqual(decimal.NewFromInt(12)):
		return "Assez bien"
	case average.GreaterThanOrEqual(decimal.NewFromInt(10)):
		return "Passable"
	default:
		return ""
	}
}

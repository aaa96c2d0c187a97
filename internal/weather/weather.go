// Package weather rolls each day's conditions and maps them onto the
// market demand multiplier. A day's Weather is created once and treated
// as immutable; refreshing a forecast appends new values rather than
// editing old ones.
package weather

import (
	"log/slog"
	"math"

	"github.com/shopspring/decimal"

	"github.com/talgya/homestead/internal/config"
	"github.com/talgya/homestead/internal/entropy"
)

// Weather is one day's conditions: the rolled value, the demand
// multiplier it maps to, and the market label shown to players.
type Weather struct {
	Day    int             `json:"day"`
	Value  float64         `json:"value"`
	Demand decimal.Decimal `json:"demand"`
	Label  string          `json:"label"`
}

// cents puts a two-decimal value on an integer scale so range checks are
// exact at the boundaries.
func cents(v float64) int {
	return int(math.Round(v * 100))
}

// Sample draws a two-decimal value uniformly from the weather interval.
func Sample(rng *entropy.Source) float64 {
	steps := cents(config.WeatherMax) - cents(config.WeatherMin)
	n := rng.IntBetween(0, steps)
	return float64(cents(config.WeatherMin)+n) / 100
}

// DemandFor matches value against the ordered rule table, both range ends
// inclusive, first match wins. A miss means the table broke its coverage
// contract; the neutral multiplier keeps the market trading.
func DemandFor(rules []config.DemandRule, value float64) (decimal.Decimal, string) {
	v := cents(value)
	for _, r := range rules {
		if v >= cents(r.Min) && v <= cents(r.Max) {
			return decimal.NewFromFloat(r.Multiplier), r.Label
		}
	}
	slog.Warn("weather value matched no demand rule, using neutral", "value", value)
	return decimal.NewFromInt(1), "Steady market"
}

// NewDay rolls the weather for one day.
func NewDay(day int, rng *entropy.Source, rules []config.DemandRule) Weather {
	v := Sample(rng)
	demand, label := DemandFor(rules, v)
	return Weather{Day: day, Value: v, Demand: demand, Label: label}
}

// Forecast rolls n consecutive days starting at startDay. Each day is
// sampled independently; the forecast carries no memory of the last roll.
func Forecast(startDay, n int, rng *entropy.Source, rules []config.DemandRule) []Weather {
	out := make([]Weather, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, NewDay(startDay+i, rng, rules))
	}
	return out
}

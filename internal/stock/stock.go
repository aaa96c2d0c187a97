// Package stock models the farm's growable inventory: crops that run from
// seed to harvest and animals that grow, breed once and sell. Status moves
// forward only. Growth progress is never stored; it is derived from the
// activation anchor against whatever clock the caller passes in, so a
// frozen or fake clock works everywhere.
package stock

import (
	"errors"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

var (
	// ErrAlreadyActive reports an activation on an entity that already
	// left its initial status. Callers treat it as a no-op.
	ErrAlreadyActive = errors.New("already activated")
	// ErrNotMature reports a harvest or sale on an entity that has not
	// finished growing.
	ErrNotMature = errors.New("not mature")
)

// DisplayInfo is the read-only view handed to presentation layers and the
// HTTP API. Progress is scaled to 0-100.
type DisplayInfo struct {
	ID       string `json:"id"`
	TypeID   string `json:"type_id"`
	Name     string `json:"name"`
	Tier     int    `json:"tier"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	TimeLeft string `json:"time_left,omitempty"`
}

// progressBetween derives completion in [0, 1] from an activation anchor.
// A nil anchor means the entity has not started growing.
func progressBetween(anchor *time.Time, duration time.Duration, now time.Time) float64 {
	if anchor == nil {
		return 0
	}
	if duration <= 0 {
		return 1
	}
	elapsed := now.Sub(*anchor)
	if elapsed <= 0 {
		return 0
	}
	if elapsed >= duration {
		return 1
	}
	return float64(elapsed) / float64(duration)
}

// remainingBetween is the wall-clock time left until the anchor plus
// duration, floored at zero.
func remainingBetween(anchor *time.Time, duration time.Duration, now time.Time) time.Duration {
	if anchor == nil {
		return duration
	}
	left := anchor.Add(duration).Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// sellPrice applies the demand multiplier to a base price and floors the
// result to whole currency. A non-positive multiplier is a contract
// violation upstream; it falls back to neutral so a sale never fails on it.
func sellPrice(base int64, demand decimal.Decimal) int64 {
	if demand.Sign() <= 0 {
		slog.Warn("invalid demand index, using neutral", "demand", demand.String())
		demand = decimal.NewFromInt(1)
	}
	return decimal.NewFromInt(base).Mul(demand).IntPart()
}

// timeLeftLabel renders the remaining grow time for display.
func timeLeftLabel(remaining time.Duration, now time.Time) string {
	return humanize.RelTime(now.Add(remaining), now, "", "left")
}

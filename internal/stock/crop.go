package stock

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/talgya/homestead/internal/config"
)

type CropStatus string

const (
	CropUnplanted CropStatus = "unplanted"
	CropGrowing   CropStatus = "growing"
	CropMature    CropStatus = "mature"
	CropHarvested CropStatus = "harvested"
)

// Crop is a single plant instance from seed purchase to sale. Fields are
// exported for persistence; everything else mutates through methods so the
// status only ever moves forward.
type Crop struct {
	ID        string
	TypeID    string
	Name      string
	Tier      int
	Status    CropStatus
	PlantedAt *time.Time
	Duration  time.Duration
	SeedCost  int64
	BasePrice int64
}

// NewCrop returns an unplanted crop of the given type.
func NewCrop(spec config.CropSpec) *Crop {
	return &Crop{
		ID:        uuid.NewString(),
		TypeID:    spec.ID,
		Name:      spec.Name,
		Tier:      spec.Tier,
		Status:    CropUnplanted,
		Duration:  spec.Growth(),
		SeedCost:  spec.SeedCost,
		BasePrice: spec.BasePrice,
	}
}

// Plant moves the crop into Growing and stamps the anchor, exactly once.
// Planting anything but an unplanted crop is rejected as a no-op.
func (c *Crop) Plant(now time.Time) error {
	if c.Status != CropUnplanted {
		slog.Warn("plant rejected, crop is not unplanted", "id", c.ID, "status", c.Status)
		return ErrAlreadyActive
	}
	t := now
	c.PlantedAt = &t
	c.Status = CropGrowing
	return nil
}

// Refresh performs the Growing to Mature transition once elapsed time
// covers the growth duration. It reports whether the flip happened on this
// call, so sweeps can emit a notification exactly once.
func (c *Crop) Refresh(now time.Time) bool {
	if c.Status != CropGrowing {
		return false
	}
	if progressBetween(c.PlantedAt, c.Duration, now) < 1 {
		return false
	}
	c.Status = CropMature
	return true
}

// Mature reports whether the crop has reached maturity. Pure read; call
// Refresh first on paths that need up-to-the-moment status.
func (c *Crop) Mature() bool {
	return c.Status == CropMature
}

// Progress is the derived completion in [0, 1]: zero before planting,
// frozen at one from maturity onward.
func (c *Crop) Progress(now time.Time) float64 {
	switch c.Status {
	case CropUnplanted:
		return 0
	case CropGrowing:
		return progressBetween(c.PlantedAt, c.Duration, now)
	default:
		return 1
	}
}

// Remaining is the wall-clock time left until maturity, zero once grown.
func (c *Crop) Remaining(now time.Time) time.Duration {
	if c.Status != CropGrowing {
		return 0
	}
	return remainingBetween(c.PlantedAt, c.Duration, now)
}

// TimeLeft is Remaining formatted for display, e.g. "2 minutes left".
func (c *Crop) TimeLeft(now time.Time) string {
	return timeLeftLabel(c.Remaining(now), now)
}

// MarkHarvested moves a mature crop to Harvested. It refreshes first, so
// a crop whose timer ran out since the last sweep still harvests cleanly.
func (c *Crop) MarkHarvested(now time.Time) error {
	c.Refresh(now)
	if c.Status != CropMature {
		slog.Warn("harvest rejected, crop is not mature", "id", c.ID, "status", c.Status)
		return ErrNotMature
	}
	c.Status = CropHarvested
	return nil
}

// SellPrice is floor(base price times demand index).
func (c *Crop) SellPrice(demand decimal.Decimal) int64 {
	return sellPrice(c.BasePrice, demand)
}

// Profit is the sell price minus what the seed cost.
func (c *Crop) Profit(demand decimal.Decimal) int64 {
	return c.SellPrice(demand) - c.SeedCost
}

// Display renders the crop for the API and reports.
func (c *Crop) Display(now time.Time) DisplayInfo {
	info := DisplayInfo{
		ID:       c.ID,
		TypeID:   c.TypeID,
		Name:     c.Name,
		Tier:     c.Tier,
		Status:   string(c.Status),
		Progress: int(c.Progress(now) * 100),
	}
	switch c.Status {
	case CropGrowing:
		info.TimeLeft = timeLeftLabel(c.Remaining(now), now)
	case CropMature:
		info.TimeLeft = "ready"
	}
	return info
}

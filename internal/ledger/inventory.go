package ledger

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/homestead/internal/stock"
	"github.com/talgya/homestead/internal/weather"
)

// The five collections are keyed by lifecycle stage. Every transition is
// a move between exactly two of them, never a copy: seeds -> field ->
// harvested for crops, young -> pen for animals, with sales removing the
// entity from the ledger entirely.

func indexCrop(list []*stock.Crop, id string) int {
	for i, c := range list {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func indexAnimal(list []*stock.Animal, id string) int {
	for i, a := range list {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func removeCropAt(list []*stock.Crop, i int) []*stock.Crop {
	return append(list[:i], list[i+1:]...)
}

func removeAnimalAt(list []*stock.Animal, i int) []*stock.Animal {
	return append(list[:i], list[i+1:]...)
}

// HasFieldSpace reports whether another crop fits in the field.
func (l *Ledger) HasFieldSpace() bool {
	return len(l.field) < l.cfg.Game.FieldPlots
}

// HasPenSpace reports whether another animal fits in the pen.
func (l *Ledger) HasPenSpace() bool {
	return len(l.pen) < l.cfg.Game.AnimalPens
}

// AddSeed stores a freshly bought crop in the seed stock.
func (l *Ledger) AddSeed(c *stock.Crop) {
	l.seeds = append(l.seeds, c)
}

// AddYoungAnimal stores a freshly bought animal in the young stock.
func (l *Ledger) AddYoungAnimal(a *stock.Animal) {
	l.young = append(l.young, a)
}

// PlantCrop activates a seed-stock crop and moves it into the field.
// Callers check HasFieldSpace first for a friendly refusal; the move still
// refuses an overflow itself rather than corrupt the plot count.
func (l *Ledger) PlantCrop(id string, now time.Time) (*stock.Crop, error) {
	if l.GameOver() {
		return nil, ErrGameOver
	}
	i := indexCrop(l.seeds, id)
	if i < 0 {
		return nil, fmt.Errorf("plant %s: %w", id, ErrNotFound)
	}
	if !l.HasFieldSpace() {
		slog.Warn("plant refused, field is full", "id", id, "plots", l.cfg.Game.FieldPlots)
		return nil, ErrNoSpace
	}
	c := l.seeds[i]
	if err := c.Plant(now); err != nil {
		return nil, err
	}
	l.seeds = removeCropAt(l.seeds, i)
	l.field = append(l.field, c)
	return c, nil
}

// PlaceAnimal activates a young-stock animal and moves it into the pen.
func (l *Ledger) PlaceAnimal(id string, now time.Time) (*stock.Animal, error) {
	if l.GameOver() {
		return nil, ErrGameOver
	}
	i := indexAnimal(l.young, id)
	if i < 0 {
		return nil, fmt.Errorf("place %s: %w", id, ErrNotFound)
	}
	if !l.HasPenSpace() {
		slog.Warn("place refused, pen is full", "id", id, "pens", l.cfg.Game.AnimalPens)
		return nil, ErrNoSpace
	}
	a := l.young[i]
	if err := a.Place(now); err != nil {
		return nil, err
	}
	l.young = removeAnimalAt(l.young, i)
	l.pen = append(l.pen, a)
	return a, nil
}

// AdoptOffspring injects a surviving bred offspring straight into the pen.
// Breeding is an emergent event, not a placement, so the pen capacity
// check does not apply here.
func (l *Ledger) AdoptOffspring(a *stock.Animal) {
	if l.GameOver() {
		return
	}
	l.pen = append(l.pen, a)
	l.stats.AnimalsBred++
}

// HarvestCrop moves a mature field crop into the harvested stock.
func (l *Ledger) HarvestCrop(id string, now time.Time) (*stock.Crop, error) {
	if l.GameOver() {
		return nil, ErrGameOver
	}
	i := indexCrop(l.field, id)
	if i < 0 {
		return nil, fmt.Errorf("harvest %s: %w", id, ErrNotFound)
	}
	c := l.field[i]
	if err := c.MarkHarvested(now); err != nil {
		return nil, err
	}
	l.field = removeCropAt(l.field, i)
	l.harvested = append(l.harvested, c)
	l.stats.CropsHarvested++
	return c, nil
}

// SellCrop sells a harvested crop at today's demand. The sale is final:
// the crop leaves the ledger and the proceeds are credited.
func (l *Ledger) SellCrop(id string, now time.Time) (int64, error) {
	if l.GameOver() {
		return 0, ErrGameOver
	}
	i := indexCrop(l.harvested, id)
	if i < 0 {
		return 0, fmt.Errorf("sell crop %s: %w", id, ErrNotFound)
	}
	c := l.harvested[i]
	price := c.SellPrice(l.Today().Demand)
	if err := l.Credit(price, fmt.Sprintf("Sold %s for $%s", c.Name, humanize.Comma(price))); err != nil {
		return 0, err
	}
	l.harvested = removeCropAt(l.harvested, i)
	l.stats.CropsSold++
	return price, nil
}

// SellAnimal sells a mature penned animal at today's demand. Its bred
// descendants stay in the pen as their own entries; only this animal
// leaves.
func (l *Ledger) SellAnimal(id string, now time.Time) (int64, error) {
	if l.GameOver() {
		return 0, ErrGameOver
	}
	i := indexAnimal(l.pen, id)
	if i < 0 {
		return 0, fmt.Errorf("sell animal %s: %w", id, ErrNotFound)
	}
	a := l.pen[i]
	a.Refresh(now)
	if !a.Mature() {
		return 0, stock.ErrNotMature
	}
	price := a.SellPrice(l.Today().Demand)
	if err := l.Credit(price, fmt.Sprintf("Sold %s for $%s", a.Name, humanize.Comma(price))); err != nil {
		return 0, err
	}
	l.pen = removeAnimalAt(l.pen, i)
	l.stats.AnimalsSold++
	return price, nil
}

// Seeds returns the seed stock, oldest purchase first.
func (l *Ledger) Seeds() []*stock.Crop { return copyCrops(l.seeds) }

// FieldCrops returns the growing crops.
func (l *Ledger) FieldCrops() []*stock.Crop { return copyCrops(l.field) }

// HarvestedCrops returns the harvested, unsold crops.
func (l *Ledger) HarvestedCrops() []*stock.Crop { return copyCrops(l.harvested) }

// YoungAnimals returns the bought, not yet placed animals.
func (l *Ledger) YoungAnimals() []*stock.Animal { return copyAnimals(l.young) }

// PennedAnimals returns the placed animals, bred offspring included.
func (l *Ledger) PennedAnimals() []*stock.Animal { return copyAnimals(l.pen) }

func copyCrops(list []*stock.Crop) []*stock.Crop {
	out := make([]*stock.Crop, len(list))
	copy(out, list)
	return out
}

func copyAnimals(list []*stock.Animal) []*stock.Animal {
	out := make([]*stock.Animal, len(list))
	copy(out, list)
	return out
}

// Snapshot is the plain structural copy of the ledger used by saves. The
// entity pointers are shared with the live session, so callers serialise
// it before releasing the service lock.
type Snapshot struct {
	Balance       int64
	Day           int
	Status        Status
	MilestonesHit int
	Stats         Stats
	Forecast      []weather.Weather
	Seeds         []*stock.Crop
	Field         []*stock.Crop
	Harvested     []*stock.Crop
	Young         []*stock.Animal
	Pen           []*stock.Animal
}

// Snapshot captures the full session state.
func (l *Ledger) Snapshot() Snapshot {
	fc := make([]weather.Weather, len(l.forecast))
	copy(fc, l.forecast)
	return Snapshot{
		Balance:       l.balance,
		Day:           l.day,
		Status:        l.status,
		MilestonesHit: l.milestonesHit,
		Stats:         l.stats,
		Forecast:      fc,
		Seeds:         copyCrops(l.seeds),
		Field:         copyCrops(l.field),
		Harvested:     copyCrops(l.harvested),
		Young:         copyAnimals(l.young),
		Pen:           copyAnimals(l.pen),
	}
}

// Restore replaces the session state with a saved snapshot. Timestamps
// and statuses are taken verbatim; nothing is re-derived. A forecast that
// no longer starts at the restored day is rerolled.
func (l *Ledger) Restore(s Snapshot) {
	l.balance = s.Balance
	l.day = s.Day
	if l.day < 1 {
		l.day = 1
	}
	l.status = s.Status
	if l.status != StatusPlaying && l.status != StatusWon && l.status != StatusLost {
		l.status = StatusPlaying
	}
	l.milestonesHit = s.MilestonesHit
	l.stats = s.Stats
	l.seeds = s.Seeds
	l.field = s.Field
	l.harvested = s.Harvested
	l.young = s.Young
	l.pen = s.Pen

	l.forecast = s.Forecast
	if len(l.forecast) != l.cfg.Game.ForecastDays || l.forecast[0].Day != l.day {
		slog.Warn("restored forecast window is stale, rerolling",
			"day", l.day, "entries", len(l.forecast))
		l.forecast = weather.Forecast(l.day, l.cfg.Game.ForecastDays, l.rng, l.cfg.Demand)
	}
}

package farm

import (
	"time"

	"github.com/talgya/homestead/internal/event"
	"github.com/talgya/homestead/internal/ledger"
	"github.com/talgya/homestead/internal/stock"
	"github.com/talgya/homestead/internal/weather"
)

// Overview is the headline state for the status endpoint.
type Overview struct {
	Day       int             `json:"day"`
	TotalDays int             `json:"total_days"`
	DaysLeft  int             `json:"days_left"`
	Balance   int64           `json:"balance"`
	Goal      int64           `json:"goal"`
	Progress  int             `json:"progress_pct"`
	Status    ledger.Status   `json:"status"`
	Paused    bool            `json:"paused"`
	Weather   weather.Weather `json:"weather"`
}

// FarmView lists every holding, rendered for display.
type FarmView struct {
	FieldPlots int                 `json:"field_plots"`
	AnimalPens int                 `json:"animal_pens"`
	Seeds      []stock.DisplayInfo `json:"seeds"`
	Field      []stock.DisplayInfo `json:"field"`
	Basket     []stock.DisplayInfo `json:"basket"`
	Barn       []stock.DisplayInfo `json:"barn"`
	Pens       []stock.DisplayInfo `json:"pens"`
}

// ShopItem is one purchasable type from the config tables.
type ShopItem struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Kind         string  `json:"kind"`
	Tier         int     `json:"tier"`
	Cost         int64   `json:"cost"`
	BasePrice    int64   `json:"base_price"`
	GrowthS      int     `json:"growth_s"`
	BreedChance  float64 `json:"breeding_chance,omitempty"`
	SurvivalRate float64 `json:"offspring_survival,omitempty"`
}

// StatsView joins the ledger counters with milestone progress.
type StatsView struct {
	ledger.Stats
	MilestonesHit int     `json:"milestones_hit"`
	Milestones    []int64 `json:"milestones"`
}

func (s *Service) Overview() Overview {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Overview{
		Day:       s.led.Day(),
		TotalDays: s.led.TotalDays(),
		DaysLeft:  s.led.DaysLeft(),
		Balance:   s.led.Balance(),
		Goal:      s.led.Goal(),
		Progress:  goalProgress(s.led.Balance(), s.led.Goal()),
		Status:    s.led.Status(),
		Paused:    s.clk.Paused(),
		Weather:   s.led.Today(),
	}
}

// goalProgress is the balance as a percentage of the goal, capped at 100.
func goalProgress(balance, goal int64) int {
	if goal <= 0 {
		return 0
	}
	pct := balance * 100 / goal
	if pct > 100 {
		return 100
	}
	if pct < 0 {
		return 0
	}
	return int(pct)
}

func (s *Service) Farm() FarmView {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clk.Now()
	return FarmView{
		FieldPlots: s.cfg.Game.FieldPlots,
		AnimalPens: s.cfg.Game.AnimalPens,
		Seeds:      displayCrops(s.led.Seeds(), now),
		Field:      displayCrops(s.led.FieldCrops(), now),
		Basket:     displayCrops(s.led.HarvestedCrops(), now),
		Barn:       displayAnimals(s.led.YoungAnimals(), now),
		Pens:       displayAnimals(s.led.PennedAnimals(), now),
	}
}

func (s *Service) Shop() []ShopItem {
	items := make([]ShopItem, 0, len(s.cfg.Crops)+len(s.cfg.Animals))
	for _, c := range s.cfg.Crops {
		items = append(items, ShopItem{
			ID: c.ID, Name: c.Name, Kind: "crop", Tier: c.Tier,
			Cost: c.SeedCost, BasePrice: c.BasePrice, GrowthS: c.GrowthS,
		})
	}
	for _, a := range s.cfg.Animals {
		items = append(items, ShopItem{
			ID: a.ID, Name: a.Name, Kind: "animal", Tier: a.Tier,
			Cost: a.Cost, BasePrice: a.BasePrice, GrowthS: a.GrowthS,
			BreedChance: a.BreedingChance, SurvivalRate: a.OffspringSurvival,
		})
	}
	return items
}

func (s *Service) Forecast() []weather.Weather {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.led.ForecastWindow()
}

func (s *Service) Stats() StatsView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StatsView{
		Stats:         s.led.Stats(),
		MilestonesHit: s.led.MilestonesHit(),
		Milestones:    s.cfg.Game.Milestones,
	}
}

func (s *Service) Events(n int) []event.Event {
	return s.bus.Recent(n)
}

// Saver persists one snapshot and the event log backing it.
type Saver interface {
	SaveGame(snap ledger.Snapshot, events []event.Event) error
}

// Checkpoint saves the session through store while holding the service
// lock. Snapshot entity pointers are shared with the live session, so the
// write must finish before any command can mutate them.
func (s *Service) Checkpoint(store Saver) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return store.SaveGame(s.led.Snapshot(), s.bus.Recent(0))
}

// SnapshotState captures the full ledger for persistence.
func (s *Service) SnapshotState() ledger.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.led.Snapshot()
}

// RestoreState reloads a saved ledger. Timestamps come back verbatim, so
// growth resumes exactly where the save left it.
func (s *Service) RestoreState(snap ledger.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.led.Restore(snap)
}

func displayCrops(crops []*stock.Crop, now time.Time) []stock.DisplayInfo {
	out := make([]stock.DisplayInfo, len(crops))
	for i, c := range crops {
		out[i] = c.Display(now)
	}
	return out
}

func displayAnimals(animals []*stock.Animal, now time.Time) []stock.DisplayInfo {
	out := make([]stock.DisplayInfo, len(animals))
	for i, a := range animals {
		out[i] = a.Display(now)
	}
	return out
}

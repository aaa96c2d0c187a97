// Package farm is the command façade over the ledger. Every player
// command validates first and mutates second: a refusal returns a
// human-readable message and changes nothing. One mutex serialises
// commands with the growth sweep and the day rollover, so the ledger
// itself never needs locking.
package farm

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/talgya/homestead/internal/config"
	"github.com/talgya/homestead/internal/engine"
	"github.com/talgya/homestead/internal/entropy"
	"github.com/talgya/homestead/internal/event"
	"github.com/talgya/homestead/internal/ledger"
	"github.com/talgya/homestead/internal/metrics"
	"github.com/talgya/homestead/internal/stock"
)

// Result is the outcome of a player command, shaped for direct display.
type Result struct {
	OK      bool   `json:"success"`
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
	Amount  int64  `json:"amount,omitempty"`
	Balance int64  `json:"balance"`
}

// Service owns the game session: ledger, clock, entropy and engine.
type Service struct {
	mu  sync.Mutex
	cfg *config.Config
	led *ledger.Ledger
	clk *engine.GameClock
	rng *entropy.Source
	bus *event.Bus
	eng *engine.Engine
}

func New(cfg *config.Config, led *ledger.Ledger, clk *engine.GameClock, rng *entropy.Source, bus *event.Bus) *Service {
	return &Service{cfg: cfg, led: led, clk: clk, rng: rng, bus: bus}
}

// AttachEngine hands the service the engine it should halt on game over
// and on pause. Wired after construction because the engine's callbacks
// point back at the service.
func (s *Service) AttachEngine(e *engine.Engine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eng = e
}

func (s *Service) refuse(msg string) Result {
	return Result{OK: false, Message: msg, Balance: s.led.Balance()}
}

// BuySeed debits the seed cost and adds a fresh crop to the seed bag.
func (s *Service) BuySeed(typeID string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.led.GameOver() {
		return s.refuse("The game is over.")
	}
	spec, ok := s.cfg.Crop(typeID)
	if !ok {
		return s.refuse(fmt.Sprintf("Nothing called %q in the shop.", typeID))
	}
	if !s.led.CanAfford(spec.SeedCost) {
		return s.refuse(fmt.Sprintf("Not enough money! You need $%d.", spec.SeedCost))
	}
	if err := s.led.Debit(spec.SeedCost, fmt.Sprintf("Bought a %s seed", spec.Name)); err != nil {
		return s.refuse("The purchase could not be completed.")
	}
	c := stock.NewCrop(spec)
	s.led.AddSeed(c)
	return Result{
		OK:      true,
		Message: fmt.Sprintf("Bought a %s seed for $%d.", spec.Name, spec.SeedCost),
		ID:      c.ID,
		Amount:  spec.SeedCost,
		Balance: s.led.Balance(),
	}
}

// PlantCrop moves a seed into a free field plot and starts its growth.
func (s *Service) PlantCrop(id string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.led.GameOver() {
		return s.refuse("The game is over.")
	}
	c := findCrop(s.led.Seeds(), id)
	if c == nil {
		return s.refuse("You don't have that seed.")
	}
	if !s.led.HasFieldSpace() {
		return s.refuse("No free field plots!")
	}
	if _, err := s.led.PlantCrop(id, s.clk.Now()); err != nil {
		slog.Warn("plant rejected", "id", id, "error", err)
		return s.refuse("That seed can't be planted right now.")
	}
	return Result{
		OK:      true,
		Message: fmt.Sprintf("Planted a %s. Ready in %s.", c.Name, c.Duration),
		ID:      c.ID,
		Balance: s.led.Balance(),
	}
}

// HarvestCrop moves a mature field crop into the harvested basket.
func (s *Service) HarvestCrop(id string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.led.GameOver() {
		return s.refuse("The game is over.")
	}
	now := s.clk.Now()
	c := findCrop(s.led.FieldCrops(), id)
	if c == nil {
		return s.refuse("Nothing planted with that id.")
	}
	if _, err := s.led.HarvestCrop(id, now); err != nil {
		return s.refuse(fmt.Sprintf("The %s is still growing! %s.", c.Name, c.TimeLeft(now)))
	}
	return Result{
		OK:      true,
		Message: fmt.Sprintf("Harvested a %s!", c.Name),
		ID:      c.ID,
		Balance: s.led.Balance(),
	}
}

// SellCrop sells a harvested crop at today's demand-adjusted price.
func (s *Service) SellCrop(id string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.led.GameOver() {
		return s.refuse("The game is over.")
	}
	c := findCrop(s.led.HarvestedCrops(), id)
	if c == nil {
		return s.refuse("Nothing in the basket with that id.")
	}
	amount, err := s.led.SellCrop(id, s.clk.Now())
	if err != nil {
		slog.Warn("crop sale rejected", "id", id, "error", err)
		return s.refuse("That crop can't be sold right now.")
	}
	metrics.SalesTotal.WithLabelValues("crop").Inc()
	return Result{
		OK:      true,
		Message: fmt.Sprintf("Sold a %s for $%d!", c.Name, amount),
		ID:      c.ID,
		Amount:  amount,
		Balance: s.led.Balance(),
	}
}

// BuyAnimal debits the animal's cost and adds it to the barn, unplaced.
func (s *Service) BuyAnimal(typeID string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.led.GameOver() {
		return s.refuse("The game is over.")
	}
	spec, ok := s.cfg.Animal(typeID)
	if !ok {
		return s.refuse(fmt.Sprintf("Nothing called %q in the shop.", typeID))
	}
	if !s.led.CanAfford(spec.Cost) {
		return s.refuse(fmt.Sprintf("Not enough money! You need $%d.", spec.Cost))
	}
	if err := s.led.Debit(spec.Cost, fmt.Sprintf("Bought a %s", spec.Name)); err != nil {
		return s.refuse("The purchase could not be completed.")
	}
	a := stock.NewAnimal(spec)
	s.led.AddYoungAnimal(a)
	return Result{
		OK:      true,
		Message: fmt.Sprintf("Bought a %s for $%d.", spec.Name, spec.Cost),
		ID:      a.ID,
		Amount:  spec.Cost,
		Balance: s.led.Balance(),
	}
}

// PlaceAnimal moves a barn animal into a free pen and starts its growth.
func (s *Service) PlaceAnimal(id string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.led.GameOver() {
		return s.refuse("The game is over.")
	}
	a := findAnimal(s.led.YoungAnimals(), id)
	if a == nil {
		return s.refuse("You don't have that animal in the barn.")
	}
	if !s.led.HasPenSpace() {
		return s.refuse("No free pens!")
	}
	if _, err := s.led.PlaceAnimal(id, s.clk.Now()); err != nil {
		slog.Warn("place rejected", "id", id, "error", err)
		return s.refuse("That animal can't be placed right now.")
	}
	return Result{
		OK:      true,
		Message: fmt.Sprintf("Placed the %s in a pen. Grown in %s.", a.Name, a.Duration),
		ID:      a.ID,
		Balance: s.led.Balance(),
	}
}

// SellAnimal sells a mature penned animal at today's price. Offspring
// stay in their own pens.
func (s *Service) SellAnimal(id string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.led.GameOver() {
		return s.refuse("The game is over.")
	}
	now := s.clk.Now()
	a := findAnimal(s.led.PennedAnimals(), id)
	if a == nil {
		return s.refuse("No animal with that id in the pens.")
	}
	amount, err := s.led.SellAnimal(id, now)
	if err != nil {
		return s.refuse(fmt.Sprintf("The %s isn't grown yet! %s.", a.Name, a.TimeLeft(now)))
	}
	metrics.SalesTotal.WithLabelValues("animal").Inc()
	return Result{
		OK:      true,
		Message: fmt.Sprintf("Sold a %s for $%d!", a.Name, amount),
		ID:      a.ID,
		Amount:  amount,
		Balance: s.led.Balance(),
	}
}

// Pause freezes the game clock and halts the engine. Growth stops
// accruing until Resume.
func (s *Service) Pause() Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.clk.Paused() {
		return s.refuse("Already paused.")
	}
	s.clk.Pause()
	if s.eng != nil {
		s.eng.Stop()
	}
	slog.Info("game paused", "day", s.led.Day(), "balance", s.led.Balance())
	return Result{OK: true, Message: "Game paused.", Balance: s.led.Balance()}
}

// Resume unfreezes the clock and restarts the engine. Tick cadence
// restarts from zero.
func (s *Service) Resume() Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.led.GameOver() {
		return s.refuse("The game is over.")
	}
	if !s.clk.Paused() {
		return s.refuse("Not paused.")
	}
	s.clk.Resume()
	if s.eng != nil {
		s.eng.Start()
	}
	slog.Info("game resumed", "day", s.led.Day(), "balance", s.led.Balance())
	return Result{OK: true, Message: "Game resumed.", Balance: s.led.Balance()}
}

func (s *Service) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clk.Paused()
}

// Stop halts the engine for good. Unlike Pause it does not freeze the
// clock: growth keeps accruing against wall time, but nothing sweeps it
// until the process restarts.
func (s *Service) Stop() Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.eng == nil || !s.eng.Running() {
		return s.refuse("Engine is not running.")
	}
	s.eng.Stop()
	slog.Info("engine stopped by operator", "day", s.led.Day(), "balance", s.led.Balance())
	return Result{OK: true, Message: "Simulation stopped.", Balance: s.led.Balance()}
}

// stopEngine halts the tickers once the game is over. Callable from
// inside an engine callback because Stop does not wait for the loop.
func (s *Service) stopEngine() {
	if s.eng == nil || !s.eng.Running() {
		return
	}
	s.eng.Stop()
	slog.Info("engine halted",
		"status", s.led.Status(),
		"day", s.led.Day(),
		"balance", humanize.Comma(s.led.Balance()),
	)
}

func findCrop(crops []*stock.Crop, id string) *stock.Crop {
	for _, c := range crops {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func findAnimal(animals []*stock.Animal, id string) *stock.Animal {
	for _, a := range animals {
		if a.ID == id {
			return a
		}
	}
	return nil
}

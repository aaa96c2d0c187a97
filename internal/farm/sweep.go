package farm

import (
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"

	"github.com/talgya/homestead/internal/event"
	"github.com/talgya/homestead/internal/metrics"
)

// GrowthTick is the engine's fast callback. It sweeps the field and the
// pens, flips anything whose timer ran out, and gives every half-grown
// animal its one breeding attempt. Safe to call after game over: it
// halts the engine and returns.
func (s *Service) GrowthTick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.led.GameOver() {
		s.stopEngine()
		return
	}
	now := s.clk.Now()
	day := s.led.Day()

	for _, c := range s.led.FieldCrops() {
		if c.Refresh(now) {
			s.bus.Publish(event.Event{
				Day:      day,
				Type:     event.TypeCropMatured,
				Message:  fmt.Sprintf("Your %s is ready to harvest!", c.Name),
				EntityID: c.ID,
			})
			metrics.CropsMaturedTotal.Inc()
		}
	}

	// Sweep a snapshot of the pens so offspring adopted this tick are
	// not themselves processed until the next tick.
	for _, a := range s.led.PennedAnimals() {
		if a.Refresh(now) {
			s.bus.Publish(event.Event{
				Day:      day,
				Type:     event.TypeAnimalMatured,
				Message:  fmt.Sprintf("Your %s is fully grown!", a.Name),
				EntityID: a.ID,
			})
			metrics.AnimalsMaturedTotal.Inc()
			continue
		}
		if !a.CanBreed(now) {
			continue
		}
		out := a.AttemptBreeding(now, s.rng)
		if !out.Attempted {
			continue
		}
		switch {
		case out.Survived:
			metrics.BreedingAttemptsTotal.WithLabelValues(metrics.OutcomeSurvived).Inc()
			s.led.AdoptOffspring(out.Offspring)
			s.bus.Publish(event.Event{
				Day:      day,
				Type:     event.TypeAnimalBred,
				Message:  fmt.Sprintf("Your %s had a baby!", a.Name),
				EntityID: out.Offspring.ID,
			})
		case out.Bred:
			metrics.BreedingAttemptsTotal.WithLabelValues(metrics.OutcomeDied).Inc()
		default:
			metrics.BreedingAttemptsTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		}
	}

	s.bus.Publish(event.Event{Day: day, Type: event.TypeTick})
	metrics.TicksTotal.Inc()
	metrics.Balance.Set(float64(s.led.Balance()))
	metrics.Day.Set(float64(day))
}

// AdvanceDay is the engine's slow callback: roll the calendar, log the
// daily report, and halt the engine if the deadline just passed.
func (s *Service) AdvanceDay() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.led.GameOver() {
		s.stopEngine()
		return
	}
	s.led.AdvanceDay()

	today := s.led.Today()
	slog.Info("day report",
		"day", s.led.Day(),
		"of", s.led.TotalDays(),
		"balance", humanize.Comma(s.led.Balance()),
		"goal", humanize.Comma(s.led.Goal()),
		"market", today.Label,
		"demand", today.Demand.String(),
		"seeds", len(s.led.Seeds()),
		"field", len(s.led.FieldCrops()),
		"basket", len(s.led.HarvestedCrops()),
		"barn", len(s.led.YoungAnimals()),
		"pens", len(s.led.PennedAnimals()),
	)
	metrics.DaysTotal.Inc()
	metrics.Day.Set(float64(s.led.Day()))
	metrics.Balance.Set(float64(s.led.Balance()))

	if s.led.GameOver() {
		s.stopEngine()
	}
}

// Package ledger owns the economic state of one game session: the
// balance, the day counter, the weather forecast window, the five stock
// collections, statistics and milestones. It is the single authority over
// that state. Methods are not safe for concurrent use; the owning service
// serialises access.
package ledger

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"

	"github.com/talgya/homestead/internal/config"
	"github.com/talgya/homestead/internal/entropy"
	"github.com/talgya/homestead/internal/event"
	"github.com/talgya/homestead/internal/stock"
	"github.com/talgya/homestead/internal/weather"
)

type Status string

const (
	StatusPlaying Status = "playing"
	StatusWon     Status = "won"
	StatusLost    Status = "lost"
)

var (
	// ErrInvalidAmount reports a negative money amount.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInsufficientFunds reports a debit beyond the balance. Callers
	// present it as a refusal, never a crash.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrNotFound reports an id absent from the addressed collection.
	ErrNotFound = errors.New("not found")
	// ErrNoSpace reports a move that would overflow field or pen capacity.
	ErrNoSpace = errors.New("no space")
	// ErrGameOver reports a mutation attempted after the session ended.
	ErrGameOver = errors.New("game over")
)

// Stats are the session's running counters.
type Stats struct {
	TotalEarned    int64 `json:"total_earned"`
	TotalSpent     int64 `json:"total_spent"`
	BestSale       int64 `json:"best_sale"`
	CropsHarvested int   `json:"crops_harvested"`
	CropsSold      int   `json:"crops_sold"`
	AnimalsSold    int   `json:"animals_sold"`
	AnimalsBred    int   `json:"animals_bred"`
}

// Ledger is the aggregate root of a session. Won and Lost are terminal:
// once either is set, every mutating method refuses.
type Ledger struct {
	cfg *config.Config
	rng *entropy.Source
	bus *event.Bus

	balance int64
	day     int
	status  Status

	forecast []weather.Weather

	seeds     []*stock.Crop
	field     []*stock.Crop
	harvested []*stock.Crop
	young     []*stock.Animal
	pen       []*stock.Animal

	stats Stats
	// milestonesHit counts the leading config milestones already crossed;
	// thresholds are validated ascending so a count is a full record.
	milestonesHit int
}

// New opens a fresh session on day one with the configured starting
// balance and a full forecast window.
func New(cfg *config.Config, rng *entropy.Source, bus *event.Bus) *Ledger {
	return &Ledger{
		cfg:      cfg,
		rng:      rng,
		bus:      bus,
		balance:  cfg.Game.StartingBalance,
		day:      1,
		status:   StatusPlaying,
		forecast: weather.Forecast(1, cfg.Game.ForecastDays, rng, cfg.Demand),
	}
}

func (l *Ledger) Balance() int64 { return l.balance }

func (l *Ledger) Day() int { return l.day }

func (l *Ledger) Goal() int64 { return l.cfg.Game.Goal }

func (l *Ledger) TotalDays() int { return l.cfg.Game.TotalDays }

func (l *Ledger) Status() Status { return l.status }

// GameOver reports whether the session reached a terminal status.
func (l *Ledger) GameOver() bool { return l.status != StatusPlaying }

func (l *Ledger) Stats() Stats { return l.stats }

// MilestonesHit counts the milestones crossed so far.
func (l *Ledger) MilestonesHit() int { return l.milestonesHit }

// DaysLeft is the number of full days after the current one before the
// deadline. Zero on and past the final day.
func (l *Ledger) DaysLeft() int {
	left := l.cfg.Game.TotalDays - l.day
	if left < 0 {
		return 0
	}
	return left
}

// Today is the weather at the head of the forecast window.
func (l *Ledger) Today() weather.Weather {
	if len(l.forecast) == 0 {
		// A session never reaches here through normal play; heal rather
		// than panic if a restore left the window empty.
		l.forecast = weather.Forecast(l.day, l.cfg.Game.ForecastDays, l.rng, l.cfg.Demand)
	}
	return l.forecast[0]
}

// ForecastWindow returns a copy of the window, current day first.
func (l *Ledger) ForecastWindow() []weather.Weather {
	l.Today()
	out := make([]weather.Weather, len(l.forecast))
	copy(out, l.forecast)
	return out
}

// CanAfford is a pure affordability predicate.
func (l *Ledger) CanAfford(amount int64) bool {
	return amount >= 0 && l.balance >= amount
}

// Credit adds amount to the balance, rolls the earnings statistics and
// milestones forward, and runs the win check.
func (l *Ledger) Credit(amount int64, memo string) error {
	if l.GameOver() {
		return ErrGameOver
	}
	if amount < 0 {
		slog.Warn("credit rejected", "amount", amount, "memo", memo)
		return ErrInvalidAmount
	}
	l.balance += amount
	l.stats.TotalEarned += amount
	if amount > l.stats.BestSale {
		l.stats.BestSale = amount
	}
	l.bus.Publish(event.Event{Day: l.day, Type: event.TypeMoneyChanged, Message: memo, Amount: amount})

	for l.milestonesHit < len(l.cfg.Game.Milestones) && l.balance >= l.cfg.Game.Milestones[l.milestonesHit] {
		m := l.cfg.Game.Milestones[l.milestonesHit]
		l.milestonesHit++
		l.bus.Publish(event.Event{
			Day: l.day, Type: event.TypeMilestone, Amount: m,
			Message: fmt.Sprintf("Milestone reached: $%s!", humanize.Comma(m)),
		})
	}

	if l.balance >= l.cfg.Game.Goal {
		l.status = StatusWon
		l.bus.Publish(event.Event{
			Day: l.day, Type: event.TypeGameWon, Amount: l.balance,
			Message: fmt.Sprintf("You won! Reached $%s on day %d.", humanize.Comma(l.balance), l.day),
		})
		slog.Info("game won", "day", l.day, "balance", l.balance)
	}
	return nil
}

// Debit subtracts amount from the balance. A debit beyond the balance is
// refused and changes nothing.
func (l *Ledger) Debit(amount int64, memo string) error {
	if l.GameOver() {
		return ErrGameOver
	}
	if amount < 0 {
		slog.Warn("debit rejected", "amount", amount, "memo", memo)
		return ErrInvalidAmount
	}
	if l.balance < amount {
		return ErrInsufficientFunds
	}
	l.balance -= amount
	l.stats.TotalSpent += amount
	l.bus.Publish(event.Event{Day: l.day, Type: event.TypeMoneyChanged, Message: memo, Amount: -amount})
	return nil
}

// AdvanceDay moves to the next day, rolls the forecast window forward and
// runs the lose check. Once the game is over it warns and does nothing.
func (l *Ledger) AdvanceDay() {
	if l.GameOver() {
		slog.Warn("day advance ignored, game is over", "status", l.status, "day", l.day)
		return
	}
	l.day++

	// Drop entries behind the new day and top the window back up; in the
	// steady state exactly one fresh day enters at the tail.
	keep := l.forecast[:0]
	for _, w := range l.forecast {
		if w.Day >= l.day {
			keep = append(keep, w)
		}
	}
	l.forecast = keep
	for len(l.forecast) < l.cfg.Game.ForecastDays {
		next := l.day
		if n := len(l.forecast); n > 0 {
			next = l.forecast[n-1].Day + 1
		}
		l.forecast = append(l.forecast, weather.NewDay(next, l.rng, l.cfg.Demand))
	}

	today := l.forecast[0]
	l.bus.Publish(event.Event{
		Day: l.day, Type: event.TypeDayAdvanced,
		Message: fmt.Sprintf("Day %d: %s (demand x%s)", l.day, today.Label, today.Demand),
	})

	if l.day > l.cfg.Game.TotalDays && l.balance < l.cfg.Game.Goal {
		l.status = StatusLost
		l.bus.Publish(event.Event{
			Day: l.day, Type: event.TypeGameLost, Amount: l.balance,
			Message: fmt.Sprintf("Out of time! $%s of $%s after %d days.",
				humanize.Comma(l.balance), humanize.Comma(l.cfg.Game.Goal), l.cfg.Game.TotalDays),
		})
		slog.Info("game lost", "day", l.day, "balance", l.balance, "goal", l.cfg.Game.Goal)
	}
}

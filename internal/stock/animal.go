package stock

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/talgya/homestead/internal/config"
	"github.com/talgya/homestead/internal/entropy"
)

type AnimalStatus string

const (
	AnimalUnplaced AnimalStatus = "unplaced"
	AnimalGrowing  AnimalStatus = "growing"
	AnimalMature   AnimalStatus = "mature"
)

// breedEligibleProgress gates breeding until half of growth has elapsed,
// so placement and breeding can never coincide.
const breedEligibleProgress = 0.5

// Animal is a single livestock instance. Offspring are owned exclusively
// by their parent: one parent per child, never shared, never re-parented.
type Animal struct {
	ID        string
	TypeID    string
	Name      string
	Tier      int
	Status    AnimalStatus
	PlacedAt  *time.Time
	Duration  time.Duration
	Cost      int64
	BasePrice int64
	// Purchased animals came from the shop; bred ones carry no
	// acquisition cost and went through the survival roll instead.
	Purchased bool

	BreedingChance    float64
	OffspringSurvival float64
	BreedingAttempted bool
	HasOffspring      bool
	Offspring         []*Animal
}

// NewAnimal returns an unplaced, purchased animal of the given type.
func NewAnimal(spec config.AnimalSpec) *Animal {
	return &Animal{
		ID:                uuid.NewString(),
		TypeID:            spec.ID,
		Name:              spec.Name,
		Tier:              spec.Tier,
		Status:            AnimalUnplaced,
		Duration:          spec.Growth(),
		Cost:              spec.Cost,
		BasePrice:         spec.BasePrice,
		Purchased:         true,
		BreedingChance:    spec.BreedingChance,
		OffspringSurvival: spec.OffspringSurvival,
	}
}

// newOffspring copies the parent's type parameters into a bred animal with
// no acquisition cost and a fresh breeding attempt of its own.
func newOffspring(parent *Animal) *Animal {
	return &Animal{
		ID:                uuid.NewString(),
		TypeID:            parent.TypeID,
		Name:              parent.Name,
		Tier:              parent.Tier,
		Status:            AnimalUnplaced,
		Duration:          parent.Duration,
		Cost:              0,
		BasePrice:         parent.BasePrice,
		Purchased:         false,
		BreedingChance:    parent.BreedingChance,
		OffspringSurvival: parent.OffspringSurvival,
	}
}

// Place moves the animal into Growing and stamps the anchor, exactly once.
func (a *Animal) Place(now time.Time) error {
	if a.Status != AnimalUnplaced {
		slog.Warn("place rejected, animal is not unplaced", "id", a.ID, "status", a.Status)
		return ErrAlreadyActive
	}
	t := now
	a.PlacedAt = &t
	a.Status = AnimalGrowing
	return nil
}

// Refresh performs the Growing to Mature transition once growth is done,
// reporting whether the flip happened on this call.
func (a *Animal) Refresh(now time.Time) bool {
	if a.Status != AnimalGrowing {
		return false
	}
	if progressBetween(a.PlacedAt, a.Duration, now) < 1 {
		return false
	}
	a.Status = AnimalMature
	return true
}

// Mature reports whether the animal has finished growing. Pure read; call
// Refresh first on paths that need up-to-the-moment status.
func (a *Animal) Mature() bool {
	return a.Status == AnimalMature
}

// Progress is the derived completion in [0, 1].
func (a *Animal) Progress(now time.Time) float64 {
	switch a.Status {
	case AnimalUnplaced:
		return 0
	case AnimalGrowing:
		return progressBetween(a.PlacedAt, a.Duration, now)
	default:
		return 1
	}
}

// Remaining is the wall-clock time left until maturity.
func (a *Animal) Remaining(now time.Time) time.Duration {
	if a.Status != AnimalGrowing {
		return 0
	}
	return remainingBetween(a.PlacedAt, a.Duration, now)
}

// TimeLeft is Remaining formatted for display, e.g. "4 minutes left".
func (a *Animal) TimeLeft(now time.Time) string {
	return timeLeftLabel(a.Remaining(now), now)
}

// CanBreed reports breeding eligibility: still growing, never attempted,
// and at least half grown.
func (a *Animal) CanBreed(now time.Time) bool {
	return a.Status == AnimalGrowing &&
		!a.BreedingAttempted &&
		a.Progress(now) >= breedEligibleProgress
}

// Outcome reports what a breeding attempt produced. Offspring is non-nil
// only when Survived is true.
type Outcome struct {
	Attempted bool
	Bred      bool
	Survived  bool
	Offspring *Animal
}

// AttemptBreeding runs the one-shot breeding event: the attempt latch is
// set no matter the outcome, then two independent rolls decide whether an
// offspring is born and whether it survives. A surviving offspring is
// appended to this animal's brood and starts growing immediately.
// Ineligible calls return an all-false Outcome and change nothing.
func (a *Animal) AttemptBreeding(now time.Time, rng *entropy.Source) Outcome {
	if !a.CanBreed(now) {
		slog.Warn("breeding attempt on ineligible animal",
			"id", a.ID, "status", a.Status, "attempted", a.BreedingAttempted)
		return Outcome{}
	}
	a.BreedingAttempted = true

	if !rng.Roll(a.BreedingChance) {
		return Outcome{Attempted: true}
	}
	a.HasOffspring = true

	child := newOffspring(a)
	if !rng.Roll(a.OffspringSurvival) {
		// The stillborn offspring never joins any collection.
		return Outcome{Attempted: true, Bred: true}
	}

	a.Offspring = append(a.Offspring, child)
	_ = child.Place(now)
	return Outcome{Attempted: true, Bred: true, Survived: true, Offspring: child}
}

// TotalOffspring counts descendants across all generations.
func (a *Animal) TotalOffspring() int {
	n := len(a.Offspring)
	for _, child := range a.Offspring {
		n += child.TotalOffspring()
	}
	return n
}

// AllOffspring flattens the descendant tree, parents before their broods.
func (a *Animal) AllOffspring() []*Animal {
	var out []*Animal
	for _, child := range a.Offspring {
		out = append(out, child)
		out = append(out, child.AllOffspring()...)
	}
	return out
}

// SellPrice is floor(base price times demand index).
func (a *Animal) SellPrice(demand decimal.Decimal) int64 {
	return sellPrice(a.BasePrice, demand)
}

// Profit is the sell price minus the acquisition cost, which is zero for
// bred animals.
func (a *Animal) Profit(demand decimal.Decimal) int64 {
	return a.SellPrice(demand) - a.Cost
}

// Display renders the animal for the API and reports.
func (a *Animal) Display(now time.Time) DisplayInfo {
	info := DisplayInfo{
		ID:       a.ID,
		TypeID:   a.TypeID,
		Name:     a.Name,
		Tier:     a.Tier,
		Status:   string(a.Status),
		Progress: int(a.Progress(now) * 100),
	}
	switch a.Status {
	case AnimalGrowing:
		info.TimeLeft = timeLeftLabel(a.Remaining(now), now)
	case AnimalMature:
		info.TimeLeft = "ready"
	}
	return info
}

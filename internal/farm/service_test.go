package farm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/homestead/internal/config"
	"github.com/talgya/homestead/internal/engine"
	"github.com/talgya/homestead/internal/entropy"
	"github.com/talgya/homestead/internal/event"
	"github.com/talgya/homestead/internal/ledger"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// neutralConfig pins the demand table to 1.0 so prices are deterministic
// regardless of the weather roll.
func neutralConfig() *config.Config {
	cfg := config.Default()
	cfg.Demand = []config.DemandRule{{Min: 0.10, Max: 1.00, Multiplier: 1.0, Label: "Steady market"}}
	return cfg
}

func newServiceForTest(cfg *config.Config) (*Service, *engine.FakeClock, *event.Bus) {
	fake := engine.NewFakeClock(t0)
	clk := engine.NewGameClock(fake)
	bus := event.NewBus()
	rng := entropy.NewSeeded(1)
	led := ledger.New(cfg, rng, bus)
	return New(cfg, led, clk, rng, bus), fake, bus
}

func carrotGrowth(cfg *config.Config) time.Duration {
	spec, _ := cfg.Crop("carrot")
	return spec.Growth()
}

func TestSeedToSaleThroughFacade(t *testing.T) {
	cfg := neutralConfig()
	svc, fake, _ := newServiceForTest(cfg)

	res := svc.BuySeed("carrot")
	require.True(t, res.OK, res.Message)
	assert.Equal(t, int64(40), res.Balance)
	seedID := res.ID

	res = svc.PlantCrop(seedID)
	require.True(t, res.OK, res.Message)

	res = svc.HarvestCrop(seedID)
	require.False(t, res.OK)
	assert.Contains(t, res.Message, "still growing")

	fake.Advance(carrotGrowth(cfg))

	res = svc.HarvestCrop(seedID)
	require.True(t, res.OK, res.Message)

	res = svc.SellCrop(seedID)
	require.True(t, res.OK, res.Message)
	assert.Equal(t, int64(18), res.Amount)
	assert.Equal(t, int64(58), res.Balance)
}

func TestBuySeedRefusals(t *testing.T) {
	svc, _, _ := newServiceForTest(neutralConfig())

	res := svc.BuySeed("melon") // costs 120, balance is 50
	require.False(t, res.OK)
	assert.Equal(t, "Not enough money! You need $120.", res.Message)
	assert.Equal(t, int64(50), res.Balance, "refusal must not touch the balance")

	res = svc.BuySeed("dragonfruit")
	require.False(t, res.OK)
	assert.Contains(t, res.Message, "dragonfruit")
}

func TestPlantRefusesWhenFieldIsFull(t *testing.T) {
	cfg := neutralConfig()
	cfg.Game.FieldPlots = 1
	cfg.Game.StartingBalance = 100
	svc, _, _ := newServiceForTest(cfg)

	first := svc.BuySeed("carrot")
	second := svc.BuySeed("carrot")
	require.True(t, svc.PlantCrop(first.ID).OK)

	res := svc.PlantCrop(second.ID)
	require.False(t, res.OK)
	assert.Equal(t, "No free field plots!", res.Message)

	res = svc.PlantCrop("no-such-id")
	require.False(t, res.OK)
	assert.Equal(t, "You don't have that seed.", res.Message)
}

func TestGrowthTickMaturesCropsAndEmits(t *testing.T) {
	cfg := neutralConfig()
	svc, fake, bus := newServiceForTest(cfg)

	res := svc.BuySeed("carrot")
	require.True(t, svc.PlantCrop(res.ID).OK)

	svc.GrowthTick()
	for _, e := range bus.Recent(0) {
		assert.NotEqual(t, event.TypeCropMatured, e.Type)
	}

	fake.Advance(carrotGrowth(cfg))
	svc.GrowthTick()

	var matured []event.Event
	for _, e := range bus.Recent(0) {
		if e.Type == event.TypeCropMatured {
			matured = append(matured, e)
		}
	}
	require.Len(t, matured, 1)
	assert.Equal(t, res.ID, matured[0].EntityID)

	// A second sweep must not re-announce the same crop.
	svc.GrowthTick()
	matured = matured[:0]
	for _, e := range bus.Recent(0) {
		if e.Type == event.TypeCropMatured {
			matured = append(matured, e)
		}
	}
	assert.Len(t, matured, 1)
}

func TestGrowthTickBreedsAndAdoptsOffspring(t *testing.T) {
	cfg := neutralConfig()
	cfg.Game.StartingBalance = 100
	cfg.Animals = []config.AnimalSpec{{
		ID: "chicken", Name: "chicken", Tier: 1,
		Cost: 80, BasePrice: 150, GrowthS: 240,
		BreedingChance: 1.0, OffspringSurvival: 1.0,
	}}
	svc, fake, bus := newServiceForTest(cfg)

	res := svc.BuyAnimal("chicken")
	require.True(t, res.OK, res.Message)
	require.True(t, svc.PlaceAnimal(res.ID).OK)

	fake.Advance(120 * time.Second) // half grown, breeding window opens
	svc.GrowthTick()

	var bred []event.Event
	for _, e := range bus.Recent(0) {
		if e.Type == event.TypeAnimalBred {
			bred = append(bred, e)
		}
	}
	require.Len(t, bred, 1)

	farmView := svc.Farm()
	assert.Len(t, farmView.Pens, 2, "parent plus adopted offspring")

	// The offspring was anchored at adoption, so it matures later than
	// its parent.
	fake.Advance(120 * time.Second)
	svc.GrowthTick()
	var grown []event.Event
	for _, e := range bus.Recent(0) {
		if e.Type == event.TypeAnimalMatured {
			grown = append(grown, e)
		}
	}
	assert.Len(t, grown, 1, "only the parent is grown at this point")
}

func TestPauseFreezesGrowth(t *testing.T) {
	cfg := neutralConfig()
	svc, fake, _ := newServiceForTest(cfg)

	res := svc.BuySeed("carrot")
	require.True(t, svc.PlantCrop(res.ID).OK)

	require.True(t, svc.Pause().OK)
	assert.True(t, svc.Paused())

	fake.Advance(24 * time.Hour)
	require.True(t, svc.Resume().OK)

	harvest := svc.HarvestCrop(res.ID)
	require.False(t, harvest.OK, "paused time must not count as growth")

	fake.Advance(carrotGrowth(cfg))
	assert.True(t, svc.HarvestCrop(res.ID).OK)
}

func TestPauseResumeAreGuarded(t *testing.T) {
	svc, _, _ := newServiceForTest(neutralConfig())

	assert.False(t, svc.Resume().OK, "resume while running is a refusal")
	require.True(t, svc.Pause().OK)
	assert.False(t, svc.Pause().OK, "double pause is a refusal")
	require.True(t, svc.Resume().OK)
}

func TestWinHaltsEngineAndFurtherCommands(t *testing.T) {
	cfg := neutralConfig()
	cfg.Game.Goal = 55
	cfg.Game.Milestones = nil
	svc, fake, bus := newServiceForTest(cfg)

	eng := &engine.Engine{
		GrowthInterval: time.Hour,
		DayInterval:    time.Hour,
		OnGrowth:       svc.GrowthTick,
		OnDay:          svc.AdvanceDay,
	}
	svc.AttachEngine(eng)
	eng.Start()
	defer eng.Stop()

	res := svc.BuySeed("carrot")
	require.True(t, svc.PlantCrop(res.ID).OK)
	fake.Advance(carrotGrowth(cfg))
	require.True(t, svc.HarvestCrop(res.ID).OK)

	sale := svc.SellCrop(res.ID)
	require.True(t, sale.OK)
	assert.Equal(t, ledger.StatusWon, svc.Overview().Status)
	assert.Equal(t, 100, svc.Overview().Progress, "progress caps at 100 past the goal")

	var won []event.Event
	for _, e := range bus.Recent(0) {
		if e.Type == event.TypeGameWon {
			won = append(won, e)
		}
	}
	require.Len(t, won, 1)

	svc.GrowthTick()
	assert.False(t, eng.Running(), "sweep after game over halts the engine")

	refused := svc.BuySeed("carrot")
	require.False(t, refused.OK)
	assert.Equal(t, "The game is over.", refused.Message)
	assert.False(t, svc.Resume().OK)
}

func TestStopHaltsEngineWithoutFreezingClock(t *testing.T) {
	cfg := neutralConfig()
	svc, fake, _ := newServiceForTest(cfg)

	res := svc.BuySeed("carrot")
	require.True(t, svc.PlantCrop(res.ID).OK)

	eng := &engine.Engine{
		GrowthInterval: time.Hour,
		DayInterval:    time.Hour,
		OnGrowth:       svc.GrowthTick,
		OnDay:          svc.AdvanceDay,
	}
	svc.AttachEngine(eng)
	eng.Start()

	stop := svc.Stop()
	require.True(t, stop.OK, stop.Message)
	assert.False(t, eng.Running())
	assert.False(t, svc.Stop().OK, "stopping a stopped engine is a refusal")

	// Growth is wall-clock anchored, so it keeps accruing after a stop.
	fake.Advance(carrotGrowth(cfg))
	assert.True(t, svc.HarvestCrop(res.ID).OK)
}

func TestSellAnimalBeforeMatureIsRefused(t *testing.T) {
	cfg := neutralConfig()
	cfg.Game.StartingBalance = 100
	svc, fake, _ := newServiceForTest(cfg)

	res := svc.BuyAnimal("chicken")
	require.True(t, res.OK, res.Message)
	require.True(t, svc.PlaceAnimal(res.ID).OK)

	sell := svc.SellAnimal(res.ID)
	require.False(t, sell.OK)
	assert.Contains(t, sell.Message, "isn't grown yet")

	spec, _ := cfg.Animal("chicken")
	fake.Advance(spec.Growth())
	sell = svc.SellAnimal(res.ID)
	require.True(t, sell.OK, sell.Message)
	assert.Equal(t, int64(150), sell.Amount)
}

func TestAdvanceDayEmitsAndReports(t *testing.T) {
	cfg := neutralConfig()
	svc, _, bus := newServiceForTest(cfg)

	svc.AdvanceDay()
	assert.Equal(t, 2, svc.Overview().Day)

	var advanced []event.Event
	for _, e := range bus.Recent(0) {
		if e.Type == event.TypeDayAdvanced {
			advanced = append(advanced, e)
		}
	}
	require.Len(t, advanced, 1)
	assert.Equal(t, 2, advanced[0].Day)
}

func TestViewsReflectHoldings(t *testing.T) {
	cfg := neutralConfig()
	svc, _, _ := newServiceForTest(cfg)

	res := svc.BuySeed("carrot")
	require.True(t, res.OK)

	view := svc.Farm()
	assert.Len(t, view.Seeds, 1)
	assert.Empty(t, view.Field)
	assert.Equal(t, cfg.Game.FieldPlots, view.FieldPlots)

	shop := svc.Shop()
	assert.Len(t, shop, len(cfg.Crops)+len(cfg.Animals))
	assert.Equal(t, "crop", shop[0].Kind)

	ov := svc.Overview()
	assert.Equal(t, 1, ov.Day)
	assert.Equal(t, int64(40), ov.Balance)
	assert.Equal(t, 0, ov.Progress, "40 of 5000 rounds down to zero percent")
	assert.False(t, ov.Paused)

	forecast := svc.Forecast()
	require.Len(t, forecast, cfg.Game.ForecastDays)
	assert.Equal(t, ov.Day, forecast[0].Day)
}

func TestSnapshotRestoreRoundTripThroughService(t *testing.T) {
	cfg := neutralConfig()
	svc, fake, _ := newServiceForTest(cfg)

	res := svc.BuySeed("potato")
	require.True(t, svc.PlantCrop(res.ID).OK)
	fake.Advance(30 * time.Second)

	snap := svc.SnapshotState()

	other, _, _ := newServiceForTest(cfg)
	other.RestoreState(snap)

	view := other.Farm()
	require.Len(t, view.Field, 1)
	assert.Equal(t, res.ID, view.Field[0].ID)
	assert.Equal(t, int64(35), other.Overview().Balance)
}

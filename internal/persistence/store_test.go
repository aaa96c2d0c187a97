package persistence

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/homestead/internal/event"
	"github.com/talgya/homestead/internal/ledger"
	"github.com/talgya/homestead/internal/stock"
	"github.com/talgya/homestead/internal/weather"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func openStoreForTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open("sqlite", filepath.Join(t.TempDir(), "save.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleSnapshot() ledger.Snapshot {
	childAnchor := t0.Add(90 * time.Second)
	seed := &stock.Crop{
		ID: "c-seed", TypeID: "potato", Name: "potato", Tier: 1,
		Status: stock.CropUnplanted, Duration: 3 * time.Minute,
		SeedCost: 15, BasePrice: 26,
	}
	growing := &stock.Crop{
		ID: "c-field", TypeID: "carrot", Name: "carrot", Tier: 1,
		Status: stock.CropGrowing, PlantedAt: &t0, Duration: 2 * time.Minute,
		SeedCost: 10, BasePrice: 18,
	}
	basket := &stock.Crop{
		ID: "c-basket", TypeID: "carrot", Name: "carrot", Tier: 1,
		Status: stock.CropHarvested, PlantedAt: &t0, Duration: 2 * time.Minute,
		SeedCost: 10, BasePrice: 18,
	}
	chick := &stock.Animal{
		ID: "a-chick", TypeID: "chicken", Name: "chicken", Tier: 1,
		Status: stock.AnimalGrowing, PlacedAt: &childAnchor, Duration: 4 * time.Minute,
		BasePrice: 150, BreedingChance: 0.45, OffspringSurvival: 0.75,
	}
	hen := &stock.Animal{
		ID: "a-hen", TypeID: "chicken", Name: "chicken", Tier: 1,
		Status: stock.AnimalGrowing, PlacedAt: &t0, Duration: 4 * time.Minute,
		Cost: 80, BasePrice: 150, Purchased: true,
		BreedingChance: 0.45, OffspringSurvival: 0.75,
		BreedingAttempted: true, HasOffspring: true,
		Offspring: []*stock.Animal{chick},
	}
	calf := &stock.Animal{
		ID: "a-calf", TypeID: "cow", Name: "cow", Tier: 3,
		Status: stock.AnimalUnplaced, Duration: 15 * time.Minute,
		Cost: 600, BasePrice: 1150, Purchased: true,
		BreedingChance: 0.25, OffspringSurvival: 0.65,
	}

	return ledger.Snapshot{
		Balance:       321,
		Day:           4,
		Status:        ledger.StatusPlaying,
		MilestonesHit: 2,
		Stats: ledger.Stats{
			TotalEarned: 500, TotalSpent: 229, BestSale: 110,
			CropsHarvested: 5, CropsSold: 4, AnimalsSold: 1, AnimalsBred: 1,
		},
		Forecast: []weather.Weather{
			{Day: 4, Value: 0.52, Demand: decimal.NewFromFloat(1.2), Label: "Busy market"},
			{Day: 5, Value: 0.88, Demand: decimal.NewFromFloat(0.8), Label: "Flooded market"},
			{Day: 6, Value: 0.31, Demand: decimal.NewFromFloat(1.5), Label: "Sellers' market"},
		},
		Seeds:     []*stock.Crop{seed},
		Field:     []*stock.Crop{growing},
		Harvested: []*stock.Crop{basket},
		Young:     []*stock.Animal{calf},
		Pen:       []*stock.Animal{hen, chick},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := openStoreForTest(t)
	snap := sampleSnapshot()
	events := []event.Event{
		{Day: 1, Type: event.TypeMoneyChanged, Message: "Bought a carrot seed", Amount: -10},
		{Day: 2, Type: event.TypeCropMatured, Message: "Your carrot is ready to harvest!", EntityID: "c-field"},
	}

	require.False(t, s.HasGame())
	require.NoError(t, s.SaveGame(snap, events))
	require.True(t, s.HasGame())

	loaded, loadedEvents, err := s.LoadGame()
	require.NoError(t, err)

	assert.Equal(t, snap.Balance, loaded.Balance)
	assert.Equal(t, snap.Day, loaded.Day)
	assert.Equal(t, snap.Status, loaded.Status)
	assert.Equal(t, snap.MilestonesHit, loaded.MilestonesHit)
	assert.Equal(t, snap.Stats, loaded.Stats)
	assert.Equal(t, events, loadedEvents)

	require.Len(t, loaded.Seeds, 1)
	assert.Nil(t, loaded.Seeds[0].PlantedAt, "unplanted seed has no anchor")

	require.Len(t, loaded.Field, 1)
	require.NotNil(t, loaded.Field[0].PlantedAt)
	assert.True(t, t0.Equal(*loaded.Field[0].PlantedAt), "anchor restored verbatim")
	assert.Equal(t, 2*time.Minute, loaded.Field[0].Duration)
	assert.Equal(t, stock.CropGrowing, loaded.Field[0].Status)

	require.Len(t, loaded.Harvested, 1)
	assert.Equal(t, stock.CropHarvested, loaded.Harvested[0].Status)

	require.Len(t, loaded.Young, 1)
	assert.Equal(t, "a-calf", loaded.Young[0].ID)

	require.Len(t, loaded.Pen, 2)
	assert.Equal(t, "a-hen", loaded.Pen[0].ID)
	assert.Equal(t, "a-chick", loaded.Pen[1].ID)
}

func TestLoadRebuildsBroodLinks(t *testing.T) {
	s := openStoreForTest(t)
	require.NoError(t, s.SaveGame(sampleSnapshot(), nil))

	loaded, _, err := s.LoadGame()
	require.NoError(t, err)

	hen := loaded.Pen[0]
	require.Len(t, hen.Offspring, 1)
	assert.Same(t, loaded.Pen[1], hen.Offspring[0], "penned offspring and brood entry are one animal")
	assert.True(t, hen.BreedingAttempted, "latch survives the round trip")
	assert.True(t, hen.HasOffspring)
	assert.False(t, hen.Offspring[0].Purchased)
}

func TestSoldOffspringStaysInBroodOnly(t *testing.T) {
	s := openStoreForTest(t)
	snap := sampleSnapshot()

	// Selling the chick removes it from the pen; the hen's brood keeps
	// it for lifetime counts.
	snap.Pen = snap.Pen[:1]

	require.NoError(t, s.SaveGame(snap, nil))
	loaded, _, err := s.LoadGame()
	require.NoError(t, err)

	require.Len(t, loaded.Pen, 1)
	hen := loaded.Pen[0]
	require.Len(t, hen.Offspring, 1)
	assert.Equal(t, "a-chick", hen.Offspring[0].ID)
	assert.Equal(t, 1, hen.TotalOffspring())
}

func TestSaveReplacesPreviousGame(t *testing.T) {
	s := openStoreForTest(t)
	require.NoError(t, s.SaveGame(sampleSnapshot(), nil))

	second := ledger.Snapshot{
		Balance: 9000,
		Day:     29,
		Status:  ledger.StatusWon,
		Forecast: []weather.Weather{
			{Day: 29, Value: 0.10, Demand: decimal.NewFromInt(2), Label: "Scarce market"},
		},
	}
	require.NoError(t, s.SaveGame(second, nil))

	loaded, events, err := s.LoadGame()
	require.NoError(t, err)
	assert.Equal(t, int64(9000), loaded.Balance)
	assert.Equal(t, ledger.StatusWon, loaded.Status)
	assert.Empty(t, loaded.Seeds)
	assert.Empty(t, loaded.Pen)
	assert.Empty(t, events)
	require.Len(t, loaded.Forecast, 1)
	assert.True(t, decimal.NewFromInt(2).Equal(loaded.Forecast[0].Demand))
}

func TestForecastDemandSurvivesAsDecimal(t *testing.T) {
	s := openStoreForTest(t)
	require.NoError(t, s.SaveGame(sampleSnapshot(), nil))

	loaded, _, err := s.LoadGame()
	require.NoError(t, err)
	require.Len(t, loaded.Forecast, 3)
	assert.True(t, decimal.NewFromFloat(1.2).Equal(loaded.Forecast[0].Demand))
	assert.Equal(t, 0.52, loaded.Forecast[0].Value)
	assert.Equal(t, "Busy market", loaded.Forecast[0].Label)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("oracle", "dsn")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oracle")
}

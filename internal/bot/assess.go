package bot

// Pressure levels steer how aggressively the farmhand liquidates stock.
const (
	// PressureClosing means the run is nearly over. Everything sellable
	// goes, whatever the market looks like.
	PressureClosing = "CLOSING"
	// PressureBuilding is the normal state: grow, hold for good markets.
	PressureBuilding = "BUILDING"
	// PressureIdle means nothing is growing and nothing is held, so the
	// only useful move is a purchase.
	PressureIdle = "IDLE"
)

// closingDays is how many remaining days trigger the liquidation posture.
const closingDays = 2

// Assessment holds derived signals computed from a GameSnapshot.
// Runs before Decide — deterministic and free.
type Assessment struct {
	Day         int
	DaysLeft    int
	Balance     int64
	Goal        int64
	GameOver    bool
	Paused      bool
	MatureField []string // crop ids ready to harvest
	Basket      []string // harvested crop ids ready to sell
	MaturePens  []string // animal ids ready to sell
	IdleSeeds   []string // unplanted seed ids
	BarnAnimals []string // unplaced animal ids
	FreePlots   int
	FreePens    int
	DemandToday float64
	BestDemand  float64 // best multiplier visible in the forecast window
	GoodMarket  bool    // today is as good as the window gets
	Cheapest    *ShopListing
	Pressure    string
}

// Assess computes an Assessment from the snapshot's data.
func Assess(snap *GameSnapshot) *Assessment {
	a := &Assessment{
		Day:      snap.Status.Day,
		DaysLeft: snap.Status.DaysLeft,
		Balance:  snap.Status.Balance,
		Goal:     snap.Status.Goal,
		GameOver: snap.Status.Status != "playing",
		Paused:   snap.Status.Paused,
	}

	for _, c := range snap.Farm.Field {
		if c.Status == "mature" {
			a.MatureField = append(a.MatureField, c.ID)
		}
	}
	for _, c := range snap.Farm.Basket {
		a.Basket = append(a.Basket, c.ID)
	}
	for _, an := range snap.Farm.Pens {
		if an.Status == "mature" {
			a.MaturePens = append(a.MaturePens, an.ID)
		}
	}
	for _, c := range snap.Farm.Seeds {
		a.IdleSeeds = append(a.IdleSeeds, c.ID)
	}
	for _, an := range snap.Farm.Barn {
		a.BarnAnimals = append(a.BarnAnimals, an.ID)
	}
	a.FreePlots = snap.Farm.FieldPlots - len(snap.Farm.Field)
	a.FreePens = snap.Farm.AnimalPens - len(snap.Farm.Pens)

	// Market signals. The forecast window opens with the current day, so
	// BestDemand covers today as well.
	a.DemandToday = snap.Status.Weather.Demand.InexactFloat64()
	for _, day := range snap.Forecast {
		if d := day.Demand.InexactFloat64(); d > a.BestDemand {
			a.BestDemand = d
		}
	}
	a.GoodMarket = a.DemandToday >= 1.0 || a.DemandToday >= a.BestDemand

	// Cheapest affordable seed, falling back to the cheapest affordable
	// animal when no plot is free to receive a crop.
	a.Cheapest = cheapestAffordable(snap.Shop, "crop", a.Balance)
	if a.Cheapest == nil || a.FreePlots == 0 {
		if an := cheapestAffordable(snap.Shop, "animal", a.Balance); an != nil && a.FreePens > 0 {
			a.Cheapest = an
		}
	}

	a.Pressure = PressureBuilding
	switch {
	case a.DaysLeft <= closingDays:
		a.Pressure = PressureClosing
	case len(snap.Farm.Field) == 0 && len(snap.Farm.Pens) == 0 &&
		len(a.IdleSeeds) == 0 && len(a.BarnAnimals) == 0 && len(a.Basket) == 0:
		a.Pressure = PressureIdle
	}

	return a
}

func cheapestAffordable(shop []ShopListing, kind string, balance int64) *ShopListing {
	var best *ShopListing
	for i := range shop {
		item := &shop[i]
		if item.Kind != kind || item.Cost > balance {
			continue
		}
		if best == nil || item.Cost < best.Cost {
			best = item
		}
	}
	return best
}

// Package config holds the tunable tables that describe a Homestead
// session: the game parameters, the crop and animal catalogs, the weather
// demand rules, and the database/API settings. Tables are plain data; the
// simulation consumes them read-only after Validate has passed.
package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Weather samples are drawn at two-decimal resolution from this closed
// interval. The demand rule table must cover it without gaps.
const (
	WeatherMin = 0.10
	WeatherMax = 1.00
)

// Demand multipliers outside this range would distort prices beyond what
// the market copy promises players.
const (
	DemandFloor   = 0.8
	DemandCeiling = 2.0
)

type Config struct {
	Game     GameConfig     `yaml:"game" json:"game"`
	Crops    []CropSpec     `yaml:"crops" json:"crops"`
	Animals  []AnimalSpec   `yaml:"animals" json:"animals"`
	Demand   []DemandRule   `yaml:"demand" json:"demand"`
	Database DatabaseConfig `yaml:"database" json:"database"`
	API      APIConfig      `yaml:"api" json:"api"`
}

type GameConfig struct {
	StartingBalance int64   `yaml:"starting_balance" json:"starting_balance"`
	Goal            int64   `yaml:"goal" json:"goal"`
	TotalDays       int     `yaml:"total_days" json:"total_days"`
	DayLengthS      int     `yaml:"day_length_s" json:"day_length_s"`
	GrowthTickS     int     `yaml:"growth_tick_s" json:"growth_tick_s"`
	FieldPlots      int     `yaml:"field_plots" json:"field_plots"`
	AnimalPens      int     `yaml:"animal_pens" json:"animal_pens"`
	ForecastDays    int     `yaml:"forecast_days" json:"forecast_days"`
	Milestones      []int64 `yaml:"milestones" json:"milestones"`
}

// DayLength is how much real time one in-game day lasts.
func (g GameConfig) DayLength() time.Duration {
	return time.Duration(g.DayLengthS) * time.Second
}

// GrowthTick is the cadence of the maturity/breeding sweep.
func (g GameConfig) GrowthTick() time.Duration {
	return time.Duration(g.GrowthTickS) * time.Second
}

type CropSpec struct {
	ID        string `yaml:"id" json:"id"`
	Name      string `yaml:"name" json:"name"`
	Tier      int    `yaml:"tier" json:"tier"`
	SeedCost  int64  `yaml:"seed_cost" json:"seed_cost"`
	BasePrice int64  `yaml:"base_price" json:"base_price"`
	GrowthS   int    `yaml:"growth_s" json:"growth_s"`
}

func (c CropSpec) Growth() time.Duration {
	return time.Duration(c.GrowthS) * time.Second
}

type AnimalSpec struct {
	ID                string  `yaml:"id" json:"id"`
	Name              string  `yaml:"name" json:"name"`
	Tier              int     `yaml:"tier" json:"tier"`
	Cost              int64   `yaml:"cost" json:"cost"`
	BasePrice         int64   `yaml:"base_price" json:"base_price"`
	GrowthS           int     `yaml:"growth_s" json:"growth_s"`
	BreedingChance    float64 `yaml:"breeding_chance" json:"breeding_chance"`
	OffspringSurvival float64 `yaml:"offspring_survival" json:"offspring_survival"`
}

func (a AnimalSpec) Growth() time.Duration {
	return time.Duration(a.GrowthS) * time.Second
}

// DemandRule maps a closed weather-value range onto a price multiplier.
// Rules are matched in order and both ends are inclusive.
type DemandRule struct {
	Min        float64 `yaml:"min" json:"min"`
	Max        float64 `yaml:"max" json:"max"`
	Multiplier float64 `yaml:"multiplier" json:"multiplier"`
	Label      string  `yaml:"label" json:"label"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver" json:"driver"`
	DSN    string `yaml:"dsn" json:"dsn"`
}

type APIConfig struct {
	Port int `yaml:"port" json:"port"`
}

// Default returns the stock balance tables. Load overlays a config file on
// top of these, so a file only needs the keys it changes.
func Default() *Config {
	return &Config{
		Game: GameConfig{
			StartingBalance: 50,
			Goal:            5000,
			TotalDays:       30,
			DayLengthS:      300,
			GrowthTickS:     1,
			FieldPlots:      6,
			AnimalPens:      4,
			ForecastDays:    3,
			Milestones:      []int64{100, 250, 500, 1000, 2500},
		},
		Crops: []CropSpec{
			{ID: "carrot", Name: "Carrot", Tier: 1, SeedCost: 10, BasePrice: 18, GrowthS: 120},
			{ID: "potato", Name: "Potato", Tier: 1, SeedCost: 15, BasePrice: 26, GrowthS: 180},
			{ID: "strawberry", Name: "Strawberry", Tier: 2, SeedCost: 35, BasePrice: 62, GrowthS: 300},
			{ID: "pumpkin", Name: "Pumpkin", Tier: 2, SeedCost: 60, BasePrice: 110, GrowthS: 480},
			{ID: "melon", Name: "Melon", Tier: 3, SeedCost: 120, BasePrice: 230, GrowthS: 720},
		},
		Animals: []AnimalSpec{
			{ID: "chicken", Name: "Chicken", Tier: 1, Cost: 80, BasePrice: 150, GrowthS: 240, BreedingChance: 0.45, OffspringSurvival: 0.75},
			{ID: "goat", Name: "Goat", Tier: 2, Cost: 220, BasePrice: 420, GrowthS: 480, BreedingChance: 0.35, OffspringSurvival: 0.70},
			{ID: "cow", Name: "Cow", Tier: 3, Cost: 600, BasePrice: 1150, GrowthS: 900, BreedingChance: 0.25, OffspringSurvival: 0.65},
		},
		Demand: []DemandRule{
			{Min: 0.10, Max: 0.24, Multiplier: 2.0, Label: "Scarce market"},
			{Min: 0.25, Max: 0.44, Multiplier: 1.5, Label: "Sellers' market"},
			{Min: 0.45, Max: 0.64, Multiplier: 1.2, Label: "Busy market"},
			{Min: 0.65, Max: 0.79, Multiplier: 1.0, Label: "Steady market"},
			{Min: 0.80, Max: 1.00, Multiplier: 0.8, Label: "Flooded market"},
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "data/homestead.db",
		},
		API: APIConfig{
			Port: 8080,
		},
	}
}

// Load returns the defaults overlaid with the YAML file at path, validated.
// An empty path returns the validated defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// cents converts a two-decimal weather value to an integer so range
// adjacency can be checked without float drift.
func cents(v float64) int {
	return int(math.Round(v * 100))
}

func (c *Config) Validate() error {
	g := c.Game
	if g.StartingBalance < 0 {
		return fmt.Errorf("game: starting_balance must not be negative")
	}
	if g.Goal <= g.StartingBalance {
		return fmt.Errorf("game: goal %d must exceed starting_balance %d", g.Goal, g.StartingBalance)
	}
	if g.TotalDays < 1 {
		return fmt.Errorf("game: total_days must be at least 1")
	}
	if g.DayLengthS < 1 || g.GrowthTickS < 1 {
		return fmt.Errorf("game: day_length_s and growth_tick_s must be at least 1")
	}
	if g.FieldPlots < 1 || g.AnimalPens < 1 {
		return fmt.Errorf("game: field_plots and animal_pens must be at least 1")
	}
	if g.ForecastDays < 1 {
		return fmt.Errorf("game: forecast_days must be at least 1")
	}
	for i, m := range g.Milestones {
		if m <= 0 {
			return fmt.Errorf("game: milestones[%d] must be positive", i)
		}
		if i > 0 && m <= g.Milestones[i-1] {
			return fmt.Errorf("game: milestones must be strictly ascending")
		}
	}

	if len(c.Crops) == 0 {
		return fmt.Errorf("crops: at least one crop is required")
	}
	seen := map[string]bool{}
	for i, cs := range c.Crops {
		if cs.ID == "" || cs.Name == "" {
			return fmt.Errorf("crops[%d]: id and name are required", i)
		}
		if seen[cs.ID] {
			return fmt.Errorf("crops[%d]: duplicate id %q", i, cs.ID)
		}
		seen[cs.ID] = true
		if cs.Tier < 1 || cs.SeedCost < 1 || cs.BasePrice < 1 || cs.GrowthS < 1 {
			return fmt.Errorf("crops[%d] %q: tier, seed_cost, base_price and growth_s must be positive", i, cs.ID)
		}
	}

	seen = map[string]bool{}
	for i, as := range c.Animals {
		if as.ID == "" || as.Name == "" {
			return fmt.Errorf("animals[%d]: id and name are required", i)
		}
		if seen[as.ID] {
			return fmt.Errorf("animals[%d]: duplicate id %q", i, as.ID)
		}
		seen[as.ID] = true
		if as.Tier < 1 || as.Cost < 1 || as.BasePrice < 1 || as.GrowthS < 1 {
			return fmt.Errorf("animals[%d] %q: tier, cost, base_price and growth_s must be positive", i, as.ID)
		}
		if as.BreedingChance < 0 || as.BreedingChance > 1 || as.OffspringSurvival < 0 || as.OffspringSurvival > 1 {
			return fmt.Errorf("animals[%d] %q: breeding_chance and offspring_survival must be within [0,1]", i, as.ID)
		}
	}

	if err := validateDemand(c.Demand); err != nil {
		return err
	}

	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database: driver must be sqlite or postgres, got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database: dsn is required")
	}
	if c.API.Port < 1 || c.API.Port > 65535 {
		return fmt.Errorf("api: port %d out of range", c.API.Port)
	}
	return nil
}

// validateDemand enforces the rule-table contract the matcher relies on:
// ordered, non-overlapping, contiguous at two-decimal resolution, covering
// the whole weather interval.
func validateDemand(rules []DemandRule) error {
	if len(rules) == 0 {
		return fmt.Errorf("demand: at least one rule is required")
	}
	if cents(rules[0].Min) != cents(WeatherMin) {
		return fmt.Errorf("demand: first rule must start at %.2f", WeatherMin)
	}
	if cents(rules[len(rules)-1].Max) != cents(WeatherMax) {
		return fmt.Errorf("demand: last rule must end at %.2f", WeatherMax)
	}
	for i, r := range rules {
		if cents(r.Min) > cents(r.Max) {
			return fmt.Errorf("demand[%d]: min %.2f exceeds max %.2f", i, r.Min, r.Max)
		}
		if r.Multiplier < DemandFloor || r.Multiplier > DemandCeiling {
			return fmt.Errorf("demand[%d]: multiplier %.2f outside [%.1f, %.1f]", i, r.Multiplier, DemandFloor, DemandCeiling)
		}
		if r.Label == "" {
			return fmt.Errorf("demand[%d]: label is required", i)
		}
		if i > 0 && cents(r.Min) != cents(rules[i-1].Max)+1 {
			return fmt.Errorf("demand[%d]: range must start right after the previous rule (gap or overlap at %.2f)", i, r.Min)
		}
	}
	return nil
}

// Crop looks up a crop spec by type id.
func (c *Config) Crop(id string) (CropSpec, bool) {
	for _, cs := range c.Crops {
		if cs.ID == id {
			return cs, true
		}
	}
	return CropSpec{}, false
}

// Animal looks up an animal spec by type id.
func (c *Config) Animal(id string) (AnimalSpec, bool) {
	for _, as := range c.Animals {
		if as.ID == id {
			return as, true
		}
	}
	return AnimalSpec{}, false
}

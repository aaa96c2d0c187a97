// Package bot implements the autonomous farmhand. It observes the game
// through the public API, derives a deterministic assessment, picks at most
// one command per cycle from a fixed priority list, and executes it via the
// command endpoint.
package bot

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// GameSnapshot holds all data collected during an observation cycle.
type GameSnapshot struct {
	Status   GameStatus      `json:"status"`
	Farm     FarmReport      `json:"farm"`
	Shop     []ShopListing   `json:"shop"`
	Forecast []WeatherReport `json:"forecast"`
}

// GameStatus mirrors GET /api/v1/status.
type GameStatus struct {
	Name      string        `json:"name"`
	Day       int           `json:"day"`
	TotalDays int           `json:"total_days"`
	DaysLeft  int           `json:"days_left"`
	Balance   int64         `json:"balance"`
	Goal      int64         `json:"goal"`
	Status    string        `json:"status"`
	Paused    bool          `json:"paused"`
	Weather   WeatherReport `json:"weather"`
}

// WeatherReport mirrors one day of the forecast.
type WeatherReport struct {
	Day    int             `json:"day"`
	Value  float64         `json:"value"`
	Demand decimal.Decimal `json:"demand"`
	Label  string          `json:"label"`
}

// FarmReport mirrors GET /api/v1/farm.
type FarmReport struct {
	FieldPlots int         `json:"field_plots"`
	AnimalPens int         `json:"animal_pens"`
	Seeds      []StockInfo `json:"seeds"`
	Field      []StockInfo `json:"field"`
	Basket     []StockInfo `json:"basket"`
	Barn       []StockInfo `json:"barn"`
	Pens       []StockInfo `json:"pens"`
}

// StockInfo mirrors one crop or animal entry in the farm report.
type StockInfo struct {
	ID       string `json:"id"`
	TypeID   string `json:"type_id"`
	Name     string `json:"name"`
	Tier     int    `json:"tier"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	TimeLeft string `json:"time_left,omitempty"`
}

// ShopListing mirrors one entry from GET /api/v1/shop.
type ShopListing struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Tier      int    `json:"tier"`
	Cost      int64  `json:"cost"`
	BasePrice int64  `json:"base_price"`
	GrowthS   int    `json:"growth_s"`
}

// Observer fetches game state from the API.
type Observer struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewObserver creates an Observer targeting the given API base URL.
func NewObserver(baseURL string) *Observer {
	return &Observer{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Observe fetches all four endpoints and returns a GameSnapshot.
func (o *Observer) Observe() (*GameSnapshot, error) {
	snap := &GameSnapshot{}

	if err := o.fetchJSON("/api/v1/status", &snap.Status); err != nil {
		return nil, fmt.Errorf("fetch status: %w", err)
	}
	if err := o.fetchJSON("/api/v1/farm", &snap.Farm); err != nil {
		return nil, fmt.Errorf("fetch farm: %w", err)
	}
	if err := o.fetchJSON("/api/v1/shop", &snap.Shop); err != nil {
		return nil, fmt.Errorf("fetch shop: %w", err)
	}
	if err := o.fetchJSON("/api/v1/forecast", &snap.Forecast); err != nil {
		return nil, fmt.Errorf("fetch forecast: %w", err)
	}

	return snap, nil
}

// fetchJSON GETs a path and decodes the JSON response into target.
func (o *Observer) fetchJSON(path string, target any) error {
	resp, err := o.HTTPClient.Get(o.BaseURL + path)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GET %s returned %d: %s", path, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

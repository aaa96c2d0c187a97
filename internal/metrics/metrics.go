// Package metrics exposes Prometheus counters and gauges for the
// simulation. Collectors are registered once at package init and the
// farm service updates them as the game runs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "homestead_growth_ticks_total",
		Help: "Growth sweeps executed by the engine.",
	})

	DaysTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "homestead_days_total",
		Help: "In-game days completed.",
	})

	CropsMaturedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "homestead_crops_matured_total",
		Help: "Crops that finished growing.",
	})

	AnimalsMaturedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "homestead_animals_matured_total",
		Help: "Animals that finished growing.",
	})

	BreedingAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "homestead_breeding_attempts_total",
		Help: "Breeding attempts by outcome.",
	}, []string{"outcome"})

	SalesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "homestead_sales_total",
		Help: "Completed sales by kind.",
	}, []string{"kind"})

	Balance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "homestead_balance_dollars",
		Help: "Current ledger balance.",
	})

	Day = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "homestead_day",
		Help: "Current in-game day.",
	})
)

// Breeding outcome label values.
const (
	OutcomeFailed   = "failed"
	OutcomeDied     = "died"
	OutcomeSurvived = "survived"
)

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

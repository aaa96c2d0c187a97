// Command farmhand runs the autonomous player for Homestead.
// It observes game state over the HTTP API, assesses the farm, and issues
// at most one command per cycle.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/talgya/homestead/internal/bot"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Configuration from environment.
	apiURL := envOrDefault("FARMSIM_API_URL", "http://localhost:8080")
	intervalS := envIntOrDefault("FARMHAND_INTERVAL", 5)
	memoryPath := envOrDefault("FARMHAND_MEMORY", "farmhand_memory.json")

	interval := time.Duration(intervalS) * time.Second

	slog.Info("Homestead farmhand starting",
		"api_url", apiURL,
		"interval", interval,
	)

	observer := bot.NewObserver(apiURL)
	actor := bot.NewActor(apiURL)

	// Wait for the farmsim API before the first cycle. Process start does
	// not mean HTTP readiness.
	slog.Info("waiting for farmsim API...")
	waitForAPI(apiURL)

	// Run first cycle immediately.
	runCycle(observer, actor, memoryPath)

	// Timer loop.
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			runCycle(observer, actor, memoryPath)
		case sig := <-sigCh:
			slog.Info("received signal, shutting down", "signal", sig)
			fmt.Println("Farmhand clocked out.")
			return
		}
	}
}

// runCycle executes one observe → assess → decide → act cycle.
func runCycle(observer *bot.Observer, actor *bot.Actor, memoryPath string) {
	snap, err := observer.Observe()
	if err != nil {
		slog.Error("observation failed", "error", err)
		return
	}

	assessment := bot.Assess(snap)
	slog.Info("farm assessed",
		"day", assessment.Day,
		"balance", assessment.Balance,
		"demand", fmt.Sprintf("%.2f", assessment.DemandToday),
		"pressure", assessment.Pressure,
		"mature_crops", len(assessment.MatureField),
		"basket", len(assessment.Basket),
	)

	mem := bot.LoadMemory(memoryPath)
	decision := bot.Decide(assessment, mem)
	slog.Info("decision made",
		"action", decision.Action,
		"rationale", decision.Rationale,
	)

	record := bot.CycleRecord{
		Day:       assessment.Day,
		Action:    decision.Action,
		OK:        true,
		Balance:   assessment.Balance,
		Demand:    assessment.DemandToday,
		Pressure:  assessment.Pressure,
		Rationale: decision.Rationale,
	}

	if decision.Command != nil {
		result, actErr := actor.Act(decision.Command)
		if actErr != nil {
			slog.Error("command failed", "error", actErr)
			record.OK = false
		} else {
			record.OK = result.Success
			record.Balance = result.Balance
			slog.Info("command executed",
				"action", decision.Command.Action,
				"success", result.Success,
				"message", result.Message,
			)
		}
	}

	mem.Record(record)
	mem.Save(memoryPath)
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envIntOrDefault(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

// waitForAPI polls the farmsim status endpoint with exponential backoff
// until it responds. Exits after 5 minutes if the API never becomes ready.
func waitForAPI(apiURL string) {
	backoff := 2 * time.Second
	maxBackoff := 30 * time.Second
	deadline := time.Now().Add(5 * time.Minute)

	for {
		resp, err := http.Get(apiURL + "/api/v1/status")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == 200 {
				slog.Info("farmsim API is ready")
				return
			}
		}
		if time.Now().After(deadline) {
			slog.Error("farmsim API did not become ready within 5 minutes")
			os.Exit(1)
		}
		slog.Info("farmsim not ready, retrying...", "backoff", backoff)
		time.Sleep(backoff)
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

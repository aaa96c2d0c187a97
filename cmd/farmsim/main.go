// Command farmsim runs the Homestead farm economy simulation.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mattn/go-isatty"

	"github.com/talgya/homestead/internal/api"
	"github.com/talgya/homestead/internal/config"
	"github.com/talgya/homestead/internal/engine"
	"github.com/talgya/homestead/internal/entropy"
	"github.com/talgya/homestead/internal/event"
	"github.com/talgya/homestead/internal/farm"
	"github.com/talgya/homestead/internal/ledger"
	"github.com/talgya/homestead/internal/persistence"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config overlay")
	dbDriver := flag.String("db-driver", "", "database driver (sqlite or postgres), overrides config")
	dbDSN := flag.String("db", "", "database DSN, overrides config")
	port := flag.Int("port", 0, "API port, overrides config")
	seed := flag.Int64("seed", 0, "weather and breeding seed, 0 draws from crypto entropy")
	flag.Parse()

	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if isatty.IsTerminal(os.Stdout.Fd()) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))

	slog.Info("Homestead — Farm Economy Simulation")

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *dbDriver != "" {
		cfg.Database.Driver = *dbDriver
	}
	if *dbDSN != "" {
		cfg.Database.DSN = *dbDSN
	}
	if *port != 0 {
		cfg.API.Port = *port
	}

	// ── Database ──────────────────────────────────────────────────────
	if cfg.Database.Driver == "sqlite" {
		if dir := filepath.Dir(cfg.Database.DSN); dir != "." {
			os.MkdirAll(dir, 0755)
		}
	}
	store, err := persistence.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("database opened", "driver", cfg.Database.Driver, "dsn", cfg.Database.DSN)

	// ── Game Session ──────────────────────────────────────────────────
	rng := entropy.New()
	if *seed != 0 {
		rng = entropy.NewSeeded(*seed)
	}
	bus := event.NewBus()
	clk := engine.NewGameClock(nil)
	led := ledger.New(cfg, rng, bus)
	svc := farm.New(cfg, led, clk, rng, bus)

	if store.HasGame() {
		slog.Info("found saved game, loading...")
		snap, events, loadErr := store.LoadGame()
		if loadErr != nil {
			slog.Error("failed to load saved game", "error", loadErr)
			os.Exit(1)
		}
		svc.RestoreState(snap)
		bus.Restore(events)
		slog.Info("game restored",
			"day", snap.Day,
			"balance", snap.Balance,
			"status", snap.Status,
			"field", len(snap.Field),
			"pens", len(snap.Pen),
		)
	} else {
		slog.Info("no saved game, starting fresh",
			"balance", cfg.Game.StartingBalance,
			"goal", cfg.Game.Goal,
			"days", cfg.Game.TotalDays,
		)
	}

	// ── Tick Engine ───────────────────────────────────────────────────
	eng := &engine.Engine{
		GrowthInterval: cfg.Game.GrowthTick(),
		DayInterval:    cfg.Game.DayLength(),
		OnGrowth:       svc.GrowthTick,
	}
	// Auto-save rides the day rollover.
	eng.OnDay = func() {
		svc.AdvanceDay()
		if err := svc.Checkpoint(store); err != nil {
			slog.Error("daily save failed", "error", err)
		}
	}
	svc.AttachEngine(eng)

	// ── HTTP API ──────────────────────────────────────────────────────
	adminKey := os.Getenv("FARMSIM_ADMIN_KEY")
	if adminKey == "" {
		slog.Warn("FARMSIM_ADMIN_KEY not set — admin POST endpoints will be disabled")
	}

	apiServer := &api.Server{
		Svc:      svc,
		Store:    store,
		Bus:      bus,
		Port:     cfg.API.Port,
		AdminKey: adminKey,
		RelayKey: os.Getenv("FARMSIM_RELAY_KEY"),
	}
	apiServer.Start()

	// ── Start ─────────────────────────────────────────────────────────
	eng.Start()

	ov := svc.Overview()
	fmt.Printf("\nHomestead is open: day %d of %d, $%d in the till, goal $%d.\n",
		ov.Day, ov.TotalDays, ov.Balance, ov.Goal)
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.API.Port)
	fmt.Println("Running... (Ctrl+C to stop)")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("received signal, shutting down", "signal", sig)

	eng.Stop()
	if err := svc.Checkpoint(store); err != nil {
		slog.Error("final save failed", "error", err)
	}
	fmt.Println("Simulation stopped. Game saved.")
}

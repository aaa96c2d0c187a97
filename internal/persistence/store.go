// Package persistence stores game snapshots in SQL. SQLite is the
// default backend; Postgres via pgx works for hosted deployments, so
// every query goes through sqlx.Rebind.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/talgya/homestead/internal/event"
	"github.com/talgya/homestead/internal/ledger"
	"github.com/talgya/homestead/internal/stock"
	"github.com/talgya/homestead/internal/weather"
)

// Store wraps a SQL connection for game snapshot persistence.
type Store struct {
	db     *sqlx.DB
	driver string
}

// Open connects to the given backend ("sqlite" or "postgres") and runs
// the schema migration.
func Open(driver, dsn string) (*Store, error) {
	var db *sqlx.DB
	var err error
	switch driver {
	case "sqlite":
		db, err = sqlx.Open("sqlite", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	case "postgres":
		db, err = sqlx.Open("pgx", dsn)
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &Store{db: db, driver: driver}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS crops (
		id TEXT PRIMARY KEY,
		type_id TEXT NOT NULL,
		name TEXT NOT NULL,
		tier INTEGER NOT NULL,
		status TEXT NOT NULL,
		planted_at_ms BIGINT,
		duration_ms BIGINT NOT NULL,
		seed_cost BIGINT NOT NULL,
		base_price BIGINT NOT NULL,
		collection TEXT NOT NULL,
		seq INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS animals (
		id TEXT PRIMARY KEY,
		type_id TEXT NOT NULL,
		name TEXT NOT NULL,
		tier INTEGER NOT NULL,
		status TEXT NOT NULL,
		placed_at_ms BIGINT,
		duration_ms BIGINT NOT NULL,
		cost BIGINT NOT NULL,
		base_price BIGINT NOT NULL,
		purchased BOOLEAN NOT NULL,
		breeding_chance DOUBLE PRECISION NOT NULL,
		offspring_survival DOUBLE PRECISION NOT NULL,
		breeding_attempted BOOLEAN NOT NULL,
		has_offspring BOOLEAN NOT NULL,
		parent_id TEXT,
		brood_seq INTEGER NOT NULL,
		collection TEXT NOT NULL,
		seq INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS forecast (
		day INTEGER PRIMARY KEY,
		value DOUBLE PRECISION NOT NULL,
		demand TEXT NOT NULL,
		label TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		seq INTEGER PRIMARY KEY,
		day INTEGER NOT NULL,
		type TEXT NOT NULL,
		message TEXT NOT NULL,
		amount BIGINT NOT NULL,
		entity_id TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS game_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Collection names stored alongside each entity row.
const (
	collSeeds     = "seeds"
	collField     = "field"
	collHarvested = "harvested"
	collYoung     = "young"
	collPen       = "pen"
	collNone      = "none" // reachable only through a parent's brood
)

type cropRow struct {
	ID          string        `db:"id"`
	TypeID      string        `db:"type_id"`
	Name        string        `db:"name"`
	Tier        int           `db:"tier"`
	Status      string        `db:"status"`
	PlantedAtMS sql.NullInt64 `db:"planted_at_ms"`
	DurationMS  int64         `db:"duration_ms"`
	SeedCost    int64         `db:"seed_cost"`
	BasePrice   int64         `db:"base_price"`
	Collection  string        `db:"collection"`
	Seq         int           `db:"seq"`
}

type animalRow struct {
	ID                string         `db:"id"`
	TypeID            string         `db:"type_id"`
	Name              string         `db:"name"`
	Tier              int            `db:"tier"`
	Status            string         `db:"status"`
	PlacedAtMS        sql.NullInt64  `db:"placed_at_ms"`
	DurationMS        int64          `db:"duration_ms"`
	Cost              int64          `db:"cost"`
	BasePrice         int64          `db:"base_price"`
	Purchased         bool           `db:"purchased"`
	BreedingChance    float64        `db:"breeding_chance"`
	OffspringSurvival float64        `db:"offspring_survival"`
	BreedingAttempted bool           `db:"breeding_attempted"`
	HasOffspring      bool           `db:"has_offspring"`
	ParentID          sql.NullString `db:"parent_id"`
	BroodSeq          int            `db:"brood_seq"`
	Collection        string         `db:"collection"`
	Seq               int            `db:"seq"`
}

type forecastRow struct {
	Day    int     `db:"day"`
	Value  float64 `db:"value"`
	Demand string  `db:"demand"`
	Label  string  `db:"label"`
}

type eventRow struct {
	Seq      int    `db:"seq"`
	Day      int    `db:"day"`
	Type     string `db:"type"`
	Message  string `db:"message"`
	Amount   int64  `db:"amount"`
	EntityID string `db:"entity_id"`
}

func anchorMS(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func anchorTime(ms sql.NullInt64) *time.Time {
	if !ms.Valid {
		return nil
	}
	t := time.UnixMilli(ms.Int64).UTC()
	return &t
}

// SaveGame replaces the stored snapshot wholesale inside one
// transaction. Timestamps persist as unix milliseconds so a restore
// resumes growth exactly where the save left it.
func (s *Store) SaveGame(snap ledger.Snapshot, events []event.Event) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"crops", "animals", "forecast", "events", "game_meta"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if err := saveCrops(tx, snap); err != nil {
		return fmt.Errorf("save crops: %w", err)
	}
	if err := saveAnimals(tx, snap); err != nil {
		return fmt.Errorf("save animals: %w", err)
	}
	if err := saveForecast(tx, snap.Forecast); err != nil {
		return fmt.Errorf("save forecast: %w", err)
	}
	if err := saveEvents(tx, events); err != nil {
		return fmt.Errorf("save events: %w", err)
	}
	if err := saveMeta(tx, snap); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Info("game saved", "day", snap.Day, "balance", snap.Balance, "events", len(events))
	return nil
}

func saveCrops(tx *sqlx.Tx, snap ledger.Snapshot) error {
	stmt, err := tx.Preparex(tx.Rebind(`INSERT INTO crops
		(id, type_id, name, tier, status, planted_at_ms, duration_ms,
		 seed_cost, base_price, collection, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return err
	}
	defer stmt.Close()

	insert := func(crops []*stock.Crop, coll string) error {
		for i, c := range crops {
			_, err := stmt.Exec(
				c.ID, c.TypeID, c.Name, c.Tier, string(c.Status),
				anchorMS(c.PlantedAt), c.Duration.Milliseconds(),
				c.SeedCost, c.BasePrice, coll, i,
			)
			if err != nil {
				return fmt.Errorf("insert crop %s: %w", c.ID, err)
			}
		}
		return nil
	}

	if err := insert(snap.Seeds, collSeeds); err != nil {
		return err
	}
	if err := insert(snap.Field, collField); err != nil {
		return err
	}
	return insert(snap.Harvested, collHarvested)
}

// saveAnimals flattens every animal into one row each. Collection
// membership and brood parentage are independent columns: a penned
// offspring carries both its pen position and its parent's id. Animals
// reachable only through a brood (a sold offspring, kept for lifetime
// counts) are stored with collection "none".
func saveAnimals(tx *sqlx.Tx, snap ledger.Snapshot) error {
	type flatAnimal struct {
		animal   *stock.Animal
		parentID string
		broodSeq int
		coll     string
		seq      int
	}

	flat := make(map[string]*flatAnimal)
	order := make([]string, 0, len(snap.Young)+len(snap.Pen))

	ensure := func(a *stock.Animal) *flatAnimal {
		f, ok := flat[a.ID]
		if !ok {
			f = &flatAnimal{animal: a, coll: collNone}
			flat[a.ID] = f
			order = append(order, a.ID)
		}
		return f
	}

	for i, a := range snap.Young {
		f := ensure(a)
		f.coll, f.seq = collYoung, i
	}
	for i, a := range snap.Pen {
		f := ensure(a)
		f.coll, f.seq = collPen, i
	}
	// Walk broods breadth-first; order grows as rows are discovered.
	for i := 0; i < len(order); i++ {
		parent := flat[order[i]].animal
		for j, child := range parent.Offspring {
			f := ensure(child)
			f.parentID, f.broodSeq = parent.ID, j
		}
	}

	stmt, err := tx.Preparex(tx.Rebind(`INSERT INTO animals
		(id, type_id, name, tier, status, placed_at_ms, duration_ms,
		 cost, base_price, purchased, breeding_chance, offspring_survival,
		 breeding_attempted, has_offspring, parent_id, brood_seq, collection, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, id := range order {
		f := flat[id]
		a := f.animal
		parent := sql.NullString{String: f.parentID, Valid: f.parentID != ""}
		_, err := stmt.Exec(
			a.ID, a.TypeID, a.Name, a.Tier, string(a.Status),
			anchorMS(a.PlacedAt), a.Duration.Milliseconds(),
			a.Cost, a.BasePrice, a.Purchased,
			a.BreedingChance, a.OffspringSurvival,
			a.BreedingAttempted, a.HasOffspring,
			parent, f.broodSeq, f.coll, f.seq,
		)
		if err != nil {
			return fmt.Errorf("insert animal %s: %w", a.ID, err)
		}
	}
	return nil
}

func saveForecast(tx *sqlx.Tx, forecast []weather.Weather) error {
	for _, w := range forecast {
		_, err := tx.Exec(tx.Rebind(
			"INSERT INTO forecast (day, value, demand, label) VALUES (?, ?, ?, ?)"),
			w.Day, w.Value, w.Demand.String(), w.Label,
		)
		if err != nil {
			return fmt.Errorf("insert forecast day %d: %w", w.Day, err)
		}
	}
	return nil
}

func saveEvents(tx *sqlx.Tx, events []event.Event) error {
	if len(events) == 0 {
		return nil
	}
	stmt, err := tx.Preparex(tx.Rebind(`INSERT INTO events
		(seq, day, type, message, amount, entity_id)
		VALUES (?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, e := range events {
		if _, err := stmt.Exec(i, e.Day, string(e.Type), e.Message, e.Amount, e.EntityID); err != nil {
			return err
		}
	}
	return nil
}

func saveMeta(tx *sqlx.Tx, snap ledger.Snapshot) error {
	statsJSON, err := json.Marshal(snap.Stats)
	if err != nil {
		return err
	}
	meta := map[string]string{
		"balance":        strconv.FormatInt(snap.Balance, 10),
		"day":            strconv.Itoa(snap.Day),
		"status":         string(snap.Status),
		"milestones_hit": strconv.Itoa(snap.MilestonesHit),
		"stats_json":     string(statsJSON),
		"saved_at_ms":    strconv.FormatInt(time.Now().UnixMilli(), 10),
	}
	for key, value := range meta {
		_, err := tx.Exec(tx.Rebind(
			"INSERT INTO game_meta (key, value) VALUES (?, ?)"), key, value)
		if err != nil {
			return fmt.Errorf("insert meta %s: %w", key, err)
		}
	}
	return nil
}

// HasGame reports whether a saved game exists.
func (s *Store) HasGame() bool {
	var day string
	err := s.db.Get(&day, s.db.Rebind("SELECT value FROM game_meta WHERE key = ?"), "day")
	if errors.Is(err, sql.ErrNoRows) {
		return false
	}
	if err != nil {
		slog.Warn("saved game probe failed", "error", err)
		return false
	}
	return true
}

// LoadGame reads the stored snapshot back, rebuilding brood links from
// parent ids. Anchor timestamps come back verbatim; nothing is
// recomputed.
func (s *Store) LoadGame() (ledger.Snapshot, []event.Event, error) {
	var snap ledger.Snapshot

	meta, err := s.loadMeta()
	if err != nil {
		return snap, nil, fmt.Errorf("load meta: %w", err)
	}
	snap.Balance, _ = strconv.ParseInt(meta["balance"], 10, 64)
	snap.Day, _ = strconv.Atoi(meta["day"])
	snap.MilestonesHit, _ = strconv.Atoi(meta["milestones_hit"])
	snap.Status = ledger.Status(meta["status"])
	if raw := meta["stats_json"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &snap.Stats); err != nil {
			return snap, nil, fmt.Errorf("decode stats: %w", err)
		}
	}

	if err := s.loadCrops(&snap); err != nil {
		return snap, nil, fmt.Errorf("load crops: %w", err)
	}
	if err := s.loadAnimals(&snap); err != nil {
		return snap, nil, fmt.Errorf("load animals: %w", err)
	}
	if err := s.loadForecast(&snap); err != nil {
		return snap, nil, fmt.Errorf("load forecast: %w", err)
	}

	events, err := s.loadEvents()
	if err != nil {
		return snap, nil, fmt.Errorf("load events: %w", err)
	}

	slog.Info("game loaded", "day", snap.Day, "balance", snap.Balance,
		"crops", len(snap.Seeds)+len(snap.Field)+len(snap.Harvested),
		"animals", len(snap.Young)+len(snap.Pen))
	return snap, events, nil
}

func (s *Store) loadMeta() (map[string]string, error) {
	type kv struct {
		Key   string `db:"key"`
		Value string `db:"value"`
	}
	var rows []kv
	if err := s.db.Select(&rows, "SELECT key, value FROM game_meta"); err != nil {
		return nil, err
	}
	meta := make(map[string]string, len(rows))
	for _, r := range rows {
		meta[r.Key] = r.Value
	}
	return meta, nil
}

func (s *Store) loadCrops(snap *ledger.Snapshot) error {
	var rows []cropRow
	err := s.db.Select(&rows, "SELECT * FROM crops ORDER BY collection, seq")
	if err != nil {
		return err
	}
	for _, r := range rows {
		c := &stock.Crop{
			ID:        r.ID,
			TypeID:    r.TypeID,
			Name:      r.Name,
			Tier:      r.Tier,
			Status:    stock.CropStatus(r.Status),
			PlantedAt: anchorTime(r.PlantedAtMS),
			Duration:  time.Duration(r.DurationMS) * time.Millisecond,
			SeedCost:  r.SeedCost,
			BasePrice: r.BasePrice,
		}
		switch r.Collection {
		case collSeeds:
			snap.Seeds = append(snap.Seeds, c)
		case collField:
			snap.Field = append(snap.Field, c)
		case collHarvested:
			snap.Harvested = append(snap.Harvested, c)
		default:
			slog.Warn("crop in unknown collection dropped", "id", r.ID, "collection", r.Collection)
		}
	}
	return nil
}

func (s *Store) loadAnimals(snap *ledger.Snapshot) error {
	var rows []animalRow
	err := s.db.Select(&rows, "SELECT * FROM animals ORDER BY collection, seq")
	if err != nil {
		return err
	}

	byID := make(map[string]*stock.Animal, len(rows))
	for _, r := range rows {
		byID[r.ID] = &stock.Animal{
			ID:                r.ID,
			TypeID:            r.TypeID,
			Name:              r.Name,
			Tier:              r.Tier,
			Status:            stock.AnimalStatus(r.Status),
			PlacedAt:          anchorTime(r.PlacedAtMS),
			Duration:          time.Duration(r.DurationMS) * time.Millisecond,
			Cost:              r.Cost,
			BasePrice:         r.BasePrice,
			Purchased:         r.Purchased,
			BreedingChance:    r.BreedingChance,
			OffspringSurvival: r.OffspringSurvival,
			BreedingAttempted: r.BreedingAttempted,
			HasOffspring:      r.HasOffspring,
		}
	}

	// Rebuild broods. Rows arrive collection-ordered, so sort each
	// brood by its stored position.
	broods := make(map[string][]animalRow)
	for _, r := range rows {
		if r.ParentID.Valid {
			broods[r.ParentID.String] = append(broods[r.ParentID.String], r)
		}
	}
	for parentID, children := range broods {
		parent, ok := byID[parentID]
		if !ok {
			slog.Warn("brood parent missing, links dropped", "parent_id", parentID)
			continue
		}
		sort.Slice(children, func(i, j int) bool { return children[i].BroodSeq < children[j].BroodSeq })
		for _, r := range children {
			parent.Offspring = append(parent.Offspring, byID[r.ID])
		}
	}

	for _, r := range rows {
		switch r.Collection {
		case collYoung:
			snap.Young = append(snap.Young, byID[r.ID])
		case collPen:
			snap.Pen = append(snap.Pen, byID[r.ID])
		case collNone:
			// lives only inside a brood
		default:
			slog.Warn("animal in unknown collection dropped", "id", r.ID, "collection", r.Collection)
		}
	}
	return nil
}

func (s *Store) loadForecast(snap *ledger.Snapshot) error {
	var rows []forecastRow
	err := s.db.Select(&rows, "SELECT * FROM forecast ORDER BY day")
	if err != nil {
		return err
	}
	for _, r := range rows {
		demand, err := decimal.NewFromString(r.Demand)
		if err != nil {
			return fmt.Errorf("forecast day %d demand %q: %w", r.Day, r.Demand, err)
		}
		snap.Forecast = append(snap.Forecast, weather.Weather{
			Day:    r.Day,
			Value:  r.Value,
			Demand: demand,
			Label:  r.Label,
		})
	}
	return nil
}

func (s *Store) loadEvents() ([]event.Event, error) {
	var rows []eventRow
	err := s.db.Select(&rows, "SELECT * FROM events ORDER BY seq")
	if err != nil {
		return nil, err
	}
	events := make([]event.Event, len(rows))
	for i, r := range rows {
		events[i] = event.Event{
			Day:      r.Day,
			Type:     event.Type(r.Type),
			Message:  r.Message,
			Amount:   r.Amount,
			EntityID: r.EntityID,
		}
	}
	return events, nil
}

// Package api serves the game over HTTP.
// GET endpoints are public (read-only observation).
// POST endpoints carry either the rate-limited command surface or the
// bearer-token admin control plane.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/talgya/homestead/internal/event"
	"github.com/talgya/homestead/internal/farm"
	"github.com/talgya/homestead/internal/metrics"
	"github.com/talgya/homestead/internal/persistence"
)

const maxSSEConns = 2

// Server exposes the farm service over HTTP.
type Server struct {
	Svc      *farm.Service
	Store    *persistence.Store
	Bus      *event.Bus
	Port     int
	AdminKey string // Bearer token for admin endpoints. Empty = admin disabled.
	RelayKey string // Bearer token for SSE stream endpoint. Empty = streaming disabled.

	// Active SSE connection count (atomic).
	sseConns int32
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	// Commands are cheap but still gated so one client cannot spam the
	// façade.
	commandLimiter := NewRateLimiter(120, time.Minute)

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only — anyone can check in on the farm).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/farm", s.handleFarm)
	mux.HandleFunc("/api/v1/shop", s.handleShop)
	mux.HandleFunc("/api/v1/forecast", s.handleForecast)
	mux.HandleFunc("/api/v1/stats", s.handleStats)
	mux.HandleFunc("/api/v1/events", s.handleEvents)

	// Player commands (POST, rate limited).
	mux.HandleFunc("/api/v1/command", RateLimitMiddleware(commandLimiter, s.handleCommand))

	// SSE streaming endpoint (GET, requires bearer token — relay only).
	mux.HandleFunc("/api/v1/stream", s.handleStream)

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/control", s.adminOnly(s.handleControl))
	mux.HandleFunc("/api/v1/snapshot", s.adminOnly(s.handleSnapshot))

	// Prometheus scrape target.
	mux.Handle("/metrics", metrics.Handler())

	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "relay_auth", s.RelayKey != "")

	go func() {
		handler := corsMiddleware(mux)
		if err := http.ListenAndServe(addr, handler); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list of allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken reports whether the request carries the admin token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no FARMSIM_ADMIN_KEY set)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ov := s.Svc.Overview()
	writeJSON(w, map[string]any{
		"name":         "Homestead",
		"day":          ov.Day,
		"total_days":   ov.TotalDays,
		"days_left":    ov.DaysLeft,
		"balance":      ov.Balance,
		"goal":         ov.Goal,
		"progress_pct": ov.Progress,
		"status":       ov.Status,
		"paused":       ov.Paused,
		"weather":      ov.Weather,
	})
}

func (s *Server) handleFarm(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Svc.Farm())
}

func (s *Server) handleShop(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Svc.Shop())
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Svc.Forecast())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Svc.Stats())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	events := s.Svc.Events(limit)
	if events == nil {
		events = []event.Event{}
	}
	writeJSON(w, events)
}

// handleCommand dispatches a player command to the façade. Refusals are
// expected outcomes and come back 200 with success=false.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Action string `json:"action"`
		TypeID string `json:"type_id,omitempty"`
		ID     string `json:"id,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	var res farm.Result
	switch req.Action {
	case "buy_seed":
		res = s.Svc.BuySeed(req.TypeID)
	case "plant":
		res = s.Svc.PlantCrop(req.ID)
	case "harvest":
		res = s.Svc.HarvestCrop(req.ID)
	case "sell_crop":
		res = s.Svc.SellCrop(req.ID)
	case "buy_animal":
		res = s.Svc.BuyAnimal(req.TypeID)
	case "place":
		res = s.Svc.PlaceAnimal(req.ID)
	case "sell_animal":
		res = s.Svc.SellAnimal(req.ID)
	default:
		http.Error(w, "unknown action (use: buy_seed, plant, harvest, sell_crop, buy_animal, place, sell_animal)", http.StatusBadRequest)
		return
	}
	writeJSON(w, res)
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Action string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	switch req.Action {
	case "pause":
		writeJSON(w, s.Svc.Pause())
	case "resume":
		writeJSON(w, s.Svc.Resume())
	case "stop":
		writeJSON(w, s.Svc.Stop())
	default:
		http.Error(w, "unknown action (use: pause, resume, stop)", http.StatusBadRequest)
	}
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.Store == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	if err := s.Svc.Checkpoint(s.Store); err != nil {
		slog.Error("snapshot save failed", "error", err)
		http.Error(w, "snapshot failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"day":     s.Svc.Overview().Day,
		"message": "snapshot saved",
	})
}

// handleStream provides an SSE endpoint for real-time event streaming.
// Requires bearer token auth and limits concurrent connections.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	// Auth check — uses the relay key, not the admin key.
	if s.RelayKey == "" {
		http.Error(w, "streaming disabled (no relay key)", http.StatusForbidden)
		return
	}
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != s.RelayKey {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	// Connection limit.
	current := atomic.AddInt32(&s.sseConns, 1)
	if current > maxSSEConns {
		atomic.AddInt32(&s.sseConns, -1)
		http.Error(w, "too many SSE connections", http.StatusServiceUnavailable)
		return
	}
	defer atomic.AddInt32(&s.sseConns, -1)

	// SSE headers.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	subID, ch := s.Bus.Subscribe()
	defer s.Bus.Unsubscribe(subID)

	// Send recent events as catch-up (last 50).
	for _, e := range s.Bus.Recent(50) {
		writeSSEEvent(w, e)
	}
	flusher.Flush()

	slog.Info("SSE client connected", "sub_id", subID)

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return
			}
			writeSSEEvent(w, e)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			slog.Info("SSE client disconnected", "sub_id", subID)
			return
		}
	}
}

// writeSSEEvent writes a single event in SSE format.
func writeSSEEvent(w http.ResponseWriter, e event.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, data)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}

// Package api serves the simulation state over HTTP.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/talgya/asi-chain/internal/engine"
	"github.com/talgya/asi-chain/internal/graph"
	"github.com/talgya/asi-chain/internal/persistence"
)

// maxStepsPerRequest caps how many steps one admin POST may run.
const maxStepsPerRequest = 1000

// Server serves the simulation over HTTP. All simulation access goes
// through Mu — the engine has no internal locking, so every reader and
// every full step shares this one boundary.
type Server struct {
	Sim    *engine.Simulation
	Ticker *engine.Ticker
	DB     *persistence.DB
	Mu     *sync.Mutex

	Port     int
	Engine   string // dispatcher variant name, reported in status
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.
	RelayKey string // Bearer token for the stream endpoint. Empty = streaming disabled.

	// OnReset runs under Mu after a successful admin reset, before the
	// step log is cleared. The entrypoint uses it to drop step records
	// buffered for the next checkpoint, so cleared steps cannot be
	// written back.
	OnReset func()

	hub *hub
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	if s.Mu == nil {
		s.Mu = &sync.Mutex{}
	}
	s.hub = newHub()

	// Limits on the snapshot-heavy endpoints.
	exportLimiter := NewRateLimiter(30, time.Hour)
	graphLimiter := NewRateLimiter(300, time.Hour)

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only — anyone can watch the run).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/agents", s.handleAgents)
	mux.HandleFunc("/api/v1/history", s.handleHistory)
	mux.HandleFunc("/api/v1/history/export", RateLimitMiddleware(exportLimiter, s.handleHistoryExport))
	mux.HandleFunc("/api/v1/distribution", s.handleDistribution)
	mux.HandleFunc("/api/v1/graph", RateLimitMiddleware(graphLimiter, s.handleGraph))

	// Websocket streaming (requires relay bearer token).
	mux.HandleFunc("/api/v1/stream", s.handleStream)

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/step", s.adminOnly(s.handleStep))
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("/api/v1/reset", s.adminOnly(s.handleReset))

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
// Set CORS_ORIGINS to a comma-separated list of allowed origins;
// localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:8501": true,
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

// checkBearer reports whether the request carries the given bearer token.
func checkBearer(r *http.Request, token string) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == token
}

// adminOnly wraps a handler to require bearer token auth and POST.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no admin key set)", http.StatusForbidden)
			return
		}
		if !checkBearer(r, s.AdminKey) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.Mu.Lock()
	status := map[string]any{
		"name":         "ASI Chain",
		"run_id":       s.Sim.RunID.String(),
		"engine":       s.Engine,
		"step_count":   s.Sim.StepCount(),
		"num_agents":   s.Sim.NumAgents(),
		"health_score": s.Sim.HealthScore(),
		"distribution": s.Sim.Distribution(),
	}
	s.Mu.Unlock()

	if s.Ticker != nil {
		status["speed"] = s.Ticker.Speed()
		status["running"] = s.Ticker.Running()
	}
	writeJSON(w, status)
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	type agentSummary struct {
		Name       string  `json:"name"`
		Reputation float64 `json:"reputation"`
		Level      string  `json:"level"`
	}

	s.Mu.Lock()
	names := s.Sim.AgentNames()
	states := s.Sim.AgentStates()
	s.Mu.Unlock()

	result := make([]agentSummary, 0, len(names))
	for _, name := range names {
		rep := states[name]
		level := "low"
		switch {
		case rep >= 100:
			level = "high"
		case rep >= 50:
			level = "medium"
		}
		result = append(result, agentSummary{Name: name, Reputation: rep, Level: level})
	}
	writeJSON(w, result)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 {
			limit = n
		}
	}

	s.Mu.Lock()
	hist := s.Sim.ActionHistory()
	s.Mu.Unlock()

	if len(hist) > limit {
		hist = hist[len(hist)-limit:]
	}
	writeJSON(w, hist)
}

// handleHistoryExport streams the full step history as gzipped JSON.
func (s *Server) handleHistoryExport(w http.ResponseWriter, r *http.Request) {
	s.Mu.Lock()
	hist := s.Sim.ActionHistory()
	runID := s.Sim.RunID.String()
	s.Mu.Unlock()

	w.Header().Set("Content-Type", "application/gzip")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "history-"+runID+".json.gz"))

	gz := gzip.NewWriter(w)
	defer gz.Close()
	if err := json.NewEncoder(gz).Encode(hist); err != nil {
		slog.Debug("history export failed", "error", err)
	}
}

func (s *Server) handleDistribution(w http.ResponseWriter, r *http.Request) {
	s.Mu.Lock()
	d := s.Sim.Distribution()
	s.Mu.Unlock()
	writeJSON(w, d)
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	s.Mu.Lock()
	names := s.Sim.AgentNames()
	states := s.Sim.AgentStates()
	s.Mu.Unlock()

	g := graph.Build(names, states)
	writeJSON(w, map[string]any{
		"graph": g,
		"stats": g.Stats(),
	})
}

// handleStep runs one or more simulation steps on demand.
func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Count int `json:"count"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}
	if req.Count < 1 {
		req.Count = 1
	}
	if req.Count > maxStepsPerRequest {
		req.Count = maxStepsPerRequest
	}

	records := make([]engine.StepRecord, 0, req.Count)
	for i := 0; i < req.Count; i++ {
		s.Mu.Lock()
		rec := s.Sim.Step()
		s.Mu.Unlock()
		records = append(records, rec)
		s.Broadcast(rec)
	}

	if s.DB != nil {
		if err := s.DB.SaveSteps(s.Sim.RunID.String(), records); err != nil {
			slog.Error("step log save failed", "error", err)
		}
	}
	writeJSON(w, records)
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if s.Ticker == nil {
		http.Error(w, "no simulation loop running", http.StatusConflict)
		return
	}

	var req struct {
		Speed float64 `json:"speed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if req.Speed < 0 || req.Speed > 100 {
		http.Error(w, "speed must be in [0, 100]", http.StatusBadRequest)
		return
	}

	s.Ticker.SetSpeed(req.Speed)
	slog.Info("speed changed", "speed", req.Speed)
	writeJSON(w, map[string]any{"speed": req.Speed})
}

// handleReset re-seeds the simulation and clears the persisted step log.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Agents int `json:"agents"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	// The ticker keeps stepping throughout; dropping the checkpoint
	// buffer, clearing the log, and snapshotting the fresh state must
	// all happen inside the same step boundary as the reset itself,
	// or a concurrent step races the snapshot's store reads.
	s.Mu.Lock()
	if err := s.Sim.Reset(req.Agents); err != nil {
		s.Mu.Unlock()
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if s.OnReset != nil {
		s.OnReset()
	}
	if s.DB != nil {
		if err := s.DB.ClearSteps(s.Sim.RunID.String()); err != nil {
			slog.Error("step log clear failed", "error", err)
		}
		if err := s.DB.SaveSnapshot(s.Sim); err != nil {
			slog.Error("reset snapshot failed", "error", err)
		}
	}
	status := map[string]any{
		"num_agents":   s.Sim.NumAgents(),
		"step_count":   s.Sim.StepCount(),
		"health_score": s.Sim.HealthScore(),
	}
	s.Mu.Unlock()

	slog.Info("simulation reset", "agents", status["num_agents"])
	writeJSON(w, status)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write response failed", "error", err)
	}
}

// Command chainsim runs the ASI Chain agent reputation simulation.
package main

import (
	"flag"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/talgya/asi-chain/internal/agents"
	"github.com/talgya/asi-chain/internal/api"
	"github.com/talgya/asi-chain/internal/config"
	"github.com/talgya/asi-chain/internal/engine"
	"github.com/talgya/asi-chain/internal/entropy"
	"github.com/talgya/asi-chain/internal/persistence"
	"github.com/talgya/asi-chain/internal/rules"
)

func main() {
	configPath := flag.String("config", "chainsim.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	slog.Info("ASI Chain — Agent Reputation Simulation")

	// ── Seed ──────────────────────────────────────────────────────────
	seed := cfg.Seed
	if seed == 0 {
		seed = entropy.SeedFromSource(entropy.NewClient(cfg.RandomOrgKey))
		slog.Info("seed derived from entropy", "seed", seed)
	} else {
		slog.Info("using configured seed", "seed", seed)
	}
	rng := rand.New(rand.NewSource(seed))

	// ── Database ──────────────────────────────────────────────────────
	os.MkdirAll(filepath.Dir(cfg.DBPath), 0755)
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	// ── Simulation ────────────────────────────────────────────────────
	build := func(s *agents.Store) rules.Dispatcher { return rules.NewRuntime(s) }
	if cfg.Engine == config.EngineSimple {
		build = func(s *agents.Store) rules.Dispatcher { return rules.NewEvaluator(s) }
	}

	sim, err := engine.NewSimulationWith(cfg.Agents, rng, build)
	if err != nil {
		slog.Error("failed to create simulation", "error", err)
		os.Exit(1)
	}

	if err := db.CreateRun(sim.RunID.String(), seed, cfg.Engine, cfg.Agents); err != nil {
		slog.Error("failed to register run", "error", err)
		os.Exit(1)
	}
	if err := db.SaveSnapshot(sim); err != nil {
		slog.Error("initial snapshot failed", "error", err)
	}

	slog.Info("simulation ready",
		"run", sim.RunID,
		"agents", cfg.Agents,
		"engine", cfg.Engine,
		"health", sim.HealthScore(),
	)

	// ── Loop + API ────────────────────────────────────────────────────
	// One mutex bounds every full step and every API read; the engine
	// itself has no internal locking.
	var mu sync.Mutex

	ticker := engine.NewTicker()
	ticker.Interval = cfg.StepInterval.Std()
	ticker.SetSpeed(cfg.Speed)
	ticker.CheckpointEvery = cfg.CheckpointEvery

	apiServer := &api.Server{
		Sim:      sim,
		Ticker:   ticker,
		DB:       db,
		Mu:       &mu,
		Port:     cfg.Port,
		Engine:   cfg.Engine,
		AdminKey: cfg.AdminKey,
		RelayKey: cfg.RelayKey,
	}

	// Step records buffered for the next checkpoint. Guarded by mu:
	// the admin reset drops the buffer from the HTTP goroutine.
	var pending []engine.StepRecord
	ticker.StepFn = func() engine.StepRecord {
		mu.Lock()
		rec := sim.Step()
		pending = append(pending, rec)
		mu.Unlock()

		apiServer.Broadcast(rec)
		return rec
	}
	apiServer.OnReset = func() {
		pending = pending[:0]
	}
	ticker.OnCheckpoint = func(step int) {
		mu.Lock()
		batch := pending
		pending = nil
		mu.Unlock()

		if err := db.SaveSteps(sim.RunID.String(), batch); err != nil {
			slog.Error("step log save failed", "error", err)
			mu.Lock()
			pending = append(batch, pending...)
			mu.Unlock()
		}

		mu.Lock()
		err := db.SaveSnapshot(sim)
		health := sim.HealthScore()
		dist := sim.Distribution()
		mu.Unlock()
		if err != nil {
			slog.Error("checkpoint save failed", "error", err)
		}

		slog.Info("checkpoint",
			"step", step,
			"health", health,
			"high", dist.High,
			"medium", dist.Medium,
			"low", dist.Low,
		)
	}

	if cfg.AdminKey == "" {
		slog.Warn("no admin key set — admin POST endpoints are disabled")
	}
	apiServer.Start()

	// ── Shutdown ──────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		ticker.Stop()
	}()

	ticker.Run()

	// Final save on shutdown.
	mu.Lock()
	batch := pending
	pending = nil
	mu.Unlock()
	if err := db.SaveSteps(sim.RunID.String(), batch); err != nil {
		slog.Error("final step log save failed", "error", err)
	}
	mu.Lock()
	if err := db.SaveSnapshot(sim); err != nil {
		slog.Error("final snapshot failed", "error", err)
	}
	mu.Unlock()

	slog.Info("simulation stopped", "steps", sim.StepCount(), "health", sim.HealthScore())
}

func logLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

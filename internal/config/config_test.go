package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Agents != 5 || cfg.Engine != EngineRuntime || cfg.StepInterval.Std() != time.Second {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load with missing file: %v", err)
	}
	if cfg.Port != 8080 {
		t.Fatalf("port %d, want default 8080", cfg.Port)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chainsim.yaml")
	data := "agents: 12\nengine: simple\nstep_interval: 250ms\nport: 9000\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Agents != 12 {
		t.Errorf("agents %d, want 12", cfg.Agents)
	}
	if cfg.Engine != EngineSimple {
		t.Errorf("engine %q, want simple", cfg.Engine)
	}
	if cfg.StepInterval.Std() != 250*time.Millisecond {
		t.Errorf("step_interval %s, want 250ms", cfg.StepInterval.Std())
	}
	if cfg.Port != 9000 {
		t.Errorf("port %d, want 9000", cfg.Port)
	}
	// Untouched fields keep defaults.
	if cfg.DBPath != "data/chainsim.db" {
		t.Errorf("db_path %q, want default", cfg.DBPath)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chainsim.yaml")
	if err := os.WriteFile(path, []byte("agents: 12\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CHAINSIM_AGENTS", "30")
	t.Setenv("CHAINSIM_SEED", "42")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Agents != 30 {
		t.Errorf("agents %d, want env override 30", cfg.Agents)
	}
	if cfg.Seed != 42 {
		t.Errorf("seed %d, want 42", cfg.Seed)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Setenv("CHAINSIM_AGENTS", "0")
	if _, err := Load(""); err == nil {
		t.Fatal("zero agents must be rejected")
	}
	t.Setenv("CHAINSIM_AGENTS", "5")

	t.Setenv("CHAINSIM_ENGINE", "quantum")
	if _, err := Load(""); err == nil {
		t.Fatal("unknown engine must be rejected")
	}
}

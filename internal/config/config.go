// Package config loads chainsim settings: defaults, then an optional
// YAML file, then environment variable overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML and env values can use the
// "250ms" / "2s" string form.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler (used by env).
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	return d.UnmarshalText([]byte(value.Value))
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Engine variant names. Both dispatchers behave identically; the
// runtime routes through the textual rule protocol, the simple variant
// evaluates directly.
const (
	EngineRuntime = "runtime"
	EngineSimple  = "simple"
)

// Config holds all chainsim settings.
type Config struct {
	// Agents is the number of agents seeded at construction.
	Agents int `yaml:"agents" env:"CHAINSIM_AGENTS"`

	// Seed fixes the random source for reproducible runs. 0 means
	// derive a seed from entropy (random.org if keyed, else crypto).
	Seed int64 `yaml:"seed" env:"CHAINSIM_SEED"`

	// Engine selects the rule dispatcher: "runtime" or "simple".
	Engine string `yaml:"engine" env:"CHAINSIM_ENGINE"`

	// StepInterval is the base wall-clock pacing between steps.
	StepInterval Duration `yaml:"step_interval" env:"CHAINSIM_STEP_INTERVAL"`

	// Speed multiplies the pacing; 0 starts the simulation paused.
	Speed float64 `yaml:"speed" env:"CHAINSIM_SPEED"`

	// CheckpointEvery saves a snapshot after that many steps (0 = off).
	CheckpointEvery int `yaml:"checkpoint_every" env:"CHAINSIM_CHECKPOINT_EVERY"`

	DBPath string `yaml:"db_path" env:"CHAINSIM_DB_PATH"`
	Port   int    `yaml:"port" env:"CHAINSIM_PORT"`

	// AdminKey gates admin POST endpoints; empty disables them.
	AdminKey string `yaml:"admin_key" env:"CHAINSIM_ADMIN_KEY"`
	// RelayKey gates the websocket stream; empty disables streaming.
	RelayKey string `yaml:"relay_key" env:"CHAINSIM_RELAY_KEY"`

	RandomOrgKey string `yaml:"random_org_key" env:"RANDOM_ORG_KEY"`

	LogLevel string `yaml:"log_level" env:"CHAINSIM_LOG_LEVEL"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Agents:          5,
		Engine:          EngineRuntime,
		StepInterval:    Duration(time.Second),
		Speed:           1.0,
		CheckpointEvery: 100,
		DBPath:          "data/chainsim.db",
		Port:            8080,
		LogLevel:        "info",
	}
}

// Load builds the configuration: defaults, overlaid by the YAML file at
// path (skipped when path is empty or the file does not exist), overlaid
// by environment variables.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Optional file; defaults and env still apply.
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.Agents <= 0 {
		return fmt.Errorf("agents must be positive, got %d", c.Agents)
	}
	if c.Engine != EngineRuntime && c.Engine != EngineSimple {
		return fmt.Errorf("unknown engine %q (want %q or %q)", c.Engine, EngineRuntime, EngineSimple)
	}
	if c.StepInterval <= 0 {
		return fmt.Errorf("step_interval must be positive, got %s", c.StepInterval.Std())
	}
	return nil
}

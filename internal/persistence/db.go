// Package persistence provides SQLite-backed storage of simulation
// runs. It observes the engine (snapshots and step logs for the replay
// and dashboard layers); the engine itself never reads state back —
// a restarted process starts a fresh simulation.
package persistence

import (
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/asi-chain/internal/engine"
)

// DB wraps a SQLite connection for simulation storage.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		engine TEXT NOT NULL,
		num_agents INTEGER NOT NULL,
		created_at TEXT NOT NULL DEFAULT (datetime('now'))
	);

	CREATE TABLE IF NOT EXISTS agents (
		run_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		reputation REAL NOT NULL,
		PRIMARY KEY (run_id, name)
	);

	CREATE TABLE IF NOT EXISTS steps (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		step INTEGER NOT NULL,
		agent TEXT NOT NULL,
		action TEXT NOT NULL,
		old_reputation REAL NOT NULL,
		new_reputation REAL NOT NULL,
		reputation_change REAL NOT NULL,
		health_score REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sim_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_steps_run_step ON steps(run_id, step);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// CreateRun registers a run and its seed.
func (db *DB) CreateRun(runID string, seed int64, engine string, numAgents int) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO runs (run_id, seed, engine, num_agents) VALUES (?, ?, ?, ?)",
		runID, seed, engine, numAgents,
	)
	return err
}

// SaveAgents writes the current agent snapshot for a run (full replace).
func (db *DB) SaveAgents(runID string, names []string, states map[string]float64) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM agents WHERE run_id = ?", runID); err != nil {
		return err
	}

	stmt, err := tx.Preparex(
		"INSERT INTO agents (run_id, position, name, reputation) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, name := range names {
		if _, err := stmt.Exec(runID, i, name, states[name]); err != nil {
			return fmt.Errorf("insert agent %s: %w", name, err)
		}
	}

	return tx.Commit()
}

// SaveSteps appends step records to the log.
func (db *DB) SaveSteps(runID string, records []engine.StepRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`INSERT INTO steps
		(run_id, step, agent, action, old_reputation, new_reputation, reputation_change, health_score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, rec := range records {
		_, err := stmt.Exec(runID, rec.Step, rec.Agent, string(rec.Action),
			rec.OldReputation, rec.NewReputation, rec.Change, rec.HealthScore)
		if err != nil {
			return fmt.Errorf("insert step %d: %w", rec.Step, err)
		}
	}

	return tx.Commit()
}

// SaveMeta stores a key-value pair in simulation metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO sim_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM sim_meta WHERE key = ?", key)
	return value, err
}

// LoadAgents returns a run's saved agent snapshot in creation order.
func (db *DB) LoadAgents(runID string) ([]string, map[string]float64, error) {
	var rows []struct {
		Name       string  `db:"name"`
		Reputation float64 `db:"reputation"`
	}
	err := db.conn.Select(&rows,
		"SELECT name, reputation FROM agents WHERE run_id = ? ORDER BY position", runID)
	if err != nil {
		return nil, nil, err
	}

	names := make([]string, 0, len(rows))
	states := make(map[string]float64, len(rows))
	for _, r := range rows {
		names = append(names, r.Name)
		states[r.Name] = r.Reputation
	}
	return names, states, nil
}

// RecentSteps returns the most recent step records for a run, oldest first.
func (db *DB) RecentSteps(runID string, limit int) ([]engine.StepRecord, error) {
	var records []engine.StepRecord
	err := db.conn.Select(&records, `SELECT
		step, agent, action, old_reputation, new_reputation, reputation_change, health_score
		FROM (SELECT * FROM steps WHERE run_id = ? ORDER BY step DESC LIMIT ?)
		ORDER BY step ASC`,
		runID, limit,
	)
	return records, err
}

// StepCount returns the number of logged steps for a run.
func (db *DB) StepCount(runID string) (int, error) {
	var n int
	err := db.conn.Get(&n, "SELECT COUNT(*) FROM steps WHERE run_id = ?", runID)
	return n, err
}

// ClearSteps drops a run's step log, used when the simulation resets.
func (db *DB) ClearSteps(runID string) error {
	_, err := db.conn.Exec("DELETE FROM steps WHERE run_id = ?", runID)
	return err
}

// SaveSnapshot performs a full save of the simulation's current state.
func (db *DB) SaveSnapshot(sim *engine.Simulation) error {
	runID := sim.RunID.String()

	if err := db.SaveAgents(runID, sim.AgentNames(), sim.AgentStates()); err != nil {
		return fmt.Errorf("save agents: %w", err)
	}
	if err := db.SaveMeta("last_step", fmt.Sprintf("%d", sim.StepCount())); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}

	slog.Debug("snapshot saved", "run", runID, "step", sim.StepCount())
	return nil
}

package persistence

import (
	"path/filepath"
	"testing"

	"github.com/talgya/asi-chain/internal/engine"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "chainsim.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestAgentSnapshotRoundTrip(t *testing.T) {
	db := openTestDB(t)

	names := []string{"Agent_0", "Agent_1", "Agent_2"}
	states := map[string]float64{"Agent_0": 60.5, "Agent_1": 80, "Agent_2": 120}
	if err := db.SaveAgents("run-1", names, states); err != nil {
		t.Fatalf("SaveAgents: %v", err)
	}

	gotNames, gotStates, err := db.LoadAgents("run-1")
	if err != nil {
		t.Fatalf("LoadAgents: %v", err)
	}
	if len(gotNames) != 3 {
		t.Fatalf("loaded %d agents, want 3", len(gotNames))
	}
	for i, name := range names {
		if gotNames[i] != name {
			t.Errorf("agent %d = %s, want %s (creation order)", i, gotNames[i], name)
		}
		if gotStates[name] != states[name] {
			t.Errorf("%s reputation %v, want %v", name, gotStates[name], states[name])
		}
	}

	// Re-saving replaces the snapshot, not appends.
	states["Agent_0"] = 75
	if err := db.SaveAgents("run-1", names, states); err != nil {
		t.Fatalf("SaveAgents again: %v", err)
	}
	gotNames, gotStates, err = db.LoadAgents("run-1")
	if err != nil {
		t.Fatalf("LoadAgents again: %v", err)
	}
	if len(gotNames) != 3 || gotStates["Agent_0"] != 75 {
		t.Fatalf("snapshot not replaced: %d agents, Agent_0 = %v", len(gotNames), gotStates["Agent_0"])
	}
}

func TestStepLogAppendAndQuery(t *testing.T) {
	db := openTestDB(t)

	var recs []engine.StepRecord
	for i := 1; i <= 5; i++ {
		recs = append(recs, engine.StepRecord{
			Step:          i,
			Agent:         "Agent_0",
			Action:        engine.ActionContribute,
			OldReputation: float64(50 + i),
			NewReputation: float64(65 + i),
			Change:        15,
			HealthScore:   float64(70 + i),
		})
	}
	if err := db.SaveSteps("run-1", recs); err != nil {
		t.Fatalf("SaveSteps: %v", err)
	}

	n, err := db.StepCount("run-1")
	if err != nil || n != 5 {
		t.Fatalf("StepCount = (%d, %v), want 5", n, err)
	}

	recent, err := db.RecentSteps("run-1", 3)
	if err != nil {
		t.Fatalf("RecentSteps: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("got %d recent steps, want 3", len(recent))
	}
	// Oldest first within the recent window.
	for i, rec := range recent {
		if rec.Step != i+3 {
			t.Errorf("recent[%d].Step = %d, want %d", i, rec.Step, i+3)
		}
	}
	if recent[0].Change != 15 || recent[0].Action != engine.ActionContribute {
		t.Fatalf("record fields not preserved: %+v", recent[0])
	}

	if err := db.ClearSteps("run-1"); err != nil {
		t.Fatalf("ClearSteps: %v", err)
	}
	if n, _ := db.StepCount("run-1"); n != 0 {
		t.Fatalf("expected empty step log after clear, got %d", n)
	}
}

func TestMetaRoundTrip(t *testing.T) {
	db := openTestDB(t)

	if err := db.SaveMeta("last_step", "42"); err != nil {
		t.Fatalf("SaveMeta: %v", err)
	}
	got, err := db.GetMeta("last_step")
	if err != nil || got != "42" {
		t.Fatalf("GetMeta = (%q, %v), want 42", got, err)
	}

	if err := db.SaveMeta("last_step", "43"); err != nil {
		t.Fatalf("SaveMeta overwrite: %v", err)
	}
	if got, _ := db.GetMeta("last_step"); got != "43" {
		t.Fatalf("GetMeta after overwrite = %q, want 43", got)
	}
}

func TestSaveSnapshotFromSimulation(t *testing.T) {
	db := openTestDB(t)

	sim, err := engine.NewSimulation(4, nil)
	if err != nil {
		t.Fatalf("NewSimulation: %v", err)
	}
	if err := db.CreateRun(sim.RunID.String(), 42, "runtime", 4); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if err := db.SaveSnapshot(sim); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	names, _, err := db.LoadAgents(sim.RunID.String())
	if err != nil {
		t.Fatalf("LoadAgents: %v", err)
	}
	if len(names) != 4 {
		t.Fatalf("snapshot holds %d agents, want 4", len(names))
	}
}

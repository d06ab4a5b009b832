package agents

import (
	"math/rand"
	"testing"
)

func TestClampBounds(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{-5, 0},
		{0, 0},
		{100, 100},
		{200, 200},
		{250, 200},
	}
	for _, c := range cases {
		if got := Clamp(c.in); got != c.want {
			t.Errorf("Clamp(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestStoreSetClamps(t *testing.T) {
	s := NewStore()
	s.Add("Agent_0", 100)

	s.Set("Agent_0", 300)
	if got := s.Get("Agent_0"); got != 200 {
		t.Fatalf("expected ceiling clamp to 200, got %v", got)
	}
	s.Set("Agent_0", -10)
	if got := s.Get("Agent_0"); got != 0 {
		t.Fatalf("expected floor clamp to 0, got %v", got)
	}
}

func TestStoreUnknownAgentFailsSoft(t *testing.T) {
	s := NewStore()
	if got := s.Get("nobody"); got != 0 {
		t.Fatalf("expected 0 for unknown agent, got %v", got)
	}
	// Set on an unknown agent must not create it.
	s.Set("nobody", 50)
	if s.Has("nobody") {
		t.Fatal("Set must not create agents")
	}
	if s.Len() != 0 {
		t.Fatalf("expected empty store, got %d agents", s.Len())
	}
}

func TestStoreKeysCreationOrder(t *testing.T) {
	s := NewStore()
	names := []string{"Agent_0", "Agent_1", "Agent_2"}
	for i, name := range names {
		s.Add(name, float64(50+i))
	}

	keys := s.Keys()
	if len(keys) != len(names) {
		t.Fatalf("expected %d keys, got %d", len(names), len(keys))
	}
	for i, name := range names {
		if keys[i] != name {
			t.Errorf("key %d = %s, want %s", i, keys[i], name)
		}
	}

	// Mutating the returned slice must not affect the store.
	keys[0] = "mutated"
	if s.Keys()[0] != "Agent_0" {
		t.Fatal("Keys must return a copy")
	}
}

func TestStoreAllIsSnapshot(t *testing.T) {
	s := NewStore()
	s.Add("Agent_0", 60)

	snap := s.All()
	snap["Agent_0"] = 999
	if got := s.Get("Agent_0"); got != 60 {
		t.Fatalf("snapshot mutation leaked into store: %v", got)
	}
}

func TestSeedRangeAndNames(t *testing.T) {
	s := NewStore()
	rng := rand.New(rand.NewSource(7))
	Seed(s, 20, rng)

	if s.Len() != 20 {
		t.Fatalf("expected 20 agents, got %d", s.Len())
	}
	for i, name := range s.Keys() {
		if name != Name(i) {
			t.Errorf("agent %d named %s, want %s", i, name, Name(i))
		}
		rep := s.Get(name)
		if rep < InitialRepMin || rep > InitialRepMax {
			t.Errorf("%s seeded with %v, outside [%v, %v]", name, rep, InitialRepMin, InitialRepMax)
		}
	}
}

func TestStoreSum(t *testing.T) {
	s := NewStore()
	s.Add("Agent_0", 60)
	s.Add("Agent_1", 80)
	if got := s.Sum(); got != 140 {
		t.Fatalf("Sum = %v, want 140", got)
	}
}

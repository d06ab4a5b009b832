// Package agents provides the agent reputation store and batch seeding.
package agents

import (
	"fmt"
	"math/rand"
)

// Reputation bounds and seeding range.
const (
	MinReputation = 0.0
	MaxReputation = 200.0

	InitialRepMin = 50.0
	InitialRepMax = 100.0
)

// Clamp bounds a reputation value into [MinReputation, MaxReputation].
func Clamp(v float64) float64 {
	if v < MinReputation {
		return MinReputation
	}
	if v > MaxReputation {
		return MaxReputation
	}
	return v
}

// Store maps agent names to reputation scores, preserving creation order.
// Lookups on unknown agents fail soft (zero value) so a bad name can
// never abort a simulation step.
type Store struct {
	order []string
	reps  map[string]float64
}

// NewStore creates an empty reputation store.
func NewStore() *Store {
	return &Store{reps: make(map[string]float64)}
}

// Add registers an agent with an initial reputation (clamped). Adding an
// existing name overwrites its score without duplicating the order entry.
func (s *Store) Add(name string, rep float64) {
	if _, ok := s.reps[name]; !ok {
		s.order = append(s.order, name)
	}
	s.reps[name] = Clamp(rep)
}

// Has reports whether the agent exists.
func (s *Store) Has(name string) bool {
	_, ok := s.reps[name]
	return ok
}

// Get returns the agent's reputation, or 0 for an unknown agent.
func (s *Store) Get(name string) float64 {
	return s.reps[name]
}

// Set updates an existing agent's reputation, clamped. Unknown agents
// are ignored; creation goes through Add.
func (s *Store) Set(name string, rep float64) {
	if _, ok := s.reps[name]; !ok {
		return
	}
	s.reps[name] = Clamp(rep)
}

// Keys returns agent names in creation order. The slice is a copy.
func (s *Store) Keys() []string {
	keys := make([]string, len(s.order))
	copy(keys, s.order)
	return keys
}

// All returns a snapshot of the full name → reputation mapping.
func (s *Store) All() map[string]float64 {
	snap := make(map[string]float64, len(s.reps))
	for name, rep := range s.reps {
		snap[name] = rep
	}
	return snap
}

// Len returns the number of agents.
func (s *Store) Len() int {
	return len(s.reps)
}

// Sum returns the total reputation across all agents.
func (s *Store) Sum() float64 {
	total := 0.0
	for _, rep := range s.reps {
		total += rep
	}
	return total
}

// Clear removes all agents.
func (s *Store) Clear() {
	s.order = s.order[:0]
	s.reps = make(map[string]float64)
}

// Name returns the stable index-derived agent name (Agent_0, Agent_1, ...).
func Name(i int) string {
	return fmt.Sprintf("Agent_%d", i)
}

// Seed populates the store with n agents named Agent_0 … Agent_{n-1},
// each starting with a reputation uniform in [InitialRepMin, InitialRepMax].
func Seed(s *Store, n int, rng *rand.Rand) {
	for i := 0; i < n; i++ {
		rep := InitialRepMin + rng.Float64()*(InitialRepMax-InitialRepMin)
		s.Add(Name(i), rep)
	}
}

// Derived health and distribution metrics, computed on demand from the
// current store. Read-only: metrics never mutate agent state.
package engine

// Distribution counts agents by reputation tier.
type Distribution struct {
	High   int `json:"high"`   // >= 100
	Medium int `json:"medium"` // [50, 100)
	Low    int `json:"low"`    // < 50
}

// HealthScore returns the mean reputation across all agents, the
// system's overall performance signal. An empty store scores 0.
func (s *Simulation) HealthScore() float64 {
	n := s.store.Len()
	if n == 0 {
		return 0
	}
	return s.store.Sum() / float64(n)
}

// Distribution partitions the current agents into reputation tiers.
// Lower bounds are inclusive: exactly 100 counts as high, exactly 50 as
// medium.
func (s *Simulation) Distribution() Distribution {
	var d Distribution
	for _, rep := range s.store.All() {
		switch {
		case rep >= 100:
			d.High++
		case rep >= 50:
			d.Medium++
		default:
			d.Low++
		}
	}
	return d
}

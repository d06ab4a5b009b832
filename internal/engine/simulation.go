// Simulation owns the reputation store, dispatches actions through the
// rule layer, and keeps the append-only step history.
package engine

import (
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/asi-chain/internal/agents"
	"github.com/talgya/asi-chain/internal/rules"
)

// StepRecord is the immutable outcome of one simulation step.
//
// Known limitation, kept for behavioral parity: a trade records only
// the initiator's reputation change; the partner's credit shows up in
// agent state queries but not in the history.
type StepRecord struct {
	Step          int     `json:"step" db:"step"`
	Agent         string  `json:"agent" db:"agent"`
	Action        Action  `json:"action" db:"action"`
	OldReputation float64 `json:"old_reputation" db:"old_reputation"`
	NewReputation float64 `json:"new_reputation" db:"new_reputation"`
	Change        float64 `json:"reputation_change" db:"reputation_change"`
	HealthScore   float64 `json:"health_score" db:"health_score"`
}

// DispatcherBuilder constructs a rule dispatcher bound to a store.
// NewRuntime and NewEvaluator both fit; the simulation never depends on
// which one is behind the capability.
type DispatcherBuilder func(*agents.Store) rules.Dispatcher

// simState tracks the step state machine. A step always returns to
// idle within the same Step call; there is no suspension point.
type simState uint8

const (
	stateIdle simState = iota
	stateExecuting
)

// Simulation is one agent reputation simulation instance. It exclusively
// owns its store and history; all external reads go through snapshot
// accessors. Not safe for concurrent callers — drive Step from one
// logical caller, or put a mutex around each full Step call.
type Simulation struct {
	RunID uuid.UUID

	store      *agents.Store
	dispatcher rules.Dispatcher
	selector   *Selector
	rng        *rand.Rand

	numAgents int
	stepCount int
	history   []StepRecord
	state     simState
}

// NewSimulation creates a simulation with numAgents agents seeded
// uniform in [50, 100], using the Runtime dispatcher. A nil rng gets a
// non-deterministic seed; pass a seeded source for reproducible runs.
func NewSimulation(numAgents int, rng *rand.Rand) (*Simulation, error) {
	return NewSimulationWith(numAgents, rng, func(s *agents.Store) rules.Dispatcher {
		return rules.NewRuntime(s)
	})
}

// NewSimulationWith is NewSimulation with an explicit dispatcher
// builder, for callers that want the simplified Evaluator instead.
func NewSimulationWith(numAgents int, rng *rand.Rand, build DispatcherBuilder) (*Simulation, error) {
	if numAgents <= 0 {
		return nil, fmt.Errorf("simulation needs at least one agent, got %d", numAgents)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	store := agents.NewStore()
	agents.Seed(store, numAgents, rng)

	return &Simulation{
		RunID:      uuid.New(),
		store:      store,
		dispatcher: build(store),
		selector:   NewSelector(rng),
		rng:        rng,
		numAgents:  numAgents,
	}, nil
}

// Step executes one simulation step: select an agent and action,
// dispatch it through the rule layer, and append the record. Dispatcher
// failures (unknown agent, failed or degenerate trade) are silent; they
// produce an ordinary zero-delta record. Never errors.
func (s *Simulation) Step() StepRecord {
	s.state = stateExecuting
	s.stepCount++

	sel := s.selector.Select(s.store.Keys())
	rec := s.execute(sel)

	s.history = append(s.history, rec)
	s.state = stateIdle
	return rec
}

// execute dispatches one selection and builds its record.
func (s *Simulation) execute(sel Selection) StepRecord {
	before := s.store.Get(sel.Agent)

	switch sel.Action {
	case ActionContribute:
		s.dispatcher.Invoke(rules.OpContribute, sel.Agent)
	case ActionShare:
		s.dispatcher.Invoke(rules.OpShare, sel.Agent)
	case ActionTrade:
		// No partner means no eligible counterparty: the step still
		// records, with zero delta.
		if sel.Partner != "" {
			amount := strconv.FormatFloat(sel.Amount, 'g', -1, 64)
			s.dispatcher.Invoke(rules.OpTransfer, sel.Agent, sel.Partner, amount)
		}
	case ActionIdle:
		s.dispatcher.Invoke(rules.OpIdle, sel.Agent)
	}

	after := s.store.Get(sel.Agent)
	return StepRecord{
		Step:          s.stepCount,
		Agent:         sel.Agent,
		Action:        sel.Action,
		OldReputation: before,
		NewReputation: after,
		Change:        after - before,
		HealthScore:   s.HealthScore(),
	}
}

// StepCount returns the number of completed steps.
func (s *Simulation) StepCount() int {
	return s.stepCount
}

// NumAgents returns the agent count the simulation was built with.
func (s *Simulation) NumAgents() int {
	return s.numAgents
}

// AgentStates returns a snapshot of agent name → reputation.
func (s *Simulation) AgentStates() map[string]float64 {
	return s.store.All()
}

// AgentNames returns agent names in creation order.
func (s *Simulation) AgentNames() []string {
	return s.store.Keys()
}

// ActionHistory returns a copy of the full step history in step order.
func (s *Simulation) ActionHistory() []StepRecord {
	hist := make([]StepRecord, len(s.history))
	copy(hist, s.history)
	return hist
}

// Reset clears the history and step counter and re-seeds all agents.
// numAgents = 0 keeps the current agent count; a negative count is
// rejected. The run keeps its identity across resets.
func (s *Simulation) Reset(numAgents int) error {
	if numAgents < 0 {
		return fmt.Errorf("simulation needs at least one agent, got %d", numAgents)
	}
	if numAgents > 0 {
		s.numAgents = numAgents
	}

	s.store.Clear()
	agents.Seed(s.store, s.numAgents, s.rng)
	s.history = nil
	s.stepCount = 0
	s.state = stateIdle
	return nil
}

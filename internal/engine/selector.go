// Weighted random action and agent selection.
package engine

import "math/rand"

// Action is the kind of move an agent makes in a step.
type Action string

const (
	ActionContribute Action = "contribute"
	ActionShare      Action = "share"
	ActionTrade      Action = "trade"
	ActionIdle       Action = "idle"
)

// Fixed action weights, favoring productive actions. Not adaptive and
// not influenced by agent state.
var actionWeights = []struct {
	action Action
	weight float64
}{
	{ActionContribute, 0.4},
	{ActionShare, 0.3},
	{ActionTrade, 0.2},
	{ActionIdle, 0.1},
}

// Trade amount range, drawn uniformly.
const (
	TradeAmountMin = 5.0
	TradeAmountMax = 15.0
)

// Selection is one step's choice: the acting agent, the action, and for
// trades a counterparty and amount. Partner is empty when no eligible
// counterparty exists.
type Selection struct {
	Agent   string
	Action  Action
	Partner string
	Amount  float64
}

// Selector draws step selections from an injected random source, so a
// seeded source gives a fully deterministic run.
type Selector struct {
	rng *rand.Rand
}

// NewSelector creates a Selector over the given random source.
func NewSelector(rng *rand.Rand) *Selector {
	return &Selector{rng: rng}
}

// Select picks one step's agent and action from the current key set.
// The agent is uniform over keys; the action follows the fixed weights.
// For a trade, a distinct partner is drawn uniformly from the remaining
// agents and an amount uniformly from [TradeAmountMin, TradeAmountMax];
// with a single agent the trade degenerates (Partner stays empty).
func (sel *Selector) Select(keys []string) Selection {
	s := Selection{
		Agent:  keys[sel.rng.Intn(len(keys))],
		Action: sel.pickAction(),
	}

	if s.Action == ActionTrade && len(keys) > 1 {
		// Uniform over the other agents: draw from n-1 slots and skip
		// past the actor's own position.
		i := sel.rng.Intn(len(keys) - 1)
		partner := keys[i]
		if partner == s.Agent {
			partner = keys[len(keys)-1]
		}
		s.Partner = partner
		s.Amount = TradeAmountMin + sel.rng.Float64()*(TradeAmountMax-TradeAmountMin)
	}

	return s
}

func (sel *Selector) pickAction() Action {
	r := sel.rng.Float64()
	acc := 0.0
	for _, w := range actionWeights {
		acc += w.weight
		if r < acc {
			return w.action
		}
	}
	// Float64 returns values in [0, 1); the weights sum to 1, so this
	// is only reachable through rounding at the top of the range.
	return ActionIdle
}

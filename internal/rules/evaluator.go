package rules

import "github.com/talgya/asi-chain/internal/agents"

// Evaluator is the simplified dispatcher: it resolves the same rule
// names as the Runtime by direct evaluation, without the rule registry
// or the textual protocol in between.
type Evaluator struct {
	g grounded
}

// NewEvaluator creates an Evaluator bound to the given store.
func NewEvaluator(store *agents.Store) *Evaluator {
	return &Evaluator{g: grounded{store: store}}
}

// Invoke dispatches a rule by name.
func (e *Evaluator) Invoke(name string, args ...string) (float64, bool) {
	switch name {
	case OpUpdate:
		if len(args) < 2 {
			return 0, true
		}
		return e.g.update(args[0], args[1]), true
	case OpGet:
		if len(args) < 1 {
			return 0, true
		}
		return e.g.get(args[0]), true
	case OpTransfer:
		if len(args) < 3 {
			return 0, true
		}
		return e.g.transfer(args[0], args[1], args[2]), true
	case OpContribute:
		return e.action(args, ContributeDelta)
	case OpShare:
		return e.action(args, ShareDelta)
	case OpIdle:
		return e.action(args, IdleDelta)
	}
	return 0, false
}

func (e *Evaluator) action(args []string, delta float64) (float64, bool) {
	if len(args) < 1 {
		return 0, true
	}
	return e.g.update(args[0], formatDelta(delta)), true
}

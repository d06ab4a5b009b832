// Package rules implements named-rule dispatch for reputation mutations.
// Rules are invoked by name with string-typed arguments, mirroring the
// textual invocation protocol of the symbolic rule layer. Two
// interchangeable dispatchers exist: the Runtime (rule-registry backed,
// driven through the textual protocol) and the Evaluator (direct pure
// evaluation). Their observable behavior is identical.
package rules

import (
	"strconv"

	"github.com/talgya/asi-chain/internal/agents"
)

// Policy constants. These deltas and the trade premium are the entire
// policy layer; the 1.1x premium makes every successful trade
// positive-sum on purpose (total system reputation is allowed to grow).
const (
	ContributeDelta = 15.0
	ShareDelta      = 8.0
	IdleDelta       = -2.0
	TradePremium    = 1.1
)

// Rule names. This set is closed: dispatchers resolve exactly these.
const (
	OpUpdate     = "update-reputation"
	OpGet        = "get-reputation"
	OpTransfer   = "transfer-reputation"
	OpContribute = "action-contribute"
	OpShare      = "action-share"
	OpIdle       = "action-idle"
)

// Dispatcher resolves a rule name and string arguments to a reputation
// mutation. The second return reports whether the name resolved; the
// float carries the rule's result signal (new reputation for updates,
// 1/0 success for transfers). Unknown agents and failed trades are
// recovered as a 0 result, never as an error.
type Dispatcher interface {
	Invoke(name string, args ...string) (float64, bool)
}

// grounded holds the store-mutating operations both dispatchers are
// built on. All writes go through the store's clamping Set.
type grounded struct {
	store *agents.Store
}

// update adds delta to the agent's reputation, clamped into bounds, and
// returns the new value. Unknown agent or unparseable delta is a no-op
// returning 0.
func (g grounded) update(name, deltaArg string) float64 {
	delta, err := strconv.ParseFloat(deltaArg, 64)
	if err != nil {
		return 0
	}
	if !g.store.Has(name) {
		return 0
	}
	g.store.Set(name, g.store.Get(name)+delta)
	return g.store.Get(name)
}

// get returns the agent's current reputation, or 0 if unknown.
func (g grounded) get(name string) float64 {
	return g.store.Get(name)
}

// transfer moves reputation between two agents: debits from by amount
// and credits to by amount * TradePremium. Succeeds (returns 1) only if
// both agents exist and from can cover the amount; otherwise fails
// (returns 0) with no partial mutation. The check-then-apply is atomic
// with respect to the step (single-threaded engine).
func (g grounded) transfer(from, to, amountArg string) float64 {
	amount, err := strconv.ParseFloat(amountArg, 64)
	if err != nil {
		return 0
	}
	if !g.store.Has(from) || !g.store.Has(to) {
		return 0
	}
	if g.store.Get(from) < amount {
		return 0
	}
	g.store.Set(from, g.store.Get(from)-amount)
	g.store.Set(to, g.store.Get(to)+amount*TradePremium)
	return 1
}

// formatDelta renders a policy delta for the string-argument protocol.
func formatDelta(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

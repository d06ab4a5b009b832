package rules

import (
	"strings"

	"github.com/talgya/asi-chain/internal/agents"
)

// ruleFunc is a registered rule body: string arguments in, result out.
type ruleFunc func(args ...string) float64

// Runtime is the rule-registry dispatcher. Grounded operations and the
// named action rules live in one registry keyed by rule name; action
// rules are registered as compositions that re-enter the runtime
// through the textual protocol, the same way the symbolic rule
//
//	(= (action-contribute $agent) (update-reputation $agent 15))
//
// expands to a grounded call.
type Runtime struct {
	rules map[string]ruleFunc
}

// NewRuntime creates a Runtime bound to the given store, with the
// grounded operations and all action rules registered. The registry is
// fixed after construction.
func NewRuntime(store *agents.Store) *Runtime {
	rt := &Runtime{rules: make(map[string]ruleFunc)}
	g := grounded{store: store}

	rt.register(OpUpdate, func(args ...string) float64 {
		if len(args) < 2 {
			return 0
		}
		return g.update(args[0], args[1])
	})
	rt.register(OpGet, func(args ...string) float64 {
		if len(args) < 1 {
			return 0
		}
		return g.get(args[0])
	})
	rt.register(OpTransfer, func(args ...string) float64 {
		if len(args) < 3 {
			return 0
		}
		return g.transfer(args[0], args[1], args[2])
	})

	rt.register(OpContribute, rt.deltaRule(ContributeDelta))
	rt.register(OpShare, rt.deltaRule(ShareDelta))
	rt.register(OpIdle, rt.deltaRule(IdleDelta))

	return rt
}

func (rt *Runtime) register(name string, fn ruleFunc) {
	rt.rules[name] = fn
}

// deltaRule builds an action rule that rewrites to an update-reputation
// invocation through the textual protocol.
func (rt *Runtime) deltaRule(delta float64) ruleFunc {
	return func(args ...string) float64 {
		if len(args) < 1 {
			return 0
		}
		result, _ := rt.Run("!(" + OpUpdate + " " + args[0] + " " + formatDelta(delta) + ")")
		return result
	}
}

// Run executes a textual rule command of the form "!(rule-name arg ...)".
// Returns the rule result and whether the command resolved to a
// registered rule. Malformed commands resolve to nothing.
func (rt *Runtime) Run(command string) (float64, bool) {
	if !strings.HasPrefix(command, "!(") || !strings.HasSuffix(command, ")") {
		return 0, false
	}
	parts := strings.Fields(command[2 : len(command)-1])
	if len(parts) == 0 {
		return 0, false
	}
	fn, ok := rt.rules[parts[0]]
	if !ok {
		return 0, false
	}
	return fn(parts[1:]...), true
}

// Invoke dispatches a rule by name, routing through the textual
// protocol so the Runtime exercises the same path as symbolic callers.
func (rt *Runtime) Invoke(name string, args ...string) (float64, bool) {
	cmd := "!(" + name
	if len(args) > 0 {
		cmd += " " + strings.Join(args, " ")
	}
	return rt.Run(cmd + ")")
}

package agent

import (
	"context"
	"reflect"

	"github.com/hupe1980/cognisphere/binding"
	"github.com/hupe1980/cognisphere/core"
)

// Agent is a named, capability-described callable unit. Every declared
// operation has a Specification describing how its arguments are read from a
// blackboard.
type Agent interface {
	// Specifications returns one specification per declared operation.
	Specifications() []binding.Specification
	// Call invokes operation with positional arguments ordered as the
	// operation's parameters.
	Call(ctx context.Context, operation string, args []any) (any, error)
}

// OutputNamer is implemented by agents whose result is stored on the
// blackboard under a configured key.
type OutputNamer interface {
	OutputName() string
}

// BlackboardOwner is implemented by composed agents (façades). They register
// their own leaf calls and can be pinned to the blackboard of an enclosing
// composition.
type BlackboardOwner interface {
	Agent
	// Blackboard returns the bound blackboard, nil while unbound.
	Blackboard() *core.Blackboard
	// WithBlackboard returns a copy sharing the configuration but bound to bb.
	WithBlackboard(bb *core.Blackboard) BlackboardOwner
}

// Condition is a side-effect free predicate over the current blackboard state.
type Condition func(bb *core.Blackboard) bool

// BoundCondition adapts a predicate over typed arguments into a Condition.
// The arguments are read through spec exactly like an agent's arguments; a
// binding failure evaluates to false.
func BoundCondition(spec binding.Specification, fn func(args []any) bool) Condition {
	return func(bb *core.Blackboard) bool {
		args, err := spec.InvocationArguments(bb)
		if err != nil {
			return false
		}
		return fn(args)
	}
}

// Always is a Condition that is always true.
func Always(*core.Blackboard) bool { return true }

// StateEquals returns a Condition holding when key is present and its value
// equals want.
func StateEquals(key string, want any) Condition {
	return func(bb *core.Blackboard) bool {
		v, ok := bb.ReadState(key)
		return ok && reflect.DeepEqual(v, want)
	}
}

func outputNameOf(a Agent) string {
	if n, ok := a.(OutputNamer); ok {
		return n.OutputName()
	}
	return ""
}

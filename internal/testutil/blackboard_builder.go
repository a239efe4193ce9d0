package testutil

import (
	"context"

	"github.com/hupe1980/cognisphere/core"
)

// BlackboardBuilder helps construct blackboards with fluent chaining for
// tests. Example:
//
//	bb := NewBlackboardBuilder("sess-1").State("topic", "dragons").
//		Call("writer", "Writes a story", "once upon a time", "dragons").Build()
type BlackboardBuilder struct {
	id    string
	state map[string]any
	calls []call
}

type call struct {
	spec     describer
	input    []any
	response any
}

type describer struct{ name, description string }

func (d describer) Name() string        { return d.name }
func (d describer) Description() string { return d.description }

// NewBlackboardBuilder creates a new builder for a blackboard with the given
// id. Use chainable methods (State, States, Call) then call Build.
func NewBlackboardBuilder(id string) *BlackboardBuilder {
	return &BlackboardBuilder{id: id, state: map[string]any{}}
}

// State sets or overwrites a state entry (chainable).
func (b *BlackboardBuilder) State(key string, val any) *BlackboardBuilder {
	b.state[key] = val
	return b
}

// States sets several state entries (chainable).
func (b *BlackboardBuilder) States(states map[string]any) *BlackboardBuilder {
	for k, v := range states {
		b.state[k] = v
	}
	return b
}

// Call records a completed call of the named agent (chainable). Calls are
// registered after the state is written, in the order given.
func (b *BlackboardBuilder) Call(agent, description string, response any, input ...any) *BlackboardBuilder {
	b.calls = append(b.calls, call{spec: describer{agent, description}, input: input, response: response})
	return b
}

// Build returns a *core.Blackboard with the pre-populated state and history.
func (b *BlackboardBuilder) Build() *core.Blackboard {
	bb := core.NewBlackboard(b.id)
	bb.WriteStates(b.state)

	for _, c := range b.calls {
		// Synthetic agents expose no chat memory, so registration cannot fail.
		_ = bb.RegisterCall(context.Background(), c.spec, nil, c.input, c.response)
	}

	return bb
}

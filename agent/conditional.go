package agent

import (
	"context"

	"github.com/hupe1980/cognisphere/core"
)

// KindConditional identifies the Conditional strategy.
const KindConditional = "conditional"

// Branch pairs a condition with the agents it guards.
type Branch struct {
	Condition Condition
	SubAgents []Agent
}

// ConditionalBranch pairs a condition with the executors it guards.
type ConditionalBranch struct {
	Condition Condition
	Executors []*Executor
}

// Conditional evaluates its branches in declared order against the live
// blackboard and runs every branch whose condition holds. Writes of an
// earlier branch are visible to the conditions of later ones.
type Conditional struct {
	branches []ConditionalBranch
}

var _ Strategy = (*Conditional)(nil)

// NewConditional creates a conditional strategy.
func NewConditional(branches ...ConditionalBranch) *Conditional {
	return &Conditional{branches: branches}
}

// Kind implements Strategy.
func (c *Conditional) Kind() string { return KindConditional }

// Run implements Strategy. The result is a snapshot of the final state.
func (c *Conditional) Run(ctx context.Context, bb *core.Blackboard) (any, error) {
	for _, b := range c.branches {
		if b.Condition != nil && !b.Condition(bb) {
			continue
		}
		for _, e := range b.Executors {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if _, err := e.Invoke(ctx, bb); err != nil {
				return nil, err
			}
		}
	}
	return bb.State(), nil
}

// ConditionalOf composes branches into a conditional façade. A branch
// without a condition always runs.
func ConditionalOf(branches []Branch, optFns ...func(o *FacadeOptions)) (*Facade, error) {
	opts := facadeOptions(optFns)
	cbs := make([]ConditionalBranch, len(branches))
	for i, b := range branches {
		cbs[i] = ConditionalBranch{
			Condition: b.Condition,
			Executors: NewExecutors(b.SubAgents, opts.executorOptions),
		}
	}
	return newFacade(NewConditional(cbs...), opts)
}

package agent

import (
	"context"

	"github.com/hupe1980/cognisphere/core"
)

// KindSequence identifies the Sequential strategy.
const KindSequence = "sequence"

// Sequential invokes its executors once each, in declared order, against the
// same blackboard. Individual results are ignored; later steps observe the
// state written by earlier ones. The first failure aborts the sequence.
type Sequential struct {
	executors []*Executor
}

var _ Strategy = (*Sequential)(nil)

// NewSequential creates a sequential strategy.
func NewSequential(executors ...*Executor) *Sequential {
	return &Sequential{executors: executors}
}

// Kind implements Strategy.
func (s *Sequential) Kind() string { return KindSequence }

// Run implements Strategy. The result is a snapshot of the final state.
func (s *Sequential) Run(ctx context.Context, bb *core.Blackboard) (any, error) {
	for _, e := range s.executors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := e.Invoke(ctx, bb); err != nil {
			return nil, err
		}
	}
	return bb.State(), nil
}

// SequenceOf composes subAgents into a sequential façade.
func SequenceOf(subAgents []Agent, optFns ...func(o *FacadeOptions)) (*Facade, error) {
	opts := facadeOptions(optFns)
	return newFacade(NewSequential(NewExecutors(subAgents, opts.executorOptions)...), opts)
}

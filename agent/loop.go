package agent

import (
	"context"
	"math"

	"github.com/hupe1980/cognisphere/core"
	"github.com/hupe1980/cognisphere/logging"
	"github.com/hupe1980/cognisphere/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// KindLoop identifies the Loop strategy.
const KindLoop = "loop"

// Unbounded lets a loop run until its exit condition holds, the context is
// cancelled or an executor fails.
const Unbounded = -1

// LoopOptions configures a Loop.
type LoopOptions struct {
	// MaxIterations bounds the number of full passes. Defaults to Unbounded;
	// any negative value means the same. Zero runs no pass at all.
	MaxIterations int
	// ExitCondition is checked after every single executor invocation.
	ExitCondition Condition
	Logger        logging.Logger
}

// Loop repeatedly invokes its executors in order until the exit condition
// holds or the iteration bound is reached. A pass may stop halfway: the exit
// condition is evaluated after each executor, not only after a full pass.
type Loop struct {
	executors     []*Executor
	maxIterations int
	exit          Condition
	logger        logging.Logger
}

var _ Strategy = (*Loop)(nil)

// NewLoop creates a loop strategy, unbounded unless configured otherwise.
func NewLoop(executors []*Executor, optFns ...func(o *LoopOptions)) *Loop {
	opts := LoopOptions{
		MaxIterations: Unbounded,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxIterations < 0 {
		opts.MaxIterations = math.MaxInt
	}

	return &Loop{
		executors:     executors,
		maxIterations: opts.MaxIterations,
		exit:          opts.ExitCondition,
		logger:        opts.Logger,
	}
}

// Kind implements Strategy.
func (l *Loop) Kind() string { return KindLoop }

// MaxIterations returns the configured bound.
func (l *Loop) MaxIterations() int { return l.maxIterations }

// Run implements Strategy. The result is a snapshot of the final state.
func (l *Loop) Run(ctx context.Context, bb *core.Blackboard) (any, error) {
	for i := 0; i < l.maxIterations; i++ {
		telemetry.AddEvent(ctx, "loop.iteration", attribute.Int(telemetry.AttrIteration, i))
		for _, e := range l.executors {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if _, err := e.Invoke(ctx, bb); err != nil {
				return nil, err
			}
			if l.exit != nil && l.exit(bb) {
				l.logger.Debug("loop exit condition met", "iteration", i, "after", e.Name())
				return bb.State(), nil
			}
		}
	}
	return bb.State(), nil
}

// LoopOf composes subAgents into a looping façade. loopFn may be nil; the
// loop logs through the façade's logger unless loopFn sets another one.
func LoopOf(subAgents []Agent, loopFn func(o *LoopOptions), optFns ...func(o *FacadeOptions)) (*Facade, error) {
	opts := facadeOptions(optFns)
	loopFns := []func(o *LoopOptions){func(o *LoopOptions) { o.Logger = opts.Logger }}
	if loopFn != nil {
		loopFns = append(loopFns, loopFn)
	}
	strategy := NewLoop(NewExecutors(subAgents, opts.executorOptions), loopFns...)
	return newFacade(strategy, opts)
}

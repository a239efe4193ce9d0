package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/cognisphere/binding"
	"github.com/hupe1980/cognisphere/core"
	"github.com/hupe1980/cognisphere/logging"
	"github.com/hupe1980/cognisphere/telemetry"
)

// ExecutorOptions configures an Executor.
type ExecutorOptions struct {
	// OutputName overrides the output name reported by the agent.
	OutputName  string
	Logger      logging.Logger
	Instruments *telemetry.Instruments
}

// Executor pairs one operation of an agent with the blackboard plumbing
// required to run it: argument binding, result storage and call
// registration.
type Executor struct {
	spec        binding.Specification
	agent       Agent
	outputName  string
	logger      logging.Logger
	instruments *telemetry.Instruments
}

// NewExecutor creates an executor for the operation described by spec.
func NewExecutor(spec binding.Specification, agent Agent, optFns ...func(o *ExecutorOptions)) *Executor {
	opts := ExecutorOptions{
		OutputName:  outputNameOf(agent),
		Logger:      logging.NoOpLogger{},
		Instruments: telemetry.Default(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Executor{
		spec:        spec,
		agent:       agent,
		outputName:  opts.OutputName,
		logger:      opts.Logger,
		instruments: opts.Instruments,
	}
}

// NewExecutors creates one executor per declared operation of each agent, in
// order.
func NewExecutors(agents []Agent, optFns ...func(o *ExecutorOptions)) []*Executor {
	var executors []*Executor
	for _, a := range agents {
		for _, spec := range a.Specifications() {
			executors = append(executors, NewExecutor(spec, a, optFns...))
		}
	}
	return executors
}

// Name returns the public name of the executed operation.
func (e *Executor) Name() string { return e.spec.Name() }

// Specification returns the binding descriptor of the executed operation.
func (e *Executor) Specification() binding.Specification { return e.spec }

// Agent returns the wrapped agent.
func (e *Executor) Agent() Agent { return e.agent }

// OutputName returns the key the result is written to, if any.
func (e *Executor) OutputName() string { return e.outputName }

// Invoke runs the operation against bb and returns its raw result.
func (e *Executor) Invoke(ctx context.Context, bb *core.Blackboard) (result any, err error) {
	ctx, end := e.instruments.StartAgentCall(ctx, e.spec.Name(), e.spec.Operation(), bb.ID())
	start := time.Now()
	defer func() {
		end(err)
		if err != nil {
			e.logger.Warn("agent call failed", "agent", e.spec.Name(), "session", bb.ID(), "error", err)
			return
		}
		e.logger.Debug("agent call completed", "agent", e.spec.Name(), "session", bb.ID(), "duration", time.Since(start))
	}()

	target := e.agent
	owner, composed := e.agent.(BlackboardOwner)
	if composed {
		target = owner.WithBlackboard(bb)
	}

	args, err := e.spec.InvocationArguments(bb)
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", e.spec.Name(), err)
	}

	result, err = target.Call(ctx, e.spec.Operation(), args)
	if err != nil {
		return nil, core.NewAgentError(e.spec.Name(), err)
	}

	if e.outputName != "" {
		bb.WriteState(e.outputName, result)
	}

	if !composed {
		if err := bb.RegisterCall(ctx, e.spec, target, args, result); err != nil {
			return nil, err
		}
	}

	return result, nil
}

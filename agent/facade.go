package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/cognisphere/binding"
	"github.com/hupe1980/cognisphere/core"
	"github.com/hupe1980/cognisphere/logging"
	"github.com/hupe1980/cognisphere/session"
	"github.com/hupe1980/cognisphere/telemetry"
)

// Operations every façade answers regardless of its declared operations.
const (
	OpBlackboard     = "blackboard"
	OpWithBlackboard = "withBlackboard"
	OpOutputName     = "outputName"
)

// DefaultOperation is the operation of a façade declared without any.
const DefaultOperation = "invoke"

// Strategy is a composition algorithm deciding which sub-agents run, in
// which order, and when to stop.
type Strategy interface {
	// Kind names the strategy ("sequence", "loop", ...).
	Kind() string
	// Run executes the composition against bb and returns its raw result.
	Run(ctx context.Context, bb *core.Blackboard) (any, error)
}

// FacadeOptions configures a Facade.
type FacadeOptions struct {
	// Name of the composed agent. Defaults to the strategy kind.
	Name        string
	Description string
	// Operations are the declared operations. Defaults to one untyped
	// DefaultOperation receiving the state map.
	Operations []binding.Declaration
	// OutputName, when set, selects the state entry returned by every call.
	OutputName string
	// Registry resolves session-id arguments. Defaults to session.Default().
	Registry    *session.Registry
	Logger      logging.Logger
	Instruments *telemetry.Instruments
}

// Facade exposes a composition strategy as an agent. A façade is either
// unbound, creating an ad-hoc blackboard on first use, or bound to the
// blackboard of an enclosing composition.
type Facade struct {
	name        string
	description string
	outputName  string
	specs       []binding.Specification
	strategy    Strategy
	registry    *session.Registry
	logger      logging.Logger
	instruments *telemetry.Instruments

	mu    sync.Mutex
	bb    *core.Blackboard
	bound bool
}

var (
	_ BlackboardOwner = (*Facade)(nil)
	_ OutputNamer     = (*Facade)(nil)
)

// NewFacade creates an unbound façade around strategy. It fails with
// core.ErrBinding when a declared operation cannot be bound.
func NewFacade(strategy Strategy, optFns ...func(o *FacadeOptions)) (*Facade, error) {
	return newFacade(strategy, facadeOptions(optFns))
}

func facadeOptions(optFns []func(o *FacadeOptions)) FacadeOptions {
	opts := FacadeOptions{
		Logger:      logging.NoOpLogger{},
		Instruments: telemetry.Default(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return opts
}

// executorOptions propagates the façade's ambient stack to the executors of
// its sub-agents.
func (o FacadeOptions) executorOptions(e *ExecutorOptions) {
	e.Logger = o.Logger
	e.Instruments = o.Instruments
}

func newFacade(strategy Strategy, opts FacadeOptions) (*Facade, error) {
	if opts.Name == "" {
		opts.Name = strategy.Kind()
	}
	if len(opts.Operations) == 0 {
		opts.Operations = []binding.Declaration{{Operation: DefaultOperation, Untyped: true}}
	}
	if opts.Registry == nil {
		opts.Registry = session.Default()
	}

	specs := make([]binding.Specification, 0, len(opts.Operations))
	for _, decl := range opts.Operations {
		if decl.Name == "" {
			decl.Name = opts.Name
		}
		if decl.Description == "" {
			decl.Description = opts.Description
		}
		spec, err := binding.New(decl)
		if err != nil {
			return nil, fmt.Errorf("facade %s: %w", opts.Name, err)
		}
		specs = append(specs, spec)
	}

	return &Facade{
		name:        opts.Name,
		description: opts.Description,
		outputName:  opts.OutputName,
		specs:       specs,
		strategy:    strategy,
		registry:    opts.Registry,
		logger:      opts.Logger,
		instruments: opts.Instruments,
	}, nil
}

// Name returns the façade's name.
func (f *Facade) Name() string { return f.name }

// Description returns the façade's description.
func (f *Facade) Description() string { return f.description }

// OutputName implements OutputNamer.
func (f *Facade) OutputName() string { return f.outputName }

// Strategy returns the composition strategy.
func (f *Facade) Strategy() Strategy { return f.strategy }

// Specifications implements Agent.
func (f *Facade) Specifications() []binding.Specification {
	out := make([]binding.Specification, len(f.specs))
	copy(out, f.specs)
	return out
}

// Blackboard implements BlackboardOwner.
func (f *Facade) Blackboard() *core.Blackboard {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bb
}

// WithBlackboard implements BlackboardOwner.
func (f *Facade) WithBlackboard(bb *core.Blackboard) BlackboardOwner {
	return &Facade{
		name:        f.name,
		description: f.description,
		outputName:  f.outputName,
		specs:       f.specs,
		strategy:    f.strategy,
		registry:    f.registry,
		logger:      f.logger,
		instruments: f.instruments,
		bb:          bb,
		bound:       true,
	}
}

// Call implements Agent.
func (f *Facade) Call(ctx context.Context, operation string, args []any) (any, error) {
	switch operation {
	case OpBlackboard:
		return f.Blackboard(), nil
	case OpWithBlackboard:
		if len(args) != 1 {
			return nil, fmt.Errorf("%w: %s expects one argument", core.ErrUnsupportedOperation, OpWithBlackboard)
		}
		bb, ok := args[0].(*core.Blackboard)
		if !ok {
			return nil, fmt.Errorf("%w: %s expects a blackboard, got %T", core.ErrUnsupportedOperation, OpWithBlackboard, args[0])
		}
		return f.WithBlackboard(bb), nil
	case OpOutputName:
		return f.outputName, nil
	}

	spec, err := f.specification(operation)
	if err != nil {
		return nil, err
	}

	params := spec.Parameters()
	if binding.IsUntyped(spec) {
		if len(args) != 1 {
			return nil, fmt.Errorf("%s.%s: expected 1 argument, got %d", f.name, operation, len(args))
		}
	} else if len(args) != len(params) {
		return nil, fmt.Errorf("%s.%s: expected %d arguments, got %d", f.name, operation, len(params), len(args))
	}

	bb := f.resolve(params, args)

	if binding.IsUntyped(spec) {
		states, ok := args[0].(map[string]any)
		if !ok && args[0] != nil {
			return nil, fmt.Errorf("%s.%s: expected map[string]any, got %T", f.name, operation, args[0])
		}
		bb.WriteStates(states)
	} else {
		names := spec.ArgumentNames()
		n := 0
		for i, p := range params {
			if p.SessionID {
				continue
			}
			bb.WriteState(names[n], args[i])
			n++
		}
	}

	return f.run(ctx, bb)
}

// Invoke calls the first declared operation, taking its arguments from
// inputs by bound name. Session-id parameters are read under their
// identifier. The untyped form receives inputs as a whole.
func (f *Facade) Invoke(ctx context.Context, inputs map[string]any) (any, error) {
	spec := f.specs[0]
	if binding.IsUntyped(spec) {
		return f.Call(ctx, spec.Operation(), []any{inputs})
	}

	params := spec.Parameters()
	names := spec.ArgumentNames()
	args := make([]any, len(params))
	n := 0
	for i, p := range params {
		key := p.Ident
		if !p.SessionID {
			key = names[n]
			n++
		}
		v, ok := inputs[key]
		if !ok {
			return nil, fmt.Errorf("%s: %w: %s", f.name, core.ErrMissingArgument, key)
		}
		args[i] = v
	}
	return f.Call(ctx, spec.Operation(), args)
}

func (f *Facade) specification(operation string) (binding.Specification, error) {
	for _, spec := range f.specs {
		if spec.Operation() == operation {
			return spec, nil
		}
	}
	return nil, fmt.Errorf("%w: %s has no operation %q", core.ErrUnsupportedOperation, f.name, operation)
}

// resolve picks the blackboard of a call: the session named by a session-id
// argument, else the bound blackboard, else a lazily created ad-hoc one. A
// bound façade keeps its blackboard when the session argument names it.
func (f *Facade) resolve(params []binding.Parameter, args []any) *core.Blackboard {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, p := range params {
		if p.SessionID && args[i] != nil {
			id := fmt.Sprint(args[i])
			if f.bound && f.bb.ID() == id {
				return f.bb
			}
			return f.registry.GetOrCreate(id)
		}
	}

	if f.bb == nil {
		f.bb = core.NewBlackboard("")
	}
	return f.bb
}

func (f *Facade) run(ctx context.Context, bb *core.Blackboard) (result any, err error) {
	kind := f.strategy.Kind()
	ctx, end := f.instruments.StartWorkflow(ctx, kind, f.name, bb.ID())
	start := time.Now()
	defer func() { end(err) }()

	f.logger.Debug("workflow started", "kind", kind, "agent", f.name, "session", bb.ID())
	result, err = f.strategy.Run(ctx, bb)
	if err != nil {
		f.logger.Warn("workflow failed", "kind", kind, "agent", f.name, "session", bb.ID(), "error", err)
		return nil, err
	}
	f.logger.Debug("workflow completed", "kind", kind, "agent", f.name, "session", bb.ID(), "duration", time.Since(start))

	if f.outputName != "" {
		return bb.ReadStateOr(f.outputName, nil), nil
	}
	return result, nil
}

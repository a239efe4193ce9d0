package agent

import (
	"context"
	"fmt"

	"github.com/hupe1980/cognisphere/binding"
	"github.com/hupe1980/cognisphere/core"
)

// Func is the body of a FuncAgent. args are ordered as the declared
// parameters.
type Func func(ctx context.Context, args []any) (any, error)

// FuncAgentOptions configures a FuncAgent.
type FuncAgentOptions struct {
	OutputName string
}

// FuncAgent exposes a plain Go function as a single-operation agent.
type FuncAgent struct {
	spec       binding.Specification
	fn         Func
	outputName string
}

var (
	_ Agent       = (*FuncAgent)(nil)
	_ OutputNamer = (*FuncAgent)(nil)
)

// NewFuncAgent binds decl and wraps fn.
func NewFuncAgent(decl binding.Declaration, fn Func, optFns ...func(o *FuncAgentOptions)) (*FuncAgent, error) {
	opts := FuncAgentOptions{}
	for _, f := range optFns {
		f(&opts)
	}

	spec, err := binding.New(decl)
	if err != nil {
		return nil, err
	}
	return &FuncAgent{spec: spec, fn: fn, outputName: opts.OutputName}, nil
}

// MustFuncAgent is like NewFuncAgent but panics on a binding error.
func MustFuncAgent(decl binding.Declaration, fn Func, optFns ...func(o *FuncAgentOptions)) *FuncAgent {
	a, err := NewFuncAgent(decl, fn, optFns...)
	if err != nil {
		panic(err)
	}
	return a
}

// Name returns the agent name.
func (a *FuncAgent) Name() string { return a.spec.Name() }

// OutputName implements OutputNamer.
func (a *FuncAgent) OutputName() string { return a.outputName }

// Specifications implements Agent.
func (a *FuncAgent) Specifications() []binding.Specification {
	return []binding.Specification{a.spec}
}

// Call implements Agent.
func (a *FuncAgent) Call(ctx context.Context, operation string, args []any) (any, error) {
	if operation != a.spec.Operation() {
		return nil, fmt.Errorf("%w: %s has no operation %q", core.ErrUnsupportedOperation, a.spec.Name(), operation)
	}
	return a.fn(ctx, args)
}

package binding

import (
	"fmt"
	"strings"

	"github.com/hupe1980/cognisphere/core"
)

// DefaultArgumentName is the key a lone unnamed parameter binds to.
const DefaultArgumentName = "request"

// Parameter declares one argument of an agent operation.
type Parameter struct {
	// Binding is the explicit blackboard key. It takes precedence over Ident.
	Binding string
	// Ident is the parameter's own name, used when no Binding is declared.
	Ident string
	// Kind is the target type textual values are coerced into.
	Kind Kind
	// SessionID marks the parameter receiving the blackboard id. It is never
	// part of the argument names.
	SessionID bool
}

func (p Parameter) name() string {
	if p.Binding != "" {
		return p.Binding
	}
	return p.Ident
}

// Declaration describes an agent operation prior to binding.
type Declaration struct {
	// Operation is the callable operation name.
	Operation string
	// Name is the public agent name. Defaults to Operation.
	Name string
	// Description is used as a planning hint by the supervisor.
	Description string
	// Parameters are the declared arguments in call order.
	Parameters []Parameter
	// Untyped selects the untyped form receiving the whole state map.
	Untyped bool
}

// Specification is the immutable binding descriptor of an agent operation.
type Specification interface {
	core.Describer
	// Operation returns the callable operation name.
	Operation() string
	// ArgumentNames returns the bound keys of all non-session parameters.
	ArgumentNames() []string
	// Parameters returns the declared parameters in call order.
	Parameters() []Parameter
	// Card returns the compact summary consumed by planning prompts.
	Card() string
	// InvocationArguments reads the call arguments from the blackboard.
	InvocationArguments(bb *core.Blackboard) ([]any, error)
}

// New derives a Specification from a declaration. It fails with
// core.ErrBinding when a parameter cannot be named.
func New(decl Declaration) (Specification, error) {
	if decl.Operation == "" {
		return nil, fmt.Errorf("%w: operation name is required", core.ErrBinding)
	}

	name := decl.Name
	if name == "" {
		name = decl.Operation
	}

	if decl.Untyped {
		return &UntypedSpecification{operation: decl.Operation, name: name, description: decl.Description}, nil
	}

	params := make([]Parameter, len(decl.Parameters))
	copy(params, decl.Parameters)

	spec := &MethodSpecification{
		operation:   decl.Operation,
		name:        name,
		description: decl.Description,
		params:      params,
		keys:        make([]string, len(params)),
	}

	nonSession := 0
	for _, p := range params {
		if !p.SessionID {
			nonSession++
		}
	}

	for i, p := range params {
		switch {
		case p.SessionID:
			continue
		case p.name() != "":
			spec.keys[i] = p.name()
		case nonSession == 1:
			spec.keys[i] = DefaultArgumentName
			spec.implicit = true
		default:
			return nil, fmt.Errorf("%w: parameter %d of %s has no name", core.ErrBinding, i, decl.Operation)
		}
		spec.argNames = append(spec.argNames, spec.keys[i])
	}

	return spec, nil
}

// MustNew is like New but panics on a binding error.
func MustNew(decl Declaration) Specification {
	spec, err := New(decl)
	if err != nil {
		panic(err)
	}
	return spec
}

// MethodSpecification binds each declared parameter to a blackboard key.
type MethodSpecification struct {
	operation   string
	name        string
	description string
	params      []Parameter
	keys        []string // per parameter; empty for session parameters
	argNames    []string
	implicit    bool // lone parameter bound to DefaultArgumentName
}

var _ Specification = (*MethodSpecification)(nil)

// Name implements Specification.
func (s *MethodSpecification) Name() string { return s.name }

// Description implements Specification.
func (s *MethodSpecification) Description() string { return s.description }

// Operation implements Specification.
func (s *MethodSpecification) Operation() string { return s.operation }

// ArgumentNames implements Specification.
func (s *MethodSpecification) ArgumentNames() []string {
	out := make([]string, len(s.argNames))
	copy(out, s.argNames)
	return out
}

// Parameters implements Specification.
func (s *MethodSpecification) Parameters() []Parameter {
	out := make([]Parameter, len(s.params))
	copy(out, s.params)
	return out
}

// Card renders "{name: description, [a, b]}".
func (s *MethodSpecification) Card() string {
	return "{" + s.name + ": " + s.description + ", [" + strings.Join(s.argNames, ", ") + "]}"
}

// InvocationArguments implements Specification.
func (s *MethodSpecification) InvocationArguments(bb *core.Blackboard) ([]any, error) {
	args := make([]any, len(s.params))
	for i, p := range s.params {
		if p.SessionID {
			args[i] = bb.ID()
			continue
		}

		value, ok := bb.ReadState(s.keys[i])
		if (!ok || value == nil) && s.implicit {
			value, ok = loneEntry(bb)
		}
		if !ok || value == nil {
			return nil, fmt.Errorf("%w: %s", core.ErrMissingArgument, s.keys[i])
		}

		v, err := Coerce(value, p.Kind)
		if err != nil {
			return nil, fmt.Errorf("argument %s: %w", s.keys[i], err)
		}
		args[i] = v
	}
	return args, nil
}

func loneEntry(bb *core.Blackboard) (any, bool) {
	state := bb.State()
	if len(state) != 1 {
		return nil, false
	}
	for _, v := range state {
		return v, true
	}
	return nil, false
}

// UntypedSpecification passes the whole state map as its only argument.
type UntypedSpecification struct {
	operation   string
	name        string
	description string
}

var _ Specification = (*UntypedSpecification)(nil)

// Name implements Specification.
func (s *UntypedSpecification) Name() string { return s.name }

// Description implements Specification.
func (s *UntypedSpecification) Description() string { return s.description }

// Operation implements Specification.
func (s *UntypedSpecification) Operation() string { return s.operation }

// ArgumentNames is always empty for the untyped form.
func (s *UntypedSpecification) ArgumentNames() []string { return nil }

// Parameters is always empty for the untyped form.
func (s *UntypedSpecification) Parameters() []Parameter { return nil }

// Card renders "{name: description}".
func (s *UntypedSpecification) Card() string {
	return "{" + s.name + ": " + s.description + "}"
}

// InvocationArguments returns a snapshot of the state map.
func (s *UntypedSpecification) InvocationArguments(bb *core.Blackboard) ([]any, error) {
	return []any{bb.State()}, nil
}

// IsUntyped reports whether spec is the untyped form.
func IsUntyped(spec Specification) bool {
	_, ok := spec.(*UntypedSpecification)
	return ok
}

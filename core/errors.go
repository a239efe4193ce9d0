package core

import (
	"errors"
	"fmt"
)

var (
	// ErrBinding is returned when a declared argument cannot be bound to a
	// blackboard key.
	ErrBinding = errors.New("binding error")

	// ErrMissingArgument is returned when a bound key is absent from the
	// blackboard at invocation time.
	ErrMissingArgument = errors.New("missing argument")

	// ErrTypeCoercion is returned when a textual value cannot be parsed into
	// the declared parameter kind.
	ErrTypeCoercion = errors.New("type coercion error")

	// ErrUnknownAgent is returned when a planner names an agent that is not
	// part of the supervised pool.
	ErrUnknownAgent = errors.New("unknown agent")

	// ErrExecution marks failures raised by the agent call itself.
	ErrExecution = errors.New("agent execution failed")

	// ErrUnsupportedOperation is returned when a caller targets an operation
	// an agent does not declare.
	ErrUnsupportedOperation = errors.New("unsupported operation")
)

// AgentError wraps a failure raised while invoking an agent with the
// identity of that agent. It matches both ErrExecution and the cause
// through errors.Is.
type AgentError struct {
	Agent string
	Err   error
}

// NewAgentError wraps err with the failing agent's name.
func NewAgentError(agent string, err error) *AgentError {
	return &AgentError{Agent: agent, Err: err}
}

// Error implements the error interface.
func (e *AgentError) Error() string {
	return fmt.Sprintf("agent %s: %v", e.Agent, e.Err)
}

// Unwrap exposes both ErrExecution and the underlying cause.
func (e *AgentError) Unwrap() []error {
	return []error{ErrExecution, e.Err}
}

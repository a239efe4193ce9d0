package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// DefaultID identifies blackboards created without an explicit session id.
const DefaultID = "default"

// Describer is the minimal identity of an agent operation recorded in the
// blackboard history.
type Describer interface {
	Name() string
	Description() string
}

// AgentCall is one entry of the per-agent invocation history.
type AgentCall struct {
	AgentName string `json:"agent_name"`
	Input     []any  `json:"input"`
	Response  any    `json:"response"`
}

// Blackboard (the "Cognisphere") is the shared, per-session state every
// agent of a composition reads from and writes to. It tracks:
//   - a last-write-wins key/value state map
//   - an append-only call history per agent name
//   - an append-only conversation context of request/response pairs
//
// The id never changes; all content is mutable and safe for concurrent use.
type Blackboard struct {
	id          string
	mu          sync.RWMutex
	state       map[string]any
	invocations map[string][]AgentCall
	context     []Message
}

// NewBlackboard creates an empty blackboard. An empty id yields DefaultID.
func NewBlackboard(id string) *Blackboard {
	if id == "" {
		id = DefaultID
	}

	return &Blackboard{
		id:          id,
		state:       map[string]any{},
		invocations: map[string][]AgentCall{},
		context:     []Message{},
	}
}

// ID returns the session id the blackboard is bound to.
func (b *Blackboard) ID() string { return b.id }

// WriteState stores value under key, overwriting any previous value.
func (b *Blackboard) WriteState(key string, value any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state[key] = value
}

// WriteStates merges all pairs of states into the blackboard.
func (b *Blackboard) WriteStates(states map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for k, v := range states {
		b.state[k] = v
	}
}

// ReadState returns the value stored under key and whether it was present.
func (b *Blackboard) ReadState(key string) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.state[key]
	return v, ok
}

// ReadStateOr returns the value stored under key or def when absent.
func (b *Blackboard) ReadStateOr(key string, def any) any {
	if v, ok := b.ReadState(key); ok {
		return v
	}
	return def
}

// HasState reports whether key is present.
func (b *Blackboard) HasState(key string) bool {
	_, ok := b.ReadState(key)
	return ok
}

// State returns a snapshot copy of the state map.
func (b *Blackboard) State() map[string]any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.stateLocked()
}

func (b *Blackboard) stateLocked() map[string]any {
	cp := make(map[string]any, len(b.state))
	for k, v := range b.state {
		cp[k] = v
	}
	return cp
}

// ReadAs returns the value stored under key when it holds a T, def otherwise.
func ReadAs[T any](b *Blackboard, key string, def T) T {
	v, ok := b.ReadState(key)
	if !ok {
		return def
	}
	if t, ok := v.(T); ok {
		return t
	}
	return def
}

// RegisterCall appends a call record to the history of the described agent
// and extends the conversation context.
//
// When the invoked agent exposes a chat memory for this blackboard's id, only
// its last user message and final message are appended; the turns before them
// stay local to the agent. Otherwise a synthetic pair summarizing the call is
// appended.
func (b *Blackboard) RegisterCall(ctx context.Context, spec Describer, agent any, input []any, response any) error {
	var memory []Message
	if acc, ok := agent.(MemoryAccessor); ok {
		msgs, err := acc.ChatMemory(ctx, b.id)
		if err != nil {
			return fmt.Errorf("reading chat memory of %s: %w", spec.Name(), err)
		}
		memory = msgs
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	args := make([]any, len(input))
	copy(args, input)
	b.invocations[spec.Name()] = append(b.invocations[spec.Name()], AgentCall{
		AgentName: spec.Name(),
		Input:     args,
		Response:  response,
	})

	for i := len(memory) - 1; i >= 0; i-- {
		if memory[i].Role == RoleUser {
			b.context = append(b.context, memory[i], memory[len(memory)-1])
			return nil
		}
	}

	b.context = append(b.context,
		UserMessage(spec.Description()+" using "+formatArgs(input)),
		AIMessage(fmt.Sprintf("%v with %v", response, b.stateLocked())),
	)

	return nil
}

// Invocations returns the ordered call history of the named agent.
func (b *Blackboard) Invocations(agentName string) []AgentCall {
	b.mu.RLock()
	defer b.mu.RUnlock()
	calls := b.invocations[agentName]
	out := make([]AgentCall, len(calls))
	copy(out, calls)
	return out
}

// Context returns a copy of the conversation context.
func (b *Blackboard) Context() []Message {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Message, len(b.context))
	copy(out, b.context)
	return out
}

// ContextAsConversation renders the context as alternating "User:" / "AI:"
// lines in order.
func (b *Blackboard) ContextAsConversation() string {
	var sb strings.Builder
	for _, m := range b.Context() {
		switch m.Role {
		case RoleUser:
			sb.WriteString("User: ")
		case RoleAI:
			sb.WriteString("AI: ")
		default:
			continue
		}
		sb.WriteString(m.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}

// LastInteractionMessages returns the final request/response pair of the
// context, or nothing when the context is empty.
func (b *Blackboard) LastInteractionMessages() []Message {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := len(b.context)
	if n == 0 {
		return []Message{}
	}
	start := max(n-2, 0)
	out := make([]Message, n-start)
	copy(out, b.context[start:])
	return out
}

// String implements fmt.Stringer.
func (b *Blackboard) String() string {
	return fmt.Sprintf("Cognisphere{id='%s', state=%v}", b.id, b.State())
}

func formatArgs(args []any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprint(a)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

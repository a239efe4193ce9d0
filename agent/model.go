package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/cognisphere/binding"
	"github.com/hupe1980/cognisphere/core"
	"github.com/hupe1980/cognisphere/internal/prompt"
	"github.com/hupe1980/cognisphere/logging"
	"github.com/hupe1980/cognisphere/model"
	"github.com/hupe1980/cognisphere/session"
)

// ContextProvider derives the context a model agent prepends to its prompt
// from the blackboard of the calling session.
type ContextProvider func(bb *core.Blackboard) string

// ConversationContext is a ContextProvider rendering the session's
// conversation context.
func ConversationContext(bb *core.Blackboard) string { return bb.ContextAsConversation() }

// ModelAgentOptions configures a ModelAgent.
//
// Use functional options with NewModelAgent to override defaults.
type ModelAgentOptions struct {
	// Operation is the callable operation name. Defaults to the agent name.
	Operation   string
	Description string
	// Instruction is the system prompt.
	Instruction Instruction
	// Prompt is the user message template. Placeholders are filled from the
	// call's arguments by bound name. When empty the arguments themselves are
	// sent.
	Prompt string
	// Parameters of the operation. Defaults to a single unnamed parameter
	// bound to "request".
	Parameters []binding.Parameter
	OutputName string
	// Result is the kind the model's textual answer is coerced into.
	Result binding.Kind
	// Memory keeps the agent's conversation per memory id when set. Entries
	// are keyed by agent name and memory id, so agents may share a store.
	Memory core.ChatMemoryStore
	// ContextProvider prefixes the prompt with context derived from the
	// blackboard registered under the call's memory id in Registry.
	ContextProvider ContextProvider
	// Registry defaults to session.Default().
	Registry *session.Registry
	Stream   bool
	Logger   logging.Logger
}

// ModelAgent is a leaf agent answering through a language model. Its prompt
// is rendered from the bound arguments; with a memory store it keeps one
// conversation per memory id and exposes it through core.MemoryAccessor.
type ModelAgent struct {
	llm             model.Model
	spec            binding.Specification
	instruction     Instruction
	prompt          string
	outputName      string
	result          binding.Kind
	memory          core.ChatMemoryStore
	contextProvider ContextProvider
	registry        *session.Registry
	stream          bool
	logger          logging.Logger
}

var (
	_ Agent               = (*ModelAgent)(nil)
	_ OutputNamer         = (*ModelAgent)(nil)
	_ core.MemoryAccessor = (*ModelAgent)(nil)
)

// NewModelAgent creates a model-backed agent. It fails with core.ErrBinding
// when a parameter cannot be bound.
func NewModelAgent(name string, llm model.Model, optFns ...func(o *ModelAgentOptions)) (*ModelAgent, error) {
	opts := ModelAgentOptions{
		Parameters: []binding.Parameter{{}},
		Logger:     logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Operation == "" {
		opts.Operation = name
	}
	if opts.Registry == nil {
		opts.Registry = session.Default()
	}

	spec, err := binding.New(binding.Declaration{
		Operation:   opts.Operation,
		Name:        name,
		Description: opts.Description,
		Parameters:  opts.Parameters,
	})
	if err != nil {
		return nil, err
	}

	return &ModelAgent{
		llm:             llm,
		spec:            spec,
		instruction:     opts.Instruction,
		prompt:          opts.Prompt,
		outputName:      opts.OutputName,
		result:          opts.Result,
		memory:          opts.Memory,
		contextProvider: opts.ContextProvider,
		registry:        opts.Registry,
		stream:          opts.Stream,
		logger:          opts.Logger,
	}, nil
}

// Name returns the agent name.
func (a *ModelAgent) Name() string { return a.spec.Name() }

// Description returns the agent description.
func (a *ModelAgent) Description() string { return a.spec.Description() }

// OutputName implements OutputNamer.
func (a *ModelAgent) OutputName() string { return a.outputName }

// Model returns the underlying language model.
func (a *ModelAgent) Model() model.Model { return a.llm }

// Specifications implements Agent.
func (a *ModelAgent) Specifications() []binding.Specification {
	return []binding.Specification{a.spec}
}

// Call implements Agent.
func (a *ModelAgent) Call(ctx context.Context, operation string, args []any) (any, error) {
	if operation != a.spec.Operation() {
		return nil, fmt.Errorf("%w: %s has no operation %q", core.ErrUnsupportedOperation, a.spec.Name(), operation)
	}

	params := a.spec.Parameters()
	if len(args) != len(params) {
		return nil, fmt.Errorf("%s: expected %d arguments, got %d", a.spec.Name(), len(params), len(args))
	}

	memoryID := core.DefaultID
	vars := make(map[string]any, len(args))
	var values []any
	names := a.spec.ArgumentNames()
	n := 0
	for i, p := range params {
		if p.SessionID {
			if args[i] != nil {
				memoryID = fmt.Sprint(args[i])
			}
			continue
		}
		vars[names[n]] = args[i]
		values = append(values, args[i])
		n++
	}
	// Single-argument prompts may refer to the value as {{it}}.
	if len(values) == 1 {
		if _, ok := vars["it"]; !ok {
			vars["it"] = values[0]
		}
	}

	userText, err := a.userMessage(vars, values)
	if err != nil {
		return nil, fmt.Errorf("%s: rendering prompt: %w", a.spec.Name(), err)
	}
	if a.contextProvider != nil {
		if bb, ok := a.registry.Get(memoryID); ok {
			userText = "Considering this context \"" + a.contextProvider(bb) + "\"\n" + userText
		}
	}

	system, err := a.instruction.Resolve(ctx, vars)
	if err != nil {
		return nil, fmt.Errorf("%s: resolving instruction: %w", a.spec.Name(), err)
	}

	var history []core.Message
	if a.memory != nil {
		history, err = a.memory.Messages(ctx, a.memoryKey(memoryID))
		if err != nil {
			return nil, fmt.Errorf("%s: loading memory: %w", a.spec.Name(), err)
		}
	}

	user := core.UserMessage(userText)
	req := model.Request{
		Instructions: system,
		Messages:     append(history, user),
		Stream:       a.stream,
	}

	start := time.Now()
	text, err := model.Collect(ctx, a.llm, req)
	if err != nil {
		a.logger.Warn("model call failed", "agent", a.spec.Name(), "model", a.llm.Info().Name, "error", err)
		return nil, err
	}
	a.logger.Debug("model call completed", "agent", a.spec.Name(), "model", a.llm.Info().Name, "duration", time.Since(start))

	if a.memory != nil {
		if err := a.memory.Add(ctx, a.memoryKey(memoryID), user, core.AIMessage(text)); err != nil {
			return nil, fmt.Errorf("%s: saving memory: %w", a.spec.Name(), err)
		}
	}

	return a.convert(text)
}

func (a *ModelAgent) userMessage(vars map[string]any, values []any) (string, error) {
	if a.prompt != "" {
		return prompt.Render(a.prompt, vars)
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, "\n"), nil
}

func (a *ModelAgent) convert(text string) (any, error) {
	if a.result == binding.KindAny || a.result == binding.KindString {
		return text, nil
	}
	v, err := binding.Coerce(strings.TrimSpace(text), a.result)
	if err != nil {
		return nil, fmt.Errorf("%s: result: %w", a.spec.Name(), err)
	}
	return v, nil
}

// ChatMemory implements core.MemoryAccessor.
func (a *ModelAgent) ChatMemory(ctx context.Context, sessionID string) ([]core.Message, error) {
	if a.memory == nil {
		return nil, nil
	}
	return a.memory.Messages(ctx, a.memoryKey(sessionID))
}

// EvictChatMemory implements core.MemoryAccessor.
func (a *ModelAgent) EvictChatMemory(ctx context.Context, sessionID string) (bool, error) {
	if a.memory == nil {
		return false, nil
	}
	return a.memory.Evict(ctx, a.memoryKey(sessionID))
}

func (a *ModelAgent) memoryKey(memoryID string) string {
	return a.spec.Name() + ":" + memoryID
}

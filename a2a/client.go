package a2a

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	protocol "github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2aclient"
	"github.com/a2aproject/a2a-go/a2aclient/agentcard"
	"github.com/hupe1980/cognisphere/agent"
	"github.com/hupe1980/cognisphere/binding"
	"github.com/hupe1980/cognisphere/core"
	"github.com/hupe1980/cognisphere/logging"
)

// ErrTaskNotCompleted is returned when the remote agent ends a task in a
// failed, rejected or canceled state.
var ErrTaskNotCompleted = errors.New("remote task not completed")

// ClientAgentOptions configures a ClientAgent.
type ClientAgentOptions struct {
	// Name overrides the name advertised by the agent card.
	Name string
	// Description overrides the description advertised by the agent card.
	Description string
	// Operation defaults to the agent name.
	Operation string
	// InputNames are the blackboard keys sent to the remote agent. Defaults
	// to a single argument bound to "request".
	InputNames []string
	// SessionID adds a leading session-id parameter whose value becomes the
	// A2A context id, so one session maps onto one remote conversation.
	SessionID  bool
	OutputName string
	HTTPClient *http.Client
	Logger     logging.Logger
}

// ClientAgent is a leaf agent answering through a remote A2A server.
type ClientAgent struct {
	card       *protocol.AgentCard
	client     *a2aclient.Client
	spec       binding.Specification
	outputName string
	logger     logging.Logger
}

var (
	_ agent.Agent       = (*ClientAgent)(nil)
	_ agent.OutputNamer = (*ClientAgent)(nil)
)

// NewClientAgent resolves the agent card published under serverURL and
// connects to the agent it describes.
func NewClientAgent(ctx context.Context, serverURL string, optFns ...func(o *ClientAgentOptions)) (*ClientAgent, error) {
	opts := ClientAgentOptions{
		HTTPClient: &http.Client{Timeout: 2 * time.Minute},
		Logger:     logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	resolver := &agentcard.Resolver{Client: opts.HTTPClient}
	card, err := resolver.Resolve(ctx, serverURL)
	if err != nil {
		return nil, fmt.Errorf("resolving agent card of %s: %w", serverURL, err)
	}

	return newClientAgent(ctx, card, opts)
}

// NewClientAgentFromCard connects to the agent described by card.
func NewClientAgentFromCard(ctx context.Context, card *protocol.AgentCard, optFns ...func(o *ClientAgentOptions)) (*ClientAgent, error) {
	opts := ClientAgentOptions{
		HTTPClient: &http.Client{Timeout: 2 * time.Minute},
		Logger:     logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return newClientAgent(ctx, card, opts)
}

func newClientAgent(ctx context.Context, card *protocol.AgentCard, opts ClientAgentOptions) (*ClientAgent, error) {
	name := opts.Name
	if name == "" {
		name = card.Name
	}
	if name == "" {
		return nil, fmt.Errorf("%w: remote agent at %s has no name", core.ErrBinding, card.URL)
	}
	description := opts.Description
	if description == "" {
		description = card.Description
	}
	operation := opts.Operation
	if operation == "" {
		operation = name
	}

	var params []binding.Parameter
	if opts.SessionID {
		params = append(params, binding.Parameter{Ident: "sessionId", SessionID: true})
	}
	for _, in := range opts.InputNames {
		params = append(params, binding.Parameter{Binding: in})
	}
	if len(opts.InputNames) == 0 {
		params = append(params, binding.Parameter{})
	}

	spec, err := binding.New(binding.Declaration{
		Operation:   operation,
		Name:        name,
		Description: description,
		Parameters:  params,
	})
	if err != nil {
		return nil, err
	}

	client, err := a2aclient.NewFromCard(ctx, card, a2aclient.WithJSONRPCTransport(opts.HTTPClient))
	if err != nil {
		return nil, fmt.Errorf("connecting to remote agent %s: %w", name, err)
	}

	return &ClientAgent{
		card:       card,
		client:     client,
		spec:       spec,
		outputName: opts.OutputName,
		logger:     opts.Logger,
	}, nil
}

// Name returns the agent name.
func (a *ClientAgent) Name() string { return a.spec.Name() }

// Card returns the resolved agent card.
func (a *ClientAgent) Card() *protocol.AgentCard { return a.card }

// OutputName implements agent.OutputNamer.
func (a *ClientAgent) OutputName() string { return a.outputName }

// Specifications implements agent.Agent.
func (a *ClientAgent) Specifications() []binding.Specification {
	return []binding.Specification{a.spec}
}

// Close releases the underlying A2A client.
func (a *ClientAgent) Close() error { return a.client.Destroy() }

// Call implements agent.Agent.
func (a *ClientAgent) Call(ctx context.Context, operation string, args []any) (any, error) {
	if operation != a.spec.Operation() {
		return nil, fmt.Errorf("%w: %s has no operation %q", core.ErrUnsupportedOperation, a.spec.Name(), operation)
	}
	params := a.spec.Parameters()
	if len(args) != len(params) {
		return nil, fmt.Errorf("%s: expected %d arguments, got %d", a.spec.Name(), len(params), len(args))
	}

	var contextID string
	parts := make([]protocol.Part, 0, len(args))
	for i, p := range params {
		if p.SessionID {
			if args[i] != nil {
				contextID = fmt.Sprint(args[i])
			}
			continue
		}
		parts = append(parts, protocol.TextPart{Text: fmt.Sprint(args[i])})
	}

	msg := protocol.NewMessage(protocol.MessageRoleUser, parts...)
	msg.ContextID = contextID

	start := time.Now()
	res, err := a.client.SendMessage(ctx, &protocol.MessageSendParams{Message: msg})
	if err != nil {
		a.logger.Warn("remote agent call failed", "agent", a.spec.Name(), "url", a.card.URL, "error", err)
		return nil, fmt.Errorf("%s: sending message: %w", a.spec.Name(), err)
	}
	a.logger.Debug("remote agent call completed", "agent", a.spec.Name(), "url", a.card.URL, "duration", time.Since(start))

	return resultText(res)
}

func resultText(res protocol.SendMessageResult) (string, error) {
	switch r := res.(type) {
	case *protocol.Message:
		return partsText(r.Parts), nil
	case *protocol.Task:
		switch r.Status.State {
		case protocol.TaskStateFailed, protocol.TaskStateRejected, protocol.TaskStateCanceled:
			reason := ""
			if r.Status.Message != nil {
				reason = partsText(r.Status.Message.Parts)
			}
			return "", fmt.Errorf("%w: task %s is %s: %s", ErrTaskNotCompleted, r.ID, r.Status.State, reason)
		}
		var texts []string
		for _, art := range r.Artifacts {
			if t := partsText(art.Parts); t != "" {
				texts = append(texts, t)
			}
		}
		if len(texts) == 0 && r.Status.Message != nil {
			return partsText(r.Status.Message.Parts), nil
		}
		return strings.Join(texts, "\n"), nil
	default:
		return "", fmt.Errorf("unexpected A2A result %T", res)
	}
}

func partsText(parts []protocol.Part) string {
	var texts []string
	for _, p := range parts {
		switch x := p.(type) {
		case protocol.TextPart:
			texts = append(texts, x.Text)
		case protocol.DataPart:
			if b, err := json.Marshal(x.Data); err == nil {
				texts = append(texts, string(b))
			}
		}
	}
	return strings.Join(texts, "\n")
}

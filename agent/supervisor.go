package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hupe1980/cognisphere/core"
	"github.com/hupe1980/cognisphere/logging"
	"github.com/hupe1980/cognisphere/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

const (
	// KindSupervisor identifies the Supervisor strategy.
	KindSupervisor = "supervisor"

	// DoneAgentName is the pseudo agent a planner names to finish.
	DoneAgentName = "done"

	// ResponseArgument carries the candidate final answer of a done decision.
	ResponseArgument = "response"

	// RequestKey is the state entry the supervisor reads its request from.
	RequestKey = "request"

	// DefaultMaxAgentsInvocations bounds planner rounds when not configured.
	DefaultMaxAgentsInvocations = 5
)

// Decision is the planner's next step: an agent to invoke with the state
// entries to write first, or the done sentinel.
type Decision struct {
	AgentName string         `json:"agentName"`
	Arguments map[string]any `json:"arguments"`
}

// Done reports whether the decision ends the supervision loop.
func (d Decision) Done() bool { return strings.EqualFold(d.AgentName, DoneAgentName) }

// Response returns the candidate final answer of a done decision.
func (d Decision) Response() (string, bool) {
	v, ok := d.Arguments[ResponseArgument]
	if !ok || v == nil {
		return "", false
	}
	return fmt.Sprint(v), true
}

// Planner decides the next step of a supervision loop. Implementations keep
// a chat history per planning session.
type Planner interface {
	// Plan returns the next decision given the catalog of eligible agents
	// (their cards joined by ", "), the original request and the last
	// sub-agent response.
	Plan(ctx context.Context, sessionID, catalog, request, lastResponse string) (Decision, error)
	// Remember appends messages to the planning session history.
	Remember(ctx context.Context, sessionID string, msgs ...core.Message) error
	// Forget discards the planning session.
	Forget(ctx context.Context, sessionID string) error
}

// Scores rates two candidate responses to the same request.
type Scores struct {
	Score1 float64 `json:"score1"`
	Score2 float64 `json:"score2"`
}

// Scorer compares two responses to a request.
type Scorer interface {
	Score(ctx context.Context, request, response1, response2 string) (Scores, error)
}

// SupervisorOptions configures a Supervisor.
type SupervisorOptions struct {
	// MaxAgentsInvocations bounds the number of planning rounds.
	MaxAgentsInvocations int
	// OutputName receives the final response when set.
	OutputName string
	Logger     logging.Logger
}

// Supervisor lets a planner pick, round after round, which sub-agent to run
// next until it declares the work done or the round bound is reached. Only
// sub-agents with a description are visible to the planner; of several with
// the same name the first one wins.
type Supervisor struct {
	planner        Planner
	scorer         Scorer
	agents         map[string]*Executor
	catalog        string
	maxInvocations int
	outputName     string
	logger         logging.Logger
}

var _ Strategy = (*Supervisor)(nil)

// NewSupervisor creates a supervisor strategy over executors.
func NewSupervisor(planner Planner, scorer Scorer, executors []*Executor, optFns ...func(o *SupervisorOptions)) *Supervisor {
	opts := SupervisorOptions{
		MaxAgentsInvocations: DefaultMaxAgentsInvocations,
		Logger:               logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxAgentsInvocations <= 0 {
		opts.MaxAgentsInvocations = DefaultMaxAgentsInvocations
	}

	agents := make(map[string]*Executor)
	var cards []string
	for _, e := range executors {
		if e.Specification().Description() == "" {
			continue
		}
		if _, dup := agents[e.Name()]; dup {
			opts.Logger.Warn("ignoring duplicate supervised agent", "agent", e.Name())
			continue
		}
		agents[e.Name()] = e
		cards = append(cards, e.Specification().Card())
	}

	return &Supervisor{
		planner:        planner,
		scorer:         scorer,
		agents:         agents,
		catalog:        strings.Join(cards, ", "),
		maxInvocations: opts.MaxAgentsInvocations,
		outputName:     opts.OutputName,
		logger:         opts.Logger,
	}
}

// Kind implements Strategy.
func (s *Supervisor) Kind() string { return KindSupervisor }

// Catalog returns the planner-facing list of eligible agents.
func (s *Supervisor) Catalog() string { return s.catalog }

// Run implements Strategy. The result is the last accepted response.
func (s *Supervisor) Run(ctx context.Context, bb *core.Blackboard) (any, error) {
	request := ""
	if v, ok := bb.ReadState(RequestKey); ok && v != nil {
		request = fmt.Sprint(v)
	}

	sessionID := uuid.NewString()
	defer func() {
		if err := s.planner.Forget(context.WithoutCancel(ctx), sessionID); err != nil {
			s.logger.Warn("discarding planner session failed", "planner_session", sessionID, "error", err)
		}
	}()

	lastResponse := ""
	for i := 0; i < s.maxInvocations; i++ {
		decision, err := s.planner.Plan(ctx, sessionID, s.catalog, request, lastResponse)
		if err != nil {
			return nil, fmt.Errorf("planning round %d: %w", i+1, err)
		}
		s.logger.Debug("planner decision", "round", i+1, "agent", decision.AgentName, "arguments", decision.Arguments)
		telemetry.AddEvent(ctx, "supervisor.decision",
			attribute.Int(telemetry.AttrIteration, i),
			attribute.String(telemetry.AttrAgentName, decision.AgentName),
		)

		if decision.Done() {
			if candidate, ok := decision.Response(); ok {
				scores, err := s.scorer.Score(ctx, request, lastResponse, candidate)
				if err != nil {
					return nil, fmt.Errorf("scoring final response: %w", err)
				}
				s.logger.Debug("scored final response", "last_response_score", scores.Score1, "candidate_score", scores.Score2)
				if scores.Score2 > scores.Score1 {
					lastResponse = candidate
				}
			}
			break
		}

		e, ok := s.agents[decision.AgentName]
		if !ok {
			return nil, fmt.Errorf("%w: No agent found with name: %s", core.ErrUnknownAgent, decision.AgentName)
		}

		bb.WriteStates(decision.Arguments)
		result, err := e.Invoke(ctx, bb)
		if err != nil {
			return nil, err
		}
		lastResponse = responseText(result)

		if err := s.planner.Remember(ctx, sessionID, bb.LastInteractionMessages()...); err != nil {
			return nil, fmt.Errorf("recording interaction of %s: %w", e.Name(), err)
		}
	}

	if s.outputName != "" {
		bb.WriteState(s.outputName, lastResponse)
	}
	return lastResponse, nil
}

func responseText(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// SupervisorOf composes subAgents under a planner-driven supervisor façade.
// The façade's output name also receives the final response.
func SupervisorOf(planner Planner, scorer Scorer, subAgents []Agent, sup SupervisorOptions, optFns ...func(o *FacadeOptions)) (*Facade, error) {
	opts := facadeOptions(optFns)
	strategy := NewSupervisor(planner, scorer, NewExecutors(subAgents, opts.executorOptions), func(o *SupervisorOptions) {
		if sup.MaxAgentsInvocations > 0 {
			o.MaxAgentsInvocations = sup.MaxAgentsInvocations
		}
		o.OutputName = opts.OutputName
		if sup.OutputName != "" {
			o.OutputName = sup.OutputName
		}
		o.Logger = opts.Logger
		if sup.Logger != nil {
			o.Logger = sup.Logger
		}
	})
	return newFacade(strategy, opts)
}

package declarative

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/hupe1980/cognisphere/a2a"
	"github.com/hupe1980/cognisphere/agent"
	"github.com/hupe1980/cognisphere/binding"
	"github.com/hupe1980/cognisphere/core"
	"github.com/hupe1980/cognisphere/logging"
	"github.com/hupe1980/cognisphere/memory"
	"github.com/hupe1980/cognisphere/model"
	"github.com/hupe1980/cognisphere/session"
	"github.com/hupe1980/cognisphere/telemetry"
)

// ErrInvalidDefinition is returned for workflow definitions that cannot be
// compiled.
var ErrInvalidDefinition = errors.New("invalid workflow definition")

// Environment supplies the collaborators compiled agents are wired to.
type Environment struct {
	// Model backs model agents and the default planner and scorer.
	Model model.Model
	// Memory is the chat memory of agents declared with memory: true.
	// Defaults to an in-memory store.
	Memory  core.ChatMemoryStore
	Planner agent.Planner
	Scorer  agent.Scorer
	// Funcs resolves func agents by their func name.
	Funcs map[string]agent.Func
	// HTTPClient reaches the servers of a2a agents.
	HTTPClient  *http.Client
	Registry    *session.Registry
	Logger      logging.Logger
	Instruments *telemetry.Instruments
}

// Workflow is a compiled Definition.
type Workflow struct {
	name     string
	entry    string
	agents   map[string]agent.Agent
	defs     map[string]AgentDef
	registry *session.Registry
}

// Compile turns def into agents. Sub-agents must be declared in the same
// definition; cycles are rejected.
func Compile(def *Definition, optFns ...func(o *Environment)) (*Workflow, error) {
	env := Environment{
		Registry:    session.NewRegistry(),
		Logger:      logging.NoOpLogger{},
		Instruments: telemetry.Default(),
	}
	for _, fn := range optFns {
		fn(&env)
	}
	if env.Memory == nil {
		env.Memory = memory.NewInMemoryStore()
	}

	if len(def.Agents) == 0 {
		return nil, fmt.Errorf("%w: no agents declared", ErrInvalidDefinition)
	}

	c := &compiler{
		env:     env,
		defs:    make(map[string]AgentDef, len(def.Agents)),
		agents:  make(map[string]agent.Agent, len(def.Agents)),
		visited: map[string]bool{},
	}
	for _, d := range def.Agents {
		if d.Name == "" {
			return nil, fmt.Errorf("%w: agent without name", ErrInvalidDefinition)
		}
		if _, dup := c.defs[d.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate agent %s", ErrInvalidDefinition, d.Name)
		}
		c.defs[d.Name] = d
	}

	for _, d := range def.Agents {
		if _, err := c.build(d.Name); err != nil {
			return nil, err
		}
	}

	entry := def.Entry
	if entry == "" {
		entry = def.Agents[len(def.Agents)-1].Name
	}
	if _, ok := c.agents[entry]; !ok {
		return nil, fmt.Errorf("%w: unknown entry agent %s", ErrInvalidDefinition, entry)
	}

	return &Workflow{
		name:     def.Name,
		entry:    entry,
		agents:   c.agents,
		defs:     c.defs,
		registry: env.Registry,
	}, nil
}

// Name returns the workflow name.
func (w *Workflow) Name() string { return w.name }

// Entry returns the agent callers invoke.
func (w *Workflow) Entry() agent.Agent { return w.agents[w.entry] }

// EntryName returns the name of the entry agent.
func (w *Workflow) EntryName() string { return w.entry }

// Agent returns the named agent.
func (w *Workflow) Agent(name string) (agent.Agent, bool) {
	a, ok := w.agents[name]
	return a, ok
}

// Registry returns the session registry shared by the workflow's agents.
func (w *Workflow) Registry() *session.Registry { return w.registry }

// Names returns the agent names in sorted order.
func (w *Workflow) Names() []string {
	names := make([]string, 0, len(w.agents))
	for n := range w.agents {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Summary describes one compiled agent.
type Summary struct {
	Name      string   `yaml:"name"`
	Type      string   `yaml:"type"`
	Cards     []string `yaml:"cards"`
	Output    string   `yaml:"output,omitempty"`
	SubAgents []string `yaml:"subagents,omitempty"`
	Entry     bool     `yaml:"entry,omitempty"`
}

// Summaries describes every agent, sorted by name.
func (w *Workflow) Summaries() []Summary {
	out := make([]Summary, 0, len(w.agents))
	for _, name := range w.Names() {
		a := w.agents[name]
		d := w.defs[name]
		s := Summary{
			Name:      name,
			Type:      d.Type,
			Output:    d.Output,
			SubAgents: d.references(),
			Entry:     name == w.entry,
		}
		for _, spec := range a.Specifications() {
			s.Cards = append(s.Cards, spec.Card())
		}
		out = append(out, s)
	}
	return out
}

type compiler struct {
	env     Environment
	defs    map[string]AgentDef
	agents  map[string]agent.Agent
	visited map[string]bool // true while on the current path
}

func (c *compiler) build(name string) (agent.Agent, error) {
	if a, ok := c.agents[name]; ok {
		return a, nil
	}
	d, ok := c.defs[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown agent %s", ErrInvalidDefinition, name)
	}
	if c.visited[name] {
		return nil, fmt.Errorf("%w: cycle through agent %s", ErrInvalidDefinition, name)
	}
	c.visited[name] = true
	defer delete(c.visited, name)

	a, err := c.compile(d)
	if err != nil {
		return nil, err
	}
	c.agents[name] = a
	return a, nil
}

func (c *compiler) resolve(names []string) ([]agent.Agent, error) {
	out := make([]agent.Agent, 0, len(names))
	for _, n := range names {
		a, err := c.build(n)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (c *compiler) compile(d AgentDef) (agent.Agent, error) {
	params, err := d.parameters()
	if err != nil {
		return nil, err
	}

	switch d.Type {
	case TypeModel:
		return c.modelAgent(d, params)
	case TypeFunc:
		return c.funcAgent(d, params)
	case TypeA2A:
		return c.remoteAgent(d)
	case TypeSequence, TypeLoop, TypeConditional, TypeSupervisor:
		return c.composed(d, params)
	default:
		return nil, fmt.Errorf("%w: agent %s has unknown type %q", ErrInvalidDefinition, d.Name, d.Type)
	}
}

func (c *compiler) modelAgent(d AgentDef, params []binding.Parameter) (agent.Agent, error) {
	if c.env.Model == nil {
		return nil, fmt.Errorf("%w: model agent %s requires a model", ErrInvalidDefinition, d.Name)
	}
	result, err := binding.ParseKind(d.Result)
	if err != nil {
		return nil, fmt.Errorf("agent %s result: %w", d.Name, err)
	}
	if len(d.Parameters) == 0 {
		params = append(params, binding.Parameter{})
	}

	var contextProvider agent.ContextProvider
	switch d.Context {
	case "":
	case "conversation":
		contextProvider = agent.ConversationContext
	default:
		return nil, fmt.Errorf("%w: agent %s has unknown context %q", ErrInvalidDefinition, d.Name, d.Context)
	}

	return agent.NewModelAgent(d.Name, c.env.Model, func(o *agent.ModelAgentOptions) {
		o.Operation = d.Operation
		o.Description = d.Description
		o.Instruction = agent.NewInstructionFromText(d.Instruction)
		o.Prompt = d.Prompt
		o.Parameters = params
		o.OutputName = d.Output
		o.Result = result
		if d.Memory {
			o.Memory = c.env.Memory
		}
		o.ContextProvider = contextProvider
		o.Registry = c.env.Registry
		o.Logger = c.env.Logger
	})
}

func (c *compiler) funcAgent(d AgentDef, params []binding.Parameter) (agent.Agent, error) {
	key := d.Func
	if key == "" {
		key = d.Name
	}
	fn, ok := c.env.Funcs[key]
	if !ok {
		return nil, fmt.Errorf("%w: func agent %s: no func registered as %q", ErrInvalidDefinition, d.Name, key)
	}
	op := d.Operation
	if op == "" {
		op = d.Name
	}
	return agent.NewFuncAgent(binding.Declaration{
		Operation:   op,
		Name:        d.Name,
		Description: d.Description,
		Parameters:  params,
	}, fn, func(o *agent.FuncAgentOptions) { o.OutputName = d.Output })
}

func (c *compiler) remoteAgent(d AgentDef) (agent.Agent, error) {
	if d.URL == "" {
		return nil, fmt.Errorf("%w: a2a agent %s requires a url", ErrInvalidDefinition, d.Name)
	}
	a, err := a2a.NewClientAgent(context.Background(), d.URL, func(o *a2a.ClientAgentOptions) {
		o.Name = d.Name
		o.Description = d.Description
		o.Operation = d.Operation
		o.InputNames = d.inputNames()
		o.SessionID = d.Session
		o.OutputName = d.Output
		if c.env.HTTPClient != nil {
			o.HTTPClient = c.env.HTTPClient
		}
		o.Logger = c.env.Logger
	})
	if err != nil {
		return nil, fmt.Errorf("a2a agent %s: %w", d.Name, err)
	}
	return a, nil
}

func (c *compiler) composed(d AgentDef, params []binding.Parameter) (agent.Agent, error) {
	facadeOpts := func(o *agent.FacadeOptions) {
		o.Name = d.Name
		o.Description = d.Description
		o.OutputName = d.Output
		o.Registry = c.env.Registry
		o.Logger = c.env.Logger
		o.Instruments = c.env.Instruments
		if len(params) > 0 {
			op := d.Operation
			if op == "" {
				op = agent.DefaultOperation
			}
			o.Operations = []binding.Declaration{{Operation: op, Parameters: params}}
		}
	}

	switch d.Type {
	case TypeSequence:
		subs, err := c.resolve(d.SubAgents)
		if err != nil {
			return nil, err
		}
		return agent.SequenceOf(subs, facadeOpts)

	case TypeLoop:
		subs, err := c.resolve(d.SubAgents)
		if err != nil {
			return nil, err
		}
		maxIterations := DefaultMaxIterations
		if d.MaxIterations != nil {
			maxIterations = *d.MaxIterations
		}
		if maxIterations < 0 {
			return nil, fmt.Errorf("%w: agent %s: negative maxiterations", ErrInvalidDefinition, d.Name)
		}
		var exit agent.Condition
		if d.Condition != "" {
			cond, err := ParseCondition(d.Condition)
			if err != nil {
				return nil, fmt.Errorf("%w: agent %s: %v", ErrInvalidDefinition, d.Name, err)
			}
			exit = cond
		}
		return agent.LoopOf(subs, func(o *agent.LoopOptions) {
			o.MaxIterations = maxIterations
			o.ExitCondition = exit
		}, facadeOpts)

	case TypeConditional:
		branches := make([]agent.Branch, 0, len(d.Branches))
		for _, b := range d.Branches {
			subs, err := c.resolve(b.SubAgents)
			if err != nil {
				return nil, err
			}
			branch := agent.Branch{SubAgents: subs}
			if b.Condition != "" {
				cond, err := ParseCondition(b.Condition)
				if err != nil {
					return nil, fmt.Errorf("%w: agent %s: %v", ErrInvalidDefinition, d.Name, err)
				}
				branch.Condition = cond
			}
			branches = append(branches, branch)
		}
		return agent.ConditionalOf(branches, facadeOpts)

	default: // TypeSupervisor
		subs, err := c.resolve(d.SubAgents)
		if err != nil {
			return nil, err
		}
		planner, scorer, err := c.supervision()
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", d.Name, err)
		}
		return agent.SupervisorOf(planner, scorer, subs, agent.SupervisorOptions{
			MaxAgentsInvocations: d.MaxInvocations,
		}, facadeOpts)
	}
}

func (c *compiler) supervision() (agent.Planner, agent.Scorer, error) {
	planner, scorer := c.env.Planner, c.env.Scorer
	if (planner == nil || scorer == nil) && c.env.Model == nil {
		return nil, nil, fmt.Errorf("%w: supervisor requires a model or a planner and scorer", ErrInvalidDefinition)
	}
	if planner == nil {
		p, err := agent.NewModelPlanner(c.env.Model, func(o *agent.ModelPlannerOptions) { o.Logger = c.env.Logger })
		if err != nil {
			return nil, nil, err
		}
		planner = p
		c.env.Planner = p
	}
	if scorer == nil {
		s, err := agent.NewModelScorer(c.env.Model, func(o *agent.ModelScorerOptions) { o.Logger = c.env.Logger })
		if err != nil {
			return nil, nil, err
		}
		scorer = s
		c.env.Scorer = s
	}
	return planner, scorer, nil
}

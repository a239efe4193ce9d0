package declarative

import (
	"fmt"
	"strings"

	"github.com/hupe1980/cognisphere/binding"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Agent types understood by Compile.
const (
	TypeModel       = "model"
	TypeFunc        = "func"
	TypeSequence    = "sequence"
	TypeLoop        = "loop"
	TypeConditional = "conditional"
	TypeSupervisor  = "supervisor"
	TypeA2A         = "a2a"
)

// DefaultMaxIterations bounds declarative loops that set no maxiterations.
const DefaultMaxIterations = 10

// SessionParameter is the identifier of the session-id parameter added to
// agents declared with session: true.
const SessionParameter = "memoryId"

// Definition is a workflow file: a set of named agents and the entry agent
// callers invoke.
type Definition struct {
	Name string `koanf:"name"`
	// Entry names the agent returned by Workflow.Entry. Defaults to the last
	// declared agent.
	Entry  string     `koanf:"entry"`
	Agents []AgentDef `koanf:"agents"`
}

// AgentDef declares one agent. Which fields apply depends on Type.
type AgentDef struct {
	Name        string `koanf:"name"`
	Type        string `koanf:"type"`
	Description string `koanf:"description"`
	Operation   string `koanf:"operation"`
	// Parameters are "key" or "key:kind" entries, e.g. "score:float64".
	Parameters []string `koanf:"parameters"`
	// Session prepends a session-id parameter.
	Session bool   `koanf:"session"`
	Output  string `koanf:"output"`

	// model
	Instruction string `koanf:"instruction"`
	Prompt      string `koanf:"prompt"`
	Result      string `koanf:"result"`
	Memory      bool   `koanf:"memory"`
	Context     string `koanf:"context"` // conversation

	// func
	Func string `koanf:"func"`

	// a2a; the server publishing the remote agent card
	URL string `koanf:"url"`

	// sequence, loop, supervisor
	SubAgents []string `koanf:"subagents"`

	// loop; nil means DefaultMaxIterations
	MaxIterations *int   `koanf:"maxiterations"`
	Condition     string `koanf:"condition"`

	// conditional
	Branches []BranchDef `koanf:"branches"`

	// supervisor
	MaxInvocations int `koanf:"maxinvocations"`
}

// BranchDef is one guarded branch of a conditional agent. An empty
// condition always holds.
type BranchDef struct {
	Condition string   `koanf:"condition"`
	SubAgents []string `koanf:"subagents"`
}

// Load reads a YAML workflow file.
func Load(path string) (*Definition, error) {
	return load(file.Provider(path))
}

// Parse reads a YAML workflow document.
func Parse(data []byte) (*Definition, error) {
	return load(rawbytes.Provider(data))
}

func load(p koanf.Provider) (*Definition, error) {
	k := koanf.New(".")
	if err := k.Load(p, yaml.Parser()); err != nil {
		return nil, fmt.Errorf("loading workflow: %w", err)
	}

	var def Definition
	if err := k.Unmarshal("", &def); err != nil {
		return nil, fmt.Errorf("decoding workflow: %w", err)
	}
	return &def, nil
}

// parameters converts "key[:kind]" entries into binding parameters.
func (d AgentDef) parameters() ([]binding.Parameter, error) {
	var params []binding.Parameter
	if d.Session {
		params = append(params, binding.Parameter{Ident: SessionParameter, SessionID: true})
	}
	for _, raw := range d.Parameters {
		name, kindName, _ := strings.Cut(raw, ":")
		kind, err := binding.ParseKind(kindName)
		if err != nil {
			return nil, fmt.Errorf("agent %s parameter %q: %w", d.Name, raw, err)
		}
		params = append(params, binding.Parameter{Binding: strings.TrimSpace(name), Kind: kind})
	}
	return params, nil
}

// inputNames returns the bound keys of the declared parameters.
func (d AgentDef) inputNames() []string {
	names := make([]string, 0, len(d.Parameters))
	for _, raw := range d.Parameters {
		name, _, _ := strings.Cut(raw, ":")
		names = append(names, strings.TrimSpace(name))
	}
	return names
}

// references returns the agents d is composed of.
func (d AgentDef) references() []string {
	refs := append([]string(nil), d.SubAgents...)
	for _, b := range d.Branches {
		refs = append(refs, b.SubAgents...)
	}
	return refs
}

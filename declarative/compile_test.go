package declarative

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hupe1980/cognisphere/agent"
	"github.com/hupe1980/cognisphere/core"
	"github.com/hupe1980/cognisphere/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const storyWorkflow = `
name: story
entry: writer
agents:
  - name: creative
    type: model
    description: Writes a story about a topic
    parameters: [topic]
    prompt: "Write a short story about {{topic}}."
    output: story
  - name: editor
    type: model
    description: Rewrites a story in a style
    parameters: [story, style]
    prompt: "Rewrite this story in a {{style}} style: {{story}}"
    output: story
  - name: writer
    type: sequence
    subagents: [creative, editor]
    output: story
`

func TestParse(t *testing.T) {
	def, err := Parse([]byte(storyWorkflow))
	require.NoError(t, err)

	assert.Equal(t, "story", def.Name)
	assert.Equal(t, "writer", def.Entry)
	require.Len(t, def.Agents, 3)
	assert.Equal(t, []string{"story", "style"}, def.Agents[1].Parameters)
	assert.Equal(t, []string{"creative", "editor"}, def.Agents[2].SubAgents)

	_, err = Parse([]byte("agents: ["))
	assert.ErrorContains(t, err, "loading workflow")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "story.yaml")
	require.NoError(t, os.WriteFile(path, []byte(storyWorkflow), 0o644))

	def, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, def.Agents, 3)

	_, err = Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestCompile_Sequence(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	llm.AddResponse("Write a short story about dragons.", "A dragon slept.")
	llm.AddResponse("Rewrite this story in a comic style: A dragon slept.", "A dragon snored loudly.")

	wf := mustCompile(t, storyWorkflow, func(e *Environment) { e.Model = llm })

	assert.Equal(t, "writer", wf.EntryName())
	assert.Equal(t, []string{"creative", "editor", "writer"}, wf.Names())

	out, err := wf.Entry().Call(context.Background(), agent.DefaultOperation, []any{map[string]any{
		"topic": "dragons",
		"style": "comic",
	}})
	require.NoError(t, err)
	assert.Equal(t, "A dragon snored loudly.", out)
	assert.Len(t, llm.Requests(), 2)
}

func TestCompile_TypedCompositeWithSession(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	wf := mustCompile(t, `
agents:
  - name: creative
    type: model
    parameters: [topic]
    prompt: "Story about {{topic}}"
    output: story
  - name: writer
    type: sequence
    operation: write
    session: true
    parameters: [topic]
    subagents: [creative]
    output: story
`, func(e *Environment) { e.Model = llm })

	writer := wf.Entry()
	specs := writer.Specifications()
	require.Len(t, specs, 1)
	assert.Equal(t, "write", specs[0].Operation())
	assert.Equal(t, []string{"topic"}, specs[0].ArgumentNames())

	out, err := writer.Call(context.Background(), "write", []any{"s-1", "cats"})
	require.NoError(t, err)
	assert.Equal(t, "Mock response to: Story about cats", out)

	bb, ok := wf.Registry().Get("s-1")
	require.True(t, ok)
	assert.Equal(t, "cats", bb.ReadStateOr("topic", nil))
	assert.Len(t, bb.Invocations("creative"), 1)
}

func TestCompile_Loop(t *testing.T) {
	scores := []float64{0.4, 0.6, 0.85}
	var scored, edited int

	wf := mustCompile(t, `
agents:
  - name: scorer
    type: func
    parameters: [story]
    output: score
  - name: editor
    type: func
    parameters: [story]
    output: story
  - name: review
    type: loop
    subagents: [scorer, editor]
    maxiterations: 5
    condition: score >= 0.8
    output: story
`, func(e *Environment) {
		e.Funcs = map[string]agent.Func{
			"scorer": func(_ context.Context, _ []any) (any, error) {
				s := scores[scored]
				scored++
				return s, nil
			},
			"editor": func(_ context.Context, args []any) (any, error) {
				edited++
				return fmt.Sprintf("%v+", args[0]), nil
			},
		}
	})

	out, err := wf.Entry().Call(context.Background(), agent.DefaultOperation, []any{map[string]any{"story": "draft"}})
	require.NoError(t, err)
	assert.Equal(t, "draft++", out)
	assert.Equal(t, 3, scored)
	assert.Equal(t, 2, edited)
}

func TestCompile_LoopDefaultsMaxIterations(t *testing.T) {
	var calls int
	wf := mustCompile(t, `
agents:
  - name: step
    type: func
    func: counter
    output: n
  - name: repeat
    type: loop
    subagents: [step]
`, func(e *Environment) {
		e.Funcs = map[string]agent.Func{"counter": func(context.Context, []any) (any, error) {
			calls++
			return calls, nil
		}}
	})

	_, err := wf.Entry().Call(context.Background(), agent.DefaultOperation, []any{map[string]any{"request": "go"}})
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxIterations, calls)
}

func TestCompile_LoopZeroMaxIterations(t *testing.T) {
	var calls int
	wf := mustCompile(t, `
agents:
  - name: step
    type: func
    func: counter
  - name: repeat
    type: loop
    maxiterations: 0
    subagents: [step]
`, func(e *Environment) {
		e.Funcs = map[string]agent.Func{"counter": func(context.Context, []any) (any, error) {
			calls++
			return calls, nil
		}}
	})

	_, err := wf.Entry().Call(context.Background(), agent.DefaultOperation, []any{map[string]any{}})
	require.NoError(t, err)
	assert.Zero(t, calls)
}

func TestCompile_Conditional(t *testing.T) {
	var ran []string
	expert := func(name string) agent.Func {
		return func(context.Context, []any) (any, error) {
			ran = append(ran, name)
			return name + " answer", nil
		}
	}

	wf := mustCompile(t, `
agents:
  - name: router
    type: func
    output: category
  - name: legal
    type: func
    output: response
  - name: medical
    type: func
    output: response
  - name: experts
    type: conditional
    branches:
      - condition: category == 'legal'
        subagents: [legal]
      - condition: category == 'medical'
        subagents: [medical]
  - name: assistant
    type: sequence
    subagents: [router, experts]
    output: response
`, func(e *Environment) {
		e.Funcs = map[string]agent.Func{
			"router":  func(context.Context, []any) (any, error) { return "LEGAL", nil },
			"legal":   expert("legal"),
			"medical": expert("medical"),
		}
	})

	out, err := wf.Entry().Call(context.Background(), agent.DefaultOperation, []any{map[string]any{"request": "can I sue?"}})
	require.NoError(t, err)
	assert.Equal(t, "legal answer", out)
	assert.Equal(t, []string{"legal"}, ran)
}

type scriptedPlanner struct {
	decisions []agent.Decision
}

func (p *scriptedPlanner) Plan(context.Context, string, string, string, string) (agent.Decision, error) {
	d := p.decisions[0]
	p.decisions = p.decisions[1:]
	return d, nil
}

func (p *scriptedPlanner) Remember(context.Context, string, ...core.Message) error { return nil }

func (p *scriptedPlanner) Forget(context.Context, string) error { return nil }

type fixedScorer struct{ scores agent.Scores }

func (s fixedScorer) Score(context.Context, string, string, string) (agent.Scores, error) {
	return s.scores, nil
}

func TestCompile_Supervisor(t *testing.T) {
	planner := &scriptedPlanner{decisions: []agent.Decision{
		{AgentName: "withdraw", Arguments: map[string]any{"user": "Mario", "amount": "100"}},
		{AgentName: agent.DoneAgentName},
	}}

	wf := mustCompile(t, `
agents:
  - name: withdraw
    type: func
    description: Withdraws money from a user account
    parameters: ["user", "amount:float64"]
  - name: bank
    type: supervisor
    subagents: [withdraw]
    maxinvocations: 3
    output: answer
`, func(e *Environment) {
		e.Planner = planner
		e.Scorer = fixedScorer{}
		e.Funcs = map[string]agent.Func{"withdraw": func(_ context.Context, args []any) (any, error) {
			return fmt.Sprintf("%s withdrew %.0f", args[0], args[1]), nil
		}}
	})

	out, err := wf.Entry().Call(context.Background(), agent.DefaultOperation, []any{map[string]any{
		"request": "Withdraw 100 from Mario",
	}})
	require.NoError(t, err)
	assert.Equal(t, "Mario withdrew 100", out)
}

func TestCompile_SupervisorDefaultsToModelPlanner(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	_ = mustCompile(t, `
agents:
  - name: withdraw
    type: func
    description: Withdraws money
  - name: bank
    type: supervisor
    subagents: [withdraw]
`, func(e *Environment) {
		e.Model = llm
		e.Funcs = map[string]agent.Func{"withdraw": func(context.Context, []any) (any, error) { return "ok", nil }}
	})
}

// newRemoteEditor serves an A2A agent upper-casing the text it receives.
func newRemoteEditor(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	mux.HandleFunc("/.well-known/agent-card.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"name":               "Remote Editor",
			"description":        "Edits a story",
			"url":                srv.URL + "/rpc",
			"preferredTransport": "JSONRPC",
			"protocolVersion":    "0.3.0",
			"version":            "1.0.0",
			"capabilities":       map[string]any{},
			"defaultInputModes":  []string{"text"},
			"defaultOutputModes": []string{"text"},
			"skills":             []any{},
		})
	})
	mux.HandleFunc("/rpc", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     any `json:"id"`
			Params struct {
				Message struct {
					Parts []struct {
						Text string `json:"text"`
					} `json:"parts"`
				} `json:"message"`
			} `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		text := strings.ToUpper(req.Params.Message.Parts[0].Text)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]any{
				"kind":      "message",
				"messageId": "m-1",
				"role":      "agent",
				"parts":     []any{map[string]any{"kind": "text", "text": text}},
			},
		})
	})
	return srv
}

func TestCompile_A2A(t *testing.T) {
	srv := newRemoteEditor(t)

	wf := mustCompile(t, fmt.Sprintf(`
agents:
  - name: draft
    type: func
    parameters: [topic]
    output: story
  - name: editor
    type: a2a
    url: %s
    parameters: [story]
    output: story
  - name: writer
    type: sequence
    subagents: [draft, editor]
    output: story
`, srv.URL), func(e *Environment) {
		e.Funcs = map[string]agent.Func{"draft": func(_ context.Context, args []any) (any, error) {
			return "a story about " + args[0].(string), nil
		}}
	})

	editor, ok := wf.Agent("editor")
	require.True(t, ok)
	assert.Equal(t, "Edits a story", editor.Specifications()[0].Description())

	got, err := wf.Entry().Call(context.Background(), agent.DefaultOperation, []any{map[string]any{"topic": "dragons"}})
	require.NoError(t, err)
	assert.Equal(t, "A STORY ABOUT DRAGONS", got)
}

func TestCompile_Errors(t *testing.T) {
	noop := map[string]agent.Func{"f": func(context.Context, []any) (any, error) { return nil, nil }}

	tests := []struct {
		name string
		yaml string
	}{
		{"no agents", `name: empty`},
		{"unknown type", "agents:\n  - name: f\n    type: magic\n"},
		{"unknown sub-agent", "agents:\n  - name: s\n    type: sequence\n    subagents: [ghost]\n"},
		{"duplicate", "agents:\n  - name: f\n    type: func\n  - name: f\n    type: func\n"},
		{"cycle", "agents:\n  - name: a\n    type: sequence\n    subagents: [b]\n  - name: b\n    type: sequence\n    subagents: [a]\n"},
		{"unregistered func", "agents:\n  - name: g\n    type: func\n"},
		{"model without model", "agents:\n  - name: m\n    type: model\n"},
		{"a2a without url", "agents:\n  - name: r\n    type: a2a\n"},
		{"bad condition", "agents:\n  - name: f\n    type: func\n  - name: l\n    type: loop\n    subagents: [f]\n    condition: \"score >=\"\n"},
		{"bad parameter kind", "agents:\n  - name: f\n    type: func\n    parameters: [\"x:complex\"]\n"},
		{"unknown entry", "entry: ghost\nagents:\n  - name: f\n    type: func\n"},
		{"negative maxiterations", "agents:\n  - name: f\n    type: func\n  - name: l\n    type: loop\n    subagents: [f]\n    maxiterations: -1\n"},
		{"supervisor without model", "agents:\n  - name: f\n    type: func\n  - name: s\n    type: supervisor\n    subagents: [f]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, err := Parse([]byte(tt.yaml))
			require.NoError(t, err)
			_, err = Compile(def, func(e *Environment) { e.Funcs = noop })
			assert.Error(t, err)
		})
	}
}

func TestWorkflow_Summaries(t *testing.T) {
	wf := mustCompile(t, storyWorkflow, func(e *Environment) { e.Model = model.NewMockModel("mock", "mock") })

	sums := wf.Summaries()
	require.Len(t, sums, 3)
	assert.Equal(t, "creative", sums[0].Name)
	assert.Equal(t, []string{"{creative: Writes a story about a topic, [topic]}"}, sums[0].Cards)
	assert.Equal(t, "writer", sums[2].Name)
	assert.True(t, sums[2].Entry)
	assert.Equal(t, []string{"creative", "editor"}, sums[2].SubAgents)
}

func mustCompile(t *testing.T, doc string, optFns ...func(e *Environment)) *Workflow {
	t.Helper()
	def, err := Parse([]byte(doc))
	require.NoError(t, err)
	wf, err := Compile(def, optFns...)
	require.NoError(t, err)
	return wf
}

package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/cognisphere/core"
	"github.com/hupe1980/cognisphere/internal/prompt"
	"github.com/hupe1980/cognisphere/logging"
	"github.com/hupe1980/cognisphere/memory"
	"github.com/hupe1980/cognisphere/model"
	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"
)

// ErrMalformedOutput is returned when a planner or scorer model answers with
// something that is not the expected JSON document.
var ErrMalformedOutput = errors.New("malformed model output")

// DefaultPlannerMemoryWindow is the number of messages a planning session keeps.
const DefaultPlannerMemoryWindow = 20

const plannerInstruction = `You are a planner that coordinates a fixed set of agents.
You know nothing about any domain and make no assumptions about the user request:
the only thing you can do is rely on the provided agents.
Analyze the user request and decide which single agent to invoke next to address it.
Answer with a JSON object {"agentName": "<name>", "arguments": {"<argument>": <value>}}
using only the argument names listed for that agent.
Take the previous messages into account. When no further agent invocation is required,
answer with the agentName "done" and a single argument "response" whose value
summarizes the outcome in the language of the user request.
Answer with the JSON object only.`

const plannerPrompt = `Agents are listed as {name: description, [arguments]}.
The available agents are: {{agents}}.
The user request is: '{{request}}'.
The last received response is: '{{lastResponse}}'.`

const scorerInstruction = `You are a critical reviewer.
Rate how well each of two responses answers the given request with a score between 0.0 and 1.0.
Answer with a JSON object {"score1": <score of the first response>, "score2": <score of the second response>} and nothing else.`

const scorerPrompt = `The request is: '{{request}}'.
The first response is: '{{response1}}'.
The second response is: '{{response2}}'.`

// decisionSchema validates planner answers before they drive the loop.
const decisionSchema = `{
  "type": "object",
  "required": ["agentName"],
  "properties": {
    "agentName": {"type": "string", "minLength": 1},
    "arguments": {"type": ["object", "null"]}
  }
}`

const scoresSchema = `{
  "type": "object",
  "required": ["score1", "score2"],
  "properties": {
    "score1": {"type": "number"},
    "score2": {"type": "number"}
  }
}`

// ModelPlannerOptions configures a ModelPlanner.
type ModelPlannerOptions struct {
	// Memory keeps one conversation per planning session. Defaults to an
	// in-memory store windowed to DefaultPlannerMemoryWindow messages.
	Memory      core.ChatMemoryStore
	Instruction string
	Logger      logging.Logger
}

// ModelPlanner is a Planner asking a language model for the next decision.
type ModelPlanner struct {
	llm         model.Model
	memory      core.ChatMemoryStore
	instruction string
	schema      *gojsonschema.Schema
	logger      logging.Logger
}

var _ Planner = (*ModelPlanner)(nil)

// NewModelPlanner creates a model-backed planner.
func NewModelPlanner(llm model.Model, optFns ...func(o *ModelPlannerOptions)) (*ModelPlanner, error) {
	opts := ModelPlannerOptions{
		Instruction: plannerInstruction,
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Memory == nil {
		opts.Memory = memory.NewInMemoryStore(func(o *memory.Options) {
			o.MaxMessages = DefaultPlannerMemoryWindow
		})
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(decisionSchema))
	if err != nil {
		return nil, fmt.Errorf("compiling decision schema: %w", err)
	}

	return &ModelPlanner{
		llm:         llm,
		memory:      opts.Memory,
		instruction: opts.Instruction,
		schema:      schema,
		logger:      opts.Logger,
	}, nil
}

// Plan implements Planner.
func (p *ModelPlanner) Plan(ctx context.Context, sessionID, catalog, request, lastResponse string) (Decision, error) {
	text, err := prompt.Render(plannerPrompt, map[string]any{
		"agents":       catalog,
		"request":      request,
		"lastResponse": lastResponse,
	})
	if err != nil {
		return Decision{}, err
	}

	history, err := p.memory.Messages(ctx, sessionID)
	if err != nil {
		return Decision{}, fmt.Errorf("loading planner memory: %w", err)
	}

	user := core.UserMessage(text)
	answer, err := model.Collect(ctx, p.llm, model.Request{
		Instructions: p.instruction,
		Messages:     append(history, user),
	})
	if err != nil {
		return Decision{}, err
	}

	if err := p.memory.Add(ctx, sessionID, user, core.AIMessage(answer)); err != nil {
		return Decision{}, fmt.Errorf("saving planner memory: %w", err)
	}

	return parseDecision(p.schema, answer)
}

// Remember implements Planner.
func (p *ModelPlanner) Remember(ctx context.Context, sessionID string, msgs ...core.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	return p.memory.Add(ctx, sessionID, msgs...)
}

// Forget implements Planner.
func (p *ModelPlanner) Forget(ctx context.Context, sessionID string) error {
	_, err := p.memory.Evict(ctx, sessionID)
	return err
}

func parseDecision(schema *gojsonschema.Schema, answer string) (Decision, error) {
	doc, err := validateJSON(schema, answer)
	if err != nil {
		return Decision{}, err
	}

	d := Decision{
		AgentName: gjson.Get(doc, "agentName").String(),
		Arguments: map[string]any{},
	}
	if args, ok := gjson.Get(doc, "arguments").Value().(map[string]any); ok {
		d.Arguments = args
	}
	return d, nil
}

// ModelScorerOptions configures a ModelScorer.
type ModelScorerOptions struct {
	Instruction string
	Logger      logging.Logger
}

// ModelScorer is a Scorer asking a language model to rate two responses.
type ModelScorer struct {
	llm         model.Model
	instruction string
	schema      *gojsonschema.Schema
	logger      logging.Logger
}

var _ Scorer = (*ModelScorer)(nil)

// NewModelScorer creates a model-backed scorer.
func NewModelScorer(llm model.Model, optFns ...func(o *ModelScorerOptions)) (*ModelScorer, error) {
	opts := ModelScorerOptions{
		Instruction: scorerInstruction,
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(scoresSchema))
	if err != nil {
		return nil, fmt.Errorf("compiling scores schema: %w", err)
	}

	return &ModelScorer{llm: llm, instruction: opts.Instruction, schema: schema, logger: opts.Logger}, nil
}

// Score implements Scorer.
func (s *ModelScorer) Score(ctx context.Context, request, response1, response2 string) (Scores, error) {
	text, err := prompt.Render(scorerPrompt, map[string]any{
		"request":   request,
		"response1": response1,
		"response2": response2,
	})
	if err != nil {
		return Scores{}, err
	}

	answer, err := model.Collect(ctx, s.llm, model.Request{
		Instructions: s.instruction,
		Messages:     []core.Message{core.UserMessage(text)},
	})
	if err != nil {
		return Scores{}, err
	}

	doc, err := validateJSON(s.schema, answer)
	if err != nil {
		return Scores{}, err
	}
	scores := Scores{
		Score1: gjson.Get(doc, "score1").Float(),
		Score2: gjson.Get(doc, "score2").Float(),
	}
	s.logger.Debug("responses scored", "score1", scores.Score1, "score2", scores.Score2)
	return scores, nil
}

// validateJSON extracts the outermost JSON object of a model answer, which
// may be wrapped in prose or code fences, and validates it against schema.
func validateJSON(schema *gojsonschema.Schema, answer string) (string, error) {
	start := strings.Index(answer, "{")
	end := strings.LastIndex(answer, "}")
	if start < 0 || end < start {
		return "", fmt.Errorf("%w: no JSON object in %q", ErrMalformedOutput, answer)
	}
	doc := answer[start : end+1]
	if !gjson.Valid(doc) {
		return "", fmt.Errorf("%w: invalid JSON %q", ErrMalformedOutput, doc)
	}

	result, err := schema.Validate(gojsonschema.NewStringLoader(doc))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return "", fmt.Errorf("%w: %s", ErrMalformedOutput, strings.Join(msgs, "; "))
	}
	return doc, nil
}

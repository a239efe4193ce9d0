package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/hupe1980/cognisphere/binding"
	"github.com/hupe1980/cognisphere/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequence_WritesOneEntryPerAgent(t *testing.T) {
	writer := newCountingAgent("generateStory", "Generate a story", "story", []string{"topic"}, func(args []any) any {
		return "story about " + args[0].(string)
	})
	audience := newCountingAgent("editForAudience", "", "audienceStory", []string{"story", "audience"}, func(args []any) any {
		return args[0].(string) + " for " + args[1].(string)
	})
	style := newCountingAgent("editForStyle", "", "styledStory", []string{"audienceStory", "style"}, func(args []any) any {
		return strings.ToUpper(args[0].(string)) + " in " + args[1].(string)
	})

	f, err := SequenceOf([]Agent{writer, audience, style}, withName("novelCreator"), func(o *FacadeOptions) {
		o.OutputName = "styledStory"
		o.Operations = []binding.Declaration{{
			Operation:  "createNovel",
			Parameters: []binding.Parameter{{Binding: "topic"}, {Binding: "audience"}, {Binding: "style"}},
		}}
	})
	require.NoError(t, err)

	got, err := f.Call(context.Background(), "createNovel", []any{"dragons", "kids", "fantasy"})
	require.NoError(t, err)
	assert.Equal(t, "STORY ABOUT DRAGONS FOR KIDS in fantasy", got)

	state := f.Blackboard().State()
	assert.Equal(t, "story about dragons", state["story"])
	assert.Equal(t, "story about dragons for kids", state["audienceStory"])
	assert.Equal(t, "STORY ABOUT DRAGONS FOR KIDS in fantasy", state["styledStory"])
	assert.Len(t, state, 6)
	assert.Len(t, f.Blackboard().Context(), 6)
}

func TestSequence_AbortsOnFailure(t *testing.T) {
	first := newCountingAgent("first", "", "", []string{"missing"}, constant("x"))
	second := newCountingAgent("second", "", "", nil, constant("y"))

	f, err := SequenceOf([]Agent{first, second})
	require.NoError(t, err)

	_, err = f.Invoke(context.Background(), map[string]any{})
	assert.ErrorIs(t, err, core.ErrMissingArgument)
	assert.Zero(t, second.calls)
}

func TestLoop_RespectsMaxIterations(t *testing.T) {
	for _, k := range []int{1, 3, 7} {
		a := newCountingAgent("a", "", "", nil, constant(nil))
		b := newCountingAgent("b", "", "", nil, constant(nil))

		f, err := LoopOf([]Agent{a, b}, func(o *LoopOptions) {
			o.MaxIterations = k
			o.ExitCondition = func(*core.Blackboard) bool { return false }
		})
		require.NoError(t, err)

		_, err = f.Invoke(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, k, a.calls)
		assert.Equal(t, k, b.calls)
	}
}

func TestLoop_ExitsRightAfterScorer(t *testing.T) {
	scores := []float64{0.4, 0.6, 0.85, 0.9}
	scorer := newCountingAgent("scoreStyle", "", "score", []string{"story", "style"}, nil)
	scorer.fn = func(_ context.Context, _ []any) (any, error) {
		s := scores[scorer.calls]
		scorer.calls++
		return s, nil
	}
	editor := newCountingAgent("editStory", "", "story", []string{"story", "style"}, func(args []any) any {
		return args[0].(string) + "+"
	})

	f, err := LoopOf([]Agent{scorer, editor}, func(o *LoopOptions) {
		o.MaxIterations = 5
		o.ExitCondition = func(bb *core.Blackboard) bool { return core.ReadAs(bb, "score", 0.0) >= 0.8 }
	}, withName("reviewLoop"), func(o *FacadeOptions) { o.OutputName = "story" })
	require.NoError(t, err)

	got, err := f.Invoke(context.Background(), map[string]any{"story": "tale", "style": "comedy"})
	require.NoError(t, err)
	assert.Equal(t, 3, scorer.calls)
	assert.Equal(t, 2, editor.calls, "the editor does not run on the final pass")
	assert.Equal(t, "tale++", got)
}

func TestLoop_ExitConditionFromBoundArguments(t *testing.T) {
	step := newCountingAgent("step", "", "n", nil, nil)
	step.fn = func(context.Context, []any) (any, error) {
		step.calls++
		return "3", nil
	}
	done := BoundCondition(binding.MustNew(binding.Declaration{
		Operation:  "done",
		Parameters: []binding.Parameter{{Binding: "n", Kind: binding.KindInt}},
	}), func(args []any) bool { return args[0].(int) >= 3 })

	f, err := LoopOf([]Agent{step}, func(o *LoopOptions) { o.ExitCondition = done })
	require.NoError(t, err)
	assert.Equal(t, KindLoop, f.Strategy().Kind())

	_, err = f.Invoke(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, step.calls)
}

func TestLoop_DefaultsToUnbounded(t *testing.T) {
	l := NewLoop(nil)
	assert.Greater(t, l.MaxIterations(), 1<<30)

	l = NewLoop(nil, func(o *LoopOptions) { o.MaxIterations = Unbounded })
	assert.Greater(t, l.MaxIterations(), 1<<30)

	f, err := LoopOf(nil, nil)
	require.NoError(t, err)
	assert.Greater(t, f.Strategy().(*Loop).MaxIterations(), 1<<30)
}

func TestLoop_ZeroIterationsRunsNoPass(t *testing.T) {
	a := newCountingAgent("a", "", "", nil, constant(nil))

	f, err := LoopOf([]Agent{a}, func(o *LoopOptions) { o.MaxIterations = 0 })
	require.NoError(t, err)
	assert.Zero(t, f.Strategy().(*Loop).MaxIterations())

	_, err = f.Invoke(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, a.calls)
}

func TestConditional_RoutesByCategory(t *testing.T) {
	newExpert := func(name string) *countingAgent {
		return newCountingAgent(name, "A "+name+" expert", "response", []string{"request"}, func(args []any) any {
			return name + " answer to " + args[0].(string)
		})
	}

	for _, category := range []string{"medical", "legal", "technical"} {
		medical, legal, technical := newExpert("medical"), newExpert("legal"), newExpert("technical")
		f, err := ConditionalOf([]Branch{
			{Condition: StateEquals("category", "medical"), SubAgents: []Agent{medical}},
			{Condition: StateEquals("category", "legal"), SubAgents: []Agent{legal}},
			{Condition: StateEquals("category", "technical"), SubAgents: []Agent{technical}},
		}, func(o *FacadeOptions) { o.OutputName = "response" })
		require.NoError(t, err)

		got, err := f.Invoke(context.Background(), map[string]any{"category": category, "request": "help"})
		require.NoError(t, err)
		assert.Equal(t, category+" answer to help", got)

		calls := map[string]int{"medical": medical.calls, "legal": legal.calls, "technical": technical.calls}
		for name, n := range calls {
			if name == category {
				assert.Equal(t, 1, n, name)
			} else {
				assert.Zero(t, n, name)
			}
		}
	}
}

func TestConditional_EvaluatesLiveStateAndRunsEveryMatch(t *testing.T) {
	recategorize := newCountingAgent("recategorize", "", "category", nil, constant("legal"))
	legal := newCountingAgent("legal", "", "", nil, constant("ok"))
	always := newCountingAgent("always", "", "", nil, constant("ok"))

	f, err := ConditionalOf([]Branch{
		{Condition: StateEquals("category", "unknown"), SubAgents: []Agent{recategorize}},
		{Condition: StateEquals("category", "legal"), SubAgents: []Agent{legal}},
		{SubAgents: []Agent{always}},
	})
	require.NoError(t, err)

	res, err := f.Invoke(context.Background(), map[string]any{"category": "unknown"})
	require.NoError(t, err)
	assert.Equal(t, 1, recategorize.calls)
	assert.Equal(t, 1, legal.calls)
	assert.Equal(t, 1, always.calls)
	assert.Equal(t, "legal", res.(map[string]any)["category"])
}

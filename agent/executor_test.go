package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/cognisphere/binding"
	"github.com/hupe1980/cognisphere/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutor_WritesOutputAndRegistersCall(t *testing.T) {
	writer := newCountingAgent("writeStory", "Writes a story", "story", []string{"topic", "length"}, func(args []any) any {
		return "a story about " + args[0].(string)
	})

	bb := core.NewBlackboard("s1")
	bb.WriteStates(map[string]any{"topic": "dragons", "length": 3})

	e := NewExecutors([]Agent{writer})[0]
	assert.Equal(t, "writeStory", e.Name())
	assert.Equal(t, "story", e.OutputName())

	got, err := e.Invoke(context.Background(), bb)
	require.NoError(t, err)
	assert.Equal(t, "a story about dragons", got)
	assert.Equal(t, "a story about dragons", bb.ReadStateOr("story", nil))

	calls := bb.Invocations("writeStory")
	require.Len(t, calls, 1)
	assert.Equal(t, []any{"dragons", 3}, calls[0].Input)
	assert.Equal(t, "a story about dragons", calls[0].Response)

	ctxMsgs := bb.Context()
	require.Len(t, ctxMsgs, 2)
	assert.Equal(t, core.UserMessage("Writes a story using [dragons, 3]"), ctxMsgs[0])
}

func TestExecutor_OutputNameOverride(t *testing.T) {
	a := newCountingAgent("a", "", "x", nil, constant(1))
	e := NewExecutor(a.Specifications()[0], a, func(o *ExecutorOptions) { o.OutputName = "y" })

	bb := core.NewBlackboard("")
	bb.WriteState("request", "go")
	_, err := e.Invoke(context.Background(), bb)
	require.NoError(t, err)
	assert.False(t, bb.HasState("x"))
	assert.Equal(t, 1, bb.ReadStateOr("y", nil))
}

func TestExecutor_MissingArgument(t *testing.T) {
	a := newCountingAgent("edit", "", "", []string{"story"}, constant("x"))
	bb := core.NewBlackboard("")

	_, err := NewExecutors([]Agent{a})[0].Invoke(context.Background(), bb)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrMissingArgument)
	assert.Zero(t, a.calls)
}

func TestExecutor_WrapsExecutionError(t *testing.T) {
	boom := errors.New("boom")
	a := MustFuncAgent(binding.Declaration{Operation: "explode"}, func(context.Context, []any) (any, error) {
		return nil, boom
	})

	_, err := NewExecutors([]Agent{a})[0].Invoke(context.Background(), core.NewBlackboard(""))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrExecution)
	assert.ErrorIs(t, err, boom)

	var agentErr *core.AgentError
	require.ErrorAs(t, err, &agentErr)
	assert.Equal(t, "explode", agentErr.Agent)
}

func TestExecutor_BindsNestedFacadeToParentBlackboard(t *testing.T) {
	inner1 := newCountingAgent("draft", "Drafts", "draft", []string{"topic"}, func(args []any) any {
		return "draft on " + args[0].(string)
	})
	inner2 := newCountingAgent("polish", "Polishes", "polished", []string{"draft"}, func(args []any) any {
		return args[0].(string) + "!"
	})
	nested, err := SequenceOf([]Agent{inner1, inner2}, withName("writer"), func(o *FacadeOptions) {
		o.OutputName = "polished"
	})
	require.NoError(t, err)

	outer, err := SequenceOf([]Agent{nested}, withName("outer"))
	require.NoError(t, err)

	_, err = outer.Invoke(context.Background(), map[string]any{"topic": "go"})
	require.NoError(t, err)

	bb := outer.Blackboard()
	require.NotNil(t, bb)
	assert.Equal(t, "draft on go!", bb.ReadStateOr("polished", nil))
	assert.Nil(t, nested.Blackboard(), "the configured façade stays unbound")

	assert.Len(t, bb.Invocations("draft"), 1)
	assert.Len(t, bb.Invocations("polish"), 1)
	assert.Empty(t, bb.Invocations("writer"), "composed agents do not register themselves")
}

package core

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testSpec struct{ name, description string }

func (s testSpec) Name() string        { return s.name }
func (s testSpec) Description() string { return s.description }

type memoryAgent struct {
	messages []Message
	err      error
}

func (m *memoryAgent) ChatMemory(context.Context, string) ([]Message, error) {
	return m.messages, m.err
}

func (m *memoryAgent) EvictChatMemory(context.Context, string) (bool, error) { return true, nil }

func TestNewBlackboard_DefaultID(t *testing.T) {
	assert.Equal(t, DefaultID, NewBlackboard("").ID())
	assert.Equal(t, "s1", NewBlackboard("s1").ID())
}

func TestBlackboard_WriteAndReadState(t *testing.T) {
	bb := NewBlackboard("s1")

	bb.WriteState("topic", "dragons")
	bb.WriteStates(map[string]any{"style": "comedy", "topic": "wizards"})

	v, ok := bb.ReadState("topic")
	require.True(t, ok)
	assert.Equal(t, "wizards", v)

	_, ok = bb.ReadState("missing")
	assert.False(t, ok)
	assert.Equal(t, 0.5, bb.ReadStateOr("score", 0.5))
	assert.True(t, bb.HasState("style"))

	snapshot := bb.State()
	snapshot["style"] = "changed"
	assert.Equal(t, "comedy", bb.ReadStateOr("style", ""))
}

func TestReadAs(t *testing.T) {
	bb := NewBlackboard("s1")
	bb.WriteState("score", 0.9)
	bb.WriteState("label", "x")

	assert.Equal(t, 0.9, ReadAs(bb, "score", 0.0))
	assert.Equal(t, 0.0, ReadAs(bb, "label", 0.0))
	assert.Equal(t, "none", ReadAs(bb, "missing", "none"))
}

func TestBlackboard_RegisterCall_SyntheticContext(t *testing.T) {
	bb := NewBlackboard("s1")
	bb.WriteState("story", "once upon a time")

	err := bb.RegisterCall(context.Background(), testSpec{"writer", "Writes a story"}, struct{}{}, []any{"dragons", 3}, "once upon a time")
	require.NoError(t, err)

	calls := bb.Invocations("writer")
	require.Len(t, calls, 1)
	assert.Equal(t, "writer", calls[0].AgentName)
	assert.Equal(t, []any{"dragons", 3}, calls[0].Input)
	assert.Equal(t, "once upon a time", calls[0].Response)

	ctx := bb.Context()
	require.Len(t, ctx, 2)
	assert.Equal(t, UserMessage("Writes a story using [dragons, 3]"), ctx[0])
	assert.Equal(t, RoleAI, ctx[1].Role)
	assert.Equal(t, "once upon a time with map[story:once upon a time]", ctx[1].Text)
}

func TestBlackboard_RegisterCall_LastMemoryPairOnly(t *testing.T) {
	bb := NewBlackboard("s1")
	agent := &memoryAgent{messages: []Message{
		SystemMessage("be nice"),
		UserMessage("first question"),
		AIMessage("first answer"),
		UserMessage("second question"),
		AIMessage("thinking"),
		AIMessage("second answer"),
	}}

	require.NoError(t, bb.RegisterCall(context.Background(), testSpec{"expert", "Answers"}, agent, []any{"q"}, "second answer"))

	assert.Equal(t, []Message{UserMessage("second question"), AIMessage("second answer")}, bb.Context())
	assert.Equal(t, bb.Context(), bb.LastInteractionMessages())
}

func TestBlackboard_RegisterCall_EmptyMemoryFallsBack(t *testing.T) {
	bb := NewBlackboard("s1")

	require.NoError(t, bb.RegisterCall(context.Background(), testSpec{"expert", "Answers"}, &memoryAgent{}, []any{"q"}, "a"))

	ctx := bb.Context()
	require.Len(t, ctx, 2)
	assert.Equal(t, "Answers using [q]", ctx[0].Text)
}

func TestBlackboard_RegisterCall_MemoryError(t *testing.T) {
	bb := NewBlackboard("s1")
	boom := errors.New("boom")

	err := bb.RegisterCall(context.Background(), testSpec{"expert", "Answers"}, &memoryAgent{err: boom}, nil, "a")

	assert.ErrorIs(t, err, boom)
	assert.Empty(t, bb.Invocations("expert"))
}

func TestBlackboard_ContextAsConversation(t *testing.T) {
	bb := NewBlackboard("s1")
	assert.Equal(t, "", bb.ContextAsConversation())
	assert.Empty(t, bb.LastInteractionMessages())

	agent := &memoryAgent{messages: []Message{UserMessage("hi"), AIMessage("hello")}}
	require.NoError(t, bb.RegisterCall(context.Background(), testSpec{"a", "d"}, agent, nil, "hello"))
	agent.messages = []Message{UserMessage("how are you"), AIMessage("fine")}
	require.NoError(t, bb.RegisterCall(context.Background(), testSpec{"a", "d"}, agent, nil, "fine"))

	assert.Equal(t, "User: hi\nAI: hello\nUser: how are you\nAI: fine\n", bb.ContextAsConversation())
	assert.Equal(t, []Message{UserMessage("how are you"), AIMessage("fine")}, bb.LastInteractionMessages())
	assert.Len(t, bb.Invocations("a"), 2)
}

func TestBlackboard_String(t *testing.T) {
	bb := NewBlackboard("s1")
	bb.WriteState("k", "v")
	assert.Equal(t, "Cognisphere{id='s1', state=map[k:v]}", bb.String())
}

func TestBlackboard_ConcurrentAccess(t *testing.T) {
	bb := NewBlackboard("s1")
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			bb.WriteState("k", i)
			_ = bb.State()
			_ = bb.RegisterCall(context.Background(), testSpec{"a", "d"}, nil, []any{i}, i)
		}(i)
	}
	wg.Wait()

	assert.Len(t, bb.Invocations("a"), 50)
	assert.Len(t, bb.Context(), 100)
}

func TestAgentError(t *testing.T) {
	cause := errors.New("model timeout")
	err := NewAgentError("writer", cause)

	assert.ErrorIs(t, err, ErrExecution)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "agent writer: model timeout", err.Error())

	var ae *AgentError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "writer", ae.Agent)
}

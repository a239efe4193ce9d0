package binding

import (
	"testing"

	"github.com/hupe1980/cognisphere/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_NamedArguments(t *testing.T) {
	spec, err := New(Declaration{
		Operation:   "write",
		Name:        "writer",
		Description: "Writes a story",
		Parameters: []Parameter{
			{Binding: "topic"},
			{SessionID: true},
			{Ident: "style"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "writer", spec.Name())
	assert.Equal(t, "write", spec.Operation())
	assert.Equal(t, []string{"topic", "style"}, spec.ArgumentNames())
	assert.Equal(t, "{writer: Writes a story, [topic, style]}", spec.Card())
	assert.False(t, IsUntyped(spec))
}

func TestNew_NameDefaultsToOperation(t *testing.T) {
	spec, err := New(Declaration{Operation: "edit", Parameters: []Parameter{{Binding: "story"}}})
	require.NoError(t, err)
	assert.Equal(t, "edit", spec.Name())
}

func TestNew_BindingPriority(t *testing.T) {
	spec, err := New(Declaration{
		Operation:  "op",
		Parameters: []Parameter{{Binding: "explicit", Ident: "ident"}, {Ident: "other"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"explicit", "other"}, spec.ArgumentNames())
}

func TestNew_SingleUnnamedParameterBindsToRequest(t *testing.T) {
	spec, err := New(Declaration{
		Operation:  "ask",
		Parameters: []Parameter{{SessionID: true}, {}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultArgumentName}, spec.ArgumentNames())
}

func TestNew_UnnamedParameterFails(t *testing.T) {
	_, err := New(Declaration{
		Operation:  "op",
		Parameters: []Parameter{{Binding: "a"}, {}},
	})
	assert.ErrorIs(t, err, core.ErrBinding)

	_, err = New(Declaration{})
	assert.ErrorIs(t, err, core.ErrBinding)
}

func TestMustNew_Panics(t *testing.T) {
	assert.Panics(t, func() { MustNew(Declaration{}) })
}

func TestInvocationArguments_ReadsInOrder(t *testing.T) {
	spec := MustNew(Declaration{
		Operation: "op",
		Parameters: []Parameter{
			{Binding: "topic"},
			{SessionID: true},
			{Binding: "count", Kind: KindInt},
		},
	})
	bb := core.NewBlackboard("s1")
	bb.WriteStates(map[string]any{"topic": "dragons", "count": 3})

	args, err := spec.InvocationArguments(bb)
	require.NoError(t, err)
	assert.Equal(t, []any{"dragons", "s1", 3}, args)
}

func TestInvocationArguments_CoercesTextToInt(t *testing.T) {
	spec := MustNew(Declaration{Operation: "op", Parameters: []Parameter{{Binding: "count", Kind: KindInt}}})
	bb := core.NewBlackboard("")
	bb.WriteState("count", "42")

	args, err := spec.InvocationArguments(bb)
	require.NoError(t, err)
	assert.Equal(t, []any{42}, args)

	bb.WriteState("count", "many")
	_, err = spec.InvocationArguments(bb)
	assert.ErrorIs(t, err, core.ErrTypeCoercion)
}

func TestInvocationArguments_Missing(t *testing.T) {
	spec := MustNew(Declaration{Operation: "op", Parameters: []Parameter{{Binding: "a"}, {Binding: "b"}}})
	bb := core.NewBlackboard("")
	bb.WriteState("a", "x")

	_, err := spec.InvocationArguments(bb)
	assert.ErrorIs(t, err, core.ErrMissingArgument)
	assert.Contains(t, err.Error(), "b")
}

func TestInvocationArguments_LoneEntryFallback(t *testing.T) {
	spec := MustNew(Declaration{Operation: "ask", Parameters: []Parameter{{}}})

	bb := core.NewBlackboard("")
	bb.WriteState("question", "why?")
	args, err := spec.InvocationArguments(bb)
	require.NoError(t, err)
	assert.Equal(t, []any{"why?"}, args)

	bb.WriteState("request", "what?")
	args, err = spec.InvocationArguments(bb)
	require.NoError(t, err)
	assert.Equal(t, []any{"what?"}, args)

	multi := core.NewBlackboard("")
	multi.WriteStates(map[string]any{"a": 1, "b": 2})
	_, err = spec.InvocationArguments(multi)
	assert.ErrorIs(t, err, core.ErrMissingArgument)
}

func TestUntypedSpecification(t *testing.T) {
	spec := MustNew(Declaration{Operation: "invoke", Name: "router", Description: "Routes requests", Untyped: true})
	bb := core.NewBlackboard("")
	bb.WriteState("request", "hi")

	assert.True(t, IsUntyped(spec))
	assert.Equal(t, "{router: Routes requests}", spec.Card())
	assert.Empty(t, spec.ArgumentNames())

	args, err := spec.InvocationArguments(bb)
	require.NoError(t, err)
	require.Len(t, args, 1)
	assert.Equal(t, map[string]any{"request": "hi"}, args[0])
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		kind    Kind
		want    any
		wantErr bool
	}{
		{"string passthrough", "abc", KindString, "abc", false},
		{"int", "42", KindInt, 42, false},
		{"int64", "9000000000", KindInt64, int64(9000000000), false},
		{"float", "0.85", KindFloat64, 0.85, false},
		{"bool", "true", KindBool, true, false},
		{"non string passthrough", 7, KindString, 7, false},
		{"any", "x", KindAny, "x", false},
		{"bad int", "4.2", KindInt, nil, true},
		{"int out of 32-bit range", "2147483648", KindInt, nil, true},
		{"int64 beyond int range", "2147483648", KindInt64, int64(2147483648), false},
		{"bool short form", "t", KindBool, true, false},
		{"bool yes", "yes", KindBool, nil, true},
		{"bad bool", "yes please", KindBool, nil, true},
		{"unsupported kind", "x", Kind(99), nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Coerce(tt.value, tt.kind)
			if tt.wantErr {
				assert.ErrorIs(t, err, core.ErrTypeCoercion)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("double")
	require.NoError(t, err)
	assert.Equal(t, KindFloat64, k)

	k, err = ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, KindAny, k)

	_, err = ParseKind("complex128")
	assert.ErrorIs(t, err, core.ErrTypeCoercion)
	assert.Equal(t, "int64", KindInt64.String())
}

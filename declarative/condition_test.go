package declarative

import (
	"testing"

	"github.com/hupe1980/cognisphere/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCondition(t *testing.T) {
	bb := testutil.NewBlackboardBuilder("s").States(map[string]any{
		"score":    0.85,
		"textual":  " 0.4 ",
		"category": "LEGAL",
		"approved": true,
		"count":    3,
		"empty":    "",
	}).Build()

	tests := []struct {
		expr string
		want bool
	}{
		{"score >= 0.8", true},
		{"score > 0.85", false},
		{"textual < 0.5", true},
		{"count == 3", true},
		{"count != 3", false},
		{"category == 'legal'", true},
		{`category == "medical"`, false},
		{"category != 'medical'", true},
		{"approved", true},
		{"approved == false", false},
		{"empty", false},
		{"!empty", true},
		{"missing", false},
		{"missing == 1", false},
		{"!(missing == 1)", true},
		{"score >= 0.8 && category == 'legal'", true},
		{"score < 0.8 || category == 'legal'", true},
		{"score < 0.8 || (approved && count > 5)", false},
		{"approved && !(count < 1)", true},
		{"0.8 <= score", true},
		{"score > -1", true},
		{"not approved or count >= 3", true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			cond, err := ParseCondition(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cond(bb))
		})
	}
}

func TestParseCondition_TextualScoreNotNumber(t *testing.T) {
	bb := testutil.NewBlackboardBuilder("s").State("score", "n/a").Build()

	cond, err := ParseCondition("score >= 0.8")
	require.NoError(t, err)
	assert.False(t, cond(bb))
}

func TestParseCondition_Errors(t *testing.T) {
	for _, expr := range []string{
		"",
		"score >=",
		"score >= 'x",
		"(score > 1",
		"score > 1 score",
		"approved > true",
		"score == other",
		"score # 1",
		"&& score",
		"score + 1 > 2",
		"0.8 <= 0.9",
	} {
		t.Run(expr, func(t *testing.T) {
			_, err := ParseCondition(expr)
			assert.Error(t, err)
		})
	}
}

package integrity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulse/integrity-engine/integrity"
)

// =============================================================================
// CASCADE ORDER
// =============================================================================

func TestParseRaw_WellFormed_DirectStrategyWins(t *testing.T) {
	// GIVEN: a well-formed JSON array
	// WHEN: parsing
	// THEN: the direct strategy succeeds on the first attempt

	raw := []byte(`[{"name":"John","performance":[{"name":"Leadership","score":85}]}]`)
	result := integrity.ParseRaw(raw, 3)

	require.True(t, result.OK)
	assert.Equal(t, "direct", result.Strategy)
	assert.Len(t, result.Attempts, 1)
	assert.Empty(t, result.Attempts[0].Error)

	records, ok := result.Value.([]any)
	require.True(t, ok, "value should be a sequence")
	assert.Len(t, records, 1)
}

func TestParseRaw_UnquotedKeys_SyntaxRepairWins(t *testing.T) {
	// GIVEN: JS-style object literals with unquoted keys
	// WHEN: parsing
	// THEN: attempt 1 fails, attempt 2 (syntax repair) succeeds, and the
	//       first failure reason is retained

	raw := []byte(`[{name: "John", performance: [{name:"Leadership",score:85}]}]`)
	result := integrity.ParseRaw(raw, 3)

	require.True(t, result.OK)
	assert.Equal(t, "syntax_repair", result.Strategy)
	require.Len(t, result.Attempts, 2)
	assert.NotEmpty(t, result.Attempts[0].Error, "direct failure must be retained")
	assert.Empty(t, result.Attempts[1].Error)
}

func TestParseRaw_TrailingCommaAndSingleQuotes_Repaired(t *testing.T) {
	raw := []byte(`[{'name': 'Jane', 'performance': [{'name': 'Quality', 'score': 90},]}]`)
	result := integrity.ParseRaw(raw, 3)

	require.True(t, result.OK)
	assert.Equal(t, "syntax_repair", result.Strategy)
}

func TestParseRaw_UndefinedAndNaNTokens_BecomeNull(t *testing.T) {
	// GIVEN: literal undefined/NaN tokens, invalid in JSON
	// WHEN: parsing
	// THEN: repair replaces them with null and the payload parses

	raw := []byte(`[{"name":"A","nip":undefined,"performance":[{"name":"X","score":NaN}]}]`)
	result := integrity.ParseRaw(raw, 3)

	require.True(t, result.OK)
	records := result.Value.([]any)
	rec := records[0].(map[string]any)
	assert.Nil(t, rec["nip"])

	entry := rec["performance"].([]any)[0].(map[string]any)
	assert.Nil(t, entry["score"])
}

func TestParseRaw_BrokenStructure_RegexFallbackReconstructs(t *testing.T) {
	// GIVEN: hopelessly broken structure still containing name/score fields
	// WHEN: parsing
	// THEN: the regex fallback pairs employee names with their competencies

	raw := []byte(`{{{"name": "John" garbage "name": "Leadership", "score": 85 ,, "name": "Teamwork" "score": 70`)
	result := integrity.ParseRaw(raw, 3)

	require.True(t, result.OK)
	assert.Equal(t, "regex_fallback", result.Strategy)

	records := result.Value.([]any)
	require.Len(t, records, 1)
	rec := records[0].(map[string]any)
	assert.Equal(t, "John", rec["name"])
	assert.Len(t, rec["performance"], 2)
}

func TestParseRaw_AllAttemptsFail_NoRecordsInvented(t *testing.T) {
	// GIVEN: truncated JSON with no extractable fields
	// WHEN: the full cascade runs
	// THEN: ok is false, every attempt's failure reason is retained, and
	//       no value is fabricated

	raw := []byte(`[{"na`)
	result := integrity.ParseRaw(raw, 3)

	assert.False(t, result.OK)
	assert.Nil(t, result.Value)
	require.Len(t, result.Attempts, 3)
	for _, a := range result.Attempts {
		assert.NotEmpty(t, a.Error)
	}
}

func TestParseRaw_MaxAttemptsBoundsCascadeDepth(t *testing.T) {
	// GIVEN: input only the regex fallback could salvage
	// WHEN: the cascade is capped at 2 attempts
	// THEN: parsing fails without reaching the fallback

	raw := []byte(`{{{"name": "John" "score": 85`)
	result := integrity.ParseRaw(raw, 2)

	assert.False(t, result.OK)
	assert.Len(t, result.Attempts, 2)
}

func TestParseRaw_EmptyInput_Fails(t *testing.T) {
	result := integrity.ParseRaw([]byte("   \n\t"), 3)

	assert.False(t, result.OK)
	require.NotEmpty(t, result.Attempts)
	assert.Contains(t, result.Attempts[0].Error, "empty input")
}

func TestParseRaw_LoneObject_ParsesForStructuralStage(t *testing.T) {
	// GIVEN: a lone object instead of an array
	// WHEN: parsing
	// THEN: the parse succeeds; flagging the wrong shape is the structural
	//       validator's job, not the parser's

	result := integrity.ParseRaw([]byte(`{"name":"John","performance":[]}`), 3)

	require.True(t, result.OK)
	_, isMap := result.Value.(map[string]any)
	assert.True(t, isMap)
}

// =============================================================================
// REPAIR RULES
// =============================================================================

func TestRepairSyntax_Rules(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"unquoted keys", `{name: 1}`, `{"name": 1}`},
		{"trailing comma", `[1, 2,]`, `[1, 2]`},
		{"single quotes", `{'a': 'b'}`, `{"a": "b"}`},
		{"undefined token", `{"a": undefined}`, `{"a": null}`},
		{"nan token", `{"a": NaN}`, `{"a": null}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, integrity.RepairSyntax(tc.in))
		})
	}
}

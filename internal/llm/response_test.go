// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func screeningSchema() Schema {
	return Schema{
		Required: []string{"decision", "confidence", "reasoning"},
		Types: map[string][]Kind{
			"decision":   {KindString},
			"confidence": {KindNumber},
			"reasoning":  {KindString},
			"key_terms":  {KindList, KindNull},
		},
	}
}

func TestExtractJSONFencedBlock(t *testing.T) {
	raw := "Here is my assessment:\n```json\n{\"decision\": \"INCLUDE\", \"confidence\": 0.9}\n```\nDone."
	obj, err := ExtractJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, "INCLUDE", obj["decision"])
	assert.Equal(t, 0.9, obj["confidence"])
}

func TestExtractJSONBareFence(t *testing.T) {
	raw := "```\n{\"decision\": \"EXCLUDE\"}\n```"
	obj, err := ExtractJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, "EXCLUDE", obj["decision"])
}

func TestExtractJSONBraceSpanFallback(t *testing.T) {
	raw := `The article meets criteria. {"decision": "INCLUDE", "confidence": 0.7} Let me know.`
	obj, err := ExtractJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, "INCLUDE", obj["decision"])
}

func TestExtractJSONUnescapesEntities(t *testing.T) {
	raw := `{&quot;decision&quot;: &quot;INCLUDE&quot;, &quot;confidence&quot;: 1}`
	obj, err := ExtractJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, "INCLUDE", obj["decision"])
}

func TestExtractJSONNoObject(t *testing.T) {
	_, err := ExtractJSON("I cannot provide a structured answer.")
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Reason, "no JSON object")
}

func TestExtractJSONMalformed(t *testing.T) {
	_, err := ExtractJSON(`{"decision": "INCLUDE",}`)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Reason, "unparseable")
}

func TestValidateAccepts(t *testing.T) {
	obj := map[string]any{
		"decision":   "INCLUDE",
		"confidence": 0.85,
		"reasoning":  "matches population and intervention",
		"key_terms":  []any{"hypertension", "telemedicine"},
	}
	assert.NoError(t, screeningSchema().Validate(obj))
}

func TestValidateAllowsAlternateKinds(t *testing.T) {
	obj := map[string]any{
		"decision":   "EXCLUDE",
		"confidence": 1.0,
		"reasoning":  "wrong study design",
		"key_terms":  nil,
	}
	assert.NoError(t, screeningSchema().Validate(obj))
}

func TestValidateMissingKey(t *testing.T) {
	obj := map[string]any{"decision": "INCLUDE", "confidence": 0.5}
	err := screeningSchema().Validate(obj)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing keys: reasoning")
}

func TestValidateEmptyValue(t *testing.T) {
	obj := map[string]any{"decision": "", "confidence": 0.5, "reasoning": "ok"}
	err := screeningSchema().Validate(obj)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty values: decision")
}

func TestValidateTypeMismatch(t *testing.T) {
	obj := map[string]any{
		"decision":   "INCLUDE",
		"confidence": "high",
		"reasoning":  "fine",
	}
	err := screeningSchema().Validate(obj)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "confidence: string instead of number")
}

func TestValidateReportsAllProblemsTogether(t *testing.T) {
	obj := map[string]any{"confidence": "high", "reasoning": ""}
	err := screeningSchema().Validate(obj)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing keys: decision")
	assert.Contains(t, err.Error(), "empty values: reasoning")
	assert.Contains(t, err.Error(), "confidence: string")
}

func TestExtractAndValidate(t *testing.T) {
	raw := "```json\n{\"decision\": \"UNCERTAIN\", \"confidence\": 0.4, \"reasoning\": \"abstract too sparse\"}\n```"
	obj, err := ExtractAndValidate(raw, screeningSchema())
	require.NoError(t, err)
	assert.Equal(t, "UNCERTAIN", obj["decision"])

	_, err = ExtractAndValidate("no json here at all", screeningSchema())
	assert.Error(t, err)
}

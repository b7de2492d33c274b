// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package plan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPlan() *Plan {
	return &Plan{
		Query: `("telemedicine"[MeSH]) AND ("hypertension"[MeSH])`,
		Topic: "Telemedicine interventions for hypertension management",
		Title: "Telemedicine for Hypertension: A Systematic Review",
		Screening: Screening{
			Inclusion: []string{"adults with hypertension", "telemedicine intervention", "reports BP outcomes"},
			Exclusion: []string{"no primary data", "pediatric population", "not in English"},
		},
		Extract: map[string]any{
			"intervention_type": "kind of telemedicine intervention",
		},
		Analysis: []string{
			"What intervention types are most common?",
			"How do BP outcomes compare to usual care?",
			"What adherence patterns are reported?",
		},
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, validPlan().Save(dir))

	assert.FileExists(t, filepath.Join(dir, JSONFile))
	assert.FileExists(t, filepath.Join(dir, YAMLFile))

	p, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, validPlan(), p)
}

func TestLoadFallsBackToYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, validPlan().Save(dir))
	require.NoError(t, os.Remove(filepath.Join(dir, JSONFile)))

	p, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, validPlan().Topic, p.Topic)
}

func TestLoadMissingPlan(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no plan found")
}

func TestValidateRejectsIncompletePlans(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Plan)
	}{
		{"empty query", func(p *Plan) { p.Query = "" }},
		{"empty topic", func(p *Plan) { p.Topic = "" }},
		{"no inclusion criteria", func(p *Plan) { p.Screening.Inclusion = nil }},
		{"no exclusion criteria", func(p *Plan) { p.Screening.Exclusion = nil }},
		{"blank inclusion entry", func(p *Plan) { p.Screening.Inclusion = []string{""} }},
		{"no analysis questions", func(p *Plan) { p.Analysis = []string{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPlan()
			tt.mutate(p)
			assert.Error(t, p.Validate())
		})
	}
}

// stubCaller returns a canned response, recording the prompt.
type stubCaller struct {
	response string
	err      error
	prompts  []string
}

func (s *stubCaller) Call(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

const generatedPlanJSON = `{
  "query": "(\"hypertension\"[MeSH]) AND (\"telemedicine\"[MeSH])",
  "topic": "Telemedicine for hypertension",
  "title": "Telemedicine for Hypertension: A Systematic Review",
  "screening": {
    "inclusion": ["adults", "telemedicine arm", "BP outcomes"],
    "exclusion": ["reviews", "children", "no outcomes"]
  },
  "extract": {"intervention_type": "kind of intervention"},
  "analysis": ["types", "outcomes", "adherence"]
}`

func TestGenerate(t *testing.T) {
	dir := t.TempDir()
	caller := &stubCaller{response: "```json\n" + generatedPlanJSON + "\n```"}

	g := NewGenerator(caller, dir, zerolog.Nop())
	p, err := g.Generate(context.Background(), "telemedicine for hypertension in adults")
	require.NoError(t, err)

	assert.Equal(t, "Telemedicine for hypertension", p.Topic)
	assert.Len(t, p.Screening.Inclusion, 3)
	assert.FileExists(t, filepath.Join(dir, JSONFile))
	assert.FileExists(t, filepath.Join(dir, YAMLFile))

	require.Len(t, caller.prompts, 1)
	assert.Contains(t, caller.prompts[0], "telemedicine for hypertension in adults")

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, p, loaded)
}

func TestGenerateRejectsIncompleteResponse(t *testing.T) {
	caller := &stubCaller{response: `{"query": "q", "topic": "t"}`}
	g := NewGenerator(caller, t.TempDir(), zerolog.Nop())

	_, err := g.Generate(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "plan response rejected")
}

func TestGenerateRejectsMissingScreeningLists(t *testing.T) {
	caller := &stubCaller{response: `{
		"query": "q", "topic": "t", "title": "ti",
		"screening": {"inclusion": []},
		"analysis": ["a"]
	}`}
	g := NewGenerator(caller, t.TempDir(), zerolog.Nop())

	_, err := g.Generate(context.Background(), "anything")
	assert.Error(t, err)
}

func TestGeneratePropagatesCallError(t *testing.T) {
	caller := &stubCaller{err: fmt.Errorf("api down")}
	g := NewGenerator(caller, t.TempDir(), zerolog.Nop())

	_, err := g.Generate(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generating plan")
}

func TestGenerateEmptyDescription(t *testing.T) {
	g := NewGenerator(&stubCaller{}, t.TempDir(), zerolog.Nop())
	_, err := g.Generate(context.Background(), "   ")
	assert.Error(t, err)
}

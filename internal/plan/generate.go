// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/review-assistant/internal/llm"
)

const generatePrompt = `You are designing a systematic literature review. From the free-text
research description below, produce the complete review protocol.

RESEARCH DESCRIPTION:
%s

Respond ONLY with a JSON object in this exact shape:
{
  "query": "PubMed search string using MeSH terms and boolean operators",
  "topic": "one-line review topic",
  "title": "manuscript title for the review",
  "screening": {
    "inclusion": ["criterion", "..."],
    "exclusion": ["criterion", "..."]
  },
  "extract": {
    "field_name": "description of the study attribute to extract"
  },
  "analysis": ["question the synthesis must address", "..."]
}

Make the query specific enough to be runnable against PubMed as-is. Give
at least three inclusion and three exclusion criteria and at least three
analysis questions.`

// generateSchema validates the shape of a generated plan before it is
// decoded into the typed struct.
var generateSchema = llm.Schema{
	Required: []string{"query", "topic", "title", "screening", "analysis"},
	Types: map[string][]llm.Kind{
		"query":     {llm.KindString},
		"topic":     {llm.KindString},
		"title":     {llm.KindString},
		"screening": {llm.KindObject},
		"extract":   {llm.KindObject, llm.KindNull},
		"analysis":  {llm.KindList},
	},
}

// Generator turns a free-text research description into a saved plan.
type Generator struct {
	caller  llm.Caller
	workdir string
	log     zerolog.Logger
}

func NewGenerator(caller llm.Caller, workdir string, log zerolog.Logger) *Generator {
	return &Generator{
		caller:  caller,
		workdir: workdir,
		log:     log.With().Str("component", "plan").Logger(),
	}
}

// Generate asks the model for a protocol, validates it, and writes both
// plan files to the workdir.
func (g *Generator) Generate(ctx context.Context, description string) (*Plan, error) {
	description = strings.TrimSpace(llm.SanitizeInput(description))
	if description == "" {
		return nil, fmt.Errorf("research description is empty")
	}

	raw, err := g.caller.Call(ctx, fmt.Sprintf(generatePrompt, description))
	if err != nil {
		return nil, fmt.Errorf("generating plan: %w", err)
	}

	obj, err := llm.ExtractAndValidate(raw, generateSchema)
	if err != nil {
		return nil, fmt.Errorf("plan response rejected: %w", err)
	}

	// Round-trip through JSON to decode the loose map into the typed plan.
	buf, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("re-encoding plan: %w", err)
	}
	var p Plan
	if err := json.Unmarshal(buf, &p); err != nil {
		return nil, fmt.Errorf("decoding plan: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if err := p.Save(g.workdir); err != nil {
		return nil, err
	}

	g.log.Info().
		Str("title", p.Title).
		Int("inclusion", len(p.Screening.Inclusion)).
		Int("exclusion", len(p.Screening.Exclusion)).
		Int("analysis", len(p.Analysis)).
		Msg("plan generated")
	return &p, nil
}

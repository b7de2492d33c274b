// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package review

import (
	"context"
	"fmt"

	"github.com/pdiddy/review-assistant/internal/llm"
	"github.com/pdiddy/review-assistant/pkg/types"
)

var screeningSchema = llm.Schema{
	Required: []string{"pmid", "decision", "confidence", "reasoning"},
	Types: map[string][]llm.Kind{
		"pmid":       {llm.KindString, llm.KindNumber},
		"decision":   {llm.KindString},
		"confidence": {llm.KindNumber},
		"reasoning":  {llm.KindString},
		"key_terms":  {llm.KindList, llm.KindNull},
	},
}

type screeningPromptData struct {
	Topic                 string
	Inclusion, Exclusion  []string
	PMID, Title, Abstract string
}

// screenOne classifies a single article. It never fails: any error becomes
// an UNCERTAIN sentinel so a human can triage the article later and the
// cache still advances.
func (p *Pipeline) screenOne(ctx context.Context, article types.Article) types.ScreeningDecision {
	prompt, err := render(screeningTmpl, screeningPromptData{
		Topic:     p.plan.Topic,
		Inclusion: p.plan.Screening.Inclusion,
		Exclusion: p.plan.Screening.Exclusion,
		PMID:      article.PMID,
		Title:     llm.SanitizeInput(article.Title),
		Abstract:  llm.SanitizeInput(article.Abstract),
	})
	if err != nil {
		return screeningSentinel(article.PMID, err)
	}

	raw, err := p.caller.Call(ctx, prompt)
	if err != nil {
		p.log.Warn().Str("pmid", article.PMID).
			Str("cause", llm.SanitizeMessage(err.Error())).
			Msg("screening call failed")
		return screeningSentinel(article.PMID, err)
	}

	obj, err := llm.ExtractAndValidate(raw, screeningSchema)
	if err != nil {
		p.log.Warn().Str("pmid", article.PMID).
			Str("cause", llm.SanitizeMessage(err.Error())).
			Str("snippet", llm.Truncate(raw, 300)).
			Msg("screening response rejected")
		return screeningSentinel(article.PMID, err)
	}

	decision := types.Decision(stringField(obj, "decision"))
	if !types.ValidDecision(decision) {
		return screeningSentinel(article.PMID, fmt.Errorf("invalid decision value %q", decision))
	}
	confidence, _ := obj["confidence"].(float64)
	if confidence < 0 || confidence > 1 {
		return screeningSentinel(article.PMID, fmt.Errorf("confidence %v out of range", confidence))
	}

	var terms []string
	if list, ok := obj["key_terms"].([]any); ok {
		for _, t := range list {
			if s, ok := t.(string); ok {
				terms = append(terms, s)
			}
		}
	}

	// The cache is keyed on our PMID, not whatever the model echoed back.
	return types.ScreeningDecision{
		PMID:       article.PMID,
		Decision:   decision,
		Confidence: confidence,
		Reasoning:  stringField(obj, "reasoning"),
		KeyTerms:   terms,
	}
}

func screeningSentinel(pmid string, cause error) types.ScreeningDecision {
	return types.ScreeningDecision{
		PMID:       pmid,
		Decision:   types.DecisionUncertain,
		Confidence: 0,
		Reasoning:  "Processing error: " + llm.Truncate(llm.SanitizeMessage(cause.Error()), 100),
		KeyTerms:   []string{},
	}
}

func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package review

import (
	"context"

	"github.com/pdiddy/review-assistant/internal/llm"
	"github.com/pdiddy/review-assistant/pkg/types"
)

var qualitySchema = llm.Schema{
	Required: []string{"pmid", "overall_bias"},
	Types: map[string][]llm.Kind{
		"pmid":          {llm.KindString, llm.KindNumber},
		"domains":       {llm.KindObject},
		"overall_bias":  {llm.KindString},
		"applicability": {llm.KindString},
		"notes":         {llm.KindString, llm.KindNull},
	},
}

type qualityPromptData struct {
	PMID, Title, Abstract string
}

// assessOne runs the QUADAS-2 appraisal for one included article. Errors
// become assessment_error sentinels.
func (p *Pipeline) assessOne(ctx context.Context, article types.Article) types.QualityAssessment {
	prompt, err := render(qualityTmpl, qualityPromptData{
		PMID:     article.PMID,
		Title:    llm.SanitizeInput(article.Title),
		Abstract: llm.SanitizeInput(article.Abstract),
	})
	if err != nil {
		return qualitySentinel(article.PMID, err)
	}

	raw, err := p.caller.Call(ctx, prompt)
	if err != nil {
		p.log.Warn().Str("pmid", article.PMID).
			Str("cause", llm.SanitizeMessage(err.Error())).
			Msg("quality assessment call failed")
		return qualitySentinel(article.PMID, err)
	}

	obj, err := llm.ExtractAndValidate(raw, qualitySchema)
	if err != nil {
		p.log.Warn().Str("pmid", article.PMID).
			Str("cause", llm.SanitizeMessage(err.Error())).
			Str("snippet", llm.Truncate(raw, 300)).
			Msg("quality response rejected")
		return qualitySentinel(article.PMID, err)
	}

	domains := map[string]string{}
	if m, ok := obj["domains"].(map[string]any); ok {
		for k, v := range m {
			if s, ok := v.(string); ok {
				domains[k] = s
			}
		}
	}

	return types.QualityAssessment{
		PMID:          article.PMID,
		Domains:       domains,
		OverallBias:   stringField(obj, "overall_bias"),
		Applicability: stringField(obj, "applicability"),
		Notes:         stringField(obj, "notes"),
	}
}

func qualitySentinel(pmid string, cause error) types.QualityAssessment {
	return types.QualityAssessment{
		PMID:            pmid,
		AssessmentError: llm.Truncate(llm.SanitizeMessage(cause.Error()), 200),
	}
}

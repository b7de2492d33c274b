// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package review

import (
	"context"
	"encoding/json"

	"github.com/pdiddy/review-assistant/internal/llm"
	"github.com/pdiddy/review-assistant/pkg/types"
)

// extractionSchema pins only the identifier and the types of the standard
// fields; the plan-driven extract object stays free-form. Model output is
// loose about scalar types, so most fields allow several kinds.
var extractionSchema = llm.Schema{
	Required: []string{"pmid"},
	Types: map[string][]llm.Kind{
		"pmid":            {llm.KindString, llm.KindNumber},
		"title":           {llm.KindString},
		"year":            {llm.KindString, llm.KindNumber, llm.KindNull},
		"study_design":    {llm.KindString},
		"clinical_domain": {llm.KindString},
		"sample_size":     {llm.KindObject, llm.KindNumber, llm.KindNull},
		"key_metrics":     {llm.KindObject},
		"main_findings":   {llm.KindString},
		"limitations":     {llm.KindList, llm.KindNull},
		"extract":         {llm.KindObject, llm.KindNull},
	},
}

type extractionPromptData struct {
	PMID, Title, Abstract string
	Extract               string
}

// extractOne pulls the structured record for one included article. Errors
// become extraction_error sentinels; the tabulation stage skips those.
func (p *Pipeline) extractOne(ctx context.Context, article types.Article) types.Extraction {
	extractJSON := "{}"
	if len(p.plan.Extract) > 0 {
		if buf, err := json.MarshalIndent(p.plan.Extract, "", "  "); err == nil {
			extractJSON = string(buf)
		}
	}

	prompt, err := render(extractionTmpl, extractionPromptData{
		PMID:     article.PMID,
		Title:    llm.SanitizeInput(article.Title),
		Abstract: llm.SanitizeInput(article.Abstract),
		Extract:  extractJSON,
	})
	if err != nil {
		return extractionSentinel(article, err)
	}

	raw, err := p.caller.Call(ctx, prompt)
	if err != nil {
		p.log.Warn().Str("pmid", article.PMID).
			Str("cause", llm.SanitizeMessage(err.Error())).
			Msg("extraction call failed")
		return extractionSentinel(article, err)
	}

	obj, err := llm.ExtractAndValidate(raw, extractionSchema)
	if err != nil {
		p.log.Warn().Str("pmid", article.PMID).
			Str("cause", llm.SanitizeMessage(err.Error())).
			Str("snippet", llm.Truncate(raw, 300)).
			Msg("extraction response rejected")
		return extractionSentinel(article, err)
	}

	record := types.Extraction(obj)
	record["pmid"] = article.PMID
	return record
}

func extractionSentinel(article types.Article, cause error) types.Extraction {
	msg := llm.Truncate(llm.SanitizeMessage(cause.Error()), 200)
	return types.NewExtractionError(article.PMID, article.Title, msg)
}

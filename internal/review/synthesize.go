// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package review

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pdiddy/review-assistant/pkg/types"
)

// sampleStudies is how many extraction records are inlined into the
// synthesis prompt as context.
const sampleStudies = 3

type synthesisPromptData struct {
	Topic        string
	TotalStudies int
	DataSample   string
	Analysis     []string
}

// synthesize produces the thematic synthesis narrative from the extracted
// records. Unlike the per-article stages this is one call for the whole
// corpus, so a failure is returned rather than cached as a sentinel.
func (p *Pipeline) synthesize(ctx context.Context, extracted []types.Extraction) (string, error) {
	sample := extracted
	if len(sample) > sampleStudies {
		sample = sample[:sampleStudies]
	}
	summary := map[string]any{
		"total_studies":  len(extracted),
		"studies_sample": sample,
	}
	sampleJSON, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding synthesis sample: %w", err)
	}

	prompt, err := render(synthesisTmpl, synthesisPromptData{
		Topic:        p.plan.Topic,
		TotalStudies: len(extracted),
		DataSample:   string(sampleJSON),
		Analysis:     p.plan.Analysis,
	})
	if err != nil {
		return "", err
	}

	text, err := p.caller.Call(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("synthesis call: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Decision classifies an article during title/abstract screening.
type Decision string

const (
	DecisionInclude   Decision = "INCLUDE"
	DecisionExclude   Decision = "EXCLUDE"
	DecisionUncertain Decision = "UNCERTAIN"
)

// ValidDecision reports whether d is one of the three screening outcomes.
func ValidDecision(d Decision) bool {
	return d == DecisionInclude || d == DecisionExclude || d == DecisionUncertain
}

// ScreeningDecision is the screening stage's verdict for one article.
// Appended to the screening cache; never mutated.
type ScreeningDecision struct {
	PMID       string   `json:"pmid"`
	Decision   Decision `json:"decision"`
	Confidence float64  `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
	KeyTerms   []string `json:"key_terms"`
}

// ID returns the decision's article identifier.
func (d ScreeningDecision) ID() string { return d.PMID }

// Extraction holds the structured data pulled from one included article.
// The LLM's output schema is plan-driven, so the record stays a JSON object;
// accessor methods cope with the type looseness of model output (a year may
// arrive as a number, a string, or null). A failed extraction carries only
// pmid, title, and extraction_error.
type Extraction map[string]any

// ID returns the extraction's article identifier, or "" if absent.
func (e Extraction) ID() string { return e.str("pmid") }

// Failed reports whether this is an error-sentinel record.
func (e Extraction) Failed() bool {
	_, ok := e["extraction_error"]
	return ok
}

// Str returns the named field rendered as a string; lists are joined with
// ", " and nested objects and nulls render as "".
func (e Extraction) Str(key string) string { return LooseString(e[key]) }

// Obj returns the named field as a nested object, or nil.
func (e Extraction) Obj(key string) map[string]any {
	m, _ := e[key].(map[string]any)
	return m
}

func (e Extraction) str(key string) string {
	s, _ := e[key].(string)
	return s
}

// NewExtractionError builds the sentinel record for a failed extraction.
func NewExtractionError(pmid, title, msg string) Extraction {
	return Extraction{"pmid": pmid, "title": title, "extraction_error": msg}
}

// QualityAssessment is a QUADAS-2 style appraisal of one study. A failed
// assessment carries only PMID and AssessmentError.
type QualityAssessment struct {
	PMID            string            `json:"pmid"`
	Domains         map[string]string `json:"domains,omitempty"`
	OverallBias     string            `json:"overall_bias,omitempty"`
	Applicability   string            `json:"applicability,omitempty"`
	Notes           string            `json:"notes,omitempty"`
	AssessmentError string            `json:"assessment_error,omitempty"`
}

// ID returns the assessment's article identifier.
func (q QualityAssessment) ID() string { return q.PMID }

// Failed reports whether this is an error-sentinel record.
func (q QualityAssessment) Failed() bool { return q.AssessmentError != "" }

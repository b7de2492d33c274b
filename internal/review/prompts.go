// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package review

import (
	"bytes"
	"fmt"
	"text/template"
)

// screeningTmpl asks for an inclusion verdict on one title/abstract pair.
var screeningTmpl = template.Must(template.New("screening").Parse(`You are screening articles for a systematic review on:
"{{.Topic}}"

INCLUSION CRITERIA:
{{- range .Inclusion}}
- {{.}}
{{- end}}

EXCLUSION CRITERIA:
{{- range .Exclusion}}
- {{.}}
{{- end}}

PMID: {{.PMID}}
TITLE: {{.Title}}
ABSTRACT: {{.Abstract}}

Classify as:
- INCLUDE: Meets all inclusion criteria
- EXCLUDE: Meets exclusion criteria
- UNCERTAIN: Unclear or borderline - needs full-text review

Respond ONLY in this JSON format:
{
  "pmid": "{{.PMID}}",
  "decision": "INCLUDE|EXCLUDE|UNCERTAIN",
  "confidence": 0.0-1.0,
  "reasoning": "Brief explanation",
  "key_terms": ["relevant", "keywords"]
}`))

// extractionTmpl asks for the structured study record. The plan's extract
// template is echoed so the model returns review-specific fields too.
var extractionTmpl = template.Must(template.New("extraction").Parse(`Extract structured information from this research article.
Return ONLY valid JSON with no markdown formatting.

ARTICLE:
PMID: {{.PMID}}
TITLE: {{.Title}}
ABSTRACT: {{.Abstract}}

Extract and return this JSON structure (use null for unavailable data):
{
  "pmid": "{{.PMID}}",
  "title": "article title",
  "year": "publication year (integer)",
  "study_design": "RCT|Retrospective|Prospective|Case Series|Cross-sectional|Other",
  "sample_size": {
    "total_patients": "number or null"
  },
  "clinical_domain": "specific clinical application",
  "key_metrics": {
    "sensitivity": "value or null",
    "specificity": "value or null",
    "auc": "value or null",
    "accuracy": "value or null"
  },
  "main_findings": "1-2 sentence summary of key results",
  "limitations": ["list", "of", "limitations"],
  "extract": {{.Extract}}
}

Fill every field of the "extract" object with the study's value for the
described attribute, or null when the abstract does not report it.`))

// qualityTmpl asks for a QUADAS-2 style appraisal.
var qualityTmpl = template.Must(template.New("quality").Parse(`Assess the quality of this study using the QUADAS-2 framework.

PMID: {{.PMID}}
TITLE: {{.Title}}
ABSTRACT: {{.Abstract}}

Evaluate these QUADAS-2 domains (answer: Yes|No|Unclear for each):

1. PATIENT SELECTION
   - Was a consecutive/random sample enrolled?
   - Was case-control design avoided?

2. INDEX TEST
   - Were index test results blinded to reference standard?
   - Were cutoffs pre-specified?

3. REFERENCE STANDARD
   - Is reference standard appropriate?
   - Were results blinded to index test?

4. FLOW AND TIMING
   - Was interval between tests appropriate?
   - Did all patients receive reference standard?

Return ONLY JSON:
{
  "pmid": "{{.PMID}}",
  "domains": {
    "patient_selection": "Yes|No|Unclear",
    "index_test": "Yes|No|Unclear",
    "reference_standard": "Yes|No|Unclear",
    "flow_timing": "Yes|No|Unclear"
  },
  "overall_bias": "Low|Moderate|High",
  "applicability": "Low|Moderate|High",
  "notes": "brief justification"
}`))

// synthesisTmpl asks for the thematic synthesis narrative. The plan's
// analysis questions drive the section structure.
var synthesisTmpl = template.Must(template.New("synthesis").Parse(`You are writing a thematic synthesis section for a systematic review on
"{{.Topic}}".

We have analyzed {{.TotalStudies}} studies. Here is a sample of the extracted data:

{{.DataSample}}

Your synthesis must address each of these analysis questions:
{{- range .Analysis}}
   - {{.}}
{{- end}}

Also cover study characteristics (designs, sample sizes, settings), the
range of reported outcomes, common themes and contradictions across
studies, prevalent methodological limitations, and research gaps with
recommendations for future work.

Write in clear, structured prose suitable for a systematic review report.
Use concrete examples from the studies where possible.`))

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

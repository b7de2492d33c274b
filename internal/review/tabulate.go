// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package review

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"

	"github.com/pdiddy/review-assistant/internal/llm"
	"github.com/pdiddy/review-assistant/pkg/types"
)

// standardColumns is the fixed leading column set of the summary table.
// Plan-driven extract fields follow, sorted by name.
var standardColumns = []string{
	"PMID",
	"Year",
	"Study Design",
	"Clinical Domain",
	"Sample Size (N)",
	"Sensitivity",
	"Specificity",
	"AUC",
	"Accuracy",
	"Main Findings",
}

// tabulate writes the study characteristics table. Failed extractions are
// skipped; an empty table is not written.
func tabulate(path string, extracted []types.Extraction) (int, error) {
	var rows []map[string]string
	extraSet := map[string]bool{}

	for _, item := range extracted {
		if item.Failed() {
			continue
		}

		row := map[string]string{
			"PMID":            item.Str("pmid"),
			"Year":            item.Str("year"),
			"Study Design":    item.Str("study_design"),
			"Clinical Domain": item.Str("clinical_domain"),
			"Main Findings":   llm.Truncate(item.Str("main_findings"), 100),
		}
		if size := item.Obj("sample_size"); size != nil {
			row["Sample Size (N)"] = looseCell(size["total_patients"])
		}
		if metrics := item.Obj("key_metrics"); metrics != nil {
			row["Sensitivity"] = looseCell(metrics["sensitivity"])
			row["Specificity"] = looseCell(metrics["specificity"])
			row["AUC"] = looseCell(metrics["auc"])
			row["Accuracy"] = looseCell(metrics["accuracy"])
		}
		for name, value := range item.Obj("extract") {
			row[name] = looseCell(value)
			extraSet[name] = true
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return 0, fmt.Errorf("no successful extractions to tabulate")
	}

	extras := make([]string, 0, len(extraSet))
	for name := range extraSet {
		extras = append(extras, name)
	}
	sort.Strings(extras)
	header := append(append([]string{}, standardColumns...), extras...)

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("creating summary table: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return 0, fmt.Errorf("writing table header: %w", err)
	}
	for _, row := range rows {
		record := make([]string, len(header))
		for i, col := range header {
			record[i] = row[col]
		}
		if err := w.Write(record); err != nil {
			return 0, fmt.Errorf("writing table row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return 0, fmt.Errorf("flushing summary table: %w", err)
	}
	return len(rows), nil
}

func looseCell(v any) string { return types.LooseString(v) }

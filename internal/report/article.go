// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/review-assistant/pkg/types"
)

// Stats summarizes the included studies for the manuscript's results
// section.
type Stats struct {
	TotalStudies int
	YearRange    string
	Designs      map[string]int
	Domains      map[string]int
	SampleSizes  RangeStats
	Sensitivity  RangeStats
	Specificity  RangeStats
	AUC          RangeStats
}

// RangeStats describes the spread of one numeric characteristic across
// the studies that reported it.
type RangeStats struct {
	Count  int
	Min    float64
	Max    float64
	Median float64
}

func (r RangeStats) String() string {
	if r.Count == 0 {
		return "not reported"
	}
	return fmt.Sprintf("median %s (range %s\u2013%s, n=%d)",
		trimFloat(r.Median), trimFloat(r.Min), trimFloat(r.Max), r.Count)
}

func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ComputeStats derives descriptive statistics from successful extractions.
// Failed extractions and unparsable fields are skipped, never fatal.
func ComputeStats(extracted []types.Extraction) Stats {
	stats := Stats{
		Designs: map[string]int{},
		Domains: map[string]int{},
	}

	var years, sizes, sens, spec, auc []float64
	for _, e := range extracted {
		if e.Failed() {
			continue
		}
		stats.TotalStudies++

		if y, ok := looseFloat(e["year"]); ok && y > 0 {
			years = append(years, y)
		}
		if design := e.Str("study_design"); design != "" {
			stats.Designs[design]++
		}
		if domain := e.Str("clinical_domain"); domain != "" {
			stats.Domains[domain]++
		}
		if size := e.Obj("sample_size"); size != nil {
			if n, ok := looseFloat(size["total_patients"]); ok && n > 0 {
				sizes = append(sizes, n)
			}
		}
		if metrics := e.Obj("key_metrics"); metrics != nil {
			appendMetric(&sens, metrics["sensitivity"])
			appendMetric(&spec, metrics["specificity"])
			appendMetric(&auc, metrics["auc"])
		}
	}

	if len(years) > 0 {
		r := rangeStats(years)
		stats.YearRange = fmt.Sprintf("%d\u2013%d", int(r.Min), int(r.Max))
	} else {
		stats.YearRange = "unknown"
	}
	stats.SampleSizes = rangeStats(sizes)
	stats.Sensitivity = rangeStats(sens)
	stats.Specificity = rangeStats(spec)
	stats.AUC = rangeStats(auc)
	return stats
}

func appendMetric(dst *[]float64, v any) {
	if f, ok := looseFloat(v); ok && f > 0 {
		*dst = append(*dst, f)
	}
}

func looseFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func rangeStats(values []float64) RangeStats {
	if len(values) == 0 {
		return RangeStats{}
	}
	sort.Float64s(values)
	return RangeStats{
		Count:  len(values),
		Min:    values[0],
		Max:    values[len(values)-1],
		Median: values[len(values)/2],
	}
}

// ManuscriptInput bundles the workdir artifacts the scaffold is built from.
type ManuscriptInput struct {
	Title     string
	Topic     string
	Numbers   Numbers
	Stats     Stats
	Synthesis string
	TableFile string
}

// RenderManuscript emits the LaTeX article scaffold. The narrative sections
// hold the synthesis text verbatim (escaped); everything quantitative is
// interpolated from the computed statistics.
func RenderManuscript(in ManuscriptInput) string {
	title := in.Title
	if title == "" {
		title = "A Systematic Review of " + in.Topic
	}

	var b strings.Builder
	fmt.Fprintf(&b, `\documentclass[11pt]{article}
\usepackage[utf8]{inputenc}
\usepackage{tikz}
\usetikzlibrary{positioning, arrows.meta}
\usepackage{booktabs}
\usepackage{csvsimple}
\usepackage{natbib}

\title{%s}
\date{\today}

\begin{document}
\maketitle

\begin{abstract}
This systematic review examines %s. Of %d records screened, %d studies met
the inclusion criteria (publication years %s).
\end{abstract}

\section{Methods}
Records were screened against predefined inclusion and exclusion criteria.
The selection process is summarized in the PRISMA 2020 flow diagram
(Figure~\ref{fig:prisma}).

\begin{figure}[ht]
\centering
\input{prisma_flow_diagram.tex}
\caption{PRISMA 2020 flow diagram.}
\label{fig:prisma}
\end{figure}

\section{Results}
`,
		escapeLaTeX(title), escapeLaTeX(in.Topic),
		in.Numbers.Screened, in.Numbers.Included, in.Stats.YearRange)

	fmt.Fprintf(&b, "%d studies were included. Reported sample sizes: %s.\n",
		in.Stats.TotalStudies, escapeLaTeX(in.Stats.SampleSizes.String()))
	writeTally(&b, "Study designs", in.Stats.Designs)
	writeTally(&b, "Clinical domains", in.Stats.Domains)

	if in.Stats.Sensitivity.Count+in.Stats.Specificity.Count+in.Stats.AUC.Count > 0 {
		b.WriteString("\n\\subsection{Diagnostic performance}\n")
		fmt.Fprintf(&b, "Sensitivity: %s. Specificity: %s. AUC: %s.\n",
			escapeLaTeX(in.Stats.Sensitivity.String()),
			escapeLaTeX(in.Stats.Specificity.String()),
			escapeLaTeX(in.Stats.AUC.String()))
	}

	if in.TableFile != "" {
		fmt.Fprintf(&b, `
\subsection{Study characteristics}
Table~\ref{tab:characteristics} summarizes the included studies.

\begin{table}[ht]
\centering
\csvautobooktabular{%s}
\caption{Characteristics of included studies.}
\label{tab:characteristics}
\end{table}
`, in.TableFile)
	}

	if in.Synthesis != "" {
		b.WriteString("\n\\section{Thematic synthesis}\n")
		b.WriteString(escapeLaTeX(in.Synthesis))
		b.WriteString("\n")
	}

	b.WriteString(`
\bibliographystyle{plainnat}
\bibliography{references}

\end{document}
`)
	return b.String()
}

// writeTally renders a count map as a LaTeX itemize list, most frequent
// first, names breaking ties.
func writeTally(b *strings.Builder, heading string, tally map[string]int) {
	if len(tally) == 0 {
		return
	}
	names := make([]string, 0, len(tally))
	for name := range tally {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if tally[names[i]] != tally[names[j]] {
			return tally[names[i]] > tally[names[j]]
		}
		return names[i] < names[j]
	})

	fmt.Fprintf(b, "\n\\paragraph{%s}\n\\begin{itemize}\n", heading)
	for _, name := range names {
		fmt.Fprintf(b, "\\item %s (n=%d)\n", escapeLaTeX(name), tally[name])
	}
	b.WriteString("\\end{itemize}\n")
}

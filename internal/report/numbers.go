// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders the publication artifacts of a finished review:
// the PRISMA 2020 flow diagram, the BibTeX bibliography, and the LaTeX
// manuscript scaffold.
package report

import "github.com/pdiddy/review-assistant/pkg/types"

// Numbers holds the counts shown in a PRISMA 2020 flow diagram.
type Numbers struct {
	Identified int

	Screened         int
	ScreenExcluded   int
	FullTextSought   int
	FullTextExcluded int

	Included int
}

// NumbersFromDecisions derives the flow counts from screening results.
// UNCERTAIN decisions are counted as excluded at the screening step and
// routed into full-text review; only INCLUDEs reach the included box.
func NumbersFromDecisions(decisions []types.ScreeningDecision) Numbers {
	var include, exclude, uncertain int
	for _, d := range decisions {
		switch d.Decision {
		case types.DecisionInclude:
			include++
		case types.DecisionExclude:
			exclude++
		default:
			uncertain++
		}
	}

	return Numbers{
		Identified:       len(decisions),
		Screened:         len(decisions),
		ScreenExcluded:   exclude + uncertain,
		FullTextSought:   include + uncertain,
		FullTextExcluded: uncertain,
		Included:         include,
	}
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/pdiddy/review-assistant/internal/plan"
	"github.com/pdiddy/review-assistant/internal/review"
	"github.com/pdiddy/review-assistant/pkg/types"
)

// Output artifact names written into the workdir.
const (
	DiagramSVG       = "prisma_flow_diagram.svg"
	DiagramTikZ      = "prisma_flow_diagram.tex"
	DiagramHTML      = "prisma_flow_diagram.html"
	BibliographyFile = "references.bib"
	ManuscriptFile   = "07_review.tex"
)

// Generate renders every publication artifact from a finished review's
// workdir: the flow diagram in three formats, the bibliography, and the
// manuscript scaffold. Missing or partial pipeline outputs degrade the
// result rather than failing it; only the screening results are required.
func Generate(workdir string, routeUncertain bool, log zerolog.Logger) error {
	log = log.With().Str("component", "report").Logger()

	p, err := plan.Load(workdir)
	if err != nil {
		return err
	}

	var decisions []types.ScreeningDecision
	if err := readArtifact(workdir, review.ScreeningFile, &decisions); err != nil {
		return fmt.Errorf("report needs screening results: %w", err)
	}
	numbers := NumbersFromDecisions(decisions)

	var extracted []types.Extraction
	if err := readArtifact(workdir, review.ExtractionFile, &extracted); err != nil {
		log.Warn().Err(err).Msg("no extraction data, statistics will be empty")
	}

	var articles []types.Article
	if err := readArtifact(workdir, review.ArticlesFile, &articles); err != nil {
		log.Warn().Err(err).Msg("no parsed articles, bibliography will be empty")
	}

	synthesis, _ := os.ReadFile(filepath.Join(workdir, review.SynthesisFile))

	tableFile := ""
	if _, err := os.Stat(filepath.Join(workdir, review.TableFile)); err == nil {
		tableFile = review.TableFile
	}

	artifacts := map[string]string{
		DiagramSVG:       RenderSVG(numbers),
		DiagramTikZ:      RenderTikZ(numbers),
		DiagramHTML:      RenderHTML(numbers, p.Title),
		BibliographyFile: BibTeX(includedArticles(articles, decisions, routeUncertain)),
		ManuscriptFile: RenderManuscript(ManuscriptInput{
			Title:     p.Title,
			Topic:     p.Topic,
			Numbers:   numbers,
			Stats:     ComputeStats(extracted),
			Synthesis: string(synthesis),
			TableFile: tableFile,
		}),
	}
	for name, content := range artifacts {
		if err := os.WriteFile(filepath.Join(workdir, name), []byte(content), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}

	log.Info().
		Int("identified", numbers.Identified).
		Int("included", numbers.Included).
		Int("artifacts", len(artifacts)).
		Msg("report artifacts written")
	return nil
}

// includedArticles filters the parsed articles to those screening let
// through, preserving export order for stable citation keys.
func includedArticles(articles []types.Article, decisions []types.ScreeningDecision, routeUncertain bool) []types.Article {
	wanted := map[string]bool{}
	for _, d := range decisions {
		if d.Decision == types.DecisionInclude ||
			(routeUncertain && d.Decision == types.DecisionUncertain) {
			wanted[d.PMID] = true
		}
	}

	var included []types.Article
	for _, a := range articles {
		if wanted[a.PMID] {
			included = append(included, a)
		}
	}
	return included
}

func readArtifact(workdir, name string, out any) error {
	data, err := os.ReadFile(filepath.Join(workdir, name))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding %s: %w", name, err)
	}
	return nil
}

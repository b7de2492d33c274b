// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package review orchestrates the six-stage systematic review pipeline:
// parse, screen, extract, assess quality, synthesize, tabulate. Each
// LLM-driven stage checkpoints its results to a numbered file in the
// workdir, so an interrupted run resumes where it stopped and a finished
// run costs nothing to repeat.
package review

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/review-assistant/internal/cache"
	"github.com/pdiddy/review-assistant/internal/llm"
	"github.com/pdiddy/review-assistant/internal/plan"
	"github.com/pdiddy/review-assistant/internal/pubmed"
	"github.com/pdiddy/review-assistant/pkg/types"
)

// Workdir artifact names, in pipeline order.
const (
	ArticlesFile   = "01_parsed_articles.json"
	ScreeningFile  = "02_screening_results.json"
	ExtractionFile = "03_extracted_data.json"
	QualityFile    = "04_quality_assessment.json"
	SynthesisFile  = "05_thematic_synthesis.txt"
	TableFile      = "summary_characteristics_table.csv"
)

// Pipeline runs a review described by the workdir's plan over a PubMed
// export. Articles are processed strictly sequentially; the only state
// shared between stages lives in the workdir files.
type Pipeline struct {
	caller llm.Caller
	cfg    types.PipelineConfig
	plan   *plan.Plan
	log    zerolog.Logger
}

// New loads the workdir's plan and builds a pipeline around caller.
func New(caller llm.Caller, cfg types.PipelineConfig, log zerolog.Logger) (*Pipeline, error) {
	p, err := plan.Load(cfg.Workdir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Workdir, 0o755); err != nil {
		return nil, fmt.Errorf("creating workdir: %w", err)
	}
	return &Pipeline{
		caller: caller,
		cfg:    cfg,
		plan:   p,
		log:    log.With().Str("component", "pipeline").Logger(),
	}, nil
}

// Run executes all six stages against the export at inputFile. Per-article
// failures are contained as sentinel records; Run fails only on structural
// problems (unreadable input, no articles, nothing included, I/O errors).
func (p *Pipeline) Run(ctx context.Context, inputFile string) error {
	start := time.Now()
	p.log.Info().Str("workdir", p.cfg.Workdir).Str("topic", p.plan.Topic).Msg("pipeline started")

	articles, err := p.loadArticles(inputFile)
	if err != nil {
		return err
	}

	decisions, err := p.screen(ctx, articles)
	if err != nil {
		return err
	}

	included := p.selectIncluded(articles, decisions)
	if len(included) == 0 {
		return fmt.Errorf("no articles included after screening")
	}

	extracted, err := p.extract(ctx, included)
	if err != nil {
		return err
	}

	if _, err := p.assess(ctx, included); err != nil {
		return err
	}

	if err := p.runSynthesis(ctx, extracted); err != nil {
		return err
	}

	tablePath := filepath.Join(p.cfg.Workdir, TableFile)
	if n, err := tabulate(tablePath, extracted); err != nil {
		// The table is a convenience artifact; its failure must not undo
		// hours of cached LLM work.
		p.log.Error().Err(err).Msg("summary table not written")
	} else {
		p.log.Info().Int("rows", n).Str("file", TableFile).Msg("summary table written")
	}

	p.log.Info().Dur("elapsed", time.Since(start)).Msg("pipeline complete")
	return nil
}

// loadArticles parses the export, or reuses a previous parse when the
// articles file already exists and is readable.
func (p *Pipeline) loadArticles(inputFile string) ([]types.Article, error) {
	path := filepath.Join(p.cfg.Workdir, ArticlesFile)

	if data, err := os.ReadFile(path); err == nil {
		var articles []types.Article
		if err := json.Unmarshal(data, &articles); err == nil && len(articles) > 0 {
			p.log.Info().Int("articles", len(articles)).Msg("loaded parsed articles from cache")
			return articles, nil
		}
		p.log.Warn().Str("file", ArticlesFile).Msg("articles cache unreadable, re-parsing export")
	}

	if inputFile == "" {
		return nil, fmt.Errorf("no input file given and no parsed articles in %s", p.cfg.Workdir)
	}
	articles, err := pubmed.Parse(inputFile, "")
	if err != nil {
		return nil, fmt.Errorf("parsing export: %w", err)
	}
	if len(articles) == 0 {
		return nil, fmt.Errorf("no articles found in %s", inputFile)
	}

	data, err := json.MarshalIndent(articles, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding articles: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", ArticlesFile, err)
	}
	p.log.Info().Int("articles", len(articles)).Msg("export parsed")
	return articles, nil
}

func (p *Pipeline) screen(ctx context.Context, articles []types.Article) ([]types.ScreeningDecision, error) {
	decisions, err := cache.Process(
		filepath.Join(p.cfg.Workdir, ScreeningFile),
		articles,
		types.Article.ID,
		types.ScreeningDecision.ID,
		func(a types.Article) types.ScreeningDecision { return p.screenOne(ctx, a) },
		p.cacheOptions("screening decisions"),
	)
	if err != nil {
		return nil, err
	}

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
	p.log.Info().
		Int("include", include).
		Int("exclude", exclude).
		Int("uncertain", uncertain).
		Msg("screening complete")
	return decisions, nil
}

// selectIncluded filters articles to those screening let through, in the
// original export order.
func (p *Pipeline) selectIncluded(articles []types.Article, decisions []types.ScreeningDecision) []types.Article {
	wanted := map[string]bool{}
	for _, d := range decisions {
		if d.Decision == types.DecisionInclude ||
			(p.cfg.RouteUncertain && d.Decision == types.DecisionUncertain) {
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

func (p *Pipeline) extract(ctx context.Context, included []types.Article) ([]types.Extraction, error) {
	extracted, err := cache.Process(
		filepath.Join(p.cfg.Workdir, ExtractionFile),
		included,
		types.Article.ID,
		types.Extraction.ID,
		func(a types.Article) types.Extraction { return p.extractOne(ctx, a) },
		p.cacheOptions("extracted records"),
	)
	if err != nil {
		return nil, err
	}

	failed := 0
	for _, e := range extracted {
		if e.Failed() {
			failed++
		}
	}
	p.log.Info().Int("extracted", len(extracted)-failed).Int("failed", failed).Msg("extraction complete")
	return extracted, nil
}

func (p *Pipeline) assess(ctx context.Context, included []types.Article) ([]types.QualityAssessment, error) {
	assessments, err := cache.Process(
		filepath.Join(p.cfg.Workdir, QualityFile),
		included,
		types.Article.ID,
		types.QualityAssessment.ID,
		func(a types.Article) types.QualityAssessment { return p.assessOne(ctx, a) },
		p.cacheOptions("quality assessments"),
	)
	if err != nil {
		return nil, err
	}
	p.log.Info().Int("assessed", len(assessments)).Msg("quality assessment complete")
	return assessments, nil
}

// runSynthesis writes the synthesis file, reusing an existing one: the
// narrative is a single expensive call, and a present file means a human
// may already have edited it.
func (p *Pipeline) runSynthesis(ctx context.Context, extracted []types.Extraction) error {
	path := filepath.Join(p.cfg.Workdir, SynthesisFile)
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		p.log.Info().Str("file", SynthesisFile).Msg("reusing existing synthesis")
		return nil
	}

	text, err := p.synthesize(ctx, extracted)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", SynthesisFile, err)
	}
	p.log.Info().Int("chars", len(text)).Msg("synthesis written")
	return nil
}

func (p *Pipeline) cacheOptions(label string) cache.Options {
	return cache.Options{
		Interval: p.cfg.CheckpointEvery,
		Pause:    p.cfg.CheckpointPause,
		Strict:   p.cfg.StrictCache,
		Label:    label,
		Log:      p.log,
	}
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package plan defines the review plan: the PubMed query, the review topic
// and title, screening criteria, extraction fields, and analysis questions.
// Every pipeline stage reads its instructions from here.
package plan

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"go.yaml.in/yaml/v3"
)

const (
	// JSONFile is the canonical plan file inside a workdir; YAMLFile is the
	// human-editable mirror written alongside it.
	JSONFile = "00_plan.json"
	YAMLFile = "00_plan.yaml"
)

// Screening holds the inclusion and exclusion criteria applied during
// title/abstract screening.
type Screening struct {
	Inclusion []string `json:"inclusion" yaml:"inclusion" validate:"required,min=1,dive,required"`
	Exclusion []string `json:"exclusion" yaml:"exclusion" validate:"required,min=1,dive,required"`
}

// Plan is the machine-readable protocol for one systematic review.
type Plan struct {
	// Query is the PubMed search string.
	Query string `json:"query" yaml:"query" validate:"required"`

	// Topic is the one-line subject used in stage prompts; Title is the
	// manuscript title.
	Topic string `json:"topic" yaml:"topic" validate:"required"`
	Title string `json:"title" yaml:"title" validate:"required"`

	Screening Screening `json:"screening" yaml:"screening" validate:"required"`

	// Extract names additional study fields the extraction stage should
	// pull, as a template object echoed into the prompt.
	Extract map[string]any `json:"extract,omitempty" yaml:"extract,omitempty"`

	// Analysis lists the questions the synthesis stage must address.
	Analysis []string `json:"analysis" yaml:"analysis" validate:"required,min=1,dive,required"`
}

var validate = validator.New()

// Validate checks the plan for structural completeness.
func (p *Plan) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid plan: %w", err)
	}
	return nil
}

// Load reads and validates the plan from workdir. The JSON file is
// authoritative; the YAML mirror is consulted when it is absent.
func Load(workdir string) (*Plan, error) {
	jsonPath := filepath.Join(workdir, JSONFile)
	data, err := os.ReadFile(jsonPath)
	if err == nil {
		var p Plan
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", JSONFile, err)
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		return &p, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading %s: %w", JSONFile, err)
	}

	data, yerr := os.ReadFile(filepath.Join(workdir, YAMLFile))
	if yerr != nil {
		return nil, fmt.Errorf("no plan found in %s: generate one first", workdir)
	}
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", YAMLFile, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Save writes the plan to workdir in both formats.
func (p *Plan) Save(workdir string) error {
	if err := os.MkdirAll(workdir, 0o755); err != nil {
		return fmt.Errorf("creating workdir: %w", err)
	}

	jsonData, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling plan: %w", err)
	}
	if err := os.WriteFile(filepath.Join(workdir, JSONFile), jsonData, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", JSONFile, err)
	}

	yamlData, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshaling plan yaml: %w", err)
	}
	if err := os.WriteFile(filepath.Join(workdir, YAMLFile), yamlData, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", YAMLFile, err)
	}
	return nil
}

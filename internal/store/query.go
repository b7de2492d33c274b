// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pdiddy/review-assistant/pkg/types"
)

// QueryOptions holds parameters for review index queries.
type QueryOptions struct {
	// Query is the FTS5 full-text search string over titles, abstracts,
	// and extracted findings.
	Query string

	// Decision filters by screening outcome.
	Decision types.Decision

	// PMID filters to one study.
	PMID string

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// IsEmpty reports whether the query has no search terms or filters.
func (q QueryOptions) IsEmpty() bool {
	return q.Query == "" && q.Decision == "" && q.PMID == ""
}

// Study is one indexed record with everything the pipeline learned
// about it.
type Study struct {
	PMID       string           `json:"pmid"`
	Title      string           `json:"title,omitempty"`
	Journal    string           `json:"journal,omitempty"`
	PubDate    string           `json:"pub_date,omitempty"`
	Decision   types.Decision   `json:"decision,omitempty"`
	Confidence float64          `json:"confidence,omitempty"`
	Reasoning  string           `json:"reasoning,omitempty"`
	KeyTerms   []string         `json:"key_terms,omitempty"`
	Findings   string           `json:"findings,omitempty"`
	Extraction types.Extraction `json:"extraction,omitempty"`
}

// Query searches the index. Full-text queries rank by FTS5 relevance;
// filter-only queries sort by PMID.
func (s *Store) Query(ctx context.Context, opts QueryOptions) ([]Study, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb     strings.Builder
		args   []any
		useFTS = opts.Query != ""
	)

	if useFTS {
		qb.WriteString(
			`SELECT st.pmid, st.title, st.journal, st.pub_date, st.decision,
				st.confidence, st.reasoning, st.key_terms, st.findings, st.extraction
			FROM studies_fts
			JOIN studies st ON st.rowid = studies_fts.rowid
			WHERE studies_fts MATCH ?`)
		args = append(args, opts.Query)
	} else {
		qb.WriteString(
			`SELECT st.pmid, st.title, st.journal, st.pub_date, st.decision,
				st.confidence, st.reasoning, st.key_terms, st.findings, st.extraction
			FROM studies st
			WHERE 1=1`)
	}

	if opts.Decision != "" {
		qb.WriteString(` AND st.decision = ?`)
		args = append(args, string(opts.Decision))
	}
	if opts.PMID != "" {
		qb.WriteString(` AND st.pmid = ?`)
		args = append(args, opts.PMID)
	}

	if useFTS {
		qb.WriteString(` ORDER BY studies_fts.rank`)
	} else {
		qb.WriteString(` ORDER BY st.pmid`)
	}
	qb.WriteString(` LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying review index: %w", err)
	}
	defer rows.Close()

	var results []Study
	for rows.Next() {
		var (
			study          Study
			title          sql.NullString
			journal        sql.NullString
			pubDate        sql.NullString
			decision       sql.NullString
			confidence     sql.NullFloat64
			reasoning      sql.NullString
			termsJSON      sql.NullString
			findings       sql.NullString
			extractionJSON sql.NullString
		)
		if err := rows.Scan(
			&study.PMID, &title, &journal, &pubDate, &decision,
			&confidence, &reasoning, &termsJSON, &findings, &extractionJSON,
		); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		study.Title = title.String
		study.Journal = journal.String
		study.PubDate = pubDate.String
		study.Decision = types.Decision(decision.String)
		study.Confidence = confidence.Float64
		study.Reasoning = reasoning.String
		study.Findings = findings.String
		if termsJSON.Valid {
			json.Unmarshal([]byte(termsJSON.String), &study.KeyTerms)
		}
		if extractionJSON.Valid {
			json.Unmarshal([]byte(extractionJSON.String), &study.Extraction)
		}

		results = append(results, study)
	}
	return results, rows.Err()
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store indexes a review workdir into SQLite so that finished
// reviews stay queryable: which studies were included and why, and which
// studies back a given claim. Full-text search covers titles, abstracts,
// and extracted findings.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/pdiddy/review-assistant/internal/review"
	"github.com/pdiddy/review-assistant/pkg/types"
)

const dbFile = "review.db"

// Store manages the review index SQLite database.
type Store struct {
	db         *sql.DB
	workdir    string
	maxResults int
	log        zerolog.Logger
}

// Open opens or creates the review database at workdir/review.db and
// ensures the schema exists.
func Open(workdir string, cfg types.StoreConfig, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(workdir, 0o755); err != nil {
		return nil, fmt.Errorf("creating workdir: %w", err)
	}

	dbPath := filepath.Join(workdir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{
		db:         db,
		workdir:    workdir,
		maxResults: maxResults,
		log:        log.With().Str("component", "store").Logger(),
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS studies (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			pmid TEXT NOT NULL UNIQUE,
			title TEXT,
			abstract TEXT,
			authors TEXT,
			journal TEXT,
			pub_date TEXT,
			doi TEXT,
			decision TEXT,
			confidence REAL,
			reasoning TEXT,
			key_terms TEXT,
			findings TEXT,
			study_design TEXT,
			extraction TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_studies_decision ON studies(decision)`,
		`CREATE TABLE IF NOT EXISTS ingest_status (
			file TEXT PRIMARY KEY,
			mod_time TEXT
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='studies_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE studies_fts USING fts5(
				title, abstract, findings, content=studies, content_rowid=rowid)`,
			`CREATE TRIGGER studies_ai AFTER INSERT ON studies BEGIN
				INSERT INTO studies_fts(rowid, title, abstract, findings)
				VALUES (new.rowid, new.title, new.abstract, new.findings);
			END`,
			`CREATE TRIGGER studies_ad AFTER DELETE ON studies BEGIN
				INSERT INTO studies_fts(studies_fts, rowid, title, abstract, findings)
				VALUES('delete', old.rowid, old.title, old.abstract, old.findings);
			END`,
			`CREATE TRIGGER studies_au AFTER UPDATE ON studies BEGIN
				INSERT INTO studies_fts(studies_fts, rowid, title, abstract, findings)
				VALUES('delete', old.rowid, old.title, old.abstract, old.findings);
				INSERT INTO studies_fts(rowid, title, abstract, findings)
				VALUES (new.rowid, new.title, new.abstract, new.findings);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}
	return nil
}

// IngestSummary holds counts from one indexing run.
type IngestSummary struct {
	Articles    int
	Decisions   int
	Extractions int
	Skipped     int
}

// Ingest reads the workdir's pipeline artifacts into the database. Each
// source file's modification time is tracked, so unchanged files are
// skipped and re-running after a pipeline resume only reindexes what
// moved.
func (s *Store) Ingest(ctx context.Context) (IngestSummary, error) {
	var summary IngestSummary

	steps := []struct {
		file   string
		ingest func(context.Context, []byte) (int, error)
		count  *int
	}{
		{review.ArticlesFile, s.ingestArticles, &summary.Articles},
		{review.ScreeningFile, s.ingestDecisions, &summary.Decisions},
		{review.ExtractionFile, s.ingestExtractions, &summary.Extractions},
	}

	for _, step := range steps {
		path := filepath.Join(s.workdir, step.file)
		info, err := os.Stat(path)
		if err != nil {
			s.log.Debug().Str("file", step.file).Msg("artifact absent, skipping")
			continue
		}
		modTime := info.ModTime().UTC().Format(time.RFC3339Nano)

		var storedModTime string
		err = s.db.QueryRowContext(ctx,
			`SELECT mod_time FROM ingest_status WHERE file = ?`, step.file,
		).Scan(&storedModTime)
		if err == nil && storedModTime == modTime {
			s.log.Debug().Str("file", step.file).Msg("unchanged since last index")
			summary.Skipped++
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return summary, fmt.Errorf("reading %s: %w", step.file, err)
		}
		n, err := step.ingest(ctx, data)
		if err != nil {
			return summary, fmt.Errorf("indexing %s: %w", step.file, err)
		}
		*step.count = n

		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO ingest_status (file, mod_time) VALUES (?, ?)
			 ON CONFLICT(file) DO UPDATE SET mod_time=excluded.mod_time`,
			step.file, modTime,
		); err != nil {
			return summary, fmt.Errorf("recording ingest status: %w", err)
		}
		s.log.Info().Str("file", step.file).Int("records", n).Msg("indexed")
	}
	return summary, nil
}

func (s *Store) ingestArticles(ctx context.Context, data []byte) (int, error) {
	var articles []types.Article
	if err := json.Unmarshal(data, &articles); err != nil {
		return 0, fmt.Errorf("parsing articles: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO studies (pmid, title, abstract, authors, journal, pub_date, doi)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(pmid) DO UPDATE SET
			title=excluded.title, abstract=excluded.abstract, authors=excluded.authors,
			journal=excluded.journal, pub_date=excluded.pub_date, doi=excluded.doi`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range articles {
		if a.PMID == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx,
			a.PMID, a.Title, a.Abstract, a.Authors, a.Journal, a.PubDate, a.DOI,
		); err != nil {
			return 0, fmt.Errorf("inserting article %s: %w", a.PMID, err)
		}
	}
	return len(articles), tx.Commit()
}

func (s *Store) ingestDecisions(ctx context.Context, data []byte) (int, error) {
	var decisions []types.ScreeningDecision
	if err := json.Unmarshal(data, &decisions); err != nil {
		return 0, fmt.Errorf("parsing decisions: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO studies (pmid, decision, confidence, reasoning, key_terms)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(pmid) DO UPDATE SET
			decision=excluded.decision, confidence=excluded.confidence,
			reasoning=excluded.reasoning, key_terms=excluded.key_terms`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, d := range decisions {
		if d.PMID == "" {
			continue
		}
		termsJSON, _ := json.Marshal(d.KeyTerms)
		if _, err := stmt.ExecContext(ctx,
			d.PMID, string(d.Decision), d.Confidence, d.Reasoning, string(termsJSON),
		); err != nil {
			return 0, fmt.Errorf("inserting decision %s: %w", d.PMID, err)
		}
	}
	return len(decisions), tx.Commit()
}

func (s *Store) ingestExtractions(ctx context.Context, data []byte) (int, error) {
	var extracted []types.Extraction
	if err := json.Unmarshal(data, &extracted); err != nil {
		return 0, fmt.Errorf("parsing extractions: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO studies (pmid, findings, study_design, extraction)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(pmid) DO UPDATE SET
			findings=excluded.findings, study_design=excluded.study_design,
			extraction=excluded.extraction`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	n := 0
	for _, e := range extracted {
		pmid := e.ID()
		if pmid == "" || e.Failed() {
			continue
		}
		record, err := json.Marshal(e)
		if err != nil {
			return 0, fmt.Errorf("encoding extraction %s: %w", pmid, err)
		}
		if _, err := stmt.ExecContext(ctx,
			pmid, e.Str("main_findings"), e.Str("study_design"), string(record),
		); err != nil {
			return 0, fmt.Errorf("inserting extraction %s: %w", pmid, err)
		}
		n++
	}
	return n, tx.Commit()
}

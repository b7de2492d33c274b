// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache is the incremental batch engine: process a list of items
// with per-item idempotency keyed by an identifier, checkpointed to a JSON
// file. Re-running a stage with a warm cache costs zero calls.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Test seams. The checkpoint test counts rewrites through writeFile; the
// pause tests swap sleep out.
var (
	writeFile = os.WriteFile
	sleep     = time.Sleep
)

const defaultInterval = 10

// Options tunes a processing pass.
type Options struct {
	// Interval is the number of newly processed items between checkpoint
	// writes (default 10).
	Interval int

	// Pause is the courtesy delay after each checkpoint write.
	Pause time.Duration

	// Strict makes an unreadable cache file an error instead of falling
	// back to reprocessing everything.
	Strict bool

	// Label names the record kind in log lines.
	Label string

	Log zerolog.Logger
}

// Process runs fn over every item whose id is not yet in the cache at path,
// strictly in input order, checkpointing the union of cached and new results
// every Interval items and at the end. fn must never fail: per-item errors
// are its responsibility to convert into sentinel records, so the cache
// always advances. The returned slice is cached results followed by new
// ones.
//
// Interrupting the process loses at most Interval-1 uncommitted items; they
// are simply reprocessed on the next invocation.
func Process[I, R any](path string, items []I, itemID func(I) string, resultID func(R) string, fn func(I) R, opts Options) ([]R, error) {
	interval := opts.Interval
	if interval <= 0 {
		interval = defaultInterval
	}

	cached, err := load[R](path, opts)
	if err != nil {
		return nil, err
	}

	done := make(map[string]bool, len(cached))
	for _, r := range cached {
		if id := resultID(r); id != "" {
			done[id] = true
		}
	}

	var pending []I
	for _, item := range items {
		if !done[itemID(item)] {
			pending = append(pending, item)
		}
	}

	if len(pending) == 0 {
		opts.Log.Info().Int("cached", len(cached)).Str("kind", opts.Label).
			Msg("all items already processed")
		return cached, nil
	}
	opts.Log.Info().Int("cached", len(cached)).Int("pending", len(pending)).
		Str("kind", opts.Label).Msg("processing")

	results := make([]R, 0, len(pending))
	for i, item := range pending {
		results = append(results, fn(item))

		if (i+1)%interval == 0 || i == len(pending)-1 {
			if err := store(path, append(cached[:len(cached):len(cached)], results...)); err != nil {
				return nil, fmt.Errorf("checkpointing %s: %w", opts.Label, err)
			}
			opts.Log.Debug().Int("saved", len(cached)+len(results)).
				Str("kind", opts.Label).Msg("checkpoint written")
			if opts.Pause > 0 {
				sleep(opts.Pause)
			}
		}
	}

	return append(cached, results...), nil
}

// load reads the cache file. A missing file is an empty cache; a corrupt
// one is too, unless Strict is set.
func load[R any](path string, opts Options) ([]R, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		if opts.Strict {
			return nil, fmt.Errorf("reading cache: %w", err)
		}
		opts.Log.Warn().Str("kind", opts.Label).Err(err).
			Msg("cache unreadable, reprocessing everything")
		return nil, nil
	}

	var cached []R
	if err := json.Unmarshal(data, &cached); err != nil {
		if opts.Strict {
			return nil, fmt.Errorf("parsing cache: %w", err)
		}
		opts.Log.Warn().Str("kind", opts.Label).Err(err).
			Msg("cache corrupt, reprocessing everything")
		return nil, nil
	}
	return cached, nil
}

// store rewrites the cache wholesale. A full rewrite rather than an append
// guards against a partial write leaving an inconsistent tail.
func store[R any](path string, records []R) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling records: %w", err)
	}
	return writeFile(path, data, 0o644)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pubmed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/review-assistant/internal/httputil"
	"github.com/pdiddy/review-assistant/pkg/types"
)

const (
	eutilsBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

	// NCBI rejects efetch requests above this many ids.
	maxFetchBatch = 200

	defaultBatchDelay = 500 * time.Millisecond
	defaultSearchMax  = 10000
)

// Downloader talks to the NCBI E-utilities API: esearch for PMIDs matching
// a query, efetch for MEDLINE records. An API key raises the request quota
// but is not required.
type Downloader struct {
	apiKey     string
	baseURL    string
	batchSize  int
	batchDelay time.Duration

	httpClient *http.Client
	log        zerolog.Logger
	sleep      func(time.Duration)
}

// NewDownloader builds a downloader from configuration.
func NewDownloader(cfg types.DownloadConfig, log zerolog.Logger) *Downloader {
	batchSize := cfg.BatchSize
	if batchSize <= 0 || batchSize > maxFetchBatch {
		batchSize = maxFetchBatch
	}
	batchDelay := cfg.BatchDelay
	if batchDelay < 0 {
		batchDelay = defaultBatchDelay
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Downloader{
		apiKey:     cfg.APIKey,
		baseURL:    eutilsBaseURL,
		batchSize:  batchSize,
		batchDelay: batchDelay,
		httpClient: &http.Client{Timeout: timeout},
		log:        log.With().Str("component", "pubmed").Logger(),
		sleep:      time.Sleep,
	}
}

// Search runs an esearch query and returns matching PMIDs, newest first,
// capped at max (default 10000).
func (d *Downloader) Search(ctx context.Context, query string, max int) ([]string, error) {
	if max <= 0 {
		max = defaultSearchMax
	}

	params := url.Values{
		"db":      {"pubmed"},
		"term":    {query},
		"retmax":  {fmt.Sprint(max)},
		"retmode": {"json"},
	}
	body, err := d.get(ctx, "/esearch.fcgi", params)
	if err != nil {
		return nil, fmt.Errorf("searching pubmed: %w", err)
	}

	var resp struct {
		Result struct {
			IDList []string `json:"idlist"`
			Count  string   `json:"count"`
		} `json:"esearchresult"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding esearch response: %w", err)
	}

	d.log.Info().Int("matches", len(resp.Result.IDList)).Str("total", resp.Result.Count).
		Msg("pubmed search complete")
	return resp.Result.IDList, nil
}

// FetchMEDLINE downloads the given PMIDs as MEDLINE text, in batches, and
// streams the records to w. The per-batch delay keeps us inside NCBI's
// courtesy limits.
func (d *Downloader) FetchMEDLINE(ctx context.Context, pmids []string, w io.Writer) error {
	total := (len(pmids) + d.batchSize - 1) / d.batchSize

	for i := 0; i < len(pmids); i += d.batchSize {
		batch := pmids[i:min(i+d.batchSize, len(pmids))]
		d.log.Info().
			Int("batch", i/d.batchSize+1).
			Int("batches", total).
			Int("ids", len(batch)).
			Msg("downloading batch")

		params := url.Values{
			"db":      {"pubmed"},
			"id":      {strings.Join(batch, ",")},
			"rettype": {"medline"},
			"retmode": {"text"},
		}
		body, err := d.get(ctx, "/efetch.fcgi", params)
		if err != nil {
			return fmt.Errorf("fetching batch %d: %w", i/d.batchSize+1, err)
		}
		if _, err := w.Write(body); err != nil {
			return fmt.Errorf("writing batch %d: %w", i/d.batchSize+1, err)
		}

		if i+d.batchSize < len(pmids) && d.batchDelay > 0 {
			d.sleep(d.batchDelay)
		}
	}
	return nil
}

func (d *Downloader) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if d.apiKey != "" {
		params.Set("api_key", d.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		d.baseURL+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := httputil.DoWithRetry(ctx, d.httpClient, req, 0, d.log)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("eutils returned status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxExportSize))
}

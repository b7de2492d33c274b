// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pubmed

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/review-assistant/pkg/types"
)

func testDownloader(serverURL string, cfg types.DownloadConfig) *Downloader {
	d := NewDownloader(cfg, zerolog.Nop())
	d.baseURL = serverURL
	d.sleep = func(time.Duration) {}
	return d
}

func TestSearch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/esearch.fcgi", r.URL.Path)
		assert.Equal(t, "pubmed", r.URL.Query().Get("db"))
		assert.Equal(t, "hypertension telemedicine", r.URL.Query().Get("term"))
		assert.Equal(t, "50", r.URL.Query().Get("retmax"))
		fmt.Fprint(w, `{"esearchresult":{"count":"3","idlist":["38012345","38099999","37000001"]}}`)
	}))
	defer ts.Close()

	d := testDownloader(ts.URL, types.DownloadConfig{})
	ids, err := d.Search(context.Background(), "hypertension telemedicine", 50)
	require.NoError(t, err)
	assert.Equal(t, []string{"38012345", "38099999", "37000001"}, ids)
}

func TestSearchSendsAPIKey(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ncbi-key", r.URL.Query().Get("api_key"))
		fmt.Fprint(w, `{"esearchresult":{"count":"0","idlist":[]}}`)
	}))
	defer ts.Close()

	d := testDownloader(ts.URL, types.DownloadConfig{APIKey: "ncbi-key"})
	_, err := d.Search(context.Background(), "anything", 0)
	require.NoError(t, err)
}

func TestFetchMEDLINEBatches(t *testing.T) {
	var batches []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/efetch.fcgi", r.URL.Path)
		assert.Equal(t, "medline", r.URL.Query().Get("rettype"))
		ids := r.URL.Query().Get("id")
		batches = append(batches, ids)
		for _, id := range strings.Split(ids, ",") {
			fmt.Fprintf(w, "PMID- %s\nTI  - t\n\n", id)
		}
	}))
	defer ts.Close()

	d := testDownloader(ts.URL, types.DownloadConfig{BatchSize: 2})

	var out bytes.Buffer
	pmids := []string{"1", "2", "3", "4", "5"}
	require.NoError(t, d.FetchMEDLINE(context.Background(), pmids, &out))

	assert.Equal(t, []string{"1,2", "3,4", "5"}, batches)
	for _, id := range pmids {
		assert.Contains(t, out.String(), "PMID- "+id)
	}
}

func TestFetchMEDLINEPausesBetweenBatches(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "PMID- 1\n")
	}))
	defer ts.Close()

	d := NewDownloader(types.DownloadConfig{BatchSize: 1, BatchDelay: time.Millisecond}, zerolog.Nop())
	d.baseURL = ts.URL

	pauses := 0
	d.sleep = func(time.Duration) { pauses++ }

	var out bytes.Buffer
	require.NoError(t, d.FetchMEDLINE(context.Background(), []string{"1", "2", "3"}, &out))
	assert.Equal(t, 2, pauses, "no pause after the final batch")
}

func TestFetchMEDLINEServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer ts.Close()

	d := testDownloader(ts.URL, types.DownloadConfig{})
	err := d.FetchMEDLINE(context.Background(), []string{"1"}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/review-assistant/internal/plan"
	"github.com/pdiddy/review-assistant/internal/pubmed"
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download matching articles from PubMed as MEDLINE",
	Long: `Download runs the plan's query against PubMed E-utilities, then fetches
the matching records in MEDLINE format. The export lands in the working
directory and feeds straight into 'run'. An NCBI API key (secret file
ncbi-api-key or download.api_key) raises the rate limit.`,
	RunE: runDownload,
}

func runDownload(cmd *cobra.Command, args []string) error {
	log := rootLogger()

	query, _ := cmd.Flags().GetString("query")
	if query == "" {
		p, err := plan.Load(workdir())
		if err != nil {
			return fmt.Errorf("no --query given and no plan to take one from: %w", err)
		}
		query = p.Query
	}

	maxResults, _ := cmd.Flags().GetInt("max")
	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = filepath.Join(workdir(), "pubmed_export.txt")
	}

	d := pubmed.NewDownloader(downloadConfig(), log)

	pmids, err := d.Search(cmd.Context(), query, maxResults)
	if err != nil {
		return err
	}
	if len(pmids) == 0 {
		return fmt.Errorf("no PubMed results for query %q", query)
	}
	fmt.Printf("Found %d articles\n", len(pmids))

	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("creating %s: %w", output, err)
	}
	defer f.Close()

	if err := d.FetchMEDLINE(cmd.Context(), pmids, f); err != nil {
		return err
	}

	fmt.Printf("Saved MEDLINE export to %s\n", output)
	return nil
}

func init() {
	downloadCmd.Flags().String("query", "", "PubMed query (default: the plan's query)")
	downloadCmd.Flags().Int("max", 500, "maximum number of articles to download")
	downloadCmd.Flags().String("output", "", "output file (default: <workdir>/pubmed_export.txt)")
	rootCmd.AddCommand(downloadCmd)
}

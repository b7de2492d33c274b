// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/review-assistant/internal/store"
	"github.com/pdiddy/review-assistant/pkg/types"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Index and query finished reviews (SQLite + FTS5)",
	Long: `Store keeps a searchable SQLite index of the review in the working
directory. Use 'store index' after a pipeline run to ingest the stage
outputs, then 'store query' to search titles, abstracts, and extracted
findings, or to look up why a study was included or excluded.`,
}

var storeIndexCmd = &cobra.Command{
	Use:   "index",
	Short: "Ingest the pipeline outputs into the review index",
	Long: `Index reads the parsed articles, screening decisions, and extraction
records from the working directory into review.db. Source files are
mod-time tracked, so unchanged artifacts are skipped on re-runs.`,
	RunE: runStoreIndex,
}

func runStoreIndex(cmd *cobra.Command, args []string) error {
	s, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	summary, err := s.Ingest(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("articles: %d, decisions: %d, extractions: %d, unchanged: %d\n",
		summary.Articles, summary.Decisions, summary.Extractions, summary.Skipped)
	return nil
}

var storeQueryCmd = &cobra.Command{
	Use:   "query [terms]",
	Short: "Search the review index",
	Long: `Query searches the index with FTS5 full-text search over titles,
abstracts, and extracted findings, optionally filtered by screening
decision or PMID.`,
	RunE: runStoreQuery,
}

func runStoreQuery(cmd *cobra.Command, args []string) error {
	decision, _ := cmd.Flags().GetString("decision")
	pmid, _ := cmd.Flags().GetString("pmid")
	limit, _ := cmd.Flags().GetInt("limit")

	opts := store.QueryOptions{
		Query:      strings.Join(args, " "),
		Decision:   types.Decision(strings.ToUpper(decision)),
		PMID:       pmid,
		MaxResults: limit,
	}
	if opts.IsEmpty() {
		return fmt.Errorf("query or filter required: provide search terms, --decision, or --pmid")
	}

	s, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	results, err := s.Query(cmd.Context(), opts)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-10s  %-9s  %-50s  %s\n", "PMID", "Decision", "Title", "Findings")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 110))
	for _, r := range results {
		fmt.Fprintf(os.Stdout, "%-10s  %-9s  %-50s  %s\n",
			r.PMID, r.Decision, clip(r.Title, 50), clip(r.Findings, 40))
	}
	fmt.Fprintf(os.Stdout, "\n%d results\n", len(results))
	return nil
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func openStore(cmd *cobra.Command) (*store.Store, error) {
	maxResults, _ := cmd.Flags().GetInt("max-results")
	return store.Open(workdir(), types.StoreConfig{MaxResults: maxResults}, rootLogger())
}

func init() {
	storeCmd.PersistentFlags().Int("max-results", 20, "default maximum number of query results")

	storeQueryCmd.Flags().String("decision", "", "filter by screening decision: include, exclude, uncertain")
	storeQueryCmd.Flags().String("pmid", "", "filter by PMID")
	storeQueryCmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
	storeQueryCmd.Flags().Bool("json", false, "output results as JSON")

	storeCmd.AddCommand(storeIndexCmd)
	storeCmd.AddCommand(storeQueryCmd)
	rootCmd.AddCommand(storeCmd)
}

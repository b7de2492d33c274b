// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"

	"github.com/pdiddy/review-assistant/internal/review"
)

var runCmd = &cobra.Command{
	Use:   "run [export-file]",
	Short: "Run the review pipeline over a PubMed export",
	Long: `Run executes the pipeline: parse the export, screen every article
against the plan's criteria, extract structured data from the included
ones, assess study quality, synthesize themes, and write the summary
table.

Every stage checkpoints into the working directory. Interrupt at any
point and re-run with the same arguments; already-processed articles
are never sent to the model again. The export-file argument is only
needed on the first run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	log := rootLogger()

	client, err := newLLMClient(log)
	if err != nil {
		return err
	}

	p, err := review.New(client, pipelineConfig(), log)
	if err != nil {
		return err
	}

	inputFile := ""
	if len(args) > 0 {
		inputFile = args[0]
	}
	return p.Run(cmd.Context(), inputFile)
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/review-assistant/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render the PRISMA diagram, bibliography, and manuscript scaffold",
	Long: `Report turns a finished review's working directory into publication
artifacts: the PRISMA 2020 flow diagram (SVG, TikZ, and HTML), a BibTeX
bibliography of the included studies, and a LaTeX manuscript scaffold
that pulls in the synthesis, the statistics, and the characteristics
table. Requires at least the screening results; everything else
degrades gracefully when absent.`,
	RunE: runReport,
}

func runReport(cmd *cobra.Command, args []string) error {
	log := rootLogger()

	if err := report.Generate(workdir(), viper.GetBool("pipeline.route_uncertain"), log); err != nil {
		return err
	}

	fmt.Printf("Report artifacts written to %s\n", workdir())
	fmt.Println("Compile the manuscript with:")
	fmt.Printf("  cd %s && pdflatex %s && bibtex %s && pdflatex %s\n",
		workdir(), report.ManuscriptFile, "07_review", report.ManuscriptFile)
	return nil
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/review-assistant/internal/plan"
)

var planCmd = &cobra.Command{
	Use:   "plan [description]",
	Short: "Generate a review plan from a free-text description",
	Long: `Plan asks the model to turn a free-text description of the review
into a structured plan: PubMed query, screening criteria, extraction
fields, and analysis dimensions. The plan is saved to the working
directory as both JSON and YAML; edit either before running the
pipeline.

With --show, prints the current plan instead of generating one.`,
	RunE: runPlan,
}

func runPlan(cmd *cobra.Command, args []string) error {
	log := rootLogger()

	if show, _ := cmd.Flags().GetBool("show"); show {
		p, err := plan.Load(workdir())
		if err != nil {
			return err
		}
		fmt.Printf("Topic:  %s\nTitle:  %s\nQuery:  %s\n\nInclusion criteria:\n", p.Topic, p.Title, p.Query)
		for _, c := range p.Screening.Inclusion {
			fmt.Printf("  - %s\n", c)
		}
		fmt.Println("\nExclusion criteria:")
		for _, c := range p.Screening.Exclusion {
			fmt.Printf("  - %s\n", c)
		}
		return nil
	}

	if len(args) == 0 {
		return fmt.Errorf("describe the review, e.g.: review-assistant plan \"telemedicine for hypertension in adults\"")
	}
	description := strings.Join(args, " ")

	client, err := newLLMClient(log)
	if err != nil {
		return err
	}

	p, err := plan.NewGenerator(client, workdir(), log).Generate(cmd.Context(), description)
	if err != nil {
		return err
	}

	fmt.Printf("Plan written to %s (query: %s)\n", workdir(), p.Query)
	return nil
}

func init() {
	planCmd.Flags().Bool("show", false, "print the current plan and exit")
	rootCmd.AddCommand(planCmd)
}

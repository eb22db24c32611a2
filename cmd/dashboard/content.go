package main

import (
	"github.com/spf13/cobra"

	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/app"
)

func newCandidatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "candidates",
		Short: "List the candidate profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			newRenderer().Candidates(a.API.CandidatesOrDefault(cmd.Context()))
			return nil
		},
	}
}

func newInsightsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "insights",
		Short: "Show the election insights",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			newRenderer().Insights(a.API.InsightsOrDefault(cmd.Context()))
			return nil
		},
	}
}

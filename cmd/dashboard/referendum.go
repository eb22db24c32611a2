package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/app"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/display"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/model"
)

func newReferendumCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "referendum yes|no",
		Short:     "Answer the referendum",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(model.ChoiceYes), string(model.ChoiceNo)},
		RunE: func(cmd *cobra.Command, args []string) error {
			choice := model.Choice(strings.ToLower(args[0]))
			if !choice.Valid() {
				return fmt.Errorf("answer must be yes or no, got %q", args[0])
			}

			a, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			tally, err := a.CastReferendumVote(cmd.Context(), choice)
			if err != nil {
				return err
			}
			r := display.Referendum(tally)
			fmt.Printf("Yes %s%%  No %s%%  (%d answers)\n",
				display.FormatPercent(r.Yes.Percent), display.FormatPercent(r.No.Percent), r.Total)
			return nil
		},
	}
}

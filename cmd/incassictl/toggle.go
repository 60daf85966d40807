package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"incassi/internal/core"
)

func addToggle(topLevel *cobra.Command, e *env) {
	oo := &OutputOptions{}

	cmd := &cobra.Command{
		Use:   "toggle CLIENT_ID YYYY-MM",
		Short: "Flip a month between paid and unpaid",
		Example: `
incassictl toggle 3 2026-02
`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			ym, err := core.ParseYearMonth(args[1])
			if err != nil {
				return err
			}
			app, err := e.App(cmd.Context())
			if err != nil {
				return err
			}
			view, err := app.Ledger.ToggleMonth(cmd.Context(), args[0], ym.Month, ym.Year)
			if err != nil {
				return err
			}
			if oo.JSON {
				return e.printJSON(view)
			}
			cell, _ := view.Cell(ym.Month, ym.Year)
			_, err = fmt.Fprintf(e.out, "%s %s %d: %s (progress %s)\n",
				view.Name, core.MonthLabel(ym.Month), ym.Year, statusLabel(cell.Status), progressLabel(view.Progress))
			return err
		},
	}

	addOutputArg(cmd, oo)
	topLevel.AddCommand(cmd)
}

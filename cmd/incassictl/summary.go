package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"incassi/internal/core"
)

func addSummary(topLevel *cobra.Command, e *env) {
	vo := &ViewOptions{}
	oo := &OutputOptions{}

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show roster totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			q, err := vo.Query()
			if err != nil {
				return err
			}
			app, err := e.App(cmd.Context())
			if err != nil {
				return err
			}
			s, err := app.Ledger.Summary(cmd.Context(), q)
			if err != nil {
				return err
			}
			if oo.JSON {
				return e.printJSON(s)
			}

			tbl := uitable.New()
			tbl.Separator = "  "
			tbl.AddRow("Clients", s.TotalClients)
			tbl.AddRow("Recovered", s.Recovered.StringFixed(2))
			tbl.AddRow("Paid months", color.GreenString("%d", s.PaidMonths))
			tbl.AddRow("Open months", color.RedString("%d", s.OpenMonths))
			_, err = fmt.Fprintln(e.out, tbl)
			return err
		},
	}

	addViewArgs(cmd, vo)
	addOutputArg(cmd, oo)
	topLevel.AddCommand(cmd)
}

func statusLabel(s core.Status) string {
	switch s {
	case core.StatusPaid:
		return color.GreenString(string(s))
	case core.StatusManualPaid:
		return color.CyanString(string(s))
	default:
		return color.RedString(string(s))
	}
}

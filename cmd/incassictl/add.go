package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"incassi/internal/core"
	"incassi/internal/services"
)

type AddOptions struct {
	Name   string
	Start  string
	Amount string
}

func addAdd(topLevel *cobra.Command, e *env) {
	ao := &AddOptions{}
	oo := &OutputOptions{}

	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a client",
		Example: `
incassictl add "Rafael Rodrigues Silva" --start 2024-01 --amount 350
`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) < 1 {
				return errors.New("requires a client name")
			}
			ao.Name = strings.Join(args, " ")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			start, err := core.ParseYearMonth(ao.Start)
			if err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			amount, err := core.ParseAmount(ao.Amount)
			if err != nil {
				return fmt.Errorf("--amount: %w", err)
			}

			app, err := e.App(cmd.Context())
			if err != nil {
				return err
			}
			c, err := app.Ledger.CreateClient(cmd.Context(), services.NewClientInput{
				Name:           ao.Name,
				StartDate:      start,
				ExpectedAmount: amount,
			})
			if err != nil {
				return err
			}
			if oo.JSON {
				return e.printJSON(c)
			}
			_, err = color.New(color.FgGreen).Fprintf(e.out, "Added %s (%s) from %s at %s\n",
				c.Name, c.ID, c.StartDate, c.ExpectedAmount.StringFixed(2))
			return err
		},
	}

	cmd.Flags().StringVar(&ao.Start, "start", "", "First billed month (YYYY-MM).")
	cmd.Flags().StringVar(&ao.Amount, "amount", "", "Expected monthly amount.")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("amount")
	addOutputArg(cmd, oo)
	topLevel.AddCommand(cmd)
}

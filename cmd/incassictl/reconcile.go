package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"incassi/internal/cli"
	"incassi/internal/services"
	"incassi/internal/textsource"
)

type ReconcileOptions struct {
	Billing      string
	Bank         string
	BillingSheet string
	BankSheet    string
	Async        bool
}

func (o ReconcileOptions) sources(ctx context.Context, app *cli.App) (billing, bank textsource.Source, err error) {
	if o.Bank != "" && o.BankSheet != "" {
		return nil, nil, errors.New("use either --bank or --bank-sheet")
	}
	if o.Billing != "" && o.BillingSheet != "" {
		return nil, nil, errors.New("use either --billing or --billing-sheet")
	}

	switch {
	case o.Bank != "":
		bank = textsource.File{Path: o.Bank}
	case o.BankSheet != "":
		if bank, err = app.SheetSource(ctx, o.BankSheet); err != nil {
			return nil, nil, err
		}
	default:
		return nil, nil, errors.New("a bank statement is required (--bank or --bank-sheet)")
	}

	switch {
	case o.Billing != "":
		billing = textsource.File{Path: o.Billing}
	case o.BillingSheet != "":
		if billing, err = app.SheetSource(ctx, o.BillingSheet); err != nil {
			return nil, nil, err
		}
	}
	return billing, bank, nil
}

func addReconcile(topLevel *cobra.Command, e *env) {
	ro := &ReconcileOptions{}
	oo := &OutputOptions{}

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Match a bank statement against the roster and merge the result",
		Example: `
incassictl reconcile --billing faturamento.xlsx --bank extrato.csv
incassictl reconcile --bank-sheet 'Extrato!A:E' --async
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			ctx := cmd.Context()
			app, err := e.App(ctx)
			if err != nil {
				return err
			}
			billing, bank, err := ro.sources(ctx, app)
			if err != nil {
				return err
			}
			billingText, bankText, err := textsource.LoadPair(ctx, billing, bank)
			if err != nil {
				return err
			}

			if ro.Async {
				id, err := app.Reconciler.Enqueue(ctx, billingText, bankText)
				if err != nil {
					return err
				}
				if oo.JSON {
					return e.printJSON(map[string]string{"requestId": id})
				}
				_, err = fmt.Fprintf(e.out, "Queued reconcile request %s\n", id)
				return err
			}

			res, err := app.Reconciler.Reconcile(ctx, billingText, bankText)
			if err != nil {
				return err
			}
			if oo.JSON {
				return e.printJSON(res)
			}
			return printReconcile(e, res)
		},
	}

	cmd.Flags().StringVar(&ro.Billing, "billing", "", "Billing report file (.xlsx, .csv or text).")
	cmd.Flags().StringVar(&ro.Bank, "bank", "", "Bank statement file (.xlsx, .csv or text).")
	cmd.Flags().StringVar(&ro.BillingSheet, "billing-sheet", "", "Billing report range in GOOGLE_SPREADSHEET_ID.")
	cmd.Flags().StringVar(&ro.BankSheet, "bank-sheet", "", "Bank statement range in GOOGLE_SPREADSHEET_ID.")
	cmd.Flags().BoolVar(&ro.Async, "async", false, "Queue the request for incassi-worker instead of waiting.")
	addOutputArg(cmd, oo)
	topLevel.AddCommand(cmd)
}

func printReconcile(e *env, res services.ReconcileResult) error {
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow("Inserted", res.Merge.Inserted)
	tbl.AddRow("Replaced", res.Merge.Replaced)
	tbl.AddRow("Kept manual", res.Merge.SkippedManual)
	tbl.AddRow("Matched clients", len(res.Merge.MatchedClients))
	if n := len(res.Merge.UnknownClients); n > 0 {
		tbl.AddRow("Unknown clients", color.YellowString("%d", n))
	}
	if q := res.Validation.QuarantinedSuggestions + res.Validation.QuarantinedCells; q > 0 {
		tbl.AddRow("Quarantined", color.YellowString("%d", q))
	}
	if _, err := fmt.Fprintln(e.out, tbl); err != nil {
		return err
	}
	_, err := fmt.Fprintln(e.out, clientTable(res.Clients))
	return err
}

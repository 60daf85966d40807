package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"incassi/internal/core"
	"incassi/internal/services"
)

// ViewOptions selects the timeline window.
type ViewOptions struct {
	Ref    string
	Window int
}

func addViewArgs(cmd *cobra.Command, o *ViewOptions) {
	cmd.Flags().StringVar(&o.Ref, "ref", "", "Reference month (YYYY-MM). Defaults to REFERENCE_MONTH or the current month.")
	cmd.Flags().IntVar(&o.Window, "window", 0, "Number of months to look back. Defaults to TIMELINE_WINDOW.")
}

func (o ViewOptions) Query() (services.ViewQuery, error) {
	var q services.ViewQuery
	if o.Ref != "" {
		ref, err := core.ParseYearMonth(o.Ref)
		if err != nil {
			return q, fmt.Errorf("--ref: %w", err)
		}
		q.Reference = ref
	}
	if o.Window < 0 {
		return q, fmt.Errorf("--window must be positive")
	}
	q.Window = o.Window
	return q, nil
}

func addList(topLevel *cobra.Command, e *env) {
	vo := &ViewOptions{}
	oo := &OutputOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List clients with their payment timeline",
		Example: `
incassictl list
incassictl list --ref 2026-02 --window 6
`,
		Args: cobra.NoArgs,
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
			clients, err := app.Ledger.ListClients(cmd.Context(), q)
			if err != nil {
				return err
			}
			if oo.JSON {
				return e.printJSON(clients)
			}
			_, err = fmt.Fprintln(e.out, clientTable(clients))
			return err
		},
	}

	addViewArgs(cmd, vo)
	addOutputArg(cmd, oo)
	topLevel.AddCommand(cmd)
}

func clientTable(clients []services.ClientView) *uitable.Table {
	bold := color.New(color.Bold).SprintFunc()

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = 40
	tbl.AddRow(bold("ID"), bold("Client"), bold("Start"), bold("Expected"), bold("Progress"), bold("Timeline"))
	for _, c := range clients {
		tbl.AddRow(shortID(c.ID), c.Name, c.StartDate.String(), c.ExpectedAmount.StringFixed(2),
			progressLabel(c.Progress), timelineStrip(c.Timeline))
	}
	return tbl
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func progressLabel(p int) string {
	label := fmt.Sprintf("%3d%%", p)
	switch {
	case p >= 100:
		return color.New(color.FgGreen, color.Bold).Sprint(label)
	case p >= 50:
		return color.New(color.FgYellow).Sprint(label)
	default:
		return color.New(color.FgRed).Sprint(label)
	}
}

// timelineStrip renders the window oldest first, one glyph per month.
func timelineStrip(entries []core.TimelineEntry) string {
	paid := color.New(color.FgGreen).SprintFunc()
	manual := color.New(color.FgCyan).SprintFunc()
	open := color.New(color.Faint).SprintFunc()

	parts := make([]string, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		switch entries[i].Status {
		case core.StatusManualPaid:
			parts = append(parts, manual("◆"))
		case core.StatusPaid:
			parts = append(parts, paid("●"))
		default:
			parts = append(parts, open("○"))
		}
	}
	return strings.Join(parts, "")
}

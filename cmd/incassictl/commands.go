package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"incassi/internal/cli"
	applog "incassi/internal/log"
)

// env lazily opens the application so that --help never touches storage.
type env struct {
	load func(ctx context.Context) (*cli.App, error)
	app  *cli.App
	out  io.Writer
}

func newEnv() *env {
	return &env{
		out: color.Output,
		load: func(ctx context.Context) (*cli.App, error) {
			logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentCLI)
			cfg, err := cli.LoadAndValidateConfig()
			if err != nil {
				return nil, err
			}
			return cli.Bootstrap(ctx, cfg, logger, cli.BootstrapOptions{UseAMQP: true})
		},
	}
}

func (e *env) App(ctx context.Context) (*cli.App, error) {
	if e.app != nil {
		return e.app, nil
	}
	app, err := e.load(ctx)
	if err != nil {
		return nil, err
	}
	e.app = app
	return app, nil
}

func (e *env) Close() error {
	if e.app == nil {
		return nil
	}
	err := e.app.Close()
	e.app = nil
	return err
}

// OutputOptions selects JSON output instead of tables.
type OutputOptions struct {
	JSON bool
}

func addOutputArg(cmd *cobra.Command, o *OutputOptions) {
	cmd.Flags().BoolVar(&o.JSON, "json", false, "Output as JSON.")
}

func (e *env) printJSON(v any) error {
	enc := json.NewEncoder(e.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newRootCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "incassictl",
		Short:         "Track monthly client payments and reconcile them against bank statements.",
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.SetOut(e.out)
	cmd.SetErr(e.out)

	addList(cmd, e)
	addAdd(cmd, e)
	addToggle(cmd, e)
	addReconcile(cmd, e)
	addSummary(cmd, e)
	return cmd
}

func printError(w io.Writer, err error) {
	red := color.New(color.FgRed, color.Bold)
	_, _ = red.Fprint(w, "error: ")
	_, _ = fmt.Fprintln(w, strings.TrimSpace(err.Error()))
}

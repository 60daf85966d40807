package main

import (
	"os"

	"github.com/fatih/color"

	"incassi/internal/cli"
)

func main() {
	cli.LoadEnvFile()

	e := newEnv()
	err := newRootCommand(e).Execute()
	if closeErr := e.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		printError(color.Error, err)
		os.Exit(1)
	}
}

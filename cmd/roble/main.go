// Package main provides the entry point for the roble CLI.
package main

import (
	"fmt"
	"os"

	"github.com/openlab-dev/roble-go/internal/cli/command"
)

func main() {
	app := command.App()

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

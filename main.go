package main

import (
	"fmt"
	"os"

	"roadside_e2e/presentation/terminal"
)

func main() {
	termInterface, err := terminal.NewTerminalInterface(os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(int(terminal.ExitCodeOf(err)))
	}

	if err := termInterface.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(int(terminal.ExitCodeOf(err)))
	}
}

// Package main is the entry point for the sealcheck CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"sealcheck.io/sealcheck/internal/cli"
)

func main() {
	os.Exit(run())
}

// run keeps the exit-code contract in one place: 0 for a clean run, 1 for
// a run with breaches or inconclusive results, 2 for harness failures.
func run() int {
	err := cli.NewRootCommand().Execute()
	if err == nil {
		return 0
	}

	var exitErr *cli.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	fmt.Fprintf(os.Stderr, "sealcheck: %v\n", err)
	return 2
}
